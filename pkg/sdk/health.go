package lookup

import "context"

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status     string            // "ok", "degraded", "error"
	Generation string            // served index generation
	Checks     map[string]string // component → "ok"/"not_ready"/"error"
}

// Health reports whether an index generation is being served.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status:     string(report.Status),
		Generation: report.Generation,
		Checks:     checks,
	}
}
