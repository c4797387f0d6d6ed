package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the index is served but an optional component failed.
	Degraded Status = "degraded"
	// Unhealthy indicates no index is served.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckNotReady indicates nothing has been published yet.
	CheckNotReady CheckResult = "not_ready"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status     Status
	Generation string
	Checks     map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	index SnapshotSource
	cache CachePinger
}

// New creates a Service. cache can be nil.
func New(index SnapshotSource, cache CachePinger) *Service {
	return &Service{index: index, cache: cache}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	r := Report{Status: Healthy, Checks: make(map[string]CheckResult)}

	snap, err := s.index.Acquire()
	if err != nil {
		r.Checks["index"] = CheckNotReady
		r.Status = Unhealthy
	} else {
		r.Generation = snap.Generation()
		snap.Release()
		r.Checks["index"] = CheckOK
	}

	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			r.Checks["cache"] = CheckError
			if r.Status == Healthy {
				r.Status = Degraded
			}
		} else {
			r.Checks["cache"] = CheckOK
		}
	}

	return r
}
