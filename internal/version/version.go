// Package version holds build metadata injected via ldflags.
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String formats the build metadata for logs and the health report.
func String() string {
	return Version + " (" + Commit + ", " + Date + ")"
}

// UserAgent identifies the indexer to SPARQL endpoints.
func UserAgent() string {
	return "dbpedia-lookup/" + Version
}
