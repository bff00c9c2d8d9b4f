// Package version reports build metadata for routeright.
package version

import "fmt"

// These variables are set at build time using ldflags.
// Example: go build -ldflags "-X github.com/pablasso/routeright/internal/version.Version=v1.0.0"
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

// UserAgent is sent on every request to the planning service.
func UserAgent() string {
	return "routeright/" + Version
}

// String is the one-line version banner printed by --version.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, CommitSHA, BuildDate)
}
