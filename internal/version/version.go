// Package version carries build identifiers injected via -ldflags.
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String returns a single-line version summary for the -version flag.
func String() string {
	return fmt.Sprintf("lidosc %s (%s, built %s)", Version, GitSHA, BuildTime)
}
