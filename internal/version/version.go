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

// String returns the build metadata on one line.
func String() string {
	return fmt.Sprintf("stemvolume %s (commit %s, built %s)", Version, GitSHA, BuildTime)
}
