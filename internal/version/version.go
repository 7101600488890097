package version

import "fmt"

// Set at build time with -ldflags "-X".
var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build information on one line.
func String() string {
	return fmt.Sprintf("flowrun %s (%s, built %s)", Version, GitSHA, BuildTime)
}
