package version

import "fmt"

// Version is set at build time:
// go build -ldflags "-X git.home.luguber.info/inful/daytrack/internal/version.Version=v1.0.0".
var Version = "unknown"

// Build metadata, also set via ldflags.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the build information for --version and /healthz.
func String() string {
	return fmt.Sprintf("daytrack %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
