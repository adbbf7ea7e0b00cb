// Package version holds build information injected with -ldflags, e.g.
//
//	-X github.com/MeKo-Tech/kyclens/internal/version.Version=v1.2.0
package version

import (
	"fmt"
	"runtime"
)

// Build-time variables set by ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns version information
func Info() (string, string, string) {
	return Version, GitCommit, BuildDate
}

// String formats the build information on one line.
func String() string {
	return fmt.Sprintf("kyclens %s (commit: %s, built: %s, %s)", Version, GitCommit, BuildDate, runtime.Version())
}
