// Package version carries build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Overridden at build time:
//
//	-ldflags "-X github.com/matiasleandrokruk/genhub/internal/version.Version=1.2.0"
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// Info is the build metadata reported by the health endpoint.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Get returns the current build metadata.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// String is the one-line form printed by `genhub version`.
func String() string {
	return fmt.Sprintf("genhub %s (commit %s, built %s, %s)", Version, Commit, BuildTime, runtime.Version())
}
