// Package version holds build metadata, set at link time with
// -ldflags "-X github.com/Sumatoshi-tech/lattice/pkg/version.Version=...".
package version

import (
	"runtime/debug"
	"sync"
)

const unknown = "<unknown>"

// Build metadata. Link-time values win over module build info.
var (
	Version = "dev"
	Commit  = unknown
	Date    = unknown
)

var initOnce sync.Once

// InitBinaryVersion fills metadata that was not set at link time from the
// module build info embedded by the Go toolchain.
func InitBinaryVersion() {
	initOnce.Do(func() {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}

		apply(info)
	})
}

func apply(info *debug.BuildInfo) {
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == unknown {
				Commit = s.Value
			}
		case "vcs.time":
			if Date == unknown {
				Date = s.Value
			}
		}
	}
}

// String renders the metadata on one line.
func String() string {
	return Version + " (commit: " + Commit + ", built: " + Date + ")"
}
