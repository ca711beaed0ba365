// Package version provides build version information and runtime metadata.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"
)

var (
	// These are set via ldflags at build time
	Version = ""
	Commit  = ""
	Date    = ""

	once sync.Once
)

// ensureInitialized fills any fields ldflags left empty from the binary's
// embedded build info, so `go install` builds still report something useful.
func ensureInitialized() {
	once.Do(func() {
		info, ok := debug.ReadBuildInfo()
		if ok {
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					if Commit == "" && len(s.Value) >= 7 {
						Commit = s.Value[:7]
					}
				case "vcs.time":
					if Date == "" {
						Date = s.Value
					}
				case "vcs.modified":
					if s.Value == "true" && Commit != "" {
						Commit += "-dirty"
					}
				}
			}
			if Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
				Version = info.Main.Version
			}
		}
		if Version == "" {
			Version = "dev"
		}
		if Commit == "" {
			Commit = "unknown"
		}
		if Date == "" {
			Date = time.Now().Format("2006-01-02")
		}
	})
}

func Info() string {
	ensureInitialized()
	return fmt.Sprintf("ccmeter %s (commit: %s, built: %s, %s/%s)",
		Version, Commit, Date, runtime.GOOS, runtime.GOARCH)
}
