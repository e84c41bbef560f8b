package main

import (
	"runtime/debug"

	"github.com/brewlab/brewsync/cmd"
)

// Version is set at build time via -ldflags "-X main.Version=...".
var Version = "dev"

// resolveVersion falls back to the module version stamped by `go install`
// when no version was injected at build time.
func resolveVersion() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}

func main() {
	cmd.SetVersion(resolveVersion())
	cmd.Execute()
}
