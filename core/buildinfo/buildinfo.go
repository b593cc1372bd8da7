// Package buildinfo carries release metadata stamped by the linker, e.g.
//
//	go build -ldflags "-X github.com/m3rciful/combogate/core/buildinfo.Version=v0.3.0"
package buildinfo

import "runtime/debug"

var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Revision returns Commit, falling back to the VCS revision the toolchain
// embedded in the binary.
func Revision() string {
	if Commit != "" {
		return Commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				return s.Value[:7]
			}
		}
	}
	return "unknown"
}

// String is the one-line form printed by --version.
func String() string {
	s := Version + " (" + Revision() + ")"
	if Date != "" {
		s += " built " + Date
	}
	return s
}
