// Package version carries build-time version metadata.
package version

// Version is the release version. Set via ldflags in release builds:
// go build -ldflags "-X github.com/marstrand/bodywork/internal/version.Version=v1.2.0".
var Version = "dev"

// Build metadata, also ldflags-settable.
var (
	GitCommit = "unknown"
)

// String renders the version with its commit when one is known.
func String() string {
	if GitCommit == "unknown" {
		return Version
	}
	return Version + " (" + GitCommit + ")"
}
