// Package buildinfo carries build-time metadata injected through
// -ldflags, kept separate from user configuration.
package buildinfo

var (
	// Version holds the Git version tag from the build.
	Version = "dev"

	// BuildDate is the time the binary was built.
	BuildDate = "unknown"
)

// Release returns the release identifier used for telemetry tagging.
func Release() string {
	return "boxlens@" + Version
}
