// Package version carries build-time identification of the drim2p binary.
package version

var (
	// Version is the release version, overridden via ldflags at build time.
	Version = "dev"
	// GitSHA identifies the commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"
)
