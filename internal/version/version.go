// Package version exposes build metadata stamped in via -ldflags.
package version

// Overridden at build time; the defaults identify an untagged dev build.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
