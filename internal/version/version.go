// Package version provides the tandem build version.
package version

// Version is set at build time via ldflags.
var Version = "devel"
