// Package version provides version information for fakesnow.
//
// The Makefile copies VERSION to pkg/version/version.txt before building.
package version

import (
	_ "embed"
	"strings"
)

//go:embed version.txt
var versionFile string

// Version is the current version, embedded at compile time.
var Version = strings.TrimSpace(versionFile)

// String returns the version string.
func String() string {
	return Version
}

// Full returns the version prefixed with the program name.
func Full() string {
	return "fakesnow version " + Version
}
