// Package version carries build metadata stamped at link time.
package version

// Version is the release tag, overridden via -ldflags at build time.
var Version = "dev"

// Commit is the git commit hash the binary was built from.
var Commit = "none"

// Date is the build timestamp.
var Date = "unknown"
