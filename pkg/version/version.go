// Package version contains the symbolic version of the betocq harness.
package version

// Version is the symbolic version of this repository. It is set at build time
// via -ldflags.
var Version = ""
