// Package version holds the build-stamped identifiers the CLI's --version
// flag prints.
package version

import "fmt"

var (
	Version = "0.1.0"
	Commit  = "dev"
	Built   = "unknown"
)

// String renders the full version line, e.g. "0.1.0 (a1b2c3d, built unknown)".
func String() string {
	return fmt.Sprintf("%s (%s, built %s)", Version, Commit, Built)
}
