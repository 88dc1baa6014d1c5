// Package dhive holds process-wide constants and environment toggles shared
// across the archive runtime.
package dhive

import (
	"os"
)

const (
	// Version is the runtime's semantic version.
	Version = "0.1.0"
)

// DebugEnabled controls whether or not verbose debug logging is enabled. It is
// set automatically based on the DHIVE_DEBUG environment variable.
var DebugEnabled bool

func init() {
	DebugEnabled = os.Getenv("DHIVE_DEBUG") == "1"
}
