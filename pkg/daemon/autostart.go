package daemon

import "os"

// AutostartDisabled controls whether cmd/dhive should automatically spawn a
// daemon instance when a client command can't connect to one. It is set from
// the DHIVE_DISABLE_AUTOSTART environment variable.
var AutostartDisabled bool

func init() {
	AutostartDisabled = os.Getenv("DHIVE_DISABLE_AUTOSTART") == "1"
}
