// Package cmdsupport holds small helpers shared by the cmd/dhive and
// cmd/dhived entry points: error reporting, termination signal sets, and
// argument validators.
package cmdsupport

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Warning prints a warning message to standard error.
func Warning(message string) {
	fmt.Fprintln(color.Error, color.YellowString("Warning:"), message)
}

// Error prints an error message to standard error.
func Error(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
}

// Fatal prints an error message to standard error and terminates the process
// with an error exit code.
func Fatal(err error) {
	Error(err)
	os.Exit(1)
}
