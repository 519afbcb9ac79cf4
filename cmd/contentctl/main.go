// Command contentctl edits the portfolio content document from a shell,
// through the same repository the HTTP server uses.
package main

import (
	"fmt"
	"os"

	pkgerrors "portfolio/pkg/errors"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stdin).Execute(); err != nil {
		msg := err.Error()
		if appErr := pkgerrors.GetAppError(err); appErr != nil {
			msg = appErr.Message
		}
		fmt.Fprintln(os.Stderr, "Error:", msg)
		os.Exit(1)
	}
}
