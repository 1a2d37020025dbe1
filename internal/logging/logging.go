// Package logging builds the diagnostic logger used by lessimport.
package logging

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
)

// Prefix is prepended to every log line.
const Prefix = "lessimport"

// New returns a logger writing to w at the named level ("debug", "info",
// "warn", "error" or "fatal"). Log output goes to stderr in the CLI so it
// never mixes with flattened stylesheet text on stdout.
func New(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	return log.NewWithOptions(w, log.Options{
		Level:  lvl,
		Prefix: Prefix,
	}), nil
}
