// Package logging configures the go-logging backend shared by every alnav
// package. Packages obtain their logger with Logger("name"), which yields a
// module named "alnav.name".
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	gologging "github.com/op/go-logging"
)

// Root is the module prefix of every alnav logger.
const Root = "alnav"

const format = `%{time:15:04:05.000} %{level:.4s} %{module}: %{message}`

// Logger returns the logger for an alnav package.
func Logger(pkg string) *gologging.Logger {
	return gologging.MustGetLogger(Root + "." + pkg)
}

// Setup installs a text backend writing to w at the given level
// ("debug", "info", "warning", "error", "critical"). An empty level means
// "warning". A nil writer means stderr.
func Setup(level string, w io.Writer) error {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	backend := gologging.NewLogBackend(w, "", 0)
	formatted := gologging.NewBackendFormatter(backend, gologging.MustStringFormatter(format))
	leveled := gologging.AddModuleLevel(formatted)
	leveled.SetLevel(lvl, "")
	gologging.SetBackend(leveled)
	return nil
}

// Discard silences every logger. Tests and the stdio server, whose stdout is
// the protocol stream, use it before anything else logs.
func Discard() {
	leveled := gologging.AddModuleLevel(gologging.NewLogBackend(io.Discard, "", 0))
	leveled.SetLevel(gologging.CRITICAL, "")
	gologging.SetBackend(leveled)
}

// ParseLevel maps a configuration string to a go-logging level.
func ParseLevel(level string) (gologging.Level, error) {
	if strings.TrimSpace(level) == "" {
		return gologging.WARNING, nil
	}
	lvl, err := gologging.LogLevel(strings.ToUpper(strings.TrimSpace(level)))
	if err != nil {
		return gologging.WARNING, fmt.Errorf("logging: %w", err)
	}
	return lvl, nil
}
