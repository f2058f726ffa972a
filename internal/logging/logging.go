// Package logging wires the runtime's diagnostic loggers to commonlog.
//
// Every subsystem asks for a named logger ("dictu.vm", "dictu.gc", ...).
// Nothing is printed until Configure raises the verbosity; the default
// keeps the interpreter silent apart from guest output and error reports.
package logging

import (
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

// Prefix is prepended to every logger name.
const Prefix = "dictu."

// Configure sets the global verbosity and output. An empty path
// writes to stderr. Verbosity 0 leaves only errors and criticals, 1 adds
// warnings and notices, 2 adds info, 3 or more adds debug.
func Configure(verbosity int, path string) {
	if path == "" {
		commonlog.Configure(verbosity, nil)
		return
	}
	commonlog.Configure(verbosity, &path)
}

// Get returns the logger for a subsystem, e.g. Get("gc") -> "dictu.gc".
func Get(name string) commonlog.Logger {
	return commonlog.GetLogger(Prefix + name)
}
