package bridge

import (
	"io"
	"log"
)

var (
	// graft failures in a target graph
	opsLogger *log.Logger
	// graft wiring and bridge fusion decisions made by Combine
	diagLogger *log.Logger
)

// SetLogWriters matches flow.SetLogWriters so callers can wire both packages
// the same way. Bridges log nothing per signal, so trace is unused.
func SetLogWriters(ops, diag, _ io.Writer) {
	opsLogger = newLogger("[bridge] ", ops)
	diagLogger = newLogger("[bridge] ", diag)
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

func opsf(format string, args ...interface{}) {
	if opsLogger != nil {
		opsLogger.Printf(format, args...)
	}
}

func diagf(format string, args ...interface{}) {
	if diagLogger != nil {
		diagLogger.Printf(format, args...)
	}
}
