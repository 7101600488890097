package flow

import (
	"io"
	"log"
	"os"
)

// Engine logging is split by volume. Ops carries frame failures and dropped
// group state and defaults to stderr. Diag carries graph builds, disposal and
// parameter changes. Trace carries one line per pipe signal and filter call,
// gated further by each filter's verbosity.
var (
	opsLogger   = newLogger("[flow] ", os.Stderr)
	diagLogger  *log.Logger
	traceLogger *log.Logger
)

// SetLogWriters replaces the engine's ops, diag and trace writers. A nil
// writer silences its stream.
func SetLogWriters(ops, diag, trace io.Writer) {
	opsLogger = newLogger("[flow] ", ops)
	diagLogger = newLogger("[flow] ", diag)
	traceLogger = newLogger("[flow] ", trace)
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

// opsf reports a frame that failed or state that was thrown away.
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

// tracef is hot: callers check traceEnabled before formatting arguments.
func tracef(format string, args ...interface{}) {
	if traceLogger != nil {
		traceLogger.Printf(format, args...)
	}
}

func traceEnabled() bool { return traceLogger != nil }
