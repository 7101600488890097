package resultstore

import (
	"io"
	"log"
	"os"
)

// Busy retries go to ops, which defaults to stderr since a run that keeps
// hitting them is losing throughput. Opening the store and schema migration
// steps go to diag.
var (
	opsLogger  = newLogger("[resultstore] ", os.Stderr)
	diagLogger *log.Logger
)

// SetLogWriters sets the store's ops and diag writers. The store writes once
// per frame at most, so it has no trace stream and ignores the third writer.
func SetLogWriters(ops, diag, _ io.Writer) {
	opsLogger = newLogger("[resultstore] ", ops)
	diagLogger = newLogger("[resultstore] ", diag)
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
