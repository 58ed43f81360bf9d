package picosock

import (
	"log"
	"os"
)

// logger is the package-level destination for the package's notices:
// device-notifier setup failures, port-policy reload and watch errors, and
// the ignored WithSplitOutput setting. Socket lifecycle events
// (listen/accept/close/abort) are not logged. It follows the plain
// stdlib log.Logger idiom the rest of this codebase's cmd/ entrypoints use
// rather than a structured logging package.
var logger = log.New(os.Stderr, "picosock: ", log.LstdFlags)

// SetLogger redirects picosock's internal logging. Passing nil restores the
// default stderr logger.
func SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(os.Stderr, "picosock: ", log.LstdFlags)
	}
	logger = l
}

// LogDefault returns the package's current logger, for cmd/ entrypoints
// that want to share it rather than opening a second stderr writer.
func LogDefault() *log.Logger { return logger }
