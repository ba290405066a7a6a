// Package log provides a single process-wide zap logger for kvidxkit's
// command-line tools, following the package-level logger singleton pattern
// (init once, call through package functions from anywhere).
package log

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu sync.Mutex
	l  *zap.Logger = zap.NewNop()
)

// Init installs the process logger. verbose selects a development config
// (human-readable, debug level); otherwise a production JSON config at
// info level is used.
func Init(verbose bool) {
	var logger *zap.Logger
	var err error
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		logger, err = cfg.Build()
	}
	if err != nil {
		logger = zap.NewNop()
	}
	mu.Lock()
	l = logger
	mu.Unlock()
}

// L returns the current process logger. Safe to call before Init; returns
// a no-op logger until Init is called.
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return l
}

// Sync flushes any buffered log entries; callers should defer it at
// process exit.
func Sync() {
	_ = L().Sync()
}
