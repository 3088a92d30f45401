// Package logging provides verbosity-gated diagnostics for kometa-resolve.
// Warnings are always printed to stderr; Info and Debug messages only
// appear when the corresponding verbosity level is enabled via -v / -vv.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Verbosity levels. Warn messages are unconditional.
const (
	LevelQuiet = 0
	LevelInfo  = 1
	LevelDebug = 2
)

var (
	mu     sync.RWMutex
	level  int
	output io.Writer = os.Stderr
)

// SetLevel sets the verbosity level (0 = warnings only).
func SetLevel(l int) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// Level returns the current verbosity level.
func Level() int {
	mu.RLock()
	defer mu.RUnlock()
	return level
}

// SetOutput sets the destination for log output.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Warn prints a warning message unconditionally.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	fmt.Fprintf(output, "[WARN] "+format+"\n", args...)
}

// Info prints an informational message at -v and above.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if level >= LevelInfo {
		fmt.Fprintf(output, "[INFO] "+format+"\n", args...)
	}
}

// Debug prints a debug message at -vv.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if level >= LevelDebug {
		fmt.Fprintf(output, "[DEBUG] "+format+"\n", args...)
	}
}
