// Package logging provides the console logger used across dirspace.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Logger is the logging surface the traversal and CLI code depend on.
type Logger interface {
	// Debugf prints diagnostic output when debugging is enabled.
	Debugf(format string, args ...any)
	// Infof prints informational messages.
	Infof(format string, args ...any)
	// Errorf prints error messages.
	Errorf(format string, args ...any)
}

// Console writes to an io.Writer, stderr by default.
// Safe for concurrent use.
type Console struct {
	mu    sync.Mutex
	out   io.Writer
	debug bool
}

// NewConsole returns a Console writing to stderr.
func NewConsole(debug bool) *Console {
	return NewConsoleTo(os.Stderr, debug)
}

// NewConsoleTo returns a Console writing to out.
func NewConsoleTo(out io.Writer, debug bool) *Console {
	return &Console{out: out, debug: debug}
}

// Debugf prints with a "[debug]: " prefix if debugging is enabled.
func (c *Console) Debugf(format string, args ...any) {
	if !c.debug {
		return
	}

	c.print("[debug]: ", format, args...)
}

// Infof prints without a prefix.
func (c *Console) Infof(format string, args ...any) {
	c.print("", format, args...)
}

// Errorf prints with an "[error]: " prefix.
func (c *Console) Errorf(format string, args ...any) {
	c.print("[error]: ", format, args...)
}

func (c *Console) print(prefix, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprint(c.out, prefix+msg)
}

// Discard drops everything.
type Discard struct{}

func (Discard) Debugf(string, ...any) {}

func (Discard) Infof(string, ...any) {}

func (Discard) Errorf(string, ...any) {}
