// Package ui renders console messages and the --print view of a profile.
package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
)

// Printer writes status messages to a terminal.
type Printer struct {
	w io.Writer
}

// New returns a Printer writing to w, or to color.Output when w is nil.
func New(w io.Writer) *Printer {
	if w == nil {
		w = color.Output
	}
	return &Printer{w: w}
}

// Success prints a success message.
func (p *Printer) Success(format string, args ...interface{}) {
	_, _ = successColor.Fprintf(p.w, "✓ %s\n", fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (p *Printer) Error(format string, args ...interface{}) {
	_, _ = errorColor.Fprintf(p.w, "✗ %s\n", fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (p *Printer) Warning(format string, args ...interface{}) {
	_, _ = warningColor.Fprintf(p.w, "⚠ %s\n", fmt.Sprintf(format, args...))
}

// Info prints an informational message.
func (p *Printer) Info(format string, args ...interface{}) {
	_, _ = infoColor.Fprintf(p.w, "ℹ %s\n", fmt.Sprintf(format, args...))
}

// Print writes s followed by a newline.
func (p *Printer) Print(s string) {
	_, _ = fmt.Fprintln(p.w, s)
}
