// Package console writes diagnostics for the hilfe tools with a verbosity
// level and optional ANSI colour.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Verbosity controls which messages a Writer prints.
type Verbosity int

const (
	Quiet Verbosity = iota
	Normal
	Verbose
)

func (v Verbosity) String() string {
	switch v {
	case Quiet:
		return "quiet"
	case Verbose:
		return "verbose"
	default:
		return "normal"
	}
}

// ParseVerbosity converts a config value to a Verbosity.
func ParseVerbosity(s string) (Verbosity, error) {
	switch s {
	case "quiet":
		return Quiet, nil
	case "normal", "":
		return Normal, nil
	case "verbose":
		return Verbose, nil
	}
	return Normal, fmt.Errorf("unknown verbosity %q", s)
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorDim    = "\033[2m"
)

// ColorEnabled decides whether output to out should be coloured. mode is
// "always", "never" or "auto"; auto colours terminals unless NO_COLOR is set.
func ColorEnabled(mode string, out io.Writer, getenv func(string) string) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Writer is a levelled, optionally coloured writer. A nil *Writer discards
// everything.
type Writer struct {
	out       io.Writer
	Verbosity Verbosity
	Color     bool
	prefix    string
}

// New creates a Writer.
func New(out io.Writer, v Verbosity, color bool) *Writer {
	return &Writer{out: out, Verbosity: v, Color: color}
}

// WithPrefix returns a Writer that starts every line with `[prefix] `.
func (w *Writer) WithPrefix(prefix string) *Writer {
	if w == nil {
		return nil
	}
	c := *w
	c.prefix = "[" + prefix + "] "
	return &c
}

// Out returns the underlying writer.
func (w *Writer) Out() io.Writer {
	if w == nil || w.out == nil {
		return io.Discard
	}
	return w.out
}

func (w *Writer) colorize(s, c string) string {
	if !w.Color {
		return s
	}
	return c + s + colorReset
}

func (w *Writer) line(level Verbosity, color, format string, args ...any) {
	if w == nil || w.Verbosity < level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if color != "" {
		msg = w.colorize(msg, color)
	}
	fmt.Fprintln(w.Out(), w.prefix+msg)
}

// Printf prints at normal verbosity.
func (w *Writer) Printf(format string, args ...any) { w.line(Normal, "", format, args...) }

// Verbosef prints only in verbose mode.
func (w *Writer) Verbosef(format string, args ...any) { w.line(Verbose, colorDim, format, args...) }

// Successf prints in green at normal verbosity.
func (w *Writer) Successf(format string, args ...any) { w.line(Normal, colorGreen, format, args...) }

// Warnf prints in yellow at normal verbosity.
func (w *Writer) Warnf(format string, args ...any) { w.line(Normal, colorYellow, format, args...) }

// Errorf prints in red, even in quiet mode.
func (w *Writer) Errorf(format string, args ...any) { w.line(Quiet, colorRed, format, args...) }
