package hilfe

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/sambeau/hilfe/pkg/hilfe/console"
	"github.com/sambeau/hilfe/pkg/hilfe/errors"
	"github.com/sambeau/hilfe/pkg/hilfe/source"
)

// tabWidth is the number of columns a tab occupies when pointing at a column.
const tabWidth = 8

// Report writes err to out. Structured errors are followed by the offending
// source line with a caret under the column.
func Report(out *console.Writer, script *source.Script, err error) {
	if err == nil {
		return
	}
	if stderrors.Is(err, context.Canceled) {
		out.Warnf("interrupted")
		return
	}

	var he *errors.HilfeError
	if !stderrors.As(err, &he) {
		out.Errorf("Error: %v", err)
		return
	}

	out.Errorf("%s", he.PrettyString())
	if script == nil {
		return
	}
	if ctx := SourceContext(script.Text, he.Line, he.Column); ctx != "" {
		fmt.Fprint(out.Out(), ctx)
	}
}

// SourceContext returns the given line of text, left-trimmed and indented,
// with a caret under column on the next line. It returns "" when line is out
// of range.
func SourceContext(text string, line, column int) string {
	lines := strings.Split(text, "\n")
	if line <= 0 || line > len(lines) {
		return ""
	}

	src := strings.TrimRight(lines[line-1], "\r")
	trimmed := strings.TrimLeft(src, " \t")
	if trimmed == "" {
		return ""
	}
	indent := visualWidth(src[:len(src)-len(trimmed)])

	var sb strings.Builder
	fmt.Fprintf(&sb, "    %s\n", trimmed)
	if column > 0 {
		runes := []rune(src)
		if column-1 < len(runes) {
			runes = runes[:column-1]
		}
		col := max(visualWidth(string(runes))-indent, 0)
		fmt.Fprintf(&sb, "    %s^\n", strings.Repeat(" ", col))
	}
	return sb.String()
}

func visualWidth(s string) int {
	width := 0
	for _, r := range s {
		if r == '\t' {
			width += tabWidth
		} else {
			width++
		}
	}
	return width
}
