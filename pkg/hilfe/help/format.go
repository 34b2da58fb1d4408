package help

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatText formats a TopicResult for terminal output. Descriptions are
// wrapped to width columns; a width of zero or less means 80.
func FormatText(result *TopicResult, width int) string {
	if width <= 0 {
		width = 80
	}

	var sb strings.Builder

	switch result.Kind {
	case "type":
		formatTypeText(&sb, result, width)
	case "builtin":
		formatBuiltinText(&sb, result, width)
	case "keyword":
		formatKeywordText(&sb, result.Keywords[0], width)
	case "builtin-list":
		formatBuiltinListText(&sb, result, width)
	case "type-list":
		formatTypeListText(&sb, result)
	case "keyword-list":
		sb.WriteString("Keywords\n")
		sb.WriteString("========\n")
		for _, kw := range result.Keywords {
			sb.WriteString("\n")
			formatKeywordText(&sb, kw, width)
		}
	case "operator-list":
		formatOperatorListText(&sb, result)
	default:
		fmt.Fprintf(&sb, "Unknown result kind: %s\n", result.Kind)
	}

	return sb.String()
}

// FormatJSON formats a TopicResult as JSON
func FormatJSON(result *TopicResult) ([]byte, error) {
	return json.MarshalIndent(result, "", "  ")
}

func formatTypeText(sb *strings.Builder, result *TopicResult, width int) {
	fmt.Fprintf(sb, "Type: %s\n", result.Name)
	if len(result.Aliases) > 0 {
		fmt.Fprintf(sb, "Same as: %s\n", strings.Join(result.Aliases, ", "))
	}
	if result.Description != "" {
		fmt.Fprintf(sb, "\n%s\n", wrap(result.Description, width, ""))
	}

	if len(result.Builtins) == 0 {
		sb.WriteString("\n(no builtins take this type)\n")
		return
	}
	sb.WriteString("\nBuiltins:\n")
	writeBuiltinRows(sb, result.Builtins, width)
}

func formatBuiltinText(sb *strings.Builder, result *TopicResult, width int) {
	fmt.Fprintf(sb, "%s(%s)\n\n", result.Name, strings.Join(result.Params, ", "))
	fmt.Fprintf(sb, "%s\n\n", wrap(result.Description, width, ""))
	fmt.Fprintf(sb, "Arity: %s\n", result.Arity)
	fmt.Fprintf(sb, "Category: %s\n", result.Category)
}

func formatKeywordText(sb *strings.Builder, kw Keyword, width int) {
	fmt.Fprintf(sb, "%s\n", kw.Name)
	for _, line := range strings.Split(kw.Usage, "\n") {
		fmt.Fprintf(sb, "    %s\n", line)
	}
	fmt.Fprintf(sb, "  %s\n", wrap(kw.Description, width, "  "))
}

// formatBuiltinListText groups builtins by category. The result is already
// sorted by category.
func formatBuiltinListText(sb *strings.Builder, result *TopicResult, width int) {
	sb.WriteString("Builtin Functions\n")
	sb.WriteString("=================\n")

	for start := 0; start < len(result.Builtins); {
		cat := result.Builtins[start].Category
		end := start
		for end < len(result.Builtins) && result.Builtins[end].Category == cat {
			end++
		}

		if cat == "" {
			cat = "other"
		}
		fmt.Fprintf(sb, "\n%s:\n", strings.ToUpper(cat[:1])+cat[1:])
		writeBuiltinRows(sb, result.Builtins[start:end], width)
		start = end
	}

	sb.WriteString("\nUse 'hilfe describe <name>' for details on a specific builtin.\n")
}

func writeBuiltinRows(sb *strings.Builder, builtins []BuiltinInfo, width int) {
	maxLen := 0
	for _, b := range builtins {
		maxLen = max(maxLen, len(signature(b)))
	}

	for _, b := range builtins {
		display := signature(b)
		padding := strings.Repeat(" ", maxLen-len(display)+2)
		indent := strings.Repeat(" ", maxLen+4)
		fmt.Fprintf(sb, "  %s%s%s\n", display, padding, wrapAfter(b.Description, width, len(indent), indent))
	}
}

func signature(b BuiltinInfo) string {
	return fmt.Sprintf("%s(%s)", b.Name, strings.Join(b.Params, ", "))
}

func formatTypeListText(sb *strings.Builder, result *TopicResult) {
	sb.WriteString("Available Types\n")
	sb.WriteString("===============\n\n")
	fmt.Fprintf(sb, "  %s\n\n", strings.Join(result.TypeNames, ", "))
	sb.WriteString("Use 'hilfe describe <type>' for details on a specific type.\n")
}

func formatOperatorListText(sb *strings.Builder, result *TopicResult) {
	sb.WriteString("Operators\n")
	sb.WriteString("=========\n\n")
	sb.WriteString("Comparison:\n")

	maxLen := 0
	for _, op := range result.Operators {
		maxLen = max(maxLen, len(op.Symbol))
	}
	for _, op := range result.Operators {
		padding := strings.Repeat(" ", maxLen-len(op.Symbol)+2)
		fmt.Fprintf(sb, "  %s%s%s\n", op.Symbol, padding, op.Description)
	}
}

// wrap breaks text into lines of at most width columns. Continuation lines
// start with indent.
func wrap(text string, width int, indent string) string {
	return wrapAfter(text, width, len(indent), indent)
}

// wrapAfter wraps text that starts at column start.
func wrapAfter(text string, width, start int, indent string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	var sb strings.Builder
	col := start
	for i, w := range words {
		if i > 0 {
			if col+1+len(w) > width {
				sb.WriteString("\n" + indent)
				col = len(indent)
			} else {
				sb.WriteString(" ")
				col++
			}
		}
		sb.WriteString(w)
		col += len(w)
	}
	return sb.String()
}
