package format

import (
	"bytes"
	"context"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// TrailingWhitespaceFixer removes spaces and tabs at the end of each line.
type TrailingWhitespaceFixer struct{}

func (TrailingWhitespaceFixer) Name() string { return "TrailingWhitespaceFixer" }

func (TrailingWhitespaceFixer) Fix(ctx context.Context, input string) (StringFixResult, error) {
	if err := ctx.Err(); err != nil {
		return StringFixResult{}, err
	}

	lines := strings.SplitAfter(input, "\n")
	for i, line := range lines {
		body := strings.TrimRight(line, "\r\n")
		ending := line[len(body):]
		lines[i] = strings.TrimRight(body, " \t") + ending
	}
	return stringResult(input, strings.Join(lines, "")), nil
}

// LineEndingFixer converts CRLF and lone CR line endings to LF.
type LineEndingFixer struct{}

func (LineEndingFixer) Name() string { return "LineEndingFixer" }

func (LineEndingFixer) Fix(ctx context.Context, input string) (StringFixResult, error) {
	if err := ctx.Err(); err != nil {
		return StringFixResult{}, err
	}

	fixed := strings.ReplaceAll(input, "\r\n", "\n")
	fixed = strings.ReplaceAll(fixed, "\r", "\n")
	return stringResult(input, fixed), nil
}

// FinalNewlineFixer makes non-empty text end with exactly one newline.
type FinalNewlineFixer struct{}

func (FinalNewlineFixer) Name() string { return "FinalNewlineFixer" }

func (FinalNewlineFixer) Fix(ctx context.Context, input string) (StringFixResult, error) {
	if err := ctx.Err(); err != nil {
		return StringFixResult{}, err
	}

	trimmed := strings.TrimRight(input, "\n")
	if trimmed == "" {
		return stringResult(input, ""), nil
	}
	return stringResult(input, trimmed+"\n"), nil
}

// FileEncodingFixer rewrites files that start with a byte order mark as
// UTF-8 without one. Files without a BOM are assumed to be UTF-8 already.
type FileEncodingFixer struct{}

func (FileEncodingFixer) Name() string { return "FileEncodingFixer" }

var boms = [][]byte{
	{0xEF, 0xBB, 0xBF}, // UTF-8
	{0xFE, 0xFF},       // UTF-16 BE
	{0xFF, 0xFE},       // UTF-16 LE
}

func (FileEncodingFixer) Fix(ctx context.Context, path string) (FileFixResult, error) {
	if err := ctx.Err(); err != nil {
		return FileFixResult{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return FileFixResult{}, err
	}
	if !hasBOM(data) {
		return FileFixResult{}, nil
	}

	fixed, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return FileFixResult{}, err
	}
	return FileFixResult{Changed: true, Fixed: fixed}, nil
}

func hasBOM(data []byte) bool {
	for _, bom := range boms {
		if bytes.HasPrefix(data, bom) {
			return true
		}
	}
	return false
}
