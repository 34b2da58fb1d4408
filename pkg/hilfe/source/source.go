// Package source loads hilfe scripts from disk.
//
// Scripts may be plain text, gzip-compressed (.gz) or embedded in Markdown
// (.md) as fenced code blocks tagged `hilfe`. Text is decoded to UTF-8,
// with byte order marks removed, and always ends with a newline.
package source

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/sambeau/hilfe/pkg/hilfe/errors"
)

// Script is a loaded source file.
type Script struct {
	Path string
	Text string
}

// fenceLanguages are the info strings that mark a Markdown block as hilfe.
var fenceLanguages = map[string]bool{"hilfe": true, "hil": true}

// Load reads the script at path.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ioError("read", path, err)
	}

	name := path
	if strings.EqualFold(filepath.Ext(name), ".gz") {
		data, err = gunzip(data)
		if err != nil {
			return nil, ioError("decompress", path, err)
		}
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}

	decoded, err := Decode(data)
	if err != nil {
		return nil, ioError("decode", path, err)
	}

	if strings.EqualFold(filepath.Ext(name), ".md") {
		decoded = FromMarkdown([]byte(decoded))
	}

	return &Script{Path: path, Text: EnsureFinalNewline(decoded)}, nil
}

// FromString wraps inline source, as given to `hilfe -e`.
func FromString(name, src string) *Script {
	return &Script{Path: name, Text: EnsureFinalNewline(src)}
}

// Decode converts data to UTF-8. A UTF-8 or UTF-16 byte order mark selects
// the encoding and is dropped; without one the data is read as UTF-8.
func Decode(data []byte) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// EnsureFinalNewline appends "\n" when text is non-empty and does not end
// with a line break.
func EnsureFinalNewline(text string) string {
	if text == "" || strings.HasSuffix(text, "\n") || strings.HasSuffix(text, "\r") {
		return text
	}
	return text + "\n"
}

// FromMarkdown extracts the fenced hilfe blocks of a Markdown document.
// Lines outside the blocks are kept as empty lines so that line numbers in
// errors match the document.
func FromMarkdown(src []byte) string {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var out strings.Builder
	line := 1
	gast.Walk(doc, func(n gast.Node, entering bool) (gast.WalkStatus, error) {
		if !entering {
			return gast.WalkContinue, nil
		}
		block, ok := n.(*gast.FencedCodeBlock)
		if !ok || !fenceLanguages[string(block.Language(src))] {
			return gast.WalkContinue, nil
		}

		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			at := bytes.Count(src[:seg.Start], []byte("\n")) + 1
			for ; line < at; line++ {
				out.WriteByte('\n')
			}
			value := seg.Value(src)
			out.Write(value)
			if !bytes.HasSuffix(value, []byte("\n")) {
				out.WriteByte('\n')
			}
			line++
		}
		return gast.WalkSkipChildren, nil
	})
	return out.String()
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func ioError(op, path string, err error) error {
	return errors.New("IO-0001", map[string]any{
		"Operation": op,
		"Path":      path,
		"GoError":   fmt.Sprint(err),
	})
}
