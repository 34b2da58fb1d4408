package source

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding/unicode"

	"github.com/sambeau/hilfe/pkg/hilfe/errors"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadPlain(t *testing.T) {
	path := writeFile(t, "a.hil", []byte("int x = 1\nprintln(x)"))

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Text != "int x = 1\nprintln(x)\n" {
		t.Errorf("Text = %q", s.Text)
	}
	if s.Path != path {
		t.Errorf("Path = %q", s.Path)
	}
}

func TestLoadGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte("println(\"zipped\")\n")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	path := writeFile(t, "a.hil.gz", buf.Bytes())

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Text != "println(\"zipped\")\n" {
		t.Errorf("Text = %q", s.Text)
	}
}

func TestLoadBrokenGzip(t *testing.T) {
	path := writeFile(t, "a.hil.gz", []byte("not gzip"))

	_, err := Load(path)
	if !errors.HasCode(err, "IO-0001") {
		t.Errorf("error = %v, want IO-0001", err)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.hil"))
	if !errors.HasCode(err, "IO-0001") {
		t.Errorf("error = %v, want IO-0001", err)
	}
}

func TestDecode(t *testing.T) {
	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte("int x = 1\n"))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"utf-8", []byte("string s = \"ü\"\n"), "string s = \"ü\"\n"},
		{"utf-8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "x = 1\n"...), "x = 1\n"},
		{"utf-16 bom", utf16, "int x = 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Decode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFromMarkdown(t *testing.T) {
	doc := "# Title\n" +
		"\n" +
		"Some text.\n" +
		"\n" +
		"```hilfe\n" +
		"int x = 1\n" +
		"println(x)\n" +
		"```\n" +
		"\n" +
		"```go\n" +
		"ignored()\n" +
		"```\n" +
		"\n" +
		"```hil\n" +
		"x = 2\n" +
		"```\n"

	want := "\n\n\n\n\nint x = 1\nprintln(x)\n" +
		"\n\n\n\n\n\n\nx = 2\n"
	if got := FromMarkdown([]byte(doc)); got != want {
		t.Errorf("FromMarkdown() = %q, want %q", got, want)
	}
}

func TestLoadMarkdown(t *testing.T) {
	path := writeFile(t, "notes.md", []byte("Intro\n\n```hilfe\nprintln(1)\n```\n"))

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Text != "\n\n\nprintln(1)\n" {
		t.Errorf("Text = %q", s.Text)
	}
}

func TestEnsureFinalNewline(t *testing.T) {
	tests := map[string]string{
		"":       "",
		"x":      "x\n",
		"x\n":    "x\n",
		"x\r":    "x\r",
		"a\nb\n": "a\nb\n",
	}
	for in, want := range tests {
		if got := EnsureFinalNewline(in); got != want {
			t.Errorf("EnsureFinalNewline(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFromString(t *testing.T) {
	s := FromString("<inline>", "println(1)")
	if s.Text != "println(1)\n" || s.Path != "<inline>" {
		t.Errorf("FromString() = %+v", s)
	}
}
