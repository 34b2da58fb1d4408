package console

import (
	"bytes"
	"testing"
)

func TestVerbosityLevels(t *testing.T) {
	tests := []struct {
		verbosity Verbosity
		want      string
	}{
		{Quiet, "error\n"},
		{Normal, "info\nok\nwarn\nerror\n"},
		{Verbose, "info\ndetail\nok\nwarn\nerror\n"},
	}

	for _, tt := range tests {
		t.Run(tt.verbosity.String(), func(t *testing.T) {
			var buf bytes.Buffer
			w := New(&buf, tt.verbosity, false)
			w.Printf("info")
			w.Verbosef("detail")
			w.Successf("ok")
			w.Warnf("warn")
			w.Errorf("error")

			if buf.String() != tt.want {
				t.Errorf("output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestPrefix(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, Normal, false)
	base.WithPrefix("WATCH").Printf("changed %s", "a.hil")
	base.Printf("plain")

	want := "[WATCH] changed a.hil\nplain\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestColor(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, Normal, true)
	w.Errorf("bad")

	if buf.String() != "\033[31mbad\033[0m\n" {
		t.Errorf("output = %q", buf.String())
	}
	buf.Reset()
	New(&buf, Normal, false).Errorf("bad")
	if buf.String() != "bad\n" {
		t.Errorf("colour applied while disabled: %q", buf.String())
	}
}

func TestNilWriterDiscards(t *testing.T) {
	var w *Writer
	w.Printf("nothing")
	w.Errorf("nothing")
	if w.WithPrefix("X") != nil {
		t.Error("WithPrefix on nil should stay nil")
	}
}

func TestColorEnabled(t *testing.T) {
	env := func(vals map[string]string) func(string) string {
		return func(k string) string { return vals[k] }
	}
	var buf bytes.Buffer

	tests := []struct {
		name string
		mode string
		env  map[string]string
		want bool
	}{
		{"always", "always", map[string]string{"NO_COLOR": "1"}, true},
		{"never", "never", nil, false},
		{"auto with NO_COLOR", "auto", map[string]string{"NO_COLOR": "1"}, false},
		{"auto on a buffer", "auto", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ColorEnabled(tt.mode, &buf, env(tt.env)); got != tt.want {
				t.Errorf("ColorEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseVerbosity(t *testing.T) {
	for _, s := range []string{"quiet", "normal", "verbose"} {
		v, err := ParseVerbosity(s)
		if err != nil || v.String() != s {
			t.Errorf("ParseVerbosity(%q) = %v, %v", s, v, err)
		}
	}
	if _, err := ParseVerbosity("loud"); err == nil {
		t.Error("expected an error for an unknown verbosity")
	}
}
