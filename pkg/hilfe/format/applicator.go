package format

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/sambeau/hilfe/pkg/hilfe/errors"
	"github.com/sambeau/hilfe/pkg/hilfe/source"
)

// ApplicatorResult counts fixes. Results add up across files.
type ApplicatorResult struct {
	Applied int           // fixes that changed a file
	Failed  int           // fixers that returned an error
	Elapsed time.Duration // time spent fixing
	Files   []string      // files with at least one fix
}

// Add returns the sum of r and o.
func (r ApplicatorResult) Add(o ApplicatorResult) ApplicatorResult {
	return ApplicatorResult{
		Applied: r.Applied + o.Applied,
		Failed:  r.Failed + o.Failed,
		Elapsed: r.Elapsed + o.Elapsed,
		Files:   append(append([]string{}, r.Files...), o.Files...),
	}
}

// Event describes one fixer running on one file.
type Event struct {
	Fixer string
	Path  string
}

// Hooks are optional callbacks invoked while fixing.
type Hooks struct {
	BeforeFixerRun func(Event)
	AfterApplyFix  func(Event)
	FixerFailed    func(Event, error)
}

func (h Hooks) before(e Event) {
	if h.BeforeFixerRun != nil {
		h.BeforeFixerRun(e)
	}
}

func (h Hooks) after(e Event) {
	if h.AfterApplyFix != nil {
		h.AfterApplyFix(e)
	}
}

func (h Hooks) failed(e Event, err error) {
	if h.FixerFailed != nil {
		h.FixerFailed(e, err)
	}
}

// Applicator runs a FixerSet over files.
type Applicator interface {
	ApplyFile(ctx context.Context, set FixerSet, path string) (ApplicatorResult, error)
	ApplyDir(ctx context.Context, set FixerSet, dir string, extensions []string) (ApplicatorResult, error)
}

// DefaultApplicator writes fixed content back to disk.
type DefaultApplicator struct {
	Hooks
}

func (a *DefaultApplicator) ApplyFile(ctx context.Context, set FixerSet, path string) (ApplicatorResult, error) {
	return applyFile(ctx, a.Hooks, set, path, func(path string, before, after []byte) error {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		return os.WriteFile(path, after, info.Mode().Perm())
	})
}

func (a *DefaultApplicator) ApplyDir(ctx context.Context, set FixerSet, dir string, extensions []string) (ApplicatorResult, error) {
	return applyDir(ctx, a, set, dir, extensions)
}

// DryRunApplicator reports what would change without touching files. When
// Diff is set a line diff of every changed file is written to it.
type DryRunApplicator struct {
	Hooks
	Diff io.Writer
}

func (a *DryRunApplicator) ApplyFile(ctx context.Context, set FixerSet, path string) (ApplicatorResult, error) {
	return applyFile(ctx, a.Hooks, set, path, func(path string, before, after []byte) error {
		if a.Diff == nil {
			return nil
		}
		old, err := source.Decode(before)
		if err != nil {
			old = string(before)
		}
		_, err = io.WriteString(a.Diff, LineDiff(path, old, string(after)))
		return err
	})
}

func (a *DryRunApplicator) ApplyDir(ctx context.Context, set FixerSet, dir string, extensions []string) (ApplicatorResult, error) {
	return applyDir(ctx, a, set, dir, extensions)
}

// applyFile runs every fixer on path, then hands the original and final
// content to commit if anything changed.
func applyFile(ctx context.Context, hooks Hooks, set FixerSet, path string, commit func(path string, before, after []byte) error) (ApplicatorResult, error) {
	start := time.Now()
	var res ApplicatorResult

	original, err := os.ReadFile(path)
	if err != nil {
		return res, errors.New("IO-0001", map[string]any{"Operation": "read", "Path": path, "GoError": err.Error()})
	}
	current := original

	for _, f := range set.FileFixers {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		ev := Event{Fixer: f.Name(), Path: path}
		hooks.before(ev)
		r, err := f.Fix(ctx, path)
		if err != nil {
			res.Failed++
			hooks.failed(ev, err)
			continue
		}
		if r.Changed {
			current = r.Fixed
			res.Applied++
			hooks.after(ev)
		}
	}

	text := string(current)
	for _, f := range set.StringFixers {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		ev := Event{Fixer: f.Name(), Path: path}
		hooks.before(ev)
		r, err := f.Fix(ctx, text)
		if err != nil {
			res.Failed++
			hooks.failed(ev, err)
			continue
		}
		if r.Changed {
			text = r.Fixed
			res.Applied++
			hooks.after(ev)
		}
	}

	if res.Applied > 0 {
		if err := commit(path, original, []byte(text)); err != nil {
			return res, errors.New("IO-0001", map[string]any{"Operation": "write", "Path": path, "GoError": err.Error()})
		}
		res.Files = []string{path}
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

func applyDir(ctx context.Context, a Applicator, set FixerSet, dir string, extensions []string) (ApplicatorResult, error) {
	files, err := Files(dir, extensions)
	if err != nil {
		return ApplicatorResult{}, err
	}

	var total ApplicatorResult
	for _, path := range files {
		res, err := a.ApplyFile(ctx, set, path)
		total = total.Add(res)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// LineDiff renders a line-oriented diff of before and after. Whitespace at
// the end of changed lines is made visible.
func LineDiff(path, before, after string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s\n+++ %s (fixed)\n", path, path)
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			if prefix == " " {
				sb.WriteString(prefix + line)
			} else {
				sb.WriteString(prefix + visible(line) + "\n")
			}
		}
	}
	if !strings.HasSuffix(sb.String(), "\n") {
		sb.WriteString("\n")
	}
	return sb.String()
}

// visible shows trailing whitespace and carriage returns, and reports a
// missing final newline.
func visible(line string) string {
	newline := strings.HasSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\n")

	cr := strings.HasSuffix(line, "\r")
	line = strings.TrimSuffix(line, "\r")

	body := strings.TrimRight(line, " \t")
	tail := strings.NewReplacer(" ", "·", "\t", "→").Replace(line[len(body):])

	out := body + tail
	if cr {
		out += "␍"
	}
	if !newline {
		out += " [no newline]"
	}
	return out
}
