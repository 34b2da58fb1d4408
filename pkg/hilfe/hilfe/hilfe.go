// Package hilfe provides the public API for running HILFE scripts.
//
// Run wires a tokenizer, the parser and an interpreter together over one
// script. Tokens and statements are produced lazily, so a script starts
// running before the whole file has been parsed and a syntax error late in
// a file is reported only after the statements before it have run.
package hilfe

import (
	"context"
	stderrors "errors"
	"io"
	"strings"

	"github.com/sambeau/hilfe/pkg/hilfe/errors"
	"github.com/sambeau/hilfe/pkg/hilfe/evaluator"
	"github.com/sambeau/hilfe/pkg/hilfe/lexer"
	"github.com/sambeau/hilfe/pkg/hilfe/parser"
	"github.com/sambeau/hilfe/pkg/hilfe/source"
)

// Options configures a run. Nil writers discard.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	// Trace writes every statement to Stderr before it runs.
	Trace bool

	// StrictTypes checks declared types on declaration and assignment.
	StrictTypes bool
}

// Outcome is the result of running a script.
type Outcome struct {
	ExitCode int
	Err      error
}

// Failed reports whether the script stopped because of an error.
func (o Outcome) Failed() bool { return o.Err != nil }

// NewInterpreter returns an interpreter configured from opts.
func NewInterpreter(opts Options) *evaluator.Interpreter {
	in := evaluator.New()
	in.Stdout = opts.Stdout
	in.Stderr = opts.Stderr
	in.Stdin = opts.Stdin
	in.StrictTypes = opts.StrictTypes
	if opts.Trace {
		in.DebugOut = opts.Stderr
	}
	return in
}

// Run executes script. A script that calls exit finishes with that code and
// no error. Any other failure yields exit code 1 unless the script already
// set a non-zero code.
func Run(ctx context.Context, script *source.Script, opts Options) Outcome {
	return RunWith(ctx, NewInterpreter(opts), script)
}

// RunWith executes script on an existing interpreter, keeping whatever its
// global scope already holds.
func RunWith(ctx context.Context, in *evaluator.Interpreter, script *source.Script) Outcome {
	err := in.Interpret(ctx, parser.New(lexer.New(strings.NewReader(script.Text))))
	if err != nil {
		err = withFile(err, script.Path)
	}
	return Outcome{ExitCode: exitCode(in.ExitCode, err), Err: err}
}

// Check parses script without running it.
func Check(ctx context.Context, script *source.Script) error {
	p := parser.New(lexer.New(strings.NewReader(script.Text)))
	for {
		_, err := p.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return withFile(err, script.Path)
		}
	}
}

// Eval runs a snippet of code, adding the final newline the grammar needs.
func Eval(ctx context.Context, code string, opts Options) Outcome {
	return Run(ctx, source.FromString("<eval>", code), opts)
}

func exitCode(code int, err error) int {
	if err == nil || code != 0 {
		return code
	}
	return 1
}

// withFile attaches path to structured errors that do not name a file yet.
func withFile(err error, path string) error {
	if path == "" {
		return err
	}
	var he *errors.HilfeError
	if stderrors.As(err, &he) && he.File == "" {
		return he.WithFile(path)
	}
	return err
}
