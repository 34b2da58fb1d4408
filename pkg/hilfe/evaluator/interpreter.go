// Package evaluator runs parsed HILFE statements.
//
// The Interpreter owns a stack of lexical scopes with the global scope at the
// bottom. Statements drive themselves through one of two contracts:
// Executable for statements that run once and Looping for statements that
// repeat a body while a condition holds.
package evaluator

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/emirpasic/gods/stacks/arraystack"

	"github.com/sambeau/hilfe/pkg/hilfe/errors"
)

// Statement is anything the parser emits. Only statements that also implement
// Executable or Looping can be interpreted.
type Statement interface {
	String() string
}

// Executable statements run once.
type Executable interface {
	Statement
	Execute(ctx context.Context, in *Interpreter) error
}

// Looping statements follow the initialize, check, body, finalize protocol.
// ShouldLoop is evaluated again before every iteration.
type Looping interface {
	Statement
	InitializeLoop(ctx context.Context, in *Interpreter) error
	ShouldLoop(ctx context.Context, in *Interpreter) (bool, error)
	ExecuteLoopBody(ctx context.Context, in *Interpreter) error
	FinalizeLoop(ctx context.Context, in *Interpreter) error
}

// Expression nodes produce exactly one Result.
type Expression interface {
	Evaluate(ctx context.Context, in *Interpreter) (Result, error)
	String() string
}

// StatementSource yields statements one at a time and returns io.EOF when
// there are no more.
type StatementSource interface {
	Next(ctx context.Context) (Statement, error)
}

// Control flow signals. They travel up the call chain as errors until the
// enclosing loop, or the top of Interpret for ErrExit, handles them.
var (
	ErrBreak    = stderrors.New("break outside of a loop")
	ErrContinue = stderrors.New("continue outside of a loop")
	ErrExit     = stderrors.New("exit")
)

// Interpreter executes statements against a stack of scopes.
type Interpreter struct {
	Stdout   io.Writer // script output; nil discards
	Stderr   io.Writer // diagnostics; nil discards
	Stdin    io.Reader // read by readline; nil reads nothing
	DebugOut io.Writer // receives each statement before it runs; nil disables tracing

	// StrictTypes makes declarations and reassignments check value kinds.
	StrictTypes bool

	// ExitCode and Exited are set by the exit built-in.
	ExitCode int
	Exited   bool

	scopes  *arraystack.Stack
	global  *Scope
	natives map[string]*NativeFunction
	stdin   *bufio.Reader
}

// New creates an interpreter with an empty global scope.
func New() *Interpreter {
	in := &Interpreter{
		scopes:  arraystack.New(),
		global:  NewScope(nil),
		natives: getNatives(),
	}
	in.scopes.Push(in.global)
	return in
}

// GlobalScope returns the bottom of the scope stack.
func (in *Interpreter) GlobalScope() *Scope { return in.global }

// CurrentScope returns the innermost scope.
func (in *Interpreter) CurrentScope() *Scope {
	top, _ := in.scopes.Peek()
	return top.(*Scope)
}

// Depth returns the number of scopes on the stack, including the global one.
func (in *Interpreter) Depth() int { return in.scopes.Size() }

// PushScope creates a child of the current scope and makes it current.
func (in *Interpreter) PushScope() *Scope {
	s := NewScope(in.CurrentScope())
	in.pushScope(s)
	return s
}

func (in *Interpreter) pushScope(s *Scope) {
	in.scopes.Push(s)
}

// PopScope discards the current scope. The global scope is never popped.
func (in *Interpreter) PopScope() {
	if in.scopes.Size() > 1 {
		in.scopes.Pop()
	}
}

// Native returns the built-in with the given name.
func (in *Interpreter) Native(name string) (*NativeFunction, bool) {
	n, ok := in.natives[name]
	return n, ok
}

// Interpret runs every statement from src in order. It stops at the first
// error; a call to exit ends the run without an error.
func (in *Interpreter) Interpret(ctx context.Context, src StatementSource) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		stmt, err := src.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if err := in.Execute(ctx, stmt); err != nil {
			if stderrors.Is(err, ErrExit) {
				return nil
			}
			return err
		}
	}
}

// Execute runs a single statement, using the looping protocol when the
// statement supports it.
func (in *Interpreter) Execute(ctx context.Context, stmt Statement) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if in.DebugOut != nil {
		fmt.Fprintln(in.DebugOut, stmt.String())
	}

	switch s := stmt.(type) {
	case Looping:
		return in.loop(ctx, s)
	case Executable:
		return s.Execute(ctx, in)
	default:
		return errors.New("INTERNAL-0001", map[string]any{"Statement": stmt.String()})
	}
}

// ExecuteAll runs statements in order and stops at the first error.
func (in *Interpreter) ExecuteAll(ctx context.Context, stmts []Statement) error {
	for _, stmt := range stmts {
		if err := in.Execute(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interpreter) loop(ctx context.Context, l Looping) error {
	if err := l.InitializeLoop(ctx, in); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			l.FinalizeLoop(ctx, in)
			return err
		}

		ok, err := l.ShouldLoop(ctx, in)
		if err != nil {
			l.FinalizeLoop(ctx, in)
			return err
		}
		if !ok {
			break
		}

		err = l.ExecuteLoopBody(ctx, in)
		if stderrors.Is(err, ErrBreak) {
			break
		}
		if err != nil && !stderrors.Is(err, ErrContinue) {
			l.FinalizeLoop(ctx, in)
			return err
		}
	}

	return l.FinalizeLoop(ctx, in)
}

// Resolve looks name up in the scope stack, then among the built-ins.
func (in *Interpreter) Resolve(name string) (Result, error) {
	if v, ok := in.CurrentScope().Lookup(name); ok {
		return v.Value, nil
	}
	if n, ok := in.natives[name]; ok {
		return NewFunction(n), nil
	}
	return Void, errors.NewUndefinedIdentifier(name, 0, 0, in.visibleNames())
}

func (in *Interpreter) visibleNames() []string {
	names := in.CurrentScope().VisibleNames()
	for name := range in.natives {
		names = append(names, name)
	}
	return names
}

// Declare binds a new variable in the current scope.
func (in *Interpreter) Declare(name, typeName string, value Result) error {
	if value.IsVoid() {
		return errors.New("TYPE-0002", map[string]any{"Name": name})
	}

	v := NewTypedVariable(name, typeName, value)
	if in.StrictTypes {
		if err := v.CheckDeclared(); err != nil {
			return err
		}
	}
	in.CurrentScope().Declare(v)
	return nil
}

// Assign updates the innermost existing binding of name.
func (in *Interpreter) Assign(name string, value Result) error {
	if value.IsVoid() {
		return errors.New("TYPE-0002", map[string]any{"Name": name})
	}

	v, ok := in.CurrentScope().Lookup(name)
	if !ok {
		return errors.NewUndefinedIdentifier(name, 0, 0, in.CurrentScope().VisibleNames())
	}
	if in.StrictTypes {
		return v.AssignChecked(value)
	}
	v.Assign(value)
	return nil
}

// Exit records the exit code and returns ErrExit.
func (in *Interpreter) Exit(code int) error {
	in.ExitCode = code
	in.Exited = true
	return ErrExit
}

func (in *Interpreter) stdout() io.Writer {
	if in.Stdout == nil {
		return io.Discard
	}
	return in.Stdout
}

// readLine reads one line from Stdin without its line ending.
func (in *Interpreter) readLine() (string, bool, error) {
	if in.Stdin == nil {
		return "", false, nil
	}
	if in.stdin == nil {
		in.stdin = bufio.NewReader(in.Stdin)
	}

	line, err := in.stdin.ReadString('\n')
	if err == io.EOF {
		if line == "" {
			return "", false, nil
		}
		err = nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), true, nil
}
