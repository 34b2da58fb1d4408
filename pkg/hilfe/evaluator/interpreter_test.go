package evaluator

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sambeau/hilfe/pkg/hilfe/errors"
)

// Statement fakes. The real nodes live in the ast package, which depends on
// this one.

type execStmt struct {
	name string
	fn   func(ctx context.Context, in *Interpreter) error
}

func (s execStmt) String() string { return s.name }
func (s execStmt) Execute(ctx context.Context, in *Interpreter) error {
	if s.fn == nil {
		return nil
	}
	return s.fn(ctx, in)
}

type plainStmt string

func (s plainStmt) String() string { return string(s) }

// countdown loops while the named variable is positive, decrementing it and
// then running body.
type countdown struct {
	variable string
	body     []Statement
	log      *[]string
}

func (c countdown) String() string { return "while " + c.variable }

func (c countdown) InitializeLoop(ctx context.Context, in *Interpreter) error {
	*c.log = append(*c.log, "init")
	return nil
}

func (c countdown) ShouldLoop(ctx context.Context, in *Interpreter) (bool, error) {
	v, err := in.Resolve(c.variable)
	if err != nil {
		return false, err
	}
	n, err := v.ExpectNumber()
	*c.log = append(*c.log, "check")
	return n > 0, err
}

func (c countdown) ExecuteLoopBody(ctx context.Context, in *Interpreter) error {
	v, _ := in.Resolve(c.variable)
	n, _ := v.ExpectNumber()
	in.Assign(c.variable, NewNumber(n-1))
	*c.log = append(*c.log, "body")

	in.PushScope()
	defer in.PopScope()
	return in.ExecuteAll(ctx, c.body)
}

func (c countdown) FinalizeLoop(ctx context.Context, in *Interpreter) error {
	*c.log = append(*c.log, "finalize")
	return nil
}

type sliceSource struct {
	stmts []Statement
}

func (s *sliceSource) Next(ctx context.Context) (Statement, error) {
	if len(s.stmts) == 0 {
		return nil, io.EOF
	}
	stmt := s.stmts[0]
	s.stmts = s.stmts[1:]
	return stmt, nil
}

func call(name string, args ...Result) execStmt {
	return execStmt{name: name + "(...)", fn: func(ctx context.Context, in *Interpreter) error {
		fn, err := in.Resolve(name)
		if err != nil {
			return err
		}
		f, err := fn.ExpectFunction()
		if err != nil {
			return err
		}
		_, err = f.Call(ctx, in, args)
		return err
	}}
}

func TestInterpretRunsStatementsInOrder(t *testing.T) {
	var out bytes.Buffer
	in := New()
	in.Stdout = &out

	src := &sliceSource{stmts: []Statement{
		call("println", NewString("one")),
		call("print", NewString("two"), NewNumber(2)),
		call("println"),
	}}

	if err := in.Interpret(context.Background(), src); err != nil {
		t.Fatalf("Interpret() error: %v", err)
	}
	if got := out.String(); got != "one\ntwo 2\n" {
		t.Errorf("output = %q", got)
	}
}

func TestInterpretRejectsNonExecutable(t *testing.T) {
	in := New()
	err := in.Interpret(context.Background(), &sliceSource{stmts: []Statement{plainStmt("}")}})

	he, ok := errors.As(err)
	if !ok || he.Code != "INTERNAL-0001" || he.Class != errors.ClassInternal {
		t.Fatalf("error = %v, want INTERNAL-0001", err)
	}
}

func TestLoopProtocol(t *testing.T) {
	var log []string
	in := New()
	in.Declare("n", "number", NewNumber(2))

	err := in.Execute(context.Background(), countdown{variable: "n", log: &log})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"init", "check", "body", "check", "body", "check", "finalize"}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Errorf("loop phases mismatch (-want +got):\n%s", diff)
	}
}

func TestLoopBreakAndContinue(t *testing.T) {
	var log []string
	var visits int
	in := New()
	in.Declare("n", "number", NewNumber(5))

	body := []Statement{
		execStmt{name: "visit", fn: func(ctx context.Context, in *Interpreter) error {
			visits++
			v, _ := in.Resolve("n")
			n, _ := v.ExpectNumber()
			switch n {
			case 4:
				return ErrContinue
			case 2:
				return ErrBreak
			}
			return nil
		}},
		execStmt{name: "after", fn: func(ctx context.Context, in *Interpreter) error {
			log = append(log, "after")
			return nil
		}},
	}

	var phases []string
	if err := in.Execute(context.Background(), countdown{variable: "n", body: body, log: &phases}); err != nil {
		t.Fatal(err)
	}

	// n=4 continues, n=3 runs fully, n=2 breaks
	if visits != 3 {
		t.Errorf("visits = %d, want 3", visits)
	}
	if len(log) != 1 {
		t.Errorf("statements after continue/break ran %d times, want 1", len(log))
	}
	if phases[len(phases)-1] != "finalize" {
		t.Errorf("loop not finalized: %v", phases)
	}
	if in.Depth() != 1 {
		t.Errorf("scope depth after loop = %d, want 1", in.Depth())
	}
}

func TestExitStopsInterpretation(t *testing.T) {
	var out bytes.Buffer
	in := New()
	in.Stdout = &out

	src := &sliceSource{stmts: []Statement{
		call("println", NewString("before")),
		call("exit", NewNumber(3)),
		call("println", NewString("after")),
	}}

	if err := in.Interpret(context.Background(), src); err != nil {
		t.Fatalf("Interpret() error: %v", err)
	}
	if in.ExitCode != 3 || !in.Exited {
		t.Errorf("ExitCode = %d, Exited = %v", in.ExitCode, in.Exited)
	}
	if out.String() != "before\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestTracingWritesStatementsFirst(t *testing.T) {
	var trace bytes.Buffer
	in := New()
	in.DebugOut = &trace

	var order []string
	stmt := execStmt{name: "int x = 1", fn: func(ctx context.Context, in *Interpreter) error {
		order = append(order, "exec:"+trace.String())
		return nil
	}}

	if err := in.Execute(context.Background(), stmt); err != nil {
		t.Fatal(err)
	}
	if len(order) != 1 || order[0] != "exec:int x = 1\n" {
		t.Errorf("trace was not written before execution: %q", order)
	}
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := New()
	err := in.Interpret(ctx, &sliceSource{stmts: []Statement{call("println")}})
	if err != context.Canceled {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestLoopStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var phases []string

	in := New()
	in.Declare("n", "number", NewNumber(1000))
	body := []Statement{execStmt{name: "cancel", fn: func(ctx context.Context, in *Interpreter) error {
		cancel()
		return nil
	}}}

	err := in.Execute(ctx, countdown{variable: "n", body: body, log: &phases})
	if err != context.Canceled {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if phases[len(phases)-1] != "finalize" {
		t.Errorf("loop not finalized after cancel: %v", phases)
	}
}

func TestUserFunctionCall(t *testing.T) {
	var out bytes.Buffer
	in := New()
	in.Stdout = &out
	in.Declare("greeting", "string", NewString("hello"))

	body := []Statement{execStmt{name: "body", fn: func(ctx context.Context, in *Interpreter) error {
		g, err := in.Resolve("greeting")
		if err != nil {
			return err
		}
		who, err := in.Resolve("who")
		if err != nil {
			return err
		}
		pr, _ := in.Native("println")
		_, err = pr.Call(ctx, in, []Result{g, who})
		return err
	}}}

	fn := NewUserFunction("greet", []Param{{Type: "string", Name: "who"}}, body, in.CurrentScope())

	res, err := fn.Call(context.Background(), in, []Result{NewString("Ada")})
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsVoid() {
		t.Errorf("user function returned %v, want void", res)
	}
	if out.String() != "hello Ada\n" {
		t.Errorf("output = %q", out.String())
	}
	if _, err := in.Resolve("who"); err == nil {
		t.Error("parameter leaked into the caller's scope")
	}
	if in.Depth() != 1 {
		t.Errorf("depth = %d after call", in.Depth())
	}
}

func TestUserFunctionChecksArguments(t *testing.T) {
	in := New()
	fn := NewUserFunction("f", []Param{{Type: "int", Name: "n"}}, nil, in.GlobalScope())

	_, err := fn.Call(context.Background(), in, nil)
	if !errors.HasCode(err, "ARITY-0001") {
		t.Errorf("missing argument error = %v", err)
	}

	_, err = fn.Call(context.Background(), in, []Result{NewString("1")})
	if !errors.HasCode(err, "TYPE-0003") {
		t.Errorf("wrong type error = %v", err)
	}
}

func TestReadline(t *testing.T) {
	in := New()
	in.Stdin = strings.NewReader("first\r\nsecond")
	readline, _ := in.Native("readline")

	var got []Result
	for i := 0; i < 3; i++ {
		r, err := readline.Call(context.Background(), in, nil)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, r)
	}

	want := []Result{NewString("first"), NewString("second"), Null}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("line %d = %v, want %v", i, got[i], want[i])
		}
	}
}
