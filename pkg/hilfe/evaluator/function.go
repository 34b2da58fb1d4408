package evaluator

import (
	"context"
	"strings"

	"github.com/sambeau/hilfe/pkg/hilfe/errors"
)

// Param is one declared parameter of a function.
type Param struct {
	Type string // declared type name, or "any" for natives that accept anything
	Name string
}

// Function is a callable value: a native built-in or a user-declared function.
type Function interface {
	Name() string
	Params() []Param
	// Call checks the arguments against the signature and invokes the body.
	Call(ctx context.Context, in *Interpreter, args []Result) (Result, error)
}

// FunctionSignature renders f as `function name(type a, type b)`.
func FunctionSignature(f Function) string {
	if f == nil {
		return "function <nil>"
	}
	params := f.Params()
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.Type + " " + p.Name
	}
	sig := "function " + f.Name() + "(" + strings.Join(parts, ", ")
	if n, ok := f.(*NativeFunction); ok && n.Variadic {
		sig += "..."
	}
	return sig + ")"
}

// NativeParam is a parameter of a built-in. An empty Accepts list means any
// kind except void.
type NativeParam struct {
	Name    string
	Accepts []ValueType
}

func (p NativeParam) typeName() string {
	if len(p.Accepts) == 0 {
		return "any"
	}
	names := make([]string, len(p.Accepts))
	for i, vt := range p.Accepts {
		names[i] = string(vt)
	}
	return strings.Join(names, "|")
}

func (p NativeParam) accepts(r Result) bool {
	if r.IsVoid() {
		return false
	}
	if len(p.Accepts) == 0 {
		return true
	}
	for _, vt := range p.Accepts {
		if r.Kind() == vt {
			return true
		}
	}
	return false
}

// NativeFunction is a built-in implemented in Go. When Variadic is set the
// last parameter may repeat any number of times, including zero.
type NativeFunction struct {
	name        string
	Parameters  []NativeParam
	Variadic    bool
	Description string
	Category    string
	Fn          func(ctx context.Context, in *Interpreter, args []Result) (Result, error)
}

func (n *NativeFunction) Name() string { return n.name }

func (n *NativeFunction) Params() []Param {
	params := make([]Param, len(n.Parameters))
	for i, p := range n.Parameters {
		params[i] = Param{Type: p.typeName(), Name: p.Name}
	}
	return params
}

func (n *NativeFunction) Call(ctx context.Context, in *Interpreter, args []Result) (Result, error) {
	if err := n.checkArgs(args); err != nil {
		return Void, err
	}
	return n.Fn(ctx, in, args)
}

func (n *NativeFunction) checkArgs(args []Result) error {
	want := len(n.Parameters)
	if n.Variadic {
		least := want - 1
		if len(args) < least {
			return errors.New("ARITY-0002", map[string]any{
				"Function": n.name, "Want": least, "Got": len(args),
			})
		}
	} else if len(args) != want {
		return errors.New("ARITY-0001", map[string]any{
			"Function": n.name, "Want": want, "Got": len(args),
		})
	}

	for i, arg := range args {
		p := n.Parameters[min(i, want-1)]
		if !p.accepts(arg) {
			return errors.New("TYPE-0003", map[string]any{
				"Param":    p.Name,
				"Function": n.name,
				"Expected": p.typeName(),
				"Got":      string(arg.Kind()),
			})
		}
	}
	return nil
}

// UserFunction is a function declared in a script. Its body runs in a fresh
// scope whose parent is the scope the function was declared in.
type UserFunction struct {
	name    string
	params  []Param
	body    []Statement
	closure *Scope
}

// NewUserFunction creates a function value closing over scope.
func NewUserFunction(name string, params []Param, body []Statement, closure *Scope) *UserFunction {
	return &UserFunction{name: name, params: params, body: body, closure: closure}
}

func (f *UserFunction) Name() string    { return f.name }
func (f *UserFunction) Params() []Param { return f.params }

// Call binds the arguments as variables in a new scope and runs the body.
// User functions do not return a value, so the result is always Void.
func (f *UserFunction) Call(ctx context.Context, in *Interpreter, args []Result) (Result, error) {
	if len(args) != len(f.params) {
		return Void, errors.New("ARITY-0001", map[string]any{
			"Function": f.name, "Want": len(f.params), "Got": len(args),
		})
	}

	scope := NewScope(f.closure)
	for i, p := range f.params {
		if kind, ok := KindOf(p.Type); ok && args[i].Kind() != kind {
			return Void, errors.New("TYPE-0003", map[string]any{
				"Param":    p.Name,
				"Function": f.name,
				"Expected": p.Type,
				"Got":      string(args[i].Kind()),
			})
		}
		scope.Declare(NewTypedVariable(p.Name, p.Type, args[i]))
	}

	in.pushScope(scope)
	defer in.PopScope()

	if err := in.ExecuteAll(ctx, f.body); err != nil {
		return Void, err
	}
	return Void, nil
}
