package ast_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/sambeau/hilfe/pkg/hilfe/ast"
	"github.com/sambeau/hilfe/pkg/hilfe/errors"
	"github.com/sambeau/hilfe/pkg/hilfe/evaluator"
	"github.com/sambeau/hilfe/pkg/hilfe/parser"
)

// run parses and executes input, returning what the script printed.
func run(t *testing.T, input string, strict bool) (string, *evaluator.Interpreter, error) {
	t.Helper()
	var out bytes.Buffer
	in := evaluator.New()
	in.Stdout = &out
	in.StrictTypes = strict
	err := in.Interpret(context.Background(), parser.NewString(input))
	return out.String(), in, err
}

func TestPrograms(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "declaration and print",
			input: "int x = 5\nprintln(x)\n",
			want:  "5\n",
		},
		{
			name:  "string literal",
			input: "string s = 'hello world'\nprintln(s)\n",
			want:  "hello world\n",
		},
		{
			name:  "declaration without value is null",
			input: "string s\nprintln(s)\n",
			want:  "null\n",
		},
		{
			name:  "assignment",
			input: "number n = 1\nn = add(n, 41)\nprintln(n)\n",
			want:  "42\n",
		},
		{
			name:  "comparison value",
			input: "bool b = 3 >= 2\nprintln(b)\n",
			want:  "true\n",
		},
		{
			name:  "if takes consequence",
			input: "if (1 < 2) {\n\tprintln(\"yes\")\n} else {\n\tprintln(\"no\")\n}\n",
			want:  "yes\n",
		},
		{
			name:  "if takes alternative",
			input: "if (\"b\" < \"a\") {\n\tprintln(\"yes\")\n} else {\n\tprintln(\"no\")\n}\n",
			want:  "no\n",
		},
		{
			name: "while with counter",
			input: `int i = 0
while (i < 3) {
	println(i)
	i = add(i, 1)
}
`,
			want: "0\n1\n2\n",
		},
		{
			name: "break and continue",
			input: `int i = 0
while (true) {
	i = add(i, 1)
	number r = mod(i, 2)
	if (r == 1) {
		continue
	}
	if (i > 6) {
		break
	}
	println(i)
}
`,
			want: "2\n4\n6\n",
		},
		{
			name: "break leaves only the inner loop",
			input: `int i = 0
while (i < 2) {
	while (true) {
		println("inner", i)
		break
	}
	i = add(i, 1)
}
`,
			want: "inner 0\ninner 1\n",
		},
		{
			name: "function with parameters",
			input: `function greet = (string who, number times) {
	int i = 0
	while (i < times) {
		println("hi", who)
		i = add(i, 1)
	}
}
greet("ada", 2)
`,
			want: "hi ada\nhi ada\n",
		},
		{
			name: "recursive function",
			input: `function countdown = (number n) {
	if (n > 0) {
		println(n)
		number next = sub(n, 1)
		countdown(next)
	}
}
countdown(3)
`,
			want: "3\n2\n1\n",
		},
		{
			name: "function closes over outer variables",
			input: `int total = 0
function bump = (number by) {
	total = add(total, by)
}
bump(2)
bump(3)
println(total)
`,
			want: "5\n",
		},
		{
			name: "block variables shadow and vanish",
			input: `string s = "outer"
if (true) {
	string s = "inner"
	println(s)
}
println(s)
`,
			want: "inner\nouter\n",
		},
		{
			name:  "lists and maps",
			input: "list l = list(1, \"a\", true)\nprintln(l)\nmap m = map()\nm = put(m, \"k\", l)\nnumber n = length(l)\nprintln(m, n)\n",
			want:  "[1, \"a\", true]\n{k: [1, \"a\", true]} 3\n",
		},
		{
			name:  "exit stops the script",
			input: "println(1)\nexit(3)\nprintln(2)\n",
			want:  "1\n",
		},
		{
			name:  "blank lines and indentation",
			input: "\n   \nint x = 1\n\n\tprintln(x)\n",
			want:  "1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := run(t, tt.input, false)
			if err != nil {
				t.Fatalf("run error: %v", err)
			}
			if got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	_, in, err := run(t, "exit(3)\n", false)
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if in.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", in.ExitCode)
	}
}

func TestScopesAreRestored(t *testing.T) {
	input := `int i = 0
function f = (number n) {
	while (n > 0) {
		n = sub(n, 1)
		if (n == 1) {
			break
		}
	}
}
f(3)
`
	_, in, err := run(t, input, false)
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if in.Depth() != 1 {
		t.Errorf("Depth() = %d after run, want 1", in.Depth())
	}
	if _, ok := in.GlobalScope().LookupLocal("n"); ok {
		t.Error("parameter n leaked into the global scope")
	}
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		strict bool
		code   string
		line   int
	}{
		{"undefined variable", "println(nope)\n", false, "UNDEF-0001", 1},
		{"undefined function", "int x = 1\nnope(x)\n", false, "UNDEF-0001", 2},
		{"assign undeclared", "y = 1\n", false, "UNDEF-0001", 1},
		{"condition not bool", "if (1) {\n}\n", false, "TYPE-0001", 1},
		{"while condition not bool", "int i = 0\nwhile (i) {\n}\n", false, "TYPE-0001", 2},
		{"void value", "string s = println()\n", false, "TYPE-0002", 1},
		{"call a number", "int x = 1\nx()\n", false, "TYPE-0006", 2},
		{"ordering mixed kinds", "bool b = 1 < \"a\"\n", false, "OP-0001", 1},
		{"division by zero", "number n = div(1, 0)\n", false, "OP-0002", 1},
		{"native arity", "number n = add(1)\n", false, "ARITY-0001", 1},
		{"native argument type", "number n = add(1, \"2\")\n", false, "TYPE-0003", 1},
		{"user function arity", "function f = (int a) {\n}\nf()\n", false, "ARITY-0001", 3},
		{"user function argument type", "function f = (int a) {\n}\nf(\"x\")\n", false, "TYPE-0003", 3},
		{"index out of range", "list l = list(1)\nnumber n = at(l, 4)\n", false, "INDEX-0001", 2},
		{"strict declaration", "int x = \"five\"\n", true, "TYPE-0004", 1},
		{"strict reassignment", "int x = 5\nx = \"five\"\n", true, "TYPE-0005", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.input, tt.strict)
			if !errors.HasCode(err, tt.code) {
				t.Fatalf("error = %v, want %s", err, tt.code)
			}
			he, _ := errors.As(err)
			if he.Line != tt.line {
				t.Errorf("error line = %d, want %d (%v)", he.Line, tt.line, err)
			}
		})
	}
}

func TestLooseTypesAllowReassignment(t *testing.T) {
	got, _, err := run(t, "int x = \"five\"\nx = true\nprintln(x)\n", false)
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if got != "true\n" {
		t.Errorf("output = %q", got)
	}
}

func TestStrictAllowsNull(t *testing.T) {
	_, _, err := run(t, "string s\ns = \"later\"\nint n\n", true)
	if err != nil {
		t.Errorf("run error: %v", err)
	}
}

func TestUndefinedSuggestsCloseName(t *testing.T) {
	_, _, err := run(t, "int counter = 1\nprintln(countr)\n", false)

	he, ok := errors.As(err)
	if !ok {
		t.Fatalf("error = %v", err)
	}
	if !strings.Contains(strings.Join(he.Hints, " "), "counter") {
		t.Errorf("hints = %v, want a suggestion for counter", he.Hints)
	}
}

func TestTracing(t *testing.T) {
	var trace bytes.Buffer
	in := evaluator.New()
	in.DebugOut = &trace

	src := "int x = 1\nwhile (x < 2) {\n\tx = add(x, 1)\n}\n"
	if err := in.Interpret(context.Background(), parser.NewString(src)); err != nil {
		t.Fatalf("Interpret error: %v", err)
	}

	want := "int x = 1\nwhile (x < 2) {\nx = add(x, 1)\n"
	if trace.String() != want {
		t.Errorf("trace = %q, want %q", trace.String(), want)
	}
}

func TestStatementTypeNames(t *testing.T) {
	if got := ast.FunctionBlockEnd.String(); got != "FunctionBlockEnd" {
		t.Errorf("String() = %q", got)
	}
}
