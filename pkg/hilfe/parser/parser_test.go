package parser

import (
	"context"
	stderrors "errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sambeau/hilfe/pkg/hilfe/ast"
	"github.com/sambeau/hilfe/pkg/hilfe/errors"
	"github.com/sambeau/hilfe/pkg/hilfe/evaluator"
	"github.com/sambeau/hilfe/pkg/hilfe/lexer"
)

func mustTokenize(t *testing.T, input string) []lexer.Token {
	t.Helper()
	tokens, err := lexer.Tokenize(context.Background(), input)
	if err != nil {
		t.Fatalf("Tokenize(%q) error: %v", input, err)
	}
	return tokens
}

func mustParse(t *testing.T, input string) []evaluator.Statement {
	t.Helper()
	stmts, err := Parse(context.Background(), input)
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", input, err)
	}
	return stmts
}

func groupTypes(groups []Group) []ast.StatementType {
	out := make([]ast.StatementType, len(groups))
	for i, g := range groups {
		out[i] = g.Type
	}
	return out
}

func TestDeclarationGroup(t *testing.T) {
	tokens := mustTokenize(t, "int x = 5\n")

	groups, err := Groups(context.Background(), FromTokens(tokens))
	if err != nil {
		t.Fatalf("Groups() error: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	if groups[0].Type != ast.VariableDeclaration {
		t.Errorf("group type = %s, want VariableDeclaration", groups[0].Type)
	}
	if diff := cmp.Diff(tokens, groups[0].Tokens); diff != "" {
		t.Errorf("group tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestDeclarationWithoutNewline(t *testing.T) {
	tokens := mustTokenize(t, "int x = 5\n")
	tokens = tokens[:len(tokens)-1]

	_, err := Groups(context.Background(), FromTokens(tokens))
	if !errors.HasCode(err, "PARSE-0002") {
		t.Fatalf("error = %v, want PARSE-0002 (unexpected end of input)", err)
	}
}

func TestTrailingWhitespaceAtEndIsIgnored(t *testing.T) {
	stmts := mustParse(t, "int x = 5\n   ")
	if len(stmts) != 1 {
		t.Errorf("got %d statements, want 1", len(stmts))
	}
}

func TestStatementGroups(t *testing.T) {
	input := `string name = "Ada"
number n

n = 3
println(name, n)
if (n > 2) {
	shout()
} else {
	n = add(n, 1)
}
while (n < 10) {
	if (n == 5) {
		break
	}
	continue
}
function greet = (string who, number times) {
	println(who)
}
`
	groups, err := Groups(context.Background(), lexer.NewString(input))
	if err != nil {
		t.Fatalf("Groups() error: %v", err)
	}

	want := []ast.StatementType{
		ast.VariableDeclaration,
		ast.VariableDeclaration,
		ast.EmptyLine,
		ast.Assignment,
		ast.FunctionCall,
		ast.IfStatement,
		ast.FunctionCall,
		ast.ElseStatement,
		ast.Assignment,
		ast.IfBlockEnd,
		ast.WhileStatement,
		ast.IfStatement,
		ast.BreakStatement,
		ast.IfBlockEnd,
		ast.ContinueStatement,
		ast.LoopBlockEnd,
		ast.FunctionDeclaration,
		ast.FunctionCall,
		ast.FunctionBlockEnd,
	}
	if diff := cmp.Diff(want, groupTypes(groups)); diff != "" {
		t.Errorf("group types mismatch (-want +got):\n%s", diff)
	}
}

func TestStatementStrings(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"int x = 5\n", "int x = 5"},
		{"string s\n", "string s"},
		{"string s = 'hi there'\n", `string s = "hi there"`},
		{"bool b = x   ==   y\n", "bool b = x == y"},
		{"bool b = 1<=2\n", "bool b = 1 <= 2"},
		{"list l = list(1, \"a\", true)\n", `list l = list(1, "a", true)`},
		{"map m = map()\n", "map m = map()"},
		{"x = add( x ,1 )\n", "x = add(x, 1)"},
		{"x = y\n", "x = y"},
		{"  println()\n", "println()"},
		{"println(\"a\", b)  \n", `println("a", b)`},
		{"if (ok) {\n}\n", "if (ok) {"},
		{"while (i >= -1.5) {\n}\n", "while (i >= -1.5) {"},
		{"function f = () {\n}\n", "function f = () {"},
		{"function f = (string a,int b) {\n}\n", "function f = (string a, int b) {"},
		{"   \n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			stmts := mustParse(t, tt.input)
			if len(stmts) != 1 {
				t.Fatalf("got %d statements, want 1", len(stmts))
			}
			if got := stmts[0].String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNestedBlocks(t *testing.T) {
	input := `if (a) {
	if (b) {
		if (c) {
			println("abc")
		} else {
			println("ab")
		}
		println("after c")
	}
	while (d) {
		if (e) {
			break
		}
	}
} else {
	println("not a")
}
println("done")
`
	stmts := mustParse(t, input)
	if len(stmts) != 2 {
		t.Fatalf("got %d top-level statements, want 2", len(stmts))
	}

	outer, ok := stmts[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("stmts[0] = %T, want *ast.IfStmt", stmts[0])
	}
	if !outer.HasElse || len(outer.Consequence) != 2 || len(outer.Alternative) != 1 {
		t.Fatalf("outer if: else=%v consequence=%d alternative=%d",
			outer.HasElse, len(outer.Consequence), len(outer.Alternative))
	}

	ifB := outer.Consequence[0].(*ast.IfStmt)
	if ifB.HasElse || len(ifB.Consequence) != 2 {
		t.Errorf("if (b): else=%v consequence=%d", ifB.HasElse, len(ifB.Consequence))
	}
	ifC := ifB.Consequence[0].(*ast.IfStmt)
	if !ifC.HasElse || len(ifC.Consequence) != 1 || len(ifC.Alternative) != 1 {
		t.Errorf("if (c): else=%v consequence=%d alternative=%d",
			ifC.HasElse, len(ifC.Consequence), len(ifC.Alternative))
	}

	loop := outer.Consequence[1].(*ast.WhileStmt)
	if len(loop.Body) != 1 {
		t.Fatalf("while body has %d statements", len(loop.Body))
	}
	if _, ok := loop.Body[0].(*ast.IfStmt).Consequence[0].(*ast.BreakStmt); !ok {
		t.Error("break not attached to the inner if")
	}

	if got := stmts[1].String(); got != `println("done")` {
		t.Errorf("last statement = %q", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  string
	}{
		{"missing name", "int = 5\n", "PARSE-0001"},
		{"close at top level", "}\n", "PARSE-0001"},
		{"else without if", "while (x) {\n} else {\n}\n", "PARSE-0001"},
		{"double else", "if (x) {\n} else {\n} else {\n}\n", "PARSE-0001"},
		{"nested call argument", "println(add(1, 2))\n", "PARSE-0001"},
		{"condition without parens", "if x {\n}\n", "PARSE-0001"},
		{"call in condition", "if (f(x)) {\n}\n", "PARSE-0001"},
		{"bare identifier", "x\n", "PARSE-0001"},
		{"unclosed block", "if (x) {\nprintln()\n", "PARSE-0002"},
		{"unfinished statement", "x = ", "PARSE-0002"},
		{"break outside loop", "break\n", "PARSE-0003"},
		{"continue in if", "if (x) {\n\tcontinue\n}\n", "PARSE-0003"},
		{"break in function in loop", "while (x) {\nfunction f = () {\nbreak\n}\n}\n", "PARSE-0003"},
		{"single equals", "if (x = 1) {\n}\n", "PARSE-0004"},
		{"spaced operator", "bool b = x = = y\n", "PARSE-0001"},
		{"unknown operator", "bool b = x => y\n", "PARSE-0004"},
		{"params on non-function", "int f = (int a) {\n}\n", "PARSE-0006"},
		{"duplicate parameter", "function f = (int a, int a) {\n}\n", "PARSE-0004"},
		{"lexical error passes through", "int x = \"open\n", "LEX-0001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(context.Background(), tt.input)
			if !errors.HasCode(err, tt.code) {
				t.Fatalf("error = %v, want %s", err, tt.code)
			}
			he, _ := errors.As(err)
			if he.Line == 0 {
				t.Errorf("error has no position: %v", err)
			}
		})
	}
}

func TestComparisonOperatorMustBeContiguous(t *testing.T) {
	tokens := []lexer.Token{
		{Type: lexer.IDENT, Literal: "x", Line: 1, Column: 1},
		{Type: lexer.LT, Literal: "<", Line: 1, Column: 3},
		{Type: lexer.EQUALS, Literal: "=", Line: 1, Column: 5},
		{Type: lexer.NUMBER, Literal: "1", Line: 1, Column: 7},
	}
	_, err := parseComparison(tokens)
	if !errors.HasCode(err, "PARSE-0004") {
		t.Fatalf("error = %v, want PARSE-0004", err)
	}

	tokens[2].Column = 4
	cmpExpr, err := parseComparison(tokens)
	if err != nil {
		t.Fatalf("parseComparison() error: %v", err)
	}
	if got := cmpExpr.String(); got != "x <= 1" {
		t.Errorf("String() = %q, want %q", got, "x <= 1")
	}
}

func TestUnexpectedTokenListsAcceptedTypes(t *testing.T) {
	_, err := Parse(context.Background(), "int = 5\n")

	he, ok := errors.As(err)
	if !ok {
		t.Fatalf("error = %v", err)
	}
	if he.Line != 1 || he.Column != 5 {
		t.Errorf("position = %d:%d, want 1:5", he.Line, he.Column)
	}
	if !strings.Contains(he.Message, "IDENT, WHITESPACE") {
		t.Errorf("message = %q, want the accepted set", he.Message)
	}
}

func TestUnclosedBlockNamesOpener(t *testing.T) {
	_, err := Parse(context.Background(), "while (x) {\n  if (y) {\n  }\n")

	if err == nil || !strings.Contains(err.Error(), "while block opened at line 1, column 1") {
		t.Errorf("error = %v", err)
	}
}

func TestParseIsDeterministic(t *testing.T) {
	input := `map m = map()
m = put(m, "k", 1)
while (i < 3) {
	i = add(i, 1)
}
`
	render := func() []string {
		var out []string
		for _, s := range mustParse(t, input) {
			out = append(out, s.String())
			if tokens := s.(ast.Statement).Tokens(); len(tokens) == 0 {
				t.Errorf("statement %q kept no tokens", s)
			}
		}
		return out
	}

	first := render()
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, render()); diff != "" {
			t.Fatalf("run %d differs (-first +got):\n%s", i, diff)
		}
	}
}

// failingSource yields tokens then fails, to check that statements are
// produced before the whole input has been read.
type failingSource struct {
	tokens []lexer.Token
}

var errSource = stderrors.New("source broke")

func (f *failingSource) Next(ctx context.Context) (lexer.Token, error) {
	if len(f.tokens) == 0 {
		return lexer.Token{}, errSource
	}
	tok := f.tokens[0]
	f.tokens = f.tokens[1:]
	return tok, nil
}

func TestParserIsLazy(t *testing.T) {
	p := New(&failingSource{tokens: mustTokenize(t, "int x = 1\nx = 2\n")})
	ctx := context.Background()

	for _, want := range []string{"int x = 1", "x = 2"} {
		stmt, err := p.Next(ctx)
		if err != nil {
			t.Fatalf("Next() error: %v", err)
		}
		if stmt.String() != want {
			t.Errorf("statement = %q, want %q", stmt, want)
		}
	}

	if _, err := p.Next(ctx); !stderrors.Is(err, errSource) {
		t.Errorf("Next() error = %v, want the source error", err)
	}
	if _, err := p.Next(ctx); err != io.EOF {
		t.Errorf("Next() after failure = %v, want io.EOF", err)
	}
}

func TestParserCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewString("int x = 1\n").Next(ctx)
	if err != context.Canceled {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestEveryStateHasTransitions(t *testing.T) {
	for from, transitions := range grammar {
		for _, tr := range transitions {
			if tr.next == nextLine || tr.next == blockClose {
				continue
			}
			if _, ok := grammar[tr.next]; !ok {
				t.Errorf("%s -> %s: target state has no transitions", from, tr.next)
			}
		}
	}
}
