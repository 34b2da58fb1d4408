package ast

import (
	"bytes"
	"context"

	"github.com/sambeau/hilfe/pkg/hilfe/errors"
	"github.com/sambeau/hilfe/pkg/hilfe/evaluator"
	"github.com/sambeau/hilfe/pkg/hilfe/lexer"
)

// significant drops whitespace and newline tokens.
func significant(tokens []lexer.Token) []lexer.Token {
	out := make([]lexer.Token, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Type != lexer.WHITESPACE && tok.Type != lexer.NEWLINE {
			out = append(out, tok)
		}
	}
	return out
}

// EmptyLineStmt is a line with nothing but whitespace.
type EmptyLineStmt struct {
	base
}

func NewEmptyLine(tokens []lexer.Token) *EmptyLineStmt {
	return &EmptyLineStmt{base{kind: EmptyLine, tokens: tokens}}
}

func (s *EmptyLineStmt) String() string { return "" }
func (s *EmptyLineStmt) Execute(ctx context.Context, in *evaluator.Interpreter) error {
	return nil
}

// DeclarationStmt is `TYPE name [= value]`.
type DeclarationStmt struct {
	base
	TypeName lexer.Token
	Name     lexer.Token
	Value    evaluator.Expression // nil binds null
}

// NewVariableDeclaration checks that tokens start with a type name followed
// by an identifier.
func NewVariableDeclaration(tokens []lexer.Token, value evaluator.Expression) (*DeclarationStmt, error) {
	sig := significant(tokens)
	if len(sig) < 2 {
		line, col := 0, 0
		if len(tokens) > 0 {
			line, col = tokens[0].Line, tokens[0].Column
		}
		return nil, errors.NewWithPosition("PARSE-0002", line, col,
			map[string]any{"Detail": "a declaration needs a type and a name"})
	}
	if sig[0].Type != lexer.TYPE_NAME {
		return nil, errors.NewWithPosition("PARSE-0005", sig[0].Line, sig[0].Column,
			map[string]any{"Got": sig[0].Type.String(), "Expected": lexer.TYPE_NAME.String()})
	}
	if sig[1].Type != lexer.IDENT {
		return nil, errors.NewWithPosition("PARSE-0005", sig[1].Line, sig[1].Column,
			map[string]any{"Got": sig[1].Type.String(), "Expected": lexer.IDENT.String()})
	}

	return &DeclarationStmt{
		base:     base{kind: VariableDeclaration, tokens: tokens},
		TypeName: sig[0],
		Name:     sig[1],
		Value:    value,
	}, nil
}

func (s *DeclarationStmt) String() string {
	out := s.TypeName.Literal + " " + s.Name.Literal
	if s.Value != nil {
		out += " = " + s.Value.String()
	}
	return out
}

func (s *DeclarationStmt) Execute(ctx context.Context, in *evaluator.Interpreter) error {
	value := evaluator.Null
	if s.Value != nil {
		v, err := s.Value.Evaluate(ctx, in)
		if err != nil {
			return err
		}
		value = v
	}
	return atToken(in.Declare(s.Name.Literal, s.TypeName.Literal, value), s.Name)
}

// AssignmentStmt is `name = value`.
type AssignmentStmt struct {
	base
	Name  lexer.Token
	Value evaluator.Expression
}

func NewAssignment(tokens []lexer.Token, name lexer.Token, value evaluator.Expression) *AssignmentStmt {
	return &AssignmentStmt{base: base{kind: Assignment, tokens: tokens}, Name: name, Value: value}
}

func (s *AssignmentStmt) String() string {
	return s.Name.Literal + " = " + s.Value.String()
}

func (s *AssignmentStmt) Execute(ctx context.Context, in *evaluator.Interpreter) error {
	v, err := s.Value.Evaluate(ctx, in)
	if err != nil {
		return err
	}
	return atToken(in.Assign(s.Name.Literal, v), s.Name)
}

// CallStmt calls a function and discards the result.
type CallStmt struct {
	base
	Call *CallExpression
}

func NewFunctionCall(tokens []lexer.Token, call *CallExpression) *CallStmt {
	return &CallStmt{base: base{kind: FunctionCall, tokens: tokens}, Call: call}
}

func (s *CallStmt) String() string { return s.Call.String() }
func (s *CallStmt) Execute(ctx context.Context, in *evaluator.Interpreter) error {
	_, err := s.Call.Evaluate(ctx, in)
	return err
}

// IfStmt runs Consequence when the condition is true and Alternative (if
// any) otherwise. Each branch runs in its own scope.
type IfStmt struct {
	base
	Condition   evaluator.Expression
	Consequence []evaluator.Statement
	Alternative []evaluator.Statement
	HasElse     bool
}

func NewIf(tokens []lexer.Token, condition evaluator.Expression) *IfStmt {
	return &IfStmt{base: base{kind: IfStatement, tokens: tokens}, Condition: condition}
}

func (s *IfStmt) String() string {
	return "if (" + s.Condition.String() + ") {"
}

func (s *IfStmt) Execute(ctx context.Context, in *evaluator.Interpreter) error {
	ok, err := evalCondition(ctx, in, s.Condition)
	if err != nil {
		return err
	}

	body := s.Consequence
	if !ok {
		body = s.Alternative
	}
	if len(body) == 0 {
		return nil
	}

	in.PushScope()
	defer in.PopScope()
	return in.ExecuteAll(ctx, body)
}

// WhileStmt repeats Body while the condition holds. It implements the
// looping protocol; every iteration gets a fresh scope.
type WhileStmt struct {
	base
	Condition evaluator.Expression
	Body      []evaluator.Statement
}

func NewWhile(tokens []lexer.Token, condition evaluator.Expression) *WhileStmt {
	return &WhileStmt{base: base{kind: WhileStatement, tokens: tokens}, Condition: condition}
}

func (s *WhileStmt) String() string {
	return "while (" + s.Condition.String() + ") {"
}

func (s *WhileStmt) InitializeLoop(ctx context.Context, in *evaluator.Interpreter) error {
	return nil
}

func (s *WhileStmt) ShouldLoop(ctx context.Context, in *evaluator.Interpreter) (bool, error) {
	return evalCondition(ctx, in, s.Condition)
}

func (s *WhileStmt) ExecuteLoopBody(ctx context.Context, in *evaluator.Interpreter) error {
	in.PushScope()
	defer in.PopScope()
	return in.ExecuteAll(ctx, s.Body)
}

func (s *WhileStmt) FinalizeLoop(ctx context.Context, in *evaluator.Interpreter) error {
	return nil
}

// FunctionStmt binds a user function in the current scope. The function
// closes over that scope, so it can call itself.
type FunctionStmt struct {
	base
	Name   lexer.Token
	Params []evaluator.Param
	Body   []evaluator.Statement
}

func NewFunctionDecl(tokens []lexer.Token, name lexer.Token, params []evaluator.Param) *FunctionStmt {
	return &FunctionStmt{base: base{kind: FunctionDeclaration, tokens: tokens}, Name: name, Params: params}
}

func (s *FunctionStmt) String() string {
	var out bytes.Buffer
	out.WriteString("function ")
	out.WriteString(s.Name.Literal)
	out.WriteString(" = (")
	for i, p := range s.Params {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(p.Type + " " + p.Name)
	}
	out.WriteString(") {")
	return out.String()
}

func (s *FunctionStmt) Execute(ctx context.Context, in *evaluator.Interpreter) error {
	fn := evaluator.NewUserFunction(s.Name.Literal, s.Params, s.Body, in.CurrentScope())
	return atToken(in.Declare(s.Name.Literal, "function", evaluator.NewFunction(fn)), s.Name)
}

// BreakStmt leaves the innermost loop.
type BreakStmt struct {
	base
}

func NewBreak(tokens []lexer.Token) *BreakStmt {
	return &BreakStmt{base{kind: BreakStatement, tokens: tokens}}
}

func (s *BreakStmt) String() string { return "break" }
func (s *BreakStmt) Execute(ctx context.Context, in *evaluator.Interpreter) error {
	return evaluator.ErrBreak
}

// ContinueStmt skips to the next iteration of the innermost loop.
type ContinueStmt struct {
	base
}

func NewContinue(tokens []lexer.Token) *ContinueStmt {
	return &ContinueStmt{base{kind: ContinueStatement, tokens: tokens}}
}

func (s *ContinueStmt) String() string { return "continue" }
func (s *ContinueStmt) Execute(ctx context.Context, in *evaluator.Interpreter) error {
	return evaluator.ErrContinue
}

func evalCondition(ctx context.Context, in *evaluator.Interpreter, cond evaluator.Expression) (bool, error) {
	v, err := cond.Evaluate(ctx, in)
	if err != nil {
		return false, err
	}
	b, err := v.ExpectBool()
	if err != nil {
		if n, ok := cond.(Node); ok {
			if tok, ok := firstToken(n); ok {
				return false, atToken(err, tok)
			}
		}
		return false, err
	}
	return b, nil
}

func firstToken(n Node) (lexer.Token, bool) {
	switch e := n.(type) {
	case *Literal:
		return e.Token, true
	case *Identifier:
		return e.Token, true
	case *CallExpression:
		return e.Token, true
	case *Comparison:
		if left, ok := e.Left.(Node); ok {
			return firstToken(left)
		}
	}
	return lexer.Token{}, false
}
