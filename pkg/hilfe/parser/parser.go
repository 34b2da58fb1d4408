// Package parser turns a token stream into executable statements.
//
// Parsing happens in two lazy stages. A table-driven state machine (Machine)
// groups tokens into statements tagged with a StatementType. The Parser then
// builds statement nodes from those groups and attaches nested bodies to
// their `if`, `while` and `function` owners, so callers receive one
// top-level statement per construct.
package parser

import (
	"context"
	"fmt"
	"io"

	"github.com/sambeau/hilfe/pkg/hilfe/ast"
	"github.com/sambeau/hilfe/pkg/hilfe/errors"
	"github.com/sambeau/hilfe/pkg/hilfe/evaluator"
	"github.com/sambeau/hilfe/pkg/hilfe/lexer"
)

// frame is a block statement whose body is still being read.
type frame struct {
	owner  ast.Statement
	inElse bool
}

// Parser produces statements from a token source.
type Parser struct {
	groups *Machine
	frames []*frame
	done   bool
}

// New creates a parser reading tokens from src.
func New(src TokenSource) *Parser {
	return &Parser{groups: NewMachine(src)}
}

// NewString creates a parser over source text.
func NewString(source string) *Parser {
	return New(lexer.NewString(source))
}

// sliceSource replays pre-built tokens.
type sliceSource struct {
	tokens []lexer.Token
}

// FromTokens returns a TokenSource over an already tokenized stream.
func FromTokens(tokens []lexer.Token) TokenSource {
	return &sliceSource{tokens: tokens}
}

func (s *sliceSource) Next(ctx context.Context) (lexer.Token, error) {
	if err := ctx.Err(); err != nil {
		return lexer.Token{}, err
	}
	if len(s.tokens) == 0 {
		return lexer.Token{}, io.EOF
	}
	tok := s.tokens[0]
	s.tokens = s.tokens[1:]
	return tok, nil
}

// Parse reads every statement from source.
func Parse(ctx context.Context, source string) ([]evaluator.Statement, error) {
	p := NewString(source)
	var stmts []evaluator.Statement
	for {
		stmt, err := p.Next(ctx)
		if err == io.EOF {
			return stmts, nil
		}
		if err != nil {
			return stmts, err
		}
		stmts = append(stmts, stmt)
	}
}

// Groups runs only the state machine over src and returns the tagged token
// groups.
func Groups(ctx context.Context, src TokenSource) ([]Group, error) {
	m := NewMachine(src)
	var groups []Group
	for {
		g, err := m.Next(ctx)
		if err == io.EOF {
			return groups, nil
		}
		if err != nil {
			return groups, err
		}
		groups = append(groups, g)
	}
}

// Next returns the next complete top-level statement, or io.EOF.
func (p *Parser) Next(ctx context.Context) (evaluator.Statement, error) {
	for {
		if p.done {
			return nil, io.EOF
		}

		g, err := p.groups.Next(ctx)
		if err == io.EOF {
			p.done = true
			return nil, io.EOF
		}
		if err != nil {
			p.done = true
			return nil, err
		}

		stmt, err := p.build(g)
		if err != nil {
			p.done = true
			return nil, err
		}
		if stmt != nil {
			return stmt, nil
		}
	}
}

// build turns a group into a node. It returns a statement only when a
// top-level construct is complete.
func (p *Parser) build(g Group) (evaluator.Statement, error) {
	sig := significantTokens(g.Tokens)

	switch g.Type {
	case ast.EmptyLine:
		return p.emit(ast.NewEmptyLine(g.Tokens))

	case ast.VariableDeclaration:
		var value evaluator.Expression
		if i := indexOf(sig, lexer.EQUALS); i >= 0 {
			v, err := parseValue(sig[i+1:])
			if err != nil {
				return nil, positioned(err, sig[i])
			}
			value = v
		}
		stmt, err := ast.NewVariableDeclaration(g.Tokens, value)
		if err != nil {
			return nil, err
		}
		return p.emit(stmt)

	case ast.Assignment:
		value, err := parseValue(sig[2:])
		if err != nil {
			return nil, positioned(err, sig[1])
		}
		return p.emit(ast.NewAssignment(g.Tokens, sig[0], value))

	case ast.FunctionCall:
		call, err := parseCall(sig)
		if err != nil {
			return nil, err
		}
		return p.emit(ast.NewFunctionCall(g.Tokens, call))

	case ast.FunctionDeclaration:
		stmt, err := buildFunction(g.Tokens, sig)
		if err != nil {
			return nil, err
		}
		p.push(stmt)
		return nil, nil

	case ast.IfStatement:
		cond, err := conditionOf(sig)
		if err != nil {
			return nil, err
		}
		p.push(ast.NewIf(g.Tokens, cond))
		return nil, nil

	case ast.WhileStatement:
		cond, err := conditionOf(sig)
		if err != nil {
			return nil, err
		}
		p.push(ast.NewWhile(g.Tokens, cond))
		return nil, nil

	case ast.ElseStatement:
		top := p.top()
		if top == nil {
			return nil, p.mismatch(g)
		}
		ifStmt, ok := top.owner.(*ast.IfStmt)
		if !ok || top.inElse {
			return nil, p.mismatch(g)
		}
		top.inElse = true
		ifStmt.HasElse = true
		return nil, nil

	case ast.IfBlockEnd, ast.LoopBlockEnd, ast.FunctionBlockEnd:
		return p.closeBlock(g)

	case ast.BreakStatement, ast.ContinueStatement:
		if !p.inLoop() {
			return nil, errors.NewWithPosition("PARSE-0003", sig[0].Line, sig[0].Column,
				map[string]any{"Keyword": sig[0].Literal})
		}
		if g.Type == ast.BreakStatement {
			return p.emit(ast.NewBreak(g.Tokens))
		}
		return p.emit(ast.NewContinue(g.Tokens))
	}

	return nil, errors.New("INTERNAL-0001", map[string]any{"Statement": g.String()})
}

// emit hands a finished statement to the enclosing block, or to the caller
// at top level.
func (p *Parser) emit(stmt ast.Statement) (evaluator.Statement, error) {
	top := p.top()
	if top == nil {
		return stmt, nil
	}

	switch owner := top.owner.(type) {
	case *ast.IfStmt:
		if top.inElse {
			owner.Alternative = append(owner.Alternative, stmt)
		} else {
			owner.Consequence = append(owner.Consequence, stmt)
		}
	case *ast.WhileStmt:
		owner.Body = append(owner.Body, stmt)
	case *ast.FunctionStmt:
		owner.Body = append(owner.Body, stmt)
	}
	return nil, nil
}

func (p *Parser) push(owner ast.Statement) {
	p.frames = append(p.frames, &frame{owner: owner})
}

func (p *Parser) top() *frame {
	if len(p.frames) == 0 {
		return nil
	}
	return p.frames[len(p.frames)-1]
}

func (p *Parser) closeBlock(g Group) (evaluator.Statement, error) {
	top := p.top()
	if top == nil {
		return nil, p.mismatch(g)
	}

	var want ast.StatementType
	switch top.owner.(type) {
	case *ast.IfStmt:
		want = ast.IfBlockEnd
	case *ast.WhileStmt:
		want = ast.LoopBlockEnd
	default:
		want = ast.FunctionBlockEnd
	}
	if g.Type != want {
		return nil, p.mismatch(g)
	}

	p.frames = p.frames[:len(p.frames)-1]
	return p.emit(top.owner)
}

// inLoop reports whether a while body is open without a function body in
// between.
func (p *Parser) inLoop() bool {
	for i := len(p.frames) - 1; i >= 0; i-- {
		switch p.frames[i].owner.(type) {
		case *ast.WhileStmt:
			return true
		case *ast.FunctionStmt:
			return false
		}
	}
	return false
}

func (p *Parser) mismatch(g Group) error {
	tok := firstSignificant(g.Tokens)
	return errors.NewWithPosition("PARSE-0005", tok.Line, tok.Column, map[string]any{
		"Got":      fmt.Sprintf("%s %q", g.Type, tok.Literal),
		"Expected": "a statement inside an open block",
	})
}

// buildFunction reads `function name = (TYPE a, TYPE b) {`.
func buildFunction(tokens, sig []lexer.Token) (*ast.FunctionStmt, error) {
	typeTok, name := sig[0], sig[1]
	if typeTok.Literal != "function" {
		return nil, errors.NewWithPosition("PARSE-0006", typeTok.Line, typeTok.Column,
			map[string]any{"Type": typeTok.Literal, "Name": name.Literal})
	}

	var params []evaluator.Param
	open := indexOf(sig, lexer.LPAREN)
	for i := open + 1; i < len(sig) && sig[i].Type != lexer.RPAREN; i++ {
		if sig[i].Type == lexer.TYPE_NAME && i+1 < len(sig) {
			params = append(params, evaluator.Param{Type: sig[i].Literal, Name: sig[i+1].Literal})
			i++
		}
	}

	seen := map[string]bool{}
	for _, prm := range params {
		if seen[prm.Name] {
			return nil, errors.NewWithPosition("PARSE-0004", name.Line, name.Column,
				map[string]any{"Detail": fmt.Sprintf("duplicate parameter %s in function %s", prm.Name, name.Literal)})
		}
		seen[prm.Name] = true
	}

	return ast.NewFunctionDecl(tokens, name, params), nil
}

// conditionOf extracts the condition between the keyword's parentheses.
func conditionOf(sig []lexer.Token) (evaluator.Expression, error) {
	open := indexOf(sig, lexer.LPAREN)
	closing := lastIndexOf(sig, lexer.RPAREN)
	cond, err := parseCondition(sig[open+1 : closing])
	if err != nil {
		return nil, positioned(err, sig[open])
	}
	return cond, nil
}

func significantTokens(tokens []lexer.Token) []lexer.Token {
	out := make([]lexer.Token, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Type != lexer.WHITESPACE && tok.Type != lexer.NEWLINE {
			out = append(out, tok)
		}
	}
	return out
}

func indexOf(tokens []lexer.Token, tt lexer.TokenType) int {
	for i, tok := range tokens {
		if tok.Type == tt {
			return i
		}
	}
	return -1
}

func lastIndexOf(tokens []lexer.Token, tt lexer.TokenType) int {
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i].Type == tt {
			return i
		}
	}
	return -1
}

// positioned gives a position-less error the location of tok.
func positioned(err error, tok lexer.Token) error {
	he, ok := errors.As(err)
	if !ok || he.Line > 0 {
		return err
	}
	return he.WithPosition(tok.Line, tok.Column)
}
