// Package ast holds the statement and expression nodes produced by the
// parser. Statements execute themselves against an evaluator.Interpreter.
package ast

import (
	"bytes"
	"fmt"

	"github.com/sambeau/hilfe/pkg/hilfe/errors"
	"github.com/sambeau/hilfe/pkg/hilfe/lexer"
)

// StatementType tags a group of tokens emitted by the parser's state machine.
type StatementType int

const (
	EmptyLine StatementType = iota
	VariableDeclaration
	FunctionDeclaration
	Assignment
	FunctionCall
	IfStatement
	ElseStatement
	IfBlockEnd
	WhileStatement
	LoopBlockEnd
	FunctionBlockEnd
	BreakStatement
	ContinueStatement
)

func (st StatementType) String() string {
	switch st {
	case EmptyLine:
		return "EmptyLine"
	case VariableDeclaration:
		return "VariableDeclaration"
	case FunctionDeclaration:
		return "FunctionDeclaration"
	case Assignment:
		return "Assignment"
	case FunctionCall:
		return "FunctionCall"
	case IfStatement:
		return "IfStatement"
	case ElseStatement:
		return "ElseStatement"
	case IfBlockEnd:
		return "IfBlockEnd"
	case WhileStatement:
		return "WhileStatement"
	case LoopBlockEnd:
		return "LoopBlockEnd"
	case FunctionBlockEnd:
		return "FunctionBlockEnd"
	case BreakStatement:
		return "BreakStatement"
	case ContinueStatement:
		return "ContinueStatement"
	default:
		return fmt.Sprintf("StatementType(%d)", int(st))
	}
}

// Node represents any node in the tree.
type Node interface {
	TokenLiteral() string
	String() string
}

// Statement is a node emitted by the parser. It keeps the statement type it
// was tagged with and every token that was consumed to build it.
type Statement interface {
	Node
	Type() StatementType
	Tokens() []lexer.Token
	statementNode()
}

// base is embedded by every statement.
type base struct {
	kind   StatementType
	tokens []lexer.Token
}

func (b *base) statementNode()        {}
func (b *base) Type() StatementType   { return b.kind }
func (b *base) Tokens() []lexer.Token { return b.tokens }
func (b *base) TokenLiteral() string {
	for _, tok := range b.tokens {
		if tok.Type != lexer.WHITESPACE && tok.Type != lexer.NEWLINE {
			return tok.Literal
		}
	}
	return ""
}

// atToken attaches a source position to HILFE errors that do not carry one.
// Control-flow sentinels and other errors pass through unchanged.
func atToken(err error, tok lexer.Token) error {
	if err == nil {
		return nil
	}
	he, ok := errors.As(err)
	if !ok || he.Line > 0 {
		return err
	}
	return he.WithPosition(tok.Line, tok.Column)
}

func joinStrings[T fmt.Stringer](items []T) string {
	var out bytes.Buffer
	for i, item := range items {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(item.String())
	}
	return out.String()
}
