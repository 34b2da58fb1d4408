package parser

import (
	"fmt"

	"github.com/sambeau/hilfe/pkg/hilfe/ast"
	"github.com/sambeau/hilfe/pkg/hilfe/errors"
	"github.com/sambeau/hilfe/pkg/hilfe/evaluator"
	"github.com/sambeau/hilfe/pkg/hilfe/lexer"
)

var comparisonOperators = map[string]bool{
	ast.OpEqual:        true,
	ast.OpLess:         true,
	ast.OpGreater:      true,
	ast.OpLessEqual:    true,
	ast.OpGreaterEqual: true,
}

// parseValue builds the expression for the significant tokens of a value:
// an operand, a call, or a binary comparison.
func parseValue(tokens []lexer.Token) (evaluator.Expression, error) {
	if len(tokens) == 0 {
		return nil, errors.New("PARSE-0004", map[string]any{"Detail": "missing value"})
	}

	if len(tokens) >= 2 && tokens[1].Type == lexer.LPAREN &&
		(tokens[0].Type == lexer.IDENT || tokens[0].Type == lexer.TYPE_NAME) {
		return parseCall(tokens)
	}
	if len(tokens) == 1 {
		return parseOperand(tokens[0])
	}
	return parseComparison(tokens)
}

// parseCondition accepts an operand or a comparison.
func parseCondition(tokens []lexer.Token) (evaluator.Expression, error) {
	if len(tokens) == 1 {
		return parseOperand(tokens[0])
	}
	if len(tokens) == 0 {
		return nil, errors.New("PARSE-0004", map[string]any{"Detail": "empty condition"})
	}
	return parseComparison(tokens)
}

func parseOperand(tok lexer.Token) (evaluator.Expression, error) {
	switch tok.Type {
	case lexer.IDENT:
		return &ast.Identifier{Token: tok, Name: tok.Literal}, nil
	case lexer.STRING, lexer.NUMBER, lexer.BOOLEAN:
		return ast.NewLiteral(tok)
	}
	return nil, errors.NewWithPosition("PARSE-0005", tok.Line, tok.Column, map[string]any{
		"Got":      fmt.Sprintf("%s %q", tok.Type, tok.Literal),
		"Expected": "an identifier or a literal",
	})
}

// parseCall parses `name(arg, ...)`. The tokens must end with the closing
// parenthesis.
func parseCall(tokens []lexer.Token) (*ast.CallExpression, error) {
	callee := tokens[0]
	last := tokens[len(tokens)-1]
	if last.Type != lexer.RPAREN {
		return nil, errors.NewWithPosition("PARSE-0005", last.Line, last.Column, map[string]any{
			"Got":      fmt.Sprintf("%s %q", last.Type, last.Literal),
			"Expected": lexer.RPAREN.String(),
		})
	}

	call := &ast.CallExpression{Token: callee, Callee: callee.Literal}
	inner := tokens[2 : len(tokens)-1]
	for i, tok := range inner {
		if i%2 == 1 {
			if tok.Type != lexer.COMMA {
				return nil, errors.NewWithPosition("PARSE-0005", tok.Line, tok.Column, map[string]any{
					"Got":      fmt.Sprintf("%s %q", tok.Type, tok.Literal),
					"Expected": lexer.COMMA.String(),
				})
			}
			continue
		}
		arg, err := parseOperand(tok)
		if err != nil {
			return nil, err
		}
		call.Arguments = append(call.Arguments, arg)
	}
	if len(inner) > 0 && len(inner)%2 == 0 {
		tok := inner[len(inner)-1]
		return nil, errors.NewWithPosition("PARSE-0004", tok.Line, tok.Column,
			map[string]any{"Detail": "missing argument after ','"})
	}
	return call, nil
}

// parseComparison parses `operand OP operand` where OP is made of adjacent
// `=`, `<` and `>` tokens.
func parseComparison(tokens []lexer.Token) (evaluator.Expression, error) {
	left, err := parseOperand(tokens[0])
	if err != nil {
		return nil, err
	}

	i := 1
	op := ""
	opTok := tokens[1]
	for i < len(tokens) && isComparisonSymbol(tokens[i].Type) {
		if i > 1 && !adjacent(tokens[i-1], tokens[i]) {
			return nil, errors.NewWithPosition("PARSE-0004", tokens[i].Line, tokens[i].Column,
				map[string]any{"Detail": "comparison operators cannot contain spaces"})
		}
		op += tokens[i].Literal
		i++
	}

	if op == "" {
		return nil, errors.NewWithPosition("PARSE-0005", opTok.Line, opTok.Column, map[string]any{
			"Got":      fmt.Sprintf("%s %q", opTok.Type, opTok.Literal),
			"Expected": "a comparison operator",
		})
	}
	if !comparisonOperators[op] {
		detail := fmt.Sprintf("unknown operator %s", op)
		if op == "=" {
			detail = "`=` is assignment; use `==` to compare"
		}
		return nil, errors.NewWithPosition("PARSE-0004", opTok.Line, opTok.Column,
			map[string]any{"Detail": detail})
	}
	if i != len(tokens)-1 {
		at := opTok
		if i < len(tokens) {
			at = tokens[i]
		}
		return nil, errors.NewWithPosition("PARSE-0004", at.Line, at.Column,
			map[string]any{"Detail": "a comparison needs exactly one operand on each side"})
	}

	right, err := parseOperand(tokens[i])
	if err != nil {
		return nil, err
	}
	return &ast.Comparison{Token: opTok, Left: left, Operator: op, Right: right}, nil
}

func isComparisonSymbol(tt lexer.TokenType) bool {
	return tt == lexer.EQUALS || tt == lexer.LT || tt == lexer.GT
}

func adjacent(a, b lexer.Token) bool {
	return a.Line == b.Line && b.Column == a.Column+len([]rune(a.Literal))
}
