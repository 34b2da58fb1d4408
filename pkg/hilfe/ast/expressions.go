package ast

import (
	"context"
	"strconv"

	"github.com/sambeau/hilfe/pkg/hilfe/errors"
	"github.com/sambeau/hilfe/pkg/hilfe/evaluator"
	"github.com/sambeau/hilfe/pkg/hilfe/lexer"
)

// Literal is a string, number or boolean written in the source.
type Literal struct {
	Token lexer.Token
	Value evaluator.Result
}

// NewLiteral converts a literal token into its value.
func NewLiteral(tok lexer.Token) (*Literal, error) {
	switch tok.Type {
	case lexer.STRING:
		return &Literal{Token: tok, Value: evaluator.NewString(tok.Literal)}, nil
	case lexer.BOOLEAN:
		return &Literal{Token: tok, Value: evaluator.NewBool(tok.Literal == "true")}, nil
	case lexer.NUMBER:
		n, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, errors.NewWithPosition("PARSE-0004", tok.Line, tok.Column,
				map[string]any{"Detail": "bad number " + tok.Literal})
		}
		return &Literal{Token: tok, Value: evaluator.NewNumber(n)}, nil
	}
	return nil, errors.NewWithPosition("PARSE-0005", tok.Line, tok.Column,
		map[string]any{"Got": tok.Type.String(), "Expected": "a literal"})
}

func (l *Literal) TokenLiteral() string { return l.Token.Literal }
func (l *Literal) String() string {
	if l.Token.Type == lexer.STRING {
		return strconv.Quote(l.Token.Literal)
	}
	return l.Token.Literal
}

func (l *Literal) Evaluate(ctx context.Context, in *evaluator.Interpreter) (evaluator.Result, error) {
	return l.Value, nil
}

// Identifier looks a name up in the scope stack.
type Identifier struct {
	Token lexer.Token
	Name  string
}

func (i *Identifier) TokenLiteral() string { return i.Token.Literal }
func (i *Identifier) String() string       { return i.Name }

func (i *Identifier) Evaluate(ctx context.Context, in *evaluator.Interpreter) (evaluator.Result, error) {
	if err := ctx.Err(); err != nil {
		return evaluator.Void, err
	}
	v, err := in.Resolve(i.Name)
	return v, atToken(err, i.Token)
}

// CallExpression calls a function with evaluated arguments.
type CallExpression struct {
	Token     lexer.Token // the callee name
	Callee    string
	Arguments []evaluator.Expression
}

func (c *CallExpression) TokenLiteral() string { return c.Token.Literal }
func (c *CallExpression) String() string {
	return c.Callee + "(" + joinStrings(c.Arguments) + ")"
}

func (c *CallExpression) Evaluate(ctx context.Context, in *evaluator.Interpreter) (evaluator.Result, error) {
	if err := ctx.Err(); err != nil {
		return evaluator.Void, err
	}

	callee, err := in.Resolve(c.Callee)
	if err != nil {
		return evaluator.Void, atToken(err, c.Token)
	}
	fn, err := callee.ExpectFunction()
	if err != nil {
		return evaluator.Void, errors.NewWithPosition("TYPE-0006", c.Token.Line, c.Token.Column,
			map[string]any{"Name": c.Callee, "Got": string(callee.Kind())})
	}

	args := make([]evaluator.Result, len(c.Arguments))
	for i, arg := range c.Arguments {
		v, err := arg.Evaluate(ctx, in)
		if err != nil {
			return evaluator.Void, err
		}
		args[i] = v
	}

	result, err := fn.Call(ctx, in, args)
	return result, atToken(err, c.Token)
}

// Comparison operators.
const (
	OpEqual        = "=="
	OpLess         = "<"
	OpGreater      = ">"
	OpLessEqual    = "<="
	OpGreaterEqual = ">="
)

// Comparison is a binary comparison. `==` compares any two values; the
// ordering operators need two numbers or two strings.
type Comparison struct {
	Token    lexer.Token // first token of the operator
	Left     evaluator.Expression
	Operator string
	Right    evaluator.Expression
}

func (c *Comparison) TokenLiteral() string { return c.Token.Literal }
func (c *Comparison) String() string {
	return c.Left.String() + " " + c.Operator + " " + c.Right.String()
}

func (c *Comparison) Evaluate(ctx context.Context, in *evaluator.Interpreter) (evaluator.Result, error) {
	left, err := c.Left.Evaluate(ctx, in)
	if err != nil {
		return evaluator.Void, err
	}
	right, err := c.Right.Evaluate(ctx, in)
	if err != nil {
		return evaluator.Void, err
	}

	if c.Operator == OpEqual {
		return evaluator.NewBool(left.Equal(right)), nil
	}

	cmp, ok := compare(left, right)
	if !ok {
		return evaluator.Void, errors.NewWithPosition("OP-0001", c.Token.Line, c.Token.Column,
			map[string]any{
				"LeftType":  string(left.Kind()),
				"Operator":  c.Operator,
				"RightType": string(right.Kind()),
			})
	}

	switch c.Operator {
	case OpLess:
		return evaluator.NewBool(cmp < 0), nil
	case OpGreater:
		return evaluator.NewBool(cmp > 0), nil
	case OpLessEqual:
		return evaluator.NewBool(cmp <= 0), nil
	default:
		return evaluator.NewBool(cmp >= 0), nil
	}
}

// compare orders two numbers or two strings.
func compare(a, b evaluator.Result) (int, bool) {
	if a.Kind() != b.Kind() {
		return 0, false
	}
	switch a.Kind() {
	case evaluator.NumberType:
		x, _ := a.ExpectNumber()
		y, _ := b.ExpectNumber()
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case evaluator.StringType:
		x, _ := a.ExpectString()
		y, _ := b.ExpectString()
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
