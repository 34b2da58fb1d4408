package lexer

import (
	"fmt"
	"regexp"
	"unicode"
)

// TokenType represents different types of tokens
type TokenType int

const (
	TYPE_NAME TokenType = iota // string, number, bool, ...

	// Identifiers and literals
	IDENT   // add, foobar, x, y, ...
	STRING  // "foobar" or 'foobar'
	NUMBER  // 5, 3.25, -2
	BOOLEAN // true, false

	// Layout
	WHITESPACE // ' ' or '\t'
	NEWLINE    // '\n' or '\r'

	// Keywords
	IF       // "if"
	ELSE     // "else"
	WHILE    // "while"
	BREAK    // "break"
	CONTINUE // "continue"

	// Symbols
	EQUALS // =
	GT     // >
	LT     // <
	COMMA  // ,
	LPAREN // (
	RPAREN // )
	LBRACE // {
	RBRACE // }
)

// Token represents a single token
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("{Type: %s, Literal: %q, Line: %d, Column: %d}",
		t.Type.String(), t.Literal, t.Line, t.Column)
}

// String returns a string representation of the token type
func (tt TokenType) String() string {
	switch tt {
	case TYPE_NAME:
		return "TYPE_NAME"
	case IDENT:
		return "IDENT"
	case STRING:
		return "STRING"
	case NUMBER:
		return "NUMBER"
	case BOOLEAN:
		return "BOOLEAN"
	case WHITESPACE:
		return "WHITESPACE"
	case NEWLINE:
		return "NEWLINE"
	case IF:
		return "IF"
	case ELSE:
		return "ELSE"
	case WHILE:
		return "WHILE"
	case BREAK:
		return "BREAK"
	case CONTINUE:
		return "CONTINUE"
	case EQUALS:
		return "EQUALS"
	case GT:
		return "GT"
	case LT:
		return "LT"
	case COMMA:
		return "COMMA"
	case LPAREN:
		return "LPAREN"
	case RPAREN:
		return "RPAREN"
	case LBRACE:
		return "LBRACE"
	case RBRACE:
		return "RBRACE"
	default:
		return fmt.Sprintf("TokenType(%d)", int(tt))
	}
}

var keywords = map[string]TokenType{
	"if":       IF,
	"else":     ELSE,
	"while":    WHILE,
	"break":    BREAK,
	"continue": CONTINUE,
}

var symbols = map[rune]TokenType{
	'\n': NEWLINE,
	'\r': NEWLINE,
	'{':  LBRACE,
	'}':  RBRACE,
	'(':  LPAREN,
	')':  RPAREN,
	'=':  EQUALS,
	'>':  GT,
	'<':  LT,
	',':  COMMA,
}

// TypeNames lists the type names a declaration may start with.
var TypeNames = []string{"string", "number", "int", "double", "bool", "function", "list", "map"}

// Keywords lists the reserved words, in declaration order.
var Keywords = []string{"if", "else", "while", "break", "continue"}

var numberPattern = regexp.MustCompile(`^-?(?:[0-9]+(?:\.[0-9]*)?|\.[0-9]+)$`)

// IsKnownTypeName reports whether name is one of TypeNames.
func IsKnownTypeName(name string) bool {
	for _, t := range TypeNames {
		if t == name {
			return true
		}
	}
	return false
}

// IsValidIdentifier reports whether s is a letter or underscore followed by
// letters, digits and underscores.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}

// Classify decides the token type of a buffered fragment. The order is
// number, boolean, keyword, type name, single symbol, identifier.
func Classify(fragment string) (TokenType, bool) {
	if numberPattern.MatchString(fragment) {
		return NUMBER, true
	}
	if fragment == "true" || fragment == "false" {
		return BOOLEAN, true
	}
	if tt, ok := keywords[fragment]; ok {
		return tt, true
	}
	if IsKnownTypeName(fragment) {
		return TYPE_NAME, true
	}
	if runes := []rune(fragment); len(runes) == 1 {
		if tt, ok := symbols[runes[0]]; ok {
			return tt, true
		}
	}
	if IsValidIdentifier(fragment) {
		return IDENT, true
	}
	return 0, false
}
