// Package lexer turns HILFE source text into a lazily produced stream of
// classified tokens.
//
// The tokenizer reads one character at a time and decides on delimiters
// (whitespace, symbols, quotes). Fragments between delimiters accumulate in a
// buffer and are classified when a delimiter flushes them.
package lexer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sambeau/hilfe/pkg/hilfe/errors"
)

// Tokenizer produces tokens from a character stream, one pull at a time.
type Tokenizer struct {
	input io.RuneReader

	buf         strings.Builder
	bufLine     int
	bufColumn   int
	inString    bool
	stringQuote rune
	escaped     bool

	line    int // position of the next rune
	column  int
	afterCR bool

	queue  []Token
	done   bool
	closed bool
}

// New creates a tokenizer reading from r.
func New(r io.RuneReader) *Tokenizer {
	return &Tokenizer{input: r, line: 1, column: 1}
}

// NewString creates a tokenizer over a source string.
func NewString(source string) *Tokenizer {
	return New(strings.NewReader(source))
}

// Tokenize reads all tokens from source. It is a convenience for callers that
// do not need streaming.
func Tokenize(ctx context.Context, source string) ([]Token, error) {
	t := NewString(source)
	var tokens []Token
	for {
		tok, err := t.Next(ctx)
		if err == io.EOF {
			return tokens, nil
		}
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
	}
}

// Next returns the next token. It returns io.EOF once the input is exhausted
// and the end-of-stream validation has passed.
func (t *Tokenizer) Next(ctx context.Context) (Token, error) {
	for len(t.queue) == 0 {
		if t.done {
			return Token{}, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return Token{}, err
		}

		r, _, err := t.input.ReadRune()
		if err == io.EOF {
			t.done = true
			if err := t.finish(); err != nil {
				return Token{}, err
			}
			continue
		}
		if err != nil {
			return Token{}, fmt.Errorf("reading source: %w", err)
		}

		if err := t.consume(r); err != nil {
			return Token{}, err
		}
	}

	tok := t.queue[0]
	t.queue = t.queue[1:]
	return tok, nil
}

// Close validates that nothing is left in the buffer. Next calls it when the
// input runs out; drivers that stop reading early may call it themselves.
// Calling Close more than once is a no-op.
func (t *Tokenizer) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true

	if t.inString {
		return errors.NewWithPosition("LEX-0001", t.bufLine, t.bufColumn,
			map[string]any{"Quote": string(t.stringQuote)})
	}
	if t.buf.Len() > 0 {
		return errors.NewWithPosition("LEX-0002", t.bufLine, t.bufColumn,
			map[string]any{"Fragment": t.buf.String()})
	}
	return nil
}

func (t *Tokenizer) consume(r rune) error {
	line, column := t.line, t.column
	skipLF := t.afterCR && r == '\n'
	t.advance(r)

	if t.inString {
		switch {
		case t.escaped:
			t.buf.WriteRune(r)
			t.escaped = false
		case r == '\\':
			t.escaped = true
		case r == t.stringQuote:
			t.emit(STRING, t.buf.String(), t.bufLine, t.bufColumn)
			t.buf.Reset()
			t.inString = false
			t.stringQuote = 0
		default:
			t.buf.WriteRune(r)
		}
		return nil
	}

	switch {
	case skipLF:
		// second half of \r\n, already emitted as a newline
		return nil

	case r == '"' || r == '\'':
		if err := t.flush(); err != nil {
			return err
		}
		t.inString = true
		t.stringQuote = r
		t.bufLine, t.bufColumn = line, column

	case r == ' ' || r == '\t':
		if err := t.flush(); err != nil {
			return err
		}
		t.emit(WHITESPACE, string(r), line, column)

	default:
		if tt, ok := symbols[r]; ok {
			if err := t.flush(); err != nil {
				return err
			}
			t.emit(tt, string(r), line, column)
			return nil
		}
		if t.buf.Len() == 0 {
			t.bufLine, t.bufColumn = line, column
		}
		t.buf.WriteRune(r)
	}

	return nil
}

// finish flushes whatever is left once the input is exhausted.
func (t *Tokenizer) finish() error {
	if !t.inString {
		leftover := strings.TrimSpace(t.buf.String())
		t.buf.Reset()
		t.buf.WriteString(leftover)
		if err := t.flush(); err != nil {
			return err
		}
	}
	return t.Close()
}

func (t *Tokenizer) flush() error {
	if t.buf.Len() == 0 {
		return nil
	}

	fragment := t.buf.String()
	tt, ok := Classify(fragment)
	if !ok {
		return errors.NewWithPosition("LEX-0003", t.bufLine, t.bufColumn,
			map[string]any{"Fragment": fragment})
	}

	t.emit(tt, fragment, t.bufLine, t.bufColumn)
	t.buf.Reset()
	return nil
}

func (t *Tokenizer) emit(tt TokenType, literal string, line, column int) {
	t.queue = append(t.queue, Token{Type: tt, Literal: literal, Line: line, Column: column})
}

func (t *Tokenizer) advance(r rune) {
	switch r {
	case '\n':
		if !t.afterCR {
			t.line++
		}
		t.column = 1
	case '\r':
		t.line++
		t.column = 1
	default:
		t.column++
	}
	t.afterCR = r == '\r'
}
