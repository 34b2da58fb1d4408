package parser

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/emirpasic/gods/stacks/arraystack"

	"github.com/sambeau/hilfe/pkg/hilfe/ast"
	"github.com/sambeau/hilfe/pkg/hilfe/errors"
	"github.com/sambeau/hilfe/pkg/hilfe/lexer"
)

// state is a node of the statement state machine.
type state string

const (
	lineStart      state = "LineStart"
	blockLineStart state = "BlockLineStart"

	// Pseudo-targets, resolved when a transition is taken.
	nextLine   state = "<next line>"   // LineStart or BlockLineStart by block depth
	blockClose state = "<block close>" // closer state for the block being closed

	declType       state = "DeclarationType"
	declTypeSpace  state = "DeclarationTypeSpace"
	declName       state = "DeclarationName"
	declNameSpace  state = "DeclarationNameSpace"
	identLead      state = "IdentifierLead"
	identLeadSpace state = "IdentifierLeadSpace"

	funcParams         state = "FunctionParams"
	funcParamType      state = "FunctionParamType"
	funcParamTypeSpace state = "FunctionParamTypeSpace"
	funcParamName      state = "FunctionParamName"
	funcParamNext      state = "FunctionParamNext"
	funcParamsEnd      state = "FunctionParamsEnd"
	funcBodyOpen       state = "FunctionBodyOpen"

	breakKeyword    state = "BreakKeyword"
	continueKeyword state = "ContinueKeyword"

	ifBlockCloser       state = "IfBlockCloser"
	ifBlockCloserSpace  state = "IfBlockCloserSpace"
	elseKeyword         state = "ElseKeyword"
	elseBlockOpen       state = "ElseBlockOpen"
	elseBlockCloser     state = "ElseBlockCloser"
	loopBlockCloser     state = "LoopBlockCloser"
	functionBlockCloser state = "FunctionBlockCloser"
)

// transition moves to next when the token type is in on. When emit is set
// the buffered tokens are emitted as a group of that statement type.
type transition struct {
	next state
	emit *ast.StatementType
	on   []lexer.TokenType
}

type blockKind int

const (
	ifBlock blockKind = iota
	elseBlock
	loopBlock
	functionBlock
)

func (k blockKind) String() string {
	switch k {
	case ifBlock:
		return "if"
	case elseBlock:
		return "else"
	case loopBlock:
		return "while"
	default:
		return "function"
	}
}

// block is an open `{` waiting for its `}`.
type block struct {
	kind   blockKind
	opener lexer.Token
}

var (
	whitespace = []lexer.TokenType{lexer.WHITESPACE}
	newline    = []lexer.TokenType{lexer.NEWLINE}
	literals   = []lexer.TokenType{lexer.STRING, lexer.NUMBER, lexer.BOOLEAN}
	operands   = []lexer.TokenType{lexer.IDENT, lexer.STRING, lexer.NUMBER, lexer.BOOLEAN}
	comparison = []lexer.TokenType{lexer.EQUALS, lexer.LT, lexer.GT}
)

func tag(st ast.StatementType) *ast.StatementType { return &st }

func one(tt lexer.TokenType) []lexer.TokenType { return []lexer.TokenType{tt} }

// table maps each state to its transitions, in match order.
type table map[state][]transition

func (t table) add(from state, tr ...transition) {
	t[from] = append(t[from], tr...)
}

func to(next state, on []lexer.TokenType) transition {
	return transition{next: next, on: on}
}

func emitTo(next state, st ast.StatementType, on []lexer.TokenType) transition {
	return transition{next: next, emit: tag(st), on: on}
}

// buildTable registers every transition of the statement grammar.
func buildTable() table {
	t := table{}

	lineStarts := []transition{
		to(lineStart, whitespace),
		emitTo(nextLine, ast.EmptyLine, newline),
		to(declType, one(lexer.TYPE_NAME)),
		to(identLead, one(lexer.IDENT)),
		to("IfKeyword", one(lexer.IF)),
		to("WhileKeyword", one(lexer.WHILE)),
		to(breakKeyword, one(lexer.BREAK)),
		to(continueKeyword, one(lexer.CONTINUE)),
	}
	t.add(lineStart, lineStarts...)

	// Inside a block, leading whitespace stays in the block's line start.
	t.add(blockLineStart, to(blockLineStart, whitespace))
	t.add(blockLineStart, lineStarts[1:]...)
	t.add(blockLineStart, to(blockClose, one(lexer.RBRACE)))

	// TYPE name [= value]
	t.add(declType, to(declTypeSpace, whitespace))
	t.add(declTypeSpace,
		to(declTypeSpace, whitespace),
		to(declName, one(lexer.IDENT)))
	t.add(declName,
		to(declNameSpace, whitespace),
		emitTo(nextLine, ast.VariableDeclaration, newline),
		to("InitializerStart", one(lexer.EQUALS)))
	t.add(declNameSpace,
		to(declNameSpace, whitespace),
		emitTo(nextLine, ast.VariableDeclaration, newline),
		to("InitializerStart", one(lexer.EQUALS)))
	addValue(t, "Initializer", ast.VariableDeclaration)
	t.add("InitializerStart", to(funcParams, one(lexer.LPAREN)))

	// function name = (TYPE a, TYPE b) {
	t.add(funcParams,
		to(funcParams, whitespace),
		to(funcParamsEnd, one(lexer.RPAREN)),
		to(funcParamType, one(lexer.TYPE_NAME)))
	t.add(funcParamType, to(funcParamTypeSpace, whitespace))
	t.add(funcParamTypeSpace,
		to(funcParamTypeSpace, whitespace),
		to(funcParamName, one(lexer.IDENT)))
	t.add(funcParamName,
		to(funcParamName, whitespace),
		to(funcParamNext, one(lexer.COMMA)),
		to(funcParamsEnd, one(lexer.RPAREN)))
	t.add(funcParamNext,
		to(funcParamNext, whitespace),
		to(funcParamType, one(lexer.TYPE_NAME)))
	t.add(funcParamsEnd,
		to(funcParamsEnd, whitespace),
		to(funcBodyOpen, one(lexer.LBRACE)))
	t.add(funcBodyOpen,
		to(funcBodyOpen, whitespace),
		emitTo(nextLine, ast.FunctionDeclaration, newline))

	// name(args) or name = value
	t.add(identLead,
		to("StatementCallArgs", one(lexer.LPAREN)),
		to(identLeadSpace, whitespace),
		to("AssignmentStart", one(lexer.EQUALS)))
	t.add(identLeadSpace,
		to(identLeadSpace, whitespace),
		to("AssignmentStart", one(lexer.EQUALS)))
	addCallArgs(t, "StatementCall", "StatementCallEnd")
	t.add("StatementCallEnd",
		to("StatementCallTail", whitespace),
		emitTo(nextLine, ast.FunctionCall, newline))
	t.add("StatementCallTail",
		to("StatementCallTail", whitespace),
		emitTo(nextLine, ast.FunctionCall, newline))
	addValue(t, "Assignment", ast.Assignment)

	// if (condition) {   while (condition) {
	addCondition(t, "If", ast.IfStatement)
	addCondition(t, "While", ast.WhileStatement)

	t.add(breakKeyword,
		to(breakKeyword, whitespace),
		emitTo(nextLine, ast.BreakStatement, newline))
	t.add(continueKeyword,
		to(continueKeyword, whitespace),
		emitTo(nextLine, ast.ContinueStatement, newline))

	// } [else {]
	t.add(ifBlockCloser,
		to(ifBlockCloserSpace, whitespace),
		emitTo(nextLine, ast.IfBlockEnd, newline),
		to(elseKeyword, one(lexer.ELSE)))
	t.add(ifBlockCloserSpace,
		to(ifBlockCloserSpace, whitespace),
		emitTo(nextLine, ast.IfBlockEnd, newline),
		to(elseKeyword, one(lexer.ELSE)))
	t.add(elseKeyword,
		to(elseKeyword, whitespace),
		to(elseBlockOpen, one(lexer.LBRACE)))
	t.add(elseBlockOpen,
		to(elseBlockOpen, whitespace),
		emitTo(nextLine, ast.ElseStatement, newline))
	t.add(elseBlockCloser,
		to(elseBlockCloser, whitespace),
		emitTo(nextLine, ast.IfBlockEnd, newline))
	t.add(loopBlockCloser,
		to(loopBlockCloser, whitespace),
		emitTo(nextLine, ast.LoopBlockEnd, newline))
	t.add(functionBlockCloser,
		to(functionBlockCloser, whitespace),
		emitTo(nextLine, ast.FunctionBlockEnd, newline))

	return t
}

// addValue registers the right-hand side of a declaration or assignment:
// an operand, `operand OP operand` or a call.
func addValue(t table, prefix string, emit ast.StatementType) {
	var (
		start     = state(prefix + "Start")
		ident     = state(prefix + "Identifier")
		operand   = state(prefix + "Operand")
		callee    = state(prefix + "Callee")
		tail      = state(prefix + "Tail")
		operator  = state(prefix + "Operator")
		rightWait = state(prefix + "RightStart")
		right     = state(prefix + "Right")
		end       = state(prefix + "End")
	)

	t.add(start,
		to(start, whitespace),
		to(ident, one(lexer.IDENT)),
		to(operand, literals),
		to(callee, one(lexer.TYPE_NAME)))
	t.add(ident,
		to(state(prefix+"CallArgs"), one(lexer.LPAREN)),
		to(tail, whitespace),
		emitTo(nextLine, emit, newline),
		to(operator, comparison))
	t.add(operand,
		to(tail, whitespace),
		emitTo(nextLine, emit, newline),
		to(operator, comparison))
	t.add(callee, to(state(prefix+"CallArgs"), one(lexer.LPAREN)))
	t.add(tail,
		to(tail, whitespace),
		emitTo(nextLine, emit, newline),
		to(operator, comparison))
	t.add(operator,
		to(operator, comparison),
		to(rightWait, whitespace),
		to(right, operands))
	t.add(rightWait,
		to(rightWait, whitespace),
		to(right, operands))
	t.add(right,
		to(end, whitespace),
		emitTo(nextLine, emit, newline))
	t.add(end,
		to(end, whitespace),
		emitTo(nextLine, emit, newline))

	addCallArgs(t, prefix+"Call", state(prefix+"CallEnd"))
	t.add(state(prefix+"CallEnd"),
		to(end, whitespace),
		emitTo(nextLine, emit, newline))
}

// addCallArgs registers `(a, b, ...)` after the opening parenthesis.
// Arguments are identifiers or literals.
func addCallArgs(t table, prefix string, after state) {
	var (
		args = state(prefix + "Args")
		arg  = state(prefix + "Arg")
		next = state(prefix + "ArgNext")
	)

	t.add(args,
		to(args, whitespace),
		to(after, one(lexer.RPAREN)),
		to(arg, operands))
	t.add(arg,
		to(arg, whitespace),
		to(next, one(lexer.COMMA)),
		to(after, one(lexer.RPAREN)))
	t.add(next,
		to(next, whitespace),
		to(arg, operands))
}

// addCondition registers `KEYWORD (condition) {` followed by a newline.
func addCondition(t table, prefix string, emit ast.StatementType) {
	var (
		keyword   = state(prefix + "Keyword")
		start     = state(prefix + "Condition")
		left      = state(prefix + "ConditionLeft")
		leftSpace = state(prefix + "ConditionLeftSpace")
		operator  = state(prefix + "ConditionOperator")
		rightWait = state(prefix + "ConditionRightStart")
		right     = state(prefix + "ConditionRight")
		closed    = state(prefix + "ConditionEnd")
		open      = state(prefix + "BlockOpen")
	)

	t.add(keyword,
		to(keyword, whitespace),
		to(start, one(lexer.LPAREN)))
	t.add(start,
		to(start, whitespace),
		to(left, operands))
	t.add(left,
		to(leftSpace, whitespace),
		to(operator, comparison),
		to(closed, one(lexer.RPAREN)))
	t.add(leftSpace,
		to(leftSpace, whitespace),
		to(operator, comparison),
		to(closed, one(lexer.RPAREN)))
	t.add(operator,
		to(operator, comparison),
		to(rightWait, whitespace),
		to(right, operands))
	t.add(rightWait,
		to(rightWait, whitespace),
		to(right, operands))
	t.add(right,
		to(right, whitespace),
		to(closed, one(lexer.RPAREN)))
	t.add(closed,
		to(closed, whitespace),
		to(open, one(lexer.LBRACE)))
	t.add(open,
		to(open, whitespace),
		emitTo(nextLine, emit, newline))
}

var grammar = buildTable()

// Group is a run of tokens the state machine recognised as one statement.
type Group struct {
	Type   ast.StatementType
	Tokens []lexer.Token
}

func (g Group) String() string {
	var sb strings.Builder
	for _, tok := range g.Tokens {
		sb.WriteString(tok.Literal)
	}
	return fmt.Sprintf("%s %q", g.Type, sb.String())
}

// TokenSource yields tokens one at a time and returns io.EOF at the end.
type TokenSource interface {
	Next(ctx context.Context) (lexer.Token, error)
}

// Machine is the first parsing stage. It consumes tokens and emits tagged
// token groups, tracking open blocks on an explicit stack so that every `}`
// is matched with its opener however deeply blocks nest.
type Machine struct {
	src     TokenSource
	state   state
	buf     []lexer.Token
	blocks  *arraystack.Stack
	done    bool
	lastTok lexer.Token
}

// NewMachine creates a state machine reading from src.
func NewMachine(src TokenSource) *Machine {
	return &Machine{src: src, state: lineStart, blocks: arraystack.New()}
}

// Depth returns the number of open blocks.
func (m *Machine) Depth() int { return m.blocks.Size() }

// Next returns the next statement group, or io.EOF when the input ends
// cleanly.
func (m *Machine) Next(ctx context.Context) (Group, error) {
	for {
		if m.done {
			return Group{}, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return Group{}, err
		}

		tok, err := m.src.Next(ctx)
		if err == io.EOF {
			m.done = true
			if err := m.finish(); err != nil {
				return Group{}, err
			}
			return Group{}, io.EOF
		}
		if err != nil {
			return Group{}, err
		}

		group, emitted, err := m.step(tok)
		if err != nil {
			m.done = true
			return Group{}, err
		}
		if emitted {
			return group, nil
		}
	}
}

func (m *Machine) step(tok lexer.Token) (Group, bool, error) {
	m.lastTok = tok

	for _, tr := range grammar[m.state] {
		if !contains(tr.on, tok.Type) {
			continue
		}

		m.buf = append(m.buf, tok)

		next := tr.next
		if next == blockClose {
			next = m.close()
		}

		var group Group
		emitted := tr.emit != nil
		if emitted {
			group = Group{Type: *tr.emit, Tokens: m.buf}
			m.buf = nil
			m.open(group)
		}

		if next == nextLine {
			next = lineStart
			if m.blocks.Size() > 0 {
				next = blockLineStart
			}
		}
		m.state = next
		return group, emitted, nil
	}

	return Group{}, false, m.unexpected(tok)
}

// open pushes a block for statements that end in `{`.
func (m *Machine) open(g Group) {
	var kind blockKind
	switch g.Type {
	case ast.IfStatement:
		kind = ifBlock
	case ast.ElseStatement:
		kind = elseBlock
	case ast.WhileStatement:
		kind = loopBlock
	case ast.FunctionDeclaration:
		kind = functionBlock
	default:
		return
	}
	m.blocks.Push(block{kind: kind, opener: firstSignificant(g.Tokens)})
}

// close pops the innermost block and picks the state that finishes it.
func (m *Machine) close() state {
	top, _ := m.blocks.Pop()
	switch top.(block).kind {
	case ifBlock:
		return ifBlockCloser
	case elseBlock:
		return elseBlockCloser
	case loopBlock:
		return loopBlockCloser
	default:
		return functionBlockCloser
	}
}

func (m *Machine) finish() error {
	if tok, ok := pending(m.buf); ok {
		return errors.NewWithPosition("PARSE-0002", tok.Line, tok.Column, map[string]any{
			"Detail": fmt.Sprintf("statement starting with %q is not finished", tok.Literal),
		})
	}
	if top, ok := m.blocks.Peek(); ok {
		b := top.(block)
		return errors.NewWithPosition("PARSE-0002", m.lastTok.Line, m.lastTok.Column, map[string]any{
			"Detail": fmt.Sprintf("%s block opened at line %d, column %d is not closed",
				b.kind, b.opener.Line, b.opener.Column),
		})
	}
	return nil
}

func (m *Machine) unexpected(tok lexer.Token) error {
	accepted := map[lexer.TokenType]bool{}
	for _, tr := range grammar[m.state] {
		for _, tt := range tr.on {
			accepted[tt] = true
		}
	}
	names := make([]string, 0, len(accepted))
	for tt := range accepted {
		names = append(names, tt.String())
	}
	sort.Strings(names)

	return errors.NewWithPosition("PARSE-0001", tok.Line, tok.Column, map[string]any{
		"Got":      fmt.Sprintf("%s %q", tok.Type, tok.Literal),
		"Expected": strings.Join(names, ", "),
	})
}

func contains(set []lexer.TokenType, tt lexer.TokenType) bool {
	for _, t := range set {
		if t == tt {
			return true
		}
	}
	return false
}

// pending returns the first buffered token that is not layout.
func pending(tokens []lexer.Token) (lexer.Token, bool) {
	for _, tok := range tokens {
		if tok.Type != lexer.WHITESPACE && tok.Type != lexer.NEWLINE {
			return tok, true
		}
	}
	return lexer.Token{}, false
}

func firstSignificant(tokens []lexer.Token) lexer.Token {
	if tok, ok := pending(tokens); ok {
		return tok
	}
	if len(tokens) > 0 {
		return tokens[0]
	}
	return lexer.Token{}
}
