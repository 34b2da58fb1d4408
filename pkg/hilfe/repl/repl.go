// Package repl implements the interactive HILFE prompt.
package repl

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/peterh/liner"

	"github.com/sambeau/hilfe/pkg/hilfe/console"
	"github.com/sambeau/hilfe/pkg/hilfe/evaluator"
	"github.com/sambeau/hilfe/pkg/hilfe/help"
	"github.com/sambeau/hilfe/pkg/hilfe/hilfe"
	"github.com/sambeau/hilfe/pkg/hilfe/lexer"
	"github.com/sambeau/hilfe/pkg/hilfe/source"
)

const (
	DefaultPrompt      = "hilfe> "
	ContinuationPrompt = "   ... "
)

const logo = `
█░█ █ █░░ █▀▀ █▀▀
█▀█ █ █▄▄ █▀░ ██▄ `

// Options configures a REPL session.
type Options struct {
	Version     string
	Prompt      string // defaults to DefaultPrompt
	HistoryFile string // empty disables history
	Interpreter hilfe.Options
	Console     *console.Writer // error reports; nil writes plain text to the output
}

// LineReader reads one line of input after showing a prompt. *liner.State
// implements it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// Start runs the REPL on the terminal until the user quits. It returns the
// code passed to exit, or 0.
func Start(ctx context.Context, out io.Writer, opts Options) int {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(Complete)

	if opts.HistoryFile != "" {
		if f, err := os.Open(opts.HistoryFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
		defer func() {
			if f, err := os.Create(opts.HistoryFile); err == nil {
				line.WriteHistory(f)
				f.Close()
			}
		}()
	}

	fmt.Fprintf(out, "%s", logo)
	fmt.Fprintln(out, "v", opts.Version)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Type 'exit' or Ctrl+D to quit")
	fmt.Fprintln(out, "Use Tab for completion, ↑↓ for history")
	fmt.Fprintln(out, "Type ':help' for REPL commands")
	fmt.Fprintln(out, "")

	return NewSession(out, opts).Loop(ctx, line)
}

// Session holds the interpreter and any partial input between prompts.
// Variables declared at one prompt stay visible at the next.
type Session struct {
	opts   Options
	out    io.Writer
	report *console.Writer
	in     *evaluator.Interpreter
	buffer strings.Builder
}

// NewSession creates a session writing script output and messages to out.
func NewSession(out io.Writer, opts Options) *Session {
	if opts.Prompt == "" {
		opts.Prompt = DefaultPrompt
	}
	if opts.Interpreter.Stdout == nil {
		opts.Interpreter.Stdout = out
	}
	if opts.Interpreter.Stderr == nil {
		opts.Interpreter.Stderr = out
	}

	report := opts.Console
	if report == nil {
		report = console.New(out, console.Normal, false)
	}

	return &Session{
		opts:   opts,
		out:    out,
		report: report,
		in:     hilfe.NewInterpreter(opts.Interpreter),
	}
}

// Interpreter returns the interpreter inputs run on.
func (s *Session) Interpreter() *evaluator.Interpreter { return s.in }

// Loop reads lines from r until it reports io.EOF, the user quits or a
// script calls exit. It returns the exit code.
func (s *Session) Loop(ctx context.Context, r LineReader) int {
	for {
		if ctx.Err() != nil {
			return 0
		}

		prompt := s.opts.Prompt
		if s.buffer.Len() > 0 {
			prompt = ContinuationPrompt
		}

		input, err := r.Prompt(prompt)
		if err == liner.ErrPromptAborted {
			if s.buffer.Len() > 0 {
				fmt.Fprintln(s.out, "^C (cleared)")
			} else {
				fmt.Fprintln(s.out, "^C")
			}
			s.buffer.Reset()
			continue
		}
		if err == io.EOF {
			fmt.Fprintln(s.out, "\nGoodbye!")
			return 0
		}
		if err != nil {
			fmt.Fprintf(s.out, "Error reading input: %v\n", err)
			return 1
		}

		complete, quit := s.Feed(ctx, input)
		if complete != "" {
			r.AppendHistory(complete)
		}
		if quit {
			return s.in.ExitCode
		}
	}
}

// Feed handles one line of input. Once the buffered input is complete it is
// run and returned so the caller can record it. quit is true when the user
// asked to leave or the input called exit.
func (s *Session) Feed(ctx context.Context, input string) (complete string, quit bool) {
	trimmed := strings.TrimSpace(input)

	if s.buffer.Len() == 0 {
		switch {
		case trimmed == "exit" || trimmed == "quit":
			fmt.Fprintln(s.out, "Goodbye!")
			return "", true
		case strings.HasPrefix(trimmed, ":"):
			s.command(trimmed)
			return "", false
		case trimmed == "":
			return "", false
		}
	}

	s.buffer.WriteString(input)
	s.buffer.WriteString("\n")

	full := s.buffer.String()
	if NeedsMoreInput(full) {
		return "", false
	}
	s.buffer.Reset()

	script := source.FromString("<repl>", full)
	outcome := hilfe.RunWith(ctx, s.in, script)
	if outcome.Err != nil {
		hilfe.Report(s.report, script, outcome.Err)
	}

	return strings.TrimSuffix(full, "\n"), s.in.Exited
}

// command handles REPL meta-commands that start with ':'
func (s *Session) command(cmd string) {
	name, arg, _ := strings.Cut(cmd, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case ":help", ":h", ":?":
		fmt.Fprintln(s.out, "REPL Commands:")
		fmt.Fprintln(s.out, "  :help, :h, :?      Show this help")
		fmt.Fprintln(s.out, "  :env               Show variables in scope")
		fmt.Fprintln(s.out, "  :clear             Forget all variables")
		fmt.Fprintln(s.out, "  :describe <topic>  Describe a builtin, type or keyword")
		fmt.Fprintln(s.out, "  exit, quit         Exit the REPL")

	case ":env":
		s.printEnvironment()

	case ":clear":
		s.in = hilfe.NewInterpreter(s.opts.Interpreter)
		fmt.Fprintln(s.out, "Environment cleared")

	case ":describe", ":d":
		result, err := help.DescribeTopic(arg)
		if err != nil {
			fmt.Fprintln(s.out, err)
			return
		}
		fmt.Fprint(s.out, help.FormatText(result, 80))

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
}

// printEnvironment lists the variables of the global scope.
func (s *Session) printEnvironment() {
	vars := s.in.GlobalScope().Variables()
	if len(vars) == 0 {
		fmt.Fprintln(s.out, "(no variables)")
		return
	}

	sort.Slice(vars, func(i, j int) bool { return vars[i].Identifier < vars[j].Identifier })
	for _, v := range vars {
		value := v.Value.String()
		if len(value) > 60 {
			value = value[:57] + "..."
		}
		fmt.Fprintf(s.out, "  %s: %s = %s\n", v.Identifier, v.DeclaredType, value)
	}
}

// completionWords lists keywords, type names, literals and builtins.
var completionWords = func() []string {
	words := append([]string{}, lexer.Keywords...)
	words = append(words, lexer.TypeNames...)
	words = append(words, "true", "false")
	for _, n := range evaluator.Natives() {
		words = append(words, n.Name())
	}
	sort.Strings(words)
	return words
}()

// Complete returns completions for the word at the end of line. Each
// completion is the whole line with that word finished.
func Complete(line string) []string {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	if last := line[len(line)-1]; last == ' ' || last == '\t' {
		return nil
	}

	start := strings.LastIndexFunc(line, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	}) + 1
	prefix, word := line[:start], line[start:]
	if word == "" {
		return nil
	}

	var matches []string
	seen := make(map[string]bool)
	for _, w := range completionWords {
		if strings.HasPrefix(w, word) && !seen[w] {
			seen[w] = true
			matches = append(matches, prefix+w)
		}
	}
	return matches
}

// NeedsMoreInput reports whether input has unclosed braces or parentheses,
// ignoring any inside string literals.
func NeedsMoreInput(input string) bool {
	depth := 0
	var quote rune
	escaped := false

	for _, r := range input {
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == quote:
				quote = 0
			}
			continue
		}

		switch r {
		case '"', '\'':
			quote = r
		case '{', '(':
			depth++
		case '}', ')':
			depth--
		}
	}

	return depth > 0 || quote != 0
}
