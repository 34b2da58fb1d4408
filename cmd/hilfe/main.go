package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sambeau/hilfe/config"
	"github.com/sambeau/hilfe/pkg/hilfe/console"
	"github.com/sambeau/hilfe/pkg/hilfe/help"
	"github.com/sambeau/hilfe/pkg/hilfe/hilfe"
	"github.com/sambeau/hilfe/pkg/hilfe/repl"
	"github.com/sambeau/hilfe/pkg/hilfe/source"
	"github.com/sambeau/hilfe/pkg/hilfe/watch"
)

// Version information, set at build time via -ldflags
var (
	Version = "dev"     // -X main.Version=$(git describe --tags --always)
	Commit  = "unknown" // -X main.Commit=$(git rev-parse --short HEAD)
)

// exitCode ends the process with a status once the failure has already been
// reported.
type exitCode int

func (c exitCode) Error() string { return fmt.Sprintf("exit status %d", int(c)) }

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.Getenv)
	cancel()

	var code exitCode
	if errors.As(err, &code) {
		os.Exit(int(code))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point, designed for testability (Mat Ryer pattern)
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) error {
	if len(args) == 0 {
		return runREPL(ctx, nil, stdin, stdout, stderr, getenv)
	}

	switch args[0] {
	case "run":
		return runCommand(ctx, args[1:], stdin, stdout, stderr, getenv)
	case "-e", "--eval":
		return evalCommand(ctx, args[1:], stdin, stdout, stderr, getenv)
	case "check":
		return checkCommand(ctx, args[1:], stdout, stderr, getenv)
	case "format", "fmt":
		return formatCommand(ctx, args[1:], stdout, stderr, getenv)
	case "repl":
		return runREPL(ctx, args[1:], stdin, stdout, stderr, getenv)
	case "describe":
		return describeCommand(args[1:], stdout, stderr)
	case "version", "-version", "--version":
		fmt.Fprintf(stdout, "hilfe version %s (%s)\n", Version, Commit)
		return nil
	case "help", "-h", "-help", "--help":
		printUsage(stdout)
		return nil
	}

	if strings.HasPrefix(args[0], "-") {
		printUsage(stderr)
		return fmt.Errorf("unknown flag: %s", args[0])
	}

	// hilfe script.hil is short for hilfe run script.hil
	return runCommand(ctx, args, stdin, stdout, stderr, getenv)
}

// settings are the flags shared by the commands that load configuration.
type settings struct {
	configPath string
	trace      bool
	strict     bool
	verbose    bool
	quiet      bool
}

func (s *settings) register(flags *flag.FlagSet, interpreter bool) {
	flags.StringVar(&s.configPath, "config", "", "Path to config file")
	flags.BoolVar(&s.verbose, "v", false, "Verbose output")
	flags.BoolVar(&s.quiet, "q", false, "Only print errors")
	if interpreter {
		flags.BoolVar(&s.trace, "trace", false, "Print each statement to stderr before it runs")
		flags.BoolVar(&s.strict, "strict", false, "Check declared types")
	}
}

// load reads configuration and applies the command-line overrides.
func (s *settings) load(stderr io.Writer, getenv func(string) string) (*config.Config, *console.Writer, error) {
	cfg, _, err := config.LoadWithPath(s.configPath, getenv)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	if s.trace {
		cfg.Interpreter.Trace = true
	}
	if s.strict {
		cfg.Interpreter.StrictTypes = true
	}
	switch {
	case s.quiet:
		cfg.Output.Verbosity = "quiet"
	case s.verbose:
		cfg.Output.Verbosity = "verbose"
	}

	verbosity, err := console.ParseVerbosity(cfg.Output.Verbosity)
	if err != nil {
		return nil, nil, err
	}
	out := console.New(stderr, verbosity, console.ColorEnabled(cfg.Output.Color, stderr, getenv))
	return cfg, out, nil
}

func interpreterOptions(cfg *config.Config, stdin io.Reader, stdout, stderr io.Writer) hilfe.Options {
	return hilfe.Options{
		Stdout:      stdout,
		Stderr:      stderr,
		Stdin:       stdin,
		Trace:       cfg.Interpreter.Trace,
		StrictTypes: cfg.Interpreter.StrictTypes,
	}
}

// parseFlags parses args, printing usage for -h.
func parseFlags(flags *flag.FlagSet, args []string, stdout, stderr io.Writer, usage string) (bool, error) {
	flags.SetOutput(io.Discard)
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stdout, usage)
			return true, nil
		}
		fmt.Fprintln(stderr, usage)
		return true, err
	}
	return false, nil
}

func runCommand(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("run", flag.ContinueOnError)
	var s settings
	s.register(flags, true)
	watchMode := flags.Bool("watch", false, "Run again whenever the script changes")

	if done, err := parseFlags(flags, args, stdout, stderr, "Usage: hilfe run [-trace] [-strict] [-watch] [-config PATH] <file>"); done {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("run needs exactly one script, got %d", flags.NArg())
	}
	path := flags.Arg(0)

	cfg, out, err := s.load(stderr, getenv)
	if err != nil {
		return err
	}
	opts := interpreterOptions(cfg, stdin, stdout, stderr)

	code := runFile(ctx, path, opts, out)
	if !*watchMode {
		if code != 0 {
			return exitCode(code)
		}
		return nil
	}

	w, err := watch.New(time.Duration(cfg.Watch.DebounceMS)*time.Millisecond, out, path)
	if err != nil {
		return err
	}
	defer w.Close()

	out.WithPrefix("WATCH").Printf("waiting for changes to %s (Ctrl+C to stop)", path)
	return w.Run(ctx, func(ctx context.Context, _ string) {
		runFile(ctx, path, opts, out)
	})
}

// runFile loads and runs one script, reporting any failure. It returns the
// exit code.
func runFile(ctx context.Context, path string, opts hilfe.Options, out *console.Writer) int {
	script, err := source.Load(path)
	if err != nil {
		hilfe.Report(out, nil, err)
		return 1
	}

	outcome := hilfe.Run(ctx, script, opts)
	if outcome.Err != nil {
		hilfe.Report(out, script, outcome.Err)
	}
	return outcome.ExitCode
}

func evalCommand(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) error {
	if len(args) == 0 {
		return fmt.Errorf("-e needs code to run")
	}

	flags := flag.NewFlagSet("eval", flag.ContinueOnError)
	var s settings
	s.register(flags, true)
	if done, err := parseFlags(flags, args[1:], stdout, stderr, "Usage: hilfe -e <code> [-trace] [-strict] [-config PATH]"); done {
		return err
	}

	cfg, out, err := s.load(stderr, getenv)
	if err != nil {
		return err
	}

	script := source.FromString("<eval>", args[0])
	outcome := hilfe.Run(ctx, script, interpreterOptions(cfg, stdin, stdout, stderr))
	if outcome.Err != nil {
		hilfe.Report(out, script, outcome.Err)
	}
	if outcome.ExitCode != 0 {
		return exitCode(outcome.ExitCode)
	}
	return nil
}

func checkCommand(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("check", flag.ContinueOnError)
	var s settings
	s.register(flags, false)
	if done, err := parseFlags(flags, args, stdout, stderr, "Usage: hilfe check [-v] [-q] [-config PATH] <file>..."); done {
		return err
	}
	if flags.NArg() == 0 {
		return fmt.Errorf("check needs at least one script")
	}

	_, out, err := s.load(stderr, getenv)
	if err != nil {
		return err
	}

	failed := 0
	for _, path := range flags.Args() {
		script, err := source.Load(path)
		if err == nil {
			err = hilfe.Check(ctx, script)
		}
		if err != nil {
			failed++
			hilfe.Report(out, script, err)
			continue
		}
		out.Verbosef("ok: %s", path)
	}

	if failed > 0 {
		out.Errorf("%d of %d file(s) failed", failed, flags.NArg())
		return exitCode(1)
	}
	out.Successf("%d file(s) ok", flags.NArg())
	return nil
}

func runREPL(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("repl", flag.ContinueOnError)
	var s settings
	s.register(flags, true)
	if done, err := parseFlags(flags, args, stdout, stderr, "Usage: hilfe repl [-trace] [-strict] [-config PATH]"); done {
		return err
	}

	cfg, out, err := s.load(stderr, getenv)
	if err != nil {
		return err
	}

	code := repl.Start(ctx, stdout, repl.Options{
		Version:     Version,
		Prompt:      cfg.REPL.Prompt,
		HistoryFile: cfg.REPL.History,
		Interpreter: interpreterOptions(cfg, stdin, stdout, stderr),
		Console:     out,
	})
	if code != 0 {
		return exitCode(code)
	}
	return nil
}

func describeCommand(args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("describe", flag.ContinueOnError)
	jsonOutput := flags.Bool("json", false, "Print JSON")
	usage := `Usage: hilfe describe [-json] <topic>

Topics:
  builtins           List all builtin functions by category
  types              List all type names
  keywords           List all keywords
  operators          List the comparison operators
  <type>             Help for a type (string, number, list, ...)
  <keyword>          Help for a keyword (if, while, ...)
  <builtin>          Help for a builtin (println, add, ...)`

	if done, err := parseFlags(flags, args, stdout, stderr, usage); done {
		return err
	}
	if flags.NArg() == 0 {
		fmt.Fprintln(stderr, usage)
		return exitCode(1)
	}

	result, err := help.DescribeTopic(flags.Arg(0))
	if err != nil {
		return err
	}

	if *jsonOutput {
		data, err := help.FormatJSON(result)
		if err != nil {
			return fmt.Errorf("formatting JSON: %w", err)
		}
		fmt.Fprintln(stdout, string(data))
		return nil
	}
	fmt.Fprint(stdout, help.FormatText(result, 80))
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `hilfe - the HILFE scripting language

Usage:
  hilfe                              Start the REPL
  hilfe <file>                       Run a script
  hilfe run [options] <file>         Run a script
  hilfe -e <code>                    Run code given on the command line
  hilfe check <file>...              Parse scripts without running them
  hilfe format [options] [path]...   Fix whitespace, line endings and encoding
  hilfe repl                         Start the REPL
  hilfe describe [-json] <topic>     Describe a builtin, type or keyword
  hilfe version                      Show version

Run Options:
  -trace             Print each statement to stderr before it runs
  -strict            Check declared types on declaration and assignment
  -watch             Run again whenever the script changes
  -config PATH       Path to config file (default: auto-detect)

Format Options:
  -dry-run           Show what would change without writing
  -set-exit-code     Exit with status 1 if anything was fixed or failed
  -changed           Only files modified according to git
  -v, -q             Verbose or quiet output

Scripts:
  .hil files are plain text. .gz files are decompressed and fenced
  hilfe code blocks are extracted from .md files.

Config Resolution:
  1. -config flag
  2. HILFE_CONFIG environment variable
  3. ./.hilfe.yaml
  4. ~/.config/hilfe/config.yaml
`)
}
