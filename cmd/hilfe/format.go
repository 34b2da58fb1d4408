package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sambeau/hilfe/pkg/hilfe/format"
)

func formatCommand(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("format", flag.ContinueOnError)
	var s settings
	s.register(flags, false)
	var (
		dryRun      = flags.Bool("dry-run", false, "Show what would change without writing")
		setExitCode = flags.Bool("set-exit-code", false, "Exit with status 1 if anything was fixed or failed")
		changedOnly = flags.Bool("changed", false, "Only format files git reports as changed")
	)

	usage := "Usage: hilfe format [-dry-run] [-set-exit-code] [-changed] [-v] [-q] [-config PATH] [path]..."
	if done, err := parseFlags(flags, args, stdout, stderr, usage); done {
		return err
	}

	cfg, out, err := s.load(stderr, getenv)
	if err != nil {
		return err
	}

	if unknown := format.DefaultFixerSet().Unknown(cfg.Format.Disabled...); len(unknown) > 0 {
		return fmt.Errorf("unknown fixer(s) in format.disabled: %s (known: %s)",
			strings.Join(unknown, ", "), strings.Join(format.DefaultFixerSet().Names(), ", "))
	}
	disabled := append([]string{}, cfg.Format.Disabled...)
	if !cfg.Format.FinalNewline {
		disabled = append(disabled, "FinalNewlineFixer")
	}
	set := format.DefaultFixerSet().Without(disabled...)

	log := out.WithPrefix("FORMAT")
	hooks := format.Hooks{
		BeforeFixerRun: func(e format.Event) { log.Verbosef("running %s on %s", e.Fixer, e.Path) },
		AfterApplyFix:  func(e format.Event) { log.Printf("%s: %s", e.Path, e.Fixer) },
		FixerFailed:    func(e format.Event, err error) { log.Errorf("%s failed on %s: %v", e.Fixer, e.Path, err) },
	}

	var applicator format.Applicator = &format.DefaultApplicator{Hooks: hooks}
	if *dryRun {
		out.Warnf("Dry run mode enabled; no files will be changed.")
		applicator = &format.DryRunApplicator{Hooks: hooks, Diff: stdout}
	}

	paths := flags.Args()
	if len(paths) == 0 {
		paths = []string{"."}
	}

	start := time.Now()
	var total format.ApplicatorResult
	for _, path := range paths {
		out.Verbosef("Formatting '%s'...", path)

		res, err := applyPath(ctx, applicator, set, path, cfg.Format.Extensions, *changedOnly)
		total = total.Add(res)
		if err != nil {
			return err
		}
	}

	verb := "Fixed"
	if *dryRun {
		verb = "Would fix"
	}
	out.Successf("%s %d file(s) in %.2f seconds", verb, len(total.Files), time.Since(start).Seconds())
	if total.Failed > 0 {
		out.Errorf("%d fixer run(s) failed", total.Failed)
	}

	if *setExitCode && total.Applied+total.Failed > 0 {
		return exitCode(1)
	}
	return nil
}

func applyPath(ctx context.Context, a format.Applicator, set format.FixerSet, path string, extensions []string, changedOnly bool) (format.ApplicatorResult, error) {
	if !changedOnly {
		return a.ApplyDir(ctx, set, path, extensions)
	}

	files, err := format.ChangedFiles(path, extensions)
	if err != nil {
		return format.ApplicatorResult{}, err
	}
	var total format.ApplicatorResult
	for _, file := range files {
		res, err := a.ApplyFile(ctx, set, file)
		total = total.Add(res)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
