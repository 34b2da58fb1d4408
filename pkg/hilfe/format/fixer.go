// Package format normalises the layout of hilfe source files.
//
// A fix is made by fixers: StringFixers rewrite decoded text and FileFixers
// inspect a file's raw bytes. A FixerSet groups them, and an Applicator runs
// a set over files or directories, either writing the results
// (DefaultApplicator) or only reporting them (DryRunApplicator).
package format

import (
	"context"
	"strings"
)

// StringFixResult is the outcome of a StringFixer.
type StringFixResult struct {
	Changed bool
	Fixed   string
}

func stringResult(input, fixed string) StringFixResult {
	return StringFixResult{Changed: input != fixed, Fixed: fixed}
}

// StringFixer rewrites source text.
type StringFixer interface {
	Name() string
	Fix(ctx context.Context, input string) (StringFixResult, error)
}

// FileFixResult is the outcome of a FileFixer. Fixed holds the new file
// content when Changed is set.
type FileFixResult struct {
	Changed bool
	Fixed   []byte
}

// FileFixer inspects a whole file.
type FileFixer interface {
	Name() string
	Fix(ctx context.Context, path string) (FileFixResult, error)
}

// FixerSet is an ordered collection of fixers. File fixers run before
// string fixers.
type FixerSet struct {
	FileFixers   []FileFixer
	StringFixers []StringFixer
}

// DefaultFixerSet returns every fixer.
func DefaultFixerSet() FixerSet {
	return FixerSet{
		FileFixers: []FileFixer{FileEncodingFixer{}},
		StringFixers: []StringFixer{
			LineEndingFixer{},
			TrailingWhitespaceFixer{},
			FinalNewlineFixer{},
		},
	}
}

// Names lists the fixers in the order they run.
func (s FixerSet) Names() []string {
	var names []string
	for _, f := range s.FileFixers {
		names = append(names, f.Name())
	}
	for _, f := range s.StringFixers {
		names = append(names, f.Name())
	}
	return names
}

// Without returns a copy of the set without the named fixers. Names match
// with or without the "Fixer" suffix, ignoring case.
func (s FixerSet) Without(names ...string) FixerSet {
	skip := map[string]bool{}
	for _, n := range names {
		skip[normalizeName(n)] = true
	}

	var out FixerSet
	for _, f := range s.FileFixers {
		if !skip[normalizeName(f.Name())] {
			out.FileFixers = append(out.FileFixers, f)
		}
	}
	for _, f := range s.StringFixers {
		if !skip[normalizeName(f.Name())] {
			out.StringFixers = append(out.StringFixers, f)
		}
	}
	return out
}

// Unknown returns the names that match no fixer in the set.
func (s FixerSet) Unknown(names ...string) []string {
	known := map[string]bool{}
	for _, n := range s.Names() {
		known[normalizeName(n)] = true
	}
	var out []string
	for _, n := range names {
		if !known[normalizeName(n)] {
			out = append(out, n)
		}
	}
	return out
}

func normalizeName(name string) string {
	return strings.TrimSuffix(strings.ToLower(name), "fixer")
}
