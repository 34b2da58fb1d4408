// Package errors provides structured error types for the HILFE language.
//
// This package defines HilfeError, a single error type that represents
// lexical, syntax, binding, type and internal interpreter errors with enough
// metadata (class, code, source position, hints) for the driver to report
// them and pick an exit code.
package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// ErrorClass categorizes errors for filtering and templating.
type ErrorClass string

const (
	ClassLex       ErrorClass = "lex"       // Tokenizer errors
	ClassParse     ErrorClass = "parse"     // Syntax errors
	ClassUndefined ErrorClass = "undefined" // Identifier not bound in any scope
	ClassType      ErrorClass = "type"      // Type mismatches
	ClassArity     ErrorClass = "arity"     // Wrong argument count
	ClassIndex     ErrorClass = "index"     // List index problems
	ClassOperator  ErrorClass = "operator"  // Invalid comparisons and arithmetic
	ClassInternal  ErrorClass = "internal"  // Interpreter invariant violations
	ClassIO        ErrorClass = "io"        // Reading sources
	ClassConfig    ErrorClass = "config"    // Invalid .hilfe.yaml values
)

// HilfeError represents any error from tokenizing, parsing or evaluation.
type HilfeError struct {
	Class   ErrorClass     `json:"class"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hints   []string       `json:"hints,omitempty"`
	Line    int            `json:"line"`   // 1-based line (0 if unknown)
	Column  int            `json:"column"` // 1-based column (0 if unknown)
	File    string         `json:"file,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *HilfeError) Error() string {
	return e.String()
}

// String returns a single-line representation followed by any hints.
func (e *HilfeError) String() string {
	var sb strings.Builder

	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf("line %d, column %d: ", e.Line, e.Column))
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// PrettyString returns a multi-line formatted string for display.
func (e *HilfeError) PrettyString() string {
	var sb strings.Builder

	switch e.Class {
	case ClassLex, ClassParse:
		sb.WriteString("Syntax error")
	case ClassInternal:
		sb.WriteString("Internal error")
	default:
		sb.WriteString("Runtime error")
	}

	if e.File != "" {
		sb.WriteString(":\n  in: ")
		sb.WriteString(e.File)
		if e.Line > 0 {
			sb.WriteString(fmt.Sprintf("\n  at: line %d, column %d", e.Line, e.Column))
		}
		sb.WriteString("\n  ")
	} else if e.Line > 0 {
		sb.WriteString(fmt.Sprintf(": line %d, column %d\n  ", e.Line, e.Column))
	} else {
		sb.WriteString(":\n  ")
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  hint: ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// ToJSON returns the error as JSON bytes.
func (e *HilfeError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WithFile returns a copy of the error with the file path set.
func (e *HilfeError) WithFile(file string) *HilfeError {
	copy := *e
	copy.File = file
	return &copy
}

// WithPosition returns a copy of the error with line and column set.
func (e *HilfeError) WithPosition(line, column int) *HilfeError {
	copy := *e
	copy.Line = line
	copy.Column = column
	return &copy
}

// IsSyntaxError reports whether the error was raised before execution began.
func (e *HilfeError) IsSyntaxError() bool {
	return e.Class == ClassLex || e.Class == ClassParse
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass
	Template string   // Message template with {{.placeholders}}
	Hints    []string // Hint templates (may use {{.placeholders}})
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// Lexical errors
	"LEX-0001": {
		Class:    ClassLex,
		Template: "unterminated string literal",
		Hints:    []string{"close the string with a matching {{.Quote}}"},
	},
	"LEX-0002": {
		Class:    ClassLex,
		Template: "unexpected end of input after '{{.Fragment}}'",
	},
	"LEX-0003": {
		Class:    ClassLex,
		Template: "malformed token '{{.Fragment}}'",
		Hints:    []string{"identifiers may only contain letters, digits and underscores"},
	},

	// Syntax errors
	"PARSE-0001": {
		Class:    ClassParse,
		Template: "unexpected token {{.Got}}, expected one of: {{.Expected}}",
	},
	"PARSE-0002": {
		Class:    ClassParse,
		Template: "unexpected end of input: {{.Detail}}",
		Hints:    []string{"every statement must end with a newline"},
	},
	"PARSE-0003": {
		Class:    ClassParse,
		Template: "`{{.Keyword}}` is only allowed inside a while loop",
	},
	"PARSE-0004": {
		Class:    ClassParse,
		Template: "invalid expression: {{.Detail}}",
	},
	"PARSE-0005": {
		Class:    ClassParse,
		Template: "unexpected token {{.Got}}, expected {{.Expected}}",
	},
	"PARSE-0006": {
		Class:    ClassParse,
		Template: "a parameter list can only initialize a function, not {{.Type}}",
		Hints:    []string{"function {{.Name}} = (...) {"},
	},

	// Binding errors
	"UNDEF-0001": {
		Class:    ClassUndefined,
		Template: "identifier not found: {{.Name}}",
		// "Did you mean" hint added by NewUndefinedIdentifier
	},

	// Type errors
	"TYPE-0001": {
		Class:    ClassType,
		Template: "expected {{.Expected}}, got {{.Got}}",
	},
	"TYPE-0002": {
		Class:    ClassType,
		Template: "cannot assign a void value to variable '{{.Name}}'",
		Hints:    []string{"the right-hand side does not produce a value"},
	},
	"TYPE-0003": {
		Class:    ClassType,
		Template: "invalid argument type for '{{.Param}}' of `{{.Function}}`: expected {{.Expected}}, got {{.Got}}",
		Hints:    []string{"make sure you're passing the correct type of argument to the function"},
	},
	"TYPE-0004": {
		Class:    ClassType,
		Template: "cannot declare '{{.Name}}' as {{.Declared}} with a {{.Got}} value",
	},
	"TYPE-0005": {
		Class:    ClassType,
		Template: "cannot assign a {{.Got}} value to '{{.Name}}' which holds {{.Captured}}",
	},
	"TYPE-0006": {
		Class:    ClassType,
		Template: "cannot call '{{.Name}}': it is a {{.Got}}, not a function",
	},
	"TYPE-0007": {
		Class:    ClassType,
		Template: "invalid exit code {{.Code}}: must be a whole number in [0, {{.Max}}]",
	},

	// Arity errors
	"ARITY-0001": {
		Class:    ClassArity,
		Template: "`{{.Function}}` expects {{.Want}} argument(s), got {{.Got}}",
	},
	"ARITY-0002": {
		Class:    ClassArity,
		Template: "`{{.Function}}` expects at least {{.Want}} argument(s), got {{.Got}}",
	},

	// Index errors
	"INDEX-0001": {
		Class:    ClassIndex,
		Template: "invalid list index {{.Index}}: must be an integer in [0, {{.Length}})",
	},

	// Operator errors
	"OP-0001": {
		Class:    ClassOperator,
		Template: "cannot compare {{.LeftType}} {{.Operator}} {{.RightType}}",
	},
	"OP-0002": {
		Class:    ClassOperator,
		Template: "division by zero",
	},

	// Internal errors
	"INTERNAL-0001": {
		Class:    ClassInternal,
		Template: "statement cannot be interpreted: {{.Statement}}",
	},

	// I/O errors
	"IO-0001": {
		Class:    ClassIO,
		Template: "failed to {{.Operation}} '{{.Path}}': {{.GoError}}",
	},

	// Configuration errors
	"CONFIG-0001": {
		Class:    ClassConfig,
		Template: "invalid value {{.Value}} for {{.Key}}",
		Hints:    []string{"valid values: {{.Valid}}"},
	},
}

// New creates a HilfeError from the catalog.
// If the code is not found, creates a generic error with the message.
func New(code string, data map[string]any) *HilfeError {
	def, ok := ErrorCatalog[code]
	if !ok {
		msg := code
		if data != nil {
			if m, ok := data["message"].(string); ok {
				msg = m
			}
		}
		return &HilfeError{
			Class:   ClassInternal,
			Code:    code,
			Message: msg,
			Data:    data,
		}
	}

	msg := renderTemplate(def.Template, data)

	var hints []string
	for _, hintTmpl := range def.Hints {
		rendered := renderTemplate(hintTmpl, data)
		if rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &HilfeError{
		Class:   def.Class,
		Code:    code,
		Message: msg,
		Hints:   hints,
		Data:    data,
	}
}

// NewWithPosition creates a HilfeError with position information.
func NewWithPosition(code string, line, column int, data map[string]any) *HilfeError {
	err := New(code, data)
	err.Line = line
	err.Column = column
	return err
}

// As extracts a *HilfeError from err's chain.
func As(err error) (*HilfeError, bool) {
	var he *HilfeError
	if stderrors.As(err, &he) {
		return he, true
	}
	return nil, false
}

// HasCode reports whether err carries the given catalog code.
func HasCode(err error, code string) bool {
	he, ok := As(err)
	return ok && he.Code == code
}

// HasClass reports whether err is a HilfeError of the given class.
func HasClass(err error, class ErrorClass) bool {
	he, ok := As(err)
	return ok && he.Class == class
}

func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}

	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}

	return buf.String()
}

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(a)][len(b)]
}

// FindClosestMatch finds the closest match to input among candidates.
// Returns "" when nothing is close enough or the input matches exactly.
func FindClosestMatch(input string, candidates []string) string {
	if len(input) == 0 || len(candidates) == 0 {
		return ""
	}

	inputLower := strings.ToLower(input)

	// Sorted copy so ties resolve the same way on every run.
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)

	var bestMatch string
	bestDistance := -1

	for _, candidate := range sorted {
		dist := levenshteinDistance(inputLower, strings.ToLower(candidate))
		if bestDistance == -1 || dist < bestDistance {
			bestDistance = dist
			bestMatch = candidate
		}
	}

	// Short words (1-3): max 1 edit, medium (4-6): 2, longer: 3
	threshold := 1
	if len(input) >= 4 && len(input) <= 6 {
		threshold = 2
	} else if len(input) >= 7 {
		threshold = 3
	}

	if bestDistance <= 0 || bestDistance > threshold {
		return ""
	}

	return bestMatch
}

// NewUndefinedIdentifier creates an undefined identifier error with a
// "Did you mean" hint when a visible name is close.
func NewUndefinedIdentifier(name string, line, column int, visible []string) *HilfeError {
	err := NewWithPosition("UNDEF-0001", line, column, map[string]any{"Name": name})

	if suggestion := FindClosestMatch(name, visible); suggestion != "" {
		err.Hints = append(err.Hints, "Did you mean `"+suggestion+"`?")
	}

	return err
}
