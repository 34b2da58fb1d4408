// Package help provides topic-based documentation for HILFE, used by
// `hilfe describe` and the REPL's `:help` command.
package help

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sambeau/hilfe/pkg/hilfe/ast"
	"github.com/sambeau/hilfe/pkg/hilfe/errors"
	"github.com/sambeau/hilfe/pkg/hilfe/evaluator"
	"github.com/sambeau/hilfe/pkg/hilfe/lexer"
)

// TopicResult represents the help output for a topic
type TopicResult struct {
	Kind        string        `json:"kind"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Builtins    []BuiltinInfo `json:"builtins,omitempty"`
	Operators   []Operator    `json:"operators,omitempty"`
	Keywords    []Keyword     `json:"keywords,omitempty"`
	TypeNames   []string      `json:"type_names,omitempty"`
	Aliases     []string      `json:"aliases,omitempty"`
	Params      []string      `json:"params,omitempty"`
	Arity       string        `json:"arity,omitempty"`
	Category    string        `json:"category,omitempty"`
}

// BuiltinInfo describes one native function.
type BuiltinInfo struct {
	Name        string   `json:"name"`
	Params      []string `json:"params"`
	Arity       string   `json:"arity"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
}

// Operator describes a comparison operator.
type Operator struct {
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
}

// Keyword describes a reserved word.
type Keyword struct {
	Name        string `json:"name"`
	Usage       string `json:"usage"`
	Description string `json:"description"`
}

var operators = []Operator{
	{ast.OpEqual, "equal; values of different kinds are never equal"},
	{ast.OpLess, "less than; both numbers or both strings"},
	{ast.OpLessEqual, "less than or equal"},
	{ast.OpGreater, "greater than"},
	{ast.OpGreaterEqual, "greater than or equal"},
}

var keywords = map[string]Keyword{
	"if":       {"if", "if (a == b) {\n} else {\n}", "Run a block when the condition is true, and the optional else block otherwise."},
	"else":     {"else", "} else {", "Start the alternative block of an if."},
	"while":    {"while", "while (i < 10) {\n}", "Repeat a block while the condition is true."},
	"break":    {"break", "break", "Leave the innermost loop."},
	"continue": {"continue", "continue", "Skip to the next iteration of the innermost loop."},
}

var typeDescriptions = map[evaluator.ValueType]string{
	evaluator.StringType:   "Text in single or double quotes.",
	evaluator.NumberType:   "A double precision number. int and double are aliases.",
	evaluator.BoolType:     "true or false.",
	evaluator.FunctionType: "A user function or a built-in.",
	evaluator.ListType:     "An ordered sequence of values, built with list(...).",
	evaluator.MapType:      "String keys to values in insertion order, built with map().",
	evaluator.NullType:     "The value of a variable declared without an initializer.",
	evaluator.VoidType:     "The result of calls that return nothing. It cannot be stored.",
}

// DescribeTopic returns help information for the given topic. Topics are
// builtins, types, keywords and operators, or the name of a type, keyword
// or built-in function.
func DescribeTopic(topic string) (*TopicResult, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("no topic specified (try: builtins, types, keywords, operators, string, println)")
	}

	switch topic {
	case "builtins":
		return describeBuiltins(), nil
	case "types":
		return describeTypes(), nil
	case "keywords":
		return describeKeywords(), nil
	case "operators":
		return &TopicResult{Kind: "operator-list", Name: "operators", Operators: operators}, nil
	}

	if result := describeType(strings.ToLower(topic)); result != nil {
		return result, nil
	}
	if kw, ok := keywords[topic]; ok {
		return &TopicResult{Kind: "keyword", Name: kw.Name, Description: kw.Description, Keywords: []Keyword{kw}}, nil
	}
	if result := describeBuiltinByName(topic); result != nil {
		return result, nil
	}

	return nil, unknownTopicError(topic)
}

// Topics lists every name DescribeTopic accepts.
func Topics() []string {
	topics := []string{"builtins", "types", "keywords", "operators"}
	topics = append(topics, lexer.TypeNames...)
	topics = append(topics, lexer.Keywords...)
	for _, n := range evaluator.Natives() {
		topics = append(topics, n.Name())
	}
	return topics
}

func builtinInfo(n *evaluator.NativeFunction) BuiltinInfo {
	params := make([]string, len(n.Params()))
	for i, p := range n.Params() {
		params[i] = p.Type + " " + p.Name
	}

	arity := fmt.Sprintf("%d", len(params))
	if n.Variadic {
		arity = fmt.Sprintf("%d+", len(params)-1)
		params[len(params)-1] += "..."
	}

	return BuiltinInfo{
		Name:        n.Name(),
		Params:      params,
		Arity:       arity,
		Category:    n.Category,
		Description: n.Description,
	}
}

// describeBuiltins returns every builtin sorted by category, then name.
func describeBuiltins() *TopicResult {
	natives := evaluator.Natives()
	builtins := make([]BuiltinInfo, len(natives))
	for i, n := range natives {
		builtins[i] = builtinInfo(n)
	}
	sort.SliceStable(builtins, func(i, j int) bool {
		return builtins[i].Category < builtins[j].Category
	})

	return &TopicResult{
		Kind:     "builtin-list",
		Name:     "builtins",
		Builtins: builtins,
	}
}

func describeTypes() *TopicResult {
	names := append([]string{}, lexer.TypeNames...)
	sort.Strings(names)
	return &TopicResult{
		Kind:      "type-list",
		Name:      "types",
		TypeNames: names,
	}
}

func describeKeywords() *TopicResult {
	list := make([]Keyword, 0, len(lexer.Keywords))
	for _, name := range lexer.Keywords {
		list = append(list, keywords[name])
	}
	return &TopicResult{Kind: "keyword-list", Name: "keywords", Keywords: list}
}

// describeType returns help for a declared type name, or nil if name is not
// one. The result lists the builtins that take a value of that kind.
func describeType(name string) *TopicResult {
	kind, ok := evaluator.KindOf(name)
	if !ok {
		return nil
	}

	var aliases []string
	for _, other := range lexer.TypeNames {
		if k, _ := evaluator.KindOf(other); k == kind && other != name {
			aliases = append(aliases, other)
		}
	}

	var builtins []BuiltinInfo
	for _, n := range evaluator.Natives() {
		for _, p := range n.Parameters {
			if acceptsKind(p, kind) {
				builtins = append(builtins, builtinInfo(n))
				break
			}
		}
	}

	return &TopicResult{
		Kind:        "type",
		Name:        name,
		Description: typeDescriptions[kind],
		Aliases:     aliases,
		Builtins:    builtins,
	}
}

// acceptsKind reports whether p names kind explicitly. Parameters that
// accept any value do not count.
func acceptsKind(p evaluator.NativeParam, kind evaluator.ValueType) bool {
	for _, vt := range p.Accepts {
		if vt == kind {
			return true
		}
	}
	return false
}

func describeBuiltinByName(name string) *TopicResult {
	for _, n := range evaluator.Natives() {
		if n.Name() != name {
			continue
		}
		info := builtinInfo(n)
		return &TopicResult{
			Kind:        "builtin",
			Name:        info.Name,
			Description: info.Description,
			Params:      info.Params,
			Arity:       info.Arity,
			Category:    info.Category,
		}
	}
	return nil
}

// unknownTopicError suggests the closest known topic when there is one.
func unknownTopicError(topic string) error {
	if suggestion := errors.FindClosestMatch(topic, Topics()); suggestion != "" {
		return fmt.Errorf("unknown topic: %s\nDid you mean: %s?", topic, suggestion)
	}
	return fmt.Errorf("unknown topic: %s\nTry: builtins, types, keywords, operators", topic)
}
