package evaluator

import (
	"math"
	"strconv"
	"strings"

	"github.com/emirpasic/gods/maps/linkedhashmap"

	"github.com/sambeau/hilfe/pkg/hilfe/errors"
)

// ValueType is the discriminant of a Result.
type ValueType string

const (
	VoidType     ValueType = "void"
	NullType     ValueType = "null"
	BoolType     ValueType = "bool"
	NumberType   ValueType = "number"
	StringType   ValueType = "string"
	FunctionType ValueType = "function"
	ListType     ValueType = "list"
	MapType      ValueType = "map"
)

// typeNames maps declared type names to the value kind they hold.
var typeNames = map[string]ValueType{
	"string":   StringType,
	"number":   NumberType,
	"int":      NumberType,
	"double":   NumberType,
	"bool":     BoolType,
	"function": FunctionType,
	"list":     ListType,
	"map":      MapType,
}

// KindOf returns the value kind a declared type name stands for.
func KindOf(typeName string) (ValueType, bool) {
	vt, ok := typeNames[typeName]
	return vt, ok
}

// Result is the value produced by evaluating any expression, and the value
// held by every variable. Only the payload field matching kind is set.
type Result struct {
	kind ValueType
	b    bool
	n    float64
	s    string
	fn   Function
	list []Result
	m    Map
}

var (
	// Void is produced by expressions that yield nothing, such as calls to
	// println or user functions.
	Void = Result{kind: VoidType}
	// Null is the value of a variable declared without an initializer.
	Null = Result{kind: NullType}
)

func NewBool(b bool) Result         { return Result{kind: BoolType, b: b} }
func NewNumber(n float64) Result    { return Result{kind: NumberType, n: n} }
func NewString(s string) Result     { return Result{kind: StringType, s: s} }
func NewFunction(f Function) Result { return Result{kind: FunctionType, fn: f} }

// NewList builds a list value. The elements are copied.
func NewList(elements ...Result) Result {
	list := make([]Result, len(elements))
	copy(list, elements)
	return Result{kind: ListType, list: list}
}

// NewMap wraps an ordered map as a value.
func NewMap(m Map) Result {
	return Result{kind: MapType, m: m}
}

// Kind returns the discriminant.
func (r Result) Kind() ValueType {
	if r.kind == "" {
		return VoidType
	}
	return r.kind
}

func (r Result) IsVoid() bool { return r.Kind() == VoidType }
func (r Result) IsNull() bool { return r.Kind() == NullType }

func (r Result) mismatch(expected ValueType) error {
	return errors.New("TYPE-0001", map[string]any{
		"Expected": string(expected),
		"Got":      string(r.Kind()),
	})
}

func (r Result) ExpectBool() (bool, error) {
	if r.Kind() != BoolType {
		return false, r.mismatch(BoolType)
	}
	return r.b, nil
}

func (r Result) ExpectNumber() (float64, error) {
	if r.Kind() != NumberType {
		return 0, r.mismatch(NumberType)
	}
	return r.n, nil
}

func (r Result) ExpectString() (string, error) {
	if r.Kind() != StringType {
		return "", r.mismatch(StringType)
	}
	return r.s, nil
}

func (r Result) ExpectFunction() (Function, error) {
	if r.Kind() != FunctionType {
		return nil, r.mismatch(FunctionType)
	}
	return r.fn, nil
}

// ExpectList returns a copy of the list elements.
func (r Result) ExpectList() ([]Result, error) {
	if r.Kind() != ListType {
		return nil, r.mismatch(ListType)
	}
	out := make([]Result, len(r.list))
	copy(out, r.list)
	return out, nil
}

func (r Result) ExpectMap() (Map, error) {
	if r.Kind() != MapType {
		return Map{}, r.mismatch(MapType)
	}
	return r.m, nil
}

// ExpectListIndex returns r as an index into a list of length max. The value
// must be a whole number in [0, max).
func (r Result) ExpectListIndex(max int) (int, error) {
	n, err := r.ExpectNumber()
	if err != nil {
		return 0, err
	}
	if n != math.Trunc(n) || n < 0 || n >= float64(max) {
		return 0, errors.New("INDEX-0001", map[string]any{
			"Index":  formatNumber(n),
			"Length": max,
		})
	}
	return int(n), nil
}

// MaxExitCode is the largest status a script can exit with.
const MaxExitCode = 255

// ExpectExitCode returns r as a process exit status: a whole number in
// [0, MaxExitCode].
func (r Result) ExpectExitCode() (int, error) {
	n, err := r.ExpectNumber()
	if err != nil {
		return 0, err
	}
	if n != math.Trunc(n) || n < 0 || n > MaxExitCode {
		return 0, errors.New("TYPE-0007", map[string]any{
			"Code": formatNumber(n),
			"Max":  MaxExitCode,
		})
	}
	return int(n), nil
}

// Equal reports whether r and other have the same kind and payload.
func (r Result) Equal(other Result) bool {
	if r.Kind() != other.Kind() {
		return false
	}

	switch r.Kind() {
	case VoidType, NullType:
		return true
	case BoolType:
		return r.b == other.b
	case NumberType:
		return r.n == other.n
	case StringType:
		return r.s == other.s
	case FunctionType:
		return r.fn == other.fn
	case ListType:
		if len(r.list) != len(other.list) {
			return false
		}
		for i := range r.list {
			if !r.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case MapType:
		return r.m.Equal(other.m)
	}
	return false
}

// String renders the value the way print shows it. Strings are raw.
func (r Result) String() string {
	if r.Kind() == StringType {
		return r.s
	}
	return r.inspect()
}

// inspect renders the value as it appears nested in a list or map, with
// strings quoted.
func (r Result) inspect() string {
	switch r.Kind() {
	case VoidType:
		return "<void>"
	case NullType:
		return "null"
	case BoolType:
		return strconv.FormatBool(r.b)
	case NumberType:
		return formatNumber(r.n)
	case StringType:
		return strconv.Quote(r.s)
	case FunctionType:
		return FunctionSignature(r.fn)
	case ListType:
		parts := make([]string, len(r.list))
		for i, el := range r.list {
			parts[i] = el.inspect()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case MapType:
		return r.m.String()
	}
	return "<" + string(r.Kind()) + ">"
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// Map is an insertion-ordered, string-keyed map value. The zero Map is empty.
// Maps are treated as immutable: With returns a modified copy.
type Map struct {
	entries *linkedhashmap.Map
}

// NewOrderedMap returns an empty Map.
func NewOrderedMap() Map {
	return Map{entries: linkedhashmap.New()}
}

func (m Map) Len() int {
	if m.entries == nil {
		return 0
	}
	return m.entries.Size()
}

func (m Map) Get(key string) (Result, bool) {
	if m.entries == nil {
		return Result{}, false
	}
	v, ok := m.entries.Get(key)
	if !ok {
		return Result{}, false
	}
	return v.(Result), true
}

// Keys returns the keys in insertion order.
func (m Map) Keys() []string {
	if m.entries == nil {
		return nil
	}
	keys := make([]string, 0, m.entries.Size())
	for _, k := range m.entries.Keys() {
		keys = append(keys, k.(string))
	}
	return keys
}

// With returns a copy of m with key set to value. An existing key keeps its
// position.
func (m Map) With(key string, value Result) Map {
	out := NewOrderedMap()
	if m.entries != nil {
		m.entries.Each(func(k, v interface{}) {
			out.entries.Put(k, v)
		})
	}
	out.entries.Put(key, value)
	return out
}

// Equal compares entries regardless of order.
func (m Map) Equal(other Map) bool {
	if m.Len() != other.Len() {
		return false
	}
	for _, k := range m.Keys() {
		a, _ := m.Get(k)
		b, ok := other.Get(k)
		if !ok || !a.Equal(b) {
			return false
		}
	}
	return true
}

func (m Map) String() string {
	parts := make([]string, 0, m.Len())
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		parts = append(parts, k+": "+v.inspect())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
