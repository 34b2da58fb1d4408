package evaluator

import (
	"sort"

	"github.com/emirpasic/gods/maps/linkedhashmap"

	"github.com/sambeau/hilfe/pkg/hilfe/errors"
)

// TypedVariable is a named binding together with the type name it was
// declared with and the runtime kind of the value it was created with.
type TypedVariable struct {
	Identifier   string
	DeclaredType string
	Value        Result
	RuntimeType  ValueType // captured at creation, never updated
}

// NewTypedVariable creates a variable, capturing the value's kind.
func NewTypedVariable(identifier, declaredType string, value Result) *TypedVariable {
	return &TypedVariable{
		Identifier:   identifier,
		DeclaredType: declaredType,
		Value:        value,
		RuntimeType:  value.Kind(),
	}
}

// Assign replaces the value without any type check.
func (v *TypedVariable) Assign(value Result) {
	v.Value = value
}

// CheckDeclared reports whether the initial value fits the declared type.
// Null always fits.
func (v *TypedVariable) CheckDeclared() error {
	want, ok := KindOf(v.DeclaredType)
	if !ok || v.Value.IsNull() || v.Value.Kind() == want {
		return nil
	}
	return errors.New("TYPE-0004", map[string]any{
		"Name":     v.Identifier,
		"Declared": v.DeclaredType,
		"Got":      string(v.Value.Kind()),
	})
}

// AssignChecked replaces the value if it has the captured runtime kind. A
// variable created with null is checked against its declared type instead.
func (v *TypedVariable) AssignChecked(value Result) error {
	if value.IsNull() {
		v.Value = value
		return nil
	}

	want := v.RuntimeType
	if want == NullType {
		if k, ok := KindOf(v.DeclaredType); ok {
			want = k
		} else {
			want = value.Kind()
		}
	}
	if value.Kind() != want {
		return errors.New("TYPE-0005", map[string]any{
			"Got":      string(value.Kind()),
			"Name":     v.Identifier,
			"Captured": string(want),
		})
	}

	v.Value = value
	return nil
}

// Scope is an ordered set of bindings with an optional parent. Lookups walk
// outwards through the parents.
type Scope struct {
	parent *Scope
	vars   *linkedhashmap.Map
}

// NewScope creates an empty scope. The global scope has a nil parent.
func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, vars: linkedhashmap.New()}
}

func (s *Scope) Parent() *Scope { return s.parent }

// Declare binds v in this scope, replacing any binding of the same name.
func (s *Scope) Declare(v *TypedVariable) {
	s.vars.Put(v.Identifier, v)
}

// LookupLocal finds a binding in this scope only.
func (s *Scope) LookupLocal(name string) (*TypedVariable, bool) {
	v, ok := s.vars.Get(name)
	if !ok {
		return nil, false
	}
	return v.(*TypedVariable), true
}

// Lookup finds the innermost binding for name.
func (s *Scope) Lookup(name string) (*TypedVariable, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.LookupLocal(name); ok {
			return v, true
		}
	}
	return nil, false
}

// Variables returns the bindings of this scope in declaration order.
func (s *Scope) Variables() []*TypedVariable {
	out := make([]*TypedVariable, 0, s.vars.Size())
	for _, v := range s.vars.Values() {
		out = append(out, v.(*TypedVariable))
	}
	return out
}

// VisibleNames returns every name reachable from s, sorted.
// This is used for fuzzy matching in error messages.
func (s *Scope) VisibleNames() []string {
	seen := make(map[string]bool)
	var names []string
	for cur := s; cur != nil; cur = cur.parent {
		for _, k := range cur.vars.Keys() {
			name := k.(string)
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}
