/*
Package symbol implements the closed set of typed values an FSP
identifier can be bound to, plus a named symbol table
that owns them. Storing a value transfers ownership to the table;
reading returns a borrow; every Value carries a deep-Clone operation so
tables can be copied wholesale (used by the translator's nesting
discipline, see package tenv).

License

Governed by a 3-Clause BSD license. License file may be found in the
root folder of this module.
*/
package symbol

import (
	"fmt"

	"github.com/fsp-go/fspgo/action"
	"github.com/fsp-go/fspgo/setalg"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'fspgo.symbol'.
func tracer() tracing.Trace {
	return tracing.Select("fspgo.symbol")
}

// Kind discriminates the variant a Value holds.
type Kind int8

const (
	// KindInteger is a single signed integer constant.
	KindInteger Kind = iota
	// KindRange is an inclusive [low, high] pair with an optional
	// bound-variable name.
	KindRange
	// KindSet is an ordered label sequence (see package setalg).
	KindSet
	// KindRelabeling is an ordered list of (new-set, old-set) pairs.
	KindRelabeling
	// KindHiding is a set plus a hide/interface flag.
	KindHiding
	// KindPriority is a set plus a low/high flag.
	KindPriority
	// KindActionSet is an unordered, unique set of action ids.
	KindActionSet
	// KindProgress is an (optionally conditional) progress property.
	KindProgress
	// KindProcess is a parametric-process handle.
	KindProcess
	// KindLTS is an LTS value. The concrete type is supplied by
	// package lts; symbol only stores it behind the LTSValue
	// interface to avoid an import cycle.
	KindLTS
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "Integer"
	case KindRange:
		return "Range"
	case KindSet:
		return "Set"
	case KindRelabeling:
		return "Relabeling"
	case KindHiding:
		return "Hiding"
	case KindPriority:
		return "Priority"
	case KindActionSet:
		return "ActionSet"
	case KindProgress:
		return "Progress"
	case KindProcess:
		return "Process"
	case KindLTS:
		return "LTS"
	default:
		return fmt.Sprintf("Kind(%d)", int8(k))
	}
}

// Value is the interface every symbol variant satisfies.
type Value interface {
	Kind() Kind
	Clone() Value
}

// LTSValue is the narrow interface package lts's Graph type satisfies;
// symbol depends only on this to avoid a symbol<->lts import cycle.
type LTSValue interface {
	Value
	IsLTSValue()
}

// --- Integer ----------------------------------------------------------

// Integer is a single signed integer constant.
type Integer struct {
	Value int
}

func (Integer) Kind() Kind       { return KindInteger }
func (v Integer) Clone() Value   { return Integer{Value: v.Value} }
func (v Integer) String() string { return fmt.Sprintf("%d", v.Value) }

// --- Range --------------------------------------------------------------

// Range is an inclusive [Low, High] integer range, with an optional
// bound-variable name used when the range appears as an index binder
// (e.g. `T(I=0..N)`).
type Range struct {
	Low, High int
	Var       string // "" if unbound
}

func (Range) Kind() Kind     { return KindRange }
func (v Range) Clone() Value { return Range{Low: v.Low, High: v.High, Var: v.Var} }

// HasVar reports whether the range carries a bound-variable name.
func (v Range) HasVar() bool { return v.Var != "" }

// Iterate returns the inclusive sequence of integers in the range, in
// ascending order. A range-expression's bound variable drives per-value
// context expansion over this sequence, exactly like setalg.Set.Iterate
// does for label sets.
func (v Range) Iterate() []int {
	if v.High < v.Low {
		return nil
	}
	out := make([]int, 0, v.High-v.Low+1)
	for i := v.Low; i <= v.High; i++ {
		out = append(out, i)
	}
	return out
}

// --- Set ------------------------------------------------------------------

// Set wraps a setalg.Set as a symbol-table value.
type Set struct {
	*setalg.Set
}

func (Set) Kind() Kind { return KindSet }
func (v Set) Clone() Value {
	return Set{Set: v.Set.Clone()}
}

// --- Relabeling -------------------------------------------------------

// RelabelPair is one (new-set, old-set) entry of a relabeling
// specification.
type RelabelPair struct {
	New, Old *setalg.Set
}

// Relabeling is an ordered list of (new-set, old-set) pairs.
type Relabeling struct {
	Pairs []RelabelPair
}

func (Relabeling) Kind() Kind { return KindRelabeling }
func (v Relabeling) Clone() Value {
	pairs := make([]RelabelPair, len(v.Pairs))
	for i, p := range v.Pairs {
		pairs[i] = RelabelPair{New: p.New.Clone(), Old: p.Old.Clone()}
	}
	return Relabeling{Pairs: pairs}
}

// Add appends a (new, old) pair.
func (v *Relabeling) Add(newSet, oldSet *setalg.Set) {
	v.Pairs = append(v.Pairs, RelabelPair{New: newSet, Old: oldSet})
}

// --- Hiding -----------------------------------------------------------

// Hiding is a set plus a flag distinguishing "hide these" (default)
// from "expose only these" (interface mode).
type Hiding struct {
	Set       *setalg.Set
	Interface bool
}

func (Hiding) Kind() Kind { return KindHiding }
func (v Hiding) Clone() Value {
	return Hiding{Set: v.Set.Clone(), Interface: v.Interface}
}

// --- Priority ---------------------------------------------------------

// Priority is a set plus a low/high flag.
type Priority struct {
	Set *setalg.Set
	Low bool
}

func (Priority) Kind() Kind { return KindPriority }
func (v Priority) Clone() Value {
	return Priority{Set: v.Set.Clone(), Low: v.Low}
}

// --- ActionSet ------------------------------------------------------

// ActionSet is an unordered, unique set of interned action ids.
type ActionSet struct {
	ids map[action.ID]struct{}
}

// NewActionSet creates an empty action set.
func NewActionSet() *ActionSet {
	return &ActionSet{ids: make(map[action.ID]struct{})}
}

func (ActionSet) Kind() Kind { return KindActionSet }
func (v *ActionSet) Clone() Value {
	c := NewActionSet()
	for id := range v.ids {
		c.ids[id] = struct{}{}
	}
	return c
}

// Add inserts id; returns true if it was not already present.
func (v *ActionSet) Add(id action.ID) bool {
	if _, ok := v.ids[id]; ok {
		return false
	}
	v.ids[id] = struct{}{}
	return true
}

// Contains reports whether id is a member.
func (v *ActionSet) Contains(id action.ID) bool {
	_, ok := v.ids[id]
	return ok
}

// Len returns the number of distinct ids.
func (v *ActionSet) Len() int { return len(v.ids) }

// Ids returns the members in unspecified order.
func (v *ActionSet) Ids() []action.ID {
	out := make([]action.ID, 0, len(v.ids))
	for id := range v.ids {
		out = append(out, id)
	}
	return out
}

// Intersects reports whether v and other share at least one id.
func (v *ActionSet) Intersects(other *ActionSet) bool {
	small, big := v, other
	if len(big.ids) < len(small.ids) {
		small, big = big, small
	}
	for id := range small.ids {
		if big.Contains(id) {
			return true
		}
	}
	return false
}

// FromSet interns every label of s into at and returns the resulting
// ActionSet.
func FromSet(s *setalg.Set, at *action.Table) *ActionSet {
	as := NewActionSet()
	for _, label := range s.Labels() {
		as.Add(at.Insert(label))
	}
	return as
}

// --- Progress ---------------------------------------------------------

// Progress is a progress property: either unconditional (only Set
// matters) or conditional (violated only when Condition also holds).
type Progress struct {
	Set         *ActionSet
	Condition   *ActionSet // nil/empty unless Conditional
	Conditional bool
}

func (Progress) Kind() Kind { return KindProgress }
func (v Progress) Clone() Value {
	p := Progress{Set: v.Set.Clone().(*ActionSet), Conditional: v.Conditional}
	if v.Condition != nil {
		p.Condition = v.Condition.Clone().(*ActionSet)
	}
	return p
}

// Violated reports whether the property fails on a terminal set with
// the given internal actions: unconditional violates iff Set and the
// terminal actions are disjoint; conditional violates iff Condition
// intersects the terminal actions while Set does not.
func (v Progress) Violated(terminalActions *ActionSet) bool {
	disjoint := !v.Set.Intersects(terminalActions)
	if !v.Conditional {
		return disjoint
	}
	return v.Condition.Intersects(terminalActions) && disjoint
}

// --- Process (parametric-process handle) -------------------------------

// ProcessHandle is an opaque reference to an untranslated process-def
// or composite-def tree; package eval is the only consumer that
// interprets the Tree field.
type ProcessHandle struct {
	Names    []string // ordered parameter names
	Defaults []int    // ordered default values, same length as Names
	Tree     interface{}
}

func (ProcessHandle) Kind() Kind { return KindProcess }
func (v ProcessHandle) Clone() Value {
	names := append([]string(nil), v.Names...)
	defaults := append([]int(nil), v.Defaults...)
	return ProcessHandle{Names: names, Defaults: defaults, Tree: v.Tree}
}

// --- Table ------------------------------------------------------------

// Table is a named mapping from identifier to Value. Insert fails
// (returns false) if name is already bound; duplicate definitions are
// a semantic error the caller reports.
type Table struct {
	entries map[string]Value
}

// NewTable creates an empty symbol table.
func NewTable() *Table {
	return &Table{entries: make(map[string]Value)}
}

// Insert binds name to v. Returns false without modifying the table
// if name is already bound.
func (t *Table) Insert(name string, v Value) bool {
	if _, exists := t.entries[name]; exists {
		return false
	}
	t.entries[name] = v
	tracer().Debugf("symbol table: bound %q as %s", name, v.Kind())
	return true
}

// Lookup returns the value bound to name, and whether it was found.
// The returned Value is a borrow: mutating it (for mutable variants
// like ActionSet) mutates the stored value.
func (t *Table) Lookup(name string) (Value, bool) {
	v, ok := t.entries[name]
	return v, ok
}

// Remove deletes name's binding, if any.
func (t *Table) Remove(name string) {
	delete(t.entries, name)
}

// Size returns the number of bound identifiers.
func (t *Table) Size() int { return len(t.entries) }

// Clone deep-clones every stored value into a fresh table.
func (t *Table) Clone() *Table {
	c := NewTable()
	for name, v := range t.entries {
		c.entries[name] = v.Clone()
	}
	return c
}

// Each calls fn once per entry, in unspecified order.
func (t *Table) Each(fn func(name string, v Value)) {
	for name, v := range t.entries {
		fn(name, v)
	}
}

// TypeMismatchError reports that a lookup expected one Kind but found
// another.
type TypeMismatchError struct {
	Name     string
	Expected Kind
	Actual   Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("symbol %q: expected %s, found %s", e.Name, e.Expected, e.Actual)
}

// Expect looks up name and checks the stored value's Kind, returning
// an *UndeclaredError on a miss and a *TypeMismatchError if the kind
// disagrees with want.
func Expect(t *Table, name string, want Kind) (Value, error) {
	v, ok := t.Lookup(name)
	if !ok {
		return nil, &UndeclaredError{Name: name}
	}
	if v.Kind() != want {
		return nil, &TypeMismatchError{Name: name, Expected: want, Actual: v.Kind()}
	}
	return v, nil
}

// UndeclaredError reports an identifier lookup miss in a context that
// requires the identifier to be bound.
type UndeclaredError struct {
	Name string
}

func (e *UndeclaredError) Error() string {
	return fmt.Sprintf("undeclared identifier %q", e.Name)
}
