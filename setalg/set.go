/*
Package setalg implements the ordered, duplicate-preserving action-label
set algebra used throughout the translator: dot-concatenation,
index-concatenation and bound-variable iteration over action-range sets.

License

Governed by a 3-Clause BSD license. License file may be found in the
root folder of this module.
*/
package setalg

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/emirpasic/gods/lists/arraylist"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'fspgo.setalg'.
func tracer() tracing.Trace {
	return tracing.Select("fspgo.setalg")
}

// Set is an ordered, possibly-repeated sequence of action-label
// strings, with an optional bound-variable name. Order is significant:
// it drives iteration and the "first axis varies fastest" convention
// used by DotCatSet and IndexizeSet.
type Set struct {
	items  *arraylist.List
	bound  string // "" means unbound
	hasVar bool
}

// New creates a Set from an initial (possibly empty) sequence of
// labels, in the given order. Duplicates are preserved.
func New(labels ...string) *Set {
	s := &Set{items: arraylist.New()}
	for _, l := range labels {
		s.items.Add(l)
	}
	return s
}

// Bind records the name of the set's bound variable (e.g. the "i" of
// an action-range `[i:0..N]`). An empty name clears the binding.
func (s *Set) Bind(name string) *Set {
	s.bound = name
	s.hasVar = name != ""
	return s
}

// BoundVar returns the set's bound-variable name and whether one is
// set.
func (s *Set) BoundVar() (string, bool) {
	return s.bound, s.hasVar
}

// Len returns the number of elements, counting duplicates.
func (s *Set) Len() int {
	return s.items.Size()
}

// Labels returns a snapshot slice of the set's elements in order.
func (s *Set) Labels() []string {
	out := make([]string, s.items.Size())
	for i, v := range s.items.Values() {
		out[i] = v.(string)
	}
	return out
}

// At returns the i-th element (0-based).
func (s *Set) At(i int) string {
	v, ok := s.items.Get(i)
	if !ok {
		panic(fmt.Sprintf("setalg: index %d out of range (len=%d)", i, s.items.Size()))
	}
	return v.(string)
}

// Append implements "+=": appends every element of other after this
// set's own elements, preserving argument order (multi-set union).
func (s *Set) Append(other *Set) *Set {
	for _, v := range other.Labels() {
		s.items.Add(v)
	}
	return s
}

// AppendLabel appends a single label.
func (s *Set) AppendLabel(label string) *Set {
	s.items.Add(label)
	return s
}

// DotCat replaces every element e with "e.s" (literal dot
// concatenation).
func (s *Set) DotCat(suffix string) *Set {
	n := s.items.Size()
	for i := 0; i < n; i++ {
		v, _ := s.items.Get(i)
		s.items.Set(i, v.(string)+"."+suffix)
	}
	return s
}

// DotCatSet produces the cartesian dot-concatenation of s (the "A"
// operand) with other (the "B" operand): for A=[a1..am], B=[b1..bn],
// the result is [a1.b1, a2.b1, ..., am.b1, a1.b2, ..., am.bn], with
// A varying fastest. The result has length len(s)*len(other) and
// replaces s in place.
func (s *Set) DotCatSet(other *Set) *Set {
	a := s.Labels()
	b := other.Labels()
	result := make([]string, 0, len(a)*len(b))
	for j := 0; j < len(b); j++ {
		for i := 0; i < len(a); i++ {
			result = append(result, a[i]+"."+b[j])
		}
	}
	s.replace(result)
	return s
}

// IndexizeConst appends "[i]" to every element.
func (s *Set) IndexizeConst(i int) *Set {
	suffix := "[" + strconv.Itoa(i) + "]"
	n := s.items.Size()
	for k := 0; k < n; k++ {
		v, _ := s.items.Get(k)
		s.items.Set(k, v.(string)+suffix)
	}
	return s
}

// IndexizeRange expands each element e into e[low], e[low+1], ...,
// e[high], with low varying fastest (i.e. all elements get [low]
// before any gets [low+1]).
func (s *Set) IndexizeRange(low, high int) *Set {
	a := s.Labels()
	result := make([]string, 0, len(a)*(high-low+1))
	for idx := low; idx <= high; idx++ {
		suffix := "[" + strconv.Itoa(idx) + "]"
		for _, e := range a {
			result = append(result, e+suffix)
		}
	}
	s.replace(result)
	return s
}

// IndexizeSet is the bracketed analogue of DotCatSet: same cartesian
// expansion, but joining with "[" + b + "]" instead of "." + b.
func (s *Set) IndexizeSet(other *Set) *Set {
	a := s.Labels()
	b := other.Labels()
	result := make([]string, 0, len(a)*len(b))
	for j := 0; j < len(b); j++ {
		for i := 0; i < len(a); i++ {
			result = append(result, a[i]+"["+b[j]+"]")
		}
	}
	s.replace(result)
	return s
}

func (s *Set) replace(labels []string) {
	s.items = arraylist.New()
	for _, l := range labels {
		s.items.Add(l)
	}
}

// Clone deep-copies the set.
func (s *Set) Clone() *Set {
	c := New(s.Labels()...)
	c.bound, c.hasVar = s.bound, s.hasVar
	return c
}

// Binding pairs a bound variable's textual value with its position in
// the set, used by the evaluator to expand a context once per
// iteration.
type Binding struct {
	Value string
	Index int
}

// Iterate returns one Binding per element, in order, pairing each
// element's string value with its 0-based position. Callers use this
// to expand a translation context once per bound-variable value when
// the set carries a bound variable (Bind was called with a non-empty
// name); it is harmless to call on an unbound set too.
func (s *Set) Iterate() []Binding {
	labels := s.Labels()
	out := make([]Binding, len(labels))
	for i, l := range labels {
		out[i] = Binding{Value: l, Index: i}
	}
	return out
}

// String renders the set in brace notation, mostly useful for
// tracing/debugging.
func (s *Set) String() string {
	var b strings.Builder
	b.WriteString("{")
	for i, l := range s.Labels() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(l)
	}
	b.WriteString("}")
	return b.String()
}
