/*
Package eval translates an ast.Node tree into symbol-table values and
LTS graphs: a single recursive `Translate`-family of functions walking
the parse tree with a threaded environment. Result is the closed
tagged union every translation step returns.

License

Governed by a 3-Clause BSD license. License file may be found in the
root folder of this module.
*/
package eval

import (
	"fmt"

	"github.com/fsp-go/fspgo/lts"
	"github.com/fsp-go/fspgo/setalg"
	"github.com/fsp-go/fspgo/symbol"
)

// ResultKind discriminates the variant a Result holds.
type ResultKind int8

const (
	// KindInteger is a plain int, the value of any C-style expression.
	KindInteger ResultKind = iota
	// KindString is a single action-label string.
	KindString
	// KindRange is an inclusive [Low, High] integer range.
	KindRange
	// KindSet is an ordered action-label set.
	KindSet
	// KindRelabeling is a relabeling specification.
	KindRelabeling
	// KindHiding is a hide/interface set.
	KindHiding
	// KindPriority is a priority set.
	KindPriority
	// KindLTS is a single finished or in-progress LTS graph.
	KindLTS
	// KindLTSVector is an ordered list of LTS graphs (e.g. a
	// parallel-composition operand list before reduction).
	KindLTSVector
	// KindNodeVector is an ordered list of node indices (used by
	// analyses that return a set of states).
	KindNodeVector
	// KindIntegerVector is an ordered list of plain ints.
	KindIntegerVector
)

func (k ResultKind) String() string {
	switch k {
	case KindInteger:
		return "Integer"
	case KindString:
		return "String"
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
	case KindLTS:
		return "LTS"
	case KindLTSVector:
		return "LTSVector"
	case KindNodeVector:
		return "NodeVector"
	case KindIntegerVector:
		return "IntegerVector"
	default:
		return fmt.Sprintf("ResultKind(%d)", int8(k))
	}
}

// Result is the tagged union every eval function returns: exactly one
// of its fields is meaningful, selected by Kind.
type Result struct {
	Kind ResultKind

	Int    int
	Str    string
	Low    int
	High   int
	RngVar string

	Set *setalg.Set

	Relabel symbol.Relabeling
	Hide    symbol.Hiding
	Pri     symbol.Priority

	LTS    *lts.Graph
	LTSVec []*lts.Graph
	Nodes  []int
	Ints   []int
}

// IntResult wraps a plain integer.
func IntResult(v int) Result { return Result{Kind: KindInteger, Int: v} }

// StringResult wraps a single action-label string.
func StringResult(s string) Result { return Result{Kind: KindString, Str: s} }

// RangeResult wraps an inclusive integer range.
func RangeResult(low, high int) Result { return Result{Kind: KindRange, Low: low, High: high} }

// SetResult wraps an action-label set.
func SetResult(s *setalg.Set) Result { return Result{Kind: KindSet, Set: s} }

// LTSResult wraps a finished or in-progress LTS graph.
func LTSResult(g *lts.Graph) Result { return Result{Kind: KindLTS, LTS: g} }

// Bool reports whether the result's truth value is non-zero, the
// convention every FSP guard and if-condition uses.
func (r Result) Bool() bool {
	switch r.Kind {
	case KindInteger:
		return r.Int != 0
	case KindIntegerVector, KindNodeVector:
		return len(r.Ints) != 0 || len(r.Nodes) != 0
	default:
		return true
	}
}
