/*
Package ast declares the parse-tree node shapes package eval consumes.
The lexer and grammar that produce these nodes are external
collaborators; this package fixes only the *shape* a node of each kind
carries, not how it is parsed. Node kinds form a closed sum type: one
Go struct per node kind rather than a single generic tree node with
child-class dispatch.

License

Governed by a 3-Clause BSD license. License file may be found in the
root folder of this module.
*/
package ast

import "github.com/fsp-go/fspgo"

// Node is satisfied by every parse-tree node kind.
type Node interface {
	Pos() fspgo.Position
}

type base struct {
	P fspgo.Position
}

// Pos implements Node.
func (b base) Pos() fspgo.Position { return b.P }

// At sets the node's source position; used by constructors in tests
// and by whatever external grammar builds these trees.
func At(p fspgo.Position) base { return base{P: p} }

// --- Literals and identifiers -------------------------------------------

// IntLit is an integer literal.
type IntLit struct {
	base
	Value int
}

// LowerCaseID is a lower-case identifier: an action label or a
// variable reference, context-dependent.
type LowerCaseID struct {
	base
	Name string
}

// UpperCaseID is an upper-case identifier: a const/range/set/process/
// progress/menu reference, context-dependent.
type UpperCaseID struct {
	base
	Name string
}

// --- Expressions ----------------------------------------------------------

// BinaryExpr is a binary operator expression over the full C integer
// operator set (||, &&, |, ^, &, ==, !=, <, >, <=, >=, <<, >>, +, -,
// *, /, %).
type BinaryExpr struct {
	base
	Op          string
	Left, Right Node
}

// UnaryExpr is a unary +, - or ! expression.
type UnaryExpr struct {
	base
	Op string
	X  Node
}

// RangeExpr builds an inclusive (Low, High) pair from two expressions.
type RangeExpr struct {
	base
	Low, High Node
}

// --- Top-level definitions -------------------------------------------------

// ConstDef is `const Name = Value`.
type ConstDef struct {
	base
	Name  string
	Value Node
}

// RangeDef is `range Name = Range`.
type RangeDef struct {
	base
	Name  string
	Range Node
}

// SetDef is `set Name = Set`.
type SetDef struct {
	base
	Name string
	Set  Node
}

// ProgressDef is `progress Name = Set` (unconditional) or
// `progress Name = Condition // Set` (conditional).
type ProgressDef struct {
	base
	Name        string
	Conditional bool
	Condition   Node
	Set         Node
}

// MenuDef is `menu Name = Set`.
type MenuDef struct {
	base
	Name string
	Set  Node
}

// --- Action labels and sets -------------------------------------------------

// ActionRange builds a set of action-label suffixes from either a
// single expression, a RangeExpr, or a set, optionally binding Var.
type ActionRange struct {
	base
	Var   string
	Range Node // an IntLit/BinaryExpr/RangeExpr, or nil if Set != nil
	Set   Node // a SetNode/SetExpr, or nil if Range != nil
}

// ActionLabels is a chain alternating string tokens, set tokens and
// bracketed ActionRanges, e.g. `a[i:1..2].b.{h,j,k}.c[3]`. Elements
// are LowerCaseID, SetNode or *ActionRange values.
type ActionLabels struct {
	base
	Elements []Node
}

// SetElements is a list of ActionLabels chains whose action sets are
// unioned.
type SetElements struct {
	base
	Chains []*ActionLabels
}

// SetExpr is `{ SetElements }`.
type SetExpr struct {
	base
	Elements *SetElements
}

// SetNode is either a set identifier reference or an inline SetExpr.
type SetNode struct {
	base
	Ident *UpperCaseID
	Expr  *SetExpr
}

// --- Prefix-action chains --------------------------------------------------

// PrefixActions is a chain of ActionLabels joined by `->`, e.g.
// `a -> b -> c`.
type PrefixActions struct {
	base
	Chain []*ActionLabels
}

// Indices is a chain of bracketed index expressions, `[e1][e2]...`.
type Indices struct {
	base
	Exprs []Node
}

// BaseLocalProcessKind discriminates the leaf forms of a local process.
type BaseLocalProcessKind int8

const (
	// BaseEnd is the `END` leaf.
	BaseEnd BaseLocalProcessKind = iota
	// BaseStop is the `STOP` leaf.
	BaseStop
	// BaseError is the `ERROR` leaf.
	BaseError
	// BaseRef is a `process_id indices?` leaf local-process reference.
	BaseRef
)

// BaseLocalProcess is one of END, STOP, ERROR, or a bare process-id
// reference (possibly indexed).
type BaseLocalProcess struct {
	base
	Kind    BaseLocalProcessKind
	Name    string   // only meaningful when Kind == BaseRef
	Indices *Indices // only meaningful when Kind == BaseRef
}

// ProcessElse is `else local_process`.
type ProcessElse struct {
	base
	Body Node
}

// IfElse is `if Cond then Then [else Else]`, evaluated as a
// local-process or composite-process depending on context.
type IfElse struct {
	base
	Cond Node
	Then Node
	Else *ProcessElse
}

// ActionPrefix is `guard? prefix_actions -> local_process`.
type ActionPrefix struct {
	base
	Guard  Node // nil if no guard
	Prefix *PrefixActions
	Local  Node
}

// Choice is a `|`-separated list of ActionPrefix alternatives.
type Choice struct {
	base
	Alternatives []*ActionPrefix
}

// LocalProcessDef is one `Q[i:R][j:S] = local_process` clause.
type LocalProcessDef struct {
	base
	Name   string
	Ranges *IndexRanges
	Local  Node
}

// LocalProcessDefs is a comma-separated list of LocalProcessDef.
type LocalProcessDefs struct {
	base
	Defs []*LocalProcessDef
}

// ProcessBody is `local_process [, local_process_defs]`.
type ProcessBody struct {
	base
	Local Node
	Defs  *LocalProcessDefs // nil if absent
}

// AlphaExt is `+ Set`.
type AlphaExt struct {
	base
	Set Node
}

// RelabelDef is one `new_labels / old_labels` pair.
type RelabelDef struct {
	base
	New *ActionLabels
	Old *ActionLabels
}

// BracesRelabelDefs is `{ RelabelDef, RelabelDef, ... }`.
type BracesRelabelDefs struct {
	base
	Defs []*RelabelDef
}

// Relabeling is `/ RelabelDef` or `/ BracesRelabelDefs`.
type Relabeling struct {
	base
	Defs []*RelabelDef
}

// HidingInterf is `\ Set` (hide) or `@ Set` (interface).
type HidingInterf struct {
	base
	Interface bool
	Set       Node
}

// IndexRanges is `[i:R][j:S]...`, used by local-process-defs and the
// FORALL combinator.
type IndexRanges struct {
	base
	Ranges []*ActionRange
}

// ProcessDef is `property? process_id process_body alpha_ext?
// relabeling? hiding_interf?`.
type ProcessDef struct {
	base
	Property bool
	Name     string
	Params   *Parameters // nil if the process takes no parameters
	Body     *ProcessBody
	Alpha    *AlphaExt
	Relabel  *Relabeling
	Hiding   *HidingInterf
}

// --- Composite processes ---------------------------------------------------

// Labeling is `action_labels :`.
type Labeling struct {
	base
	Labels *ActionLabels
}

// Sharing is `action_labels ::`.
type Sharing struct {
	base
	Labels *ActionLabels
}

// PrioritySpec is `>> Set` (low=true) or `<< Set` (low=false).
type PrioritySpec struct {
	base
	Low bool
	Set Node
}

// Arguments is `( ArgumentList )`.
type Arguments struct {
	base
	Exprs []Node
}

// ProcessRef is `process_id Arguments?`, used inside composite bodies.
type ProcessRef struct {
	base
	Name string
	Args *Arguments
}

// ProcessRefSeq is a ProcessRef used inside a sequential-composition
// chain.
type ProcessRefSeq struct {
	base
	Name string
	Args *Arguments
}

// SeqProcessList is a `;`-separated chain of ProcessRefSeq.
type SeqProcessList struct {
	base
	Refs []*ProcessRefSeq
}

// SeqComp is `seq_process_list ; base_local_process`.
type SeqComp struct {
	base
	List  *SeqProcessList
	Local Node
}

// RefComposite is `sharing? labeling? process_ref relabeling?`.
type RefComposite struct {
	base
	Sharing  *Sharing
	Labeling *Labeling
	Ref      *ProcessRef
	Relabel  *Relabeling
}

// ParenComposite is `sharing? labeling? ( ParallelComp ) relabeling?`.
type ParenComposite struct {
	base
	Sharing  *Sharing
	Labeling *Labeling
	Parallel *ParallelComp
	Relabel  *Relabeling
}

// ForallComposite is `forall IndexRanges composite_body`.
type ForallComposite struct {
	base
	Ranges *IndexRanges
	Body   Node
}

// CompositeElse is `else composite_body`.
type CompositeElse struct {
	base
	Body Node
}

// ParallelComp is a `||`-separated list of composite-body operands.
type ParallelComp struct {
	base
	Operands []Node
}

// CompositeDef is `||process_id = composite_body priority_spec?
// hiding_interf?`.
type CompositeDef struct {
	base
	Name     string
	Params   *Parameters // nil if the process takes no parameters
	Body     Node
	Priority *PrioritySpec
	Hiding   *HidingInterf
}

// --- Parameters -------------------------------------------------------------

// Parameters is `(Name1 = Default1, Name2 = Default2, ...)` on a
// process_id's declaration.
type Parameters struct {
	base
	Names    []string
	Defaults []Node
}

// Root is the translation unit: an ordered list of top-level
// definitions (const/range/set/progress/menu/process/composite-defs).
type Root struct {
	base
	Decls []Node
}
