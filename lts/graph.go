/*
Package lts implements the Labelled Transition System graph and its
algebra: the node/edge store (this file), parallel composition,
relabeling/hiding/priority/property completion (compose.go), the
sequential-composition and name-resolution primitives used by the
incremental builder (seq.go), and deadlock/progress/minimization/
traces/simulation analyses (analysis.go).

License

Governed by a 3-Clause BSD license. License file may be found in the
root folder of this module.
*/
package lts

import (
	"fmt"

	"github.com/emirpasic/gods/sets/treeset"
	"github.com/fsp-go/fspgo/action"
	"github.com/fsp-go/fspgo/symbol"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'fspgo.lts'.
func tracer() tracing.Trace {
	return tracing.Select("fspgo.lts")
}

// NodeType discriminates the role a node plays in the graph.
type NodeType int8

const (
	// Normal is an ordinary state.
	Normal NodeType = iota
	// End is terminal state meaning successful termination.
	End
	// Error is a terminal state representing a property violation.
	Error
	// Incomplete is a placeholder produced by prefix-chain construction;
	// its Priv field names the context that will later be spliced in via
	// IncompCat.
	Incomplete
	// Unresolved is a placeholder for a by-name local-process reference,
	// resolved by Resolve.
	Unresolved
	// Zombie marks a node scheduled for removal by a compaction pass
	// (mergeEndNodes, tau-chain collapse); never visible on a published
	// LTS.
	Zombie
)

func (t NodeType) String() string {
	switch t {
	case Normal:
		return "Normal"
	case End:
		return "End"
	case Error:
		return "Error"
	case Incomplete:
		return "Incomplete"
	case Unresolved:
		return "Unresolved"
	case Zombie:
		return "Zombie"
	default:
		return fmt.Sprintf("NodeType(%d)", int8(t))
	}
}

// NoPriv is the sentinel "no private id" value. Real resolver groups
// and incomplete-node context ids start at 1, so the zero value for an
// int field is already the sentinel.
const NoPriv = 0

// Edge is an outgoing transition: an action id and a destination node
// index.
type Edge struct {
	Action action.ID
	Dest   int
}

type node struct {
	edges []Edge
}

type nodeInfo struct {
	priv int
	typ  NodeType
}

var actionComparator = func(a, b interface{}) int {
	x, y := a.(action.ID), b.(action.ID)
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

// Graph is an LTS: a directed multigraph of dense-indexed nodes, each
// owning an ordered edge list, plus an explicit alphabet and a
// translator-scratch (type, priv) side table.
type Graph struct {
	at       *action.Table
	nodes    []node
	infos    []nodeInfo
	alphabet *treeset.Set // of action.ID
	end, err int          // -1 means "none known"
	name     string

	termSets     []TerminalSet
	termComputed bool
}

// NewGraph creates an empty LTS (no states) bound to the given action
// table. Most callers want one of the leaf constructors (Stop, EndLTS,
// ErrorLTS, UnresolvedLTS) instead.
func NewGraph(at *action.Table) *Graph {
	return &Graph{at: at, end: -1, err: -1, alphabet: treeset.NewWith(actionComparator)}
}

func (g *Graph) addNode() int {
	g.nodes = append(g.nodes, node{})
	g.infos = append(g.infos, nodeInfo{priv: NoPriv, typ: Normal})
	return len(g.nodes) - 1
}

func (g *Graph) addEdge(state int, a action.ID, dest int) {
	g.nodes[state].edges = append(g.nodes[state].edges, Edge{Action: a, Dest: dest})
}

// AddState appends a fresh Normal state and returns its index. Exported
// for persist.ReadGraph, which rebuilds a deserialized graph node by
// node.
func (g *Graph) AddState() int { return g.addNode() }

// AddEdge appends an edge from state to dest labelled by a. Exported
// for persist.ReadGraph; see AddState.
func (g *Graph) AddEdge(state int, a action.ID, dest int) { g.addEdge(state, a, dest) }

// Stop builds the single-state "STOP" LTS: one Normal node, no edges.
func Stop(at *action.Table) *Graph {
	g := NewGraph(at)
	g.addNode()
	return g
}

// EndLTS builds the single-state "END" LTS.
func EndLTS(at *action.Table) *Graph {
	g := NewGraph(at)
	idx := g.addNode()
	g.SetType(idx, End)
	return g
}

// ErrorLTS builds the single-state "ERROR" LTS.
func ErrorLTS(at *action.Table) *Graph {
	g := NewGraph(at)
	idx := g.addNode()
	g.SetType(idx, Error)
	return g
}

// UnresolvedLTS builds a single-state placeholder LTS whose node carries
// priv as its private id, to be stitched in later by Resolve.
func UnresolvedLTS(at *action.Table, priv int) *Graph {
	g := NewGraph(at)
	idx := g.addNode()
	g.SetType(idx, Unresolved)
	g.SetPriv(idx, priv)
	return g
}

// IncompleteLTS builds a single-edge "zerocat" leaf used by prefix-chain
// translation: node 0 has a single edge labeled a to a fresh Incomplete
// node carrying priv as its context id.
func IncompleteLTS(at *action.Table, a action.ID, priv int) *Graph {
	g := NewGraph(at)
	g.addNode()
	idx := g.addNode()
	g.SetType(idx, Incomplete)
	g.SetPriv(idx, priv)
	g.addEdge(0, a, idx)
	g.UpdateAlphabet(a)
	return g
}

// NumStates returns the number of nodes, including node 0.
func (g *Graph) NumStates() int { return len(g.nodes) }

// NumTransitions returns the total number of edges across all nodes.
func (g *Graph) NumTransitions() int {
	n := 0
	for _, nd := range g.nodes {
		n += len(nd.edges)
	}
	return n
}

// Edges returns state's outgoing edges. Callers must not mutate the
// returned slice.
func (g *Graph) Edges(state int) []Edge { return g.nodes[state].edges }

// Name returns the process name assigned on publication, or "" before
// publication.
func (g *Graph) Name() string { return g.name }

// SetName assigns the process name (done by the registry on
// publication).
func (g *Graph) SetName(name string) { g.name = name }

// SetType sets state's node type, updating the cached End/Error indices.
func (g *Graph) SetType(state int, t NodeType) {
	g.infos[state].typ = t
	switch t {
	case End:
		g.end = state
	case Error:
		g.err = state
	}
}

// GetType returns state's node type.
func (g *Graph) GetType(state int) NodeType { return g.infos[state].typ }

// SetPriv sets state's translator-scratch private id.
func (g *Graph) SetPriv(state int, val int) { g.infos[state].priv = val }

// GetPriv returns state's translator-scratch private id, or NoPriv.
func (g *Graph) GetPriv(state int) int { return g.infos[state].priv }

// ReplacePriv rewrites every node whose private id equals old to new.
// Used by package resolver to broadcast a group-merge across an
// in-flight LTS.
func (g *Graph) ReplacePriv(old, new int) {
	if old == new {
		return
	}
	for i := range g.infos {
		if g.infos[i].priv == old {
			g.infos[i].priv = new
		}
	}
}

// EndState returns the cached End node index, or -1 if none is known.
func (g *Graph) EndState() int { return g.end }

// ErrState returns the cached Error node index, or -1 if none is known.
func (g *Graph) ErrState() int { return g.err }

// UpdateAlphabet adds id to the explicit alphabet. The alphabet may be
// a strict superset of the labels actually occurring on edges
// (alphabet extension).
func (g *Graph) UpdateAlphabet(id action.ID) {
	if g.alphabet == nil {
		g.alphabet = treeset.NewWith(actionComparator)
	}
	g.alphabet.Add(id)
}

// LookupAlphabet reports whether id is in the explicit alphabet.
func (g *Graph) LookupAlphabet(id action.ID) bool {
	if g.alphabet == nil {
		return false
	}
	return g.alphabet.Contains(id)
}

// AlphabetSize returns the number of distinct ids in the alphabet.
func (g *Graph) AlphabetSize() int {
	if g.alphabet == nil {
		return 0
	}
	return g.alphabet.Size()
}

// AlphabetIDs returns a snapshot of the alphabet in ascending id order.
func (g *Graph) AlphabetIDs() []action.ID {
	if g.alphabet == nil {
		return nil
	}
	vals := g.alphabet.Values()
	out := make([]action.ID, len(vals))
	for i, v := range vals {
		out[i] = v.(action.ID)
	}
	return out
}

func (g *Graph) setAlphabet(ids []action.ID) {
	g.alphabet = treeset.NewWith(actionComparator)
	for _, id := range ids {
		g.alphabet.Add(id)
	}
}

// MergeAlphabetFrom unions other's alphabet into g's.
func (g *Graph) MergeAlphabetFrom(other *Graph) {
	g.mergeAlphabetSet(other.alphabet)
}

func (g *Graph) mergeAlphabetSet(other *treeset.Set) {
	if other == nil {
		return
	}
	if g.alphabet == nil {
		g.alphabet = treeset.NewWith(actionComparator)
	}
	for _, v := range other.Values() {
		g.alphabet.Add(v)
	}
}

func (g *Graph) cloneAlphabetSet() *treeset.Set {
	c := treeset.NewWith(actionComparator)
	if g.alphabet != nil {
		for _, v := range g.alphabet.Values() {
			c.Add(v)
		}
	}
	return c
}

// IsDeterministic reports whether no node has two edges with the same
// action to different destinations (precondition for Property).
func (g *Graph) IsDeterministic() bool {
	for i := range g.nodes {
		seen := make(map[action.ID]int, len(g.nodes[i].edges))
		for _, e := range g.nodes[i].edges {
			if d, ok := seen[e.Action]; ok && d != e.Dest {
				return false
			}
			seen[e.Action] = e.Dest
		}
	}
	return true
}

// CloneLTS deep-copies the graph.
func (g *Graph) CloneLTS() *Graph {
	c := &Graph{at: g.at, end: g.end, err: g.err, name: g.name, termComputed: g.termComputed}
	c.nodes = make([]node, len(g.nodes))
	for i, n := range g.nodes {
		c.nodes[i].edges = append([]Edge(nil), n.edges...)
	}
	c.infos = append([]nodeInfo(nil), g.infos...)
	c.alphabet = g.cloneAlphabetSet()
	c.termSets = append([]TerminalSet(nil), g.termSets...)
	return c
}

// Kind implements symbol.Value.
func (g *Graph) Kind() symbol.Kind { return symbol.KindLTS }

// Clone implements symbol.Value.
func (g *Graph) Clone() symbol.Value { return g.CloneLTS() }

// IsLTSValue implements symbol.LTSValue.
func (g *Graph) IsLTSValue() {}

var _ symbol.LTSValue = (*Graph)(nil)
