package lts

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fsp-go/fspgo/action"
	"github.com/fsp-go/fspgo/symbol"
)

// Finding is one deadlock or property-violation report.
type Finding struct {
	State int
	Kind  string // "Deadlock" or "Property violation"
	Trace []action.ID
}

// shortestTrace reconstructs, from BFS back-pointers, the shortest
// action sequence from node 0 to state. Shared by DeadlockAnalysis and
// TerminalSets.
func shortestTrace(state int, back []int, via []action.ID) []action.ID {
	var rev []action.ID
	s := state
	for s != 0 {
		rev = append(rev, via[s])
		s = back[s]
	}
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev
}

// DeadlockAnalysis performs a BFS from node 0; any reachable state with
// zero outgoing edges and type other than End is either a Deadlock
// (Normal) or a Property violation (Error), reported with its shortest
// action trace.
func (g *Graph) DeadlockAnalysis() []Finding {
	n := len(g.nodes)
	if n == 0 {
		return nil
	}
	seen := make([]bool, n)
	back := make([]int, n)
	via := make([]action.ID, n)
	seen[0] = true
	queue := []int{0}

	var findings []Finding
	for len(queue) > 0 {
		state := queue[0]
		queue = queue[1:]
		for _, e := range g.nodes[state].edges {
			if !seen[e.Dest] {
				seen[e.Dest] = true
				back[e.Dest] = state
				via[e.Dest] = e.Action
				queue = append(queue, e.Dest)
			}
		}
		if len(g.nodes[state].edges) == 0 && g.GetType(state) != End {
			kind := "Deadlock"
			if g.GetType(state) != Normal {
				kind = "Property violation"
			}
			findings = append(findings, Finding{
				State: state,
				Kind:  kind,
				Trace: shortestTrace(state, back, via),
			})
		}
	}
	return findings
}

// TerminalSet is a strongly connected, proper subset of the graph with
// no outgoing edges.
type TerminalSet struct {
	Trace   []action.ID
	Actions *symbol.ActionSet
}

type dfsFrame struct {
	state    int
	childIdx int
}

// TerminalSets runs an iterative Tarjan SCC pass over a DFS spine and
// returns every non-trivial terminal component, caching the result. Each
// component's trace is rebuilt from BFS back-pointers, so it is a
// shortest trace from node 0 to the component root.
func (g *Graph) TerminalSets() []TerminalSet {
	if g.termComputed {
		return g.termSets
	}
	g.termComputed = true

	n := len(g.nodes)
	if n == 0 {
		g.termSets = nil
		return nil
	}

	index := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	inComponent := make([]bool, n)
	for i := range index {
		index[i] = -1
	}

	back := make([]int, n)
	via := make([]action.ID, n)
	reached := make([]bool, n)
	reached[0] = true
	for queue := []int{0}; len(queue) > 0; queue = queue[1:] {
		for _, e := range g.nodes[queue[0]].edges {
			if !reached[e.Dest] {
				reached[e.Dest] = true
				back[e.Dest], via[e.Dest] = queue[0], e.Action
				queue = append(queue, e.Dest)
			}
		}
	}

	var tstack []int
	counter := 0
	var dfs []dfsFrame

	index[0], lowlink[0] = counter, counter
	counter++
	tstack = append(tstack, 0)
	onStack[0] = true
	dfs = append(dfs, dfsFrame{state: 0})

	var result []TerminalSet

	for len(dfs) > 0 {
		top := &dfs[len(dfs)-1]
		state := top.state

		if top.childIdx < len(g.nodes[state].edges) {
			e := g.nodes[state].edges[top.childIdx]
			top.childIdx++
			child := e.Dest

			if index[child] == -1 {
				index[child], lowlink[child] = counter, counter
				counter++
				tstack = append(tstack, child)
				onStack[child] = true
				dfs = append(dfs, dfsFrame{state: child})
			} else if onStack[child] && index[child] < lowlink[state] {
				lowlink[state] = index[child]
			}
			continue
		}

		dfs = dfs[:len(dfs)-1]
		if len(dfs) > 0 {
			parent := &dfs[len(dfs)-1]
			if lowlink[state] < lowlink[parent.state] {
				lowlink[parent.state] = lowlink[state]
			}
		}

		if lowlink[state] != index[state] {
			continue
		}

		var comp []int
		for {
			s := tstack[len(tstack)-1]
			tstack = tstack[:len(tstack)-1]
			onStack[s] = false
			comp = append(comp, s)
			if s == state {
				break
			}
		}

		if len(comp) == n {
			// Trivial terminal set: the whole graph. Not of interest.
			continue
		}

		for _, s := range comp {
			inComponent[s] = true
		}
		terminal := true
		actSet := symbol.NewActionSet()
	check:
		for _, s := range comp {
			for _, e := range g.nodes[s].edges {
				if !inComponent[e.Dest] {
					terminal = false
					break check
				}
				actSet.Add(e.Action)
			}
		}
		if terminal {
			result = append(result, TerminalSet{
				Trace:   shortestTrace(state, back, via),
				Actions: actSet,
			})
		}
		for _, s := range comp {
			inComponent[s] = false
		}
	}

	g.termSets = result
	return result
}

// ProgressViolation reports one terminal set that violates a progress
// property.
type ProgressViolation struct {
	Trace   []action.ID
	Actions *symbol.ActionSet
}

// Progress checks prop against every cached terminal set, returning one
// ProgressViolation per violating set; symbol.Progress.Violated
// implements the violation predicate.
func (g *Graph) Progress(prop symbol.Progress) []ProgressViolation {
	var violations []ProgressViolation
	for _, ts := range g.TerminalSets() {
		if prop.Violated(ts.Actions) {
			violations = append(violations, ProgressViolation{Trace: ts.Trace, Actions: ts.Actions})
		}
	}
	return violations
}

func actionSignature(edges []Edge) string {
	seen := make(map[action.ID]bool, len(edges))
	ids := make([]int, 0, len(edges))
	for _, e := range edges {
		if !seen[e.Action] {
			seen[e.Action] = true
			ids = append(ids, int(e.Action))
		}
	}
	sort.Ints(ids)
	return fmt.Sprint(ids)
}

func partitionSetSignature(s map[int]bool) string {
	ids := make([]int, 0, len(s))
	for k := range s {
		ids = append(ids, k)
	}
	sort.Ints(ids)
	return fmt.Sprint(ids)
}

// Minimize reduces g up to weak bisimulation: a partition-refinement
// pass groups states by the set of partitions reachable per action
// until no split applies, collapsing each final partition to one state;
// a tau-chain collapse pass then merges maximal single-in/single-out
// tau chains onto their last node.
func (g *Graph) Minimize() {
	n := len(g.nodes)
	if n == 0 {
		return
	}

	partitionOf := make([]int, n)
	var partitions [][]int
	sigToIdx := make(map[string]int)
	for i := 0; i < n; i++ {
		sig := actionSignature(g.nodes[i].edges)
		idx, ok := sigToIdx[sig]
		if !ok {
			idx = len(partitions)
			partitions = append(partitions, nil)
			sigToIdx[sig] = idx
		}
		partitions[idx] = append(partitions[idx], i)
		partitionOf[i] = idx
	}

	reachablePartitions := func(state int, a action.ID) map[int]bool {
		s := make(map[int]bool)
		for _, e := range g.nodes[state].edges {
			if e.Action == a {
				s[partitionOf[e.Dest]] = true
			}
		}
		return s
	}

	for {
		splitDone := false
		for k := 0; k < len(partitions); k++ {
			part := partitions[k]
			if len(part) <= 1 {
				continue
			}
			rep := part[0]
			actionsSeen := make(map[action.ID]bool)
			for _, e := range g.nodes[rep].edges {
				actionsSeen[e.Action] = true
			}

			split := false
			for a := range actionsSeen {
				groups := make(map[string][]int)
				var order []string
				for _, s := range part {
					sig := partitionSetSignature(reachablePartitions(s, a))
					if _, ok := groups[sig]; !ok {
						order = append(order, sig)
					}
					groups[sig] = append(groups[sig], s)
				}
				if len(groups) <= 1 {
					continue
				}

				first := groups[order[0]]
				partitions[k] = first
				for _, s := range first {
					partitionOf[s] = k
				}
				for _, sig := range order[1:] {
					newIdx := len(partitions)
					partitions = append(partitions, groups[sig])
					for _, s := range groups[sig] {
						partitionOf[s] = newIdx
					}
				}
				split = true
				splitDone = true
				break
			}
			if split {
				break // restart the scan: partitions changed underfoot.
			}
		}
		if !splitDone {
			break
		}
	}

	if len(partitions) != n {
		newNodes := make([]node, len(partitions))
		newInfos := make([]nodeInfo, len(partitions))
		for k, part := range partitions {
			rep := part[0]
			actionsSeen := make(map[action.ID]bool)
			for _, e := range g.nodes[rep].edges {
				actionsSeen[e.Action] = true
			}
			for a := range actionsSeen {
				dests := reachablePartitions(rep, a)
				for dest := range dests {
					newNodes[k].edges = append(newNodes[k].edges, Edge{Action: a, Dest: dest})
				}
			}
			newInfos[k] = nodeInfo{priv: NoPriv, typ: Normal}
			anyEnd, anyError := false, false
			for _, s := range part {
				switch g.GetType(s) {
				case Error:
					anyError = true
				case End:
					anyEnd = true
				}
			}
			switch {
			case anyError:
				newInfos[k].typ = Error
			case anyEnd:
				newInfos[k].typ = End
			}
		}
		g.nodes = newNodes
		g.infos = newInfos
		g.end, g.err = -1, -1
		for i, inf := range g.infos {
			if inf.typ == End {
				g.end = i
			} else if inf.typ == Error {
				g.err = i
			}
		}
		g.termComputed = false
	}

	g.collapseTauChains()
}

// collapseTauChains merges maximal chains s1 -tau-> s2 -tau-> ... -> sk
// (where every intermediate node has exactly one outgoing edge, tau,
// and exactly one incoming edge) onto sk, preserving weak bisimulation.
func (g *Graph) collapseTauChains() {
	n := len(g.nodes)
	if n == 0 {
		return
	}
	ingoing := make([]int, n)
	for i := range g.nodes {
		for _, e := range g.nodes[i].edges {
			ingoing[e.Dest]++
		}
	}

	seen := make([]bool, n)
	collapse := make(map[int]int)
	seen[0] = true
	queue := []int{0}

	for len(queue) > 0 {
		state := queue[0]
		queue = queue[1:]
		next := state

		if len(g.nodes[state].edges) == 1 && g.nodes[state].edges[0].Action == action.Tau {
			next = g.nodes[state].edges[0].Dest
			for len(g.nodes[next].edges) == 1 && g.nodes[next].edges[0].Action == action.Tau &&
				ingoing[next] == 1 && g.nodes[next].edges[0].Dest != 0 {
				if !seen[next] {
					seen[next] = true
					g.SetType(next, Zombie)
				}
				next = g.nodes[next].edges[0].Dest
			}

			if state != next {
				collapse[state] = next
				g.SetType(state, Zombie)
			} else {
				var kept []Edge
				for _, e := range g.nodes[state].edges {
					if !(e.Dest == state && e.Action == action.Tau) {
						kept = append(kept, e)
					}
				}
				g.nodes[state].edges = kept
			}
		}

		for _, e := range g.nodes[next].edges {
			if !seen[e.Dest] {
				seen[e.Dest] = true
				queue = append(queue, e.Dest)
			}
		}
	}

	for i := range g.nodes {
		for j := range g.nodes[i].edges {
			if to, ok := collapse[g.nodes[i].edges[j].Dest]; ok {
				g.nodes[i].edges[j].Dest = to
			}
		}
	}
	g.removeType(Zombie, -1, true)
}

// TraceVisitor receives one complete loop-free action trace.
type TraceVisitor func(trace []action.ID)

// Traces performs a DFS from node 0, treating a repeated (src, action,
// dst) edge on the current path as a cycle closure: it emits the
// current trace and does not descend further.
func (g *Graph) Traces(visit TraceVisitor) {
	if len(g.nodes) == 0 {
		return
	}
	type edgeKey struct {
		src int
		a   action.ID
		dst int
	}
	marked := make(map[edgeKey]bool)
	var trace []action.ID

	var dfs func(state int)
	dfs = func(state int) {
		for _, e := range g.nodes[state].edges {
			key := edgeKey{state, e.Action, e.Dest}
			if marked[key] {
				visit(append([]action.ID(nil), trace...))
				continue
			}
			marked[key] = true
			trace = append(trace, e.Action)
			dfs(e.Dest)
			trace = trace[:len(trace)-1]
			delete(marked, key)
		}
	}
	dfs(0)
}

// Simulator is an interactive cursor over a graph, used by the shell's
// simulate command.
type Simulator struct {
	g   *Graph
	cur int
}

// NewSimulator starts a simulation at node 0.
func NewSimulator(g *Graph) *Simulator { return &Simulator{g: g, cur: 0} }

// State returns the current cursor state.
func (s *Simulator) State() int { return s.cur }

// Choices splits the current state's outgoing edges into those whose
// action is a member of menu (user-choosable) and the rest
// (system-chosen); a nil menu makes every edge system-chosen.
func (s *Simulator) Choices(menu *symbol.ActionSet) (choosable, systemChosen []Edge) {
	for _, e := range s.g.nodes[s.cur].edges {
		if menu != nil && menu.Contains(e.Action) {
			choosable = append(choosable, e)
		} else {
			systemChosen = append(systemChosen, e)
		}
	}
	return
}

// Step advances the cursor along e.
func (s *Simulator) Step(e Edge) { s.cur = e.Dest }

// Done reports whether the cursor has no outgoing edges.
func (s *Simulator) Done() bool { return len(s.g.nodes[s.cur].edges) == 0 }

// WriteGraphviz emits a minimal GraphViz "dot" rendering of g, drawing
// End states as double circles and Error states as boxes.
func (g *Graph) WriteGraphviz(w io.Writer) error {
	name := g.name
	if name == "" {
		name = "LTS"
	}
	if _, err := fmt.Fprintf(w, "digraph %s {\n", name); err != nil {
		return err
	}
	for i := range g.nodes {
		shape := "circle"
		switch g.GetType(i) {
		case End:
			shape = "doublecircle"
		case Error:
			shape = "box"
		}
		if _, err := fmt.Fprintf(w, "  %d [shape=%s];\n", i, shape); err != nil {
			return err
		}
		for _, e := range g.nodes[i].edges {
			if _, err := fmt.Fprintf(w, "  %d -> %d [label=%q];\n", i, e.Dest, g.at.Label(e.Action)); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}

// BasicLabel implements the ".N -> [N]" label mangling used by the
// "basic" process emitter: every ".<digits>" run is rewritten to
// "[<digits>]", so emitted labels parse back as index syntax. The
// transform is lossy: a label that already mixes a literal "[<digits>]"
// tail with a ".<digits>" tail is ambiguous after the rewrite, and
// BasicLabel does not attempt to disambiguate that case.
func BasicLabel(label string) string {
	var b strings.Builder
	i := 0
	for i < len(label) {
		if label[i] == '.' && i+1 < len(label) && isDigit(label[i+1]) {
			j := i + 1
			for j < len(label) && isDigit(label[j]) {
				j++
			}
			b.WriteByte('[')
			b.WriteString(label[i+1 : j])
			b.WriteByte(']')
			i = j
			continue
		}
		b.WriteByte(label[i])
		i++
	}
	return b.String()
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
