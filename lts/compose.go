package lts

import (
	"strings"

	"github.com/fsp-go/fspgo"
	"github.com/fsp-go/fspgo/action"
	"github.com/fsp-go/fspgo/setalg"
)

// Compose builds the reachable subset of the product automaton of p
// and q. A composite state (ip, iq) is only allocated once it is
// actually reached from (0, 0), so composition never materializes the
// full |P|x|Q| product space.
func Compose(p, q *Graph, at *action.Table) *Graph {
	nq := len(q.nodes)
	g := NewGraph(at)

	direct := make(map[int]int)
	var inverse []int

	newState := func(ip, iq int) int {
		key := ip*nq + iq
		if idx, ok := direct[key]; ok {
			return idx
		}
		idx := g.addNode()
		typ := Normal
		switch {
		case p.GetType(ip) == Error || q.GetType(iq) == Error:
			typ = Error
		case p.GetType(ip) == End && q.GetType(iq) == End:
			typ = End
		}
		g.SetType(idx, typ)
		direct[key] = idx
		inverse = append(inverse, key)
		return idx
	}

	newState(0, 0)
	idx := 0
	for idx < len(inverse) {
		key := inverse[idx]
		ip, iq := key/nq, key%nq

		for _, ep := range p.nodes[ip].edges {
			if !q.LookupAlphabet(ep.Action) {
				dst := newState(ep.Dest, iq)
				g.addEdge(idx, ep.Action, dst)
				continue
			}
			for _, eq := range q.nodes[iq].edges {
				if eq.Action == ep.Action {
					dst := newState(ep.Dest, eq.Dest)
					g.addEdge(idx, ep.Action, dst)
				}
			}
		}

		for _, eq := range q.nodes[iq].edges {
			if !p.LookupAlphabet(eq.Action) {
				dst := newState(ip, eq.Dest)
				g.addEdge(idx, eq.Action, dst)
			}
		}

		idx++
	}

	g.MergeAlphabetFrom(p)
	g.MergeAlphabetFrom(q)
	return g
}

// Labeling replaces every action label a on every edge with label+"."+a,
// interning the new labels and rewriting the alphabet to match.
func (g *Graph) Labeling(label string) *Graph {
	mapping := make(map[action.ID]action.ID)
	var newAlphabet []action.ID
	for _, a := range g.AlphabetIDs() {
		newID := g.at.Insert(label + "." + g.at.Label(a))
		mapping[a] = newID
		newAlphabet = append(newAlphabet, newID)
	}
	g.setAlphabet(newAlphabet)
	for i := range g.nodes {
		for j := range g.nodes[i].edges {
			g.nodes[i].edges[j].Action = mapping[g.nodes[i].edges[j].Action]
		}
	}
	g.termComputed = false
	return g
}

// LabelingSet implements the set-valued form of labeling: the parallel
// composition of one Labeling(labels[i]) copy of g per element of
// labels.
func LabelingSet(g *Graph, labels *setalg.Set, at *action.Table) *Graph {
	items := labels.Labels()
	if len(items) == 0 {
		return g
	}
	result := g.CloneLTS().Labeling(items[0])
	for _, l := range items[1:] {
		copyG := g.CloneLTS().Labeling(l)
		result = Compose(result, copyG, at)
	}
	return result
}

// Sharing expands every edge into len(labels) edges, one per prefix in
// labels: action a becomes labels[0]+"."+a, labels[1]+"."+a, ...
func (g *Graph) Sharing(labels *setalg.Set) *Graph {
	items := labels.Labels()
	mapping := make(map[action.ID][]action.ID)
	var newAlphabet []action.ID
	for _, a := range g.AlphabetIDs() {
		label := g.at.Label(a)
		ids := make([]action.ID, 0, len(items))
		for _, l := range items {
			newID := g.at.Insert(l + "." + label)
			ids = append(ids, newID)
			newAlphabet = append(newAlphabet, newID)
		}
		mapping[a] = ids
	}
	g.setAlphabet(newAlphabet)
	for i := range g.nodes {
		newEdges := make([]Edge, 0, len(g.nodes[i].edges)*len(items))
		for _, e := range g.nodes[i].edges {
			for _, newID := range mapping[e.Action] {
				newEdges = append(newEdges, Edge{Action: newID, Dest: e.Dest})
			}
		}
		g.nodes[i].edges = newEdges
	}
	g.termComputed = false
	return g
}

// Relabeling applies every (new, old) pair of pairs in turn: for each
// old label in oldSet, every alphabet action whose string form has that
// label as a literal prefix is replaced by one edge per newSet element,
// substituting the prefix.
func (g *Graph) Relabeling(newSet, oldSet *setalg.Set) *Graph {
	for _, old := range oldSet.Labels() {
		g.relabelOne(newSet, old)
	}
	return g
}

func (g *Graph) relabelOne(newSet *setalg.Set, oldLabel string) {
	mapping := make(map[action.ID][]action.ID)
	kept := make(map[action.ID]bool)
	for _, a := range g.AlphabetIDs() {
		kept[a] = true
	}
	for _, a := range g.AlphabetIDs() {
		label := g.at.Label(a)
		if !strings.HasPrefix(label, oldLabel) {
			continue
		}
		suffix := label[len(oldLabel):]
		ids := make([]action.ID, 0, newSet.Len())
		for _, nl := range newSet.Labels() {
			newID := g.at.Insert(nl + suffix)
			ids = append(ids, newID)
			kept[newID] = true
		}
		delete(kept, a)
		mapping[a] = ids
	}

	var alphaSlice []action.ID
	for a := range kept {
		alphaSlice = append(alphaSlice, a)
	}
	g.setAlphabet(alphaSlice)

	for i := range g.nodes {
		edges := g.nodes[i].edges
		newEdges := make([]Edge, 0, len(edges))
		for _, e := range edges {
			if ids, ok := mapping[e.Action]; ok {
				for _, newID := range ids {
					newEdges = append(newEdges, Edge{Action: newID, Dest: e.Dest})
				}
			} else {
				newEdges = append(newEdges, e)
			}
		}
		g.nodes[i].edges = newEdges
	}
	g.termComputed = false
}

// Hiding removes (mode "hide", interface=false) or keeps only (mode
// "interface", interface=true) every alphabet action whose label has a
// prefix in s; everything mapped out of the alphabet is rewritten to
// the reserved silent action id 0 on every edge.
func (g *Graph) Hiding(s *setalg.Set, iface bool) *Graph {
	cur := g.AlphabetIDs()
	kept := make(map[action.ID]bool, len(cur))

	if iface {
		for _, prefix := range s.Labels() {
			for _, a := range cur {
				if strings.HasPrefix(g.at.Label(a), prefix) {
					kept[a] = true
				}
			}
		}
	} else {
		for _, a := range cur {
			kept[a] = true
		}
		for _, prefix := range s.Labels() {
			for _, a := range cur {
				if strings.HasPrefix(g.at.Label(a), prefix) {
					delete(kept, a)
				}
			}
		}
	}

	var alphaSlice []action.ID
	for a := range kept {
		alphaSlice = append(alphaSlice, a)
	}
	g.setAlphabet(alphaSlice)

	for i := range g.nodes {
		for j := range g.nodes[i].edges {
			if !kept[g.nodes[i].edges[j].Action] {
				g.nodes[i].edges[j].Action = action.Tau
			}
		}
	}
	g.termComputed = false
	return g
}

// Priority deletes, from every node having at least one outgoing edge
// whose action matches the low/high flag (s, low), the non-matching
// edges, then compacts to the reachable subgraph.
func (g *Graph) Priority(s *setalg.Set, low bool) *Graph {
	priorityActions := make(map[action.ID]bool)
	for _, prefix := range s.Labels() {
		for _, a := range g.AlphabetIDs() {
			if strings.HasPrefix(g.at.Label(a), prefix) {
				priorityActions[a] = true
			}
		}
	}

	unconnected := &Graph{at: g.at, end: -1, err: -1}
	unconnected.nodes = make([]node, len(g.nodes))
	unconnected.infos = make([]nodeInfo, len(g.nodes))
	for i := range g.nodes {
		var kept []Edge
		for _, e := range g.nodes[i].edges {
			if priorityActions[e.Action] != low {
				kept = append(kept, e)
			}
		}
		if len(kept) > 0 {
			unconnected.nodes[i].edges = kept
		} else {
			unconnected.nodes[i].edges = append([]Edge(nil), g.nodes[i].edges...)
		}
		unconnected.infos[i].typ = g.GetType(i)
		unconnected.infos[i].priv = g.GetPriv(i)
	}

	g.reduceFrom(unconnected)
	return g
}

// Property completes g into a deterministic total-transition-relation
// form: every End state becomes Normal, a single Error state is
// guaranteed, and every node other than the Error state gets one edge
// per alphabet action missing from its outgoing edges, targeting Error.
// Property returns a *fspgo.SemanticError (ErrUnsupportedOperator) if g
// is not deterministic.
func (g *Graph) Property() error {
	if !g.IsDeterministic() {
		return fspgo.NewSemanticError(fspgo.ErrUnsupportedOperator,
			"property completion requires a deterministic LTS (process %q is not)", g.name)
	}
	g.termComputed = false

	errState := -1
	for i := range g.nodes {
		switch g.GetType(i) {
		case Error:
			errState = i
		case End:
			g.SetType(i, Normal)
		}
	}
	if errState == -1 {
		errState = g.addNode()
		g.SetType(errState, Error)
	}

	alphabet := g.AlphabetIDs()
	for i := range g.nodes {
		if i == errState {
			continue
		}
		present := make(map[action.ID]bool, len(g.nodes[i].edges))
		for _, e := range g.nodes[i].edges {
			present[e.Action] = true
		}
		for _, a := range alphabet {
			if !present[a] {
				g.addEdge(i, a, errState)
			}
		}
	}
	return nil
}
