package lts

// reduceFrom renumbers unconnected's nodes reachable from state 0 into
// g, replacing g's nodes/infos in place. The alphabet is left
// untouched; the caller is responsible for it.
func (g *Graph) reduceFrom(unconnected *Graph) {
	np := len(unconnected.nodes)
	g.termComputed = false
	if np == 0 {
		g.nodes = nil
		g.infos = nil
		g.end, g.err = -1, -1
		return
	}

	mapIdx := make([]int, np)
	for i := range mapIdx {
		mapIdx[i] = -1
	}
	newNodes := []node{{}}
	newInfos := []nodeInfo{{priv: NoPriv, typ: Normal}}
	mapIdx[0] = 0

	queue := []int{0}
	for len(queue) > 0 {
		state := queue[0]
		queue = queue[1:]
		for _, e := range unconnected.nodes[state].edges {
			if mapIdx[e.Dest] == -1 {
				mapIdx[e.Dest] = len(newNodes)
				newNodes = append(newNodes, node{})
				newInfos = append(newInfos, nodeInfo{priv: NoPriv, typ: Normal})
				queue = append(queue, e.Dest)
			}
			newNodes[mapIdx[state]].edges = append(newNodes[mapIdx[state]].edges,
				Edge{Action: e.Action, Dest: mapIdx[e.Dest]})
		}
	}

	g.end, g.err = -1, -1
	for i := 0; i < np; i++ {
		if mapIdx[i] == -1 {
			continue
		}
		idx := mapIdx[i]
		newInfos[idx].typ = unconnected.GetType(i)
		newInfos[idx].priv = unconnected.GetPriv(i)
		if newInfos[idx].typ == End {
			g.end = idx
		} else if newInfos[idx].typ == Error {
			g.err = idx
		}
	}
	g.nodes = newNodes
	g.infos = newInfos
}

// removeType compacts g, dropping every node of type t (and edges
// targeting it). zeroIdx, if >= 0, names the surviving node that must
// become the new index 0 (resolve uses this to honor definitions of the
// form "P = Q, Q = ..."). When callReduce is set, the result is further
// restricted to the subgraph reachable from 0.
func (g *Graph) removeType(t NodeType, zeroIdx int, callReduce bool) {
	n := len(g.nodes)
	remap := make([]int, n)
	cnt := 0
	if zeroIdx >= 0 {
		remap[zeroIdx] = cnt
		cnt++
	}
	for i := 0; i < n; i++ {
		if g.GetType(i) == t {
			remap[i] = -1
		} else if i != zeroIdx {
			remap[i] = cnt
			cnt++
		}
	}

	compacted := &Graph{at: g.at, end: -1, err: -1}
	compacted.nodes = make([]node, cnt)
	compacted.infos = make([]nodeInfo, cnt)
	for i := range compacted.infos {
		compacted.infos[i].priv = NoPriv
	}
	for i := 0; i < n; i++ {
		k := remap[i]
		if k == -1 {
			continue
		}
		compacted.infos[k].typ = g.GetType(i)
		compacted.infos[k].priv = g.GetPriv(i)
		if compacted.infos[k].typ == End {
			compacted.end = k
		} else if compacted.infos[k].typ == Error {
			compacted.err = k
		}
		for _, e := range g.nodes[i].edges {
			if remap[e.Dest] != -1 {
				compacted.nodes[k].edges = append(compacted.nodes[k].edges,
					Edge{Action: e.Action, Dest: remap[e.Dest]})
			}
		}
	}

	if callReduce {
		g.reduceFrom(compacted)
		return
	}
	g.nodes = compacted.nodes
	g.infos = compacted.infos
	g.end, g.err = compacted.end, compacted.err
	g.termComputed = false
}

// Append copies other's nodes from index first onward into g,
// offsetting destinations, and returns the offset.
func (g *Graph) Append(other *Graph, first int) int {
	offset := len(g.nodes) - first
	for i := first; i < len(other.nodes); i++ {
		idx := g.addNode()
		g.infos[idx].typ = other.GetType(i)
		g.infos[idx].priv = other.GetPriv(i)
		if g.infos[idx].typ == End {
			g.end = idx
		} else if g.infos[idx].typ == Error {
			g.err = idx
		}
		for _, e := range other.nodes[i].edges {
			g.nodes[idx].edges = append(g.nodes[idx].edges, Edge{Action: e.Action, Dest: e.Dest + offset})
		}
	}
	g.MergeAlphabetFrom(other)
	g.termComputed = false
	return offset
}

// ZeroCat appends other and connects g's node 0 to other's (now
// offset) node 0 via an edge labeled label.
func (g *Graph) ZeroCat(other *Graph, label string) *Graph {
	offset := g.Append(other, 0)
	id := g.at.Insert(label)
	g.UpdateAlphabet(id)
	g.addEdge(0, id, offset)
	return g
}

// ZeroMerge appends other (from index 1) and copies other's node-0
// edges onto g's node 0 (offset), so the two LTSs start together.
func (g *Graph) ZeroMerge(other *Graph) *Graph {
	offset := g.Append(other, 1)
	for _, e := range other.nodes[0].edges {
		g.addEdge(0, e.Action, e.Dest+offset)
	}
	return g
}

func (g *Graph) copyNodeIn(state int, src *Graph, i int) {
	g.infos[state].typ = src.GetType(i)
	g.infos[state].priv = src.GetPriv(i)
	if g.infos[state].typ == End {
		g.end = state
	} else if g.infos[state].typ == Error {
		g.err = state
	}
	g.nodes[state].edges = append([]Edge(nil), src.nodes[i].edges...)
}

// EndCat splices other in place of g's End node: if other has a single
// state, it replaces the End node outright; otherwise other is appended
// (minus its node 0) and other's node 0 is copied into the End slot with
// edge destinations offset accordingly. Returns false if g has no End
// node.
func (g *Graph) EndCat(other *Graph) bool {
	x := -1
	for i := range g.nodes {
		if g.GetType(i) == End {
			x = i
			break
		}
	}
	if x == -1 {
		return false
	}

	if len(other.nodes) == 1 {
		g.copyNodeIn(x, other, 0)
		return true
	}

	offset := g.Append(other, 1)
	g.copyNodeIn(x, other, 0)
	for i := range g.nodes[x].edges {
		g.nodes[x].edges[i].Dest += offset
	}
	return true
}

// IncompCat redirects every edge targeting an Incomplete node with
// private id k to the 0-node of ltsv[k] (appending that LTS once,
// memoized by k), then removes the Incomplete nodes. ltsv is indexed by
// the Incomplete private id convention (1-based, see NoPriv); ltsv[0] is
// never consulted.
func (g *Graph) IncompCat(ltsv []*Graph) *Graph {
	offsets := make([]int, len(ltsv))
	for i := range offsets {
		offsets[i] = -1
	}
	numNodes := len(g.nodes)
	for i := 0; i < numNodes; i++ {
		snapshot := append([]Edge(nil), g.nodes[i].edges...)
		for _, e := range snapshot {
			if g.GetType(e.Dest) != Incomplete {
				continue
			}
			priv := g.GetPriv(e.Dest)
			if offsets[priv] == -1 {
				offsets[priv] = g.Append(ltsv[priv], 0)
			}
			g.addEdge(i, e.Action, offsets[priv])
		}
	}
	g.removeType(Incomplete, -1, false)
	return g
}

// MergeEndNodes redirects every edge targeting any End node to the
// first End node found, then removes the others, leaving at most one
// End node.
func (g *Graph) MergeEndNodes() *Graph {
	x := -1
	for i := range g.nodes {
		if g.GetType(i) == End {
			x = i
			break
		}
	}
	if x == -1 {
		return g
	}

	for i := range g.nodes {
		for j := range g.nodes[i].edges {
			if g.GetType(g.nodes[i].edges[j].Dest) == End {
				g.nodes[i].edges[j].Dest = x
			}
		}
	}

	zombies := false
	for i := range g.nodes {
		if g.GetType(i) == End && i != x {
			g.SetType(i, Zombie)
			zombies = true
		}
	}
	if zombies {
		g.removeType(Zombie, -1, false)
	}
	return g
}

// Resolve scans every edge targeting an Unresolved node and redirects
// it to the non-Unresolved node sharing its private id. If some private
// id has no match, it is returned together with ok=false (a semantic
// error in the process definition). On success the Unresolved nodes are
// compacted away and every private id is cleared.
func (g *Graph) Resolve() (failedPriv int, ok bool) {
	zeroIdx := -1
	for i := 0; i < len(g.nodes); i++ {
		if g.GetType(i) != Unresolved && g.GetPriv(i) == g.GetPriv(0) {
			zeroIdx = i
		}
		for j := range g.nodes[i].edges {
			e := &g.nodes[i].edges[j]
			if g.GetType(e.Dest) != Unresolved {
				continue
			}
			priv := g.GetPriv(e.Dest)
			found := false
			for k := 0; k < len(g.nodes); k++ {
				if g.GetType(k) != Unresolved && g.GetPriv(k) == priv {
					e.Dest = k
					found = true
					break
				}
			}
			if !found {
				return priv, false
			}
		}
	}

	g.removeType(Unresolved, zeroIdx, true)
	for i := range g.infos {
		g.infos[i].priv = NoPriv
	}
	return NoPriv, true
}
