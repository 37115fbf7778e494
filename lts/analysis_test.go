package lts

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fsp-go/fspgo/action"
	"github.com/fsp-go/fspgo/symbol"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestDeadlockAnalysisFindsDeadlockAndViolation(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fspgo.lts")
	defer teardown()
	at := action.NewTable()
	aID := at.Insert("a")
	bID := at.Insert("b")
	cID := at.Insert("c")

	g := NewGraph(at)
	s0 := g.AddState()
	deadlock := g.AddState()
	violation := g.AddState()
	endState := g.AddState()
	g.SetType(violation, Error)
	g.SetType(endState, End)
	g.AddEdge(s0, aID, deadlock)
	g.AddEdge(s0, bID, violation)
	g.AddEdge(s0, cID, endState)

	findings := g.DeadlockAnalysis()
	if len(findings) != 2 {
		t.Fatalf("got %d findings, want 2", len(findings))
	}
	byState := map[int]Finding{}
	for _, f := range findings {
		byState[f.State] = f
	}
	if byState[deadlock].Kind != "Deadlock" {
		t.Errorf("deadlock state kind = %q, want Deadlock", byState[deadlock].Kind)
	}
	if byState[violation].Kind != "Property violation" {
		t.Errorf("violation state kind = %q, want Property violation", byState[violation].Kind)
	}
	if len(byState[deadlock].Trace) != 1 || byState[deadlock].Trace[0] != aID {
		t.Errorf("deadlock trace = %v, want [a]", byState[deadlock].Trace)
	}
}

func TestDeadlockAnalysisIgnoresEndStates(t *testing.T) {
	at := action.NewTable()
	aID := at.Insert("a")

	g := NewGraph(at)
	s0 := g.AddState()
	endState := g.AddState()
	g.SetType(endState, End)
	g.AddEdge(s0, aID, endState)

	for _, f := range g.DeadlockAnalysis() {
		if f.State == endState {
			t.Errorf("End state should never be reported as a deadlock, got %+v", f)
		}
	}
}

func buildTerminalCycleGraph(t *testing.T) (*Graph, action.ID, action.ID, action.ID) {
	at := action.NewTable()
	aID := at.Insert("a")
	bID := at.Insert("b")
	cID := at.Insert("c")

	g := NewGraph(at)
	s0 := g.AddState()
	s1 := g.AddState()
	s2 := g.AddState()
	g.AddEdge(s0, aID, s1)
	g.AddEdge(s1, bID, s2)
	g.AddEdge(s2, cID, s1)
	return g, aID, bID, cID
}

func TestTerminalSetsFindsNonTrivialCycle(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fspgo.lts")
	defer teardown()
	g, aID, bID, cID := buildTerminalCycleGraph(t)
	_ = aID

	sets := g.TerminalSets()
	if len(sets) != 1 {
		t.Fatalf("got %d terminal sets, want 1", len(sets))
	}
	ts := sets[0]
	if !ts.Actions.Contains(bID) || !ts.Actions.Contains(cID) {
		t.Errorf("terminal set actions = %v, want {b,c}", ts.Actions.Ids())
	}
	if ts.Actions.Len() != 2 {
		t.Errorf("terminal set action count = %d, want 2", ts.Actions.Len())
	}
}

func TestTerminalSetsCachesResult(t *testing.T) {
	g, _, _, _ := buildTerminalCycleGraph(t)
	first := g.TerminalSets()
	second := g.TerminalSets()
	if len(first) != len(second) {
		t.Fatalf("cached call returned a different result: %d vs %d", len(first), len(second))
	}
}

func TestTerminalSetsTrivialWholeGraphNotReported(t *testing.T) {
	at := action.NewTable()
	aID := at.Insert("a")
	g := NewGraph(at)
	s0 := g.AddState()
	s1 := g.AddState()
	g.AddEdge(s0, aID, s1)
	g.AddEdge(s1, aID, s0)

	if sets := g.TerminalSets(); len(sets) != 0 {
		t.Errorf("got %d terminal sets, want 0 (whole graph is the only SCC)", len(sets))
	}
}

func TestProgressUnconditionalViolation(t *testing.T) {
	g, aID, _, _ := buildTerminalCycleGraph(t)

	set := symbol.NewActionSet()
	set.Add(aID) // terminal cycle only performs b/c, never a -> disjoint -> violated
	prop := symbol.Progress{Set: set}

	violations := g.Progress(prop)
	if len(violations) != 1 {
		t.Fatalf("got %d violations, want 1", len(violations))
	}
}

func TestProgressSatisfiedWhenSetOverlapsTerminalActions(t *testing.T) {
	g, _, bID, _ := buildTerminalCycleGraph(t)

	set := symbol.NewActionSet()
	set.Add(bID)
	prop := symbol.Progress{Set: set}

	if violations := g.Progress(prop); len(violations) != 0 {
		t.Errorf("got %d violations, want 0 (b is performed infinitely often)", len(violations))
	}
}

func TestMinimizeCollapsesBisimilarLeaves(t *testing.T) {
	at := action.NewTable()
	aID := at.Insert("a")

	g := NewGraph(at)
	s0 := g.AddState()
	s1 := g.AddState()
	s2 := g.AddState()
	g.AddEdge(s0, aID, s1)
	g.AddEdge(s0, aID, s2)

	g.Minimize()

	if g.NumStates() != 2 {
		t.Fatalf("got %d states after minimize, want 2 (s1 and s2 collapse)", g.NumStates())
	}
	if len(g.Edges(0)) != 1 {
		t.Errorf("got %d edges from state 0, want 1 (both a-edges target the same partition)", len(g.Edges(0)))
	}
}

func TestMinimizeCollapsesTauChain(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fspgo.lts")
	defer teardown()
	at := action.NewTable()
	aID := at.Insert("a")

	// s0 --a--> s1 --tau--> s2 --tau--> s3(leaf): the tau chain hangs off
	// s1, not the root, so its collapse redirects the incoming a-edge
	// rather than swallowing the root itself.
	g := NewGraph(at)
	s0 := g.AddState()
	s1 := g.AddState()
	s2 := g.AddState()
	s3 := g.AddState()
	g.AddEdge(s0, aID, s1)
	g.AddEdge(s1, action.Tau, s2)
	g.AddEdge(s2, action.Tau, s3)

	g.Minimize()

	if g.NumStates() != 2 {
		t.Fatalf("got %d states after minimize, want 2 (tau chain collapses onto its target)", g.NumStates())
	}
	if len(g.Edges(0)) != 1 || g.Edges(0)[0].Action != aID {
		t.Errorf("edges from root = %v, want a single a-edge redirected past the tau chain", g.Edges(0))
	}
}

func TestTracesClosesOnRepeatedEdge(t *testing.T) {
	at := action.NewTable()
	aID := at.Insert("a")
	bID := at.Insert("b")

	g := NewGraph(at)
	s0 := g.AddState()
	s1 := g.AddState()
	g.AddEdge(s0, aID, s1)
	g.AddEdge(s1, bID, s0)

	var traces [][]action.ID
	g.Traces(func(trace []action.ID) {
		traces = append(traces, trace)
	})

	if len(traces) != 1 {
		t.Fatalf("got %d traces, want 1", len(traces))
	}
	if len(traces[0]) != 2 || traces[0][0] != aID || traces[0][1] != bID {
		t.Errorf("trace = %v, want [a b]", traces[0])
	}
}

func TestSimulatorSplitsChoosableAndSystemChosen(t *testing.T) {
	at := action.NewTable()
	aID := at.Insert("a")
	bID := at.Insert("b")

	g := NewGraph(at)
	s0 := g.AddState()
	s1 := g.AddState()
	s2 := g.AddState()
	g.AddEdge(s0, aID, s1)
	g.AddEdge(s0, bID, s2)

	menu := symbol.NewActionSet()
	menu.Add(aID)

	sim := NewSimulator(g)
	choosable, system := sim.Choices(menu)
	if len(choosable) != 1 || choosable[0].Action != aID {
		t.Fatalf("choosable = %v, want [a]", choosable)
	}
	if len(system) != 1 || system[0].Action != bID {
		t.Fatalf("systemChosen = %v, want [b]", system)
	}

	sim.Step(choosable[0])
	if sim.State() != s1 {
		t.Errorf("state after Step = %d, want %d", sim.State(), s1)
	}
	if !sim.Done() {
		t.Error("expected Done() after stepping to a leaf state")
	}
}

func TestWriteGraphvizShapesTerminalStates(t *testing.T) {
	at := action.NewTable()
	aID := at.Insert("a")
	bID := at.Insert("b")

	g := NewGraph(at)
	s0 := g.AddState()
	endState := g.AddState()
	errState := g.AddState()
	g.SetType(endState, End)
	g.SetType(errState, Error)
	g.AddEdge(s0, aID, endState)
	g.AddEdge(s0, bID, errState)

	var buf bytes.Buffer
	if err := g.WriteGraphviz(&buf); err != nil {
		t.Fatalf("WriteGraphviz: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "doublecircle") {
		t.Error("missing doublecircle shape for End state")
	}
	if !strings.Contains(out, "box") {
		t.Error("missing box shape for Error state")
	}
	if !strings.Contains(out, `"a"`) || !strings.Contains(out, `"b"`) {
		t.Error("missing quoted edge labels")
	}
}

func TestBasicLabelRewritesDotDigitsToBrackets(t *testing.T) {
	cases := map[string]string{
		"x.3":     "x[3]",
		"a.12.b":  "a[12].b",
		".5":      "[5]",
		"noop":    "noop",
		"a.1.2.3": "a[1][2][3]",
	}
	for in, want := range cases {
		if got := BasicLabel(in); got != want {
			t.Errorf("BasicLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
