package persist

import (
	"bytes"
	"testing"

	"github.com/fsp-go/fspgo/action"
	"github.com/fsp-go/fspgo/lts"
	"github.com/fsp-go/fspgo/setalg"
	"github.com/fsp-go/fspgo/symbol"
)

func TestActionTableRoundTrip(t *testing.T) {
	at := action.NewTable()
	a := at.Insert("a")
	b := at.Insert("b")

	var buf bytes.Buffer
	if err := WriteActionTable(&buf, at); err != nil {
		t.Fatalf("WriteActionTable: %v", err)
	}
	got, err := ReadActionTable(&buf)
	if err != nil {
		t.Fatalf("ReadActionTable: %v", err)
	}
	if got.Lookup("a") != a || got.Lookup("b") != b {
		t.Errorf("round-tripped ids = (%d,%d), want (%d,%d)", got.Lookup("a"), got.Lookup("b"), a, b)
	}
	if got.Len() != at.Len() {
		t.Errorf("round-tripped table has %d entries, want %d", got.Len(), at.Len())
	}
}

func TestGraphRoundTrip(t *testing.T) {
	at := action.NewTable()
	aID := at.Insert("a")
	bID := at.Insert("b")

	g := lts.NewGraph(at)
	s0 := g.AddState()
	s1 := g.AddState()
	s2 := g.AddState()
	g.AddEdge(s0, aID, s1)
	g.AddEdge(s1, bID, s2)
	g.SetType(s2, lts.End)
	g.UpdateAlphabet(aID)
	g.UpdateAlphabet(bID)
	g.SetName("P")

	var buf bytes.Buffer
	if err := WriteGraph(&buf, g); err != nil {
		t.Fatalf("WriteGraph: %v", err)
	}
	got, err := ReadGraph(&buf, at)
	if err != nil {
		t.Fatalf("ReadGraph: %v", err)
	}
	if got.Name() != "P" {
		t.Errorf("name = %q, want P", got.Name())
	}
	if got.NumStates() != 3 || got.NumTransitions() != 2 {
		t.Fatalf("got %d states / %d transitions, want 3/2", got.NumStates(), got.NumTransitions())
	}
	if got.GetType(s2) != lts.End {
		t.Errorf("state 2 type = %v, want End", got.GetType(s2))
	}
	edges := got.Edges(s0)
	if len(edges) != 1 || edges[0].Action != aID || edges[0].Dest != s1 {
		t.Errorf("state 0 edges = %v, want a single a-edge to state 1", edges)
	}
	if got.AlphabetSize() != 2 {
		t.Errorf("alphabet size = %d, want 2", got.AlphabetSize())
	}
}

func TestSetRoundTrip(t *testing.T) {
	s := setalg.New("a", "b", "a").Bind("i")

	var buf bytes.Buffer
	if err := WriteSet(&buf, s); err != nil {
		t.Fatalf("WriteSet: %v", err)
	}
	got, err := ReadSet(&buf)
	if err != nil {
		t.Fatalf("ReadSet: %v", err)
	}
	if got.Len() != 3 {
		t.Fatalf("got %d labels, want 3", got.Len())
	}
	for i, want := range []string{"a", "b", "a"} {
		if got.At(i) != want {
			t.Errorf("label[%d] = %q, want %q", i, got.At(i), want)
		}
	}
	if bound, ok := got.BoundVar(); !ok || bound != "i" {
		t.Errorf("bound var = %q/%v, want i/true", bound, ok)
	}
}

func TestActionSetRoundTrip(t *testing.T) {
	at := action.NewTable()
	a := at.Insert("a")
	b := at.Insert("b")
	as := symbol.NewActionSet()
	as.Add(a)
	as.Add(b)

	var buf bytes.Buffer
	if err := WriteActionSet(&buf, as); err != nil {
		t.Fatalf("WriteActionSet: %v", err)
	}
	got, err := ReadActionSet(&buf)
	if err != nil {
		t.Fatalf("ReadActionSet: %v", err)
	}
	if got.Len() != 2 || !got.Contains(a) || !got.Contains(b) {
		t.Errorf("round-tripped action set missing members: %v", got.Ids())
	}
}

func TestProgressRoundTripUnconditional(t *testing.T) {
	at := action.NewTable()
	a := at.Insert("a")
	as := symbol.NewActionSet()
	as.Add(a)
	p := symbol.Progress{Set: as}

	var buf bytes.Buffer
	if err := WriteProgress(&buf, p); err != nil {
		t.Fatalf("WriteProgress: %v", err)
	}
	got, err := ReadProgress(&buf)
	if err != nil {
		t.Fatalf("ReadProgress: %v", err)
	}
	if got.Conditional {
		t.Error("expected an unconditional progress value")
	}
	if !got.Set.Contains(a) {
		t.Error("round-tripped progress lost its terminal-action set")
	}
}

func TestProgressRoundTripConditional(t *testing.T) {
	at := action.NewTable()
	a := at.Insert("a")
	b := at.Insert("b")
	setAS := symbol.NewActionSet()
	setAS.Add(a)
	condAS := symbol.NewActionSet()
	condAS.Add(b)
	p := symbol.Progress{Set: setAS, Condition: condAS, Conditional: true}

	var buf bytes.Buffer
	if err := WriteProgress(&buf, p); err != nil {
		t.Fatalf("WriteProgress: %v", err)
	}
	got, err := ReadProgress(&buf)
	if err != nil {
		t.Fatalf("ReadProgress: %v", err)
	}
	if !got.Conditional || !got.Condition.Contains(b) {
		t.Errorf("round-tripped conditional progress = %+v, want Conditional with b in Condition", got)
	}
}
