package symbol

import (
	"testing"

	"github.com/fsp-go/fspgo/action"
	"github.com/fsp-go/fspgo/setalg"
)

func TestTableDuplicateInsertFails(t *testing.T) {
	tab := NewTable()
	if !tab.Insert("N", Integer{Value: 2}) {
		t.Fatalf("first insert should succeed")
	}
	if tab.Insert("N", Integer{Value: 3}) {
		t.Fatalf("duplicate insert should fail")
	}
	v, _ := tab.Lookup("N")
	if v.(Integer).Value != 2 {
		t.Fatalf("duplicate insert must not overwrite: got %v", v)
	}
}

func TestTableCloneIsDeep(t *testing.T) {
	tab := NewTable()
	as := NewActionSet()
	at := action.NewTable()
	as.Add(at.Insert("a"))
	tab.Insert("A", as)

	clone := tab.Clone()
	cv, _ := clone.Lookup("A")
	cas := cv.(*ActionSet)
	cas.Add(at.Insert("b"))

	ov, _ := tab.Lookup("A")
	oas := ov.(*ActionSet)
	if oas.Len() != 1 {
		t.Fatalf("clone mutation leaked into original: len=%d", oas.Len())
	}
}

func TestRangeIterate(t *testing.T) {
	r := Range{Low: 0, High: 3, Var: "i"}
	got := r.Iterate()
	want := []int{0, 1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestProgressUnconditionalViolation(t *testing.T) {
	at := action.NewTable()
	terminal := NewActionSet()
	terminal.Add(at.Insert("a"))
	terminal.Add(at.Insert("b"))

	set := NewActionSet()
	set.Add(at.Insert("c")) // disjoint from terminal -> violated

	p := Progress{Set: set}
	if !p.Violated(terminal) {
		t.Fatalf("expected violation when Set is disjoint from terminal actions")
	}

	set2 := NewActionSet()
	set2.Add(at.Insert("a"))
	p2 := Progress{Set: set2}
	if p2.Violated(terminal) {
		t.Fatalf("expected no violation when Set intersects terminal actions")
	}
}

func TestProgressConditional(t *testing.T) {
	at := action.NewTable()
	terminal := NewActionSet()
	terminal.Add(at.Insert("c"))

	cond := NewActionSet()
	cond.Add(at.Insert("c")) // condition holds

	set := NewActionSet()
	set.Add(at.Insert("a")) // disjoint from terminal

	p := Progress{Set: set, Condition: cond, Conditional: true}
	if !p.Violated(terminal) {
		t.Fatalf("conditional violation expected: condition holds and set is disjoint")
	}

	// If condition does not hold, no violation even though set is disjoint.
	cond2 := NewActionSet()
	cond2.Add(at.Insert("z"))
	p2 := Progress{Set: set, Condition: cond2, Conditional: true}
	if p2.Violated(terminal) {
		t.Fatalf("no violation expected when condition does not hold")
	}
}

func TestExpectTypeMismatch(t *testing.T) {
	tab := NewTable()
	tab.Insert("N", Integer{Value: 1})
	_, err := Expect(tab, "N", KindSet)
	if err == nil {
		t.Fatalf("expected type mismatch error")
	}
	if _, ok := err.(*TypeMismatchError); !ok {
		t.Fatalf("expected *TypeMismatchError, got %T", err)
	}
}

func TestExpectUndeclared(t *testing.T) {
	tab := NewTable()
	_, err := Expect(tab, "Missing", KindInteger)
	if _, ok := err.(*UndeclaredError); !ok {
		t.Fatalf("expected *UndeclaredError, got %T", err)
	}
}

func TestSetValueWrapsSetalg(t *testing.T) {
	s := Set{Set: setalg.New("a", "b")}
	clone := s.Clone().(Set)
	clone.AppendLabel("c")
	if s.Len() != 2 {
		t.Fatalf("clone mutation leaked: %v", s.Labels())
	}
}
