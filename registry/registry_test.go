package registry

import (
	"testing"

	"github.com/fsp-go/fspgo/action"
	"github.com/fsp-go/fspgo/lts"
	"github.com/fsp-go/fspgo/symbol"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestDefineAndLookup(t *testing.T) {
	r := New()
	h := symbol.ProcessHandle{Names: []string{"N"}, Defaults: []int{2}}
	if err := r.Define("A", h, false); err != nil {
		t.Fatalf("Define: %v", err)
	}
	got, ok := r.Lookup("A")
	if !ok || len(got.Names) != 1 || got.Names[0] != "N" {
		t.Errorf("Lookup(A) = %v, %v", got, ok)
	}
	if err := r.Define("A", h, false); err == nil {
		t.Errorf("expected duplicate-definition error on redefining A")
	}
}

func TestBaseName(t *testing.T) {
	if got := BaseName("P", nil); got != "P" {
		t.Errorf("BaseName(P, nil) = %q, want P", got)
	}
	if got := BaseName("A", []int{2, 3}); got != "A(2,3)" {
		t.Errorf("BaseName(A, [2,3]) = %q, want A(2,3)", got)
	}
}

func TestPublishAndCached(t *testing.T) {
	r := New()
	at := action.NewTable()
	g := lts.Stop(at)
	r.Publish("P", []int{1}, g)

	got, ok := r.Cached("P", []int{1})
	if !ok || got != g {
		t.Errorf("Cached(P,[1]) = %v, %v, want the published graph", got, ok)
	}
	if got.Name() != "P(1)" {
		t.Errorf("published graph name = %q, want P(1)", got.Name())
	}
	if _, ok := r.Cached("P", []int{2}); ok {
		t.Errorf("did not expect a cache hit for a different argument tuple")
	}
}

func TestTranslationOrderDefersComposites(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fspgo.registry")
	defer teardown()
	r := New()
	r.Define("LEAF", symbol.ProcessHandle{}, false)
	r.Define("MID", symbol.ProcessHandle{}, false)
	r.Define("TOP", symbol.ProcessHandle{}, true)
	r.AddDependency("MID", "LEAF")
	r.AddDependency("TOP", "MID")

	order := r.TranslationOrder()
	pos := make(map[string]int, len(order))
	for i, n := range order {
		pos[n] = i
	}
	if pos["LEAF"] >= pos["MID"] {
		t.Errorf("expected LEAF before MID in %v", order)
	}
	if pos["MID"] >= pos["TOP"] {
		t.Errorf("expected MID before TOP (composite deferred to end) in %v", order)
	}
}

func TestTranslationOrderHandlesCycles(t *testing.T) {
	r := New()
	r.Define("P", symbol.ProcessHandle{}, false)
	r.Define("Q", symbol.ProcessHandle{}, false)
	r.AddDependency("P", "Q")
	r.AddDependency("Q", "P")

	order := r.TranslationOrder()
	if len(order) != 2 {
		t.Fatalf("expected both P and Q in the order despite the cycle, got %v", order)
	}
}
