package eval

import (
	"testing"

	"github.com/fsp-go/fspgo"
	"github.com/fsp-go/fspgo/action"
	"github.com/fsp-go/fspgo/ast"
	"github.com/fsp-go/fspgo/lts"
	"github.com/fsp-go/fspgo/registry"
	"github.com/fsp-go/fspgo/symbol"
	"github.com/fsp-go/fspgo/tenv"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func newFixture() (*tenv.Env, *action.Table, *registry.Registry) {
	at := action.NewTable()
	env := tenv.NewEnv(symbol.NewTable())
	reg := registry.New()
	return env, at, reg
}

func intLit(v int) *ast.IntLit { return &ast.IntLit{Value: v} }

func TestEvalExprArithmetic(t *testing.T) {
	env, _, _ := newFixture()
	// (2 + 3) * 4
	sum := &ast.BinaryExpr{Op: "+", Left: intLit(2), Right: intLit(3)}
	expr := &ast.BinaryExpr{Op: "*", Left: sum, Right: intLit(4)}
	r, err := EvalExpr(expr, env)
	if err != nil {
		t.Fatalf("EvalExpr: %v", err)
	}
	if r.Int != 20 {
		t.Errorf("got %d, want 20", r.Int)
	}
}

func TestEvalExprComparison(t *testing.T) {
	env, _, _ := newFixture()
	expr := &ast.BinaryExpr{Op: "<=", Left: intLit(3), Right: intLit(5)}
	r, err := EvalExpr(expr, env)
	if err != nil {
		t.Fatalf("EvalExpr: %v", err)
	}
	if r.Int != 1 {
		t.Errorf("3<=5 = %d, want 1", r.Int)
	}
}

func TestEvalExprShortCircuitAnd(t *testing.T) {
	env, _, _ := newFixture()
	// 0 && undeclared  must not evaluate the right operand
	expr := &ast.BinaryExpr{Op: "&&", Left: intLit(0), Right: &ast.LowerCaseID{Name: "nope"}}
	r, err := EvalExpr(expr, env)
	if err != nil {
		t.Fatalf("EvalExpr: %v", err)
	}
	if r.Int != 0 {
		t.Errorf("0&&x = %d, want 0", r.Int)
	}
}

func TestEvalExprShortCircuitOr(t *testing.T) {
	env, _, _ := newFixture()
	expr := &ast.BinaryExpr{Op: "||", Left: intLit(1), Right: &ast.LowerCaseID{Name: "nope"}}
	r, err := EvalExpr(expr, env)
	if err != nil {
		t.Fatalf("EvalExpr: %v", err)
	}
	if r.Int != 1 {
		t.Errorf("1||x = %d, want 1", r.Int)
	}
}

func TestEvalExprUndeclaredIdentifier(t *testing.T) {
	env, _, _ := newFixture()
	_, err := EvalExpr(&ast.LowerCaseID{Name: "nope"}, env)
	if err == nil {
		t.Fatal("expected an error for an undeclared identifier")
	}
	if _, ok := err.(*symbol.UndeclaredError); !ok {
		t.Errorf("error = %T, want *symbol.UndeclaredError", err)
	}
}

func TestEvalExprDivisionByZero(t *testing.T) {
	env, _, _ := newFixture()
	expr := &ast.BinaryExpr{Op: "/", Left: intLit(1), Right: intLit(0)}
	_, err := EvalExpr(expr, env)
	if err == nil {
		t.Fatal("expected a division-by-zero error")
	}
}

func TestDefineConstAndLookup(t *testing.T) {
	env, _, _ := newFixture()
	if err := DefineConst("N", intLit(3), env); err != nil {
		t.Fatalf("DefineConst: %v", err)
	}
	v, ok := env.Symbols.Lookup("N")
	if !ok {
		t.Fatal("N not bound after DefineConst")
	}
	if v.(symbol.Integer).Value != 3 {
		t.Errorf("N = %v, want 3", v)
	}
	if err := DefineConst("N", intLit(4), env); err == nil {
		t.Error("expected a duplicate-definition error redefining N")
	}
}

func TestEvalActionLabelsSimpleChain(t *testing.T) {
	env, _, _ := newFixture()
	al := &ast.ActionLabels{Elements: []ast.Node{
		&ast.LowerCaseID{Name: "a"},
		&ast.LowerCaseID{Name: "b"},
	}}
	ls, err := evalActionLabels(al, env)
	if err != nil {
		t.Fatalf("evalActionLabels: %v", err)
	}
	got := ls.set.Labels()
	if len(got) != 1 || got[0] != "a.b" {
		t.Errorf("labels = %v, want [a.b]", got)
	}
}

func TestEvalActionLabelsWithRange(t *testing.T) {
	env, _, _ := newFixture()
	al := &ast.ActionLabels{Elements: []ast.Node{
		&ast.LowerCaseID{Name: "a"},
		&ast.ActionRange{Var: "i", Range: &ast.RangeExpr{Low: intLit(0), High: intLit(2)}},
	}}
	ls, err := evalActionLabels(al, env)
	if err != nil {
		t.Fatalf("evalActionLabels: %v", err)
	}
	got := ls.set.Labels()
	want := []string{"a[0]", "a[1]", "a[2]"}
	if len(got) != len(want) {
		t.Fatalf("labels = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("labels[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if ls.varN != "i" {
		t.Errorf("varN = %q, want i", ls.varN)
	}
	if len(ls.values) != 3 || ls.values[0] != "0" || ls.values[2] != "2" {
		t.Errorf("values = %v, want [0 1 2]", ls.values)
	}
}

func TestEvalSetExprUnion(t *testing.T) {
	env, _, _ := newFixture()
	chain1 := &ast.ActionLabels{Elements: []ast.Node{&ast.LowerCaseID{Name: "a"}}}
	chain2 := &ast.ActionLabels{Elements: []ast.Node{&ast.LowerCaseID{Name: "b"}}}
	se := &ast.SetExpr{Elements: &ast.SetElements{Chains: []*ast.ActionLabels{chain1, chain2}}}
	s, err := evalSetExpr(se, env)
	if err != nil {
		t.Fatalf("evalSetExpr: %v", err)
	}
	got := s.Labels()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("labels = %v, want [a b]", got)
	}
}

func TestDefineProgress(t *testing.T) {
	env, at, _ := newFixture()
	set := &ast.SetExpr{Elements: &ast.SetElements{Chains: []*ast.ActionLabels{
		{Elements: []ast.Node{&ast.LowerCaseID{Name: "a"}}},
	}}}
	pd := &ast.ProgressDef{Name: "P", Set: set}
	if err := DefineProgress(pd, at, env); err != nil {
		t.Fatalf("DefineProgress: %v", err)
	}
	v, ok := env.Symbols.Lookup("P")
	if !ok {
		t.Fatal("P not bound after DefineProgress")
	}
	prog := v.(symbol.Progress)
	if prog.Conditional {
		t.Error("expected an unconditional progress property")
	}
	if prog.Set.Len() != 1 {
		t.Errorf("progress set has %d actions, want 1", prog.Set.Len())
	}
}

func TestTranslateLocalBaseCases(t *testing.T) {
	_, at, reg := newFixture()
	lc := newLocalCtx(at, reg)

	stop, err := translateLocal(&ast.BaseLocalProcess{Kind: ast.BaseStop}, tenv.NewEnv(symbol.NewTable()), lc)
	if err != nil {
		t.Fatalf("translateLocal(STOP): %v", err)
	}
	if stop.NumStates() != 1 || stop.GetType(0) != lts.Normal {
		t.Errorf("STOP = %d states, type %v; want 1 state, Normal", stop.NumStates(), stop.GetType(0))
	}

	end, err := translateLocal(&ast.BaseLocalProcess{Kind: ast.BaseEnd}, tenv.NewEnv(symbol.NewTable()), lc)
	if err != nil {
		t.Fatalf("translateLocal(END): %v", err)
	}
	if end.NumStates() != 1 || end.GetType(0) != lts.End {
		t.Errorf("END = %d states, type %v; want 1 state, End", end.NumStates(), end.GetType(0))
	}

	errG, err := translateLocal(&ast.BaseLocalProcess{Kind: ast.BaseError}, tenv.NewEnv(symbol.NewTable()), lc)
	if err != nil {
		t.Fatalf("translateLocal(ERROR): %v", err)
	}
	if errG.NumStates() != 1 || errG.GetType(0) != lts.Error {
		t.Errorf("ERROR = %d states, type %v; want 1 state, Error", errG.NumStates(), errG.GetType(0))
	}
}

// prefixStop builds the local-process-def body `a -> STOP` as a Choice
// with a single alternative, the shape translateLocal's Choice case
// expects.
func prefixStop(label string) *ast.Choice {
	ap := &ast.ActionPrefix{
		Prefix: &ast.PrefixActions{Chain: []*ast.ActionLabels{
			{Elements: []ast.Node{&ast.LowerCaseID{Name: label}}},
		}},
		Local: &ast.BaseLocalProcess{Kind: ast.BaseStop},
	}
	return &ast.Choice{Alternatives: []*ast.ActionPrefix{ap}}
}

func TestTranslateProcessDefSimple(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fspgo.eval")
	defer teardown()
	env, at, reg := newFixture()
	pd := &ast.ProcessDef{Name: "P", Body: &ast.ProcessBody{Local: prefixStop("a")}}

	g, err := TranslateProcessDef(pd, env, at, reg)
	if err != nil {
		t.Fatalf("TranslateProcessDef: %v", err)
	}
	if g.NumStates() != 2 {
		t.Fatalf("P has %d states, want 2", g.NumStates())
	}
	edges := g.Edges(0)
	if len(edges) != 1 {
		t.Fatalf("node 0 has %d edges, want 1", len(edges))
	}
	if at.Label(edges[0].Action) != "a" {
		t.Errorf("edge label = %q, want a", at.Label(edges[0].Action))
	}
	if g.GetType(edges[0].Dest) != lts.Normal {
		t.Errorf("destination type = %v, want Normal (STOP)", g.GetType(edges[0].Dest))
	}
}

func TestTranslateProcessDefWithLocalDef(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fspgo.eval")
	defer teardown()
	env, at, reg := newFixture()
	// P = a -> Q, Q = b -> STOP
	main := &ast.ActionPrefix{
		Prefix: &ast.PrefixActions{Chain: []*ast.ActionLabels{
			{Elements: []ast.Node{&ast.LowerCaseID{Name: "a"}}},
		}},
		Local: &ast.BaseLocalProcess{Kind: ast.BaseRef, Name: "Q"},
	}
	pd := &ast.ProcessDef{
		Name: "P",
		Body: &ast.ProcessBody{
			Local: &ast.Choice{Alternatives: []*ast.ActionPrefix{main}},
			Defs: &ast.LocalProcessDefs{Defs: []*ast.LocalProcessDef{
				{Name: "Q", Local: prefixStop("b")},
			}},
		},
	}
	g, err := TranslateProcessDef(pd, env, at, reg)
	if err != nil {
		t.Fatalf("TranslateProcessDef: %v", err)
	}
	if g.NumStates() != 3 {
		t.Fatalf("P has %d states, want 3 (start, after a, after b)", g.NumStates())
	}
	firstEdge := g.Edges(0)[0]
	if at.Label(firstEdge.Action) != "a" {
		t.Errorf("first edge = %q, want a", at.Label(firstEdge.Action))
	}
	secondEdges := g.Edges(firstEdge.Dest)
	if len(secondEdges) != 1 || at.Label(secondEdges[0].Action) != "b" {
		t.Errorf("second edges = %v, want a single b-edge", secondEdges)
	}
}

func TestTranslateProcessDefUnresolvedReference(t *testing.T) {
	env, at, reg := newFixture()
	pd := &ast.ProcessDef{
		Name: "P",
		Body: &ast.ProcessBody{
			Local: &ast.Choice{Alternatives: []*ast.ActionPrefix{{
				Prefix: &ast.PrefixActions{Chain: []*ast.ActionLabels{
					{Elements: []ast.Node{&ast.LowerCaseID{Name: "a"}}},
				}},
				Local: &ast.BaseLocalProcess{Kind: ast.BaseRef, Name: "NOSUCH"},
			}}},
		},
	}
	_, err := TranslateProcessDef(pd, env, at, reg)
	if err == nil {
		t.Fatal("expected an unresolved-reference error")
	}
	se, ok := err.(*fspgo.SemanticError)
	if !ok || se.Kind != fspgo.ErrUnresolvedReference {
		t.Errorf("error = %v, want ErrUnresolvedReference", err)
	}
}

func TestResolveProcessRefAndCompositeParallel(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fspgo.eval")
	defer teardown()
	env, at, reg := newFixture()

	pPd := &ast.ProcessDef{Name: "P", Body: &ast.ProcessBody{Local: prefixStop("a")}}
	qPd := &ast.ProcessDef{Name: "Q", Body: &ast.ProcessBody{Local: prefixStop("b")}}
	if err := reg.Define("P", symbol.ProcessHandle{Tree: pPd}, false); err != nil {
		t.Fatalf("Define P: %v", err)
	}
	if err := reg.Define("Q", symbol.ProcessHandle{Tree: qPd}, false); err != nil {
		t.Fatalf("Define Q: %v", err)
	}

	cd := &ast.CompositeDef{
		Name: "R",
		Body: &ast.ParenComposite{Parallel: &ast.ParallelComp{Operands: []ast.Node{
			&ast.RefComposite{Ref: &ast.ProcessRef{Name: "P"}},
			&ast.RefComposite{Ref: &ast.ProcessRef{Name: "Q"}},
		}}},
	}
	g, err := TranslateCompositeDef(cd, env, at, reg)
	if err != nil {
		t.Fatalf("TranslateCompositeDef: %v", err)
	}
	// a and b are independent actions: the composition interleaves them,
	// giving the 4-state "diamond" (0,0)-(1,0)-(0,1)-(1,1).
	if g.NumStates() != 4 {
		t.Errorf("R has %d states, want 4", g.NumStates())
	}
	if g.NumTransitions() != 4 {
		t.Errorf("R has %d transitions, want 4", g.NumTransitions())
	}
}

func TestResolveProcessRefCachesPublishedResult(t *testing.T) {
	env, at, reg := newFixture()
	pd := &ast.ProcessDef{Name: "P", Body: &ast.ProcessBody{Local: prefixStop("a")}}
	if err := reg.Define("P", symbol.ProcessHandle{Tree: pd}, false); err != nil {
		t.Fatalf("Define: %v", err)
	}

	ref := &ast.ProcessRef{Name: "P"}
	g1, err := ResolveProcessRef(ref, env, at, reg)
	if err != nil {
		t.Fatalf("first ResolveProcessRef: %v", err)
	}
	cached, ok := reg.Cached("P", nil)
	if !ok {
		t.Fatal("expected P to be published after the first resolution")
	}
	g2, err := ResolveProcessRef(ref, env, at, reg)
	if err != nil {
		t.Fatalf("second ResolveProcessRef: %v", err)
	}
	if g1.NumStates() != g2.NumStates() || g1.NumStates() != cached.NumStates() {
		t.Errorf("repeated resolution produced differently-shaped graphs: %d vs %d vs %d",
			g1.NumStates(), g2.NumStates(), cached.NumStates())
	}
}

// prefixEnd builds `a -> END`, a local process-def usable as the head
// of a sequential composition (unlike prefixStop, it actually reaches
// END).
func prefixEnd(label string) *ast.Choice {
	ap := &ast.ActionPrefix{
		Prefix: &ast.PrefixActions{Chain: []*ast.ActionLabels{
			{Elements: []ast.Node{&ast.LowerCaseID{Name: label}}},
		}},
		Local: &ast.BaseLocalProcess{Kind: ast.BaseEnd},
	}
	return &ast.Choice{Alternatives: []*ast.ActionPrefix{ap}}
}

func TestCompileAllOrdersAndTranslates(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fspgo.eval")
	defer teardown()
	env, at, reg := newFixture()
	root := &ast.Root{Decls: []ast.Node{
		&ast.ProcessDef{Name: "LEAF", Body: &ast.ProcessBody{Local: prefixEnd("a")}},
		&ast.ProcessDef{
			Name: "TOP",
			Body: &ast.ProcessBody{Local: &ast.Choice{Alternatives: []*ast.ActionPrefix{{
				Prefix: &ast.PrefixActions{Chain: []*ast.ActionLabels{
					{Elements: []ast.Node{&ast.LowerCaseID{Name: "x"}}},
				}},
				Local: &ast.SeqComp{
					List: &ast.SeqProcessList{Refs: []*ast.ProcessRefSeq{{Name: "LEAF"}}},
					Local: &ast.BaseLocalProcess{Kind: ast.BaseEnd},
				},
			}}}},
		},
	}}
	if err := CompileAll(root, env, at, reg); err != nil {
		t.Fatalf("CompileAll: %v", err)
	}
	if _, ok := reg.Cached("LEAF", nil); !ok {
		t.Error("expected LEAF to be published")
	}
	if _, ok := reg.Cached("TOP", nil); !ok {
		t.Error("expected TOP to be published")
	}
}
