package main

import "github.com/fsp-go/fspgo/ast"

// label builds a single-token prefix step, e.g. the "a" in "a -> ...".
func label(name string) *ast.ActionLabels {
	return &ast.ActionLabels{Elements: []ast.Node{&ast.LowerCaseID{Name: name}}}
}

// chainTo builds `labels... -> local` as a Choice with a single
// alternative, the shape translateLocal's Choice case expects.
func chainTo(local ast.Node, labels ...string) *ast.Choice {
	chain := make([]*ast.ActionLabels, len(labels))
	for i, l := range labels {
		chain[i] = label(l)
	}
	ap := &ast.ActionPrefix{Prefix: &ast.PrefixActions{Chain: chain}, Local: local}
	return &ast.Choice{Alternatives: []*ast.ActionPrefix{ap}}
}

func inlineSet(labels ...string) *ast.SetExpr {
	chains := make([]*ast.ActionLabels, len(labels))
	for i, l := range labels {
		chains[i] = label(l)
	}
	return &ast.SetExpr{Elements: &ast.SetElements{Chains: chains}}
}

// demoProgram returns a small worked example program as an
// already-parsed ast.Root, standing in for the lexer/grammar front
// end: two finite processes, a cyclic process with progress
// properties over it, and a safety property.
func demoProgram() *ast.Root {
	p := &ast.ProcessDef{Name: "P", Body: &ast.ProcessBody{
		Local: chainTo(&ast.BaseLocalProcess{Kind: ast.BaseStop}, "a", "b"),
	}}
	q := &ast.ProcessDef{Name: "Q", Body: &ast.ProcessBody{
		Local: chainTo(&ast.BaseLocalProcess{Kind: ast.BaseEnd}, "a"),
	}}
	r := &ast.ProcessDef{Name: "R", Body: &ast.ProcessBody{
		Local: chainTo(&ast.BaseLocalProcess{Kind: ast.BaseRef, Name: "R"}, "a", "b"),
	}}
	pl := &ast.ProcessDef{Name: "PL", Property: true, Body: &ast.ProcessBody{
		Local: chainTo(&ast.BaseLocalProcess{Kind: ast.BaseRef, Name: "PL"}, "a", "b"),
	}}
	progressX := &ast.ProgressDef{Name: "X", Set: inlineSet("a")}
	progressY := &ast.ProgressDef{Name: "Y", Set: inlineSet("c")}

	return &ast.Root{Decls: []ast.Node{p, q, r, pl, progressX, progressY}}
}
