package shell

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fsp-go/fspgo/action"
	"github.com/fsp-go/fspgo/ast"
	"github.com/fsp-go/fspgo/eval"
	"github.com/fsp-go/fspgo/registry"
	"github.com/fsp-go/fspgo/symbol"
	"github.com/fsp-go/fspgo/tenv"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

// prefixStop builds `label -> STOP` as a local process-def body.
func prefixStop(label string) *ast.Choice {
	ap := &ast.ActionPrefix{
		Prefix: &ast.PrefixActions{Chain: []*ast.ActionLabels{
			{Elements: []ast.Node{&ast.LowerCaseID{Name: label}}},
		}},
		Local: &ast.BaseLocalProcess{Kind: ast.BaseStop},
	}
	return &ast.Choice{Alternatives: []*ast.ActionPrefix{ap}}
}

// inlineSet builds `{labels...}`.
func inlineSet(labels ...string) *ast.SetExpr {
	chains := make([]*ast.ActionLabels, len(labels))
	for i, l := range labels {
		chains[i] = &ast.ActionLabels{Elements: []ast.Node{&ast.LowerCaseID{Name: l}}}
	}
	return &ast.SetExpr{Elements: &ast.SetElements{Chains: chains}}
}

// newFixtureShell compiles a small program (two independent one-action
// processes P and Q, a progress property and a menu) and returns a
// Shell driving it, plus the output buffer it writes to.
func newFixtureShell(t *testing.T) (*Shell, *bytes.Buffer) {
	t.Helper()
	teardown := gotestingadapter.QuickConfig(t, "fspgo.shell")
	t.Cleanup(teardown)
	at := action.NewTable()
	env := tenv.NewEnv(symbol.NewTable())
	reg := registry.New()

	root := &ast.Root{Decls: []ast.Node{
		&ast.ProcessDef{Name: "P", Body: &ast.ProcessBody{Local: prefixStop("a")}},
		&ast.ProcessDef{Name: "Q", Body: &ast.ProcessBody{Local: prefixStop("b")}},
		&ast.ProgressDef{Name: "PROG", Set: inlineSet("a")},
		&ast.MenuDef{Name: "MENU", Set: inlineSet("a")},
	}}
	if err := eval.CompileAll(root, env, at, reg); err != nil {
		t.Fatalf("CompileAll: %v", err)
	}

	sh := New(at, reg, env)
	var buf bytes.Buffer
	sh.out = &buf
	return sh, &buf
}

func runLines(t *testing.T, sh *Shell, lines ...string) (quit bool, code int) {
	t.Helper()
	for _, line := range lines {
		q, c, err := sh.Execute(line)
		if err != nil {
			t.Fatalf("Execute(%q): %v", line, err)
		}
		if q {
			return true, c
		}
	}
	return false, 0
}

func TestExecuteLsListsPublishedProcesses(t *testing.T) {
	sh, buf := newFixtureShell(t)
	runLines(t, sh, "ls")
	out := buf.String()
	if !strings.Contains(out, "P") || !strings.Contains(out, "Q") {
		t.Errorf("ls output = %q, want both P and Q", out)
	}
}

func TestExecuteLsprop(t *testing.T) {
	sh, buf := newFixtureShell(t)
	runLines(t, sh, "lsprop")
	if got := strings.TrimSpace(buf.String()); got != "PROG" {
		t.Errorf("lsprop output = %q, want PROG", got)
	}
}

func TestExecuteLsmenu(t *testing.T) {
	sh, buf := newFixtureShell(t)
	runLines(t, sh, "lsmenu")
	out := buf.String()
	if !strings.Contains(out, "MENU") || !strings.Contains(out, "a") {
		t.Errorf("lsmenu output = %q, want MENU listing {a}", out)
	}
}

func TestExecuteSafetyNamedProcess(t *testing.T) {
	sh, buf := newFixtureShell(t)
	runLines(t, sh, "safety(P)")
	if !strings.Contains(buf.String(), "P:") {
		t.Errorf("safety(P) output = %q, want a line for P", buf.String())
	}
}

func TestExecuteAlphaNamedProcess(t *testing.T) {
	sh, buf := newFixtureShell(t)
	runLines(t, sh, "alpha(P)")
	if !strings.Contains(buf.String(), "a") {
		t.Errorf("alpha(P) output = %q, want alphabet containing a", buf.String())
	}
}

func TestExecutePrintNamedProcess(t *testing.T) {
	sh, buf := newFixtureShell(t)
	runLines(t, sh, "print(P)")
	out := buf.String()
	if !strings.Contains(out, "states") || !strings.Contains(out, "-a->") {
		t.Errorf("print(P) output = %q, want a states/edges listing", out)
	}
}

func TestExecuteUnknownCommandFails(t *testing.T) {
	sh, _ := newFixtureShell(t)
	_, _, err := sh.Execute("frobnicate")
	if err == nil {
		t.Fatal("expected an error for an unknown command")
	}
}

func TestExecuteAssignmentAndExitCode(t *testing.T) {
	sh, _ := newFixtureShell(t)
	quit, code := runLines(t, sh, "n = 3 + 4", "exit n")
	if !quit || code != 7 {
		t.Errorf("exit code = %v/%d, want true/7", quit, code)
	}
}

func TestExecuteIfTrueRunsBody(t *testing.T) {
	sh, buf := newFixtureShell(t)
	runLines(t, sh, "if 1", "ls", "fi")
	if buf.Len() == 0 {
		t.Error("expected ls output inside a true if-branch")
	}
}

func TestExecuteIfFalseSkipsBody(t *testing.T) {
	sh, buf := newFixtureShell(t)
	runLines(t, sh, "if 0", "ls", "fi")
	if buf.Len() != 0 {
		t.Errorf("expected no output inside a false if-branch, got %q", buf.String())
	}
}

// TestExecuteElifEvaluatesWhenReached is a regression test for a bug
// where elif's condition was evaluated against the stale (always
// false) outcome of the preceding branch, causing every live elif to
// be silently skipped.
func TestExecuteElifEvaluatesWhenReached(t *testing.T) {
	sh, buf := newFixtureShell(t)
	runLines(t, sh, "if 0", "safety(P)", "elif 1", "ls", "fi")
	out := buf.String()
	if strings.Contains(out, "violation") {
		t.Errorf("if-branch ran despite a false condition: %q", out)
	}
	if !strings.Contains(out, "P") {
		t.Errorf("elif 1 branch did not run: %q", out)
	}
}

func TestExecuteElifNotTakenWhenIfAlreadyTrue(t *testing.T) {
	sh, buf := newFixtureShell(t)
	runLines(t, sh, "if 1", "ls", "elif 1", "alpha(P)", "fi")
	out := buf.String()
	if !strings.Contains(out, "P") || strings.Contains(out, "alphabet") {
		t.Errorf("elif ran even though its if already matched: %q", out)
	}
}

func TestExecuteElifFalseOuterStaysSkipped(t *testing.T) {
	sh, buf := newFixtureShell(t)
	// the outer "if 0" is false, so the nested elif must never run even
	// though its own condition is true.
	runLines(t, sh, "if 0", "if 0", "ls", "elif 1", "alpha(P)", "fi", "fi")
	if buf.Len() != 0 {
		t.Errorf("expected no output: an elif nested in a false outer if ran: %q", buf.String())
	}
}

func TestExecuteElseRunsWhenNoBranchTaken(t *testing.T) {
	sh, buf := newFixtureShell(t)
	runLines(t, sh, "if 0", "ls", "elif 0", "alpha(P)", "else", "lsprop", "fi")
	if got := strings.TrimSpace(buf.String()); got != "PROG" {
		t.Errorf("else branch output = %q, want PROG (lsprop)", got)
	}
}

func TestRunScriptSkipsCommentsAndBlankLines(t *testing.T) {
	sh, buf := newFixtureShell(t)
	script := "# a comment\n\nls\n"
	if _, err := sh.RunScript(strings.NewReader(script)); err != nil {
		t.Fatalf("RunScript: %v", err)
	}
	if !strings.Contains(buf.String(), "P") {
		t.Errorf("RunScript output = %q, want P listed", buf.String())
	}
}

func TestRunScriptStopsAtExit(t *testing.T) {
	sh, buf := newFixtureShell(t)
	script := "exit 5\nls\n"
	code, err := sh.RunScript(strings.NewReader(script))
	if err != nil {
		t.Fatalf("RunScript: %v", err)
	}
	if code != 5 {
		t.Errorf("exit code = %d, want 5", code)
	}
	if buf.Len() != 0 {
		t.Errorf("ls after exit should not have run: %q", buf.String())
	}
}

func TestExecuteSimulateAutoPicksInScriptMode(t *testing.T) {
	sh, buf := newFixtureShell(t)
	// sh.rl is nil (no readline attached), so simulate must auto-advance
	// to completion instead of blocking on input.
	runLines(t, sh, "simulate(P)")
	if !strings.Contains(buf.String(), "halted") {
		t.Errorf("simulate(P) output = %q, want a halted-state line", buf.String())
	}
}

func TestParseExtendedNameRejectsArityMismatch(t *testing.T) {
	sh, _ := newFixtureShell(t)
	_, _, err := sh.parseExtendedName("P(1)")
	if err == nil {
		t.Fatal("expected an arity-mismatch error for P(1), P takes no parameters")
	}
}

func TestParseExtendedNameRejectsWhitespace(t *testing.T) {
	sh, _ := newFixtureShell(t)
	_, _, err := sh.parseExtendedName("P( )")
	if err == nil {
		t.Fatal("expected a whitespace error")
	}
}

func TestEvalShellExprArithmeticOnVariables(t *testing.T) {
	sh, _ := newFixtureShell(t)
	sh.vars["x"] = 2
	v, err := sh.evalShellExpr("x * 5 + 1")
	if err != nil {
		t.Fatalf("evalShellExpr: %v", err)
	}
	if v != 11 {
		t.Errorf("x*5+1 = %d, want 11", v)
	}
}

func TestEvalShellExprComparisonAndLogic(t *testing.T) {
	sh, _ := newFixtureShell(t)
	v, err := sh.evalShellExpr("(1 == 1) && (2 > 3)")
	if err != nil {
		t.Fatalf("evalShellExpr: %v", err)
	}
	if v != 0 {
		t.Errorf("(1==1)&&(2>3) = %d, want 0", v)
	}
}
