package shell

import (
	"strconv"
	"strings"

	"github.com/fsp-go/fspgo"
	"github.com/fsp-go/fspgo/ast"
	"github.com/fsp-go/fspgo/eval"
	"github.com/fsp-go/fspgo/lts"
)

// Execute runs one shell input line: a control-flow keyword
// (if/elif/else/fi), a variable assignment (`name = expr`), or a
// command verb in call syntax (`safety(name?)`,
// `simulate(name, menu?)`, bare `ls`, ...). quit reports whether an
// `exit` command fired; code is its exit code. A failed command
// scopes its error to that command; the shell keeps running.
func (sh *Shell) Execute(line string) (quit bool, code int, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, 0, nil
	}
	tracer().Debugf("shell: %s", line)
	fields := strings.Fields(line)
	switch fields[0] {
	case "if", "elif", "else", "fi":
		return sh.execControl(fields, line)
	}

	if !sh.active() {
		return false, 0, nil // inside a false if/elif branch: skip
	}

	if name, rest, ok := splitAssignment(line); ok {
		return false, 0, sh.execAssign(name, rest)
	}

	if fields[0] == "exit" {
		return sh.execExit(fields[1:], line)
	}

	verb, args, serr := splitCommandArgs(line)
	if serr != nil {
		return false, 0, serr
	}
	switch verb {
	case "safety":
		return false, 0, sh.execSafety(args)
	case "progress":
		return false, 0, sh.execProgress(args)
	case "simulate":
		return false, 0, sh.execSimulate(args)
	case "alpha":
		return false, 0, sh.execAlpha(args)
	case "ls":
		return false, 0, sh.execLs()
	case "lsprop":
		return false, 0, sh.execLsprop()
	case "lsmenu":
		return false, 0, sh.execLsmenu()
	case "minimize":
		return false, 0, sh.execMinimize(args)
	case "traces":
		return false, 0, sh.execTraces(args)
	case "basic":
		return false, 0, sh.execBasic(args)
	case "graphviz":
		return false, 0, sh.execGraphviz(args)
	case "print":
		return false, 0, sh.execPrint(args)
	}
	return false, 0, fspgo.NewSemanticError(fspgo.ErrUnsupportedOperator, "unknown shell command %q", verb)
}

// splitCommandArgs splits a command line into its verb and its
// top-level comma-separated argument list, understanding the
// function-call syntax every analysis command uses (`verb(arg1,arg2)`)
// as well as the bare form a zero-argument command like `ls` takes.
// Args keep any nested parentheses intact: an argument such as
// "P(1,2)" is passed through whole for parseExtendedName to parse
// itself.
func splitCommandArgs(line string) (verb string, args []string, err error) {
	open := strings.IndexByte(line, '(')
	if open < 0 {
		return strings.Fields(line)[0], nil, nil
	}
	verb = line[:open]
	if strings.ContainsAny(verb, " \t") || verb == "" {
		return "", nil, fspgo.NewSemanticError(fspgo.ErrUnsupportedOperator, "malformed command %q", line)
	}
	if !strings.HasSuffix(line, ")") {
		return "", nil, fspgo.NewSemanticError(fspgo.ErrUnsupportedOperator, "unbalanced parentheses in %q", line)
	}
	inner := strings.TrimSpace(line[open+1 : len(line)-1])
	if inner == "" {
		return verb, nil, nil
	}
	for _, part := range splitTopLevel(inner) {
		args = append(args, strings.TrimSpace(part))
	}
	return verb, args, nil
}

// splitTopLevel splits s on commas that are not nested inside a
// parenthesized argument, so "P(1,2),MENU" splits into ["P(1,2)",
// "MENU"] rather than three pieces.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// --- if/elif/else/fi ---------------------------------------------------

// active reports whether every open if/elif/else block currently
// allows execution. An empty condition stack is always active:
// top-level lines sit outside any if.
func (sh *Shell) active() bool {
	for _, f := range sh.conds {
		if !f.active {
			return false
		}
	}
	return true
}

func (sh *Shell) execControl(fields []string, line string) (bool, int, error) {
	switch fields[0] {
	case "if":
		cond, err := sh.condValue(sh.active(), line, "if")
		if err != nil {
			return false, 0, err
		}
		sh.conds = append(sh.conds, condFrame{active: cond, taken: cond})
	case "elif":
		if len(sh.conds) == 0 {
			return false, 0, fspgo.NewSemanticError(fspgo.ErrUnsupportedOperator, "elif without matching if")
		}
		top := &sh.conds[len(sh.conds)-1]
		// The elif condition must be evaluated against the *outer*
		// nesting level's activity, not top.active itself: top.active
		// currently still holds the preceding if/elif branch's (false)
		// outcome, which would otherwise make sh.active() see this
		// frame as inactive and skip evaluating a perfectly live elif.
		outer := sh.outerActive()
		if top.taken {
			top.active = false
			return false, 0, nil
		}
		cond, err := sh.condValue(outer, line, "elif")
		if err != nil {
			return false, 0, err
		}
		top.active = cond
		top.taken = cond
	case "else":
		if len(sh.conds) == 0 {
			return false, 0, fspgo.NewSemanticError(fspgo.ErrUnsupportedOperator, "else without matching if")
		}
		top := &sh.conds[len(sh.conds)-1]
		top.active = !top.taken
		top.taken = true
	case "fi":
		if len(sh.conds) == 0 {
			return false, 0, fspgo.NewSemanticError(fspgo.ErrUnsupportedOperator, "fi without matching if")
		}
		sh.conds = sh.conds[:len(sh.conds)-1]
	}
	return false, 0, nil
}

func (sh *Shell) condValue(guard bool, line, verb string) (bool, error) {
	if !guard {
		return false, nil // a condition nested in an already-inactive branch is never evaluated
	}
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), verb))
	v, err := sh.evalShellExpr(rest)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// outerActive reports whether every if/elif/else frame enclosing the
// current (innermost) one is active, used by "elif" to decide whether
// its condition should be evaluated at all, independent of the
// innermost frame's own (stale, pre-update) active flag.
func (sh *Shell) outerActive() bool {
	if len(sh.conds) == 0 {
		return true
	}
	for _, f := range sh.conds[:len(sh.conds)-1] {
		if !f.active {
			return false
		}
	}
	return true
}

// --- variable assignment ------------------------------------------------

// splitAssignment recognizes `name = expr`: name must be a bare
// identifier, and the first "=" not part of a multi-char operator
// (==, !=, <=, >=) splits the line.
func splitAssignment(line string) (name, rhs string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 || fields[1] != "=" {
		return "", "", false
	}
	if !isIdentStart(fields[0][0]) {
		return "", "", false
	}
	for i := 1; i < len(fields[0]); i++ {
		if !isIdentPart(fields[0][i]) {
			return "", "", false
		}
	}
	eq := strings.Index(line, "=")
	return fields[0], strings.TrimSpace(line[eq+1:]), true
}

func (sh *Shell) execAssign(name, rhs string) error {
	v, err := sh.evalShellExpr(rhs)
	if err != nil {
		return err
	}
	sh.vars[name] = v
	return nil
}

// --- exit ---------------------------------------------------------------

func (sh *Shell) execExit(args []string, line string) (bool, int, error) {
	if len(args) == 0 {
		return true, 0, nil
	}
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "exit"))
	v, err := sh.evalShellExpr(rest)
	if err != nil {
		return true, 1, err
	}
	return true, v, nil
}

// --- extended name resolution ------------------------------------------

// parseExtendedName parses `BaseName` or `BaseName(int,int,...)`:
// whitespace outside the parentheses is rejected, at most one pair of
// parentheses is accepted, and the argument count (if present) must
// equal the process's declared arity.
func (sh *Shell) parseExtendedName(s string) (name string, args []int, err error) {
	if strings.ContainsAny(s, " \t") {
		return "", nil, fspgo.NewSemanticError(fspgo.ErrUnsupportedOperator, "whitespace not allowed in process name %q", s)
	}
	open := strings.Index(s, "(")
	if open < 0 {
		return s, nil, nil
	}
	if !strings.HasSuffix(s, ")") {
		return "", nil, fspgo.NewSemanticError(fspgo.ErrUnsupportedOperator, "unbalanced parentheses in %q", s)
	}
	name = s[:open]
	inner := s[open+1 : len(s)-1]
	if strings.Contains(inner, "(") || strings.Contains(inner, ")") {
		return "", nil, fspgo.NewSemanticError(fspgo.ErrUnsupportedOperator, "at most one pair of parentheses allowed in %q", s)
	}
	h, ok := sh.reg.Lookup(name)
	if !ok {
		return "", nil, fspgo.NewSemanticError(fspgo.ErrUndeclared, "process %q is not declared", name)
	}
	parts := strings.Split(inner, ",")
	if len(parts) != len(h.Names) {
		return "", nil, fspgo.NewSemanticError(fspgo.ErrArityMismatch,
			"process %q takes %d parameter(s), got %d", name, len(h.Names), len(parts))
	}
	args = make([]int, len(parts))
	for i, p := range parts {
		v, convErr := strconv.Atoi(strings.TrimSpace(p))
		if convErr != nil {
			return "", nil, fspgo.NewSemanticError(fspgo.ErrUnsupportedOperator, "argument %q is not an integer", p)
		}
		args[i] = v
	}
	return name, args, nil
}

// resolve looks up the published LTS for name(args), translating it on
// demand via eval.ResolveProcessRef when it is a composite or otherwise
// not yet cached (composites are deferred to interactive demand).
func (sh *Shell) resolve(name string, args []int) (*lts.Graph, error) {
	if g, ok := sh.reg.Cached(name, args); ok {
		return g, nil
	}
	ref := &ast.ProcessRef{Name: name}
	if len(args) > 0 {
		exprs := make([]ast.Node, len(args))
		for i, v := range args {
			exprs[i] = &ast.IntLit{Value: v}
		}
		ref.Args = &ast.Arguments{Exprs: exprs}
	}
	return eval.ResolveProcessRef(ref, sh.env, sh.at, sh.reg)
}

// argOrEmpty returns args[0] if present, else "". safety and progress
// treat "" as "every published process"; the other unary commands
// (alpha/minimize/...) pass it to namedGraph, which rejects it.
func argOrEmpty(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
