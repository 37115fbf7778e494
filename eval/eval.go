package eval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fsp-go/fspgo"
	"github.com/fsp-go/fspgo/action"
	"github.com/fsp-go/fspgo/ast"
	"github.com/fsp-go/fspgo/lts"
	"github.com/fsp-go/fspgo/registry"
	"github.com/fsp-go/fspgo/setalg"
	"github.com/fsp-go/fspgo/symbol"
	"github.com/fsp-go/fspgo/tenv"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'fspgo.eval'.
func tracer() tracing.Trace {
	return tracing.Select("fspgo.eval")
}

// --- Expressions ------------------------------------------------------------

// EvalExpr evaluates the full C-style integer expression grammar,
// plus identifier lookup: a LowerCaseID resolves against
// the current Context first and Symbols second; an UpperCaseID
// resolves against Symbols only.
func EvalExpr(n ast.Node, env *tenv.Env) (Result, error) {
	switch e := n.(type) {
	case *ast.IntLit:
		return IntResult(e.Value), nil

	case *ast.LowerCaseID:
		if v, ok := env.Context.Lookup(e.Name); ok {
			if i, err := strconv.Atoi(v); err == nil {
				return IntResult(i), nil
			}
			return StringResult(v), nil
		}
		return lookupSymbolAsExpr(e.Name, env)

	case *ast.UpperCaseID:
		return lookupSymbolAsExpr(e.Name, env)

	case *ast.RangeExpr:
		lo, err := EvalExpr(e.Low, env)
		if err != nil {
			return Result{}, err
		}
		hi, err := EvalExpr(e.High, env)
		if err != nil {
			return Result{}, err
		}
		return RangeResult(lo.Int, hi.Int), nil

	case *ast.UnaryExpr:
		x, err := EvalExpr(e.X, env)
		if err != nil {
			return Result{}, err
		}
		switch e.Op {
		case "-":
			return IntResult(-x.Int), nil
		case "+":
			return IntResult(x.Int), nil
		case "!":
			return IntResult(boolToInt(!x.Bool())), nil
		}
		return Result{}, fspgo.NewSemanticErrorAt(fspgo.ErrUnsupportedOperator, e.Pos(),
			"unsupported unary operator %q", e.Op)

	case *ast.BinaryExpr:
		return evalBinary(e, env)
	}
	return Result{}, fspgo.NewSemanticErrorAt(fspgo.ErrUnsupportedOperator, n.Pos(),
		"unsupported expression node %T", n)
}

func lookupSymbolAsExpr(name string, env *tenv.Env) (Result, error) {
	v, ok := env.Symbols.Lookup(name)
	if !ok {
		return Result{}, &symbol.UndeclaredError{Name: name}
	}
	switch val := v.(type) {
	case symbol.Integer:
		return IntResult(val.Value), nil
	case symbol.Range:
		return RangeResult(val.Low, val.High), nil
	default:
		return Result{}, &symbol.TypeMismatchError{Name: name, Expected: symbol.KindInteger, Actual: v.Kind()}
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func evalBinary(e *ast.BinaryExpr, env *tenv.Env) (Result, error) {
	// Short-circuit operators evaluate the right operand lazily.
	if e.Op == "&&" {
		l, err := EvalExpr(e.Left, env)
		if err != nil || !l.Bool() {
			return IntResult(boolToInt(err == nil && l.Bool())), err
		}
		r, err := EvalExpr(e.Right, env)
		if err != nil {
			return Result{}, err
		}
		return IntResult(boolToInt(r.Bool())), nil
	}
	if e.Op == "||" {
		l, err := EvalExpr(e.Left, env)
		if err != nil {
			return Result{}, err
		}
		if l.Bool() {
			return IntResult(1), nil
		}
		r, err := EvalExpr(e.Right, env)
		if err != nil {
			return Result{}, err
		}
		return IntResult(boolToInt(r.Bool())), nil
	}

	l, err := EvalExpr(e.Left, env)
	if err != nil {
		return Result{}, err
	}
	r, err := EvalExpr(e.Right, env)
	if err != nil {
		return Result{}, err
	}
	a, b := l.Int, r.Int
	switch e.Op {
	case "+":
		return IntResult(a + b), nil
	case "-":
		return IntResult(a - b), nil
	case "*":
		return IntResult(a * b), nil
	case "/":
		if b == 0 {
			return Result{}, fspgo.NewSemanticErrorAt(fspgo.ErrUnsupportedOperator, e.Pos(), "division by zero")
		}
		return IntResult(a / b), nil
	case "%":
		if b == 0 {
			return Result{}, fspgo.NewSemanticErrorAt(fspgo.ErrUnsupportedOperator, e.Pos(), "modulo by zero")
		}
		return IntResult(a % b), nil
	case "&":
		return IntResult(a & b), nil
	case "|":
		return IntResult(a | b), nil
	case "^":
		return IntResult(a ^ b), nil
	case "<<":
		return IntResult(a << uint(b)), nil
	case ">>":
		return IntResult(a >> uint(b)), nil
	case "==":
		return IntResult(boolToInt(a == b)), nil
	case "!=":
		return IntResult(boolToInt(a != b)), nil
	case "<":
		return IntResult(boolToInt(a < b)), nil
	case "<=":
		return IntResult(boolToInt(a <= b)), nil
	case ">":
		return IntResult(boolToInt(a > b)), nil
	case ">=":
		return IntResult(boolToInt(a >= b)), nil
	}
	return Result{}, fspgo.NewSemanticErrorAt(fspgo.ErrUnsupportedOperator, e.Pos(),
		"unsupported binary operator %q", e.Op)
}

// --- Sets and action labels -------------------------------------------------

// labelSet is the result of evaluating one ActionLabels chain: its
// flattened label set, plus (if exactly one element of the chain bound
// a variable) that variable's name and the per-position value used to
// build each label, so prefix-chain and index-range translation can
// re-bind the variable while iterating. Chains combining more than one
// bound variable are evaluated (the cartesian label set is still
// correct) but only the last-seen binder's values are tracked for
// re-binding.
type labelSet struct {
	set    *setalg.Set
	varN   string
	values []string
}

func evalActionLabels(al *ast.ActionLabels, env *tenv.Env) (*labelSet, error) {
	var result *setalg.Set
	ls := &labelSet{}
	for i, elem := range al.Elements {
		switch e := elem.(type) {
		case *ast.LowerCaseID:
			if i == 0 {
				result = setalg.New(e.Name)
			} else {
				result.DotCat(e.Name)
			}
		case *ast.SetNode:
			s, err := evalSetNode(e, env)
			if err != nil {
				return nil, err
			}
			if i == 0 {
				result = s.Clone()
			} else {
				result.DotCatSet(s)
			}
		case *ast.ActionRange:
			s, values, err := evalActionRange(e, env)
			if err != nil {
				return nil, err
			}
			if i == 0 {
				result = s.Clone()
			} else {
				result.IndexizeSet(s)
			}
			if e.Var != "" {
				ls.varN, ls.values = e.Var, values
			}
		default:
			return nil, fspgo.NewSemanticErrorAt(fspgo.ErrUnsupportedOperator, al.Pos(),
				"unsupported action-labels element %T", elem)
		}
	}
	if result == nil {
		result = setalg.New()
	}
	ls.set = result
	return ls, nil
}

// evalActionRange evaluates one `[var:range]` or `[var:set]` bracket,
// returning its expansion as a label set plus the per-position textual
// value of each element (filled whether or not the bracket binds var).
func evalActionRange(ar *ast.ActionRange, env *tenv.Env) (*setalg.Set, []string, error) {
	var values []string
	switch {
	case ar.Range != nil:
		res, err := EvalExpr(ar.Range, env)
		if err != nil {
			return nil, nil, err
		}
		switch res.Kind {
		case KindRange:
			for i := res.Low; i <= res.High; i++ {
				values = append(values, strconv.Itoa(i))
			}
		default:
			values = append(values, strconv.Itoa(res.Int))
		}
	case ar.Set != nil:
		s, err := evalSetGeneric(ar.Set, env)
		if err != nil {
			return nil, nil, err
		}
		values = s.Labels()
	default:
		return nil, nil, fspgo.NewSemanticErrorAt(fspgo.ErrUnsupportedOperator, ar.Pos(),
			"action range has neither a range nor a set operand")
	}
	out := setalg.New(values...)
	if ar.Var != "" {
		out.Bind(ar.Var)
	}
	return out, values, nil
}

func evalSetNode(sn *ast.SetNode, env *tenv.Env) (*setalg.Set, error) {
	if sn.Ident != nil {
		v, err := symbol.Expect(env.Symbols, sn.Ident.Name, symbol.KindSet)
		if err != nil {
			return nil, err
		}
		return v.(symbol.Set).Set.Clone(), nil
	}
	if sn.Expr != nil {
		return evalSetExpr(sn.Expr, env)
	}
	return nil, fspgo.NewSemanticErrorAt(fspgo.ErrUnsupportedOperator, sn.Pos(), "empty set node")
}

func evalSetExpr(se *ast.SetExpr, env *tenv.Env) (*setalg.Set, error) {
	result := setalg.New()
	for i, chain := range se.Elements.Chains {
		ls, err := evalActionLabels(chain, env)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			result = ls.set.Clone()
		} else {
			result.Append(ls.set)
		}
	}
	return result, nil
}

// evalSetGeneric evaluates any of the several node shapes that stand
// for "a set of action labels" in the grammar: an inline set
// expression, a set-identifier reference, or a bare upper-case
// identifier bound to a set (alpha-ext, hiding-interf and
// priority-spec all share this shape).
func evalSetGeneric(n ast.Node, env *tenv.Env) (*setalg.Set, error) {
	switch v := n.(type) {
	case *ast.SetNode:
		return evalSetNode(v, env)
	case *ast.SetExpr:
		return evalSetExpr(v, env)
	case *ast.UpperCaseID:
		val, err := symbol.Expect(env.Symbols, v.Name, symbol.KindSet)
		if err != nil {
			return nil, err
		}
		return val.(symbol.Set).Set.Clone(), nil
	case *ast.ActionLabels:
		ls, err := evalActionLabels(v, env)
		if err != nil {
			return nil, err
		}
		return ls.set, nil
	default:
		return nil, fspgo.NewSemanticErrorAt(fspgo.ErrUnsupportedOperator, n.Pos(),
			"expected a set expression, found %T", n)
	}
}

// --- Top-level declarations -------------------------------------------------

// EvalTopLevelValue translates a const-def/range-def/set-def's right
// hand side into the symbol.Value it binds.
func EvalTopLevelValue(n ast.Node, env *tenv.Env) (symbol.Value, error) {
	switch v := n.(type) {
	case *ast.IntLit, *ast.BinaryExpr, *ast.UnaryExpr, *ast.LowerCaseID, *ast.UpperCaseID:
		res, err := EvalExpr(v, env)
		if err != nil {
			return nil, err
		}
		if res.Kind == KindRange {
			return symbol.Range{Low: res.Low, High: res.High}, nil
		}
		return symbol.Integer{Value: res.Int}, nil
	case *ast.RangeExpr:
		res, err := EvalExpr(v, env)
		if err != nil {
			return nil, err
		}
		return symbol.Range{Low: res.Low, High: res.High}, nil
	case *ast.SetExpr, *ast.SetNode:
		s, err := evalSetGeneric(v, env)
		if err != nil {
			return nil, err
		}
		return symbol.Set{Set: s}, nil
	}
	return nil, fspgo.NewSemanticErrorAt(fspgo.ErrUnsupportedOperator, n.Pos(),
		"unsupported top-level value node %T", n)
}

// DefineConst evaluates and installs a const-def, range-def or
// set-def into env.Symbols.
func DefineConst(name string, value ast.Node, env *tenv.Env) error {
	v, err := EvalTopLevelValue(value, env)
	if err != nil {
		return err
	}
	if !env.Symbols.Insert(name, v) {
		return fspgo.NewSemanticError(fspgo.ErrDuplicateDefinition, "identifier %q already declared", name)
	}
	return nil
}

// DefineProgress evaluates and installs a progress-def.
func DefineProgress(pd *ast.ProgressDef, at *action.Table, env *tenv.Env) error {
	set, err := evalSetGeneric(pd.Set, env)
	if err != nil {
		return err
	}
	p := symbol.Progress{Set: symbol.FromSet(set, at), Conditional: pd.Conditional}
	if pd.Conditional {
		cond, err := evalSetGeneric(pd.Condition, env)
		if err != nil {
			return err
		}
		p.Condition = symbol.FromSet(cond, at)
	}
	if !env.Symbols.Insert(pd.Name, p) {
		return fspgo.NewSemanticError(fspgo.ErrDuplicateDefinition, "progress %q already declared", pd.Name)
	}
	return nil
}

// --- Index ranges and combinations ------------------------------------------

// combo is one fully-bound assignment of index-range variables to
// integer values, in declaration order.
type combo struct {
	names  []string
	values []int
}

func (c combo) suffix() string {
	if len(c.names) == 0 {
		return ""
	}
	var b strings.Builder
	for _, v := range c.values {
		b.WriteString("[")
		b.WriteString(strconv.Itoa(v))
		b.WriteString("]")
	}
	return b.String()
}

func (c combo) bind(env *tenv.Env) func() {
	for i, name := range c.names {
		env.Context.Insert(name, strconv.Itoa(c.values[i]))
		env.Symbols.Insert(name, symbol.Integer{Value: c.values[i]})
	}
	return func() {
		for _, name := range c.names {
			env.Context.Remove(name)
			env.Symbols.Remove(name)
		}
	}
}

func rangeValues(ar *ast.ActionRange, env *tenv.Env) ([]int, error) {
	if ar.Range != nil {
		res, err := EvalExpr(ar.Range, env)
		if err != nil {
			return nil, err
		}
		if res.Kind == KindRange {
			out := make([]int, 0, res.High-res.Low+1)
			for i := res.Low; i <= res.High; i++ {
				out = append(out, i)
			}
			return out, nil
		}
		return []int{res.Int}, nil
	}
	if ar.Set != nil {
		s, err := evalSetGeneric(ar.Set, env)
		if err != nil {
			return nil, err
		}
		out := make([]int, 0, s.Len())
		for _, l := range s.Labels() {
			if n, err := strconv.Atoi(l); err == nil {
				out = append(out, n)
			}
		}
		return out, nil
	}
	return nil, fspgo.NewSemanticErrorAt(fspgo.ErrUnsupportedOperator, ar.Pos(), "empty index range")
}

// combinations expands ranges into the full cartesian product of
// (name, value) bindings, in declaration order: the per-combination
// expansion step shared by local-process-defs and the forall
// combinator.
func combinations(ranges *ast.IndexRanges, env *tenv.Env) ([]combo, error) {
	if ranges == nil || len(ranges.Ranges) == 0 {
		return []combo{{}}, nil
	}
	combos := []combo{{}}
	for _, ar := range ranges.Ranges {
		values, err := rangeValues(ar, env)
		if err != nil {
			return nil, err
		}
		var next []combo
		for _, base := range combos {
			for _, v := range values {
				c := combo{
					names:  append(append([]string(nil), base.names...), ar.Var),
					values: append(append([]int(nil), base.values...), v),
				}
				next = append(next, c)
			}
		}
		combos = next
	}
	return combos, nil
}

// --- Local-process translation -----------------------------------------------

// localCtx threads per-process-definition translation state: the
// action table, the process registry (for cross-process refs inside
// sequential composition), and the translation cache keyed by
// (sub-tree pointer, context snapshot) that avoids re-translating an
// identical local process reached via two different prefix paths.
type localCtx struct {
	at     *action.Table
	reg    *registry.Registry
	cache  map[string]*lts.Graph
	groups map[string]int // name -> resolver group handle already used in this process-def
}

func newLocalCtx(at *action.Table, reg *registry.Registry) *localCtx {
	return &localCtx{at: at, reg: reg, cache: make(map[string]*lts.Graph), groups: make(map[string]int)}
}

func bracketSuffix(vals []int) string {
	var b strings.Builder
	for _, v := range vals {
		b.WriteString("[")
		b.WriteString(strconv.Itoa(v))
		b.WriteString("]")
	}
	return b.String()
}

// translateLocal translates a local-process node (a base local
// process, choice, if/else or sequential composition) into an LTS
// fragment that may still contain Unresolved placeholder nodes.
func translateLocal(n ast.Node, env *tenv.Env, lc *localCtx) (*lts.Graph, error) {
	switch v := n.(type) {
	case *ast.BaseLocalProcess:
		switch v.Kind {
		case ast.BaseEnd:
			return lts.EndLTS(lc.at), nil
		case ast.BaseStop:
			return lts.Stop(lc.at), nil
		case ast.BaseError:
			return lts.ErrorLTS(lc.at), nil
		case ast.BaseRef:
			name := v.Name
			if v.Indices != nil {
				vals, err := evalIntList(v.Indices.Exprs, env)
				if err != nil {
					return nil, err
				}
				name += bracketSuffix(vals)
			}
			// lc.groups[name] already being set tags this fresh
			// placeholder with the same resolver group as any earlier
			// reference or definition for name: once this node is
			// copied elsewhere by Append/ZeroCat, Register's own
			// merge-broadcast can no longer reach it.
			g := lts.UnresolvedLTS(lc.at, lc.groups[name])
			if err := env.Unresolved.Register(name, g, false); err != nil {
				return nil, err
			}
			lc.groups[name] = g.GetPriv(0)
			return g, nil
		}
		return nil, fspgo.NewSemanticErrorAt(fspgo.ErrUnsupportedOperator, v.Pos(), "unknown base-local-process kind")

	case *ast.Choice:
		var result *lts.Graph
		for _, alt := range v.Alternatives {
			sub, err := translateActionPrefix(alt, env, lc)
			if err != nil {
				return nil, err
			}
			if sub == nil {
				continue // guard evaluated false: this alternative contributes nothing
			}
			if result == nil {
				result = sub
			} else {
				result.ZeroMerge(sub)
			}
		}
		if result == nil {
			return lts.Stop(lc.at), nil
		}
		return result, nil

	case *ast.IfElse:
		cond, err := EvalExpr(v.Cond, env)
		if err != nil {
			return nil, err
		}
		if cond.Bool() {
			return translateLocal(v.Then, env, lc)
		}
		if v.Else != nil {
			return translateLocal(v.Else.Body, env, lc)
		}
		return lts.Stop(lc.at), nil

	case *ast.SeqComp:
		return translateSeqComp(v, env, lc)
	}
	return nil, fspgo.NewSemanticErrorAt(fspgo.ErrUnsupportedOperator, n.Pos(), "unsupported local-process node %T", n)
}

func evalIntList(exprs []ast.Node, env *tenv.Env) ([]int, error) {
	out := make([]int, len(exprs))
	for i, e := range exprs {
		r, err := EvalExpr(e, env)
		if err != nil {
			return nil, err
		}
		out[i] = r.Int
	}
	return out, nil
}

// translateLocalCached memoizes translateLocal by (tree pointer,
// context snapshot): a local-process sub-tree referenced from more
// than one action-prefix under an unchanged context is translated
// once.
func translateLocalCached(n ast.Node, env *tenv.Env, lc *localCtx) (*lts.Graph, error) {
	key := fmt.Sprintf("%p|%s", n, env.Context.Key())
	if g, ok := lc.cache[key]; ok {
		return g.CloneLTS(), nil
	}
	g, err := translateLocal(n, env, lc)
	if err != nil {
		return nil, err
	}
	lc.cache[key] = g
	return g.CloneLTS(), nil
}

// ctxRecords collects the distinct contexts under which a prefix
// chain's trailing local process must be translated. Each Incomplete
// placeholder node carries the 1-based id of its record; the trailing
// local process is translated once per record and spliced back in via
// IncompCat.
type ctxRecords struct {
	contexts []*tenv.Context
}

// idFor returns the 1-based record id for ctx, snapshotting it if no
// equal context has been recorded yet.
func (r *ctxRecords) idFor(ctx *tenv.Context) int {
	for i, c := range r.contexts {
		if c.Equal(ctx) {
			return i + 1
		}
	}
	r.contexts = append(r.contexts, ctx.Clone())
	return len(r.contexts)
}

func translateActionPrefix(ap *ast.ActionPrefix, env *tenv.Env, lc *localCtx) (*lts.Graph, error) {
	if ap.Guard != nil {
		g, err := EvalExpr(ap.Guard, env)
		if err != nil {
			return nil, err
		}
		if !g.Bool() {
			return nil, nil
		}
	}
	rec := &ctxRecords{}
	g, err := buildPrefixChain(ap.Prefix.Chain, 0, env, lc, rec)
	if err != nil {
		return nil, err
	}

	// Splice the trailing local process in, translated once per
	// recorded context.
	ltsv := make([]*lts.Graph, len(rec.contexts)+1)
	for k, ctx := range rec.contexts {
		saved := env.Context
		env.Context = ctx.Clone()
		sub, err := translateLocalCached(ap.Local, env, lc)
		env.Context = saved
		if err != nil {
			return nil, err
		}
		ltsv[k+1] = sub
	}
	g.IncompCat(ltsv)
	return g, nil
}

// buildPrefixChain translates the action chain of a prefix bottom-up.
// The last chain element produces a single edge from node 0 to an
// Incomplete node carrying a context-record id; upper elements wrap
// the tail with one ZeroCat edge per label, re-binding the element's
// bound variable (if any) per label so later elements and the trailing
// local process see the binding.
func buildPrefixChain(chain []*ast.ActionLabels, idx int, env *tenv.Env, lc *localCtx, rec *ctxRecords) (*lts.Graph, error) {
	ls, err := evalActionLabels(chain[idx], env)
	if err != nil {
		return nil, err
	}
	labels := ls.set.Labels()
	if len(labels) == 0 {
		return nil, fspgo.NewSemanticErrorAt(fspgo.ErrUnsupportedOperator, chain[idx].Pos(), "empty action-label set in prefix chain")
	}
	last := idx == len(chain)-1

	var result *lts.Graph
	for i, label := range labels {
		var undo func()
		if ls.varN != "" && i < len(ls.values) {
			v := ls.values[i]
			env.Context.Insert(ls.varN, v)
			if n, err := strconv.Atoi(v); err == nil {
				env.Symbols.Insert(ls.varN, symbol.Integer{Value: n})
			}
			name := ls.varN
			undo = func() {
				env.Context.Remove(name)
				env.Symbols.Remove(name)
			}
		}

		var g *lts.Graph
		if last {
			g = lts.IncompleteLTS(lc.at, lc.at.Insert(label), rec.idFor(env.Context))
		} else {
			var sub *lts.Graph
			sub, err = buildPrefixChain(chain, idx+1, env, lc, rec)
			if err == nil {
				g = lts.Stop(lc.at)
				g.ZeroCat(sub, label)
			}
		}
		if undo != nil {
			undo()
		}
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = g
		} else {
			result.ZeroMerge(g)
		}
	}
	return result, nil
}

func translateSeqComp(sc *ast.SeqComp, env *tenv.Env, lc *localCtx) (*lts.Graph, error) {
	var chain *lts.Graph
	for _, ref := range sc.List.Refs {
		g, err := ResolveProcessRef(&ast.ProcessRef{Name: ref.Name, Args: ref.Args}, env, lc.at, lc.reg)
		if err != nil {
			return nil, err
		}
		if chain == nil {
			chain = g
			continue
		}
		if ok := chain.EndCat(g); !ok {
			return nil, fspgo.NewSemanticErrorAt(fspgo.ErrUnsupportedOperator, ref.Pos(),
				"sequential composition: %q has no END state to continue from", ref.Name)
		}
	}
	base, err := translateLocal(sc.Local, env, lc)
	if err != nil {
		return nil, err
	}
	if chain == nil {
		return base, nil
	}
	if ok := chain.EndCat(base); !ok {
		return nil, fspgo.NewSemanticErrorAt(fspgo.ErrUnsupportedOperator, sc.Pos(),
			"sequential composition: no END state to append the trailing local process to")
	}
	return chain, nil
}

// --- Process-def translation -------------------------------------------------

// TranslateProcessDef translates a whole process-def
// into a finished, fully resolved LTS: its main body and
// every named local-process-def are translated and stitched together,
// Unresolved placeholders are resolved, End nodes are merged, and
// alpha-extension/relabeling/hiding/property are applied in that
// order.
func TranslateProcessDef(pd *ast.ProcessDef, env *tenv.Env, at *action.Table, reg *registry.Registry) (*lts.Graph, error) {
	env.Unresolved.Clear()
	lc := newLocalCtx(at, reg)

	main, err := translateLocal(pd.Body.Local, env, lc)
	if err != nil {
		return nil, err
	}
	if h, seen := lc.groups[pd.Name]; seen {
		main.SetPriv(0, h)
	}
	if err := env.Unresolved.Register(pd.Name, main, true); err != nil {
		return nil, err
	}
	lc.groups[pd.Name] = main.GetPriv(0)

	if pd.Body.Defs != nil {
		for _, def := range pd.Body.Defs.Defs {
			combos, err := combinations(def.Ranges, env)
			if err != nil {
				return nil, err
			}
			for _, c := range combos {
				undo := c.bind(env)
				sub, err := translateLocal(def.Local, env, lc)
				undo()
				if err != nil {
					return nil, err
				}
				name := def.Name + c.suffix()
				if h, seen := lc.groups[name]; seen {
					sub.SetPriv(0, h)
				}
				if err := env.Unresolved.Register(name, sub, true); err != nil {
					return nil, err
				}
				lc.groups[name] = sub.GetPriv(0)
				main.Append(sub, 0)
			}
		}
	}

	if failedPriv, ok := main.Resolve(); !ok {
		return nil, fspgo.NewSemanticErrorAt(fspgo.ErrUnresolvedReference, pd.Pos(),
			"%q: unresolved local process reference (%s)", pd.Name, env.Unresolved.GroupName(failedPriv))
	}
	main.MergeEndNodes()

	if pd.Alpha != nil {
		set, err := evalSetGeneric(pd.Alpha.Set, env)
		if err != nil {
			return nil, err
		}
		for _, l := range set.Labels() {
			main.UpdateAlphabet(at.Insert(l))
		}
	}
	if pd.Relabel != nil {
		for _, rd := range pd.Relabel.Defs {
			newLs, err := evalActionLabels(rd.New, env)
			if err != nil {
				return nil, err
			}
			oldLs, err := evalActionLabels(rd.Old, env)
			if err != nil {
				return nil, err
			}
			main.Relabeling(newLs.set, oldLs.set)
		}
	}
	if pd.Hiding != nil {
		set, err := evalSetGeneric(pd.Hiding.Set, env)
		if err != nil {
			return nil, err
		}
		main.Hiding(set, pd.Hiding.Interface)
	}
	if pd.Property {
		if err := main.Property(); err != nil {
			return nil, err
		}
	}
	return main, nil
}

// --- Composite-def translation -----------------------------------------------

// TranslateCompositeDef translates a whole composite-def by
// translating its body via translateCompositeBody and then applying
// priority and hiding.
func TranslateCompositeDef(cd *ast.CompositeDef, env *tenv.Env, at *action.Table, reg *registry.Registry) (*lts.Graph, error) {
	g, err := translateCompositeBody(cd.Body, env, at, reg)
	if err != nil {
		return nil, err
	}
	if cd.Priority != nil {
		set, err := evalSetGeneric(cd.Priority.Set, env)
		if err != nil {
			return nil, err
		}
		g.Priority(set, cd.Priority.Low)
	}
	if cd.Hiding != nil {
		set, err := evalSetGeneric(cd.Hiding.Set, env)
		if err != nil {
			return nil, err
		}
		g.Hiding(set, cd.Hiding.Interface)
	}
	return g, nil
}

func translateCompositeBody(n ast.Node, env *tenv.Env, at *action.Table, reg *registry.Registry) (*lts.Graph, error) {
	switch v := n.(type) {
	case *ast.RefComposite:
		g, err := ResolveProcessRef(v.Ref, env, at, reg)
		if err != nil {
			return nil, err
		}
		return applySharingLabelingRelabel(g, v.Sharing, v.Labeling, v.Relabel, env, at)

	case *ast.ParenComposite:
		if len(v.Parallel.Operands) == 0 {
			return nil, fspgo.NewSemanticErrorAt(fspgo.ErrUnsupportedOperator, v.Pos(), "empty parallel composition")
		}
		composed, err := translateCompositeBody(v.Parallel.Operands[0], env, at, reg)
		if err != nil {
			return nil, err
		}
		for _, op := range v.Parallel.Operands[1:] {
			sub, err := translateCompositeBody(op, env, at, reg)
			if err != nil {
				return nil, err
			}
			composed = lts.Compose(composed, sub, at)
		}
		return applySharingLabelingRelabel(composed, v.Sharing, v.Labeling, v.Relabel, env, at)

	case *ast.IfElse:
		cond, err := EvalExpr(v.Cond, env)
		if err != nil {
			return nil, err
		}
		if cond.Bool() {
			return translateCompositeBody(v.Then, env, at, reg)
		}
		if v.Else != nil {
			return translateCompositeBody(v.Else.Body, env, at, reg)
		}
		return lts.Stop(at), nil

	case *ast.ForallComposite:
		combos, err := combinations(v.Ranges, env)
		if err != nil {
			return nil, err
		}
		if len(combos) == 0 {
			return nil, fspgo.NewSemanticErrorAt(fspgo.ErrUnsupportedOperator, v.Pos(), "empty forall range")
		}
		var composed *lts.Graph
		for _, c := range combos {
			undo := c.bind(env)
			sub, err := translateCompositeBody(v.Body, env, at, reg)
			undo()
			if err != nil {
				return nil, err
			}
			if composed == nil {
				composed = sub
			} else {
				composed = lts.Compose(composed, sub, at)
			}
		}
		return composed, nil
	}
	return nil, fspgo.NewSemanticErrorAt(fspgo.ErrUnsupportedOperator, n.Pos(), "unsupported composite-body node %T", n)
}

func applySharingLabelingRelabel(g *lts.Graph, sharing *ast.Sharing, labeling *ast.Labeling, relabel *ast.Relabeling, env *tenv.Env, at *action.Table) (*lts.Graph, error) {
	if sharing != nil {
		ls, err := evalActionLabels(sharing.Labels, env)
		if err != nil {
			return nil, err
		}
		g = g.Sharing(ls.set)
	}
	if labeling != nil {
		ls, err := evalActionLabels(labeling.Labels, env)
		if err != nil {
			return nil, err
		}
		g = lts.LabelingSet(g, ls.set, at)
	}
	if relabel != nil {
		for _, rd := range relabel.Defs {
			newLs, err := evalActionLabels(rd.New, env)
			if err != nil {
				return nil, err
			}
			oldLs, err := evalActionLabels(rd.Old, env)
			if err != nil {
				return nil, err
			}
			g = g.Relabeling(newLs.set, oldLs.set)
		}
	}
	return g, nil
}

// --- Cross-process references and the translation driver -------------------

// ResolveProcessRef evaluates a process-ref's arguments, serves a
// cached publication when one exists for that argument tuple, and
// otherwise translates the referenced definition under a freshly
// nested Env. The returned graph is always the caller's own clone;
// the cached publication stays owned by the registry.
func ResolveProcessRef(pr *ast.ProcessRef, env *tenv.Env, at *action.Table, reg *registry.Registry) (*lts.Graph, error) {
	h, ok := reg.Lookup(pr.Name)
	if !ok {
		return nil, fspgo.NewSemanticErrorAt(fspgo.ErrUndeclared, pr.Pos(), "process %q is not declared", pr.Name)
	}
	args := append([]int(nil), h.Defaults...)
	if pr.Args != nil {
		if len(pr.Args.Exprs) > len(h.Names) {
			return nil, fspgo.NewSemanticErrorAt(fspgo.ErrArityMismatch, pr.Pos(),
				"process %q takes %d parameter(s), got %d", pr.Name, len(h.Names), len(pr.Args.Exprs))
		}
		for i, e := range pr.Args.Exprs {
			r, err := EvalExpr(e, env)
			if err != nil {
				return nil, err
			}
			args[i] = r.Int
		}
	}
	if cached, ok := reg.Cached(pr.Name, args); ok {
		return cached.CloneLTS(), nil
	}

	if err := env.NestingSave(h.Names); err != nil {
		return nil, err
	}
	defer env.NestingRestore()
	for i, name := range h.Names {
		env.Context.Insert(name, strconv.Itoa(args[i]))
		env.Symbols.Insert(name, symbol.Integer{Value: args[i]})
	}

	g, err := translateDefinitionTree(h, env, at, reg)
	if err != nil {
		return nil, err
	}
	reg.Publish(pr.Name, args, g)
	return g.CloneLTS(), nil
}

func translateDefinitionTree(h symbol.ProcessHandle, env *tenv.Env, at *action.Table, reg *registry.Registry) (*lts.Graph, error) {
	switch t := h.Tree.(type) {
	case *ast.ProcessDef:
		return TranslateProcessDef(t, env, at, reg)
	case *ast.CompositeDef:
		return TranslateCompositeDef(t, env, at, reg)
	default:
		return nil, fspgo.NewSemanticError(fspgo.ErrUnsupportedOperator, "process handle carries no translatable definition tree")
	}
}

// Translate compiles name with its default arguments, publishing the
// result into reg. It is the entry point package registry's
// TranslationOrder output is fed through to eagerly compile every
// non-composite process; composite definitions are left to be
// compiled on first reference (interactively, by the shell, or
// transitively by ResolveProcessRef).
func Translate(name string, env *tenv.Env, at *action.Table, reg *registry.Registry) (*lts.Graph, error) {
	h, ok := reg.Lookup(name)
	if !ok {
		return nil, fspgo.NewSemanticError(fspgo.ErrUndeclared, "process %q is not declared", name)
	}
	args := append([]int(nil), h.Defaults...)
	if g, ok := reg.Cached(name, args); ok {
		return g, nil
	}
	for i, pname := range h.Names {
		env.Context.Insert(pname, strconv.Itoa(args[i]))
		env.Symbols.Insert(pname, symbol.Integer{Value: args[i]})
	}
	g, err := translateDefinitionTree(h, env, at, reg)
	for _, pname := range h.Names {
		env.Context.Remove(pname)
		env.Symbols.Remove(pname)
	}
	if err != nil {
		return nil, err
	}
	reg.Publish(name, args, g)
	tracer().Debugf("eval: translated %s", registry.BaseName(name, args))
	return g, nil
}

// CompileAll runs the full static pass over a parsed translation
// unit: every const/range/set/progress/menu-def is evaluated
// into env.Symbols, every process-def/composite-def is registered by
// name, and every non-composite definition is then eagerly compiled in
// registry.TranslationOrder's dependency order.
func CompileAll(root *ast.Root, env *tenv.Env, at *action.Table, reg *registry.Registry) error {
	for _, decl := range root.Decls {
		switch d := decl.(type) {
		case *ast.ConstDef:
			if err := DefineConst(d.Name, d.Value, env); err != nil {
				return err
			}
		case *ast.RangeDef:
			if err := DefineConst(d.Name, d.Range, env); err != nil {
				return err
			}
		case *ast.SetDef:
			if err := DefineConst(d.Name, d.Set, env); err != nil {
				return err
			}
		case *ast.ProgressDef:
			if err := DefineProgress(d, at, env); err != nil {
				return err
			}
		case *ast.MenuDef:
			set, err := evalSetGeneric(d.Set, env)
			if err != nil {
				return err
			}
			if !env.Symbols.Insert(d.Name, symbol.Set{Set: set}) {
				return fspgo.NewSemanticError(fspgo.ErrDuplicateDefinition, "menu %q already declared", d.Name)
			}
			env.DefineMenu(d.Name, set)
		case *ast.ProcessDef:
			if err := reg.Define(d.Name, processHandle(d), false); err != nil {
				return err
			}
		case *ast.CompositeDef:
			if err := reg.Define(d.Name, processHandle(d), true); err != nil {
				return err
			}
		}
	}

	for _, decl := range root.Decls {
		switch d := decl.(type) {
		case *ast.ProcessDef:
			for _, callee := range scanProcessRefs(d.Body.Local) {
				reg.AddDependency(d.Name, callee)
			}
			if d.Body.Defs != nil {
				for _, def := range d.Body.Defs.Defs {
					for _, callee := range scanProcessRefs(def.Local) {
						reg.AddDependency(d.Name, callee)
					}
				}
			}
		case *ast.CompositeDef:
			for _, callee := range scanProcessRefs(d.Body) {
				reg.AddDependency(d.Name, callee)
			}
		}
	}

	for _, name := range reg.TranslationOrder() {
		if reg.IsComposite(name) {
			continue
		}
		if _, err := Translate(name, env, at, reg); err != nil {
			return err
		}
	}
	return nil
}

func processHandle(tree ast.Node) symbol.ProcessHandle {
	var params *ast.Parameters
	switch t := tree.(type) {
	case *ast.ProcessDef:
		params = t.Params
	case *ast.CompositeDef:
		params = t.Params
	}
	if params == nil {
		return symbol.ProcessHandle{Tree: tree}
	}
	defaults := make([]int, len(params.Defaults))
	for i, d := range params.Defaults {
		if lit, ok := d.(*ast.IntLit); ok {
			defaults[i] = lit.Value
		}
	}
	return symbol.ProcessHandle{Names: params.Names, Defaults: defaults, Tree: tree}
}

// scanProcessRefs walks a composite/local-process tree looking for
// every process-ref or process-ref-seq name it contains, used to
// build the registry's caller->callee dependency graph.
func scanProcessRefs(n ast.Node) []string {
	var out []string
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		if n == nil {
			return
		}
		switch v := n.(type) {
		case *ast.ProcessRef:
			out = append(out, v.Name)
		case *ast.ProcessRefSeq:
			out = append(out, v.Name)
		case *ast.RefComposite:
			walk(v.Ref)
		case *ast.ParenComposite:
			walk(v.Parallel)
		case *ast.ParallelComp:
			for _, op := range v.Operands {
				walk(op)
			}
		case *ast.ForallComposite:
			walk(v.Body)
		case *ast.IfElse:
			walk(v.Then)
			if v.Else != nil {
				walk(v.Else.Body)
			}
		case *ast.Choice:
			for _, alt := range v.Alternatives {
				walk(alt.Local)
			}
		case *ast.SeqComp:
			for _, ref := range v.List.Refs {
				out = append(out, ref.Name)
			}
			walk(v.Local)
		case *ast.CompositeElse:
			walk(v.Body)
		}
	}
	walk(n)
	return out
}
