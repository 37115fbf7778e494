package shell

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/fsp-go/fspgo"
	"github.com/fsp-go/fspgo/action"
	"github.com/fsp-go/fspgo/lts"
	"github.com/fsp-go/fspgo/symbol"
)

// traceString renders a []action.ID as a comma-separated label list,
// the shortest-trace format every analysis diagnostic prints.
func (sh *Shell) traceString(trace []action.ID) string {
	labels := make([]string, len(trace))
	for i, id := range trace {
		labels[i] = sh.at.Label(id)
	}
	return strings.Join(labels, ",")
}

func (sh *Shell) namedGraph(args []string) (string, *lts.Graph, error) {
	name, fargs, err := sh.parseExtendedName(argOrEmpty(args))
	if err != nil {
		return "", nil, err
	}
	if name == "" {
		return "", nil, fspgo.NewSemanticError(fspgo.ErrUndeclared, "no process name given")
	}
	g, err := sh.resolve(name, fargs)
	if err != nil {
		return "", nil, err
	}
	return g.Name(), g, nil
}

// execSafety implements `safety(name?)`: with a name, reports that
// process's deadlock/property-violation findings; with none, runs over
// every published process.
func (sh *Shell) execSafety(args []string) error {
	if argOrEmpty(args) == "" {
		return sh.forEachPublished(sh.reportSafety)
	}
	_, g, err := sh.namedGraph(args)
	if err != nil {
		return err
	}
	return sh.reportSafety(g.Name(), g)
}

func (sh *Shell) reportSafety(name string, g *lts.Graph) error {
	findings := g.DeadlockAnalysis()
	sh.printf("%s: %d violation(s)\n", name, len(findings))
	for _, f := range findings {
		sh.printf("  %s at state %d, trace %s\n", f.Kind, f.State, sh.traceString(f.Trace))
	}
	return nil
}

// execProgress implements `progress(name?)`.
func (sh *Shell) execProgress(args []string) error {
	if argOrEmpty(args) == "" {
		return sh.forEachPublished(sh.reportProgressAll)
	}
	_, g, err := sh.namedGraph(args)
	if err != nil {
		return err
	}
	return sh.reportProgressAll(g.Name(), g)
}

// reportProgressAll checks every declared progress property against g.
func (sh *Shell) reportProgressAll(name string, g *lts.Graph) error {
	total := 0
	sh.env.Symbols.Each(func(pname string, v symbol.Value) {
		prop, ok := v.(symbol.Progress)
		if !ok {
			return
		}
		violations := g.Progress(prop)
		total += len(violations)
		for _, v := range violations {
			sh.printf("  %s: progress %q violated, terminal-set actions {%s}, trace %s\n",
				name, pname, sh.actionSetString(v.Actions), sh.traceString(v.Trace))
		}
	})
	sh.printf("%s: %d progress violation(s)\n", name, total)
	return nil
}

func (sh *Shell) actionSetString(s *symbol.ActionSet) string {
	ids := s.Ids()
	labels := make([]string, len(ids))
	for i, id := range ids {
		labels[i] = sh.at.Label(id)
	}
	return strings.Join(labels, ",")
}

func (sh *Shell) forEachPublished(f func(name string, g *lts.Graph) error) error {
	for _, name := range sortedCopy(sh.reg.Names()) {
		base, args := splitDisplayName(name)
		g, err := sh.resolve(base, args)
		if err != nil {
			return err
		}
		if err := f(name, g); err != nil {
			return err
		}
	}
	return nil
}

// splitDisplayName reverses registry.BaseName's "Name" / "Name(a,b)"
// formatting, used to re-resolve every published process by its
// display name when iterating all of them.
func splitDisplayName(display string) (string, []int) {
	open := strings.Index(display, "(")
	if open < 0 {
		return display, nil
	}
	name := display[:open]
	inner := strings.TrimSuffix(display[open+1:], ")")
	if inner == "" {
		return name, nil
	}
	parts := strings.Split(inner, ",")
	args := make([]int, len(parts))
	for i, p := range parts {
		fmt.Sscanf(strings.TrimSpace(p), "%d", &args[i])
	}
	return name, args
}

// execAlpha implements `alpha(name)`: prints the process's alphabet.
func (sh *Shell) execAlpha(args []string) error {
	name, g, err := sh.namedGraph(args)
	if err != nil {
		return err
	}
	labels := make([]string, 0, g.AlphabetSize())
	for _, id := range g.AlphabetIDs() {
		labels = append(labels, sh.at.Label(id))
	}
	sh.printf("%s: alphabet = {%s}\n", name, strings.Join(labels, ","))
	return nil
}

// execLs implements `ls`: every published process name.
func (sh *Shell) execLs() error {
	for _, n := range sortedCopy(sh.reg.Names()) {
		sh.printf("%s\n", n)
	}
	return nil
}

// execLsprop implements `lsprop`: every declared progress property.
func (sh *Shell) execLsprop() error {
	var names []string
	sh.env.Symbols.Each(func(name string, v symbol.Value) {
		if _, ok := v.(symbol.Progress); ok {
			names = append(names, name)
		}
	})
	for _, n := range sortedCopy(names) {
		sh.printf("%s\n", n)
	}
	return nil
}

// execLsmenu implements `lsmenu`: every declared menu.
func (sh *Shell) execLsmenu() error {
	var names []string
	for n := range sh.env.Menus {
		names = append(names, n)
	}
	for _, n := range sortedCopy(names) {
		sh.printf("%s: {%s}\n", n, strings.Join(sh.env.Menus[n].Labels(), ","))
	}
	return nil
}

// execMinimize implements `minimize(name)`: reduces the named process up
// to weak bisimulation in place and reports its new state count.
func (sh *Shell) execMinimize(args []string) error {
	name, g, err := sh.namedGraph(args)
	if err != nil {
		return err
	}
	before := g.NumStates()
	g.Minimize()
	sh.printf("%s: %d states -> %d states\n", name, before, g.NumStates())
	return nil
}

// execTraces implements `traces(name)`: every loop-free action trace.
func (sh *Shell) execTraces(args []string) error {
	name, g, err := sh.namedGraph(args)
	if err != nil {
		return err
	}
	count := 0
	g.Traces(func(trace []action.ID) {
		count++
		sh.printf("%s: %s\n", name, sh.traceString(trace))
	})
	if count == 0 {
		sh.printf("%s: no traces\n", name)
	}
	return nil
}

// execBasic implements `basic(name)`: prints every edge's label after
// the ".N -> [N]" basic-form mangling.
func (sh *Shell) execBasic(args []string) error {
	name, g, err := sh.namedGraph(args)
	if err != nil {
		return err
	}
	for i := 0; i < g.NumStates(); i++ {
		for _, e := range g.Edges(i) {
			sh.printf("%s: %d -%s-> %d\n", name, i, lts.BasicLabel(sh.at.Label(e.Action)), e.Dest)
		}
	}
	return nil
}

// execGraphviz implements `graphviz(name)`: writes a GraphViz "dot"
// rendering to the shell's output.
func (sh *Shell) execGraphviz(args []string) error {
	_, g, err := sh.namedGraph(args)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(sh.out)
	if err := g.WriteGraphviz(w); err != nil {
		return err
	}
	return w.Flush()
}

// execPrint implements `print(name)`: a terse state/edge listing.
func (sh *Shell) execPrint(args []string) error {
	name, g, err := sh.namedGraph(args)
	if err != nil {
		return err
	}
	sh.printf("%s: %d states, %d transitions\n", name, g.NumStates(), g.NumTransitions())
	for i := 0; i < g.NumStates(); i++ {
		sh.printf("  %d [%v]", i, g.GetType(i))
		for _, e := range g.Edges(i) {
			sh.printf(" -%s-> %d", sh.at.Label(e.Action), e.Dest)
		}
		sh.printf("\n")
	}
	return nil
}

// execSimulate implements `simulate(name, menu?)`: an interactive
// state-walk over sh.out/stdin. Without a readline instance (script
// mode), it auto-picks the first available transition at each step, so
// RunScript-driven sessions never block on input. The walk ends only at
// a state with no offered transition; on a cyclic process it does not
// end.
func (sh *Shell) execSimulate(args []string) error {
	if len(args) == 0 {
		return fspgo.NewSemanticError(fspgo.ErrUndeclared, "simulate requires a process name")
	}
	name, g, err := sh.namedGraph(args[:1])
	if err != nil {
		return err
	}
	var menu *symbol.ActionSet
	if len(args) > 1 {
		m, ok := sh.env.Menus[args[1]]
		if !ok {
			return fspgo.NewSemanticError(fspgo.ErrUndeclared, "menu %q is not declared", args[1])
		}
		menu = symbol.FromSet(m, sh.at)
	}
	sim := lts.NewSimulator(g)
	for !sim.Done() {
		choosable, systemChosen := sim.Choices(menu)
		edges := choosable
		if len(edges) == 0 {
			edges = systemChosen
		}
		if len(edges) == 0 {
			break
		}
		choice := sh.pickTransition(name, sim.State(), edges)
		sim.Step(choice)
		sh.printf("%s: -%s-> %d\n", name, sh.at.Label(choice.Action), sim.State())
	}
	sh.printf("%s: simulation halted at state %d\n", name, sim.State())
	return nil
}

// pickTransition prompts interactively when a readline instance is
// attached, and otherwise deterministically takes the first offered
// edge.
func (sh *Shell) pickTransition(name string, state int, edges []lts.Edge) lts.Edge {
	if sh.rl == nil || len(edges) == 1 {
		return edges[0]
	}
	sh.printf("%s @ %d: choose an action:\n", name, state)
	for i, e := range edges {
		sh.printf("  [%d] %s -> %d\n", i, sh.at.Label(e.Action), e.Dest)
	}
	line, err := sh.rl.Readline()
	if err != nil {
		return edges[0]
	}
	var idx int
	if _, scanErr := fmt.Sscanf(strings.TrimSpace(line), "%d", &idx); scanErr == nil && idx >= 0 && idx < len(edges) {
		return edges[idx]
	}
	return edges[0]
}
