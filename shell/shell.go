/*
Package shell implements the interactive command interpreter: a
readline-driven REPL exposing the analysis surface (safety, progress,
simulate, alpha, ls/lsprop/lsmenu, minimize, traces, basic, graphviz,
print) over names published in a registry.Registry, plus shell
variables and an `if/elif/else/fi` control-flow mini language.

License

Governed by a 3-Clause BSD license. License file may be found in the
root folder of this module.
*/
package shell

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fsp-go/fspgo/action"
	"github.com/fsp-go/fspgo/registry"
	"github.com/fsp-go/fspgo/tenv"
	"github.com/npillmayer/schuko/tracing"
	"github.com/pterm/pterm"
)

// tracer traces with key 'fspgo.shell'.
func tracer() tracing.Trace {
	return tracing.Select("fspgo.shell")
}

// Shell is the interpreter driver: it holds the compiled program's
// action table, process registry and translation environment, a
// shell-variable table, and a condition stack for if/elif/else/fi.
type Shell struct {
	at  *action.Table
	reg *registry.Registry
	env *tenv.Env

	vars map[string]int
	rl   *readline.Instance
	out  io.Writer

	conds []condFrame // if/elif/else/fi nesting stack
}

// condFrame is one nesting level of if/elif/else/fi: active reports
// whether the current branch's lines should execute; taken reports
// whether some branch in this if-chain has already fired, so a later
// elif/else knows to stay inactive.
type condFrame struct {
	active bool
	taken  bool
}

// New creates a shell over an already-compiled program: at is the
// action table, reg the registry CompileAll published into, env the
// translation environment (its Symbols/Menus back lsprop/lsmenu).
func New(at *action.Table, reg *registry.Registry, env *tenv.Env) *Shell {
	return &Shell{
		at:   at,
		reg:  reg,
		env:  env,
		vars: make(map[string]int),
		out:  os.Stdout,
	}
}

// initDisplay configures pterm's prefixed Info/Error printers.
func initDisplay() {
	pterm.Info.Prefix = pterm.Prefix{
		Text:  " >>",
		Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " !!",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
}

// Run starts the interactive REPL: it sets up a readline instance with
// autocompletion over every published process name, echoes a welcome
// banner, and reads commands until EOF or an `exit` command, returning
// the exit command's code, or 0 on EOF. A failed command prints its
// error and the loop goes on; it does not set the returned code.
func (sh *Shell) Run() (int, error) {
	initDisplay()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:       "fsp> ",
		AutoComplete: sh.completer(),
	})
	if err != nil {
		return 3, err
	}
	defer rl.Close()
	sh.rl = rl
	pterm.Info.Println("Welcome to the fspgo shell, quit with <ctrl>D")

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF on <ctrl>D
			return 0, nil
		}
		quit, code, err := sh.Execute(line)
		if err != nil {
			pterm.Error.Println(err.Error())
			continue
		}
		if quit {
			return code, nil
		}
	}
}

// completer builds a prefix completer from the command verbs and the
// registry's published names at the time it is called. Run calls it
// once, so names published later in the session (composite defs
// translated on demand) are not offered for completion.
func (sh *Shell) completer() readline.AutoCompleter {
	return readline.NewPrefixCompleter(sh.completerItems()...)
}

func (sh *Shell) completerItems() []readline.PrefixCompleterInterface {
	verbs := []string{"safety", "progress", "simulate", "alpha", "ls", "lsprop",
		"lsmenu", "minimize", "traces", "basic", "graphviz", "print", "exit",
		"if", "elif", "else", "fi"}
	items := make([]readline.PrefixCompleterInterface, 0, len(verbs)+len(sh.reg.Names()))
	for _, v := range verbs {
		items = append(items, readline.PcItem(v))
	}
	for _, n := range sh.reg.Names() {
		items = append(items, readline.PcItem(n))
	}
	return items
}

// RunScript feeds every non-blank, non-comment line of r through
// Execute in order. Returns the first error encountered, or the exit
// code from an `exit` command if one is reached.
func (sh *Shell) RunScript(r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		quit, code, err := sh.Execute(line)
		if err != nil {
			return 2, err
		}
		if quit {
			return code, nil
		}
	}
	return 0, sc.Err()
}

func (sh *Shell) printf(format string, args ...interface{}) {
	fmt.Fprintf(sh.out, format, args...)
}

// sortedCopy returns a sorted copy of names, the display order every
// ls-family command uses.
func sortedCopy(names []string) []string {
	out := append([]string(nil), names...)
	sort.Strings(out)
	return out
}
