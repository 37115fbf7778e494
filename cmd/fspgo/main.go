/*
fspgo is the command-line front end: it wires up logging, compiles a
program into published LTSs, and drops into the interactive shell or
runs a batch script against it.

License

Governed by a 3-Clause BSD license. License file may be found in the
root folder of this module.
*/
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fsp-go/fspgo/action"
	"github.com/fsp-go/fspgo/eval"
	"github.com/fsp-go/fspgo/registry"
	"github.com/fsp-go/fspgo/shell"
	"github.com/fsp-go/fspgo/symbol"
	"github.com/fsp-go/fspgo/tenv"
	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
)

// traceKeys names every subsystem tracer the -trace flag applies to.
var traceKeys = []string{
	"fspgo.action", "fspgo.setalg", "fspgo.symbol", "fspgo.lts",
	"fspgo.resolver", "fspgo.eval", "fspgo.registry", "fspgo.tenv",
	"fspgo.shell",
}

func main() {
	gtrace.SyntaxTracer = gologadapter.New()
	tlevel := flag.String("trace", "Info", "Trace level [Debug|Info|Error]")
	script := flag.String("script", "", "Run a shell script file non-interactively, then exit")
	flag.Parse()
	level := tracing.TraceLevelFromString(*tlevel)
	for _, key := range traceKeys {
		tracing.Select(key).SetTraceLevel(level)
	}

	at := action.NewTable()
	env := tenv.NewEnv(symbol.NewTable())
	reg := registry.New()

	// The FSP lexer/grammar is an external collaborator; demoProgram
	// stands in with a fixed, already-parsed program for
	// experimentation in the absence of a real front end.
	if err := eval.CompileAll(demoProgram(), env, at, reg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	sh := shell.New(at, reg, env)

	if *script != "" {
		f, err := os.Open(*script)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		defer f.Close()
		code, err := sh.RunScript(f)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(code)
	}

	code, err := sh.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(3)
	}
	os.Exit(code)
}
