/*
Package fspgo is the module root of an FSP (Finite State Processes)
translator and Labelled Transition System (LTS) analysis engine.

fspgo compiles parametric process definitions written in the FSP
process-algebra notation into LTSs and checks behavioral properties
(deadlock freedom, progress) on them. The module is organized as a set
of small packages, leaf-first:

	action    interning table for action labels
	symbol    typed symbol-table values (ranges, sets, relabelings, ...)
	setalg    ordered action-label set algebra
	lts       the LTS graph and its algebra (composition, hiding, ...)
	resolver  incremental name resolution for cyclic local processes
	ast       parse-tree node shapes consumed by the evaluator
	eval      the parse-tree evaluator (translate(env) -> LTS/value)
	registry  the parametric-process cache and dependency graph
	tenv      translator context, environment and nesting discipline
	shell     an interactive analysis shell built atop the engine
	persist   lossless binary persistence for LTSs and action tables

The lexer, grammar and code generator are external collaborators and
are not implemented by this module.

License

Governed by a 3-Clause BSD license. License file may be found in the
root folder of this module.

Copyright © fspgo contributors
*/
package fspgo
