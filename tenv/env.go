/*
Package tenv implements the translator's context and nesting
discipline: a value-type variable-binding Context, and an Env that
threads the current Context, the current unresolved-names table and
the global symbol table through recursive process-ref translation,
saving and restoring state across nested references with an
"overridden identifier" stack.

License

Governed by a 3-Clause BSD license. License file may be found in the
root folder of this module.
*/
package tenv

import (
	"strings"

	"github.com/fsp-go/fspgo"
	"github.com/fsp-go/fspgo/resolver"
	"github.com/fsp-go/fspgo/setalg"
	"github.com/fsp-go/fspgo/symbol"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'fspgo.tenv'.
func tracer() tracing.Trace {
	return tracing.Select("fspgo.tenv")
}

// DefaultMaxDepth is the default bound on process-ref nesting depth.
const DefaultMaxDepth = 1000

// Context is a value-type mapping from bound-variable name to its
// current textual value, either an action label or the decimal form
// of an integer. The zero value is an empty, usable context.
type Context struct {
	vars map[string]string
}

// NewContext creates an empty context.
func NewContext() *Context {
	return &Context{vars: make(map[string]string)}
}

// Insert binds name to value. Returns false without modifying the
// context if name is already bound.
func (c *Context) Insert(name, value string) bool {
	if c.vars == nil {
		c.vars = make(map[string]string)
	}
	if _, ok := c.vars[name]; ok {
		return false
	}
	c.vars[name] = value
	return true
}

// Lookup returns the value bound to name, and whether it was found.
func (c *Context) Lookup(name string) (string, bool) {
	if c.vars == nil {
		return "", false
	}
	v, ok := c.vars[name]
	return v, ok
}

// Remove deletes name's binding, if any. Returns true if it was bound.
func (c *Context) Remove(name string) bool {
	if c.vars == nil {
		return false
	}
	if _, ok := c.vars[name]; !ok {
		return false
	}
	delete(c.vars, name)
	return true
}

// Clear empties the context.
func (c *Context) Clear() {
	c.vars = make(map[string]string)
}

// Equal reports whether c and other bind exactly the same names to
// the same values; used to avoid duplicating an unchanged context in
// a translation cache.
func (c *Context) Equal(other *Context) bool {
	if len(c.vars) != len(other.vars) {
		return false
	}
	for k, v := range c.vars {
		if ov, ok := other.vars[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Key renders a deterministic string encoding of every binding,
// sorted by name, usable as a cache key for translation memoization:
// two contexts with the same bindings produce the same Key regardless
// of insertion order.
func (c *Context) Key() string {
	names := make([]string, 0, len(c.vars))
	for name := range c.vars {
		names = append(names, name)
	}
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j-1] > names[j]; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteString("=")
		b.WriteString(c.vars[name])
		b.WriteString(";")
	}
	return b.String()
}

// Clone deep-copies the context.
func (c *Context) Clone() *Context {
	n := NewContext()
	for k, v := range c.vars {
		n.vars[k] = v
	}
	return n
}

// overriddenFrame is one entry of Env's nesting stack: what a
// process-ref's parameter bindings shadowed, and what to restore on
// exit.
type overriddenFrame struct {
	introduced      []string
	overriddenVals  map[string]symbol.Value
	savedContext    *Context
	savedUnresolved *resolver.Table
}

// Env is the translator's mutable environment: the global identifier
// table, the current variable-binding Context, the current
// unresolved-names table, the declared menus, and a bounded nesting
// stack for save/restore across nested process-ref translations. The
// action table is not part of Env; callers pass it separately.
type Env struct {
	Symbols    *symbol.Table
	Context    *Context
	Unresolved *resolver.Table
	Menus      map[string]*setalg.Set
	depth      int
	maxDepth   int
	frames     []overriddenFrame
}

// NewEnv creates a fresh Env with an empty context and unresolved
// table, bound to the given (already populated or empty) global
// symbol table.
func NewEnv(symbols *symbol.Table) *Env {
	return &Env{
		Symbols:    symbols,
		Context:    NewContext(),
		Unresolved: resolver.NewTable(),
		Menus:      make(map[string]*setalg.Set),
		maxDepth:   DefaultMaxDepth,
	}
}

// DefineMenu records name as a menu definition, kept
// alongside (not instead of) its Symbols entry so a menu can still be
// referenced as an ordinary set elsewhere; this is purely the shell's
// `lsmenu` bookkeeping, distinguishing menus from plain set-defs that
// happen to share the same symbol.Set representation. Fails if name is
// already a menu.
func (e *Env) DefineMenu(name string, s *setalg.Set) bool {
	if _, exists := e.Menus[name]; exists {
		return false
	}
	e.Menus[name] = s
	return true
}

// SetMaxDepth overrides the nesting-depth bound (default
// DefaultMaxDepth).
func (e *Env) SetMaxDepth(n int) { e.maxDepth = n }

// Depth returns the current nesting depth (0 at the top level).
func (e *Env) Depth() int { return e.depth }

// NestingSave pushes a snapshot of the current Context and
// unresolved-names table, then shadows every name in params that
// collides with an existing Symbols entry (recording it for
// restoration) before the caller binds params as fresh context
// variables. Fails with *fspgo.SemanticError of kind
// ErrRecursionDepthExceeded if the bound would be exceeded.
func (e *Env) NestingSave(params []string) error {
	if e.depth+1 > e.maxDepth {
		return fspgo.NewSemanticError(fspgo.ErrRecursionDepthExceeded,
			"max reference depth (%d) exceeded", e.maxDepth)
	}
	frame := overriddenFrame{
		introduced:      append([]string(nil), params...),
		overriddenVals:  make(map[string]symbol.Value),
		savedContext:    e.Context,
		savedUnresolved: e.Unresolved,
	}
	for _, name := range params {
		if v, ok := e.Symbols.Lookup(name); ok {
			frame.overriddenVals[name] = v
			e.Symbols.Remove(name)
		}
	}
	e.frames = append(e.frames, frame)
	e.depth++
	e.Context = NewContext()
	e.Unresolved = resolver.NewTable()
	tracer().Debugf("tenv: nesting_save depth=%d params=%v", e.depth, params)
	return nil
}

// NestingRestore pops the snapshot pushed by the matching NestingSave:
// it discards the context and unresolved table introduced for the
// nested translation, removes the parameter bindings the nested
// translation introduced, restores the caller's Context and Unresolved
// table, and re-inserts any Symbols entries that were shadowed.
func (e *Env) NestingRestore() {
	if len(e.frames) == 0 {
		panic("tenv: NestingRestore called with an empty nesting stack")
	}
	frame := e.frames[len(e.frames)-1]
	e.frames = e.frames[:len(e.frames)-1]

	e.Context = frame.savedContext
	e.Unresolved = frame.savedUnresolved
	for _, name := range frame.introduced {
		e.Symbols.Remove(name)
	}
	for name, v := range frame.overriddenVals {
		e.Symbols.Insert(name, v)
	}
	e.depth--
	tracer().Debugf("tenv: nesting_restore depth=%d", e.depth)
}
