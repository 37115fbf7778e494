/*
Package registry implements the parametric-process registry and
static dependency graph: a name-to-parametric-process table, a
caller/callee dependency graph computed by scanning each definition's
tree for process-ref nodes, and the published-LTS process cache keyed
by fully-qualified name ("BaseName(v1,v2,...)").

License

Governed by a 3-Clause BSD license. License file may be found in the
root folder of this module.
*/
package registry

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cnf/structhash"
	"github.com/fsp-go/fspgo"
	"github.com/fsp-go/fspgo/lts"
	"github.com/fsp-go/fspgo/symbol"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'fspgo.registry'.
func tracer() tracing.Trace {
	return tracing.Select("fspgo.registry")
}

// Registry owns the definition table (name to parametric-process
// handle, with a flag marking composite defs for deferred
// translation), the caller/callee dependency graph, and the process
// cache the translator publishes LTSs into.
type Registry struct {
	defs      map[string]symbol.ProcessHandle
	composite map[string]bool
	deps      map[string][]string // caller -> callees

	cache map[string]*lts.Graph // keyed by structhash of (name, args)
	names map[string]string     // same key -> "BaseName(v1,v2,...)" display name
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		defs:      make(map[string]symbol.ProcessHandle),
		composite: make(map[string]bool),
		deps:      make(map[string][]string),
		cache:     make(map[string]*lts.Graph),
		names:     make(map[string]string),
	}
}

// Define records a process-def or composite-def's parametric handle
// under name. Fails with ErrDuplicateDefinition if name is already
// registered.
func (r *Registry) Define(name string, h symbol.ProcessHandle, isComposite bool) error {
	if _, exists := r.defs[name]; exists {
		return fspgo.NewSemanticError(fspgo.ErrDuplicateDefinition,
			"process %q already declared", name)
	}
	r.defs[name] = h
	r.composite[name] = isComposite
	tracer().Debugf("registry: defined %q (composite=%v, arity=%d)", name, isComposite, len(h.Names))
	return nil
}

// Lookup returns the parametric handle registered under name.
func (r *Registry) Lookup(name string) (symbol.ProcessHandle, bool) {
	h, ok := r.defs[name]
	return h, ok
}

// IsComposite reports whether name names a composite-def (translation
// deferred until first reference).
func (r *Registry) IsComposite(name string) bool {
	return r.composite[name]
}

// AddDependency records that caller's tree contains a process-ref to
// callee.
func (r *Registry) AddDependency(caller, callee string) {
	r.deps[caller] = append(r.deps[caller], callee)
}

// TranslationOrder computes a leaf-first order over every defined
// name: names with no un-ordered dependency come first. Names
// registered as composite are moved to the very end, to be translated
// only on interactive demand. A non-composite name that depends on a
// composite, directly or transitively, is not moved: it keeps its
// place in the leaf-first part of the order. Cycles
// (direct process recursion) are broken by
// standard DFS visiting/visited marking rather than failing: a cycle
// here is ordinary recursion, resolved later by the Unresolved-node
// machinery, not a registry error.
func (r *Registry) TranslationOrder() []string {
	var order []string
	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	var visit func(name string)
	visit = func(name string) {
		if visited[name] || visiting[name] {
			return
		}
		visiting[name] = true
		for _, callee := range r.deps[name] {
			if _, known := r.defs[callee]; known {
				visit(callee)
			}
		}
		visiting[name] = false
		visited[name] = true
		order = append(order, name)
	}

	var names []string
	for name := range r.defs {
		names = append(names, name)
	}
	sortStrings(names)

	var leafOrder, compositeOrder []string
	for _, name := range names {
		visit(name)
	}
	for _, name := range order {
		if r.composite[name] {
			compositeOrder = append(compositeOrder, name)
		} else {
			leafOrder = append(leafOrder, name)
		}
	}
	return append(leafOrder, compositeOrder...)
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// BaseName formats a fully-qualified process name: "name" with no
// arguments, or "name(v1,v2,...)" otherwise.
func BaseName(name string, args []int) string {
	if len(args) == 0 {
		return name
	}
	parts := make([]string, len(args))
	for i, v := range args {
		parts[i] = strconv.Itoa(v)
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(parts, ","))
}

// cacheKey hashes (name, args) into a compact, collision-safe
// memoization key independent of the display-oriented BaseName
// formatting.
func cacheKey(name string, args []int) string {
	h, err := structhash.Hash(struct {
		Name string
		Args []int
	}{Name: name, Args: args}, 1)
	if err != nil {
		panic(err)
	}
	return h
}

// Cached returns the published LTS for name(args...), if present.
func (r *Registry) Cached(name string, args []int) (*lts.Graph, bool) {
	g, ok := r.cache[cacheKey(name, args)]
	return g, ok
}

// Publish stores g as the published LTS for name(args...), setting
// its process name to the display form "BaseName(v1,v2,...)".
func (r *Registry) Publish(name string, args []int, g *lts.Graph) {
	key := cacheKey(name, args)
	display := BaseName(name, args)
	g.SetName(display)
	r.cache[key] = g
	r.names[key] = display
	tracer().Debugf("registry: published %s", display)
}

// Names returns every published process's display name, in
// unspecified order (the "ls" shell command's data source).
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, n)
	}
	return out
}
