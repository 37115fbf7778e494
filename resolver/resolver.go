/*
Package resolver implements the per-definition unresolved-names table:
a disjoint-set-like grouping of names that all refer to the
same (possibly local) sub-process, used by the evaluator to stitch
Unresolved placeholder nodes into the LTS under construction before
lts.Graph.Resolve runs.

License

Governed by a 3-Clause BSD license. License file may be found in the
root folder of this module.
*/
package resolver

import (
	"fmt"

	"github.com/fsp-go/fspgo"
	"github.com/fsp-go/fspgo/lts"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'fspgo.resolver'.
func tracer() tracing.Trace {
	return tracing.Select("fspgo.resolver")
}

// entry is one (name, defined-flag) pair inside a group.
type entry struct {
	name    string
	defined bool
}

// Table groups names referring to the same local process. Group
// handles are 1-based: handle 0 (lts.NoPriv) is reserved as the "no
// group yet" sentinel.
type Table struct {
	groups [][]entry
}

// NewTable creates an empty unresolved-names table.
func NewTable() *Table {
	return &Table{}
}

// newGroup allocates a fresh, empty group and returns its handle.
func (t *Table) newGroup() int {
	t.groups = append(t.groups, nil)
	return len(t.groups)
}

// IsDefined reports whether name has already been registered anywhere
// in the table with defined=true, used to detect duplicate definitions
// before a second Register call commits.
func (t *Table) IsDefined(name string) bool {
	for _, grp := range t.groups {
		for _, e := range grp {
			if e.name == name {
				return e.defined
			}
		}
	}
	return false
}

// GroupName concatenates every name in the group named by handle, for
// diagnostics.
func (t *Table) GroupName(handle int) string {
	if handle <= 0 || handle > len(t.groups) {
		return ""
	}
	grp := t.groups[handle-1]
	s := ""
	for i, e := range grp {
		if i > 0 {
			s += ", "
		}
		s += e.name
	}
	return s
}

// append inserts (name, defined) into group handle, unless name is
// already present in some OTHER group, in which case every entry of
// that other group (name included) is moved into group handle, the
// other group is left empty, and its handle is returned so the caller
// can rewrite priv fields. Returns lts.NoPriv when no merge occurred.
func (t *Table) append(handle int, name string, defined bool) int {
	i := handle - 1
	for k := range t.groups {
		if k == i {
			continue
		}
		for j, e := range t.groups[k] {
			if e.name == name {
				if defined {
					t.groups[k][j].defined = true
				}
				t.groups[i] = append(t.groups[i], t.groups[k]...)
				t.groups[k] = nil
				return k + 1
			}
		}
	}
	t.groups[i] = append(t.groups[i], entry{name: name, defined: defined})
	return lts.NoPriv
}

// Register records name as referring to the process rooted at g's node
// 0: if the node carries no group yet, a fresh group is allocated and
// recorded on it; otherwise name is appended to the node's existing
// group, and if that merges in a previously disjoint group, every node
// of g still tagged with the old group's handle is rewritten to the
// new (surviving) handle.
//
// Registering a name a second time with defined=true, when it has
// already been defined, fails with an *fspgo.SemanticError of kind
// ErrDuplicateDefinition.
func (t *Table) Register(name string, g *lts.Graph, defined bool) error {
	if defined && t.IsDefined(name) {
		return fspgo.NewSemanticError(fspgo.ErrDuplicateDefinition,
			"process %q already declared", name)
	}
	handle := g.GetPriv(0)
	if handle == lts.NoPriv {
		handle = t.newGroup()
		g.SetPriv(0, handle)
		t.append(handle, name, defined)
		tracer().Debugf("resolver: new group %d for %q", handle, name)
		return nil
	}
	mergedFrom := t.append(handle, name, defined)
	if mergedFrom != lts.NoPriv && mergedFrom != handle {
		tracer().Debugf("resolver: merging group %d into %d (name %q)", mergedFrom, handle, name)
		g.ReplacePriv(mergedFrom, handle)
	}
	return nil
}

// Clear empties the table, done once per process-definition before
// translating its body.
func (t *Table) Clear() {
	t.groups = nil
}

// Size returns the number of groups currently tracked.
func (t *Table) Size() int {
	return len(t.groups)
}

func (t *Table) String() string {
	return fmt.Sprintf("resolver.Table{%d groups}", len(t.groups))
}
