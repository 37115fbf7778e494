/*
Package action implements a process-wide interning table for action
labels: it maps label strings to dense integer ids and back.

License

Governed by a 3-Clause BSD license. License file may be found in the
root folder of this module.
*/
package action

import (
	"fmt"

	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'fspgo.action'.
func tracer() tracing.Trace {
	return tracing.Select("fspgo.action")
}

// Tau is the reserved id of the silent action. Index 0 is always tau,
// regardless of table contents.
const Tau ID = 0

// Every fresh table starts with tau already interned, so that id 0 is
// always the silent action.
const tauLabel = "tau"

// ID is a dense, process-lifetime-stable identifier for an interned
// action label.
type ID int

// NotFound is returned by Lookup when a label has never been inserted.
const NotFound ID = -1

// Table is an insert-only string<->ID interning table. The zero value
// is not usable; use NewTable. Ids are stable for the lifetime of the
// table: once assigned, an id is never reused or renumbered.
type Table struct {
	byLabel map[string]ID
	byID    []string // byID[id] == label, byID[0] == "tau"
}

// NewTable creates an action table with tau pre-interned at id 0.
func NewTable() *Table {
	t := &Table{
		byLabel: make(map[string]ID),
		byID:    make([]string, 0, 16),
	}
	t.byLabel[tauLabel] = Tau
	t.byID = append(t.byID, tauLabel)
	return t
}

// Insert interns label, returning its id. Insertion is idempotent: a
// label already present returns its existing id without allocating a
// new one.
func (t *Table) Insert(label string) ID {
	if id, ok := t.byLabel[label]; ok {
		return id
	}
	id := ID(len(t.byID))
	t.byLabel[label] = id
	t.byID = append(t.byID, label)
	tracer().Debugf("action table: interned %q as %d", label, id)
	return id
}

// Lookup returns the id for label, or NotFound if label was never
// inserted.
func (t *Table) Lookup(label string) ID {
	if id, ok := t.byLabel[label]; ok {
		return id
	}
	return NotFound
}

// Label returns the string form of id. id must have been returned by
// a prior call to Insert on this table; calling Label with any other
// value is a programmer error and panics.
func (t *Table) Label(id ID) string {
	if int(id) < 0 || int(id) >= len(t.byID) {
		panic(fmt.Sprintf("action: id %d was never issued by this table", id))
	}
	return t.byID[id]
}

// Len returns the number of distinct actions interned so far,
// including tau.
func (t *Table) Len() int {
	return len(t.byID)
}

// Labels returns every interned label, indexed by id. The slice is the
// table's own storage, not a copy: callers must not mutate it.
func (t *Table) Labels() []string {
	return t.byID
}
