/*
Package persist implements a length-prefixed binary codec for the
translator's durable values: action tables, LTSs, and the set/
action-set/progress symbol values. Every value is framed by a
one-byte tag followed by its fields, written and read over plain
io.Writer/io.Reader pairs; a malformed tag surfaces as an error, not
a process exit. The contract is lossless round-trip, not a fixed wire
format.

License

Governed by a 3-Clause BSD license. License file may be found in the
root folder of this module.
*/
package persist

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fsp-go/fspgo/action"
	"github.com/fsp-go/fspgo/lts"
	"github.com/fsp-go/fspgo/setalg"
	"github.com/fsp-go/fspgo/symbol"
)

// tag discriminates the framed value that follows.
type tag byte

const (
	tagActionTable tag = iota + 1
	tagLTS
	tagSet
	tagActionSet
	tagProgress
)

func (t tag) String() string {
	switch t {
	case tagActionTable:
		return "ActionTable"
	case tagLTS:
		return "LTS"
	case tagSet:
		return "Set"
	case tagActionSet:
		return "ActionSet"
	case tagProgress:
		return "Progress"
	default:
		return fmt.Sprintf("tag(%d)", byte(t))
	}
}

// --- low-level framing ---------------------------------------------------

type writer struct {
	w   io.Writer
	err error
}

func (w *writer) writeTag(t tag) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write([]byte{byte(t)})
}

func (w *writer) writeUint32(v uint32) {
	if w.err != nil {
		return
	}
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, w.err = w.w.Write(buf[:])
}

func (w *writer) writeBool(b bool) {
	if b {
		w.writeUint32(1)
	} else {
		w.writeUint32(0)
	}
}

func (w *writer) writeString(s string) {
	w.writeUint32(uint32(len(s)))
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, s)
}

type reader struct {
	r   io.Reader
	err error
}

func (r *reader) readTag() tag {
	if r.err != nil {
		return 0
	}
	var buf [1]byte
	if _, r.err = io.ReadFull(r.r, buf[:]); r.err != nil {
		return 0
	}
	return tag(buf[0])
}

func (r *reader) expectTag(want tag) {
	if r.err != nil {
		return
	}
	got := r.readTag()
	if r.err != nil {
		return
	}
	if got != want {
		r.err = fmt.Errorf("persist: expected tag %s, found %s", want, got)
	}
}

func (r *reader) readUint32() uint32 {
	if r.err != nil {
		return 0
	}
	var buf [4]byte
	if _, r.err = io.ReadFull(r.r, buf[:]); r.err != nil {
		return 0
	}
	return binary.BigEndian.Uint32(buf[:])
}

func (r *reader) readBool() bool {
	return r.readUint32() != 0
}

func (r *reader) readString() string {
	n := r.readUint32()
	if r.err != nil {
		return ""
	}
	buf := make([]byte, n)
	if _, r.err = io.ReadFull(r.r, buf); r.err != nil {
		return ""
	}
	return string(buf)
}

// --- action table ----------------------------------------------------------

// WriteActionTable frames at's interned labels (tau excluded: it is
// always id 0 in a fresh table, so the reader reconstructs it for
// free) in insertion order.
func WriteActionTable(w io.Writer, at *action.Table) error {
	ww := &writer{w: w}
	ww.writeTag(tagActionTable)
	labels := at.Labels()[1:] // skip the synthesized tau at id 0
	ww.writeUint32(uint32(len(labels)))
	for _, l := range labels {
		ww.writeString(l)
	}
	return ww.err
}

// ReadActionTable reconstructs a table written by WriteActionTable.
// Labels are re-inserted in their original order, so every id is
// reproduced exactly (Insert is deterministic and idempotent).
func ReadActionTable(r io.Reader) (*action.Table, error) {
	rr := &reader{r: r}
	rr.expectTag(tagActionTable)
	n := rr.readUint32()
	at := action.NewTable()
	for i := uint32(0); i < n && rr.err == nil; i++ {
		at.Insert(rr.readString())
	}
	if rr.err != nil {
		return nil, rr.err
	}
	return at, nil
}

// --- LTS ---------------------------------------------------------------

// WriteGraph frames g's name, state count, per-state type tag, every
// edge as a (from, action, to) triple, and the alphabet as a list of
// action ids. Framing a NodeType tag per state keeps the End/Error
// sentinel indices reproducible on read without a separate side
// record.
func WriteGraph(w io.Writer, g *lts.Graph) error {
	ww := &writer{w: w}
	ww.writeTag(tagLTS)
	ww.writeString(g.Name())
	n := g.NumStates()
	ww.writeUint32(uint32(n))
	for i := 0; i < n; i++ {
		ww.writeUint32(uint32(g.GetType(i)))
	}
	ww.writeUint32(uint32(g.NumTransitions()))
	for i := 0; i < n; i++ {
		for _, e := range g.Edges(i) {
			ww.writeUint32(uint32(i))
			ww.writeUint32(uint32(e.Action))
			ww.writeUint32(uint32(e.Dest))
		}
	}
	ids := g.AlphabetIDs()
	ww.writeUint32(uint32(len(ids)))
	for _, id := range ids {
		ww.writeUint32(uint32(id))
	}
	return ww.err
}

// ReadGraph reconstructs a graph written by WriteGraph, bound to at
// (the action table must already hold every label the graph's edges
// and alphabet reference; write/read the action table first).
func ReadGraph(r io.Reader, at *action.Table) (*lts.Graph, error) {
	rr := &reader{r: r}
	rr.expectTag(tagLTS)
	name := rr.readString()
	n := rr.readUint32()
	g := lts.NewGraph(at)
	types := make([]lts.NodeType, n)
	for i := uint32(0); i < n; i++ {
		types[i] = lts.NodeType(rr.readUint32())
	}
	for i := uint32(0); i < n; i++ {
		g.AddState()
	}
	for i := uint32(0); i < n; i++ {
		g.SetType(int(i), types[i])
	}
	ntr := rr.readUint32()
	for i := uint32(0); i < ntr && rr.err == nil; i++ {
		from := rr.readUint32()
		a := rr.readUint32()
		to := rr.readUint32()
		g.AddEdge(int(from), action.ID(a), int(to))
	}
	nalpha := rr.readUint32()
	for i := uint32(0); i < nalpha && rr.err == nil; i++ {
		g.UpdateAlphabet(action.ID(rr.readUint32()))
	}
	if rr.err != nil {
		return nil, rr.err
	}
	g.SetName(name)
	return g, nil
}

// --- Set / ActionSet / Progress --------------------------------------------

// WriteSet frames s's labels, in order, plus its bound-variable name
// (empty if unbound).
func WriteSet(w io.Writer, s *setalg.Set) error {
	ww := &writer{w: w}
	ww.writeTag(tagSet)
	labels := s.Labels()
	ww.writeUint32(uint32(len(labels)))
	for _, l := range labels {
		ww.writeString(l)
	}
	bound, _ := s.BoundVar()
	ww.writeString(bound)
	return ww.err
}

// ReadSet reconstructs a set written by WriteSet.
func ReadSet(r io.Reader) (*setalg.Set, error) {
	rr := &reader{r: r}
	rr.expectTag(tagSet)
	n := rr.readUint32()
	labels := make([]string, n)
	for i := uint32(0); i < n; i++ {
		labels[i] = rr.readString()
	}
	bound := rr.readString()
	if rr.err != nil {
		return nil, rr.err
	}
	s := setalg.New(labels...)
	if bound != "" {
		s.Bind(bound)
	}
	return s, nil
}

// WriteActionSet frames as's member ids.
func WriteActionSet(w io.Writer, as *symbol.ActionSet) error {
	ww := &writer{w: w}
	ww.writeTag(tagActionSet)
	ids := as.Ids()
	ww.writeUint32(uint32(len(ids)))
	for _, id := range ids {
		ww.writeUint32(uint32(id))
	}
	return ww.err
}

// ReadActionSet reconstructs an action set written by WriteActionSet.
func ReadActionSet(r io.Reader) (*symbol.ActionSet, error) {
	rr := &reader{r: r}
	rr.expectTag(tagActionSet)
	n := rr.readUint32()
	as := symbol.NewActionSet()
	for i := uint32(0); i < n && rr.err == nil; i++ {
		as.Add(action.ID(rr.readUint32()))
	}
	if rr.err != nil {
		return nil, rr.err
	}
	return as, nil
}

// WriteProgress frames p's terminal-action set, and, when
// conditional, its condition set too.
func WriteProgress(w io.Writer, p symbol.Progress) error {
	ww := &writer{w: w}
	ww.writeTag(tagProgress)
	ww.writeBool(p.Conditional)
	if ww.err != nil {
		return ww.err
	}
	if err := writeActionSetBody(ww, p.Set); err != nil {
		return err
	}
	if p.Conditional {
		if err := writeActionSetBody(ww, p.Condition); err != nil {
			return err
		}
	}
	return ww.err
}

// writeActionSetBody writes an ActionSet's ids without the
// tagActionSet framing byte, since WriteProgress already supplies its
// own outer tag.
func writeActionSetBody(ww *writer, as *symbol.ActionSet) error {
	ids := as.Ids()
	ww.writeUint32(uint32(len(ids)))
	for _, id := range ids {
		ww.writeUint32(uint32(id))
	}
	return ww.err
}

func readActionSetBody(rr *reader) *symbol.ActionSet {
	n := rr.readUint32()
	as := symbol.NewActionSet()
	for i := uint32(0); i < n && rr.err == nil; i++ {
		as.Add(action.ID(rr.readUint32()))
	}
	return as
}

// ReadProgress reconstructs a progress value written by WriteProgress.
func ReadProgress(r io.Reader) (symbol.Progress, error) {
	rr := &reader{r: r}
	rr.expectTag(tagProgress)
	conditional := rr.readBool()
	set := readActionSetBody(rr)
	p := symbol.Progress{Set: set, Conditional: conditional}
	if conditional {
		p.Condition = readActionSetBody(rr)
	}
	if rr.err != nil {
		return symbol.Progress{}, rr.err
	}
	return p, nil
}
