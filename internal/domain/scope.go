package domain

import (
	"fmt"
	"iter"
	"reflect"
	"slices"
)

// entry is one named datum of a scope
type entry struct {
	name  string
	datum *Datum
}

// Scope is an ordered table of named datums. Insertion order is canonical and
// names are unique. Table-kind datums hold child scopes, giving a tree in
// which every child has exactly one parent.
//
// The zero value is an empty root scope.
type Scope struct {
	order  []*entry
	lookup map[string]*entry
	parent *Scope
	self   Node
}

// NewScope creates an empty root scope
func NewScope() *Scope {
	return &Scope{}
}

// NewScopeWithCapacity creates an empty root scope sized for n entries
func NewScopeWithCapacity(n int) *Scope {
	return &Scope{
		order:  make([]*entry, 0, n),
		lookup: make(map[string]*entry, n),
	}
}

// AsScope returns s; it lets *Scope and embedding types satisfy Node
func (s *Scope) AsScope() *Scope {
	return s
}

// Self returns the node this scope belongs to: the embedding value for a
// scope built into a larger type, otherwise s itself
func (s *Scope) Self() Node {
	if s.self != nil {
		return s.self
	}
	return s
}

// Len returns the number of entries
func (s *Scope) Len() int {
	return len(s.order)
}

// Parent returns the owning scope, nil for a root
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Root walks up to the scope with no parent
func (s *Scope) Root() *Scope {
	root := s
	for root.parent != nil {
		root = root.parent
	}
	return root
}

// Append returns the datum named name, creating an empty one at the end of
// the order when absent
func (s *Scope) Append(name string) (*Datum, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidArgument)
	}
	if e, ok := s.lookup[name]; ok {
		return e.datum, nil
	}
	if s.lookup == nil {
		s.lookup = make(map[string]*entry)
	}
	e := &entry{name: name, datum: &Datum{}}
	s.order = append(s.order, e)
	s.lookup[name] = e
	return e.datum, nil
}

// AppendKind is Append followed by SetKind; it fails without creating
// anything when name already holds another kind
func (s *Scope) AppendKind(name string, k Kind) (*Datum, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidArgument, k)
	}
	if d := s.Find(name); d != nil {
		if err := d.SetKind(k); err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		return d, nil
	}
	d, err := s.Append(name)
	if err != nil {
		return nil, err
	}
	if err := d.SetKind(k); err != nil {
		return nil, err
	}
	return d, nil
}

// At returns the datum inserted i-th
func (s *Scope) At(i int) (*Datum, error) {
	if i < 0 || i >= len(s.order) {
		return nil, fmt.Errorf("%w: index %d, length %d", ErrOutOfRange, i, len(s.order))
	}
	return s.order[i].datum, nil
}

// NameAt returns the name inserted i-th
func (s *Scope) NameAt(i int) (string, error) {
	if i < 0 || i >= len(s.order) {
		return "", fmt.Errorf("%w: index %d, length %d", ErrOutOfRange, i, len(s.order))
	}
	return s.order[i].name, nil
}

// Find looks name up in this scope only; nil means absent
func (s *Scope) Find(name string) *Datum {
	if e, ok := s.lookup[name]; ok {
		return e.datum
	}
	return nil
}

// Search looks name up here and then in each ancestor, returning the datum
// and the scope holding it, or nils when no scope up to the root has it
func (s *Scope) Search(name string) (*Datum, *Scope) {
	for cur := s; cur != nil; cur = cur.parent {
		if d := cur.Find(name); d != nil {
			return d, cur
		}
	}
	return nil, nil
}

// Names returns entry names in insertion order
func (s *Scope) Names() []string {
	names := make([]string, len(s.order))
	for i, e := range s.order {
		names[i] = e.name
	}
	return names
}

// All iterates entries in insertion order
func (s *Scope) All() iter.Seq2[string, *Datum] {
	return func(yield func(string, *Datum) bool) {
		for _, e := range s.order {
			if !yield(e.name, e.datum) {
				return
			}
		}
	}
}

// tableFor returns the owned table datum at name, creating it when absent.
// It changes nothing when name holds a non-table or external datum.
func (s *Scope) tableFor(name string) (*owned[Node], error) {
	if d := s.Find(name); d != nil {
		if d.kind != KindTable && d.kind != KindUnknown {
			return nil, fmt.Errorf("%w: field %q is %s, not table", ErrTypeConflict, name, d.kind)
		}
		if d.IsExternal() {
			return nil, fmt.Errorf("%w: field %q is external storage", ErrInvalidOperation, name)
		}
	}
	d, err := s.Append(name)
	if err != nil {
		return nil, err
	}
	if err := d.SetKind(KindTable); err != nil {
		return nil, err
	}
	return d.col.(*owned[Node]), nil
}

// AppendScope creates an empty child scope at the end of the table named
// name, creating the table when absent
func (s *Scope) AppendScope(name string) (*Scope, error) {
	table, err := s.tableFor(name)
	if err != nil {
		return nil, err
	}
	child := &Scope{parent: s}
	table.push(child)
	return child, nil
}

// Adopt attaches child to the table named name, first detaching it from any
// previous parent. Adopting s itself or one of its ancestors would create a
// cycle and is silently ignored.
func (s *Scope) Adopt(name string, child Node) error {
	if child == nil {
		return fmt.Errorf("%w: nil child", ErrInvalidArgument)
	}
	c := child.AsScope()
	if c == nil {
		return fmt.Errorf("%w: nil child", ErrInvalidArgument)
	}
	if c.IsAncestorOf(s) {
		return nil
	}
	table, err := s.tableFor(name)
	if err != nil {
		return err
	}
	c.Orphan()
	table.push(c.Self())
	c.parent = s
	return nil
}

// Orphan detaches s from its parent without touching its contents. The
// caller becomes responsible for the detached tree.
func (s *Scope) Orphan() {
	if s.parent == nil {
		return
	}
	if d, i := s.parent.locate(s); d != nil {
		d.col.(mutable).removeAt(i)
	}
	s.parent = nil
}

// locate finds the table datum and index holding child by identity
func (s *Scope) locate(child *Scope) (*Datum, int) {
	for _, e := range s.order {
		if e.datum.kind != KindTable || e.datum.IsExternal() {
			continue
		}
		for i, n := range e.datum.col.(elements[Node]).elems() {
			if n != nil && n.AsScope() == child {
				return e.datum, i
			}
		}
	}
	return nil, -1
}

// FindContainedScope returns the name and table index under which child is
// held by s
func (s *Scope) FindContainedScope(child Node) (string, int, bool) {
	if child == nil {
		return "", -1, false
	}
	c := child.AsScope()
	for _, e := range s.order {
		if e.datum.kind != KindTable {
			continue
		}
		for i, n := range e.datum.col.(elements[Node]).elems() {
			if n != nil && n.AsScope() == c {
				return e.name, i, true
			}
		}
	}
	return "", -1, false
}

// IsAncestorOf reports whether s is other or lies on other's parent chain
func (s *Scope) IsAncestorOf(other *Scope) bool {
	for cur := other; cur != nil; cur = cur.parent {
		if cur == s {
			return true
		}
	}
	return false
}

// IsDescendantOf reports whether other is s or lies on s's parent chain
func (s *Scope) IsDescendantOf(other *Scope) bool {
	return other != nil && other.IsAncestorOf(s)
}

// Equal reports whether other is a node of the same concrete type with the
// same entry count and, name by name, equal datum values, recursing into
// child scopes
func (s *Scope) Equal(other Object) bool {
	n, ok := other.(Node)
	if !ok || n == nil {
		return false
	}
	o := n.AsScope()
	if o == nil {
		return false
	}
	if o == s {
		return true
	}
	if reflect.TypeOf(s.Self()) != reflect.TypeOf(o.Self()) {
		return false
	}
	if len(s.order) != len(o.order) {
		return false
	}
	for _, e := range s.order {
		theirs := o.Find(e.name)
		if theirs == nil || !e.datum.Equal(theirs) {
			return false
		}
	}
	return true
}

// Clone returns a detached deep copy of s as a plain *Scope. Children are
// copied through their own Clone so they keep their concrete types.
func (s *Scope) Clone() Node {
	dst := NewScopeWithCapacity(len(s.order))
	s.copyInto(dst)
	return dst
}

// copyInto appends deep copies of s's entries to dst
func (s *Scope) copyInto(dst *Scope) {
	for _, e := range s.order {
		if e.datum.kind != KindTable || e.datum.IsExternal() {
			d, _ := dst.Append(e.name)
			*d = *e.datum.Clone()
			continue
		}
		table, _ := dst.tableFor(e.name)
		for _, child := range e.datum.col.(elements[Node]).elems() {
			c := cloneNode(child)
			table.push(c)
			if c != nil {
				c.AsScope().parent = dst
			}
		}
	}
}

// MoveFrom transfers src's entries into s. s is cleared first; if src has a
// parent, s leaves its own parent and takes src's slot, and src is orphaned.
// src is left empty.
func (s *Scope) MoveFrom(src *Scope) {
	if src == nil || src == s {
		return
	}
	s.Clear()
	if src.parent != nil || src.IsAncestorOf(s) {
		s.Orphan()
	}

	if parent := src.parent; parent != nil {
		if d, i := parent.locate(src); d != nil {
			d.col.(elements[Node]).replace(i, s.Self())
			s.parent = parent
		}
		src.parent = nil
	}

	s.order, s.lookup = src.order, src.lookup
	src.order, src.lookup = nil, nil

	for _, e := range s.order {
		if e.datum.kind != KindTable || e.datum.IsExternal() {
			continue
		}
		for _, child := range e.datum.col.(elements[Node]).elems() {
			if child != nil {
				child.AsScope().parent = s
			}
		}
	}
}

// Clear removes every entry. Child scopes are detached; their contents are
// untouched.
func (s *Scope) Clear() {
	for _, e := range s.order {
		if m, ok := e.datum.col.(mutable); ok && e.datum.kind == KindTable {
			m.clear()
		}
	}
	s.order = nil
	s.lookup = nil
}

// Destroy tears down the whole subtree: every descendant is emptied and
// detached, then s leaves its parent. Calling it again does nothing.
func (s *Scope) Destroy() {
	for _, e := range s.order {
		if e.datum.kind != KindTable || e.datum.IsExternal() {
			continue
		}
		for _, child := range slices.Clone(e.datum.col.(elements[Node]).elems()) {
			if child != nil {
				child.AsScope().Destroy()
			}
		}
	}
	s.Clear()
	s.Orphan()
}
