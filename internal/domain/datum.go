package domain

import "fmt"

// Datum is a resizable array whose element type is chosen at run time and
// fixed once chosen. A datum either owns its storage, growing it on demand,
// or aliases external storage supplied by an embedding object, in which case
// its length and capacity are frozen.
//
// The zero value is an empty, untyped, owning datum.
type Datum struct {
	kind Kind
	col  column
}

// NewDatum creates an empty untyped datum
func NewDatum() *Datum {
	return &Datum{}
}

// NewTypedDatum creates an empty owning datum of the given kind
func NewTypedDatum(k Kind) (*Datum, error) {
	d := &Datum{}
	if err := d.SetKind(k); err != nil {
		return nil, err
	}
	return d, nil
}

// Kind returns the datum's element kind, KindUnknown until first set
func (d *Datum) Kind() Kind {
	return d.kind
}

// Len returns the number of elements
func (d *Datum) Len() int {
	if d.col == nil {
		return 0
	}
	return d.col.size()
}

// Cap returns the number of element slots available without growing
func (d *Datum) Cap() int {
	if d.col == nil {
		return 0
	}
	return d.col.capacity()
}

// IsExternal reports whether the datum aliases memory it does not own
func (d *Datum) IsExternal() bool {
	return d.col != nil && d.col.borrowed()
}

// IsEmpty reports whether the datum has no elements
func (d *Datum) IsEmpty() bool {
	return d.Len() == 0
}

// SetKind fixes the element kind. Setting the current kind again is a no-op;
// changing an already fixed kind fails with ErrTypeConflict.
func (d *Datum) SetKind(k Kind) error {
	if k == d.kind {
		return nil
	}
	if !k.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidArgument, k)
	}
	if d.kind != KindUnknown {
		return fmt.Errorf("%w: datum is %s, cannot become %s", ErrTypeConflict, d.kind, k)
	}
	d.kind = k
	d.col = newColumn(k)
	return nil
}

// mutable returns the owned column, or ErrInvalidOperation for external storage
func (d *Datum) mutable(op string) (mutable, error) {
	if d.col == nil {
		return nil, fmt.Errorf("%w: %s on untyped datum", ErrInvalidOperation, op)
	}
	m, ok := d.col.(mutable)
	if !ok {
		return nil, fmt.Errorf("%w: %s on external storage", ErrInvalidOperation, op)
	}
	return m, nil
}

// Reserve grows owned capacity to at least n; it never shrinks
func (d *Datum) Reserve(n int) error {
	m, err := d.mutable("reserve")
	if err != nil {
		return err
	}
	m.reserve(n)
	return nil
}

// ShrinkToFit reduces owned capacity to exactly the current length
func (d *Datum) ShrinkToFit() error {
	if d.col == nil {
		return nil
	}
	m, err := d.mutable("shrink")
	if err != nil {
		return err
	}
	m.shrink()
	return nil
}

// Resize sets the length to n, truncating or appending zero values. Tables
// cannot grow this way because a table slot must hold a live node.
func (d *Datum) Resize(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative size %d", ErrInvalidArgument, n)
	}
	m, err := d.mutable("resize")
	if err != nil {
		return err
	}
	if d.kind == KindTable && n > m.size() {
		return fmt.Errorf("%w: tables grow through Scope.AppendScope or Scope.Adopt", ErrInvalidOperation)
	}
	m.resize(n)
	return nil
}

// Pop removes the last element, doing nothing when the datum is empty
func (d *Datum) Pop() error {
	if d.col == nil {
		return nil
	}
	m, err := d.mutable("pop")
	if err != nil {
		return err
	}
	m.pop()
	return nil
}

// RemoveAt removes the element at index i, shifting later elements down
func (d *Datum) RemoveAt(i int) error {
	m, err := d.mutable("remove")
	if err != nil {
		if d.col == nil {
			return fmt.Errorf("%w: index %d, length 0", ErrOutOfRange, i)
		}
		return err
	}
	if i < 0 || i >= m.size() {
		return fmt.Errorf("%w: index %d, length %d", ErrOutOfRange, i, m.size())
	}
	m.removeAt(i)
	return nil
}

// Clear removes every element, keeping kind and capacity. Nested tables are
// detached from this datum.
func (d *Datum) Clear() error {
	if d.col == nil {
		return nil
	}
	m, err := d.mutable("clear")
	if err != nil {
		return err
	}
	m.clear()
	return nil
}

// Equal reports whether both datums have the same kind, length and pairwise
// equal elements. Pointers and tables compare by their referents' Equal.
func (d *Datum) Equal(other *Datum) bool {
	if d == other {
		return true
	}
	if d == nil || other == nil {
		return false
	}
	if d.kind != other.kind || d.Len() != other.Len() {
		return false
	}
	if d.Len() == 0 {
		return true
	}
	return d.col.equal(other.col)
}

// ToString formats element i in its canonical text form
func (d *Datum) ToString(i int) (string, error) {
	if d.col == nil {
		return "", fmt.Errorf("%w: untyped datum has no text form", ErrInvalidOperation)
	}
	return d.col.format(i)
}

// ExactString formats element i like ToString, except that floats and their
// vector and matrix components use the shortest form that parses back to
// the same value
func (d *Datum) ExactString(i int) (string, error) {
	if d.col == nil {
		return "", fmt.Errorf("%w: untyped datum has no text form", ErrInvalidOperation)
	}
	return d.col.formatExact(i)
}

// Strings formats every element in canonical form
func (d *Datum) Strings() ([]string, error) {
	return d.strings(d.ToString)
}

// ExactStrings formats every element with ExactString
func (d *Datum) ExactStrings() ([]string, error) {
	return d.strings(d.ExactString)
}

func (d *Datum) strings(format func(int) (string, error)) ([]string, error) {
	out := make([]string, d.Len())
	for i := range out {
		s, err := format(i)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// SetFromString parses s and stores it at index i
func (d *Datum) SetFromString(s string, i int) error {
	if d.col == nil {
		return fmt.Errorf("%w: untyped datum has no text form", ErrInvalidOperation)
	}
	return d.col.parse(s, i)
}

// PushFromString parses s and appends it. The datum must already be typed.
func (d *Datum) PushFromString(s string) error {
	if d.col == nil {
		return fmt.Errorf("%w: untyped datum has no text form", ErrInvalidOperation)
	}
	m, err := d.mutable("push")
	if err != nil {
		return err
	}
	return m.parsePush(s)
}

// Clone copies the datum. An owning datum is deep copied into fresh storage,
// nested tables included; an external datum yields a second alias of the
// same memory.
func (d *Datum) Clone() *Datum {
	if d.col == nil {
		return &Datum{kind: d.kind}
	}
	return &Datum{kind: d.kind, col: d.col.duplicate()}
}

// MoveFrom takes src's storage, leaving src empty, untyped and owning. A
// table whose nodes are attached to a scope cannot be moved this way, since
// the nodes would keep pointing at the old parent; use Scope.Adopt or
// Scope.MoveFrom instead.
func (d *Datum) MoveFrom(src *Datum) error {
	if d == src || src == nil {
		return nil
	}
	if src.kind == KindTable && src.col != nil {
		for _, n := range src.col.(elements[Node]).elems() {
			if n != nil && n.AsScope().parent != nil {
				return fmt.Errorf("%w: table holds attached scopes", ErrInvalidOperation)
			}
		}
	}
	if m, ok := d.col.(mutable); ok {
		m.clear()
	}
	d.kind, d.col = src.kind, src.col
	src.kind, src.col = KindUnknown, nil
	return nil
}

// Move returns a new datum holding d's storage, leaving d empty
func (d *Datum) Move() (*Datum, error) {
	n := &Datum{}
	if err := n.MoveFrom(d); err != nil {
		return nil, err
	}
	return n, nil
}

// Node returns the table element at index i
func (d *Datum) Node(i int) (Node, error) {
	return Get[Node](d, i)
}

// Scope returns the scope of the table element at index i
func (d *Datum) Scope(i int) (*Scope, error) {
	n, err := Get[Node](d, i)
	if err != nil {
		return nil, err
	}
	return n.AsScope(), nil
}

// ============================================================================
// Typed access
// ============================================================================

// items returns the typed elements of d, checking that T matches its kind
func items[T any](d *Datum) ([]T, elements[T], error) {
	want := kindOf[T]()
	if want == KindUnknown {
		var zero T
		return nil, nil, fmt.Errorf("%w: %T cannot be stored in a datum", ErrTypeConflict, zero)
	}
	if d.kind != want {
		return nil, nil, fmt.Errorf("%w: datum is %s, requested %s", ErrTypeConflict, d.kind, want)
	}
	e := d.col.(elements[T])
	return e.elems(), e, nil
}

// Get returns element i. T must match the datum's kind: int32, float32,
// string, Object, Vec4, Mat4 or Node.
func Get[T any](d *Datum, i int) (T, error) {
	var zero T
	vals, _, err := items[T](d)
	if err != nil {
		return zero, err
	}
	if i < 0 || i >= len(vals) {
		return zero, fmt.Errorf("%w: index %d, length %d", ErrOutOfRange, i, len(vals))
	}
	return vals[i], nil
}

// Values returns a copy of all elements
func Values[T any](d *Datum) ([]T, error) {
	vals, _, err := items[T](d)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(vals))
	copy(out, vals)
	return out, nil
}

// Set stores v at index i. External storage is written through. Table
// slots are changed through Scope.Adopt and Scope.Orphan instead.
func Set[T any](d *Datum, v T, i int) error {
	vals, e, err := items[T](d)
	if err != nil {
		return err
	}
	if d.kind == KindTable {
		return fmt.Errorf("%w: set on table, use Scope.Adopt", ErrInvalidOperation)
	}
	if i < 0 || i >= len(vals) {
		return fmt.Errorf("%w: index %d, length %d", ErrOutOfRange, i, len(vals))
	}
	e.replace(i, v)
	return nil
}

// Push appends v, doubling capacity when full. An untyped datum takes the
// kind of T. Tables grow through Scope.AppendScope and Scope.Adopt.
func Push[T any](d *Datum, v T) error {
	want := kindOf[T]()
	if want == KindUnknown {
		return fmt.Errorf("%w: %T cannot be stored in a datum", ErrTypeConflict, v)
	}
	if want == KindTable {
		return fmt.Errorf("%w: push on table, use Scope.Adopt", ErrInvalidOperation)
	}
	if d.kind != want && d.kind != KindUnknown {
		return fmt.Errorf("%w: datum is %s, pushed %s", ErrTypeConflict, d.kind, want)
	}
	if d.IsExternal() {
		return fmt.Errorf("%w: push on external storage", ErrInvalidOperation)
	}
	if err := d.SetKind(want); err != nil {
		return err
	}
	d.col.(*owned[T]).push(v)
	return nil
}

// Assign is scalar assignment: it pushes into an empty datum and otherwise
// overwrites element 0.
func Assign[T any](d *Datum, v T) error {
	if d.Len() == 0 {
		return Push(d, v)
	}
	return Set(d, v, 0)
}

// Remove deletes the first element equal to v, preserving order. It reports
// whether an element was removed.
func Remove[T any](d *Datum, v T) (bool, error) {
	vals, _, err := items[T](d)
	if err != nil {
		return false, err
	}
	m, err := d.mutable("remove")
	if err != nil {
		return false, err
	}
	ops := opsFor[T]()
	for i := range vals {
		if ops.equal(vals[i], v) {
			m.removeAt(i)
			return true, nil
		}
	}
	return false, nil
}

// IndexOf returns the index of the first element equal to v, or -1
func IndexOf[T any](d *Datum, v T) (int, error) {
	vals, _, err := items[T](d)
	if err != nil {
		return -1, err
	}
	ops := opsFor[T]()
	for i := range vals {
		if ops.equal(vals[i], v) {
			return i, nil
		}
	}
	return -1, nil
}

// SetStorage aliases buf, memory owned by the caller. Length and capacity
// become len(buf) and the datum will never grow, shrink or release it.
// Re-aliasing an external datum is allowed; aliasing over a nonzero owned
// allocation is not.
func SetStorage[T any](d *Datum, buf []T) error {
	want := kindOf[T]()
	if want == KindUnknown {
		var zero T
		return fmt.Errorf("%w: %T cannot be stored in a datum", ErrTypeConflict, zero)
	}
	if d.kind != KindUnknown && d.kind != want {
		return fmt.Errorf("%w: datum is %s, storage is %s", ErrTypeConflict, d.kind, want)
	}
	if d.col != nil && !d.col.borrowed() && d.col.capacity() > 0 {
		return fmt.Errorf("%w: datum already owns %d slots", ErrInvalidOperation, d.col.capacity())
	}
	d.kind = want
	d.col = &external[T]{values[T]{ops: opsFor[T](), items: buf}}
	return nil
}
