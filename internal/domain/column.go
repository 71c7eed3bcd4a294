package domain

import (
	"fmt"
	"unsafe"
)

// column is the type-erased backing array of a typed Datum. There are exactly
// two implementations per element type: owned[T], which the datum may grow and
// shrink, and external[T], a borrowed window onto memory owned by someone
// else. Only owned[T] satisfies mutable, so structural changes to borrowed
// memory cannot be expressed.
type column interface {
	kind() Kind
	size() int
	capacity() int
	borrowed() bool
	duplicate() column
	equal(other column) bool
	format(i int) (string, error)
	formatExact(i int) (string, error)
	parse(s string, i int) error
}

// mutable is a column whose length and capacity the datum controls
type mutable interface {
	column
	reserve(n int)
	shrink()
	pop()
	removeAt(i int)
	resize(n int)
	clear()
	parsePush(s string) error
}

// window is the borrowed memory of an external column
type window interface {
	// span returns the address and byte length of the borrowed memory
	span() (uintptr, uintptr)
	// rebase re-points the window at the same offset from to as it has from from
	rebase(from, to unsafe.Pointer)
}

// elements gives typed access to either column variant
type elements[T any] interface {
	elems() []T
	replace(i int, v T)
}

func newColumn(k Kind) column {
	switch k {
	case KindInteger:
		return &owned[int32]{values[int32]{ops: integerOps}}
	case KindFloat:
		return &owned[float32]{values[float32]{ops: floatOps}}
	case KindString:
		return &owned[string]{values[string]{ops: stringOps}}
	case KindPointer:
		return &owned[Object]{values[Object]{ops: pointerOps}}
	case KindVector:
		return &owned[Vec4]{values[Vec4]{ops: vectorOps}}
	case KindMatrix:
		return &owned[Mat4]{values[Mat4]{ops: matrixOps}}
	case KindTable:
		return &owned[Node]{values[Node]{ops: tableOps}}
	default:
		return nil
	}
}

// values holds the state and behaviour shared by both column variants
type values[T any] struct {
	ops   *elemOps[T]
	items []T
}

func (v *values[T]) kind() Kind { return v.ops.kind }
func (v *values[T]) size() int  { return len(v.items) }
func (v *values[T]) elems() []T { return v.items }

func (v *values[T]) replace(i int, x T) {
	old := v.items[i]
	v.items[i] = x
	if v.ops.release != nil && !v.ops.same(old, x) {
		v.ops.release(old)
	}
}

func (v *values[T]) equal(other column) bool {
	o, ok := other.(elements[T])
	if !ok {
		return false
	}
	theirs := o.elems()
	if len(theirs) != len(v.items) {
		return false
	}
	for i := range v.items {
		if !v.ops.equal(v.items[i], theirs[i]) {
			return false
		}
	}
	return true
}

func (v *values[T]) format(i int) (string, error) {
	if v.ops.format == nil {
		return "", fmt.Errorf("%w: %s values have no text form", ErrInvalidOperation, v.ops.kind)
	}
	if i < 0 || i >= len(v.items) {
		return "", fmt.Errorf("%w: index %d, length %d", ErrOutOfRange, i, len(v.items))
	}
	return v.ops.format(v.items[i]), nil
}

func (v *values[T]) formatExact(i int) (string, error) {
	if v.ops.exact == nil {
		return v.format(i)
	}
	if i < 0 || i >= len(v.items) {
		return "", fmt.Errorf("%w: index %d, length %d", ErrOutOfRange, i, len(v.items))
	}
	return v.ops.exact(v.items[i]), nil
}

func (v *values[T]) parse(s string, i int) error {
	if v.ops.parse == nil {
		return fmt.Errorf("%w: %s values have no text form", ErrInvalidOperation, v.ops.kind)
	}
	if i < 0 || i >= len(v.items) {
		return fmt.Errorf("%w: index %d, length %d", ErrOutOfRange, i, len(v.items))
	}
	x, err := v.ops.parse(s)
	if err != nil {
		return err
	}
	v.replace(i, x)
	return nil
}

// ============================================================================
// Owned storage
// ============================================================================

type owned[T any] struct {
	values[T]
}

func (o *owned[T]) borrowed() bool { return false }
func (o *owned[T]) capacity() int  { return cap(o.items) }

func (o *owned[T]) duplicate() column {
	items := make([]T, len(o.items))
	for i, x := range o.items {
		if o.ops.clone != nil {
			x = o.ops.clone(x)
		}
		items[i] = x
	}
	return &owned[T]{values[T]{ops: o.ops, items: items}}
}

func (o *owned[T]) push(x T) {
	if len(o.items) == cap(o.items) {
		o.grow(max(1, 2*cap(o.items)))
	}
	o.items = append(o.items, x)
}

// grow reallocates to exactly n slots when n exceeds the current capacity
func (o *owned[T]) grow(n int) {
	if n <= cap(o.items) {
		return
	}
	items := make([]T, len(o.items), n)
	copy(items, o.items)
	o.items = items
}

func (o *owned[T]) reserve(n int) { o.grow(n) }

func (o *owned[T]) shrink() {
	if len(o.items) == cap(o.items) {
		return
	}
	items := make([]T, len(o.items))
	copy(items, o.items)
	o.items = items
}

func (o *owned[T]) pop() {
	n := len(o.items)
	if n == 0 {
		return
	}
	o.drop(n-1, n)
}

func (o *owned[T]) removeAt(i int) {
	x := o.items[i]
	copy(o.items[i:], o.items[i+1:])
	var zero T
	o.items[len(o.items)-1] = zero
	o.items = o.items[:len(o.items)-1]
	if o.ops.release != nil {
		o.ops.release(x)
	}
}

func (o *owned[T]) resize(n int) {
	if n < len(o.items) {
		o.drop(n, len(o.items))
		return
	}
	o.grow(n)
	var zero T
	for len(o.items) < n {
		o.items = append(o.items, zero)
	}
}

func (o *owned[T]) clear() {
	o.drop(0, len(o.items))
}

// drop releases and zeroes items[from:to] and truncates to from; to must be len
func (o *owned[T]) drop(from, to int) {
	var zero T
	for i := from; i < to; i++ {
		x := o.items[i]
		o.items[i] = zero
		if o.ops.release != nil {
			o.ops.release(x)
		}
	}
	o.items = o.items[:from]
}

func (o *owned[T]) parsePush(s string) error {
	if o.ops.parse == nil {
		return fmt.Errorf("%w: %s values have no text form", ErrInvalidOperation, o.ops.kind)
	}
	x, err := o.ops.parse(s)
	if err != nil {
		return err
	}
	o.push(x)
	return nil
}

// ============================================================================
// External storage
// ============================================================================

// external aliases memory owned by the embedding object. Its length is fixed
// at alias time and its capacity always equals its length.
type external[T any] struct {
	values[T]
}

func (e *external[T]) borrowed() bool { return true }
func (e *external[T]) capacity() int  { return len(e.items) }

// duplicate shares the borrowed window; copies of an alias alias the same memory
func (e *external[T]) duplicate() column {
	return &external[T]{values[T]{ops: e.ops, items: e.items}}
}

func (e *external[T]) span() (uintptr, uintptr) {
	if len(e.items) == 0 {
		return 0, 0
	}
	var zero T
	return uintptr(unsafe.Pointer(unsafe.SliceData(e.items))), uintptr(len(e.items)) * unsafe.Sizeof(zero)
}

func (e *external[T]) rebase(from, to unsafe.Pointer) {
	if len(e.items) == 0 {
		return
	}
	off := uintptr(unsafe.Pointer(unsafe.SliceData(e.items))) - uintptr(from)
	e.items = unsafe.Slice((*T)(unsafe.Add(to, off)), len(e.items))
}
