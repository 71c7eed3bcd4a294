package domain

import (
	"fmt"
	"unsafe"
)

// Fields adds prescribed fields during Populate and rebinds them during
// UpdateExternalStorage. The first failure sticks: later calls do nothing
// and Init, Copy or Move report it.
type Fields struct {
	a   *Attributed
	err error
}

// Err returns the first failure, if any
func (f *Fields) Err() error {
	return f.err
}

func (f *Fields) fail(name string, err error) {
	if f.err == nil {
		f.err = fmt.Errorf("field %q: %w", name, err)
	}
}

// Scope adds an empty table field that child scopes can later be adopted into
func (f *Fields) Scope(name string) {
	if f.err != nil || f.a.Find(name) != nil {
		return
	}
	if _, err := f.a.AppendKind(name, KindTable); err != nil {
		f.fail(name, err)
	}
}

// Internal adds a field named name owning count copies of def. It does
// nothing when name is already present. Table fields are added with Scope.
func Internal[T any](f *Fields, name string, def T, count int) {
	if f.err != nil || f.a.Find(name) != nil {
		return
	}
	if count < 0 {
		f.fail(name, fmt.Errorf("%w: negative count %d", ErrInvalidArgument, count))
		return
	}
	k := kindOf[T]()
	if k == KindUnknown {
		f.fail(name, fmt.Errorf("%w: %T cannot be stored in a datum", ErrTypeConflict, def))
		return
	}
	if k == KindTable {
		f.fail(name, fmt.Errorf("%w: table fields are added with Fields.Scope", ErrInvalidOperation))
		return
	}
	d, err := f.a.AppendKind(name, k)
	if err != nil {
		f.fail(name, err)
		return
	}
	if count > 0 {
		d.col.(mutable).reserve(count)
	}
	for range count {
		d.col.(*owned[T]).push(def)
	}
}

// External adds a field named name aliasing storage, normally a slice over
// one of the embedding type's own members. The members' current values are
// the field's defaults. It does nothing when name is already present.
func External[T any](f *Fields, name string, storage []T) {
	if f.err != nil || f.a.Find(name) != nil {
		return
	}
	if kindOf[T]() == KindUnknown {
		var zero T
		f.fail(name, fmt.Errorf("%w: %T cannot be stored in a datum", ErrTypeConflict, zero))
		return
	}
	d, err := f.a.Append(name)
	if err != nil {
		f.fail(name, err)
		return
	}
	if err := SetStorage(d, storage); err != nil {
		f.fail(name, err)
	}
}

// Rebind re-points the external field named name at storage. Call it from
// UpdateExternalStorage for fields whose storage is not a member of the
// struct itself. A missing field is added.
func Rebind[T any](f *Fields, name string, storage []T) {
	if f.err != nil {
		return
	}
	d := f.a.Find(name)
	if d == nil {
		External(f, name, storage)
		return
	}
	if !d.IsExternal() {
		f.fail(name, fmt.Errorf("%w: not external storage", ErrInvalidOperation))
		return
	}
	if err := SetStorage(d, storage); err != nil {
		f.fail(name, err)
	}
}

// Slot views a single member as one-element storage for External and Rebind
func Slot[T any](p *T) []T {
	return unsafe.Slice(p, 1)
}
