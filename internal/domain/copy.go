package domain

import (
	"fmt"
	"reflect"
	"unsafe"
)

// Copy returns a deep copy of src with the same concrete type. The copy's
// members are copied field by field and its tree is deep copied. External
// fields aliasing src's members are moved to the copy's members at the same
// offsets, then UpdateExternalStorage runs. Copy fails if any external field
// still aliases src afterwards. The copy has no parent.
func Copy[T Reflected](src T) (T, error) {
	var zero T
	dst, err := copyReflected(src)
	if err != nil {
		return zero, err
	}
	return dst.(T), nil
}

func copyReflected(src Reflected) (Reflected, error) {
	sv := reflect.ValueOf(src)
	if sv.Kind() != reflect.Pointer || sv.IsNil() {
		return nil, fmt.Errorf("%w: copy of %T needs a non-nil pointer", ErrInvalidArgument, src)
	}
	sa := src.attributed()
	if sa.owner == nil {
		return nil, fmt.Errorf("%w: %T not initialized", ErrInvalidOperation, src)
	}

	dv := reflect.New(sv.Type().Elem())
	dv.Elem().Set(sv.Elem())
	dst := dv.Interface().(Reflected)

	da := dst.attributed()
	*da = Attributed{prescribed: sa.prescribed}
	da.bind(dst)
	sa.Scope.copyInto(&da.Scope)

	if err := relink(dst, sv.UnsafePointer(), dv.UnsafePointer(), sv.Type().Elem().Size()); err != nil {
		return nil, err
	}
	return dst, nil
}

// Move transfers src into dst, two instances of the same concrete type.
// dst takes src's member values and tree (and src's parent slot, if any),
// then its external fields are re-pointed at its own members as in Copy.
// src is left with an empty tree.
func Move[T Reflected](dst, src T) error {
	dv, sv := reflect.ValueOf(dst), reflect.ValueOf(src)
	if dv.Kind() != reflect.Pointer || dv.IsNil() || sv.Kind() != reflect.Pointer || sv.IsNil() {
		return fmt.Errorf("%w: move needs non-nil pointers", ErrInvalidArgument)
	}
	if dv.Type() != sv.Type() {
		return fmt.Errorf("%w: move %T into %T", ErrTypeConflict, src, dst)
	}
	if dv.Pointer() == sv.Pointer() {
		return nil
	}

	da, sa := dst.attributed(), src.attributed()
	if sa.owner == nil {
		return fmt.Errorf("%w: %T not initialized", ErrInvalidOperation, src)
	}

	// copy members, then restore dst's own tree header before moving the tree
	keep := *da
	dv.Elem().Set(sv.Elem())
	*da = keep

	da.bind(dst)
	da.prescribed = sa.prescribed
	da.Scope.MoveFrom(&sa.Scope)

	return relink(dst, sv.UnsafePointer(), dv.UnsafePointer(), sv.Type().Elem().Size())
}

// relink re-points the external fields of dst that lie inside the size bytes
// at from to the same offsets inside to, runs dst's UpdateExternalStorage and
// then checks that no external field of dst still overlaps from.
func relink(dst Reflected, from, to unsafe.Pointer, size uintptr) error {
	da := dst.attributed()
	lo := uintptr(from)
	hi := lo + size

	for _, e := range da.order {
		w, ok := e.datum.col.(window)
		if !ok {
			continue
		}
		if start, n := w.span(); n > 0 && start >= lo && start+n <= hi {
			w.rebase(from, to)
		}
	}

	f := &Fields{a: da}
	dst.UpdateExternalStorage(f)
	if f.err != nil {
		return fmt.Errorf("update external storage %T: %w", dst, f.err)
	}

	for _, e := range da.order {
		w, ok := e.datum.col.(window)
		if !ok {
			continue
		}
		if start, n := w.span(); n > 0 && start < hi && start+n > lo {
			return fmt.Errorf("%w: %T field %q still aliases the source", ErrInvalidOperation, dst, e.name)
		}
	}
	return nil
}
