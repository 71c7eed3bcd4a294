package domain

import (
	"fmt"
	"reflect"
	"slices"
)

// Reflected is implemented by types that embed Attributed. The three hooks
// form the reflection lifecycle; each override must call the same hook on
// the type it embeds before doing its own work.
//
//   - DeclareSignatures runs once per concrete type and names the prescribed fields.
//   - Populate runs for every new instance and adds those fields with defaults.
//   - UpdateExternalStorage runs after every Copy and Move, once fields
//     aliasing the source's members have been moved to the receiver's. It
//     is only needed for external storage outside the struct.
type Reflected interface {
	Node
	DeclareSignatures(d *Declarer)
	Populate(f *Fields)
	UpdateExternalStorage(f *Fields)

	attributed() *Attributed
}

// Attributed gives an embedding type a self-populating scope with a fixed set
// of prescribed fields, some aliasing the embedding type's own members, plus
// any auxiliary fields added afterwards.
//
//	type Monster struct {
//		domain.Attributed
//		health int32
//	}
//
//	func (m *Monster) Populate(f *domain.Fields) {
//		m.Attributed.Populate(f)
//		domain.External(f, "health", domain.Slot(&m.health))
//	}
//
// Instances must be initialized with Init before use.
type Attributed struct {
	Scope

	owner      Reflected
	prescribed []string
}

func (a *Attributed) attributed() *Attributed { return a }

// DeclareSignatures is the base of the declare chain; it declares nothing
func (a *Attributed) DeclareSignatures(d *Declarer) {}

// Populate is the base of the populate chain; it adds nothing
func (a *Attributed) Populate(f *Fields) {}

// UpdateExternalStorage is the base of the rebind chain; it rebinds nothing
func (a *Attributed) UpdateExternalStorage(f *Fields) {}

// Init runs the reflection lifecycle on a freshly allocated r: it declares
// r's concrete type on first use, then populates r. Every prescribed name
// must be present once Populate returns.
func Init(r Reflected) error {
	a := r.attributed()
	if a.owner != nil {
		return fmt.Errorf("%w: %T already initialized", ErrInvalidOperation, r)
	}
	a.bind(r)
	a.prescribed = signatures.lookup(reflect.TypeOf(r), r.DeclareSignatures)

	f := &Fields{a: a}
	r.Populate(f)
	if f.err != nil {
		return fmt.Errorf("populate %T: %w", r, f.err)
	}

	for _, name := range a.prescribed {
		if a.Find(name) == nil {
			return fmt.Errorf("%w: %T does not populate prescribed field %q", ErrInvalidOperation, r, name)
		}
	}
	return nil
}

// bind records r as the node this Attributed and its scope belong to
func (a *Attributed) bind(r Reflected) {
	a.owner = r
	a.Scope.self = r
}

// AddAuxiliary adds an unprescribed field, returning the existing datum when
// name is already present
func (a *Attributed) AddAuxiliary(name string) (*Datum, error) {
	return a.Append(name)
}

// IsField reports whether name is present
func (a *Attributed) IsField(name string) bool {
	return a.Find(name) != nil
}

// IsPrescribedField reports whether name is declared by the type and present
func (a *Attributed) IsPrescribedField(name string) bool {
	return a.IsField(name) && slices.Contains(a.prescribed, name)
}

// IsAuxiliaryField reports whether name is present but not declared by the type
func (a *Attributed) IsAuxiliaryField(name string) bool {
	return a.IsField(name) && !slices.Contains(a.prescribed, name)
}

// Prescribed returns the names declared by the type, in declaration order
func (a *Attributed) Prescribed() []string {
	return slices.Clone(a.prescribed)
}

// Auxiliary returns the names of present, undeclared fields in insertion order
func (a *Attributed) Auxiliary() []string {
	var names []string
	for _, e := range a.order {
		if !slices.Contains(a.prescribed, e.name) {
			names = append(names, e.name)
		}
	}
	return names
}

// Equal reports whether other has the same concrete type and an equal tree
func (a *Attributed) Equal(other Object) bool {
	return a.Scope.Equal(other)
}

// Clone returns a deep copy with the same concrete type, external fields
// rebound to the copy. It panics if rebinding fails, which only a broken
// UpdateExternalStorage can cause; use Copy to get the error instead.
func (a *Attributed) Clone() Node {
	if a.owner == nil {
		return a.Scope.Clone()
	}
	dst, err := copyReflected(a.owner)
	if err != nil {
		panic(err)
	}
	return dst
}
