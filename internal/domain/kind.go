package domain

import "fmt"

// Kind identifies the element type held by a Datum
type Kind uint8

const (
	KindUnknown Kind = iota // not yet typed
	KindInteger             // int32
	KindFloat               // float32
	KindString              // UTF-8 string
	KindPointer             // Object
	KindVector              // Vec4
	KindMatrix              // Mat4
	KindTable               // Node (nested scopes)
)

var kindNames = [...]string{
	KindUnknown: "unknown",
	KindInteger: "integer",
	KindFloat:   "float",
	KindString:  "string",
	KindPointer: "pointer",
	KindVector:  "vector",
	KindMatrix:  "matrix",
	KindTable:   "table",
}

// String returns the lower-case kind name
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k is one of the defined kinds
func (k Kind) Valid() bool {
	return int(k) < len(kindNames)
}

// HasText reports whether values of this kind have a canonical text form
func (k Kind) HasText() bool {
	switch k {
	case KindInteger, KindFloat, KindString, KindVector, KindMatrix:
		return true
	default:
		return false
	}
}

// ParseKind converts a kind name back to a Kind
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return KindUnknown, fmt.Errorf("%w: unknown kind %q", ErrInvalidArgument, s)
}

// Vec4 is a four component float vector
type Vec4 [4]float32

// Mat4 is a 4x4 float matrix stored as four rows
type Mat4 [4]Vec4

// Identity returns the 4x4 identity matrix
func Identity() Mat4 {
	return Mat4{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// Object is an opaque polymorphic reference stored by pointer-kind datums.
// Datums compare objects through Equal, never by address.
type Object interface {
	Equal(other Object) bool
}

// Node is an element of a table datum: a *Scope or any type embedding one.
type Node interface {
	Object

	// AsScope returns the scope the node is built on.
	AsScope() *Scope

	// Clone returns a deep copy that keeps the node's concrete type.
	Clone() Node
}

// kindOf maps a Go element type onto its Kind. KindUnknown means T cannot be
// stored in a datum.
func kindOf[T any]() Kind {
	var zero T
	switch any(&zero).(type) {
	case *int32:
		return KindInteger
	case *float32:
		return KindFloat
	case *string:
		return KindString
	case *Object:
		return KindPointer
	case *Vec4:
		return KindVector
	case *Mat4:
		return KindMatrix
	case *Node:
		return KindTable
	default:
		return KindUnknown
	}
}
