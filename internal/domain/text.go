package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// elemOps bundles the per-kind behaviour a column needs. Nil hooks mean the
// kind does not support the operation (format/parse) or needs nothing
// (clone/release). same must be set whenever release is.
type elemOps[T any] struct {
	kind    Kind
	equal   func(a, b T) bool
	clone   func(v T) T
	release func(v T)
	same    func(a, b T) bool
	format  func(v T) string
	exact   func(v T) string // shortest round-tripping form; nil means format is exact
	parse   func(s string) (T, error)
}

var (
	integerOps = &elemOps[int32]{
		kind:   KindInteger,
		equal:  equalValues[int32],
		format: FormatInteger,
		parse:  ParseInteger,
	}
	floatOps = &elemOps[float32]{
		kind:   KindFloat,
		equal:  equalValues[float32],
		format: FormatFloat,
		exact:  FormatFloatExact,
		parse:  ParseFloat,
	}
	stringOps = &elemOps[string]{
		kind:   KindString,
		equal:  equalValues[string],
		format: func(v string) string { return v },
		parse:  func(s string) (string, error) { return s, nil },
	}
	pointerOps = &elemOps[Object]{
		kind:  KindPointer,
		equal: equalObjects,
	}
	vectorOps = &elemOps[Vec4]{
		kind:   KindVector,
		equal:  equalValues[Vec4],
		format: FormatVector,
		exact:  FormatVectorExact,
		parse:  ParseVector,
	}
	matrixOps = &elemOps[Mat4]{
		kind:   KindMatrix,
		equal:  equalValues[Mat4],
		format: FormatMatrix,
		exact:  FormatMatrixExact,
		parse:  ParseMatrix,
	}
	tableOps = &elemOps[Node]{
		kind:    KindTable,
		equal:   equalNodes,
		clone:   cloneNode,
		release: releaseNode,
		same:    sameNode,
	}
)

// opsFor returns the ops table for T, or nil when T is not a datum element type
func opsFor[T any]() *elemOps[T] {
	var ops any
	switch kindOf[T]() {
	case KindInteger:
		ops = integerOps
	case KindFloat:
		ops = floatOps
	case KindString:
		ops = stringOps
	case KindPointer:
		ops = pointerOps
	case KindVector:
		ops = vectorOps
	case KindMatrix:
		ops = matrixOps
	case KindTable:
		ops = tableOps
	}
	typed, _ := ops.(*elemOps[T])
	return typed
}

func equalValues[T comparable](a, b T) bool {
	return a == b
}

func equalObjects(a, b Object) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}

func equalNodes(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}

func cloneNode(n Node) Node {
	if n == nil {
		return nil
	}
	return n.Clone()
}

// sameNode reports whether a and b are the same tree node
func sameNode(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.AsScope() == b.AsScope()
}

// releaseNode clears the back-reference of a node leaving a table
func releaseNode(n Node) {
	if n == nil {
		return
	}
	if s := n.AsScope(); s != nil {
		s.parent = nil
	}
}

// ============================================================================
// Canonical text forms
// ============================================================================

// FormatInteger formats an integer in decimal
func FormatInteger(v int32) string {
	return strconv.FormatInt(int64(v), 10)
}

// FormatFloat formats a float with six decimals
func FormatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', 6, 32)
}

// FormatFloatExact formats a float in the shortest form that parses back to
// the same value
func FormatFloatExact(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

// FormatVector formats a vector as vec4(x, y, z, w)
func FormatVector(v Vec4) string {
	return formatVector(v, FormatFloat)
}

// FormatVectorExact is FormatVector with FormatFloatExact components
func FormatVectorExact(v Vec4) string {
	return formatVector(v, FormatFloatExact)
}

// FormatMatrix formats a matrix as mat4x4((r0c0, r0c1, r0c2, r0c3), ...)
func FormatMatrix(m Mat4) string {
	return formatMatrix(m, FormatFloat)
}

// FormatMatrixExact is FormatMatrix with FormatFloatExact components
func FormatMatrixExact(m Mat4) string {
	return formatMatrix(m, FormatFloatExact)
}

func formatVector(v Vec4, component func(float32) string) string {
	return "vec4(" + joinComponents(v, component) + ")"
}

func formatMatrix(m Mat4, component func(float32) string) string {
	rows := make([]string, len(m))
	for i, row := range m {
		rows[i] = "(" + joinComponents(row, component) + ")"
	}
	return "mat4x4(" + strings.Join(rows, ", ") + ")"
}

func joinComponents(v Vec4, component func(float32) string) string {
	parts := make([]string, len(v))
	for i, c := range v {
		parts[i] = component(c)
	}
	return strings.Join(parts, ", ")
}

// ParseInteger parses a decimal 32-bit integer
func ParseInteger(s string) (int32, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidArgument, s)
	}
	return int32(n), nil
}

// ParseFloat parses a decimal float
func ParseFloat(s string) (float32, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a float", ErrInvalidArgument, s)
	}
	return float32(f), nil
}

// ParseVector parses the vec4(x, y, z, w) form
func ParseVector(s string) (Vec4, error) {
	body, ok := unwrap(s, "vec4")
	if !ok {
		return Vec4{}, fmt.Errorf("%w: %q is not a vec4", ErrInvalidArgument, s)
	}
	v, err := parseComponents(body)
	if err != nil {
		return Vec4{}, fmt.Errorf("%w: %q is not a vec4", ErrInvalidArgument, s)
	}
	return v, nil
}

// ParseMatrix parses the mat4x4((...), (...), (...), (...)) form
func ParseMatrix(s string) (Mat4, error) {
	m, ok := parseMatrix(s)
	if !ok {
		return Mat4{}, fmt.Errorf("%w: %q is not a mat4x4", ErrInvalidArgument, s)
	}
	return m, nil
}

func parseMatrix(s string) (Mat4, bool) {
	var m Mat4
	body, ok := unwrap(s, "mat4x4")
	if !ok {
		return Mat4{}, false
	}

	rest := strings.TrimSpace(body)
	for r := range m {
		if r > 0 {
			if !strings.HasPrefix(rest, ",") {
				return Mat4{}, false
			}
			rest = strings.TrimSpace(rest[1:])
		}
		if !strings.HasPrefix(rest, "(") {
			return Mat4{}, false
		}
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return Mat4{}, false
		}
		row, err := parseComponents(rest[1:end])
		if err != nil {
			return Mat4{}, false
		}
		m[r] = row
		rest = strings.TrimSpace(rest[end+1:])
	}
	if rest != "" {
		return Mat4{}, false
	}
	return m, true
}

// unwrap strips "prefix(" and the matching trailing ")"
func unwrap(s, prefix string) (string, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, prefix) {
		return "", false
	}
	s = strings.TrimSpace(s[len(prefix):])
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return "", false
	}
	return s[1 : len(s)-1], true
}

func parseComponents(body string) (Vec4, error) {
	var v Vec4
	parts := strings.Split(body, ",")
	if len(parts) != len(v) {
		return Vec4{}, fmt.Errorf("expected %d components, got %d", len(v), len(parts))
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return Vec4{}, err
		}
		v[i] = float32(f)
	}
	return v, nil
}
