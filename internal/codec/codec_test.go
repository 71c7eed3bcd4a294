package codec

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"scopekit/internal/domain"

	"github.com/google/go-cmp/cmp"
)

type testItem struct {
	domain.Attributed
	weight float32
}

func (i *testItem) DeclareSignatures(d *domain.Declarer) {
	i.Attributed.DeclareSignatures(d)
	d.Signature("weight")
}

func (i *testItem) Populate(f *domain.Fields) {
	i.Attributed.Populate(f)
	domain.External(f, "weight", domain.Slot(&i.weight))
}

func (i *testItem) UpdateExternalStorage(f *domain.Fields) {
	i.Attributed.UpdateExternalStorage(f)
	domain.Rebind(f, "weight", domain.Slot(&i.weight))
}

type testRef struct{}

func (r *testRef) Equal(other domain.Object) bool { return other != nil }

func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// buildScope creates a tree exercising every kind
func buildScope(t *testing.T) *domain.Scope {
	t.Helper()
	s := domain.NewScope()

	add := func(name string, fn func(d *domain.Datum) error) {
		d, err := s.Append(name)
		assertNoError(t, err)
		assertNoError(t, fn(d))
	}
	add("level", func(d *domain.Datum) error { return domain.Push(d, int32(3)) })
	add("speed", func(d *domain.Datum) error { return domain.Push(d, float32(1.25)) })
	add("names", func(d *domain.Datum) error {
		if err := domain.Push(d, "orc"); err != nil {
			return err
		}
		return domain.Push(d, "goblin: chief")
	})
	add("spawn", func(d *domain.Datum) error { return domain.Push(d, domain.Vec4{1, 2, 3, 1}) })
	add("transform", func(d *domain.Datum) error { return domain.Push(d, domain.Identity()) })
	add("target", func(d *domain.Datum) error { return domain.Push[domain.Object](d, &testRef{}) })
	add("pending", func(d *domain.Datum) error { return nil })

	room, err := s.AppendScope("rooms")
	assertNoError(t, err)
	size, _ := room.Append("size")
	assertNoError(t, domain.Push(size, int32(12)))
	_, err = room.AppendScope("doors")
	assertNoError(t, err)

	_, err = s.AppendScope("rooms")
	assertNoError(t, err)

	item := &testItem{weight: 2.5}
	assertNoError(t, domain.Init(item))
	assertNoError(t, s.Adopt("items", item))
	return s
}

// fingerprint fails the test on error
func fingerprint(t *testing.T, s *domain.Scope) string {
	t.Helper()
	fp, err := Fingerprint(s)
	assertNoError(t, err)
	return fp
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"yaml", "yaml"},
		{"yml", "yaml"},
		{"json", "json"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			c, err := ForFormat(tt.format, 0)
			assertNoError(t, err)
			if c.Format() != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, c.Format())
			}
		})
	}

	_, err := ForFormat("xml", 0)
	if !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, format := range Formats() {
		t.Run(format, func(t *testing.T) {
			c, err := ForFormat(format, 0)
			assertNoError(t, err)

			src := buildScope(t)
			var buf bytes.Buffer
			assertNoError(t, c.Export(src, &buf))

			got, err := c.Parse(&buf)
			assertNoError(t, err)

			// decoded children are plain scopes, so compare content rather than types
			if fingerprint(t, got) != fingerprint(t, src) {
				t.Fatalf("decoded scope differs from source:\n%s", buf.String())
			}
			rooms, err := got.Find("rooms").Scope(0)
			assertNoError(t, err)
			wantRooms, _ := src.Find("rooms").Scope(0)
			if !rooms.Equal(wantRooms) {
				t.Fatalf("decoded rooms differ from source")
			}
			if diff := cmp.Diff(src.Names(), got.Names()); diff != "" {
				t.Fatalf("order mismatch (-want +got):\n%s", diff)
			}

			item, err := got.Find("items").Scope(0)
			assertNoError(t, err)
			if item.Find("weight").IsExternal() {
				t.Fatalf("expected decoded external field to be owned")
			}
			if item.Parent() != got {
				t.Fatalf("expected decoded child parented under the root")
			}
		})
	}
}

func TestYAMLLayout(t *testing.T) {
	s := domain.NewScope()
	hp, _ := s.Append("health")
	assertNoError(t, domain.Push(hp, int32(100)))
	kid, err := s.AppendScope("kids")
	assertNoError(t, err)
	score, _ := kid.Append("score")
	assertNoError(t, domain.Push(score, int32(42)))

	var buf bytes.Buffer
	assertNoError(t, NewYAMLCodec().Export(s, &buf))

	want := `- name: health
  kind: integer
  values:
    - "100"
- name: kids
  kind: table
  scopes:
    - - name: score
        kind: integer
        values:
          - "42"
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("layout mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEmpty(t *testing.T) {
	for _, format := range Formats() {
		t.Run(format, func(t *testing.T) {
			c, _ := ForFormat(format, 0)
			s, err := c.Parse(strings.NewReader(""))
			assertNoError(t, err)
			if s.Len() != 0 {
				t.Fatalf("expected empty scope, got %d entries", s.Len())
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bad kind", `[{"name": "a", "kind": "quaternion"}]`},
		{"bad value", `[{"name": "a", "kind": "integer", "values": ["ten"]}]`},
		{"duplicate", `[{"name": "a", "kind": "string"}, {"name": "a", "kind": "string"}]`},
		{"empty name", `[{"name": "", "kind": "string"}]`},
		{"values on table", `[{"name": "a", "kind": "table", "values": ["1"]}]`},
		{"scopes on integer", `[{"name": "a", "kind": "integer", "scopes": [[]]}]`},
		{"unknown field", `[{"name": "a", "kind": "string", "extra": 1}]`},
		{"not a list", `{"name": "a"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewJSONCodec().Parse(strings.NewReader(tt.input)); err == nil {
				t.Fatalf("expected an error for %s", tt.input)
			}
		})
	}
}

func TestFingerprint(t *testing.T) {
	a, err := Fingerprint(buildScope(t))
	assertNoError(t, err)
	b, err := Fingerprint(buildScope(t))
	assertNoError(t, err)
	if a != b {
		t.Fatalf("expected equal trees to share a fingerprint")
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex digits, got %d", len(a))
	}

	changed := buildScope(t)
	level := changed.Find("level")
	assertNoError(t, domain.Set(level, int32(4), 0))
	c, err := Fingerprint(changed)
	assertNoError(t, err)
	if c == a {
		t.Fatalf("expected a changed tree to change the fingerprint")
	}
}

func TestFloatsRoundTripExactly(t *testing.T) {
	s := domain.NewScope()
	tiny, _ := s.Append("tiny")
	assertNoError(t, domain.Push(tiny, float32(0.0000004)))
	assertNoError(t, domain.Push(tiny, float32(1)/3))
	spin, _ := s.Append("spin")
	assertNoError(t, domain.Push(spin, domain.Vec4{0.0000001, 2, 3, 1}))
	m, _ := s.Append("basis")
	basis := domain.Identity()
	basis[1][2] = 0.00000025
	assertNoError(t, domain.Push(m, basis))

	for _, format := range Formats() {
		t.Run(format, func(t *testing.T) {
			c, _ := ForFormat(format, 0)
			var buf bytes.Buffer
			assertNoError(t, c.Export(s, &buf))
			got, err := c.Parse(&buf)
			assertNoError(t, err)
			if !got.Equal(s) {
				t.Fatalf("floats changed in round trip:\n%s", buf.String())
			}
		})
	}

	t.Run("small edits change the fingerprint", func(t *testing.T) {
		before := fingerprint(t, s)
		assertNoError(t, domain.Set(tiny, float32(0.0000005), 0))
		if fingerprint(t, s) == before {
			t.Fatal("expected a different fingerprint")
		}
	})
}
