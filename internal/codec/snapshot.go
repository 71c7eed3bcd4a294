package codec

import (
	"fmt"

	"scopekit/internal/domain"
)

// entry is one datum of a scope in snapshot form. Values hold canonical text
// forms; Scopes holds the children of a table datum. Pointer datums keep only
// their kind since their referents are opaque.
type entry struct {
	Name   string    `yaml:"name" json:"name"`
	Kind   string    `yaml:"kind" json:"kind"`
	Values []string  `yaml:"values,omitempty" json:"values,omitempty"`
	Scopes [][]entry `yaml:"scopes,omitempty" json:"scopes,omitempty"`
}

// toEntries converts a scope to its snapshot form in insertion order
func toEntries(s *domain.Scope) ([]entry, error) {
	entries := make([]entry, 0, s.Len())
	for name, d := range s.All() {
		e := entry{Name: name, Kind: d.Kind().String()}

		switch {
		case d.Kind() == domain.KindTable:
			for i := range d.Len() {
				child, err := d.Scope(i)
				if err != nil {
					return nil, fmt.Errorf("field %q: %w", name, err)
				}
				children, err := toEntries(child)
				if err != nil {
					return nil, err
				}
				e.Scopes = append(e.Scopes, children)
			}
		case d.Kind().HasText():
			values, err := d.ExactStrings()
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			e.Values = values
		}

		entries = append(entries, e)
	}
	return entries, nil
}

// fromEntries builds a new root scope from its snapshot form
func fromEntries(entries []entry) (*domain.Scope, error) {
	s := domain.NewScopeWithCapacity(len(entries))
	if err := fill(s, entries); err != nil {
		return nil, err
	}
	return s, nil
}

func fill(s *domain.Scope, entries []entry) error {
	for _, e := range entries {
		if s.Find(e.Name) != nil {
			return fmt.Errorf("duplicate field %q", e.Name)
		}
		k, err := domain.ParseKind(e.Kind)
		if err != nil {
			return fmt.Errorf("field %q: %w", e.Name, err)
		}
		if k != domain.KindTable && len(e.Scopes) > 0 {
			return fmt.Errorf("field %q: %s field has scopes", e.Name, k)
		}
		if !k.HasText() && len(e.Values) > 0 {
			return fmt.Errorf("field %q: %s field has values", e.Name, k)
		}

		if k == domain.KindUnknown {
			if _, err := s.Append(e.Name); err != nil {
				return err
			}
			continue
		}

		d, err := s.AppendKind(e.Name, k)
		if err != nil {
			return err
		}
		for _, v := range e.Values {
			if err := d.PushFromString(v); err != nil {
				return fmt.Errorf("field %q: %w", e.Name, err)
			}
		}
		for _, children := range e.Scopes {
			child, err := s.AppendScope(e.Name)
			if err != nil {
				return err
			}
			if err := fill(child, children); err != nil {
				return err
			}
		}
	}
	return nil
}
