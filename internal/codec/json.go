package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"scopekit/internal/domain"
)

// JSONCodec handles JSON snapshot import/export
type JSONCodec struct {
	// Indent is the nesting width in spaces, 2 when zero
	Indent int
}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse imports a scope tree from JSON. An empty document yields an empty scope.
func (c *JSONCodec) Parse(r io.Reader) (*domain.Scope, error) {
	var entries []entry
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&entries); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	scope, err := fromEntries(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to build scope: %w", err)
	}
	return scope, nil
}

// Export exports a scope tree to JSON
func (c *JSONCodec) Export(scope *domain.Scope, w io.Writer) error {
	entries, err := toEntries(scope)
	if err != nil {
		return fmt.Errorf("failed to convert scope: %w", err)
	}

	indent := c.Indent
	if indent <= 0 {
		indent = 2
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", strings.Repeat(" ", indent))

	if err := encoder.Encode(entries); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
