package codec

import (
	"errors"
	"fmt"
	"io"

	"scopekit/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML snapshot import/export
type YAMLCodec struct {
	// Indent is the nesting width in spaces, 2 when zero
	Indent int
}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// Parse imports a scope tree from YAML. An empty document yields an empty scope.
func (c *YAMLCodec) Parse(r io.Reader) (*domain.Scope, error) {
	var entries []entry
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&entries); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	scope, err := fromEntries(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to build scope: %w", err)
	}
	return scope, nil
}

// Export exports a scope tree to YAML
func (c *YAMLCodec) Export(scope *domain.Scope, w io.Writer) error {
	entries, err := toEntries(scope)
	if err != nil {
		return fmt.Errorf("failed to convert scope: %w", err)
	}

	indent := c.Indent
	if indent <= 0 {
		indent = 2
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(indent)
	defer encoder.Close()

	if err := encoder.Encode(entries); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
