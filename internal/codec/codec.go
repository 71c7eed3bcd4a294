package codec

import (
	"errors"
	"fmt"
	"io"

	"scopekit/internal/domain"
)

// ErrUnknownFormat is returned by ForFormat for a format with no codec
var ErrUnknownFormat = errors.New("unknown format")

// Importer interface for decoding scope snapshots from various formats
type Importer interface {
	Parse(r io.Reader) (*domain.Scope, error)
	Format() string
}

// Exporter interface for encoding scope snapshots to various formats
type Exporter interface {
	Export(scope *domain.Scope, w io.Writer) error
	Format() string
}

// Codec both imports and exports one format
type Codec interface {
	Importer
	Exporter
}

// Formats lists the supported format identifiers
func Formats() []string {
	return []string{"yaml", "json"}
}

// ForFormat returns the codec for format. indent is the nesting width in
// spaces; zero keeps each codec's default.
func ForFormat(format string, indent int) (Codec, error) {
	switch format {
	case "yaml", "yml":
		return &YAMLCodec{Indent: indent}, nil
	case "json":
		return &JSONCodec{Indent: indent}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
