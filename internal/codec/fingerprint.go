package codec

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"scopekit/internal/domain"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns the hex BLAKE2b-256 digest of the scope's compact JSON
// snapshot. Two scopes with the same entries in the same order share a
// fingerprint regardless of storage mode.
func Fingerprint(scope *domain.Scope) (string, error) {
	entries, err := toEntries(scope)
	if err != nil {
		return "", fmt.Errorf("failed to convert scope: %w", err)
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("failed to encode fingerprint input: %w", err)
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
