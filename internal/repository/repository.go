package repository

import (
	"context"
	"errors"

	"scopekit/internal/domain"
)

// ErrNotFound is returned when deleting a key that holds no snapshot
var ErrNotFound = errors.New("snapshot not found")

// Repository defines the interface for snapshot data access
type Repository interface {
	// Read operations. GetSnapshot returns nil, nil for a missing key.
	GetSnapshot(ctx context.Context, key string) (*domain.Snapshot, error)
	ListSnapshots(ctx context.Context) ([]domain.SnapshotInfo, error)

	// Write operations
	SaveSnapshot(ctx context.Context, snap *domain.Snapshot) error
	DeleteSnapshot(ctx context.Context, key string) error

	// Close releases resources
	Close() error
}
