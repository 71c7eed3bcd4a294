package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"scopekit/internal/codec"
	"scopekit/internal/domain"
	"scopekit/internal/repository"
)

// Options configures a SnapshotService
type Options struct {
	Format        string        // encoding for saved snapshots, yaml when empty
	Indent        int           // nesting width, codec default when zero
	SkipUnchanged bool          // skip saves whose fingerprint matches the stored one
	Timeout       time.Duration // per repository call, none when zero
}

// SaveResult reports the outcome of a save
type SaveResult struct {
	Snapshot domain.SnapshotInfo
	Changed  bool
}

// SnapshotService provides business logic for snapshot operations
type SnapshotService struct {
	repo     repository.Repository
	eventBus *EventBus
	opts     Options
}

// NewSnapshotService creates a new snapshot service
func NewSnapshotService(repo repository.Repository, eventBus *EventBus, opts Options) *SnapshotService {
	if opts.Format == "" {
		opts.Format = "yaml"
	}
	return &SnapshotService{
		repo:     repo,
		eventBus: eventBus,
		opts:     opts,
	}
}

func (s *SnapshotService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.Timeout)
}

// Save encodes the tree rooted at node and stores it under key
func (s *SnapshotService) Save(ctx context.Context, key string, node domain.Node) (*SaveResult, error) {
	if key == "" {
		return nil, fmt.Errorf("snapshot key is required")
	}
	if node == nil || node.AsScope() == nil {
		return nil, fmt.Errorf("snapshot %s: nothing to save", key)
	}
	scope := node.AsScope()

	c, err := codec.ForFormat(s.opts.Format, s.opts.Indent)
	if err != nil {
		return nil, err
	}
	fingerprint, err := codec.Fingerprint(scope)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint %s: %w", key, err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if s.opts.SkipUnchanged {
		existing, err := s.repo.GetSnapshot(ctx, key)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.Fingerprint == fingerprint && existing.Format == c.Format() {
			info := existing.Info()
			s.eventBus.Publish(Event{Type: EventSnapshotUnchanged, Snapshot: info})
			return &SaveResult{Snapshot: info}, nil
		}
	}

	var buf bytes.Buffer
	if err := c.Export(scope, &buf); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", key, err)
	}

	snap := &domain.Snapshot{
		Key:         key,
		Format:      c.Format(),
		Data:        buf.Bytes(),
		Fingerprint: fingerprint,
	}
	if err := s.repo.SaveSnapshot(ctx, snap); err != nil {
		return nil, err
	}

	log.Printf("snapshots: saved %s (%s, %d bytes)", key, snap.Format, len(snap.Data))
	info := snap.Info()
	s.eventBus.Publish(Event{Type: EventSnapshotSaved, Snapshot: info})

	return &SaveResult{Snapshot: info, Changed: true}, nil
}

// Import parses a tree from r in the given format and saves it under key
func (s *SnapshotService) Import(ctx context.Context, key, format string, r io.Reader) (*SaveResult, error) {
	c, err := codec.ForFormat(format, 0)
	if err != nil {
		return nil, err
	}
	scope, err := c.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to import %s: %w", key, err)
	}
	return s.Save(ctx, key, scope)
}

// Load decodes the snapshot stored under key into a new root scope
func (s *SnapshotService) Load(ctx context.Context, key string) (*domain.Scope, error) {
	snap, err := s.get(ctx, key)
	if err != nil {
		return nil, err
	}

	c, err := codec.ForFormat(snap.Format, 0)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", key, err)
	}
	scope, err := c.Parse(bytes.NewReader(snap.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return scope, nil
}

// Export writes the snapshot stored under key to w in format, the
// service's format when empty. A snapshot already in that format is copied
// through unchanged.
func (s *SnapshotService) Export(ctx context.Context, key, format string, w io.Writer) error {
	if format == "" {
		format = s.opts.Format
	}
	out, err := codec.ForFormat(format, s.opts.Indent)
	if err != nil {
		return err
	}

	snap, err := s.get(ctx, key)
	if err != nil {
		return err
	}
	if snap.Format == out.Format() {
		_, err := w.Write(snap.Data)
		return err
	}

	in, err := codec.ForFormat(snap.Format, 0)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", key, err)
	}
	scope, err := in.Parse(bytes.NewReader(snap.Data))
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return out.Export(scope, w)
}

// List returns metadata for every stored snapshot
func (s *SnapshotService) List(ctx context.Context) ([]domain.SnapshotInfo, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.repo.ListSnapshots(ctx)
}

// Delete removes the snapshot stored under key
func (s *SnapshotService) Delete(ctx context.Context, key string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.repo.DeleteSnapshot(ctx, key); err != nil {
		return err
	}

	log.Printf("snapshots: deleted %s", key)
	s.eventBus.Publish(Event{
		Type:     EventSnapshotDeleted,
		Snapshot: domain.SnapshotInfo{Key: key},
	})
	return nil
}

func (s *SnapshotService) get(ctx context.Context, key string) (*domain.Snapshot, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	snap, err := s.repo.GetSnapshot(ctx, key)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("snapshot %s: %w", key, repository.ErrNotFound)
	}
	return snap, nil
}

// IsNotFound reports whether err means a missing snapshot
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
