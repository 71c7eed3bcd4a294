package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"scopekit/internal/domain"
	"scopekit/internal/repository"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"
)

const (
	// schemaVersion is recorded in the metadata table by migrate
	schemaVersion = 1

	// payloads at least this large are stored zstd compressed
	compressThreshold = 1024

	compressionNone = ""
	compressionZstd = "zstd"
)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db  *sql.DB
	now func() time.Time

	enc *zstd.Encoder
	dec *zstd.Decoder
}

var _ repository.Repository = (*Repository)(nil)

// New creates a new SQLite repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a second connection to :memory: would see a different database
	db.SetMaxOpenConns(1)

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create compressor: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("failed to create decompressor: %w", err)
	}

	repo := &Repository{db: db, now: time.Now, enc: enc, dec: dec}
	if err := repo.migrate(); err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		key TEXT PRIMARY KEY,
		format TEXT NOT NULL,
		data BLOB NOT NULL,
		compression TEXT NOT NULL DEFAULT '',
		size INTEGER NOT NULL DEFAULT 0,
		fingerprint TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_updated ON snapshots(updated_at);
	`

	if _, err := r.db.Exec(schema); err != nil {
		return err
	}

	_, err := r.db.Exec(`
		INSERT INTO metadata (key, value) VALUES ('schema_version', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, strconv.Itoa(schemaVersion))
	return err
}

// SchemaVersion returns the schema version recorded by migrate
func (r *Repository) SchemaVersion(ctx context.Context) (int, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = 'schema_version'`).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("failed to query schema version: %w", err)
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("failed to parse schema version %q: %w", value, err)
	}
	return v, nil
}

// GetSnapshot retrieves a single snapshot by key
func (r *Repository) GetSnapshot(ctx context.Context, key string) (*domain.Snapshot, error) {
	var (
		format, compression string
		data                []byte
		fingerprint         sql.NullString
		created, updated    int64
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT format, data, compression, fingerprint, created_at, updated_at
		FROM snapshots WHERE key = ?
	`, key).Scan(&format, &data, &compression, &fingerprint, &created, &updated)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}

	data, err = r.decompress(compression, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot %s: %w", key, err)
	}

	return &domain.Snapshot{
		Key:         key,
		Format:      format,
		Data:        data,
		Fingerprint: nullToString(fingerprint),
		CreatedAt:   unixToTime(created),
		UpdatedAt:   unixToTime(updated),
	}, nil
}

// ListSnapshots returns metadata for every snapshot, most recently updated first
func (r *Repository) ListSnapshots(ctx context.Context) ([]domain.SnapshotInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT key, format, fingerprint, size, updated_at
		FROM snapshots
		ORDER BY updated_at DESC, key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	infos := []domain.SnapshotInfo{}
	for rows.Next() {
		var (
			info        domain.SnapshotInfo
			fingerprint sql.NullString
			updated     int64
		)
		if err := rows.Scan(&info.Key, &info.Format, &fingerprint, &info.Size, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		info.Fingerprint = nullToString(fingerprint)
		info.UpdatedAt = unixToTime(updated)
		infos = append(infos, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return infos, nil
}

// SaveSnapshot inserts or updates a snapshot. CreatedAt and UpdatedAt are set
// on snap from the stored row.
func (r *Repository) SaveSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	if snap.Key == "" {
		return fmt.Errorf("failed to save snapshot: empty key")
	}
	if snap.Data == nil {
		snap.Data = []byte{}
	}

	stored, compression := r.compress(snap.Data)
	now := timeToUnix(r.now())
	var created int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO snapshots (key, format, data, compression, size, fingerprint, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			format = excluded.format,
			data = excluded.data,
			compression = excluded.compression,
			size = excluded.size,
			fingerprint = excluded.fingerprint,
			updated_at = excluded.updated_at
		RETURNING created_at
	`, snap.Key, snap.Format, stored, compression, len(snap.Data),
		stringToNull(snap.Fingerprint), now, now).Scan(&created)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}

	snap.CreatedAt = unixToTime(created)
	snap.UpdatedAt = unixToTime(now)
	return nil
}

// DeleteSnapshot removes a snapshot
func (r *Repository) DeleteSnapshot(ctx context.Context, key string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count deleted rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("failed to delete snapshot %q: %w", key, repository.ErrNotFound)
	}
	return nil
}

// compress returns the bytes to store and the compression they use
func (r *Repository) compress(data []byte) ([]byte, string) {
	if len(data) < compressThreshold {
		return data, compressionNone
	}
	return r.enc.EncodeAll(data, make([]byte, 0, len(data)/2)), compressionZstd
}

func (r *Repository) decompress(compression string, data []byte) ([]byte, error) {
	switch compression {
	case compressionNone:
		return data, nil
	case compressionZstd:
		return r.dec.DecodeAll(data, nil)
	default:
		return nil, fmt.Errorf("unknown compression %q", compression)
	}
}

// Close closes the database connection
func (r *Repository) Close() error {
	r.enc.Close()
	r.dec.Close()
	return r.db.Close()
}
