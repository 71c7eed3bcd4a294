package domain

import "time"

// Snapshot is an encoded scope tree stored under a key
type Snapshot struct {
	Key         string    `json:"key"`
	Format      string    `json:"format"`
	Data        []byte    `json:"-"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SnapshotInfo describes a stored snapshot without its payload
type SnapshotInfo struct {
	Key         string    `json:"key"`
	Format      string    `json:"format"`
	Fingerprint string    `json:"fingerprint"`
	Size        int       `json:"size"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Info returns the snapshot's metadata
func (s *Snapshot) Info() SnapshotInfo {
	return SnapshotInfo{
		Key:         s.Key,
		Format:      s.Format,
		Fingerprint: s.Fingerprint,
		Size:        len(s.Data),
		UpdatedAt:   s.UpdatedAt,
	}
}
