// internal/adapter/storage/snapshot_store.go

package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// SnapshotStore persists exported visualization states as zstd files on
// disk so sessions can be shared and restored.
type SnapshotStore struct {
	dir string
}

// SnapshotInfo describes one stored snapshot.
type SnapshotInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSnapshotStore creates the snapshot directory if needed.
func NewSnapshotStore(dir string) (*SnapshotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating snapshot directory: %w", err)
	}
	return &SnapshotStore{dir: dir}, nil
}

// Save compresses and writes one state payload, returning its snapshot id.
func (s *SnapshotStore) Save(state json.RawMessage) (SnapshotInfo, error) {
	info := SnapshotInfo{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
	}

	file, err := os.Create(s.path(info))
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("error creating snapshot file: %w", err)
	}

	enc, err := zstd.NewWriter(file, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		file.Close()
		return SnapshotInfo{}, fmt.Errorf("error creating zstd writer: %w", err)
	}

	if _, err := enc.Write(state); err != nil {
		enc.Close()
		file.Close()
		return SnapshotInfo{}, fmt.Errorf("error writing snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		file.Close()
		return SnapshotInfo{}, fmt.Errorf("error flushing snapshot: %w", err)
	}
	if err := file.Close(); err != nil {
		return SnapshotInfo{}, fmt.Errorf("error closing snapshot file: %w", err)
	}

	return info, nil
}

// Load reads and decompresses one snapshot by id.
func (s *SnapshotStore) Load(id string) (json.RawMessage, error) {
	infos, err := s.List()
	if err != nil {
		return nil, err
	}

	for _, info := range infos {
		if info.ID != id {
			continue
		}
		file, err := os.Open(s.path(info))
		if err != nil {
			return nil, fmt.Errorf("error opening snapshot: %w", err)
		}
		defer file.Close()

		dec, err := zstd.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("error creating zstd reader: %w", err)
		}
		defer dec.Close()

		var state json.RawMessage
		if err := json.NewDecoder(dec.IOReadCloser()).Decode(&state); err != nil {
			return nil, fmt.Errorf("error decoding snapshot: %w", err)
		}
		return state, nil
	}

	return nil, fmt.Errorf("snapshot %s not found", id)
}

// List returns all snapshots, newest first.
func (s *SnapshotStore) List() ([]SnapshotInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("error reading snapshot directory: %w", err)
	}

	var infos []SnapshotInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json.zst") {
			continue
		}
		info, err := parseSnapshotName(entry.Name())
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})
	return infos, nil
}

// Delete removes one snapshot by id.
func (s *SnapshotStore) Delete(id string) error {
	infos, err := s.List()
	if err != nil {
		return err
	}
	for _, info := range infos {
		if info.ID == id {
			return os.Remove(s.path(info))
		}
	}
	return fmt.Errorf("snapshot %s not found", id)
}

// Snapshot files are named <unix-timestamp>-<uuid>.json.zst so a plain
// directory listing carries all metadata.
func (s *SnapshotStore) path(info SnapshotInfo) string {
	name := fmt.Sprintf("%d-%s.json.zst", info.CreatedAt.Unix(), info.ID)
	return filepath.Join(s.dir, name)
}

func parseSnapshotName(name string) (SnapshotInfo, error) {
	base := strings.TrimSuffix(name, ".json.zst")
	parts := strings.SplitN(base, "-", 2)
	if len(parts) != 2 {
		return SnapshotInfo{}, fmt.Errorf("malformed snapshot name %q", name)
	}
	var unix int64
	if _, err := fmt.Sscanf(parts[0], "%d", &unix); err != nil {
		return SnapshotInfo{}, fmt.Errorf("malformed snapshot timestamp in %q", name)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("malformed snapshot id in %q", name)
	}
	return SnapshotInfo{ID: id.String(), CreatedAt: time.Unix(unix, 0).UTC()}, nil
}
