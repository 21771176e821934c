// Package checkpoint persists extraction progress as an atomically
// replaced JSON snapshot. A crash mid-write can never corrupt the last
// good checkpoint: the snapshot is written to a .tmp sibling and renamed
// over the target.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hazyhaar/adwatch/ad"
)

// FileStore reads and writes checkpoint snapshots at a fixed path.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore creates a FileStore. The parent directory is created on
// first save.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, logger: logger}
}

// Path returns the checkpoint file location.
func (s *FileStore) Path() string { return s.path }

// Save writes a complete replacement snapshot. SavedAt is stamped here if
// the caller left it zero.
func (s *FileStore) Save(ctx context.Context, cp *ad.Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cp.SavedAt.IsZero() {
		cp.SavedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: marshal: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("checkpoint: mkdir %s: %w", dir, err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("checkpoint: write tmp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("checkpoint: rename: %w", err)
	}
	return nil
}

// Load returns the last snapshot, or (nil, nil) when there is none. A
// missing or unreadable file means a fresh start, never an error: the
// engine must be able to run without a prior checkpoint, and a corrupt
// file must not block a new session from replacing it.
func (s *FileStore) Load(ctx context.Context) (*ad.Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("checkpoint: unreadable, starting fresh", "path", s.path, "error", err)
		}
		return nil, nil
	}

	var cp ad.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		s.logger.Warn("checkpoint: corrupt, starting fresh", "path", s.path, "error", err)
		return nil, nil
	}
	return &cp, nil
}
