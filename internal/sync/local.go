package sync

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disklab/disksync/internal/timesync"
	"github.com/disklab/disksync/internal/utils"
)

// ReservedPrefix marks temporary and hidden files; names carrying it are
// excluded from every listing on both sides.
const ReservedPrefix = "~"

// LocalStore manages the flat synchronized directory. Listings report
// corrected modification times (raw mtime rounded up, plus the process-wide
// clock offset).
type LocalStore struct {
	dir    string
	offset int64
}

// NewLocalStore opens the local directory adapter. A missing or empty dir
// falls back to creating fallbackDir instead of failing, logging the
// substitution.
func NewLocalStore(dir, fallbackDir string, offset int64) (*LocalStore, error) {
	if dir == "" {
		slog.Error("local directory not configured, using default", "default", fallbackDir)
		dir = fallbackDir
	}

	if !utils.DirExists(dir) {
		if err := utils.EnsureDir(dir); err != nil {
			slog.Error("local directory create failed, using default", "dir", dir, "default", fallbackDir, "error", err)
			dir = fallbackDir
			if err := utils.EnsureDir(dir); err != nil {
				return nil, &AccessError{Path: dir, Err: err}
			}
		}
		slog.Info("local directory created", "dir", dir)
	}

	return &LocalStore{dir: dir, offset: offset}, nil
}

// Dir returns the synchronized directory path.
func (l *LocalStore) Dir() string {
	return l.dir
}

// List enumerates regular files directly inside the directory, excluding
// reserved-prefix names. Per-file stat failures are logged and the file
// skipped; a directory-level failure attempts repair and surfaces an
// AccessError so the pass restarts.
func (l *LocalStore) List() (Snapshot, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if mkErr := utils.EnsureDir(l.dir); mkErr != nil {
			slog.Error("local directory repair failed", "dir", l.dir, "error", mkErr)
		}
		return nil, &AccessError{Path: l.dir, Err: err}
	}

	snap := make(Snapshot, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || strings.HasPrefix(name, ReservedPrefix) {
			slog.Debug("skipping non-syncable entry", "name", name)
			continue
		}

		info, err := entry.Info()
		if err != nil {
			slog.Error("local file stat failed, skipping", "name", name, "error", err)
			continue
		}

		raw := int64(math.Ceil(float64(info.ModTime().UnixNano()) / 1e9))
		snap[name] = timesync.Corrected(raw, l.offset)
	}

	return snap, nil
}

// Delete removes one file from the directory. A missing file reports
// ErrNotFound; permission and IO failures report an AccessError.
func (l *LocalStore) Delete(name string) error {
	path := filepath.Join(l.dir, name)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("local file %q: %w", name, ErrNotFound)
		}
		return &AccessError{Path: path, Err: err}
	}

	slog.Info("local file deleted", "name", name)
	return nil
}
