package checkpoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/crawlcore/internal/model"
)

// Store saves and loads snapshots.
type Store interface {
	// Save atomically replaces the checkpoint with snap.
	Save(ctx context.Context, snap *model.Snapshot) error

	// Load reads the checkpoint. It returns ErrNotFound when none exists.
	Load(ctx context.Context) (*model.Snapshot, error)

	// Path returns the checkpoint file location.
	Path() string
}

// NewStore returns the store for format ("sqlite" or "json") at path.
func NewStore(format, path string) (Store, error) {
	switch strings.ToLower(format) {
	case "sqlite", "":
		return NewSQLiteStore(path), nil
	case "json":
		return NewJSONStore(path), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// DetectStore picks the store for an existing checkpoint file from its
// extension, falling back to SQLite.
func DetectStore(path string) Store {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return NewJSONStore(path)
	}
	return NewSQLiteStore(path)
}

// writeAtomic creates a temporary file next to path, lets fill write to it,
// and renames it over path. The temporary file is removed on any failure.
func writeAtomic(path string, fill func(tmpPath string) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint: %w", err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary checkpoint: %w", err)
	}

	if err := fill(tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace checkpoint: %w", err)
	}
	return nil
}

// exists reports whether path exists, mapping absence to ErrNotFound.
func exists(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("failed to check checkpoint path: %w", err)
	}
	return nil
}
