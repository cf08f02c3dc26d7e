package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/nao1215/crawlcore/internal/model"
)

// JSONStore keeps the checkpoint as one JSON document.
type JSONStore struct {
	// path is the checkpoint JSON file.
	path string
}

// NewJSONStore creates a store for the JSON file at path.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns the checkpoint file location.
func (s *JSONStore) Path() string {
	return s.path
}

// Save encodes snap to a temporary file, syncs it and renames it into place.
func (s *JSONStore) Save(_ context.Context, snap *model.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	return writeAtomic(s.path, func(tmpPath string) error {
		f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // Path is created by os.CreateTemp
		if err != nil {
			return fmt.Errorf("failed to open temporary checkpoint: %w", err)
		}

		encoder := json.NewEncoder(f)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(snap); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to encode checkpoint: %w", err)
		}
		if err := f.Sync(); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to sync checkpoint: %w", err)
		}
		return f.Close()
	})
}

// Load decodes the checkpoint file.
func (s *JSONStore) Load(_ context.Context) (*model.Snapshot, error) {
	if err := exists(s.path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint %s: %w", s.path, err)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}
