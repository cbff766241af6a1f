package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"TradeDesk/internal/domain/models"
)

// FileStateStore keeps the engine snapshot in a single JSON document.
// Saves go through a temp file and rename so a crash never leaves a
// truncated snapshot behind.
type FileStateStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStateStore(path string) (*FileStateStore, error) {
	if path == "" {
		return nil, errors.New("empty state path")
	}
	return &FileStateStore{path: path}, nil
}

// Load returns an empty state when the file does not exist yet.
func (s *FileStateStore) Load(_ context.Context) (models.EngineState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.EmptyState(), nil
		}
		return models.EngineState{}, fmt.Errorf("read state: %w", err)
	}
	if len(data) == 0 {
		return models.EmptyState(), nil
	}
	return decodeState(data)
}

func (s *FileStateStore) Save(_ context.Context, st models.EngineState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

func (s *FileStateStore) Close() error { return nil }

// decodeState unmarshals a snapshot and fills nil collections.
func decodeState(data []byte) (models.EngineState, error) {
	var st models.EngineState
	if err := json.Unmarshal(data, &st); err != nil {
		return models.EngineState{}, fmt.Errorf("decode state: %w", err)
	}
	if st.Positions == nil {
		st.Positions = make(map[string]models.Position)
	}
	if st.TradeLedger == nil {
		st.TradeLedger = make([]models.TradeRecord, 0)
	}
	return st, nil
}
