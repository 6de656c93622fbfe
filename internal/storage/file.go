package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/xaenox/jobpost-bot/internal/models"
)

// FileDraftStore keeps drafts as a JSON array in a single file. Each save
// reads the whole file, appends and writes it back.
type FileDraftStore struct {
	mu   sync.Mutex
	path string
}

func NewFileDraftStore(path string) *FileDraftStore {
	return &FileDraftStore{path: path}
}

func (s *FileDraftStore) SaveDraft(_ context.Context, e models.Entities) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	drafts, err := s.read()
	if err != nil {
		return "", err
	}

	draft := models.NewDraft(uuid.New().String(), e)
	drafts = append(drafts, draft)

	if err := s.write(drafts); err != nil {
		return "", err
	}
	return draft.ID, nil
}

func (s *FileDraftStore) ListDrafts(_ context.Context) ([]models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read()
}

func (s *FileDraftStore) read() ([]models.Draft, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.Draft{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read drafts file: %w", err)
	}

	var drafts []models.Draft
	if len(data) > 0 {
		if err := json.Unmarshal(data, &drafts); err != nil {
			return nil, fmt.Errorf("decode drafts file: %w", err)
		}
	}
	return drafts, nil
}

func (s *FileDraftStore) write(drafts []models.Draft) error {
	data, err := json.MarshalIndent(drafts, "", "    ")
	if err != nil {
		return fmt.Errorf("encode drafts: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create drafts dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".drafts-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write drafts: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace drafts file: %w", err)
	}
	return nil
}

func (s *FileDraftStore) Close() error {
	return nil
}
