package out

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	notebookout "ghnb/internal/modules/notebook/port/out"
	apperrors "ghnb/internal/platform/errors"
)

type FileNotebookStore struct{}

func NewFileNotebookStore() notebookout.NotebookStore {
	return &FileNotebookStore{}
}

func (s *FileNotebookStore) Read(_ context.Context, path string) ([]byte, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("notebook %s: %w", path, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("read notebook: %w", err)
	}
	return payload, nil
}

// Write replaces path atomically so a failed save never truncates the notebook.
func (s *FileNotebookStore) Write(_ context.Context, path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create notebook dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write notebook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close notebook: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod notebook: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace notebook: %w", err)
	}
	return nil
}

func (s *FileNotebookStore) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat notebook: %w", err)
}
