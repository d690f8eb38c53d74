package upload

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/id"
)

// Asset is a scratch copy of an uploaded image. The owner must call Release on
// every exit path.
type Asset struct {
	id   string
	path string

	mu       sync.Mutex
	released bool
}

func Create(dir string, data []byte) (*Asset, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("upload: temp directory is required")
	}
	if len(data) == 0 {
		return nil, errors.New("upload: image is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload: ensure temp directory: %w", err)
	}

	name := id.TempName()
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("upload: create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("upload: write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("upload: close temp file: %w", err)
	}

	return &Asset{
		id:   strings.TrimSuffix(name, filepath.Ext(name)),
		path: path,
	}, nil
}

func (a *Asset) ID() string {
	return a.id
}

func (a *Asset) Path() string {
	return a.path
}

func (a *Asset) Bytes() ([]byte, error) {
	data, err := os.ReadFile(a.path)
	if err != nil {
		return nil, fmt.Errorf("upload: read temp file: %w", err)
	}
	return data, nil
}

// Release removes the scratch file if it still exists. Safe to call more than
// once and on a nil asset.
func (a *Asset) Release() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return nil
	}
	a.released = true

	if err := os.Remove(a.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("upload: remove temp file: %w", err)
	}
	return nil
}
