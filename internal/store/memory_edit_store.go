package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/domain"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/transform"
)

type MemoryEditStore struct {
	mu    sync.RWMutex
	edits map[string]domain.Edit
}

func NewMemoryEditStore() *MemoryEditStore {
	return &MemoryEditStore{
		edits: make(map[string]domain.Edit),
	}
}

func (s *MemoryEditStore) Create(_ context.Context, edit domain.Edit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.edits[edit.ID]; exists {
		return fmt.Errorf("edit %s already exists", edit.ID)
	}
	s.edits[edit.ID] = clone(edit)
	return nil
}

func (s *MemoryEditStore) Get(_ context.Context, id string) (domain.Edit, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	edit, ok := s.edits[id]
	return clone(edit), ok, nil
}

func (s *MemoryEditStore) Update(_ context.Context, edit domain.Edit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.edits[edit.ID]; !ok {
		return ErrEditNotFound
	}
	edit.UpdatedAt = time.Now().UTC()
	s.edits[edit.ID] = clone(edit)
	return nil
}

func (s *MemoryEditStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.edits[id]; !ok {
		return ErrEditNotFound
	}
	delete(s.edits, id)
	return nil
}

func clone(edit domain.Edit) domain.Edit {
	if edit.Layers != nil {
		edit.Layers = append([]transform.Layer(nil), edit.Layers...)
	}
	return edit
}
