package memstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/catalogcsv/internal/core"
)

// Mapping templates, core.TemplateStore. Names are unique case-insensitively.

func (s *Store) CreateTemplate(_ context.Context, t core.MappingTemplate) (core.MappingTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("CreateTemplate")

	if s.templateNameTaken(t.Name, "") {
		return core.MappingTemplate{}, fmt.Errorf("%w: %s", core.ErrTemplateExists, t.Name)
	}

	now := time.Now().UTC()
	t.ID = newID()
	t.CreatedAt = now
	t.UpdatedAt = now
	t.Mapping = t.Mapping.Clone()
	s.templates.put(t.ID, t)
	return t, nil
}

func (s *Store) GetTemplate(_ context.Context, id string) (core.MappingTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.templates.get(id)
	if !ok {
		return core.MappingTemplate{}, fmt.Errorf("%w: %s", core.ErrTemplateNotFound, id)
	}
	t.Mapping = t.Mapping.Clone()
	return t, nil
}

func (s *Store) ListTemplates(_ context.Context) ([]core.MappingTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.templates.all()
	for i := range out {
		out[i].Mapping = out[i].Mapping.Clone()
	}
	return out, nil
}

func (s *Store) UpdateTemplate(_ context.Context, t core.MappingTemplate) (core.MappingTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("UpdateTemplate")

	existing, ok := s.templates.get(t.ID)
	if !ok {
		return core.MappingTemplate{}, fmt.Errorf("%w: %s", core.ErrTemplateNotFound, t.ID)
	}
	if s.templateNameTaken(t.Name, t.ID) {
		return core.MappingTemplate{}, fmt.Errorf("%w: %s", core.ErrTemplateExists, t.Name)
	}

	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	t.Mapping = t.Mapping.Clone()
	s.templates.put(t.ID, t)
	return t, nil
}

func (s *Store) DeleteTemplate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("DeleteTemplate")

	if !s.templates.remove(id) {
		return fmt.Errorf("%w: %s", core.ErrTemplateNotFound, id)
	}
	return nil
}

func (s *Store) templateNameTaken(name, exceptID string) bool {
	for _, t := range s.templates.all() {
		if t.ID != exceptID && strings.EqualFold(t.Name, name) {
			return true
		}
	}
	return false
}
