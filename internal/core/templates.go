package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// TemplateMatchThreshold is the minimum header overlap for a saved template
// to be reused for a file whose fingerprint differs.
const TemplateMatchThreshold = 0.7

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrTemplateExists   = errors.New("template already exists")
)

// MappingTemplate is a saved mapping for a recurring file layout.
type MappingTemplate struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	ETag       string                `json:"eTag"`
	CsvColumns []string              `json:"csvColumns"`
	Mapping    *MappingConfiguration `json:"mapping"`
	CreatedAt  time.Time             `json:"createdAt"`
	UpdatedAt  time.Time             `json:"updatedAt"`
}

// TemplateMatch is a template with its header overlap score.
type TemplateMatch struct {
	Template   MappingTemplate `json:"template"`
	MatchScore float64         `json:"matchScore"`
}

// TemplateStore persists mapping templates. Implementations return
// ErrTemplateNotFound and ErrTemplateExists (possibly wrapped).
type TemplateStore interface {
	CreateTemplate(ctx context.Context, t MappingTemplate) (MappingTemplate, error)
	GetTemplate(ctx context.Context, id string) (MappingTemplate, error)
	ListTemplates(ctx context.Context) ([]MappingTemplate, error)
	UpdateTemplate(ctx context.Context, t MappingTemplate) (MappingTemplate, error)
	DeleteTemplate(ctx context.Context, id string) error
}

// CreateTemplate saves a mapping under a name. The fingerprint is taken
// from the mapping's columns.
func (s *Service) CreateTemplate(ctx context.Context, name string, mapping *MappingConfiguration) (*MappingTemplate, error) {
	t, err := s.newTemplate(name, mapping)
	if err != nil {
		return nil, err
	}

	saved, err := s.templates.CreateTemplate(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	return &saved, nil
}

// GetTemplate retrieves a template by ID.
func (s *Service) GetTemplate(ctx context.Context, id string) (*MappingTemplate, error) {
	t, err := s.templates.GetTemplate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return &t, nil
}

// ListTemplates returns all templates ordered by name.
func (s *Service) ListTemplates(ctx context.Context) ([]MappingTemplate, error) {
	templates, err := s.templates.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	sort.Slice(templates, func(i, j int) bool {
		return strings.ToLower(templates[i].Name) < strings.ToLower(templates[j].Name)
	})
	return templates, nil
}

// UpdateTemplate replaces a template's name and mapping.
func (s *Service) UpdateTemplate(ctx context.Context, id, name string, mapping *MappingConfiguration) (*MappingTemplate, error) {
	t, err := s.newTemplate(name, mapping)
	if err != nil {
		return nil, err
	}
	t.ID = id

	saved, err := s.templates.UpdateTemplate(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("update template: %w", err)
	}
	return &saved, nil
}

// DeleteTemplate removes a template.
func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	if err := s.templates.DeleteTemplate(ctx, id); err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

func (s *Service) newTemplate(name string, mapping *MappingConfiguration) (MappingTemplate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return MappingTemplate{}, fmt.Errorf("%w: template name is required", ErrInvalidMapping)
	}
	if mapping == nil {
		return MappingTemplate{}, fmt.Errorf("%w: mapping is required", ErrInvalidMapping)
	}
	if err := mapping.Validate(s.fields); err != nil {
		return MappingTemplate{}, err
	}

	m := mapping.Clone()
	if len(m.CsvColumns) > 0 {
		m.ETag = Fingerprint(m.CsvColumns)
	}
	return MappingTemplate{
		Name:       name,
		ETag:       m.ETag,
		CsvColumns: m.CsvColumns,
		Mapping:    m,
	}, nil
}

// MatchTemplates finds templates whose columns overlap the header by at
// least TemplateMatchThreshold, best first.
func (s *Service) MatchTemplates(ctx context.Context, header []string) ([]TemplateMatch, error) {
	templates, err := s.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}

	var matches []TemplateMatch
	for _, t := range templates {
		score := matchTemplateHeaders(header, t.CsvColumns)
		if score >= TemplateMatchThreshold {
			matches = append(matches, TemplateMatch{Template: t, MatchScore: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})

	return matches, nil
}

// MappingForHeader returns the mapping to use for a file header: the saved
// template with the same fingerprint, else the best overlapping template
// rebound to this header, else a fresh auto-mapped default. The returned
// template is nil in the last case.
func (s *Service) MappingForHeader(ctx context.Context, header []string, delimiter string) (*MappingConfiguration, *MappingTemplate, error) {
	templates, err := s.ListTemplates(ctx)
	if err != nil {
		return nil, nil, err
	}

	etag := Fingerprint(header)
	for i := range templates {
		if templates[i].ETag == etag && templates[i].Mapping != nil {
			m := templates[i].Mapping.Clone()
			m.CsvColumns = append([]string(nil), header...)
			if delimiter != "" {
				m.Delimiter = delimiter
			}
			return m, &templates[i], nil
		}
	}

	matches, err := s.MatchTemplates(ctx, header)
	if err != nil {
		return nil, nil, err
	}
	if len(matches) > 0 && matches[0].Template.Mapping != nil {
		m := rebindMapping(matches[0].Template.Mapping, header)
		if delimiter != "" {
			m.Delimiter = delimiter
		}
		return m, &matches[0].Template, nil
	}

	m := DefaultMapping(s.fields)
	if delimiter != "" {
		m.Delimiter = delimiter
	}
	m.AutoMap(header)
	return m, nil, nil
}

// rebindMapping adapts a saved mapping to a header with a different layout:
// entries whose column is missing become unmapped, and unclaimed header
// columns become dynamic-property columns.
func rebindMapping(saved *MappingConfiguration, header []string) *MappingConfiguration {
	m := saved.Clone()
	idx := MakeHeaderIndex(header)

	claimed := make(map[int]struct{})
	for i := range m.PropertyMaps {
		pm := &m.PropertyMaps[i]
		if pm.CsvColumnName == "" {
			continue
		}
		pos, ok := idx.Lookup(pm.CsvColumnName)
		if !ok {
			pm.CsvColumnName = ""
			continue
		}
		pm.CsvColumnName = header[pos]
		claimed[pos] = struct{}{}
	}

	m.PropertyCsvColumns = nil
	for i, col := range header {
		if _, ok := claimed[i]; !ok {
			m.PropertyCsvColumns = append(m.PropertyCsvColumns, col)
		}
	}

	m.CsvColumns = append([]string(nil), header...)
	m.ETag = Fingerprint(header)
	return m
}

// matchTemplateHeaders calculates how well file headers match template headers.
func matchTemplateHeaders(header, templateHeaders []string) float64 {
	if len(templateHeaders) == 0 {
		return 0
	}

	set := make(map[string]bool, len(header))
	for _, h := range header {
		set[strings.ToLower(strings.TrimSpace(h))] = true
	}

	matched := 0
	for _, h := range templateHeaders {
		if set[strings.ToLower(strings.TrimSpace(h))] {
			matched++
		}
	}

	return float64(matched) / float64(len(templateHeaders))
}
