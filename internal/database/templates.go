package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/catalogcsv/internal/core"
)

// Mapping templates, core.TemplateStore. Names are unique case-insensitively
// through the mapping_templates_name_unique index.

func templateParams(t core.MappingTemplate) (CreateMappingTemplateParams, error) {
	columns, err := toJSONB(t.CsvColumns, "[]")
	if err != nil {
		return CreateMappingTemplateParams{}, err
	}
	mapping, err := toJSONB(t.Mapping, "{}")
	if err != nil {
		return CreateMappingTemplateParams{}, err
	}
	return CreateMappingTemplateParams{
		ID:         t.ID,
		Name:       t.Name,
		Etag:       t.ETag,
		CsvColumns: columns,
		Mapping:    mapping,
	}, nil
}

func templateFromRow(row MappingTemplate) (core.MappingTemplate, error) {
	t := core.MappingTemplate{
		ID:   row.ID,
		Name: row.Name,
		ETag: row.Etag,
	}
	if ts := FromPgTimestamptz(row.CreatedAt); ts != nil {
		t.CreatedAt = *ts
	}
	if ts := FromPgTimestamptz(row.UpdatedAt); ts != nil {
		t.UpdatedAt = *ts
	}
	if err := fromJSONB(row.CsvColumns, &t.CsvColumns); err != nil {
		return core.MappingTemplate{}, err
	}
	t.Mapping = &core.MappingConfiguration{}
	if err := fromJSONB(row.Mapping, t.Mapping); err != nil {
		return core.MappingTemplate{}, err
	}
	return t, nil
}

// templateError maps driver errors to the core template errors.
func templateError(err error, key string) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%w: %s", core.ErrTemplateNotFound, key)
	case isUniqueViolation(err, templateNameIndex):
		return fmt.Errorf("%w: %s", core.ErrTemplateExists, key)
	default:
		return err
	}
}

func (r *Repository) CreateTemplate(ctx context.Context, t core.MappingTemplate) (core.MappingTemplate, error) {
	t.ID = uuid.NewString()
	params, err := templateParams(t)
	if err != nil {
		return core.MappingTemplate{}, err
	}

	row, err := r.queries().CreateMappingTemplate(ctx, params)
	if err != nil {
		return core.MappingTemplate{}, templateError(err, t.Name)
	}
	return templateFromRow(row)
}

func (r *Repository) GetTemplate(ctx context.Context, id string) (core.MappingTemplate, error) {
	if err := uuid.Validate(id); err != nil {
		return core.MappingTemplate{}, fmt.Errorf("%w: %s", core.ErrTemplateNotFound, id)
	}

	row, err := r.queries().GetMappingTemplate(ctx, id)
	if err != nil {
		return core.MappingTemplate{}, templateError(err, id)
	}
	return templateFromRow(row)
}

func (r *Repository) ListTemplates(ctx context.Context) ([]core.MappingTemplate, error) {
	rows, err := r.queries().ListMappingTemplates(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]core.MappingTemplate, 0, len(rows))
	for _, row := range rows {
		t, err := templateFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", row.ID, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *Repository) UpdateTemplate(ctx context.Context, t core.MappingTemplate) (core.MappingTemplate, error) {
	params, err := templateParams(t)
	if err != nil {
		return core.MappingTemplate{}, err
	}

	row, err := r.queries().UpdateMappingTemplate(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.MappingTemplate{}, templateError(err, t.ID)
		}
		return core.MappingTemplate{}, templateError(err, t.Name)
	}
	return templateFromRow(row)
}

func (r *Repository) DeleteTemplate(ctx context.Context, id string) error {
	n, err := r.queries().DeleteMappingTemplate(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", core.ErrTemplateNotFound, id)
	}
	return nil
}
