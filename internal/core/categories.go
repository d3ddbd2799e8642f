package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/catalogcsv/internal/catalog"
)

// CategoryCache maps a cumulative path prefix ("\A\B") to its category.
// It lives for one run.
type CategoryCache map[string]*catalog.Category

// categoryPathSeparators are the accepted separators of a category path.
const categoryPathSeparators = `/|\>`

// splitCategoryPath splits a path into trimmed, non-empty segments.
func splitCategoryPath(path string) []string {
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return strings.ContainsRune(categoryPathSeparators, r)
	})
	segments := make([]string, 0, len(parts))
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// resolveCategoryTree resolves the category path of every product to a
// chain of categories, searching by name under the current parent and
// creating missing nodes. The returned cache includes every prefix seen.
func (r *run) resolveCategoryTree(ctx context.Context, products []*CsvProduct, cache CategoryCache) (CategoryCache, error) {
	if cache == nil {
		cache = make(CategoryCache)
	}
	created := r.progress.snapshot().ProcessedCount

	for _, p := range products {
		segments := splitCategoryPath(p.CategoryPath)
		if len(segments) == 0 {
			continue
		}

		var (
			parent *catalog.Category
			key    string
		)
		for i, name := range segments {
			key += `\` + name
			if cached, ok := cache[key]; ok {
				parent = cached
				continue
			}

			cat, err := r.findCategory(ctx, name, parent)
			if err != nil {
				return cache, err
			}
			if cat == nil {
				cat = &catalog.Category{
					CatalogID: r.catalog.ID,
					Name:      name,
					Code:      categoryCode(name),
					Path:      strings.Join(segments[:i+1], "/"),
				}
				if parent != nil {
					cat.ParentID = parent.ID
				}
				if err := r.stores.Categories.SaveCategories(ctx, []*catalog.Category{cat}); err != nil {
					return cache, fmt.Errorf("create category %q: %w", cat.Path, err)
				}

				created++
				r.progress.update(func(info *ProgressInfo) {
					info.Description = fmt.Sprintf("Creating categories: %d created", created)
				})
			}

			cache[key] = cat
			parent = cat
		}

		p.Category = parent
		p.CategoryID = parent.ID
	}

	return cache, nil
}

// findCategory returns the first category named name under parent, or among
// the catalog's roots when parent is nil.
func (r *run) findCategory(ctx context.Context, name string, parent *catalog.Category) (*catalog.Category, error) {
	criteria := catalog.CategorySearchCriteria{
		CatalogID: r.catalog.ID,
		Keyword:   name,
		Take:      1,
	}
	if parent != nil {
		criteria.ParentID = parent.ID
	} else {
		criteria.OnlyRoot = true
	}

	found, err := r.stores.Categories.SearchCategories(ctx, criteria)
	if err != nil {
		return nil, fmt.Errorf("search category %q: %w", name, err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

// categoryCode is the slug of name, or a random 32-character hex token when
// the name has no letters or digits.
func categoryCode(name string) string {
	if code := Slug(name); code != "" {
		return code
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
