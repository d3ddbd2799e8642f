package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/catalogcsv/internal/catalog"
)

// dictionaryIndex looks up items by property id and case-insensitive alias.
type dictionaryIndex map[string]map[string]*catalog.DictionaryItem

func (idx dictionaryIndex) find(propertyID, alias string) *catalog.DictionaryItem {
	return idx[propertyID][strings.ToLower(alias)]
}

func (idx dictionaryIndex) add(item *catalog.DictionaryItem) {
	byAlias, ok := idx[item.PropertyID]
	if !ok {
		byAlias = make(map[string]*catalog.DictionaryItem)
		idx[item.PropertyID] = byAlias
	}
	key := strings.ToLower(item.Alias)
	if _, exists := byAlias[key]; !exists {
		byAlias[key] = item
	}
}

// resolveDictionaryItems binds dictionary property values to dictionary
// items. Misses create an item when enabled and are reported otherwise.
func (r *run) resolveDictionaryItems(ctx context.Context, products []*CsvProduct) error {
	idx, err := r.fetchDictionaryItems(ctx, products)
	if err != nil {
		return err
	}

	for _, p := range products {
		for i := range p.Properties {
			prop := &p.Properties[i]
			if !prop.Dictionary {
				continue
			}

			for j := range prop.Values {
				v := &prop.Values[j]
				if strings.TrimSpace(v.Value) == "" && strings.TrimSpace(v.Alias) == "" {
					continue
				}
				if v.Alias == "" {
					v.Alias = v.Value
				}

				item := idx.find(prop.ID, v.Alias)
				if item == nil {
					if !r.opts.CreateDictionaryValues {
						r.progress.addErrors(fmt.Sprintf("The '%s' dictionary item is not found in '%s' dictionary", v.Alias, prop.Name))
						v.ValueID = ""
						continue
					}

					item = &catalog.DictionaryItem{PropertyID: prop.ID, Alias: v.Alias}
					if err := r.stores.DictionaryItems.SaveDictionaryItems(ctx, []*catalog.DictionaryItem{item}); err != nil {
						return fmt.Errorf("create dictionary item %q: %w", v.Alias, err)
					}
					idx.add(item)
					r.logger.Debug("created dictionary item", "property", prop.Name, "alias", item.Alias, "id", item.ID)
				}

				v.ValueID = item.ID
				if item.ColorCode != "" {
					v.ColorCode = item.ColorCode
				}
			}
		}
	}

	return nil
}

// fetchDictionaryItems pre-loads the items of every dictionary property in
// the batch, paging the property ids by the search batch size.
func (r *run) fetchDictionaryItems(ctx context.Context, products []*CsvProduct) (dictionaryIndex, error) {
	var ids []string
	for _, p := range products {
		for _, prop := range p.Properties {
			if prop.Dictionary {
				ids = append(ids, prop.ID)
			}
		}
	}
	ids = distinct(ids)

	idx := make(dictionaryIndex)
	take := r.opts.SearchBatchSize
	for _, page := range chunk(ids, take) {
		items, err := searchAll(ctx, take, func(ctx context.Context, skip, take int) ([]catalog.DictionaryItem, error) {
			return r.stores.DictionaryItems.SearchDictionaryItems(ctx, catalog.DictionaryItemSearchCriteria{
				PropertyIDs: page,
				Skip:        skip,
				Take:        take,
			})
		})
		if err != nil {
			return nil, fmt.Errorf("load dictionary items: %w", err)
		}
		for i := range items {
			idx.add(&items[i])
		}
	}
	return idx, nil
}
