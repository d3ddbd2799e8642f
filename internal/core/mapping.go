package core

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// ErrInvalidMapping wraps every mapping validation failure.
var ErrInvalidMapping = errors.New("invalid mapping")

// DefaultDelimiter is the column delimiter of a default mapping.
const DefaultDelimiter = ";"

// maxAutoMapDistance is the exclusive edit-distance bound for AutoMap.
const maxAutoMapDistance = 2

// PropertyMap maps one entity field to a source column or a constant.
type PropertyMap struct {
	EntityColumnName string  `json:"entityColumnName"`
	CsvColumnName    string  `json:"csvColumnName,omitempty"`
	CustomValue      *string `json:"customValue,omitempty"`
	IsRequired       bool    `json:"isRequired"`
	IsSystemProperty bool    `json:"isSystemProperty,omitempty"`
	StringFormat     string  `json:"stringFormat,omitempty"`
	Locale           string  `json:"locale,omitempty"`
}

// String renders "{source} -> {entity}", using "none" for missing parts.
func (m PropertyMap) String() string {
	source := m.CsvColumnName
	if source == "" && m.CustomValue != nil {
		source = *m.CustomValue
	}
	if source == "" {
		source = "none"
	}
	entity := m.EntityColumnName
	if entity == "" {
		entity = "none"
	}
	return source + " -> " + entity
}

// Mapped reports whether the entry takes its value from a column or a constant.
func (m PropertyMap) Mapped() bool {
	return m.CsvColumnName != "" || m.CustomValue != nil
}

// MappingConfiguration declares how input columns map to product fields.
// It is immutable for the duration of a run.
type MappingConfiguration struct {
	ETag               string        `json:"eTag,omitempty"`
	Delimiter          string        `json:"delimiter"`
	CsvColumns         []string      `json:"csvColumns,omitempty"`
	PropertyMaps       []PropertyMap `json:"propertyMaps"`
	PropertyCsvColumns []string      `json:"propertyCsvColumns,omitempty"`
}

// DefaultMapping enumerates every known scalar field as an optional entry
// whose column name equals the field name.
func DefaultMapping(fields *FieldRegistry) *MappingConfiguration {
	specs := fields.All()
	cfg := &MappingConfiguration{
		Delimiter:    DefaultDelimiter,
		PropertyMaps: make([]PropertyMap, 0, len(specs)),
	}
	for _, f := range specs {
		cfg.PropertyMaps = append(cfg.PropertyMaps, PropertyMap{
			EntityColumnName: f.Name,
			CsvColumnName:    f.Name,
			IsRequired:       f.Required,
		})
	}
	return cfg
}

// AutoMap binds each entry to the header column closest to its field name.
//
// A column is accepted when its case-insensitive edit distance is below 2;
// the smallest distance wins and ties go to the earlier column. Matched
// entries drop any constant, unmatched entries lose their column. Header
// columns claimed by no entry become dynamic-property columns.
func (m *MappingConfiguration) AutoMap(header []string) {
	m.CsvColumns = append([]string(nil), header...)

	lowered := make([]string, len(header))
	for i, h := range header {
		lowered[i] = strings.ToLower(h)
	}

	claimed := make(map[string]struct{}, len(m.PropertyMaps))
	for i := range m.PropertyMaps {
		pm := &m.PropertyMaps[i]
		field := strings.ToLower(pm.EntityColumnName)

		best, bestDist := -1, maxAutoMapDistance
		for j, col := range lowered {
			if d := levenshtein.ComputeDistance(col, field); d < bestDist {
				best, bestDist = j, d
			}
		}

		if best >= 0 {
			pm.CsvColumnName = header[best]
			pm.CustomValue = nil
			claimed[header[best]] = struct{}{}
		} else {
			pm.CsvColumnName = ""
		}
	}

	m.PropertyCsvColumns = nil
	for _, col := range header {
		if _, ok := claimed[col]; !ok {
			m.PropertyCsvColumns = append(m.PropertyCsvColumns, col)
		}
	}

	m.ETag = Fingerprint(header)
}

// Fingerprint identifies a header layout: lowercase hex MD5 of the columns
// joined with ";".
func Fingerprint(columns []string) string {
	sum := md5.Sum([]byte(strings.Join(columns, ";")))
	return hex.EncodeToString(sum[:])
}

// Entry returns the entry for an entity field, case-insensitively.
func (m *MappingConfiguration) Entry(entity string) (PropertyMap, bool) {
	for _, pm := range m.PropertyMaps {
		if strings.EqualFold(pm.EntityColumnName, entity) {
			return pm, true
		}
	}
	return PropertyMap{}, false
}

// Clone returns a deep copy.
func (m *MappingConfiguration) Clone() *MappingConfiguration {
	if m == nil {
		return nil
	}
	out := &MappingConfiguration{
		ETag:               m.ETag,
		Delimiter:          m.Delimiter,
		CsvColumns:         append([]string(nil), m.CsvColumns...),
		PropertyMaps:       make([]PropertyMap, len(m.PropertyMaps)),
		PropertyCsvColumns: append([]string(nil), m.PropertyCsvColumns...),
	}
	for i, pm := range m.PropertyMaps {
		if pm.CustomValue != nil {
			v := *pm.CustomValue
			pm.CustomValue = &v
		}
		out.PropertyMaps[i] = pm
	}
	return out
}

// Validate checks the mapping against the registered fields: a delimiter is
// required, entity names must be known and unique, and constants must
// convert to the field's declared type.
func (m *MappingConfiguration) Validate(fields *FieldRegistry) error {
	var errs []error
	if m.Delimiter == "" {
		errs = append(errs, errors.New("mapping: delimiter is required"))
	}

	seen := make(map[string]struct{}, len(m.PropertyMaps))
	for _, pm := range m.PropertyMaps {
		key := strings.ToLower(pm.EntityColumnName)
		if key == "" {
			errs = append(errs, errors.New("mapping: entry without entity column name"))
			continue
		}
		if _, dup := seen[key]; dup {
			errs = append(errs, fmt.Errorf("mapping: duplicate entry for %q", pm.EntityColumnName))
			continue
		}
		seen[key] = struct{}{}

		spec, ok := fields.Get(pm.EntityColumnName)
		if !ok {
			errs = append(errs, fmt.Errorf("mapping: unknown field %q", pm.EntityColumnName))
			continue
		}
		if pm.CsvColumnName == "" && pm.CustomValue != nil {
			if err := convertConstant(spec.Type, *pm.CustomValue); err != nil {
				errs = append(errs, fmt.Errorf("mapping: constant for %q: %w", pm.EntityColumnName, err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidMapping, errors.Join(errs...))
	}
	return nil
}
