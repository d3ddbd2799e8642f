package core

import (
	"fmt"
	"strings"
	"sync"
)

// FieldRegistry holds the mappable scalar fields of one product shape.
//
// It is built once at startup: the built-in product fields plus any
// extension fields the host registers. Extension fields have no setter;
// their values are stored in CsvProduct.Extra under the field name.
type FieldRegistry struct {
	mu     sync.RWMutex
	fields []FieldSpec
	byName map[string]int
}

// NewFieldRegistry returns a registry pre-populated with the product fields.
func NewFieldRegistry() *FieldRegistry {
	r := &FieldRegistry{byName: make(map[string]int)}
	for _, f := range productFields() {
		r.Register(f)
	}
	return r
}

// Register adds a field to the registry.
// Panics if a field with the same name (case-insensitive) is already registered.
func (r *FieldRegistry) Register(spec FieldSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(spec.Name)
	if _, exists := r.byName[key]; exists {
		panic(fmt.Sprintf("field already registered: %s", spec.Name))
	}

	r.byName[key] = len(r.fields)
	r.fields = append(r.fields, spec)
}

// Get returns a field by name, case-insensitively.
// Returns false if not found.
func (r *FieldRegistry) Get(name string) (FieldSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return FieldSpec{}, false
	}
	return r.fields[i], true
}

// All returns all registered fields in registration order.
func (r *FieldRegistry) All() []FieldSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]FieldSpec, len(r.fields))
	copy(out, r.fields)
	return out
}

// Extensions returns the names of fields registered without a setter.
func (r *FieldRegistry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for _, f := range r.fields {
		if f.Set == nil {
			names = append(names, f.Name)
		}
	}
	return names
}

// Count returns the number of registered fields.
func (r *FieldRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.fields)
}
