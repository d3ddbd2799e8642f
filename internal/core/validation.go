package core

// validation.go checks entities before they are handed to the stores.
//
// Rules live in `validate` struct tags on the catalog types. Failures are
// reported as catalog.FieldError values keyed by the JSON field name, the
// same shape a store uses when it rejects a save, so both kinds of failure
// are grouped and reported the same way.

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/catalogcsv/internal/catalog"
)

// ErrValidationFailed is returned when pre-import validation rejects the
// file. Nothing is persisted.
var ErrValidationFailed = errors.New("import validation failed")

// Validator checks catalog entities against their struct tags.
type Validator struct {
	validate *validator.Validate
}

// NewValidator reports fields by their JSON names.
func NewValidator() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: validate}
}

// Check validates s. A nil result means s is valid.
func (v *Validator) Check(s any) []catalog.FieldError {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []catalog.FieldError{{Field: "", Message: err.Error()}}
	}

	out := make([]catalog.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, catalog.FieldError{Field: fe.Field(), Message: describe(fe)})
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "iso4217":
		return fmt.Sprintf("%s %q is not an ISO 4217 currency code", fe.Field(), fe.Value())
	default:
		return fmt.Sprintf("%s failed the %q rule", fe.Field(), fe.Tag())
	}
}

// groupFieldErrors joins messages of the same field with "; ", one line per
// field, in order of first appearance.
func groupFieldErrors(errs []catalog.FieldError) []string {
	var order []string
	byField := make(map[string][]string)
	for _, e := range errs {
		if _, ok := byField[e.Field]; !ok {
			order = append(order, e.Field)
		}
		byField[e.Field] = append(byField[e.Field], e.Message)
	}

	out := make([]string, 0, len(order))
	for _, f := range order {
		out = append(out, strings.Join(byField[f], "; "))
	}
	return out
}

// validateProducts splits a batch into valid products and the field errors
// of the rest. Messages carry the source line.
func (r *run) validateProducts(products []*CsvProduct) ([]*CsvProduct, []catalog.FieldError) {
	var (
		valid []*CsvProduct
		errs  []catalog.FieldError
	)
	for _, p := range products {
		fieldErrs := r.validator.Check(&p.Product)
		if len(fieldErrs) == 0 {
			valid = append(valid, p)
			continue
		}
		for _, fe := range fieldErrs {
			fe.Message = fmt.Sprintf("Line %d: %s", p.LineNumber, fe.Message)
			errs = append(errs, fe)
		}
	}
	return valid, errs
}

// validateSeoStores checks that every SEO store id names an existing store.
func (r *run) validateSeoStores(ctx context.Context, products []*CsvProduct) ([]string, error) {
	var ids []string
	for _, p := range products {
		ids = append(ids, p.SeoStore)
	}
	ids = distinctFold(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	known := make(map[string]struct{}, len(ids))
	for _, page := range chunk(ids, r.opts.SearchBatchSize) {
		stores, err := r.stores.Stores.GetStores(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("load stores: %w", err)
		}
		for _, s := range stores {
			known[strings.ToLower(s.ID)] = struct{}{}
		}
	}

	var problems []string
	for _, p := range products {
		if p.SeoStore == "" {
			continue
		}
		if _, ok := known[strings.ToLower(p.SeoStore)]; !ok {
			problems = append(problems, fmt.Sprintf("Cannot find store with Id '%s'. Line number: %d", p.SeoStore, p.LineNumber))
		}
	}
	return problems, nil
}
