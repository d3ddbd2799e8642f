package core

import (
	"time"
)

// FieldType represents the expected data type for a mapped product field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldBool
	FieldInt
	FieldDecimal
	FieldDate
)

func (t FieldType) String() string {
	switch t {
	case FieldBool:
		return "bool"
	case FieldInt:
		return "int"
	case FieldDecimal:
		return "decimal"
	case FieldDate:
		return "date"
	default:
		return "text"
	}
}

// SetFunc assigns a cleaned cell value to a product field.
// The value is never empty; empty cells leave the field absent.
type SetFunc func(p *CsvProduct, value string) error

// FieldSpec describes one mappable scalar product field.
type FieldSpec struct {
	Name     string    // Entity column name, also the default CSV column name
	Type     FieldType // Declared type, used to convert mapped constants
	Required bool      // Mapping entry is created with IsRequired set
	Set      SetFunc   // nil for extension fields: the value lands in CsvProduct.Extra
}

// ImportPhase indicates the current stage of a reconciliation run.
type ImportPhase string

const (
	PhaseReading               ImportPhase = "reading"
	PhaseValidating            ImportPhase = "validating"
	PhaseMerging               ImportPhase = "merging"
	PhaseResolvingExisting     ImportPhase = "resolving_existing"
	PhaseResolvingCategories   ImportPhase = "resolving_categories"
	PhaseResolvingDependencies ImportPhase = "resolving_dependencies"
	PhaseSavingParents         ImportPhase = "saving_parents"
	PhaseSavingVariations      ImportPhase = "saving_variations"
	PhaseDone                  ImportPhase = "done"
	PhaseAborted               ImportPhase = "aborted"
	PhaseFailed                ImportPhase = "failed"
)

// Terminal reports whether no further progress follows this phase.
func (p ImportPhase) Terminal() bool {
	return p == PhaseDone || p == PhaseAborted || p == PhaseFailed
}

// ProgressInfo is a snapshot of a run's progress report.
type ProgressInfo struct {
	RunID          string      `json:"runId,omitempty"`
	Phase          ImportPhase `json:"phase"`
	Description    string      `json:"description"`
	ProcessedCount int         `json:"processedCount"`
	TotalCount     int         `json:"totalCount"`
	Errors         []string    `json:"errors"`
}

// Percent returns the progress as a percentage (0-100).
func (p ProgressInfo) Percent() int {
	if p.TotalCount <= 0 {
		return 0
	}
	pct := (p.ProcessedCount * 100) / p.TotalCount
	if pct > 100 {
		return 100
	}
	return pct
}

// ProgressSink receives progress snapshots. It is called synchronously and
// must not retain the Errors slice beyond the call unless it copies it.
type ProgressSink func(ProgressInfo)

// RowError contains information about a row that failed to decode.
type RowError struct {
	LineNumber int      `json:"lineNumber"`
	Message    string   `json:"message"`
	Data       []string `json:"data,omitempty"`
}

// ImportResult contains the final result of an import run.
type ImportResult struct {
	RunID     string        `json:"runId"`
	CatalogID string        `json:"catalogId"`
	FileName  string        `json:"fileName"`
	TotalRows int           `json:"totalRows"`
	Processed int           `json:"processed"`
	Errors    []string      `json:"errors"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"` // Non-empty if the run failed
}

// Succeeded reports whether the run completed without a fatal error.
func (r ImportResult) Succeeded() bool {
	return r.Error == ""
}
