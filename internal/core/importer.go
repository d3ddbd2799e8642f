package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/catalogcsv/internal/catalog"
	"github.com/JonMunkholm/catalogcsv/internal/config"
	"github.com/JonMunkholm/catalogcsv/internal/logging"
)

const (
	DefaultSearchBatchSize = 100
	DefaultLoadBatchSize   = 50
	DefaultSaveBatchSize   = 10
	DefaultCurrency        = "USD"
)

// ErrCatalogNotFound is returned when the target catalog does not exist.
var ErrCatalogNotFound = errors.New("catalog not found")

// Options is the per-run configuration snapshot. A run copies it at start.
type Options struct {
	SearchBatchSize        int
	LoadBatchSize          int
	SaveBatchSize          int
	Delimiter              string
	Codec                  Codec
	CreateDictionaryValues bool
	DefaultLanguage        string
	DefaultCurrency        string
}

// DefaultOptions returns the built-in defaults.
func DefaultOptions() Options {
	return Options{
		SearchBatchSize: DefaultSearchBatchSize,
		LoadBatchSize:   DefaultLoadBatchSize,
		SaveBatchSize:   DefaultSaveBatchSize,
		Delimiter:       DefaultDelimiter,
		Codec:           DefaultCodec(),
		DefaultLanguage: DefaultLanguage,
		DefaultCurrency: DefaultCurrency,
	}
}

// OptionsFromConfig builds run options from the import config section.
func OptionsFromConfig(cfg config.ImportConfig) Options {
	return Options{
		SearchBatchSize: cfg.SearchBatchSize,
		LoadBatchSize:   cfg.LoadBatchSize,
		SaveBatchSize:   cfg.SaveBatchSize,
		Delimiter:       cfg.Delimiter,
		Codec: Codec{
			ValueSeparator:    cfg.ValueSeparator,
			LanguageSeparator: cfg.LanguageSeparator,
			ColorSeparator:    cfg.ColorSeparator,
			Escape:            cfg.Escape,
		},
		CreateDictionaryValues: cfg.CreateDictionaryValues,
		DefaultLanguage:        cfg.DefaultLanguage,
		DefaultCurrency:        cfg.DefaultCurrency,
	}.withDefaults()
}

// withDefaults fills zero values from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SearchBatchSize <= 0 {
		o.SearchBatchSize = d.SearchBatchSize
	}
	if o.LoadBatchSize <= 0 {
		o.LoadBatchSize = d.LoadBatchSize
	}
	if o.SaveBatchSize <= 0 {
		o.SaveBatchSize = d.SaveBatchSize
	}
	if o.Delimiter == "" {
		o.Delimiter = d.Delimiter
	}
	if o.Codec == (Codec{}) {
		o.Codec = d.Codec
	}
	if o.DefaultLanguage == "" {
		o.DefaultLanguage = d.DefaultLanguage
	}
	if o.DefaultCurrency == "" {
		o.DefaultCurrency = d.DefaultCurrency
	}
	return o
}

// ImportRequest describes one import run.
type ImportRequest struct {
	RunID     string                // Generated when empty
	CatalogID string                // Target catalog
	FileName  string                // Picks the row source by extension
	Mapping   *MappingConfiguration // nil: default mapping auto-mapped to the header
	Options   *Options              // nil: the importer's options
}

// Importer runs the reconciliation pipeline against a set of stores.
// It holds no per-run state and is safe for concurrent use.
type Importer struct {
	stores    Stores
	opts      Options
	fields    *FieldRegistry
	validator *Validator
}

// NewImporter creates an importer. A nil registry means the built-in
// product fields only.
func NewImporter(stores Stores, opts Options, fields *FieldRegistry) *Importer {
	if fields == nil {
		fields = NewFieldRegistry()
	}
	return &Importer{
		stores:    stores,
		opts:      opts.withDefaults(),
		fields:    fields,
		validator: NewValidator(),
	}
}

// Fields returns the field registry used to decode rows.
func (imp *Importer) Fields() *FieldRegistry { return imp.fields }

// Options returns the importer's default run options.
func (imp *Importer) Options() Options { return imp.opts }

// run is the state of one pipeline invocation.
type run struct {
	id        string
	catalogID string
	delimiter string
	opts      Options
	stores    Stores
	validator *Validator
	progress  *progressTracker
	logger    *slog.Logger

	catalog *catalog.Catalog
}

func (imp *Importer) newRun(ctx context.Context, req ImportRequest, sink ProgressSink) (context.Context, *run) {
	id := req.RunID
	if id == "" {
		id = uuid.NewString()
	}
	opts := imp.opts
	if req.Options != nil {
		opts = req.Options.withDefaults()
	}
	delimiter := opts.Delimiter
	if req.Mapping != nil && req.Mapping.Delimiter != "" {
		delimiter = req.Mapping.Delimiter
	}

	ctx = logging.ContextWithRunID(ctx, id)
	return ctx, &run{
		id:        id,
		catalogID: req.CatalogID,
		delimiter: delimiter,
		opts:      opts,
		stores:    imp.stores,
		validator: imp.validator,
		progress:  newProgressTracker(id, sink),
		logger:    logging.WithFields(ctx, "catalog_id", req.CatalogID),
	}
}

// Import decodes r and reconciles the rows with the catalog. Row-level
// problems are reported through sink and do not fail the call; the returned
// error is non-nil only when the run stopped early.
func (imp *Importer) Import(ctx context.Context, r io.Reader, req ImportRequest, sink ProgressSink) error {
	ctx, rn := imp.newRun(ctx, req, sink)
	rn.progress.phase(PhaseReading, "Reading products from CSV file...")
	rn.logger.Info("import started", "file", req.FileName)

	products, rowErrs, err := imp.decode(r, req, rn.opts, rn.delimiter)
	if err != nil {
		return rn.fail(err)
	}

	msgs := make([]string, 0, len(rowErrs))
	for _, re := range rowErrs {
		rn.logger.Warn("row skipped", "line", re.LineNumber, "error", re.Message)
		msgs = append(msgs, formatRowError(re))
	}
	rn.progress.addErrors(msgs...)
	rn.logger.Info("file decoded", "rows", len(products), "skipped", len(rowErrs))

	return rn.reconcile(ctx, products)
}

// decode reads every row of r with the request's mapping, or with the
// default mapping auto-mapped to the file header when none is given.
func (imp *Importer) decode(r io.Reader, req ImportRequest, opts Options, delimiter string) ([]*CsvProduct, []RowError, error) {
	if err := opts.Codec.Validate(); err != nil {
		return nil, nil, err
	}

	src, err := OpenRowSource(r, req.FileName, delimiter)
	if err != nil {
		return nil, nil, err
	}

	mapping := req.Mapping
	if mapping == nil {
		mapping = DefaultMapping(imp.fields)
		mapping.Delimiter = delimiter
		mapping.AutoMap(src.Header())
	}
	if err := mapping.Validate(imp.fields); err != nil {
		return nil, nil, err
	}

	dec, err := NewDecoder(mapping, src.Header(), imp.fields, opts.Codec)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidMapping, err)
	}

	products, rowErrs, err := dec.ReadAll(src)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", req.FileName, err)
	}
	return products, rowErrs, nil
}

// DoImport reconciles already decoded rows.
func (imp *Importer) DoImport(ctx context.Context, products []*CsvProduct, req ImportRequest, sink ProgressSink) error {
	ctx, rn := imp.newRun(ctx, req, sink)
	return rn.reconcile(ctx, products)
}

func formatRowError(re RowError) string {
	if re.LineNumber > 0 {
		return fmt.Sprintf("Line %d: %s", re.LineNumber, re.Message)
	}
	return re.Message
}

func (r *run) reconcile(ctx context.Context, products []*CsvProduct) error {
	r.progress.update(func(info *ProgressInfo) {
		info.Phase = PhaseValidating
		info.Description = "Validating products..."
		info.TotalCount = len(products)
	})

	cat, err := r.stores.Catalogs.GetCatalog(ctx, r.catalogID)
	if errors.Is(err, catalog.ErrNotFound) || (err == nil && cat == nil) {
		msg := fmt.Sprintf("Catalog with id '%s' does not exist.", r.catalogID)
		return r.abort(fmt.Errorf("%w: %s", ErrCatalogNotFound, msg))
	}
	if err != nil {
		return r.fail(fmt.Errorf("load catalog: %w", err))
	}
	r.catalog = cat

	problems, err := r.validateSeoStores(ctx, products)
	if err != nil {
		return r.fail(err)
	}
	if len(problems) > 0 {
		r.progress.addErrors(problems...)
		return r.abort(fmt.Errorf("%w: %d unknown SEO stores", ErrValidationFailed, len(problems)))
	}

	if err := r.checkpoint(ctx); err != nil {
		return err
	}
	r.progress.phase(PhaseMerging, "Merging products...")
	lang := cat.DefaultLanguage
	if lang == "" {
		lang = r.opts.DefaultLanguage
	}
	products = MergeRows(products, lang)
	r.logger.Info("rows merged", "phase", PhaseMerging, "products", len(products))

	if err := r.checkpoint(ctx); err != nil {
		return err
	}
	r.progress.phase(PhaseResolvingExisting, "Loading existing products...")
	if err := r.mergeFromExisting(ctx, products); err != nil {
		return r.fail(err)
	}

	if err := r.checkpoint(ctx); err != nil {
		return err
	}
	r.progress.phase(PhaseResolvingCategories, "Resolving categories...")
	if _, err := r.resolveCategoryTree(ctx, products, nil); err != nil {
		return r.fail(err)
	}

	if err := r.checkpoint(ctx); err != nil {
		return err
	}
	r.progress.phase(PhaseResolvingDependencies, "Resolving product dependencies...")
	if err := r.resolveDependencies(ctx, products); err != nil {
		return r.fail(err)
	}
	if err := r.resolveDictionaryItems(ctx, products); err != nil {
		return r.fail(err)
	}

	var parents, variations []*CsvProduct
	for _, p := range products {
		if p.IsVariation() {
			variations = append(variations, p)
		} else {
			parents = append(parents, p)
		}
	}

	if err := r.checkpoint(ctx); err != nil {
		return err
	}
	r.progress.update(func(info *ProgressInfo) {
		info.Phase = PhaseSavingParents
		info.Description = "Saving products..."
		info.TotalCount = len(products)
	})
	center, err := r.defaultFulfillmentCenter(ctx)
	if err != nil {
		return r.fail(err)
	}
	r.saveProducts(ctx, parents, center)

	for _, v := range variations {
		if v.MainProductID == "" && v.MainProduct != nil {
			v.MainProductID = v.MainProduct.ID
		}
	}

	if err := r.checkpoint(ctx); err != nil {
		return err
	}
	r.progress.phase(PhaseSavingVariations, "Saving variations...")
	r.saveProducts(ctx, variations, center)

	final := r.progress.snapshot()
	r.progress.update(func(info *ProgressInfo) {
		info.Phase = PhaseDone
		info.Description = fmt.Sprintf("Import completed: %d of %d products processed", info.ProcessedCount, info.TotalCount)
	})
	r.logger.Info("import completed",
		"phase", PhaseDone,
		"processed", final.ProcessedCount,
		"total", final.TotalCount,
		"errors", len(final.Errors),
	)
	return nil
}

// checkpoint stops the run between phases once ctx is done.
func (r *run) checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return r.fail(fmt.Errorf("import interrupted: %w", err))
	}
	return nil
}

// abort ends the run before anything was persisted.
func (r *run) abort(err error) error {
	r.logger.Error("import aborted", "phase", r.progress.snapshot().Phase, "error", err)
	r.progress.update(func(info *ProgressInfo) {
		info.Phase = PhaseAborted
		info.Description = "Import aborted"
		info.Errors = append(info.Errors, err.Error())
	})
	return err
}

// fail ends the run on an unrecoverable error.
func (r *run) fail(err error) error {
	r.logger.Error("import failed", "phase", r.progress.snapshot().Phase, "error", err)
	r.progress.update(func(info *ProgressInfo) {
		info.Phase = PhaseFailed
		info.Description = "Import failed"
		info.Errors = append(info.Errors, err.Error())
	})
	return err
}

// batchResult is the outcome of persisting one save batch.
type batchResult struct {
	saved  int
	errors []string
}

// saveProducts persists products in save-batch pages. A failing batch is
// recorded and the next batch still runs.
func (r *run) saveProducts(ctx context.Context, products []*CsvProduct, center *catalog.FulfillmentCenter) {
	for _, batch := range chunk(products, r.opts.SaveBatchSize) {
		res := r.saveBatch(ctx, batch, center)
		if len(res.errors) > 0 {
			r.logger.Warn("save batch had errors", "size", len(batch), "saved", res.saved, "errors", len(res.errors))
		}

		r.progress.update(func(info *ProgressInfo) {
			info.Errors = append(info.Errors, res.errors...)
			info.ProcessedCount += len(batch)
			info.Description = fmt.Sprintf("Saving products: %d of %d created", info.ProcessedCount, info.TotalCount)
		})
	}
}

// saveBatch validates and saves one batch of products, then their
// inventories and prices. When the product save fails the dependents of the
// batch are skipped; an inventory failure does not stop the prices.
func (r *run) saveBatch(ctx context.Context, batch []*CsvProduct, center *catalog.FulfillmentCenter) batchResult {
	var res batchResult

	valid, fieldErrs := r.validateProducts(batch)
	res.errors = append(res.errors, groupFieldErrors(fieldErrs)...)
	if len(valid) == 0 {
		return res
	}

	entities := make([]*catalog.Product, len(valid))
	for i, p := range valid {
		entities[i] = &p.Product
	}
	if err := r.stores.Products.SaveProducts(ctx, entities); err != nil {
		res.errors = append(res.errors, persistenceErrors(err)...)
		return res
	}
	res.saved = len(valid)

	if err := r.saveInventories(ctx, valid, center); err != nil {
		res.errors = append(res.errors, persistenceErrors(err)...)
	}
	if err := r.savePrices(ctx, valid); err != nil {
		res.errors = append(res.errors, persistenceErrors(err)...)
	}
	return res
}

func (r *run) saveInventories(ctx context.Context, products []*CsvProduct, center *catalog.FulfillmentCenter) error {
	inventories, err := r.resolveInventories(ctx, products, center)
	if err != nil || len(inventories) == 0 {
		return err
	}

	var invalid []catalog.FieldError
	valid := inventories[:0]
	for _, inv := range inventories {
		if errs := r.validator.Check(&inv); len(errs) > 0 {
			invalid = append(invalid, errs...)
			continue
		}
		valid = append(valid, inv)
	}

	if len(valid) > 0 {
		if err := r.stores.Inventories.SaveInventories(ctx, valid); err != nil {
			return err
		}
	}
	if len(invalid) > 0 {
		return &catalog.ValidationError{Errors: invalid}
	}
	return nil
}

func (r *run) savePrices(ctx context.Context, products []*CsvProduct) error {
	prices, err := r.resolvePrices(ctx, products)
	if err != nil || len(prices) == 0 {
		return err
	}

	var invalid []catalog.FieldError
	valid := prices[:0]
	for _, price := range prices {
		if errs := r.validator.Check(&price); len(errs) > 0 {
			invalid = append(invalid, errs...)
			continue
		}
		valid = append(valid, price)
	}

	if len(valid) > 0 {
		if err := r.stores.Prices.SavePrices(ctx, valid); err != nil {
			return err
		}
	}
	if len(invalid) > 0 {
		return &catalog.ValidationError{Errors: invalid}
	}
	return nil
}

// persistenceErrors turns a store error into report lines: validation
// failures one line per field, anything else its full text.
func persistenceErrors(err error) []string {
	var ve *catalog.ValidationError
	if errors.As(err, &ve) {
		return groupFieldErrors(ve.Errors)
	}
	return []string{strings.TrimSpace(err.Error())}
}
