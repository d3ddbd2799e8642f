// Package core provides the business logic for catalog CSV imports.
//
// This package is the heart of the importer, containing all domain logic
// independent of any transport or storage. It can be used by web handlers,
// the CLI, or tests without modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Codec: packs multi-value, multi-language property cells into one
//     column and back.
//   - Mapping: binds file columns to product fields, constants, or dynamic
//     properties. Mappings can be saved as templates and matched to new
//     files by their header.
//   - Decoder: turns file rows into [CsvProduct] values.
//   - Importer: reconciles decoded rows with the stored catalog and saves
//     them in batches.
//   - Service: runs imports in the background behind a concurrency limiter
//     and broadcasts progress.
//
// Storage is reached only through the small interfaces in stores.go; the
// memstore and database packages implement them.
//
// # Import Flow
//
// A run moves through these phases, reporting a [ProgressInfo] after each
// step:
//
//  1. Reading: the file is decoded; bad rows are reported and skipped
//  2. Validating: the catalog and every referenced SEO store must exist
//  3. Merging: rows sharing a code fold into one product
//  4. Resolving: stored products, categories, main products, inherited
//     property definitions and dictionary items are attached
//  5. Saving: main products first, then variations, in batches of
//     [Options.SaveBatchSize], each with its inventory and prices
//
// A missing catalog or unknown store aborts the run before anything is
// written. A rejected batch is reported and the run continues.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - DB001-DB007: Database errors (duplicates, constraints, connections)
//   - VAL001-VAL003: Validation errors (conversions, required fields)
//   - FILE001-FILE006: File errors (size, encoding, format)
//   - IMP001-IMP009: Import errors (catalog, stores, dictionaries, limits)
//   - MAP001-MAP003: Mapping and template errors
package core
