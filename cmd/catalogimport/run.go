package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/catalogcsv/internal/core"
)

type runOptions struct {
	catalogID              string
	file                   string
	delimiter              string
	mappingFile            string
	createDictionaryValues bool
	dryRun                 bool
	fixture                string
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Import a product file into a catalog",
		Long: `Import a product file into a catalog.

With --dry-run nothing is saved; the command prints what the import would
do instead. With --fixture the import runs against an in-memory store seeded
from a fixture file rather than the database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.catalogID, "catalog", "", "Target catalog ID (required)")
	cmd.Flags().StringVar(&opts.file, "file", "", "CSV or XLSX file to import (required)")
	cmd.Flags().StringVar(&opts.delimiter, "delimiter", "", "Column delimiter (default: IMPORT_DELIMITER)")
	cmd.Flags().StringVar(&opts.mappingFile, "mapping", "", "JSON mapping configuration (default: auto-mapped header)")
	cmd.Flags().BoolVar(&opts.createDictionaryValues, "create-dictionary-values", false, "Create missing dictionary items")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Report what would change without saving")
	cmd.Flags().StringVar(&opts.fixture, "fixture", "", "Seed an in-memory store from this fixture instead of using the database")

	_ = cmd.MarkFlagRequired("catalog")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runImport(cmd *cobra.Command, opts runOptions) error {
	ctx := cmd.Context()

	importCfg, err := loadImportConfig()
	if err != nil {
		return err
	}
	if opts.delimiter != "" {
		importCfg.Delimiter = opts.delimiter
	}
	if cmd.Flags().Changed("create-dictionary-values") {
		importCfg.CreateDictionaryValues = opts.createDictionaryValues
	}

	mapping, err := readMapping(opts.mappingFile)
	if err != nil {
		return err
	}

	be, err := openBackend(ctx, opts.fixture)
	if err != nil {
		return err
	}
	defer be.close()

	imp := core.NewImporter(be.stores, core.OptionsFromConfig(importCfg), nil)
	if mapping != nil {
		if err := mapping.Validate(imp.Fields()); err != nil {
			return err
		}
	}

	f, err := os.Open(opts.file)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	req := core.ImportRequest{
		CatalogID: opts.catalogID,
		FileName:  filepath.Base(opts.file),
		Mapping:   mapping,
	}

	if opts.dryRun {
		preview, err := imp.Preview(ctx, f, req)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), preview)
	}

	printer := &progressPrinter{w: cmd.ErrOrStderr()}
	runErr := imp.Import(ctx, f, req, printer.sink)

	last := printer.last
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, last.Description)
	for _, msg := range last.Errors {
		fmt.Fprintln(out, "  "+msg)
	}

	if runErr != nil {
		userMsg := core.MapError(runErr)
		return fmt.Errorf("%s [%s]: %w", userMsg.Message, userMsg.Code, runErr)
	}
	return nil
}

// progressPrinter writes one line per phase change.
type progressPrinter struct {
	w     io.Writer
	last  core.ProgressInfo
	phase core.ImportPhase
}

func (p *progressPrinter) sink(info core.ProgressInfo) {
	if info.Phase != p.phase {
		fmt.Fprintf(p.w, "[%s] %s\n", info.Phase, info.Description)
		p.phase = info.Phase
	}
	// Errors is reused by the tracker
	info.Errors = append([]string(nil), info.Errors...)
	p.last = info
}

func readMapping(path string) (*core.MappingConfiguration, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping: %w", err)
	}
	var mapping core.MappingConfiguration
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidMapping, err)
	}
	return &mapping, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
