package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/catalogcsv/internal/core"
)

func newMappingCmd() *cobra.Command {
	var (
		file      string
		delimiter string
		templates bool
	)

	cmd := &cobra.Command{
		Use:   "mapping",
		Short: "Print the mapping an import of a file would use",
		Long: `Print the mapping an import of a file would use, as JSON.

The header is auto-mapped to the known product fields. With --templates the
saved mapping templates in the database are consulted first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			importCfg, err := loadImportConfig()
			if err != nil {
				return err
			}
			if delimiter == "" {
				delimiter = importCfg.Delimiter
			}

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open file: %w", err)
			}
			defer f.Close()

			header, err := core.ReadHeader(f, filepath.Base(file), delimiter)
			if err != nil {
				return err
			}

			if !templates {
				m := core.DefaultMapping(core.NewFieldRegistry())
				m.Delimiter = delimiter
				m.AutoMap(header)
				return printJSON(cmd.OutOrStdout(), m)
			}

			be, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer be.close()

			imp := core.NewImporter(be.stores, core.OptionsFromConfig(importCfg), nil)
			svc := core.NewService(imp, be.templates, core.ServiceOptionsFromConfig(importCfg))

			m, tmpl, err := svc.MappingForHeader(cmd.Context(), header, delimiter)
			if err != nil {
				return err
			}
			if tmpl != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "using template %q (%s)\n", tmpl.Name, tmpl.ID)
			}
			return printJSON(cmd.OutOrStdout(), m)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "CSV or XLSX file to inspect (required)")
	cmd.Flags().StringVar(&delimiter, "delimiter", "", "Column delimiter (default: IMPORT_DELIMITER)")
	cmd.Flags().BoolVar(&templates, "templates", false, "Match saved mapping templates from the database")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
