package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/catalogcsv/internal/admin"
)

func newSeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load catalogs, stores, fulfillment centers and dictionary items from a fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open fixture: %w", err)
			}
			defer f.Close()

			fixture, err := admin.LoadFixture(f)
			if err != nil {
				return err
			}

			be, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer be.close()

			summary, err := admin.Seed(cmd.Context(), be.seeder, fixture)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %s\n", summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Fixture JSON file (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

var errResetNotConfirmed = errors.New("refusing to reset without --yes")

func newResetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all imported products, prices, inventories, categories and dictionary items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errResetNotConfirmed
			}

			be, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer be.close()

			if err := admin.Reset(cmd.Context(), be.resetter); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "catalog data reset")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deleting the imported data")

	return cmd
}
