package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/taxres/internal/rules"
	"github.com/MrJamesThe3rd/taxres/internal/rules/csvload"
	rulesStore "github.com/MrJamesThe3rd/taxres/internal/rules/store"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage the business rule tables",
	}

	cmd.AddCommand(rulesImportCmd())
	cmd.AddCommand(rulesSeedCmd())
	cmd.AddCommand(rulesCheckCmd())

	return cmd
}

func rulesImportCmd() *cobra.Command {
	var (
		path   string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import one rule table from a CSV export into the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening %s: %w", path, err)
			}
			defer f.Close()

			res, err := csvload.Parse(f)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d %s rows (%s)\n", path, res.Rows, res.Table, res.Charset)

			if dryRun {
				_, err := rules.NewSet(res.Tables)
				return err
			}

			_, db, err := connect()
			if err != nil {
				return err
			}
			defer db.Close()

			return rulesStore.New(db).Import(cmd.Context(), res.Tables)
		},
	}

	cmd.Flags().StringVar(&path, "file", "", "CSV file holding one rule table")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and validate without writing")

	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func rulesSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write the built-in rule tables to the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := rules.DefaultTables()
			if err != nil {
				return err
			}

			_, db, err := connect()
			if err != nil {
				return err
			}
			defer db.Close()

			return rulesStore.New(db).Import(cmd.Context(), t)
		},
	}
}

func rulesCheckCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load and validate a YAML rule file overlaid on the built-in rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := rules.OverlayFile(path); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)

			return nil
		},
	}

	cmd.Flags().StringVar(&path, "file", "", "YAML rule file")

	_ = cmd.MarkFlagRequired("file")

	return cmd
}
