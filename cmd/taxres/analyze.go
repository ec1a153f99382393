package main

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/taxres/internal/analysis"
	analysisStore "github.com/MrJamesThe3rd/taxres/internal/analysis/store"
	"github.com/MrJamesThe3rd/taxres/internal/export"
	"github.com/MrJamesThe3rd/taxres/internal/facts"
)

type outputFlags struct {
	asJSON bool
	xlsx   string
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.asJSON, "json", false, "print the full analysis as JSON")
	cmd.Flags().StringVar(&o.xlsx, "xlsx", "", "also write the analysis workbook to this path")
}

func (o *outputFlags) write(w io.Writer, a *analysis.CaseAnalysis) error {
	if o.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		if err := enc.Encode(a); err != nil {
			return fmt.Errorf("encoding analysis: %w", err)
		}
	} else {
		fmt.Fprint(w, export.Summary(a))
	}

	if o.xlsx == "" {
		return nil
	}

	f, err := export.Workbook(a)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(o.xlsx); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}

	return nil
}

func analyzeCmd() *cobra.Command {
	var (
		cases     []string
		asOf      string
		rulesPath string
		save      bool
		out       outputFlags
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze stored cases by case number or id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			at, err := parseAsOf(asOf)
			if err != nil {
				return err
			}

			cfg, db, err := connect()
			if err != nil {
				return err
			}
			defer db.Close()

			ruleSet, err := loadRules(cmd, cfg, db, rulesPath)
			if err != nil {
				return err
			}

			store := analysisStore.New(db)
			svc := analysis.NewService(store, ruleSet, cfg.Engine.Workers)

			ids := make([]uuid.UUID, 0, len(cases))

			for _, c := range cases {
				id, err := uuid.Parse(c)
				if err != nil {
					if id, err = store.FindCase(cmd.Context(), c); err != nil {
						return fmt.Errorf("case %s: %w", c, err)
					}
				}

				ids = append(ids, id)
			}

			if len(ids) == 1 {
				run := svc.Analyze
				if save {
					run = svc.Recompute
				}

				a, err := run(cmd.Context(), ids[0], at)
				if err != nil {
					return err
				}

				return out.write(cmd.OutOrStdout(), a)
			}

			failed := 0

			for _, res := range svc.AnalyzeBatch(cmd.Context(), ids, at) {
				if res.Err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "case %s: %s\n", res.CaseID, res.Error)

					continue
				}

				if save {
					if err := store.SaveAnalysis(cmd.Context(), res.Analysis); err != nil {
						return fmt.Errorf("saving case %s: %w", res.CaseID, err)
					}
				}

				fmt.Fprint(cmd.OutOrStdout(), export.Summary(res.Analysis))
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d cases failed", failed, len(ids))
			}

			return nil
		},
	}

	cmd.Flags().StringSliceVar(&cases, "case", nil, "case number or id (repeatable)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "evaluation date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&rulesPath, "rules", "", "YAML rule file overlaid on the defaults instead of the configured source")
	cmd.Flags().BoolVar(&save, "save", false, "persist projections, statute results and resolution options")
	out.register(cmd)

	_ = cmd.MarkFlagRequired("case")

	return cmd
}

func evaluateCmd() *cobra.Command {
	var (
		factsPath string
		asOf      string
		rulesPath string
		workers   int
		out       outputFlags
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Analyze a case from a JSON facts file without a database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			at, err := parseAsOf(asOf)
			if err != nil {
				return err
			}

			d, err := facts.ReadFile(factsPath)
			if err != nil {
				return err
			}

			ruleSet, err := loadRules(cmd, nil, nil, rulesPath)
			if err != nil {
				return err
			}

			a, err := analysis.NewService(facts.NewMemory(d), ruleSet, workers).Analyze(cmd.Context(), d.Case.ID, at)
			if err != nil {
				return err
			}

			return out.write(cmd.OutOrStdout(), a)
		},
	}

	cmd.Flags().StringVar(&factsPath, "facts", "", "path of the JSON facts file")
	cmd.Flags().StringVar(&asOf, "as-of", "", "evaluation date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&rulesPath, "rules", "", "YAML rule file overlaid on the built-in rules")
	cmd.Flags().IntVar(&workers, "workers", 4, "tax years computed in parallel")
	out.register(cmd)

	_ = cmd.MarkFlagRequired("facts")

	return cmd
}

