package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/taxres/internal/config"
	"github.com/MrJamesThe3rd/taxres/internal/database"
	"github.com/MrJamesThe3rd/taxres/internal/rules"
	rulesStore "github.com/MrJamesThe3rd/taxres/internal/rules/store"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "taxres",
		Short:         "Tax resolution calculations: CSED, projections, balances and resolution options",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(evaluateCmd())
	rootCmd.AddCommand(rulesCmd())
	rootCmd.AddCommand(dbCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("command failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func connect() (*config.Config, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		return nil, nil, err
	}

	return cfg, db, nil
}

// loadRules picks the rule source: an explicit file wins, then the
// configured source.
func loadRules(cmd *cobra.Command, cfg *config.Config, db *sql.DB, path string) (*rules.Set, error) {
	if path != "" {
		return rules.OverlayFile(path)
	}

	if cfg != nil && cfg.Rules.Source == config.RulesFromFile {
		return rules.OverlayFile(cfg.Rules.Path)
	}

	if db == nil {
		return rules.Defaults()
	}

	return rulesStore.New(db).Set(cmd.Context())
}

func parseAsOf(s string) (time.Time, error) {
	if s == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}

	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--as-of must be YYYY-MM-DD: %w", err)
	}

	return t, nil
}

func dbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := connect()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.Migrate(cmd.Context(), db); err != nil {
				return err
			}

			slog.Info("schema applied")

			return nil
		},
	})

	return cmd
}
