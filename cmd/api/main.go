package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/taxres/internal/analysis"
	analysisStore "github.com/MrJamesThe3rd/taxres/internal/analysis/store"
	"github.com/MrJamesThe3rd/taxres/internal/config"
	"github.com/MrJamesThe3rd/taxres/internal/database"
	taxresHttp "github.com/MrJamesThe3rd/taxres/internal/http"
	analysisHandler "github.com/MrJamesThe3rd/taxres/internal/http/analysis"
	calculateHandler "github.com/MrJamesThe3rd/taxres/internal/http/calculate"
	"github.com/MrJamesThe3rd/taxres/internal/rules"
	rulesStore "github.com/MrJamesThe3rd/taxres/internal/rules/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()

	if err := database.Migrate(ctx, db); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	var ruleSet *rules.Set

	switch cfg.Rules.Source {
	case config.RulesFromFile:
		ruleSet, err = rules.OverlayFile(cfg.Rules.Path)
	default:
		ruleSet, err = rulesStore.New(db).Set(ctx)
	}

	if err != nil {
		slog.Error("failed to load rules", "source", cfg.Rules.Source, "error", err)
		os.Exit(1)
	}

	analysisService := analysis.NewService(analysisStore.New(db), ruleSet, cfg.Engine.Workers)

	var (
		analysisH  = analysisHandler.NewHandler(analysisService)
		calculateH = calculateHandler.NewHandler(ruleSet, cfg.Engine.Workers)
	)

	router := taxresHttp.New(analysisH, calculateH, taxresHttp.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Timeout:        cfg.Server.Timeout,
	})

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "name", cfg.App.Name, "port", port, "rules", cfg.Rules.Source)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
