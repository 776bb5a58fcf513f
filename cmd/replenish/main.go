// cmd/replenish/main.go
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/replenish/internal/cache"
	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/ingest"
	"github.com/andresuchdata/replenish/internal/repository"
	"github.com/andresuchdata/replenish/internal/service"
	"github.com/andresuchdata/replenish/internal/storage"
	"github.com/andresuchdata/replenish/pkg/logger"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func openDB(c *cli.Context) (*sqlx.DB, error) {
	db, err := sqlx.Connect("pgx", c.String("db-url"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "replenish",
		Usage: "Replenishment forecasting and suggestion jobs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
				Value: "info",
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "forecast",
				Usage:  "Recalculate sales forecasts from the trailing history window",
				Flags:  []cli.Flag{newDBURLFlag()},
				Action: runForecast,
			},
			{
				Name:   "suggest",
				Usage:  "Regenerate replenishment suggestions from current forecasts and stock",
				Flags:  []cli.Flag{newDBURLFlag()},
				Action: runSuggest,
			},
			{
				Name:  "import",
				Usage: "Import daily sales exports (CSV/XLSX) into sales history",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Local directory of export files",
					},
					&cli.StringFlag{
						Name:  "file",
						Usage: "Single export file to import",
					},
					&cli.StringFlag{
						Name:  "bucket-prefix",
						Usage: "Object storage prefix to import from (uses IMPORT_STORAGE_* env)",
					},
				},
				Action: runImport,
			},
			{
				Name:  "serve-hooks",
				Usage: "Serve HTTP trigger endpoints for external schedulers",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:  "port",
						Usage: "Port to listen on",
						Value: "8090",
					},
					&cli.StringFlag{
						Name:    "token",
						Usage:   "Bearer token required on trigger requests",
						EnvVars: []string{"HOOK_TOKEN"},
					},
				},
				Action: runServeHooks,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runForecast(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	cfg := config.Load()
	svc := service.NewForecastService(
		repository.NewSalesHistoryRepository(db),
		repository.NewForecastRepository(db),
		cfg.Jobs.WorkerCount,
	)

	summary, err := svc.Run(c.Context, time.Now())
	if err != nil {
		return err
	}

	logger.Log.Info().
		Int("calculated", summary.ForecastsCalculated).
		Int("upserted", summary.ForecastsUpserted).
		Int("errors", len(summary.Errors)).
		Dur("elapsed", summary.CompletedAt.Sub(summary.StartedAt)).
		Msg("forecast job finished")
	return nil
}

func runSuggest(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := newSuggestionService(db)

	summary, err := svc.Run(c.Context, time.Now())
	if err != nil {
		return err
	}

	logger.Log.Info().
		Int("generated", summary.SuggestionsGenerated).
		Int("skipped", summary.SuggestionsSkipped).
		Int("errors", len(summary.Errors)).
		Dur("elapsed", summary.CompletedAt.Sub(summary.StartedAt)).
		Msg("suggestion job finished")
	return nil
}

func newSuggestionService(db *sqlx.DB) *service.SuggestionService {
	cfg := config.Load()

	summaryCache, err := cache.NewUrgencySummaryCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("cache unavailable, continuing without it")
		summaryCache = cache.NewNoopUrgencySummaryCache()
	}

	return service.NewSuggestionService(
		repository.NewForecastRepository(db),
		repository.NewStockRepository(db),
		repository.NewSafetyStockRepository(db),
		repository.NewRoutingRepository(db),
		repository.NewSuggestionRepository(db),
		summaryCache,
		cfg.Jobs,
	)
}

func runImport(c *cli.Context) error {
	dir := c.String("dir")
	file := c.String("file")
	prefix := c.String("bucket-prefix")
	if dir == "" && file == "" && prefix == "" {
		return fmt.Errorf("one of --dir, --file or --bucket-prefix is required")
	}

	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	cfg := config.Load()

	var objects storage.ObjectStorage
	if prefix != "" {
		objects, err = storage.NewS3Client(cfg.Import)
		if err != nil {
			return fmt.Errorf("object storage not configured: %w", err)
		}
	}

	imp := ingest.NewImporter(repository.NewSalesHistoryRepository(db), objects, cfg.Import.InboxDir)

	var result *ingest.ImportResult
	switch {
	case file != "":
		result, err = imp.ImportFile(c.Context, file)
	case dir != "":
		result, err = imp.ImportDir(c.Context, dir)
	default:
		result, err = imp.ImportBucket(c.Context, prefix)
	}
	if err != nil {
		return err
	}

	logger.Log.Info().
		Int("files", result.FilesProcessed).
		Int("imported", result.RowsImported).
		Int("rejected", result.RowsRejected).
		Msg("import finished")

	for _, rowErr := range result.Errors {
		logger.Log.Warn().Str("row", rowErr.String()).Msg("rejected row")
	}
	return nil
}
