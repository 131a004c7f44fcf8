// Command import loads categories and websites from a saved HTML
// navigation page into the database.
//
//	import -file page.html [-db data/navigation.db]
//
// Without -db the database path comes from the usual configuration.
// Re-running the same import is safe: websites already present in their
// category are skipped.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sakif/navigation/internal/config"
	"github.com/sakif/navigation/internal/importer"
	"github.com/sakif/navigation/internal/logging"
	sqliteRepo "github.com/sakif/navigation/internal/repository/sqlite"
	"github.com/sakif/navigation/internal/service"
)

func main() {
	file := flag.String("file", "", "HTML page to import (required)")
	dbPath := flag.String("db", "", "database path (overrides configuration)")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: import -file page.html [-db path]")
		os.Exit(2)
	}

	if err := run(*file, *dbPath); err != nil {
		slog.Error("import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(file, dbPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log)

	if dbPath == "" {
		dbPath = cfg.Database.Path
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}

	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("opening %s: %w", file, err)
	}
	defer f.Close()

	sections, err := importer.Parse(f)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", file, err)
	}
	logger.Info("parsed page", slog.String("file", file), slog.Int("sections", len(sections)))

	db, err := sqliteRepo.New(dbPath, sqliteRepo.Options{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		BusyTimeout:  cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := service.NewImportService(db.Categories(), db.Websites(), db, logger)
	result, err := svc.Import(ctx, sections)
	if err != nil {
		return err
	}

	logger.Info("import finished",
		slog.String("database", dbPath),
		slog.Int("categories", result.Categories),
		slog.Int("created", result.Created),
		slog.Int("skipped", result.Skipped),
		slog.Int("invalid", result.Invalid),
	)
	return nil
}
