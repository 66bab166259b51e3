// Command caixa-import loads reference tables and titles from a data
// directory into the SQLite store.
package main

import (
	"flag"
	"os"
	"path/filepath"
	"time"

	"caixa/internal/cli"
	"caixa/internal/config"
	"caixa/internal/log"
	"caixa/internal/source"
	"caixa/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()

	dataDir := flag.String("data", cfg.DataDir, "directory holding the reference YAML files")
	titlesPath := flag.String("titles", "", "titles JSON file (default: <data>/"+source.TitlesFile+")")
	dbPath := flag.String("db", cfg.SQLiteDBPath, "SQLite database path")
	skipReference := flag.Bool("titles-only", false, "import titles without touching reference tables")
	flag.Parse()

	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentStorage)

	if *titlesPath == "" {
		*titlesPath = filepath.Join(*dataDir, source.TitlesFile)
	}

	ctx, stop := cli.SignalContext(logger.Slog())
	defer stop()

	repo, err := storage.NewSQLiteRepository(*dbPath, logger.Slog())
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", *dbPath)
		os.Exit(1)
	}
	defer repo.Close()

	start := time.Now()

	if !*skipReference {
		ref, err := source.ReadReferenceDir(*dataDir)
		if err != nil {
			logger.Error("Failed to read reference tables", log.FieldError, err, "dir", *dataDir)
			os.Exit(1)
		}
		if err := repo.SaveReference(ctx, ref); err != nil {
			logger.Error("Failed to save reference tables", log.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Reference tables imported",
			"classes", len(ref.Classes),
			"departments", len(ref.Departments),
			log.FieldAccounts, len(ref.Accounts))
	}

	titles, err := source.ReadTitlesFile(*titlesPath)
	if err != nil {
		logger.Error("Failed to read titles", log.FieldError, err, "path", *titlesPath)
		os.Exit(1)
	}
	for i, t := range titles {
		if err := t.Validate(); err != nil {
			logger.Error("Invalid title", log.FieldError, err, log.FieldTitleIndex, i)
			os.Exit(1)
		}
	}

	n, err := repo.ImportTitles(ctx, titles)
	if err != nil {
		logger.Error("Failed to import titles", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Import complete",
		log.FieldCount, n,
		log.FieldOperation, log.OpImport,
		log.FieldDuration, time.Since(start).Milliseconds())
}
