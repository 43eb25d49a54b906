// Package main is the entry point for the event catalog importer.
//
// The importer loads festival rows from a CSV or XLSX file into the
// database, skipping rows that already exist. Crawl exports and manually
// curated sheets both go through this tool.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/festago/festago/internal/config"
	"github.com/festago/festago/internal/db"
	"github.com/festago/festago/internal/event"
	"github.com/festago/festago/internal/importer"
	"github.com/festago/festago/internal/middleware"
)

func main() {
	filePath := flag.String("file", "", "path to a .csv or .xlsx file to import")
	clear := flag.Bool("clear", false, "delete all events before importing")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("Festago Event Importer")
		fmt.Println()
		fmt.Println("Usage: importer -file events.csv [--clear]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	env := os.Getenv("FESTAGO_ENV")
	if env == "" {
		env = config.DefaultEnv
	}
	logger := middleware.NewLogger(env)
	slog.SetDefault(logger)

	if *filePath == "" && !*clear {
		fmt.Fprintln(os.Stderr, "either -file or --clear is required; see -help")
		os.Exit(2)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	conn, err := db.Connect(databaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	events := event.NewPostgresRepository(conn, logger)
	im := importer.New(events, logger)

	if *clear {
		removed, err := im.Clear()
		if err != nil {
			logger.Error("failed to clear events", "error", err)
			os.Exit(1)
		}
		logger.Info("cleared event catalog", "removed", removed)
	}

	if *filePath == "" {
		return
	}

	f, err := os.Open(*filePath)
	if err != nil {
		logger.Error("failed to open file", "path", *filePath, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	var result *importer.Result
	switch strings.ToLower(filepath.Ext(*filePath)) {
	case ".csv":
		result, err = im.ImportCSV(f)
	case ".xlsx":
		result, err = im.ImportXLSX(f)
	default:
		logger.Error("unsupported file type, expected .csv or .xlsx", "path", *filePath)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("import failed", "path", *filePath, "error", err)
		os.Exit(1)
	}

	for _, rowErr := range result.Errors {
		logger.Warn("skipped row", "row", rowErr.Row, "reason", rowErr.Reason)
	}
	logger.Info("import finished",
		"path", *filePath,
		"imported", result.Imported,
		"skipped", result.Skipped,
		"failed", result.Failed)

	if result.Failed > 0 {
		os.Exit(1)
	}
}
