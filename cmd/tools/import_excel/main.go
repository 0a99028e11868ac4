package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"project-tracker-api/internal"
	"project-tracker-api/internal/config"
	"project-tracker-api/internal/storage"
	"project-tracker-api/pkg/importer"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: import_excel --file=path.xlsx [--mapping=mapping.yaml] [--max-errors=50] [--dry-run]")
		os.Exit(1)
	}

	var filePath, mappingPath string
	maxErrors := 50
	dryRun := false

	for _, arg := range os.Args[1:] {
		switch {
		case strings.HasPrefix(arg, "--file="):
			filePath = strings.TrimPrefix(arg, "--file=")
		case strings.HasPrefix(arg, "--mapping="):
			mappingPath = strings.TrimPrefix(arg, "--mapping=")
		case strings.HasPrefix(arg, "--max-errors="):
			n, err := strconv.Atoi(strings.TrimPrefix(arg, "--max-errors="))
			if err != nil || n <= 0 {
				log.Fatalf("Invalid max-errors: %q", arg)
			}
			maxErrors = n
		case arg == "--dry-run":
			dryRun = true
		default:
			log.Fatalf("Unknown argument %q", arg)
		}
	}

	if filePath == "" {
		fmt.Println("Error: file is required")
		fmt.Println("Usage: import_excel --file=path.xlsx [--mapping=mapping.yaml] [--max-errors=50] [--dry-run]")
		os.Exit(1)
	}

	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	cfg, err := config.LoadAndValidate()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx := context.Background()
	db, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if _, err := storage.Migrate(ctx, db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	}

	file, err := os.Open(filePath)
	if err != nil {
		log.Fatalf("Failed to open Excel file: %v", err)
	}
	defer file.Close()

	fmt.Printf("Importing from %s (dry_run=%v)\n", filePath, dryRun)
	fmt.Println(strings.Repeat("=", 60))

	summary, err := importer.ImportExcel(ctx, db, file, importer.ImportOptions{
		MappingPath:  mappingPath,
		DryRun:       dryRun,
		MaxErrors:    maxErrors,
		StoreOptions: internal.StoreOptions(cfg),
	})
	printSummary(summary)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}
}

func printSummary(summary importer.ImportSummary) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Printf("IMPORT SUMMARY (batch %s)\n", summary.BatchID)
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("Total inserted: %d\n", summary.Inserted)
	fmt.Printf("Total updated: %d\n", summary.Updated)
	fmt.Printf("Total skipped: %d\n", summary.Skipped)
	fmt.Printf("Total errors: %d\n", summary.Errors)
	fmt.Printf("Dry run: %v\n", summary.DryRun)

	if len(summary.Sheets) > 0 {
		fmt.Println("\nSheet Details:")
		for _, sheet := range summary.Sheets {
			fmt.Printf("  %s: inserted=%d, updated=%d, skipped=%d, errors=%d\n",
				sheet.Name, sheet.Inserted, sheet.Updated, sheet.Skipped, sheet.Errors)

			if len(sheet.Samples) > 0 {
				fmt.Printf("    Error samples:\n")
				for _, sample := range sheet.Samples {
					fmt.Printf("      Row %d: %s\n", sample.Row, sample.Message)
				}
			}
		}
	}
}
