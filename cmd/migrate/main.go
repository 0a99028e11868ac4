package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"project-tracker-api/internal/config"
	"project-tracker-api/internal/storage"
)

func main() {
	list := flag.Bool("list", false, "print the embedded migrations for the selected backend and exit")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		log.Fatal("DATABASE_URL is required")
	}

	if *list {
		dialect, _, err := storage.DialectFor(url)
		if err != nil {
			log.Fatal(err)
		}
		migrations, err := storage.Migrations(dialect)
		if err != nil {
			log.Fatal(err)
		}
		for _, m := range migrations {
			fmt.Printf("%s  %s\n", m.Checksum[:12], m.Filename)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := storage.Open(ctx, url)
	if err != nil {
		log.Fatal("Failed to open database connection: ", err)
	}
	defer db.Close()

	fmt.Printf("Connected to %s database\n", db.Dialect)

	applied, err := storage.Migrate(ctx, db)
	if err != nil {
		log.Fatal("Failed to apply migrations: ", err)
	}
	for _, name := range applied {
		fmt.Printf("Applied %s\n", name)
	}
	if len(applied) == 0 {
		fmt.Println("Schema is up to date")
		return
	}
	fmt.Println("All migrations applied successfully")
}
