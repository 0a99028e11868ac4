package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"project-tracker-api/internal"
	"project-tracker-api/internal/config"
	"project-tracker-api/internal/storage"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Load and validate configuration
	cfg, err := config.LoadAndValidate()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	db, err := storage.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if cfg.AutoMigrate {
		applied, err := storage.Migrate(context.Background(), db)
		if err != nil {
			db.Close()
			log.Fatalf("Migration failed: %v", err)
		}
		for _, name := range applied {
			log.Printf("Applied migration %s", name)
		}
	}

	srv := internal.NewServer(db, cfg)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("Starting Project Tracker API (%s, %s backend) on %s", cfg.Environment, db.Dialect, cfg.Addr)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}
	if err := srv.Close(ctx); err != nil {
		log.Printf("Closing database: %v", err)
	}
	log.Println("Server stopped")
}
