// Package main runs the blog front end: a thin presentation service that
// renders posts from an external REST API, signs users in through an
// external identity provider, and keeps per-instance state (session,
// comment reactions) in a local or Cloud Storage backed key-value store.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/joho/godotenv"

	"blogfront/api"
	"blogfront/identity"
	"blogfront/server"
	"blogfront/session"
	"blogfront/storage"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	apiBase := os.Getenv("API_BASE_URL")
	if apiBase == "" {
		logger.Error("API_BASE_URL environment variable required")
		os.Exit(1)
	}

	identityURL := os.Getenv("IDENTITY_URL")
	identityKey := os.Getenv("IDENTITY_API_KEY")
	if identityURL == "" || identityKey == "" {
		logger.Error("IDENTITY_URL and IDENTITY_API_KEY environment variables required")
		os.Exit(1)
	}

	// Local key-value store by default; Cloud Storage when a bucket is set.
	localStorage := os.Getenv("LOCAL_STORAGE")
	bucket := os.Getenv("STORAGE_BUCKET")
	if bucket == "" && localStorage == "" {
		localStorage = "./data"
		logger.Info("No STORAGE_BUCKET set, defaulting to local storage", "storage_path", localStorage)
	}

	var gcsClient *gcs.Client
	if bucket != "" {
		var err error
		gcsClient, err = gcs.NewClient(ctx)
		if err != nil {
			logger.Error("Failed to initialize Storage client", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := gcsClient.Close(); err != nil {
				logger.Warn("Failed to close storage client", "error", err)
			}
		}()
	} else {
		if err := os.MkdirAll(localStorage, 0o755); err != nil {
			logger.Error("Failed to create local storage directory", "error", err)
			os.Exit(1)
		}
	}

	store := storage.New(gcsClient, bucket, localStorage, logger)
	sessions := session.New(store, logger)

	httpClient := &http.Client{Timeout: 30 * time.Second}
	idp := identity.New(httpClient, identityURL, identityKey, logger)
	gateway := api.New(httpClient, apiBase, sessions, logger)

	srv := server.New(&server.Config{
		API:      gateway,
		Identity: idp,
		Sessions: sessions,
		Store:    store,
		Logger:   logger,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := srv.ListenAndServe(port); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
