package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lameiro/event-comb/app/api"
	"github.com/lameiro/event-comb/app/cfg"
	"github.com/lameiro/event-comb/app/database"
	"github.com/lameiro/event-comb/app/event"
	"github.com/lameiro/event-comb/app/images"
	"github.com/lameiro/event-comb/app/sources"
	"github.com/lameiro/event-comb/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	slog.Info("Starting Event Comb", "version", cfg.GetVersion())

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	configCache := sources.NewConfigCache(appCfg.SourcesDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load source configurations", "dir", appCfg.SourcesDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Source configurations loaded", "count", configCache.GetConfigCount())

	eventRepo := database.NewEventRepository(db)

	httpClient := &http.Client{}
	imageCache := images.NewCache(appCfg.ImageDir, httpClient, appCfg.UserAgent)

	builder := event.NewBuilder()
	similarity := event.NewSimilarity(event.SimilarityConfig{
		EditDistanceRatio:      appCfg.EditDistanceRatio,
		ImageMismatchThreshold: appCfg.ImageMismatchThreshold,
	})
	clusterer := event.NewClusterer(similarity, event.ClustererConfig{
		TrustScores:  configCache.TrustScores(),
		DefaultScore: appCfg.DefaultTrustScore,
	})
	binner := event.NewBinner(clusterer, imageCache)
	snapshot := event.NewSnapshot()

	var enricher sources.Enricher = sources.NopEnricher{}
	if appCfg.OpenAIKey != "" {
		enricher = sources.NewOpenAIEnricher(appCfg.OpenAIKey, appCfg.OpenAIModel)
		slog.Info("Event enrichment enabled", "model", appCfg.OpenAIModel)
	}

	scheduler := tasks.NewScheduler(configCache, eventRepo, httpClient,
		builder, binner, enricher, snapshot)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Background scheduler started", "workers", appCfg.WorkerCount, "interval", appCfg.SchedulerInterval)

	apiHandler := api.NewHandler(configCache, eventRepo, snapshot, scheduler)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
