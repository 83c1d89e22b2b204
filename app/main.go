package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/podcast-tracker/app/api"
	"github.com/lysyi3m/podcast-tracker/app/cfg"
	"github.com/lysyi3m/podcast-tracker/app/database"
	"github.com/lysyi3m/podcast-tracker/app/feed"
	"github.com/lysyi3m/podcast-tracker/app/podcast"
	"github.com/lysyi3m/podcast-tracker/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Podcast Tracker", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	podcastRepo := database.NewPodcastRepository(db)
	episodeRepo := database.NewEpisodeRepository(db)

	parser := feed.NewParser()
	fetcher := feed.NewFetcher(&http.Client{}, parser, appCfg.UserAgent,
		time.Duration(appCfg.FetchTimeout)*time.Second)

	service := podcast.NewService(fetcher, podcastRepo, episodeRepo)

	seedEntries, err := podcast.LoadSeedFile(appCfg.PodcastsFile)
	if err != nil {
		slog.Error("Failed to load podcasts file", "path", appCfg.PodcastsFile, "error", err)
		os.Exit(1)
	}
	if len(seedEntries) > 0 {
		slog.Info("Seeding podcasts", "count", len(seedEntries))
		service.Seed(context.Background(), seedEntries)
	}

	scheduler := tasks.NewScheduler(service,
		time.Duration(appCfg.CheckInterval)*time.Hour, appCfg.WorkerCount)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(podcastRepo, episodeRepo, service)
	server := api.NewServer(handler)

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(appCfg.Host, appCfg.Port),
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // a manual refresh runs synchronously
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
