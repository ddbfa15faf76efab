package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/newsdigest-agent/internal/ai"
	"github.com/newsdigest-agent/internal/browser"
	"github.com/newsdigest-agent/internal/config"
	"github.com/newsdigest-agent/internal/crawler"
	"github.com/newsdigest-agent/internal/delivery/telegram"
	"github.com/newsdigest-agent/internal/digest"
	"github.com/newsdigest-agent/internal/source"
	"github.com/newsdigest-agent/internal/source/feed"
	"github.com/newsdigest-agent/internal/source/scrape"
	"github.com/newsdigest-agent/internal/storage/sqlite"
	"github.com/newsdigest-agent/pkg/logger"
	"github.com/newsdigest-agent/pkg/ratelimit"
)

var (
	cfgFile string
	log     *logger.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "newsdigest-scheduler",
		Short: "Background scheduler for the news digest agent",
		Long: `Runs the periodic crawler and the digest delivery schedule in the
background. This daemon should be run as a service for autonomous operation.`,
		RunE: runScheduler,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runScheduler(cmd *cobra.Command, args []string) error {
	// Load config
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	log.Info().Msg("Starting news digest agent")

	// Initialize storage
	repo, err := sqlite.New(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer repo.Close()

	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Start health check server
	go startHealthServer()

	// Initialize rate limiter
	limiter := ratelimit.NewDefaultLimiter()

	// Source fetchers
	dispatcher := source.NewDispatcher(log)
	dispatcher.Register(feed.New(log))
	dispatcher.Register(scrape.New(log))

	// Shared content extraction engine, launched lazily on first use
	engine := browser.New(cfg.Browser, log)

	// Periodic crawler
	periodicCrawler := crawler.New(repo, dispatcher, engine, limiter, cfg.Crawler, log)

	// Digest pipeline
	aiClient := ai.NewClient(cfg.Anthropic, limiter, log)
	digestJob := digest.NewJob(repo, aiClient, cfg.Digest, log)

	bot, err := telegram.New(cfg.Telegram, periodicCrawler, digestJob, limiter, log)
	if err != nil {
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}

	digestScheduler := digest.NewScheduler(digestJob, bot, cfg.Telegram.MaxMessageLength, cfg.Digest, log)

	// Install both independent schedules
	if err := periodicCrawler.Start(); err != nil {
		return fmt.Errorf("failed to start crawler: %w", err)
	}
	if err := digestScheduler.Start(); err != nil {
		return fmt.Errorf("failed to start digest scheduler: %w", err)
	}

	// Operator commands over Telegram
	botCtx, stopBot := context.WithCancel(context.Background())
	go bot.Listen(botCtx)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	cleanup(periodicCrawler, digestScheduler, engine, stopBot)
	return nil
}

var cleanupOnce sync.Once

// cleanup releases resources in order: future triggers first, then the
// extraction engine, then the chat connection. Safe to invoke from
// multiple signal paths.
func cleanup(cr *crawler.Crawler, ds *digest.Scheduler, engine *browser.Engine, stopBot context.CancelFunc) {
	cleanupOnce.Do(func() {
		log.Info().Msg("Shutting down gracefully")

		cr.Stop()
		ds.Stop()
		engine.Close()
		stopBot()

		log.Info().Msg("Cleanup completed")
	})
}

// startHealthServer starts a simple HTTP server for health checks
func startHealthServer() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "10000"
	}

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("News Digest Agent"))
	})

	log.Info().Str("port", port).Msg("Health check server starting")
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Error().Err(err).Msg("Health server failed")
	}
}
