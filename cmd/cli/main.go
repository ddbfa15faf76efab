package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newsdigest-agent/internal/ai"
	"github.com/newsdigest-agent/internal/browser"
	"github.com/newsdigest-agent/internal/config"
	"github.com/newsdigest-agent/internal/crawler"
	"github.com/newsdigest-agent/internal/digest"
	"github.com/newsdigest-agent/internal/models"
	"github.com/newsdigest-agent/internal/source"
	"github.com/newsdigest-agent/internal/source/feed"
	"github.com/newsdigest-agent/internal/source/scrape"
	"github.com/newsdigest-agent/internal/storage"
	"github.com/newsdigest-agent/internal/storage/sqlite"
	"github.com/newsdigest-agent/pkg/logger"
	"github.com/newsdigest-agent/pkg/ratelimit"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
	repo    storage.Repository
)

func main() {
	rootCmd := &cobra.Command{
		Use:               "newsdigest",
		Short:             "News crawling and digest generation from the command line",
		PersistentPreRunE: initializeApp,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")

	rootCmd.AddCommand(crawlerCmd())
	rootCmd.AddCommand(sourcesCmd())
	rootCmd.AddCommand(digestCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initializeApp(cmd *cobra.Command, args []string) error {
	var err error

	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	repo, err = sqlite.New(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func newCrawler(engine crawler.Extractor) *crawler.Crawler {
	dispatcher := source.NewDispatcher(log)
	dispatcher.Register(feed.New(log))
	dispatcher.Register(scrape.New(log))

	return crawler.New(repo, dispatcher, engine, ratelimit.NewDefaultLimiter(), cfg.Crawler, log)
}

func crawlerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawler",
		Short: "Run and inspect the periodic crawler",
	}
	cmd.AddCommand(crawlerRunCmd())
	cmd.AddCommand(crawlerStatusCmd())
	return cmd
}

func crawlerRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one crawl cycle now",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := browser.New(cfg.Browser, log)
			defer engine.Close()

			result, err := newCrawler(engine).RunCycle(context.Background())
			if err != nil {
				return err
			}

			fmt.Printf("Sources polled:   %d\n", result.SourcesPolled)
			fmt.Printf("Articles fetched: %d\n", result.ArticlesFetched)
			fmt.Printf("New articles:     %d\n", result.ArticlesInserted)
			fmt.Printf("Content crawled:  %d\n", result.ContentCrawled)
			fmt.Printf("Content skipped:  %d\n", result.ContentSkipped)
			fmt.Printf("Errors:           %d\n", len(result.Errors))
			fmt.Printf("Duration:         %s\n", result.Duration)
			return nil
		},
	}
}

func crawlerStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show crawler configuration snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			status := newCrawler(browser.New(cfg.Browser, log)).Status()
			fmt.Printf("Scheduled:              %v\n", status.IsScheduled)
			fmt.Printf("Running:                %v\n", status.IsRunning)
			fmt.Printf("Schedule:               %s\n", status.Schedule)
			fmt.Printf("Max articles per cycle: %d\n", status.MaxArticlesPerCycle)
			fmt.Printf("Batch size:             %d\n", status.BatchSize)
			return nil
		},
	}
}

func sourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage article sources",
	}
	cmd.AddCommand(sourcesListCmd())
	cmd.AddCommand(sourcesSeedCmd())
	return cmd
}

func sourcesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := repo.ListSources(context.Background())
			if err != nil {
				return err
			}
			if len(sources) == 0 {
				fmt.Println("No sources configured. Run 'newsdigest sources seed' to add a starter feed.")
				return nil
			}
			for _, src := range sources {
				active := " "
				if src.IsActive {
					active = "*"
				}
				fmt.Printf("[%s] %-4d %-8s %-40s %s\n", active, src.ID, src.Kind, src.Name, src.URL)
			}
			return nil
		},
	}
}

func sourcesSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Install a starter feed source",
		RunE: func(cmd *cobra.Command, args []string) error {
			src := &models.Source{
				Name:     "Tin moi nhat - VnExpress RSS",
				URL:      "https://vnexpress.net/rss/tin-moi-nhat.rss",
				Kind:     models.SourceKindFeed,
				IsActive: true,
			}
			if err := repo.SaveSource(context.Background(), src); err != nil {
				return fmt.Errorf("failed to seed source: %w", err)
			}
			fmt.Printf("Seeded source %d: %s\n", src.ID, src.Name)
			return nil
		},
	}
}

func digestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Generate the news digest",
	}
	cmd.AddCommand(digestRunCmd())
	return cmd
}

func digestRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Generate a digest from recent crawled articles and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Anthropic.APIKey == "" {
				return fmt.Errorf("anthropic.api_key is required for digest generation")
			}

			limiter := ratelimit.NewDefaultLimiter()
			aiClient := ai.NewClient(cfg.Anthropic, limiter, log)
			job := digest.NewJob(repo, aiClient, cfg.Digest, log)

			text, err := job.Run(context.Background())
			if err != nil {
				return err
			}
			if text == "" {
				fmt.Println("No articles with content found. Run a crawl cycle first.")
				return nil
			}

			fmt.Println(text)
			return nil
		},
	}
}
