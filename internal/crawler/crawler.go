package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/newsdigest-agent/internal/config"
	"github.com/newsdigest-agent/internal/models"
	"github.com/newsdigest-agent/internal/source"
	"github.com/newsdigest-agent/internal/storage"
	"github.com/newsdigest-agent/pkg/logger"
	"github.com/newsdigest-agent/pkg/ratelimit"
)

// ErrCycleRunning is returned when RunCycle is called while a cycle is
// already in flight. The caller's trigger degrades to a no-op.
var ErrCycleRunning = errors.New("crawl cycle is already running")

// Extractor turns a detail-page URL and a content selector into plain
// text. An empty string means "not available now, retry later".
type Extractor interface {
	ExtractText(ctx context.Context, url, contentSelector string) string
}

// CycleResult contains the results of one crawl cycle
type CycleResult struct {
	SourcesPolled    int
	ArticlesFetched  int
	ArticlesInserted int64
	ContentCrawled   int
	ContentSkipped   int
	Errors           []error
	Duration         time.Duration
}

// Status is an observable snapshot of the crawler
type Status struct {
	IsScheduled         bool   `json:"is_scheduled"`
	IsRunning           bool   `json:"is_running"`
	Schedule            string `json:"schedule"`
	MaxArticlesPerCycle int    `json:"max_articles_per_cycle"`
	BatchSize           int    `json:"batch_size"`
}

// Crawler runs the periodic fetch -> persist -> backfill-content cycle.
// One cycle at a time: overlapping triggers (scheduled or manual)
// degrade to no-ops instead of double-crawling the same sources.
type Crawler struct {
	repo       storage.Repository
	dispatcher *source.Dispatcher
	extractor  Extractor
	limiter    *ratelimit.MultiLimiter
	cfg        config.CrawlerConfig
	log        *logger.Logger

	isRunning atomic.Bool

	mu   sync.Mutex // guards cron
	cron *cron.Cron
}

// New creates a new periodic crawler
func New(
	repo storage.Repository,
	dispatcher *source.Dispatcher,
	extractor Extractor,
	limiter *ratelimit.MultiLimiter,
	cfg config.CrawlerConfig,
	log *logger.Logger,
) *Crawler {
	if cfg.RequestDelay > 0 {
		// Politeness pacing between extractions within a batch
		limiter.AddLimiter(ratelimit.LimiterExtraction, 1/cfg.RequestDelay.Seconds(), 1)
	}
	return &Crawler{
		repo:       repo,
		dispatcher: dispatcher,
		extractor:  extractor,
		limiter:    limiter,
		cfg:        cfg,
		log:        log.WithComponent("crawler"),
	}
}

// Start installs the cron trigger. Idempotent: a warning no-op when the
// trigger is already installed.
func (c *Crawler) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cron != nil {
		c.log.Warn().Msg("Crawler is already scheduled")
		return nil
	}

	loc, err := time.LoadLocation(c.cfg.Timezone)
	if err != nil {
		return fmt.Errorf("invalid crawler timezone %q: %w", c.cfg.Timezone, err)
	}

	cr := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cron.DefaultLogger)),
	)
	_, err = cr.AddFunc(c.cfg.Schedule, func() {
		result, err := c.RunCycle(context.Background())
		if err != nil {
			if errors.Is(err, ErrCycleRunning) {
				c.log.Warn().Msg("Scheduled cycle skipped, previous cycle still running")
				return
			}
			c.log.Error().Err(err).Msg("Scheduled crawl cycle failed")
			return
		}
		c.log.Info().
			Int64("inserted", result.ArticlesInserted).
			Int("content_crawled", result.ContentCrawled).
			Dur("duration", result.Duration).
			Msg("Scheduled crawl cycle completed")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule crawl cycle: %w", err)
	}

	cr.Start()
	c.cron = cr
	c.log.Info().Str("cron", c.cfg.Schedule).Msg("Periodic crawler started")
	return nil
}

// Stop cancels future scheduled triggers. It does not abort a cycle
// that is currently running. Safe to call when not started.
func (c *Crawler) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cron == nil {
		return
	}
	c.cron.Stop()
	c.cron = nil
	c.log.Info().Msg("Periodic crawler stopped")
}

// Status returns an observable snapshot of the crawler
func (c *Crawler) Status() Status {
	c.mu.Lock()
	scheduled := c.cron != nil
	c.mu.Unlock()

	return Status{
		IsScheduled:         scheduled,
		IsRunning:           c.isRunning.Load(),
		Schedule:            c.cfg.Schedule,
		MaxArticlesPerCycle: c.cfg.MaxArticlesPerCycle,
		BatchSize:           c.cfg.BatchSize,
	}
}

// RunCycle executes one crawl cycle: fetch all sources, persist new
// articles, backfill missing content newest-first. Returns
// ErrCycleRunning when a cycle is already in flight. Step failures are
// collected in the result and never abort the remaining steps.
func (c *Crawler) RunCycle(ctx context.Context) (*CycleResult, error) {
	if !c.isRunning.CompareAndSwap(false, true) {
		return nil, ErrCycleRunning
	}
	defer c.isRunning.Store(false)

	startTime := time.Now()
	result := &CycleResult{}

	c.log.Info().Msg("Starting crawl cycle")

	if err := c.fetchAndSaveNewArticles(ctx, result); err != nil {
		c.log.Error().Err(err).Msg("Failed to fetch and save new articles")
		result.Errors = append(result.Errors, err)
	}

	if err := c.crawlMissingContent(ctx, result); err != nil {
		c.log.Error().Err(err).Msg("Failed to crawl missing content")
		result.Errors = append(result.Errors, err)
	}

	result.Duration = time.Since(startTime)
	c.log.Info().
		Int("fetched", result.ArticlesFetched).
		Int64("inserted", result.ArticlesInserted).
		Int("content_crawled", result.ContentCrawled).
		Int("errors", len(result.Errors)).
		Dur("duration", result.Duration).
		Msg("Crawl cycle completed")

	return result, nil
}

// fetchAndSaveNewArticles polls every active source and bulk-inserts
// the candidates, letting the store drop duplicate links.
func (c *Crawler) fetchAndSaveNewArticles(ctx context.Context, result *CycleResult) error {
	sources, err := c.repo.ListActiveSources(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active sources: %w", err)
	}
	if len(sources) == 0 {
		c.log.Warn().Msg("No active sources found")
		return nil
	}
	result.SourcesPolled = len(sources)

	candidates := c.dispatcher.FetchAll(ctx, sources)
	result.ArticlesFetched = len(candidates)

	articles := make([]*models.Article, 0, len(candidates))
	for _, cand := range candidates {
		if cand.Link == "" {
			continue
		}
		articles = append(articles, &models.Article{
			SourceID:    cand.SourceID,
			Title:       cand.Title,
			Link:        cand.Link,
			PublishedAt: cand.PublishedAt,
			Snippet:     cand.Snippet,
		})
	}
	if len(articles) == 0 {
		c.log.Info().Msg("No new candidate articles to insert")
		return nil
	}

	inserted, err := c.repo.InsertArticles(ctx, articles)
	if err != nil {
		return fmt.Errorf("failed to insert articles: %w", err)
	}
	result.ArticlesInserted = inserted

	c.log.Info().
		Int64("inserted", inserted).
		Int("fetched", len(articles)).
		Msg("Saved new articles")
	return nil
}

// crawlMissingContent backfills full content for articles that do not
// have it yet, newest first, in fixed-size batches.
func (c *Crawler) crawlMissingContent(ctx context.Context, result *CycleResult) error {
	missing, err := c.repo.FindMissingContent(ctx, c.cfg.MaxArticlesPerCycle)
	if err != nil {
		return fmt.Errorf("failed to select articles missing content: %w", err)
	}
	if len(missing) == 0 {
		c.log.Info().Msg("No articles need content crawling")
		return nil
	}

	c.log.Info().Int("count", len(missing)).Msg("Found articles without content")

	batchSize := c.cfg.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}
	for i := 0; i < len(missing); i += batchSize {
		end := i + batchSize
		if end > len(missing) {
			end = len(missing)
		}
		c.crawlContentBatch(ctx, missing[i:end], result)
	}

	return nil
}

// crawlContentBatch extracts content for a batch of articles. One
// failed extraction leaves that article's content null for a later
// retry and never aborts the rest of the batch.
func (c *Crawler) crawlContentBatch(ctx context.Context, batch []*models.Article, result *CycleResult) {
	for _, article := range batch {
		log := c.log.WithArticleID(article.ID).WithURL(article.Link)

		if article.Source == nil {
			log.Warn().Msg("Article has no source loaded, skipping content crawl")
			result.ContentSkipped++
			continue
		}

		contentSelector := article.Source.ContentSelector()
		if contentSelector == "" {
			// No selector means no extraction path; content stays
			// null permanently for this source.
			log.Info().Str("title", article.Title).Msg("Skipping content crawl, source has no content selector")
			result.ContentSkipped++
			continue
		}

		if err := c.limiter.Wait(ctx, ratelimit.LimiterExtraction); err != nil {
			log.Warn().Err(err).Msg("Rate limiter interrupted, stopping content crawl")
			return
		}

		log.Info().Str("title", article.Title).Msg("Scraping detail content")
		content := c.extractor.ExtractText(ctx, article.Link, contentSelector)
		if content == "" {
			log.Warn().Str("title", article.Title).Msg("No content found, keeping content null for retry")
			continue
		}

		if err := c.repo.UpdateContent(ctx, article.ID, content); err != nil {
			log.Error().Err(err).Msg("Failed to persist extracted content")
			result.Errors = append(result.Errors, err)
			continue
		}

		result.ContentCrawled++
		log.Info().
			Str("title", article.Title).
			Int("content_length", len(content)).
			Msg("Crawled content for article")
	}
}
