package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/newsdigest-agent/internal/config"
	"github.com/newsdigest-agent/internal/models"
	"github.com/newsdigest-agent/internal/storage"
	"github.com/newsdigest-agent/pkg/logger"
)

// Job generates the digest text from recently crawled articles. It
// does no crawling itself: content is expected to be backfilled by the
// periodic crawler.
type Job struct {
	repo       storage.Repository
	summarizer Summarizer
	cfg        config.DigestConfig
	log        *logger.Logger
}

// NewJob creates a new digest job
func NewJob(repo storage.Repository, summarizer Summarizer, cfg config.DigestConfig, log *logger.Logger) *Job {
	return &Job{
		repo:       repo,
		summarizer: summarizer,
		cfg:        cfg,
		log:        log.WithComponent("digest"),
	}
}

// Run produces the formatted digest for the recent window. It returns
// "" when there are no content-bearing articles to summarize: the
// caller skips delivery rather than sending an empty message.
func (j *Job) Run(ctx context.Context) (string, error) {
	since := time.Now().Add(-j.cfg.RecentWindow)
	recent, err := j.repo.FindRecent(ctx, since)
	if err != nil {
		return "", fmt.Errorf("failed to select recent articles: %w", err)
	}
	if len(recent) == 0 {
		j.log.Warn().Msg("No recent articles found for digest generation")
		return "", nil
	}

	// Only articles the periodic crawler has filled content for
	withContent := make([]*models.Article, 0, len(recent))
	for _, article := range recent {
		if article.HasContent() {
			withContent = append(withContent, article)
		}
	}
	if len(withContent) == 0 {
		j.log.Warn().Msg("No recent articles with content found, crawler may need more time")
		return "", nil
	}
	if j.cfg.MaxArticles > 0 && len(withContent) > j.cfg.MaxArticles {
		withContent = withContent[:j.cfg.MaxArticles]
	}

	j.log.Info().
		Int("with_content", len(withContent)).
		Int("recent", len(recent)).
		Msg("Generating digest from recent articles")

	views := make([]models.ArticleView, 0, len(withContent))
	articleIDs := make(models.UintSlice, 0, len(withContent))
	for _, article := range withContent {
		views = append(views, article.View())
		articleIDs = append(articleIDs, article.ID)
	}

	daily, err := j.summarizer.Summarize(ctx, views)
	if err != nil {
		return "", fmt.Errorf("failed to summarize articles: %w", err)
	}
	if daily == nil {
		j.log.Warn().Msg("Summarizer produced no digest")
		return "", nil
	}

	text := daily.Format()

	if err := j.repo.CreateSummary(ctx, &models.Summary{
		Content:    text,
		ArticleIDs: articleIDs,
	}); err != nil {
		// Persistence of the summary record is best effort; the
		// digest itself is still delivered.
		j.log.Error().Err(err).Msg("Failed to persist summary record")
	}

	return text, nil
}
