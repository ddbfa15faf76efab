package crawler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsdigest-agent/internal/config"
	"github.com/newsdigest-agent/internal/models"
	"github.com/newsdigest-agent/internal/source"
	"github.com/newsdigest-agent/pkg/logger"
	"github.com/newsdigest-agent/pkg/ratelimit"
)

type fakeRepo struct {
	mu             sync.Mutex
	sources        []*models.Source
	missing        []*models.Article
	inserted       []*models.Article
	contentUpdates map[uint]string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{contentUpdates: make(map[uint]string)}
}

func (f *fakeRepo) ListActiveSources(ctx context.Context) ([]*models.Source, error) {
	return f.sources, nil
}
func (f *fakeRepo) ListSources(ctx context.Context) ([]*models.Source, error)   { return f.sources, nil }
func (f *fakeRepo) SaveSource(ctx context.Context, source *models.Source) error { return nil }

func (f *fakeRepo) InsertArticles(ctx context.Context, articles []*models.Article) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, articles...)
	return int64(len(articles)), nil
}

func (f *fakeRepo) FindMissingContent(ctx context.Context, limit int) ([]*models.Article, error) {
	if limit > 0 && len(f.missing) > limit {
		return f.missing[:limit], nil
	}
	return f.missing, nil
}

func (f *fakeRepo) FindRecent(ctx context.Context, since time.Time) ([]*models.Article, error) {
	return nil, nil
}

func (f *fakeRepo) UpdateContent(ctx context.Context, articleID uint, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contentUpdates[articleID] = content
	return nil
}

func (f *fakeRepo) CreateSummary(ctx context.Context, summary *models.Summary) error { return nil }
func (f *fakeRepo) Migrate() error                                                   { return nil }
func (f *fakeRepo) Close() error                                                     { return nil }

type fakeExtractor struct {
	mu      sync.Mutex
	results map[string]string
	calls   []string
	block   chan struct{} // when set, ExtractText blocks until closed
}

func (f *fakeExtractor) ExtractText(ctx context.Context, url, contentSelector string) string {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return f.results[url]
}

func (f *fakeExtractor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type stubFetcher struct {
	kind       models.SourceKind
	candidates []*models.CandidateArticle
}

func (s *stubFetcher) Kind() models.SourceKind { return s.kind }
func (s *stubFetcher) Fetch(ctx context.Context, src *models.Source) ([]*models.CandidateArticle, error) {
	return s.candidates, nil
}

func crawlerConfig() config.CrawlerConfig {
	return config.CrawlerConfig{
		Schedule:            "*/30 * * * *",
		Timezone:            "UTC",
		MaxArticlesPerCycle: 30,
		BatchSize:           1,
		RequestDelay:        time.Millisecond,
	}
}

func scrapeSourceWithSelector() *models.Source {
	return &models.Source{
		ID:   1,
		Name: "scrape-src",
		URL:  "http://example.com",
		Kind: models.SourceKindScrape,
		Options: &models.ScrapeOptions{
			Detail: &models.DetailSelectors{Content: "article.fck_detail"},
		},
		IsActive: true,
	}
}

func newTestCrawler(repo *fakeRepo, extractor Extractor, fetchers ...source.Fetcher) *Crawler {
	dispatcher := source.NewDispatcher(logger.Nop())
	for _, f := range fetchers {
		dispatcher.Register(f)
	}
	return New(repo, dispatcher, extractor, ratelimit.NewMultiLimiter(), crawlerConfig(), logger.Nop())
}

func TestRunCyclePersistsCandidates(t *testing.T) {
	repo := newFakeRepo()
	repo.sources = []*models.Source{{ID: 1, Name: "feed", Kind: models.SourceKindFeed, IsActive: true}}

	fetcher := &stubFetcher{kind: models.SourceKindFeed, candidates: []*models.CandidateArticle{
		{SourceID: 1, Title: "one", Link: "http://a.com/1", PublishedAt: time.Now()},
		{SourceID: 1, Title: "linkless", Link: "", PublishedAt: time.Now()},
		{SourceID: 1, Title: "two", Link: "http://a.com/2", PublishedAt: time.Now()},
	}}

	c := newTestCrawler(repo, &fakeExtractor{}, fetcher)
	result, err := c.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, result.ArticlesFetched)
	assert.Equal(t, int64(2), result.ArticlesInserted, "candidates without a link are never stored")
	require.Len(t, repo.inserted, 2)
	assert.Nil(t, repo.inserted[0].Content, "content starts null")
}

func TestRunCycleReentrancyGuard(t *testing.T) {
	repo := newFakeRepo()
	src := scrapeSourceWithSelector()
	repo.missing = []*models.Article{{ID: 10, Title: "slow", Link: "http://a.com/slow", Source: src}}

	block := make(chan struct{})
	extractor := &fakeExtractor{block: block, results: map[string]string{}}
	c := newTestCrawler(repo, extractor)

	done := make(chan error, 1)
	go func() {
		_, err := c.RunCycle(context.Background())
		done <- err
	}()

	// Wait for the first cycle to reach the blocking extraction
	require.Eventually(t, func() bool { return c.Status().IsRunning }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return extractor.callCount() == 1 }, time.Second, time.Millisecond)

	// An overlapping trigger returns immediately without a second pass
	_, err := c.RunCycle(context.Background())
	assert.ErrorIs(t, err, ErrCycleRunning)
	assert.Equal(t, 1, extractor.callCount())

	close(block)
	require.NoError(t, <-done)
	assert.False(t, c.Status().IsRunning, "the running flag is always reset")

	// With the first cycle finished, a new cycle may run again
	_, err = c.RunCycle(context.Background())
	assert.NoError(t, err)
}

func TestExtractionFailureDoesNotAbortBatch(t *testing.T) {
	repo := newFakeRepo()
	src := scrapeSourceWithSelector()
	repo.missing = []*models.Article{
		{ID: 1, Title: "fails", Link: "http://a.com/fails", Source: src},
		{ID: 2, Title: "works", Link: "http://a.com/works", Source: src},
	}

	extractor := &fakeExtractor{results: map[string]string{
		"http://a.com/fails": "",
		"http://a.com/works": "full article text",
	}}

	c := newTestCrawler(repo, extractor)
	result, err := c.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, extractor.callCount(), "a failed extraction must not abort the batch")
	assert.Equal(t, 1, result.ContentCrawled)
	assert.Equal(t, "full article text", repo.contentUpdates[2])
	_, updated := repo.contentUpdates[1]
	assert.False(t, updated, "failed extraction leaves content null for retry")
}

func TestArticlesWithoutSelectorAreSkipped(t *testing.T) {
	repo := newFakeRepo()
	feedSrc := &models.Source{ID: 3, Name: "plain-feed", Kind: models.SourceKindFeed}
	repo.missing = []*models.Article{{ID: 5, Title: "no path", Link: "http://a.com/5", Source: feedSrc}}

	extractor := &fakeExtractor{}
	c := newTestCrawler(repo, extractor)
	result, err := c.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, extractor.callCount(), "no selector means no extraction path")
	assert.Equal(t, 1, result.ContentSkipped)
}

func TestRunCycleWithNoActiveSources(t *testing.T) {
	repo := newFakeRepo()
	c := newTestCrawler(repo, &fakeExtractor{})

	result, err := c.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, result.SourcesPolled)
	assert.Empty(t, result.Errors)
}

func TestStartIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	c := newTestCrawler(repo, &fakeExtractor{})

	require.NoError(t, c.Start())
	assert.True(t, c.Status().IsScheduled)
	require.NoError(t, c.Start(), "second start is a warning no-op")

	c.Stop()
	assert.False(t, c.Status().IsScheduled)
	c.Stop() // safe when not started
}
