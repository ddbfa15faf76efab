package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsdigest-agent/internal/models"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:")
	require.NoError(t, err)
	require.NoError(t, repo.Migrate())
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedSource(t *testing.T, repo *Repository, name string, active bool) *models.Source {
	t.Helper()
	src := &models.Source{
		Name:     name,
		URL:      "http://example.com/" + name,
		Kind:     models.SourceKindFeed,
		IsActive: true,
	}
	require.NoError(t, repo.SaveSource(context.Background(), src))
	if !active {
		// Deactivation is an update; creating with false would be
		// overridden by the column default.
		src.IsActive = false
		require.NoError(t, repo.SaveSource(context.Background(), src))
	}
	return src
}

func TestInsertArticlesIgnoresDuplicateLinks(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	src := seedSource(t, repo, "feed", true)

	now := time.Now()
	first := []*models.Article{
		{SourceID: src.ID, Title: "a", Link: "http://a.com/1", PublishedAt: now},
		{SourceID: src.ID, Title: "b", Link: "http://a.com/2", PublishedAt: now},
	}
	count, err := repo.InsertArticles(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// Second batch overlaps on one link
	second := []*models.Article{
		{SourceID: src.ID, Title: "b again", Link: "http://a.com/2", PublishedAt: now},
		{SourceID: src.ID, Title: "c", Link: "http://a.com/3", PublishedAt: now},
	}
	count, err = repo.InsertArticles(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "inserted count reflects only genuinely new links")

	missing, err := repo.FindMissingContent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, missing, 3, "duplicate link insertion is a no-op, not an error")
}

func TestInsertArticlesEmptySlice(t *testing.T) {
	repo := newTestRepo(t)
	count, err := repo.InsertArticles(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestFindMissingContentOrdering(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	src := seedSource(t, repo, "feed", true)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	content := "already extracted"
	articles := []*models.Article{
		{SourceID: src.ID, Title: "oldest", Link: "http://a.com/old", PublishedAt: base.Add(-2 * time.Hour), FetchedAt: base},
		{SourceID: src.ID, Title: "newest", Link: "http://a.com/new", PublishedAt: base, FetchedAt: base},
		{SourceID: src.ID, Title: "tie-late-fetch", Link: "http://a.com/tie2", PublishedAt: base.Add(-time.Hour), FetchedAt: base.Add(time.Minute)},
		{SourceID: src.ID, Title: "tie-early-fetch", Link: "http://a.com/tie1", PublishedAt: base.Add(-time.Hour), FetchedAt: base},
		{SourceID: src.ID, Title: "has-content", Link: "http://a.com/done", PublishedAt: base.Add(time.Hour), FetchedAt: base, Content: &content},
	}
	_, err := repo.InsertArticles(ctx, articles)
	require.NoError(t, err)

	missing, err := repo.FindMissingContent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, missing, 4, "articles with content are excluded")

	titles := []string{missing[0].Title, missing[1].Title, missing[2].Title, missing[3].Title}
	assert.Equal(t, []string{"newest", "tie-late-fetch", "tie-early-fetch", "oldest"}, titles,
		"ordered by published desc, ties broken by fetched_at desc")

	require.NotNil(t, missing[0].Source, "source is preloaded for selector resolution")
	assert.Equal(t, src.ID, missing[0].Source.ID)
}

func TestFindMissingContentLimit(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	src := seedSource(t, repo, "feed", true)

	base := time.Now()
	for i := 0; i < 5; i++ {
		_, err := repo.InsertArticles(ctx, []*models.Article{{
			SourceID:    src.ID,
			Title:       "article",
			Link:        "http://a.com/" + string(rune('a'+i)),
			PublishedAt: base.Add(time.Duration(i) * time.Minute),
		}})
		require.NoError(t, err)
	}

	missing, err := repo.FindMissingContent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, missing, 3)
}

func TestUpdateContent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	src := seedSource(t, repo, "feed", true)

	_, err := repo.InsertArticles(ctx, []*models.Article{
		{SourceID: src.ID, Title: "a", Link: "http://a.com/1", PublishedAt: time.Now()},
	})
	require.NoError(t, err)

	missing, err := repo.FindMissingContent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, missing, 1)

	require.NoError(t, repo.UpdateContent(ctx, missing[0].ID, "extracted body"))

	missing, err = repo.FindMissingContent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, missing, "content-bearing articles no longer need backfill")
}

func TestFindRecentWindow(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	src := seedSource(t, repo, "feed", true)

	now := time.Now()
	_, err := repo.InsertArticles(ctx, []*models.Article{
		{SourceID: src.ID, Title: "fresh", Link: "http://a.com/fresh", PublishedAt: now.Add(-time.Hour)},
		{SourceID: src.ID, Title: "stale", Link: "http://a.com/stale", PublishedAt: now.Add(-48 * time.Hour)},
	})
	require.NoError(t, err)

	recent, err := repo.FindRecent(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "fresh", recent[0].Title)
}

func TestListActiveSources(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	seedSource(t, repo, "active", true)
	seedSource(t, repo, "disabled", false)

	active, err := repo.ListActiveSources(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "active", active[0].Name)

	all, err := repo.ListSources(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
