package storage

import (
	"context"
	"time"

	"github.com/newsdigest-agent/internal/models"
)

// Repository defines the interface for data persistence
type Repository interface {
	// Source registry
	ListActiveSources(ctx context.Context) ([]*models.Source, error)
	ListSources(ctx context.Context) ([]*models.Source, error)
	SaveSource(ctx context.Context, source *models.Source) error

	// Article operations
	// InsertArticles bulk-inserts candidates; duplicate links are
	// silently skipped. Returns the number of genuinely new rows.
	InsertArticles(ctx context.Context, articles []*models.Article) (int64, error)
	// FindMissingContent returns articles whose content is still null,
	// source preloaded, newest first (pub date desc, fetched_at desc).
	FindMissingContent(ctx context.Context, limit int) ([]*models.Article, error)
	// FindRecent returns articles published at or after since, newest
	// first, source preloaded.
	FindRecent(ctx context.Context, since time.Time) ([]*models.Article, error)
	UpdateContent(ctx context.Context, articleID uint, content string) error

	// Summary operations
	CreateSummary(ctx context.Context, summary *models.Summary) error

	// Maintenance
	Migrate() error
	Close() error
}
