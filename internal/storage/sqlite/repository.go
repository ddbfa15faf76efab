package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/newsdigest-agent/internal/models"
	"github.com/newsdigest-agent/internal/storage"
)

// Repository implements storage.Repository using SQLite
type Repository struct {
	db *gorm.DB
}

// New creates a new SQLite repository
func New(dsn string) (*Repository, error) {
	// Ensure directory exists
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Repository{db: db}, nil
}

// Migrate runs database migrations
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(
		&models.Source{},
		&models.Article{},
		&models.Summary{},
	)
}

// Close closes the database connection
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Source registry

func (r *Repository) ListActiveSources(ctx context.Context) ([]*models.Source, error) {
	var sources []*models.Source
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Find(&sources).Error; err != nil {
		return nil, err
	}
	return sources, nil
}

func (r *Repository) ListSources(ctx context.Context) ([]*models.Source, error) {
	var sources []*models.Source
	if err := r.db.WithContext(ctx).Find(&sources).Error; err != nil {
		return nil, err
	}
	return sources, nil
}

func (r *Repository) SaveSource(ctx context.Context, source *models.Source) error {
	return r.db.WithContext(ctx).Save(source).Error
}

// Article operations

func (r *Repository) InsertArticles(ctx context.Context, articles []*models.Article) (int64, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "link"}},
			DoNothing: true,
		}).
		Create(&articles)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *Repository) FindMissingContent(ctx context.Context, limit int) ([]*models.Article, error) {
	var articles []*models.Article
	query := r.db.WithContext(ctx).
		Where("content IS NULL").
		Order("published_at DESC").
		Order("fetched_at DESC").
		Preload("Source")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&articles).Error; err != nil {
		return nil, err
	}
	return articles, nil
}

func (r *Repository) FindRecent(ctx context.Context, since time.Time) ([]*models.Article, error) {
	var articles []*models.Article
	if err := r.db.WithContext(ctx).
		Where("published_at >= ?", since).
		Order("published_at DESC").
		Preload("Source").
		Find(&articles).Error; err != nil {
		return nil, err
	}
	return articles, nil
}

func (r *Repository) UpdateContent(ctx context.Context, articleID uint, content string) error {
	return r.db.WithContext(ctx).
		Model(&models.Article{}).
		Where("id = ?", articleID).
		Update("content", content).Error
}

// Summary operations

func (r *Repository) CreateSummary(ctx context.Context, summary *models.Summary) error {
	return r.db.WithContext(ctx).Create(summary).Error
}

// Ensure Repository implements storage.Repository
var _ storage.Repository = (*Repository)(nil)
