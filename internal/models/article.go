package models

import (
	"strings"
	"time"
)

// CandidateArticle is a freshly fetched article before deduplication.
// Produced by the feed fetcher and the list scraper; never persisted
// directly.
type CandidateArticle struct {
	SourceID    uint
	Title       string
	Link        string
	PublishedAt time.Time
	Snippet     string
}

// Article represents a persisted article. Link uniquely identifies an
// article; inserting a duplicate link is a silent no-op. Content starts
// null and is filled at most once by a successful extraction.
type Article struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SourceID    uint      `gorm:"not null;index" json:"source_id"`
	Source      *Source   `gorm:"foreignKey:SourceID" json:"source,omitempty"`
	Title       string    `gorm:"not null" json:"title"`
	Link        string    `gorm:"uniqueIndex;not null" json:"link"`
	PublishedAt time.Time `gorm:"index" json:"published_at"`
	Snippet     string    `gorm:"type:text" json:"snippet"`
	Content     *string   `gorm:"type:text" json:"content"`
	FetchedAt   time.Time `gorm:"autoCreateTime" json:"fetched_at"`
}

// HasContent reports whether the article carries usable extracted text.
// Legacy placeholder values written by earlier versions count as absent.
func (a *Article) HasContent() bool {
	if a.Content == nil {
		return false
	}
	c := strings.TrimSpace(*a.Content)
	if c == "" {
		return false
	}
	switch c {
	case "No content available", "Content crawling failed":
		return false
	}
	return true
}

// ArticleView is the flattened shape handed to the summarizer
type ArticleView struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Content string `json:"content"`
	Link    string `json:"source_link"`
}

// View converts the article to its summarizer-facing shape. The snippet
// stands in for content when extraction has not happened yet.
func (a *Article) View() ArticleView {
	snippet := strings.TrimSpace(a.Snippet)
	content := snippet
	if a.HasContent() {
		content = strings.TrimSpace(*a.Content)
	}
	return ArticleView{
		Title:   a.Title,
		Snippet: snippet,
		Content: content,
		Link:    a.Link,
	}
}
