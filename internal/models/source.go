package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// SourceKind represents how articles are acquired from a source
type SourceKind string

const (
	SourceKindFeed   SourceKind = "feed"
	SourceKindScrape SourceKind = "scrape"
)

// ListSelectors holds the CSS selectors used to extract candidate
// articles from a listing page
type ListSelectors struct {
	Container string `json:"container"`
	Title     string `json:"title"`
	Link      string `json:"link"`
	Snippet   string `json:"snippet,omitempty"`
}

// DetailSelectors holds the CSS selectors used on an article detail page
type DetailSelectors struct {
	Content string `json:"content"`
}

// ScrapeOptions holds the extraction configuration for a scrape source.
// Feed sources leave it nil.
type ScrapeOptions struct {
	List   *ListSelectors   `json:"list,omitempty"`
	Detail *DetailSelectors `json:"detail,omitempty"`
}

func (o ScrapeOptions) Value() (driver.Value, error) {
	return json.Marshal(o)
}

func (o *ScrapeOptions) Scan(value interface{}) error {
	if value == nil {
		*o = ScrapeOptions{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, o)
	case string:
		return json.Unmarshal([]byte(v), o)
	}
	return nil
}

// Source represents a configured origin of articles. Immutable after
// creation except IsActive.
type Source struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"not null" json:"name"`
	URL       string         `gorm:"not null" json:"url"`
	Kind      SourceKind     `gorm:"not null;index" json:"kind"`
	Options   *ScrapeOptions `gorm:"type:json" json:"options,omitempty"`
	IsActive  bool           `gorm:"default:true;index" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// ListSelectors returns the listing-page selectors, or nil when the
// source has no usable list configuration.
func (s *Source) ListSelectors() *ListSelectors {
	if s.Options == nil || s.Options.List == nil {
		return nil
	}
	if s.Options.List.Container == "" || s.Options.List.Title == "" || s.Options.List.Link == "" {
		return nil
	}
	return s.Options.List
}

// ContentSelector returns the detail-page content selector, or "" when
// the source has no extraction path. An empty selector means the
// article's content stays null permanently.
func (s *Source) ContentSelector() string {
	if s.Options == nil || s.Options.Detail == nil {
		return ""
	}
	return s.Options.Detail.Content
}
