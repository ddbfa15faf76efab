package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/newsdigest-agent/internal/models"
	"github.com/newsdigest-agent/internal/source"
	"github.com/newsdigest-agent/pkg/logger"
)

// Fetcher implements source.Fetcher for feed sources (RSS/Atom)
type Fetcher struct {
	parser *gofeed.Parser
	log    *logger.Logger
}

// New creates a new feed fetcher
func New(log *logger.Logger) *Fetcher {
	return &Fetcher{
		parser: gofeed.NewParser(),
		log:    log.WithComponent("feed"),
	}
}

// Kind returns "feed"
func (f *Fetcher) Kind() models.SourceKind {
	return models.SourceKindFeed
}

// Fetch retrieves and parses the source's feed document. Entries
// without a link are dropped.
func (f *Fetcher) Fetch(ctx context.Context, src *models.Source) ([]*models.CandidateArticle, error) {
	log := f.log.WithSource(string(src.Kind), src.Name)
	log.Debug().Str("url", src.URL).Msg("Fetching feed source")

	parsed, err := f.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", src.Name, err)
	}

	candidates := make([]*models.CandidateArticle, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.Link == "" {
			continue
		}

		title := cleanText(item.Title)
		if title == "" {
			title = "No title"
		}

		publishedAt := time.Now()
		if item.PublishedParsed != nil {
			publishedAt = *item.PublishedParsed
		}

		candidates = append(candidates, &models.CandidateArticle{
			SourceID:    src.ID,
			Title:       title,
			Link:        item.Link,
			PublishedAt: publishedAt,
			Snippet:     cleanText(item.Description),
		})
	}

	log.Info().Int("count", len(candidates)).Msg("Fetched feed source")
	return candidates, nil
}

// cleanText removes HTML tags and extra whitespace
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "<br>", " ")
	text = strings.ReplaceAll(text, "<br/>", " ")
	text = strings.ReplaceAll(text, "<br />", " ")
	text = strings.ReplaceAll(text, "</p>", " ")
	text = strings.ReplaceAll(text, "<p>", "")

	// Remove remaining HTML tags
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
		} else if r == '>' {
			inTag = false
		} else if !inTag {
			result.WriteRune(r)
		}
	}

	text = result.String()
	text = strings.Join(strings.Fields(text), " ")
	return strings.TrimSpace(text)
}

// Ensure Fetcher implements source.Fetcher
var _ source.Fetcher = (*Fetcher)(nil)
