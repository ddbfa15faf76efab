package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/newsdigest-agent/internal/models"
	"github.com/newsdigest-agent/internal/source"
	"github.com/newsdigest-agent/pkg/logger"
)

// browserHeaders mimics a real browser. Some origins reject unlabeled
// clients outright.
var browserHeaders = map[string]string{
	"Accept":          "*/*",
	"Accept-Language": "en-US,en;q=0.9,vi;q=0.8",
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
}

// Fetcher implements source.Fetcher for listing-page scrape sources
type Fetcher struct {
	client *http.Client
	log    *logger.Logger
}

// New creates a new list scraper
func New(log *logger.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log.WithComponent("scrape"),
	}
}

// Kind returns "scrape"
func (f *Fetcher) Kind() models.SourceKind {
	return models.SourceKindScrape
}

// Fetch retrieves the source's listing page and extracts candidate
// articles with the configured selectors. A source without list
// selectors yields nothing; that is a configuration gap, not a fetch
// failure.
func (f *Fetcher) Fetch(ctx context.Context, src *models.Source) ([]*models.CandidateArticle, error) {
	log := f.log.WithSource(string(src.Kind), src.Name)

	selectors := src.ListSelectors()
	if selectors == nil {
		log.Warn().Msg("Scrape source is missing list selectors configuration")
		return nil, nil
	}

	log.Debug().Str("url", src.URL).Msg("Fetching scrape source")

	doc, err := f.fetchDocument(ctx, src.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing page for %s: %w", src.Name, err)
	}

	now := time.Now()
	var candidates []*models.CandidateArticle

	doc.Find(selectors.Container).Each(func(_ int, el *goquery.Selection) {
		title := strings.TrimSpace(el.Find(selectors.Title).Text())
		link, _ := el.Find(selectors.Link).Attr("href")
		link = strings.TrimSpace(link)

		snippet := ""
		if selectors.Snippet != "" {
			snippet = strings.TrimSpace(el.Find(selectors.Snippet).Text())
		}

		// Handle relative links (e.g. /so-hoa/san-pham.html)
		if link != "" && !strings.HasPrefix(link, "http") {
			link = resolveLink(src.URL, link)
		}

		if title == "" || link == "" {
			return
		}

		candidates = append(candidates, &models.CandidateArticle{
			SourceID: src.ID,
			Title:    title,
			Link:     link,
			// Listing pages rarely expose exact timestamps
			PublishedAt: now,
			Snippet:     snippet,
		})
	})

	log.Info().Int("count", len(candidates)).Msg("Fetched scrape source")
	return candidates, nil
}

func (f *Fetcher) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	for key, value := range browserHeaders {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return goquery.NewDocumentFromReader(resp.Body)
}

// resolveLink resolves a relative link against the source's base URL
func resolveLink(base, link string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil {
		return link
	}
	return baseURL.ResolveReference(ref).String()
}

// Ensure Fetcher implements source.Fetcher
var _ source.Fetcher = (*Fetcher)(nil)
