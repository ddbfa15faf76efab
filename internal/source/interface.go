package source

import (
	"context"

	"github.com/newsdigest-agent/internal/models"
	"github.com/newsdigest-agent/pkg/logger"
)

// Fetcher retrieves candidate articles for a single source definition
type Fetcher interface {
	// Kind returns the source kind this fetcher handles (feed, scrape)
	Kind() models.SourceKind

	// Fetch retrieves candidate articles from the source. A nil slice
	// with a nil error means the source legitimately produced nothing.
	Fetch(ctx context.Context, src *models.Source) ([]*models.CandidateArticle, error)
}

// Dispatcher routes source definitions to the fetcher registered for
// their kind. Fetch failures are logged and degraded to empty results
// so one broken source never aborts a crawl cycle.
type Dispatcher struct {
	fetchers map[models.SourceKind]Fetcher
	log      *logger.Logger
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		fetchers: make(map[models.SourceKind]Fetcher),
		log:      log.WithComponent("source"),
	}
}

// Register adds a fetcher for its kind
func (d *Dispatcher) Register(f Fetcher) {
	d.fetchers[f.Kind()] = f
}

// FetchAll fetches candidate articles from every source in order.
// Unknown kinds are logged and skipped.
func (d *Dispatcher) FetchAll(ctx context.Context, sources []*models.Source) []*models.CandidateArticle {
	var all []*models.CandidateArticle

	for _, src := range sources {
		fetcher, ok := d.fetchers[src.Kind]
		if !ok {
			d.log.Warn().
				Str("source_name", src.Name).
				Str("kind", string(src.Kind)).
				Msg("Unknown source kind, skipping")
			continue
		}

		candidates, err := fetcher.Fetch(ctx, src)
		if err != nil {
			d.log.Error().
				Err(err).
				Str("source_name", src.Name).
				Msg("Failed to fetch source")
			continue
		}
		all = append(all, candidates...)
	}

	d.log.Info().Int("count", len(all)).Msg("Fetched candidate articles from all sources")
	return all
}
