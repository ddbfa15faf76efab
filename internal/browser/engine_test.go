package browser

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsdigest-agent/internal/config"
	"github.com/newsdigest-agent/pkg/logger"
)

const detailPage = `<html><body>
  <article class="fck_detail">
    <p>  First paragraph.  </p>
  </article>
  <article class="fck_detail">Second   block.</article>
  <article class="fck_detail">   </article>
  <div class="sidebar">ignored</div>
</body></html>`

func TestExtractSelectorTextJoinsMatches(t *testing.T) {
	text := extractSelectorText(detailPage, "article.fck_detail")

	parts := strings.Split(text, "\n")
	assert.Len(t, parts, 2, "empty matches are dropped")
	assert.Contains(t, parts[0], "First paragraph.")
	assert.Contains(t, parts[1], "Second   block.")
}

func TestExtractSelectorTextMissReturnsEmpty(t *testing.T) {
	assert.Empty(t, extractSelectorText(detailPage, "div.article-body"),
		"a selector miss signals nothing found, not an error")
}

func TestCleanContentCollapsesWhitespaceAndTruncates(t *testing.T) {
	content := "word1   word2\n\n\tword3 " + strings.Repeat("filler ", 50)

	cleaned := cleanContent(content, 20)

	assert.LessOrEqual(t, len(cleaned), 20, "truncation happens before whitespace collapse")
	assert.True(t, strings.HasPrefix(cleaned, "word1 word2"))
	assert.NotContains(t, cleaned, "  ")
}

func TestCleanContentNoLimit(t *testing.T) {
	assert.Equal(t, "a b", cleanContent("a\n\nb", 0))
}

func TestCrashedBrowserIsRelaunched(t *testing.T) {
	launches := 0
	var killBrowser context.CancelFunc

	engine := New(config.BrowserConfig{}, logger.Nop())
	engine.launch = func(cfg config.BrowserConfig) (context.Context, context.CancelFunc, context.CancelFunc, error) {
		launches++
		ctx, cancel := context.WithCancel(context.Background())
		killBrowser = cancel
		return ctx, cancel, func() {}, nil
	}

	engine.mu.Lock()
	defer engine.mu.Unlock()

	require.NoError(t, engine.ensureBrowser())
	assert.Equal(t, 1, launches)

	// A healthy instance is reused across calls
	require.NoError(t, engine.ensureBrowser())
	assert.Equal(t, 1, launches)

	// Kill the browser; the next call must tear down and relaunch
	killBrowser()
	require.NoError(t, engine.ensureBrowser())
	assert.Equal(t, 2, launches)
	require.NotNil(t, engine.browserCtx)
	assert.NoError(t, engine.browserCtx.Err(), "the relaunched instance is live")
}

func TestCloseIsIdempotent(t *testing.T) {
	engine := New(config.BrowserConfig{}, logger.Nop())

	// No browser was ever launched; Close must be a no-op both times
	engine.Close()
	engine.Close()
}

func TestExtractAfterCloseReturnsEmpty(t *testing.T) {
	engine := New(config.BrowserConfig{}, logger.Nop())
	engine.Close()

	assert.Empty(t, engine.ExtractText(context.Background(), "http://example.com", "article"))
}
