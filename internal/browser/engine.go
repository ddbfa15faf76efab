package browser

import (
	"context"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/newsdigest-agent/internal/config"
	"github.com/newsdigest-agent/pkg/logger"
)

// Engine is the shared content extraction engine. It owns a single
// headless Chrome instance, launched lazily on the first extraction and
// reused across calls to amortize the startup cost. Calls are
// serialized: at most one extraction runs at a time, and a caller
// arriving during launch waits for the in-flight launch instead of
// starting a second browser.
//
// Every per-call failure (navigation timeout, selector miss, crashed
// browser) is normalized to an empty string. A crashed browser is
// detected on the next call and transparently relaunched.
type Engine struct {
	cfg    config.BrowserConfig
	log    *logger.Logger
	launch launchFunc

	// mu serializes launch, extraction, and shutdown
	mu         sync.Mutex
	allocStop  context.CancelFunc
	browserCtx context.Context
	stop       context.CancelFunc
	closed     bool
}

// launchFunc starts a browser process and returns its context plus the
// browser and allocator cancel functions. Swappable in tests.
type launchFunc func(cfg config.BrowserConfig) (context.Context, context.CancelFunc, context.CancelFunc, error)

// New creates a new extraction engine. The browser is not started
// until the first ExtractText call.
func New(cfg config.BrowserConfig, log *logger.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		log:    log.WithComponent("browser"),
		launch: launchBrowser,
	}
}

// ExtractText navigates to url, queries contentSelector on the
// rendered page and returns the cleaned text of all matching elements.
// It returns "" when nothing matched or anything went wrong; callers
// treat empty as "not available now, retry later".
func (e *Engine) ExtractText(ctx context.Context, url, contentSelector string) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		e.log.Warn().Str("url", url).Msg("Extraction requested after engine shutdown")
		return ""
	}

	if err := e.ensureBrowser(); err != nil {
		e.log.Error().Err(err).Str("url", url).Msg("Failed to launch browser")
		return ""
	}

	// Each call gets a short-lived tab that is always released,
	// while the browser instance itself is kept for the next call.
	tabCtx, closeTab := chromedp.NewContext(e.browserCtx)
	defer closeTab()

	navCtx, cancel := context.WithTimeout(tabCtx, e.cfg.NavigationTimeout)
	defer cancel()

	var html string
	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		e.log.Error().Err(err).Str("url", url).Msg("Failed to scrape detail content")
		if e.browserCtx.Err() != nil {
			// The browser itself died, not just this tab. Tear it
			// down so the next call relaunches.
			e.teardownLocked()
		}
		return ""
	}

	content := extractSelectorText(html, contentSelector)
	content = cleanContent(content, e.cfg.MaxContentLength)

	e.log.Info().
		Str("url", url).
		Int("length", len(content)).
		Msg("Scraped detail content")
	return content
}

// ensureBrowser launches the browser if it is not running, or
// relaunches it after a crash. Caller must hold e.mu.
func (e *Engine) ensureBrowser() error {
	if e.browserCtx != nil && e.browserCtx.Err() == nil {
		return nil
	}

	if e.browserCtx != nil {
		e.log.Warn().Msg("Browser instance is gone, relaunching")
		e.teardownLocked()
	}

	e.log.Info().Msg("Launching headless browser")

	browserCtx, stop, allocStop, err := e.launch(e.cfg)
	if err != nil {
		return err
	}

	e.browserCtx = browserCtx
	e.stop = stop
	e.allocStop = allocStop

	e.log.Info().Msg("Browser ready")
	return nil
}

func launchBrowser(cfg config.BrowserConfig) (context.Context, context.CancelFunc, context.CancelFunc, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.UserAgent(cfg.UserAgent),
	)
	if !cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	allocCtx, allocStop := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, stop := chromedp.NewContext(allocCtx)

	// Start the browser process now so launch failures surface here
	// instead of on the first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		stop()
		allocStop()
		return nil, nil, nil, err
	}

	return browserCtx, stop, allocStop, nil
}

// teardownLocked releases the browser. Caller must hold e.mu.
func (e *Engine) teardownLocked() {
	if e.stop != nil {
		e.stop()
		e.stop = nil
	}
	if e.allocStop != nil {
		e.allocStop()
		e.allocStop = nil
	}
	e.browserCtx = nil
}

// Close shuts the engine down. Idempotent: a no-op when nothing is
// running. Used only at process teardown.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true

	if e.browserCtx != nil {
		e.log.Info().Msg("Closing browser instance")
		e.teardownLocked()
	}
}

// extractSelectorText joins the text of all selector matches on the
// page, newline-separated, dropping empty matches. A selector miss
// yields "".
func extractSelectorText(html, selector string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	var parts []string
	doc.Find(selector).Each(func(_ int, el *goquery.Selection) {
		if text := strings.TrimSpace(el.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n")
}

// cleanContent truncates to maxLength and collapses whitespace runs
// into single spaces.
func cleanContent(content string, maxLength int) string {
	if maxLength > 0 {
		runes := []rune(content)
		if len(runes) > maxLength {
			content = string(runes[:maxLength])
		}
	}
	return strings.Join(strings.Fields(content), " ")
}
