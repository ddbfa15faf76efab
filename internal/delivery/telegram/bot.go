package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/newsdigest-agent/internal/config"
	"github.com/newsdigest-agent/internal/crawler"
	"github.com/newsdigest-agent/internal/digest"
	"github.com/newsdigest-agent/pkg/logger"
	"github.com/newsdigest-agent/pkg/ratelimit"
)

// Bot is the Telegram delivery channel. It implements digest.Sink for
// scheduled digests and exposes operator commands for the crawler.
type Bot struct {
	api       *tgbotapi.BotAPI
	chatID    int64
	maxLength int
	limiter   *ratelimit.MultiLimiter
	log       *logger.Logger

	crawler   *crawler.Crawler
	digestJob *digest.Job
}

// New creates a new Telegram bot
func New(cfg config.TelegramConfig, cr *crawler.Crawler, job *digest.Job, limiter *ratelimit.MultiLimiter, log *logger.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &Bot{
		api:       api,
		chatID:    cfg.ChatID,
		maxLength: cfg.MaxMessageLength,
		limiter:   limiter,
		log:       log.WithComponent("telegram"),
		crawler:   cr,
		digestJob: job,
	}, nil
}

// Send delivers ordered digest chunks to the configured chat
func (b *Bot) Send(ctx context.Context, chunks []string) error {
	for _, chunk := range chunks {
		if err := b.sendTo(ctx, b.chatID, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) sendTo(ctx context.Context, chatID int64, text string) error {
	if err := b.limiter.Wait(ctx, ratelimit.LimiterTelegram); err != nil {
		return fmt.Errorf("rate limit error: %w", err)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true

	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// Listen starts long polling for operator commands and blocks until
// ctx is cancelled.
func (b *Bot) Listen(ctx context.Context) {
	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	updates := b.api.GetUpdatesChan(updateCfg)

	b.log.Info().Str("username", b.api.Self.UserName).Msg("Telegram bot listening for commands")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	chatID := update.Message.Chat.ID
	text := update.Message.Text

	switch {
	case strings.HasPrefix(text, "/ping"):
		b.reply(ctx, chatID, "Pong!")
	case strings.HasPrefix(text, "/news"):
		b.handleNewsCommand(ctx, chatID)
	case strings.HasPrefix(text, "/crawler_status"):
		b.handleCrawlerStatusCommand(ctx, chatID)
	case strings.HasPrefix(text, "/crawler_run"):
		b.handleCrawlerRunCommand(ctx, chatID)
	}
}

// handleNewsCommand generates the digest on demand and sends it to the
// requesting chat
func (b *Bot) handleNewsCommand(ctx context.Context, chatID int64) {
	text, err := b.digestJob.Run(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("On-demand digest generation failed")
		b.reply(ctx, chatID, "Digest generation failed, check the logs.")
		return
	}
	if text == "" {
		b.reply(ctx, chatID, "No articles with content found yet. The periodic crawler may need more time.")
		return
	}

	for _, chunk := range digest.SplitMessage(text, b.maxLength) {
		if err := b.sendTo(ctx, chatID, chunk); err != nil {
			b.log.Error().Err(err).Msg("Failed to deliver on-demand digest chunk")
			return
		}
	}
}

func (b *Bot) handleCrawlerStatusCommand(ctx context.Context, chatID int64) {
	status := b.crawler.Status()
	b.reply(ctx, chatID, fmt.Sprintf(
		"Crawler status\nRunning: %v\nScheduled: %v\nSchedule: %s\nMax articles per cycle: %d\nBatch size: %d",
		status.IsRunning,
		status.IsScheduled,
		status.Schedule,
		status.MaxArticlesPerCycle,
		status.BatchSize,
	))
}

func (b *Bot) handleCrawlerRunCommand(ctx context.Context, chatID int64) {
	b.reply(ctx, chatID, "Running crawler cycle...")

	result, err := b.crawler.RunCycle(ctx)
	if err != nil {
		if errors.Is(err, crawler.ErrCycleRunning) {
			b.reply(ctx, chatID, "A crawl cycle is already running.")
			return
		}
		b.reply(ctx, chatID, fmt.Sprintf("Crawler cycle failed: %v", err))
		return
	}

	b.reply(ctx, chatID, fmt.Sprintf(
		"Crawler cycle completed: %d fetched, %d inserted, %d content crawled, %d errors.",
		result.ArticlesFetched,
		result.ArticlesInserted,
		result.ContentCrawled,
		len(result.Errors),
	))
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.sendTo(ctx, chatID, text); err != nil {
		b.log.Error().Err(err).Msg("Failed to send telegram reply")
	}
}

// Ensure Bot implements digest.Sink
var _ digest.Sink = (*Bot)(nil)
