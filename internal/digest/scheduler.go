package digest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/newsdigest-agent/internal/config"
	"github.com/newsdigest-agent/pkg/logger"
)

// Scheduler delivers the digest to the sink on a fixed schedule,
// independent of the crawl schedule. Generation or delivery failures
// are logged and never prevent the next scheduled run.
type Scheduler struct {
	job       *Job
	sink      Sink
	maxLength int
	cfg       config.DigestConfig
	log       *logger.Logger

	mu   sync.Mutex // guards cron
	cron *cron.Cron
}

// NewScheduler creates a new digest scheduler
func NewScheduler(job *Job, sink Sink, maxLength int, cfg config.DigestConfig, log *logger.Logger) *Scheduler {
	return &Scheduler{
		job:       job,
		sink:      sink,
		maxLength: maxLength,
		cfg:       cfg,
		log:       log.WithComponent("digest-scheduler"),
	}
}

// Start installs the cron trigger. Idempotent.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		s.log.Warn().Msg("Digest scheduler is already running")
		return nil
	}

	loc, err := time.LoadLocation(s.cfg.Timezone)
	if err != nil {
		return fmt.Errorf("invalid digest timezone %q: %w", s.cfg.Timezone, err)
	}

	cr := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cron.DefaultLogger)),
	)
	_, err = cr.AddFunc(s.cfg.Schedule, func() {
		s.log.Info().Msg("Digest cron triggered")
		if err := s.Deliver(context.Background()); err != nil {
			s.log.Error().Err(err).Msg("Scheduled digest delivery failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule digest job: %w", err)
	}

	cr.Start()
	s.cron = cr
	s.log.Info().Str("cron", s.cfg.Schedule).Msg("Digest scheduler started")
	return nil
}

// Stop cancels future scheduled deliveries. Safe when not started.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}
	s.cron.Stop()
	s.cron = nil
	s.log.Info().Msg("Digest scheduler stopped")
}

// Deliver generates the digest and sends it to the sink in ordered,
// size-bounded chunks. A digest of "" means nothing usable existed and
// no message is sent.
func (s *Scheduler) Deliver(ctx context.Context) error {
	text, err := s.job.Run(ctx)
	if err != nil {
		return fmt.Errorf("digest generation failed: %w", err)
	}
	if text == "" {
		s.log.Warn().Msg("No digest generated, skipping delivery")
		return nil
	}

	chunks := SplitMessage(text, s.maxLength)
	if err := s.sink.Send(ctx, chunks); err != nil {
		return fmt.Errorf("digest delivery failed: %w", err)
	}

	s.log.Info().Int("chunks", len(chunks)).Msg("Digest delivered")
	return nil
}
