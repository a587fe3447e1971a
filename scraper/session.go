package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-reviews/config"
	"github.com/aluiziolira/go-scrape-reviews/driver"
	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/aluiziolira/go-scrape-reviews/parser"
	"github.com/aluiziolira/go-scrape-reviews/pipeline"
)

// Session scrapes every review of one listing into one sink.
type Session struct {
	cfg      *config.Config
	launcher driver.Launcher
	sink     *pipeline.Sink
	rule     *parser.Rule
	Metrics  *Metrics

	seenIDs    []string
	prior      *models.SessionProgress
	onProgress func(models.SessionProgress)
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// Option customises a Session.
type Option func(*Session)

// WithRule replaces the default extraction rule.
func WithRule(rule *parser.Rule) Option {
	return func(s *Session) { s.rule = rule }
}

// WithMetrics shares a metrics instance between sessions.
func WithMetrics(m *Metrics) Option {
	return func(s *Session) { s.Metrics = m }
}

// WithProgress registers a callback invoked after every checkpoint.
func WithProgress(fn func(models.SessionProgress)) Option {
	return func(s *Session) { s.onProgress = fn }
}

// WithResume seeds the session with what a previous run already wrote.
func WithResume(state *pipeline.ResumeState) Option {
	return func(s *Session) {
		if state == nil {
			return
		}
		s.seenIDs = state.SeenIDs
		s.prior = state.Progress
	}
}

// NewSession validates cfg and builds a session that writes into sink.
func NewSession(cfg *config.Config, launcher driver.Launcher, sink *pipeline.Sink, opts ...Option) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if launcher == nil {
		return nil, errors.New("launcher is nil")
	}
	if sink == nil {
		return nil, errors.New("sink is nil")
	}

	s := &Session{
		cfg:      cfg,
		launcher: launcher,
		sink:     sink,
		rule:     parser.DefaultRule(),
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Metrics == nil {
		s.Metrics = NewMetrics()
	}
	return s, nil
}

// Run opens the listing, drives the scroll loop to completion and writes a
// final checkpoint. The returned result is never nil. The error is nil for
// a complete or target-capped run, the context error when cancelled, and
// the failure otherwise; in every case the output holds what was flushed.
func (s *Session) Run(ctx context.Context) (*models.SessionResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	start := s.now()
	progress := s.initialProgress(start)
	result := &models.SessionResult{StartTime: start}

	dedupe := NewDeduplicator()
	dedupe.Seed(s.seenIDs)

	retry := newRetrier(s.cfg, s.Metrics)
	retry.sleep = s.sleep

	logger := slog.With(slog.String("place_id", progress.PlaceID))
	logger.Info("session starting",
		slog.String("url", s.cfg.ListingURL),
		slog.String("driver", s.cfg.Driver),
		slog.Int("seeded", dedupe.Len()),
	)

	var page driver.PageDriver
	err := retry.Do(ctx, "open", func(ctx context.Context) error {
		var err error
		page, err = s.launcher.Open(ctx, s.cfg.ListingURL)
		return err
	})
	if err == nil {
		defer func() {
			if cerr := page.Close(); cerr != nil {
				logger.Warn("driver close failed", slog.Any("error", cerr))
			}
		}()

		controller := newController(s.cfg, page, s.rule, dedupe, s.sink, retry, s.Metrics, progress)
		controller.onBatch = s.onProgress
		err = controller.Run(ctx)
	}

	finish(ctx, progress, err)
	if s.sink.Err() == nil {
		if cerr := s.sink.Checkpoint(progress); cerr != nil {
			logger.Error("final checkpoint failed", slog.Any("error", cerr))
			if err == nil {
				err = cerr
				finish(ctx, progress, err)
			}
		}
	}
	if s.onProgress != nil {
		s.onProgress(*progress)
	}

	result.Progress = *progress
	result.EndTime = s.now()
	result.Retries = retry.TotalRetries()
	result.Err = err
	s.Metrics.IncSession(progress.Status)

	logger.Info("session finished",
		slog.String("status", progress.Status),
		slog.Int("extracted", progress.TotalExtracted),
		slog.Int("duplicates", progress.TotalDeduplicatedOut),
		slog.Int("extraction_errors", progress.ExtractionErrors),
		slog.Int("scroll_rounds", progress.ScrollRounds),
		slog.Duration("elapsed", result.EndTime.Sub(start)),
	)
	if err != nil && progress.Status == models.StatusPartial {
		logger.Error("session ended early", slog.String("category", errorTypeLabel(err)), slog.Any("error", err))
	}
	return result, err
}

// initialProgress starts a fresh record, carrying counters forward when a
// previous checkpoint for the same listing exists.
func (s *Session) initialProgress(start time.Time) *models.SessionProgress {
	progress := &models.SessionProgress{
		ListingURL: s.cfg.ListingURL,
		PlaceID:    parser.PlaceID(s.cfg.ListingURL),
		StartedAt:  start.UTC(),
		Status:     models.StatusRunning,
	}
	if s.prior != nil && s.prior.ListingURL == s.cfg.ListingURL {
		progress.StartedAt = s.prior.StartedAt
		progress.TotalDeduplicatedOut = s.prior.TotalDeduplicatedOut
		progress.ExtractionErrors = s.prior.ExtractionErrors
		progress.ScrollRounds = s.prior.ScrollRounds
	}
	// The output file is authoritative for what was already written.
	progress.TotalExtracted = len(s.seenIDs)
	return progress
}

func finish(ctx context.Context, progress *models.SessionProgress, err error) {
	var driverErr *DriverError
	switch {
	case err == nil:
		if progress.Status == models.StatusRunning {
			progress.Status = models.StatusDone
		}
		progress.Error = ""
	case errors.As(err, &driverErr):
		progress.Status = models.StatusPartial
		progress.Error = err.Error()
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		progress.Status = models.StatusCancelled
		progress.Error = ""
	default:
		progress.Status = models.StatusPartial
		progress.Error = err.Error()
	}
}
