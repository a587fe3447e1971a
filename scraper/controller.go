package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-reviews/config"
	"github.com/aluiziolira/go-scrape-reviews/driver"
	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/aluiziolira/go-scrape-reviews/parser"
	"github.com/aluiziolira/go-scrape-reviews/pipeline"
)

// Controller drives the scroll/extract loop for one open page:
//
//	INIT -> LOADING -> EXTRACTING -> DECIDING -> LOADING ...
//	                                 DECIDING -> STALLED -> LOADING | DONE
//
// Every batch is appended to the sink and checkpointed before the next
// scroll, so a failure at any point leaves a readable prefix behind.
type Controller struct {
	cfg     *config.Config
	driver  driver.PageDriver
	rule    *parser.Rule
	dedupe  *Deduplicator
	sink    *pipeline.Sink
	retry   *retrier
	metrics *Metrics

	state    models.ScrollState
	progress *models.SessionProgress
	onBatch  func(models.SessionProgress)

	// result of the most recent extraction
	lastCount int
	lastFresh int

	// items that failed extraction, so re-snapshots do not recount them
	failed map[string]struct{}
}

func newController(cfg *config.Config, d driver.PageDriver, rule *parser.Rule, dedupe *Deduplicator,
	sink *pipeline.Sink, retry *retrier, metrics *Metrics, progress *models.SessionProgress) *Controller {
	return &Controller{
		cfg:      cfg,
		driver:   d,
		rule:     rule,
		dedupe:   dedupe,
		sink:     sink,
		retry:    retry,
		metrics:  metrics,
		progress: progress,
		state:    models.ScrollState{Phase: models.PhaseInit},
		failed:   make(map[string]struct{}),
	}
}

// Run advances the state machine until DONE. It returns nil when the list
// is exhausted or the target count is reached, ctx.Err() on cancellation,
// *DriverError when the driver keeps failing, and *pipeline.SinkWriteError
// when output can no longer be written.
func (c *Controller) Run(ctx context.Context) error {
	for !c.state.Terminal {
		var err error
		switch c.state.Phase {
		case models.PhaseInit:
			err = c.init(ctx)
		case models.PhaseLoading:
			err = c.load(ctx)
		case models.PhaseExtracting:
			err = c.extract(ctx)
		case models.PhaseDeciding:
			c.decide()
		case models.PhaseStalled:
			err = c.stalled(ctx)
		case models.PhaseDone:
			c.state.Terminal = true
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) init(ctx context.Context) error {
	items, err := c.snapshot(ctx)
	if err != nil {
		return err
	}
	c.state.ItemsSeen = len(items)
	c.state.LastItemCount = len(items)
	if err := c.processBatch(items); err != nil {
		return err
	}
	return c.afterBatch(ctx, models.PhaseLoading)
}

func (c *Controller) load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.scrollAndWait(ctx, c.cfg.StabilityTimeout); err != nil {
		return err
	}
	c.state.Phase = models.PhaseExtracting
	return nil
}

func (c *Controller) extract(ctx context.Context) error {
	items, err := c.snapshot(ctx)
	if err != nil {
		return err
	}
	c.state.LastItemCount = len(items)
	if err := c.processBatch(items); err != nil {
		return err
	}
	return c.afterBatch(ctx, models.PhaseDeciding)
}

// decide treats a round as progress when the list grew past its high-water
// mark or the batch produced unseen reviews. A list that shrinks because
// the page pruned old nodes is not a stall as long as new reviews appear.
func (c *Controller) decide() {
	if c.madeProgress() {
		c.state.ConsecutiveStallCount = 0
		c.state.Phase = models.PhaseLoading
		return
	}

	c.state.ConsecutiveStallCount++
	c.metrics.IncStalls()
	slog.Debug("scroll round produced nothing new",
		slog.Int("stalls", c.state.ConsecutiveStallCount),
		slog.Int("items", c.state.LastItemCount),
	)
	if c.state.ConsecutiveStallCount >= c.cfg.MaxIdleRounds {
		c.state.Phase = models.PhaseStalled
		return
	}
	c.state.Phase = models.PhaseLoading
}

// stalled gives the page one more scroll with the long hard wait before
// declaring the list exhausted.
func (c *Controller) stalled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	slog.Info("list stalled, trying a hard wait",
		slog.Int("stalls", c.state.ConsecutiveStallCount),
		slog.Duration("wait", c.cfg.HardWaitTimeout),
	)
	if err := c.scrollAndWait(ctx, c.cfg.HardWaitTimeout); err != nil {
		return err
	}

	items, err := c.snapshot(ctx)
	if err != nil {
		return err
	}
	c.state.LastItemCount = len(items)
	if err := c.processBatch(items); err != nil {
		return err
	}

	next := models.PhaseDone
	if c.madeProgress() {
		c.state.ConsecutiveStallCount = 0
		next = models.PhaseLoading
	} else {
		c.progress.Status = models.StatusDone
	}
	return c.afterBatch(ctx, next)
}

func (c *Controller) madeProgress() bool {
	grew := c.lastCount > c.state.ItemsSeen
	if grew {
		c.state.ItemsSeen = c.lastCount
	}
	return grew || c.lastFresh > 0
}

// afterBatch checkpoints the batch just processed, then honours the target
// count and cancellation before moving on to next.
func (c *Controller) afterBatch(ctx context.Context, next models.Phase) error {
	if c.targetReached() {
		c.progress.Status = models.StatusTargetReached
		next = models.PhaseDone
	}
	if err := c.sink.Checkpoint(c.progress); err != nil {
		return err
	}
	if c.onBatch != nil {
		c.onBatch(*c.progress)
	}
	if next == models.PhaseDone {
		c.state.Phase = models.PhaseDone
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.state.Phase = next
	return nil
}

// processBatch extracts and appends every unseen item. Bad items are
// counted and skipped; only a sink failure aborts the batch.
func (c *Controller) processBatch(items []models.RawItem) error {
	c.lastCount = len(items)
	c.lastFresh = 0

	for _, item := range items {
		if c.targetReached() {
			break
		}

		review, err := c.rule.Extract(item)
		if err != nil {
			c.recordExtractionError(item, err)
			continue
		}
		if !c.dedupe.IsNew(review) {
			c.progress.TotalDeduplicatedOut++
			c.metrics.IncDuplicates()
			continue
		}

		if err := c.sink.Append(review); err != nil {
			if errors.Is(err, pipeline.ErrInvalidRecord) {
				c.recordExtractionError(item, err)
				continue
			}
			c.metrics.IncError(errorTypeLabel(err))
			return err
		}
		c.lastFresh++
		c.progress.TotalExtracted++
		c.metrics.IncItems()
	}
	return nil
}

func (c *Controller) recordExtractionError(item models.RawItem, err error) {
	key := item.ID
	if key == "" {
		key = item.HTML
	}
	if _, ok := c.failed[key]; ok {
		return
	}
	c.failed[key] = struct{}{}

	c.progress.ExtractionErrors++
	c.metrics.IncExtractionErrors()
	c.metrics.IncError("extraction")
	slog.Warn("skipping review item", slog.Any("error", err))
}

func (c *Controller) targetReached() bool {
	return c.cfg.TargetCount > 0 && c.progress.TotalExtracted >= c.cfg.TargetCount
}

func (c *Controller) snapshot(ctx context.Context) ([]models.RawItem, error) {
	var items []models.RawItem
	err := c.retry.Do(ctx, "snapshot", func(ctx context.Context) error {
		var err error
		items, err = c.driver.SnapshotItems(ctx)
		return err
	})
	return items, err
}

func (c *Controller) scrollAndWait(ctx context.Context, timeout time.Duration) error {
	err := c.retry.Do(ctx, "scroll", func(ctx context.Context) error {
		return c.driver.Scroll(ctx, c.cfg.ScrollDelta)
	})
	if err != nil {
		return err
	}

	var stable bool
	err = c.retry.Do(ctx, "wait_stable", func(ctx context.Context) error {
		var err error
		stable, err = c.driver.WaitStable(ctx, timeout)
		return err
	})
	if err != nil {
		return err
	}
	if !stable {
		slog.Debug("list did not settle before timeout", slog.Duration("timeout", timeout))
	}

	c.progress.ScrollRounds++
	c.metrics.IncScrollRounds()
	return nil
}
