package driver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/gocolly/colly/v2"
)

// ReplayLauncher serves a saved listing page as if it were a live review
// panel: every item is fetched up front and Scroll reveals BatchSize more.
// It loads http(s) URLs and, with the default transport, file:// paths.
type ReplayLauncher struct {
	BatchSize    int
	ItemSelector string
	ItemIDAttr   string
	Timeout      time.Duration
	Transport    http.RoundTripper
}

// NewReplayLauncher returns a launcher for the Google Maps review markup.
func NewReplayLauncher(batchSize int) *ReplayLauncher {
	opts := DefaultRodOptions()
	return &ReplayLauncher{
		BatchSize:    batchSize,
		ItemSelector: opts.ItemSelector,
		ItemIDAttr:   opts.ItemIDAttr,
		Timeout:      opts.NavigationTimeout,
	}
}

func (l *ReplayLauncher) transport() http.RoundTripper {
	if l.Transport != nil {
		return l.Transport
	}
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.RegisterProtocol("file", http.NewFileTransport(http.Dir("/")))
	return t
}

// Open fetches listingURL once and exposes its review items.
func (l *ReplayLauncher) Open(ctx context.Context, listingURL string) (PageDriver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	collector := colly.NewCollector()
	collector.WithTransport(l.transport())
	collector.IgnoreRobotsTxt = true
	if l.Timeout > 0 {
		collector.SetRequestTimeout(l.Timeout)
	}

	var (
		items   []models.RawItem
		loadErr error
	)
	collector.OnHTML(l.ItemSelector, func(e *colly.HTMLElement) {
		html, err := goquery.OuterHtml(e.DOM)
		if err != nil {
			return
		}
		items = append(items, models.RawItem{ID: e.Attr(l.ItemIDAttr), HTML: html})
	})
	collector.OnError(func(r *colly.Response, err error) {
		loadErr = err
	})

	if err := collector.Visit(listingURL); err != nil {
		return nil, Classify(fmt.Errorf("load %s: %w", listingURL, err))
	}
	collector.Wait()
	if loadErr != nil {
		return nil, Classify(fmt.Errorf("load %s: %w", listingURL, loadErr))
	}

	batch := l.BatchSize
	if batch <= 0 {
		batch = 10
	}
	visible := batch
	if visible > len(items) {
		visible = len(items)
	}
	return &replayDriver{items: items, visible: visible, batch: batch}, nil
}

type replayDriver struct {
	items   []models.RawItem
	visible int
	batch   int
	closed  bool
}

func (d *replayDriver) SnapshotItems(ctx context.Context) ([]models.RawItem, error) {
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	out := make([]models.RawItem, d.visible)
	copy(out, d.items[:d.visible])
	return out, nil
}

func (d *replayDriver) Scroll(ctx context.Context, delta int) error {
	if err := d.check(ctx); err != nil {
		return err
	}
	if delta <= 0 {
		return nil
	}
	d.visible += d.batch
	if d.visible > len(d.items) {
		d.visible = len(d.items)
	}
	return nil
}

func (d *replayDriver) WaitStable(ctx context.Context, timeout time.Duration) (bool, error) {
	if err := d.check(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (d *replayDriver) Close() error {
	d.closed = true
	return nil
}

func (d *replayDriver) check(ctx context.Context) error {
	if d.closed {
		return ErrDisconnected{Err: fmt.Errorf("replay page closed")}
	}
	return ctx.Err()
}
