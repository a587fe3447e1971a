package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	lru "github.com/hashicorp/golang-lru/v2"
)

// RodOptions configures the Chromium-backed driver.
type RodOptions struct {
	Headless   bool
	NoSandbox  bool
	BrowserBin string

	NavigationTimeout time.Duration

	ItemSelector       string
	ItemIDAttr         string
	ContainerSelector  string
	ReviewsTabSelector string
	ConsentSelector    string
	ExpandSelector     string

	// HTMLCacheSize bounds how many fully expanded review fragments are
	// kept so rescrolled nodes are not re-read over CDP.
	HTMLCacheSize int
}

// DefaultRodOptions returns selectors for the Google Maps review panel.
func DefaultRodOptions() RodOptions {
	return RodOptions{
		Headless:           true,
		NavigationTimeout:  30 * time.Second,
		ItemSelector:       "div.jftiEf",
		ItemIDAttr:         "data-review-id",
		ContainerSelector:  "div.m6QErb.DxyBCb",
		ReviewsTabSelector: `button[role="tab"][aria-label*="Reviews"]`,
		ConsentSelector:    `form[action*="consent"] button`,
		ExpandSelector:     "button.w8nwRe",
		HTMLCacheSize:      4096,
	}
}

// RodLauncher starts one Chromium process per opened listing.
type RodLauncher struct {
	opts RodOptions
}

// NewRodLauncher builds a launcher from opts.
func NewRodLauncher(opts RodOptions) *RodLauncher {
	if opts.HTMLCacheSize <= 0 {
		opts.HTMLCacheSize = DefaultRodOptions().HTMLCacheSize
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = DefaultRodOptions().NavigationTimeout
	}
	return &RodLauncher{opts: opts}
}

type rodDriver struct {
	opts     RodOptions
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	cache    *lru.Cache[string, string]
}

// Open launches a browser, navigates to listingURL and brings the review
// list on screen. Everything acquired is released if a later step fails.
func (l *RodLauncher) Open(ctx context.Context, listingURL string) (_ PageDriver, err error) {
	cache, err := lru.New[string, string](l.opts.HTMLCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create html cache: %w", err)
	}

	lc := launcher.New().
		Context(ctx).
		Headless(l.opts.Headless).
		NoSandbox(l.opts.NoSandbox)
	if l.opts.BrowserBin != "" {
		lc = lc.Bin(l.opts.BrowserBin)
	}

	controlURL, err := lc.Launch()
	if err != nil {
		return nil, ErrDisconnected{Err: fmt.Errorf("launch browser: %w", err)}
	}
	slog.Debug("browser launched", slog.String("control_url", controlURL))

	d := &rodDriver{opts: l.opts, launcher: lc, cache: cache}
	defer func() {
		if err != nil {
			_ = d.Close()
		}
	}()

	d.browser = rod.New().ControlURL(controlURL)
	if err = d.browser.Connect(); err != nil {
		return nil, ErrDisconnected{Err: fmt.Errorf("connect browser: %w", err)}
	}

	d.page, err = d.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, Classify(fmt.Errorf("create page: %w", err))
	}

	navCtx, cancel := context.WithTimeout(ctx, l.opts.NavigationTimeout)
	defer cancel()
	p := d.page.Context(navCtx)

	if err = p.Navigate(listingURL); err != nil {
		return nil, Classify(fmt.Errorf("navigate: %w", err))
	}
	if err = p.WaitLoad(); err != nil {
		return nil, Classify(fmt.Errorf("wait load: %w", err))
	}

	d.clickIfPresent(p, l.opts.ConsentSelector)
	d.clickIfPresent(p, l.opts.ReviewsTabSelector)

	if waitErr := p.WaitElementsMoreThan(l.opts.ItemSelector, 0); waitErr != nil {
		// A listing without reviews never renders an item; the scroll loop
		// then stalls out normally.
		slog.Warn("review list did not appear",
			slog.String("url", listingURL),
			slog.Any("error", waitErr),
		)
	}

	return d, nil
}

func (d *rodDriver) clickIfPresent(p *rod.Page, selector string) {
	if selector == "" {
		return
	}
	has, el, err := p.Has(selector)
	if err != nil || !has {
		return
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		slog.Debug("click failed", slog.String("selector", selector), slog.Any("error", err))
		return
	}
	_ = p.WaitDOMStable(300*time.Millisecond, 0.1)
}

func (d *rodDriver) SnapshotItems(ctx context.Context) ([]models.RawItem, error) {
	p := d.page.Context(ctx)

	if d.opts.ExpandSelector != "" {
		if _, err := p.Eval(`(sel) => {
			document.querySelectorAll(sel).forEach(b => b.click());
		}`, d.opts.ExpandSelector); err != nil {
			return nil, Classify(fmt.Errorf("expand reviews: %w", err))
		}
	}

	elements, err := p.Elements(d.opts.ItemSelector)
	if err != nil {
		return nil, Classify(fmt.Errorf("list items: %w", err))
	}

	items := make([]models.RawItem, 0, len(elements))
	for _, el := range elements {
		id := ""
		if attr, err := el.Attribute(d.opts.ItemIDAttr); err != nil {
			return nil, Classify(fmt.Errorf("read item id: %w", err))
		} else if attr != nil {
			id = *attr
		}

		if id != "" {
			if cached, ok := d.cache.Get(id); ok {
				items = append(items, models.RawItem{ID: id, HTML: cached})
				continue
			}
		}

		html, err := el.HTML()
		if err != nil {
			return nil, Classify(fmt.Errorf("read item html: %w", err))
		}
		if id != "" && !d.truncated(html) {
			d.cache.Add(id, html)
		}
		items = append(items, models.RawItem{ID: id, HTML: html})
	}
	return items, nil
}

// truncated reports whether the fragment still carries an unexpanded
// "More" button, in which case a later read may return longer text.
func (d *rodDriver) truncated(html string) bool {
	if d.opts.ExpandSelector == "" {
		return false
	}
	class := d.opts.ExpandSelector
	if i := strings.LastIndex(class, "."); i >= 0 {
		class = class[i+1:]
	}
	return strings.Contains(html, class)
}

func (d *rodDriver) Scroll(ctx context.Context, delta int) error {
	p := d.page.Context(ctx)

	res, err := p.Eval(`(sel, delta) => {
		const el = document.querySelector(sel);
		if (!el) return false;
		el.scrollBy(0, delta);
		return true;
	}`, d.opts.ContainerSelector, delta)
	if err != nil {
		return Classify(fmt.Errorf("scroll container: %w", err))
	}
	if res.Value.Bool() {
		return nil
	}

	// Wheel events go to whatever sits under the pointer.
	if err := d.pointAtList(p); err != nil {
		return Classify(fmt.Errorf("hover review list: %w", err))
	}
	if err := p.Mouse.Scroll(0, float64(delta), 1); err != nil {
		return Classify(fmt.Errorf("mouse scroll: %w", err))
	}
	return nil
}

// pointAtList moves the pointer onto the first review so a wheel scroll
// lands on the list's scrollable ancestor.
func (d *rodDriver) pointAtList(p *rod.Page) error {
	has, el, err := p.Has(d.opts.ItemSelector)
	if err != nil || !has {
		return err
	}
	return el.Hover()
}

func (d *rodDriver) WaitStable(ctx context.Context, timeout time.Duration) (bool, error) {
	err := d.page.Context(ctx).Timeout(timeout).WaitDOMStable(300*time.Millisecond, 0.1)
	if err == nil {
		return true, nil
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return false, nil
	}
	return false, Classify(fmt.Errorf("wait stable: %w", err))
}

func (d *rodDriver) Close() error {
	var errs []error
	if d.page != nil {
		if err := d.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
	}
	if d.browser != nil {
		if err := d.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if d.launcher != nil {
		d.launcher.Kill()
		d.launcher.Cleanup()
	}
	return errors.Join(errs...)
}
