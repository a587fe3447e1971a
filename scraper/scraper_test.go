package scraper

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-reviews/config"
	"github.com/aluiziolira/go-scrape-reviews/driver"
	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/aluiziolira/go-scrape-reviews/pipeline"
)

// stubDriver serves pages[i] after i scrolls, clamped to the last page.
type stubDriver struct {
	mu           sync.Mutex
	pages        [][]models.RawItem
	scrolls      int
	snapshots    int
	snapshotErrs []error
	scrollErrs   []error
	failScrollAt int // scrolls from this count on fail forever; 0 disables
	onSnapshot   func(n int)
	closed       bool
}

func (d *stubDriver) SnapshotItems(ctx context.Context) ([]models.RawItem, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.snapshotErrs) > 0 {
		err := d.snapshotErrs[0]
		d.snapshotErrs = d.snapshotErrs[1:]
		return nil, err
	}
	d.snapshots++
	if d.onSnapshot != nil {
		d.onSnapshot(d.snapshots)
	}
	if len(d.pages) == 0 {
		return nil, nil
	}
	idx := d.scrolls
	if idx >= len(d.pages) {
		idx = len(d.pages) - 1
	}
	out := make([]models.RawItem, len(d.pages[idx]))
	copy(out, d.pages[idx])
	return out, nil
}

func (d *stubDriver) Scroll(ctx context.Context, delta int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failScrollAt > 0 && d.scrolls+1 >= d.failScrollAt {
		return driver.ErrDisconnected{Err: errors.New("target closed")}
	}
	if len(d.scrollErrs) > 0 {
		err := d.scrollErrs[0]
		d.scrollErrs = d.scrollErrs[1:]
		return err
	}
	d.scrolls++
	return nil
}

func (d *stubDriver) WaitStable(ctx context.Context, timeout time.Duration) (bool, error) {
	return true, nil
}

func (d *stubDriver) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

type stubLauncher struct {
	driver  *stubDriver
	openErr error
	opens   int
}

func (l *stubLauncher) Open(ctx context.Context, listingURL string) (driver.PageDriver, error) {
	l.opens++
	if l.openErr != nil {
		return nil, l.openErr
	}
	return l.driver, nil
}

func rawReview(id, name string) models.RawItem {
	html := fmt.Sprintf(`<div class="jftiEf" data-review-id="%s">`, id)
	if name != "" {
		html += fmt.Sprintf(`<div class="d4r55">%s</div>`, name)
	}
	html += `<span class="kvMYJc" role="img" aria-label="4 stars"></span>` +
		`<span class="rsqaWe">a week ago</span>` +
		fmt.Sprintf(`<span class="wiI7pd">Review body %s</span></div>`, id)
	return models.RawItem{ID: id, HTML: html}
}

// reviewRange returns reviews r<from>..r<to-1>.
func reviewRange(from, to int) []models.RawItem {
	items := make([]models.RawItem, 0, to-from)
	for i := from; i < to; i++ {
		id := fmt.Sprintf("r%d", i)
		items = append(items, rawReview(id, "Reviewer "+id))
	}
	return items
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ListingURL = "https://maps.test/maps/place/Cafe+Central/data=!4m7!3m6!1s0x47d8:0x9e1b"
	cfg.StabilityTimeout = time.Millisecond
	cfg.HardWaitTimeout = time.Millisecond
	cfg.RetryBackoff = time.Millisecond
	cfg.RetryBackoffMax = 4 * time.Millisecond
	cfg.OutputFile = filepath.Join(t.TempDir(), "reviews.csv")
	return cfg
}

func newTestSession(t *testing.T, cfg *config.Config, d *stubDriver, resume bool, opts ...Option) (*Session, *pipeline.Sink) {
	t.Helper()
	sink, err := pipeline.OpenSink(cfg.OutputFormat, cfg.OutputFile, resume)
	if err != nil {
		t.Fatalf("open sink: %v", err)
	}
	t.Cleanup(func() { sink.Close() })

	session, err := NewSession(cfg, &stubLauncher{driver: d}, sink, opts...)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	session.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return session, sink
}

func readOutput(t *testing.T, cfg *config.Config) []*models.Review {
	t.Helper()
	reviews, skipped, err := pipeline.ReadCSVReviews(cfg.OutputFile)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if skipped != 0 {
		t.Fatalf("output has %d unreadable rows", skipped)
	}
	return reviews
}

func TestSessionStopsAfterIdleRounds(t *testing.T) {
	cfg := testConfig(t)
	d := &stubDriver{pages: [][]models.RawItem{reviewRange(0, 5)}}
	session, _ := newTestSession(t, cfg, d, false)

	result, err := session.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Outcome() != models.StatusDone {
		t.Fatalf("status = %q, want done", result.Outcome())
	}
	if got, want := result.Progress.ScrollRounds, cfg.MaxIdleRounds+1; got != want {
		t.Fatalf("scroll rounds = %d, want %d", got, want)
	}
	if result.Progress.TotalExtracted != 5 {
		t.Fatalf("total extracted = %d, want 5", result.Progress.TotalExtracted)
	}
	if !d.closed {
		t.Fatalf("driver should be closed")
	}
	if got := len(readOutput(t, cfg)); got != 5 {
		t.Fatalf("persisted %d reviews, want 5", got)
	}
}

func TestSessionEmptyList(t *testing.T) {
	cfg := testConfig(t)
	d := &stubDriver{}
	session, _ := newTestSession(t, cfg, d, false)

	result, err := session.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Outcome() != models.StatusDone || result.Progress.TotalExtracted != 0 {
		t.Fatalf("result = %+v", result.Progress)
	}
}

func TestSessionFollowsGrowingList(t *testing.T) {
	cfg := testConfig(t)
	d := &stubDriver{pages: [][]models.RawItem{
		reviewRange(0, 10),
		reviewRange(0, 20),
		reviewRange(0, 25),
	}}
	session, _ := newTestSession(t, cfg, d, false)

	result, err := session.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Progress.TotalExtracted != 25 {
		t.Fatalf("total extracted = %d, want 25", result.Progress.TotalExtracted)
	}
	reviews := readOutput(t, cfg)
	if len(reviews) != 25 {
		t.Fatalf("persisted %d reviews, want 25", len(reviews))
	}
	seen := make(map[string]bool)
	for _, r := range reviews {
		if seen[r.ReviewID] {
			t.Fatalf("review %s persisted twice", r.ReviewID)
		}
		seen[r.ReviewID] = true
	}
}

func TestSessionSkipsMalformedItems(t *testing.T) {
	cfg := testConfig(t)
	items := reviewRange(0, 5)
	items[2] = rawReview("r2", "")
	d := &stubDriver{pages: [][]models.RawItem{items}}
	session, _ := newTestSession(t, cfg, d, false)

	result, err := session.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Progress.TotalExtracted != 4 {
		t.Fatalf("total extracted = %d, want 4", result.Progress.TotalExtracted)
	}
	if result.Progress.ExtractionErrors != 1 {
		t.Fatalf("extraction errors = %d, want 1", result.Progress.ExtractionErrors)
	}
	if got := len(readOutput(t, cfg)); got != 4 {
		t.Fatalf("persisted %d reviews, want 4", got)
	}
}

func TestSessionDuplicateIDsPersistOnce(t *testing.T) {
	cfg := testConfig(t)
	page := []models.RawItem{
		rawReview("dup", "Ana"),
		rawReview("dup", "Ana"),
		rawReview("other", "Bo"),
	}
	d := &stubDriver{pages: [][]models.RawItem{page, page}}
	session, _ := newTestSession(t, cfg, d, false)

	result, err := session.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Progress.TotalExtracted != 2 {
		t.Fatalf("total extracted = %d, want 2", result.Progress.TotalExtracted)
	}
	if result.Progress.TotalDeduplicatedOut == 0 {
		t.Fatalf("duplicates should be counted")
	}
	if got := len(readOutput(t, cfg)); got != 2 {
		t.Fatalf("persisted %d reviews, want 2", got)
	}
}

func TestSessionStopsAtTargetCount(t *testing.T) {
	cfg := testConfig(t)
	cfg.TargetCount = 7
	d := &stubDriver{pages: [][]models.RawItem{
		reviewRange(0, 5),
		reviewRange(0, 10),
		reviewRange(0, 15),
	}}
	session, _ := newTestSession(t, cfg, d, false)

	result, err := session.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Outcome() != models.StatusTargetReached {
		t.Fatalf("status = %q, want target_reached", result.Outcome())
	}
	if result.Progress.TotalExtracted != 7 {
		t.Fatalf("total extracted = %d, want 7", result.Progress.TotalExtracted)
	}
	if d.scrolls != 1 {
		t.Fatalf("scrolls = %d, want 1", d.scrolls)
	}
	if got := len(readOutput(t, cfg)); got != 7 {
		t.Fatalf("persisted %d reviews, want 7", got)
	}
}

func TestSessionRetriesTransientFailures(t *testing.T) {
	cfg := testConfig(t)
	d := &stubDriver{
		pages: [][]models.RawItem{reviewRange(0, 3), reviewRange(0, 6)},
		snapshotErrs: []error{
			driver.ErrTimeout{Err: context.DeadlineExceeded},
			errors.New("websocket: close 1006"),
		},
		scrollErrs: []error{errors.New("target closed")},
	}
	session, _ := newTestSession(t, cfg, d, false)

	result, err := session.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Retries != 3 {
		t.Fatalf("retries = %d, want 3", result.Retries)
	}
	if result.Progress.TotalExtracted != 6 {
		t.Fatalf("total extracted = %d, want 6", result.Progress.TotalExtracted)
	}
}

func TestSessionEscalatesPersistentDriverFailure(t *testing.T) {
	cfg := testConfig(t)
	d := &stubDriver{
		pages:        [][]models.RawItem{reviewRange(0, 5), reviewRange(0, 10)},
		failScrollAt: 1,
	}
	session, _ := newTestSession(t, cfg, d, false)

	result, err := session.Run(context.Background())
	var driverErr *DriverError
	if !errors.As(err, &driverErr) {
		t.Fatalf("expected *DriverError, got %v", err)
	}
	if driverErr.Op != "scroll" || driverErr.Attempts != cfg.MaxRetries+1 {
		t.Fatalf("driver error = %+v", driverErr)
	}
	var disconnected driver.ErrDisconnected
	if !errors.As(err, &disconnected) {
		t.Fatalf("cause should stay classified, got %v", err)
	}
	if result.Outcome() != models.StatusPartial || result.Progress.Error == "" {
		t.Fatalf("progress = %+v", result.Progress)
	}
	if !d.closed {
		t.Fatalf("driver should be closed after failure")
	}

	if got := len(readOutput(t, cfg)); got != 5 {
		t.Fatalf("flushed output has %d reviews, want 5", got)
	}
	saved, err := pipeline.ReadProgress(pipeline.ProgressPath(cfg.OutputFile))
	if err != nil || saved == nil {
		t.Fatalf("read progress: %v, %v", saved, err)
	}
	if saved.Status != models.StatusPartial || saved.TotalExtracted != 5 {
		t.Fatalf("checkpoint = %+v", saved)
	}
}

func TestSessionOpenFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxRetries = 1
	sink, err := pipeline.OpenSink(cfg.OutputFormat, cfg.OutputFile, false)
	if err != nil {
		t.Fatalf("open sink: %v", err)
	}
	defer sink.Close()

	launcher := &stubLauncher{openErr: errors.New("browser not found")}
	session, err := NewSession(cfg, launcher, sink)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	session.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	result, err := session.Run(context.Background())
	var driverErr *DriverError
	if !errors.As(err, &driverErr) || driverErr.Op != "open" {
		t.Fatalf("expected open DriverError, got %v", err)
	}
	if launcher.opens != 2 {
		t.Fatalf("opens = %d, want 2", launcher.opens)
	}
	if result.Outcome() != models.StatusPartial {
		t.Fatalf("status = %q", result.Outcome())
	}
}

func TestSessionCancelFlushesCurrentBatch(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := &stubDriver{
		pages: [][]models.RawItem{reviewRange(0, 4), reviewRange(0, 8), reviewRange(0, 12)},
		// cancel while the second batch is being read
		onSnapshot: func(n int) {
			if n == 2 {
				cancel()
			}
		},
	}
	session, _ := newTestSession(t, cfg, d, false)

	result, err := session.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result.Outcome() != models.StatusCancelled {
		t.Fatalf("status = %q, want cancelled", result.Outcome())
	}
	if result.Progress.TotalExtracted != 8 {
		t.Fatalf("total extracted = %d, want 8", result.Progress.TotalExtracted)
	}
	if got := len(readOutput(t, cfg)); got != 8 {
		t.Fatalf("persisted %d reviews, want 8", got)
	}
	if d.scrolls != 1 {
		t.Fatalf("scrolls = %d, want 1", d.scrolls)
	}
}

// Pages that prune old nodes keep the count flat while ids move forward.
func TestSessionPrunedListIsNotAStall(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxIdleRounds = 1
	d := &stubDriver{pages: [][]models.RawItem{
		reviewRange(0, 10),
		reviewRange(5, 15),
		reviewRange(10, 20),
		reviewRange(12, 20),
	}}
	session, _ := newTestSession(t, cfg, d, false)

	result, err := session.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Progress.TotalExtracted != 20 {
		t.Fatalf("total extracted = %d, want 20", result.Progress.TotalExtracted)
	}
}

func TestSessionHardWaitRecovers(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxIdleRounds = 1
	// The second round shows nothing new; the hard wait round finds more.
	d := &stubDriver{pages: [][]models.RawItem{
		reviewRange(0, 5),
		reviewRange(0, 5),
		reviewRange(0, 9),
	}}
	session, _ := newTestSession(t, cfg, d, false)

	result, err := session.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Outcome() != models.StatusDone {
		t.Fatalf("status = %q, want done", result.Outcome())
	}
	if result.Progress.TotalExtracted != 9 {
		t.Fatalf("total extracted = %d, want 9", result.Progress.TotalExtracted)
	}
	// stall, hard wait with growth, stall, hard wait without growth
	if result.Progress.ScrollRounds != 4 {
		t.Fatalf("scroll rounds = %d, want 4", result.Progress.ScrollRounds)
	}
	if got := len(readOutput(t, cfg)); got != 9 {
		t.Fatalf("persisted %d reviews, want 9", got)
	}
}

// failingWriter accepts limit writes and then reports a full disk.
type failingWriter struct {
	mu      sync.Mutex
	limit   int
	written []string
}

func (w *failingWriter) Write(reviews []*models.Review) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.written) >= w.limit {
		return errors.New("disk full")
	}
	for _, r := range reviews {
		w.written = append(w.written, r.ReviewID)
	}
	return nil
}

func (w *failingWriter) Sync() error { return nil }
func (w *failingWriter) Close() error { return nil }
func (w *failingWriter) Validate() error { return nil }
func (w *failingWriter) Paths() []string { return nil }

func TestSessionSinkFailureIsFatal(t *testing.T) {
	cfg := testConfig(t)
	d := &stubDriver{pages: [][]models.RawItem{reviewRange(0, 5)}}
	writer := &failingWriter{limit: 3}
	sink := pipeline.NewSink(writer, pipeline.ProgressPath(cfg.OutputFile))

	session, err := NewSession(cfg, &stubLauncher{driver: d}, sink)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	session.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }

	result, err := session.Run(context.Background())
	var sinkErr *pipeline.SinkWriteError
	if !errors.As(err, &sinkErr) {
		t.Fatalf("err = %v, want *pipeline.SinkWriteError", err)
	}
	if result.Outcome() != models.StatusPartial {
		t.Fatalf("status = %q, want partial", result.Outcome())
	}
	if result.Progress.TotalExtracted != 3 || len(writer.written) != 3 {
		t.Fatalf("extracted=%d written=%d, want 3", result.Progress.TotalExtracted, len(writer.written))
	}
	if result.Progress.ScrollRounds != 0 {
		t.Fatalf("scroll rounds = %d, session should stop at the failed append", result.Progress.ScrollRounds)
	}
	if !d.closed {
		t.Fatalf("driver should be closed")
	}
}

func TestSessionProgressIsMonotonic(t *testing.T) {
	cfg := testConfig(t)
	d := &stubDriver{pages: [][]models.RawItem{
		reviewRange(0, 3),
		reviewRange(0, 7),
		reviewRange(2, 7),
		reviewRange(0, 12),
	}}

	var updates []models.SessionProgress
	session, _ := newTestSession(t, cfg, d, false, WithProgress(func(p models.SessionProgress) {
		updates = append(updates, p)
	}))

	result, err := session.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(updates) < 2 {
		t.Fatalf("expected progress updates, got %d", len(updates))
	}
	for i := 1; i < len(updates); i++ {
		if updates[i].TotalExtracted < updates[i-1].TotalExtracted {
			t.Fatalf("total extracted went backwards at update %d: %d -> %d",
				i, updates[i-1].TotalExtracted, updates[i].TotalExtracted)
		}
	}
	if last := updates[len(updates)-1]; last.Status != models.StatusDone || last.TotalExtracted != result.Progress.TotalExtracted {
		t.Fatalf("last update = %+v", last)
	}
}

func TestSessionResumeSkipsWrittenReviews(t *testing.T) {
	cfg := testConfig(t)

	first, firstSink := newTestSession(t, cfg, &stubDriver{pages: [][]models.RawItem{reviewRange(0, 5)}}, false)
	if _, err := first.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := firstSink.Close(); err != nil {
		t.Fatalf("close first sink: %v", err)
	}

	state, err := pipeline.LoadResume(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		t.Fatalf("load resume: %v", err)
	}
	if len(state.SeenIDs) != 5 || state.Progress == nil {
		t.Fatalf("resume state = %+v", state)
	}

	cfg.Resume = true
	second, _ := newTestSession(t, cfg, &stubDriver{pages: [][]models.RawItem{reviewRange(0, 8)}}, true, WithResume(state))
	result, err := second.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if result.Progress.TotalExtracted != 8 {
		t.Fatalf("total extracted = %d, want 8", result.Progress.TotalExtracted)
	}
	if !result.Progress.StartedAt.Equal(state.Progress.StartedAt) {
		t.Fatalf("started at should carry over from the first run")
	}
	if got := len(readOutput(t, cfg)); got != 8 {
		t.Fatalf("persisted %d reviews, want 8", got)
	}
}

func TestSessionRecordsPlaceID(t *testing.T) {
	cfg := testConfig(t)
	session, _ := newTestSession(t, cfg, &stubDriver{}, false)

	result, _ := session.Run(context.Background())
	if result.Progress.PlaceID != "0x47d8_0x9e1b" {
		t.Fatalf("place id = %q", result.Progress.PlaceID)
	}
}

func TestNewSessionRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxIdleRounds = 0
	sink := pipeline.NewSink(&pipelineDiscard{}, "")
	if _, err := NewSession(cfg, &stubLauncher{}, sink); err == nil {
		t.Fatalf("expected config error")
	}
}

type pipelineDiscard struct{}

func (pipelineDiscard) Write([]*models.Review) error { return nil }
func (pipelineDiscard) Sync() error                  { return nil }
func (pipelineDiscard) Close() error                 { return nil }
func (pipelineDiscard) Validate() error              { return nil }
func (pipelineDiscard) Paths() []string              { return nil }

func TestRetrierBackoffCapped(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RetryBackoff = 200 * time.Millisecond
	cfg.RetryBackoffMax = 500 * time.Millisecond
	r := newRetrier(cfg, nil)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 500 * time.Millisecond},
		{8, 500 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := r.backoff(tt.attempt); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRetrierStopsOnCancellation(t *testing.T) {
	cfg := config.DefaultConfig()
	r := newRetrier(cfg, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := r.Do(ctx, "scroll", func(ctx context.Context) error {
		calls++
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	var driverErr *DriverError
	if errors.As(err, &driverErr) {
		t.Fatalf("cancellation must not escalate to DriverError")
	}
	if calls != 1 || r.TotalRetries() != 0 {
		t.Fatalf("calls=%d retries=%d", calls, r.TotalRetries())
	}
}

func TestDeduplicator(t *testing.T) {
	d := NewDeduplicator()
	d.Seed([]string{"a", ""})

	tests := []struct {
		id   string
		want bool
	}{
		{"a", false},
		{"b", true},
		{"b", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := d.IsNew(&models.Review{ReviewID: tt.id}); got != tt.want {
			t.Errorf("IsNew(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
	if d.Len() != 2 {
		t.Fatalf("len = %d, want 2", d.Len())
	}
}

func TestErrorTypeLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "unknown"},
		{"driver timeout", &DriverError{Op: "scroll", Err: driver.ErrTimeout{Err: context.DeadlineExceeded}}, "timeout"},
		{"disconnected", driver.ErrDisconnected{Err: errors.New("eof")}, "disconnected"},
		{"sink", &pipeline.SinkWriteError{Op: "append", Err: errors.New("disk full")}, "sink_write"},
		{"cancelled", context.Canceled, "cancelled"},
		{"other", errors.New("boom"), "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorTypeLabel(tt.err); got != tt.want {
				t.Fatalf("errorTypeLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}
