// Package batch runs scrape sessions for many listings and maintains the
// output directory they share.
package batch

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-reviews/config"
	"github.com/aluiziolira/go-scrape-reviews/driver"
	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/aluiziolira/go-scrape-reviews/parser"
	"github.com/aluiziolira/go-scrape-reviews/pipeline"
	"github.com/aluiziolira/go-scrape-reviews/scraper"
	"golang.org/x/sync/errgroup"
)

const (
	SummaryFile = "summary_report.json"
	ErrorsFile  = "errors.jsonl"
)

// Job is one listing of a batch and where its reviews go.
type Job struct {
	ListingURL string `json:"listing_url"`
	PlaceID    string `json:"place_id"`
	OutputFile string `json:"output_file"`
}

// Summary reports a finished batch. Results follow the order of Jobs.
type Summary struct {
	Jobs      []Job                   `json:"jobs"`
	Results   []*models.SessionResult `json:"-"`
	Outcomes  map[string]int          `json:"outcomes"`
	Reviews   int                     `json:"reviews"`
	Skipped   []string                `json:"skipped,omitempty"`
	StartTime time.Time               `json:"start_time"`
	EndTime   time.Time               `json:"end_time"`
}

// Failed returns how many listings did not finish cleanly.
func (s *Summary) Failed() int {
	return len(s.Jobs) - s.Outcomes[models.StatusDone] - s.Outcomes[models.StatusTargetReached]
}

// Runner scrapes listings concurrently, one session and one output file per
// listing. The launcher must tolerate concurrent Open calls.
type Runner struct {
	cfg        *config.Config
	launcher   driver.Launcher
	outputDir  string
	metrics    *scraper.Metrics
	onProgress func(models.SessionProgress)
}

// RunnerOption customises a Runner.
type RunnerOption func(*Runner)

// WithMetrics shares metrics across every session of the batch.
func WithMetrics(m *scraper.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithProgress receives every session checkpoint. It may be called from
// several goroutines at once.
func WithProgress(fn func(models.SessionProgress)) RunnerOption {
	return func(r *Runner) { r.onProgress = fn }
}

// NewRunner builds a runner that uses cfg as the template for each session.
func NewRunner(cfg *config.Config, launcher driver.Launcher, outputDir string, opts ...RunnerOption) (*Runner, error) {
	if cfg == nil || launcher == nil {
		return nil, errors.New("config and launcher are required")
	}
	if outputDir == "" {
		return nil, errors.New("output directory cannot be empty")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	r := &Runner{cfg: cfg, launcher: launcher, outputDir: outputDir}
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil {
		r.metrics = scraper.NewMetrics()
	}
	return r, nil
}

// OutputPath names the output file of a listing inside dir.
func OutputPath(dir, placeID, format string) string {
	ext := ".csv"
	if format == "json" {
		ext = ".jsonl"
	}
	return filepath.Join(dir, placeID+ext)
}

// Plan turns urls into jobs. Listings resolving to an already planned place
// are skipped so two sessions never share an output file.
func (r *Runner) Plan(urls []string) ([]Job, []string) {
	var (
		jobs    []Job
		skipped []string
		planned = make(map[string]bool)
	)
	for _, raw := range urls {
		if err := config.ValidateListingURL(r.cfg.Driver, raw); err != nil {
			slog.Warn("skipping invalid listing", slog.String("url", raw), slog.Any("error", err))
			skipped = append(skipped, raw)
			continue
		}
		placeID := parser.PlaceID(raw)
		if planned[placeID] {
			slog.Warn("skipping duplicate listing", slog.String("url", raw), slog.String("place_id", placeID))
			skipped = append(skipped, raw)
			continue
		}
		planned[placeID] = true
		jobs = append(jobs, Job{
			ListingURL: raw,
			PlaceID:    placeID,
			OutputFile: OutputPath(r.outputDir, placeID, r.cfg.OutputFormat),
		})
	}
	return jobs, skipped
}

// Run scrapes every listing with at most cfg.Parallelism sessions at once.
// A failing listing is recorded and does not stop the others; cancelling
// ctx stops new sessions from starting.
func (r *Runner) Run(ctx context.Context, urls []string) (*Summary, error) {
	jobs, skipped := r.Plan(urls)
	summary := &Summary{
		Jobs:      jobs,
		Results:   make([]*models.SessionResult, len(jobs)),
		Outcomes:  make(map[string]int),
		Skipped:   skipped,
		StartTime: time.Now(),
	}
	if len(jobs) == 0 {
		summary.EndTime = time.Now()
		return summary, errors.New("no valid listings to scrape")
	}

	errLog, err := openErrorLog(filepath.Join(r.outputDir, ErrorsFile))
	if err != nil {
		return nil, err
	}
	defer errLog.Close()

	limit := r.cfg.Parallelism
	if limit <= 0 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, job := range jobs {
		g.Go(func() error {
			result := r.runJob(gctx, job)
			summary.Results[i] = result
			if result.Err != nil {
				errLog.record(job, result)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, result := range summary.Results {
		summary.Outcomes[result.Outcome()]++
		summary.Reviews += result.Progress.TotalExtracted
	}
	summary.EndTime = time.Now()

	if err := WriteSummary(filepath.Join(r.outputDir, SummaryFile), summary); err != nil {
		slog.Error("write batch summary", slog.Any("error", err))
	}
	return summary, nil
}

func (r *Runner) runJob(ctx context.Context, job Job) *models.SessionResult {
	logger := slog.With(slog.String("place_id", job.PlaceID))
	failed := func(err error) *models.SessionResult {
		now := time.Now()
		status := models.StatusPartial
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			status = models.StatusCancelled
		}
		return &models.SessionResult{
			Progress: models.SessionProgress{
				ListingURL: job.ListingURL,
				PlaceID:    job.PlaceID,
				Status:     status,
				Error:      err.Error(),
			},
			StartTime: now,
			EndTime:   now,
			Err:       err,
		}
	}
	if err := ctx.Err(); err != nil {
		return failed(err)
	}

	cfg := r.cfg.Clone()
	cfg.ListingURL = job.ListingURL
	cfg.OutputFile = job.OutputFile

	opts := []scraper.Option{scraper.WithMetrics(r.metrics), scraper.WithProgress(r.onProgress)}
	if cfg.Resume {
		state, err := pipeline.LoadResume(cfg.OutputFormat, cfg.OutputFile)
		if err != nil {
			logger.Error("load previous output", slog.Any("error", err))
			return failed(err)
		}
		if state.Progress != nil && state.Progress.Finished() {
			logger.Info("listing already complete, skipping", slog.Int("reviews", len(state.SeenIDs)))
			return &models.SessionResult{Progress: *state.Progress, StartTime: time.Now(), EndTime: time.Now()}
		}
		opts = append(opts, scraper.WithResume(state))
	}

	sink, err := pipeline.OpenSink(cfg.OutputFormat, cfg.OutputFile, cfg.Resume)
	if err != nil {
		logger.Error("open output", slog.Any("error", err))
		return failed(err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Warn("close output", slog.Any("error", err))
		}
	}()

	session, err := scraper.NewSession(cfg, r.launcher, sink, opts...)
	if err != nil {
		return failed(err)
	}
	result, _ := session.Run(ctx)
	return result
}

// WriteSummary stores the batch summary as indented JSON.
func WriteSummary(path string, summary *Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// ReadURLs reads one listing URL per line, ignoring blank lines and lines
// starting with '#'.
func ReadURLs(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read urls: %w", err)
	}
	return urls, nil
}

type errorLog struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

type errorEntry struct {
	ListingURL string    `json:"listing_url"`
	PlaceID    string    `json:"place_id"`
	Status     string    `json:"status"`
	Error      string    `json:"error"`
	Time       time.Time `json:"time"`
}

func openErrorLog(path string) (*errorLog, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open error log: %w", err)
	}
	return &errorLog{file: file, enc: json.NewEncoder(file)}, nil
}

func (l *errorLog) record(job Job, result *models.SessionResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := errorEntry{
		ListingURL: job.ListingURL,
		PlaceID:    job.PlaceID,
		Status:     result.Outcome(),
		Error:      result.Err.Error(),
		Time:       time.Now().UTC(),
	}
	if err := l.enc.Encode(entry); err != nil {
		slog.Warn("write error log", slog.Any("error", err))
	}
}

func (l *errorLog) Close() error {
	return l.file.Close()
}
