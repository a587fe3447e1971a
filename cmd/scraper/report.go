package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-reviews/batch"
	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/jedib0t/go-pretty/v6/table"
)

// progressReporter renders one tracker per listing. A nil reporter is a
// no-op so callers can pass its methods unconditionally.
type progressReporter struct {
	pw     progress.Writer
	target int64

	mu       sync.Mutex
	trackers map[string]*progress.Tracker
	stopped  bool
}

func newProgressReporter(target int) *progressReporter {
	pw := progress.NewWriter()
	pw.SetAutoStop(false)
	pw.SetTrackerLength(25)
	pw.SetOutputWriter(os.Stderr)
	pw.SetUpdateFrequency(200 * time.Millisecond)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Visibility.ETA = target > 0
	pw.Style().Visibility.Value = true
	go pw.Render()

	return &progressReporter{
		pw:       pw,
		target:   int64(target),
		trackers: make(map[string]*progress.Tracker),
	}
}

// Update moves the listing's tracker to the checkpointed count.
func (r *progressReporter) Update(p models.SessionProgress) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}

	key := p.PlaceID
	if key == "" {
		key = p.ListingURL
	}
	tracker, ok := r.trackers[key]
	if !ok {
		tracker = &progress.Tracker{
			Message: key,
			Total:   r.target,
			Units:   progress.UnitsDefault,
		}
		r.trackers[key] = tracker
		r.pw.AppendTracker(tracker)
	}
	tracker.SetValue(int64(p.TotalExtracted))

	switch p.Status {
	case models.StatusDone, models.StatusTargetReached:
		tracker.MarkAsDone()
	case models.StatusPartial, models.StatusCancelled:
		tracker.MarkAsErrored()
	}
}

// Stop finishes rendering. Safe to call more than once.
func (r *progressReporter) Stop() {
	if r == nil {
		return
	}
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	r.pw.Stop()
	for r.pw.IsRenderInProgress() {
		time.Sleep(50 * time.Millisecond)
	}
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func printSessionSummary(result *models.SessionResult, outputFile string, sinkMetrics map[string]interface{}) {
	p := result.Progress
	duration := result.EndTime.Sub(result.StartTime)
	perSec := 0.0
	if duration.Seconds() > 0 {
		perSec = float64(p.TotalExtracted) / duration.Seconds()
	}

	t := newTable()
	t.SetTitle("Scrape complete")
	t.AppendRows([]table.Row{
		{"Listing", p.ListingURL},
		{"Place ID", p.PlaceID},
		{"Status", p.Status},
		{"Reviews", p.TotalExtracted},
		{"Duplicates skipped", p.TotalDeduplicatedOut},
		{"Extraction errors", p.ExtractionErrors},
		{"Scroll rounds", p.ScrollRounds},
		{"Retries", result.Retries},
		{"Duration", duration.Round(time.Millisecond)},
		{"Reviews/sec", fmt.Sprintf("%.2f", perSec)},
		{"Output file", outputFile},
	})
	if valErrors, ok := sinkMetrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		t.AppendRow(table.Row{"Validation", fmt.Sprint(valErrors)})
	}
	if p.Error != "" {
		t.AppendRow(table.Row{"Error", p.Error})
	}
	fmt.Println()
	t.Render()
}

func printBatchSummary(summary *batch.Summary) {
	t := newTable()
	t.SetTitle("Batch complete")
	t.AppendHeader(table.Row{"Place ID", "Status", "Reviews", "Errors", "Rounds", "Output"})
	for i, job := range summary.Jobs {
		result := summary.Results[i]
		p := result.Progress
		t.AppendRow(table.Row{job.PlaceID, p.Status, p.TotalExtracted, p.ExtractionErrors, p.ScrollRounds, job.OutputFile})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d failed", summary.Failed()), summary.Reviews, "", "",
		summary.EndTime.Sub(summary.StartTime).Round(time.Millisecond)})
	fmt.Println()
	t.Render()

	for _, url := range summary.Skipped {
		fmt.Printf("  skipped: %s\n", url)
	}
}

func printDuplicates(groups []batch.DuplicateGroup) {
	t := newTable()
	t.SetTitle("Duplicate listing outputs")
	t.AppendHeader(table.Row{"Place ID", "Action", "Status", "Reviews", "Bytes", "Progress file"})
	total := 0
	for _, group := range groups {
		rows := append([]batch.Output{group.Keep}, group.Remove...)
		for i, out := range rows {
			action := "keep"
			if i > 0 {
				action = "delete"
				total++
			}
			t.AppendRow(table.Row{group.PlaceID, action, out.Progress.Status, out.Progress.TotalExtracted, out.Size, out.ProgressPath})
		}
		t.AppendSeparator()
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d to delete", total)})
	fmt.Println()
	t.Render()
}
