package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-reviews/driver"
	"github.com/aluiziolira/go-scrape-reviews/parser"
	"github.com/aluiziolira/go-scrape-reviews/pipeline"
)

// DriverError is a driver call that kept failing after its retry budget.
// It ends the session; output flushed before it stays valid.
type DriverError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("driver %s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *DriverError) Unwrap() error {
	return e.Err
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var extractErr *parser.ExtractionError
	if errors.As(err, &extractErr) {
		return "extraction"
	}
	var sinkErr *pipeline.SinkWriteError
	if errors.As(err, &sinkErr) {
		return "sink_write"
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	if label := driver.ErrorTypeLabel(err); label != "other" {
		return label
	}
	return "other"
}
