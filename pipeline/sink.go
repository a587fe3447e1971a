package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-reviews/models"
)

var (
	// ErrSinkClosed is returned when Append is called after shutdown.
	ErrSinkClosed = errors.New("pipeline: sink closed")
	// ErrInvalidRecord is returned for a review without identity.
	ErrInvalidRecord = errors.New("pipeline: invalid record")
)

// SinkWriteError means the output can no longer be trusted. The session
// must stop; everything appended before it remains readable.
type SinkWriteError struct {
	Op  string
	Err error
}

func (e *SinkWriteError) Error() string {
	return fmt.Sprintf("sink %s: %v", e.Op, e.Err)
}

func (e *SinkWriteError) Unwrap() error {
	return e.Err
}

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(reviews []*models.Review) error
	Sync() error
	Close() error
	Validate() error
	Paths() []string
}

// Sink is the append-only store for one session. Append writes through
// immediately; Checkpoint makes data and progress durable.
type Sink struct {
	writer       OutputWriter
	progressPath string
	now          func() time.Time

	metrics metrics

	mu     sync.Mutex // guards closed/err
	closed bool
	err    error
}

// NewSink wraps writer and checkpoints progress into progressPath.
func NewSink(writer OutputWriter, progressPath string) *Sink {
	return &Sink{
		writer:       writer,
		progressPath: progressPath,
		now:          time.Now,
		metrics:      newMetrics(),
	}
}

// Append persists one review. Invalid records are rejected with
// ErrInvalidRecord; write failures are sticky *SinkWriteError values.
func (s *Sink) Append(review *models.Review) error {
	closed, err := s.state()
	if err != nil {
		return err
	}
	if closed {
		return ErrSinkClosed
	}

	if err := ValidateReview(review); err != nil {
		s.metrics.addValidation("invalid_record")
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	if err := s.writer.Write([]*models.Review{review}); err != nil {
		return s.setErr(&SinkWriteError{Op: "append", Err: err})
	}
	s.metrics.incrementProcessed()
	return nil
}

// Checkpoint syncs appended records and atomically rewrites the progress
// sidecar. LastCheckpointAt is stamped on p.
func (s *Sink) Checkpoint(p *models.SessionProgress) error {
	if _, err := s.state(); err != nil {
		return err
	}

	if err := s.writer.Sync(); err != nil {
		return s.setErr(&SinkWriteError{Op: "sync", Err: err})
	}
	p.LastCheckpointAt = s.now().UTC()
	if s.progressPath == "" {
		return nil
	}
	if err := WriteProgress(s.progressPath, *p); err != nil {
		return s.setErr(&SinkWriteError{Op: "checkpoint", Err: err})
	}
	return nil
}

// Close prevents more appends, closes the writer and validates the files
// it produced.
func (s *Sink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.writer.Close(); err != nil {
		return err
	}
	if err := s.writer.Validate(); err != nil {
		return fmt.Errorf("output validation failed: %w", err)
	}
	return nil
}

// Err returns the first write error encountered.
func (s *Sink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// GetMetrics returns a snapshot of the internal counters.
func (s *Sink) GetMetrics() map[string]interface{} {
	return s.metrics.snapshot()
}

func (s *Sink) setErr(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
	return s.err
}

func (s *Sink) state() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed, s.err
}

// ValidateReview ensures a review carries the fields its identity needs.
func ValidateReview(r *models.Review) error {
	if r == nil {
		return fmt.Errorf("review is nil")
	}
	if strings.TrimSpace(r.ReviewID) == "" {
		return fmt.Errorf("review missing id")
	}
	if strings.TrimSpace(r.ReviewerName) == "" {
		return fmt.Errorf("review %s missing reviewer name", r.ReviewID)
	}
	if r.Rating < 0 || r.Rating > 5 {
		return fmt.Errorf("review %s rating %d out of range", r.ReviewID, r.Rating)
	}
	return nil
}

type metrics struct {
	mu         sync.Mutex
	processed  int64
	validation map[string]int
}

func newMetrics() metrics {
	return metrics{
		validation: make(map[string]int),
	}
}

func (m *metrics) incrementProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}

	return map[string]interface{}{
		"processed_reviews": m.processed,
		"validation_errors": copyValidation,
	}
}
