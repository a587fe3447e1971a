package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-reviews/models"
)

// csvHeader is the column order of the CSV output.
var csvHeader = []string{"review_id", "reviewer_name", "rating", "review_text", "relative_time", "raw_fingerprint", "scraped_at"}

// CSVWriter appends records to a CSV file.
type CSVWriter struct {
	path   string
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter opens filename for appending. Without resume the file is
// truncated. The header row is written only into an empty file.
func NewCSVWriter(filename string, resume bool) (*CSVWriter, error) {
	f, err := openAppend(filename, resume)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := writer.Write(csvHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("write csv header: %w", err)
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("flush csv header: %w", err)
		}
	}

	return &CSVWriter{
		path:   filename,
		file:   f,
		writer: writer,
	}, nil
}

// Write appends reviews and flushes them to the OS.
func (cw *CSVWriter) Write(reviews []*models.Review) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, review := range reviews {
		rating := ""
		if review.HasRating() {
			rating = strconv.Itoa(review.Rating)
		}
		record := []string{
			review.ReviewID,
			review.ReviewerName,
			rating,
			review.ReviewText,
			review.RelativeTime,
			review.RawFingerprint,
			review.ScrapedAt.Format(time.RFC3339),
		}
		if err := cw.writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Sync commits written records to stable storage.
func (cw *CSVWriter) Sync() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.file.Sync()
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// Validate ensures the file has at least the header.
func (cw *CSVWriter) Validate() error {
	info, err := os.Stat(cw.path)
	if err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("csv file is empty")
	}
	return nil
}

// Paths returns the file written by this writer.
func (cw *CSVWriter) Paths() []string {
	return []string{cw.path}
}

// JSONWriter appends newline-delimited JSON records.
type JSONWriter struct {
	path    string
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONWriter opens filename for appending; without resume it truncates.
func NewJSONWriter(filename string, resume bool) (*JSONWriter, error) {
	f, err := openAppend(filename, resume)
	if err != nil {
		return nil, fmt.Errorf("open json file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	return &JSONWriter{
		path:    filename,
		file:    f,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Write appends reviews in JSONL format and flushes them to the OS.
func (jw *JSONWriter) Write(reviews []*models.Review) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for _, review := range reviews {
		if err := jw.encoder.Encode(review); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
	}

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}

	return nil
}

// Sync commits written records to stable storage.
func (jw *JSONWriter) Sync() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Sync()
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// Validate ensures the JSON file exists. A listing without reviews
// legitimately produces an empty file.
func (jw *JSONWriter) Validate() error {
	if _, err := os.Stat(jw.path); err != nil {
		return fmt.Errorf("stat json file: %w", err)
	}
	return nil
}

// Paths returns the file written by this writer.
func (jw *JSONWriter) Paths() []string {
	return []string{jw.path}
}

// openAppend opens filename for appending. When resuming, a torn trailing
// record left by a crash is cut back to the last complete line.
func openAppend(filename string, resume bool) (*os.File, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if !resume {
		flags |= os.O_TRUNC
	}
	if resume {
		if err := trimTornTail(filename); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(filename, flags, 0o644)
}

func trimTornTail(filename string) error {
	f, err := os.OpenFile(filename, os.O_RDWR, 0)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", filename, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", filename, err)
	}
	size := info.Size()
	if size == 0 {
		return nil
	}

	// Scan backwards for the last newline.
	const chunk = 4096
	buf := make([]byte, chunk)
	end := size
	for end > 0 {
		start := end - chunk
		if start < 0 {
			start = 0
		}
		n, err := f.ReadAt(buf[:end-start], start)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read %s: %w", filename, err)
		}
		for i := n - 1; i >= 0; i-- {
			if buf[i] == '\n' {
				cut := start + int64(i) + 1
				if cut == size {
					return nil
				}
				return f.Truncate(cut)
			}
		}
		end = start
	}
	return f.Truncate(0)
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
