package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-reviews/models"
)

// ReadCSVReviews reads a file written by CSVWriter. Undecodable records,
// such as one torn by a crash, are skipped and counted. A missing file
// yields no reviews.
func ReadCSVReviews(path string) ([]*models.Review, int, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read csv header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	if _, ok := index["review_id"]; !ok {
		return nil, 0, fmt.Errorf("csv header has no review_id column")
	}

	field := func(record []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	var (
		reviews []*models.Review
		skipped int
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skipped++
				slog.Warn("skipping unreadable csv record", slog.String("path", path), slog.Any("error", err))
				continue
			}
			return reviews, skipped, fmt.Errorf("read csv record: %w", err)
		}
		if len(record) != len(header) || field(record, "review_id") == "" {
			skipped++
			continue
		}

		rating, _ := strconv.Atoi(field(record, "rating"))
		scrapedAt, _ := time.Parse(time.RFC3339, field(record, "scraped_at"))
		reviews = append(reviews, &models.Review{
			ReviewID:       field(record, "review_id"),
			ReviewerName:   field(record, "reviewer_name"),
			Rating:         rating,
			ReviewText:     field(record, "review_text"),
			RelativeTime:   field(record, "relative_time"),
			RawFingerprint: field(record, "raw_fingerprint"),
			ScrapedAt:      scrapedAt,
		})
	}
	return reviews, skipped, nil
}

// ReadJSONReviews reads a file written by JSONWriter.
func ReadJSONReviews(path string) ([]*models.Review, int, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open json file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		reviews []*models.Review
		skipped int
	)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var review models.Review
		if err := json.Unmarshal(line, &review); err != nil || review.ReviewID == "" {
			skipped++
			slog.Warn("skipping unreadable json record", slog.String("path", path), slog.Any("error", err))
			continue
		}
		reviews = append(reviews, &review)
	}
	if err := scanner.Err(); err != nil {
		return reviews, skipped, fmt.Errorf("scan json file: %w", err)
	}
	return reviews, skipped, nil
}
