package pipeline

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/aluiziolira/go-scrape-reviews/models"
)

// JSONPath returns the JSONL companion of a CSV output file.
func JSONPath(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + ".jsonl"
}

// OpenWriter builds the writer for format ("csv", "json" or "dual").
func OpenWriter(format, filename string, resume bool) (OutputWriter, error) {
	switch format {
	case "json":
		return NewJSONWriter(filename, resume)
	case "csv":
		return NewCSVWriter(filename, resume)
	case "dual":
		return NewDualWriter(filename, JSONPath(filename), resume)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// OpenSink opens the writer for filename and a sink checkpointing next to it.
func OpenSink(format, filename string, resume bool) (*Sink, error) {
	writer, err := OpenWriter(format, filename, resume)
	if err != nil {
		return nil, err
	}
	return NewSink(writer, ProgressPath(filename)), nil
}

// ResumeState is what a previous run left behind for one output file.
type ResumeState struct {
	SeenIDs  []string
	Skipped  int
	Progress *models.SessionProgress
}

// LoadResume reads what a previous run wrote to filename and its
// checkpoint. Torn trailing records are cut from disk first so every id
// returned is one the file really holds. Dual output is reconciled: a
// review present in only one of the two files is copied into the other.
func LoadResume(format, filename string) (*ResumeState, error) {
	var (
		reviews []*models.Review
		skipped int
		err     error
	)
	switch format {
	case "json":
		reviews, skipped, err = readTrimmed(filename, ReadJSONReviews)
	case "dual":
		reviews, skipped, err = reconcileDual(filename, JSONPath(filename))
	default:
		reviews, skipped, err = readTrimmed(filename, ReadCSVReviews)
	}
	if err != nil {
		return nil, fmt.Errorf("read previous output: %w", err)
	}
	progress, err := ReadProgress(ProgressPath(filename))
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(reviews))
	for _, r := range reviews {
		ids = append(ids, r.ReviewID)
	}
	return &ResumeState{SeenIDs: ids, Skipped: skipped, Progress: progress}, nil
}

type readFunc func(path string) ([]*models.Review, int, error)

func readTrimmed(path string, read readFunc) ([]*models.Review, int, error) {
	if err := trimTornTail(path); err != nil {
		return nil, 0, err
	}
	return read(path)
}

// reconcileDual brings the CSV and JSONL outputs back to the same set of
// reviews. A crash or write failure between the two appends leaves one
// file a record ahead of the other.
func reconcileDual(csvPath, jsonPath string) ([]*models.Review, int, error) {
	csvReviews, csvSkipped, err := readTrimmed(csvPath, ReadCSVReviews)
	if err != nil {
		return nil, 0, err
	}
	jsonReviews, jsonSkipped, err := readTrimmed(jsonPath, ReadJSONReviews)
	if err != nil {
		return nil, 0, err
	}

	toJSON := missingFrom(csvReviews, jsonReviews)
	toCSV := missingFrom(jsonReviews, csvReviews)
	if len(toJSON) > 0 {
		slog.Warn("restoring reviews missing from json output",
			slog.String("path", jsonPath), slog.Int("count", len(toJSON)))
		writer, err := NewJSONWriter(jsonPath, true)
		if err != nil {
			return nil, 0, err
		}
		if err := appendReviews(writer, toJSON); err != nil {
			return nil, 0, fmt.Errorf("restore json output: %w", err)
		}
	}
	if len(toCSV) > 0 {
		slog.Warn("restoring reviews missing from csv output",
			slog.String("path", csvPath), slog.Int("count", len(toCSV)))
		writer, err := NewCSVWriter(csvPath, true)
		if err != nil {
			return nil, 0, err
		}
		if err := appendReviews(writer, toCSV); err != nil {
			return nil, 0, fmt.Errorf("restore csv output: %w", err)
		}
	}
	return append(csvReviews, toCSV...), csvSkipped + jsonSkipped, nil
}

// missingFrom returns the reviews of src whose id is not in dst.
func missingFrom(src, dst []*models.Review) []*models.Review {
	have := make(map[string]struct{}, len(dst))
	for _, r := range dst {
		have[r.ReviewID] = struct{}{}
	}
	var missing []*models.Review
	for _, r := range src {
		if _, ok := have[r.ReviewID]; !ok {
			missing = append(missing, r)
			have[r.ReviewID] = struct{}{}
		}
	}
	return missing
}

// appendReviews writes reviews durably and closes w.
func appendReviews(w OutputWriter, reviews []*models.Review) error {
	if err := w.Write(reviews); err != nil {
		w.Close()
		return err
	}
	if err := w.Sync(); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
