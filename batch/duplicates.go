package batch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/aluiziolira/go-scrape-reviews/parser"
	"github.com/aluiziolira/go-scrape-reviews/pipeline"
)

const progressSuffix = ".progress.json"

// reserved files live next to listing outputs but never belong to one.
var reserved = map[string]bool{
	"progress.json":     true,
	SummaryFile:         true,
	ErrorsFile:          true,
	"batch_config.json": true,
}

var dataExts = []string{".csv", ".jsonl", ".json"}

// Output is one listing's files in an output directory.
type Output struct {
	ProgressPath string
	DataPaths    []string
	Progress     models.SessionProgress
	Size         int64
}

// DuplicateGroup holds outputs that scraped the same place. Keep is the
// best of them; Remove are the rest.
type DuplicateGroup struct {
	PlaceID string
	Keep    Output
	Remove  []Output
}

// FindDuplicates scans dir and its subdirectories for listing outputs that
// share a place id. The output kept is the first that finished, then the
// one with the most reviews, then the largest on disk.
func FindDuplicates(dir string) ([]DuplicateGroup, error) {
	var matches []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() || !strings.HasSuffix(name, progressSuffix) || reserved[name] {
			return nil
		}
		matches = append(matches, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	byPlace := make(map[string][]Output)
	for _, path := range matches {
		progress, err := pipeline.ReadProgress(path)
		if err != nil || progress == nil {
			continue
		}
		placeID := progress.PlaceID
		if placeID == "" {
			placeID = parser.PlaceID(progress.ListingURL)
		}
		out := Output{ProgressPath: path, Progress: *progress}
		base := strings.TrimSuffix(path, progressSuffix)
		for _, ext := range dataExts {
			info, err := os.Stat(base + ext)
			if err != nil || info.IsDir() || reserved[filepath.Base(base+ext)] {
				continue
			}
			out.DataPaths = append(out.DataPaths, base+ext)
			out.Size += info.Size()
		}
		byPlace[placeID] = append(byPlace[placeID], out)
	}

	var groups []DuplicateGroup
	for placeID, outputs := range byPlace {
		if len(outputs) < 2 {
			continue
		}
		sort.SliceStable(outputs, func(i, j int) bool {
			return better(outputs[i], outputs[j])
		})
		groups = append(groups, DuplicateGroup{
			PlaceID: placeID,
			Keep:    outputs[0],
			Remove:  outputs[1:],
		})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].PlaceID < groups[j].PlaceID })
	return groups, nil
}

func better(a, b Output) bool {
	if a.Progress.Finished() != b.Progress.Finished() {
		return a.Progress.Finished()
	}
	if a.Progress.TotalExtracted != b.Progress.TotalExtracted {
		return a.Progress.TotalExtracted > b.Progress.TotalExtracted
	}
	if a.Size != b.Size {
		return a.Size > b.Size
	}
	return a.ProgressPath < b.ProgressPath
}

// RemoveDuplicates deletes the files of every output marked for removal
// and returns the paths it deleted.
func RemoveDuplicates(groups []DuplicateGroup) ([]string, error) {
	var (
		removed []string
		errs    []error
	)
	for _, group := range groups {
		for _, out := range group.Remove {
			for _, path := range append(out.DataPaths, out.ProgressPath) {
				if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
					errs = append(errs, fmt.Errorf("remove %s: %w", path, err))
					continue
				}
				removed = append(removed, path)
			}
		}
	}
	return removed, errors.Join(errs...)
}
