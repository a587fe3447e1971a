package scraper

import "github.com/aluiziolira/go-scrape-reviews/models"

// Deduplicator remembers which review ids a session has accepted. It is
// the authority on whether a review is new; raw list counts are not.
// Not safe for concurrent use.
type Deduplicator struct {
	seen map[string]struct{}
}

// NewDeduplicator returns an empty deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{})}
}

// Seed marks ids from a previous run as already accepted.
func (d *Deduplicator) Seed(ids []string) {
	for _, id := range ids {
		if id != "" {
			d.seen[id] = struct{}{}
		}
	}
}

// IsNew reports whether review has not been accepted before and records
// it. A second call with the same id returns false.
func (d *Deduplicator) IsNew(review *models.Review) bool {
	if review == nil || review.ReviewID == "" {
		return false
	}
	if _, ok := d.seen[review.ReviewID]; ok {
		return false
	}
	d.seen[review.ReviewID] = struct{}{}
	return true
}

// Len returns the number of accepted ids.
func (d *Deduplicator) Len() int {
	return len(d.seen)
}
