// Package driver is the browser-automation boundary. The scroll loop only
// sees PageDriver; rod and the offline replay driver implement it.
package driver

import (
	"context"
	"time"

	"github.com/aluiziolira/go-scrape-reviews/models"
)

// PageDriver exposes the review list of one opened listing page. Calls are
// not safe for concurrent use; one session drives one PageDriver.
type PageDriver interface {
	// SnapshotItems returns the list elements currently in the DOM, in
	// document order.
	SnapshotItems(ctx context.Context) ([]models.RawItem, error)

	// Scroll moves the review container by delta pixels.
	Scroll(ctx context.Context, delta int) error

	// WaitStable blocks until the list stops changing or timeout elapses.
	// It reports false when the timeout hit first; that is not an error.
	WaitStable(ctx context.Context, timeout time.Duration) (bool, error)

	// Close releases the page and anything the driver launched for it.
	Close() error
}

// Launcher opens a PageDriver positioned on a listing's review list.
type Launcher interface {
	Open(ctx context.Context, listingURL string) (PageDriver, error)
}
