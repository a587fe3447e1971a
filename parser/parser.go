// Package parser turns raw review-panel elements into Review records.
// All knowledge of the platform's markup lives here.
package parser

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-reviews/models"
)

var (
	// ErrEmptyItem is returned for a raw item without markup.
	ErrEmptyItem = errors.New("empty item")
	// ErrMissingReviewer is returned when no reviewer name can be found;
	// without it the review has no usable identity.
	ErrMissingReviewer = errors.New("missing reviewer name")
	// ErrMalformedMarkup is returned when the fragment cannot be parsed.
	ErrMalformedMarkup = errors.New("malformed markup")
)

// ExtractionError describes why a single raw item was skipped.
type ExtractionError struct {
	ItemID string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.ItemID != "" {
		return fmt.Sprintf("extract item %s: %v", e.ItemID, e.Err)
	}
	return fmt.Sprintf("extract item: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Rule maps one raw list element to a Review. Selector lists are tried in
// order; the first non-empty match wins.
type Rule struct {
	ItemSelector         string
	IDAttr               string
	NameAttr             string
	NameSelectors        []string
	RatingLabelSelectors []string
	RatingTextSelectors  []string
	TimeSelectors        []string
	TextSelectors        []string
	// FingerprintTextLen is how many runes of the review text feed the
	// fallback identity.
	FingerprintTextLen int
	Now                func() time.Time
}

// DefaultRule returns the selectors for the Google Maps review panel.
func DefaultRule() *Rule {
	return &Rule{
		ItemSelector:         "div.jftiEf",
		IDAttr:               "data-review-id",
		NameAttr:             "aria-label",
		NameSelectors:        []string{"div.d4r55", "button.al6Kxe div.d4r55", "a.WNxzHc div"},
		RatingLabelSelectors: []string{"span.kvMYJc", "span[role=img][aria-label*='star']"},
		RatingTextSelectors:  []string{"span.fzvQIb"},
		TimeSelectors:        []string{"span.rsqaWe", "span.xRkPPb"},
		TextSelectors:        []string{"span.wiI7pd", "div.MyEned span"},
		FingerprintTextLen:   120,
		Now:                  time.Now,
	}
}

// Extract parses item into a Review. It never panics; any failure is an
// *ExtractionError so callers can skip the item and carry on.
func (r *Rule) Extract(item models.RawItem) (review *models.Review, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			review = nil
			err = &ExtractionError{ItemID: item.ID, Err: fmt.Errorf("%w: %v", ErrMalformedMarkup, rec)}
		}
	}()

	if strings.TrimSpace(item.HTML) == "" {
		return nil, &ExtractionError{ItemID: item.ID, Err: ErrEmptyItem}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(item.HTML))
	if err != nil {
		return nil, &ExtractionError{ItemID: item.ID, Err: fmt.Errorf("%w: %v", ErrMalformedMarkup, err)}
	}

	root := doc.Find(r.ItemSelector).First()
	if root.Length() == 0 {
		root = doc.Find("body").Children().First()
	}

	platformID := strings.TrimSpace(item.ID)
	if platformID == "" && r.IDAttr != "" {
		if v, ok := root.Attr(r.IDAttr); ok {
			platformID = strings.TrimSpace(v)
		}
	}

	name := firstText(root, r.NameSelectors)
	if name == "" && r.NameAttr != "" {
		if v, ok := root.Attr(r.NameAttr); ok {
			name = NormalizeText(v)
		}
	}
	if name == "" {
		return nil, &ExtractionError{ItemID: platformID, Err: ErrMissingReviewer}
	}

	rating := 0
	if label := firstAttr(root, r.RatingLabelSelectors, "aria-label"); label != "" {
		rating = ParseRating(label)
	}
	if rating == 0 {
		rating = ParseRating(firstText(root, r.RatingTextSelectors))
	}

	relative := firstText(root, r.TimeSelectors)
	text := firstText(root, r.TextSelectors)

	fingerprint := Fingerprint(name, relative, text, r.FingerprintTextLen)
	id := platformID
	if id == "" {
		id = "fp:" + fingerprint
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	return &models.Review{
		ReviewID:       id,
		ReviewerName:   name,
		Rating:         rating,
		ReviewText:     text,
		RelativeTime:   relative,
		RawFingerprint: fingerprint,
		ScrapedAt:      now().UTC(),
	}, nil
}

func firstText(root *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if text := NormalizeText(root.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func firstAttr(root *goquery.Selection, selectors []string, attr string) string {
	for _, sel := range selectors {
		if v, ok := root.Find(sel).First().Attr(attr); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// NormalizeText collapses runs of whitespace and trims the result.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

var ratingNumber = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// ParseRating reads the first number from labels such as "4 stars",
// "Rated 4.0 out of 5" or "5/5". Anything outside 1-5 yields 0.
func ParseRating(label string) int {
	match := ratingNumber.FindString(label)
	if match == "" {
		return 0
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", "."), 64)
	if err != nil {
		return 0
	}
	rating := int(math.Floor(value))
	if rating < 1 || rating > 5 {
		return 0
	}
	return rating
}
