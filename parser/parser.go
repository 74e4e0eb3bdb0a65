// Package parser maps rendered product pages to models.ProductRecord values.
//
// Every field is extracted on its own: a missing or restructured element
// leaves that field nil and never affects its siblings. A page yields an
// error only when nothing at all could be extracted from it.
package parser

import (
	"errors"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-market/models"
)

// ErrNotProductPage is returned when a document carries none of the
// expected product fields, e.g. an anti-bot interstitial.
var ErrNotProductPage = errors.New("parser: document is not a product page")

var spaceRun = regexp.MustCompile(`\s+`)

// CleanText trims the string and collapses runs of ASCII whitespace
// (including tabs and newlines) into single spaces.
func CleanText(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// SplitRating breaks a composite "score<sep>count" summary.
//
// With the separator present it returns score and count and a nil summary.
// Without it the raw summary is kept and score and count are nil. A nil or
// blank summary yields three nils.
func SplitRating(summary *string, sep string) (rawSummary, score, count *string) {
	if summary == nil {
		return nil, nil, nil
	}
	text := CleanText(*summary)
	if text == "" {
		return nil, nil, nil
	}
	before, after, found := strings.Cut(text, sep)
	if !found || sep == "" {
		return &text, nil, nil
	}
	return nil, optional(before), optional(after)
}

// HasContent reports whether at least one field of r is populated.
func HasContent(r models.ProductRecord) bool {
	for _, field := range []*string{
		r.ArticleID, r.Title, r.LoyaltyPrice, r.DiscountPrice,
		r.BasePrice, r.RatingSummary, r.RatingScore, r.ReviewCount,
	} {
		if field != nil {
			return true
		}
	}
	return false
}

// optional returns nil for blank text and a pointer to the cleaned text otherwise.
func optional(s string) *string {
	s = CleanText(s)
	if s == "" {
		return nil
	}
	return &s
}

// selectionText returns the cleaned text of the first node in sel, or nil.
func selectionText(sel *goquery.Selection) *string {
	if sel == nil || sel.Length() == 0 {
		return nil
	}
	return optional(sel.First().Text())
}

// leafContaining finds the first tag element without element children whose
// text contains needle.
func leafContaining(doc *goquery.Document, tag, needle string) *goquery.Selection {
	return doc.Find(tag).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Children().Length() == 0 && strings.Contains(s.Text(), needle)
	}).First()
}

// leafEqual finds the first tag element whose trimmed text equals one of labels.
func leafEqual(doc *goquery.Document, tag string, labels ...string) *goquery.Selection {
	return doc.Find(tag).FilterFunction(func(_ int, s *goquery.Selection) bool {
		text := CleanText(s.Text())
		for _, label := range labels {
			if text == label {
				return true
			}
		}
		return false
	}).First()
}

// afterSeparator returns the cleaned text following the first sep in s.
func afterSeparator(s *goquery.Selection, sep string) *string {
	if s == nil || s.Length() == 0 {
		return nil
	}
	_, after, found := strings.Cut(s.Text(), sep)
	if !found {
		return nil
	}
	return optional(after)
}

func finish(r models.ProductRecord) (models.ProductRecord, error) {
	if !HasContent(r) {
		return r, ErrNotProductPage
	}
	return r, nil
}
