// Package models defines data structures for the scraper.
package models

import (
	"fmt"
	"strings"
	"time"
)

// ProductRecord is the set of fields extracted from one product page.
// Any field may be nil when the page omits it; nil serialises as JSON null.
type ProductRecord struct {
	ArticleID     *string `csv:"article_id" json:"Артикул"`
	Title         *string `csv:"title" json:"Название"`
	LoyaltyPrice  *string `csv:"loyalty_price" json:"Цена по озон карте"`
	DiscountPrice *string `csv:"discount_price" json:"Цена по скидке"`
	BasePrice     *string `csv:"base_price" json:"Цена без скидки"`
	RatingSummary *string `csv:"rating_summary" json:"Статистика оценок"`
	RatingScore   *string `csv:"rating_score" json:"Рейтинг"`
	ReviewCount   *string `csv:"review_count" json:"Количество отзывов"`
}

// Str returns a pointer to s, for building records in literals.
func Str(s string) *string {
	return &s
}

// Value dereferences p, mapping nil to the empty string.
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// RunRequest is the input of one scraping run.
type RunRequest struct {
	Query      string
	ItemsCount int
}

// Validate checks the request before any browser work starts.
func (r RunRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if r.ItemsCount <= 0 {
		return fmt.Errorf("items count must be positive")
	}
	return nil
}

// RunResult holds the overall result of a scraping run.
type RunResult struct {
	RunID        string
	Site         string
	Query        string
	Records      []ProductRecord
	StartTime    time.Time
	EndTime      time.Time
	LinkCount    int
	FailedURLs   []string
	ErrorsByType map[string]int
	// Err is set when the run hit its failure boundary; Records is empty then.
	Err error
}

// Duration reports the wall-clock length of the run.
func (r *RunResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}
