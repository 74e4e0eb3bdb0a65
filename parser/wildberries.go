package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-market/models"
)

// ParseWildberries extracts a wildberries.ru product page. The site has no
// loyalty price, so LoyaltyPrice is always nil.
func ParseWildberries(doc *goquery.Document) (models.ProductRecord, error) {
	var r models.ProductRecord
	if doc == nil {
		return r, ErrNotProductPage
	}

	r.ArticleID = afterSeparator(leafContaining(doc, "span", "Артикул"), ":")
	r.Title = selectionText(doc.Find("h1.product-page__header"))
	r.RatingSummary, r.RatingScore, r.ReviewCount = wildberriesRating(doc)
	r.DiscountPrice, r.BasePrice = wildberriesPrices(doc)

	return finish(r)
}

// The review count lives in its own element, so only the score comes from
// the "4.8 из 5" summary. A summary without "из" carries no rating at all.
func wildberriesRating(doc *goquery.Document) (summary, score, count *string) {
	raw := selectionText(doc.Find("span.user-feedback__rating"))
	if raw == nil {
		return nil, nil, nil
	}
	if !strings.Contains(*raw, "из") {
		return nil, nil, nil
	}
	before, _, _ := strings.Cut(*raw, " из")
	return nil, optional(before), selectionText(doc.Find("span.user-feedback__count"))
}

// Without an old price the item is not discounted and both prices match.
func wildberriesPrices(doc *goquery.Document) (discount, base *string) {
	block := doc.Find("div.product-price__price-block").First()
	if block.Length() == 0 {
		return nil, nil
	}
	discount = selectionText(block.Find("span.price-block__final-price"))
	base = selectionText(block.Find("span.price-block__old-price"))
	if base == nil {
		base = discount
	}
	return discount, base
}
