package parser

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-market/models"
)

// Card price labels are spelled with both Latin and Cyrillic "c".
var (
	ozonCardLabels   = []string{"c Ozon Картой", "с Ozon Картой"}
	ozonNoCardLabels = []string{"без Ozon Карты"}
)

// ParseOzon extracts an ozon.ru product page.
func ParseOzon(doc *goquery.Document) (models.ProductRecord, error) {
	var r models.ProductRecord
	if doc == nil {
		return r, ErrNotProductPage
	}

	r.ArticleID = afterSeparator(leafContaining(doc, "div", "Артикул:"), "Артикул:")
	r.Title = selectionText(doc.Find(`div[data-widget="webProductHeading"] h1`))

	score := selectionText(doc.Find(`div[data-widget="webSingleProductScore"]`))
	r.RatingSummary, r.RatingScore, r.ReviewCount = SplitRating(score, " • ")

	r.LoyaltyPrice, r.DiscountPrice, r.BasePrice = ozonPrices(doc)

	return finish(r)
}

// ozonPrices tries the card-price widget first and falls back to the plain
// price widget, which has no loyalty price.
func ozonPrices(doc *goquery.Document) (loyalty, discount, base *string) {
	card := leafEqual(doc, "span", ozonCardLabels...)
	if card.Length() > 0 {
		loyalty = selectionText(card.Parent().Find("div").First().Find("span"))

		noCard := leafEqual(doc, "span", ozonNoCardLabels...)
		if noCard.Length() > 0 {
			spans := noCard.Parent().Parent().Find("div").First().Find("span")
			discount = selectionText(spans.Eq(0))
			base = selectionText(spans.Eq(1))
		}
		return loyalty, discount, base
	}

	spans := doc.Find(`div[data-widget="webPrice"]`).First().Find("span")
	base = selectionText(spans.Eq(0))
	discount = selectionText(spans.Eq(1))
	return nil, discount, base
}
