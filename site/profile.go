// Package site describes the marketplaces the scraper knows how to read.
package site

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-market/models"
	"github.com/aluiziolira/go-scrape-market/parser"
)

// ParseFunc maps a rendered product page to a record.
type ParseFunc func(doc *goquery.Document) (models.ProductRecord, error)

// Profile holds the locators and field mapping for one site.
// Profiles are values; callers never mutate the built-in ones.
type Profile struct {
	Name                    string
	BaseURL                 string
	SearchInputLocator      string
	ResultsContainerLocator string
	ProductLinkLocator      string
	ProductLinkPrefix       string
	// AbsoluteLinks marks sites whose result hrefs are already absolute.
	AbsoluteLinks bool
	// ScrollThreshold is the item count above which the results page is
	// scrolled before harvesting.
	ScrollThreshold int
	// DetailReadyLocator appears on a product page once it has rendered.
	DetailReadyLocator string
	Headless           bool
	Parse              ParseFunc
}

// Ozon returns the ozon.ru profile.
func Ozon() Profile {
	return Profile{
		Name:                    "ozon",
		BaseURL:                 "https://www.ozon.ru",
		SearchInputLocator:      `input[name="text"]`,
		ResultsContainerLocator: `[data-widget="searchResultsV2"]`,
		ProductLinkLocator:      `[data-widget="searchResultsV2"] a[href]`,
		ProductLinkPrefix:       "/product/",
		ScrollThreshold:         8,
		DetailReadyLocator:      `[data-widget="webProductHeading"]`,
		Headless:                false,
		Parse:                   parser.ParseOzon,
	}
}

// Wildberries returns the wildberries.ru profile.
func Wildberries() Profile {
	return Profile{
		Name:                    "wildberries",
		BaseURL:                 "https://www.wildberries.ru",
		SearchInputLocator:      "input.search-catalog__input",
		ResultsContainerLocator: "div.product-card-list",
		ProductLinkLocator:      "a.product-card__link",
		AbsoluteLinks:           true,
		ScrollThreshold:         8,
		DetailReadyLocator:      "h1.product-page__header",
		Headless:                false,
		Parse:                   parser.ParseWildberries,
	}
}

var builtin = map[string]func() Profile{
	"ozon":        Ozon,
	"wildberries": Wildberries,
}

// Lookup returns the built-in profile registered under name.
func Lookup(name string) (Profile, error) {
	ctor, ok := builtin[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Profile{}, fmt.Errorf("unknown site %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return ctor(), nil
}

// Names lists the built-in site names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate reports profiles that cannot drive a run.
func (p Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name cannot be empty")
	}
	if p.BaseURL == "" {
		return fmt.Errorf("profile %s: base URL cannot be empty", p.Name)
	}
	if p.SearchInputLocator == "" || p.ResultsContainerLocator == "" || p.ProductLinkLocator == "" {
		return fmt.Errorf("profile %s: search, results and link locators are required", p.Name)
	}
	if p.Parse == nil {
		return fmt.Errorf("profile %s: parse function is required", p.Name)
	}
	return nil
}
