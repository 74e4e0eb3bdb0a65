package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-market/driver"
	"github.com/aluiziolira/go-scrape-market/site"
)

const scrollScript = `() => window.scrollBy(0, document.body.scrollHeight)`

// ScrollOptions bounds the lazy-load scroll phase.
type ScrollOptions struct {
	Iterations int
	Pause      time.Duration
}

// Harvest reads product links from a search results page. When more items
// are wanted than the profile's first screen holds, the page is scrolled
// first; that is best effort and may still yield fewer than itemsCount links.
func Harvest(ctx context.Context, page driver.Page, profile site.Profile, itemsCount int, scroll ScrollOptions) ([]string, error) {
	if itemsCount > profile.ScrollThreshold {
		if err := ScrollLoad(ctx, page, scroll); err != nil {
			return nil, err
		}
	}

	hrefs, err := page.Attributes(ctx, profile.ProductLinkLocator, "href")
	if err != nil {
		return nil, fmt.Errorf("read product links: %w", err)
	}
	return SelectLinks(hrefs, profile, itemsCount), nil
}

// ScrollLoad scrolls to the bottom Iterations times, pausing after each.
func ScrollLoad(ctx context.Context, page driver.Page, opts ScrollOptions) error {
	for i := 0; i < opts.Iterations; i++ {
		if err := page.Evaluate(ctx, scrollScript); err != nil {
			return fmt.Errorf("scroll %d: %w", i+1, err)
		}
		if err := sleep(ctx, opts.Pause); err != nil {
			return err
		}
	}
	return nil
}

// SelectLinks filters hrefs by the profile prefix, makes them absolute
// (root-relative hrefs are resolved against BaseURL even for profiles with
// absolute links),
// drops repeats keeping the first occurrence and caps the result at limit.
func SelectLinks(hrefs []string, profile site.Profile, limit int) []string {
	if limit <= 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(hrefs))
	links := make([]string, 0, min(limit, len(hrefs)))
	for _, href := range hrefs {
		if href == "" || !strings.HasPrefix(href, profile.ProductLinkPrefix) {
			continue
		}
		link := href
		if !profile.AbsoluteLinks || strings.HasPrefix(href, "/") {
			link = profile.BaseURL + href
		}
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		links = append(links, link)
		if len(links) == limit {
			break
		}
	}
	return links
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
