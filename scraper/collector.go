package scraper

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aluiziolira/go-scrape-market/driver"
	"github.com/aluiziolira/go-scrape-market/models"
	"github.com/aluiziolira/go-scrape-market/site"
)

// CollectorOptions tunes product page fan-out.
type CollectorOptions struct {
	// Parallelism caps the number of pages open at once.
	Parallelism int
	// SettleTimeout bounds the wait for the profile's ready element.
	SettleTimeout time.Duration
	// SettleDelay is a fixed pause after navigation for late widgets.
	SettleDelay time.Duration
}

// Failure is a product URL that produced no record.
type Failure struct {
	URL string
	Err error
}

// Collection is the outcome of one Collect call. Records are in completion
// order, not input order.
type Collection struct {
	Records  []models.ProductRecord
	Failures []Failure
}

// Collector opens product pages concurrently and parses each into a record.
type Collector struct {
	opts    CollectorOptions
	logger  *zap.Logger
	metrics *Metrics
}

// NewCollector builds a collector; a nil logger or metrics disables them.
func NewCollector(opts CollectorOptions, logger *zap.Logger, metrics *Metrics) *Collector {
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{opts: opts, logger: logger, metrics: metrics}
}

// Collect processes every URL and waits for all of them. A failing URL is
// logged and reported in Failures; it never stops its siblings.
func (c *Collector) Collect(ctx context.Context, browser driver.Browser, profile site.Profile, urls []string) Collection {
	var (
		mu  sync.Mutex
		out = Collection{Records: make([]models.ProductRecord, 0, len(urls))}
	)

	var g errgroup.Group
	g.SetLimit(c.opts.Parallelism)
	for _, url := range urls {
		url := url
		g.Go(func() error {
			start := time.Now()
			record, err := c.collectOne(ctx, browser, profile, url)
			c.metrics.ObserveDuration(time.Since(start))

			if err != nil {
				classified := classifyError(err)
				category := errorTypeLabel(classified)
				c.logger.Error("product page failed",
					zap.String("url", url),
					zap.String("category", category),
					zap.Error(err),
				)
				c.metrics.IncPage("failed")
				c.metrics.IncError(category)

				mu.Lock()
				out.Failures = append(out.Failures, Failure{URL: url, Err: classified})
				mu.Unlock()
				return nil
			}

			c.logger.Debug("product page collected", zap.String("url", url))
			c.metrics.IncPage("ok")
			c.metrics.IncRecords()

			mu.Lock()
			out.Records = append(out.Records, record)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (c *Collector) collectOne(ctx context.Context, browser driver.Browser, profile site.Profile, url string) (record models.ProductRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrParse{Err: fmt.Errorf("panic while processing %s: %v", url, r)}
		}
	}()

	page, err := browser.NewPage(ctx)
	if err != nil {
		return record, fmt.Errorf("open page: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			c.logger.Debug("close page", zap.String("url", url), zap.Error(cerr))
		}
	}()

	if err := page.Navigate(ctx, url); err != nil {
		return record, err
	}
	c.settle(ctx, page, profile, url)
	if err := sleep(ctx, c.opts.SettleDelay); err != nil {
		return record, err
	}

	html, err := page.Content(ctx)
	if err != nil {
		return record, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return record, ErrParse{Err: fmt.Errorf("parse html: %w", err)}
	}

	record, err = profile.Parse(doc)
	if err != nil {
		return models.ProductRecord{}, err
	}
	return record, nil
}

// settle waits for the profile's ready element. A page that never shows it
// is still read; the parser decides what is usable.
func (c *Collector) settle(ctx context.Context, page driver.Page, profile site.Profile, url string) {
	if profile.DetailReadyLocator == "" || c.opts.SettleTimeout <= 0 {
		return
	}
	if err := page.WaitFor(ctx, profile.DetailReadyLocator, c.opts.SettleTimeout); err != nil {
		c.logger.Debug("ready element not seen, reading page as is",
			zap.String("url", url),
			zap.String("locator", profile.DetailReadyLocator),
			zap.Error(err),
		)
	}
}
