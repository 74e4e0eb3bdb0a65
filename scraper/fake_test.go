package scraper

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aluiziolira/go-scrape-market/driver"
)

// fakeBrowser serves canned markup keyed by URL.
type fakeBrowser struct {
	mu       sync.Mutex
	pages    map[string]string
	navErrs  map[string]error
	hrefs    []string
	hrefsErr error
	// missing locators never appear in WaitFor.
	missing map[string]bool
	delay   time.Duration

	inFlight    int32
	maxInFlight int32
	scrolls     int32
	closes      int32
	filled      []string
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		pages:   make(map[string]string),
		navErrs: make(map[string]error),
		missing: make(map[string]bool),
	}
}

func (b *fakeBrowser) NewPage(ctx context.Context) (driver.Page, error) {
	n := atomic.AddInt32(&b.inFlight, 1)
	for {
		peak := atomic.LoadInt32(&b.maxInFlight)
		if n <= peak || atomic.CompareAndSwapInt32(&b.maxInFlight, peak, n) {
			break
		}
	}
	return &fakePage{browser: b}, nil
}

func (b *fakeBrowser) Close() error {
	atomic.AddInt32(&b.closes, 1)
	return nil
}

type fakePage struct {
	browser *fakeBrowser
	current string
	closed  bool
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	if p.browser.delay > 0 {
		if err := sleep(ctx, p.browser.delay); err != nil {
			return err
		}
	}
	p.browser.mu.Lock()
	defer p.browser.mu.Unlock()
	if err, ok := p.browser.navErrs[url]; ok {
		return &driver.NavigationError{URL: url, Err: err}
	}
	p.current = url
	return nil
}

func (p *fakePage) Fill(_ context.Context, locator, text string) error {
	p.browser.mu.Lock()
	defer p.browser.mu.Unlock()
	if p.browser.missing[locator] {
		return fmt.Errorf("%s: %w", locator, driver.ErrElementNotFound)
	}
	p.browser.filled = append(p.browser.filled, text)
	return nil
}

func (p *fakePage) Press(context.Context, string, string) error {
	return nil
}

func (p *fakePage) WaitFor(_ context.Context, locator string, _ time.Duration) error {
	p.browser.mu.Lock()
	defer p.browser.mu.Unlock()
	if p.browser.missing[locator] {
		return fmt.Errorf("wait for %s: %w", locator, context.DeadlineExceeded)
	}
	return nil
}

func (p *fakePage) Evaluate(context.Context, string) error {
	atomic.AddInt32(&p.browser.scrolls, 1)
	return nil
}

func (p *fakePage) Attributes(context.Context, string, string) ([]string, error) {
	p.browser.mu.Lock()
	defer p.browser.mu.Unlock()
	if p.browser.hrefsErr != nil {
		return nil, p.browser.hrefsErr
	}
	return append([]string(nil), p.browser.hrefs...), nil
}

func (p *fakePage) Content(context.Context) (string, error) {
	p.browser.mu.Lock()
	defer p.browser.mu.Unlock()
	return p.browser.pages[p.current], nil
}

func (p *fakePage) Close() error {
	if !p.closed {
		p.closed = true
		atomic.AddInt32(&p.browser.inFlight, -1)
	}
	return nil
}
