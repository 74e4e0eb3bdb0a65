package driver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// StaticBrowser fetches pages over plain HTTP with colly. It cannot run
// scripts or interact with forms, so it only suits pages whose product data
// is present in the server response.
type StaticBrowser struct {
	collector *colly.Collector
}

// NewStaticBrowser builds a static backend that presents cfg.UserAgent.
func NewStaticBrowser(cfg LaunchConfig) *StaticBrowser {
	timeout := cfg.NavigationTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(timeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	return &StaticBrowser{collector: collector}
}

// WithTransport replaces the HTTP transport shared by all pages.
func (b *StaticBrowser) WithTransport(rt http.RoundTripper) {
	b.collector.WithTransport(rt)
}

// NewPage returns a page backed by its own collector clone.
func (b *StaticBrowser) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := &staticPage{collector: b.collector.Clone()}
	p.collector.OnResponse(func(r *colly.Response) {
		p.status = r.StatusCode
		p.body = r.Body
	})
	p.collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			p.status = r.StatusCode
		}
		p.err = err
	})
	return p, nil
}

// Close is a no-op; pages hold no process resources.
func (b *StaticBrowser) Close() error {
	return nil
}

type staticPage struct {
	collector *colly.Collector

	status int
	body   []byte
	err    error
	doc    *goquery.Document
}

func (p *staticPage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return &NavigationError{URL: url, Err: err}
	}
	p.status, p.body, p.err, p.doc = 0, nil, nil, nil

	if err := p.collector.Visit(url); err != nil {
		return &NavigationError{URL: url, Status: p.status, Err: err}
	}
	p.collector.Wait()
	if p.err != nil {
		return &NavigationError{URL: url, Status: p.status, Err: p.err}
	}
	return nil
}

func (p *staticPage) Fill(context.Context, string, string) error {
	return fmt.Errorf("fill: %w", ErrUnsupported)
}

func (p *staticPage) Press(context.Context, string, string) error {
	return fmt.Errorf("press: %w", ErrUnsupported)
}

// WaitFor checks the fetched markup once; a static page never changes.
func (p *staticPage) WaitFor(ctx context.Context, locator string, _ time.Duration) error {
	doc, err := p.document()
	if err != nil {
		return err
	}
	if doc.Find(locator).Length() == 0 {
		return fmt.Errorf("wait for %s: %w", locator, ErrElementNotFound)
	}
	return nil
}

func (p *staticPage) Evaluate(context.Context, string) error {
	return fmt.Errorf("evaluate: %w", ErrUnsupported)
}

func (p *staticPage) Attributes(ctx context.Context, locator, attr string) ([]string, error) {
	doc, err := p.document()
	if err != nil {
		return nil, err
	}
	var values []string
	doc.Find(locator).Each(func(_ int, s *goquery.Selection) {
		if value, ok := s.Attr(attr); ok {
			values = append(values, value)
		}
	})
	return values, nil
}

func (p *staticPage) Content(context.Context) (string, error) {
	if p.body == nil {
		return "", fmt.Errorf("read content: no page loaded")
	}
	return string(p.body), nil
}

func (p *staticPage) Close() error {
	p.body, p.doc = nil, nil
	return nil
}

func (p *staticPage) document() (*goquery.Document, error) {
	if p.doc != nil {
		return p.doc, nil
	}
	if p.body == nil {
		return nil, fmt.Errorf("no page loaded")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(p.body)))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	p.doc = doc
	return doc, nil
}
