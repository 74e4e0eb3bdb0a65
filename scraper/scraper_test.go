package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"

	"github.com/aluiziolira/go-scrape-market/config"
	"github.com/aluiziolira/go-scrape-market/driver"
	"github.com/aluiziolira/go-scrape-market/models"
	"github.com/aluiziolira/go-scrape-market/parser"
	"github.com/aluiziolira/go-scrape-market/site"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.OpenDelay = 0
	cfg.ScrollPause = 0
	cfg.SettleDelay = 0
	cfg.SettleTimeout = 0
	cfg.Parallelism = 2
	return cfg
}

func newTestScraper(t *testing.T, b *fakeBrowser, opts ...Option) *Scraper {
	t.Helper()
	opts = append([]Option{WithLauncher(func(context.Context) (driver.Browser, error) {
		return b, nil
	})}, opts...)
	s, err := NewScraper(testConfig(), site.Ozon(), opts...)
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}
	return s
}

func TestRunCollectsRecords(t *testing.T) {
	b := newFakeBrowser()
	b.hrefs = []string{"/product/a", "/product/b", "/product/a", "/info"}
	b.pages["https://www.ozon.ru/product/a"] = productPage("A")
	b.pages["https://www.ozon.ru/product/b"] = productPage("B")

	s := newTestScraper(t, b)
	result := s.Run(context.Background(), models.RunRequest{Query: "красивая тетрадь", ItemsCount: 5})

	if result.Err != nil {
		t.Fatalf("run error: %v", result.Err)
	}
	if got := titles(result.Records); len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Fatalf("records = %v, want [A B]", got)
	}
	if result.LinkCount != 2 {
		t.Fatalf("links = %d, want 2", result.LinkCount)
	}
	for _, r := range result.Records {
		if r.RatingSummary != nil {
			t.Fatalf("%s: rating summary = %q, want nil", models.Value(r.Title), *r.RatingSummary)
		}
		if got := models.Value(r.RatingScore); got != "4.8" {
			t.Fatalf("%s: rating score = %q, want 4.8", models.Value(r.Title), got)
		}
		if got := models.Value(r.ReviewCount); got != "120 отзывов" {
			t.Fatalf("%s: review count = %q, want 120 отзывов", models.Value(r.Title), got)
		}
		if models.Value(r.BasePrice) != "100 ₽" || models.Value(r.DiscountPrice) != "90 ₽" {
			t.Fatalf("%s: prices = %q/%q", models.Value(r.Title), models.Value(r.BasePrice), models.Value(r.DiscountPrice))
		}
	}
	if len(b.filled) != 1 || b.filled[0] != "красивая тетрадь" {
		t.Fatalf("search input filled with %v", b.filled)
	}
	if b.closes != 1 {
		t.Fatalf("browser closed %d times, want 1", b.closes)
	}
	if result.RunID == "" || result.Site != "ozon" {
		t.Fatalf("result metadata missing: %+v", result)
	}
}

func TestRunPartialFailureIsNotRunFailure(t *testing.T) {
	b := newFakeBrowser()
	b.hrefs = []string{"/product/a", "/product/b", "/product/c"}
	b.pages["https://www.ozon.ru/product/a"] = productPage("A")
	b.pages["https://www.ozon.ru/product/c"] = productPage("C")
	b.navErrs["https://www.ozon.ru/product/b"] = errors.New("timeout")

	result := newTestScraper(t, b).Run(context.Background(), models.RunRequest{Query: "q", ItemsCount: 3})

	if result.Err != nil {
		t.Fatalf("run error: %v", result.Err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(result.Records))
	}
	if len(result.FailedURLs) != 1 || result.FailedURLs[0] != "https://www.ozon.ru/product/b" {
		t.Fatalf("failed urls = %v", result.FailedURLs)
	}
	if result.ErrorsByType["navigation"] != 1 {
		t.Fatalf("errors by type = %v", result.ErrorsByType)
	}
}

func TestRunDegradesToEmpty(t *testing.T) {
	profile := site.Ozon()

	tests := []struct {
		name      string
		setup     func(b *fakeBrowser)
		launchErr error
		req       models.RunRequest
		wantStage string
	}{
		{
			name:      "results container never renders",
			setup:     func(b *fakeBrowser) { b.missing[profile.ResultsContainerLocator] = true },
			req:       models.RunRequest{Query: "q", ItemsCount: 3},
			wantStage: StageSearch,
		},
		{
			name:      "search input missing",
			setup:     func(b *fakeBrowser) { b.missing[profile.SearchInputLocator] = true },
			req:       models.RunRequest{Query: "q", ItemsCount: 3},
			wantStage: StageSearch,
		},
		{
			name:      "harvest fails",
			setup:     func(b *fakeBrowser) { b.hrefsErr = errors.New("target closed") },
			req:       models.RunRequest{Query: "q", ItemsCount: 3},
			wantStage: StageHarvest,
		},
		{
			name:      "site unreachable",
			setup:     func(b *fakeBrowser) { b.navErrs[profile.BaseURL] = errors.New("dns") },
			req:       models.RunRequest{Query: "q", ItemsCount: 3},
			wantStage: StageOpenSite,
		},
		{
			name:      "invalid request",
			setup:     func(*fakeBrowser) {},
			req:       models.RunRequest{Query: "q", ItemsCount: 0},
			wantStage: StageInit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBrowser()
			b.hrefs = []string{"/product/a"}
			b.pages["https://www.ozon.ru/product/a"] = productPage("A")
			tt.setup(b)

			result := newTestScraper(t, b).Run(context.Background(), tt.req)

			if len(result.Records) != 0 {
				t.Fatalf("records = %d, want 0", len(result.Records))
			}
			var stageErr *StageError
			if !errors.As(result.Err, &stageErr) {
				t.Fatalf("err = %v, want *StageError", result.Err)
			}
			if stageErr.Stage != tt.wantStage {
				t.Fatalf("stage = %q, want %q", stageErr.Stage, tt.wantStage)
			}
			if tt.wantStage != StageInit && b.closes != 1 {
				t.Fatalf("browser closed %d times, want 1", b.closes)
			}
		})
	}
}

func TestRunLaunchFailure(t *testing.T) {
	s, err := NewScraper(testConfig(), site.Ozon(), WithLauncher(func(context.Context) (driver.Browser, error) {
		return nil, errors.New("chromium not found")
	}))
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}

	result := s.Run(context.Background(), models.RunRequest{Query: "q", ItemsCount: 1})
	var stageErr *StageError
	if !errors.As(result.Err, &stageErr) || stageErr.Stage != StageLaunch {
		t.Fatalf("err = %v, want launch stage error", result.Err)
	}
}

func TestRunWithStaticDetailBrowser(t *testing.T) {
	transport := httpmock.NewMockTransport()
	details := driver.NewStaticBrowser(driver.DefaultLaunchConfig(true, "test-agent"))
	details.WithTransport(transport)

	register := func(url, body string, status int) {
		resp := httpmock.NewStringResponse(status, body)
		resp.Header.Set("Content-Type", "text/html; charset=utf-8")
		transport.RegisterResponder("GET", url, httpmock.ResponderFromResponse(resp))
	}
	register("https://www.ozon.ru/product/a", productPage("A"), http.StatusOK)
	register("https://www.ozon.ru/product/b", "", http.StatusForbidden)
	register("https://www.ozon.ru/product/c", productPage("C"), http.StatusOK)

	b := newFakeBrowser()
	b.hrefs = []string{"/product/a", "/product/b", "/product/c"}

	result := newTestScraper(t, b, WithDetailBrowser(details)).Run(context.Background(), models.RunRequest{Query: "q", ItemsCount: 3})

	if result.Err != nil {
		t.Fatalf("run error: %v", result.Err)
	}
	if got := titles(result.Records); len(got) != 2 || got[0] != "A" || got[1] != "C" {
		t.Fatalf("records = %v, want [A C]", got)
	}
	if result.ErrorsByType["navigation"] != 1 {
		t.Fatalf("errors by type = %v, want one navigation error", result.ErrorsByType)
	}
}

func TestNewScraperRejectsBadProfile(t *testing.T) {
	profile := site.Ozon()
	profile.Parse = nil
	if _, err := NewScraper(testConfig(), profile); err == nil {
		t.Fatalf("expected error for profile without parser")
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil", err: nil, expected: "unknown"},
		{name: "context timeout", err: fmt.Errorf("wait: %w", context.DeadlineExceeded), expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, expected: "timeout"},
		{name: "navigation", err: &driver.NavigationError{URL: "http://x.test", Err: errors.New("reset")}, expected: "navigation"},
		{name: "element missing", err: fmt.Errorf("input: %w", driver.ErrElementNotFound), expected: "element_missing"},
		{name: "not a product page", err: parser.ErrNotProductPage, expected: "parse"},
		{name: "stage wrapped", err: &StageError{Stage: StageSearch, Err: fmt.Errorf("x: %w", driver.ErrElementNotFound)}, expected: "element_missing"},
		{name: "other", err: errors.New("some other error"), expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorTypeLabel(classifyError(tt.err)); got != tt.expected {
				t.Fatalf("classifyError(%v) = %q, want %q", tt.err, got, tt.expected)
			}
		})
	}
}
