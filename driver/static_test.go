package driver

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
)

func htmlResponder(status int, body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(status, body)
	resp.Header.Set("Content-Type", "text/html; charset=utf-8")
	return httpmock.ResponderFromResponse(resp)
}

func newMockedStatic(t *testing.T) (*StaticBrowser, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	b := NewStaticBrowser(DefaultLaunchConfig(true, "test-agent"))
	b.WithTransport(transport)
	return b, transport
}

func TestStaticPageNavigateAndQuery(t *testing.T) {
	b, transport := newMockedStatic(t)
	transport.RegisterResponder("GET", "http://shop.test/search",
		htmlResponder(http.StatusOK, `<div class="list"><a class="card" href="/product/1">1</a><a class="card">none</a><a class="card" href="/product/2">2</a></div>`))

	ctx := context.Background()
	page, err := b.NewPage(ctx)
	if err != nil {
		t.Fatalf("new page: %v", err)
	}
	defer page.Close()

	if err := page.Navigate(ctx, "http://shop.test/search"); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if err := page.WaitFor(ctx, "div.list", time.Second); err != nil {
		t.Fatalf("wait for list: %v", err)
	}
	if err := page.WaitFor(ctx, "div.missing", time.Second); !errors.Is(err, ErrElementNotFound) {
		t.Fatalf("wait for missing = %v, want ErrElementNotFound", err)
	}

	hrefs, err := page.Attributes(ctx, "a.card", "href")
	if err != nil {
		t.Fatalf("attributes: %v", err)
	}
	if want := []string{"/product/1", "/product/2"}; !reflect.DeepEqual(hrefs, want) {
		t.Fatalf("hrefs = %v, want %v", hrefs, want)
	}

	content, err := page.Content(ctx)
	if err != nil || !strings.Contains(content, "/product/2") {
		t.Fatalf("content = %q, %v", content, err)
	}
}

func TestStaticPageNavigationError(t *testing.T) {
	b, transport := newMockedStatic(t)
	transport.RegisterResponder("GET", "http://shop.test/gone", htmlResponder(http.StatusNotFound, ""))

	ctx := context.Background()
	page, _ := b.NewPage(ctx)
	err := page.Navigate(ctx, "http://shop.test/gone")

	var navErr *NavigationError
	if !errors.As(err, &navErr) {
		t.Fatalf("err = %v, want *NavigationError", err)
	}
	if navErr.Status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", navErr.Status)
	}
	if _, err := page.Content(ctx); err == nil {
		t.Fatalf("content should fail after a failed navigation")
	}
}

func TestStaticPageUnsupportedActions(t *testing.T) {
	b, _ := newMockedStatic(t)
	ctx := context.Background()
	page, _ := b.NewPage(ctx)

	if err := page.Fill(ctx, "input", "x"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("fill = %v, want ErrUnsupported", err)
	}
	if err := page.Press(ctx, "input", "Enter"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("press = %v, want ErrUnsupported", err)
	}
	if err := page.Evaluate(ctx, "() => 1"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("evaluate = %v, want ErrUnsupported", err)
	}
}

func TestStaticPagesAreIsolated(t *testing.T) {
	b, transport := newMockedStatic(t)
	transport.RegisterResponder("GET", "http://shop.test/a", htmlResponder(http.StatusOK, "<p>a</p>"))
	transport.RegisterResponder("GET", "http://shop.test/b", htmlResponder(http.StatusOK, "<p>b</p>"))

	ctx := context.Background()
	pa, _ := b.NewPage(ctx)
	pb, _ := b.NewPage(ctx)
	if err := pa.Navigate(ctx, "http://shop.test/a"); err != nil {
		t.Fatalf("navigate a: %v", err)
	}
	if err := pb.Navigate(ctx, "http://shop.test/b"); err != nil {
		t.Fatalf("navigate b: %v", err)
	}

	ca, _ := pa.Content(ctx)
	cb, _ := pb.Content(ctx)
	if ca != "<p>a</p>" || cb != "<p>b</p>" {
		t.Fatalf("contents leaked between pages: a=%q b=%q", ca, cb)
	}
}

func TestDefaultLaunchConfigFlags(t *testing.T) {
	cfg := DefaultLaunchConfig(false, "ua")
	if cfg.Flags["disable-blink-features"] != "AutomationControlled" {
		t.Fatalf("missing automation flag: %v", cfg.Flags)
	}

	withUA := cfg.withFlag("user-agent", "ua")
	if _, ok := cfg.Flags["user-agent"]; ok {
		t.Fatalf("withFlag mutated the original config")
	}
	if withUA.Flags["user-agent"] != "ua" {
		t.Fatalf("withFlag did not set user-agent: %v", withUA.Flags)
	}
}
