package driver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

var rodKeys = map[string]input.Key{
	"Enter":  input.Enter,
	"Tab":    input.Tab,
	"Escape": input.Escape,
}

// RodBrowser is a Chromium session driven through the DevTools protocol.
type RodBrowser struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	timeout  time.Duration

	closeOnce sync.Once
	closeErr  error
}

// LaunchRod starts Chromium with cfg and connects to it.
func LaunchRod(ctx context.Context, cfg LaunchConfig) (*RodBrowser, error) {
	if cfg.UserAgent != "" {
		cfg = cfg.withFlag("user-agent", cfg.UserAgent)
	}

	l := launcher.New().Context(ctx).Headless(cfg.Headless)
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	} else if path, ok := launcher.LookPath(); ok {
		l = l.Bin(path)
	}
	for name, value := range cfg.Flags {
		if value == "" {
			l = l.Set(flags.Flag(name))
			continue
		}
		l = l.Set(flags.Flag(name), value)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	timeout := cfg.NavigationTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RodBrowser{launcher: l, browser: browser, timeout: timeout}, nil
}

// NewPage opens a blank tab.
func (b *RodBrowser) NewPage(ctx context.Context) (Page, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	return &rodPage{page: page, timeout: b.timeout}, nil
}

// Close shuts the browser down. Later calls return the first result.
func (b *RodBrowser) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = b.browser.Close()
		b.launcher.Cleanup()
	})
	return b.closeErr
}

type rodPage struct {
	page    *rod.Page
	timeout time.Duration
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx).Timeout(p.timeout)
	if err := page.Navigate(url); err != nil {
		return &NavigationError{URL: url, Err: err}
	}
	if err := page.WaitLoad(); err != nil {
		return &NavigationError{URL: url, Err: err}
	}
	return nil
}

func (p *rodPage) Fill(ctx context.Context, locator, text string) error {
	el, err := p.element(ctx, locator)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("select %s: %w", locator, err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("fill %s: %w", locator, err)
	}
	return nil
}

func (p *rodPage) Press(ctx context.Context, locator, key string) error {
	k, ok := rodKeys[key]
	if !ok {
		return fmt.Errorf("key %q: %w", key, ErrUnsupported)
	}
	el, err := p.element(ctx, locator)
	if err != nil {
		return err
	}
	if err := el.Type(k); err != nil {
		return fmt.Errorf("press %s on %s: %w", key, locator, err)
	}
	return nil
}

func (p *rodPage) WaitFor(ctx context.Context, locator string, timeout time.Duration) error {
	if _, err := p.page.Context(ctx).Timeout(timeout).Element(locator); err != nil {
		return fmt.Errorf("wait for %s: %w", locator, err)
	}
	return nil
}

func (p *rodPage) Evaluate(ctx context.Context, script string) error {
	if _, err := p.page.Context(ctx).Eval(script); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}

func (p *rodPage) Attributes(ctx context.Context, locator, attr string) ([]string, error) {
	els, err := p.page.Context(ctx).Elements(locator)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", locator, err)
	}
	values := make([]string, 0, len(els))
	for _, el := range els {
		value, err := el.Attribute(attr)
		if err != nil {
			return nil, fmt.Errorf("read %s of %s: %w", attr, locator, err)
		}
		if value != nil {
			values = append(values, *value)
		}
	}
	return values, nil
}

func (p *rodPage) Content(ctx context.Context) (string, error) {
	html, err := p.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}
	return html, nil
}

func (p *rodPage) Close() error {
	return p.page.Close()
}

// element looks locator up within the page timeout.
func (p *rodPage) element(ctx context.Context, locator string) (*rod.Element, error) {
	el, err := p.page.Context(ctx).Timeout(p.timeout).Element(locator)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", locator, ErrElementNotFound, err)
	}
	return el, nil
}
