// Package driver abstracts the page automation the scraper needs.
//
// Two backends are provided: a go-rod Chromium session for interactive
// pages and a colly-based static backend that fetches server-rendered
// markup over HTTP.
package driver

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnsupported is returned by backends that cannot perform an action.
	ErrUnsupported = errors.New("driver: action not supported by backend")
	// ErrElementNotFound is returned when a locator matches nothing.
	ErrElementNotFound = errors.New("driver: element not found")
)

// NavigationError reports a page that could not be loaded.
type NavigationError struct {
	URL    string
	Status int
	Err    error
}

func (e *NavigationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("navigate %s: status %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("navigate %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// Browser opens isolated pages that share one session.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is one tab or request context owned by a single goroutine.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Fill(ctx context.Context, locator, text string) error
	Press(ctx context.Context, locator, key string) error
	// WaitFor blocks until locator matches or timeout elapses.
	WaitFor(ctx context.Context, locator string, timeout time.Duration) error
	Evaluate(ctx context.Context, script string) error
	// Attributes returns attr of every element matching locator, in
	// document order. Elements without the attribute are skipped.
	Attributes(ctx context.Context, locator, attr string) ([]string, error)
	Content(ctx context.Context) (string, error)
	Close() error
}

// LaunchConfig is the immutable browser launch configuration.
type LaunchConfig struct {
	Headless  bool
	UserAgent string
	// Bin overrides browser discovery.
	Bin string
	// Flags are extra command line switches; an empty value sets a bare switch.
	Flags map[string]string
	// NavigationTimeout bounds a single page load.
	NavigationTimeout time.Duration
}

// DefaultLaunchConfig returns the flags that keep Chromium from
// advertising automation.
func DefaultLaunchConfig(headless bool, userAgent string) LaunchConfig {
	return LaunchConfig{
		Headless:  headless,
		UserAgent: userAgent,
		Flags: map[string]string{
			"start-maximized":        "",
			"disable-blink-features": "AutomationControlled",
		},
		NavigationTimeout: 30 * time.Second,
	}
}

// withFlag returns a copy of the config with one more flag set.
func (c LaunchConfig) withFlag(name, value string) LaunchConfig {
	flags := make(map[string]string, len(c.Flags)+1)
	for k, v := range c.Flags {
		flags[k] = v
	}
	flags[name] = value
	c.Flags = flags
	return c
}
