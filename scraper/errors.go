package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/aluiziolira/go-scrape-market/driver"
	"github.com/aluiziolira/go-scrape-market/parser"
)

// Run stages, in execution order.
const (
	StageLaunch   = "launch"
	StageOpenSite = "open_site"
	StageSearch   = "search"
	StageHarvest  = "harvest"
	StageCollect  = "collect"
)

// StageError records which stage of a run failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates a wait or navigation that ran out of time.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrNavigation indicates a page that failed to load.
type ErrNavigation struct {
	Err error
}

func (e ErrNavigation) Error() string {
	return fmt.Errorf("navigation: %w", e.Err).Error()
}

func (e ErrNavigation) Unwrap() error {
	return e.Err
}

// ErrElementMissing indicates a locator that matched nothing.
type ErrElementMissing struct {
	Err error
}

func (e ErrElementMissing) Error() string {
	return fmt.Errorf("element_missing: %w", e.Err).Error()
}

func (e ErrElementMissing) Unwrap() error {
	return e.Err
}

// ErrParse indicates a page whose markup could not be mapped to a record.
type ErrParse struct {
	Err error
}

func (e ErrParse) Error() string {
	return fmt.Errorf("parse: %w", e.Err).Error()
}

func (e ErrParse) Unwrap() error {
	return e.Err
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var nav ErrNavigation
	if errors.As(err, &nav) {
		return "navigation"
	}
	var missing ErrElementMissing
	if errors.As(err, &missing) {
		return "element_missing"
	}
	var parse ErrParse
	if errors.As(err, &parse) {
		return "parse"
	}
	return "other"
}

func classifyError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	if errors.Is(err, driver.ErrElementNotFound) {
		return ErrElementMissing{Err: err}
	}
	var navErr *driver.NavigationError
	if errors.As(err, &navErr) {
		return ErrNavigation{Err: err}
	}
	if errors.Is(err, parser.ErrNotProductPage) {
		return ErrParse{Err: err}
	}
	return err
}
