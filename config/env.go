package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv reads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// EnvString returns a trimmed environment value and whether it was set.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses an integer environment value.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return n, true, nil
}

// EnvBool parses a boolean environment value.
func EnvBool(key string) (bool, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", key, err)
	}
	return b, true, nil
}

// EnvDuration parses a Go duration environment value such as "5s".
func EnvDuration(key string) (time.Duration, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return d, true, nil
}

// ApplyEnv overlays SCRAPER_* environment variables onto cfg.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"SCRAPER_SITE":          &c.Site,
		"SCRAPER_QUERY":         &c.Query,
		"SCRAPER_DETAIL_DRIVER": &c.DetailDriver,
		"SCRAPER_BROWSER_BIN":   &c.BrowserBin,
		"SCRAPER_USER_AGENT":    &c.UserAgent,
		"SCRAPER_OUTPUT_DIR":    &c.OutputDir,
		"SCRAPER_FORMAT":        &c.OutputFormat,
		"SCRAPER_METRICS_ADDR":  &c.MetricsAddr,
	}
	for key, dst := range strs {
		if value, ok := EnvString(key); ok {
			*dst = value
		}
	}

	ints := map[string]*int{
		"SCRAPER_ITEMS":             &c.ItemsCount,
		"SCRAPER_PARALLEL":          &c.Parallelism,
		"SCRAPER_SCROLL_ITERATIONS": &c.ScrollIterations,
		"SCRAPER_DEDUPE_SIZE":       &c.DedupeSize,
	}
	for key, dst := range ints {
		value, ok, err := EnvInt(key)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}

	durations := map[string]*time.Duration{
		"SCRAPER_OPEN_DELAY":         &c.OpenDelay,
		"SCRAPER_SEARCH_TIMEOUT":     &c.SearchTimeout,
		"SCRAPER_NAVIGATION_TIMEOUT": &c.NavigationTimeout,
		"SCRAPER_SCROLL_PAUSE":       &c.ScrollPause,
		"SCRAPER_SETTLE_TIMEOUT":     &c.SettleTimeout,
		"SCRAPER_SETTLE_DELAY":       &c.SettleDelay,
	}
	for key, dst := range durations {
		value, ok, err := EnvDuration(key)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}

	if value, ok, err := EnvBool("SCRAPER_HEADLESS"); err != nil {
		return err
	} else if ok {
		c.ForceHeadless = value
	}
	if value, ok, err := EnvBool("SCRAPER_VERBOSE"); err != nil {
		return err
	} else if ok {
		c.Verbose = value
	}
	return nil
}
