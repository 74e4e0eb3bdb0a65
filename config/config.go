package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds scraper configuration.
type Config struct {
	Site          string `yaml:"site"`
	Query         string `yaml:"query"`
	ItemsCount    int    `yaml:"items"`
	DetailDriver  string `yaml:"detail_driver"` // rod or static
	ForceHeadless bool   `yaml:"headless"`
	BrowserBin    string `yaml:"browser_bin"`
	UserAgent     string `yaml:"user_agent"`

	Parallelism       int           `yaml:"parallelism"`
	OpenDelay         time.Duration `yaml:"open_delay"`
	SearchTimeout     time.Duration `yaml:"search_timeout"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	ScrollIterations  int           `yaml:"scroll_iterations"`
	ScrollPause       time.Duration `yaml:"scroll_pause"`
	SettleTimeout     time.Duration `yaml:"settle_timeout"`
	SettleDelay       time.Duration `yaml:"settle_delay"`

	OutputDir    string `yaml:"output_dir"`
	OutputFormat string `yaml:"format"` // json, csv, or dual
	DedupeSize   int    `yaml:"dedupe_size"`
	MetricsAddr  string `yaml:"metrics_addr"`
	Verbose      bool   `yaml:"verbose"`
}

// DefaultConfig returns the defaults the built-in sites were tuned against.
func DefaultConfig() *Config {
	return &Config{
		Site:              "ozon",
		Query:             "красивая тетрадь",
		ItemsCount:        5,
		DetailDriver:      "rod",
		UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Parallelism:       4,
		OpenDelay:         2 * time.Second,
		SearchTimeout:     10 * time.Second,
		NavigationTimeout: 30 * time.Second,
		ScrollIterations:  5,
		ScrollPause:       time.Second,
		SettleTimeout:     10 * time.Second,
		SettleDelay:       5 * time.Second,
		OutputDir:         ".",
		OutputFormat:      "json",
	}
}

// LoadFile overlays the YAML document at path onto cfg.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("decode config file %q: %w", path, err)
	}
	return nil
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Site == "" {
		return fmt.Errorf("site cannot be empty")
	}
	if c.ItemsCount <= 0 {
		return fmt.Errorf("items count must be positive")
	}
	if c.DetailDriver != "rod" && c.DetailDriver != "static" {
		return fmt.Errorf("detail driver must be rod or static")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.OpenDelay < 0 {
		return fmt.Errorf("open delay cannot be negative")
	}
	if c.SearchTimeout <= 0 {
		return fmt.Errorf("search timeout must be positive")
	}
	if c.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be positive")
	}
	if c.ScrollIterations < 0 {
		return fmt.Errorf("scroll iterations cannot be negative")
	}
	if c.ScrollPause < 0 {
		return fmt.Errorf("scroll pause cannot be negative")
	}
	if c.SettleTimeout < 0 {
		return fmt.Errorf("settle timeout cannot be negative")
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("settle delay cannot be negative")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.DedupeSize < 0 {
		return fmt.Errorf("dedupe size cannot be negative")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}
