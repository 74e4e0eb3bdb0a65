package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aluiziolira/go-scrape-market/config"
	"github.com/aluiziolira/go-scrape-market/logging"
	"github.com/aluiziolira/go-scrape-market/models"
	"github.com/aluiziolira/go-scrape-market/pipeline"
	"github.com/aluiziolira/go-scrape-market/scraper"
	"github.com/aluiziolira/go-scrape-market/site"
)

var (
	configFile   string
	siteName     string
	items        int
	parallelism  int
	headless     bool
	detailDriver string
	outputFormat string
	outputDir    string
	dedupeSize   int
	metricsAddr  string
	verbose      bool
)

func main() {
	defaults := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "scraper [query]",
		Short: "Collect product cards from a marketplace search",
		Long: `scraper searches a marketplace for a query, visits the first product
cards it finds and saves their article, title, prices and rating as JSON.

Example:
  scraper --site wildberries --items 10 "красивая тетрадь"`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE:         run,
	}

	flags := rootCmd.Flags()
	flags.StringVar(&configFile, "config", "", "YAML configuration file")
	flags.StringVar(&siteName, "site", defaults.Site, "Site profile: "+strings.Join(site.Names(), ", "))
	flags.IntVarP(&items, "items", "n", defaults.ItemsCount, "Number of products to collect")
	flags.IntVar(&parallelism, "parallel", defaults.Parallelism, "Concurrent detail pages")
	flags.BoolVar(&headless, "headless", defaults.ForceHeadless, "Force a headless browser")
	flags.StringVar(&detailDriver, "detail-driver", defaults.DetailDriver, "Detail page driver: rod or static")
	flags.StringVar(&outputFormat, "format", defaults.OutputFormat, "Output format: json, csv, or dual")
	flags.StringVarP(&outputDir, "output-dir", "o", defaults.OutputDir, "Directory for output files")
	flags.IntVar(&dedupeSize, "dedupe", defaults.DedupeSize, "Drop repeated article ids among the last N records (0 disables)")
	flags.StringVar(&metricsAddr, "metrics-addr", defaults.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Verbose)
	defer func() { _ = logger.Sync() }()

	profile, err := site.Lookup(cfg.Site)
	if err != nil {
		return err
	}

	s, err := scraper.NewScraper(cfg, profile, scraper.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("initialising scraper: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received, waiting for open pages to close")
	}()

	metricsServer := startMetrics(cfg.MetricsAddr, s.Metrics, logger)

	logger.Info("starting scrape",
		zap.String("site", profile.Name),
		zap.String("query", cfg.Query),
		zap.Int("items", cfg.ItemsCount),
		zap.Int("workers", cfg.Parallelism),
	)

	result := s.Run(ctx, models.RunRequest{Query: cfg.Query, ItemsCount: cfg.ItemsCount})

	var paths []string
	if len(result.Records) > 0 {
		paths, err = pipeline.Persist(result.Records, pipeline.PersistOptions{
			Format:     cfg.OutputFormat,
			Dir:        cfg.OutputDir,
			Query:      cfg.Query,
			DedupeSize: cfg.DedupeSize,
		})
		if err != nil {
			logger.Error("persisting records failed", zap.Strings("paths", paths), zap.Error(err))
			paths = nil
		}
	} else {
		logger.Warn("no records collected, nothing written")
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown failed", zap.Error(err))
		}
		cancel()
	}

	printSummary(result, paths)
	return nil
}

// loadConfig layers defaults, the YAML file, the environment and finally
// the flags the user set explicitly.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		if err := cfg.LoadFile(configFile); err != nil {
			return nil, err
		}
	}
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("site") {
		cfg.Site = siteName
	}
	if flags.Changed("items") {
		cfg.ItemsCount = items
	}
	if flags.Changed("parallel") {
		cfg.Parallelism = parallelism
	}
	if flags.Changed("headless") {
		cfg.ForceHeadless = headless
	}
	if flags.Changed("detail-driver") {
		cfg.DetailDriver = detailDriver
	}
	if flags.Changed("format") {
		cfg.OutputFormat = strings.ToLower(outputFormat)
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = outputDir
	}
	if flags.Changed("dedupe") {
		cfg.DedupeSize = dedupeSize
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = metricsAddr
	}
	if verbose {
		cfg.Verbose = true
	}
	if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
		cfg.Query = args[0]
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func startMetrics(addr string, m *scraper.Metrics, logger *zap.Logger) *http.Server {
	if addr == "" || m == nil {
		return nil
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("metrics server enabled", zap.String("addr", addr))
	return server
}

func printSummary(result *models.RunResult, paths []string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	if result.Err != nil {
		fmt.Println("Scrape failed")
		fmt.Printf("  Error:         %v\n", result.Err)
	} else {
		fmt.Println("Scrape complete")
	}

	fmt.Printf("  Run:           %s\n", result.RunID)
	fmt.Printf("  Site:          %s\n", result.Site)
	fmt.Printf("  Query:         %s\n", result.Query)
	fmt.Printf("  Links found:   %d\n", result.LinkCount)
	fmt.Printf("  Records:       %d\n", len(result.Records))
	fmt.Printf("  Failed URLs:   %d\n", len(result.FailedURLs))
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	fmt.Printf("  Elapsed:       %.3f s\n", result.Duration().Seconds())
	for _, p := range paths {
		fmt.Printf("  Output file:   %s\n", p)
	}
	fmt.Println(separator)
}
