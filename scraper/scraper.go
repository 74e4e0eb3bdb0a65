package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aluiziolira/go-scrape-market/config"
	"github.com/aluiziolira/go-scrape-market/driver"
	"github.com/aluiziolira/go-scrape-market/models"
	"github.com/aluiziolira/go-scrape-market/site"
)

// StageInit covers request validation before the browser starts.
const StageInit = "init"

// Launcher opens the browser session that drives the search page.
type Launcher func(ctx context.Context) (driver.Browser, error)

// Scraper runs the search, harvest and collect sequence for one site.
type Scraper struct {
	cfg       *config.Config
	profile   site.Profile
	launch    Launcher
	details   driver.Browser
	collector *Collector
	logger    *zap.Logger
	Metrics   *Metrics
}

// Option customises a Scraper.
type Option func(*Scraper)

// WithLauncher replaces the default go-rod launcher.
func WithLauncher(l Launcher) Option {
	return func(s *Scraper) {
		s.launch = l
	}
}

// WithDetailBrowser fetches product pages through b instead of the search
// session. The caller owns b and closes it.
func WithDetailBrowser(b driver.Browser) Option {
	return func(s *Scraper) {
		s.details = b
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scraper) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScraper builds a scraper for profile configured from cfg.
func NewScraper(cfg *config.Config, profile site.Profile, opts ...Option) (*Scraper, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	s := &Scraper{
		cfg:     cfg,
		profile: profile,
		logger:  zap.NewNop(),
		Metrics: NewMetrics(),
	}
	s.launch = func(ctx context.Context) (driver.Browser, error) {
		return driver.LaunchRod(ctx, s.LaunchConfig())
	}
	if cfg.DetailDriver == "static" {
		s.details = driver.NewStaticBrowser(s.LaunchConfig())
	}
	for _, opt := range opts {
		opt(s)
	}

	s.collector = NewCollector(CollectorOptions{
		Parallelism:   cfg.Parallelism,
		SettleTimeout: cfg.SettleTimeout,
		SettleDelay:   cfg.SettleDelay,
	}, s.logger, s.Metrics)
	return s, nil
}

// LaunchConfig derives the browser launch configuration for this run.
func (s *Scraper) LaunchConfig() driver.LaunchConfig {
	lc := driver.DefaultLaunchConfig(s.profile.Headless || s.cfg.ForceHeadless, s.cfg.UserAgent)
	lc.Bin = s.cfg.BrowserBin
	lc.NavigationTimeout = s.cfg.NavigationTimeout
	return lc
}

// Run executes one search. It never returns an error: a failure in any
// stage is logged, the result carries no records and Err holds the
// *StageError.
func (s *Scraper) Run(ctx context.Context, req models.RunRequest) *models.RunResult {
	if ctx == nil {
		ctx = context.Background()
	}

	result := &models.RunResult{
		RunID:        uuid.NewString(),
		Site:         s.profile.Name,
		Query:        req.Query,
		StartTime:    time.Now(),
		ErrorsByType: make(map[string]int),
	}
	logger := s.logger.With(
		zap.String("run_id", result.RunID),
		zap.String("site", s.profile.Name),
	)

	collection, links, err := s.run(ctx, logger, req)
	result.EndTime = time.Now()
	result.LinkCount = links

	if err != nil {
		category := errorTypeLabel(classifyError(err))
		result.ErrorsByType[category]++
		result.Err = err

		stage := "unknown"
		var stageErr *StageError
		if errors.As(err, &stageErr) {
			stage = stageErr.Stage
		}
		logger.Error("run failed",
			zap.String("stage", stage),
			zap.String("category", category),
			zap.Error(err),
		)
		s.Metrics.IncError(category)
		s.Metrics.IncRun(s.profile.Name, "failed")
		return result
	}

	result.Records = collection.Records
	for _, failure := range collection.Failures {
		result.FailedURLs = append(result.FailedURLs, failure.URL)
		result.ErrorsByType[errorTypeLabel(failure.Err)]++
	}

	outcome := "ok"
	if len(result.Records) == 0 {
		outcome = "empty"
	}
	s.Metrics.IncRun(s.profile.Name, outcome)
	logger.Info("run finished",
		zap.Int("links", links),
		zap.Int("records", len(result.Records)),
		zap.Int("failed", len(result.FailedURLs)),
		zap.Duration("elapsed", result.Duration()),
	)
	return result
}

func (s *Scraper) run(ctx context.Context, logger *zap.Logger, req models.RunRequest) (Collection, int, error) {
	if err := req.Validate(); err != nil {
		return Collection{}, 0, &StageError{Stage: StageInit, Err: err}
	}

	browser, err := s.launch(ctx)
	if err != nil {
		return Collection{}, 0, &StageError{Stage: StageLaunch, Err: err}
	}
	defer func() {
		if err := browser.Close(); err != nil {
			logger.Warn("close browser", zap.Error(err))
		}
	}()

	page, err := browser.NewPage(ctx)
	if err != nil {
		return Collection{}, 0, &StageError{Stage: StageOpenSite, Err: err}
	}
	defer page.Close()

	if err := s.openSite(ctx, page); err != nil {
		return Collection{}, 0, &StageError{Stage: StageOpenSite, Err: err}
	}
	logger.Info("site opened", zap.String("url", s.profile.BaseURL))

	if err := s.search(ctx, page, req.Query); err != nil {
		return Collection{}, 0, &StageError{Stage: StageSearch, Err: err}
	}
	logger.Info("search finished", zap.String("query", req.Query))

	links, err := Harvest(ctx, page, s.profile, req.ItemsCount, ScrollOptions{
		Iterations: s.cfg.ScrollIterations,
		Pause:      s.cfg.ScrollPause,
	})
	if err != nil {
		return Collection{}, 0, &StageError{Stage: StageHarvest, Err: err}
	}
	s.Metrics.AddLinks(len(links))
	logger.Info("product links found", zap.Int("count", len(links)))

	details := s.details
	if details == nil {
		details = browser
	}
	collection := s.collector.Collect(ctx, details, s.profile, links)
	if err := ctx.Err(); err != nil {
		return Collection{}, len(links), &StageError{Stage: StageCollect, Err: err}
	}
	return collection, len(links), nil
}

func (s *Scraper) openSite(ctx context.Context, page driver.Page) error {
	if err := page.Navigate(ctx, s.profile.BaseURL); err != nil {
		return err
	}
	return sleep(ctx, s.cfg.OpenDelay)
}

func (s *Scraper) search(ctx context.Context, page driver.Page, query string) error {
	if err := page.Fill(ctx, s.profile.SearchInputLocator, query); err != nil {
		return err
	}
	if err := page.Press(ctx, s.profile.SearchInputLocator, "Enter"); err != nil {
		return err
	}
	return page.WaitFor(ctx, s.profile.ResultsContainerLocator, s.cfg.SearchTimeout)
}
