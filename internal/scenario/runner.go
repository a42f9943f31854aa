package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/streamprobe/internal/artifacts"
	"github.com/xkilldash9x/streamprobe/internal/config"
	"github.com/xkilldash9x/streamprobe/internal/pages"
)

// RunnerConfig is what a Runner needs from the application config.
type RunnerConfig struct {
	BaseURL       string
	Prefix        string
	FailurePrefix string
	Timing        pages.Timing
}

// RunnerConfigFrom extracts a RunnerConfig from cfg.
func RunnerConfigFrom(cfg *config.Config) RunnerConfig {
	return RunnerConfig{
		BaseURL:       cfg.Site.BaseURL,
		Prefix:        cfg.Artifacts.Prefix,
		FailurePrefix: cfg.Artifacts.FailurePrefix,
		Timing:        pages.TimingFromConfig(cfg.Timing, cfg.Timeouts),
	}
}

// Result is what one scenario run observed. It is filled in as far as the run
// got, so a failed run still reports the selection and the final URL.
type Result struct {
	Scenario          string
	URL               string
	Selection         pages.Selection
	Readiness         pages.Readiness
	Screenshot        string
	ScreenshotBytes   int64
	FailureScreenshot string
	Duration          time.Duration
}

// Runner executes scenarios against pages it is handed. It holds no per-run
// state and is safe to share between workers.
type Runner struct {
	cfg    RunnerConfig
	site   string
	dir    *artifacts.Directory
	logger *zap.Logger
}

// NewRunner validates the base URL and binds the runner to dir.
func NewRunner(cfg RunnerConfig, dir *artifacts.Directory, logger *zap.Logger) (*Runner, error) {
	site, err := registrableDomain(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid site base url: %w", err)
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "streamer"
	}
	if cfg.FailurePrefix == "" {
		cfg.FailurePrefix = "failure"
	}
	return &Runner{cfg: cfg, site: site, dir: dir, logger: logger.Named("scenario")}, nil
}

// Site returns the registrable domain every page must stay on.
func (r *Runner) Site() string { return r.site }

// Run drives page through sc. On any failure a diagnostic screenshot is
// attempted before the error is returned; the Result is never nil.
func (r *Runner) Run(ctx context.Context, page playwright.Page, sc Scenario) (*Result, error) {
	start := time.Now()
	logger := r.logger.With(zap.String("scenario", sc.Name))
	res := &Result{
		Scenario:  sc.Name,
		Selection: pages.Selection{Requested: sc.StreamerIndex, Actual: -1},
	}
	base := pages.NewBase(page, pages.WithTiming(r.cfg.Timing), pages.WithLogger(logger))

	logger.Info("Scenario starting.", zap.String("query", sc.Query), zap.Int("streamer_index", sc.StreamerIndex))
	err := r.run(ctx, base, sc, res)
	res.URL = page.URL()
	res.Duration = time.Since(start)

	if err != nil {
		res.FailureScreenshot = r.captureFailure(ctx, base, sc, logger)
		logger.Error("Scenario failed.", zap.String("url", res.URL), zap.Error(err))
		return res, err
	}
	logger.Info("Scenario passed.",
		zap.String("screenshot", res.Screenshot),
		zap.Int64("bytes", res.ScreenshotBytes),
		zap.Duration("duration", res.Duration))
	return res, nil
}

func (r *Runner) run(ctx context.Context, base *pages.Base, sc Scenario, res *Result) error {
	home := pages.NewHome(base, r.cfg.BaseURL)
	results := pages.NewSearchResults(base)
	streamer := pages.NewStreamer(base)

	if err := home.Open(ctx); err != nil {
		return fmt.Errorf("failed to open home page: %w", err)
	}
	if err := r.assertOnSite(base, "home_domain", "failed to navigate to the site"); err != nil {
		return err
	}

	if err := home.ClickSearchIcon(ctx); err != nil {
		return fmt.Errorf("failed to open search: %w", err)
	}
	if sc.CheckSearchInput {
		if err := r.assertVisible(base, "search_input_visible", "search input is not visible after clicking the search icon", home.SearchInputVisible); err != nil {
			return err
		}
	}

	if err := home.Search(ctx, sc.Query); err != nil {
		return fmt.Errorf("failed to search for %q: %w", sc.Query, err)
	}
	if sc.CheckSearchInput {
		if err := r.assertVisible(base, "search_input_after_search", "search input is not visible after submitting the search", home.SearchInputVisible); err != nil {
			return err
		}
	}

	sel, err := results.SelectResult(ctx, sc.ScrollTimes, sc.StreamerIndex)
	res.Selection = sel
	if err != nil {
		return fmt.Errorf("failed to select result %d: %w", sc.StreamerIndex, err)
	}

	readiness, err := streamer.WaitForMediaReady(ctx)
	res.Readiness = readiness
	if err != nil {
		return fmt.Errorf("stream did not load: %w", err)
	}
	if sc.CheckPlayerVisible {
		if err := r.assertVisible(base, "player_visible", "video player not visible", streamer.PlayerVisible); err != nil {
			return err
		}
	}

	var tags []string
	if sc.Tag != "" {
		tags = append(tags, sc.Tag)
	}
	path, err := streamer.Capture(ctx, r.dir.Path(r.cfg.Prefix, tags...))
	if err != nil {
		return err
	}
	res.Screenshot = path

	size, err := artifacts.Verify(path, sc.MinScreenshotBytes)
	res.ScreenshotBytes = size
	if err != nil {
		return &AssertionError{Check: "screenshot", Message: err.Error(), URL: base.URL(), Err: err}
	}

	return r.assertOnSite(base, "final_domain", "not on the site domain")
}

func (r *Runner) assertOnSite(base *pages.Base, check, msg string) error {
	u := base.URL()
	if onSite(r.site, u) {
		return nil
	}
	return &AssertionError{Check: check, Message: fmt.Sprintf("%s: expected domain %s", msg, r.site), URL: u}
}

func (r *Runner) assertVisible(base *pages.Base, check, msg string, probe func() (bool, error)) error {
	visible, err := probe()
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", check, err)
	}
	if !visible {
		return &AssertionError{Check: check, Message: msg, URL: base.URL()}
	}
	return nil
}

// captureFailure grabs a full-page screenshot for diagnosis. It runs even when
// ctx is already cancelled and never fails the scenario on its own.
func (r *Runner) captureFailure(ctx context.Context, base *pages.Base, sc Scenario, logger *zap.Logger) string {
	capCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.Timing.NavigationTimeout+time.Second)
	defer cancel()
	path := r.dir.Path(r.cfg.FailurePrefix, artifacts.Slug(sc.Name))
	if _, err := base.Screenshot(capCtx, path); err != nil {
		logger.Warn("Could not capture failure screenshot.", zap.Error(err))
		return ""
	}
	logger.Info("Failure screenshot captured.", zap.String("path", path))
	return path
}
