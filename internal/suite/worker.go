package suite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/streamprobe/internal/browser"
	"github.com/xkilldash9x/streamprobe/internal/config"
	"github.com/xkilldash9x/streamprobe/internal/reporting"
	"github.com/xkilldash9x/streamprobe/internal/scenario"
)

// ScenarioRunner is the part of scenario.Runner a worker drives.
type ScenarioRunner interface {
	Run(ctx context.Context, page playwright.Page, sc scenario.Scenario) (*scenario.Result, error)
}

// BrowserWorker owns one engine and one browser and opens a fresh session
// (context + page) for every scenario.
type BrowserWorker struct {
	engine  *browser.Engine
	browser *browser.Browser
	runner  ScenarioRunner
	device  string
	logger  *zap.Logger
}

// NewBrowserWorkerFactory provisions workers from cfg. Each worker starts its
// own driver so parallel workers share nothing.
func NewBrowserWorkerFactory(cfg config.BrowserConfig, runner ScenarioRunner, logger *zap.Logger) WorkerFactory {
	return func(ctx context.Context, id int) (Worker, error) {
		log := logger.Named("worker").With(zap.Int("worker", id))

		engine, err := browser.AcquireEngine(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		b, err := engine.AcquireBrowser(ctx)
		if err != nil {
			if closeErr := engine.Close(); closeErr != nil {
				log.Warn("Failed to stop driver after launch failure.", zap.Error(closeErr))
			}
			return nil, err
		}
		return &BrowserWorker{engine: engine, browser: b, runner: runner, device: cfg.Device, logger: log}, nil
	}
}

// RunScenario runs sc in a fresh session that is released on every exit path.
func (w *BrowserWorker) RunScenario(ctx context.Context, sc scenario.Scenario) *reporting.Entry {
	start := time.Now()
	var (
		res       *scenario.Result
		runErr    error
		sessionID string
	)
	err := w.browser.WithSession(ctx, w.device, func(ctx context.Context, s *browser.Session) error {
		sessionID = s.ID()
		res, runErr = w.runner.Run(ctx, s.Page(), sc)
		return nil
	})
	if err != nil {
		// Session setup or teardown failed; the scenario itself may have run.
		runErr = errors.Join(runErr, err)
	}
	return NewEntry(sc, res, runErr, sessionID, start)
}

// Close shuts the browser and then the driver.
func (w *BrowserWorker) Close() error {
	return errors.Join(w.browser.Close(), w.engine.Close())
}

// NewEntry converts a scenario result into a report entry. res may be nil
// when the scenario never started.
func NewEntry(sc scenario.Scenario, res *scenario.Result, err error, sessionID string, start time.Time) *reporting.Entry {
	e := &reporting.Entry{
		Name:           sc.Name,
		Status:         reporting.StatusPassed,
		SessionID:      sessionID,
		StartedAt:      start,
		Duration:       time.Since(start),
		RequestedIndex: sc.StreamerIndex,
		ActualIndex:    -1,
	}
	if res != nil {
		e.ActualIndex = res.Selection.Actual
		e.FellBack = res.Selection.FellBack
		e.Readiness = res.Readiness.State.String()
		e.Screenshot = res.Screenshot
		e.ScreenshotBytes = res.ScreenshotBytes
		e.FailureScreenshot = res.FailureScreenshot
		e.URL = res.URL
	}
	if err == nil {
		return e
	}

	e.Error = err.Error()
	var ae *scenario.AssertionError
	if errors.As(err, &ae) {
		e.Status = reporting.StatusFailed
		e.Check = ae.Check
		if e.URL == "" {
			e.URL = ae.URL
		}
		return e
	}
	e.Status = reporting.StatusError
	return e
}

// describe is used in logs to keep entries short.
func describe(e *reporting.Entry) string {
	if e.Error == "" {
		return string(e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Error)
}
