// internal/browser/manager.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/streamprobe/internal/config"
)

var (
	// ErrSetup marks provisioning failures. They abort the scenario and are never retried.
	ErrSetup = errors.New("browser setup failed")
	// ErrUnknownDevice is returned when the configured preset is not in the engine's device table.
	ErrUnknownDevice = errors.New("unknown device preset")
)

// Driver entry points, replaced in tests.
var (
	installDriver = playwright.Install
	runDriver     = playwright.Run
)

const driverInstallTimeout = 5 * time.Minute

// requiredLaunchArgs are always passed to Chromium. The target page embeds
// third-party media, which needs autoplay without a gesture and relaxed
// cross-origin checks.
var requiredLaunchArgs = []string{
	"--start-maximized",
	"--autoplay-policy=no-user-gesture-required",
	"--disable-web-security",
}

// Engine is the run-scoped Playwright driver together with its device table.
type Engine struct {
	chromium playwright.BrowserType
	devices  map[string]*playwright.DeviceDescriptor
	stop     func() error
	cfg      config.BrowserConfig
	logger   *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// AcquireEngine installs the driver when configured to and starts it.
func AcquireEngine(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Engine, error) {
	log := logger.Named("engine")

	if cfg.Install {
		if err := ensureInstallation(ctx, cfg, log); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSetup, err)
		}
	}

	pw, err := runDriver()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to start playwright driver: %w", ErrSetup, err)
	}

	log.Info("Playwright driver started.", zap.Int("device_presets", len(pw.Devices)))
	return newEngine(pw.Chromium, pw.Devices, pw.Stop, cfg, log), nil
}

func newEngine(
	chromium playwright.BrowserType,
	devices map[string]*playwright.DeviceDescriptor,
	stop func() error,
	cfg config.BrowserConfig,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		chromium: chromium,
		devices:  devices,
		stop:     stop,
		cfg:      cfg,
		logger:   logger,
	}
}

func ensureInstallation(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) error {
	logger.Info("Verifying Playwright driver installation...")
	installCtx, cancel := context.WithTimeout(ctx, driverInstallTimeout)
	defer cancel()

	options := &playwright.RunOptions{Browsers: []string{"chromium"}}
	if cfg.Channel != "" {
		// A branded channel uses the system install; only the driver is needed.
		options = &playwright.RunOptions{SkipInstallBrowsers: true}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- installDriver(options)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to install playwright: %w", err)
		}
		return nil
	case <-installCtx.Done():
		return fmt.Errorf("timeout waiting for playwright installation: %w", installCtx.Err())
	}
}

// Devices returns the sorted names of every emulation preset the driver knows.
func (e *Engine) Devices() []string {
	names := make([]string, 0, len(e.devices))
	for name := range e.devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LaunchOptions assembles the Chromium launch options from the browser config.
func (e *Engine) LaunchOptions() playwright.BrowserTypeLaunchOptions {
	args := make([]string, 0, len(requiredLaunchArgs)+len(e.cfg.Args))
	args = append(args, requiredLaunchArgs...)
	args = append(args, e.cfg.Args...)

	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(e.cfg.Headless),
		Args:     args,
	}
	if e.cfg.Channel != "" {
		opts.Channel = playwright.String(e.cfg.Channel)
	}
	if e.cfg.LaunchTimeout > 0 {
		opts.Timeout = playwright.Float(ms(e.cfg.LaunchTimeout))
	}
	return opts
}

// AcquireBrowser launches the run-scoped browser. Launch is not retried.
func (e *Engine) AcquireBrowser(ctx context.Context) (*Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := e.LaunchOptions()
	e.logger.Info("Launching browser.",
		zap.Bool("headless", e.cfg.Headless),
		zap.String("channel", e.cfg.Channel),
		zap.Strings("args", opts.Args))

	pb, err := e.chromium.Launch(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to launch browser instance: %w", ErrSetup, err)
	}

	e.logger.Info("Browser launched.", zap.String("version", pb.Version()))
	return newBrowser(pb, e.devices, e.cfg.DefaultTimeout, e.logger.Named("browser")), nil
}

// Close stops the driver. Safe to call more than once.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		if e.stop == nil {
			return
		}
		if err := e.stop(); err != nil {
			e.logger.Error("Failed to stop Playwright driver.", zap.Error(err))
			e.closeErr = fmt.Errorf("failed to stop playwright driver: %w", err)
			return
		}
		e.logger.Info("Playwright driver stopped.")
	})
	return e.closeErr
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
