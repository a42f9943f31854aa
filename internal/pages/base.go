// Package pages models the target site as page objects on top of a small set
// of wait-aware interaction primitives.
package pages

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

const scrollViewportScript = "window.scrollBy(0, window.innerHeight)"

// Base wraps a page handle. It holds no state beyond its configuration and
// can be constructed and discarded freely.
type Base struct {
	page     playwright.Page
	logger   *zap.Logger
	timing   Timing
	overlays []Overlay
}

// Option configures a Base.
type Option func(*Base)

// WithTiming replaces the default pauses and wait ceilings.
func WithTiming(t Timing) Option {
	return func(b *Base) { b.timing = t }
}

// WithOverlays replaces the overlay table.
func WithOverlays(overlays []Overlay) Option {
	return func(b *Base) { b.overlays = overlays }
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(b *Base) { b.logger = l }
}

// NewBase binds the primitives to page.
func NewBase(page playwright.Page, opts ...Option) *Base {
	b := &Base{
		page:     page,
		logger:   zap.NewNop(),
		timing:   DefaultTiming(),
		overlays: DefaultOverlays,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Page returns the underlying handle.
func (b *Base) Page() playwright.Page { return b.page }

// URL returns the current page URL.
func (b *Base) URL() string { return b.page.URL() }

// Navigate goes to url and returns once the DOM is built, plus a short pause for
// client-side rendering to start. Full "load" is not awaited.
func (b *Base) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   timeoutMS(b.timing.NavigationTimeout),
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	b.logger.Debug("Navigated.", zap.String("url", url))
	return pause(ctx, b.timing.PostNavigate)
}

// Click waits for selector to become visible within the click timeout, clicks
// it and pauses for the UI transition.
func (b *Base) Click(ctx context.Context, selector string) error {
	return b.ClickWithin(ctx, selector, b.timing.ClickTimeout)
}

// ClickWithin is Click with an explicit visibility timeout. A visibility
// timeout is returned as is (errors.Is(err, playwright.ErrTimeout)); callers
// decide whether to tolerate it.
func (b *Base) ClickWithin(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	el := b.page.Locator(selector).First()
	if err := el.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: timeoutMS(timeout),
	}); err != nil {
		return fmt.Errorf("element %q did not become visible: %w", selector, err)
	}
	if err := el.Click(); err != nil {
		return fmt.Errorf("failed to click %q: %w", selector, err)
	}
	return pause(ctx, b.timing.PostClick)
}

// Fill waits for selector to become visible (page default timeout), fills it
// with text and pauses.
func (b *Base) Fill(ctx context.Context, selector, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	el := b.page.Locator(selector).First()
	if err := el.WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateVisible,
	}); err != nil {
		return fmt.Errorf("input %q did not become visible: %w", selector, err)
	}
	if err := el.Fill(text); err != nil {
		return fmt.Errorf("failed to fill %q: %w", selector, err)
	}
	return pause(ctx, b.timing.PostFill)
}

// Scroll moves down one viewport height times times, letting lazy content
// load after each step.
func (b *Base) Scroll(ctx context.Context, times int) error {
	for i := 0; i < times; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := b.page.Evaluate(scrollViewportScript); err != nil {
			return fmt.Errorf("failed to scroll (step %d of %d): %w", i+1, times, err)
		}
		if err := pause(ctx, b.timing.ScrollSettle); err != nil {
			return err
		}
	}
	return nil
}

// Screenshot captures the full scrollable page to path and returns path
// unchanged. Validating the file is the caller's job.
func (b *Base) Screenshot(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := b.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	}); err != nil {
		return "", fmt.Errorf("failed to capture screenshot to %s: %w", path, err)
	}
	b.logger.Debug("Screenshot captured.", zap.String("path", path))
	return path, nil
}

// WaitForNetworkIdle waits until the network has been quiet. Pages with
// continuous background polling never get there; callers usually wrap this in
// a BestEffort wait.
func (b *Base) WaitForNetworkIdle(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: timeoutMS(timeout),
	})
}

// DismissOverlays walks the overlay table in order and clicks every overlay
// that is present. Absent overlays and failed clicks are skipped; only context
// cancellation stops the walk. It returns the names of the overlays dismissed.
func (b *Base) DismissOverlays(ctx context.Context) []string {
	var dismissed []string
	for _, o := range b.overlays {
		if ctx.Err() != nil {
			return dismissed
		}
		loc := b.page.Locator(o.Selector)
		count, err := loc.Count()
		if err != nil || count == 0 {
			continue
		}
		switch o.Action {
		case ClickFirst:
			err = loc.First().Click(playwright.LocatorClickOptions{Timeout: timeoutMS(b.timing.OverlayTimeout)})
		default:
			err = fmt.Errorf("unsupported overlay action %d", o.Action)
		}
		if err != nil {
			b.logger.Debug("Overlay present but not dismissed.", zap.String("overlay", o.Name), zap.Error(err))
			continue
		}
		b.logger.Info("Overlay dismissed.", zap.String("overlay", o.Name))
		dismissed = append(dismissed, o.Name)
		if pause(ctx, b.timing.PostOverlay) != nil {
			return dismissed
		}
	}
	return dismissed
}

// IsVisible reports whether the first element matching selector is visible right now.
func (b *Base) IsVisible(selector string) (bool, error) {
	return b.page.Locator(selector).First().IsVisible()
}
