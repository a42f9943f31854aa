// internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// DefaultPageTimeout applies when the browser config leaves it unset.
const DefaultPageTimeout = 30 * time.Second

// Browser is the run-scoped browser process. It hands out one isolated
// context+page pair per scenario and tracks the pairs still open.
type Browser struct {
	browser     playwright.Browser
	devices     map[string]*playwright.DeviceDescriptor
	pageTimeout time.Duration
	logger      *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func newBrowser(pb playwright.Browser, devices map[string]*playwright.DeviceDescriptor, pageTimeout time.Duration, logger *zap.Logger) *Browser {
	if pageTimeout <= 0 {
		pageTimeout = DefaultPageTimeout
	}
	return &Browser{
		browser:     pb,
		devices:     devices,
		pageTimeout: pageTimeout,
		logger:      logger,
		sessions:    make(map[string]*Session),
	}
}

// ContextOptions maps a device preset onto new-context options.
func ContextOptions(device *playwright.DeviceDescriptor) playwright.BrowserNewContextOptions {
	opts := playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(device.UserAgent),
		IsMobile:  playwright.Bool(device.IsMobile),
		HasTouch:  playwright.Bool(device.HasTouch),
	}
	if device.Viewport != nil {
		opts.Viewport = device.Viewport
	}
	if device.Screen != nil {
		opts.Screen = device.Screen
	}
	if device.DeviceScaleFactor > 0 {
		opts.DeviceScaleFactor = playwright.Float(device.DeviceScaleFactor)
	}
	return opts
}

// AcquireContext creates an isolated browsing profile emulating preset.
func (b *Browser) AcquireContext(preset string) (playwright.BrowserContext, error) {
	device, ok := b.devices[preset]
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: %w: %q", ErrSetup, ErrUnknownDevice, preset)
	}
	bctx, err := b.browser.NewContext(ContextOptions(device))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create browser context: %w", ErrSetup, err)
	}
	return bctx, nil
}

// AcquirePage opens the single page of a context and sets its default
// operation timeout.
func AcquirePage(bctx playwright.BrowserContext, timeout time.Duration) (playwright.Page, error) {
	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open page: %w", ErrSetup, err)
	}
	page.SetDefaultTimeout(ms(timeout))
	return page, nil
}

// NewSession provisions a context and page for one scenario. On page failure
// the context is closed before returning.
func (b *Browser) NewSession(preset string) (*Session, error) {
	bctx, err := b.AcquireContext(preset)
	if err != nil {
		return nil, err
	}
	page, err := AcquirePage(bctx, b.pageTimeout)
	if err != nil {
		if cerr := bctx.Close(); cerr != nil {
			b.logger.Warn("Failed to close context after page setup failure.", zap.Error(cerr))
		}
		return nil, err
	}

	s := &Session{
		id:      uuid.New().String(),
		preset:  preset,
		context: bctx,
		page:    page,
	}
	s.logger = b.logger.With(zap.String("session_id", s.id), zap.String("device", preset))
	s.onClose = func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.sessions, s.id)
	}

	b.mu.Lock()
	b.sessions[s.id] = s
	b.mu.Unlock()

	s.logger.Debug("Session opened.", zap.Duration("page_timeout", b.pageTimeout))
	return s, nil
}

// WithSession runs fn against a fresh session and releases the session on
// every exit path, panics included. A release failure is reported only when
// fn itself succeeded.
func (b *Browser) WithSession(ctx context.Context, preset string, fn func(context.Context, *Session) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, err := b.NewSession(preset)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, s)
}

// Close releases any sessions still open and shuts the browser down.
func (b *Browser) Close() error {
	b.mu.Lock()
	open := make([]*Session, 0, len(b.sessions))
	for _, s := range b.sessions {
		open = append(open, s)
	}
	b.mu.Unlock()

	var errs []error
	for _, s := range open {
		b.logger.Warn("Closing session left open at browser shutdown.", zap.String("session_id", s.ID()))
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := b.browser.Close(); err != nil {
		b.logger.Error("Failed to close browser instance.", zap.Error(err))
		errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
	}
	return errors.Join(errs...)
}

// Session is one scenario's isolated context and its page.
type Session struct {
	id      string
	preset  string
	context playwright.BrowserContext
	page    playwright.Page
	logger  *zap.Logger
	onClose func()

	mu       sync.Mutex
	isClosed bool
}

func (s *Session) ID() string                         { return s.id }
func (s *Session) Device() string                     { return s.preset }
func (s *Session) Page() playwright.Page              { return s.page }
func (s *Session) Context() playwright.BrowserContext { return s.context }

// Close closes the page, then the context. Later calls are no-ops.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.isClosed = true
	s.mu.Unlock()

	var errs []error
	if err := s.page.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close page: %w", err))
	}
	if err := s.context.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close context: %w", err))
	}
	if s.onClose != nil {
		s.onClose()
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("Session closed with errors.", zap.Error(err))
		return err
	}
	s.logger.Debug("Session closed.")
	return nil
}
