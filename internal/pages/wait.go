package pages

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/streamprobe/internal/config"
)

// ErrNotFound is returned when a required element never shows up in its wait window.
var ErrNotFound = errors.New("required element not found")

// WaitPolicy declares, at each wait call site, whether a failed wait breaks the flow.
type WaitPolicy int

const (
	// Required waits return their error to the caller.
	Required WaitPolicy = iota
	// BestEffort waits are logged and absorbed; the flow continues.
	BestEffort
)

func (p WaitPolicy) String() string {
	if p == BestEffort {
		return "best_effort"
	}
	return "required"
}

// IsTimeout reports whether err came from an engine wait running out of time.
func IsTimeout(err error) bool {
	return errors.Is(err, playwright.ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// Timing holds the bounded pauses and wait ceilings used by the page objects.
type Timing struct {
	PostNavigate    time.Duration
	PostClick       time.Duration
	PostFill        time.Duration
	ScrollSettle    time.Duration
	PostOverlay     time.Duration
	PostSearch      time.Duration
	PostSelect      time.Duration
	PlayerStabilize time.Duration

	ClickTimeout        time.Duration
	OverlayTimeout      time.Duration
	InterstitialTimeout time.Duration
	ResultsTimeout      time.Duration
	PlayerTimeout       time.Duration
	NetworkIdleTimeout  time.Duration
	NavigationTimeout   time.Duration
}

// TimingFromConfig flattens the timing and timeout config sections.
func TimingFromConfig(tc config.TimingConfig, to config.TimeoutsConfig) Timing {
	return Timing{
		PostNavigate:    tc.PostNavigate,
		PostClick:       tc.PostClick,
		PostFill:        tc.PostFill,
		ScrollSettle:    tc.ScrollSettle,
		PostOverlay:     tc.PostOverlay,
		PostSearch:      tc.PostSearch,
		PostSelect:      tc.PostSelect,
		PlayerStabilize: tc.PlayerStabilize,

		ClickTimeout:        to.Click,
		OverlayTimeout:      to.Overlay,
		InterstitialTimeout: to.Interstitial,
		ResultsTimeout:      to.Results,
		PlayerTimeout:       to.Player,
		NetworkIdleTimeout:  to.NetworkIdle,
		NavigationTimeout:   to.Navigation,
	}
}

// DefaultTiming mirrors the config defaults.
func DefaultTiming() Timing {
	cfg := config.NewDefaultConfig()
	return TimingFromConfig(cfg.Timing, cfg.Timeouts)
}

// pause sleeps for d, returning early with the context error on cancellation.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// await runs one wait under the given policy. Context cancellation always
// propagates, whatever the policy.
func await(ctx context.Context, logger *zap.Logger, policy WaitPolicy, what string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := fn()
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if policy == BestEffort {
		logger.Debug("Optional wait did not complete.", zap.String("wait", what), zap.Bool("timeout", IsTimeout(err)), zap.Error(err))
		return nil
	}
	if IsTimeout(err) {
		return fmt.Errorf("%w: %s: %w", ErrNotFound, what, err)
	}
	return fmt.Errorf("failed waiting for %s: %w", what, err)
}

// timeoutMS converts d to a Playwright timeout. Zero or negative returns nil so
// the page default applies; Playwright reads an explicit 0 as "wait forever".
func timeoutMS(d time.Duration) *float64 {
	if d <= 0 {
		return nil
	}
	return playwright.Float(float64(d) / float64(time.Millisecond))
}
