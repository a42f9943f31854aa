package pages

import (
	"context"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// Streamer detail selectors.
const (
	PlayerVideoSelector   = "video"
	PlayerOverlaySelector = "[data-a-target='player-overlay-click-handler']"
	PlayerSelector        = PlayerVideoSelector + ", " + PlayerOverlaySelector
	MatureContentSelector = "button[data-test-selector='muted-segments-alert-overlay-presentation__dismiss-button']"
)

// ReadinessState is how far WaitForMediaReady got.
type ReadinessState int

const (
	Navigated ReadinessState = iota
	InterstitialChecked
	OverlaysChecked
	PlayerPresent
	Stabilized
	NetworkIdle
)

var readinessNames = [...]string{"navigated", "interstitial_checked", "overlays_checked", "player_present", "stabilized", "network_idle"}

func (s ReadinessState) String() string {
	if s >= 0 && int(s) < len(readinessNames) {
		return readinessNames[s]
	}
	return "unknown"
}

// Readiness summarises a WaitForMediaReady pass. The flow is complete once
// State reaches Stabilized; NetworkIdle is a bonus.
type Readiness struct {
	State                 ReadinessState
	InterstitialDismissed bool
	OverlaysDismissed     []string
}

// Ready reports whether the player is present and has been given time to settle.
func (r Readiness) Ready() bool { return r.State >= Stabilized }

// Streamer is a channel page with a media player.
type Streamer struct {
	*Base
	logger *zap.Logger
}

// NewStreamer binds the streamer page object to base.
func NewStreamer(base *Base) *Streamer {
	return &Streamer{Base: base, logger: base.logger.Named("streamer")}
}

// WaitForMediaReady walks the readiness states. Only a missing player is
// fatal (ErrNotFound); the interstitial, overlays and network idle are all
// best effort.
func (s *Streamer) WaitForMediaReady(ctx context.Context) (Readiness, error) {
	r := Readiness{State: Navigated}

	if count, err := s.page.Locator(MatureContentSelector).Count(); err == nil && count > 0 {
		clicked := false
		if err := await(ctx, s.logger, BestEffort, "mature content interstitial", func() error {
			if err := s.ClickWithin(ctx, MatureContentSelector, s.timing.InterstitialTimeout); err != nil {
				return err
			}
			clicked = true
			return nil
		}); err != nil {
			return r, err
		}
		r.InterstitialDismissed = clicked
	}
	r.State = InterstitialChecked

	r.OverlaysDismissed = s.DismissOverlays(ctx)
	if err := ctx.Err(); err != nil {
		return r, err
	}
	r.State = OverlaysChecked

	if err := await(ctx, s.logger, Required, "media player", func() error {
		return s.page.Locator(PlayerSelector).First().WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateAttached,
			Timeout: timeoutMS(s.timing.PlayerTimeout),
		})
	}); err != nil {
		return r, err
	}
	r.State = PlayerPresent

	// No observable signal marks the stream as playing, hence the fixed pause.
	if err := pause(ctx, s.timing.PlayerStabilize); err != nil {
		return r, err
	}
	r.State = Stabilized

	idle := false
	if err := await(ctx, s.logger, BestEffort, "network idle", func() error {
		if err := s.WaitForNetworkIdle(ctx, s.timing.NetworkIdleTimeout); err != nil {
			return err
		}
		idle = true
		return nil
	}); err != nil {
		return r, err
	}
	if idle {
		r.State = NetworkIdle
	}

	s.logger.Info("Media player ready.", zap.Stringer("state", r.State), zap.Bool("interstitial_dismissed", r.InterstitialDismissed))
	return r, nil
}

// Capture takes the evidence screenshot.
func (s *Streamer) Capture(ctx context.Context, path string) (string, error) {
	return s.Screenshot(ctx, path)
}

// PlayerVisible reports whether the video element or its click overlay is
// visible right now.
func (s *Streamer) PlayerVisible() (bool, error) {
	for _, sel := range []string{PlayerVideoSelector, PlayerOverlaySelector} {
		visible, err := s.IsVisible(sel)
		if err != nil {
			return false, err
		}
		if visible {
			return true, nil
		}
	}
	return false, nil
}
