package pages

import (
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/streamprobe/internal/pages/pagetest"
)

const siteURL = "https://www.twitch.tv"

// fastTiming keeps every wait ceiling but drops the pauses.
func fastTiming() Timing {
	return Timing{
		ClickTimeout:        time.Second,
		OverlayTimeout:      time.Second,
		InterstitialTimeout: time.Second,
		ResultsTimeout:      time.Second,
		PlayerTimeout:       time.Second,
		NetworkIdleTimeout:  time.Second,
		NavigationTimeout:   time.Second,
	}
}

func newTestBase(t *testing.T, dom *pagetest.DOM, opts ...Option) *Base {
	t.Helper()
	all := append([]Option{WithTiming(fastTiming()), WithLogger(zaptest.NewLogger(t))}, opts...)
	return NewBase(dom.Page(), all...)
}

// ceilingTiming is DefaultTiming without the pauses, for asserting the wait
// ceilings that reach the engine.
func ceilingTiming() Timing {
	tm := DefaultTiming()
	tm.PostNavigate, tm.PostClick, tm.PostFill, tm.ScrollSettle = 0, 0, 0, 0
	tm.PostOverlay, tm.PostSearch, tm.PostSelect, tm.PlayerStabilize = 0, 0, 0, 0
	return tm
}
