package pages

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/streamprobe/internal/pages/pagetest"
)

func TestBase_Navigate(t *testing.T) {
	dom := pagetest.NewDOM("about:blank")
	b := newTestBase(t, dom)

	require.NoError(t, b.Navigate(context.Background(), siteURL))
	assert.Equal(t, []string{siteURL}, dom.Gotos)
	assert.Equal(t, siteURL, b.URL())

	dom.GotoErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
	err := b.Navigate(context.Background(), "https://nope.invalid")
	require.Error(t, err)
	assert.ErrorIs(t, err, dom.GotoErr)
}

func TestBase_Click(t *testing.T) {
	t.Run("visible element is clicked", func(t *testing.T) {
		dom := pagetest.NewDOM(siteURL).Set("#go", pagetest.Element{Count: 2})
		require.NoError(t, newTestBase(t, dom).Click(context.Background(), "#go"))
		assert.Equal(t, []string{"#go#0"}, dom.Clicks)
	})

	t.Run("timeout propagates", func(t *testing.T) {
		dom := pagetest.NewDOM(siteURL).Set("#go", pagetest.Element{Count: 1, Hidden: true})
		err := newTestBase(t, dom).Click(context.Background(), "#go")
		require.Error(t, err)
		assert.ErrorIs(t, err, playwright.ErrTimeout)
		assert.True(t, IsTimeout(err))
		assert.Empty(t, dom.Clicks)
	})

	t.Run("missing element times out", func(t *testing.T) {
		dom := pagetest.NewDOM(siteURL)
		err := newTestBase(t, dom).Click(context.Background(), "#missing")
		assert.ErrorIs(t, err, playwright.ErrTimeout)
	})
}

func TestBase_Fill(t *testing.T) {
	dom := pagetest.NewDOM(siteURL).Set("input", pagetest.Element{Count: 1})
	b := newTestBase(t, dom)

	require.NoError(t, b.Fill(context.Background(), "input", "StarCraft II"))
	assert.Equal(t, "StarCraft II", dom.Fills["input"])

	err := b.Fill(context.Background(), "textarea", "x")
	assert.ErrorIs(t, err, playwright.ErrTimeout)
}

func TestBase_Scroll(t *testing.T) {
	dom := pagetest.NewDOM(siteURL)
	b := newTestBase(t, dom)

	require.NoError(t, b.Scroll(context.Background(), 3))
	assert.Equal(t, 3, dom.Scrolls)

	require.NoError(t, b.Scroll(context.Background(), 0))
	assert.Equal(t, 3, dom.Scrolls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.Scroll(ctx, 5), context.Canceled)
	assert.Equal(t, 3, dom.Scrolls)
}

func TestBase_Screenshot(t *testing.T) {
	dom := pagetest.NewDOM(siteURL)
	b := newTestBase(t, dom)
	path := filepath.Join(t.TempDir(), "shot.png")

	got, err := b.Screenshot(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, got)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	dom.ScreenshotErr = errors.New("target closed")
	_, err = b.Screenshot(context.Background(), path)
	assert.ErrorIs(t, err, dom.ScreenshotErr)
}

func TestBase_WaitForNetworkIdle(t *testing.T) {
	dom := pagetest.NewDOM(siteURL)
	b := newTestBase(t, dom)

	require.NoError(t, b.WaitForNetworkIdle(context.Background(), 0))
	assert.Equal(t, []string{"networkidle"}, dom.LoadStates)

	dom.LoadStateErr["networkidle"] = pagetest.Timeout("networkidle")
	assert.ErrorIs(t, b.WaitForNetworkIdle(context.Background(), 0), playwright.ErrTimeout)
}

func TestBase_DismissOverlays(t *testing.T) {
	// Every subset of the overlay table, each with and without a failing click.
	n := len(DefaultOverlays)
	for mask := 0; mask < 1<<n; mask++ {
		for _, failing := range []bool{false, true} {
			dom := pagetest.NewDOM(siteURL)
			var want []string
			for i, o := range DefaultOverlays {
				if mask&(1<<i) == 0 {
					continue
				}
				el := pagetest.Element{Count: 1}
				if failing && i%2 == 0 {
					el.ClickErr = pagetest.Timeout(o.Selector)
				} else {
					want = append(want, o.Name)
				}
				dom.Set(o.Selector, el)
			}

			got := newTestBase(t, dom).DismissOverlays(context.Background())
			assert.Equal(t, want, got, "mask=%b failing=%v", mask, failing)
		}
	}
}

func TestBase_DismissOverlays_Order(t *testing.T) {
	dom := pagetest.NewDOM(siteURL)
	for _, o := range DefaultOverlays {
		dom.Set(o.Selector, pagetest.Element{Count: 1})
	}
	got := newTestBase(t, dom).DismissOverlays(context.Background())

	require.Len(t, dom.Clicks, len(DefaultOverlays))
	for i, o := range DefaultOverlays {
		assert.Equal(t, o.Name, got[i])
		assert.Equal(t, o.Selector+"#0", dom.Clicks[i])
	}
}

func TestBase_DismissOverlays_CustomTable(t *testing.T) {
	table := []Overlay{
		{Name: "count_fails", Selector: ".broken", Action: ClickFirst},
		{Name: "unknown_action", Selector: ".odd", Action: OverlayAction(99)},
		{Name: "promo", Selector: ".promo", Action: ClickFirst},
	}
	dom := pagetest.NewDOM(siteURL).
		Set(".broken", pagetest.Element{CountErr: errors.New("detached")}).
		Set(".odd", pagetest.Element{Count: 1}).
		Set(".promo", pagetest.Element{Count: 3})

	got := newTestBase(t, dom, WithOverlays(table)).DismissOverlays(context.Background())
	assert.Equal(t, []string{"promo"}, got)
}

func TestBase_DismissOverlays_Cancelled(t *testing.T) {
	dom := pagetest.NewDOM(siteURL)
	for _, o := range DefaultOverlays {
		dom.Set(o.Selector, pagetest.Element{Count: 1})
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, newTestBase(t, dom).DismissOverlays(ctx))
	assert.Empty(t, dom.Clicks)
}

func TestBase_IsVisible(t *testing.T) {
	dom := pagetest.NewDOM(siteURL).
		Set(".shown", pagetest.Element{Count: 1}).
		Set(".hidden", pagetest.Element{Count: 1, Hidden: true})
	b := newTestBase(t, dom)

	for sel, want := range map[string]bool{".shown": true, ".hidden": false, ".absent": false} {
		got, err := b.IsVisible(sel)
		require.NoError(t, err)
		assert.Equal(t, want, got, sel)
	}
}

func TestBase_WaitCeilings(t *testing.T) {
	dom := pagetest.NewDOM(siteURL).
		Set("#go", pagetest.Element{Count: 1}).
		Set(DefaultOverlays[0].Selector, pagetest.Element{Count: 1})
	b := newTestBase(t, dom, WithTiming(ceilingTiming()))
	ctx := context.Background()

	require.NoError(t, b.Click(ctx, "#go"))
	assert.Equal(t, 10000.0, dom.WaitTimeouts["#go"], "click visibility wait")

	assert.Equal(t, []string{DefaultOverlays[0].Name}, b.DismissOverlays(ctx))
	assert.Equal(t, 3000.0, dom.ClickTimeouts[DefaultOverlays[0].Selector], "overlay click")

	require.NoError(t, b.WaitForNetworkIdle(ctx, b.timing.NetworkIdleTimeout))
	assert.Equal(t, 10000.0, dom.LoadTimeouts["networkidle"], "network idle")
}
