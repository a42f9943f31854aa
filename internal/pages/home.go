package pages

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// Home page selectors. The search entry differs between UI variants and
// locales, so any match is accepted.
const (
	SearchIconSelector  = "a[aria-label='Search'], a[href='/directory']:has-text('Просмотр'), button[aria-label='Search'], [data-a-target='search-button']"
	SearchInputSelector = "input[type='search'], input[aria-label='Search Input']"
)

// Home is the site root.
type Home struct {
	*Base
	url    string
	logger *zap.Logger
}

// NewHome binds the home page object to base, rooted at url.
func NewHome(base *Base, url string) *Home {
	return &Home{Base: base, url: url, logger: base.logger.Named("home")}
}

// Open navigates to the site root and clears whatever overlays it shows.
func (h *Home) Open(ctx context.Context) error {
	if err := h.Navigate(ctx, h.url); err != nil {
		return err
	}
	dismissed := h.DismissOverlays(ctx)
	h.logger.Info("Home page opened.", zap.String("url", h.URL()), zap.Strings("overlays_dismissed", dismissed))
	return ctx.Err()
}

// ClickSearchIcon opens the search entry.
func (h *Home) ClickSearchIcon(ctx context.Context) error {
	return h.Click(ctx, SearchIconSelector)
}

// Search types term into the search box and submits it with Enter.
func (h *Home) Search(ctx context.Context, term string) error {
	if err := h.Fill(ctx, SearchInputSelector, term); err != nil {
		return err
	}
	if err := h.page.Keyboard().Press("Enter"); err != nil {
		return fmt.Errorf("failed to submit search %q: %w", term, err)
	}
	// The results route renders client-side after the document is ready, so the
	// load-state signal is followed by a bounded pause.
	if err := await(ctx, h.logger, BestEffort, "search results document", func() error {
		return h.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
			State:   playwright.LoadStateDomcontentloaded,
			Timeout: timeoutMS(h.timing.NavigationTimeout),
		})
	}); err != nil {
		return err
	}
	h.logger.Info("Search submitted.", zap.String("term", term))
	return pause(ctx, h.timing.PostSearch)
}

// SearchInputVisible reports whether the search box is on screen.
func (h *Home) SearchInputVisible() (bool, error) {
	return h.IsVisible(SearchInputSelector)
}
