package pages

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// ResultCardSelector matches one rendered search result.
const ResultCardSelector = "[data-a-target='preview-card-image-link'], a.tw-link[href*='/videos/']"

// Selection records which result was actually clicked. Requested and Actual
// differ when the requested index was not rendered.
type Selection struct {
	Requested int
	Actual    int
	Available int
	FellBack  bool
}

// SearchResults is the lazily loaded result list.
type SearchResults struct {
	*Base
	logger *zap.Logger
}

// NewSearchResults binds the results page object to base.
func NewSearchResults(base *Base) *SearchResults {
	return &SearchResults{Base: base, logger: base.logger.Named("results")}
}

// SelectResult scrolls scrollTimes viewports to trigger lazy loading, waits for
// at least one result card and clicks the one at index. When fewer than
// index+1 cards are rendered the first card is clicked instead; the returned
// Selection says so. No cards within the results timeout yields ErrNotFound.
func (r *SearchResults) SelectResult(ctx context.Context, scrollTimes, index int) (Selection, error) {
	sel := Selection{Requested: index, Actual: -1}
	if index < 0 {
		return sel, fmt.Errorf("result index must not be negative, got %d", index)
	}

	if err := r.Scroll(ctx, scrollTimes); err != nil {
		return sel, err
	}

	cards := r.page.Locator(ResultCardSelector)
	if err := await(ctx, r.logger, Required, "search result card", func() error {
		return cards.First().WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateAttached,
			Timeout: timeoutMS(r.timing.ResultsTimeout),
		})
	}); err != nil {
		return sel, err
	}

	rendered, err := cards.All()
	if err != nil {
		return sel, fmt.Errorf("failed to enumerate result cards: %w", err)
	}
	sel.Available = len(rendered)
	if sel.Available == 0 {
		// The list re-rendered between the wait and the enumeration.
		return sel, fmt.Errorf("%w: search result card vanished after appearing", ErrNotFound)
	}

	sel.Actual = index
	if index >= sel.Available {
		sel.Actual = 0
		sel.FellBack = true
		r.logger.Warn("Requested result not rendered; selecting the first one.",
			zap.Int("requested", index), zap.Int("available", sel.Available))
	}

	if err := rendered[sel.Actual].Click(); err != nil {
		return sel, fmt.Errorf("failed to click result %d: %w", sel.Actual, err)
	}
	r.logger.Info("Result selected.",
		zap.Int("requested", sel.Requested), zap.Int("actual", sel.Actual), zap.Int("available", sel.Available))

	if err := await(ctx, r.logger, BestEffort, "detail document", func() error {
		return r.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
			State:   playwright.LoadStateDomcontentloaded,
			Timeout: timeoutMS(r.timing.NavigationTimeout),
		})
	}); err != nil {
		return sel, err
	}
	return sel, pause(ctx, r.timing.PostSelect)
}
