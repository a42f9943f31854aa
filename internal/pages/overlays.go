package pages

// OverlayAction is what dismissing an overlay takes.
type OverlayAction int

const (
	// ClickFirst clicks the first element matching the selector.
	ClickFirst OverlayAction = iota
)

// Overlay is one known modal, banner or interstitial.
type Overlay struct {
	Name     string
	Selector string
	Action   OverlayAction
}

// DefaultOverlays is tried in order on every screen. Consent comes first
// because it can sit on top of the others.
var DefaultOverlays = []Overlay{
	{Name: "consent_accept", Selector: "button[data-a-target='consent-banner-accept']", Action: ClickFirst},
	{Name: "close_button", Selector: "button[aria-label='Close']", Action: ClickFirst},
	{Name: "accept_text", Selector: "button:has-text('Accept')", Action: ClickFirst},
	{Name: "close_text", Selector: "button:has-text('Close')", Action: ClickFirst},
	{Name: "mature_accept", Selector: "[data-a-target='player-overlay-mature-accept']", Action: ClickFirst},
	{Name: "consent_banner_button", Selector: "button.consent-banner-button", Action: ClickFirst},
}
