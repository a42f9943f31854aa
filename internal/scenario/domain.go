package scenario

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// registrableDomain returns the eTLD+1 of rawURL's host, so m.twitch.tv and
// www.twitch.tv both map to twitch.tv. Hosts without a public suffix
// (localhost, IPs) are returned as is.
func registrableDomain(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse url %q: %w", rawURL, err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host, nil
	}
	return domain, nil
}

// onSite reports whether pageURL belongs to the same registrable domain as site.
func onSite(site, pageURL string) bool {
	domain, err := registrableDomain(pageURL)
	if err != nil {
		return false
	}
	return domain == site
}
