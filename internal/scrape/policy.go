package scrape

import "strings"

// SitePolicy holds the two disjoint domain lists governing OG image use.
// Preferred sites force the OG image to be dropped, mark the record with the
// isOgImagePreferred flag, and skip the embeddability probe; skip sites only
// drop the OG image.
type SitePolicy struct {
	preferred []string
	skip      []string
}

// NewSitePolicy builds a SitePolicy from configured domain lists.
func NewSitePolicy(preferred, skip []string) SitePolicy {
	return SitePolicy{
		preferred: normalizeSites(preferred),
		skip:      normalizeSites(skip),
	}
}

// OGImagePreferred reports whether rawURL belongs to the preferred list.
func (p SitePolicy) OGImagePreferred(rawURL string) bool {
	return hostMatchesAny(Hostname(rawURL), p.preferred)
}

// DropOGImage reports whether the scraped OG image must be discarded for
// rawURL, which is the case for both lists.
func (p SitePolicy) DropOGImage(rawURL string) bool {
	host := Hostname(rawURL)
	return hostMatchesAny(host, p.preferred) || hostMatchesAny(host, p.skip)
}

func normalizeSites(sites []string) []string {
	out := make([]string, 0, len(sites))
	for _, s := range sites {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func hostMatchesAny(host string, sites []string) bool {
	host = strings.ToLower(host)
	for _, site := range sites {
		if host == site || strings.HasSuffix(host, "."+site) {
			return true
		}
	}
	return false
}
