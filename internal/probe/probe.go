// Package probe decides whether a page may legally be embedded in an iframe.
package probe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config bounds the probe.
type Config struct {
	Timeout      time.Duration
	MaxRedirects int
	UserAgent    string
}

// Probe implements bookmarks.EmbedProbe by inspecting response headers.
// Every failure mode (bad scheme, network error, timeout) answers false.
type Probe struct {
	client    *http.Client
	userAgent string
}

// New builds a Probe.
func New(cfg Config) *Probe {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = 5
	}
	maxRedirects := cfg.MaxRedirects
	return &Probe{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
	}
}

// CanEmbed reports whether rawURL's page allows iframe embedding.
func (p *Probe) CanEmbed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return false
	}

	if frameOptionsBlock(resp.Header.Get("X-Frame-Options")) {
		return false
	}
	if frameAncestorsBlock(resp.Header.Values("Content-Security-Policy")) {
		return false
	}
	return true
}

func frameOptionsBlock(value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return false
	}
	return value == "deny" || value == "sameorigin" || strings.HasPrefix(value, "allow-from")
}

// frameAncestorsBlock scans every CSP header instance for a frame-ancestors
// directive. 'none' and 'self' block outright; an explicit source list with
// no wildcard and no 'unsafe-inline' is treated as restrictive.
func frameAncestorsBlock(policies []string) bool {
	for _, policy := range policies {
		for _, directive := range strings.Split(policy, ";") {
			directive = strings.TrimSpace(directive)
			lower := strings.ToLower(directive)
			if lower != "frame-ancestors" && !strings.HasPrefix(lower, "frame-ancestors ") {
				continue
			}
			value := strings.TrimSpace(lower[len("frame-ancestors"):])
			if restrictiveAncestors(value) {
				return true
			}
		}
	}
	return false
}

func restrictiveAncestors(value string) bool {
	switch value {
	case "", "*":
		return false
	case "'none'", "'self'":
		return true
	}
	if strings.Contains(value, "*") || strings.Contains(value, "'unsafe-inline'") {
		return false
	}
	return true
}
