// Package scrape implements page metadata extraction and media classification.
package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/linkhoard/linkhoard/internal/bookmarks"
)

// Config controls scraper behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	Policy    SitePolicy
}

// Scraper implements bookmarks.Scraper using a Colly collector per request.
type Scraper struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Scraper.
func New(cfg Config) *Scraper {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	return &Scraper{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Scrape fetches rawURL and extracts title, description, og:image and
// favicon. A fetch or parse failure never surfaces as an error: the result
// degrades to hostname-only metadata with the cause attached for logging.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) bookmarks.ScrapeResult {
	var result bookmarks.ScrapeResult

	collector := s.baseCollector.Clone()
	if s.cfg.UserAgent != "" {
		collector.UserAgent = s.cfg.UserAgent
	}
	collector.SetRequestTimeout(s.cfg.Timeout)

	var fetchErr error
	collector.OnHTML("html", func(e *colly.HTMLElement) {
		result = extract(e.DOM)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := s.visit(ctx, collector, rawURL); err != nil {
		return Fallback(rawURL, err)
	}
	if fetchErr != nil {
		return Fallback(rawURL, fetchErr)
	}
	if result.Title == "" {
		result.Title = Hostname(rawURL)
	}
	if s.cfg.Policy.DropOGImage(rawURL) {
		result.OGImage = ""
	}
	return result
}

func (s *Scraper) visit(ctx context.Context, collector *colly.Collector, rawURL string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("scrape canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("scrape visit failed: %w", err)
		}
		return nil
	}
}

func extract(doc *goquery.Selection) bookmarks.ScrapeResult {
	var result bookmarks.ScrapeResult

	result.Title = strings.TrimSpace(doc.Find("head title").First().Text())
	if og := metaContent(doc, `meta[property="og:title"]`); result.Title == "" {
		result.Title = og
	}

	result.Description = metaContent(doc, `meta[name="description"]`)
	if result.Description == "" {
		result.Description = metaContent(doc, `meta[property="og:description"]`)
	}

	result.OGImage = metaContent(doc, `meta[property="og:image"]`)
	if result.OGImage == "" {
		result.OGImage = metaContent(doc, `meta[name="twitter:image"]`)
	}

	doc.Find(`head link[rel~="icon"], head link[rel="shortcut icon"], head link[rel="apple-touch-icon"]`).
		EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if href, ok := sel.Attr("href"); ok && strings.TrimSpace(href) != "" {
				result.FavIcon = strings.TrimSpace(href)
				return false
			}
			return true
		})

	return result
}

func metaContent(doc *goquery.Selection, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

// Fallback is the pure degraded result for a URL whose scrape failed: the
// title becomes the URL's hostname and the cause rides along as a non-fatal
// field.
func Fallback(rawURL string, cause error) bookmarks.ScrapeResult {
	return bookmarks.ScrapeResult{
		Title:    Hostname(rawURL),
		Degraded: cause,
	}
}

// Hostname extracts the hostname of rawURL, falling back to the raw string
// when it does not parse.
func Hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return u.Hostname()
}

// NormalizeFavicon resolves a scraped favicon reference against the page it
// was found on, returning an absolute URL. Already-absolute values pass
// through unchanged; unresolvable input yields the empty string.
func NormalizeFavicon(pageURL, favicon string) string {
	if favicon == "" {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(favicon)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}
