package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

const minTitleChars = 6

// Link is a discovered article candidate from a listing page or feed.
type Link struct {
	URL       string
	Title     string
	Published string
}

// ListingOptions controls HTTP behavior for listing discovery.
type ListingOptions struct {
	Host       string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// excludedSegments are path segments that never lead to an article page.
var excludedSegments = map[string]bool{
	"tag":       true,
	"topic":     true,
	"categoria": true,
	"category":  true,
	"video":     true,
	"gallery":   true,
}

// CollectListingLinks fetches each listing page and returns deduplicated
// article candidates, capped at maxItems. Listing pages that fail to
// fetch are logged and skipped so one bad page never sinks the run.
func CollectListingLinks(ctx context.Context, logger zerolog.Logger, listingURLs []string, maxItems int, opts ListingOptions) []Link {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	var all []Link
	for _, listingURL := range listingURLs {
		links, err := fetchListing(ctx, client, listingURL, opts)
		if err != nil {
			logger.Warn().Err(err).Str("listing_url", listingURL).Msg("Listing fetch failed, skipping")
			continue
		}
		all = MergeLinks(all, links)
	}

	if maxItems > 0 && len(all) > maxItems {
		all = all[:maxItems]
	}
	return all
}

func fetchListing(ctx context.Context, client *http.Client, listingURL string, opts ListingOptions) ([]Link, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listingURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if ua := strings.TrimSpace(opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing status %d", resp.StatusCode)
	}

	return parseListing(resp.Body, listingURL, opts.Host)
}

// parseListing extracts article candidates from listing HTML. Split out
// from the fetch path so it can run against static fixtures.
func parseListing(body io.Reader, baseURL, host string) ([]Link, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse listing HTML: %w", err)
	}

	seen := make(map[string]bool)
	var links []Link

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		resolved := resolveURL(baseURL, href)
		if resolved == "" || seen[resolved] {
			return
		}
		if !IsArticleURL(resolved, host) {
			return
		}

		title := strings.Join(strings.Fields(sel.Text()), " ")
		if len([]rune(title)) < minTitleChars {
			if t, ok := sel.Attr("title"); ok {
				title = strings.Join(strings.Fields(t), " ")
			}
		}
		if len([]rune(title)) < minTitleChars {
			return
		}

		published := ""
		if t := sel.Closest("article").Find("time").First(); t.Length() > 0 {
			published, _ = t.Attr("datetime")
		}

		seen[resolved] = true
		links = append(links, Link{URL: resolved, Title: title, Published: published})
	})

	return links, nil
}

// IsArticleURL reports whether candidate looks like an article page on
// host. Listing, section and media pages are filtered out.
func IsArticleURL(candidate, host string) bool {
	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if host != "" && !strings.HasSuffix(strings.ToLower(u.Hostname()), strings.ToLower(host)) {
		return false
	}

	segments := nonEmptySegments(u.Path)
	if len(segments) == 0 {
		return false
	}
	for _, seg := range segments {
		if excludedSegments[strings.ToLower(seg)] {
			return false
		}
	}

	// Article slugs on news CMSes are hyphenated, or the page sits at
	// least two levels deep (section/slug).
	last := segments[len(segments)-1]
	return strings.Contains(last, "-") || len(segments) >= 2
}

// MergeLinks appends additions to base, skipping URLs already present.
func MergeLinks(base, additions []Link) []Link {
	seen := make(map[string]bool, len(base))
	for _, l := range base {
		seen[l.URL] = true
	}
	for _, l := range additions {
		if seen[l.URL] {
			continue
		}
		seen[l.URL] = true
		base = append(base, l)
	}
	return base
}

// SortByPublished orders links newest first; links without a parseable
// timestamp keep their discovery order at the end.
func SortByPublished(links []Link) {
	sort.SliceStable(links, func(i, j int) bool {
		ti, oki := parsePublished(links[i].Published)
		tj, okj := parsePublished(links[j].Published)
		if oki && okj {
			return ti.After(tj)
		}
		return oki && !okj
	})
}

func parsePublished(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func resolveURL(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(u)
	resolved.Fragment = ""
	return resolved.String()
}

func nonEmptySegments(path string) []string {
	var out []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
