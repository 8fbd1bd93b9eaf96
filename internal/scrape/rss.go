package scrape

import (
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
)

// CollectFeedLinks reads each RSS/Atom feed and returns article
// candidates. Feeds that fail to parse are logged and skipped.
func CollectFeedLinks(ctx context.Context, logger zerolog.Logger, feedURLs []string, maxItems int, opts ListingOptions) []Link {
	if len(feedURLs) == 0 {
		return nil
	}

	parser := gofeed.NewParser()
	if ua := strings.TrimSpace(opts.UserAgent); ua != "" {
		parser.UserAgent = ua
	}
	if opts.HTTPClient != nil {
		parser.Client = opts.HTTPClient
	}

	var all []Link
	for _, feedURL := range feedURLs {
		feed, err := parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			logger.Warn().Err(err).Str("feed_url", feedURL).Msg("Feed fetch failed, skipping")
			continue
		}
		all = MergeLinks(all, feedLinks(feed, opts.Host))
	}

	if maxItems > 0 && len(all) > maxItems {
		all = all[:maxItems]
	}
	return all
}

func feedLinks(feed *gofeed.Feed, host string) []Link {
	links := make([]Link, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := strings.Join(strings.Fields(item.Title), " ")
		link := stripTracking(strings.TrimSpace(item.Link))
		if title == "" || link == "" {
			continue
		}
		if host != "" && !IsArticleURL(link, host) {
			continue
		}

		published := ""
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.UTC().Format(time.RFC3339)
		}
		links = append(links, Link{URL: link, Title: title, Published: published})
	}
	return links
}

func stripTracking(rawURL string) string {
	if idx := strings.Index(rawURL, "?utm_"); idx > 0 {
		return rawURL[:idx]
	}
	return rawURL
}
