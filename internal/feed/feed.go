package feed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"pitchside.news/internews/internal/store"
)

// Item is one article entry in the published articles.json feed.
type Item struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	TitleIT      string `json:"title_it,omitempty"`
	Teaser       string `json:"teaser,omitempty"`
	Body         string `json:"body,omitempty"`
	Status       string `json:"status"`
	Published    string `json:"published,omitempty"`
	TranslatedAt string `json:"translated_at,omitempty"`
}

// Payload is the top-level articles.json document.
type Payload struct {
	Source       string `json:"source"`
	GeneratedUTC string `json:"generated_utc"`
	Count        int    `json:"count"`
	Items        []Item `json:"articles"`
}

// BuildPayload assembles the feed payload from archived articles,
// newest first. Articles still pending keep their Italian text so the
// feed never publishes empty entries.
func BuildPayload(source string, articles []store.Article, now time.Time) Payload {
	items := make([]Item, 0, len(articles))
	for _, a := range articles {
		item := Item{
			ID:        a.ID,
			URL:       a.URL,
			Title:     a.TitleEN,
			TitleIT:   a.TitleIT,
			Teaser:    a.TeaserEN,
			Body:      a.BodyEN,
			Status:    a.Status,
			Published: a.Published,
		}
		if a.Status == store.StatusTranslated {
			item.TranslatedAt = a.UpdatedAt.UTC().Format(time.RFC3339)
		}
		if item.Title == "" {
			item.Title = a.TitleIT
		}
		if item.Teaser == "" {
			item.Teaser = a.TeaserIT
		}
		if item.Body == "" {
			item.Body = a.BodyIT
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Published > items[j].Published
	})

	return Payload{
		Source:       source,
		GeneratedUTC: now.UTC().Format(time.RFC3339),
		Count:        len(items),
		Items:        items,
	}
}

// WritePayload validates the payload against the feed schema and
// writes it atomically to path.
func WritePayload(path string, payload Payload) error {
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode feed payload: %w", err)
	}

	if _, err := ValidatePayload(encoded); err != nil {
		return fmt.Errorf("feed payload failed validation: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create feed directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".articles-*.json")
	if err != nil {
		return fmt.Errorf("create temp feed file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(append(encoded, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write feed file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close feed file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace feed file: %w", err)
	}
	return nil
}
