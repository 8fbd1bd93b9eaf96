package feed

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pitchside.news/internews/internal/store"
)

func sampleArticles() []store.Article {
	updated := time.Date(2026, 8, 22, 19, 0, 0, 0, time.UTC)
	return []store.Article{
		{
			ID:        store.ArticleID("https://www.fcinternews.it/news/inter-vince-il-derby"),
			URL:       "https://www.fcinternews.it/news/inter-vince-il-derby",
			TitleIT:   "Inter, vittoria nel derby",
			TitleEN:   "Inter win the derby",
			TeaserEN:  "A late goal decided the match.",
			BodyEN:    "A late goal decided the match.\n\nThe coach praised the squad.",
			Status:    store.StatusTranslated,
			Published: "2026-08-22T18:30:00Z",
			UpdatedAt: updated,
		},
		{
			ID:        store.ArticleID("https://www.fcinternews.it/news/trattativa-in-corso"),
			URL:       "https://www.fcinternews.it/news/trattativa-in-corso",
			TitleIT:   "Trattativa in corso per il difensore",
			TeaserIT:  "Il club continua a trattare.",
			BodyIT:    "Il club continua a trattare con gli agenti del giocatore.",
			Status:    store.StatusPending,
			Published: "2026-08-21T10:00:00Z",
			UpdatedAt: updated,
		},
	}
}

func TestBuildPayloadFallsBackToItalianForPending(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 23, 8, 0, 0, 0, time.UTC)
	payload := BuildPayload("FCInterNews (Italian)", sampleArticles(), now)

	if payload.Count != 2 {
		t.Fatalf("expected count 2, got %d", payload.Count)
	}
	if payload.GeneratedUTC != "2026-08-23T08:00:00Z" {
		t.Fatalf("unexpected generated_utc: %q", payload.GeneratedUTC)
	}

	first := payload.Items[0]
	if first.Title != "Inter win the derby" {
		t.Fatalf("expected translated article first, got %q", first.Title)
	}
	if first.TranslatedAt == "" {
		t.Fatalf("translated article missing translated_at")
	}

	second := payload.Items[1]
	if second.Title != "Trattativa in corso per il difensore" {
		t.Fatalf("pending article should fall back to Italian title, got %q", second.Title)
	}
	if second.TranslatedAt != "" {
		t.Fatalf("pending article should not carry translated_at")
	}
}

func TestWritePayloadProducesValidJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data", "articles.json")
	payload := BuildPayload("FCInterNews (Italian)", sampleArticles(), time.Now())

	if err := WritePayload(path, payload); err != nil {
		t.Fatalf("WritePayload returned error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read feed file: %v", err)
	}

	parsed, err := ValidatePayload(raw)
	if err != nil {
		t.Fatalf("written payload failed validation: %v", err)
	}
	if parsed.Count != 2 || len(parsed.Items) != 2 {
		t.Fatalf("unexpected parsed payload: count=%d items=%d", parsed.Count, len(parsed.Items))
	}
}

func TestValidatePayloadRejectsBadDocuments(t *testing.T) {
	t.Parallel()

	if _, err := ValidatePayload([]byte(``)); err == nil {
		t.Fatalf("expected error for empty payload")
	}
	if _, err := ValidatePayload([]byte(`{"source":"x"}`)); err == nil {
		t.Fatalf("expected error for missing required fields")
	}

	mismatched := Payload{
		Source:       "FCInterNews (Italian)",
		GeneratedUTC: "2026-08-23T08:00:00Z",
		Count:        5,
		Items:        []Item{},
	}
	raw, err := json.Marshal(mismatched)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if _, err := ValidatePayload(raw); err == nil {
		t.Fatalf("expected error for count mismatch")
	}
}

func TestRenderSiteWritesIndexAndArticlePages(t *testing.T) {
	t.Parallel()

	siteDir := t.TempDir()
	payload := BuildPayload("FCInterNews (Italian)", sampleArticles(), time.Now())

	if err := RenderSite(siteDir, payload); err != nil {
		t.Fatalf("RenderSite returned error: %v", err)
	}

	index, err := os.ReadFile(filepath.Join(siteDir, "index.html"))
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	if !strings.Contains(string(index), "Inter win the derby") {
		t.Fatalf("index missing translated headline")
	}

	pendingID := store.ArticleID("https://www.fcinternews.it/news/trattativa-in-corso")
	page, err := os.ReadFile(filepath.Join(siteDir, "articles", pendingID+".html"))
	if err != nil {
		t.Fatalf("read pending article page: %v", err)
	}
	if !strings.Contains(string(page), "Translation pending") {
		t.Fatalf("pending article page missing status notice")
	}
}
