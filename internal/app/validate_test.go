package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"pitchside.news/internews/internal/feed"
	"pitchside.news/internews/internal/store"
)

func TestRunValidateAcceptsWellFormedFeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.json")

	articles := []store.Article{{
		ID:        store.ArticleID("https://www.fcinternews.it/news/inter-vince-il-derby"),
		URL:       "https://www.fcinternews.it/news/inter-vince-il-derby",
		TitleEN:   "Inter win the derby",
		Status:    store.StatusTranslated,
		Published: "2026-08-22T18:30:00Z",
		UpdatedAt: time.Now().UTC(),
	}}
	payload := feed.BuildPayload("FCInterNews (Italian)", articles, time.Now())
	if err := feed.WritePayload(path, payload); err != nil {
		t.Fatalf("write feed fixture: %v", err)
	}

	if code := runValidate([]string{"-file", path}); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
}

func TestRunValidateRejectsBrokenFeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.json")
	if err := os.WriteFile(path, []byte(`{"source": "x"}`), 0o644); err != nil {
		t.Fatalf("write broken fixture: %v", err)
	}

	if code := runValidate([]string{"-file", path}); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}

func TestRunValidateMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	if code := runValidate([]string{"-file", path}); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}
