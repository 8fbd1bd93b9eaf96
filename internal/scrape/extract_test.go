package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCleanTextCollapsesWhitespaceAndPreservesParagraphs(t *testing.T) {
	t.Parallel()

	input := "  Il Napoli   ha vinto \n\n Seconda\triga \r\n\r\nTerza riga "
	got := CleanText(input)
	want := "Il Napoli ha vinto\n\nSeconda riga\n\nTerza riga"
	if got != want {
		t.Fatalf("CleanText mismatch\nwant: %q\ngot:  %q", want, got)
	}
}

func TestTruncateText(t *testing.T) {
	t.Parallel()

	input := "abcdefghijklmnopqrstuvwxyz"

	got, truncated := TruncateText(input, 10)
	if !truncated {
		t.Fatalf("expected truncated=true")
	}
	if got != "abcdefghi…" {
		t.Fatalf("unexpected truncated text: %q", got)
	}

	full, wasTruncated := TruncateText("short", 10)
	if wasTruncated {
		t.Fatalf("expected truncated=false for short text")
	}
	if full != "short" {
		t.Fatalf("unexpected short text: %q", full)
	}
}

func TestTeaserUsesFirstParagraph(t *testing.T) {
	t.Parallel()

	body := "Primo paragrafo della notizia.\n\nSecondo paragrafo che non deve comparire."
	got := Teaser(body)
	if got != "Primo paragrafo della notizia." {
		t.Fatalf("unexpected teaser: %q", got)
	}
	if strings.Contains(got, "Secondo") {
		t.Fatalf("teaser leaked past first paragraph: %q", got)
	}
}

func TestFetchArticleTextPlainTextPassthrough(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Riga uno.\n\nRiga due."))
	}))
	defer server.Close()

	got, err := FetchArticleText(context.Background(), server.URL, "", FetchOptions{})
	if err != nil {
		t.Fatalf("FetchArticleText returned error: %v", err)
	}
	if got != "Riga uno.\n\nRiga due." {
		t.Fatalf("unexpected body text: %q", got)
	}
}

func TestFetchArticleTextRejectsErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	if _, err := FetchArticleText(context.Background(), server.URL, "", FetchOptions{}); err == nil {
		t.Fatalf("expected error for HTTP 410")
	}
}
