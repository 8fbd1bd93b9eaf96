package translation

import (
	"path/filepath"
	"testing"
)

func TestCache_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "translations.json")
	cache, err := OpenCache(path)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}

	fp := Fingerprint("it", "en", "Ciao")
	if _, ok := cache.Get(fp); ok {
		t.Fatalf("unexpected cache hit on empty cache")
	}

	if err := cache.Put(fp, "Hello"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if got, ok := cache.Get(fp); !ok || got != "Hello" {
		t.Fatalf("unexpected cache value: %q (hit=%v)", got, ok)
	}
}

func TestCache_PersistsAcrossReopens(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "translations.json")
	cache, err := OpenCache(path)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}

	fp := Fingerprint("it", "en", "Il Napoli ha vinto 2-1.")
	if err := cache.Put(fp, "Napoli won 2-1."); err != nil {
		t.Fatalf("put: %v", err)
	}

	reopened, err := OpenCache(path)
	if err != nil {
		t.Fatalf("reopen cache: %v", err)
	}
	if got, ok := reopened.Get(fp); !ok || got != "Napoli won 2-1." {
		t.Fatalf("entry did not survive reopen: %q (hit=%v)", got, ok)
	}
	if reopened.Len() != 1 {
		t.Fatalf("unexpected entry count: %d", reopened.Len())
	}
}

func TestFingerprint_DependsOnLanguagePair(t *testing.T) {
	t.Parallel()

	base := Fingerprint("it", "en", "Ciao")
	if Fingerprint("it", "en", "Ciao") != base {
		t.Fatalf("fingerprint must be deterministic")
	}
	if Fingerprint("it", "de", "Ciao") == base {
		t.Fatalf("fingerprint must depend on the target language")
	}
	if Fingerprint("es", "en", "Ciao") == base {
		t.Fatalf("fingerprint must depend on the source language")
	}
	if Fingerprint("it", "en", "Ciao!") == base {
		t.Fatalf("fingerprint must depend on the text")
	}
}
