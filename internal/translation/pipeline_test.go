package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type scriptedProvider struct {
	name  string
	calls int
	fn    func(req Request) Outcome
}

func (p *scriptedProvider) Translate(_ context.Context, req Request) Outcome {
	p.calls++
	return p.fn(req)
}

func (p *scriptedProvider) Name() string {
	return p.name
}

func echoProvider(name string) *scriptedProvider {
	return &scriptedProvider{name: name, fn: func(req Request) Outcome {
		return Success(req.Text)
	}}
}

func translatingProvider(name string) *scriptedProvider {
	return &scriptedProvider{name: name, fn: func(req Request) Outcome {
		return Success("English version: " + req.Text)
	}}
}

func newTestPipeline(t *testing.T, opts Options, providers ...Provider) (*Pipeline, *Cache) {
	t.Helper()

	registry, err := NewRegistry(providers...)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	cache, err := OpenCache("")
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	if opts.Sleep == nil {
		opts.Sleep = func(context.Context, time.Duration) {}
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 1
	}
	pipeline, err := NewPipeline(registry, cache, zerolog.Nop(), opts)
	if err != nil {
		t.Fatalf("build pipeline: %v", err)
	}
	return pipeline, cache
}

func TestNewPipeline_RequiresProviders(t *testing.T) {
	t.Parallel()

	if _, err := NewRegistry(); err == nil {
		t.Fatalf("expected error for empty registry")
	}

	cache, err := OpenCache("")
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	if _, err := NewPipeline(nil, cache, zerolog.Nop(), Options{}); err == nil {
		t.Fatalf("expected error for pipeline without providers")
	}
}

func TestTranslate_EmptyTextSkipsProviders(t *testing.T) {
	t.Parallel()

	provider := translatingProvider("stub")
	pipeline, _ := newTestPipeline(t, Options{}, provider)

	result, err := pipeline.Translate(context.Background(), NewRunState(), Request{Text: "   ", SourceLang: "it", TargetLang: "en"})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if result.Status != StatusTranslated || result.Text != "" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if provider.calls != 0 {
		t.Fatalf("empty text must not reach a provider, got %d calls", provider.calls)
	}
}

func TestTranslate_EchoFallsThroughAndCachesAcceptedResult(t *testing.T) {
	t.Parallel()

	echoing := echoProvider("mymemory")
	working := &scriptedProvider{name: "libretranslate", fn: func(Request) Outcome {
		return Success("Napoli won 2-1.")
	}}
	pipeline, cache := newTestPipeline(t, Options{}, echoing, working)

	result, err := pipeline.Translate(context.Background(), NewRunState(), Request{
		Text:       "Il Napoli ha vinto 2-1.",
		SourceLang: "it",
		TargetLang: "en",
	})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if result.Status != StatusTranslated || result.Text != "Napoli won 2-1." {
		t.Fatalf("unexpected result: %+v", result)
	}
	if echoing.calls != 1 || working.calls != 1 {
		t.Fatalf("unexpected call counts: echo=%d working=%d", echoing.calls, working.calls)
	}

	fp := Fingerprint("it", "en", "Il Napoli ha vinto 2-1.")
	if got, ok := cache.Get(fp); !ok || got != "Napoli won 2-1." {
		t.Fatalf("accepted translation missing from cache: %q (hit=%v)", got, ok)
	}
}

func TestTranslate_RateLimitedProviderDisabledForRun(t *testing.T) {
	t.Parallel()

	limited := &scriptedProvider{name: "mymemory", fn: func(Request) Outcome {
		return RateLimited(errors.New("quota exhausted"))
	}}
	working := translatingProvider("libretranslate")
	pipeline, _ := newTestPipeline(t, Options{}, limited, working)

	run := NewRunState()
	for i := 0; i < 3; i++ {
		text := fmt.Sprintf("Notizia numero %d sul mercato", i)
		result, err := pipeline.Translate(context.Background(), run, Request{Text: text, SourceLang: "it", TargetLang: "en"})
		if err != nil {
			t.Fatalf("translate %d: %v", i, err)
		}
		if result.Status != StatusTranslated {
			t.Fatalf("request %d not translated: %+v", i, result)
		}
	}

	if limited.calls != 1 {
		t.Fatalf("rate-limited provider must be called once per run, got %d", limited.calls)
	}
	if working.calls != 3 {
		t.Fatalf("fallback provider should handle all requests, got %d", working.calls)
	}
}

func TestTranslate_AllProvidersExhaustedYieldsPending(t *testing.T) {
	t.Parallel()

	broken := &scriptedProvider{name: "mymemory", fn: func(Request) Outcome {
		return NetworkError(errors.New("timeout"))
	}}
	echoing := echoProvider("libretranslate")
	pipeline, cache := newTestPipeline(t, Options{}, broken, echoing)

	result, err := pipeline.Translate(context.Background(), NewRunState(), Request{
		Text:       "Il mister ha parlato alla vigilia",
		SourceLang: "it",
		TargetLang: "en",
	})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if result.Status != StatusPending {
		t.Fatalf("expected pending, got %+v", result)
	}
	if result.Text != "Il mister ha parlato alla vigilia" {
		t.Fatalf("pending result must carry the source text: %q", result.Text)
	}
	if cache.Len() != 0 {
		t.Fatalf("pending results must never be cached, got %d entries", cache.Len())
	}
}

func TestTranslate_CacheHitSkipsProviders(t *testing.T) {
	t.Parallel()

	provider := translatingProvider("stub")
	pipeline, cache := newTestPipeline(t, Options{}, provider)

	fp := Fingerprint("it", "en", "Ciao mondo")
	if err := cache.Put(fp, "Hello world"); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	result, err := pipeline.Translate(context.Background(), NewRunState(), Request{Text: "Ciao mondo", SourceLang: "it", TargetLang: "en"})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if result.Status != StatusTranslated || result.Text != "Hello world" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if provider.calls != 0 {
		t.Fatalf("cache hit must not reach a provider, got %d calls", provider.calls)
	}
}

func longTestBody() (string, string, string) {
	first := "Il primo paragrafo racconta la vittoria della squadra in campionato dopo una lunga rincorsa alle posizioni di vertice della classifica."
	second := "SECONDA parte della cronaca con i dettagli sul gol decisivo segnato negli ultimi minuti della ripresa davanti al pubblico di casa."
	third := "Il terzo paragrafo riporta le dichiarazioni dell'allenatore in conferenza stampa al termine della partita giocata ieri sera."
	return first, second, third
}

func TestTranslateLong_PartialAssemblesMixedResult(t *testing.T) {
	t.Parallel()

	first, second, third := longTestBody()
	provider := &scriptedProvider{name: "stub", fn: func(req Request) Outcome {
		if strings.Contains(req.Text, "SECONDA") {
			return NetworkError(errors.New("timeout"))
		}
		return Success("English version: " + req.Text)
	}}
	pipeline, _ := newTestPipeline(t, Options{MaxChunkChars: 200}, provider)

	body := first + "\n\n" + second + "\n\n" + third
	result, err := pipeline.TranslateLong(context.Background(), NewRunState(), Request{Text: body, SourceLang: "it", TargetLang: "en"})
	if err != nil {
		t.Fatalf("translate long: %v", err)
	}

	if result.Status != StatusPartial {
		t.Fatalf("expected partial status, got %s", result.Status)
	}
	if !strings.Contains(result.Text, "English version: "+first) {
		t.Fatalf("first paragraph not translated in mixed result")
	}
	if !strings.Contains(result.Text, second) {
		t.Fatalf("failed paragraph must keep its source text in mixed result")
	}
	if !strings.Contains(result.Text, "English version: "+third) {
		t.Fatalf("third paragraph not translated in mixed result")
	}
}

func TestTranslateLong_WithholdModeReturnsPending(t *testing.T) {
	t.Parallel()

	first, second, third := longTestBody()
	provider := &scriptedProvider{name: "stub", fn: func(req Request) Outcome {
		if strings.Contains(req.Text, "SECONDA") {
			return NetworkError(errors.New("timeout"))
		}
		return Success("English version: " + req.Text)
	}}
	pipeline, _ := newTestPipeline(t, Options{MaxChunkChars: 200, PartialMode: PartialModeWithhold}, provider)

	body := first + "\n\n" + second + "\n\n" + third
	result, err := pipeline.TranslateLong(context.Background(), NewRunState(), Request{Text: body, SourceLang: "it", TargetLang: "en"})
	if err != nil {
		t.Fatalf("translate long: %v", err)
	}
	if result.Status != StatusPending {
		t.Fatalf("expected pending under withhold mode, got %s", result.Status)
	}
	if result.Text != body {
		t.Fatalf("withheld result must carry the untouched source text")
	}
}

func TestTranslateLong_AllChunksSucceed(t *testing.T) {
	t.Parallel()

	first, second, third := longTestBody()
	provider := translatingProvider("stub")
	pipeline, _ := newTestPipeline(t, Options{MaxChunkChars: 200}, provider)

	body := first + "\n\n" + second + "\n\n" + third
	result, err := pipeline.TranslateLong(context.Background(), NewRunState(), Request{Text: body, SourceLang: "it", TargetLang: "en"})
	if err != nil {
		t.Fatalf("translate long: %v", err)
	}
	if result.Status != StatusTranslated {
		t.Fatalf("expected translated, got %s", result.Status)
	}
	if provider.calls != 3 {
		t.Fatalf("expected one call per paragraph, got %d", provider.calls)
	}
	if strings.Count(result.Text, "English version: ") != 3 {
		t.Fatalf("every paragraph must be translated: %q", result.Text)
	}
}

func TestTranslateLong_SecondRunHitsChunkCache(t *testing.T) {
	t.Parallel()

	first, second, third := longTestBody()
	provider := translatingProvider("stub")
	pipeline, _ := newTestPipeline(t, Options{MaxChunkChars: 200}, provider)

	body := first + "\n\n" + second + "\n\n" + third
	req := Request{Text: body, SourceLang: "it", TargetLang: "en"}
	if _, err := pipeline.TranslateLong(context.Background(), NewRunState(), req); err != nil {
		t.Fatalf("first run: %v", err)
	}

	result, err := pipeline.TranslateLong(context.Background(), NewRunState(), req)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if result.Status != StatusTranslated {
		t.Fatalf("expected translated from cache, got %s", result.Status)
	}
	if provider.calls != 3 {
		t.Fatalf("second run must be served from cache, got %d total calls", provider.calls)
	}
}

func TestTranslateLong_CancellationHonoredBetweenChunks(t *testing.T) {
	t.Parallel()

	first, second, third := longTestBody()
	ctx, cancel := context.WithCancel(context.Background())
	provider := &scriptedProvider{name: "stub", fn: func(req Request) Outcome {
		cancel() // cancel after the first in-flight call completes
		return Success("English version: " + req.Text)
	}}
	pipeline, _ := newTestPipeline(t, Options{MaxChunkChars: 200}, provider)

	body := first + "\n\n" + second + "\n\n" + third
	_, err := pipeline.TranslateLong(ctx, NewRunState(), Request{Text: body, SourceLang: "it", TargetLang: "en"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("cancellation must stop the loop between chunks, got %d calls", provider.calls)
	}
}
