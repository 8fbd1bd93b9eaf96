package translation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// PartialMode selects what a long-text translation returns when only
// some chunks could be translated.
type PartialMode string

const (
	// PartialModeMixed assembles the mixed result: translated chunks in
	// the target language, failed chunks left in the source language.
	PartialModeMixed PartialMode = "mixed"
	// PartialModeWithhold returns the whole text as pending instead.
	PartialModeWithhold PartialMode = "withhold"
)

// Status classifies a whole-request translation result.
type Status int

const (
	StatusTranslated Status = iota
	StatusPartial
	StatusPending
)

func (s Status) String() string {
	switch s {
	case StatusTranslated:
		return "translated"
	case StatusPartial:
		return "partial"
	case StatusPending:
		return "pending"
	default:
		return "unknown"
	}
}

// Result is the outcome of one translation request. Text holds the
// translated (or mixed) text, or the untouched source text when pending.
type Result struct {
	Status Status
	Text   string
}

// Options tunes pipeline behavior. Zero values fall back to defaults.
type Options struct {
	MaxChunkChars   int
	MaxAttempts     int
	BaseDelay       time.Duration
	CallDelay       time.Duration
	DelayOnCacheHit bool
	PartialMode     PartialMode

	// Sleep overrides the politeness/backoff delay, for tests.
	Sleep func(ctx context.Context, d time.Duration)
}

const (
	defaultMaxAttempts = 2
	defaultBaseDelay   = 500 * time.Millisecond
	defaultCallDelay   = 1200 * time.Millisecond
)

// Pipeline composes chunking, the provider chain, retry/backoff, echo
// detection, and the write-through cache into a best-effort translation
// service. Execution is strictly sequential: free providers rate-limit
// per IP, so requests are paced with a fixed delay rather than
// parallelized. Cancellation is honored between chunks only.
type Pipeline struct {
	registry *Registry
	cache    *Cache
	logger   zerolog.Logger
	opts     Options
}

func NewPipeline(registry *Registry, cache *Cache, logger zerolog.Logger, opts Options) (*Pipeline, error) {
	if registry == nil || len(registry.Providers()) == 0 {
		return nil, fmt.Errorf("no translation providers configured")
	}
	if cache == nil {
		return nil, fmt.Errorf("translation cache is required")
	}
	if opts.MaxChunkChars <= 0 {
		opts.MaxChunkChars = DefaultMaxChunkChars
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	if opts.CallDelay < 0 {
		opts.CallDelay = defaultCallDelay
	}
	if opts.PartialMode == "" {
		opts.PartialMode = PartialModeMixed
	}
	return &Pipeline{
		registry: registry,
		cache:    cache,
		logger:   logger,
		opts:     opts,
	}, nil
}

// Translate handles text that fits one provider call. Empty text yields
// an empty translated result without any provider calls.
func (p *Pipeline) Translate(ctx context.Context, run *RunState, req Request) (Result, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return Result{Status: StatusTranslated}, nil
	}

	normalized, err := p.normalizeRequest(req, text)
	if err != nil {
		return Result{}, err
	}

	translated, ok := p.translateChunk(ctx, run, normalized)
	if !ok {
		if err := ctx.Err(); err != nil {
			return Result{Status: StatusPending, Text: text}, err
		}
		return Result{Status: StatusPending, Text: text}, nil
	}
	return Result{Status: StatusTranslated, Text: translated}, nil
}

// TranslateLong chunks long-form text and translates chunk by chunk.
// The whole request is Translated only if every chunk succeeded and
// Pending if none did; a mixed outcome follows the configured partial
// mode.
func (p *Pipeline) TranslateLong(ctx context.Context, run *RunState, req Request) (Result, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return Result{Status: StatusTranslated}, nil
	}

	normalized, err := p.normalizeRequest(req, text)
	if err != nil {
		return Result{}, err
	}

	fragments := Chunk(text, p.opts.MaxChunkChars)
	if len(fragments) <= 1 {
		return p.Translate(ctx, run, normalized)
	}

	assembled := make([]Fragment, len(fragments))
	succeeded := 0
	for i, fragment := range fragments {
		// Cancellation is only honored between chunks; an in-flight
		// provider call always runs to completion or timeout.
		if err := ctx.Err(); err != nil {
			return Result{Status: StatusPending, Text: text}, err
		}

		chunkReq := Request{
			Text:       fragment.Text,
			SourceLang: normalized.SourceLang,
			TargetLang: normalized.TargetLang,
		}
		translated, ok := p.translateChunk(ctx, run, chunkReq)
		if ok {
			assembled[i] = Fragment{Text: translated, Sep: fragment.Sep}
			succeeded++
			continue
		}
		assembled[i] = fragment
	}

	p.logger.Debug().
		Int("chunks", len(fragments)).
		Int("succeeded", succeeded).
		Msg("long text translation finished")

	switch {
	case succeeded == len(fragments):
		return Result{Status: StatusTranslated, Text: Join(assembled)}, nil
	case succeeded == 0:
		return Result{Status: StatusPending, Text: text}, nil
	case p.opts.PartialMode == PartialModeWithhold:
		return Result{Status: StatusPending, Text: text}, nil
	default:
		return Result{Status: StatusPartial, Text: Join(assembled)}, nil
	}
}

// translateChunk resolves one chunk: cache first, then the provider
// chain in priority order with retry/backoff and echo detection. The
// accepted translation is cached write-through before returning.
func (p *Pipeline) translateChunk(ctx context.Context, run *RunState, req Request) (string, bool) {
	fingerprint := Fingerprint(req.SourceLang, req.TargetLang, req.Text)
	if cached, ok := p.cache.Get(fingerprint); ok {
		if p.opts.DelayOnCacheHit {
			p.sleep(ctx, p.opts.CallDelay)
		}
		return cached, true
	}

	for _, provider := range p.registry.Providers() {
		if !run.Enabled(provider.Name()) {
			continue
		}
		if ctx.Err() != nil {
			return "", false
		}

		outcome := withRetries(ctx, p.logger, provider, req, p.opts.MaxAttempts, p.opts.BaseDelay, p.sleepFn())
		p.sleep(ctx, p.opts.CallDelay)

		switch outcome.Kind {
		case OutcomeSuccess:
			if IsUnchanged(req.Text, outcome.Text) {
				p.logger.Debug().
					Str("provider", provider.Name()).
					Msg("provider echoed the source text, trying next provider")
				continue
			}
			if err := p.cache.Put(fingerprint, outcome.Text); err != nil {
				p.logger.Warn().Err(err).Msg("persist translation cache entry")
			}
			return outcome.Text, true
		case OutcomeRateLimited:
			run.Disable(provider.Name())
			p.logger.Warn().
				Str("provider", provider.Name()).
				Err(outcome.Err).
				Msg("provider rate limited, disabled for the rest of the run")
		default:
			p.logger.Warn().
				Str("provider", provider.Name()).
				Str("outcome", outcome.Kind.String()).
				Err(outcome.Err).
				Msg("provider exhausted its attempts for this chunk")
		}
	}
	return "", false
}

func (p *Pipeline) normalizeRequest(req Request, text string) (Request, error) {
	source := normalizeLangCode(req.SourceLang)
	target := normalizeLangCode(req.TargetLang)
	if target == "" {
		return Request{}, fmt.Errorf("target language is required")
	}
	if source == "" {
		source = "it"
	}
	return Request{Text: text, SourceLang: source, TargetLang: target}, nil
}

func (p *Pipeline) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	if p.opts.Sleep != nil {
		p.opts.Sleep(ctx, d)
		return
	}
	sleepWithContext(ctx, d)
}

func (p *Pipeline) sleepFn() sleepFunc {
	if p.opts.Sleep != nil {
		return sleepFunc(p.opts.Sleep)
	}
	return sleepWithContext
}
