package translation

import (
	"context"
	"strings"
)

// OutcomeKind classifies the result of a single provider call.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeRateLimited
	OutcomeMalformed
	OutcomeNetworkError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeNetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

// Outcome is the typed result of one provider call. Failures carry a
// diagnostic error; they are never raised to the top of a run.
type Outcome struct {
	Kind OutcomeKind
	Text string
	Err  error
}

func Success(text string) Outcome {
	return Outcome{Kind: OutcomeSuccess, Text: text}
}

func RateLimited(err error) Outcome {
	return Outcome{Kind: OutcomeRateLimited, Err: err}
}

func Malformed(err error) Outcome {
	return Outcome{Kind: OutcomeMalformed, Err: err}
}

func NetworkError(err error) Outcome {
	return Outcome{Kind: OutcomeNetworkError, Err: err}
}

// Request describes one translation request.
type Request struct {
	Text       string
	SourceLang string // ISO 639-1 (for example: "it")
	TargetLang string
}

// Provider translates free-form text between languages.
type Provider interface {
	Translate(ctx context.Context, req Request) Outcome
	Name() string
}

// normalizeLangCode lowercases a language tag and keeps the primary
// subtag ("en" from "en-US"). Returns "" for blank or invalid input.
func normalizeLangCode(raw string) string {
	code := strings.ToLower(strings.TrimSpace(raw))
	if code == "" {
		return ""
	}
	code = strings.ReplaceAll(code, "_", "-")
	if dash := strings.IndexByte(code, '-'); dash >= 0 {
		code = code[:dash]
	}
	for _, r := range code {
		if r < 'a' || r > 'z' {
			return ""
		}
	}
	return code
}
