package translation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultMyMemoryEndpoint is the public MyMemory translation API.
	DefaultMyMemoryEndpoint = "https://api.mymemory.translated.net/get"

	maxProviderResponseBytes = 1 << 20
)

// MyMemoryProvider calls the MyMemory API: a query-string GET that
// responds with JSON carrying responseData.translatedText. The service
// reports quota exhaustion inside an HTTP 200 body, so the body is
// inspected for warning markers before the payload is trusted.
type MyMemoryProvider struct {
	endpoint  string
	userAgent string
	client    *http.Client
}

func NewMyMemoryProvider(endpoint, userAgent string, timeout time.Duration) *MyMemoryProvider {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		trimmed = DefaultMyMemoryEndpoint
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &MyMemoryProvider{
		endpoint:  trimmed,
		userAgent: strings.TrimSpace(userAgent),
		client:    &http.Client{Timeout: timeout},
	}
}

func (p *MyMemoryProvider) Name() string {
	return "mymemory"
}

type myMemoryResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
}

func (p *MyMemoryProvider) Translate(ctx context.Context, req Request) Outcome {
	query := url.Values{}
	query.Set("q", req.Text)
	query.Set("langpair", req.SourceLang+"|"+req.TargetLang)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return NetworkError(fmt.Errorf("build mymemory request: %w", err))
	}
	if p.userAgent != "" {
		httpReq.Header.Set("User-Agent", p.userAgent)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return NetworkError(fmt.Errorf("call mymemory: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderResponseBytes))
	if err != nil {
		return NetworkError(fmt.Errorf("read mymemory response: %w", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return RateLimited(fmt.Errorf("mymemory status %d", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Malformed(fmt.Errorf("mymemory status %d", resp.StatusCode))
	}
	if !isJSONContentType(resp.Header.Get("Content-Type")) {
		return Malformed(fmt.Errorf("mymemory content type %q is not JSON", resp.Header.Get("Content-Type")))
	}

	// Quota exhaustion and oversize queries come back as HTTP 200 with
	// the marker embedded in translatedText.
	text := string(body)
	if strings.Contains(text, "MYMEMORY WARNING") {
		return RateLimited(errors.New("mymemory free quota exhausted"))
	}
	if strings.Contains(text, "QUERY LENGTH LIMIT EXCEEDED") {
		return Malformed(errors.New("mymemory query length limit exceeded"))
	}

	var parsed myMemoryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Malformed(fmt.Errorf("decode mymemory response: %w", err))
	}

	translated := strings.TrimSpace(parsed.ResponseData.TranslatedText)
	if translated == "" {
		return Malformed(errors.New("mymemory returned an empty translation"))
	}
	return Success(translated)
}

func isJSONContentType(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "json")
}
