package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultLibreTranslateEndpoint is the hosted LibreTranslate instance.
const DefaultLibreTranslateEndpoint = "https://libretranslate.com/translate"

// LibreTranslateProvider posts JSON to a LibreTranslate-compatible
// endpoint. Instances answer with either an object {translatedText} or an
// array [{translatedText}, ...]; both shapes are decoded explicitly.
// Public mirrors sometimes return Cloudflare HTML with HTTP 200, so a
// non-JSON content type is rejected before the body is parsed.
type LibreTranslateProvider struct {
	endpoint  string
	apiKey    string
	userAgent string
	client    *http.Client
}

func NewLibreTranslateProvider(endpoint, apiKey, userAgent string, timeout time.Duration) *LibreTranslateProvider {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		trimmed = DefaultLibreTranslateEndpoint
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LibreTranslateProvider{
		endpoint:  trimmed,
		apiKey:    strings.TrimSpace(apiKey),
		userAgent: strings.TrimSpace(userAgent),
		client:    &http.Client{Timeout: timeout},
	}
}

func (p *LibreTranslateProvider) Name() string {
	return "libretranslate"
}

type libreTranslateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreTranslateObject struct {
	TranslatedText string `json:"translatedText"`
}

func (p *LibreTranslateProvider) Translate(ctx context.Context, req Request) Outcome {
	payload, err := json.Marshal(libreTranslateRequest{
		Q:      req.Text,
		Source: req.SourceLang,
		Target: req.TargetLang,
		Format: "text",
		APIKey: p.apiKey,
	})
	if err != nil {
		return Malformed(fmt.Errorf("encode libretranslate request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return NetworkError(fmt.Errorf("build libretranslate request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if p.userAgent != "" {
		httpReq.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return NetworkError(fmt.Errorf("call libretranslate: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderResponseBytes))
	if err != nil {
		return NetworkError(fmt.Errorf("read libretranslate response: %w", err))
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusForbidden:
		// 403 is how the hosted instance reports an exhausted key.
		return RateLimited(fmt.Errorf("libretranslate status %d", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Malformed(fmt.Errorf("libretranslate status %d", resp.StatusCode))
	}
	if !isJSONContentType(resp.Header.Get("Content-Type")) {
		return Malformed(fmt.Errorf("libretranslate content type %q is not JSON", resp.Header.Get("Content-Type")))
	}

	translated, err := decodeLibreTranslateBody(body)
	if err != nil {
		return Malformed(err)
	}
	if translated == "" {
		return Malformed(errors.New("libretranslate returned an empty translation"))
	}
	return Success(translated)
}

// decodeLibreTranslateBody handles both response shapes as an explicit
// tagged union keyed on the leading byte, never inferred field-by-field.
func decodeLibreTranslateBody(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	switch {
	case bytes.HasPrefix(trimmed, []byte("{")):
		var obj libreTranslateObject
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return "", fmt.Errorf("decode libretranslate object response: %w", err)
		}
		return strings.TrimSpace(obj.TranslatedText), nil
	case bytes.HasPrefix(trimmed, []byte("[")):
		var arr []libreTranslateObject
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return "", fmt.Errorf("decode libretranslate array response: %w", err)
		}
		if len(arr) == 0 {
			return "", errors.New("libretranslate returned an empty array")
		}
		return strings.TrimSpace(arr[0].TranslatedText), nil
	default:
		return "", errors.New("libretranslate response is neither object nor array")
	}
}
