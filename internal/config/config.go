package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Known translation provider names, in the order the original job
// tried them.
const (
	ProviderLibreTranslate = "libretranslate"
	ProviderMyMemory       = "mymemory"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	SiteDir     string `envconfig:"SITE_DIR" default:"site"`
	CacheFile   string `envconfig:"CACHE_FILE" default:"site/data/translations.json"`
	ArchiveFile string `envconfig:"ARCHIVE_FILE" default:"site/data/articles.db"`

	SourceName    string   `envconfig:"SOURCE_NAME" default:"FCInterNews (Italian)"`
	SourceHost    string   `envconfig:"SOURCE_HOST" default:"fcinternews.it"`
	ListingURLs   []string `envconfig:"LISTING_URLS" default:"https://www.fcinternews.it/,https://www.fcinternews.it/news/,https://www.fcinternews.it/mercato/,https://www.fcinternews.it/in-primo-piano/"`
	FeedURLs      []string `envconfig:"FEED_URLS"`
	MaxItems      int      `envconfig:"MAX_ITEMS" default:"30"`
	FetchFullText bool     `envconfig:"FETCH_FULL_TEXT" default:"true"`
	UserAgent     string   `envconfig:"USER_AGENT" default:"Mozilla/5.0 (compatible; InterNewsFetcher/2.0)"`

	SourceLang string `envconfig:"SOURCE_LANG" default:"it"`
	TargetLang string `envconfig:"TARGET_LANG" default:"en"`

	TranslationProviders []string `envconfig:"TRANSLATION_PROVIDERS" default:"libretranslate,mymemory"`
	LibreTranslateURL    string   `envconfig:"LIBRETRANSLATE_URL" default:"https://libretranslate.com/translate"`
	LibreTranslateAPIKey string   `envconfig:"LIBRETRANSLATE_API_KEY" default:""`
	MyMemoryURL          string   `envconfig:"MYMEMORY_URL" default:"https://api.mymemory.translated.net/get"`

	TranslateSleepMS         int    `envconfig:"TRANSLATE_SLEEP_MS" default:"1200"`
	TranslateMaxAttempts     int    `envconfig:"TRANSLATE_MAX_ATTEMPTS" default:"2"`
	TranslateBaseDelayMS     int    `envconfig:"TRANSLATE_BASE_DELAY_MS" default:"500"`
	TranslateMaxChunkChars   int    `envconfig:"TRANSLATE_MAX_CHUNK_CHARS" default:"420"`
	TranslatePartialMode     string `envconfig:"TRANSLATE_PARTIAL_MODE" default:"mixed"`
	TranslateDelayOnCacheHit bool   `envconfig:"TRANSLATE_DELAY_ON_CACHE_HIT" default:"false"`

	HTTPTimeoutMS int `envconfig:"HTTP_TIMEOUT_MS" default:"30000"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.SiteDir) == "" {
		return fmt.Errorf("SITE_DIR is required")
	}
	if strings.TrimSpace(c.SourceHost) == "" {
		return fmt.Errorf("SOURCE_HOST is required")
	}
	if len(c.ListingURLs) == 0 && len(c.FeedURLs) == 0 {
		return fmt.Errorf("at least one of LISTING_URLS or FEED_URLS is required")
	}
	if c.MaxItems < 1 {
		return fmt.Errorf("MAX_ITEMS must be >= 1")
	}
	if strings.TrimSpace(c.TargetLang) == "" {
		return fmt.Errorf("TARGET_LANG is required")
	}

	if len(c.TranslationProviders) == 0 {
		return fmt.Errorf("TRANSLATION_PROVIDERS must name at least one provider")
	}
	for _, name := range c.TranslationProviders {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case ProviderLibreTranslate, ProviderMyMemory:
		default:
			return fmt.Errorf("unknown translation provider %q (known: %s, %s)", name, ProviderLibreTranslate, ProviderMyMemory)
		}
	}

	switch strings.ToLower(strings.TrimSpace(c.TranslatePartialMode)) {
	case "mixed", "withhold":
	default:
		return fmt.Errorf("TRANSLATE_PARTIAL_MODE must be \"mixed\" or \"withhold\"")
	}

	if c.TranslateMaxAttempts < 1 {
		return fmt.Errorf("TRANSLATE_MAX_ATTEMPTS must be >= 1")
	}
	if c.TranslateMaxChunkChars < 50 {
		return fmt.Errorf("TRANSLATE_MAX_CHUNK_CHARS must be >= 50")
	}
	if c.HTTPTimeoutMS < 1000 {
		return fmt.Errorf("HTTP_TIMEOUT_MS must be >= 1000")
	}
	return nil
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutMS) * time.Millisecond
}

func (c *Config) TranslateSleep() time.Duration {
	return time.Duration(c.TranslateSleepMS) * time.Millisecond
}

func (c *Config) TranslateBaseDelay() time.Duration {
	return time.Duration(c.TranslateBaseDelayMS) * time.Millisecond
}
