package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"pitchside.news/internews/internal/cli"
	"pitchside.news/internews/internal/config"
	"pitchside.news/internews/internal/feed"
	"pitchside.news/internews/internal/langdetect"
	"pitchside.news/internews/internal/logging"
	"pitchside.news/internews/internal/scrape"
	"pitchside.news/internews/internal/store"
	"pitchside.news/internews/internal/translation"
)

func runIngest(args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	maxItems := fs.Int("max-items", 0, "Override MAX_ITEMS for this run")
	dryRun := fs.Bool("dry-run", false, "Translate and archive, but do not write the feed or site")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if *maxItems > 0 {
		cfg.MaxItems = *maxItems
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		logger.Warn().Msg("interrupt received, finishing current article")
		cancel()
	}()

	run, err := newIngestRun(cfg, logger, *dryRun)
	if err != nil {
		logger.Error().Err(err).Msg("ingest setup failed")
		fmt.Fprintf(os.Stderr, "Ingest setup failed: %v\n", err)
		return 1
	}
	defer run.close()

	if err := run.execute(ctx); err != nil {
		logger.Error().Err(err).Msg("ingest run failed")
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		return 1
	}
	return 0
}

type ingestRun struct {
	cfg      *config.Config
	logger   zerolog.Logger
	cache    *translation.Cache
	archive  *store.Archive
	pipeline *translation.Pipeline
	dryRun   bool
}

func newIngestRun(cfg *config.Config, logger zerolog.Logger, dryRun bool) (*ingestRun, error) {
	cache, err := translation.OpenCache(cfg.CacheFile)
	if err != nil {
		return nil, fmt.Errorf("open translation cache: %w", err)
	}

	archive, err := store.Open(cfg.ArchiveFile)
	if err != nil {
		return nil, fmt.Errorf("open article archive: %w", err)
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		archive.Close()
		return nil, err
	}

	pipeline, err := translation.NewPipeline(registry, cache, logger, translation.Options{
		MaxChunkChars:   cfg.TranslateMaxChunkChars,
		MaxAttempts:     cfg.TranslateMaxAttempts,
		BaseDelay:       cfg.TranslateBaseDelay(),
		CallDelay:       cfg.TranslateSleep(),
		DelayOnCacheHit: cfg.TranslateDelayOnCacheHit,
		PartialMode:     translation.PartialMode(cfg.TranslatePartialMode),
	})
	if err != nil {
		archive.Close()
		return nil, fmt.Errorf("build translation pipeline: %w", err)
	}

	return &ingestRun{
		cfg:      cfg,
		logger:   logger,
		cache:    cache,
		archive:  archive,
		pipeline: pipeline,
		dryRun:   dryRun,
	}, nil
}

func buildRegistry(cfg *config.Config) (*translation.Registry, error) {
	providers := make([]translation.Provider, 0, len(cfg.TranslationProviders))
	for _, name := range cfg.TranslationProviders {
		switch name {
		case config.ProviderLibreTranslate:
			providers = append(providers, translation.NewLibreTranslateProvider(
				cfg.LibreTranslateURL, cfg.LibreTranslateAPIKey, cfg.UserAgent, cfg.HTTPTimeout()))
		case config.ProviderMyMemory:
			providers = append(providers, translation.NewMyMemoryProvider(
				cfg.MyMemoryURL, cfg.UserAgent, cfg.HTTPTimeout()))
		default:
			return nil, fmt.Errorf("unknown translation provider %q", name)
		}
	}

	registry, err := translation.NewRegistry(providers...)
	if err != nil {
		return nil, fmt.Errorf("build provider registry: %w", err)
	}
	return registry, nil
}

func (r *ingestRun) close() {
	if err := r.archive.Close(); err != nil {
		r.logger.Warn().Err(err).Msg("close article archive")
	}
}

func (r *ingestRun) execute(ctx context.Context) error {
	links := r.discover(ctx)
	if len(links) == 0 {
		r.logger.Warn().Msg("no article candidates discovered")
	}

	runState := translation.NewRunState()
	processed, failed := 0, 0
	for _, link := range links {
		if ctx.Err() != nil {
			r.logger.Warn().Int("processed", processed).Msg("run canceled, publishing what we have")
			break
		}
		if err := r.processLink(ctx, runState, link); err != nil {
			failed++
			r.logger.Warn().Err(err).Str("url", link.URL).Msg("article processing failed, skipping")
			continue
		}
		processed++
	}

	r.logger.Info().
		Int("discovered", len(links)).
		Int("processed", processed).
		Int("failed", failed).
		Msg("ingest pass finished")

	if r.dryRun {
		r.logger.Info().Msg("dry run, skipping feed and site output")
		return nil
	}
	return r.publish(ctx)
}

// discover merges listing-page and RSS candidates with articles whose
// translation is still unfinished from previous runs.
func (r *ingestRun) discover(ctx context.Context) []scrape.Link {
	opts := scrape.ListingOptions{
		Host:      r.cfg.SourceHost,
		UserAgent: r.cfg.UserAgent,
		Timeout:   r.cfg.HTTPTimeout(),
	}

	links := scrape.CollectListingLinks(ctx, r.logger, r.cfg.ListingURLs, r.cfg.MaxItems, opts)
	links = scrape.MergeLinks(links, scrape.CollectFeedLinks(ctx, r.logger, r.cfg.FeedURLs, r.cfg.MaxItems, opts))
	scrape.SortByPublished(links)
	if len(links) > r.cfg.MaxItems {
		links = links[:r.cfg.MaxItems]
	}

	unfinished, err := r.archive.ListUnfinished(ctx, r.cfg.MaxItems)
	if err != nil {
		r.logger.Warn().Err(err).Msg("could not re-queue unfinished articles")
		return links
	}
	for _, a := range unfinished {
		links = scrape.MergeLinks(links, []scrape.Link{{URL: a.URL, Title: a.TitleIT, Published: a.Published}})
	}
	return links
}

func (r *ingestRun) processLink(ctx context.Context, runState *translation.RunState, link scrape.Link) error {
	existing, err := r.archive.Get(ctx, link.URL)
	if err != nil {
		return err
	}
	if existing != nil && existing.Status == store.StatusTranslated {
		r.logger.Debug().Str("url", link.URL).Msg("already translated, skipping")
		return nil
	}

	article := store.Article{
		URL:       link.URL,
		TitleIT:   link.Title,
		Published: link.Published,
		Status:    store.StatusPending,
	}
	if existing != nil {
		article.ID = existing.ID
		article.FirstSeen = existing.FirstSeen
		if existing.TitleIT != "" {
			article.TitleIT = existing.TitleIT
		}
		if existing.Published != "" && article.Published == "" {
			article.Published = existing.Published
		}
		article.BodyIT = existing.BodyIT
	}

	if article.BodyIT == "" && r.cfg.FetchFullText {
		body, err := scrape.FetchArticleText(ctx, link.URL, article.TitleIT, scrape.FetchOptions{
			UserAgent: r.cfg.UserAgent,
			Timeout:   r.cfg.HTTPTimeout(),
		})
		if err != nil {
			r.logger.Warn().Err(err).Str("url", link.URL).Msg("body extraction failed, keeping title only")
		} else {
			article.BodyIT = body
		}
	}
	article.TeaserIT = scrape.Teaser(article.BodyIT)

	// Some wire items arrive already in the target language; detection
	// saves the provider quota for real work.
	sample := article.BodyIT
	if sample == "" {
		sample = article.TitleIT
	}
	if langdetect.DetectISO6391(sample) == r.cfg.TargetLang {
		article.TitleEN = article.TitleIT
		article.TeaserEN = article.TeaserIT
		article.BodyEN = article.BodyIT
		article.Status = store.StatusTranslated
		return r.archive.Upsert(ctx, article)
	}

	if err := r.translateArticle(ctx, runState, &article); err != nil {
		// Persist the Italian side so the next run can re-queue it.
		if upsertErr := r.archive.Upsert(ctx, article); upsertErr != nil {
			r.logger.Warn().Err(upsertErr).Str("url", link.URL).Msg("persist pending article")
		}
		return err
	}

	return r.archive.Upsert(ctx, article)
}

func (r *ingestRun) translateArticle(ctx context.Context, runState *translation.RunState, article *store.Article) error {
	request := func(text string) translation.Request {
		return translation.Request{
			Text:       text,
			SourceLang: r.cfg.SourceLang,
			TargetLang: r.cfg.TargetLang,
		}
	}

	titleRes, err := r.pipeline.Translate(ctx, runState, request(article.TitleIT))
	if err != nil {
		return fmt.Errorf("translate title: %w", err)
	}
	teaserRes, err := r.pipeline.Translate(ctx, runState, request(article.TeaserIT))
	if err != nil {
		return fmt.Errorf("translate teaser: %w", err)
	}
	bodyRes, err := r.pipeline.TranslateLong(ctx, runState, request(article.BodyIT))
	if err != nil {
		return fmt.Errorf("translate body: %w", err)
	}

	if titleRes.Status != translation.StatusPending {
		article.TitleEN = titleRes.Text
	}
	if teaserRes.Status != translation.StatusPending {
		article.TeaserEN = teaserRes.Text
	}
	if bodyRes.Status != translation.StatusPending {
		article.BodyEN = bodyRes.Text
	}
	article.Status = combineStatuses(titleRes.Status, teaserRes.Status, bodyRes.Status)

	r.logger.Info().
		Str("url", article.URL).
		Str("status", article.Status).
		Msg("article translated")
	return nil
}

// combineStatuses folds per-field translation statuses into the
// archived article status.
func combineStatuses(statuses ...translation.Status) string {
	translated, pending := 0, 0
	for _, s := range statuses {
		switch s {
		case translation.StatusTranslated:
			translated++
		case translation.StatusPending:
			pending++
		}
	}
	switch {
	case translated == len(statuses):
		return store.StatusTranslated
	case pending == len(statuses):
		return store.StatusPending
	default:
		return store.StatusPartial
	}
}

func (r *ingestRun) publish(ctx context.Context) error {
	articles, err := r.archive.ListRecent(ctx, r.cfg.MaxItems)
	if err != nil {
		return fmt.Errorf("load articles for feed: %w", err)
	}

	payload := feed.BuildPayload(r.cfg.SourceName, articles, time.Now())
	feedPath := filepath.Join(r.cfg.SiteDir, "data", "articles.json")
	if err := feed.WritePayload(feedPath, payload); err != nil {
		return fmt.Errorf("write feed: %w", err)
	}
	if err := feed.RenderSite(r.cfg.SiteDir, payload); err != nil {
		return fmt.Errorf("render site: %w", err)
	}

	r.logger.Info().
		Str("feed", feedPath).
		Int("articles", payload.Count).
		Msg("feed and site published")
	return nil
}
