package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"pitchside.news/internews/internal/store"
)

const (
	defaultListLimit = 30
	maxListLimit     = 200
)

type Options struct {
	Host            string
	Port            int
	SiteDir         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	archive *store.Archive
	logger  zerolog.Logger
	opts    Options
}

func NewServer(archive *store.Archive, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8080
	}
	siteDir := strings.TrimSpace(opts.SiteDir)
	if siteDir == "" {
		siteDir = "site"
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		archive: archive,
		logger:  logger,
		opts: Options{
			Host:            host,
			Port:            port,
			SiteDir:         siteDir,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.archive == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.buildEcho()

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Str("site_dir", s.opts.SiteDir).Msg("web server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("web server stopped")
	return nil
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := s.logger.Info()
			if v.Error != nil {
				event = s.logger.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/articles", s.handleArticles)
	api.GET("/articles/:id", s.handleArticleDetail)

	e.Static("/", s.opts.SiteDir)

	return e
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		if text, ok := he.Message.(string); ok && strings.TrimSpace(text) != "" {
			message = text
		} else if text := http.StatusText(status); text != "" {
			message = text
		}
	} else if err != nil {
		message = err.Error()
	}

	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		if status >= 500 {
			_ = internalError(c, "Internal server error")
			return
		}
		_ = fail(c, status, message, nil)
		return
	}

	_ = c.String(status, message)
}

func (s *Server) handleHealth(c echo.Context) error {
	count, err := s.archive.Count(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("archive health check failed")
		return internalError(c, "Archive unavailable")
	}
	return success(c, map[string]any{
		"service":  "internews",
		"articles": count,
		"time":     time.Now().UTC(),
	})
}

func (s *Server) handleArticles(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultListLimit, 1, maxListLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	articles, err := s.archive.ListRecent(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("list articles failed")
		return internalError(c, "Failed to load articles")
	}

	return success(c, map[string]any{
		"items": articleViews(articles),
		"limit": limit,
	})
}

func (s *Server) handleArticleDetail(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return failValidation(c, map[string]string{"id": "is required"})
	}

	article, err := s.archive.GetByID(c.Request().Context(), id)
	if err != nil {
		s.logger.Error().Err(err).Str("article_id", id).Msg("load article failed")
		return internalError(c, "Failed to load article")
	}
	if article == nil {
		return failNotFound(c, "Article not found")
	}
	return success(c, articleView(*article))
}

type articleResponse struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	TitleIT   string `json:"title_it,omitempty"`
	Teaser    string `json:"teaser,omitempty"`
	Body      string `json:"body,omitempty"`
	Status    string `json:"status"`
	Published string `json:"published,omitempty"`
	UpdatedAt string `json:"updated_at"`
}

func articleView(a store.Article) articleResponse {
	view := articleResponse{
		ID:        a.ID,
		URL:       a.URL,
		Title:     a.TitleEN,
		TitleIT:   a.TitleIT,
		Teaser:    a.TeaserEN,
		Body:      a.BodyEN,
		Status:    a.Status,
		Published: a.Published,
		UpdatedAt: a.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if view.Title == "" {
		view.Title = a.TitleIT
	}
	if view.Teaser == "" {
		view.Teaser = a.TeaserIT
	}
	if view.Body == "" {
		view.Body = a.BodyIT
	}
	return view
}

func articleViews(articles []store.Article) []articleResponse {
	out := make([]articleResponse, 0, len(articles))
	for _, a := range articles {
		out = append(out, articleView(a))
	}
	return out
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}
