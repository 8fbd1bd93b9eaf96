package store

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Article statuses mirror the translation pipeline outcomes. Pending
// and partial articles are re-queued on the next ingest run.
const (
	StatusTranslated = "translated"
	StatusPartial    = "partial"
	StatusPending    = "pending"
)

// Article is one archived news item with both language sides.
type Article struct {
	ID        string
	URL       string
	TitleIT   string
	TitleEN   string
	TeaserIT  string
	TeaserEN  string
	BodyIT    string
	BodyEN    string
	Status    string
	Published string
	FirstSeen time.Time
	UpdatedAt time.Time
}

// Archive is the SQLite-backed article store.
type Archive struct {
	db *sql.DB
}

const createArticlesTable = `
CREATE TABLE IF NOT EXISTS articles (
	id          TEXT PRIMARY KEY,
	url         TEXT NOT NULL UNIQUE,
	title_it    TEXT NOT NULL DEFAULT '',
	title_en    TEXT NOT NULL DEFAULT '',
	teaser_it   TEXT NOT NULL DEFAULT '',
	teaser_en   TEXT NOT NULL DEFAULT '',
	body_it     TEXT NOT NULL DEFAULT '',
	body_en     TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'pending',
	published   TEXT NOT NULL DEFAULT '',
	first_seen  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_articles_status ON articles(status);
CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published DESC);
`

// ArticleID derives the stable article identifier from its URL.
func ArticleID(url string) string {
	sum := md5.Sum([]byte(strings.TrimSpace(url)))
	return hex.EncodeToString(sum[:])
}

// Open opens (creating if needed) the archive at path. An empty path
// opens an in-memory archive.
func Open(path string) (*Archive, error) {
	dsn := path
	if strings.TrimSpace(dsn) == "" {
		dsn = ":memory:"
	} else if dir := filepath.Dir(dsn); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping archive: %w", err)
	}
	if _, err := db.Exec(createArticlesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create articles table: %w", err)
	}

	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

// Upsert inserts the article or refreshes its translated fields. The
// first_seen timestamp is only set on insert.
func (a *Archive) Upsert(ctx context.Context, article Article) error {
	if strings.TrimSpace(article.URL) == "" {
		return fmt.Errorf("article URL is required")
	}
	if article.ID == "" {
		article.ID = ArticleID(article.URL)
	}

	now := time.Now().UTC()
	if article.FirstSeen.IsZero() {
		article.FirstSeen = now
	}
	article.UpdatedAt = now

	const query = `
INSERT INTO articles (
	id, url, title_it, title_en, teaser_it, teaser_en,
	body_it, body_en, status, published, first_seen, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(url) DO UPDATE SET
	title_it   = excluded.title_it,
	title_en   = excluded.title_en,
	teaser_it  = excluded.teaser_it,
	teaser_en  = excluded.teaser_en,
	body_it    = excluded.body_it,
	body_en    = excluded.body_en,
	status     = excluded.status,
	published  = excluded.published,
	updated_at = excluded.updated_at;
`

	_, err := a.db.ExecContext(ctx, query,
		article.ID, article.URL,
		article.TitleIT, article.TitleEN,
		article.TeaserIT, article.TeaserEN,
		article.BodyIT, article.BodyEN,
		article.Status, article.Published,
		article.FirstSeen.Format(time.RFC3339), article.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert article %s: %w", article.URL, err)
	}
	return nil
}

// Get returns the article stored under url, or (nil, nil) when absent.
func (a *Archive) Get(ctx context.Context, url string) (*Article, error) {
	row := a.db.QueryRowContext(ctx, selectColumns+` FROM articles WHERE url = ?`, url)
	article, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get article %s: %w", url, err)
	}
	return article, nil
}

// GetByID returns the article with the given id, or (nil, nil) when
// absent.
func (a *Archive) GetByID(ctx context.Context, id string) (*Article, error) {
	row := a.db.QueryRowContext(ctx, selectColumns+` FROM articles WHERE id = ?`, id)
	article, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get article by id %s: %w", id, err)
	}
	return article, nil
}

// ListRecent returns up to limit articles ordered newest first.
func (a *Archive) ListRecent(ctx context.Context, limit int) ([]Article, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.db.QueryContext(ctx,
		selectColumns+` FROM articles ORDER BY published DESC, first_seen DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent articles: %w", err)
	}
	defer rows.Close()
	return collectArticles(rows)
}

// ListUnfinished returns articles whose translation is pending or
// partial, oldest update first.
func (a *Archive) ListUnfinished(ctx context.Context, limit int) ([]Article, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.db.QueryContext(ctx,
		selectColumns+` FROM articles WHERE status != ? ORDER BY updated_at ASC LIMIT ?`,
		StatusTranslated, limit)
	if err != nil {
		return nil, fmt.Errorf("list unfinished articles: %w", err)
	}
	defer rows.Close()
	return collectArticles(rows)
}

// Count returns the total number of archived articles.
func (a *Archive) Count(ctx context.Context) (int, error) {
	var n int
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return n, nil
}

const selectColumns = `
SELECT id, url, title_it, title_en, teaser_it, teaser_en,
       body_it, body_en, status, published, first_seen, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*Article, error) {
	var a Article
	var firstSeen, updatedAt string
	err := row.Scan(
		&a.ID, &a.URL,
		&a.TitleIT, &a.TitleEN,
		&a.TeaserIT, &a.TeaserEN,
		&a.BodyIT, &a.BodyEN,
		&a.Status, &a.Published,
		&firstSeen, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.FirstSeen, _ = time.Parse(time.RFC3339, firstSeen)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &a, nil
}

func collectArticles(rows *sql.Rows) ([]Article, error) {
	var out []Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article row: %w", err)
		}
		out = append(out, *article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate article rows: %w", err)
	}
	return out, nil
}
