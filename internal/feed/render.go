package feed

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Source}} in English</title>
<link rel="stylesheet" href="style.css">
</head>
<body>
<header>
<h1>{{.Source}} in English</h1>
<p class="generated">Updated {{.GeneratedUTC}}</p>
</header>
<main>
{{range .Items}}
<article class="card status-{{.Status}}">
<h2><a href="articles/{{.ID}}.html">{{.Title}}</a></h2>
{{if ne .Status "translated"}}<p class="notice">Translation {{.Status}}; showing available text.</p>{{end}}
{{if .Teaser}}<p>{{.Teaser}}</p>{{end}}
{{if .Published}}<p class="meta">{{.Published}}</p>{{end}}
</article>
{{else}}
<p>No articles yet.</p>
{{end}}
</main>
</body>
</html>
`))

var articleTemplate = template.Must(template.New("article").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<link rel="stylesheet" href="../style.css">
</head>
<body>
<header>
<p><a href="../index.html">&larr; All articles</a></p>
<h1>{{.Title}}</h1>
{{if ne .Status "translated"}}<p class="notice">Translation {{.Status}}; parts of this page may still be in Italian.</p>{{end}}
{{if .Published}}<p class="meta">{{.Published}}</p>{{end}}
<p class="meta"><a href="{{.URL}}">Original article</a></p>
</header>
<main>
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}
</main>
</body>
</html>
`))

type articlePage struct {
	Item
	Paragraphs []string
}

// RenderSite writes the static index and per-article pages under
// siteDir, one HTML file per article keyed by its id.
func RenderSite(siteDir string, payload Payload) error {
	articlesDir := filepath.Join(siteDir, "articles")
	if err := os.MkdirAll(articlesDir, 0o755); err != nil {
		return fmt.Errorf("create site directories: %w", err)
	}

	var index strings.Builder
	if err := indexTemplate.Execute(&index, payload); err != nil {
		return fmt.Errorf("render index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(siteDir, "index.html"), []byte(index.String()), 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}

	for _, item := range payload.Items {
		page := articlePage{Item: item, Paragraphs: splitParagraphs(item.Body)}

		var buf strings.Builder
		if err := articleTemplate.Execute(&buf, page); err != nil {
			return fmt.Errorf("render article %s: %w", item.ID, err)
		}
		path := filepath.Join(articlesDir, item.ID+".html")
		if err := os.WriteFile(path, []byte(buf.String()), 0o644); err != nil {
			return fmt.Errorf("write article %s: %w", item.ID, err)
		}
	}

	return nil
}

func splitParagraphs(body string) []string {
	var out []string
	for _, p := range strings.Split(body, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
