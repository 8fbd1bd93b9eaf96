package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"pitchside.news/internews/internal/feed"
)

func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	path := fs.String("file", "site/data/articles.json", "Path to the articles feed JSON file")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	feedPath := strings.TrimSpace(*path)
	if feedPath == "" {
		fmt.Fprintln(os.Stderr, "--file must not be empty")
		return 2
	}

	raw, err := os.ReadFile(feedPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: read %s: %v\n", feedPath, err)
		return 1
	}

	payload, err := feed.ValidatePayload(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "INVALID %s: %v\n", feedPath, err)
		return 1
	}

	fmt.Printf("validate file=%s source=%q articles=%d generated=%s\n",
		feedPath, payload.Source, payload.Count, payload.GeneratedUTC)
	return 0
}
