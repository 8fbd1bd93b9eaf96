package translation

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Cache maps translation fingerprints to accepted translations. Every
// insertion is written through to the backing file so interrupted runs
// keep their progress. Only confirmed non-echo translations are stored;
// pending results are never cached, so later runs retry them.
type Cache struct {
	path    string
	entries map[string]string
}

// Fingerprint derives the deterministic cache key for one translation.
func Fingerprint(sourceLang, targetLang, text string) string {
	sum := sha256.Sum256([]byte(sourceLang + "|" + targetLang + "|" + text))
	return hex.EncodeToString(sum[:])
}

// OpenCache loads the cache file, creating an empty cache when the file
// does not exist yet. An empty path keeps the cache in memory only.
func OpenCache(path string) (*Cache, error) {
	cache := &Cache{path: path, entries: make(map[string]string)}
	if path == "" {
		return cache, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cache, nil
		}
		return nil, fmt.Errorf("read translation cache: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return cache, nil
	}
	if err := json.Unmarshal(data, &cache.entries); err != nil {
		return nil, fmt.Errorf("decode translation cache %s: %w", path, err)
	}
	return cache, nil
}

func (c *Cache) Get(fingerprint string) (string, bool) {
	if c == nil {
		return "", false
	}
	text, ok := c.entries[fingerprint]
	return text, ok
}

// Put stores one entry and rewrites the backing file.
func (c *Cache) Put(fingerprint, text string) error {
	if c == nil {
		return fmt.Errorf("cache is nil")
	}
	c.entries[fingerprint] = text
	return c.flush()
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// flush rewrites the whole file through a temp file and rename, so a
// crash mid-write cannot corrupt prior entries.
func (c *Cache) flush() error {
	if c.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode translation cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".translations-*.json")
	if err != nil {
		return fmt.Errorf("create cache temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write cache temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close cache temp file: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}
