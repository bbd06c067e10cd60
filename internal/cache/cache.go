// Package cache resolves a row's file identifier to its pre-fetched
// source text. The cache is populated by a separate crawler; this tool
// only ever reads from it.
package cache

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
)

// Resolver looks up cached source text under a single directory.
type Resolver struct {
	dir string
}

func NewResolver(dir string) *Resolver {
	return &Resolver{dir: dir}
}

// Key returns the cache filename for a file identifier: the SHA-256
// hex digest of the identifier plus the ".txt" suffix. Stable across
// runs so the crawler and this tool agree on the layout.
func Key(filePath string) string {
	sum := sha256.Sum256([]byte(filePath))
	return fmt.Sprintf("%x.txt", sum)
}

// Resolve returns the cached source text for filePath. A missing or
// unreadable cache entry is not retryable: the caller treats it as
// fatal for the whole batch.
func (r *Resolver) Resolve(filePath string) (string, error) {
	name := filepath.Join(r.dir, Key(filePath))
	data, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("reading cached source for %s: %w", filePath, err)
	}
	return string(data), nil
}
