package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aigoflow/estimate-time/internal/cache"
)

// fakeQuerier plays back a scripted sequence of responses, one per call.
type fakeQuerier struct {
	responses []fakeResponse
	calls     int
	prompts   []string
}

type fakeResponse struct {
	text string
	err  error
}

func (f *fakeQuerier) Query(_ context.Context, _, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	i := f.calls
	f.calls++
	if i >= len(f.responses) {
		return "", errors.New("fakeQuerier: no scripted response left")
	}
	r := f.responses[i]
	return r.text, r.err
}

func (f *fakeQuerier) Close() error { return nil }

// writeCacheEntry places source text where the resolver expects it.
func writeCacheEntry(t *testing.T, dir, filePath, code string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, cache.Key(filePath)), []byte(code), 0644); err != nil {
		t.Fatal(err)
	}
}
