// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/mixtape/internal/models"
)

// MockCatalog is a test double for services.Catalog.
//
// Results are keyed by the space-joined query. Unknown queries return an empty slice.
type MockCatalog struct {
	mu      sync.Mutex
	Results map[string][]models.Track
	Queries []string
}

func NewMockCatalog() *MockCatalog {
	return &MockCatalog{Results: map[string][]models.Track{}}
}

// On registers the tracks returned for the query built from keywords.
func (m *MockCatalog) On(keywords []string, tracks ...models.Track) *MockCatalog {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Results[strings.Join(keywords, " ")] = tracks
	return m
}

func (m *MockCatalog) Search(ctx context.Context, keywords []string) []models.Track {
	m.mu.Lock()
	defer m.mu.Unlock()

	query := strings.Join(keywords, " ")
	m.Queries = append(m.Queries, query)
	if tracks, ok := m.Results[query]; ok {
		return append([]models.Track{}, tracks...)
	}
	return []models.Track{}
}

// Calls returns the number of searches performed.
func (m *MockCatalog) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Queries)
}

// MockCompleter is a test double for services.Completer that returns a canned reply.
type MockCompleter struct {
	mu       sync.Mutex
	Response string
	Err      error
	calls    int
	System   string
	User     string
}

func NewMockCompleter(response string, err error) *MockCompleter {
	return &MockCompleter{Response: response, Err: err}
}

func (m *MockCompleter) Complete(ctx context.Context, system, user string, temperature float32) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.System, m.User = system, user
	return m.Response, m.Err
}

// Calls returns the number of completions requested.
func (m *MockCompleter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Track builds a catalog track with deterministic identifiers derived from id.
func Track(id, title, artist string) models.Track {
	art := "https://i.scdn.co/image/" + id
	return models.Track{
		Title:          title,
		Artist:         artist,
		SpotifyTrackID: id,
		SpotifyURI:     "spotify:track:" + id,
		AlbumArtURL:    &art,
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
