package dashboard

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/jobboard/dashboard/internal/catalog"
	"github.com/jobboard/dashboard/internal/db"
	"github.com/jobboard/dashboard/internal/status"
)

type download struct {
	filename    string
	contentType string
	data        []byte
}

// fakeSurface records the last value written to every anchor.
type fakeSurface struct {
	mu        sync.Mutex
	html      map[string]string
	text      map[string]string
	downloads []download
	errors    []string
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		html: make(map[string]string),
		text: make(map[string]string),
	}
}

func (f *fakeSurface) SetHTML(anchor, html string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.html[anchor] = html
	return nil
}

func (f *fakeSurface) SetText(anchor, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text[anchor] = text
	return nil
}

func (f *fakeSurface) Download(filename, contentType string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, download{filename, contentType, data})
	return nil
}

func (f *fakeSurface) ReportError(message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, message)
	return nil
}

func (f *fakeSurface) HTML(anchor string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.html[anchor]
}

func (f *fakeSurface) Text(anchor string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.text[anchor]
	return v, ok
}

func (f *fakeSurface) Errors() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.errors...)
}

type fetchFunc func(ctx context.Context) ([]catalog.Job, error)

func (f fetchFunc) Fetch(ctx context.Context) ([]catalog.Job, error) {
	return f(ctx)
}

func staticFetcher(jobs []catalog.Job) Fetcher {
	return fetchFunc(func(context.Context) ([]catalog.Job, error) { return jobs, nil })
}

var fixedNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func testOptions() Options {
	return Options{
		Location: time.UTC,
		Now:      func() time.Time { return fixedNow },
	}
}

func newKV(t *testing.T) *db.Store {
	t.Helper()
	kv, err := db.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return kv
}

func newStatusStore(t *testing.T, kv status.KV) *status.Store {
	t.Helper()
	store := status.NewStore(kv, status.WithClock(func() time.Time { return fixedNow }))
	_, err := store.Load()
	require.NoError(t, err)
	return store
}

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func cardIDs(t *testing.T, html string) []string {
	t.Helper()
	ids := []string{}
	parse(t, html).Find(".job-card").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("data-job-id")
		ids = append(ids, id)
	})
	return ids
}

func requireText(t *testing.T, surface *fakeSurface, anchor, want string) {
	t.Helper()
	got, ok := surface.Text(anchor)
	require.True(t, ok, "anchor %s was never written", anchor)
	require.Equal(t, want, got)
}
