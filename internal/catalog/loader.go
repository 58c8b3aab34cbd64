package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var (
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrCatalogMalformed   = errors.New("catalog malformed")
)

//go:embed schema.json
var schemaJSON []byte

var schema = mustCompileSchema()

func mustCompileSchema() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("catalog schema: %v", err))
	}
	return s
}

// FetchError describes a failed catalog retrieval. It matches
// ErrCatalogUnavailable or ErrCatalogMalformed under errors.Is.
type FetchError struct {
	URL        string
	StatusCode int
	Kind       error
	Cause      error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%v: %s", e.Kind, e.URL)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *FetchError) Is(target error) bool {
	return target == e.Kind
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Loader retrieves the catalog document with a single GET. It never retries.
type Loader struct {
	url    string
	client *http.Client
}

// NewLoader returns a loader for rawURL. A nil client uses a client without a
// timeout; cancellation is left to the caller's context. Only http and https
// URLs are fetched.
func NewLoader(rawURL string, client *http.Client) *Loader {
	if client == nil {
		client = &http.Client{}
	}
	return &Loader{url: rawURL, client: client}
}

// NewFileLoader returns a loader for a local path or URL that can also read
// file:// URLs. It is meant for command line use, never for URLs derived from
// a request.
func NewFileLoader(pathOrURL string) *Loader {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.RegisterProtocol("file", http.NewFileTransport(http.Dir("/")))
	return NewLoader(FileURL(pathOrURL), &http.Client{Transport: transport})
}

// FileURL turns a filesystem path into a URL the loader understands. Values
// that already carry a scheme are returned unchanged.
func FileURL(pathOrURL string) string {
	if strings.Contains(pathOrURL, "://") {
		return pathOrURL
	}
	if abs, err := filepath.Abs(pathOrURL); err == nil {
		pathOrURL = abs
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(pathOrURL)}).String()
}

// ResolveURL resolves a catalog reference such as "../data/jobs_all.json"
// against the URL of the page that asked for it.
func ResolveURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse catalog url: %w", err)
	}
	return b.ResolveReference(r).String(), nil
}

func (l *Loader) URL() string {
	return l.url
}

func (l *Loader) Fetch(ctx context.Context) ([]Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, &FetchError{URL: l.url, Kind: ErrCatalogUnavailable, Cause: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: l.url, Kind: ErrCatalogUnavailable, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: l.url, StatusCode: resp.StatusCode, Kind: ErrCatalogUnavailable}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: l.url, StatusCode: resp.StatusCode, Kind: ErrCatalogUnavailable, Cause: err}
	}

	jobs, err := Parse(body)
	if err != nil {
		return nil, &FetchError{URL: l.url, StatusCode: resp.StatusCode, Kind: ErrCatalogMalformed, Cause: err}
	}
	return jobs, nil
}

// Parse decodes a catalog document after checking it against the catalog schema.
func Parse(body []byte) ([]Job, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("invalid JSON")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	if !result.Valid() {
		var sb strings.Builder
		for i, e := range result.Errors() {
			if i > 0 {
				sb.WriteString("; ")
			}
			sb.WriteString(e.String())
		}
		return nil, fmt.Errorf("schema: %s", sb.String())
	}

	var jobs []Job
	if err := json.Unmarshal(body, &jobs); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return jobs, nil
}
