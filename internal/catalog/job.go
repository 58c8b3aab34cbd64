// Package catalog defines the job postings consumed by the dashboard and
// retrieves the published catalog document.
package catalog

import (
	"fmt"
	"strings"
	"time"
)

// Job is one posting from the catalog. Jobs are never mutated after load.
type Job struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	Description string `json:"description,omitempty"`
	PostedDate  string `json:"posted_date,omitempty"`
	ScrapedDate string `json:"scraped_date"`
}

// DisplayDate is the date shown on a card: posted when known, scraped otherwise.
func (j Job) DisplayDate() string {
	if j.PostedDate != "" {
		return j.PostedDate
	}
	return j.ScrapedDate
}

// Scraped parses ScrapedDate.
func (j Job) Scraped() (time.Time, error) {
	return ParseTime(j.ScrapedDate)
}

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02",
}

// ParseTime parses the timestamp formats found in published catalogs.
// Values without a zone are read as UTC.
func ParseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp: %q", raw)
}

// CheckOrder reports whether jobs are sorted by scraped date, newest first.
// Unparseable dates are skipped.
func CheckOrder(jobs []Job) bool {
	var prev time.Time
	for _, j := range jobs {
		t, err := j.Scraped()
		if err != nil {
			continue
		}
		if !prev.IsZero() && t.After(prev) {
			return false
		}
		prev = t
	}
	return true
}

// Sources returns the distinct sources in catalog order.
func Sources(jobs []Job) []string {
	seen := make(map[string]bool)
	var out []string
	for _, j := range jobs {
		if j.Source == "" || seen[j.Source] {
			continue
		}
		seen[j.Source] = true
		out = append(out, j.Source)
	}
	return out
}
