package dashboard

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sort"
	"time"

	"github.com/jobboard/dashboard/internal/catalog"
	"github.com/jobboard/dashboard/internal/status"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const descriptionPreview = 200

const (
	textUnavailable = "No jobs available yet"
	textLoading     = "Loading jobs..."
	textNoMatches   = "No jobs match your current filters."
	textUnknownDate = "Unknown"
)

type cardView struct {
	ID          string
	Title       string
	Company     string
	Location    string
	Source      string
	URL         string
	Date        string
	Description string
	Status      status.Status
	Caption     string
	Engaged     bool
	Actions     []status.Action
}

type sourcesView struct {
	Selected string
	Sources  []string
}

func renderTemplate(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("execute %s template: %w", name, err)
	}
	return buf.String(), nil
}

func newCardView(j catalog.Job, s status.Status, date string) cardView {
	return cardView{
		ID:          j.ID,
		Title:       j.Title,
		Company:     j.Company,
		Location:    j.Location,
		Source:      j.Source,
		URL:         j.URL,
		Date:        date,
		Description: truncate(j.Description, descriptionPreview),
		Status:      s,
		Caption:     s.Caption(),
		Engaged:     s.Engaged(),
		Actions:     status.Transitions(s),
	}
}

// truncate keeps the first n characters of s and appends "..." when
// anything was cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// RelativeDate describes raw relative to now in whole days: "Today",
// "Yesterday", "N days ago" within a week, and the short date beyond that.
// An absent or unparseable date is "Unknown".
func RelativeDate(raw string, now time.Time, layout string, loc *time.Location) string {
	if raw == "" {
		return textUnknownDate
	}
	t, err := catalog.ParseTime(raw)
	if err != nil {
		return textUnknownDate
	}

	diff := now.Sub(t)
	if diff < 0 {
		diff = -diff
	}

	switch days := int(diff / (24 * time.Hour)); {
	case days == 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.In(loc).Format(layout)
	}
}

// sourceOptions merges the configured and catalog sources, sorted, without
// duplicates. "all" is rendered separately.
func sourceOptions(known []string, jobs []catalog.Job) []string {
	seen := make(map[string]bool)
	var out []string
	for _, src := range append(append([]string{}, known...), catalog.Sources(jobs)...) {
		if src == "" || src == "all" || seen[src] {
			continue
		}
		seen[src] = true
		out = append(out, src)
	}
	sort.Strings(out)
	return out
}
