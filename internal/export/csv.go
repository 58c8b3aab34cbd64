// Package export flattens the catalog and the user's annotations into a CSV
// document.
package export

import (
	"strings"
	"time"

	"github.com/jobboard/dashboard/internal/catalog"
	"github.com/jobboard/dashboard/internal/status"
)

const (
	Filename    = "job_applications.csv"
	ContentType = "text/csv; charset=utf-8"
)

// Header is the fixed column order. It is emitted even for an empty catalog.
var Header = []string{
	"title", "company", "location", "url", "source",
	"status", "updatedAt", "postedDate", "scrapedDate",
}

type Row struct {
	Title       string
	Company     string
	Location    string
	URL         string
	Source      string
	Status      status.Status
	UpdatedAt   string
	PostedDate  string
	ScrapedDate string
}

func (r Row) cells() []string {
	return []string{
		r.Title, r.Company, r.Location, r.URL, r.Source,
		string(r.Status), r.UpdatedAt, r.PostedDate, r.ScrapedDate,
	}
}

// Annotations is the read side of the status store.
type Annotations interface {
	Get(jobID string) status.Status
	Annotation(jobID string) (status.Annotation, bool)
}

// Rows joins jobs with their annotations, in catalog order.
func Rows(jobs []catalog.Job, annotations Annotations) []Row {
	rows := make([]Row, 0, len(jobs))
	for _, j := range jobs {
		row := Row{
			Title:       j.Title,
			Company:     j.Company,
			Location:    j.Location,
			URL:         j.URL,
			Source:      j.Source,
			Status:      annotations.Get(j.ID),
			PostedDate:  j.PostedDate,
			ScrapedDate: j.ScrapedDate,
		}
		if a, ok := annotations.Annotation(j.ID); ok && !a.UpdatedAt.IsZero() {
			row.UpdatedAt = a.UpdatedAt.UTC().Format(time.RFC3339Nano)
		}
		rows = append(rows, row)
	}
	return rows
}

// CSV renders rows with every cell quoted and "\n" between lines.
func CSV(rows []Row) []byte {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, strings.Join(Header, ","))

	for _, r := range rows {
		cells := r.cells()
		for i, c := range cells {
			cells[i] = quote(c)
		}
		lines = append(lines, strings.Join(cells, ","))
	}

	return []byte(strings.Join(lines, "\n"))
}

// Document is Rows followed by CSV.
func Document(jobs []catalog.Job, annotations Annotations) []byte {
	return CSV(Rows(jobs, annotations))
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
