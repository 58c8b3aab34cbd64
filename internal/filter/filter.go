// Package filter derives the visible subset of the catalog from the user's
// search, status and source criteria.
package filter

import (
	"strings"

	"github.com/jobboard/dashboard/internal/catalog"
	"github.com/jobboard/dashboard/internal/status"
)

// SourceAll disables source filtering.
const SourceAll = "all"

type Criteria struct {
	Search           string
	ShowNotApplied   bool
	ShowApplied      bool
	ShowInterviewing bool
	Source           string
}

// Default admits every job.
func Default() Criteria {
	return Criteria{
		ShowNotApplied:   true,
		ShowApplied:      true,
		ShowInterviewing: true,
		Source:           SourceAll,
	}
}

// Admits reports whether the status toggle for s is on.
func (c Criteria) Admits(s status.Status) bool {
	switch s {
	case status.NotApplied:
		return c.ShowNotApplied
	case status.Applied:
		return c.ShowApplied
	case status.Interviewing:
		return c.ShowInterviewing
	}
	return false
}

// WithStatus returns a copy of c with the toggle for s set to enabled.
func (c Criteria) WithStatus(s status.Status, enabled bool) Criteria {
	switch s {
	case status.NotApplied:
		c.ShowNotApplied = enabled
	case status.Applied:
		c.ShowApplied = enabled
	case status.Interviewing:
		c.ShowInterviewing = enabled
	}
	return c
}

// StatusLookup resolves a job's effective status.
type StatusLookup interface {
	Get(jobID string) status.Status
}

// Apply returns the jobs matching c, in catalog order.
func Apply(jobs []catalog.Job, lookup StatusLookup, c Criteria) []catalog.Job {
	term := strings.ToLower(c.Search)
	visible := make([]catalog.Job, 0, len(jobs))

	for _, j := range jobs {
		if !matchesSearch(j, term) {
			continue
		}
		if !c.Admits(lookup.Get(j.ID)) {
			continue
		}
		if c.Source != "" && c.Source != SourceAll && c.Source != j.Source {
			continue
		}
		visible = append(visible, j)
	}

	return visible
}

func matchesSearch(j catalog.Job, term string) bool {
	if term == "" {
		return true
	}
	for _, field := range []string{j.Title, j.Company, j.Location, j.Description} {
		if field != "" && strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}
