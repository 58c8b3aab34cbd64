// Package status holds the user's per-job application annotations and the
// rules for moving a job between application states.
package status

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Status string

const (
	NotApplied   Status = "not-applied"
	Applied      Status = "applied"
	Interviewing Status = "interviewing"
)

// All lists the closed set of statuses in display order.
var All = []Status{NotApplied, Applied, Interviewing}

func (s Status) Valid() bool {
	switch s {
	case NotApplied, Applied, Interviewing:
		return true
	}
	return false
}

// Engaged reports whether the user is still actively pursuing the job.
func (s Status) Engaged() bool {
	return s == Applied || s == Interviewing
}

var titleCaser = cases.Title(language.English)

// Caption is the human label for a status badge: "not-applied" -> "Not Applied".
func (s Status) Caption() string {
	words := strings.NewReplacer("_", " ", "-", " ").Replace(string(s))
	return titleCaser.String(words)
}

// Parse converts user input into a Status.
func Parse(raw string) (Status, error) {
	s := Status(strings.TrimSpace(raw))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
	}
	return s, nil
}

// Annotation is the stored record for one job.
type Annotation struct {
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Action is one user-initiated edge of the per-job state machine.
type Action struct {
	Label string
	To    Status
	Style string
}

var transitions = map[Status][]Action{
	NotApplied: {
		{Label: "Mark Applied", To: Applied, Style: "btn-success"},
	},
	Applied: {
		{Label: "Mark Interviewing", To: Interviewing, Style: "btn-warning"},
		{Label: "Reset", To: NotApplied, Style: "btn-secondary"},
	},
	Interviewing: {
		{Label: "Back to Applied", To: Applied, Style: "btn-secondary"},
	},
}

// Transitions returns the actions available from the given status.
func Transitions(from Status) []Action {
	return transitions[from]
}

func CanTransition(from, to Status) bool {
	for _, a := range transitions[from] {
		if a.To == to {
			return true
		}
	}
	return false
}
