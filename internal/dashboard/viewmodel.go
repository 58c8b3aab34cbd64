// Package dashboard holds the per-session view model: it owns the catalog
// snapshot and the filter criteria, and projects the visible jobs, counters and
// indicators onto a Surface.
package dashboard

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/jobboard/dashboard/internal/catalog"
	"github.com/jobboard/dashboard/internal/export"
	"github.com/jobboard/dashboard/internal/filter"
	"github.com/jobboard/dashboard/internal/status"
)

var ErrInvalidTransition = errors.New("invalid status transition")

const (
	DefaultDateLayout     = "1/2/2006"
	DefaultDateTimeLayout = "1/2/2006, 3:04:05 PM"
)

// LoadState tracks the catalog fetch.
type LoadState int

const (
	StatePending LoadState = iota
	StateLoaded
	StateFailed
)

func (s LoadState) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "pending"
	}
}

type Options struct {
	DateLayout     string
	DateTimeLayout string
	Location       *time.Location
	KnownSources   []string
	Now            func() time.Time
}

func (o Options) withDefaults() Options {
	if o.DateLayout == "" {
		o.DateLayout = DefaultDateLayout
	}
	if o.DateTimeLayout == "" {
		o.DateTimeLayout = DefaultDateTimeLayout
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// StatusStore is the annotation store as seen by the view model.
type StatusStore interface {
	Get(jobID string) status.Status
	Annotation(jobID string) (status.Annotation, bool)
	Set(jobID string, s status.Status) error
	EngagedCount() int
}

// Stats are the counters shown in the header.
type Stats struct {
	Total   int
	Applied int
	New     int
}

// surfaceError marks a failed write to the surface. The session ends on it;
// every other error only rejects the event that caused it.
type surfaceError struct {
	anchor string
	err    error
}

func (e *surfaceError) Error() string {
	return fmt.Sprintf("write %s: %v", e.anchor, e.err)
}

func (e *surfaceError) Unwrap() error {
	return e.err
}

// ViewModel is not safe for concurrent use. A session owns exactly one.
type ViewModel struct {
	surface  Surface
	store    StatusStore
	opts     Options
	jobs     []catalog.Job
	state    LoadState
	criteria filter.Criteria
	visible  []catalog.Job
}

func NewViewModel(surface Surface, store StatusStore, opts Options) *ViewModel {
	return &ViewModel{
		surface:  surface,
		store:    store,
		opts:     opts.withDefaults(),
		criteria: filter.Default(),
	}
}

func (vm *ViewModel) State() LoadState { return vm.state }

func (vm *ViewModel) Criteria() filter.Criteria { return vm.criteria }

// Visible is the result of the last filter pass, in catalog order.
func (vm *ViewModel) Visible() []catalog.Job { return vm.visible }

func (vm *ViewModel) Jobs() []catalog.Job { return vm.jobs }

func (vm *ViewModel) SetSearch(term string) error {
	vm.criteria.Search = term
	return vm.Refresh()
}

func (vm *ViewModel) SetStatusFilter(s status.Status, enabled bool) error {
	if !s.Valid() {
		return fmt.Errorf("%w: %q", status.ErrUnknownStatus, s)
	}
	vm.criteria = vm.criteria.WithStatus(s, enabled)
	return vm.Refresh()
}

func (vm *ViewModel) SetSource(source string) error {
	if source == "" {
		source = filter.SourceAll
	}
	vm.criteria.Source = source
	return vm.Refresh()
}

// Transition moves jobID to the given status if the state machine has that
// edge. The change is persisted before the re-render.
func (vm *ViewModel) Transition(jobID string, to status.Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidTransition, status.ErrUnknownStatus, to)
	}
	from := vm.store.Get(jobID)
	if !status.CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s for job %s", ErrInvalidTransition, from, to, jobID)
	}
	if err := vm.store.Set(jobID, to); err != nil {
		return fmt.Errorf("set status of %s: %w", jobID, err)
	}
	return vm.Refresh()
}

// Export hands the CSV document of the whole catalog to the surface.
func (vm *ViewModel) Export() error {
	data := export.Document(vm.jobs, vm.store)
	if err := vm.surface.Download(export.Filename, export.ContentType, data); err != nil {
		return &surfaceError{anchor: AnchorExportBtn, err: err}
	}
	return nil
}

// CatalogLoaded stores the catalog and renders it with the current criteria,
// then updates the counters, the last-updated indicator and the source options.
func (vm *ViewModel) CatalogLoaded(jobs []catalog.Job) error {
	if !catalog.CheckOrder(jobs) {
		log.Printf("Warning: catalog is not sorted by scraped_date, last updated may be stale")
	}

	vm.jobs = jobs
	vm.state = StateLoaded

	if err := vm.Refresh(); err != nil {
		return err
	}
	if err := vm.renderLastUpdated(); err != nil {
		return err
	}
	return vm.renderSources()
}

// CatalogFailed switches to the unavailable state for the rest of the
// session. Counters and the last-updated indicator are left alone.
func (vm *ViewModel) CatalogFailed(cause error) error {
	log.Printf("Failed to load catalog: %v", cause)
	vm.state = StateFailed
	return vm.Refresh()
}

// Refresh re-derives the visible list and renders it.
func (vm *ViewModel) Refresh() error {
	vm.visible = filter.Apply(vm.jobs, vm.store, vm.criteria)

	if err := vm.renderList(); err != nil {
		return err
	}
	if vm.state != StateLoaded {
		return nil
	}
	return vm.renderStats()
}

func (vm *ViewModel) Stats() Stats {
	cutoff := vm.opts.Now().Add(-24 * time.Hour)

	var fresh int
	for _, j := range vm.jobs {
		if t, err := j.Scraped(); err == nil && t.After(cutoff) {
			fresh++
		}
	}

	return Stats{
		Total:   len(vm.jobs),
		Applied: vm.store.EngagedCount(),
		New:     fresh,
	}
}

func (vm *ViewModel) renderList() error {
	var (
		html string
		err  error
	)

	switch {
	case vm.state == StateFailed:
		html, err = renderTemplate("unavailable", textUnavailable)
	case vm.state == StatePending:
		html, err = renderTemplate("empty", textLoading)
	case len(vm.visible) == 0:
		html, err = renderTemplate("empty", textNoMatches)
	default:
		html, err = vm.renderCards()
	}
	if err != nil {
		return err
	}

	return vm.setHTML(AnchorJobsList, html)
}

func (vm *ViewModel) renderCards() (string, error) {
	now := vm.opts.Now()
	cards := make([]cardView, 0, len(vm.visible))
	for _, j := range vm.visible {
		date := RelativeDate(j.DisplayDate(), now, vm.opts.DateLayout, vm.opts.Location)
		cards = append(cards, newCardView(j, vm.store.Get(j.ID), date))
	}
	return renderTemplate("cards", cards)
}

func (vm *ViewModel) renderStats() error {
	st := vm.Stats()
	if err := vm.setText(AnchorTotalJobs, "Total: "+strconv.Itoa(st.Total)); err != nil {
		return err
	}
	if err := vm.setText(AnchorAppliedCount, "Applied: "+strconv.Itoa(st.Applied)); err != nil {
		return err
	}
	return vm.setText(AnchorNewJobs, "New: "+strconv.Itoa(st.New))
}

func (vm *ViewModel) renderLastUpdated() error {
	if len(vm.jobs) == 0 {
		return nil
	}
	raw := vm.jobs[0].ScrapedDate
	t, err := catalog.ParseTime(raw)
	if err != nil {
		return vm.setText(AnchorLastUpdated, strings.TrimSpace(raw))
	}
	return vm.setText(AnchorLastUpdated, t.In(vm.opts.Location).Format(vm.opts.DateTimeLayout))
}

func (vm *ViewModel) renderSources() error {
	html, err := renderTemplate("sources", sourcesView{
		Selected: vm.criteria.Source,
		Sources:  sourceOptions(vm.opts.KnownSources, vm.jobs),
	})
	if err != nil {
		return err
	}
	return vm.setHTML(AnchorSourceFilter, html)
}

func (vm *ViewModel) setHTML(anchor, html string) error {
	if err := vm.surface.SetHTML(anchor, html); err != nil {
		return &surfaceError{anchor: anchor, err: err}
	}
	return nil
}

func (vm *ViewModel) setText(anchor, text string) error {
	if err := vm.surface.SetText(anchor, text); err != nil {
		return &surfaceError{anchor: anchor, err: err}
	}
	return nil
}
