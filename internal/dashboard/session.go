package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jobboard/dashboard/internal/catalog"
	"github.com/jobboard/dashboard/internal/status"
)

// Fetcher retrieves the catalog once per session.
type Fetcher interface {
	Fetch(ctx context.Context) ([]catalog.Job, error)
}

// ErrRejectedInput marks client input that never became an event.
var ErrRejectedInput = errors.New("rejected input")

// Event is one user input delivered to a session.
type Event interface {
	apply(vm *ViewModel) error
}

type SearchEvent struct {
	Value string
}

type StatusFilterEvent struct {
	Status  status.Status
	Enabled bool
}

type SourceEvent struct {
	Value string
}

type TransitionEvent struct {
	JobID  string
	Status status.Status
}

type ExportEvent struct{}

// RejectedEvent carries input the transport refused to decode. It is
// reported like any other failed event.
type RejectedEvent struct {
	Reason string
}

func (e SearchEvent) apply(vm *ViewModel) error { return vm.SetSearch(e.Value) }
func (e StatusFilterEvent) apply(vm *ViewModel) error { return vm.SetStatusFilter(e.Status, e.Enabled) }
func (e SourceEvent) apply(vm *ViewModel) error { return vm.SetSource(e.Value) }
func (e TransitionEvent) apply(vm *ViewModel) error { return vm.Transition(e.JobID, e.Status) }
func (e ExportEvent) apply(vm *ViewModel) error { return vm.Export() }
func (e RejectedEvent) apply(vm *ViewModel) error {
	return fmt.Errorf("%w: %s", ErrRejectedInput, e.Reason)
}

// Session is one page load: a status store loaded from the shared KV, a view
// model, and a single catalog fetch.
type Session struct {
	ID      string
	kv      status.KV
	fetcher Fetcher
	surface Surface
	opts    Options

	// ready, when set, receives the view model once it is wired. Tests use it
	// to observe session state.
	ready func(*ViewModel)
}

func NewSession(id string, kv status.KV, fetcher Fetcher, surface Surface, opts Options) *Session {
	return &Session{
		ID:      id,
		kv:      kv,
		fetcher: fetcher,
		surface: surface,
		opts:    opts.withDefaults(),
	}
}

type fetchResult struct {
	jobs []catalog.Job
	err  error
}

// Run bootstraps the session and processes events until ctx ends or events
// is closed. Only Run touches the view model. An in-flight fetch is abandoned
// through ctx when Run returns.
func (s *Session) Run(ctx context.Context, events <-chan Event) error {
	store := status.NewStore(s.kv, status.WithClock(s.opts.Now))
	if _, err := store.Load(); err != nil {
		log.Printf("Session %s: %v, continuing with empty annotations", s.ID, err)
	}

	vm := NewViewModel(s.surface, store, s.opts)
	if s.ready != nil {
		s.ready(vm)
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan fetchResult, 1)
	go func() {
		jobs, err := s.fetcher.Fetch(fetchCtx)
		results <- fetchResult{jobs: jobs, err: err}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case res := <-results:
			results = nil

			var err error
			if res.err != nil {
				err = vm.CatalogFailed(res.err)
			} else {
				log.Printf("Session %s loaded %d jobs", s.ID, len(res.jobs))
				err = vm.CatalogLoaded(res.jobs)
			}
			if err != nil {
				return fmt.Errorf("render catalog: %w", err)
			}

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := ev.apply(vm); err != nil {
				if err := s.reject(err); err != nil {
					return err
				}
			}
		}
	}
}

// reject drops an event that failed. Surface failures end the session.
func (s *Session) reject(err error) error {
	var se *surfaceError
	if errors.As(err, &se) {
		return err
	}

	log.Printf("Session %s rejected event: %v", s.ID, err)
	if r, ok := s.surface.(ErrorReporter); ok {
		if rerr := r.ReportError(err.Error()); rerr != nil {
			return &surfaceError{anchor: "error", err: rerr}
		}
	}
	return nil
}
