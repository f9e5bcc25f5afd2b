package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockfloat/internal/domain"
	"github.com/andresuchdata/stockfloat/internal/projection"
	"github.com/andresuchdata/stockfloat/internal/store"
)

// StoreSource loads the current canonical store.
type StoreSource interface {
	Load(ctx context.Context) (store.CanonicalStore, error)
}

// ProjectFunc computes a projection; projection.Project in production.
type ProjectFunc func(cs store.CanonicalStore, f domain.Filters) domain.ProjectionResult

// Snapshot is the latest published recompute.
type Snapshot struct {
	Generation uint64                  `json:"generation"`
	Filters    domain.Filters          `json:"filters"`
	Version    string                  `json:"version"`
	Result     domain.ProjectionResult `json:"result"`
	ComputedAt time.Time               `json:"computedAt"`
}

// SchedulerOptions configures a Scheduler.
type SchedulerOptions struct {
	Debounce time.Duration
	Project  ProjectFunc
	// OnResult is called after a non-superseded recompute is published.
	OnResult func(Snapshot)
	Now      func() time.Time
}

// Scheduler coalesces filter edits and store changes into debounced recomputes. A
// recompute that finishes after a newer trigger was registered is discarded.
type Scheduler struct {
	source StoreSource
	opts   SchedulerOptions

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	gen     uint64
	filters domain.Filters
	timer   *time.Timer
	latest  *Snapshot
	stopped bool
	wg      sync.WaitGroup
}

// NewScheduler builds a scheduler over source.
func NewScheduler(source StoreSource, opts SchedulerOptions) *Scheduler {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultConfig().Debounce
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Project == nil {
		now := opts.Now
		opts.Project = func(cs store.CanonicalStore, f domain.Filters) domain.ProjectionResult {
			return projection.Project(cs, f, projection.ProjectOptions{Now: now})
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{source: source, opts: opts, ctx: ctx, cancel: cancel}
}

// SetFilters replaces the active filters and schedules a recompute.
func (s *Scheduler) SetFilters(f domain.Filters) {
	s.mu.Lock()
	s.filters = f
	s.scheduleLocked()
	s.mu.Unlock()
}

// Filters returns the active filters.
func (s *Scheduler) Filters() domain.Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// Invalidate schedules a recompute with the current filters, typically after a
// data-changed event.
func (s *Scheduler) Invalidate() {
	s.mu.Lock()
	s.scheduleLocked()
	s.mu.Unlock()
}

func (s *Scheduler) scheduleLocked() {
	if s.stopped {
		return
	}
	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.opts.Debounce, func() { s.fire(gen) })
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if s.stopped || gen != s.gen {
		s.mu.Unlock()
		return
	}
	filters := s.filters
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	cs, err := s.source.Load(s.ctx)
	if err != nil {
		log.Error().Err(err).Uint64("generation", gen).Msg("scheduler: load store")
		return
	}
	result := s.opts.Project(cs, filters)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		log.Debug().Uint64("generation", gen).Msg("scheduler: superseded run discarded")
		return
	}
	snap := Snapshot{
		Generation: gen,
		Filters:    filters,
		Version:    cs.Version(),
		Result:     result,
		ComputedAt: s.opts.Now().UTC(),
	}
	s.latest = &snap
	onResult := s.opts.OnResult
	s.mu.Unlock()

	if onResult != nil {
		onResult(snap)
	}
}

// Latest returns the most recent published snapshot.
func (s *Scheduler) Latest() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return Snapshot{}, false
	}
	return *s.latest, true
}

// Stop cancels pending timers and waits for in-flight recomputes.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	s.wg.Wait()
	s.cancel()
}
