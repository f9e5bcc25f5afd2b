package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockfloat/internal/cache"
	"github.com/andresuchdata/stockfloat/internal/config"
	"github.com/andresuchdata/stockfloat/internal/domain"
	"github.com/andresuchdata/stockfloat/internal/events"
	"github.com/andresuchdata/stockfloat/internal/pipeline"
	"github.com/andresuchdata/stockfloat/internal/projection"
	"github.com/andresuchdata/stockfloat/internal/store"
)

type ProjectionService struct {
	store     *store.Store
	cache     cache.ProjectionCache
	engine    config.EngineConfig
	now       func() time.Time
	scheduler *pipeline.Scheduler
}

func NewProjectionService(st *store.Store, cacheImpl cache.ProjectionCache, engine config.EngineConfig) *ProjectionService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopProjectionCache()
	}
	s := &ProjectionService{store: st, cache: cacheImpl, engine: engine, now: time.Now}
	s.scheduler = pipeline.NewScheduler(st, pipeline.SchedulerOptions{
		Debounce: engine.Debounce(),
		Project: func(cs store.CanonicalStore, f domain.Filters) domain.ProjectionResult {
			return projection.Project(cs, s.withDefaults(f), projection.ProjectOptions{Now: s.now})
		},
		Now: func() time.Time { return s.now() },
	})
	return s
}

// withDefaults applies the configured threshold and horizon before the
// package defaults kick in.
func (s *ProjectionService) withDefaults(f domain.Filters) domain.Filters {
	if f.Threshold <= 0 && s.engine.AlertThreshold > 0 {
		f.Threshold = s.engine.AlertThreshold
	}
	if f.Horizon <= 0 && s.engine.ForwardHorizon > 0 {
		f.Horizon = s.engine.ForwardHorizon
	}
	return f.WithDefaults()
}

func (s *ProjectionService) Project(ctx context.Context, filters domain.Filters) (domain.ProjectionResult, error) {
	cs, err := s.store.Load(ctx)
	if err != nil {
		return domain.ProjectionResult{}, err
	}
	filters = s.withDefaults(filters)
	version := cs.Version()

	if result, ok, err := s.cache.Get(ctx, version, filters); err == nil && ok {
		return result, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("projection: cache get failed")
	}

	result := projection.Project(cs, filters, projection.ProjectOptions{Now: s.now})

	if err := s.cache.Set(ctx, version, filters, result); err != nil {
		log.Warn().Err(err).Msg("projection: cache set failed")
	}

	return result, nil
}

func (s *ProjectionService) Alerts(ctx context.Context, filters domain.Filters) ([]domain.Alert, error) {
	result, err := s.Project(ctx, filters)
	if err != nil {
		return nil, err
	}
	return result.Alerts, nil
}

func (s *ProjectionService) KPI(ctx context.Context, filters domain.Filters) (domain.KPISummary, error) {
	result, err := s.Project(ctx, filters)
	if err != nil {
		return domain.KPISummary{}, err
	}
	return result.KPI, nil
}

// Markets lists market codes present in the store, always including au-c.
func (s *ProjectionService) Markets(ctx context.Context) ([]string, error) {
	opts, err := s.FilterOptions(ctx)
	if err != nil {
		return nil, err
	}
	return opts.Markets, nil
}

func (s *ProjectionService) FilterOptions(ctx context.Context) (domain.FilterOptions, error) {
	cs, err := s.store.Load(ctx)
	if err != nil {
		return domain.FilterOptions{}, err
	}
	return projection.Options(cs), nil
}

// Summary reports per-category storage metadata.
func (s *ProjectionService) Summary(ctx context.Context) (map[domain.Category]store.Meta, error) {
	return s.store.Summary(ctx)
}

// SetLiveFilters feeds the debounced live projection.
func (s *ProjectionService) SetLiveFilters(filters domain.Filters) {
	s.scheduler.SetFilters(filters)
}

// Live returns the latest non-superseded live projection.
func (s *ProjectionService) Live() (pipeline.Snapshot, bool) {
	return s.scheduler.Latest()
}

// LiveFilters returns the filters the live projection runs with.
func (s *ProjectionService) LiveFilters() domain.Filters {
	return s.scheduler.Filters()
}

// Subscribe drops cached projections and schedules a live recompute whenever
// data changes.
func (s *ProjectionService) Subscribe(bus *events.Bus) (unsubscribe func()) {
	return bus.Subscribe(func(e events.DataChanged) {
		if err := s.cache.InvalidateAll(context.Background()); err != nil {
			log.Warn().Err(err).Str("category", string(e.Category)).Msg("projection: cache invalidation failed")
		}
		s.scheduler.Invalidate()
	})
}

// Close stops the live scheduler.
func (s *ProjectionService) Close() {
	s.scheduler.Stop()
}
