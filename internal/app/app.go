// Package app wires configuration into the store, pipeline and services shared by
// the HTTP server and the CLI.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockfloat/internal/cache"
	"github.com/andresuchdata/stockfloat/internal/config"
	"github.com/andresuchdata/stockfloat/internal/drive"
	"github.com/andresuchdata/stockfloat/internal/events"
	"github.com/andresuchdata/stockfloat/internal/pipeline"
	"github.com/andresuchdata/stockfloat/internal/repository/postgres"
	"github.com/andresuchdata/stockfloat/internal/service"
	"github.com/andresuchdata/stockfloat/internal/storage"
	"github.com/andresuchdata/stockfloat/internal/store"
)

type App struct {
	Config       *config.Config
	Store        *store.Store
	Bus          *events.Bus
	Orchestrator *pipeline.Orchestrator
	Ingest       *service.IngestService
	Projection   *service.ProjectionService
	// Drive and DriveIngest are nil unless Drive credentials are configured.
	Drive       *drive.Service
	DriveIngest *drive.IngestService

	closers []func() error
}

// New builds the application graph from cfg.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Bus: events.NewBus()}

	var db *postgres.DB
	if cfg.KV.Backend == config.KVPostgres {
		var err error
		if db, err = postgres.NewDB(&cfg.Database); err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
	}

	kv, err := a.newKV(ctx, db)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store.New(kv)

	var runs pipeline.RunLog
	if db != nil {
		repo := pipeline.NewRepository(db.DB)
		if err := repo.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		runs = repo
	}
	a.Orchestrator = pipeline.NewOrchestrator(a.Store, a.Bus, runs, pipeline.Config{
		WorkerCount: cfg.Engine.IngestWorkers,
		Debounce:    cfg.Engine.Debounce(),
	})

	archive, err := newArchive(ctx, cfg.Storage)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Ingest = service.NewIngestService(a.Orchestrator, archive)

	projectionCache, err := cache.NewProjectionCache(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("projection cache unavailable, continuing without it")
		projectionCache = cache.NewNoopProjectionCache()
	}
	a.Projection = service.NewProjectionService(a.Store, projectionCache, cfg.Engine)
	a.closers = append(a.closers, func() error { a.Projection.Close(); return nil })
	unsubscribe := a.Projection.Subscribe(a.Bus)
	a.closers = append(a.closers, func() error { unsubscribe(); return nil })

	if cfg.Drive.CredentialsJSON != "" {
		a.Drive, err = drive.NewService(ctx, cfg.Drive.CredentialsJSON)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.DriveIngest = drive.NewIngestService(a.Drive, a.Ingest)
	}

	return a, nil
}

func (a *App) newKV(ctx context.Context, db *postgres.DB) (store.KV, error) {
	switch a.Config.KV.Backend {
	case config.KVRedis:
		kv, err := cache.NewRedisKV(a.Config.Cache)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, kv.Close)
		log.Info().Msg("store: using redis backend")
		return kv, nil
	case config.KVPostgres:
		kv := postgres.NewKVRepository(db)
		if err := kv.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		log.Info().Msg("store: using postgres backend")
		return kv, nil
	case config.KVMemory, "":
		log.Info().Int("capacity", a.Config.KV.MemoryCapacity).Msg("store: using memory backend")
		return store.NewMemoryKV(a.Config.KV.MemoryCapacity), nil
	default:
		return nil, fmt.Errorf("unknown KV backend %q", a.Config.KV.Backend)
	}
}

func newArchive(ctx context.Context, cfg config.StorageConfig) (*storage.Archive, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	client, err := storage.NewMinioClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to object storage: %w", err)
	}
	return storage.NewArchive(client), nil
}

// DriveHandler returns the drive router, or nil when Drive is not configured.
func (a *App) DriveHandler() *drive.Handler {
	if a.Drive == nil {
		return nil
	}
	return drive.NewHandler(a.Drive, a.DriveIngest, a.Config.Drive.FolderID)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
