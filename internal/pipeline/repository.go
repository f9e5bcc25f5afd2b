package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"

	"github.com/jmoiron/sqlx"
)

// RunLog records ingestion runs
type RunLog interface {
	CreateRun(ctx context.Context, run *Run) error
	UpdateRun(ctx context.Context, run *Run) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

// Repository handles database operations for ingestion run tracking
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new run repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the ingest_runs table when missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ingest_runs (
			id               BIGSERIAL PRIMARY KEY,
			category         TEXT NOT NULL,
			file_name        TEXT NOT NULL DEFAULT '',
			status           TEXT NOT NULL,
			total_sheets     INT NOT NULL DEFAULT 0,
			processed_sheets INT NOT NULL DEFAULT 0,
			total_records    INT NOT NULL DEFAULT 0,
			dropped_rows     INT NOT NULL DEFAULT 0,
			started_at       TIMESTAMPTZ NOT NULL,
			completed_at     TIMESTAMPTZ,
			error_message    TEXT NOT NULL DEFAULT ''
		)
	`)
	return err
}

// CreateRun creates a new run record
func (r *Repository) CreateRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO ingest_runs (
			category, file_name, status, total_sheets,
			processed_sheets, total_records, dropped_rows, started_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	return r.db.QueryRowxContext(
		ctx, query,
		run.Category, run.FileName, run.Status, run.TotalSheets,
		run.ProcessedSheets, run.TotalRecords, run.DroppedRows, run.StartedAt,
	).Scan(&run.ID)
}

// UpdateRun updates an existing run
func (r *Repository) UpdateRun(ctx context.Context, run *Run) error {
	query := `
		UPDATE ingest_runs
		SET status = :status, processed_sheets = :processed_sheets, total_records = :total_records,
		    dropped_rows = :dropped_rows, completed_at = :completed_at, error_message = :error_message
		WHERE id = :id
	`

	_, err := r.db.NamedExecContext(ctx, query, run)
	return err
}

// ListRuns returns the most recent runs first
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, category, file_name, status, total_sheets, processed_sheets,
		       total_records, dropped_rows, started_at, completed_at, error_message
		FROM ingest_runs
		ORDER BY started_at DESC, id DESC
		LIMIT $1
	`

	var runs []Run
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return runs, nil
}

// MemoryRunLog keeps runs in process; used when no database is configured.
type MemoryRunLog struct {
	mu   sync.Mutex
	next int64
	runs map[int64]Run
}

// NewMemoryRunLog returns an empty log.
func NewMemoryRunLog() *MemoryRunLog {
	return &MemoryRunLog{runs: make(map[int64]Run)}
}

func (m *MemoryRunLog) CreateRun(_ context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	run.ID = m.next
	m.runs[run.ID] = *run
	return nil
}

func (m *MemoryRunLog) UpdateRun(_ context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.ID]; !ok {
		return sql.ErrNoRows
	}
	m.runs[run.ID] = *run
	return nil
}

func (m *MemoryRunLog) ListRuns(_ context.Context, limit int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Run, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
