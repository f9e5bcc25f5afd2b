package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/andresuchdata/stockfloat/internal/store"
)

const kvSchema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// programLimitExceeded is the SQLSTATE for values over the bytea limit.
const programLimitExceeded = "54000"

// KVRepository persists store documents in the kv_entries table.
type KVRepository struct {
	db *DB
}

func NewKVRepository(db *DB) *KVRepository {
	return &KVRepository{db: db}
}

// EnsureSchema creates kv_entries when missing.
func (r *KVRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, kvSchema); err != nil {
		return fmt.Errorf("failed to create kv_entries: %w", err)
	}
	return nil
}

func (r *KVRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return nil, false, err
	}
	defer release()

	var value []byte
	err = r.db.GetContext(ctx, &value, `SELECT value FROM kv_entries WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

func (r *KVRepository) Set(ctx context.Context, key string, value []byte) error {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	query := `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		if isCapacityError(err) {
			return fmt.Errorf("%s: %w", key, store.ErrCapacityExceeded)
		}
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (r *KVRepository) Remove(ctx context.Context, key string) error {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// Keys lists keys starting with prefix in lexical order.
func (r *KVRepository) Keys(ctx context.Context, prefix string) ([]string, error) {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	keys := make([]string, 0)
	err = r.db.SelectContext(ctx, &keys,
		`SELECT key FROM kv_entries WHERE key LIKE $1 ESCAPE '\' ORDER BY key`, likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}

func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

func isCapacityError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == programLimitExceeded
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == programLimitExceeded
	}
	return false
}

var (
	_ store.KV     = (*KVRepository)(nil)
	_ store.Lister = (*KVRepository)(nil)
)
