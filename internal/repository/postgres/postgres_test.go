package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/andresuchdata/stockfloat/internal/config"
)

func TestDriverName(t *testing.T) {
	tests := map[string]string{"pgx": "pgx", "pgx/v5": "pgx", "postgres": "postgres", "": "postgres"}
	for in, want := range tests {
		if got := DriverName(in); got != want {
			t.Errorf("DriverName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDSNDefaultsSSLMode(t *testing.T) {
	got := DSN(&config.DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "float"})
	want := "host=db port=5432 user=u password=p dbname=float sslmode=disable"
	if got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}

func TestLikePrefixEscapesWildcards(t *testing.T) {
	if got := likePrefix(`store:stock_on%hand\`); got != `store:stock\_on\%hand\\%` {
		t.Errorf("likePrefix = %q", got)
	}
}

func TestIsCapacityError(t *testing.T) {
	if !isCapacityError(fmt.Errorf("wrap: %w", &pq.Error{Code: "54000"})) {
		t.Error("pq 54000 not detected")
	}
	if !isCapacityError(&pgconn.PgError{Code: "54000"}) {
		t.Error("pgx 54000 not detected")
	}
	if isCapacityError(&pq.Error{Code: "23505"}) || isCapacityError(errors.New("boom")) {
		t.Error("unexpected capacity error")
	}
}
