package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andresuchdata/stockfloat/internal/domain"
)

func TestArchiveRoundTrip(t *testing.T) {
	ctx := context.Background()
	objects := NewMemoryStorage()
	a := NewArchive(objects)
	a.now = func() time.Time { return time.Date(2025, time.March, 4, 10, 30, 0, 0, time.UTC) }

	key, err := a.Put(ctx, domain.CategoryExports, "/tmp/Exports - March.xlsx", []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	if key != "uploads/exports/20250304T103000-Exports - March.xlsx" {
		t.Errorf("key = %q", key)
	}

	a.now = func() time.Time { return time.Date(2025, time.March, 5, 8, 0, 0, 0, time.UTC) }
	if _, err := a.Put(ctx, domain.CategoryStockOnHand, "soh.csv", []byte("x")); err != nil {
		t.Fatal(err)
	}

	all, err := a.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].Category != domain.CategoryStockOnHand {
		t.Fatalf("list = %+v", all)
	}
	exports, _ := a.List(ctx, domain.CategoryExports)
	if len(exports) != 1 || exports[0].FileName != "Exports - March.xlsx" {
		t.Fatalf("exports = %+v", exports)
	}

	up, data, err := a.Fetch(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" || up.Category != domain.CategoryExports {
		t.Errorf("fetched %+v %q", up, data)
	}
}

func TestParseArchiveKeyRejectsForeignKeys(t *testing.T) {
	for _, key := range []string{"other/exports/x.csv", "uploads/unknown/20250101T000000-x.csv", "uploads/exports/nodash", "uploads/exports/bad-x.csv"} {
		if _, ok := ParseArchiveKey(key); ok {
			t.Errorf("ParseArchiveKey(%q) accepted", key)
		}
	}
}

func TestMemoryStorageDownload(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStorage()
	if err := m.UploadObject(ctx, "a/b.csv", []byte("1,2")); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(t.TempDir(), "nested", "b.csv")
	if err := m.DownloadObject(ctx, "a/b.csv", dest); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(dest)
	if err != nil || string(got) != "1,2" {
		t.Errorf("downloaded %q, %v", got, err)
	}
	if _, err := m.GetObject(ctx, "missing"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		raw     string
		useSSL  bool
		host    string
		wantTLS bool
	}{
		{"https://s3.example.com/", false, "s3.example.com", true},
		{"http://minio:9000", true, "minio:9000", false},
		{"minio:9000", true, "minio:9000", true},
	}
	for _, tt := range tests {
		host, tls := splitEndpoint(tt.raw, tt.useSSL)
		if host != tt.host || tls != tt.wantTLS {
			t.Errorf("splitEndpoint(%q) = %q,%v", tt.raw, host, tls)
		}
	}
}
