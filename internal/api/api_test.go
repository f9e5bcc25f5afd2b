package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/stockfloat/internal/config"
	"github.com/andresuchdata/stockfloat/internal/domain"
	"github.com/andresuchdata/stockfloat/internal/pipeline"
	"github.com/andresuchdata/stockfloat/internal/service"
	"github.com/andresuchdata/stockfloat/internal/storage"
	"github.com/andresuchdata/stockfloat/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, drive http.Handler) *gin.Engine {
	t.Helper()
	st := store.New(store.NewMemoryKV(0))
	o := pipeline.NewOrchestrator(st, nil, nil, pipeline.DefaultConfig())
	projections := service.NewProjectionService(st, nil, config.EngineConfig{ForwardHorizon: 3, DebounceMS: 5})
	t.Cleanup(projections.Close)
	return NewRouter(&Services{
		IngestService:     service.NewIngestService(o, storage.NewArchive(storage.NewMemoryStorage())),
		ProjectionService: projections,
		Drive:             drive,
	}, []string{"*"})
}

func upload(t *testing.T, router http.Handler, category, fileName, body string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte(body))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload/"+category, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

const (
	stockCSV   = "State,Wine,Jan-25,Feb-25\nNSW,JT SAB 22,1000,1500\n"
	exportsCSV = "Customer,Market,Product,Cases,Status,ETD\nUS - Southern Glazers,USA,JT SAB 24 12pk,600,In transit,2025-01-05\n"
)

func TestUploadAndProject(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := upload(t, router, "stock-on-hand", "AUS.csv", stockCSV)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status %d: %s", rec.Code, rec.Body)
	}
	var status domain.UploadStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Message != "processed 2 records" {
		t.Errorf("message = %q", status.Message)
	}

	if rec := upload(t, router, "exports", "Exports.csv", exportsCSV); rec.Code != http.StatusOK {
		t.Fatalf("exports upload status %d: %s", rec.Code, rec.Body)
	}

	rec = get(router, "/api/v1/projection?market=au")
	if rec.Code != http.StatusOK {
		t.Fatalf("projection status %d", rec.Code)
	}
	var result domain.ProjectionResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Points) != 3 {
		t.Errorf("points = %d, want 3", len(result.Points))
	}
	for _, p := range result.Points {
		if p.StockFloat < 0 {
			t.Errorf("negative float in %s", p.Period)
		}
	}

	rec = get(router, "/api/v1/markets")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"au-c"`) {
		t.Errorf("markets %d %s", rec.Code, rec.Body)
	}

	for _, path := range []string{"/api/v1/alerts", "/api/v1/kpi", "/api/v1/filters/options", "/api/v1/runs", "/api/v1/archive", "/api/v1/store"} {
		if rec := get(router, path); rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d", path, rec.Code)
		}
	}
}

func TestUploadRejections(t *testing.T) {
	router := newTestRouter(t, nil)

	tests := []struct {
		name     string
		category string
		file     string
		body     string
		want     int
	}{
		{"unknown category", "receipts", "a.csv", stockCSV, http.StatusBadRequest},
		{"unsupported format", "exports", "a.pdf", "x", http.StatusUnsupportedMediaType},
		{"no records", "exports", "Exports.csv", "nothing\n", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := upload(t, router, tt.category, tt.file, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestProjectionRejectsBadFilters(t *testing.T) {
	router := newTestRouter(t, nil)
	for _, q := range []string{"from=someday", "mode=sideways", "horizon=-1", "threshold=abc"} {
		if rec := get(router, "/api/v1/projection?"+q); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d", q, rec.Code)
		}
	}
}

func TestLiveFilters(t *testing.T) {
	router := newTestRouter(t, nil)
	upload(t, router, "stock-on-hand", "AUS.csv", stockCSV)
	upload(t, router, "exports", "Exports.csv", exportsCSV)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/filters", strings.NewReader(`{"market":"usa","horizon":2}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("PUT filters = %d", rec.Code)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		rec := get(router, "/api/v1/projection/live")
		if rec.Code == http.StatusOK {
			var snap pipeline.Snapshot
			if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
				t.Fatal(err)
			}
			if snap.Filters.Market != "usa" || len(snap.Result.Points) != 2 {
				t.Errorf("snapshot = %+v", snap)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("live projection never published")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDriveMounted(t *testing.T) {
	var hit string
	drive := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = r.URL.Path
		w.WriteHeader(http.StatusTeapot)
	})
	router := newTestRouter(t, drive)

	rec := get(router, "/api/drive/files")
	if rec.Code != http.StatusTeapot || hit != "/api/drive/files" {
		t.Errorf("drive handler not reached: %d %q", rec.Code, hit)
	}
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{"http://a.example, http://b.example", ""})
	if all || len(origins) != 2 || origins[1] != "http://b.example" {
		t.Errorf("got %v %v", origins, all)
	}
	if _, all := normalizeAllowedOrigins([]string{"*"}); !all {
		t.Error("expected allow-all")
	}
}
