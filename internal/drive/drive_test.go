package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/andresuchdata/stockfloat/internal/domain"
)

type fakeSource struct {
	files    []*File
	contents map[string]string
}

func (f *fakeSource) ListFiles(_ context.Context, _ string) ([]*File, error) {
	return f.files, nil
}

func (f *fakeSource) GetFile(_ context.Context, id string) (*File, error) {
	for _, file := range f.files {
		if file.ID == id {
			return file, nil
		}
	}
	return nil, fmt.Errorf("file %s not found", id)
}

func (f *fakeSource) DownloadFile(_ context.Context, id string, w io.Writer) error {
	_, err := io.WriteString(w, f.contents[id])
	return err
}

type recordingIngester struct {
	calls []string
}

func (r *recordingIngester) IngestBytes(_ context.Context, category domain.Category, fileName string, data []byte) (domain.UploadStatus, error) {
	r.calls = append(r.calls, string(category)+"|"+fileName+"|"+string(data))
	return domain.UploadStatus{Category: category, FileName: fileName, RecordCount: 1, Message: "processed 1 records"}, nil
}

func newFixture() (*fakeSource, *recordingIngester) {
	src := &fakeSource{
		files: []*File{
			{ID: "1", Name: "AUS Stock on Hand.xlsx"},
			{ID: "2", Name: "Exports 2025.csv"},
			{ID: "3", Name: "notes.docx"},
			{ID: "4", Name: "misc.csv"},
		},
		contents: map[string]string{"1": "soh", "2": "exp", "3": "doc", "4": "misc"},
	}
	return src, &recordingIngester{}
}

func TestCategoryFromName(t *testing.T) {
	tests := []struct {
		name string
		want domain.Category
		ok   bool
	}{
		{"NSW Sales Depletion Q1.xlsx", domain.CategorySalesDepletion, true},
		{"Exports.csv", domain.CategoryExports, true},
		{"shipments-usa.csv", domain.CategoryExports, true},
		{"SOH Feb.xlsx", domain.CategoryStockOnHand, true},
		{"budget.xlsx", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CategoryFromName(tt.name)
			if got != tt.want || ok != tt.ok {
				t.Errorf("CategoryFromName(%q) = %q,%v", tt.name, got, ok)
			}
		})
	}
}

func TestSyncFolderIngestsRecognizedWorkbooks(t *testing.T) {
	src, ing := newFixture()
	svc := NewIngestService(src, ing)

	statuses, err := svc.SyncFolder(context.Background(), "folder")
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %+v", statuses)
	}
	want := []string{"stock-on-hand|AUS Stock on Hand.xlsx|soh", "exports|Exports 2025.csv|exp"}
	for i, w := range want {
		if ing.calls[i] != w {
			t.Errorf("call %d = %q, want %q", i, ing.calls[i], w)
		}
	}
}

func TestIngestFileExplicitCategory(t *testing.T) {
	src, ing := newFixture()
	svc := NewIngestService(src, ing)

	if _, err := svc.IngestFile(context.Background(), "4", ""); err == nil {
		t.Error("expected error for unknown category")
	}
	status, err := svc.IngestFile(context.Background(), "4", domain.CategorySalesDepletion)
	if err != nil {
		t.Fatal(err)
	}
	if status.Category != domain.CategorySalesDepletion || ing.calls[0] != "sales-depletion|misc.csv|misc" {
		t.Errorf("status %+v calls %v", status, ing.calls)
	}
	if _, err := svc.IngestFile(context.Background(), "3", domain.CategoryExports); err == nil {
		t.Error("expected unsupported format error for docx")
	}
}

func TestDownloadFolderSkipsNonWorkbooks(t *testing.T) {
	src, _ := newFixture()
	dir := t.TempDir()

	paths, err := NewDownloader(src).DownloadFolder(context.Background(), DownloadOptions{FolderID: "f", DownloadDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 3 {
		t.Fatalf("paths = %v", paths)
	}
	got, err := os.ReadFile(filepath.Join(dir, "Exports 2025.csv"))
	if err != nil || string(got) != "exp" {
		t.Errorf("downloaded %q, %v", got, err)
	}
}

func TestHandlerRoutes(t *testing.T) {
	src, ing := newFixture()
	h := NewHandler(src, NewIngestService(src, ing), "default-folder")
	router := h.Router()

	t.Run("list", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drive/files", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d", rec.Code)
		}
		var files []File
		if err := json.Unmarshal(rec.Body.Bytes(), &files); err != nil || len(files) != 4 {
			t.Errorf("files %v err %v", files, err)
		}
	})

	t.Run("ingest requires file id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/drive/ingest", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status %d", rec.Code)
		}
	})

	t.Run("ingest rejects bad category", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/drive/ingest?fileId=1&category=bogus", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status %d", rec.Code)
		}
	})

	t.Run("sync", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/drive/sync", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d", rec.Code)
		}
		var body struct {
			FolderID string                `json:"folderId"`
			Uploads  []domain.UploadStatus `json:"uploads"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if body.FolderID != "default-folder" || len(body.Uploads) != 2 {
			t.Errorf("body %+v", body)
		}
	})

	t.Run("path without resolver", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drive/files?path=a/b", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status %d", rec.Code)
		}
	})
}
