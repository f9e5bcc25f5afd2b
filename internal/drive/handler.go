package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/andresuchdata/stockfloat/internal/domain"
)

// FolderResolver turns a slash separated folder path into a Drive folder ID.
type FolderResolver interface {
	FindFolderByPath(ctx context.Context, path string) (string, error)
}

type Handler struct {
	source        Source
	ingestService *IngestService
	defaultFolder string
}

func NewHandler(source Source, ingestService *IngestService, defaultFolder string) *Handler {
	return &Handler{
		source:        source,
		ingestService: ingestService,
		defaultFolder: defaultFolder,
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/drive/files", h.ListFiles).Methods("GET")
	router.HandleFunc("/api/drive/ingest", h.IngestFile).Methods("POST")
	router.HandleFunc("/api/drive/sync", h.SyncFolder).Methods("POST")
}

// Router returns a mux router carrying the drive routes.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) folderID(r *http.Request) (string, int, error) {
	query := r.URL.Query()
	folderID := query.Get("folderId")
	if path := query.Get("path"); path != "" {
		resolver, ok := h.source.(FolderResolver)
		if !ok {
			return "", http.StatusBadRequest, fmt.Errorf("folder paths are not supported")
		}
		id, err := resolver.FindFolderByPath(r.Context(), path)
		if err != nil {
			return "", http.StatusNotFound, err
		}
		return id, 0, nil
	}
	if folderID == "" {
		folderID = h.defaultFolder
	}
	return folderID, 0, nil
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	folderID, code, err := h.folderID(r)
	if err != nil {
		http.Error(w, err.Error(), code)
		return
	}

	files, err := h.source.ListFiles(r.Context(), folderID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if files == nil {
		files = []*File{}
	}

	writeJSON(w, http.StatusOK, files)
}

func (h *Handler) IngestFile(w http.ResponseWriter, r *http.Request) {
	fileID := r.URL.Query().Get("fileId")
	if fileID == "" {
		http.Error(w, "fileId parameter is required", http.StatusBadRequest)
		return
	}

	var category domain.Category
	if raw := r.URL.Query().Get("category"); raw != "" {
		c, ok := domain.ParseCategory(raw)
		if !ok {
			http.Error(w, fmt.Sprintf("unknown category %q", raw), http.StatusBadRequest)
			return
		}
		category = c
	}

	status, err := h.ingestService.IngestFile(r.Context(), fileID, category)
	if err != nil {
		if status.Message == "" {
			status.Message = "error: " + err.Error()
			status.Err = err.Error()
		}
		writeJSON(w, http.StatusUnprocessableEntity, status)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) SyncFolder(w http.ResponseWriter, r *http.Request) {
	folderID, code, err := h.folderID(r)
	if err != nil {
		http.Error(w, err.Error(), code)
		return
	}

	statuses, err := h.ingestService.SyncFolder(r.Context(), folderID)
	if err != nil {
		http.Error(w, fmt.Sprintf("sync failed: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"folderId": folderID, "uploads": statuses})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
