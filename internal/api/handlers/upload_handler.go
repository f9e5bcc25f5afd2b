package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/stockfloat/internal/domain"
	"github.com/andresuchdata/stockfloat/internal/service"
	"github.com/andresuchdata/stockfloat/internal/workbook"
)

type UploadHandler struct {
	service *service.IngestService
}

func NewUploadHandler(service *service.IngestService) *UploadHandler {
	return &UploadHandler{service: service}
}

// Upload ingests a multipart "file" field into the category named in the path.
func (h *UploadHandler) Upload(c *gin.Context) {
	category, ok := domain.ParseCategory(c.Param("category"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category " + strconv.Quote(c.Param("category"))})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open uploaded file"})
		return
	}
	defer file.Close()

	status, err := h.service.IngestReader(c.Request.Context(), category, fileHeader.Filename, file)
	if err != nil {
		code := http.StatusUnprocessableEntity
		if errors.Is(err, workbook.ErrUnsupportedFormat) {
			code = http.StatusUnsupportedMediaType
		}
		c.JSON(code, status)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *UploadHandler) GetRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.service.Runs(c.Request.Context(), limit)
	if err != nil {
		internalError(c, "failed to list runs", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (h *UploadHandler) GetArchive(c *gin.Context) {
	var category domain.Category
	if raw := c.Query("category"); raw != "" {
		parsed, ok := domain.ParseCategory(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category " + strconv.Quote(raw)})
			return
		}
		category = parsed
	}
	uploads, err := h.service.Archived(c.Request.Context(), category)
	if err != nil {
		internalError(c, "failed to list archive", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uploads": uploads})
}

func (h *UploadHandler) Reingest(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}
	status, err := h.service.Reingest(c.Request.Context(), key)
	if err != nil {
		if status.Message == "" {
			status.Message = "error: " + err.Error()
			status.Err = err.Error()
		}
		c.JSON(http.StatusUnprocessableEntity, status)
		return
	}
	c.JSON(http.StatusOK, status)
}
