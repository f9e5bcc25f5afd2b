package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockfloat/internal/domain"
	"github.com/andresuchdata/stockfloat/internal/service"
)

type ProjectionHandler struct {
	service *service.ProjectionService
}

func NewProjectionHandler(service *service.ProjectionService) *ProjectionHandler {
	return &ProjectionHandler{service: service}
}

func (h *ProjectionHandler) filters(c *gin.Context) (domain.Filters, bool) {
	f, err := ParseFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return f, false
	}
	return f, true
}

func (h *ProjectionHandler) GetProjection(c *gin.Context) {
	f, ok := h.filters(c)
	if !ok {
		return
	}
	result, err := h.service.Project(c.Request.Context(), f)
	if err != nil {
		internalError(c, "failed to compute projection", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ProjectionHandler) GetAlerts(c *gin.Context) {
	f, ok := h.filters(c)
	if !ok {
		return
	}
	alerts, err := h.service.Alerts(c.Request.Context(), f)
	if err != nil {
		internalError(c, "failed to compute alerts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "count": len(alerts)})
}

func (h *ProjectionHandler) GetKPI(c *gin.Context) {
	f, ok := h.filters(c)
	if !ok {
		return
	}
	kpi, err := h.service.KPI(c.Request.Context(), f)
	if err != nil {
		internalError(c, "failed to compute kpi", err)
		return
	}
	c.JSON(http.StatusOK, kpi)
}

func (h *ProjectionHandler) GetMarkets(c *gin.Context) {
	markets, err := h.service.Markets(c.Request.Context())
	if err != nil {
		internalError(c, "failed to list markets", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"markets": markets})
}

func (h *ProjectionHandler) GetFilterOptions(c *gin.Context) {
	opts, err := h.service.FilterOptions(c.Request.Context())
	if err != nil {
		internalError(c, "failed to list filter options", err)
		return
	}
	c.JSON(http.StatusOK, opts)
}

func (h *ProjectionHandler) GetStoreSummary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		internalError(c, "failed to load store summary", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// PutFilters replaces the live filters; the recompute happens after the debounce window.
func (h *ProjectionHandler) PutFilters(c *gin.Context) {
	var f domain.Filters
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filters: " + err.Error()})
		return
	}
	h.service.SetLiveFilters(f)
	c.JSON(http.StatusAccepted, gin.H{"filters": f})
}

func (h *ProjectionHandler) GetLiveProjection(c *gin.Context) {
	snap, ok := h.service.Live()
	if !ok {
		c.JSON(http.StatusAccepted, gin.H{"status": "pending", "filters": h.service.LiveFilters()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func internalError(c *gin.Context, message string, err error) {
	log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(message)
	c.JSON(http.StatusInternalServerError, gin.H{"error": message})
}
