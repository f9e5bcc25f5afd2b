package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/stockfloat/internal/api/handlers"
	"github.com/andresuchdata/stockfloat/internal/api/middleware"
	"github.com/andresuchdata/stockfloat/internal/service"
)

type Services struct {
	IngestService     *service.IngestService
	ProjectionService *service.ProjectionService
	// Drive serves /api/drive/*; nil when Drive is not configured.
	Drive http.Handler
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger("/health"))
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.IngestService != nil {
			uploadHandler := handlers.NewUploadHandler(services.IngestService)
			apiGroup.POST("/upload/:category", uploadHandler.Upload)
			apiGroup.GET("/runs", uploadHandler.GetRuns)
			archiveGroup := apiGroup.Group("/archive")
			{
				archiveGroup.GET("", uploadHandler.GetArchive)
				archiveGroup.POST("/reingest", uploadHandler.Reingest)
			}
		}

		if services.ProjectionService != nil {
			projectionHandler := handlers.NewProjectionHandler(services.ProjectionService)
			apiGroup.GET("/projection", projectionHandler.GetProjection)
			apiGroup.GET("/projection/live", projectionHandler.GetLiveProjection)
			apiGroup.GET("/alerts", projectionHandler.GetAlerts)
			apiGroup.GET("/kpi", projectionHandler.GetKPI)
			apiGroup.GET("/markets", projectionHandler.GetMarkets)
			apiGroup.GET("/store", projectionHandler.GetStoreSummary)
			filtersGroup := apiGroup.Group("/filters")
			{
				filtersGroup.GET("/options", projectionHandler.GetFilterOptions)
				filtersGroup.PUT("", projectionHandler.PutFilters)
			}
		}

		if services.Drive != nil {
			router.Any("/api/drive/*path", gin.WrapH(services.Drive))
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
