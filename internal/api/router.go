package api

import (
	httpSwagger "github.com/swaggo/http-swagger"

	_ "go-sales-insights/docs"
	"go-sales-insights/internal/api/handler"
	"go-sales-insights/pkg/router"
)

func RegisterRoutes(r *router.Router, h *handler.Handler) {
	r.GET("/api/v1/health", h.Health)

	r.POST("/api/v1/sessions", h.CreateSession)
	// More specific routes first
	r.GET("/api/v1/sessions/*/files/*", h.DownloadFile)
	r.POST("/api/v1/sessions/*/export/files", h.ExportFiles)
	r.POST("/api/v1/sessions/*/export/db", h.ExportDatabase)
	r.GET("/api/v1/sessions/*/export/db", h.GetExportedRows)
	r.GET("/api/v1/sessions/*/export", h.ExportTable)
	r.POST("/api/v1/sessions/*/upload", h.UploadFile)
	r.PUT("/api/v1/sessions/*/mapping", h.UpdateMapping)
	r.PUT("/api/v1/sessions/*/params", h.UpdateParams)
	r.GET("/api/v1/sessions/*/metrics", h.GetMetrics)
	r.GET("/api/v1/sessions/*/forecast", h.GetForecast)
	r.GET("/api/v1/sessions/*/profitability", h.GetProfitability)
	r.GET("/api/v1/sessions/*/anomalies", h.GetAnomalies)
	r.GET("/api/v1/sessions/*/analysis", h.GetAnalysis)
	// Generic session routes last
	r.GET("/api/v1/sessions/*", h.GetSession)
	r.DELETE("/api/v1/sessions/*", h.DeleteSession)

	r.GET("/api/v1/runs", h.ListRuns)
	r.GET("/api/v1/runs/*", h.GetRun)

	r.GET("/swagger/*", router.HandlerFunc(httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json"))))
}
