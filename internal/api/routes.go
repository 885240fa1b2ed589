package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/youruser/bannermaker/internal/export"
	"github.com/youruser/bannermaker/internal/project"
	"github.com/youruser/bannermaker/internal/storage"
)

// Handler serves the banner API. All dependencies are injected so tests can
// build one over temp directories.
type Handler struct {
	projects       *project.Store
	files          storage.Storage
	exports        *export.Service
	log            *slog.Logger
	maxUploadBytes int64
	now            func() time.Time
}

func NewHandler(projects *project.Store, files storage.Storage, exports *export.Service, log *slog.Logger, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = storage.DefaultMaxUploadBytes
	}
	return &Handler{
		projects:       projects,
		files:          files,
		exports:        exports,
		log:            log,
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/", root)
		api.GET("/health", h.health)

		projects := api.Group("/projects")
		projects.POST("", h.createProject)
		projects.GET("", h.listProjects)
		projects.GET("/:id", h.getProject)
		projects.PUT("/:id", h.updateProject)
		projects.DELETE("/:id", h.deleteProject)
		projects.POST("/:id/duplicate", h.duplicateProject)

		images := api.Group("/images")
		images.POST("/upload", h.uploadImages)
		images.POST("/upload-files", h.uploadFiles)
		images.POST("/import", h.importImage)
		images.GET("", h.listImages)
		images.GET("/:id", h.getImage)
		images.DELETE("/:id", h.deleteImage)
		images.GET("/:id/download", h.downloadImage)

		api.GET("/files/:filename", h.serveFile)
		api.HEAD("/files/:filename", h.statFile)

		exports := api.Group("/export")
		exports.POST("/:id/generate", h.generateExport)
		exports.GET("/:id/download", h.downloadExport)
		exports.GET("/:id/qr", h.exportQR)
	}
}
