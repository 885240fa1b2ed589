package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	imagepkg "github.com/youruser/bannermaker/internal/image"
	"github.com/youruser/bannermaker/internal/project"
	"github.com/youruser/bannermaker/internal/storage"
)

const sessionHeader = "X-Session-ID"

func root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Banner Maker API is running", "version": "1.0.0"})
}

func (h *Handler) health(c *gin.Context) {
	if err := h.projects.Ping(c.Request.Context()); err != nil {
		h.log.ErrorContext(c.Request.Context(), "health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "message": "Banner Maker API is operational"})
}

func session(c *gin.Context) string {
	if s := c.GetHeader(sessionHeader); s != "" {
		return s
	}
	return project.DefaultSession
}

func status(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": message})
}

// fail writes err as a JSON error body with a status derived from its
// sentinel.
func (h *Handler) fail(c *gin.Context, err error) {
	var re *imagepkg.RenderError
	switch {
	case errors.As(err, &re):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": re.Error(), "kind": re.Kind})
		return
	case errors.Is(err, project.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, project.ErrInvalid),
		errors.Is(err, storage.ErrUnsupportedType),
		errors.Is(err, storage.ErrTooLarge),
		errors.Is(err, storage.ErrInvalidPayload),
		errors.Is(err, storage.ErrInvalidName),
		errors.Is(err, errBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.log.ErrorContext(c.Request.Context(), "request failed",
		"method", c.Request.Method, "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

var errBadRequest = errors.New("bad request")

// RequestLogger logs one line per request through log.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}
