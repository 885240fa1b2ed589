package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	imagepkg "github.com/youruser/bannermaker/internal/image"
)

func (h *Handler) generateExport(c *gin.Context) {
	exp, err := h.exports.Generate(c.Request.Context(), c.Param("id"), h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, exp)
}

func (h *Handler) downloadExport(c *gin.Context) {
	dl, err := h.exports.Download(c.Request.Context(), c.Param("id"), h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("X-Render-Skipped", strconv.Itoa(dl.Report.Skipped()))
	attachment(c, dl.Filename, dl.ContentType, dl.Data)
}

// exportQR returns a QR code pointing at the project's download link.
func (h *Handler) exportQR(c *gin.Context) {
	p, err := h.projects.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	size := imagepkg.DefaultQRSize
	if v, err := strconv.Atoi(c.Query("size")); err == nil {
		size = v
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	link := fmt.Sprintf("%s://%s/api/export/%s/download", scheme, c.Request.Host, p.ID)
	b, err := imagepkg.GenerateQRPNG(link, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", b)
}
