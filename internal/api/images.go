package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"

	"github.com/gin-gonic/gin"
	imagepkg "github.com/youruser/bannermaker/internal/image"
	"github.com/youruser/bannermaker/internal/project"
	"github.com/youruser/bannermaker/internal/storage"
)

// base64Upload is one entry of the images_data form field.
type base64Upload struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
}

// storeUpload validates data, writes it to file storage and records it.
func (h *Handler) storeUpload(ctx context.Context, name string, data []byte, contentType string) (*project.Image, error) {
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = storage.DetectContentType(data)
	}
	if err := storage.ValidateUpload(contentType, int64(len(data)), h.maxUploadBytes); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if _, err := imagepkg.CheckDimensions(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errBadRequest, name, err)
	}
	now := h.now()
	filename := storage.NewUploadName(storage.ExtensionFor(contentType), now)
	if err := h.files.Save(ctx, filename, data, contentType); err != nil {
		return nil, fmt.Errorf("save %s: %w", name, err)
	}
	img := project.NewImage(name, int64(len(data)), contentType, filename, now)
	if err := h.projects.CreateImage(ctx, img); err != nil {
		if derr := h.files.Delete(ctx, filename); derr != nil {
			h.log.WarnContext(ctx, "remove orphaned upload", "file", filename, "error", derr)
		}
		return nil, err
	}
	h.log.InfoContext(ctx, "image stored", "image_id", img.ID, "file", filename, "bytes", len(data))
	return img, nil
}

func uploaded(c *gin.Context, imgs []*project.Image, what string) {
	c.JSON(http.StatusOK, gin.H{
		"images":  imgs,
		"message": fmt.Sprintf("Successfully uploaded %d %s", len(imgs), what),
	})
}

func (h *Handler) uploadImages(c *gin.Context) {
	raw := c.PostForm("images_data")
	if raw == "" {
		h.fail(c, fmt.Errorf("%w: images_data is required", errBadRequest))
		return
	}
	var items []base64Upload
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		h.fail(c, fmt.Errorf("%w: invalid JSON data", errBadRequest))
		return
	}

	ctx := c.Request.Context()
	out := make([]*project.Image, 0, len(items))
	for _, it := range items {
		if it.Name == "" || it.Data == "" {
			h.fail(c, fmt.Errorf("%w: missing required image fields", errBadRequest))
			return
		}
		data, declared, err := storage.DecodeBase64(it.Data)
		if err != nil {
			h.fail(c, fmt.Errorf("%s: %w", it.Name, err))
			return
		}
		ct := it.ContentType
		if ct == "" {
			ct = declared
		}
		img, err := h.storeUpload(ctx, it.Name, data, ct)
		if err != nil {
			h.fail(c, err)
			return
		}
		out = append(out, img)
	}
	uploaded(c, out, "images")
}

func (h *Handler) uploadFiles(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		h.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		h.fail(c, fmt.Errorf("%w: no files in field \"files\"", errBadRequest))
		return
	}

	ctx := c.Request.Context()
	out := make([]*project.Image, 0, len(files))
	for _, fh := range files {
		if fh.Size > h.maxUploadBytes {
			h.fail(c, fmt.Errorf("%s: %w", fh.Filename, storage.ErrTooLarge))
			return
		}
		f, err := fh.Open()
		if err != nil {
			h.fail(c, err)
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
		f.Close()
		if err != nil {
			h.fail(c, err)
			return
		}
		img, err := h.storeUpload(ctx, fh.Filename, data, fh.Header.Get("Content-Type"))
		if err != nil {
			h.fail(c, err)
			return
		}
		out = append(out, img)
	}
	uploaded(c, out, "files")
}

func (h *Handler) importImage(c *gin.Context) {
	var req struct {
		URL  string `json:"url" binding:"required"`
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	ctx := c.Request.Context()
	data, err := imagepkg.DownloadImage(ctx, req.URL, h.maxUploadBytes)
	if err != nil {
		h.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	name := req.Name
	if name == "" {
		name = path.Base(req.URL)
	}
	img, err := h.storeUpload(ctx, name, data, storage.DetectContentType(data))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, img)
}

func (h *Handler) listImages(c *gin.Context) {
	imgs, err := h.projects.ListImages(c.Request.Context(), session(c), 100)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, imgs)
}

func (h *Handler) getImage(c *gin.Context) {
	img, err := h.projects.GetImage(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, img)
}

func (h *Handler) deleteImage(c *gin.Context) {
	ctx := c.Request.Context()
	img, err := h.projects.GetImage(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.projects.DeleteImage(ctx, img.ID); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.files.Delete(ctx, img.Filename); err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.log.WarnContext(ctx, "delete image file", "image_id", img.ID, "file", img.Filename, "error", err)
	}
	status(c, "Image deleted successfully")
}

func (h *Handler) downloadImage(c *gin.Context) {
	ctx := c.Request.Context()
	img, err := h.projects.GetImage(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	data, err := h.files.Load(ctx, img.Filename)
	if err != nil {
		h.fail(c, err)
		return
	}
	attachment(c, img.Name, img.ContentType, data)
}

func (h *Handler) serveFile(c *gin.Context) {
	name := c.Param("filename")
	data, err := h.files.Load(c.Request.Context(), name)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, storage.ContentTypeByName(name), data)
}

// statFile answers HEAD for a stored file without reading its body.
func (h *Handler) statFile(c *gin.Context) {
	info, err := h.files.Stat(c.Request.Context(), c.Param("filename"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidName) {
			c.Status(http.StatusNotFound)
			return
		}
		h.log.ErrorContext(c.Request.Context(), "stat file", "file", c.Param("filename"), "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	ct := info.ContentType
	if ct == "" {
		ct = storage.ContentTypeByName(info.Name)
	}
	c.Header("Content-Type", ct)
	c.Header("Content-Length", strconv.FormatInt(info.Size, 10))
	c.Header("Last-Modified", info.ModTime.UTC().Format(http.TimeFormat))
	c.Status(http.StatusOK)
}

func attachment(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}
