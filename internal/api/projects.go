package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	imagepkg "github.com/youruser/bannermaker/internal/image"
	"github.com/youruser/bannermaker/internal/project"
)

// projectResponse is a project with its image ids expanded into records.
// Ids that no longer resolve are dropped.
type projectResponse struct {
	ID              string                  `json:"id"`
	Name            string                  `json:"name"`
	Description     *string                 `json:"description"`
	Images          []*project.Image        `json:"images"`
	GridSize        imagepkg.GridSpec       `json:"grid_size"`
	BackgroundColor string                  `json:"background_color"`
	TextOverlays    []imagepkg.TextOverlay  `json:"text_overlays"`
	ExportSettings  imagepkg.ExportSettings `json:"export_settings"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

func (h *Handler) expand(ctx context.Context, p *project.Project) (*projectResponse, error) {
	imgs, err := h.projects.GetImages(ctx, p.Images)
	if err != nil {
		return nil, err
	}
	resolved := make([]*project.Image, 0, len(imgs))
	for _, img := range imgs {
		if img != nil {
			resolved = append(resolved, img)
		}
	}
	return &projectResponse{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		Images:          resolved,
		GridSize:        p.GridSize,
		BackgroundColor: p.BackgroundColor,
		TextOverlays:    p.TextOverlays,
		ExportSettings:  p.ExportSettings,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}, nil
}

func (h *Handler) respondProject(c *gin.Context, p *project.Project) {
	resp, err := h.expand(c.Request.Context(), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) createProject(c *gin.Context) {
	var req struct {
		Name        string  `json:"name" binding:"required"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	p := project.New(req.Name, req.Description, session(c), h.now())
	if err := h.projects.CreateProject(c.Request.Context(), p); err != nil {
		h.fail(c, err)
		return
	}
	h.respondProject(c, p)
}

func (h *Handler) listProjects(c *gin.Context) {
	ctx := c.Request.Context()
	list, err := h.projects.ListProjects(ctx, session(c), 50)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]*projectResponse, 0, len(list))
	for _, p := range list {
		resp, err := h.expand(ctx, p)
		if err != nil {
			h.fail(c, err)
			return
		}
		out = append(out, resp)
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) getProject(c *gin.Context) {
	p, err := h.projects.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondProject(c, p)
}

func (h *Handler) updateProject(c *gin.Context) {
	var u project.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	p, err := h.projects.UpdateProject(c.Request.Context(), c.Param("id"), &u, h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondProject(c, p)
}

func (h *Handler) deleteProject(c *gin.Context) {
	if err := h.projects.DeleteProject(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	status(c, "Project deleted successfully")
}

func (h *Handler) duplicateProject(c *gin.Context) {
	dup, err := h.projects.DuplicateProject(c.Request.Context(), c.Param("id"), session(c), h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondProject(c, dup)
}
