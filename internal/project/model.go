package project

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	imagepkg "github.com/youruser/bannermaker/internal/image"
)

const DefaultSession = "default_session"

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid project update")
)

type Project struct {
	ID              string                  `json:"id"`
	Name            string                  `json:"name"`
	Description     *string                 `json:"description"`
	Images          []string                `json:"images"`
	GridSize        imagepkg.GridSpec       `json:"grid_size"`
	BackgroundColor string                  `json:"background_color"`
	TextOverlays    []imagepkg.TextOverlay  `json:"text_overlays"`
	ExportSettings  imagepkg.ExportSettings `json:"export_settings"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
	Session         string                  `json:"user_session,omitempty"`
}

func DefaultExportSettings() imagepkg.ExportSettings {
	return imagepkg.ExportSettings{
		Format:     string(imagepkg.FormatPNG),
		Quality:    imagepkg.DefaultQuality,
		Resolution: imagepkg.DefaultResolution,
	}
}

// New returns a project with the editor's defaults: an empty 2x2 grid on white.
func New(name string, description *string, session string, now time.Time) *Project {
	return &Project{
		ID:              uuid.NewString(),
		Name:            name,
		Description:     description,
		Images:          []string{},
		GridSize:        imagepkg.GridSpec{Rows: 2, Cols: 2},
		BackgroundColor: "#ffffff",
		TextOverlays:    []imagepkg.TextOverlay{},
		ExportSettings:  DefaultExportSettings(),
		CreatedAt:       now.UTC(),
		UpdatedAt:       now.UTC(),
		Session:         session,
	}
}

// Snapshot copies the render-relevant state into a banner descriptor that
// shares no slices with p.
func (p *Project) Snapshot() imagepkg.Banner {
	return imagepkg.Banner{
		Grid:            p.GridSize,
		BackgroundColor: p.BackgroundColor,
		Images:          append([]string(nil), p.Images...),
		TextOverlays:    append([]imagepkg.TextOverlay(nil), p.TextOverlays...),
		Export:          p.ExportSettings,
	}
}

// Duplicate returns a copy of p under a new id, owned by session.
func (p *Project) Duplicate(session string, now time.Time) *Project {
	dup := New(p.Name+" (Copy)", p.Description, session, now)
	dup.Images = append(dup.Images, p.Images...)
	dup.GridSize = p.GridSize
	dup.BackgroundColor = p.BackgroundColor
	dup.TextOverlays = append(dup.TextOverlays, p.TextOverlays...)
	dup.ExportSettings = p.ExportSettings
	return dup
}

type Image struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	URL         string    `json:"url"`
	Filename    string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewImage(name string, size int64, contentType, filename string, now time.Time) *Image {
	return &Image{
		ID:          uuid.NewString(),
		Name:        name,
		Size:        size,
		ContentType: contentType,
		URL:         "/api/files/" + filename,
		Filename:    filename,
		CreatedAt:   now.UTC(),
	}
}

// Update is a partial project update; nil fields are left unchanged.
type Update struct {
	Name            *string                  `json:"name"`
	Description     *string                  `json:"description"`
	Images          []string                 `json:"images"`
	GridSize        *imagepkg.GridSpec       `json:"grid_size"`
	BackgroundColor *string                  `json:"background_color"`
	TextOverlays    []imagepkg.TextOverlay   `json:"text_overlays"`
	ExportSettings  *imagepkg.ExportSettings `json:"export_settings"`
}

func (u *Update) Validate() error {
	if u.Name != nil && *u.Name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalid)
	}
	if u.GridSize != nil {
		if err := u.GridSize.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	if es := u.ExportSettings; es != nil {
		if es.Format != string(imagepkg.FormatPNG) && es.Format != string(imagepkg.FormatJPG) {
			return fmt.Errorf("%w: format must be png or jpg", ErrInvalid)
		}
		if es.Quality < imagepkg.MinQuality || es.Quality > imagepkg.MaxQuality {
			return fmt.Errorf("%w: quality must be within [%d,%d]", ErrInvalid, imagepkg.MinQuality, imagepkg.MaxQuality)
		}
		if !imagepkg.KnownResolution(es.Resolution) {
			return fmt.Errorf("%w: resolution must be 1080p, 2K or 4K", ErrInvalid)
		}
	}
	for i, ov := range u.TextOverlays {
		if ov.Style.FontSize < 0 || ov.Style.FontSize > imagepkg.MaxFontSize {
			return fmt.Errorf("%w: text overlay %d font size must be within [0,%d]", ErrInvalid, i, imagepkg.MaxFontSize)
		}
	}
	return nil
}

// Apply writes the set fields onto p. Overlays without an id get one.
func (u *Update) Apply(p *Project, now time.Time) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = u.Description
	}
	if u.Images != nil {
		p.Images = append([]string{}, u.Images...)
	}
	if u.GridSize != nil {
		p.GridSize = *u.GridSize
	}
	if u.BackgroundColor != nil {
		p.BackgroundColor = *u.BackgroundColor
	}
	if u.TextOverlays != nil {
		p.TextOverlays = make([]imagepkg.TextOverlay, len(u.TextOverlays))
		for i, ov := range u.TextOverlays {
			if ov.ID == "" {
				ov.ID = uuid.NewString()
			}
			p.TextOverlays[i] = ov
		}
	}
	if u.ExportSettings != nil {
		p.ExportSettings = *u.ExportSettings
	}
	p.UpdatedAt = now.UTC()
}
