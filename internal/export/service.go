package export

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	imagepkg "github.com/youruser/bannermaker/internal/image"
	"github.com/youruser/bannermaker/internal/project"
	"github.com/youruser/bannermaker/internal/storage"
)

const timestampLayout = "20060102_150405"

// ProjectSource is the part of the project store exports read from.
type ProjectSource interface {
	GetProject(ctx context.Context, id string) (*project.Project, error)
	GetImages(ctx context.Context, ids []string) ([]*project.Image, error)
}

// Export describes a rendered banner saved to storage.
type Export struct {
	URL        string           `json:"export_url"`
	Filename   string           `json:"filename"`
	Format     string           `json:"format"`
	Resolution string           `json:"resolution"`
	FileSizeMB float64          `json:"file_size_mb"`
	Report     *imagepkg.Report `json:"report"`
}

// Download is a rendered banner returned directly to the client.
type Download struct {
	Data        []byte
	ContentType string
	Filename    string
	Report      *imagepkg.Report
}

type Service struct {
	projects ProjectSource
	files    storage.Storage
	renderer *imagepkg.Renderer
	log      *slog.Logger
}

func NewService(projects ProjectSource, files storage.Storage, log *slog.Logger, opts ...imagepkg.Option) *Service {
	s := &Service{projects: projects, files: files, log: log}
	opts = append([]imagepkg.Option{imagepkg.WithLogger(log)}, opts...)
	s.renderer = imagepkg.NewRenderer(s.FetchImages, opts...)
	return s
}

// FetchImages resolves image ids through the store and file storage. Any id
// that cannot be loaded or decoded yields an absent source.
func (s *Service) FetchImages(ctx context.Context, ids []string) []imagepkg.Source {
	out := make([]imagepkg.Source, len(ids))
	records, err := s.projects.GetImages(ctx, ids)
	if err != nil {
		s.log.WarnContext(ctx, "load image records", "error", err)
		return out
	}
	for i, rec := range records {
		if rec == nil {
			s.log.WarnContext(ctx, "image record missing", "image_id", ids[i])
			continue
		}
		data, err := s.files.Load(ctx, rec.Filename)
		if err != nil {
			s.log.WarnContext(ctx, "load image file", "image_id", rec.ID, "file", rec.Filename, "error", err)
			continue
		}
		img, err := imagepkg.Decode(data)
		if err != nil {
			s.log.WarnContext(ctx, "decode image", "image_id", rec.ID, "error", err)
			continue
		}
		out[i] = imagepkg.NewSource(img)
	}
	return out
}

func (s *Service) render(ctx context.Context, projectID string) (*project.Project, *imagepkg.Result, error) {
	p, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	res, err := s.renderer.Render(ctx, p.Snapshot())
	if err != nil {
		return nil, nil, err
	}
	if n := res.Report.Skipped(); n > 0 {
		s.log.InfoContext(ctx, "banner rendered with skipped items", "project_id", p.ID, "skipped", n)
	}
	return p, res, nil
}

// Generate renders the project and stores the result as
// banner_<id>_<timestamp>.<ext>.
func (s *Service) Generate(ctx context.Context, projectID string, now time.Time) (*Export, error) {
	p, res, err := s.render(ctx, projectID)
	if err != nil {
		return nil, err
	}
	name := fmt.Sprintf("banner_%s_%s%s", p.ID, now.UTC().Format(timestampLayout), res.Format.Extension())
	if err := s.files.Save(ctx, name, res.Data, res.Format.ContentType()); err != nil {
		return nil, fmt.Errorf("save export: %w", err)
	}
	s.log.InfoContext(ctx, "banner exported", "project_id", p.ID, "file", name, "bytes", len(res.Data))
	return &Export{
		URL:        "/api/files/" + name,
		Filename:   name,
		Format:     string(res.Format),
		Resolution: p.ExportSettings.Resolution,
		FileSizeMB: sizeMB(len(res.Data)),
		Report:     res.Report,
	}, nil
}

// Download renders the project for an attachment response named after the
// project.
func (s *Service) Download(ctx context.Context, projectID string, now time.Time) (*Download, error) {
	p, res, err := s.render(ctx, projectID)
	if err != nil {
		return nil, err
	}
	base := strings.ReplaceAll(p.Name, " ", "_")
	return &Download{
		Data:        res.Data,
		ContentType: res.Format.ContentType(),
		Filename:    fmt.Sprintf("%s_%s%s", base, now.UTC().Format(timestampLayout), res.Format.Extension()),
		Report:      res.Report,
	}, nil
}

func sizeMB(n int) float64 {
	return math.Round(float64(n)/(1024*1024)*100) / 100
}
