package imagepkg

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// FetchFunc resolves image identifiers to decoded images. The result must be
// aligned with ids; an id that cannot be resolved yields a Source with a nil
// Image rather than an error.
type FetchFunc func(ctx context.Context, ids []string) []Source

// Result is an encoded banner plus the per-item outcomes of producing it.
type Result struct {
	Data   []byte
	Format Format
	Width  int
	Height int
	Report *Report
}

// Renderer turns banner snapshots into encoded images. It holds no per-render
// state and is safe for concurrent use.
type Renderer struct {
	fetch FetchFunc
	opts  []Option
}

func NewRenderer(fetch FetchFunc, opts ...Option) *Renderer {
	return &Renderer{fetch: fetch, opts: opts}
}

// Render fetches the banner's images, composes and encodes it. Any failure is
// a *RenderError and no bytes are returned with it.
func (r *Renderer) Render(ctx context.Context, banner Banner) (*Result, error) {
	ctx, span := newOptions(r.opts).tracer.Start(ctx, "render")
	defer span.End()
	span.SetAttributes(
		attribute.Int("banner.rows", banner.Grid.Rows),
		attribute.Int("banner.cols", banner.Grid.Cols),
		attribute.Int("banner.images", len(banner.Images)),
		attribute.String("banner.format", banner.Export.Format),
		attribute.String("banner.resolution", banner.Export.Resolution),
	)

	res, err := r.render(ctx, banner)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("render.bytes", len(res.Data)),
		attribute.Int("render.skipped", res.Report.Skipped()),
	)
	return res, nil
}

func (r *Renderer) render(ctx context.Context, banner Banner) (*Result, error) {
	if err := banner.Grid.Validate(); err != nil {
		return nil, asRenderError("validate grid", err)
	}
	format, err := ParseFormat(banner.Export.Format)
	if err != nil {
		return nil, asRenderError("export format", err)
	}

	ids := banner.Images
	if capacity := banner.Grid.Capacity(); len(ids) > capacity {
		ids = ids[:capacity]
	}
	var sources []Source
	if len(ids) > 0 && r.fetch != nil {
		sources = r.fetch(ctx, ids)
	}
	sources = alignSources(sources, len(ids))
	if err := ctx.Err(); err != nil {
		return nil, &RenderError{Kind: KindCancelled, Detail: "fetching images", Err: err}
	}

	canvas, report, err := Compose(ctx, banner, sources, r.opts...)
	if err != nil {
		return nil, err
	}
	data, err := EncodeBytes(canvas, format, banner.Export.Quality)
	if err != nil {
		return nil, asRenderError("encode", err)
	}
	b := canvas.Bounds()
	return &Result{
		Data:   data,
		Format: format,
		Width:  b.Dx(),
		Height: b.Dy(),
		Report: report,
	}, nil
}

// alignSources pads or truncates a fetch result to n entries.
func alignSources(sources []Source, n int) []Source {
	out := make([]Source, n)
	copy(out, sources)
	return out
}
