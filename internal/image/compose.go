package imagepkg

import (
	"context"
	"image"
	"image/draw"
	"log/slog"
	"runtime"

	"github.com/disintegration/imaging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "bannermaker/render"

type options struct {
	workers int
	logger  *slog.Logger
	tracer  trace.Tracer
}

type Option func(*options)

// WithWorkers bounds how many cells are painted concurrently.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTracerProvider sets where render spans go. The global provider is used
// otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracer = tp.Tracer(tracerName)
		}
	}
}

func newOptions(opts []Option) options {
	o := options{workers: runtime.NumCPU(), logger: slog.Default(), tracer: otel.Tracer(tracerName)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Compose renders banner onto a new canvas sized by its export resolution.
// sources are aligned by index with banner.Images. A missing or unusable
// image skips its cell and a bad overlay skips only itself; Compose fails
// only for an invalid grid, a degenerate canvas or cancellation.
func Compose(ctx context.Context, banner Banner, sources []Source, opts ...Option) (*image.RGBA, *Report, error) {
	o := newOptions(opts)

	width, height := ResolveResolution(banner.Export.Resolution)
	cells, err := ResolveCells(width, height, banner.Grid)
	if err != nil {
		return nil, nil, asRenderError("resolve grid", err)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(backgroundColor(banner.BackgroundColor)), image.Point{}, draw.Src)

	n := min(len(sources), len(cells))
	report := &Report{
		Cells:    make([]ItemResult, n),
		Overlays: make([]ItemResult, 0, len(banner.TextOverlays)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report.Cells[i] = paintCell(canvas, i, sources[i], cells[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, &RenderError{Kind: KindCancelled, Detail: "painting cells", Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, &RenderError{Kind: KindCancelled, Detail: "painting cells", Err: err}
	}

	for i, ov := range banner.TextOverlays {
		if err := ctx.Err(); err != nil {
			return nil, nil, &RenderError{Kind: KindCancelled, Detail: "drawing overlays", Err: err}
		}
		if err := drawOverlay(canvas, ov); err != nil {
			report.Overlays = append(report.Overlays, skipped(i, err.Error()))
			continue
		}
		report.Overlays = append(report.Overlays, painted(i))
	}

	for _, it := range report.Cells {
		if it.Status == StatusSkipped {
			o.logger.WarnContext(ctx, "banner cell skipped", "cell", it.Index, "reason", it.Reason)
		}
	}
	for _, it := range report.Overlays {
		if it.Status == StatusSkipped {
			o.logger.WarnContext(ctx, "text overlay skipped", "overlay", it.Index, "reason", it.Reason)
		}
	}
	return canvas, report, nil
}

// paintCell contain-fits src into cell and blits it. It writes only inside
// cell, so distinct cells may be painted concurrently.
func paintCell(canvas *image.RGBA, i int, src Source, cell CellRect) ItemResult {
	if src.Image == nil {
		return skipped(i, "image unavailable")
	}
	b := src.Image.Bounds()
	p, err := Fit(b.Dx(), b.Dy(), cell)
	if err != nil {
		return skipped(i, err.Error())
	}

	scaled := imaging.Resize(src.Image, p.DrawWidth, p.DrawHeight, imaging.Lanczos)
	op := draw.Src
	if src.HasAlpha {
		op = draw.Over
	}
	draw.Draw(canvas, p.Rect().Rect(), scaled, image.Point{}, op)
	return painted(i)
}
