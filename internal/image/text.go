package imagepkg

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// ReferenceCanvasSize is the square canvas overlay positions and font sizes
// are authored against in the editor.
const ReferenceCanvasSize = 800

// OverlayPlacement is an overlay's anchor and font size in output pixels.
type OverlayPlacement struct {
	X        int
	Y        int
	FontSize int
}

func referenceScale(canvasWidth, canvasHeight int) (sx, sy float64) {
	return float64(canvasWidth) / ReferenceCanvasSize, float64(canvasHeight) / ReferenceCanvasSize
}

// ScaleOverlay maps a reference-canvas position and font size onto a
// canvasWidth x canvasHeight output.
func ScaleOverlay(pos TextPosition, fontSize, canvasWidth, canvasHeight int) OverlayPlacement {
	sx, sy := referenceScale(canvasWidth, canvasHeight)
	return OverlayPlacement{
		X:        int(math.Round(pos.X * sx)),
		Y:        int(math.Round(pos.Y * sy)),
		FontSize: int(math.Round(float64(fontSize) * math.Min(sx, sy))),
	}
}

var builtinFont = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(goregular.TTF)
})

// drawOverlay paints one text overlay anchored at its top-left corner. The
// returned error is a skip reason, never fatal for the render.
func drawOverlay(canvas *image.RGBA, ov TextOverlay) error {
	if strings.TrimSpace(ov.Text) == "" {
		return errors.New("empty text")
	}
	if ov.Style.FontSize > MaxFontSize {
		return fmt.Errorf("font size %d above limit %d", ov.Style.FontSize, MaxFontSize)
	}
	fg, err := ParseHexColor(ov.Style.Color)
	if err != nil {
		return fmt.Errorf("text color: %w", err)
	}

	b := canvas.Bounds()
	pl := ScaleOverlay(ov.Position, ov.Style.FontSize, b.Dx(), b.Dy())
	if pl.FontSize <= 0 {
		return fmt.Errorf("font size %d scales to %d", ov.Style.FontSize, pl.FontSize)
	}

	otf, err := builtinFont()
	if err != nil {
		return fmt.Errorf("builtin font: %w", err)
	}
	face, err := opentype.NewFace(otf, &opentype.FaceOptions{
		Size:    float64(pl.FontSize),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return fmt.Errorf("font face: %w", err)
	}
	defer face.Close()

	metrics := face.Metrics()
	lines := strings.Split(ov.Text, "\n")
	lineHeight := metrics.Height.Ceil()

	if bg, err := ParseHexColor(ov.Style.BackgroundColor); err == nil {
		sx, sy := referenceScale(b.Dx(), b.Dy())
		pad := int(math.Round(float64(max(ov.Style.Padding, 0)) * math.Min(sx, sy)))
		width := 0
		for _, line := range lines {
			width = max(width, font.MeasureString(face, line).Ceil())
		}
		box := image.Rect(pl.X-pad, pl.Y-pad, pl.X+width+pad, pl.Y+lineHeight*len(lines)+pad)
		draw.Draw(canvas, box.Intersect(b), image.NewUniform(bg), image.Point{}, draw.Src)
	}

	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(fg),
		Face: face,
	}
	for i, line := range lines {
		d.Dot = fixed.Point26_6{
			X: fixed.I(pl.X),
			Y: fixed.I(pl.Y+i*lineHeight) + metrics.Ascent,
		}
		d.DrawString(line)
	}
	return nil
}
