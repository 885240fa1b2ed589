package imagepkg

import (
	"encoding/json"
	"fmt"
	"image"
)

const (
	MinGridSize = 1
	MaxGridSize = 6
)

// MaxFontSize bounds an overlay's font size in reference-canvas units. After
// scaling, text is at most half the output height.
const MaxFontSize = 400

// GridSpec is the rows x cols layout of a banner. Cells are indexed row-major.
type GridSpec struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

func (g GridSpec) Capacity() int {
	return g.Rows * g.Cols
}

func (g GridSpec) Validate() error {
	if g.Rows < MinGridSize || g.Rows > MaxGridSize || g.Cols < MinGridSize || g.Cols > MaxGridSize {
		return fmt.Errorf("%w: %dx%d, rows and cols must be within [%d,%d]",
			ErrInvalidGrid, g.Rows, g.Cols, MinGridSize, MaxGridSize)
	}
	return nil
}

// CellRect is a grid cell in output canvas pixels.
type CellRect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (c CellRect) Rect() image.Rectangle {
	return image.Rect(c.X, c.Y, c.X+c.Width, c.Y+c.Height)
}

type TextPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TextStyle mirrors what the editor stores. Rendering only honors FontSize,
// Color, BackgroundColor and Padding; the face is always the built-in one.
type TextStyle struct {
	FontSize        int    `json:"font_size"`
	FontFamily      string `json:"font_family"`
	Color           string `json:"color"`
	FontWeight      string `json:"font_weight"`
	FontStyle       string `json:"font_style"`
	TextAlign       string `json:"text_align"`
	BackgroundColor string `json:"background_color"`
	Padding         int    `json:"padding"`
	BorderRadius    int    `json:"border_radius"`
}

// DefaultTextStyle is the style a new overlay starts with.
func DefaultTextStyle() TextStyle {
	return TextStyle{
		FontSize:        24,
		FontFamily:      "Arial",
		Color:           "#000000",
		FontWeight:      "normal",
		FontStyle:       "normal",
		TextAlign:       "left",
		BackgroundColor: "transparent",
		Padding:         10,
	}
}

// UnmarshalJSON fills fields missing from data with DefaultTextStyle.
func (s *TextStyle) UnmarshalJSON(data []byte) error {
	type plain TextStyle
	v := plain(DefaultTextStyle())
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = TextStyle(v)
	return nil
}

type TextOverlay struct {
	ID       string       `json:"id"`
	Text     string       `json:"text"`
	Style    TextStyle    `json:"style"`
	Position TextPosition `json:"position"`
}

func (o *TextOverlay) UnmarshalJSON(data []byte) error {
	type plain TextOverlay
	v := plain{Style: DefaultTextStyle(), Position: TextPosition{X: 50, Y: 50}}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = TextOverlay(v)
	return nil
}

type ExportSettings struct {
	Format     string `json:"format"`
	Quality    int    `json:"quality"`
	Resolution string `json:"resolution"`
}

func (e *ExportSettings) UnmarshalJSON(data []byte) error {
	type plain ExportSettings
	v := plain{Format: string(FormatPNG), Quality: DefaultQuality, Resolution: DefaultResolution}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*e = ExportSettings(v)
	return nil
}

// Banner is the immutable snapshot a single render works from.
type Banner struct {
	Grid            GridSpec       `json:"grid_size"`
	BackgroundColor string         `json:"background_color"`
	Images          []string       `json:"images"`
	TextOverlays    []TextOverlay  `json:"text_overlays"`
	Export          ExportSettings `json:"export_settings"`
}

// Source is a decoded image handed to the compositor. A nil Image marks an
// entry that could not be resolved.
type Source struct {
	Image    image.Image
	HasAlpha bool
}

// NewSource wraps img, detecting transparency when the image can report it.
func NewSource(img image.Image) Source {
	if img == nil {
		return Source{}
	}
	hasAlpha := true
	if o, ok := img.(interface{ Opaque() bool }); ok {
		hasAlpha = !o.Opaque()
	}
	return Source{Image: img, HasAlpha: hasAlpha}
}
