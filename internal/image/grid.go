package imagepkg

import (
	"fmt"
	"math"
)

// ResolveCells splits a canvas into grid.Rows*grid.Cols equal cells in
// row-major order. The integer-division remainder is left unused along the
// right and bottom edges.
func ResolveCells(canvasWidth, canvasHeight int, grid GridSpec) ([]CellRect, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	cellW := canvasWidth / grid.Cols
	cellH := canvasHeight / grid.Rows
	if canvasWidth <= 0 || canvasHeight <= 0 || cellW == 0 || cellH == 0 {
		return nil, fmt.Errorf("%w: canvas %dx%d cannot hold a %dx%d grid",
			ErrDegenerateGeometry, canvasWidth, canvasHeight, grid.Rows, grid.Cols)
	}

	cells := make([]CellRect, 0, grid.Capacity())
	for row := 0; row < grid.Rows; row++ {
		for col := 0; col < grid.Cols; col++ {
			cells = append(cells, CellRect{
				X:      col * cellW,
				Y:      row * cellH,
				Width:  cellW,
				Height: cellH,
			})
		}
	}
	return cells, nil
}

// Placement is where a contain-fitted image lands on the canvas.
type Placement struct {
	DrawWidth  int
	DrawHeight int
	OffsetX    int
	OffsetY    int
}

func (p Placement) Rect() CellRect {
	return CellRect{X: p.OffsetX, Y: p.OffsetY, Width: p.DrawWidth, Height: p.DrawHeight}
}

// Fit scales a srcWidth x srcHeight image to the largest size that fits inside
// cell without distortion and centers it there.
func Fit(srcWidth, srcHeight int, cell CellRect) (Placement, error) {
	if srcWidth <= 0 || srcHeight <= 0 || cell.Width <= 0 || cell.Height <= 0 {
		return Placement{}, fmt.Errorf("%w: source %dx%d into cell %dx%d",
			ErrDegenerateGeometry, srcWidth, srcHeight, cell.Width, cell.Height)
	}

	srcRatio := float64(srcWidth) / float64(srcHeight)
	cellRatio := float64(cell.Width) / float64(cell.Height)

	var p Placement
	if srcRatio > cellRatio {
		p.DrawWidth = cell.Width
		p.DrawHeight = clampDim(math.Round(float64(cell.Width)/srcRatio), cell.Height)
	} else {
		p.DrawHeight = cell.Height
		p.DrawWidth = clampDim(math.Round(float64(cell.Height)*srcRatio), cell.Width)
	}
	p.OffsetX = cell.X + (cell.Width-p.DrawWidth)/2
	p.OffsetY = cell.Y + (cell.Height-p.DrawHeight)/2
	return p, nil
}

// clampDim keeps a scaled dimension drawable and inside its cell.
func clampDim(v float64, limit int) int {
	return min(max(int(v), 1), limit)
}
