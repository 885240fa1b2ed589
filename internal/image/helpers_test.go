package imagepkg

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	red   = color.RGBA{R: 0xff, A: 0xff}
	green = color.RGBA{G: 0xff, A: 0xff}
	blue  = color.RGBA{B: 0xff, A: 0xff}
	black = color.RGBA{A: 0xff}
	white = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

func solidImage(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func gradientImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 13), B: uint8((x ^ y) * 3), A: 0xff})
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

// pngWithSize returns a valid 1x1 PNG whose header claims w x h. Only the
// header decodes; the pixel data does not match.
func pngWithSize(t *testing.T, w, h int) []byte {
	t.Helper()
	data := pngBytes(t, solidImage(1, 1, red))
	// IHDR: length at 8, type at 12, width and height at 16 and 20, crc at 29
	binary.BigEndian.PutUint32(data[16:], uint32(w))
	binary.BigEndian.PutUint32(data[20:], uint32(h))
	binary.BigEndian.PutUint32(data[29:], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func requireColorNear(t *testing.T, want color.RGBA, got color.Color, msgAndArgs ...any) {
	t.Helper()
	r, g, b, a := got.RGBA()
	near := func(x uint8, y uint32) bool {
		d := int(x) - int(y>>8)
		return d >= -2 && d <= 2
	}
	require.Truef(t, near(want.R, r) && near(want.G, g) && near(want.B, b) && near(want.A, a),
		"want %v, got (%d,%d,%d,%d) %v", want, r>>8, g>>8, b>>8, a>>8, msgAndArgs)
}

func banner2x2(resolution string, ids ...string) Banner {
	return Banner{
		Grid:            GridSpec{Rows: 2, Cols: 2},
		BackgroundColor: "#ffffff",
		Images:          ids,
		Export:          ExportSettings{Format: "png", Quality: 90, Resolution: resolution},
	}
}
