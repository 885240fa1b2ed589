package imagepkg

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// Encode writes img as format. PNG is lossless and ignores quality; JPEG
// quality is clamped into [MinQuality, MaxQuality].
func Encode(w io.Writer, img image.Image, format Format, quality int) error {
	if img == nil || img.Bounds().Empty() {
		return fmt.Errorf("%w: empty canvas", ErrEncode)
	}
	var err error
	switch format {
	case FormatPNG:
		err = imaging.Encode(w, img, imaging.PNG)
	case FormatJPG:
		err = imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(ClampQuality(quality)))
	default:
		return fmt.Errorf("%w: unsupported format %q", ErrEncode, format)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncode, format, err)
	}
	return nil
}

func EncodeBytes(img image.Image, format Format, quality int) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := Encode(buf, img, format, quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
