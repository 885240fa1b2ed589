package imagepkg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/youruser/bannermaker/internal/util"
	_ "golang.org/x/image/webp"
)

// MaxSourcePixels bounds the decoded area of an uploaded image, about
// 160 MB as RGBA.
const MaxSourcePixels = 40_000_000

var ErrImageTooLarge = errors.New("image dimensions too large")

// CheckDimensions reads only the image header. It fails for data that is
// not a supported image and for an area above MaxSourcePixels.
func CheckDimensions(data []byte) (image.Config, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return cfg, fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return cfg, fmt.Errorf("%w: %dx%d, limit %d pixels", ErrImageTooLarge, cfg.Width, cfg.Height, MaxSourcePixels)
	}
	return cfg, nil
}

// Decode decodes an uploaded image, applying its EXIF orientation. Images
// whose header declares more than MaxSourcePixels are refused before any
// pixel data is allocated.
func Decode(data []byte) (image.Image, error) {
	if _, err := CheckDimensions(data); err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// DownloadImage fetches a public image URL and returns its raw bytes after
// checking its header. Bytes rather than the decoded image are returned so
// the caller can store the original upload.
func DownloadImage(ctx context.Context, url string, maxBytes int64) ([]byte, error) {
	if err := util.CheckPublicURL(url); err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	data, err := util.GetBytes(ctx, url, maxBytes)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	if _, err := CheckDimensions(data); err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	return data, nil
}
