package imagepkg

import (
	"fmt"
	"strings"
)

const (
	Resolution1080p = "1080p"
	Resolution2K    = "2K"
	Resolution4K    = "4K"

	DefaultResolution = Resolution2K

	MinQuality     = 10
	MaxQuality     = 100
	DefaultQuality = 90
)

// ResolveResolution maps a named export resolution to canvas dimensions.
// Unknown names fall back to 2K.
func ResolveResolution(name string) (width, height int) {
	switch name {
	case Resolution1080p:
		return 1920, 1080
	case Resolution4K:
		return 4096, 4096
	default:
		return 2048, 2048
	}
}

// KnownResolution reports whether name is one of the named resolutions.
func KnownResolution(name string) bool {
	switch name {
	case Resolution1080p, Resolution2K, Resolution4K:
		return true
	}
	return false
}

type Format string

const (
	FormatPNG Format = "png"
	FormatJPG Format = "jpg"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPG, nil
	}
	return "", fmt.Errorf("%w: unsupported format %q", ErrEncode, s)
}

func (f Format) Extension() string {
	return "." + string(f)
}

func (f Format) ContentType() string {
	if f == FormatJPG {
		return "image/jpeg"
	}
	return "image/png"
}

// ClampQuality keeps a JPEG quality inside [MinQuality, MaxQuality].
func ClampQuality(q int) int {
	return min(max(q, MinQuality), MaxQuality)
}
