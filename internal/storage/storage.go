package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxUploadBytes is the per-file upload limit when none is configured.
const DefaultMaxUploadBytes = 50 << 20

var (
	ErrNotFound        = errors.New("file not found")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file too large")
	ErrInvalidPayload  = errors.New("invalid base64 payload")
	ErrInvalidName     = errors.New("invalid file name")
)

// Info describes a stored file.
type Info struct {
	Name        string
	Size        int64
	ContentType string
	ModTime     time.Time
}

// Storage keeps uploaded images and rendered banners by flat file name.
type Storage interface {
	Save(ctx context.Context, name string, data []byte, contentType string) error
	Load(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
	Stat(ctx context.Context, name string) (Info, error)
}

var allowedTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
	"image/bmp":  ".bmp",
}

func normalizeType(contentType string) string {
	ct, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}

// ValidateUpload checks an upload's declared type and size. max <= 0 uses
// DefaultMaxUploadBytes.
func ValidateUpload(contentType string, size, max int64) error {
	if max <= 0 {
		max = DefaultMaxUploadBytes
	}
	if _, ok := allowedTypes[normalizeType(contentType)]; !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	if size > max {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, size, max)
	}
	return nil
}

// ExtensionFor maps an image content type to a file extension, ".jpg" when
// unknown.
func ExtensionFor(contentType string) string {
	if ext, ok := allowedTypes[normalizeType(contentType)]; ok {
		return ext
	}
	return ".jpg"
}

// NewUploadName returns a unique stored name: <uuid>_<YYYYmmdd_HHMMSS><ext>.
func NewUploadName(ext string, now time.Time) string {
	return fmt.Sprintf("%s_%s%s", uuid.NewString(), now.UTC().Format("20060102_150405"), ext)
}

// DecodeBase64 decodes a standard base64 payload, dropping a data URL prefix
// such as "data:image/png;base64," when present. The second return value is
// the content type named in the prefix, if any.
func DecodeBase64(payload string) ([]byte, string, error) {
	var declared string
	if rest, ok := strings.CutPrefix(payload, "data:"); ok {
		meta, data, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", fmt.Errorf("%w: malformed data url", ErrInvalidPayload)
		}
		declared, _, _ = strings.Cut(meta, ";")
		payload = data
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return data, declared, nil
}

// DetectContentType sniffs data, keeping image/* results only. Anything
// else is reported as application/octet-stream.
func DetectContentType(data []byte) string {
	ct := normalizeType(http.DetectContentType(data))
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	return "application/octet-stream"
}

// ContentTypeByName guesses a content type from a stored file's extension.
func ContentTypeByName(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return "application/octet-stream"
	}
	switch strings.ToLower(name[i:]) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	}
	return "application/octet-stream"
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
