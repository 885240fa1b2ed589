package imagepkg

import (
	"errors"
	"fmt"
)

var (
	ErrRender             = errors.New("render failed")
	ErrInvalidGrid        = errors.New("invalid grid")
	ErrDegenerateGeometry = errors.New("degenerate geometry")
	ErrEncode             = errors.New("encode failed")
	ErrCancelled          = errors.New("render cancelled")
)

// ErrorKind tags a fatal render failure.
type ErrorKind string

const (
	KindInvalidGrid        ErrorKind = "invalid_grid"
	KindDegenerateGeometry ErrorKind = "degenerate_geometry"
	KindRender             ErrorKind = "render"
	KindEncode             ErrorKind = "encode"
	KindCancelled          ErrorKind = "cancelled"
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindInvalidGrid:
		return ErrInvalidGrid
	case KindDegenerateGeometry:
		return ErrDegenerateGeometry
	case KindEncode:
		return ErrEncode
	case KindCancelled:
		return ErrCancelled
	default:
		return ErrRender
	}
}

// RenderError is the only error shape Compose and Render return. It never
// accompanies a partially written output.
type RenderError struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind and ErrRender for every kind.
func (e *RenderError) Is(target error) bool {
	return target == ErrRender || target == e.Kind.sentinel()
}

// asRenderError classifies err into a RenderError, keeping one that already is.
func asRenderError(detail string, err error) *RenderError {
	var re *RenderError
	if errors.As(err, &re) {
		return re
	}
	kind := KindRender
	switch {
	case errors.Is(err, ErrInvalidGrid):
		kind = KindInvalidGrid
	case errors.Is(err, ErrDegenerateGeometry):
		kind = KindDegenerateGeometry
	case errors.Is(err, ErrEncode):
		kind = KindEncode
	case errors.Is(err, ErrCancelled):
		kind = KindCancelled
	}
	return &RenderError{Kind: kind, Detail: detail, Err: err}
}
