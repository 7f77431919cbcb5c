package stamp

import (
	"errors"
	"fmt"
)

// Kind classifies the stage a file failed in.
type Kind string

const (
	KindNone     Kind = ""
	KindDecode   Kind = "decode"
	KindMetadata Kind = "metadata"
	KindRender   Kind = "render"
	KindSave     Kind = "save"
	KindOther    Kind = "other"
)

// DecodeError means the source could not be read or decoded as an image.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode %q: %v", e.Path, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// MetadataError means no stamp text could be resolved for the source.
type MetadataError struct {
	Path string
	Err  error
}

func (e *MetadataError) Error() string { return fmt.Sprintf("resolve text for %q: %v", e.Path, e.Err) }
func (e *MetadataError) Unwrap() error { return e.Err }

// RenderError means drawing the label failed.
type RenderError struct {
	Path string
	Err  error
}

func (e *RenderError) Error() string { return fmt.Sprintf("render %q: %v", e.Path, e.Err) }
func (e *RenderError) Unwrap() error { return e.Err }

// SaveError means the output file could not be written.
type SaveError struct {
	Path string
	Err  error
}

func (e *SaveError) Error() string { return fmt.Sprintf("save %q: %v", e.Path, e.Err) }
func (e *SaveError) Unwrap() error { return e.Err }

// KindOf returns the stage kind of err.
func KindOf(err error) Kind {
	var (
		decodeErr   *DecodeError
		metadataErr *MetadataError
		renderErr   *RenderError
		saveErr     *SaveError
	)
	switch {
	case err == nil:
		return KindNone
	case errors.As(err, &decodeErr):
		return KindDecode
	case errors.As(err, &metadataErr):
		return KindMetadata
	case errors.As(err, &renderErr):
		return KindRender
	case errors.As(err, &saveErr):
		return KindSave
	default:
		return KindOther
	}
}
