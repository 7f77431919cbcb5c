package exifmeta

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// ErrNoExif is returned when a file carries no decodable EXIF block.
var ErrNoExif = errors.New("no exif data")

// Tags holds the EXIF values used by the pipeline.
type Tags struct {
	// DateTimeOriginal is the raw tag value, e.g. "2012:11:04 05:42:02".
	DateTimeOriginal    string
	HasDateTimeOriginal bool

	Orientation    int
	HasOrientation bool

	// CapturedAt is the best-effort parsed capture time. Zero if unknown.
	CapturedAt time.Time
}

// ReadFile decodes the EXIF block of the file at path.
func ReadFile(path string) (Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return Tags{}, err
	}
	defer f.Close()

	return Decode(f)
}

// Decode reads EXIF data from r.
//
// Non-critical decode errors keep whatever tags were recovered. Critical
// errors, including the absence of an APP1 segment, return ErrNoExif.
func Decode(r io.Reader) (Tags, error) {
	x, err := exif.Decode(r)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return Tags{}, fmt.Errorf("%w: %v", ErrNoExif, err)
	}

	var tags Tags
	if s, ok := stringTag(x, exif.DateTimeOriginal); ok {
		tags.DateTimeOriginal = s
		tags.HasDateTimeOriginal = true
	}
	if v, ok := intTag(x, exif.Orientation); ok {
		tags.Orientation = v
		tags.HasOrientation = true
	}
	if tm, err := x.DateTime(); err == nil {
		tags.CapturedAt = tm
	}

	return tags, nil
}

func stringTag(x *exif.Exif, name exif.FieldName) (string, bool) {
	tag, err := x.Get(name)
	if err != nil {
		return "", false
	}
	s, err := tag.StringVal()
	if err != nil {
		return "", false
	}
	return s, true
}

func intTag(x *exif.Exif, name exif.FieldName) (int, bool) {
	tag, err := x.Get(name)
	if err != nil {
		return 0, false
	}
	v, err := tag.Int(0)
	if err != nil {
		return 0, false
	}
	return v, true
}
