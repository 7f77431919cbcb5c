package save

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

var (
	// ErrDestinationExists is returned when overwriting is disabled and the output exists
	ErrDestinationExists = errors.New("destination file already exists")
)

// Options configures how outputs are written.
type Options struct {
	// Quality is the JPEG quality, 1 to 100.
	Quality int

	// Overwrite replaces an existing destination file.
	Overwrite bool
}

func DefaultOptions() Options {
	return Options{
		Quality:   jpeg.DefaultQuality,
		Overwrite: true,
	}
}

// Encode writes img to w as JPEG.
func Encode(w io.Writer, img image.Image, quality int) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
}

// JPEG encodes img and writes it to path.
//
// It will:
// - Create the destination directory if it doesn't exist
// - Refuse existing files unless Overwrite is true
// - Remove the partial file if encoding fails
func JPEG(path string, img image.Image, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE
	if !opts.Overwrite {
		flags |= os.O_EXCL
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return ErrDestinationExists
		}
		return fmt.Errorf("create destination: %w", err)
	}

	bw := bufio.NewWriter(f)
	if err := Encode(bw, img, opts.Quality); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("encode jpeg: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("write: %w", err)
	}

	// Ensure data is written to disk
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync: %w", err)
	}
	return f.Close()
}
