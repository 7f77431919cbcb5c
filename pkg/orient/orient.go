// Package orient applies EXIF orientation to decoded images.
package orient

import (
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
)

// Mode selects how many orientation values are corrected.
type Mode string

const (
	// ModeFull handles all eight EXIF orientation values.
	ModeFull Mode = "full"
	// ModeLegacy only rotates for values 3, 6 and 8 and leaves mirrored
	// orientations untouched.
	ModeLegacy Mode = "legacy"
)

// ParseMode accepts "full" or "legacy", case-insensitive.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeFull, ModeLegacy:
		return m, nil
	case "":
		return ModeFull, nil
	default:
		return "", fmt.Errorf("unknown orientation mode %q (want %q or %q)", s, ModeFull, ModeLegacy)
	}
}

// Correct returns img transformed so that it displays upright for the given
// EXIF orientation value. Rotations expand the canvas, so a 90 degree turn
// swaps width and height rather than cropping.
//
// The boolean reports whether a transform was applied. When it is false the
// returned image is img itself.
func Correct(img image.Image, orientation int, mode Mode) (image.Image, bool) {
	switch orientation {
	case 3:
		return imaging.Rotate180(img), true
	case 6:
		return imaging.Rotate270(img), true
	case 8:
		return imaging.Rotate90(img), true
	}

	if mode == ModeLegacy {
		return img, false
	}

	switch orientation {
	case 2:
		return imaging.FlipH(img), true
	case 4:
		return imaging.FlipV(img), true
	case 5:
		return imaging.Transpose(img), true
	case 7:
		return imaging.Transverse(img), true
	}
	return img, false
}
