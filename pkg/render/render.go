// Package render draws a timestamp with a drop shadow into the bottom-right
// corner of an image.
//
// Font size and margin scale with the shorter image side, so the label keeps
// the same visual weight across resolutions.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// ErrImageTooSmall is returned when the computed font size is below one pixel.
var ErrImageTooSmall = errors.New("image too small for label")

// Options controls the label appearance.
type Options struct {
	FontSizeRatio  float64
	MarginRatio    float64
	ShadowOffsetPx int
	ShadowColor    color.Color
	TextColor      color.Color
}

// DefaultOptions returns the classic white-on-black-shadow label.
func DefaultOptions() Options {
	return Options{
		FontSizeRatio:  0.05,
		MarginRatio:    0.02,
		ShadowOffsetPx: 3,
		ShadowColor:    color.Black,
		TextColor:      color.White,
	}
}

// Layout is the computed placement of a label. X and Y locate the top-left
// corner of the text's ink box.
type Layout struct {
	FontSize   int
	Margin     int
	TextWidth  int
	TextHeight int
	X          int
	Y          int
}

// Sizes returns the font size and margin in pixels for a w x h image.
func Sizes(w, h int, fontSizeRatio, marginRatio float64) (fontSize int, margin int) {
	short := float64(min(w, h))
	return int(short * fontSizeRatio), int(short * marginRatio)
}

// Place anchors a text box of tw x th to the bottom-right corner, inset by margin.
func Place(w, h, tw, th, margin int) (x int, y int) {
	return w - tw - margin, h - th - margin
}

// LoadFont parses the TrueType or OpenType font at path. An empty path
// selects the embedded Go Regular font.
func LoadFont(path string) (*opentype.Font, error) {
	data := goregular.TTF
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read font: %w", err)
		}
		data = b
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return f, nil
}

// Renderer stamps labels using one parsed font.
type Renderer struct {
	font *opentype.Font
	opts Options
}

func New(f *opentype.Font, opts Options) *Renderer {
	return &Renderer{font: f, opts: opts}
}

// Stamp returns a copy of img with text drawn in the bottom-right corner.
// The shadow is the text repeated in ShadowColor at offsets (-k, -k) for
// k in [0, ShadowOffsetPx), after which the text is drawn in TextColor.
func (r *Renderer) Stamp(img image.Image, text string) (*image.NRGBA, Layout, error) {
	dst := imaging.Clone(img)
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()

	fontSize, margin := Sizes(w, h, r.opts.FontSizeRatio, r.opts.MarginRatio)
	if fontSize < 1 {
		return nil, Layout{}, fmt.Errorf("%w: %dx%d gives font size %d", ErrImageTooSmall, w, h, fontSize)
	}

	face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    float64(fontSize),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, Layout{}, fmt.Errorf("create font face: %w", err)
	}
	defer face.Close()

	bounds, _ := font.BoundString(face, text)
	tw := (bounds.Max.X - bounds.Min.X).Ceil()
	th := (bounds.Max.Y - bounds.Min.Y).Ceil()
	x, y := Place(w, h, tw, th, margin)

	layout := Layout{
		FontSize:   fontSize,
		Margin:     margin,
		TextWidth:  tw,
		TextHeight: th,
		X:          x,
		Y:          y,
	}

	// Dot is the baseline origin; shift it so the ink box starts at (x, y).
	dot := func(px, py int) fixed.Point26_6 {
		return fixed.Point26_6{X: fixed.I(px) - bounds.Min.X, Y: fixed.I(py) - bounds.Min.Y}
	}

	for k := 0; k < r.opts.ShadowOffsetPx; k++ {
		drawText(dst, face, text, r.opts.ShadowColor, dot(x-k, y-k))
	}
	drawText(dst, face, text, r.opts.TextColor, dot(x, y))

	return dst, layout, nil
}

func drawText(dst draw.Image, face font.Face, text string, c color.Color, at fixed.Point26_6) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  at,
	}
	d.DrawString(text)
}
