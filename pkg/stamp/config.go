package stamp

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/quidome/photo-stamp/pkg/orient"
	"github.com/quidome/photo-stamp/pkg/plan"
	"github.com/quidome/photo-stamp/pkg/render"
	"github.com/quidome/photo-stamp/pkg/save"
)

// Config is the immutable pipeline configuration. It is passed by value.
type Config struct {
	ShadowOffsetPx int
	ShadowColor    color.Color
	TextColor      color.Color
	FontSizeRatio  float64
	MarginRatio    float64

	// FontPath selects a TrueType/OpenType file. Empty uses the embedded Go font.
	FontPath string

	Orientation orient.Mode

	JPEGQuality int
	Overwrite   bool

	Output plan.Options
}

// DefaultConfig mirrors the classic tool: 3px black shadow, white text,
// font at 5% and margin at 2% of the shorter side.
func DefaultConfig() Config {
	r := render.DefaultOptions()
	s := save.DefaultOptions()
	return Config{
		ShadowOffsetPx: r.ShadowOffsetPx,
		ShadowColor:    r.ShadowColor,
		TextColor:      r.TextColor,
		FontSizeRatio:  r.FontSizeRatio,
		MarginRatio:    r.MarginRatio,
		Orientation:    orient.ModeFull,
		JPEGQuality:    s.Quality,
		Overwrite:      s.Overwrite,
		Output:         plan.DefaultOptions(),
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.ShadowOffsetPx < 0:
		return fmt.Errorf("shadow offset must be >= 0, got %d", c.ShadowOffsetPx)
	case c.ShadowColor == nil:
		return errors.New("shadow color is required")
	case c.TextColor == nil:
		return errors.New("text color is required")
	case c.FontSizeRatio <= 0 || c.FontSizeRatio > 1:
		return fmt.Errorf("font size ratio must be in (0, 1], got %g", c.FontSizeRatio)
	case c.MarginRatio < 0 || c.MarginRatio > 0.5:
		return fmt.Errorf("margin ratio must be in [0, 0.5], got %g", c.MarginRatio)
	case c.JPEGQuality < 1 || c.JPEGQuality > 100:
		return fmt.Errorf("jpeg quality must be in [1, 100], got %d", c.JPEGQuality)
	case c.Output.Ext == "":
		return errors.New("output extension is required")
	case c.Output.Suffix == "" && c.Output.Dir == "":
		return errors.New("output suffix or output directory is required, or sources would be overwritten")
	}
	if _, err := orient.ParseMode(string(c.Orientation)); err != nil {
		return err
	}
	return nil
}

func (c Config) renderOptions() render.Options {
	return render.Options{
		FontSizeRatio:  c.FontSizeRatio,
		MarginRatio:    c.MarginRatio,
		ShadowOffsetPx: c.ShadowOffsetPx,
		ShadowColor:    c.ShadowColor,
		TextColor:      c.TextColor,
	}
}

func (c Config) saveOptions() save.Options {
	return save.Options{
		Quality:   c.JPEGQuality,
		Overwrite: c.Overwrite,
	}
}
