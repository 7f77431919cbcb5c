// Package config loads the stamping configuration from defaults, an optional
// config file, PHOTOSTAMP_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/image/colornames"

	"github.com/quidome/photo-stamp/pkg/orient"
	"github.com/quidome/photo-stamp/pkg/stamp"
)

const EnvPrefix = "PHOTOSTAMP"

// Keys understood in config files and, upper-cased with EnvPrefix, in the environment.
const (
	KeyShadowOffsetPx = "shadow_offset_px"
	KeyShadowColor    = "shadow_color"
	KeyTextColor      = "text_color"
	KeyFontSizeRatio  = "font_size_ratio"
	KeyMarginRatio    = "margin_ratio"
	KeyFontPath       = "font_path"
	KeyOrientation    = "orientation"
	KeyJPEGQuality    = "jpeg_quality"
	KeyOverwrite      = "overwrite"
	KeyOutputDir      = "output_dir"
	KeyOutputSuffix   = "output_suffix"
)

// FlagKeys maps flag names to the keys they override.
var FlagKeys = map[string]string{
	"shadow-offset": KeyShadowOffsetPx,
	"shadow-color":  KeyShadowColor,
	"text-color":    KeyTextColor,
	"font-ratio":    KeyFontSizeRatio,
	"margin-ratio":  KeyMarginRatio,
	"font":          KeyFontPath,
	"orientation":   KeyOrientation,
	"quality":       KeyJPEGQuality,
	"overwrite":     KeyOverwrite,
	"out-dir":       KeyOutputDir,
	"suffix":        KeyOutputSuffix,
}

// New returns a viper instance with defaults and environment binding. A
// non-empty configFile is read and must exist.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()

	def := stamp.DefaultConfig()
	v.SetDefault(KeyShadowOffsetPx, def.ShadowOffsetPx)
	v.SetDefault(KeyShadowColor, "black")
	v.SetDefault(KeyTextColor, "white")
	v.SetDefault(KeyFontSizeRatio, def.FontSizeRatio)
	v.SetDefault(KeyMarginRatio, def.MarginRatio)
	v.SetDefault(KeyFontPath, def.FontPath)
	v.SetDefault(KeyOrientation, string(def.Orientation))
	v.SetDefault(KeyJPEGQuality, def.JPEGQuality)
	v.SetDefault(KeyOverwrite, def.Overwrite)
	v.SetDefault(KeyOutputDir, def.Output.Dir)
	v.SetDefault(KeyOutputSuffix, def.Output.Suffix)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	return v, nil
}

// BindFlags binds every flag in FlagKeys that exists in flags.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range FlagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load builds and validates a pipeline configuration from v.
func Load(v *viper.Viper) (stamp.Config, error) {
	cfg := stamp.DefaultConfig()

	shadow, err := ParseColor(v.GetString(KeyShadowColor))
	if err != nil {
		return stamp.Config{}, fmt.Errorf("%s: %w", KeyShadowColor, err)
	}
	text, err := ParseColor(v.GetString(KeyTextColor))
	if err != nil {
		return stamp.Config{}, fmt.Errorf("%s: %w", KeyTextColor, err)
	}
	mode, err := orient.ParseMode(v.GetString(KeyOrientation))
	if err != nil {
		return stamp.Config{}, fmt.Errorf("%s: %w", KeyOrientation, err)
	}

	cfg.ShadowOffsetPx = v.GetInt(KeyShadowOffsetPx)
	cfg.ShadowColor = shadow
	cfg.TextColor = text
	cfg.FontSizeRatio = v.GetFloat64(KeyFontSizeRatio)
	cfg.MarginRatio = v.GetFloat64(KeyMarginRatio)
	cfg.FontPath = v.GetString(KeyFontPath)
	cfg.Orientation = mode
	cfg.JPEGQuality = v.GetInt(KeyJPEGQuality)
	cfg.Overwrite = v.GetBool(KeyOverwrite)
	cfg.Output.Dir = v.GetString(KeyOutputDir)
	cfg.Output.Suffix = v.GetString(KeyOutputSuffix)

	if err := cfg.Validate(); err != nil {
		return stamp.Config{}, err
	}
	return cfg, nil
}

// ParseColor accepts SVG colour names ("black", "gold") and hex notation
// ("#fff", "#ffcc00", "#ffcc0080").
func ParseColor(s string) (color.Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := colornames.Map[s]; ok {
		return c, nil
	}

	hex, ok := strings.CutPrefix(s, "#")
	if !ok {
		return nil, fmt.Errorf("unknown color %q", s)
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return nil, fmt.Errorf("invalid hex color %q", s)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), A: uint8(n)}, nil
}
