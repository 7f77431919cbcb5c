package stamp

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/quidome/photo-stamp/internal/testimg"
	"github.com/quidome/photo-stamp/pkg/labeltext"
	"github.com/quidome/photo-stamp/pkg/orient"
	"github.com/quidome/photo-stamp/pkg/plan"
	"github.com/quidome/photo-stamp/pkg/render"
)

func TestProcessFile_UsesExifDateTimeOriginal(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "IMG_001.JPG", testimg.JPEG(1200, 900, &testimg.Exif{DateTimeOriginal: "2019:07:14 16:20:00"}))

	p := newPipeline(t, DefaultConfig(), failingProvider{})
	op := plan.Plan([]string{src}, DefaultConfig().Output)[0]

	res := p.ProcessFile(context.Background(), op)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Stage != StageSaved {
		t.Fatalf("expected saved stage, got %q", res.Stage)
	}
	if res.Text != "2019:07:14 16:20:00" || res.TextSource != labeltext.SourceExif {
		t.Fatalf("unexpected text %q from %q", res.Text, res.TextSource)
	}
	if op.DestinationPath != filepath.Join(dir, "IMG_001_with_timestamp.jpg") {
		t.Fatalf("unexpected destination %q", op.DestinationPath)
	}

	out := decodeJPEG(t, op.DestinationPath)
	if out.Bounds().Dx() != 1200 || out.Bounds().Dy() != 900 {
		t.Fatalf("unexpected output size %v", out.Bounds())
	}
	if !hasBrightPixel(out, image.Rect(600, 450, 1200, 900)) {
		t.Fatalf("expected label pixels in the bottom-right quadrant")
	}
	if hasBrightPixel(out, image.Rect(0, 0, 600, 450)) {
		t.Fatalf("expected no label pixels in the top-left quadrant")
	}
}

func TestProcessFile_Orientation6SwapsDimensions(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "portrait.jpg", testimg.JPEG(600, 400, &testimg.Exif{Orientation: 6, DateTimeOriginal: "2019:07:14 16:20:00"}))

	for _, mode := range []orient.Mode{orient.ModeFull, orient.ModeLegacy} {
		t.Run(string(mode), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Orientation = mode
			p := newPipeline(t, cfg, failingProvider{})

			res := p.ProcessFile(context.Background(), plan.Plan([]string{src}, cfg.Output)[0])
			if res.Err != nil {
				t.Fatalf("unexpected error: %v", res.Err)
			}
			if !res.Rotated || res.Orientation != 6 {
				t.Fatalf("expected rotation for orientation 6, got %+v", res)
			}
			if res.Width != 400 || res.Height != 600 {
				t.Fatalf("expected 400x600, got %dx%d", res.Width, res.Height)
			}

			out := decodeJPEG(t, filepath.Join(dir, "portrait_with_timestamp.jpg"))
			if out.Bounds().Dx() != 400 || out.Bounds().Dy() != 600 {
				t.Fatalf("unexpected output size %v", out.Bounds())
			}
		})
	}
}

func TestProcessFile_LegacyLeavesMirroredOrientation(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "mirror.jpg", testimg.JPEG(600, 400, &testimg.Exif{Orientation: 5, DateTimeOriginal: "2019:07:14 16:20:00"}))

	cfg := DefaultConfig()
	cfg.Orientation = orient.ModeLegacy
	res := newPipeline(t, cfg, nil).ProcessFile(context.Background(), plan.Plan([]string{src}, cfg.Output)[0])
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Rotated || res.Width != 600 || res.Height != 400 {
		t.Fatalf("expected untouched 600x400, got %+v", res)
	}
}

func TestProcessFile_NoExifFallsBackToPrompt(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "scan.png", testimg.PNG(300, 200))

	promptOut := new(bytes.Buffer)
	provider := labeltext.NewPrompt(strings.NewReader("grandma's birthday\n"), promptOut)
	p := newPipeline(t, DefaultConfig(), provider)

	res := p.ProcessFile(context.Background(), plan.Plan([]string{src}, DefaultConfig().Output)[0])
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Text != "grandma's birthday" || res.TextSource != labeltext.SourcePrompt {
		t.Fatalf("unexpected text %q from %q", res.Text, res.TextSource)
	}
	if !strings.Contains(promptOut.String(), labeltext.PromptMessage) {
		t.Fatalf("expected prompt to be shown, got %q", promptOut.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "scan_with_timestamp.jpg")); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
}

func TestProcessFile_ErrorKinds(t *testing.T) {
	testCases := []struct {
		name      string
		data      []byte
		provider  labeltext.Provider
		prepare   func(t *testing.T, op plan.Operation)
		wantKind  Kind
		wantStage Stage
	}{
		{
			name:      "corrupt image",
			data:      []byte("definitely not an image"),
			wantKind:  KindDecode,
			wantStage: StageNone,
		},
		{
			name:      "fallback provider fails",
			data:      testimg.JPEG(200, 200, nil),
			provider:  failingProvider{},
			wantKind:  KindMetadata,
			wantStage: StageOrientationChecked,
		},
		{
			name:      "no provider",
			data:      testimg.JPEG(200, 200, nil),
			wantKind:  KindMetadata,
			wantStage: StageOrientationChecked,
		},
		{
			name:      "image too small for a label",
			data:      testimg.JPEG(12, 12, &testimg.Exif{DateTimeOriginal: "2019:07:14 16:20:00"}),
			wantKind:  KindRender,
			wantStage: StageTextResolved,
		},
		{
			name: "destination is a directory",
			data: testimg.JPEG(200, 200, &testimg.Exif{DateTimeOriginal: "2019:07:14 16:20:00"}),
			prepare: func(t *testing.T, op plan.Operation) {
				if err := os.MkdirAll(op.DestinationPath, 0o755); err != nil {
					t.Fatalf("mkdir: %v", err)
				}
			},
			wantKind:  KindSave,
			wantStage: StageRendered,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			src := writeFile(t, dir, "a.jpg", tc.data)
			op := plan.Plan([]string{src}, DefaultConfig().Output)[0]
			if tc.prepare != nil {
				tc.prepare(t, op)
			}

			res := newPipeline(t, DefaultConfig(), tc.provider).ProcessFile(context.Background(), op)
			if res.Err == nil {
				t.Fatalf("expected error, got nil")
			}
			if got := KindOf(res.Err); got != tc.wantKind {
				t.Fatalf("unexpected kind %q (err: %v)", got, res.Err)
			}
			if res.Stage != tc.wantStage {
				t.Fatalf("unexpected stage %q, want %q", res.Stage, tc.wantStage)
			}
		})
	}
}

func TestRun_ContinuesAfterFailures(t *testing.T) {
	dir := t.TempDir()
	sources := []string{
		writeFile(t, dir, "a_corrupt.jpg", []byte("broken")),
		writeFile(t, dir, "b_good.jpg", testimg.JPEG(200, 100, &testimg.Exif{DateTimeOriginal: "2001:02:03 04:05:06"})),
		writeFile(t, dir, "c_noexif.jpg", testimg.JPEG(200, 100, nil)),
	}

	logs := new(bytes.Buffer)
	cfg := DefaultConfig()
	p, err := New(cfg, labeltext.Static("fallback"), zerolog.New(logs))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	report, err := p.Run(context.Background(), plan.Plan(sources, cfg.Output))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Summary.Total != 3 || report.Summary.Saved != 2 || report.Summary.Failed != 1 {
		t.Fatalf("unexpected summary %+v", report.Summary)
	}
	if report.Summary.ByKind[KindDecode] != 1 {
		t.Fatalf("expected one decode failure, got %+v", report.Summary.ByKind)
	}
	if report.Results[2].TextSource != labeltext.SourceStatic {
		t.Fatalf("expected static fallback for file without exif, got %q", report.Results[2].TextSource)
	}
	if _, err := os.Stat(filepath.Join(dir, "b_good_with_timestamp.jpg")); err != nil {
		t.Fatalf("expected output for good file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a_corrupt_with_timestamp.jpg")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no output for corrupt file, got %v", err)
	}
	if !strings.Contains(logs.String(), "a_corrupt.jpg") {
		t.Fatalf("expected failing file to be logged, got %q", logs.String())
	}
}

func TestRun_StopsWhenContextCancelled(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "a.jpg", testimg.JPEG(200, 100, &testimg.Exif{DateTimeOriginal: "2001:02:03 04:05:06"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newPipeline(t, DefaultConfig(), nil).Run(ctx, plan.Plan([]string{src}, DefaultConfig().Output))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if report.Summary.Total != 0 {
		t.Fatalf("expected no processed files, got %+v", report.Summary)
	}
}

func TestRun_OverwritesExistingOutput(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "a.jpg", testimg.JPEG(200, 100, &testimg.Exif{DateTimeOriginal: "2001:02:03 04:05:06"}))
	dest := writeFile(t, dir, "a_with_timestamp.jpg", []byte("stale"))

	report, err := newPipeline(t, DefaultConfig(), nil).Run(context.Background(), plan.Plan([]string{src}, DefaultConfig().Output))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Summary.Saved != 1 {
		t.Fatalf("expected one saved file, got %+v", report.Summary)
	}
	decodeJPEG(t, dest)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "negative shadow", mutate: func(c *Config) { c.ShadowOffsetPx = -1 }},
		{name: "nil shadow color", mutate: func(c *Config) { c.ShadowColor = nil }},
		{name: "zero font ratio", mutate: func(c *Config) { c.FontSizeRatio = 0 }},
		{name: "huge margin", mutate: func(c *Config) { c.MarginRatio = 0.9 }},
		{name: "quality out of range", mutate: func(c *Config) { c.JPEGQuality = 0 }},
		{name: "unknown orientation mode", mutate: func(c *Config) { c.Orientation = "sideways" }},
		{name: "would overwrite sources", mutate: func(c *Config) { c.Output.Suffix = "" }},
		{name: "missing font", mutate: func(c *Config) { c.FontPath = "/nonexistent/arial.ttf" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if _, err := New(cfg, nil, zerolog.Nop()); err == nil {
				t.Fatalf("expected error, got nil")
			}
		})
	}
}

func TestDefaultConfig_MatchesClassicLabel(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ShadowOffsetPx != 3 || cfg.FontSizeRatio != 0.05 || cfg.MarginRatio != 0.02 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.ShadowColor != render.DefaultOptions().ShadowColor || cfg.TextColor != color.White {
		t.Fatalf("unexpected colors %+v", cfg)
	}
	if !cfg.Overwrite {
		t.Fatalf("expected overwrite by default")
	}
}

type failingProvider struct{}

func (failingProvider) Text(ctx context.Context, path string) (labeltext.Label, error) {
	return labeltext.Label{}, errors.New("stdin closed")
}

func newPipeline(t *testing.T, cfg Config, provider labeltext.Provider) *Pipeline {
	t.Helper()

	p, err := New(cfg, provider, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func decodeJPEG(t *testing.T, path string) image.Image {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	return img
}

func hasBrightPixel(img image.Image, r image.Rectangle) bool {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			if c.Y > 220 {
				return true
			}
		}
	}
	return false
}
