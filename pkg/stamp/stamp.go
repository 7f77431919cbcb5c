// Package stamp is the timestamp overlay pipeline.
//
// Each file goes through the same linear stages:
//
//	opened -> orientation_checked -> text_resolved -> rendered -> saved
//
// A failure at any stage ends that file's run with a typed error
// (DecodeError, MetadataError, RenderError or SaveError). Run keeps going
// with the next file; errors are aggregated into the Report.
package stamp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"github.com/quidome/photo-stamp/pkg/exifmeta"
	"github.com/quidome/photo-stamp/pkg/labeltext"
	"github.com/quidome/photo-stamp/pkg/orient"
	"github.com/quidome/photo-stamp/pkg/plan"
	"github.com/quidome/photo-stamp/pkg/render"
	"github.com/quidome/photo-stamp/pkg/save"
)

// Stage is the last step a file completed.
type Stage string

const (
	StageNone               Stage = ""
	StageOpened             Stage = "opened"
	StageOrientationChecked Stage = "orientation_checked"
	StageTextResolved       Stage = "text_resolved"
	StageRendered           Stage = "rendered"
	StageSaved              Stage = "saved"
)

// Result is the outcome for one source file.
type Result struct {
	Operation plan.Operation

	Stage      Stage
	Text       string
	TextSource labeltext.Source

	Orientation int
	Rotated     bool

	// Width and Height are the output dimensions after orientation correction.
	Width  int
	Height int

	Err error
}

func (r Result) Failed() bool { return r.Err != nil }

// Summary aggregates a run.
type Summary struct {
	Total  int
	Saved  int
	Failed int
	ByKind map[Kind]int
}

// Report holds every result of a run, in input order.
type Report struct {
	Results []Result
	Summary Summary
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
	r.Summary.Total++
	if res.Err == nil {
		r.Summary.Saved++
		return
	}
	r.Summary.Failed++
	if r.Summary.ByKind == nil {
		r.Summary.ByKind = make(map[Kind]int)
	}
	r.Summary.ByKind[KindOf(res.Err)]++
}

// Pipeline stamps files one at a time.
type Pipeline struct {
	cfg      Config
	renderer *render.Renderer
	text     labeltext.Provider
	log      zerolog.Logger
}

// New validates cfg and loads its font. text is consulted only for files
// without an EXIF DateTimeOriginal; a nil provider makes those files fail
// with a MetadataError.
func New(cfg Config, text labeltext.Provider, log zerolog.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	f, err := render.LoadFont(cfg.FontPath)
	if err != nil {
		return nil, err
	}

	if text == nil {
		text = labeltext.Chain{}
	}

	return &Pipeline{
		cfg:      cfg,
		renderer: render.New(f, cfg.renderOptions()),
		text:     text,
		log:      log,
	}, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Run processes operations sequentially. One failing file never stops the
// batch; only a cancelled ctx does, in which case the partial report is
// returned together with ctx.Err().
func (p *Pipeline) Run(ctx context.Context, operations []plan.Operation) (Report, error) {
	var report Report
	for _, op := range operations {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		res := p.ProcessFile(ctx, op)
		if res.Err != nil {
			p.log.Error().
				Str("file", op.SourcePath).
				Str("stage", string(res.Stage)).
				Str("kind", string(KindOf(res.Err))).
				Err(res.Err).
				Msg("skipping file")
		}
		report.add(res)
	}
	return report, nil
}

// ProcessFile runs the full pipeline for one operation.
func (p *Pipeline) ProcessFile(ctx context.Context, op plan.Operation) Result {
	res := Result{Operation: op}
	src := op.SourcePath

	data, err := os.ReadFile(src)
	if err != nil {
		res.Err = &DecodeError{Path: src, Err: err}
		return res
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		res.Err = &DecodeError{Path: src, Err: err}
		return res
	}
	res.Stage = StageOpened

	tags, exifErr := exifmeta.Decode(bytes.NewReader(data))
	if exifErr != nil {
		p.log.Warn().Str("file", src).Err(exifErr).Msg("no exif data found")
	}

	if tags.HasOrientation {
		res.Orientation = tags.Orientation
		img, res.Rotated = orient.Correct(img, tags.Orientation, p.cfg.Orientation)
		if !res.Rotated && tags.Orientation != 1 {
			p.log.Debug().Str("file", src).Int("orientation", tags.Orientation).Msg("orientation left uncorrected")
		}
	}
	res.Stage = StageOrientationChecked

	label, err := p.resolveText(ctx, src, tags)
	if err != nil {
		res.Err = &MetadataError{Path: src, Err: err}
		return res
	}
	res.Text = label.Text
	res.TextSource = label.Source
	res.Stage = StageTextResolved

	out, layout, err := p.renderer.Stamp(img, label.Text)
	if err != nil {
		res.Err = &RenderError{Path: src, Err: err}
		return res
	}
	res.Width, res.Height = out.Bounds().Dx(), out.Bounds().Dy()
	res.Stage = StageRendered
	p.log.Debug().
		Str("file", src).
		Int("font_size", layout.FontSize).
		Int("margin", layout.Margin).
		Int("x", layout.X).
		Int("y", layout.Y).
		Msg("label placed")

	if err := save.JPEG(op.DestinationPath, out, p.cfg.saveOptions()); err != nil {
		res.Err = &SaveError{Path: op.DestinationPath, Err: err}
		return res
	}
	res.Stage = StageSaved

	p.log.Info().
		Str("file", src).
		Str("output", op.DestinationPath).
		Str("source", string(label.Source)).
		Msg("saved image with timestamp")
	return res
}

func (p *Pipeline) resolveText(ctx context.Context, path string, tags exifmeta.Tags) (labeltext.Label, error) {
	if tags.HasDateTimeOriginal {
		return labeltext.Label{Text: tags.DateTimeOriginal, Source: labeltext.SourceExif}, nil
	}

	p.log.Warn().Str("file", path).Msg("could not find DateTimeOriginal in exif data")
	label, err := p.text.Text(ctx, path)
	if err != nil {
		if errors.Is(err, labeltext.ErrNoText) {
			return labeltext.Label{}, fmt.Errorf("no DateTimeOriginal and no fallback text: %w", err)
		}
		return labeltext.Label{}, err
	}
	return label, nil
}
