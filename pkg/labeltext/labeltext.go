// Package labeltext supplies the text stamped onto an image when its EXIF
// block carries no DateTimeOriginal.
//
// Providers are tried by the pipeline only after the EXIF lookup fails. The
// interactive Prompt mirrors a console workflow; Static, Filename and Mtime
// fit unattended runs, and Chain combines several of them.
package labeltext

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Source describes where a label text came from.
type Source string

const (
	SourceExif     Source = "exif"
	SourcePrompt   Source = "prompt"
	SourceStatic   Source = "static"
	SourceFilename Source = "filename"
	SourceMtime    Source = "mtime"
)

// ExifLayout renders derived timestamps the way EXIF stores them.
const ExifLayout = "2006:01:02 15:04:05"

// PromptMessage is written before reading a line from the prompt input.
const PromptMessage = "Please enter the text you'd like to add as a timestamp: "

// ErrNoText is returned by a provider that has nothing to offer for a path.
var ErrNoText = errors.New("no timestamp text available")

// Label is a resolved stamp text.
type Label struct {
	Text   string
	Source Source
}

// Provider resolves the stamp text for path.
//
// Implementations return ErrNoText (possibly wrapped) when they cannot
// produce a value; Chain moves on to the next provider in that case.
type Provider interface {
	Text(ctx context.Context, path string) (Label, error)
}

// Prompt asks for the text on an interactive stream.
type Prompt struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: bufio.NewReader(in), out: out}
}

func (p *Prompt) Text(ctx context.Context, path string) (Label, error) {
	if err := ctx.Err(); err != nil {
		return Label{}, err
	}

	fmt.Fprint(p.out, PromptMessage)
	line, err := p.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return Label{}, fmt.Errorf("read prompt: %w", err)
	}
	return Label{Text: strings.TrimRight(line, "\r\n"), Source: SourcePrompt}, nil
}

// Static returns the same text for every path.
type Static string

func (s Static) Text(ctx context.Context, path string) (Label, error) {
	return Label{Text: string(s), Source: SourceStatic}, nil
}

// Filename derives a timestamp from common camera and phone file names.
type Filename struct {
	// Location is used for the parsed wall-clock time. If nil, time.Local is used.
	Location *time.Location
	// Layout formats the result. If empty, ExifLayout is used.
	Layout string
}

var filenamePatterns = []struct {
	re       *regexp.Regexp
	layout   string
	dateOnly bool
}{
	{re: regexp.MustCompile(`(?i)^(?:IMG|VID)_(\d{8})_(\d{6})`), layout: "20060102 150405"},
	{re: regexp.MustCompile(`(?i)^PXL_(\d{8})_(\d{6})\d{3,}`), layout: "20060102 150405"},
	{re: regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[ _](\d{2}\.\d{2}\.\d{2})`), layout: "2006-01-02 15.04.05"},
	{re: regexp.MustCompile(`(?i)^IMG-(\d{8})-WA\d+`), layout: "20060102", dateOnly: true},
	{re: regexp.MustCompile(`(?i)^Screenshot_(\d{4}-\d{2}-\d{2})-(\d{2}-\d{2}-\d{2})`), layout: "2006-01-02 15-04-05"},
}

func (f Filename) Text(ctx context.Context, path string) (Label, error) {
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	layout := f.Layout
	if layout == "" {
		layout = ExifLayout
	}

	name := filepath.Base(path)
	for _, p := range filenamePatterns {
		m := p.re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		tm, err := time.ParseInLocation(p.layout, strings.Join(m[1:], " "), loc)
		if err != nil {
			continue
		}
		out := layout
		if p.dateOnly && layout == ExifLayout {
			out = "2006:01:02"
		}
		return Label{Text: tm.Format(out), Source: SourceFilename}, nil
	}

	return Label{}, fmt.Errorf("%w: %s has no recognised date pattern", ErrNoText, name)
}

// Mtime uses the file modification time.
type Mtime struct {
	Location *time.Location
	Layout   string
}

func (m Mtime) Text(ctx context.Context, path string) (Label, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Label{}, err
	}
	mtime := info.ModTime()
	if mtime.IsZero() {
		return Label{}, fmt.Errorf("%w: zero mtime", ErrNoText)
	}

	loc := m.Location
	if loc == nil {
		loc = time.Local
	}
	layout := m.Layout
	if layout == "" {
		layout = ExifLayout
	}
	return Label{Text: mtime.In(loc).Format(layout), Source: SourceMtime}, nil
}

// Chain tries providers in order and returns the first text found.
type Chain []Provider

func (c Chain) Text(ctx context.Context, path string) (Label, error) {
	for _, p := range c {
		label, err := p.Text(ctx, path)
		if err == nil {
			return label, nil
		}
		if !errors.Is(err, ErrNoText) {
			return Label{}, err
		}
	}
	return Label{}, ErrNoText
}
