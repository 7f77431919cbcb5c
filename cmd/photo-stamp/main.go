package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/quidome/photo-stamp/pkg/config"
	"github.com/quidome/photo-stamp/pkg/exifmeta"
	"github.com/quidome/photo-stamp/pkg/labeltext"
	"github.com/quidome/photo-stamp/pkg/logging"
	"github.com/quidome/photo-stamp/pkg/plan"
	"github.com/quidome/photo-stamp/pkg/scan"
	"github.com/quidome/photo-stamp/pkg/stamp"
)

const version = "0.1.0"

type options struct {
	verbose    bool
	dryRun     bool
	logFormat  string
	configFile string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	cmd := newRootCmd()
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:     "photo-stamp",
		Short:   "Stamp capture timestamps onto photos",
		Long:    "Photo Stamp reads the EXIF capture time of each image in a directory, fixes its orientation and writes a copy with the timestamp drawn in the bottom-right corner.",
		Version: version,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("Photo Stamp CLI")
			cmd.Printf("Version: %s\n", version)
			if opts.verbose {
				cmd.Println("Verbose mode: enabled")
			}
			if opts.dryRun {
				cmd.Println("Dry run mode: enabled")
			}
			cmd.Println("")
			cmd.Println("Use --help to see available commands and options")
		},
	}

	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&opts.dryRun, "dry-run", "n", false, "print planned outputs without writing files")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "console", "log format: console or json")
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (yaml, toml or json)")

	rootCmd.AddCommand(newStampCmd(opts))
	rootCmd.AddCommand(newScanCmd(opts))
	rootCmd.AddCommand(newInspectCmd(opts))

	return rootCmd
}

type stampFlags struct {
	maxDepth    int
	fallback    string
	text        string
	skipStamped bool
	json        bool
	strict      bool
}

func newStampCmd(opts *options) *cobra.Command {
	var f stampFlags
	def := stamp.DefaultConfig()

	stampCmd := &cobra.Command{
		Use:   "stamp [directory]",
		Short: "Write a timestamped copy of every image in a directory",
		Long: "Stamp every .jpg, .jpeg and .png file in the directory (default: current directory). " +
			"Each output is written as <name>_with_timestamp.jpg next to its source. " +
			"Images without an EXIF DateTimeOriginal use the --fallback text source.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			v, err := config.New(opts.configFile)
			if err != nil {
				return err
			}
			if err := config.BindFlags(v, cmd.Flags()); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}

			logger, err := newLogger(cmd, opts)
			if err != nil {
				return err
			}

			scanOpts := scan.DefaultOptions()
			scanOpts.MaxDepth = f.maxDepth
			if f.skipStamped {
				scanOpts.Skip = func(rel string) bool { return plan.IsOutput(rel, cfg.Output) }
			}

			matches, err := scan.Scan(os.DirFS(dir), ".", scanOpts)
			if err != nil {
				return err
			}
			sources := make([]string, 0, len(matches))
			for _, rel := range matches {
				sources = append(sources, filepath.Join(dir, filepath.FromSlash(rel)))
			}

			ops := plan.Plan(sources, cfg.Output)
			for dest, srcs := range plan.Collisions(ops) {
				logger.Warn().Str("output", dest).Strs("sources", srcs).Msg("several sources share one output, the last one wins")
			}

			if opts.dryRun {
				return printPlan(cmd, ops, f.json)
			}

			provider, err := newProvider(cmd, f)
			if err != nil {
				return err
			}

			p, err := stamp.New(cfg, provider, logger)
			if err != nil {
				return err
			}

			report, runErr := p.Run(cmd.Context(), ops)
			if f.json {
				if err := printResults(cmd, report); err != nil {
					return err
				}
			}
			logger.Info().
				Int("total", report.Summary.Total).
				Int("saved", report.Summary.Saved).
				Int("failed", report.Summary.Failed).
				Msg("done")

			if runErr != nil {
				return runErr
			}
			if f.strict && report.Summary.Failed > 0 {
				return fmt.Errorf("%d of %d files failed", report.Summary.Failed, report.Summary.Total)
			}
			return nil
		},
	}

	fl := stampCmd.Flags()
	fl.IntVar(&f.maxDepth, "max-depth", 0, "maximum recursion depth (0 = no recursion, -1 = unlimited)")
	fl.StringVar(&f.fallback, "fallback", "prompt", "text source when EXIF has no date: prompt, static, filename, mtime or chain")
	fl.StringVar(&f.text, "text", "", "fallback text; implies --fallback static unless --fallback is set")
	fl.BoolVar(&f.skipStamped, "skip-stamped", false, "ignore files that already carry the output suffix")
	fl.BoolVar(&f.json, "json", false, "print results as JSON")
	fl.BoolVar(&f.strict, "strict", false, "exit with an error if any file failed")

	fl.Int("shadow-offset", def.ShadowOffsetPx, "number of shadow layers, one pixel apart")
	fl.String("shadow-color", "black", "shadow color (name or #rrggbb)")
	fl.String("text-color", "white", "text color (name or #rrggbb)")
	fl.Float64("font-ratio", def.FontSizeRatio, "font size as a fraction of the shorter image side")
	fl.Float64("margin-ratio", def.MarginRatio, "margin as a fraction of the shorter image side")
	fl.String("font", "", "TrueType/OpenType font file (default: embedded Go Regular)")
	fl.String("orientation", string(def.Orientation), "orientation handling: full or legacy (3, 6 and 8 only)")
	fl.Int("quality", def.JPEGQuality, "JPEG quality (1-100)")
	fl.Bool("overwrite", def.Overwrite, "overwrite existing outputs")
	fl.String("out-dir", "", "write outputs to this directory instead of next to the sources")
	fl.String("suffix", def.Output.Suffix, "suffix appended to the output file name")

	return stampCmd
}

func newProvider(cmd *cobra.Command, f stampFlags) (labeltext.Provider, error) {
	fallback := f.fallback
	if f.text != "" && !cmd.Flags().Changed("fallback") {
		fallback = "static"
	}

	switch fallback {
	case "prompt":
		out := cmd.OutOrStdout()
		if f.json {
			out = cmd.ErrOrStderr()
		}
		return labeltext.NewPrompt(cmd.InOrStdin(), out), nil
	case "static":
		if f.text == "" {
			return nil, errors.New("--fallback static requires --text")
		}
		return labeltext.Static(f.text), nil
	case "filename":
		return labeltext.Filename{}, nil
	case "mtime":
		return labeltext.Mtime{}, nil
	case "chain":
		if f.text != "" {
			return labeltext.Chain{labeltext.Filename{}, labeltext.Static(f.text)}, nil
		}
		return labeltext.Chain{labeltext.Filename{}, labeltext.Mtime{}}, nil
	default:
		return nil, fmt.Errorf("unknown fallback %q", fallback)
	}
}

func newLogger(cmd *cobra.Command, opts *options) (zerolog.Logger, error) {
	format, err := logging.ParseFormat(opts.logFormat)
	if err != nil {
		return zerolog.Nop(), err
	}
	w := cmd.ErrOrStderr()
	return logging.New(w, logging.Options{
		Verbose: opts.verbose,
		Format:  format,
		NoColor: !isTerminal(w),
	}), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

type jsonOperation struct {
	SourcePath      string `json:"source_path"`
	DestinationPath string `json:"destination_path"`
}

type jsonResult struct {
	SourcePath      string `json:"source_path"`
	DestinationPath string `json:"destination_path"`
	Stage           string `json:"stage"`
	Text            string `json:"text,omitempty"`
	TextSource      string `json:"text_source,omitempty"`
	Orientation     int    `json:"orientation,omitempty"`
	Rotated         bool   `json:"rotated"`
	Width           int    `json:"width,omitempty"`
	Height          int    `json:"height,omitempty"`
	ErrorKind       string `json:"error_kind,omitempty"`
	Error           string `json:"error,omitempty"`
}

func printPlan(cmd *cobra.Command, ops []plan.Operation, asJSON bool) error {
	if !asJSON {
		for _, op := range ops {
			cmd.Printf("%s -> %s\n", op.SourcePath, op.DestinationPath)
		}
		return nil
	}

	out := make([]jsonOperation, 0, len(ops))
	for _, op := range ops {
		out = append(out, jsonOperation{SourcePath: op.SourcePath, DestinationPath: op.DestinationPath})
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

func printResults(cmd *cobra.Command, report stamp.Report) error {
	out := make([]jsonResult, 0, len(report.Results))
	for _, r := range report.Results {
		jr := jsonResult{
			SourcePath:      r.Operation.SourcePath,
			DestinationPath: r.Operation.DestinationPath,
			Stage:           string(r.Stage),
			Text:            r.Text,
			TextSource:      string(r.TextSource),
			Orientation:     r.Orientation,
			Rotated:         r.Rotated,
			Width:           r.Width,
			Height:          r.Height,
		}
		if r.Err != nil {
			jr.ErrorKind = string(stamp.KindOf(r.Err))
			jr.Error = r.Err.Error()
		}
		out = append(out, jr)
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newScanCmd(opts *options) *cobra.Command {
	var (
		maxDepth int
		asJSON   bool
	)

	scanCmd := &cobra.Command{
		Use:   "scan [directory]",
		Short: "List the images a stamp run would process",
		Long:  "Scan a directory and print all candidate images (relative to the scan root).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			directory := args[0]

			scanOpts := scan.DefaultOptions()
			scanOpts.MaxDepth = maxDepth

			records, err := scan.ScanRecords(os.DirFS(directory), ".", scanOpts)
			if err != nil {
				return err
			}

			if asJSON {
				if records == nil {
					records = []scan.Record{}
				}
				return writeJSON(cmd.OutOrStdout(), records)
			}

			for _, r := range records {
				cmd.Println(r.Path)
			}

			if opts.verbose {
				cmd.PrintErrf("found %d images\n", len(records))
			}

			return nil
		},
	}

	scanCmd.Flags().IntVar(&maxDepth, "max-depth", 0, "maximum recursion depth (0 = no recursion, -1 = unlimited)")
	scanCmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")

	return scanCmd
}

func newInspectCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [file...]",
		Short: "Print the EXIF capture time and orientation of images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				tags, err := exifmeta.ReadFile(path)
				if errors.Is(err, exifmeta.ErrNoExif) {
					cmd.Printf("%s: no exif data\n", path)
					if opts.verbose {
						cmd.PrintErrf("%s: %v\n", path, err)
					}
					continue
				}
				if err != nil {
					return err
				}

				date := "none"
				if tags.HasDateTimeOriginal {
					date = tags.DateTimeOriginal
				}
				orientation := "none"
				if tags.HasOrientation {
					orientation = fmt.Sprint(tags.Orientation)
				}
				cmd.Printf("%s: date_time_original=%s orientation=%s\n", path, date, orientation)
			}
			return nil
		},
	}
}
