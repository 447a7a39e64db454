package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"zcomposite/internal/params"
	"zcomposite/pkg/cache"
	"zcomposite/pkg/composite"
	"zcomposite/pkg/export"
	"zcomposite/pkg/ingest"
	"zcomposite/pkg/normalize"
	"zcomposite/pkg/pipeline"
	"zcomposite/pkg/volume"
)

// renderFlags captures the render command's flag values.
type renderFlags struct {
	outDir   string
	pngPath  string
	archive  string
	zIndex   int
	windows  string
	colors   string
	hide     string
	preview  int
	workers  int
	cacheDir string
}

func (a *app) renderCommand() *cobra.Command {
	var f renderFlags

	cmd := &cobra.Command{
		Use:   "render INPUT",
		Short: "Render composite slices from a .npy volume",
		Long: `Render contrast-stretches every channel of the input volume over its
percentile window and composites the visible channels into RGB. The
result is written as 8-bit PNG images: a directory of slices by default,
a zip archive with --archive, or a single slice with --z.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRender(args[0], f)
		},
	}

	cmd.Flags().StringVarP(&f.outDir, "out", "o", "slices", "output directory for the slice sequence")
	cmd.Flags().StringVar(&f.pngPath, "png", "", "output file for a single slice ('-' for stdout, default z_NNN.png)")
	cmd.Flags().StringVar(&f.archive, "archive", "", "write all slices into a zip archive instead of a directory")
	cmd.Flags().IntVar(&f.zIndex, "z", -1, "render only this z slice")
	cmd.Flags().StringVar(&f.windows, "window", "", "percentile windows as lo:hi per channel, comma-separated (a single pair applies to all)")
	cmd.Flags().StringVar(&f.colors, "color", "", "channel colors as hex values, comma-separated (a single color applies to all)")
	cmd.Flags().StringVar(&f.hide, "hide", "", "channel indices to hide, comma-separated")
	cmd.Flags().IntVar(&f.preview, "preview", 0, "bound the longest edge of a single-slice render to this many pixels")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "goroutines per pipeline stage (0 = all cores)")
	cmd.Flags().StringVar(&f.cacheDir, "cache-dir", "", "cache rendered artifacts in this directory")
	cmd.MarkFlagsMutuallyExclusive("archive", "out")
	cmd.MarkFlagsMutuallyExclusive("archive", "z")
	cmd.MarkFlagsMutuallyExclusive("archive", "png")

	return cmd
}

func (a *app) runRender(input string, f renderFlags) error {
	raw, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read volume file: %w", err)
	}

	vol, err := ingest.Read(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	a.logger.Info("loaded volume",
		"file", input,
		"size", humanize.Bytes(uint64(len(raw))),
		"slices", vol.Z,
		"channels", vol.C,
		"height", vol.X,
		"width", vol.Y)

	opts, err := a.buildOptions(vol, f)
	if err != nil {
		return err
	}

	store, err := a.openCache(f.cacheDir)
	if err != nil {
		return err
	}
	defer store.Close()

	switch {
	case f.archive != "":
		return a.renderArchive(vol, raw, opts, store, f.archive)
	case f.zIndex >= 0:
		return a.renderSingle(vol, raw, opts, store, f)
	default:
		return a.renderSequence(vol, opts, f.outDir)
	}
}

// buildOptions turns the flag strings into fully-sized render options,
// falling back to the configured defaults where flags are absent.
func (a *app) buildOptions(vol *volume.Volume, f renderFlags) (*pipeline.Options, error) {
	parsedWindows, err := params.ParseWindows(f.windows)
	if err != nil {
		return nil, err
	}
	windows, err := params.WindowsForChannels(parsedWindows, vol.C)
	if err != nil {
		return nil, err
	}
	if windows == nil {
		w := a.cfg.Window()
		windows = make([]normalize.Window, vol.C)
		for i := range windows {
			windows[i] = w
		}
	}

	parsedColors, err := params.ParseColors(f.colors)
	if err != nil {
		return nil, err
	}
	colors, err := params.ColorsForChannels(parsedColors, vol.C)
	if err != nil {
		return nil, err
	}
	if colors == nil {
		var palette []composite.Color
		palette, err = a.cfg.PaletteColors()
		if err != nil {
			return nil, err
		}
		colors = params.PaletteForChannels(palette, vol.C)
	}

	hidden, err := params.ParseIndexList(f.hide)
	if err != nil {
		return nil, err
	}
	visible, err := params.Visibility(vol.C, hidden)
	if err != nil {
		return nil, err
	}

	workers := f.workers
	if workers <= 0 {
		workers = a.cfg.Render.Workers
	}

	return &pipeline.Options{
		Windows: windows,
		Colors:  colors,
		Visible: visible,
		Workers: workers,
	}, nil
}

func (a *app) render(vol *volume.Volume, opts *pipeline.Options) (*pipeline.Result, error) {
	runner := pipeline.Runner{Logger: a.logger}
	return runner.Run(vol, opts)
}

func (a *app) renderSequence(vol *volume.Volume, opts *pipeline.Options, outDir string) error {
	res, err := a.render(vol, opts)
	if err != nil {
		return err
	}

	if err := export.WriteSequence(res.Stack, outDir); err != nil {
		return err
	}

	a.logger.Info("wrote slice sequence", "dir", outDir, "slices", res.Stack.Z)
	return nil
}

func (a *app) renderArchive(vol *volume.Volume, raw []byte, opts *pipeline.Options, store cache.Cache, path string) error {
	key := cache.Key(raw, opts.Fingerprint(), "archive")
	if data, err := store.Get(key); err == nil {
		a.logger.Debug("using cached archive", "key", key[:12])
		return a.writeArtifact(path, data, vol.Z)
	}

	res, err := a.render(vol, opts)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := export.WriteArchive(&buf, res.Stack); err != nil {
		return err
	}

	if err := store.Set(key, buf.Bytes()); err != nil {
		a.logger.Warn("failed to cache the archive", "err", err)
	}

	return a.writeArtifact(path, buf.Bytes(), res.Stack.Z)
}

func (a *app) renderSingle(vol *volume.Volume, raw []byte, opts *pipeline.Options, store cache.Cache, f renderFlags) error {
	path := f.pngPath
	if path == "" {
		path = export.SliceFilename(f.zIndex)
	}

	selector := fmt.Sprintf("z=%d;preview=%d", f.zIndex, f.preview)
	key := cache.Key(raw, opts.Fingerprint(), selector)
	if data, err := store.Get(key); err == nil {
		a.logger.Debug("using cached slice", "key", key[:12])
		return a.writeArtifact(path, data, 1)
	}

	res, err := a.render(vol, opts)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if f.preview > 0 {
		err = export.EncodePreview(&buf, res.Stack, f.zIndex, f.preview)
	} else {
		err = export.EncodeSlice(&buf, res.Stack, f.zIndex)
	}
	if err != nil {
		return err
	}

	if err := store.Set(key, buf.Bytes()); err != nil {
		a.logger.Warn("failed to cache the slice", "err", err)
	}

	return a.writeArtifact(path, buf.Bytes(), 1)
}

// writeArtifact writes encoded output to a file or, for "-", to stdout.
func (a *app) writeArtifact(path string, data []byte, slices int) error {
	if path == "-" {
		if _, err := os.Stdout.Write(data); err != nil {
			return fmt.Errorf("failed to write to stdout: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	a.logger.Info("wrote output",
		"path", path,
		"slices", slices,
		"size", humanize.Bytes(uint64(len(data))))
	return nil
}
