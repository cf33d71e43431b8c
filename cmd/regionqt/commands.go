package main

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/gdamore/tcell/v2"
	"github.com/segmentio/encoding/json"
	"github.com/svanichkin/regionqt"
	"github.com/svanichkin/regionqt/imageio"
	"github.com/svanichkin/regionqt/plot"
	"github.com/svanichkin/regionqt/termview"
)

// treeExt is the extension of files written by encode.
const treeExt = ".rgqt"

type encodeConfig struct {
	In          string `cli:""        env:"REGIONQT_IN"          help:"The image to encode."`
	Out         string `cli:""        env:"REGIONQT_OUT"         help:"The tree file to write. Defaults to the input name with the .rgqt extension."`
	Compress    bool   `cli:""        env:"REGIONQT_COMPRESS"    help:"Compress the tree with zstd."`
	Parallelism int    `cli:",hidden" env:"REGIONQT_PARALLELISM" help:"The number of goroutines used to build the tree. Negative uses all CPUs."`
	LogLevel    string `cli:""        env:"REGIONQT_LOG_LEVEL"   help:"Log level (debug|info|warning|error)."`
	LogIndent   bool   `cli:""        env:"REGIONQT_LOG_INDENT"  help:"Indent logs."`
	Help        bool   `cli:""        env:"-"                    help:"Show help."`
}

func runEncode(ctx context.Context) error {
	conf := encodeConfig{
		LogLevel:    logs.InfoLevel.String(),
		Parallelism: 1,
	}
	load("Builds the region quadtree of an image and writes it to a tree file.", &conf)
	setupLogs(conf.LogLevel, conf.LogIndent)

	if conf.In == "" {
		return errors.New("missing input image")
	}
	if conf.Out == "" {
		conf.Out = replaceExt(conf.In, treeExt)
	}

	info, err := os.Stat(conf.In)
	if err != nil {
		return errors.New("reading input failed").WithTag("path", conf.In).Wrap(err)
	}
	inSize := info.Size()

	src, _, err := imageio.Open(conf.In)
	if err != nil {
		return err
	}

	start := time.Now()
	tree, err := regionqt.Build(src, regionqt.WithParallelism(conf.Parallelism))
	if err != nil {
		return err
	}
	enc, err := regionqt.Save(tree, regionqt.WithCompression(conf.Compress))
	if err != nil {
		return err
	}
	finish := time.Since(start)

	if err := os.WriteFile(conf.Out, enc, 0o644); err != nil {
		return errors.New("writing tree failed").WithTag("path", conf.Out).Wrap(err)
	}

	encSize := int64(len(enc))
	stats, _ := tree.Stats()
	fmt.Printf("%s (%s) → %s (%s)\n",
		conf.In,
		formatSize(inSize),
		conf.Out,
		formatSize(encSize),
	)
	fmt.Printf("leaves=%d, depth=%d, ratio=%.3f, time=%s\n",
		stats.Leaves,
		stats.Depth,
		float64(encSize)/float64(inSize),
		finish,
	)
	return nil
}

type decodeConfig struct {
	In        string `cli:"" env:"REGIONQT_IN"         help:"The tree file to decode."`
	Out       string `cli:"" env:"REGIONQT_OUT"        help:"The image to write (.png or .qoi). Defaults to the input name with the .png extension."`
	LogLevel  string `cli:"" env:"REGIONQT_LOG_LEVEL"  help:"Log level (debug|info|warning|error)."`
	LogIndent bool   `cli:"" env:"REGIONQT_LOG_INDENT" help:"Indent logs."`
	Help      bool   `cli:"" env:"-"                   help:"Show help."`
}

func runDecode(ctx context.Context) error {
	conf := decodeConfig{
		LogLevel: logs.InfoLevel.String(),
	}
	load("Rasterizes a tree file back to an image.", &conf)
	setupLogs(conf.LogLevel, conf.LogIndent)

	if conf.In == "" {
		return errors.New("missing input tree")
	}
	if conf.Out == "" {
		conf.Out = replaceExt(conf.In, ".png")
	}

	data, err := os.ReadFile(conf.In)
	if err != nil {
		return errors.New("reading tree failed").WithTag("path", conf.In).Wrap(err)
	}
	compSize := int64(len(data))

	start := time.Now()
	tree, err := regionqt.Load(data)
	if err != nil {
		return err
	}
	buf, err := tree.PixelBuffer()
	if err != nil {
		return err
	}
	finish := time.Since(start)

	if err := imageio.Save(conf.Out, buf.Image()); err != nil {
		return err
	}
	info, err := os.Stat(conf.Out)
	if err != nil {
		return err
	}
	outSize := info.Size()

	fmt.Printf("%s (%s) → %s (%s)\n",
		conf.In,
		formatSize(compSize),
		conf.Out,
		formatSize(outSize),
	)
	fmt.Printf("ratio=%.3f, time=%s\n",
		float64(outSize)/float64(compSize),
		finish,
	)
	return nil
}

type plotConfig struct {
	In        string  `cli:"" env:"REGIONQT_IN"         help:"The image or tree file to plot."`
	Out       string  `cli:"" env:"REGIONQT_OUT"        help:"The PNG to write. Defaults to the input name with the _plot.png suffix."`
	Scale     int     `cli:"" env:"REGIONQT_SCALE"      help:"The pixel magnification."`
	LineWidth float64 `cli:"" env:"REGIONQT_LINE_WIDTH" help:"The split line width in output pixels."`
	LineColor string  `cli:"" env:"REGIONQT_LINE_COLOR" help:"The split line color as #rrggbb or #rrggbbaa."`
	Border    bool    `cli:"" env:"REGIONQT_BORDER"     help:"Also draw the image border."`
	LogLevel  string  `cli:"" env:"REGIONQT_LOG_LEVEL"  help:"Log level (debug|info|warning|error)."`
	LogIndent bool    `cli:"" env:"REGIONQT_LOG_INDENT" help:"Indent logs."`
	Help      bool    `cli:"" env:"-"                   help:"Show help."`
}

func runPlot(ctx context.Context) error {
	opts := plot.DefaultOptions()
	conf := plotConfig{
		Scale:     opts.Scale,
		LineWidth: opts.LineWidth,
		LineColor: "#ff0000",
		LogLevel:  logs.InfoLevel.String(),
	}
	load("Draws the split lines of an image or tree file into a PNG.", &conf)
	setupLogs(conf.LogLevel, conf.LogIndent)

	if conf.In == "" {
		return errors.New("missing input")
	}
	if conf.Out == "" {
		conf.Out = strings.TrimSuffix(conf.In, filepath.Ext(conf.In)) + "_plot.png"
	}

	lineColor, err := parseColor(conf.LineColor)
	if err != nil {
		return err
	}
	opts.Scale = conf.Scale
	opts.LineWidth = conf.LineWidth
	opts.LineColor = lineColor
	opts.Border = conf.Border

	tree, err := openTree(conf.In)
	if err != nil {
		return err
	}

	f, err := os.Create(conf.Out)
	if err != nil {
		return errors.New("creating plot failed").WithTag("path", conf.Out).Wrap(err)
	}
	if err := plot.EncodePNG(f, tree, opts); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Printf("%s → %s\n", conf.In, conf.Out)
	return nil
}

type viewConfig struct {
	In       string `cli:"" env:"REGIONQT_IN"        help:"The image or tree file to show."`
	NoLines  bool   `cli:"" env:"REGIONQT_NO_LINES"  help:"Start with the split lines hidden. Press l to toggle them."`
	LogLevel string `cli:"" env:"REGIONQT_LOG_LEVEL" help:"Log level (debug|info|warning|error)."`
	Help     bool   `cli:"" env:"-"                  help:"Show help."`
}

func runView(ctx context.Context) error {
	conf := viewConfig{
		LogLevel: "error",
	}
	load("Shows an image or tree file in the terminal. Press q to quit.", &conf)
	setupLogs(conf.LogLevel, false)

	if conf.In == "" {
		return errors.New("missing input")
	}

	tree, err := openTree(conf.In)
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return errors.New("creating terminal screen failed").Wrap(err)
	}
	if err := screen.Init(); err != nil {
		return errors.New("initializing terminal screen failed").Wrap(err)
	}
	defer screen.Fini()

	opts := termview.DefaultOptions()
	opts.Lines = !conf.NoLines

	v, err := termview.New(screen, tree, opts)
	if err != nil {
		return err
	}
	return v.Run(ctx)
}

type infoConfig struct {
	In        string `cli:"" env:"REGIONQT_IN"         help:"The image or tree file to describe."`
	LogLevel  string `cli:"" env:"REGIONQT_LOG_LEVEL"  help:"Log level (debug|info|warning|error)."`
	LogIndent bool   `cli:"" env:"REGIONQT_LOG_INDENT" help:"Indent logs."`
	Help      bool   `cli:"" env:"-"                   help:"Show help."`
}

type treeInfo struct {
	Path        string `json:"path"`
	Width       uint32 `json:"width"`
	Height      uint32 `json:"height"`
	Leaves      int    `json:"leaves"`
	Interiors   int    `json:"interiors"`
	Depth       int    `json:"depth"`
	EncodedSize int    `json:"encoded_size"`
}

func runInfo(ctx context.Context) error {
	conf := infoConfig{
		LogLevel: logs.InfoLevel.String(),
	}
	load("Prints the statistics of an image or tree file.", &conf)
	setupLogs(conf.LogLevel, conf.LogIndent)

	if conf.In == "" {
		return errors.New("missing input")
	}

	tree, err := openTree(conf.In)
	if err != nil {
		return err
	}
	stats, err := tree.Stats()
	if err != nil {
		return err
	}
	w, h, err := tree.Dimensions()
	if err != nil {
		return err
	}
	enc, err := regionqt.Encode(tree)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(treeInfo{
		Path:        conf.In,
		Width:       w,
		Height:      h,
		Leaves:      stats.Leaves,
		Interiors:   stats.Interiors,
		Depth:       stats.Depth,
		EncodedSize: len(enc),
	}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// openTree loads a tree file or builds the tree of an image, depending on the
// path extension.
func openTree(path string) (*regionqt.Tree, error) {
	if !strings.EqualFold(filepath.Ext(path), treeExt) {
		src, _, err := imageio.Open(path)
		if err != nil {
			return nil, err
		}
		return regionqt.Build(src)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("reading tree failed").
			WithType(regionqt.ErrTypeSourceUnavailable).
			WithTag("path", path).
			Wrap(err)
	}
	return regionqt.Load(data)
}

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func formatSize(size int64) string {
	if size < 1024*1024 {
		return fmt.Sprintf("%.2f KB", float64(size)/1024)
	}
	return fmt.Sprintf("%.2f MB", float64(size)/(1024*1024))
}

// parseColor parses #rrggbb or #rrggbbaa.
func parseColor(s string) (color.NRGBA, error) {
	c := color.NRGBA{A: 255}
	var err error
	switch len(s) {
	case 7:
		_, err = fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B)
	case 9:
		_, err = fmt.Sscanf(s, "#%02x%02x%02x%02x", &c.R, &c.G, &c.B, &c.A)
	default:
		err = errors.New("unexpected length")
	}
	if err != nil {
		return color.NRGBA{}, errors.New("invalid color").
			WithTag("color", s).
			Wrap(err)
	}
	return c, nil
}
