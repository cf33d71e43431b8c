// Package plot draws a region quadtree: the rasterized leaves with the split
// lines of every interior node stroked on top.
package plot

import (
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/gogpu/gg"
	"github.com/svanichkin/regionqt"
	xdraw "golang.org/x/image/draw"
)

// Options configures a plot.
type Options struct {
	// Scale enlarges every pixel to Scale x Scale so that lines between
	// small leaves stay visible. Values below 1 are treated as 1.
	Scale int

	// LineColor is the color of the split lines.
	LineColor color.NRGBA

	// LineWidth is the stroke width in output pixels.
	LineWidth float64

	// Border also strokes the outer edges of the image.
	Border bool
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		Scale:     1,
		LineColor: color.NRGBA{R: 255, A: 255},
		LineWidth: 1,
	}
}

// Render rasterizes tree and strokes its overlay lines.
func Render(tree *regionqt.Tree, opts Options) (image.Image, error) {
	buf, err := tree.PixelBuffer()
	if err != nil {
		return nil, err
	}
	lines, err := tree.OverlayLines()
	if err != nil {
		return nil, err
	}

	scale := max(opts.Scale, 1)
	src := buf.Image()
	var base image.Image = src
	if scale > 1 {
		r := src.Bounds()
		dst := image.NewNRGBA(image.Rect(0, 0, r.Dx()*scale, r.Dy()*scale))
		xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, r, xdraw.Src, nil)
		base = dst
	}

	dc := gg.NewContextForImage(base)
	defer dc.Close()

	c := opts.LineColor
	dc.SetRGBA(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255, float64(c.A)/255)
	dc.SetLineWidth(opts.LineWidth)

	s := float64(scale)
	stroke := func(seg regionqt.Segment) {
		dc.DrawLine(float64(seg.A.X)*s, float64(seg.A.Y)*s, float64(seg.B.X)*s, float64(seg.B.Y)*s)
	}
	for seg := range lines {
		stroke(seg)
	}
	if opts.Border {
		for _, seg := range tree.Root().Bounds().Edges() {
			stroke(seg)
		}
	}

	if err := dc.Stroke(); err != nil {
		return nil, errors.New("stroking overlay lines failed").Wrap(err)
	}
	return dc.Image(), nil
}

// EncodePNG renders tree and writes it to w as PNG.
func EncodePNG(w io.Writer, tree *regionqt.Tree, opts Options) error {
	img, err := Render(tree, opts)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}
