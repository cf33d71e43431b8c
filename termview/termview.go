// Package termview shows a region quadtree in a terminal. Every cell is
// painted with the color of the leaf under it and the split lines are drawn
// with box-drawing runes.
package termview

import (
	"context"
	"image"
	"image/color"
	"slices"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/gdamore/tcell/v2"
	"github.com/svanichkin/regionqt"
	xdraw "golang.org/x/image/draw"
)

// Options configures a View.
type Options struct {
	// Lines shows the split lines. It is toggled with the 'l' key.
	Lines bool

	// LineColor is the foreground color of the line runes.
	LineColor color.NRGBA
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		Lines:     true,
		LineColor: color.NRGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

const (
	cellVertical   = 1 << iota
	cellHorizontal
)

// View draws a tree into a tcell screen.
type View struct {
	screen tcell.Screen
	opts   Options
	img    *image.NRGBA
	lines  []regionqt.Segment
}

// New prepares a view of tree. The tree is rasterized once; later draws only
// rescale the result to the screen size.
func New(screen tcell.Screen, tree *regionqt.Tree, opts Options) (*View, error) {
	buf, err := tree.PixelBuffer()
	if err != nil {
		return nil, err
	}
	lines, err := tree.OverlayLines()
	if err != nil {
		return nil, err
	}

	return &View{
		screen: screen,
		opts:   opts,
		img:    buf.Image(),
		lines:  slices.Collect(lines),
	}, nil
}

// Lines reports whether split lines are shown.
func (v *View) Lines() bool {
	return v.opts.Lines
}

// ToggleLines flips split line visibility. The change shows on the next Draw.
func (v *View) ToggleLines() {
	v.opts.Lines = !v.opts.Lines
}

// Draw paints the tree into the screen, keeping the image aspect ratio, and
// shows the result.
func (v *View) Draw() {
	v.screen.Clear()

	sw, sh := v.screen.Size()
	iw, ih := v.img.Bounds().Dx(), v.img.Bounds().Dy()
	if sw <= 0 || sh <= 0 {
		v.screen.Show()
		return
	}

	f := min(float64(sw)/float64(iw), float64(sh)/float64(ih))
	gw := max(1, int(float64(iw)*f))
	gh := max(1, int(float64(ih)*f))

	cells := image.NewNRGBA(image.Rect(0, 0, gw, gh))
	xdraw.NearestNeighbor.Scale(cells, cells.Bounds(), v.img, v.img.Bounds(), xdraw.Src, nil)

	var marks map[image.Point]int
	if v.opts.Lines {
		marks = v.markLines(gw, gh, iw, ih)
	}

	fg := rgb(v.opts.LineColor)
	for y := 0; y < gh; y++ {
		for x := 0; x < gw; x++ {
			style := tcell.StyleDefault.Background(rgb(cells.NRGBAAt(x, y)))
			r := ' '
			switch marks[image.Pt(x, y)] {
			case cellVertical:
				r = tcell.RuneVLine
			case cellHorizontal:
				r = tcell.RuneHLine
			case cellVertical | cellHorizontal:
				r = tcell.RunePlus
			}
			if r != ' ' {
				style = style.Foreground(fg)
			}
			v.screen.SetContent(x, y, r, nil, style)
		}
	}
	v.screen.Show()

	logs.WithTag("screen_width", sw).
		WithTag("screen_height", sh).
		WithTag("cells_width", gw).
		WithTag("cells_height", gh).
		WithTag("lines", v.opts.Lines).
		Debug("terminal view drawn")
}

// markLines maps every split line from image coordinates onto the gw x gh
// cell grid.
func (v *View) markLines(gw, gh, iw, ih int) map[image.Point]int {
	toCol := func(x uint32) int { return min(int(float64(x)*float64(gw)/float64(iw)), gw-1) }
	toRow := func(y uint32) int { return min(int(float64(y)*float64(gh)/float64(ih)), gh-1) }

	marks := make(map[image.Point]int)
	for _, seg := range v.lines {
		switch {
		case seg.Vertical():
			col := toCol(seg.A.X)
			from, to := toRow(seg.A.Y), toRow(seg.B.Y)
			for row := from; row < max(to, from+1); row++ {
				marks[image.Pt(col, row)] |= cellVertical
			}

		case seg.Horizontal():
			row := toRow(seg.A.Y)
			from, to := toCol(seg.A.X), toCol(seg.B.X)
			for col := from; col < max(to, from+1); col++ {
				marks[image.Pt(col, row)] |= cellHorizontal
			}
		}
	}
	return marks
}

// Run draws the view and handles terminal events until the user quits with
// q, Esc or Ctrl-C, or until ctx is done. The screen must be initialized by
// the caller.
func (v *View) Run(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		select {
		case <-ctx.Done():
			v.screen.PostEvent(tcell.NewEventInterrupt(nil))
		case <-stop:
		}
	}()

	v.Draw()
	for {
		switch ev := v.screen.PollEvent().(type) {
		case nil, *tcell.EventInterrupt:
			return nil

		case *tcell.EventResize:
			v.screen.Sync()
			v.Draw()

		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC:
				return nil

			case ev.Key() == tcell.KeyRune && ev.Rune() == 'q':
				return nil

			case ev.Key() == tcell.KeyRune && ev.Rune() == 'l':
				v.ToggleLines()
				v.Draw()
			}
		}
	}
}

func rgb(c color.NRGBA) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}
