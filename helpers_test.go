package regionqt

import (
	"image/color"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	red   = color.NRGBA{R: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

func bufferOf(w, h uint32, fn func(x, y uint32) color.NRGBA) *Buffer {
	b := NewBuffer(w, h)
	for y := uint32(0); y < h; y++ {
		for x := uint32(0); x < w; x++ {
			b.SetPixel(x, y, fn(x, y))
		}
	}
	return b
}

func uniform(w, h uint32, c color.NRGBA) *Buffer {
	return bufferOf(w, h, func(_, _ uint32) color.NRGBA { return c })
}

// blocky returns an image made of randomly colored rectangles so that the
// tree has both large leaves and deep subdivisions.
func blocky(w, h uint32, seed uint64) *Buffer {
	rnd := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	palette := []color.NRGBA{red, green, blue, white, {A: 0}, {R: 12, G: 34, B: 56, A: 128}}
	b := uniform(w, h, white)
	for i := 0; i < 12; i++ {
		x0, y0 := rnd.Uint32N(w), rnd.Uint32N(h)
		x1, y1 := x0+rnd.Uint32N(w-x0)+1, y0+rnd.Uint32N(h-y0)+1
		b.Fill(MustBoundingBox(Pt(x0, y0), Pt(x1, y1)), palette[rnd.IntN(len(palette))])
	}
	for i := 0; i < 20; i++ {
		b.SetPixel(rnd.Uint32N(w), rnd.Uint32N(h), palette[rnd.IntN(len(palette))])
	}
	return b
}

func buildTree(t *testing.T, src PixelSource, opts ...BuildOption) *Tree {
	t.Helper()
	tree, err := Build(src, opts...)
	require.NoError(t, err)
	return tree
}

// requireValidTree checks the structural invariants of every node: leaves
// carry the pixel at their minimum corner and are homogeneous in src, and
// interiors are partitioned exactly by their children.
func requireValidTree(t *testing.T, src PixelSource, root Node) {
	t.Helper()
	Walk(root, func(n Node, _ int) bool {
		switch n := n.(type) {
		case *Leaf:
			b := n.Box
			if b.Min.X < src.Width() && b.Min.Y < src.Height() {
				require.Equal(t, src.Pixel(b.Min.X, b.Min.Y), n.Value, "leaf %v candidate", b)
			}
			for y := b.Min.Y; y < b.Max.Y; y++ {
				for x := b.Min.X; x < b.Max.X; x++ {
					require.Equal(t, n.Value, src.Pixel(x, y), "leaf %v pixel (%d,%d)", b, x, y)
				}
			}

		case *Interior:
			require.False(t, n.Color().Resolved())
			var area uint64
			for i, c := range n.Children {
				require.NotNil(t, c, "child %d of %v", i, n.Box)
				require.True(t, n.Box.ContainsBox(c.Bounds()))
				area += c.Bounds().Area()
				for j := i + 1; j < 4; j++ {
					require.False(t, c.Bounds().Overlaps(n.Children[j].Bounds()))
				}
			}
			require.Equal(t, n.Box.Area(), area)
		}
		return true
	})
}
