package regionqt

import (
	"bytes"
	"image/color"
	"runtime"
	"sync"
)

// Boxes smaller than this are always built on the calling goroutine; the
// scheduling cost would outweigh the scan.
const parallelMinArea = 64 * 64

// BuildOption configures a build.
type BuildOption func(*builder)

// WithParallelism lets up to n goroutines build independent quadrants
// concurrently. n <= 0 uses GOMAXPROCS. The resulting tree is identical to
// the one produced by a sequential build.
func WithParallelism(n int) BuildOption {
	return func(b *builder) {
		if n <= 0 {
			n = runtime.GOMAXPROCS(0)
		}
		if n > 1 {
			b.sem = make(chan struct{}, n-1)
		} else {
			b.sem = nil
		}
	}
}

type builder struct {
	src PixelSource
	buf *Buffer
	sem chan struct{}
}

// BuildNode builds the region tree of src restricted to box. box must lie
// inside the source.
func BuildNode(src PixelSource, box BoundingBox, opts ...BuildOption) Node {
	b := &builder{src: src}
	if buf, ok := src.(*Buffer); ok {
		b.buf = buf
	}
	for _, o := range opts {
		o(b)
	}
	return b.build(box)
}

func (b *builder) build(box BoundingBox) Node {
	// Every node, zero-area quadrants included, takes the pixel at its
	// minimum corner as candidate. Quartering only produces empty boxes
	// whose minimum corner is a pixel of the parent.
	candidate, ok := b.sample(box.Min)
	if !ok {
		return &Leaf{Box: box}
	}
	if box.Empty() {
		return &Leaf{Box: box, Value: candidate}
	}

	// Must be checked before Center: quartering a single pixel returns the
	// same pixel and never terminates.
	if !box.Divisible() || b.homogeneous(box, candidate) {
		return &Leaf{Box: box, Value: candidate}
	}

	n := &Interior{Box: box}
	quads := box.Quadrants()

	if b.sem == nil || box.Area() < parallelMinArea {
		for i, q := range quads {
			n.Children[i] = b.build(q)
		}
		return n
	}

	var wg sync.WaitGroup
	for i, q := range quads {
		select {
		case b.sem <- struct{}{}:
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-b.sem }()
				n.Children[i] = b.build(q)
			}()

		default:
			n.Children[i] = b.build(q)
		}
	}
	wg.Wait()
	return n
}

// sample reads the pixel at p. It reports false when p lies outside the
// source, which only happens for an empty box passed to BuildNode on the
// source edge.
func (b *builder) sample(p Point) (color.NRGBA, bool) {
	if p.X >= b.src.Width() || p.Y >= b.src.Height() {
		return color.NRGBA{}, false
	}
	return b.src.Pixel(p.X, p.Y), true
}

// homogeneous scans box row by row and stops at the first pixel that
// differs from c.
func (b *builder) homogeneous(box BoundingBox, c color.NRGBA) bool {
	if b.buf != nil {
		return b.homogeneousBuffer(box, c)
	}
	for y := box.Min.Y; y < box.Max.Y; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			if b.src.Pixel(x, y) != c {
				return false
			}
		}
	}
	return true
}

func (b *builder) homogeneousBuffer(box BoundingBox, c color.NRGBA) bool {
	img := b.buf.img
	want := [4]byte{c.R, c.G, c.B, c.A}
	row := int(box.Width()) * 4
	for y := box.Min.Y; y < box.Max.Y; y++ {
		off := img.PixOffset(int(box.Min.X), int(y))
		line := img.Pix[off : off+row]
		for i := 0; i < row; i += 4 {
			if !bytes.Equal(line[i:i+4], want[:]) {
				return false
			}
		}
	}
	return true
}
