package regionqt

import (
	"iter"
	"math"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

// Tree is a region quadtree built from a pixel source. The zero value, like
// New, is an empty tree.
type Tree struct {
	root   Node
	width  uint32
	height uint32
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{}
}

// Build replaces the tree with the region quadtree of src. On error the
// previous tree is discarded and t is left empty.
func (t *Tree) Build(src PixelSource, opts ...BuildOption) error {
	t.root, t.width, t.height = nil, 0, 0

	if src == nil {
		return errors.New("pixel source is nil").
			WithType(ErrTypeSourceUnavailable)
	}
	w, h := src.Width(), src.Height()
	if w == 0 || h == 0 {
		return errors.New("pixel source is empty").
			WithType(ErrTypeSourceUnavailable).
			WithTag("width", w).
			WithTag("height", h)
	}

	start := time.Now()
	root := BuildNode(src, Rect(w, h), opts...)
	t.root, t.width, t.height = root, w, h

	stats := Stats(root)
	logs.WithTag("width", w).
		WithTag("height", h).
		WithTag("leaves", stats.Leaves).
		WithTag("depth", stats.Depth).
		WithTag("duration", time.Since(start).String()).
		Debug("region quadtree built")
	return nil
}

// Build is a shorthand for New followed by Tree.Build.
func Build(src PixelSource, opts ...BuildOption) (*Tree, error) {
	t := New()
	if err := t.Build(src, opts...); err != nil {
		return nil, err
	}
	return t, nil
}

// Empty reports whether the tree has not been built.
func (t *Tree) Empty() bool {
	return t.root == nil
}

// Root returns the root node, or nil for an empty tree.
func (t *Tree) Root() Node {
	return t.root
}

// Dimensions returns the size of the image the tree was built from.
func (t *Tree) Dimensions() (w, h uint32, err error) {
	if t.root == nil {
		return 0, 0, errEmptyTree("dimensions")
	}
	return t.width, t.height, nil
}

// PixelBuffer rasterizes the tree back into pixels. Trees too large to be
// held in memory as an image fail with ErrTypeInvalidBoundingBox.
func (t *Tree) PixelBuffer() (*Buffer, error) {
	if t.root == nil {
		return nil, errEmptyTree("rasterize")
	}
	if uint64(t.width)*uint64(t.height) > maxRasterPixels {
		return nil, errors.New("tree is too large to rasterize").
			WithType(ErrTypeInvalidBoundingBox).
			WithTag("width", t.width).
			WithTag("height", t.height)
	}
	return Rasterize(t.root, t.width, t.height), nil
}

// OverlayLines returns the split lines of the tree, see SplitLines.
func (t *Tree) OverlayLines() (iter.Seq[Segment], error) {
	if t.root == nil {
		return nil, errEmptyTree("overlay lines")
	}
	return SplitLines(t.root), nil
}

// Stats returns the shape of the tree.
func (t *Tree) Stats() (TreeStats, error) {
	if t.root == nil {
		return TreeStats{}, errEmptyTree("stats")
	}
	return Stats(t.root), nil
}

// MarshalBinary implements encoding.BinaryMarshaler with Encode.
func (t *Tree) MarshalBinary() ([]byte, error) {
	return Encode(t)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler with Decode. t is
// only modified on success.
func (t *Tree) UnmarshalBinary(data []byte) error {
	d, err := Decode(data)
	if err != nil {
		return err
	}
	*t = *d
	return nil
}

// maxRasterPixels keeps the 4 bytes per pixel of a raster within int.
const maxRasterPixels = math.MaxInt / 4

func errEmptyTree(op string) error {
	return errors.New("tree is not built").
		WithType(ErrTypeEmptyTree).
		WithTag("operation", op)
}
