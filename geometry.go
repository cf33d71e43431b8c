package regionqt

import (
	"fmt"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Point is an integer pixel coordinate.
type Point struct {
	X, Y uint32
}

// Pt is a shorthand for Point{X: x, Y: y}.
func Pt(x, y uint32) Point {
	return Point{X: x, Y: y}
}

// Add returns the component-wise sum of p and q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns the component-wise difference of p and q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Half returns p with both components divided by 2, rounded down.
func (p Point) Half() Point {
	return Point{X: p.X / 2, Y: p.Y / 2}
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// BoundingBox is the pixel rectangle [Min.X, Max.X) x [Min.Y, Max.Y).
type BoundingBox struct {
	Min, Max Point
}

// NewBoundingBox returns the box spanning min to max. It fails with
// ErrTypeInvalidBoundingBox when min exceeds max on either axis.
func NewBoundingBox(min, max Point) (BoundingBox, error) {
	if min.X > max.X || min.Y > max.Y {
		return BoundingBox{}, errors.New("invalid bounding box").
			WithType(ErrTypeInvalidBoundingBox).
			WithTag("min", min.String()).
			WithTag("max", max.String())
	}
	return BoundingBox{Min: min, Max: max}, nil
}

// MustBoundingBox is like NewBoundingBox but panics on an invalid box.
func MustBoundingBox(min, max Point) BoundingBox {
	b, err := NewBoundingBox(min, max)
	if err != nil {
		panic(err)
	}
	return b
}

// Rect returns the box with corners (0,0) and (w,h).
func Rect(w, h uint32) BoundingBox {
	return BoundingBox{Max: Point{X: w, Y: h}}
}

func (b BoundingBox) Width() uint32 {
	return b.Max.X - b.Min.X
}

func (b BoundingBox) Height() uint32 {
	return b.Max.Y - b.Min.Y
}

// Area returns the number of pixels covered by the box.
func (b BoundingBox) Area() uint64 {
	return uint64(b.Width()) * uint64(b.Height())
}

// Empty reports whether the box covers no pixel.
func (b BoundingBox) Empty() bool {
	return b.Width() == 0 || b.Height() == 0
}

// Divisible reports whether quartering the box yields smaller boxes. Boxes
// no larger than one pixel on both axes are leaves.
func (b BoundingBox) Divisible() bool {
	return b.Width() > 1 || b.Height() > 1
}

// Center is the split point of the box, rounded down toward Min. Every
// quartering of a box goes through this point.
func (b BoundingBox) Center() Point {
	return b.Min.Add(b.Max).Half()
}

// Quadrants returns the four children of b in canonical order: top-left,
// top-right, bottom-left, bottom-right. For odd sizes the split favours Min,
// so the children are not always the same size.
func (b BoundingBox) Quadrants() [4]BoundingBox {
	c := b.Center()
	return [4]BoundingBox{
		{Min: Point{X: b.Min.X, Y: c.Y}, Max: Point{X: c.X, Y: b.Max.Y}},
		{Min: c, Max: b.Max},
		{Min: b.Min, Max: c},
		{Min: Point{X: c.X, Y: b.Min.Y}, Max: Point{X: b.Max.X, Y: c.Y}},
	}
}

// Contains reports whether p lies inside b or on its border.
func (b BoundingBox) Contains(p Point) bool {
	return b.Min.X <= p.X && p.X <= b.Max.X && b.Min.Y <= p.Y && p.Y <= b.Max.Y
}

// ContainsBox reports whether o lies entirely inside b.
func (b BoundingBox) ContainsBox(o BoundingBox) bool {
	return b.Contains(o.Min) && b.Contains(o.Max)
}

// Overlaps reports whether b and o share at least one pixel.
func (b BoundingBox) Overlaps(o BoundingBox) bool {
	return b.Min.X < o.Max.X && o.Min.X < b.Max.X && b.Min.Y < o.Max.Y && o.Min.Y < b.Max.Y
}

// Edges returns the four border segments of the box, walking from Min.
func (b BoundingBox) Edges() [4]Segment {
	tl := Point{X: b.Min.X, Y: b.Max.Y}
	br := Point{X: b.Max.X, Y: b.Min.Y}
	return [4]Segment{
		{A: b.Min, B: tl},
		{A: tl, B: b.Max},
		{A: b.Max, B: br},
		{A: br, B: b.Min},
	}
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("%v-%v", b.Min, b.Max)
}

// Segment is a straight line between two points.
type Segment struct {
	A, B Point
}

func (s Segment) Vertical() bool {
	return s.A.X == s.B.X
}

func (s Segment) Horizontal() bool {
	return s.A.Y == s.B.Y
}
