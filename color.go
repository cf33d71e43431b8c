package regionqt

import (
	"fmt"
	"image/color"
)

// Color is the state of a region: unresolved (gray) while the region is
// mixed, or a single resolved RGBA value once it is known to be uniform.
type Color struct {
	c        color.NRGBA
	resolved bool
}

// Gray returns the unresolved color carried by interior nodes.
func Gray() Color {
	return Color{}
}

// Data returns the resolved color (r, g, b, a), alpha not premultiplied.
func Data(r, g, b, a uint8) Color {
	return Color{c: color.NRGBA{R: r, G: g, B: b, A: a}, resolved: true}
}

// DataOf returns the resolved color c.
func DataOf(c color.NRGBA) Color {
	return Color{c: c, resolved: true}
}

func (c Color) Resolved() bool {
	return c.resolved
}

// Value returns the non-premultiplied channels of a resolved color. The
// boolean is false for gray.
func (c Color) Value() (color.NRGBA, bool) {
	return c.c, c.resolved
}

func (c Color) Equal(o Color) bool {
	return c == o
}

func (c Color) String() string {
	if !c.resolved {
		return "gray"
	}
	return hexRGBA(c.c)
}

func hexRGBA(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
