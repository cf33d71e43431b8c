package regionqt

import "iter"

// Rasterize paints every leaf under root into a new w x h buffer.
func Rasterize(root Node, w, h uint32) *Buffer {
	buf := NewBuffer(w, h)
	Walk(root, func(n Node, _ int) bool {
		if l, ok := n.(*Leaf); ok {
			buf.Fill(l.Box, l.Value)
		}
		return true
	})
	return buf
}

// SplitLines yields, in pre-order, the two split lines of every interior
// node: the vertical line through the center first, then the horizontal
// one. Leaves yield nothing. The sequence can be iterated several times.
func SplitLines(root Node) iter.Seq[Segment] {
	return func(yield func(Segment) bool) {
		stopped := false
		Walk(root, func(n Node, _ int) bool {
			if stopped {
				return false
			}
			in, ok := n.(*Interior)
			if !ok {
				return true
			}
			b := in.Box
			c := b.Center()
			if !yield(Segment{A: Point{X: c.X, Y: b.Min.Y}, B: Point{X: c.X, Y: b.Max.Y}}) ||
				!yield(Segment{A: Point{X: b.Min.X, Y: c.Y}, B: Point{X: b.Max.X, Y: c.Y}}) {
				stopped = true
				return false
			}
			return true
		})
	}
}

// Leaves yields every leaf under root in pre-order.
func Leaves(root Node) iter.Seq[*Leaf] {
	return func(yield func(*Leaf) bool) {
		stopped := false
		Walk(root, func(n Node, _ int) bool {
			if stopped {
				return false
			}
			if l, ok := n.(*Leaf); ok && !yield(l) {
				stopped = true
			}
			return !stopped
		})
	}
}
