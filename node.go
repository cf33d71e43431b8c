package regionqt

import "image/color"

// Node is a region of the tree: either a *Leaf or an *Interior.
type Node interface {
	// Bounds returns the pixel rectangle covered by the node.
	Bounds() BoundingBox

	// Color returns the resolved color of a leaf, gray for interiors.
	Color() Color

	node()
}

// Leaf is a uniformly colored region.
type Leaf struct {
	Box   BoundingBox
	Value color.NRGBA
}

func (l *Leaf) Bounds() BoundingBox { return l.Box }
func (l *Leaf) Color() Color        { return DataOf(l.Value) }
func (l *Leaf) node()               {}

// Interior is a mixed region split into the four quadrants of its box, in
// canonical order. All four children are always set.
type Interior struct {
	Box      BoundingBox
	Children [4]Node
}

func (n *Interior) Bounds() BoundingBox { return n.Box }
func (n *Interior) Color() Color        { return Gray() }
func (n *Interior) node()               {}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of the visited node.
func Walk(n Node, fn func(n Node, depth int) bool) {
	walk(n, 0, fn)
}

func walk(n Node, depth int, fn func(Node, int) bool) {
	if n == nil || !fn(n, depth) {
		return
	}
	if in, ok := n.(*Interior); ok {
		for _, c := range in.Children {
			walk(c, depth+1, fn)
		}
	}
}

// TreeStats summarises the shape of a tree.
type TreeStats struct {
	Leaves    int `json:"leaves"`
	Interiors int `json:"interiors"`
	Depth     int `json:"depth"`
}

// Nodes returns the total number of nodes.
func (s TreeStats) Nodes() int {
	return s.Leaves + s.Interiors
}

// Stats counts the leaves and interiors under n and measures its depth. A
// single leaf has depth 0.
func Stats(n Node) TreeStats {
	var s TreeStats
	Walk(n, func(n Node, depth int) bool {
		if depth > s.Depth {
			s.Depth = depth
		}
		switch n.(type) {
		case *Leaf:
			s.Leaves++
		case *Interior:
			s.Interiors++
		}
		return true
	})
	return s
}
