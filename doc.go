// Package regionqt converts raster images into region quadtrees.
//
// A region is split into four quadrants around BoundingBox.Center until every
// leaf covers pixels of a single color. The tree rasterizes back to the exact
// source pixels, serializes to a compact pre-order byte stream (Encode,
// Decode, Save, Load) and exposes its split lines for overlays.
//
//	tree, err := regionqt.Build(regionqt.FromImage(img))
//	if err != nil {
//		return err
//	}
//	data, err := regionqt.Save(tree, regionqt.WithCompression(true))
package regionqt
