package regionqt

import (
	"image"
	"image/color"
)

// PixelSource is a decoded pixel grid. Pixel is only called with
// coordinates inside [0, Width) x [0, Height).
type PixelSource interface {
	Width() uint32
	Height() uint32
	Pixel(x, y uint32) color.NRGBA
}

// FromImage adapts any image.Image into a PixelSource. The image is copied
// into a Buffer anchored at (0,0), so later changes to img are not seen.
func FromImage(img image.Image) *Buffer {
	if b, ok := img.(*Buffer); ok {
		return b
	}
	r := img.Bounds()
	dst := NewBuffer(uint32(r.Dx()), uint32(r.Dy()))
	if src, ok := img.(*image.NRGBA); ok {
		// Same layout, copy rows to keep the channels bit exact.
		row := r.Dx() * 4
		for y := 0; y < r.Dy(); y++ {
			so := src.PixOffset(r.Min.X, r.Min.Y+y)
			do := dst.img.PixOffset(0, y)
			copy(dst.img.Pix[do:do+row], src.Pix[so:so+row])
		}
		return dst
	}
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(r.Min.X+x, r.Min.Y+y)).(color.NRGBA)
			dst.img.SetNRGBA(x, y, c)
		}
	}
	return dst
}

// Buffer is a width x height grid of non-premultiplied RGBA pixels. It is
// both a PixelSource for Build and the output of Rasterize.
type Buffer struct {
	img *image.NRGBA
}

// NewBuffer returns a transparent buffer of the given size.
func NewBuffer(w, h uint32) *Buffer {
	return &Buffer{img: image.NewNRGBA(image.Rect(0, 0, int(w), int(h)))}
}

func (b *Buffer) Width() uint32 {
	return uint32(b.img.Rect.Dx())
}

func (b *Buffer) Height() uint32 {
	return uint32(b.img.Rect.Dy())
}

func (b *Buffer) Pixel(x, y uint32) color.NRGBA {
	return b.img.NRGBAAt(int(x), int(y))
}

// SetPixel sets a single pixel. Out of range coordinates are ignored.
func (b *Buffer) SetPixel(x, y uint32, c color.NRGBA) {
	b.img.SetNRGBA(int(x), int(y), c)
}

// Fill paints every pixel of box with c, clipped to the buffer.
func (b *Buffer) Fill(box BoundingBox, c color.NRGBA) {
	r := image.Rect(int(box.Min.X), int(box.Min.Y), int(box.Max.X), int(box.Max.Y)).Intersect(b.img.Rect)
	if r.Empty() {
		return
	}
	row := r.Dx() * 4
	first := b.img.PixOffset(r.Min.X, r.Min.Y)
	line := b.img.Pix[first : first+row]
	for i := 0; i < row; i += 4 {
		line[i+0] = c.R
		line[i+1] = c.G
		line[i+2] = c.B
		line[i+3] = c.A
	}
	for y := r.Min.Y + 1; y < r.Max.Y; y++ {
		off := b.img.PixOffset(r.Min.X, y)
		copy(b.img.Pix[off:off+row], line)
	}
}

// Equal reports whether both buffers have the same size and pixels.
func (b *Buffer) Equal(o *Buffer) bool {
	if b.Width() != o.Width() || b.Height() != o.Height() {
		return false
	}
	for y := uint32(0); y < b.Height(); y++ {
		for x := uint32(0); x < b.Width(); x++ {
			if b.Pixel(x, y) != o.Pixel(x, y) {
				return false
			}
		}
	}
	return true
}

// Image returns the underlying image. It shares memory with the buffer.
func (b *Buffer) Image() *image.NRGBA {
	return b.img
}

// ColorModel, Bounds, At and Set implement draw.Image.
func (b *Buffer) ColorModel() color.Model {
	return color.NRGBAModel
}

func (b *Buffer) Bounds() image.Rectangle {
	return b.img.Rect
}

func (b *Buffer) At(x, y int) color.Color {
	return b.img.At(x, y)
}

func (b *Buffer) Set(x, y int, c color.Color) {
	b.img.Set(x, y, c)
}
