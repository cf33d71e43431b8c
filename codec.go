package regionqt

import (
	"bytes"
	"encoding/binary"
	"io"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/klauspost/compress/zstd"
)

// Encoded tree layout:
//
//	width  uint32 little-endian
//	height uint32 little-endian
//	nodes  pre-order, starting with the root:
//	  1 byte tag: 1 = leaf, 0 = interior
//	  leaf:     r, g, b, a (non-premultiplied)
//	  interior: the 4 children in canonical quadrant order
//
// The node boxes are not stored: they are derived from width/height with
// BoundingBox.Quadrants while decoding.
const (
	tagInterior byte = 0
	tagLeaf     byte = 1

	headerSize = 8
)

// Container written by Save: magic(4) + version(1) + flags(1) + stream.
const (
	containerMagic   = "RGQT"
	containerVersion = 1

	flagZstd byte = 1 << 0
)

// Limits applied by Decode and Load unless overridden.
const (
	// DefaultMaxPixels bounds width*height of a decoded tree. Rasterizing a
	// tree of that size takes 1 GiB.
	DefaultMaxPixels = 1 << 28

	// DefaultMaxStreamSize bounds the size of a node stream, after
	// decompression for compressed containers.
	DefaultMaxStreamSize = 1 << 30
)

// DecodeOption configures Decode and Load.
type DecodeOption func(*decodeConfig)

type decodeConfig struct {
	maxPixels     uint64
	maxStreamSize int
}

func newDecodeConfig(opts []DecodeOption) decodeConfig {
	c := decodeConfig{
		maxPixels:     DefaultMaxPixels,
		maxStreamSize: DefaultMaxStreamSize,
	}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// WithMaxPixels rejects trees whose width*height exceeds n. n <= 0 keeps
// DefaultMaxPixels.
func WithMaxPixels(n int64) DecodeOption {
	return func(c *decodeConfig) {
		if n > 0 {
			c.maxPixels = uint64(n)
		}
	}
}

// WithMaxStreamSize rejects node streams longer than n bytes. n <= 0 keeps
// DefaultMaxStreamSize.
func WithMaxStreamSize(n int) DecodeOption {
	return func(c *decodeConfig) {
		if n > 0 {
			c.maxStreamSize = n
		}
	}
}

// Encode serializes t in the baseline format.
func Encode(t *Tree) ([]byte, error) {
	if t == nil || t.root == nil {
		return nil, errEmptyTree("encode")
	}

	var b bytes.Buffer
	b.Grow(headerSize + Stats(t.root).Nodes()*2)

	var hdr [headerSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], t.width)
	binary.LittleEndian.PutUint32(hdr[4:8], t.height)
	b.Write(hdr[:])

	encodeRegion(&b, t.root)
	return b.Bytes(), nil
}

func encodeRegion(b *bytes.Buffer, n Node) {
	switch n := n.(type) {
	case *Leaf:
		b.Write([]byte{tagLeaf, n.Value.R, n.Value.G, n.Value.B, n.Value.A})

	case *Interior:
		b.WriteByte(tagInterior)
		for _, c := range n.Children {
			encodeRegion(b, c)
		}
	}
}

// Decode parses a tree produced by Encode. Truncated, malformed or trailing
// input, or input over the configured limits, fails with ErrTypeCorruptData
// and no tree is returned.
func Decode(data []byte, opts ...DecodeOption) (*Tree, error) {
	return decode(data, newDecodeConfig(opts))
}

func decode(data []byte, conf decodeConfig) (*Tree, error) {
	if len(data) > conf.maxStreamSize {
		return nil, errors.New("encoded tree exceeds the stream size limit").
			WithType(ErrTypeCorruptData).
			WithTag("size", len(data)).
			WithTag("limit", conf.maxStreamSize)
	}

	r := nodeReader{data: data}

	w, err := r.uint32()
	if err != nil {
		return nil, err
	}
	h, err := r.uint32()
	if err != nil {
		return nil, err
	}
	if w == 0 || h == 0 {
		return nil, errors.New("encoded tree has an empty size").
			WithType(ErrTypeCorruptData).
			WithTag("width", w).
			WithTag("height", h)
	}
	if uint64(w)*uint64(h) > conf.maxPixels {
		return nil, errors.New("encoded tree exceeds the pixel limit").
			WithType(ErrTypeCorruptData).
			WithTag("width", w).
			WithTag("height", h).
			WithTag("limit", conf.maxPixels)
	}

	root, err := decodeRegion(&r, Rect(w, h))
	if err != nil {
		return nil, err
	}
	if r.remaining() != 0 {
		return nil, errors.New("trailing bytes after the root node").
			WithType(ErrTypeCorruptData).
			WithTag("offset", r.pos).
			WithTag("trailing", r.remaining())
	}

	return &Tree{root: root, width: w, height: h}, nil
}

// decodeRegion mirrors encodeRegion.
func decodeRegion(r *nodeReader, box BoundingBox) (Node, error) {
	tag, err := r.byte()
	if err != nil {
		return nil, err
	}

	switch tag {
	case tagLeaf:
		c, err := r.next(4)
		if err != nil {
			return nil, err
		}
		l := &Leaf{Box: box}
		l.Value.R, l.Value.G, l.Value.B, l.Value.A = c[0], c[1], c[2], c[3]
		return l, nil

	case tagInterior:
		// The builder never splits these boxes; accepting them would let
		// hostile input grow the tree without bound.
		if box.Empty() || !box.Divisible() {
			return nil, errors.New("interior node on an indivisible box").
				WithType(ErrTypeCorruptData).
				WithTag("offset", r.pos-1).
				WithTag("box", box.String())
		}
		n := &Interior{Box: box}
		for i, q := range box.Quadrants() {
			c, err := decodeRegion(r, q)
			if err != nil {
				return nil, err
			}
			n.Children[i] = c
		}
		return n, nil

	default:
		return nil, errors.New("invalid node tag").
			WithType(ErrTypeCorruptData).
			WithTag("offset", r.pos-1).
			WithTag("tag", tag)
	}
}

// nodeReader reads the byte stream and remembers the offset for error
// reporting.
type nodeReader struct {
	data []byte
	pos  int
}

func (r *nodeReader) remaining() int {
	return len(r.data) - r.pos
}

func (r *nodeReader) next(n int) ([]byte, error) {
	if r.remaining() < n {
		return nil, errors.New("unexpected end of encoded tree").
			WithType(ErrTypeCorruptData).
			WithTag("offset", r.pos).
			WithTag("want", n).
			WithTag("have", r.remaining())
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *nodeReader) byte() (byte, error) {
	b, err := r.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *nodeReader) uint32() (uint32, error) {
	b, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// SaveOption configures Save.
type SaveOption func(*saveConfig)

type saveConfig struct {
	compress bool
}

// WithCompression zstd-compresses the node stream inside the container.
func WithCompression(enabled bool) SaveOption {
	return func(c *saveConfig) {
		c.compress = enabled
	}
}

// Save serializes t in a versioned container around the Encode stream.
func Save(t *Tree, opts ...SaveOption) ([]byte, error) {
	var conf saveConfig
	for _, o := range opts {
		o(&conf)
	}

	stream, err := Encode(t)
	if err != nil {
		return nil, err
	}

	var flags byte
	if conf.compress {
		if stream, err = compressZstd(stream); err != nil {
			return nil, errors.New("compressing encoded tree failed").Wrap(err)
		}
		flags |= flagZstd
	}

	out := make([]byte, 0, len(containerMagic)+2+len(stream))
	out = append(out, containerMagic...)
	out = append(out, containerVersion, flags)
	out = append(out, stream...)
	return out, nil
}

// Load parses the output of Save. Input that does not start with the
// container magic is decoded as a bare Encode stream. A bare stream whose
// width is 0x54514752 starts with the magic bytes as well and is therefore
// not accepted by Load; use Decode for bare streams when that matters.
func Load(data []byte, opts ...DecodeOption) (*Tree, error) {
	conf := newDecodeConfig(opts)
	if !bytes.HasPrefix(data, []byte(containerMagic)) {
		return decode(data, conf)
	}

	r := nodeReader{data: data, pos: len(containerMagic)}
	version, err := r.byte()
	if err != nil {
		return nil, err
	}
	if version != containerVersion {
		return nil, errors.New("unsupported container version").
			WithType(ErrTypeCorruptData).
			WithTag("version", version)
	}
	flags, err := r.byte()
	if err != nil {
		return nil, err
	}
	if flags&^flagZstd != 0 {
		return nil, errors.New("unknown container flags").
			WithType(ErrTypeCorruptData).
			WithTag("flags", flags)
	}

	stream := data[r.pos:]
	if flags&flagZstd != 0 {
		if stream, err = decompressZstd(stream, conf.maxStreamSize); err != nil {
			return nil, errors.New("decompressing encoded tree failed").
				WithType(ErrTypeCorruptData).
				Wrap(err)
		}
	}
	return decode(stream, conf)
}

var zstdEncPool = sync.Pool{
	New: func() any {
		enc, _ := zstd.NewWriter(nil)
		return enc
	},
}

var zstdDecPool = sync.Pool{
	New: func() any {
		dec, _ := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(DefaultMaxStreamSize),
		)
		return dec
	},
}

func compressZstd(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	enc := zstdEncPool.Get().(*zstd.Encoder)
	defer zstdEncPool.Put(enc)
	enc.Reset(&buf)

	if _, err := enc.Write(data); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decompressZstd fails once the output grows past limit bytes.
func decompressZstd(data []byte, limit int) ([]byte, error) {
	dec := zstdDecPool.Get().(*zstd.Decoder)
	defer zstdDecPool.Put(dec)

	if err := dec.Reset(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if _, err := out.ReadFrom(io.LimitReader(dec, int64(limit)+1)); err != nil {
		return nil, err
	}
	if out.Len() > limit {
		return nil, errors.New("decompressed stream exceeds the size limit").
			WithTag("limit", limit)
	}
	return out.Bytes(), nil
}
