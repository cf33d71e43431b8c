package regionqt

import (
	"bytes"
	"image/color"
	"math"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
)

func checkerboard() *Buffer {
	return bufferOf(2, 2, func(x, y uint32) color.NRGBA {
		return [2][2]color.NRGBA{{red, green}, {blue, white}}[y][x]
	})
}

func TestEncodeLayout(t *testing.T) {
	t.Run("single leaf", func(t *testing.T) {
		data, err := Encode(buildTree(t, uniform(4, 4, color.NRGBA{R: 10, G: 20, B: 30, A: 255})))
		require.NoError(t, err)
		require.Equal(t, []byte{
			4, 0, 0, 0,
			4, 0, 0, 0,
			1, 10, 20, 30, 255,
		}, data)
	})

	t.Run("checkerboard", func(t *testing.T) {
		data, err := Encode(buildTree(t, checkerboard()))
		require.NoError(t, err)
		require.Equal(t, []byte{
			2, 0, 0, 0,
			2, 0, 0, 0,
			0,
			1, 0, 0, 255, 255,
			1, 255, 255, 255, 255,
			1, 255, 0, 0, 255,
			1, 0, 255, 0, 255,
		}, data)
	})

	t.Run("one pixel wide", func(t *testing.T) {
		top := color.NRGBA{R: 1, A: 255}
		bottom := color.NRGBA{G: 2, A: 255}
		src := bufferOf(1, 2, func(x, y uint32) color.NRGBA {
			return [2]color.NRGBA{top, bottom}[y]
		})

		data, err := Encode(buildTree(t, src))
		require.NoError(t, err)
		require.Equal(t, []byte{
			1, 0, 0, 0,
			2, 0, 0, 0,
			0,
			1, 0, 2, 0, 255, // (0,1)-(0,2), empty
			1, 0, 2, 0, 255, // (0,1)-(1,2)
			1, 1, 0, 0, 255, // (0,0)-(0,1), empty
			1, 1, 0, 0, 255, // (0,0)-(1,1)
		}, data)
	})

	t.Run("marshal binary", func(t *testing.T) {
		tree := buildTree(t, checkerboard())
		want, err := Encode(tree)
		require.NoError(t, err)

		got, err := tree.MarshalBinary()
		require.NoError(t, err)
		require.Equal(t, want, got)
	})
}

func TestEncodeEmptyTree(t *testing.T) {
	_, err := Encode(New())
	require.Equal(t, ErrTypeEmptyTree, errors.Type(err))

	_, err = Save(New())
	require.Equal(t, ErrTypeEmptyTree, errors.Type(err))
}

func TestDecodeRoundTrip(t *testing.T) {
	sources := map[string]*Buffer{
		"uniform":      uniform(5, 3, red),
		"checkerboard": checkerboard(),
		"blocky":       blocky(97, 61, 7),
		"column":       blocky(1, 33, 3),
	}

	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			tree := buildTree(t, src)

			data, err := Encode(tree)
			require.NoError(t, err)

			decoded, err := Decode(data)
			require.NoError(t, err)
			require.Equal(t, tree.Root(), decoded.Root())

			w, h, err := decoded.Dimensions()
			require.NoError(t, err)
			require.Equal(t, src.Width(), w)
			require.Equal(t, src.Height(), h)

			buf, err := decoded.PixelBuffer()
			require.NoError(t, err)
			require.True(t, src.Equal(buf))

			again, err := Encode(decoded)
			require.NoError(t, err)
			require.Equal(t, data, again)
		})
	}
}

func TestDecodeCorruptData(t *testing.T) {
	valid, err := Encode(buildTree(t, checkerboard()))
	require.NoError(t, err)

	tests := []struct {
		scenario string
		data     []byte
	}{
		{scenario: "empty input", data: nil},
		{scenario: "truncated header", data: valid[:6]},
		{scenario: "header only", data: valid[:headerSize]},
		{scenario: "cut mid tag stream", data: valid[:headerSize+1+5+2]},
		{scenario: "missing last child", data: valid[:len(valid)-5]},
		{scenario: "trailing bytes", data: append(bytes.Clone(valid), 1)},
		{scenario: "invalid tag", data: append(bytes.Clone(valid[:headerSize]), 7)},
		{scenario: "zero width", data: []byte{0, 0, 0, 0, 1, 0, 0, 0, 1, 1, 2, 3, 4}},
		{scenario: "interior on a single pixel", data: []byte{1, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0}},
	}

	for _, test := range tests {
		t.Run(test.scenario, func(t *testing.T) {
			tree, err := Decode(test.data)
			require.Error(t, err)
			require.Nil(t, tree)
			require.Equal(t, ErrTypeCorruptData, errors.Type(err))
		})
	}
}

func TestUnmarshalBinaryKeepsTreeOnError(t *testing.T) {
	tree := buildTree(t, checkerboard())
	before, err := Encode(tree)
	require.NoError(t, err)

	err = tree.UnmarshalBinary([]byte{1, 2, 3})
	require.Equal(t, ErrTypeCorruptData, errors.Type(err))

	after, err := Encode(tree)
	require.NoError(t, err)
	require.Equal(t, before, after)

	other, err := Encode(buildTree(t, uniform(3, 3, blue)))
	require.NoError(t, err)
	require.NoError(t, tree.UnmarshalBinary(other))

	w, h, err := tree.Dimensions()
	require.NoError(t, err)
	require.Equal(t, uint32(3), w)
	require.Equal(t, uint32(3), h)
}

func TestSaveLoad(t *testing.T) {
	src := blocky(120, 80, 11)
	tree := buildTree(t, src)
	stream, err := Encode(tree)
	require.NoError(t, err)

	t.Run("plain container", func(t *testing.T) {
		data, err := Save(tree)
		require.NoError(t, err)
		require.Equal(t, []byte(containerMagic), data[:4])
		require.Equal(t, byte(containerVersion), data[4])
		require.Equal(t, byte(0), data[5])
		require.Equal(t, stream, data[6:])

		loaded, err := Load(data)
		require.NoError(t, err)
		require.Equal(t, tree.Root(), loaded.Root())
	})

	t.Run("compressed container", func(t *testing.T) {
		data, err := Save(tree, WithCompression(true))
		require.NoError(t, err)
		require.Equal(t, flagZstd, data[5])
		require.Less(t, len(data), len(stream))

		loaded, err := Load(data)
		require.NoError(t, err)

		buf, err := loaded.PixelBuffer()
		require.NoError(t, err)
		require.True(t, src.Equal(buf))
	})

	t.Run("bare stream", func(t *testing.T) {
		loaded, err := Load(stream)
		require.NoError(t, err)
		require.Equal(t, tree.Root(), loaded.Root())
	})
}

func TestLoadCorruptContainer(t *testing.T) {
	stream, err := Encode(buildTree(t, checkerboard()))
	require.NoError(t, err)

	container := func(version, flags byte, payload []byte) []byte {
		return append([]byte{'R', 'G', 'Q', 'T', version, flags}, payload...)
	}

	tests := []struct {
		scenario string
		data     []byte
	}{
		{scenario: "magic only", data: []byte(containerMagic)},
		{scenario: "missing flags", data: []byte{'R', 'G', 'Q', 'T', containerVersion}},
		{scenario: "unknown version", data: container(9, 0, stream)},
		{scenario: "unknown flags", data: container(containerVersion, 0x80, stream)},
		{scenario: "bad zstd payload", data: container(containerVersion, flagZstd, []byte("not zstd"))},
		{scenario: "truncated stream", data: container(containerVersion, 0, stream[:len(stream)-1])},
	}

	for _, test := range tests {
		t.Run(test.scenario, func(t *testing.T) {
			tree, err := Load(test.data)
			require.Error(t, err)
			require.Nil(t, tree)
			require.Equal(t, ErrTypeCorruptData, errors.Type(err))
		})
	}
}

func TestDecodeLimits(t *testing.T) {
	huge := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 1, 1, 2, 3, 4}

	t.Run("default pixel limit", func(t *testing.T) {
		tree, err := Decode(huge)
		require.Nil(t, tree)
		require.Equal(t, ErrTypeCorruptData, errors.Type(err))

		tree, err = Load(huge)
		require.Nil(t, tree)
		require.Equal(t, ErrTypeCorruptData, errors.Type(err))
	})

	t.Run("custom pixel limit", func(t *testing.T) {
		small, err := Encode(buildTree(t, checkerboard()))
		require.NoError(t, err)
		_, err = Decode(small, WithMaxPixels(4))
		require.NoError(t, err)

		large, err := Encode(buildTree(t, uniform(3, 2, red)))
		require.NoError(t, err)
		_, err = Decode(large, WithMaxPixels(4))
		require.Equal(t, ErrTypeCorruptData, errors.Type(err))
	})

	t.Run("stream size limit", func(t *testing.T) {
		stream, err := Encode(buildTree(t, checkerboard()))
		require.NoError(t, err)

		_, err = Decode(stream, WithMaxStreamSize(len(stream)))
		require.NoError(t, err)
		_, err = Decode(stream, WithMaxStreamSize(len(stream)-1))
		require.Equal(t, ErrTypeCorruptData, errors.Type(err))
	})

	t.Run("decompressed size limit", func(t *testing.T) {
		tree := buildTree(t, blocky(120, 80, 11))
		stream, err := Encode(tree)
		require.NoError(t, err)
		data, err := Save(tree, WithCompression(true))
		require.NoError(t, err)

		_, err = Load(data, WithMaxStreamSize(len(stream)))
		require.NoError(t, err)

		loaded, err := Load(data, WithMaxStreamSize(len(stream)-1))
		require.Nil(t, loaded)
		require.Equal(t, ErrTypeCorruptData, errors.Type(err))
	})
}

func TestPixelBufferTooLarge(t *testing.T) {
	// 2^31 x 2^31, a single leaf.
	huge := []byte{0, 0, 0, 0x80, 0, 0, 0, 0x80, 1, 1, 2, 3, 4}

	tree, err := Decode(huge, WithMaxPixels(math.MaxInt64))
	require.NoError(t, err)

	buf, err := tree.PixelBuffer()
	require.Nil(t, buf)
	require.Equal(t, ErrTypeInvalidBoundingBox, errors.Type(err))
}

func TestLoadReadsMagicWidthAsContainer(t *testing.T) {
	// Width 0x54514752 spells the container magic in little-endian.
	data := []byte{'R', 'G', 'Q', 'T', 1, 0, 0, 0, 1, 9, 9, 9, 255}

	_, err := Load(data, WithMaxPixels(math.MaxInt64))
	require.Equal(t, ErrTypeCorruptData, errors.Type(err))

	tree, err := Decode(data, WithMaxPixels(math.MaxInt64))
	require.NoError(t, err)
	w, h, err := tree.Dimensions()
	require.NoError(t, err)
	require.Equal(t, uint32(0x54514752), w)
	require.Equal(t, uint32(1), h)
}
