package imageio

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/svanichkin/regionqt"
)

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 6, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 40), G: uint8(y * 60), B: 90, A: 255})
		}
	}
	return img
}

func TestEncodeDecode(t *testing.T) {
	for _, format := range []string{FormatPNG, FormatQOI} {
		t.Run(format, func(t *testing.T) {
			img := testImage()

			var b bytes.Buffer
			require.NoError(t, Encode(&b, img, format))

			buf, got, err := Decode(&b)
			require.NoError(t, err)
			require.Equal(t, format, got)
			require.True(t, regionqt.FromImage(img).Equal(buf))
		})
	}
}

func TestDecodeConfig(t *testing.T) {
	for _, format := range []string{FormatPNG, FormatQOI} {
		t.Run(format, func(t *testing.T) {
			var b bytes.Buffer
			require.NoError(t, Encode(&b, testImage(), format))

			conf, got, err := DecodeConfig(&b)
			require.NoError(t, err)
			require.Equal(t, format, got)
			require.Equal(t, 6, conf.Width)
			require.Equal(t, 4, conf.Height)
		})
	}

	_, _, err := DecodeConfig(bytes.NewReader([]byte("definitely not an image")))
	require.Equal(t, regionqt.ErrTypeSourceUnavailable, errors.Type(err))
}

func TestEncodeUnsupportedFormat(t *testing.T) {
	var b bytes.Buffer
	require.Error(t, Encode(&b, testImage(), "gif"))
}

func TestDecodeGarbage(t *testing.T) {
	_, _, err := Decode(bytes.NewReader([]byte("definitely not an image")))
	require.Equal(t, regionqt.ErrTypeSourceUnavailable, errors.Type(err))
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, _, err := Open(filepath.Join(dir, "missing.png"))
		require.Equal(t, regionqt.ErrTypeSourceUnavailable, errors.Type(err))
	})

	t.Run("save and open", func(t *testing.T) {
		path := filepath.Join(dir, "img.qoi")
		require.NoError(t, Save(path, testImage()))

		buf, format, err := Open(path)
		require.NoError(t, err)
		require.Equal(t, FormatQOI, format)
		require.Equal(t, uint32(6), buf.Width())
		require.Equal(t, uint32(4), buf.Height())
	})

	t.Run("not an image", func(t *testing.T) {
		path := filepath.Join(dir, "text.png")
		require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

		_, _, err := Open(path)
		require.Equal(t, regionqt.ErrTypeSourceUnavailable, errors.Type(err))
	})
}

func TestFormatFromPath(t *testing.T) {
	require.Equal(t, FormatQOI, FormatFromPath("a/b.QOI"))
	require.Equal(t, FormatPNG, FormatFromPath("a/b.png"))
	require.Equal(t, FormatPNG, FormatFromPath("noext"))
}
