// Package imageio decodes image files into pixel sources and encodes pixel
// buffers back to files. It is the persistence boundary of regionqt: every
// read failure is reported as regionqt.ErrTypeSourceUnavailable.
package imageio

import (
	"bufio"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/svanichkin/regionqt"
	"github.com/xfmoulet/qoi"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Output formats supported by Encode.
const (
	FormatPNG = "png"
	FormatQOI = "qoi"
)

// Decode reads an image in any registered format (png, jpeg, gif, qoi, bmp,
// tiff, webp) and returns it as a pixel buffer with its format name.
func Decode(r io.Reader) (*regionqt.Buffer, string, error) {
	img, format, err := image.Decode(bufio.NewReader(r))
	if err != nil {
		return nil, "", errors.New("decoding image failed").
			WithType(regionqt.ErrTypeSourceUnavailable).
			Wrap(err)
	}
	return regionqt.FromImage(img), format, nil
}

// DecodeConfig reads only the format and dimensions of an image, so that
// callers can refuse oversized images before decoding their pixels.
func DecodeConfig(r io.Reader) (image.Config, string, error) {
	conf, format, err := image.DecodeConfig(bufio.NewReader(r))
	if err != nil {
		return image.Config{}, "", errors.New("decoding image header failed").
			WithType(regionqt.ErrTypeSourceUnavailable).
			Wrap(err)
	}
	return conf, format, nil
}

// Open decodes the image stored at path.
func Open(path string) (*regionqt.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", errors.New("opening image failed").
			WithType(regionqt.ErrTypeSourceUnavailable).
			WithTag("path", path).
			Wrap(err)
	}
	defer f.Close()

	buf, format, err := Decode(f)
	if err != nil {
		return nil, "", errors.New("reading image failed").
			WithType(regionqt.ErrTypeSourceUnavailable).
			WithTag("path", path).
			Wrap(err)
	}
	return buf, format, nil
}

// Encode writes img in the given format.
func Encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case FormatPNG:
		return png.Encode(w, img)

	case FormatQOI:
		return qoi.Encode(w, img)

	default:
		return errors.New("unsupported output format").
			WithTag("format", format)
	}
}

// Save writes img to path, picking the format from the file extension.
// Unknown extensions are written as PNG.
func Save(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.New("creating image file failed").
			WithTag("path", path).
			Wrap(err)
	}

	if err := Encode(f, img, FormatFromPath(path)); err != nil {
		f.Close()
		return errors.New("encoding image failed").
			WithTag("path", path).
			Wrap(err)
	}
	return f.Close()
}

// FormatFromPath maps a file extension to an output format.
func FormatFromPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".qoi") {
		return FormatQOI
	}
	return FormatPNG
}
