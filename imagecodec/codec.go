// Package imagecodec implements atlas.Codec over disintegration/imaging.
package imagecodec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/webp"

	"gltfatlas/atlas"
)

// ErrUnsupported is returned for formats the codec cannot read or write.
var ErrUnsupported = errors.New("unsupported image format")

var encodeFormats = map[string]imaging.Format{
	"image/png":  imaging.PNG,
	"image/jpeg": imaging.JPEG,
	"image/gif":  imaging.GIF,
	"image/bmp":  imaging.BMP,
	"image/tiff": imaging.TIFF,
}

// Codec decodes PNG, JPEG, WEBP, GIF, BMP and TIFF and encodes all of them except WEBP.
type Codec struct {
	// Filter is the resampling filter used by Resize.
	Filter imaging.ResampleFilter
	// JPEGQuality is the quality of JPEG output, 1 to 100.
	JPEGQuality int
}

var _ atlas.Codec = (*Codec)(nil)
var _ atlas.EncodeChecker = (*Codec)(nil)

// New returns a codec with Lanczos resampling and JPEG quality 95.
func New() *Codec {
	return &Codec{Filter: imaging.Lanczos, JPEGQuality: 95}
}

// Decode parses data. An empty mime lets the format be detected from the bytes.
func (c *Codec) Decode(data []byte, mime string) (image.Image, error) {
	switch mime {
	case "image/webp":
		return webp.Decode(bytes.NewReader(data))
	case "image/avif":
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, mime)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Resize scales img to width x height.
func (c *Codec) Resize(img image.Image, width, height int) image.Image {
	return imaging.Resize(img, width, height, c.Filter)
}

// Rotate90 rotates img 90 degrees counter-clockwise.
func (c *Codec) Rotate90(img image.Image) image.Image {
	return imaging.Rotate90(img)
}

// Composite draws layers onto a transparent canvas. Layers must lie inside the canvas.
func (c *Codec) Composite(width, height int, layers []atlas.Layer) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", width, height)
	}
	dst := imaging.New(width, height, color.NRGBA{0, 0, 0, 0})
	for i, l := range layers {
		src := l.Image.Bounds()
		r := image.Rect(l.X, l.Y, l.X+src.Dx(), l.Y+src.Dy())
		if !r.In(dst.Bounds()) {
			return nil, fmt.Errorf("layer %d at %v outside %dx%d canvas", i, r, width, height)
		}
		draw.Draw(dst, r, l.Image, src.Min, draw.Src)
	}
	return dst, nil
}

// CanEncode reports whether Encode supports mime.
func (c *Codec) CanEncode(mime string) bool {
	_, ok := encodeFormats[mime]
	return ok
}

// Encode serializes img as mime.
func (c *Codec) Encode(img image.Image, mime string) ([]byte, error) {
	format, ok := encodeFormats[mime]
	if !ok {
		return nil, fmt.Errorf("%w: cannot encode %s", ErrUnsupported, mime)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(c.JPEGQuality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
