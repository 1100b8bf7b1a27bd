package imagecodec

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gltfatlas/atlas"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	return imaging.New(w, h, c)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := New()
	red := color.NRGBA{255, 0, 0, 255}
	data, err := codec.Encode(solid(4, 3, red), "image/png")
	require.NoError(t, err)

	img, err := codec.Decode(data, "image/png")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())
	assert.Equal(t, red, color.NRGBAModel.Convert(img.At(2, 1)))

	sniffed, err := codec.Decode(data, "")
	require.NoError(t, err)
	assert.Equal(t, 4, sniffed.Bounds().Dx())
}

func TestUnsupportedFormats(t *testing.T) {
	codec := New()
	assert.True(t, codec.CanEncode("image/jpeg"))
	assert.False(t, codec.CanEncode("image/webp"))

	_, err := codec.Encode(solid(1, 1, color.NRGBA{}), "image/webp")
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = codec.Decode([]byte{0, 1, 2}, "image/avif")
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = codec.Decode([]byte("not an image"), "image/png")
	assert.Error(t, err)
}

func TestRotate90CounterClockwise(t *testing.T) {
	img := imaging.New(2, 1, color.NRGBA{})
	img.SetNRGBA(1, 0, color.NRGBA{0, 255, 0, 255})
	rot := New().Rotate90(img)
	require.Equal(t, image.Rect(0, 0, 1, 2), rot.Bounds())
	// the right end of a row ends up on top
	assert.Equal(t, color.NRGBA{0, 255, 0, 255}, color.NRGBAModel.Convert(rot.At(0, 0)))
}

func TestComposite(t *testing.T) {
	codec := New()
	blue := color.NRGBA{0, 0, 255, 255}
	out, err := codec.Composite(8, 8, []atlas.Layer{{Image: solid(2, 2, blue), X: 3, Y: 4}})
	require.NoError(t, err)
	assert.Equal(t, blue, color.NRGBAModel.Convert(out.At(4, 5)))
	assert.Equal(t, color.NRGBA{}, color.NRGBAModel.Convert(out.At(0, 0)))

	_, err = codec.Composite(8, 8, []atlas.Layer{{Image: solid(2, 2, blue), X: 7, Y: 0}})
	assert.Error(t, err)
}

func TestDeterministicEncode(t *testing.T) {
	codec := New()
	img := solid(16, 16, color.NRGBA{10, 20, 30, 255})
	a, err := codec.Encode(img, "image/png")
	require.NoError(t, err)
	b, err := codec.Encode(img, "image/png")
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b))
}

func TestResize(t *testing.T) {
	out := New().Resize(solid(40, 20, color.NRGBA{255, 255, 255, 255}), 10, 5)
	assert.Equal(t, image.Rect(0, 0, 10, 5), out.Bounds())
}
