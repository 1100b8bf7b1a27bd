package atlas

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"gltfatlas/rectpack"
	"gltfatlas/scene"
)

type testCodec struct{}

func (testCodec) Decode(data []byte, mime string) (image.Image, error) {
	return imaging.Decode(bytes.NewReader(data))
}

func (testCodec) Resize(img image.Image, w, h int) image.Image {
	return imaging.Resize(img, w, h, imaging.NearestNeighbor)
}

func (testCodec) Rotate90(img image.Image) image.Image {
	return imaging.Rotate90(img)
}

func (testCodec) Composite(w, h int, layers []Layer) (image.Image, error) {
	dst := imaging.New(w, h, color.NRGBA{})
	for _, l := range layers {
		b := l.Image.Bounds()
		draw.Draw(dst, image.Rect(l.X, l.Y, l.X+b.Dx(), l.Y+b.Dy()), l.Image, b.Min, draw.Src)
	}
	return dst, nil
}

func (testCodec) Encode(img image.Image, mime string) ([]byte, error) {
	var buf bytes.Buffer
	err := imaging.Encode(&buf, img, imaging.PNG)
	return buf.Bytes(), err
}

// failingCodec fails to composite pages holding exactly failLayers items.
type failingCodec struct {
	testCodec
	failLayers int
}

func (c failingCodec) Composite(w, h int, layers []Layer) (image.Image, error) {
	if len(layers) == c.failLayers {
		return nil, errors.New("composite failed")
	}
	return c.testCodec.Composite(w, h, layers)
}

// pngBytes encodes an image whose pixel (x, y) has a color unique to its position.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, pixelColor(x, y))
		}
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func pixelColor(x, y int) color.NRGBA {
	return color.NRGBA{uint8(x), uint8(y), uint8(x ^ y), 255}
}

func addTexture(t *testing.T, doc *scene.Document, name string, w, h int) *scene.Texture {
	tex := doc.CreateTexture(name)
	tex.MimeType = "image/png"
	tex.Image = pngBytes(t, w, h)
	return tex
}

// addMaterial creates a material with tex in slot and one primitive carrying TEXCOORD_0.
func addMaterial(t *testing.T, doc *scene.Document, name, slot string, tex *scene.Texture, uvs ...float32) *scene.Material {
	m := scene.NewMaterial(name)
	m.SetTexture(slot, tex)
	doc.AddMaterial(m)
	if len(uvs) == 0 {
		uvs = []float32{0, 0, 1, 0, 1, 1, 0, 1}
	}
	acc, err := scene.NewFloatAccessor("VEC2", uvs)
	require.NoError(t, err)
	doc.AddAccessor(acc)
	prim := &scene.Primitive{Material: m}
	prim.SetAttribute("TEXCOORD_0", acc)
	doc.AddMesh(&scene.Mesh{Name: name, Primitives: []*scene.Primitive{prim}})
	return m
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Codec = testCodec{}
	return opts
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func requireNoOverlap(t *testing.T, page *Page, padding int) {
	t.Helper()
	for i, a := range page.Items {
		ra := a.Placement.Inflate(padding)
		require.True(t, ra.X >= 0 && ra.Y >= 0, "placement %s outside page", a.Placement.String())
		require.LessOrEqual(t, a.Placement.Right()+padding, page.Width)
		require.LessOrEqual(t, a.Placement.Bottom()+padding, page.Height)
		for _, b := range page.Items[i+1:] {
			require.False(t, ra.Intersects(b.Placement.Inflate(padding)),
				"%s and %s overlap", a.Placement.String(), b.Placement.String())
		}
	}
}

func placementOf(t *testing.T, report *Report, tex *scene.Texture) (rectpack.Placement, *Page) {
	t.Helper()
	for _, page := range report.Pages() {
		for _, it := range page.Items {
			if it.Candidate.Texture == tex {
				return it.Placement, page
			}
		}
	}
	t.Fatalf("texture %q not placed", tex.Name)
	return rectpack.Placement{}, nil
}

func solidImage(w, h int) image.Image {
	return imaging.New(w, h, color.NRGBA{128, 128, 128, 255})
}
