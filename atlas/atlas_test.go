package atlas

import (
	"bytes"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gltfatlas/rectpack"
	"gltfatlas/scene"
)

func TestFiveTextureScenario(t *testing.T) {
	doc := scene.NewDocument()
	sizes := [][2]int{{64, 64}, {64, 64}, {32, 32}, {128, 128}, {32, 32}}
	for i, s := range sizes {
		tex := addTexture(t, doc, "tex"+string(rune('a'+i)), s[0], s[1])
		addMaterial(t, doc, "mat"+string(rune('a'+i)), scene.BaseColorSlot, tex)
	}

	opts := testOptions()
	opts.MaxSize, opts.Padding, opts.Pow2 = 256, 2, true
	report, err := Run(doc, opts)
	require.NoError(t, err)
	require.NoError(t, report.Err())

	pages := report.Pages()
	require.Len(t, pages, 1)
	page := pages[0]
	require.Len(t, page.Items, 5)
	requireNoOverlap(t, page, opts.Padding)

	var bboxW, bboxH int
	for _, it := range page.Items {
		bboxW = max(bboxW, it.Placement.Right()+opts.Padding)
		bboxH = max(bboxH, it.Placement.Bottom()+opts.Padding)
	}
	assert.GreaterOrEqual(t, page.Width, bboxW)
	assert.GreaterOrEqual(t, page.Height, bboxH)
	assert.Equal(t, nextPowerOfTwo(bboxW), page.Width)
	assert.Equal(t, nextPowerOfTwo(bboxH), page.Height)

	require.Len(t, doc.Textures(), 1, "sources should be disposed")
	atlasTex := doc.Textures()[0]
	assert.Equal(t, "baseColor-atlas-0", atlasTex.Name)
	assert.Equal(t, "image/png", atlasTex.MimeType)
	for _, m := range doc.Materials() {
		slot := m.Slot(scene.BaseColorSlot)
		assert.Same(t, atlasTex, slot.Info.Texture)
		require.NotNil(t, slot.Info.Transform)
		require.NotNil(t, slot.Info.Transform.TexCoord)
		assert.Equal(t, 0, *slot.Info.Transform.TexCoord)
	}
	assert.Contains(t, doc.ExtensionsUsed(), "KHR_texture_transform")
	assert.Equal(t, 5, report.Types[0].Sprites)
}

func TestOversizeTextureRejected(t *testing.T) {
	doc := scene.NewDocument()
	tex := doc.CreateTexture("huge")
	tex.MimeType = "image/png"
	data, err := testCodec{}.Encode(solidImage(4096, 4096), "image/png")
	require.NoError(t, err)
	tex.Image = data
	addMaterial(t, doc, "m", scene.BaseColorSlot, tex)

	log, logs := observedLogger()
	opts := testOptions()
	opts.MaxSize, opts.Logger = 2048, log
	report, err := Run(doc, opts)
	require.NoError(t, err)
	assert.Empty(t, report.Pages())
	require.Len(t, report.Types[0].Rejected, 1)
	assert.Same(t, tex, report.Types[0].Rejected[0].Texture)
	assert.Equal(t, 1, logs.FilterMessage("texture rejected").Len())
	assert.Equal(t, []*scene.Texture{tex}, doc.Textures())
	assert.Nil(t, doc.Materials()[0].Slot(scene.BaseColorSlot).Info.Transform)
}

func TestDownscaleOversize(t *testing.T) {
	doc := scene.NewDocument()
	tex := addTexture(t, doc, "wide", 300, 100)
	addMaterial(t, doc, "m", scene.BaseColorSlot, tex)

	opts := testOptions()
	opts.MaxSize, opts.Padding, opts.Downscale = 128, 2, true
	report, err := Run(doc, opts)
	require.NoError(t, err)
	require.Len(t, report.Pages(), 1)
	it := report.Pages()[0].Items[0]
	assert.Equal(t, 124, it.Placement.Width)
	assert.Equal(t, 41, it.Placement.Height)
	assert.Equal(t, 300, it.Candidate.Width)
}

func TestDisposalSafety(t *testing.T) {
	doc := scene.NewDocument()
	shared := addTexture(t, doc, "shared", 32, 32)
	remapped := addMaterial(t, doc, "remapped", scene.BaseColorSlot, shared)
	kept := scene.NewMaterial("kept")
	kept.SetTexture(scene.EmissiveSlot, shared)
	doc.AddMaterial(kept)

	opts := testOptions()
	opts.Types = []Type{BaseColor}
	report, err := Run(doc, opts)
	require.NoError(t, err)
	require.Len(t, report.Pages(), 1)

	assert.NotSame(t, shared, remapped.Texture(scene.BaseColorSlot))
	assert.Same(t, shared, kept.Texture(scene.EmissiveSlot))
	assert.Contains(t, doc.Textures(), shared, "texture still referenced must not be disposed")
	assert.Len(t, doc.Textures(), 2)
}

func TestConfigErrors(t *testing.T) {
	doc := scene.NewDocument()
	tex := addTexture(t, doc, "t", 8, 8)
	addMaterial(t, doc, "m", scene.BaseColorSlot, tex)

	tests := []struct {
		name   string
		mutate func(*Options)
		target error
	}{
		{"no codec", func(o *Options) { o.Codec = nil }, ErrNoCodec},
		{"padding too large", func(o *Options) { o.MaxSize, o.Padding = 8, 4 }, ErrConfig},
		{"negative padding", func(o *Options) { o.Padding = -1 }, ErrConfig},
		{"unknown type", func(o *Options) { o.Types = []Type{Type(42)} }, ErrConfig},
		{"unknown remap", func(o *Options) { o.Remap = RemapMode(7) }, ErrConfig},
		{"bad algorithm", func(o *Options) { o.Algorithm = rectpack.Heuristic(0x9) }, ErrConfig},
		{"bad glob", func(o *Options) { o.Filter.Include = []string{"[unterminated"} }, ErrConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			tt.mutate(&opts)
			report, err := Run(doc, opts)
			assert.Nil(t, report)
			assert.ErrorIs(t, err, ErrConfig)
			assert.ErrorIs(t, err, tt.target)
			assert.Equal(t, []*scene.Texture{tex}, doc.Textures())
		})
	}
}

func TestFailingTypeDoesNotAbortOthers(t *testing.T) {
	doc := scene.NewDocument()
	a := addTexture(t, doc, "a", 16, 16)
	b := addTexture(t, doc, "b", 16, 16)
	n := addTexture(t, doc, "n", 16, 16)
	addMaterial(t, doc, "ma", scene.BaseColorSlot, a)
	addMaterial(t, doc, "mb", scene.BaseColorSlot, b)
	normal := addMaterial(t, doc, "mn", scene.NormalSlot, n)

	opts := testOptions()
	opts.Codec = failingCodec{failLayers: 2}
	report, err := Run(doc, opts)
	require.NoError(t, err)

	require.Error(t, report.Err())
	assert.Contains(t, report.Err().Error(), "baseColor")
	assert.Error(t, report.Types[BaseColor].Err)
	assert.NoError(t, report.Types[Normal].Err)
	assert.Len(t, report.Types[Normal].Pages, 1)

	assert.Contains(t, doc.Textures(), a)
	assert.Contains(t, doc.Textures(), b)
	assert.NotContains(t, doc.Textures(), n)
	assert.Equal(t, "normal-atlas-0", normal.Texture(scene.NormalSlot).Name)
}

func TestDeterministicRun(t *testing.T) {
	build := func() *scene.Document {
		doc := scene.NewDocument()
		for i, s := range []int{40, 12, 33, 70, 8, 21, 55} {
			tex := addTexture(t, doc, "t"+string(rune('a'+i)), s, 64-s/2)
			addMaterial(t, doc, "m"+string(rune('a'+i)), scene.BaseColorSlot, tex)
		}
		return doc
	}
	opts := testOptions()
	opts.MaxSize, opts.Rotate = 128, true
	first, err := Run(build(), opts)
	require.NoError(t, err)
	second, err := Run(build(), opts)
	require.NoError(t, err)

	require.Equal(t, len(first.Pages()), len(second.Pages()))
	for i, p := range first.Pages() {
		q := second.Pages()[i]
		assert.True(t, bytes.Equal(p.Data, q.Data), "page %d bytes differ", i)
		for j := range p.Items {
			assert.Equal(t, p.Items[j].Placement, q.Items[j].Placement)
		}
	}
}

// TestRotatedSampling checks that sampling the page through the slot transform
// returns the source pixel for a rotated placement.
func TestRotatedSampling(t *testing.T) {
	doc := scene.NewDocument()
	a := addTexture(t, doc, "a", 40, 64)
	b := addTexture(t, doc, "b", 64, 24)
	addMaterial(t, doc, "ma", scene.BaseColorSlot, a)
	mb := addMaterial(t, doc, "mb", scene.BaseColorSlot, b)

	opts := testOptions()
	opts.MaxSize, opts.Padding, opts.Rotate = 64, 0, true
	report, err := Run(doc, opts)
	require.NoError(t, err)
	require.Len(t, report.Pages(), 1)

	pl, page := placementOf(t, report, b)
	require.True(t, pl.Rotated)
	assert.Equal(t, 24, pl.Width)
	assert.Equal(t, 64, pl.Height)

	tr := mb.Slot(scene.BaseColorSlot).Info.Transform
	for _, px := range [][2]int{{0, 0}, {63, 0}, {0, 23}, {63, 23}, {17, 9}} {
		u := (float32(px[0]) + 0.5) / 64
		v := (float32(px[1]) + 0.5) / 24
		pu, pv := tr.Apply(u, v)
		x, y := int(pu*float32(page.Width)), int(pv*float32(page.Height))
		got := color.NRGBAModel.Convert(page.Image.At(x, y))
		assert.Equal(t, pixelColor(px[0], px[1]), got, "source pixel %v sampled at %d,%d", px, x, y)
	}
}

func TestFilterAndFormats(t *testing.T) {
	doc := scene.NewDocument()
	keep := addTexture(t, doc, "wood_albedo", 8, 8)
	skip := addTexture(t, doc, "ui_icon", 8, 8)
	ktx := doc.CreateTexture("wood_compressed")
	ktx.MimeType = "image/ktx2"
	ktx.Image = []byte{0xab, 0x4b, 0x54, 0x58}
	broken := doc.CreateTexture("wood_broken")
	broken.MimeType = "image/png"
	broken.Image = []byte("garbage")
	for _, tex := range []*scene.Texture{keep, skip, ktx, broken} {
		addMaterial(t, doc, tex.Name, scene.BaseColorSlot, tex)
	}

	opts := testOptions()
	opts.Filter = Filter{Include: []string{"wood_*"}}
	report, err := Run(doc, opts)
	require.NoError(t, err)

	tr := report.Types[BaseColor]
	assert.Equal(t, 1, tr.Sprites)
	reasons := map[string]string{}
	for _, r := range tr.Rejected {
		reasons[r.Texture.Name] = r.Reason
	}
	assert.Equal(t, "not matched by include filter", reasons["ui_icon"])
	assert.Contains(t, reasons["wood_compressed"], "unsupported format")
	assert.Contains(t, reasons["wood_broken"], "decode failed")

	doc2 := scene.NewDocument()
	one := addTexture(t, doc2, "one", 8, 8)
	addMaterial(t, doc2, "m", scene.BaseColorSlot, one)
	opts = testOptions()
	opts.Filter = Filter{Exclude: []string{"baseColorTexture"}}
	report, err = Run(doc2, opts)
	require.NoError(t, err)
	require.Len(t, report.Types[BaseColor].Rejected, 1)
	assert.Equal(t, "matched by exclude filter", report.Types[BaseColor].Rejected[0].Reason)
}

func TestCollectSniffsAndOrders(t *testing.T) {
	doc := scene.NewDocument()
	t10 := addTexture(t, doc, "tex10", 4, 4)
	t2 := addTexture(t, doc, "tex2", 4, 4)
	t2.MimeType = ""
	m := scene.NewMaterial("m")
	m.SetTexture(scene.BaseColorSlot, t10)
	m.SetSlot(&scene.Slot{Name: "KHR_materials_sheen/sheenColorTexture", SRGB: true,
		Info: scene.TextureInfo{Texture: t2, WrapS: scene.Repeat, WrapT: scene.Repeat}})
	m.SetSlot(&scene.Slot{Name: "KHR_materials_clearcoat/clearcoatTexture",
		Info: scene.TextureInfo{Texture: t2, WrapS: scene.Repeat, WrapT: scene.Repeat}})
	doc.AddMaterial(m)

	opts := testOptions()
	_, err := opts.validate()
	require.NoError(t, err)
	cands, rejected, err := collect(doc, BaseColor, &opts, &compiledFilter{})
	require.NoError(t, err)
	assert.Empty(t, rejected)
	require.Len(t, cands, 2)
	assert.Same(t, t2, cands[0].Texture, "natural order puts tex2 before tex10")
	assert.Equal(t, "image/png", cands[0].MimeType)
	require.Len(t, cands[0].Slots, 1, "linear extension slot is not eligible")
	assert.Equal(t, "KHR_materials_sheen/sheenColorTexture", cands[0].Slots[0].Slot.Name)

	none, _, err := collect(doc, Occlusion, &opts, &compiledFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)
}
