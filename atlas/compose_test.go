package atlas

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gltfatlas/rectpack"
	"gltfatlas/scene"
)

func TestPageSize(t *testing.T) {
	placements := []rectpack.Placement{
		{Rect: rectpack.NewRect(2, 2, 60, 30)},
		{Rect: rectpack.NewRect(66, 2, 10, 90)},
	}
	tests := []struct {
		name         string
		maxSize      int
		pow2, shrink bool
		w, h         int
		capped       bool
	}{
		{"tight", 256, false, true, 78, 94, false},
		{"pow2", 256, true, true, 128, 128, false},
		{"no shrink ignores pow2", 200, true, false, 200, 200, false},
		{"no shrink", 256, false, false, 256, 256, false},
		{"pow2 capped", 100, true, true, 100, 100, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Options{MaxSize: tt.maxSize, Padding: 2, Pow2: tt.pow2, Shrink: tt.shrink}
			w, h, capped := PageSize(placements, opts)
			assert.Equal(t, tt.w, w)
			assert.Equal(t, tt.h, h)
			assert.Equal(t, tt.capped, capped)
		})
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	for n, want := range map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 64: 64, 65: 128, 1000: 1024} {
		assert.Equal(t, want, nextPowerOfTwo(n), "n=%d", n)
	}
}

func TestPowerOfTwoCapWarns(t *testing.T) {
	doc := scene.NewDocument()
	tex := addTexture(t, doc, "t", 90, 20)
	addMaterial(t, doc, "m", scene.BaseColorSlot, tex)

	log, logs := observedLogger()
	opts := testOptions()
	opts.MaxSize, opts.Logger = 100, log
	report, err := Run(doc, opts)
	require.NoError(t, err)
	page := report.Pages()[0]
	assert.Equal(t, 100, page.Width)
	assert.Equal(t, 32, page.Height)
	assert.Equal(t, 1, logs.FilterMessage("power of two page size exceeds maxSize, capped").Len())
}

func TestMultiplePages(t *testing.T) {
	doc := scene.NewDocument()
	for i := 0; i < 6; i++ {
		tex := addTexture(t, doc, "t"+string(rune('a'+i)), 60, 60)
		addMaterial(t, doc, "m"+string(rune('a'+i)), scene.OcclusionSlot, tex)
	}
	opts := testOptions()
	opts.MaxSize, opts.Padding = 128, 2
	report, err := Run(doc, opts)
	require.NoError(t, err)

	pages := report.Types[Occlusion].Pages
	require.Len(t, pages, 2)
	assert.Len(t, pages[0].Items, 4)
	assert.Len(t, pages[1].Items, 2)
	for i, p := range pages {
		assert.Equal(t, i, p.Index)
		assert.Equal(t, PageName(Occlusion, i), p.Texture.Name)
		requireNoOverlap(t, p, opts.Padding)
	}
	assert.Len(t, doc.Textures(), 2)
}

func TestManifest(t *testing.T) {
	doc := scene.NewDocument()
	a := addTexture(t, doc, "brick", 16, 16)
	b := addTexture(t, doc, "brick", 8, 8)
	addMaterial(t, doc, "ma", scene.BaseColorSlot, a)
	addMaterial(t, doc, "mb", scene.BaseColorSlot, b)

	report, err := Run(doc, testOptions())
	require.NoError(t, err)
	m := NewManifest(report, "1.2.3", time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC))
	assert.Equal(t, "2024-05-06 07:08:09", m.Meta.Timestamp)
	require.Len(t, m.Atlases, 1)

	at := m.Atlases[0]
	assert.Equal(t, "baseColor-atlas-0.png", at.AtlasName)
	assert.Equal(t, "baseColor", at.Type)
	assert.Equal(t, []string{"brick.png", "brick_1.png"}, at.SpriteNames())
	pl, page := placementOf(t, report, a)
	assert.Equal(t, Extent{W: page.Width, H: page.Height}, at.TotalSize)
	assert.Equal(t, Region{X: pl.X, Y: pl.Y, W: pl.Width, H: pl.Height}, at.SpriteList["brick.png"].Region)

	data, err := m.Marshal()
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
	back, err := ParseManifest(data)
	require.NoError(t, err)
	assert.Equal(t, m, back)

	_, err = ParseManifest([]byte("{"))
	assert.Error(t, err)
}

func TestManifestSpriteNamesStayLocal(t *testing.T) {
	doc := scene.NewDocument()
	for i, name := range []string{"../../escaped", `..\win\evil`, "..", "tex/wood"} {
		tex := addTexture(t, doc, name, 8, 8)
		addMaterial(t, doc, fmt.Sprintf("m%d", i), scene.BaseColorSlot, tex)
	}
	report, err := Run(doc, testOptions())
	require.NoError(t, err)
	m := NewManifest(report, "1.0.0", time.Now())
	require.Len(t, m.Atlases, 1)
	assert.Equal(t, []string{"escaped.png", "evil.png", "sprite.png", "wood.png"}, m.Atlases[0].SpriteNames())
	for name := range m.Atlases[0].SpriteList {
		assert.True(t, filepath.IsLocal(name), name)
	}
}
