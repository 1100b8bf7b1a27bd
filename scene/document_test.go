package scene

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextureRefsAndDispose(t *testing.T) {
	doc := NewDocument()
	shared := doc.CreateTexture("shared")
	single := doc.CreateTexture("single")
	orphan := doc.CreateTexture("orphan")

	a := NewMaterial("a")
	a.SetTexture(BaseColorSlot, shared)
	a.SetTexture(NormalSlot, single)
	b := NewMaterial("b")
	b.SetTexture(BaseColorSlot, shared)
	doc.AddMaterial(a)
	doc.AddMaterial(b)

	assert.Len(t, doc.TextureRefs(shared), 2)
	assert.Len(t, doc.TextureRefs(single), 1)
	assert.False(t, doc.IsTextureUsed(orphan))

	assert.False(t, doc.DisposeTexture(shared), "referenced texture must survive")
	assert.True(t, doc.DisposeTexture(orphan))
	assert.Equal(t, []*Texture{shared, single}, doc.Textures())

	a.SetTexture(BaseColorSlot, nil)
	assert.True(t, doc.IsTextureUsed(shared))
	b.SetTexture(BaseColorSlot, single)
	assert.False(t, doc.IsTextureUsed(shared))
	assert.True(t, doc.DisposeTexture(shared))
	assert.Equal(t, []*Texture{single}, doc.Textures())
}

func TestMaterialSlots(t *testing.T) {
	m := NewMaterial("m")
	tex := &Texture{Name: "t"}
	m.SetTexture(EmissiveSlot, tex)
	m.SetTexture(OcclusionSlot, tex)

	slot := m.Slot(EmissiveSlot)
	require.NotNil(t, slot)
	assert.True(t, slot.SRGB)
	assert.Equal(t, Repeat, slot.Info.WrapS)
	assert.False(t, m.Slot(OcclusionSlot).SRGB)
	assert.Equal(t, []string{EmissiveSlot, OcclusionSlot}, []string{m.Slots()[0].Name, m.Slots()[1].Name})

	other := &Texture{Name: "o"}
	m.SetTexture(EmissiveSlot, other)
	assert.Same(t, other, m.Texture(EmissiveSlot))
	assert.Len(t, m.Slots(), 2)
}

func TestAccessorElements(t *testing.T) {
	acc, err := NewFloatAccessor("VEC2", []float32{0, 1, 0.25, 0.75})
	require.NoError(t, err)
	assert.Equal(t, 2, acc.Count)
	assert.Equal(t, 8, acc.ElementSize())
	assert.Equal(t, []float32{0.25, 0.75}, acc.Element(1, nil))

	require.NoError(t, acc.SetElement(0, []float32{0.5, 0.5}))
	assert.Equal(t, []float32{0.5, 0.5}, acc.Element(0, nil))
	assert.Error(t, acc.SetElement(0, []float32{1}))

	_, err = NewFloatAccessor("VEC2", []float32{1, 2, 3})
	assert.Error(t, err)
}

func TestNormalizedAccessor(t *testing.T) {
	acc := &Accessor{Type: "VEC2", ComponentType: UnsignedShort, Normalized: true, Count: 1,
		Data: []byte{0xff, 0xff, 0x00, 0x00}}
	assert.Equal(t, []float32{1, 0}, acc.Element(0, nil))
	assert.Error(t, acc.SetElement(0, []float32{0, 0}))

	bytes := &Accessor{Type: "VEC2", ComponentType: UnsignedByte, Normalized: true, Count: 1, Data: []byte{255, 0}}
	assert.Equal(t, []float32{1, 0}, bytes.Element(0, nil))
}

func TestTransformApply(t *testing.T) {
	tr := &Transform{Offset: [2]float32{0.5, 0.25}, Scale: [2]float32{0.5, 0.5}}
	u, v := tr.Apply(1, 1)
	assert.InDelta(t, 1.0, u, 1e-6)
	assert.InDelta(t, 0.75, v, 1e-6)

	rot := &Transform{Scale: [2]float32{1, 1}, Rotation: math.Pi / 2}
	u, v = rot.Apply(1, 0)
	assert.InDelta(t, 0.0, u, 1e-6)
	assert.InDelta(t, -1.0, v, 1e-6)

	u, v = IdentityTransform().Apply(0.3, 0.7)
	assert.InDelta(t, 0.3, u, 1e-6)
	assert.InDelta(t, 0.7, v, 1e-6)
}

func TestExtensions(t *testing.T) {
	doc := NewDocument()
	doc.AddExtension("KHR_texture_transform", false)
	doc.AddExtension("KHR_texture_transform", true)
	assert.Equal(t, []string{"KHR_texture_transform"}, doc.ExtensionsUsed())
	assert.Equal(t, []string{"KHR_texture_transform"}, doc.ExtensionsRequired())
}

func TestMaterialPrimitives(t *testing.T) {
	doc := NewDocument()
	m := NewMaterial("m")
	p1 := &Primitive{Material: m}
	p2 := &Primitive{}
	p3 := &Primitive{Material: m}
	doc.AddMesh(&Mesh{Primitives: []*Primitive{p1, p2}})
	doc.AddMesh(&Mesh{Primitives: []*Primitive{p3}})
	assert.Equal(t, []*Primitive{p1, p3}, doc.MaterialPrimitives(m))

	uv, _ := NewFloatAccessor("VEC2", []float32{0, 0})
	p1.SetAttribute("TEXCOORD_1", uv)
	p1.SetAttribute("POSITION", uv)
	assert.Equal(t, []string{"POSITION", "TEXCOORD_1"}, p1.Semantics())
	p1.SetAttribute("POSITION", nil)
	assert.Nil(t, p1.Attribute("POSITION"))
}
