package scene

// WrapMode selects how texture coordinates outside [0, 1] are resolved.
// Values match the glTF sampler enumeration.
type WrapMode int

const (
	Repeat         WrapMode = 10497
	ClampToEdge    WrapMode = 33071
	MirroredRepeat WrapMode = 33648
)

func (w WrapMode) String() string {
	switch w {
	case ClampToEdge:
		return "clamp-to-edge"
	case MirroredRepeat:
		return "mirrored-repeat"
	default:
		return "repeat"
	}
}

// Well-known material slot names.
const (
	BaseColorSlot         = "baseColorTexture"
	NormalSlot            = "normalTexture"
	MetallicRoughnessSlot = "metallicRoughnessTexture"
	OcclusionSlot         = "occlusionTexture"
	EmissiveSlot          = "emissiveTexture"
)

// Transform is an offset, rotation and scale applied to texture coordinates at sample time,
// in the order scale, rotate, translate. Rotation is in radians.
type Transform struct {
	Offset   [2]float32
	Scale    [2]float32
	Rotation float32
	// TexCoord overrides the slot texcoord set when set.
	TexCoord *int
}

// IdentityTransform returns a transform that leaves coordinates unchanged.
func IdentityTransform() *Transform {
	return &Transform{Scale: [2]float32{1, 1}}
}

// Apply maps a single texture coordinate through the transform.
func (t *Transform) Apply(u, v float32) (float32, float32) {
	su, sv := u*t.Scale[0], v*t.Scale[1]
	if t.Rotation != 0 {
		s, c := sincos(t.Rotation)
		su, sv = c*su+s*sv, -s*su+c*sv
	}
	return su + t.Offset[0], sv + t.Offset[1]
}

// TextureInfo is a material's reference to a texture together with its sampling state.
type TextureInfo struct {
	Texture  *Texture
	TexCoord int
	WrapS    WrapMode
	WrapT    WrapMode
	// MagFilter and MinFilter use the glTF enumeration, 0 when unset.
	MagFilter int
	MinFilter int
	Transform *Transform
	// Props holds the remaining properties (scale, strength, extras) verbatim.
	Props map[string]any
}

// Slot is a named texture reference on a material.
type Slot struct {
	Name string
	// SRGB reports whether the slot holds color data.
	SRGB bool
	Info TextureInfo
}

// Material holds texture slots in a stable order plus its other properties.
type Material struct {
	Name  string
	slots []*Slot
	// Props holds non-texture properties (factors, alpha mode, extensions) verbatim.
	Props map[string]any
}

// NewMaterial creates an empty material.
func NewMaterial(name string) *Material {
	return &Material{Name: name, Props: map[string]any{}}
}

// Slots returns the material's slots in insertion order.
func (m *Material) Slots() []*Slot {
	return m.slots
}

// Slot returns the slot with the given name or nil.
func (m *Material) Slot(name string) *Slot {
	for _, s := range m.slots {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Texture returns the texture bound to the named slot or nil.
func (m *Material) Texture(name string) *Texture {
	if s := m.Slot(name); s != nil {
		return s.Info.Texture
	}
	return nil
}

// SetSlot adds or replaces a slot by name.
func (m *Material) SetSlot(slot *Slot) {
	for i, s := range m.slots {
		if s.Name == slot.Name {
			m.slots[i] = slot
			return
		}
	}
	m.slots = append(m.slots, slot)
}

// SetTexture binds tex to the named slot, creating the slot with default sampling when missing.
// Binding nil removes the slot.
func (m *Material) SetTexture(name string, tex *Texture) {
	if tex == nil {
		for i, s := range m.slots {
			if s.Name == name {
				m.slots = append(m.slots[:i], m.slots[i+1:]...)
				return
			}
		}
		return
	}
	if s := m.Slot(name); s != nil {
		s.Info.Texture = tex
		return
	}
	m.slots = append(m.slots, &Slot{
		Name: name,
		SRGB: name == BaseColorSlot || name == EmissiveSlot,
		Info: TextureInfo{Texture: tex, WrapS: Repeat, WrapT: Repeat},
	})
}
