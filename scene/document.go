// Package scene is an in-memory model of a glTF 2.0 asset restricted to the parts
// texture atlasing touches: textures, materials and their slots, mesh primitives
// and their vertex attributes. Everything else is carried through verbatim.
package scene

import (
	"encoding/json"
	"slices"
	"sort"

	"github.com/chewxy/math32"
)

// Texture is an encoded image plus its metadata.
type Texture struct {
	Name     string
	URI      string
	MimeType string
	Image    []byte
}

// Primitive is a drawable piece of geometry bound to one material.
type Primitive struct {
	Material *Material
	Indices  *Accessor
	// Mode is the glTF topology, nil for the default triangles.
	Mode       *int
	attributes map[string]*Accessor
	Targets    []map[string]*Accessor
	Props      map[string]any
}

// Attribute returns the accessor bound to semantic or nil.
func (p *Primitive) Attribute(semantic string) *Accessor {
	return p.attributes[semantic]
}

// SetAttribute binds or, for a nil accessor, removes a vertex attribute.
func (p *Primitive) SetAttribute(semantic string, a *Accessor) {
	if a == nil {
		delete(p.attributes, semantic)
		return
	}
	if p.attributes == nil {
		p.attributes = map[string]*Accessor{}
	}
	p.attributes[semantic] = a
}

// Semantics returns the bound attribute names in sorted order.
func (p *Primitive) Semantics() []string {
	names := make([]string, 0, len(p.attributes))
	for name := range p.attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Mesh groups primitives.
type Mesh struct {
	Name       string
	Primitives []*Primitive
	Props      map[string]any
}

// SlotRef points at one material slot.
type SlotRef struct {
	Material *Material
	Slot     *Slot
}

// Document is the root of the scene graph.
type Document struct {
	textures  []*Texture
	materials []*Material
	meshes    []*Mesh
	accessors []*Accessor

	extensionsUsed     []string
	extensionsRequired []string

	// Asset is the glTF asset header.
	Asset json.RawMessage
	// Extra holds top-level properties the model does not interpret
	// (nodes, scenes, animations, skins, cameras, extensions, extras).
	Extra map[string]json.RawMessage
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{Extra: map[string]json.RawMessage{}}
}

func (d *Document) Textures() []*Texture { return d.textures }
func (d *Document) Materials() []*Material { return d.materials }
func (d *Document) Meshes() []*Mesh { return d.meshes }
func (d *Document) Accessors() []*Accessor { return d.accessors }

// ExtensionsUsed returns the declared extensions.
func (d *Document) ExtensionsUsed() []string { return d.extensionsUsed }

// ExtensionsRequired returns the extensions a loader must support.
func (d *Document) ExtensionsRequired() []string { return d.extensionsRequired }

// CreateTexture appends a new empty texture.
func (d *Document) CreateTexture(name string) *Texture {
	t := &Texture{Name: name}
	d.textures = append(d.textures, t)
	return t
}

// AddTexture appends an existing texture.
func (d *Document) AddTexture(t *Texture) {
	d.textures = append(d.textures, t)
}

// AddMaterial appends a material.
func (d *Document) AddMaterial(m *Material) {
	d.materials = append(d.materials, m)
}

// AddMesh appends a mesh.
func (d *Document) AddMesh(m *Mesh) {
	d.meshes = append(d.meshes, m)
}

// AddAccessor registers an accessor, keeping registration order stable.
func (d *Document) AddAccessor(a *Accessor) {
	d.accessors = append(d.accessors, a)
}

// AddExtension declares an extension as used and, optionally, required.
func (d *Document) AddExtension(name string, required bool) {
	if !slices.Contains(d.extensionsUsed, name) {
		d.extensionsUsed = append(d.extensionsUsed, name)
	}
	if required && !slices.Contains(d.extensionsRequired, name) {
		d.extensionsRequired = append(d.extensionsRequired, name)
	}
}

// TextureRefs returns every material slot bound to t.
func (d *Document) TextureRefs(t *Texture) []SlotRef {
	var refs []SlotRef
	for _, m := range d.materials {
		for _, s := range m.slots {
			if s.Info.Texture == t {
				refs = append(refs, SlotRef{Material: m, Slot: s})
			}
		}
	}
	return refs
}

// IsTextureUsed reports whether any material slot still references t.
func (d *Document) IsTextureUsed(t *Texture) bool {
	return len(d.TextureRefs(t)) > 0
}

// DisposeTexture removes t from the document. It reports false and keeps t
// when a material still references it.
func (d *Document) DisposeTexture(t *Texture) bool {
	if d.IsTextureUsed(t) {
		return false
	}
	i := slices.Index(d.textures, t)
	if i < 0 {
		return false
	}
	d.textures = slices.Delete(d.textures, i, i+1)
	return true
}

// MaterialPrimitives returns the primitives drawn with m, in mesh order.
func (d *Document) MaterialPrimitives(m *Material) []*Primitive {
	var prims []*Primitive
	for _, mesh := range d.meshes {
		for _, p := range mesh.Primitives {
			if p.Material == m {
				prims = append(prims, p)
			}
		}
	}
	return prims
}

func sincos(a float32) (float32, float32) {
	return math32.Sin(a), math32.Cos(a)
}
