// Package gltf reads and writes glTF 2.0 assets (.gltf and .glb) as scene documents.
//
// Only the parts texture atlasing needs are modeled: accessors, images, samplers,
// textures, materials and meshes. Nodes, scenes, animations, skins, cameras and
// top-level extensions are carried through verbatim. Accessor and mesh order is
// preserved so verbatim references by index stay valid.
package gltf

import (
	"encoding/json"
	"errors"
)

// ErrUnsupported is returned for assets using features the reader cannot carry through.
var ErrUnsupported = errors.New("unsupported glTF feature")

const (
	glbMagic     = 0x46546C67 // "glTF"
	glbVersion   = 2
	glbChunkJSON = 0x4E4F534A // "JSON"
	glbChunkBIN  = 0x004E4942 // "BIN\0"

	targetArrayBuffer        = 34962
	targetElementArrayBuffer = 34963

	extTextureTransform = "KHR_texture_transform"
	extTextureWebP      = "EXT_texture_webp"
	extTextureAVIF      = "EXT_texture_avif"
)

// unsupportedExtensions rewrite buffer layouts the writer would invalidate.
var unsupportedExtensions = []string{"KHR_draco_mesh_compression", "EXT_meshopt_compression", "KHR_meshopt_compression"}

// modeledKeys are the top-level properties mapped onto the scene model. Everything
// else is kept verbatim in scene.Document.Extra.
var modeledKeys = []string{
	"asset", "accessors", "bufferViews", "buffers", "images", "samplers",
	"textures", "materials", "meshes", "extensionsUsed", "extensionsRequired",
}

type document struct {
	Asset              json.RawMessage  `json:"asset"`
	Accessors          []accessor       `json:"accessors,omitempty"`
	BufferViews        []bufferView     `json:"bufferViews,omitempty"`
	Buffers            []buffer         `json:"buffers,omitempty"`
	Images             []imageDef       `json:"images,omitempty"`
	Samplers           []sampler        `json:"samplers,omitempty"`
	Textures           []texture        `json:"textures,omitempty"`
	Materials          []map[string]any `json:"materials,omitempty"`
	Meshes             []mesh           `json:"meshes,omitempty"`
	ExtensionsUsed     []string         `json:"extensionsUsed,omitempty"`
	ExtensionsRequired []string         `json:"extensionsRequired,omitempty"`
}

type accessor struct {
	Name          string    `json:"name,omitempty"`
	BufferView    *int      `json:"bufferView,omitempty"`
	ByteOffset    int       `json:"byteOffset,omitempty"`
	ComponentType int       `json:"componentType"`
	Normalized    bool      `json:"normalized,omitempty"`
	Count         int       `json:"count"`
	Type          string    `json:"type"`
	Max           []float64 `json:"max,omitempty"`
	Min           []float64 `json:"min,omitempty"`
	Sparse        *sparse   `json:"sparse,omitempty"`
}

type sparse struct {
	Count   int `json:"count"`
	Indices struct {
		BufferView    int `json:"bufferView"`
		ByteOffset    int `json:"byteOffset,omitempty"`
		ComponentType int `json:"componentType"`
	} `json:"indices"`
	Values struct {
		BufferView int `json:"bufferView"`
		ByteOffset int `json:"byteOffset,omitempty"`
	} `json:"values"`
}

type bufferView struct {
	Name       string `json:"name,omitempty"`
	Buffer     int    `json:"buffer"`
	ByteOffset int    `json:"byteOffset,omitempty"`
	ByteLength int    `json:"byteLength"`
	ByteStride int    `json:"byteStride,omitempty"`
	Target     int    `json:"target,omitempty"`
}

type buffer struct {
	Name       string `json:"name,omitempty"`
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`
}

type imageDef struct {
	Name       string `json:"name,omitempty"`
	URI        string `json:"uri,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
	BufferView *int   `json:"bufferView,omitempty"`
}

type sampler struct {
	MagFilter int `json:"magFilter,omitempty"`
	MinFilter int `json:"minFilter,omitempty"`
	WrapS     int `json:"wrapS,omitempty"`
	WrapT     int `json:"wrapT,omitempty"`
}

type texture struct {
	Name       string                     `json:"name,omitempty"`
	Sampler    *int                       `json:"sampler,omitempty"`
	Source     *int                       `json:"source,omitempty"`
	Extensions map[string]json.RawMessage `json:"extensions,omitempty"`
}

type textureSource struct {
	Source int `json:"source"`
}

type mesh struct {
	Name       string         `json:"name,omitempty"`
	Primitives []primitive    `json:"primitives"`
	Weights    []float64      `json:"weights,omitempty"`
	Extras     any            `json:"extras,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

type primitive struct {
	Attributes map[string]int   `json:"attributes"`
	Indices    *int             `json:"indices,omitempty"`
	Material   *int             `json:"material,omitempty"`
	Mode       *int             `json:"mode,omitempty"`
	Targets    []map[string]int `json:"targets,omitempty"`
	Extras     any              `json:"extras,omitempty"`
	Extensions map[string]any   `json:"extensions,omitempty"`
}

type textureTransform struct {
	Offset   *[2]float32 `json:"offset,omitempty"`
	Rotation float32     `json:"rotation,omitempty"`
	Scale    *[2]float32 `json:"scale,omitempty"`
	TexCoord *int        `json:"texCoord,omitempty"`
}
