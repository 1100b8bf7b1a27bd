package gltf

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"gltfatlas/scene"
)

var defaultAsset = json.RawMessage(`{"generator":"gltfatlas","version":"2.0"}`)

// WriteFile writes doc as a .glb, or as a .gltf with a sibling .bin buffer. For .gltf
// output, textures with a relative URI are written as separate files next to path.
func WriteFile(doc *scene.Document, dst string) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if strings.EqualFold(filepath.Ext(dst), ".glb") {
		data, err := EncodeGLB(doc)
		if err != nil {
			return err
		}
		return os.WriteFile(dst, data, 0o644)
	}

	binName := strings.TrimSuffix(filepath.Base(dst), filepath.Ext(dst)) + ".bin"
	e := &encoder{external: true}
	jsonData, err := e.encode(doc, binName)
	if err != nil {
		return err
	}
	if len(e.bin) > 0 {
		if err := os.WriteFile(filepath.Join(dir, binName), e.bin, 0o644); err != nil {
			return err
		}
	}
	for _, uri := range sortedKeys(e.files) {
		p := filepath.Join(dir, filepath.FromSlash(uri))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, e.files[uri], 0o644); err != nil {
			return err
		}
	}
	return os.WriteFile(dst, jsonData, 0o644)
}

// EncodeGLB encodes doc as a binary glTF with every resource embedded.
func EncodeGLB(doc *scene.Document) ([]byte, error) {
	e := &encoder{}
	jsonData, err := e.encode(doc, "")
	if err != nil {
		return nil, err
	}
	jsonData = pad(jsonData, ' ')
	bin := pad(e.bin, 0)

	length := 12 + 8 + len(jsonData)
	if len(bin) > 0 {
		length += 8 + len(bin)
	}
	var buf bytes.Buffer
	buf.Grow(length)
	for _, v := range []uint32{glbMagic, glbVersion, uint32(length), uint32(len(jsonData)), glbChunkJSON} {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	buf.Write(jsonData)
	if len(bin) > 0 {
		_ = binary.Write(&buf, binary.LittleEndian, uint32(len(bin)))
		_ = binary.Write(&buf, binary.LittleEndian, uint32(glbChunkBIN))
		buf.Write(bin)
	}
	return buf.Bytes(), nil
}

func pad(b []byte, fill byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, fill)
	}
	return b
}

type textureKey struct {
	image, sampler int
}

type encoder struct {
	// external writes textures with a safe relative URI as separate files.
	external bool

	gl    document
	bin   []byte
	files map[string][]byte

	accessors map[*scene.Accessor]int
	images    map[*scene.Texture]int
	samplers  map[sampler]int
	textures  map[textureKey]int
	used      map[string]bool
}

// addView appends data to the binary buffer as a new 4-byte aligned bufferView.
func (e *encoder) addView(data []byte, stride, target int) int {
	e.bin = pad(e.bin, 0)
	e.gl.BufferViews = append(e.gl.BufferViews, bufferView{
		ByteOffset: len(e.bin),
		ByteLength: len(data),
		ByteStride: stride,
		Target:     target,
	})
	e.bin = append(e.bin, data...)
	return len(e.gl.BufferViews) - 1
}

func (e *encoder) encode(doc *scene.Document, binURI string) ([]byte, error) {
	e.accessors = map[*scene.Accessor]int{}
	e.images = map[*scene.Texture]int{}
	e.samplers = map[sampler]int{}
	e.textures = map[textureKey]int{}
	e.used = map[string]bool{}
	e.files = map[string][]byte{}

	e.gl.Asset = doc.Asset
	if len(e.gl.Asset) == 0 {
		e.gl.Asset = defaultAsset
	}
	if err := e.encodeAccessors(doc); err != nil {
		return nil, err
	}
	for _, tex := range doc.Textures() {
		e.image(tex)
	}
	for i, m := range doc.Materials() {
		props, err := e.material(m)
		if err != nil {
			return nil, fmt.Errorf("material %d: %w", i, err)
		}
		e.gl.Materials = append(e.gl.Materials, props)
	}
	if err := e.encodeMeshes(doc); err != nil {
		return nil, err
	}
	e.extensions(doc)
	if len(e.bin) > 0 {
		e.gl.Buffers = []buffer{{URI: binURI, ByteLength: len(e.bin)}}
	}

	typed, err := json.Marshal(e.gl)
	if err != nil {
		return nil, err
	}
	if len(doc.Extra) == 0 {
		return typed, nil
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(typed, &top); err != nil {
		return nil, err
	}
	for key, raw := range doc.Extra {
		if _, ok := top[key]; !ok && !slices.Contains(modeledKeys, key) {
			top[key] = raw
		}
	}
	return json.Marshal(top)
}

// meshAccessors lists accessors referenced by meshes, in first use order.
func meshAccessors(doc *scene.Document) []*scene.Accessor {
	var out []*scene.Accessor
	for _, m := range doc.Meshes() {
		for _, p := range m.Primitives {
			for _, sem := range p.Semantics() {
				out = append(out, p.Attribute(sem))
			}
			if p.Indices != nil {
				out = append(out, p.Indices)
			}
			for _, target := range p.Targets {
				for _, sem := range sortedKeys(target) {
					out = append(out, target[sem])
				}
			}
		}
	}
	return out
}

// accessorTargets classifies accessors by their use.
func accessorTargets(doc *scene.Document) map[*scene.Accessor]int {
	targets := map[*scene.Accessor]int{}
	for _, m := range doc.Meshes() {
		for _, p := range m.Primitives {
			for _, sem := range p.Semantics() {
				targets[p.Attribute(sem)] = targetArrayBuffer
			}
			if p.Indices != nil {
				targets[p.Indices] = targetElementArrayBuffer
			}
			for _, target := range p.Targets {
				for _, acc := range target {
					targets[acc] = targetArrayBuffer
				}
			}
		}
	}
	return targets
}

// encodeAccessors writes registered accessors first so indices referenced by
// carried-through properties stay valid, then any accessor only meshes know of.
func (e *encoder) encodeAccessors(doc *scene.Document) error {
	targets := accessorTargets(doc)
	for _, acc := range append(slices.Clone(doc.Accessors()), meshAccessors(doc)...) {
		if _, ok := e.accessors[acc]; ok {
			continue
		}
		elem := acc.ElementSize()
		if elem == 0 {
			return fmt.Errorf("accessor %q: invalid type %s/%d", acc.Name, acc.Type, acc.ComponentType)
		}
		ga := accessor{
			Name:          acc.Name,
			ComponentType: acc.ComponentType,
			Normalized:    acc.Normalized,
			Count:         acc.Count,
			Type:          acc.Type,
			Min:           acc.Min,
			Max:           acc.Max,
		}
		if len(acc.Data) > 0 {
			if len(acc.Data) < acc.Count*elem {
				return fmt.Errorf("accessor %q: %d bytes for %d elements", acc.Name, len(acc.Data), acc.Count)
			}
			target := targets[acc]
			data, stride := acc.Data[:acc.Count*elem], 0
			if target == targetArrayBuffer && elem%4 != 0 {
				// Vertex attribute elements must start on 4-byte boundaries.
				stride = (elem + 3) &^ 3
				data = make([]byte, acc.Count*stride)
				for k := 0; k < acc.Count; k++ {
					copy(data[k*stride:], acc.Data[k*elem:(k+1)*elem])
				}
			}
			view := e.addView(data, stride, target)
			ga.BufferView = &view
		}
		e.gl.Accessors = append(e.gl.Accessors, ga)
		e.accessors[acc] = len(e.gl.Accessors) - 1
	}
	return nil
}

// externalURI reports whether uri can be written as a file below the output directory.
func externalURI(uri string) bool {
	if uri == "" || strings.Contains(uri, ":") || strings.HasPrefix(uri, "/") {
		return false
	}
	clean := path.Clean(uri)
	return clean != ".." && !strings.HasPrefix(clean, "../")
}

func (e *encoder) image(tex *scene.Texture) int {
	if i, ok := e.images[tex]; ok {
		return i
	}
	img := imageDef{Name: tex.Name, MimeType: tex.MimeType}
	if e.external && externalURI(tex.URI) {
		img.URI = path.Clean(tex.URI)
		e.files[img.URI] = tex.Image
	} else {
		view := e.addView(tex.Image, 0, 0)
		img.BufferView = &view
		if img.MimeType == "" {
			img.MimeType = sniffMime(tex.Image, tex.URI)
		}
	}
	e.gl.Images = append(e.gl.Images, img)
	e.images[tex] = len(e.gl.Images) - 1
	return e.images[tex]
}

func wrapValue(w scene.WrapMode) int {
	if w == 0 {
		return int(scene.Repeat)
	}
	return int(w)
}

func (e *encoder) texture(info *scene.TextureInfo) int {
	s := sampler{
		MagFilter: info.MagFilter,
		MinFilter: info.MinFilter,
		WrapS:     wrapValue(info.WrapS),
		WrapT:     wrapValue(info.WrapT),
	}
	key := textureKey{image: e.image(info.Texture), sampler: -1}
	if s != (sampler{WrapS: int(scene.Repeat), WrapT: int(scene.Repeat)}) {
		si, ok := e.samplers[s]
		if !ok {
			e.gl.Samplers = append(e.gl.Samplers, s)
			si = len(e.gl.Samplers) - 1
			e.samplers[s] = si
		}
		key.sampler = si
	}
	if i, ok := e.textures[key]; ok {
		return i
	}
	t := texture{}
	if key.sampler >= 0 {
		t.Sampler = &key.sampler
	}
	source := key.image
	switch ext := formatExtension(info.Texture.MimeType); ext {
	case "":
		t.Source = &source
	default:
		raw, _ := json.Marshal(textureSource{Source: source})
		t.Extensions = map[string]json.RawMessage{ext: raw}
		e.used[ext] = true
	}
	e.gl.Textures = append(e.gl.Textures, t)
	e.textures[key] = len(e.gl.Textures) - 1
	return e.textures[key]
}

// formatExtension returns the extension required to reference an image of mime, if any.
func formatExtension(mime string) string {
	switch mime {
	case "image/webp":
		return extTextureWebP
	case "image/avif":
		return extTextureAVIF
	}
	return ""
}

func (e *encoder) textureInfo(info *scene.TextureInfo) map[string]any {
	out := maps.Clone(info.Props)
	if out == nil {
		out = map[string]any{}
	}
	out["index"] = e.texture(info)
	if info.TexCoord != 0 {
		out["texCoord"] = info.TexCoord
	} else {
		delete(out, "texCoord")
	}
	if t := info.Transform; t != nil {
		exts, _ := out["extensions"].(map[string]any)
		exts = maps.Clone(exts)
		if exts == nil {
			exts = map[string]any{}
		}
		tt := textureTransform{TexCoord: t.TexCoord, Rotation: t.Rotation}
		if t.Offset != [2]float32{} {
			tt.Offset = &t.Offset
		}
		if t.Scale != [2]float32{1, 1} {
			tt.Scale = &t.Scale
		}
		exts[extTextureTransform] = tt
		out["extensions"] = exts
		e.used[extTextureTransform] = true
	}
	return out
}

func (e *encoder) material(m *scene.Material) (map[string]any, error) {
	props := maps.Clone(m.Props)
	if props == nil {
		props = map[string]any{}
	}
	if m.Name != "" {
		props["name"] = m.Name
	}
	for _, slot := range m.Slots() {
		if slot.Info.Texture == nil {
			return nil, fmt.Errorf("slot %s has no texture", slot.Name)
		}
		props = insert(props, slotPath(slot.Name), e.textureInfo(&slot.Info))
	}
	return props, nil
}

func toFloats(v any) []float64 {
	switch w := v.(type) {
	case []float64:
		return w
	case []any:
		out := make([]float64, 0, len(w))
		for _, x := range w {
			if f, ok := x.(float64); ok {
				out = append(out, f)
			}
		}
		return out
	}
	return nil
}

func (e *encoder) encodeMeshes(doc *scene.Document) error {
	materials := map[*scene.Material]int{}
	for i, m := range doc.Materials() {
		materials[m] = i
	}
	for i, m := range doc.Meshes() {
		gm := mesh{Name: m.Name, Primitives: []primitive{}}
		gm.Weights = toFloats(m.Props["weights"])
		gm.Extras = m.Props["extras"]
		gm.Extensions, _ = m.Props["extensions"].(map[string]any)
		for j, p := range m.Primitives {
			gp := primitive{Attributes: map[string]int{}, Mode: p.Mode}
			for _, sem := range p.Semantics() {
				gp.Attributes[sem] = e.accessors[p.Attribute(sem)]
			}
			if p.Indices != nil {
				idx := e.accessors[p.Indices]
				gp.Indices = &idx
			}
			if p.Material != nil {
				mi, ok := materials[p.Material]
				if !ok {
					return fmt.Errorf("mesh %d primitive %d: material %q is not part of the document", i, j, p.Material.Name)
				}
				gp.Material = &mi
			}
			for _, target := range p.Targets {
				t := map[string]int{}
				for sem, acc := range target {
					t[sem] = e.accessors[acc]
				}
				gp.Targets = append(gp.Targets, t)
			}
			gp.Extras = p.Props["extras"]
			gp.Extensions, _ = p.Props["extensions"].(map[string]any)
			gm.Primitives = append(gm.Primitives, gp)
		}
		e.gl.Meshes = append(e.gl.Meshes, gm)
	}
	return nil
}

// extensions recomputes the extension lists. Texture extensions are declared only
// when the written textures use them.
func (e *encoder) extensions(doc *scene.Document) {
	managed := []string{extTextureTransform, extTextureWebP, extTextureAVIF}
	for _, ext := range doc.ExtensionsUsed() {
		if !slices.Contains(managed, ext) {
			e.gl.ExtensionsUsed = append(e.gl.ExtensionsUsed, ext)
		}
	}
	for _, ext := range doc.ExtensionsRequired() {
		if !slices.Contains(managed, ext) {
			e.gl.ExtensionsRequired = append(e.gl.ExtensionsRequired, ext)
		}
	}
	for _, ext := range managed {
		if !e.used[ext] {
			continue
		}
		e.gl.ExtensionsUsed = append(e.gl.ExtensionsUsed, ext)
		if ext != extTextureTransform || slices.Contains(doc.ExtensionsRequired(), ext) {
			e.gl.ExtensionsRequired = append(e.gl.ExtensionsRequired, ext)
		}
	}
}
