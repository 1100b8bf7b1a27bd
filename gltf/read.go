package gltf

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/h2non/filetype"

	"gltfatlas/scene"
)

// ReadFile loads a .gltf or .glb file. External buffers and images are resolved
// relative to the file.
func ReadFile(path string) (*scene.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Read(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Read parses glTF JSON or GLB bytes. baseDir resolves relative URIs; with an empty
// baseDir only embedded and data URI resources can be loaded.
func Read(data []byte, baseDir string) (*scene.Document, error) {
	r := &reader{baseDir: baseDir}
	jsonData := data
	if len(data) >= 12 && binary.LittleEndian.Uint32(data) == glbMagic {
		var err error
		if jsonData, r.bin, err = splitGLB(data); err != nil {
			return nil, err
		}
	}
	return r.read(jsonData)
}

func splitGLB(data []byte) (jsonChunk, binChunk []byte, err error) {
	if v := binary.LittleEndian.Uint32(data[4:]); v != glbVersion {
		return nil, nil, fmt.Errorf("%w: GLB version %d", ErrUnsupported, v)
	}
	length := int(binary.LittleEndian.Uint32(data[8:]))
	if length > len(data) {
		return nil, nil, fmt.Errorf("GLB truncated: header says %d bytes, have %d", length, len(data))
	}
	for off := 12; off+8 <= length; {
		size := int(binary.LittleEndian.Uint32(data[off:]))
		kind := binary.LittleEndian.Uint32(data[off+4:])
		off += 8
		if off+size > length {
			return nil, nil, fmt.Errorf("GLB chunk of %d bytes overruns file", size)
		}
		switch {
		case kind == glbChunkJSON && jsonChunk == nil:
			jsonChunk = data[off : off+size]
		case kind == glbChunkBIN && binChunk == nil:
			binChunk = data[off : off+size]
		}
		off += size
	}
	if jsonChunk == nil {
		return nil, nil, fmt.Errorf("GLB has no JSON chunk")
	}
	return jsonChunk, binChunk, nil
}

type reader struct {
	baseDir string
	bin     []byte
	gl      document
	buffers [][]byte
	doc     *scene.Document

	accessors []*scene.Accessor
	images    []*scene.Texture
	materials []*scene.Material
}

func (r *reader) read(data []byte) (*scene.Document, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("parse glTF JSON: %w", err)
	}
	if err := json.Unmarshal(data, &r.gl); err != nil {
		return nil, fmt.Errorf("parse glTF JSON: %w", err)
	}
	for _, ext := range r.gl.ExtensionsRequired {
		if slices.Contains(unsupportedExtensions, ext) {
			return nil, fmt.Errorf("%w: required extension %s", ErrUnsupported, ext)
		}
	}
	var asset struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(r.gl.Asset, &asset); err != nil || !strings.HasPrefix(asset.Version, "2.") {
		return nil, fmt.Errorf("%w: asset version %q", ErrUnsupported, asset.Version)
	}

	r.doc = scene.NewDocument()
	r.doc.Asset = r.gl.Asset
	for key, raw := range top {
		if !slices.Contains(modeledKeys, key) {
			r.doc.Extra[key] = raw
		}
	}
	for _, ext := range r.gl.ExtensionsUsed {
		r.doc.AddExtension(ext, slices.Contains(r.gl.ExtensionsRequired, ext))
	}

	steps := []func() error{r.readBuffers, r.readAccessors, r.readImages, r.readMaterials, r.readMeshes}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return r.doc, nil
}

func (r *reader) readURI(uri string) ([]byte, string, error) {
	if rest, ok := strings.CutPrefix(uri, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(meta, ";base64") {
			return nil, "", fmt.Errorf("%w: data URI without base64 payload", ErrUnsupported)
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("decode data URI: %w", err)
		}
		return data, strings.TrimSuffix(meta, ";base64"), nil
	}
	if r.baseDir == "" {
		return nil, "", fmt.Errorf("external resource %q needs a base directory", uri)
	}
	p, err := url.PathUnescape(uri)
	if err != nil {
		p = uri
	}
	data, err := os.ReadFile(filepath.Join(r.baseDir, filepath.FromSlash(p)))
	if err != nil {
		return nil, "", err
	}
	return data, "", nil
}

func (r *reader) readBuffers() error {
	r.buffers = make([][]byte, len(r.gl.Buffers))
	for i, b := range r.gl.Buffers {
		var data []byte
		if b.URI == "" {
			if i != 0 || r.bin == nil {
				return fmt.Errorf("buffer %d has no uri and no GLB binary chunk", i)
			}
			data = r.bin
		} else {
			var err error
			if data, _, err = r.readURI(b.URI); err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
		}
		if b.ByteLength < 0 {
			return fmt.Errorf("buffer %d: negative byteLength %d", i, b.ByteLength)
		}
		if len(data) < b.ByteLength {
			return fmt.Errorf("buffer %d: %d bytes, expected %d", i, len(data), b.ByteLength)
		}
		r.buffers[i] = data[:b.ByteLength]
	}
	return nil
}

func (r *reader) view(i int) (bufferView, []byte, error) {
	if i < 0 || i >= len(r.gl.BufferViews) {
		return bufferView{}, nil, fmt.Errorf("bufferView %d out of range", i)
	}
	v := r.gl.BufferViews[i]
	if v.Buffer < 0 || v.Buffer >= len(r.buffers) {
		return v, nil, fmt.Errorf("bufferView %d: buffer %d out of range", i, v.Buffer)
	}
	buf := r.buffers[v.Buffer]
	if v.ByteOffset < 0 || v.ByteLength < 0 || v.ByteStride < 0 {
		return v, nil, fmt.Errorf("bufferView %d has a negative offset, length or stride", i)
	}
	if v.ByteOffset+v.ByteLength > len(buf) {
		return v, nil, fmt.Errorf("bufferView %d overruns buffer %d", i, v.Buffer)
	}
	return v, buf[v.ByteOffset : v.ByteOffset+v.ByteLength], nil
}

func (r *reader) readAccessors() error {
	for i, a := range r.gl.Accessors {
		acc := &scene.Accessor{
			Name:          a.Name,
			Type:          a.Type,
			ComponentType: a.ComponentType,
			Normalized:    a.Normalized,
			Count:         a.Count,
			Min:           a.Min,
			Max:           a.Max,
		}
		elem := acc.ElementSize()
		if elem == 0 {
			return fmt.Errorf("accessor %d: invalid type %s/%d", i, a.Type, a.ComponentType)
		}
		if a.Count < 0 || a.ByteOffset < 0 {
			return fmt.Errorf("accessor %d: negative count or byteOffset", i)
		}
		acc.Data = make([]byte, a.Count*elem)
		if a.BufferView != nil {
			v, data, err := r.view(*a.BufferView)
			if err != nil {
				return fmt.Errorf("accessor %d: %w", i, err)
			}
			stride := elem
			if v.ByteStride > 0 {
				stride = v.ByteStride
			}
			for k := 0; k < a.Count; k++ {
				off := a.ByteOffset + k*stride
				if off+elem > len(data) {
					return fmt.Errorf("accessor %d overruns bufferView %d", i, *a.BufferView)
				}
				copy(acc.Data[k*elem:], data[off:off+elem])
			}
		}
		if a.Sparse != nil {
			if err := r.applySparse(acc, a.Sparse); err != nil {
				return fmt.Errorf("accessor %d: sparse: %w", i, err)
			}
		}
		r.accessors = append(r.accessors, acc)
		r.doc.AddAccessor(acc)
	}
	return nil
}

func (r *reader) applySparse(acc *scene.Accessor, s *sparse) error {
	_, idxData, err := r.view(s.Indices.BufferView)
	if err != nil {
		return err
	}
	_, valData, err := r.view(s.Values.BufferView)
	if err != nil {
		return err
	}
	elem := acc.ElementSize()
	isize := scene.ComponentSize(s.Indices.ComponentType)
	if isize == 0 {
		return fmt.Errorf("invalid index component type %d", s.Indices.ComponentType)
	}
	if s.Count < 0 || s.Indices.ByteOffset < 0 || s.Values.ByteOffset < 0 {
		return fmt.Errorf("negative count or byteOffset")
	}
	idxData = idxData[min(s.Indices.ByteOffset, len(idxData)):]
	valData = valData[min(s.Values.ByteOffset, len(valData)):]
	if len(idxData) < s.Count*isize || len(valData) < s.Count*elem {
		return fmt.Errorf("%d entries overrun their bufferViews", s.Count)
	}
	for k := 0; k < s.Count; k++ {
		var idx int
		switch isize {
		case 1:
			idx = int(idxData[k])
		case 2:
			idx = int(binary.LittleEndian.Uint16(idxData[2*k:]))
		default:
			idx = int(binary.LittleEndian.Uint32(idxData[4*k:]))
		}
		if idx >= acc.Count {
			return fmt.Errorf("index %d out of range", idx)
		}
		copy(acc.Data[idx*elem:], valData[k*elem:(k+1)*elem])
	}
	return nil
}

// sniffMime determines the mime type of image bytes, falling back to the URI extension.
func sniffMime(data []byte, uri string) string {
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	if ext := filepath.Ext(uri); ext != "" {
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
	}
	return ""
}

func (r *reader) readImages() error {
	for i, img := range r.gl.Images {
		tex := &scene.Texture{Name: img.Name, MimeType: img.MimeType}
		switch {
		case img.BufferView != nil:
			_, data, err := r.view(*img.BufferView)
			if err != nil {
				return fmt.Errorf("image %d: %w", i, err)
			}
			tex.Image = bytes.Clone(data)
		case img.URI != "":
			data, dataMime, err := r.readURI(img.URI)
			if err != nil {
				return fmt.Errorf("image %d: %w", i, err)
			}
			tex.Image = data
			if tex.MimeType == "" {
				tex.MimeType = dataMime
			}
			if !strings.HasPrefix(img.URI, "data:") {
				tex.URI = img.URI
				if tex.Name == "" {
					tex.Name = strings.TrimSuffix(filepath.Base(img.URI), filepath.Ext(img.URI))
				}
			}
		}
		if tex.MimeType == "" || tex.MimeType == "application/octet-stream" {
			tex.MimeType = sniffMime(tex.Image, img.URI)
		}
		r.images = append(r.images, tex)
		r.doc.AddTexture(tex)
	}
	return nil
}

// textureBinding resolves a glTF texture index to its image and sampler state.
func (r *reader) textureBinding(index int) (*scene.Texture, sampler, error) {
	s := sampler{WrapS: int(scene.Repeat), WrapT: int(scene.Repeat)}
	if index < 0 || index >= len(r.gl.Textures) {
		return nil, s, fmt.Errorf("texture %d out of range", index)
	}
	t := r.gl.Textures[index]
	source := t.Source
	if source == nil {
		for _, ext := range []string{extTextureWebP, extTextureAVIF} {
			var src textureSource
			if raw, ok := t.Extensions[ext]; ok && json.Unmarshal(raw, &src) == nil {
				source = &src.Source
				break
			}
		}
	}
	if source == nil || *source < 0 || *source >= len(r.images) {
		return nil, s, fmt.Errorf("texture %d has no usable source", index)
	}
	if t.Sampler != nil {
		if *t.Sampler < 0 || *t.Sampler >= len(r.gl.Samplers) {
			return nil, s, fmt.Errorf("texture %d: sampler %d out of range", index, *t.Sampler)
		}
		gs := r.gl.Samplers[*t.Sampler]
		s.MagFilter, s.MinFilter = gs.MagFilter, gs.MinFilter
		if gs.WrapS != 0 {
			s.WrapS = gs.WrapS
		}
		if gs.WrapT != 0 {
			s.WrapT = gs.WrapT
		}
	}
	tex := r.images[*source]
	if tex.Name == "" && t.Name != "" {
		tex.Name = t.Name
	}
	return tex, s, nil
}

func asInt(v any) (int, bool) {
	f, ok := v.(float64)
	return int(f), ok
}

func asVec2(v any) (*[2]float32, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 2 {
		return nil, false
	}
	x, ok1 := arr[0].(float64)
	y, ok2 := arr[1].(float64)
	return &[2]float32{float32(x), float32(y)}, ok1 && ok2
}

// parseTransform reads a KHR_texture_transform object.
func parseTransform(v map[string]any) *scene.Transform {
	t := scene.IdentityTransform()
	if off, ok := asVec2(v["offset"]); ok {
		t.Offset = *off
	}
	if sc, ok := asVec2(v["scale"]); ok {
		t.Scale = *sc
	}
	if rot, ok := v["rotation"].(float64); ok {
		t.Rotation = float32(rot)
	}
	if tc, ok := asInt(v["texCoord"]); ok {
		t.TexCoord = &tc
	}
	return t
}

func (r *reader) parseSlot(props map[string]any, cs coreSlot) (*scene.Slot, error) {
	info, ok := lookup(props, cs.path).(map[string]any)
	if !ok {
		return nil, nil
	}
	remove(props, cs.path)
	index, ok := asInt(info["index"])
	if !ok {
		return nil, fmt.Errorf("%s: missing texture index", cs.name)
	}
	tex, s, err := r.textureBinding(index)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cs.name, err)
	}
	slot := &scene.Slot{Name: cs.name, SRGB: cs.srgb, Info: scene.TextureInfo{
		Texture:   tex,
		WrapS:     scene.WrapMode(s.WrapS),
		WrapT:     scene.WrapMode(s.WrapT),
		MagFilter: s.MagFilter,
		MinFilter: s.MinFilter,
	}}
	if tc, ok := asInt(info["texCoord"]); ok {
		slot.Info.TexCoord = tc
	}
	if exts, ok := info["extensions"].(map[string]any); ok {
		if tt, ok := exts[extTextureTransform].(map[string]any); ok {
			slot.Info.Transform = parseTransform(tt)
			delete(exts, extTextureTransform)
		}
		if len(exts) == 0 {
			delete(info, "extensions")
		}
	}
	delete(info, "index")
	delete(info, "texCoord")
	if len(info) > 0 {
		slot.Info.Props = info
	}
	return slot, nil
}

func (r *reader) readMaterials() error {
	for i, props := range r.gl.Materials {
		if props == nil {
			props = map[string]any{}
		}
		m := scene.NewMaterial("")
		if name, ok := props["name"].(string); ok {
			m.Name = name
			delete(props, "name")
		}
		slots := append(slices.Clone(coreSlots), extensionSlots(props)...)
		for _, cs := range slots {
			slot, err := r.parseSlot(props, cs)
			if err != nil {
				return fmt.Errorf("material %d: %w", i, err)
			}
			if slot != nil {
				m.SetSlot(slot)
			}
		}
		m.Props = props
		r.materials = append(r.materials, m)
		r.doc.AddMaterial(m)
	}
	return nil
}

func (r *reader) accessor(i int) (*scene.Accessor, error) {
	if i < 0 || i >= len(r.accessors) {
		return nil, fmt.Errorf("accessor %d out of range", i)
	}
	return r.accessors[i], nil
}

func (r *reader) readMeshes() error {
	for i, gm := range r.gl.Meshes {
		m := &scene.Mesh{Name: gm.Name, Props: map[string]any{}}
		if gm.Weights != nil {
			m.Props["weights"] = gm.Weights
		}
		if gm.Extras != nil {
			m.Props["extras"] = gm.Extras
		}
		if gm.Extensions != nil {
			m.Props["extensions"] = gm.Extensions
		}
		for j, gp := range gm.Primitives {
			p := &scene.Primitive{Mode: gp.Mode, Props: map[string]any{}}
			for _, sem := range sortedKeys(gp.Attributes) {
				acc, err := r.accessor(gp.Attributes[sem])
				if err != nil {
					return fmt.Errorf("mesh %d primitive %d %s: %w", i, j, sem, err)
				}
				p.SetAttribute(sem, acc)
			}
			if gp.Indices != nil {
				acc, err := r.accessor(*gp.Indices)
				if err != nil {
					return fmt.Errorf("mesh %d primitive %d indices: %w", i, j, err)
				}
				p.Indices = acc
			}
			if gp.Material != nil {
				if *gp.Material < 0 || *gp.Material >= len(r.materials) {
					return fmt.Errorf("mesh %d primitive %d: material %d out of range", i, j, *gp.Material)
				}
				p.Material = r.materials[*gp.Material]
			}
			for _, target := range gp.Targets {
				t := map[string]*scene.Accessor{}
				for sem, idx := range target {
					acc, err := r.accessor(idx)
					if err != nil {
						return fmt.Errorf("mesh %d primitive %d target %s: %w", i, j, sem, err)
					}
					t[sem] = acc
				}
				p.Targets = append(p.Targets, t)
			}
			if gp.Extras != nil {
				p.Props["extras"] = gp.Extras
			}
			if gp.Extensions != nil {
				p.Props["extensions"] = gp.Extensions
			}
			m.Primitives = append(m.Primitives, p)
		}
		r.doc.AddMesh(m)
	}
	return nil
}
