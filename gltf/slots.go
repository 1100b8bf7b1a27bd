package gltf

import (
	"maps"
	"sort"
	"strings"

	"gltfatlas/scene"
)

type coreSlot struct {
	name string
	path []string
	srgb bool
}

var coreSlots = []coreSlot{
	{scene.BaseColorSlot, []string{"pbrMetallicRoughness", "baseColorTexture"}, true},
	{scene.MetallicRoughnessSlot, []string{"pbrMetallicRoughness", "metallicRoughnessTexture"}, false},
	{scene.NormalSlot, []string{"normalTexture"}, false},
	{scene.OcclusionSlot, []string{"occlusionTexture"}, false},
	{scene.EmissiveSlot, []string{"emissiveTexture"}, true},
}

// slotPath returns the JSON path of a slot inside a material. Extension slots are
// named "<extension>/<property>".
func slotPath(name string) []string {
	for _, s := range coreSlots {
		if s.name == name {
			return s.path
		}
	}
	if ext, prop, ok := strings.Cut(name, "/"); ok {
		return []string{"extensions", ext, prop}
	}
	return []string{name}
}

// colorProperty reports whether an extension texture property holds sRGB data.
func colorProperty(prop string) bool {
	return strings.Contains(prop, "Color") || prop == "diffuseTexture" || prop == "specularGlossinessTexture"
}

// extensionSlots lists texture info properties found under material extensions.
func extensionSlots(props map[string]any) []coreSlot {
	exts, _ := props["extensions"].(map[string]any)
	var slots []coreSlot
	for _, ext := range sortedKeys(exts) {
		fields, _ := exts[ext].(map[string]any)
		for _, prop := range sortedKeys(fields) {
			info, ok := fields[prop].(map[string]any)
			if !ok || !strings.HasSuffix(prop, "Texture") {
				continue
			}
			if _, ok := info["index"]; !ok {
				continue
			}
			slots = append(slots, coreSlot{name: ext + "/" + prop, path: []string{"extensions", ext, prop}, srgb: colorProperty(prop)})
		}
	}
	return slots
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// lookup returns the value at path or nil.
func lookup(m map[string]any, path []string) any {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[key]
	}
	return cur
}

// remove deletes the value at path, leaving parents in place.
func remove(m map[string]any, path []string) {
	for _, key := range path[:len(path)-1] {
		next, ok := m[key].(map[string]any)
		if !ok {
			return
		}
		m = next
	}
	delete(m, path[len(path)-1])
}

// insert returns a copy of m with v stored at path. Maps along the path are copied,
// m itself is not modified.
func insert(m map[string]any, path []string, v any) map[string]any {
	out := maps.Clone(m)
	if out == nil {
		out = map[string]any{}
	}
	if len(path) == 1 {
		out[path[0]] = v
		return out
	}
	child, _ := out[path[0]].(map[string]any)
	out[path[0]] = insert(child, path[1:], v)
	return out
}
