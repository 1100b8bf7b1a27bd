package atlas

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chewxy/math32"

	"gltfatlas/rectpack"
	"gltfatlas/scene"
)

const texcoordPrefix = "TEXCOORD_"

// periodEpsilon absorbs float noise when testing whether UVs stay within one wrap period.
const periodEpsilon = 1e-5

func clamp01(u float32) float32 {
	return min(max(u, 0), 1)
}

// Fold resolves u into [0, 1] the way mode samples it: repeat keeps the fractional
// part, clamp saturates, mirrored repeat reflects odd periods.
func Fold(u float32, mode scene.WrapMode) float32 {
	return foldFrom(u, mode, math32.Floor(u))
}

// foldFrom folds u relative to the period starting at base, so the upper edge
// of a period maps to 1 rather than wrapping to 0.
func foldFrom(u float32, mode scene.WrapMode, base float32) float32 {
	switch mode {
	case scene.ClampToEdge:
		return clamp01(u)
	case scene.MirroredRepeat:
		f := clamp01(u - base)
		if int(base)%2 != 0 {
			return 1 - f
		}
		return f
	default:
		return clamp01(u - base)
	}
}

// ProjectiveTransform returns the transform mapping unit UV space onto the placement
// on a pageWidth x pageHeight page. Rotated placements hold pixels turned 90 degrees
// counter-clockwise; with rotateUV the transform rotates to match.
func ProjectiveTransform(pl rectpack.Placement, pageWidth, pageHeight int, rotateUV bool) *scene.Transform {
	pw, ph := float32(pageWidth), float32(pageHeight)
	x, y := float32(pl.X), float32(pl.Y)
	w, h := float32(pl.Width), float32(pl.Height)
	if pl.Rotated && rotateUV {
		return &scene.Transform{
			Offset:   [2]float32{x / pw, (y + h) / ph},
			Scale:    [2]float32{h / ph, w / pw},
			Rotation: math32.Pi / 2,
		}
	}
	return &scene.Transform{
		Offset: [2]float32{x / pw, y / ph},
		Scale:  [2]float32{w / pw, h / ph},
	}
}

// composeTransform returns the transform applying prior and then next. prior must
// not rotate.
func composeTransform(prior, next *scene.Transform) *scene.Transform {
	ox, oy := next.Apply(prior.Offset[0], prior.Offset[1])
	return &scene.Transform{
		Offset:   [2]float32{ox, oy},
		Scale:    [2]float32{prior.Scale[0] * next.Scale[0], prior.Scale[1] * next.Scale[1]},
		Rotation: next.Rotation,
	}
}

// sourceSet returns the texcoord set a slot samples.
func sourceSet(slot *scene.Slot) int {
	if t := slot.Info.Transform; t != nil && t.TexCoord != nil {
		return *t.TexCoord
	}
	return slot.Info.TexCoord
}

// applyProjective attaches the placement transform to slot. It reports whether a
// prior rotated transform had to be replaced.
func applyProjective(slot *scene.Slot, pl rectpack.Placement, page *Page, rotateUV bool) bool {
	t := ProjectiveTransform(pl, page.Width, page.Height, rotateUV)
	replaced := false
	if prior := slot.Info.Transform; prior != nil {
		if prior.Rotation == 0 {
			t = composeTransform(prior, t)
		} else {
			replaced = true
		}
	}
	set := sourceSet(slot)
	t.TexCoord = &set
	slot.Info.Transform = t
	return replaced
}

func texcoordIndex(semantic string) (int, bool) {
	s, ok := strings.CutPrefix(semantic, texcoordPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	return n, err == nil && n >= 0
}

// nextTexcoord returns one past the highest texcoord set on any of prims.
func nextTexcoord(prims []*scene.Primitive) int {
	next := 0
	for _, p := range prims {
		for _, sem := range p.Semantics() {
			if n, ok := texcoordIndex(sem); ok {
				next = max(next, n+1)
			}
		}
	}
	return next
}

// mapUV places a folded coordinate inside the placement rectangle.
func mapUV(u, v float32, pl rectpack.Placement, pageWidth, pageHeight int) (float32, float32) {
	pw, ph := float32(pageWidth), float32(pageHeight)
	x, y := float32(pl.X), float32(pl.Y)
	w, h := float32(pl.Width), float32(pl.Height)
	if pl.Rotated {
		return (x + w*v) / pw, (y + h*(1-u)) / ph
	}
	return (x + w*u) / pw, (y + h*v) / ph
}

type uvSource struct {
	uvs    [][2]float32
	baseU  float32
	baseV  float32
	rebake *scene.Accessor
}

// readUVs decodes acc through the optional prior transform and checks that every
// wrapping axis stays within a single period.
func readUVs(acc *scene.Accessor, prior *scene.Transform, wrapS, wrapT scene.WrapMode) (*uvSource, string) {
	src := &uvSource{uvs: make([][2]float32, acc.Count)}
	minU, minV := math32.Inf(1), math32.Inf(1)
	maxU, maxV := math32.Inf(-1), math32.Inf(-1)
	var el []float32
	for i := 0; i < acc.Count; i++ {
		el = acc.Element(i, el)
		u, v := el[0], el[1]
		if prior != nil {
			u, v = prior.Apply(u, v)
		}
		src.uvs[i] = [2]float32{u, v}
		minU, maxU = min(minU, u), max(maxU, u)
		minV, maxV = min(minV, v), max(maxV, v)
	}
	if acc.Count == 0 {
		return src, ""
	}
	src.baseU, src.baseV = math32.Floor(minU), math32.Floor(minV)
	if wrapS != scene.ClampToEdge && maxU-src.baseU > 1+periodEpsilon {
		return nil, fmt.Sprintf("U spans more than one %s period", wrapS)
	}
	if wrapT != scene.ClampToEdge && maxV-src.baseV > 1+periodEpsilon {
		return nil, fmt.Sprintf("V spans more than one %s period", wrapT)
	}
	return src, ""
}

// rebake writes a texcoord set holding the slot UVs remapped into the placement to
// every primitive of m carrying the source set, then points slot at it. Rotated
// placements are always mapped rotated since no transform is involved. Existing
// attributes are never modified. A non-empty reason means nothing was changed and
// the slot needs a projective transform instead.
func rebake(doc *scene.Document, m *scene.Material, slot *scene.Slot, pl rectpack.Placement, page *Page) (string, error) {
	prior := slot.Info.Transform
	if prior != nil && prior.Rotation != 0 {
		return "slot already has a rotated transform", nil
	}
	srcName := texcoordPrefix + strconv.Itoa(sourceSet(slot))
	prims := doc.MaterialPrimitives(m)

	sources := map[*scene.Accessor]*uvSource{}
	var carriers []*scene.Primitive
	for _, p := range prims {
		acc := p.Attribute(srcName)
		if acc == nil {
			continue
		}
		if acc.Components() < 2 {
			return fmt.Sprintf("%s is not a VEC2 accessor", srcName), nil
		}
		carriers = append(carriers, p)
		if _, ok := sources[acc]; ok {
			continue
		}
		src, reason := readUVs(acc, prior, slot.Info.WrapS, slot.Info.WrapT)
		if reason != "" {
			return reason, nil
		}
		sources[acc] = src
	}
	if len(carriers) == 0 {
		return fmt.Sprintf("no primitive carries %s", srcName), nil
	}

	next := nextTexcoord(prims)
	dstName := texcoordPrefix + strconv.Itoa(next)
	for _, p := range carriers {
		src := sources[p.Attribute(srcName)]
		if src.rebake == nil {
			values := make([]float32, 0, 2*len(src.uvs))
			for _, uv := range src.uvs {
				u := foldFrom(uv[0], slot.Info.WrapS, src.baseU)
				v := foldFrom(uv[1], slot.Info.WrapT, src.baseV)
				u, v = mapUV(u, v, pl, page.Width, page.Height)
				values = append(values, u, v)
			}
			acc, err := scene.NewFloatAccessor("VEC2", values)
			if err != nil {
				return "", err
			}
			acc.Name = fmt.Sprintf("%s-atlas-%d_%s", page.Type, page.Index, dstName)
			doc.AddAccessor(acc)
			src.rebake = acc
		}
		p.SetAttribute(dstName, src.rebake)
		for k := 0; k < next; k++ {
			name := texcoordPrefix + strconv.Itoa(k)
			if p.Attribute(name) == nil {
				p.SetAttribute(name, src.rebake)
			}
		}
	}
	slot.Info.TexCoord = next
	slot.Info.Transform = nil
	return "", nil
}
