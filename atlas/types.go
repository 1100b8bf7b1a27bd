package atlas

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"go.uber.org/zap"

	"gltfatlas/rectpack"
	"gltfatlas/scene"
)

var (
	// ErrConfig marks structurally invalid options. Run mutates nothing when it is returned.
	ErrConfig = errors.New("invalid atlas configuration")
	// ErrNoCodec is returned when no image codec was supplied.
	ErrNoCodec = errors.New("no image codec")
	// ErrInfeasible is returned by packing when an item does not fit an empty page.
	ErrInfeasible = rectpack.ErrInfeasible
)

// Type identifies a family of material slots that share one set of atlas pages.
type Type int

const (
	BaseColor Type = iota
	Normal
	MetallicRoughness
	Occlusion
	Emissive
)

var typeNames = [...]string{"baseColor", "normal", "metallicRoughness", "occlusion", "emissive"}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// AllTypes returns every atlas type in processing order.
func AllTypes() []Type {
	return []Type{BaseColor, Normal, MetallicRoughness, Occlusion, Emissive}
}

// ParseType resolves a type name, ignoring case.
func ParseType(s string) (Type, error) {
	for i, name := range typeNames {
		if strings.EqualFold(s, name) {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown atlas type %q", ErrConfig, s)
}

// slotTable maps each type to the material slot that carries it.
var slotTable = map[Type]string{
	BaseColor:         scene.BaseColorSlot,
	Normal:            scene.NormalSlot,
	MetallicRoughness: scene.MetallicRoughnessSlot,
	Occlusion:         scene.OcclusionSlot,
	Emissive:          scene.EmissiveSlot,
}

// slotType infers the atlas type of a slot from its name. Slots outside the table
// count as baseColor when they hold sRGB data and are not eligible otherwise.
func slotType(s *scene.Slot) (Type, bool) {
	for t, name := range slotTable {
		if s.Name == name {
			return t, true
		}
	}
	if s.SRGB {
		return BaseColor, true
	}
	return 0, false
}

// typeSlots returns the slots of m that belong to t.
func typeSlots(m *scene.Material, t Type) []*scene.Slot {
	var slots []*scene.Slot
	for _, s := range m.Slots() {
		if st, ok := slotType(s); ok && st == t && s.Info.Texture != nil {
			slots = append(slots, s)
		}
	}
	return slots
}

// RemapMode selects how texture coordinates are redirected into the atlas.
type RemapMode int

const (
	// Projective attaches a texture transform to each slot.
	Projective RemapMode = iota
	// GeometryRebake writes a new texcoord set per primitive.
	GeometryRebake
)

func (m RemapMode) String() string {
	if m == GeometryRebake {
		return "geometry-rebake"
	}
	return "projective"
}

// ParseRemapMode resolves "projective" or "geometry-rebake".
func ParseRemapMode(s string) (RemapMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "projective":
		return Projective, nil
	case "geometry-rebake", "geometry", "rebake":
		return GeometryRebake, nil
	}
	return 0, fmt.Errorf("%w: unknown remap mode %q", ErrConfig, s)
}

// Filter selects textures by glob patterns over texture name, URI and slot names.
// An empty Include accepts everything not excluded.
type Filter struct {
	Include []string
	Exclude []string
}

type compiledFilter struct {
	include []glob.Glob
	exclude []glob.Glob
}

func (f Filter) compile() (*compiledFilter, error) {
	c := &compiledFilter{}
	for _, p := range f.Include {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("%w: include pattern %q: %v", ErrConfig, p, err)
		}
		c.include = append(c.include, g)
	}
	for _, p := range f.Exclude {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("%w: exclude pattern %q: %v", ErrConfig, p, err)
		}
		c.exclude = append(c.exclude, g)
	}
	return c, nil
}

func matchAny(globs []glob.Glob, labels []string) bool {
	for _, g := range globs {
		for _, l := range labels {
			if l != "" && g.Match(l) {
				return true
			}
		}
	}
	return false
}

// accept reports whether a texture with the given labels passes the filter.
func (c *compiledFilter) accept(labels []string) (bool, string) {
	if len(c.include) > 0 && !matchAny(c.include, labels) {
		return false, "not matched by include filter"
	}
	if matchAny(c.exclude, labels) {
		return false, "matched by exclude filter"
	}
	return true, ""
}

// Options configures an atlas pass. Start from DefaultOptions; the zero value
// disables RotateUV, Pow2 and Shrink.
type Options struct {
	// Types lists the atlas types to process, all when empty.
	Types []Type
	// MaxSize is the page dimension ceiling in pixels.
	MaxSize int
	// Padding is the gutter around every item in pixels.
	Padding int
	// Rotate permits 90 degree rotation of items.
	Rotate bool
	// RotateUV adds the matching rotation to the transform of rotated items. Without it
	// rotated slots sample transposed and a warning is logged. Rebaked UVs always rotate.
	RotateUV bool
	// Pow2 rounds shrunk pages up to powers of two.
	Pow2 bool
	// Shrink fits pages to their content, otherwise pages are MaxSize square.
	Shrink bool
	Remap  RemapMode
	// Algorithm selects the packing heuristic.
	Algorithm rectpack.Heuristic
	// Sort orders items before packing, longest side first when nil.
	Sort   rectpack.SortFunc
	Filter Filter
	// Format is the mime type pages are encoded to.
	Format string
	// Downscale resizes oversize inputs to fit instead of rejecting them.
	Downscale bool
	Codec     Codec
	Logger    *zap.Logger
}

// DefaultOptions returns options with every documented default applied.
// A Codec must still be supplied.
func DefaultOptions() Options {
	return Options{
		MaxSize:   rectpack.DefaultSize,
		Padding:   2,
		RotateUV:  true,
		Pow2:      true,
		Shrink:    true,
		Remap:     Projective,
		Algorithm: rectpack.MaxRectsBAF,
		Format:    "image/png",
	}
}

func (o *Options) types() []Type {
	if len(o.Types) == 0 {
		return AllTypes()
	}
	return o.Types
}

// limit returns the largest item side that still fits a page with padding.
func (o *Options) limit() int {
	return o.MaxSize - 2*o.Padding
}

func (o *Options) validate() (*compiledFilter, error) {
	if o.Codec == nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, ErrNoCodec)
	}
	if o.Padding < 0 {
		return nil, fmt.Errorf("%w: negative padding %d", ErrConfig, o.Padding)
	}
	if o.MaxSize <= 2*o.Padding {
		return nil, fmt.Errorf("%w: maxSize %d leaves no room inside padding %d", ErrConfig, o.MaxSize, o.Padding)
	}
	for _, t := range o.Types {
		if t < 0 || int(t) >= len(typeNames) {
			return nil, fmt.Errorf("%w: unknown atlas type %d", ErrConfig, int(t))
		}
	}
	if o.Remap != Projective && o.Remap != GeometryRebake {
		return nil, fmt.Errorf("%w: unknown remap mode %d", ErrConfig, int(o.Remap))
	}
	if _, err := rectpack.NewPacker(o.MaxSize, o.MaxSize, o.Algorithm); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if o.Format == "" {
		o.Format = "image/png"
	}
	if enc, ok := o.Codec.(EncodeChecker); ok && !enc.CanEncode(o.Format) {
		return nil, fmt.Errorf("%w: codec cannot encode %s", ErrConfig, o.Format)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o.Filter.compile()
}
