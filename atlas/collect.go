package atlas

import (
	"fmt"
	"image"
	"path"
	"runtime"
	"slices"

	"github.com/h2non/filetype"
	"github.com/maruel/natural"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gltfatlas/scene"
)

// supportedFormats lists the mime types accepted as atlas input.
var supportedFormats = []string{"image/png", "image/jpeg", "image/webp", "image/avif"}

// Candidate is a texture selected for packing.
type Candidate struct {
	Texture *scene.Texture
	// Width and Height are the decoded source dimensions.
	Width, Height int
	// Image is the pixel data to draw, downscaled when Downscale applies.
	Image    image.Image
	MimeType string
	// Slots lists the slots of the pass type that reference Texture.
	Slots []scene.SlotRef
}

// Size returns the dimensions the candidate occupies on a page.
func (c *Candidate) Size() (int, int) {
	b := c.Image.Bounds()
	return b.Dx(), b.Dy()
}

// Rejection records a texture skipped during collection.
type Rejection struct {
	Texture *scene.Texture
	Reason  string
}

// textureMime returns the declared mime type of t or sniffs it from the bytes.
func textureMime(t *scene.Texture) string {
	if t.MimeType != "" {
		return t.MimeType
	}
	if kind, err := filetype.Match(t.Image); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	return ""
}

func textureLabel(t *scene.Texture) string {
	if t.Name != "" {
		return t.Name
	}
	return path.Base(t.URI)
}

type pending struct {
	tex   *scene.Texture
	mime  string
	refs  []scene.SlotRef
	cand  *Candidate
	issue string
}

// collect selects, filters, decodes and size-checks the textures of one type.
// It never mutates doc.
func collect(doc *scene.Document, typ Type, opts *Options, filter *compiledFilter) ([]Candidate, []Rejection, error) {
	log := opts.Logger.With(zap.String("type", typ.String()))

	textures := slices.Clone(doc.Textures())
	slices.SortStableFunc(textures, func(a, b *scene.Texture) int {
		switch {
		case natural.Less(a.Name, b.Name):
			return -1
		case natural.Less(b.Name, a.Name):
			return 1
		}
		return 0
	})

	var items []*pending
	for _, tex := range textures {
		var refs []scene.SlotRef
		for _, ref := range doc.TextureRefs(tex) {
			if st, ok := slotType(ref.Slot); ok && st == typ {
				refs = append(refs, ref)
			}
		}
		if len(refs) == 0 {
			continue
		}
		item := &pending{tex: tex, refs: refs}
		items = append(items, item)

		labels := []string{tex.Name, tex.URI}
		for _, ref := range refs {
			labels = append(labels, ref.Slot.Name)
		}
		if ok, reason := filter.accept(labels); !ok {
			item.issue = reason
			continue
		}
		item.mime = textureMime(tex)
		if !slices.Contains(supportedFormats, item.mime) {
			item.issue = fmt.Sprintf("unsupported format %q", item.mime)
		}
	}

	limit := opts.limit()
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for _, item := range items {
		if item.issue != "" {
			continue
		}
		g.Go(func() error {
			img, err := opts.Codec.Decode(item.tex.Image, item.mime)
			if err != nil {
				item.issue = fmt.Sprintf("decode failed: %v", err)
				return nil
			}
			b := img.Bounds()
			w, h := b.Dx(), b.Dy()
			if w <= 0 || h <= 0 {
				item.issue = "empty image"
				return nil
			}
			cand := &Candidate{Texture: item.tex, Width: w, Height: h, Image: img, MimeType: item.mime, Slots: item.refs}
			if w > limit || h > limit {
				if !opts.Downscale {
					item.issue = fmt.Sprintf("size %dx%d exceeds %d", w, h, limit)
					return nil
				}
				dw, dh := fitWithin(w, h, limit)
				cand.Image = opts.Codec.Resize(img, dw, dh)
			}
			item.cand = cand
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var cands []Candidate
	var rejected []Rejection
	for _, item := range items {
		if item.issue != "" {
			log.Warn("texture rejected",
				zap.String("texture", textureLabel(item.tex)),
				zap.String("reason", item.issue))
			rejected = append(rejected, Rejection{Texture: item.tex, Reason: item.issue})
			continue
		}
		if w, h := item.cand.Size(); w != item.cand.Width || h != item.cand.Height {
			log.Info("texture downscaled",
				zap.String("texture", textureLabel(item.tex)),
				zap.String("from", fmt.Sprintf("%dx%d", item.cand.Width, item.cand.Height)),
				zap.String("to", fmt.Sprintf("%dx%d", w, h)))
		}
		cands = append(cands, *item.cand)
	}
	return cands, rejected, nil
}

// fitWithin scales w x h down to fit a limit x limit square, preserving aspect ratio.
func fitWithin(w, h, limit int) (int, int) {
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}
