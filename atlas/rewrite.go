package atlas

import (
	"fmt"

	"go.uber.org/zap"

	"gltfatlas/scene"
)

// formatExt maps page mime types to file extensions.
var formatExt = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/avif": ".avif",
	"image/gif":  ".gif",
	"image/bmp":  ".bmp",
	"image/tiff": ".tiff",
}

// PageName returns the texture name of page index of typ.
func PageName(typ Type, index int) string {
	return fmt.Sprintf("%s-atlas-%d", typ, index)
}

// rewrite registers the page textures, points every slot of the packed candidates
// at its page, remaps UVs and disposes source textures nothing references anymore.
// It reports how many slots fell back to a projective transform.
func rewrite(doc *scene.Document, pages []*Page, opts *Options) (int, error) {
	fallbacks := 0
	transforms := false
	var sources []*scene.Texture
	for _, page := range pages {
		name := PageName(page.Type, page.Index)
		tex := doc.CreateTexture(name)
		tex.URI = name + formatExt[page.MimeType]
		tex.MimeType = page.MimeType
		tex.Image = page.Data
		page.Texture = tex

		log := opts.Logger.With(zap.String("type", page.Type.String()), zap.Int("page", page.Index))
		for _, it := range page.Items {
			sources = append(sources, it.Candidate.Texture)
			for _, ref := range it.Candidate.Slots {
				slot := ref.Slot
				if opts.Remap == GeometryRebake {
					reason, err := rebake(doc, ref.Material, slot, it.Placement, page)
					if err != nil {
						return fallbacks, fmt.Errorf("rebake %s of %q: %w", slot.Name, ref.Material.Name, err)
					}
					if reason == "" {
						slot.Info.Texture = tex
						continue
					}
					fallbacks++
					log.Warn("geometry rebake not possible, using projective transform",
						zap.String("material", ref.Material.Name),
						zap.String("slot", slot.Name),
						zap.String("reason", reason))
				}
				if it.Placement.Rotated && !opts.RotateUV {
					log.Warn("rotated texture mapped without UV rotation, sampling is transposed",
						zap.String("material", ref.Material.Name),
						zap.String("slot", slot.Name))
				}
				if applyProjective(slot, it.Placement, page, opts.RotateUV) {
					log.Warn("replacing rotated texture transform",
						zap.String("material", ref.Material.Name),
						zap.String("slot", slot.Name))
				}
				slot.Info.Texture = tex
				transforms = true
			}
		}
	}
	if transforms {
		doc.AddExtension("KHR_texture_transform", true)
	}

	for _, src := range sources {
		if doc.DisposeTexture(src) {
			opts.Logger.Debug("texture disposed", zap.String("texture", textureLabel(src)))
		}
	}
	return fallbacks, nil
}
