package atlas

import (
	"fmt"
	"image"
	"math/bits"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gltfatlas/rectpack"
	"gltfatlas/scene"
)

// Item is a candidate placed on a page.
type Item struct {
	Candidate *Candidate
	Placement rectpack.Placement
}

// Page is one composited atlas image of a type.
type Page struct {
	Type  Type
	Index int
	// Width and Height are the final page dimensions.
	Width, Height int
	// Items are in placement order.
	Items    []Item
	Image    image.Image
	Data     []byte
	MimeType string
	// Used is the area utilization of the packed content.
	Used float64
	// Texture is the page texture once registered in the document.
	Texture *scene.Texture
}

// packCandidates assigns every candidate a placement on one or more pages.
func packCandidates(typ Type, cands []Candidate, opts *Options) ([]*Page, error) {
	sizes := make([]rectpack.Size, len(cands))
	for i := range cands {
		w, h := cands[i].Size()
		sizes[i] = rectpack.NewSizeID(i, w, h)
	}
	results, err := rectpack.PackPages(sizes, rectpack.PageOptions{
		MaxWidth:    opts.MaxSize,
		MaxHeight:   opts.MaxSize,
		Padding:     opts.Padding,
		AllowRotate: opts.Rotate,
		Heuristic:   opts.Algorithm,
		Sort:        opts.Sort,
	})
	if err != nil {
		return nil, err
	}
	pages := make([]*Page, len(results))
	for i, res := range results {
		page := &Page{Type: typ, Index: res.Index, Used: res.Used, MimeType: opts.Format}
		page.Items = make([]Item, len(res.Placements))
		for j, pl := range res.Placements {
			page.Items[j] = Item{Candidate: &cands[pl.ID], Placement: pl}
		}
		pages[i] = page
	}
	return pages, nil
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// PageSize returns the final dimensions of a page holding placements. The tight
// bounding box plus trailing padding is used when shrinking, optionally rounded up
// to powers of two no larger than MaxSize; capped reports that rounding hit that
// ceiling. Without shrinking pages are exactly MaxSize square.
func PageSize(placements []rectpack.Placement, opts Options) (width, height int, capped bool) {
	if !opts.Shrink {
		return opts.MaxSize, opts.MaxSize, false
	}
	for _, pl := range placements {
		width = max(width, pl.Right()+opts.Padding)
		height = max(height, pl.Bottom()+opts.Padding)
	}
	if opts.Pow2 {
		pw, ph := nextPowerOfTwo(width), nextPowerOfTwo(height)
		if pw > opts.MaxSize {
			pw, capped = opts.MaxSize, true
		}
		if ph > opts.MaxSize {
			ph, capped = opts.MaxSize, true
		}
		width, height = pw, ph
	}
	return width, height, capped
}

// composePages renders and encodes pages concurrently. Items of a page are prepared
// concurrently and drawn by a single Composite call in placement order.
func composePages(pages []*Page, opts *Options) error {
	log := opts.Logger
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for _, page := range pages {
		g.Go(func() error {
			placements := make([]rectpack.Placement, len(page.Items))
			for i, it := range page.Items {
				placements[i] = it.Placement
			}
			var capped bool
			page.Width, page.Height, capped = PageSize(placements, *opts)
			if capped {
				log.Warn("power of two page size exceeds maxSize, capped",
					zap.String("type", page.Type.String()),
					zap.Int("page", page.Index),
					zap.Int("max_size", opts.MaxSize))
			}

			layers := make([]Layer, len(page.Items))
			var prep errgroup.Group
			prep.SetLimit(runtime.NumCPU())
			for i, it := range page.Items {
				prep.Go(func() error {
					img := it.Candidate.Image
					if it.Placement.Rotated {
						img = opts.Codec.Rotate90(img)
					}
					b := img.Bounds()
					if b.Dx() != it.Placement.Width || b.Dy() != it.Placement.Height {
						return fmt.Errorf("page %d: item %d prepared as %dx%d, placed as %dx%d",
							page.Index, it.Placement.ID, b.Dx(), b.Dy(), it.Placement.Width, it.Placement.Height)
					}
					layers[i] = Layer{Image: img, X: it.Placement.X, Y: it.Placement.Y}
					return nil
				})
			}
			if err := prep.Wait(); err != nil {
				return err
			}

			img, err := opts.Codec.Composite(page.Width, page.Height, layers)
			if err != nil {
				return fmt.Errorf("page %d: composite: %w", page.Index, err)
			}
			data, err := opts.Codec.Encode(img, opts.Format)
			if err != nil {
				return fmt.Errorf("page %d: encode %s: %w", page.Index, opts.Format, err)
			}
			page.Image, page.Data = img, data
			log.Info("page composed",
				zap.String("type", page.Type.String()),
				zap.Int("page", page.Index),
				zap.String("size", fmt.Sprintf("%dx%d", page.Width, page.Height)),
				zap.Int("sprites", len(page.Items)),
				zap.String("utilization", fmt.Sprintf("%.2f%%", page.Used*100)))
			return nil
		})
	}
	return g.Wait()
}
