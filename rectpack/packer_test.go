package rectpack

import (
	"fmt"
	"math/rand"
	"testing"
)

var allHeuristics = map[string][]string{
	"MaxRects":   {"BestShortSideFit", "BottomLeft", "ContactPoint", "BestLongSideFit", "BestAreaFit"},
	"Guillotine": {"BestAreaFit", "BestShortSideFit", "BestLongSideFit", "WorstAreaFit", "WorstShortSideFit", "WorstLongSideFit"},
	"Skyline":    {"BottomLeft", "MinWaste"},
}

// randomSize returns a size within the given minimum and maximum sizes.
func randomSize(rng *rand.Rand, id int, minSize, maxSize Size) Size {
	w := rng.Intn(maxSize.Width-minSize.Width) + minSize.Width
	h := rng.Intn(maxSize.Height-minSize.Height) + minSize.Height
	return NewSizeID(id, w, h)
}

func randomSizes(seed int64, count int) []Size {
	rng := rand.New(rand.NewSource(seed))
	sizes := make([]Size, count)
	for i := range sizes {
		sizes[i] = randomSize(rng, i, NewSize(16, 16), NewSize(96, 96))
	}
	return sizes
}

// checkPage 验证同一页的矩形（含 padding）互不重叠且都在页面内
func checkPage(t *testing.T, name string, rects []Rect, padding, width, height int) {
	t.Helper()
	for i := range rects {
		r := rects[i].Inflate(padding)
		if r.X < 0 || r.Y < 0 || r.Right() > width || r.Bottom() > height {
			t.Errorf("%s: %s with padding %d is outside %dx%d", name, rects[i].String(), padding, width, height)
		}
		for j := i + 1; j < len(rects); j++ {
			if r.Intersects(rects[j].Inflate(padding)) {
				t.Errorf("%s: %s and %s intersect", name, rects[i].String(), rects[j].String())
			}
		}
	}
}

func TestResolveAlgorithm(t *testing.T) {
	for algo, variants := range allHeuristics {
		for _, variant := range variants {
			if _, err := ResolveAlgorithm(algo, variant); err != nil {
				t.Errorf("%s/%s: %v", algo, variant, err)
			}
		}
	}
	h, err := ResolveAlgorithm("max-rects", "best-area-fit")
	if err != nil || h != MaxRectsBAF {
		t.Errorf("expected MaxRectsBAF, got %v (%v)", h, err)
	}
	h, err = ResolveAlgorithm("skyline", "")
	if err != nil || h != SkylineBLF {
		t.Errorf("expected SkylineBLF default, got %v (%v)", h, err)
	}
	if _, err := ResolveAlgorithm("Skyline", "ContactPoint"); err == nil {
		t.Error("expected error for a variant the algorithm does not support")
	}
	if _, err := ResolveAlgorithm("Shelf", ""); err == nil {
		t.Error("expected error for unknown algorithm")
	}
}

func TestNewPackerInvalid(t *testing.T) {
	if _, err := NewPacker(0, 10, MaxRectsBAF); err == nil {
		t.Error("expected error for zero width")
	}
	if _, err := NewPacker(10, 10, Heuristic(0x9)); err == nil {
		t.Error("expected error for invalid algorithm")
	}
}

func TestRandom(t *testing.T) {
	const (
		atlasWidth  = 512
		atlasHeight = 512
		padding     = 2
	)
	for algo, variants := range allHeuristics {
		for _, variant := range variants {
			for _, rotate := range []bool{false, true} {
				name := fmt.Sprintf("%s_%s_rotate=%v", algo, variant, rotate)
				t.Run(name, func(t *testing.T) {
					heuristic, err := ResolveAlgorithm(algo, variant)
					if err != nil {
						t.Fatal(err)
					}
					packer, err := NewPacker(atlasWidth, atlasHeight, heuristic)
					if err != nil {
						t.Fatal(err)
					}
					packer.AllowRotate(rotate)
					packer.Padding = padding
					sizes := randomSizes(7, 128)
					packer.Insert(sizes...)
					packer.Pack()

					rects := packer.Rects()
					if len(rects)+len(packer.Unpacked()) != len(sizes) {
						t.Fatalf("lost rectangles: %d packed + %d unpacked != %d",
							len(rects), len(packer.Unpacked()), len(sizes))
					}
					if len(rects) == 0 {
						t.Fatal("nothing packed")
					}
					checkPage(t, name, rects, padding, atlasWidth, atlasHeight)

					bySize := make(map[int]Size, len(sizes))
					for _, s := range sizes {
						bySize[s.ID] = s
					}
					for _, r := range rects {
						src := bySize[r.ID]
						if r.Rotated {
							if !rotate {
								t.Fatalf("%s rotated while rotation is disabled", r.String())
							}
							if r.Width != src.Height || r.Height != src.Width {
								t.Errorf("rotated %s does not swap %s", r.String(), src.String())
							}
						} else if r.Width != src.Width || r.Height != src.Height {
							t.Errorf("%s does not match %s", r.String(), src.String())
						}
					}
					if used := packer.Used(true); used <= 0 || used > 1 {
						t.Errorf("utilization out of range: %f", used)
					}
				})
			}
		}
	}
}

func TestExactFit(t *testing.T) {
	packer, _ := NewPacker(64, 64, MaxRectsBAF)
	packer.Insert(NewSizeID(1, 32, 32), NewSizeID(2, 32, 32), NewSizeID(3, 32, 32), NewSizeID(4, 32, 32))
	if !packer.Pack() {
		t.Fatalf("expected four quarters to fill the page, %d left", len(packer.Unpacked()))
	}
	if size := packer.Size(); size.Width != 64 || size.Height != 64 {
		t.Errorf("expected 64x64, got %s", size.String())
	}
	if used := packer.Used(false); used != 1 {
		t.Errorf("expected full utilization, got %f", used)
	}
}

func TestRotationOnlyFit(t *testing.T) {
	packer, _ := NewPacker(100, 40, MaxRectsBAF)
	packer.Insert(NewSizeID(1, 30, 90))
	if packer.Pack() {
		t.Fatal("30x90 should not fit 100x40 without rotation")
	}
	packer.Clear()
	packer.AllowRotate(true)
	packer.Insert(NewSizeID(1, 30, 90))
	if !packer.Pack() {
		t.Fatal("30x90 should fit 100x40 rotated")
	}
	r := packer.Rects()[0]
	if !r.Rotated || r.Width != 90 || r.Height != 30 {
		t.Errorf("expected rotated 90x30, got %s rotated=%v", r.String(), r.Rotated)
	}
}

func TestRepackAll(t *testing.T) {
	packer, _ := NewPacker(512, 512, GuillotineBAF)
	packer.Online = true
	for i, s := range randomSizes(3, 12) {
		if !packer.InsertSize(i, s.Width, s.Height) {
			t.Fatalf("online insert of %s failed", s.String())
		}
	}
	packer.Online = false
	if !packer.RepackAll() {
		t.Fatalf("repack left %d rectangles", len(packer.Unpacked()))
	}
	if len(packer.Rects()) != 12 {
		t.Errorf("expected 12 rectangles after repack, got %d", len(packer.Rects()))
	}
	if len(packer.Map()) != len(packer.Rects()) {
		t.Error("map size does not match packed rectangles")
	}
}
