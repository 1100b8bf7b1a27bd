package rectpack

import (
	"math"
	"slices"
)

type scoreFunc func(width, height int, freeRect *Rect) int

type guillotinePack struct {
	algorithmBase
	Merge       bool
	splitMethod Heuristic
	scoreRect   scoreFunc
	freeRects   []Rect
}

func newGuillotine(width, height int, heuristic Heuristic) *guillotinePack {
	var packer guillotinePack
	packer.Merge = true
	switch heuristic.Bin() {
	case BestShortSideFit:
		packer.scoreRect = scoreBestShort
	case BestLongSideFit:
		packer.scoreRect = scoreBestLong
	case WorstAreaFit:
		packer.scoreRect = func(w, h int, r *Rect) int { return -scoreBestArea(w, h, r) }
	case WorstShortSideFit:
		packer.scoreRect = func(w, h int, r *Rect) int { return -scoreBestShort(w, h, r) }
	case WorstLongSideFit:
		packer.scoreRect = func(w, h int, r *Rect) int { return -scoreBestLong(w, h, r) }
	default:
		packer.scoreRect = scoreBestArea
	}
	packer.splitMethod = heuristic.Split()
	packer.Reset(width, height)
	return &packer
}

func (p *guillotinePack) Reset(width, height int) {
	p.algorithmBase.Reset(width, height)
	p.freeRects = append(p.freeRects[:0], NewRect(0, 0, p.maxWidth, p.maxHeight))
}

// Insert 每轮在所有待放置尺寸和所有空闲区域中选出得分最好的一对
func (p *guillotinePack) Insert(padding int, sizes ...Size) []Size {
	pending := slices.Clone(sizes)
	padded := make([]Size, len(sizes))
	for i, size := range sizes {
		padded[i] = padSize(size, padding)
	}
	for len(padded) > 0 {
		bestFreeRect, bestSize := -1, -1
		bestFlipped := false
		bestScore := math.MaxInt
	search:
		for i := range p.freeRects {
			freeRect := &p.freeRects[i]
			for j, size := range padded {
				switch {
				case size.Width == freeRect.Width && size.Height == freeRect.Height:
					bestFreeRect, bestSize, bestFlipped = i, j, false
					break search
				case p.allowRotate && size.Height == freeRect.Width && size.Width == freeRect.Height:
					bestFreeRect, bestSize, bestFlipped = i, j, true
					break search
				}
				if size.Width <= freeRect.Width && size.Height <= freeRect.Height {
					if score := p.scoreRect(size.Width, size.Height, freeRect); score < bestScore {
						bestFreeRect, bestSize, bestFlipped, bestScore = i, j, false, score
					}
				}
				if p.allowRotate && size.Height <= freeRect.Width && size.Width <= freeRect.Height {
					if score := p.scoreRect(size.Height, size.Width, freeRect); score < bestScore {
						bestFreeRect, bestSize, bestFlipped, bestScore = i, j, true, score
					}
				}
			}
		}
		if bestFreeRect < 0 {
			break
		}
		node := Rect{
			Point: p.freeRects[bestFreeRect].Point,
			Size:  padded[bestSize],
		}
		if bestFlipped {
			node.Width, node.Height = node.Height, node.Width
			node.Rotated = true
		}
		freeRect := p.freeRects[bestFreeRect]
		p.freeRects = slices.Delete(p.freeRects, bestFreeRect, bestFreeRect+1)
		p.splitByHeuristic(&freeRect, &node)
		padded = slices.Delete(padded, bestSize, bestSize+1)
		pending = slices.Delete(pending, bestSize, bestSize+1)
		if p.Merge {
			p.mergeFreeList()
		}
		p.commit(node, padding)
	}
	return pending
}

func scoreBestArea(width, height int, freeRect *Rect) int {
	return freeRect.Width*freeRect.Height - width*height
}

func scoreBestShort(width, height int, freeRect *Rect) int {
	return min(abs(freeRect.Width-width), abs(freeRect.Height-height))
}

func scoreBestLong(width, height int, freeRect *Rect) int {
	return max(abs(freeRect.Width-width), abs(freeRect.Height-height))
}

func (p *guillotinePack) splitAlongAxis(freeRect, placedRect *Rect, splitHorizontal bool) {
	var bottom Rect
	bottom.X = freeRect.X
	bottom.Y = freeRect.Y + placedRect.Height
	bottom.Height = freeRect.Height - placedRect.Height
	var right Rect
	right.X = freeRect.X + placedRect.Width
	right.Y = freeRect.Y
	right.Width = freeRect.Width - placedRect.Width
	if splitHorizontal {
		bottom.Width = freeRect.Width
		right.Height = placedRect.Height
	} else {
		bottom.Width = placedRect.Width
		right.Height = freeRect.Height
	}
	if bottom.Width > 0 && bottom.Height > 0 {
		p.freeRects = append(p.freeRects, bottom)
	}
	if right.Width > 0 && right.Height > 0 {
		p.freeRects = append(p.freeRects, right)
	}
}

func (p *guillotinePack) splitByHeuristic(freeRect, placedRect *Rect) {
	w := freeRect.Width - placedRect.Width
	h := freeRect.Height - placedRect.Height
	var splitHorizontal bool
	switch p.splitMethod {
	case SplitShorterLeftoverAxis:
		splitHorizontal = w <= h
	case SplitLongerLeftoverAxis:
		splitHorizontal = w > h
	case SplitMinimizeArea:
		splitHorizontal = placedRect.Width*h > w*placedRect.Height
	case SplitMaximizeArea:
		splitHorizontal = placedRect.Width*h <= w*placedRect.Height
	case SplitShorterAxis:
		splitHorizontal = freeRect.Width <= freeRect.Height
	case SplitLongerAxis:
		splitHorizontal = freeRect.Width > freeRect.Height
	default:
		splitHorizontal = true
	}
	p.splitAlongAxis(freeRect, placedRect, splitHorizontal)
}

// mergeFreeList 合并共享完整一条边的相邻空闲区域
func (p *guillotinePack) mergeFreeList() {
	for i := 0; i < len(p.freeRects); i++ {
		for j := i + 1; j < len(p.freeRects); j++ {
			a, b := &p.freeRects[i], p.freeRects[j]
			merged := true
			switch {
			case a.Width == b.Width && a.X == b.X && a.Y == b.Bottom():
				a.Y -= b.Height
				a.Height += b.Height
			case a.Width == b.Width && a.X == b.X && a.Bottom() == b.Y:
				a.Height += b.Height
			case a.Height == b.Height && a.Y == b.Y && a.X == b.Right():
				a.X -= b.Width
				a.Width += b.Width
			case a.Height == b.Height && a.Y == b.Y && a.Right() == b.X:
				a.Width += b.Width
			default:
				merged = false
			}
			if merged {
				p.freeRects = slices.Delete(p.freeRects, j, j+1)
				j--
			}
		}
	}
}
