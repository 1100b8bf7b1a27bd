package rectpack

import (
	"math"
	"slices"
)

// maxRectsScore 返回在空闲区 freeRect 左上角放置 width×height 的两级得分，越小越好
type maxRectsScore func(p *maxRectsPack, width, height int, freeRect *Rect) (int, int)

// maxRectsPack 维护一组可能相互重叠的最大空闲矩形。
// 每放置一个矩形，就切分所有与之相交的空闲矩形，再剔除被包含的部分。
type maxRectsPack struct {
	algorithmBase
	score     maxRectsScore
	freeRects []Rect
	// used 保存含 padding 的已放置矩形，用于 ContactPoint 计分
	used []Rect
}

func newMaxRects(width, height int, heuristic Heuristic) *maxRectsPack {
	var packer maxRectsPack
	switch heuristic.Bin() {
	case BestShortSideFit:
		packer.score = scoreShortSide
	case BestLongSideFit:
		packer.score = scoreLongSide
	case BottomLeft:
		packer.score = scoreBottomLeft
	case ContactPoint:
		packer.score = scoreContactPoint
	default:
		packer.score = scoreArea
	}
	packer.Reset(width, height)
	return &packer
}

func (p *maxRectsPack) Reset(width, height int) {
	p.algorithmBase.Reset(width, height)
	p.used = p.used[:0]
	p.freeRects = append(p.freeRects[:0], NewRect(0, 0, p.maxWidth, p.maxHeight))
}

// Insert 按给定顺序逐个放置，放不下的尺寸原样返回
func (p *maxRectsPack) Insert(padding int, sizes ...Size) []Size {
	var failed []Size
	for _, size := range sizes {
		node, ok := p.findPosition(padSize(size, padding))
		if !ok {
			failed = append(failed, size)
			continue
		}
		p.place(node)
		p.commit(node, padding)
	}
	return failed
}

// findPosition 在所有空闲区中寻找得分最好的位置。旋转方向只有在严格更优时才会被采用。
func (p *maxRectsPack) findPosition(size Size) (Rect, bool) {
	best := Rect{Size: size}
	bestScore1, bestScore2 := math.MaxInt, math.MaxInt
	found := false
	for i := range p.freeRects {
		freeRect := &p.freeRects[i]
		if size.Width <= freeRect.Width && size.Height <= freeRect.Height {
			s1, s2 := p.score(p, size.Width, size.Height, freeRect)
			if s1 < bestScore1 || (s1 == bestScore1 && s2 < bestScore2) {
				best.Point = freeRect.Point
				best.Width, best.Height = size.Width, size.Height
				best.Rotated = false
				bestScore1, bestScore2 = s1, s2
				found = true
			}
		}
		if p.allowRotate && size.Width != size.Height &&
			size.Height <= freeRect.Width && size.Width <= freeRect.Height {
			s1, s2 := p.score(p, size.Height, size.Width, freeRect)
			if s1 < bestScore1 || (s1 == bestScore1 && s2 < bestScore2) {
				best.Point = freeRect.Point
				best.Width, best.Height = size.Height, size.Width
				best.Rotated = true
				bestScore1, bestScore2 = s1, s2
				found = true
			}
		}
	}
	return best, found
}

func (p *maxRectsPack) place(node Rect) {
	n := len(p.freeRects)
	for i := 0; i < n; {
		if p.splitFreeNode(p.freeRects[i], node) {
			p.freeRects = slices.Delete(p.freeRects, i, i+1)
			n--
			continue
		}
		i++
	}
	p.pruneFreeList()
	p.used = append(p.used, node)
}

// splitFreeNode 若 used 与 free 相交，则把 free 剩余的最多四个最大矩形追加到空闲列表中
func (p *maxRectsPack) splitFreeNode(free, used Rect) bool {
	if !free.Intersects(used) {
		return false
	}
	if used.X < free.Right() && used.Right() > free.X {
		if used.Y > free.Y && used.Y < free.Bottom() {
			top := free
			top.Height = used.Y - free.Y
			p.freeRects = append(p.freeRects, top)
		}
		if used.Bottom() < free.Bottom() {
			bottom := free
			bottom.Y = used.Bottom()
			bottom.Height = free.Bottom() - used.Bottom()
			p.freeRects = append(p.freeRects, bottom)
		}
	}
	if used.Y < free.Bottom() && used.Bottom() > free.Y {
		if used.X > free.X && used.X < free.Right() {
			left := free
			left.Width = used.X - free.X
			p.freeRects = append(p.freeRects, left)
		}
		if used.Right() < free.Right() {
			right := free
			right.X = used.Right()
			right.Width = free.Right() - used.Right()
			p.freeRects = append(p.freeRects, right)
		}
	}
	return true
}

// pruneFreeList 移除被其他空闲矩形完全包含的空闲矩形
func (p *maxRectsPack) pruneFreeList() {
	for i := 0; i < len(p.freeRects); i++ {
		for j := i + 1; j < len(p.freeRects); j++ {
			if p.freeRects[j].ContainsRect(p.freeRects[i]) {
				p.freeRects = slices.Delete(p.freeRects, i, i+1)
				i--
				break
			}
			if p.freeRects[i].ContainsRect(p.freeRects[j]) {
				p.freeRects = slices.Delete(p.freeRects, j, j+1)
				j--
			}
		}
	}
}

func scoreShortSide(_ *maxRectsPack, width, height int, freeRect *Rect) (int, int) {
	leftoverHoriz := abs(freeRect.Width - width)
	leftoverVert := abs(freeRect.Height - height)
	return min(leftoverHoriz, leftoverVert), max(leftoverHoriz, leftoverVert)
}

func scoreLongSide(_ *maxRectsPack, width, height int, freeRect *Rect) (int, int) {
	leftoverHoriz := abs(freeRect.Width - width)
	leftoverVert := abs(freeRect.Height - height)
	return max(leftoverHoriz, leftoverVert), min(leftoverHoriz, leftoverVert)
}

func scoreArea(_ *maxRectsPack, width, height int, freeRect *Rect) (int, int) {
	leftoverHoriz := abs(freeRect.Width - width)
	leftoverVert := abs(freeRect.Height - height)
	return freeRect.Width*freeRect.Height - width*height, min(leftoverHoriz, leftoverVert)
}

func scoreBottomLeft(_ *maxRectsPack, _, height int, freeRect *Rect) (int, int) {
	return freeRect.Y + height, freeRect.X
}

// scoreContactPoint 接触边长越长越好，因此取负值
func scoreContactPoint(p *maxRectsPack, width, height int, freeRect *Rect) (int, int) {
	return -p.contactScore(freeRect.X, freeRect.Y, width, height), 0
}

func (p *maxRectsPack) contactScore(x, y, width, height int) int {
	score := 0
	if x == 0 || x+width == p.maxWidth {
		score += height
	}
	if y == 0 || y+height == p.maxHeight {
		score += width
	}
	for _, r := range p.used {
		if r.X == x+width || r.Right() == x {
			score += commonInterval(r.Y, r.Bottom(), y, y+height)
		}
		if r.Y == y+height || r.Bottom() == y {
			score += commonInterval(r.X, r.Right(), x, x+width)
		}
	}
	return score
}
