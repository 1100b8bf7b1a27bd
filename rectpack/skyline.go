package rectpack

import (
	"math"
	"slices"
)

// skylineNode 是天际线上的一段水平线段
type skylineNode struct {
	X, Y, Width int
}

type skylinePack struct {
	algorithmBase
	levelSelect Heuristic
	skyline     []skylineNode
}

func newSkyline(width, height int, heuristic Heuristic) *skylinePack {
	var packer skylinePack
	switch heuristic.Bin() {
	case MinWaste:
		packer.levelSelect = MinWaste
	default:
		packer.levelSelect = BottomLeft
	}
	packer.Reset(width, height)
	return &packer
}

func (p *skylinePack) Reset(width, height int) {
	p.algorithmBase.Reset(width, height)
	p.skyline = append(p.skyline[:0], skylineNode{X: 0, Y: 0, Width: p.maxWidth})
}

// Insert 每轮选出所有尺寸中得分最好的放置位置
func (p *skylinePack) Insert(padding int, sizes ...Size) []Size {
	pending := slices.Clone(sizes)
	for len(pending) > 0 {
		var bestNode Rect
		bestScore1, bestScore2 := math.MaxInt, math.MaxInt
		bestIndex, bestSize := -1, -1
		for i, size := range pending {
			size = padSize(size, padding)
			var node Rect
			var score1, score2, index int
			var ok bool
			if p.levelSelect == MinWaste {
				node, score1, score2, index, ok = p.findMinWaste(size)
			} else {
				node, score1, score2, index, ok = p.findBottomLeft(size)
			}
			if ok && (score1 < bestScore1 || (score1 == bestScore1 && score2 < bestScore2)) {
				bestNode = node
				bestScore1, bestScore2 = score1, score2
				bestIndex, bestSize = index, i
			}
		}
		if bestSize < 0 {
			break
		}
		bestNode.ID = pending[bestSize].ID
		p.addLevel(bestIndex, bestNode)
		p.commit(bestNode, padding)
		pending = slices.Delete(pending, bestSize, bestSize+1)
	}
	return pending
}

// fitAt 返回从第 index 段开始放置 width×height 时的 y 坐标
func (p *skylinePack) fitAt(index, width, height int) (int, bool) {
	x := p.skyline[index].X
	if x+width > p.maxWidth {
		return 0, false
	}
	widthLeft := width
	y := p.skyline[index].Y
	for i := index; widthLeft > 0; i++ {
		y = max(y, p.skyline[i].Y)
		if y+height > p.maxHeight {
			return 0, false
		}
		widthLeft -= p.skyline[i].Width
	}
	return y, true
}

func (p *skylinePack) wasteAt(index, width, y int) int {
	wasted := 0
	rectLeft := p.skyline[index].X
	rectRight := rectLeft + width
	for ; index < len(p.skyline) && p.skyline[index].X < rectRight; index++ {
		leftSide := p.skyline[index].X
		rightSide := min(rectRight, leftSide+p.skyline[index].Width)
		wasted += (rightSide - leftSide) * (y - p.skyline[index].Y)
	}
	return wasted
}

func (p *skylinePack) findBottomLeft(size Size) (node Rect, bestHeight, bestWidth, bestIndex int, found bool) {
	bestHeight, bestWidth, bestIndex = math.MaxInt, math.MaxInt, -1
	for i := range p.skyline {
		if y, ok := p.fitAt(i, size.Width, size.Height); ok {
			if y+size.Height < bestHeight || (y+size.Height == bestHeight && p.skyline[i].Width < bestWidth) {
				bestHeight, bestWidth, bestIndex = y+size.Height, p.skyline[i].Width, i
				node = Rect{Point: Point{X: p.skyline[i].X, Y: y}, Size: size}
				found = true
			}
		}
		if p.allowRotate && size.Width != size.Height {
			if y, ok := p.fitAt(i, size.Height, size.Width); ok {
				if y+size.Width < bestHeight || (y+size.Width == bestHeight && p.skyline[i].Width < bestWidth) {
					bestHeight, bestWidth, bestIndex = y+size.Width, p.skyline[i].Width, i
					node = Rect{Point: Point{X: p.skyline[i].X, Y: y}, Size: NewSize(size.Height, size.Width), Rotated: true}
					found = true
				}
			}
		}
	}
	return
}

func (p *skylinePack) findMinWaste(size Size) (node Rect, bestWaste, bestHeight, bestIndex int, found bool) {
	bestWaste, bestHeight, bestIndex = math.MaxInt, math.MaxInt, -1
	for i := range p.skyline {
		if y, ok := p.fitAt(i, size.Width, size.Height); ok {
			wasted := p.wasteAt(i, size.Width, y)
			if wasted < bestWaste || (wasted == bestWaste && y+size.Height < bestHeight) {
				bestWaste, bestHeight, bestIndex = wasted, y+size.Height, i
				node = Rect{Point: Point{X: p.skyline[i].X, Y: y}, Size: size}
				found = true
			}
		}
		if p.allowRotate && size.Width != size.Height {
			if y, ok := p.fitAt(i, size.Height, size.Width); ok {
				wasted := p.wasteAt(i, size.Height, y)
				if wasted < bestWaste || (wasted == bestWaste && y+size.Width < bestHeight) {
					bestWaste, bestHeight, bestIndex = wasted, y+size.Width, i
					node = Rect{Point: Point{X: p.skyline[i].X, Y: y}, Size: NewSize(size.Height, size.Width), Rotated: true}
					found = true
				}
			}
		}
	}
	return
}

func (p *skylinePack) addLevel(index int, rect Rect) {
	p.skyline = slices.Insert(p.skyline, index, skylineNode{X: rect.X, Y: rect.Bottom(), Width: rect.Width})
	for i := index + 1; i < len(p.skyline); i++ {
		prev := p.skyline[i-1]
		if p.skyline[i].X >= prev.X+prev.Width {
			break
		}
		shrink := prev.X + prev.Width - p.skyline[i].X
		p.skyline[i].X += shrink
		p.skyline[i].Width -= shrink
		if p.skyline[i].Width > 0 {
			break
		}
		p.skyline = slices.Delete(p.skyline, i, i+1)
		i--
	}
	p.mergeSkylines()
}

func (p *skylinePack) mergeSkylines() {
	for i := 0; i < len(p.skyline)-1; i++ {
		if p.skyline[i].Y == p.skyline[i+1].Y {
			p.skyline[i].Width += p.skyline[i+1].Width
			p.skyline = slices.Delete(p.skyline, i+1, i+2)
			i--
		}
	}
}
