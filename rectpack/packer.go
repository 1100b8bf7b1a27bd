package rectpack

import (
	"errors"
	"fmt"
	"slices"
)

// DefaultSize 定义了矩形包装器的默认最大宽度/高度值，
// 基于现代GPU的最大纹理尺寸。
const DefaultSize = 4096

// Packer 包含单个页面的2D矩形包装器状态
type Packer struct {
	// unpacked 包含尚未包装或无法包装的尺寸
	unpacked []Size

	// algo 是实现具体包装算法的实例，空闲区域由它独占
	algo packAlgorithm

	// sortFunc 定义离线打包前排序时使用的比较函数
	//
	// 默认值：SortArea
	sortFunc SortFunc

	// sortRev 表示是否启用反向排序
	sortRev bool

	// Padding 定义每个矩形四周预留的空隙。值为0或负数表示紧密排列。
	// 相邻两个矩形的内容之间至少相隔 2*Padding。
	//
	// 默认值：0
	Padding int

	// Online 表示矩形是否在插入时立即包装(在线模式)，
	// 或者只是收集起来等待 Pack(离线模式)。
	//
	// 离线模式可以在打包前排序，结果通常更紧凑。
	//
	// 默认值：false
	Online bool
}

// Size 返回包含所有已包装矩形所需的最小尺寸，包括尾部的 Padding
func (p *Packer) Size() Size {
	var size Size
	for _, rect := range p.algo.Rects() {
		size.Width = max(size.Width, rect.Right()+p.Padding)
		size.Height = max(size.Height, rect.Bottom()+p.Padding)
	}
	return size
}

// Insert 向包装器中插入多个尺寸。
// 在线模式下立即尝试包装并返回放不下的尺寸，离线模式下返回当前暂存的全部尺寸。
func (p *Packer) Insert(sizes ...Size) []Size {
	if p.Online {
		return p.algo.Insert(p.Padding, sizes...)
	}
	p.unpacked = append(p.unpacked, sizes...)
	return p.unpacked
}

// InsertSize 向包装器中插入指定ID和尺寸的矩形，返回是否插入/包装成功
func (p *Packer) InsertSize(id, width, height int) bool {
	result := p.Insert(NewSizeID(id, width, height))
	return !p.Online || len(result) == 0
}

// Sorter 设置离线打包使用的排序函数和排序顺序
func (p *Packer) Sorter(compare SortFunc, reverse bool) {
	p.sortFunc = compare
	p.sortRev = reverse
}

// Rects 返回已成功包装的矩形，切片由包装器管理，如需修改请复制
func (p *Packer) Rects() []Rect {
	return p.algo.Rects()
}

// Unpacked 返回暂存但未包装的尺寸，切片由包装器管理，如需修改请复制
func (p *Packer) Unpacked() []Size {
	return p.unpacked
}

// Used 计算空间利用率(0.0-1.0)。
// current 为 true 时相对于当前所需尺寸计算，否则相对于最大尺寸计算。
func (p *Packer) Used(current bool) float64 {
	if current {
		size := p.Size()
		if size.Area() == 0 {
			return 0
		}
		return float64(p.algo.UsedArea()) / float64(size.Area())
	}
	return p.algo.Used()
}

// Map 创建矩形ID到矩形的映射
func (p *Packer) Map() map[int]Rect {
	rects := p.algo.Rects()
	mapping := make(map[int]Rect, len(rects))
	for _, rect := range rects {
		mapping[rect.ID] = rect
	}
	return mapping
}

// Clear 重置包装器状态(保留配置)
func (p *Packer) Clear() {
	size := p.algo.MaxSize()
	p.algo.Reset(size.Width, size.Height)
	p.unpacked = p.unpacked[:0]
}

// Pack 排序并打包所有暂存的矩形。排序是稳定的，比较结果相同的尺寸保持插入顺序。
// 返回 false 时可通过 Unpacked 获取放不下的尺寸。
func (p *Packer) Pack() bool {
	if len(p.unpacked) == 0 {
		return true
	}
	if p.sortFunc != nil {
		if p.sortRev {
			slices.SortStableFunc(p.unpacked, func(a, b Size) int {
				return p.sortFunc(b, a)
			})
		} else {
			slices.SortStableFunc(p.unpacked, p.sortFunc)
		}
	} else if p.sortRev {
		slices.Reverse(p.unpacked)
	}
	failed := p.algo.Insert(p.Padding, p.unpacked...)
	p.unpacked = append(p.unpacked[:0], failed...)
	return len(p.unpacked) == 0
}

// RepackAll 清除后重新打包全部矩形，适用于多次 Pack 之后优化利用率，
// 或者修改配置后重新应用。旋转过的矩形以原始方向重新参与打包。
func (p *Packer) RepackAll() bool {
	rects := p.algo.Rects()
	sizes := make([]Size, 0, len(rects)+len(p.unpacked))
	for _, rect := range rects {
		size := rect.Size
		if rect.Rotated {
			size.Width, size.Height = size.Height, size.Width
		}
		sizes = append(sizes, size)
	}
	sizes = append(sizes, p.unpacked...)
	bounds := p.algo.MaxSize()
	p.algo.Reset(bounds.Width, bounds.Height)
	p.unpacked = sizes
	return p.Pack()
}

// AllowRotate 设置是否允许矩形旋转90度以优化布局
//
// 默认值: false
func (p *Packer) AllowRotate(enabled bool) {
	p.algo.AllowRotate(enabled)
}

// NewPacker 创建并初始化一个新的矩形包装器
//
//	maxWidth - 包装区域的最大宽度(必须大于0)
//	maxHeight - 包装区域的最大高度(必须大于0)
//	heuristic - 包装算法和方法组合
func NewPacker(maxWidth, maxHeight int, heuristic Heuristic) (*Packer, error) {
	if maxWidth <= 0 || maxHeight <= 0 {
		return nil, fmt.Errorf("width and height must be greater than 0 (given %vx%v)", maxWidth, maxHeight)
	}
	p := &Packer{
		sortFunc: SortArea,
	}
	switch heuristic.Algorithm() {
	case MaxRects:
		p.algo = newMaxRects(maxWidth, maxHeight, heuristic)
	case Skyline:
		p.algo = newSkyline(maxWidth, maxHeight, heuristic)
	case Guillotine:
		p.algo = newGuillotine(maxWidth, maxHeight, heuristic)
	default:
		return nil, errors.New("heuristics specify an invalid algorithm")
	}
	return p, nil
}
