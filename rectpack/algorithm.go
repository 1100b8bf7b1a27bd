package rectpack

// packAlgorithm 是一个包装算法的接口。每个实例只服务于一个页面，
// 空闲区域等状态都归该实例所有。
type packAlgorithm interface {
	// 重置包装器到初始状态，设置最大宽高。
	Reset(width, height int)

	// 计算使用率，返回值在0.0（空）到1.0（完美利用）之间。
	Used() float64

	// 插入新矩形，每个矩形四周保留 padding 的间距。
	// 返回无法包装的尺寸。
	Insert(padding int, sizes ...Size) []Size

	// 返回已包装的矩形列表（不含 padding）。
	Rects() []Rect

	// 设置是否允许旋转矩形以优化放置。
	AllowRotate(enabled bool)

	// 返回算法可包装的最大尺寸。
	MaxSize() Size

	// 返回已使用的总面积（含 padding）。
	UsedArea() int
}

// algorithmBase 是一个包装算法的基础实现
type algorithmBase struct {
	packed      []Rect
	maxWidth    int
	maxHeight   int
	usedArea    int
	allowRotate bool
}

func (p *algorithmBase) Reset(width, height int) {
	p.maxWidth = width
	p.maxHeight = height
	p.usedArea = 0
	p.packed = p.packed[:0]
}

func (p *algorithmBase) Used() float64 {
	return float64(p.usedArea) / float64(p.maxWidth*p.maxHeight)
}

func (p *algorithmBase) Rects() []Rect {
	return p.packed
}

func (p *algorithmBase) AllowRotate(enabled bool) {
	p.allowRotate = enabled
}

func (p *algorithmBase) MaxSize() Size {
	return NewSize(p.maxWidth, p.maxHeight)
}

func (p *algorithmBase) UsedArea() int {
	return p.usedArea
}

// commit 记录一个已放置的（含 padding 的）矩形
func (p *algorithmBase) commit(node Rect, padding int) {
	p.usedArea += node.Area()
	p.packed = append(p.packed, unpadRect(node, padding))
}
