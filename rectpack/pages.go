package rectpack

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInfeasible 表示某个尺寸即使在空页面上也放不下
var ErrInfeasible = errors.New("rectangle does not fit on an empty page")

// PageOptions 描述多页打包的参数
type PageOptions struct {
	// MaxWidth, MaxHeight 是单页的最大尺寸
	MaxWidth, MaxHeight int
	// Padding 是每个矩形四周的间距
	Padding int
	// AllowRotate 允许旋转90度
	AllowRotate bool
	// Heuristic 选择算法和变体，零值为 MaxRectsBSSF。
	// MaxRects 严格按 Sort 的顺序逐个放置；Skyline 和 Guillotine 每一轮从剩余的
	// 全部矩形中挑选得分最高的一个，Sort 只决定得分相同时的先后。
	Heuristic Heuristic
	// Sort 决定放置顺序，nil 表示 SortMaxSide（最长边降序）
	Sort SortFunc
}

// Placement 是一个矩形在某一页上的最终位置。X/Y/Width/Height 为实际绘制区域，不含 padding。
type Placement struct {
	Rect
	Page int `json:"page"`
}

// PageResult 是单页的打包结果
type PageResult struct {
	Index int
	// Size 为所有矩形的紧凑包围盒加上尾部 padding
	Size Size
	// Used 是相对于 Size 的面积利用率
	Used       float64
	Placements []Placement
}

// PackPages 把所有尺寸按 opts.Sort 的顺序（默认最长边降序）依次放入页面，当前页放不下的尺寸顺延到新页面，
// 直到全部放置完毕。每一页使用独立的包装器实例。
// 空输入返回零页。
func PackPages(sizes []Size, opts PageOptions) ([]PageResult, error) {
	if opts.MaxWidth <= 0 || opts.MaxHeight <= 0 {
		return nil, fmt.Errorf("page size must be greater than 0 (given %vx%v)", opts.MaxWidth, opts.MaxHeight)
	}
	limitW := opts.MaxWidth - 2*max(opts.Padding, 0)
	limitH := opts.MaxHeight - 2*max(opts.Padding, 0)
	for _, size := range sizes {
		if size.Width <= 0 || size.Height <= 0 {
			return nil, fmt.Errorf("size %d %s: %w", size.ID, size.String(), ErrInfeasible)
		}
		fits := size.Width <= limitW && size.Height <= limitH
		if !fits && opts.AllowRotate {
			fits = size.Height <= limitW && size.Width <= limitH
		}
		if !fits {
			return nil, fmt.Errorf("size %d %s: %w", size.ID, size.String(), ErrInfeasible)
		}
	}

	sortFunc := opts.Sort
	if sortFunc == nil {
		sortFunc = SortMaxSide
	}

	var pages []PageResult
	pending := slices.Clone(sizes)
	for len(pending) > 0 {
		packer, err := NewPacker(opts.MaxWidth, opts.MaxHeight, opts.Heuristic)
		if err != nil {
			return nil, err
		}
		packer.Padding = opts.Padding
		packer.AllowRotate(opts.AllowRotate)
		packer.Sorter(sortFunc, false)
		packer.Insert(pending...)
		packer.Pack()

		rects := packer.Rects()
		if len(rects) == 0 {
			return nil, fmt.Errorf("page %d: %w", len(pages), ErrInfeasible)
		}
		page := PageResult{
			Index:      len(pages),
			Size:       packer.Size(),
			Used:       packer.Used(true),
			Placements: make([]Placement, len(rects)),
		}
		for i, rect := range rects {
			page.Placements[i] = Placement{Rect: rect, Page: page.Index}
		}
		pages = append(pages, page)
		pending = slices.Clone(packer.Unpacked())
	}
	return pages, nil
}
