package rectpack

import (
	"cmp"
	"fmt"
)

// SortFunc 定义矩形尺寸比较函数的原型
// 返回值:
//
//	-1: a 排在 b 之前
//	 0: 相等
//	 1: a 排在 b 之后
type SortFunc func(a, b Size) int

// SortArea 按面积降序排序
func SortArea(a, b Size) int {
	return cmp.Compare(b.Area(), a.Area())
}

// SortPerimeter 按周长降序排序
func SortPerimeter(a, b Size) int {
	return cmp.Compare(b.Perimeter(), a.Perimeter())
}

// SortDiff 按宽高差降序排序
func SortDiff(a, b Size) int {
	return cmp.Compare(abs(b.Width-b.Height), abs(a.Width-a.Height))
}

// SortMinSide 按最短边降序排序
func SortMinSide(a, b Size) int {
	return cmp.Compare(b.MinSide(), a.MinSide())
}

// SortMaxSide 按最长边降序排序
func SortMaxSide(a, b Size) int {
	return cmp.Compare(b.MaxSide(), a.MaxSide())
}

// SortRatio 按宽高比降序排序
func SortRatio(a, b Size) int {
	return cmp.Compare(b.Ratio(), a.Ratio())
}

var sortFuncs = map[string]SortFunc{
	"area":      SortArea,
	"perimeter": SortPerimeter,
	"diff":      SortDiff,
	"minside":   SortMinSide,
	"maxside":   SortMaxSide,
	"ratio":     SortRatio,
}

// SortNames 返回可用的排序名称
func SortNames() []string {
	return []string{"area", "perimeter", "diff", "minside", "maxside", "ratio"}
}

// ParseSort 根据名称得到排序函数，空名称表示 SortMaxSide
func ParseSort(name string) (SortFunc, error) {
	if name == "" {
		return SortMaxSide, nil
	}
	f, ok := sortFuncs[normalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("unknown sort order %q", name)
	}
	return f, nil
}
