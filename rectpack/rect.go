package rectpack

import "fmt"

// Point 描述二维空间中的一个位置
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Size 描述二维空间中实体的尺寸
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	// ID 是调用方定义的标识符，打包后原样保留在 Rect 中
	ID int `json:"-"`
}

// NewSize 创建指定尺寸的对象
func NewSize(width, height int) Size {
	return Size{Width: width, Height: height}
}

// NewSizeID 创建带有标识符的尺寸对象
func NewSizeID(id, width, height int) Size {
	return Size{ID: id, Width: width, Height: height}
}

func (sz Size) String() string {
	return fmt.Sprintf("[%v, %v]", sz.Width, sz.Height)
}

// Area 返回面积
func (sz Size) Area() int {
	return sz.Width * sz.Height
}

// Perimeter 返回周长
func (sz Size) Perimeter() int {
	return (sz.Width + sz.Height) << 1
}

// MaxSide 返回较长边
func (sz Size) MaxSide() int {
	return max(sz.Width, sz.Height)
}

// MinSide 返回较短边
func (sz Size) MinSide() int {
	return min(sz.Width, sz.Height)
}

// Ratio 返回宽高比
func (sz Size) Ratio() float64 {
	return float64(sz.Width) / float64(sz.Height)
}

// Rect 描述一个左上角位置和尺寸
type Rect struct {
	Point
	Size
	// Rotated 表示矩形相对于输入尺寸旋转了90度，此时宽高已经互换
	Rotated bool `json:"rotated,omitempty"`
}

// NewRect 使用位置和尺寸创建矩形
func NewRect(x, y, w, h int) Rect {
	return Rect{
		Point: Point{X: x, Y: y},
		Size:  Size{Width: w, Height: h},
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("[%v, %v, %v, %v]", r.X, r.Y, r.Width, r.Height)
}

// Right 返回右边缘的 x 坐标
func (r Rect) Right() int {
	return r.X + r.Width
}

// Bottom 返回下边缘的 y 坐标
func (r Rect) Bottom() int {
	return r.Y + r.Height
}

// ContainsRect 判断 rect 是否完全位于 r 内
func (r Rect) ContainsRect(rect Rect) bool {
	return r.X <= rect.X &&
		rect.Right() <= r.Right() &&
		r.Y <= rect.Y &&
		rect.Bottom() <= r.Bottom()
}

// Intersects 判断两个矩形是否有重叠区域，仅相邻的边不算重叠
func (r Rect) Intersects(rect Rect) bool {
	return rect.X < r.Right() &&
		r.X < rect.Right() &&
		rect.Y < r.Bottom() &&
		r.Y < rect.Bottom()
}

// Inflate 将每条边向外推 n 个单位
func (r Rect) Inflate(n int) Rect {
	r.X -= n
	r.Y -= n
	r.Width += n << 1
	r.Height += n << 1
	return r
}

func abs(x int) int {
	if x >= 0 {
		return x
	}
	return -x
}

// padSize 在四周各加上 padding
func padSize(size Size, padding int) Size {
	if padding <= 0 {
		return size
	}
	size.Width += padding << 1
	size.Height += padding << 1
	return size
}

// unpadRect 去掉四周的 padding，得到实际绘制区域
func unpadRect(rect Rect, padding int) Rect {
	if padding <= 0 {
		return rect
	}
	return rect.Inflate(-padding)
}

// commonInterval 返回两个区间 [i1,i2) 与 [j1,j2) 的重叠长度
func commonInterval(i1, i2, j1, j2 int) int {
	if i2 < j1 || j2 < i1 {
		return 0
	}
	return min(i2, j2) - max(i1, j1)
}
