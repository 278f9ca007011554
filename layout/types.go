package layout

import (
	"github.com/ByLCY/docgen/doc"
	"github.com/ByLCY/docgen/markup"
	"github.com/ByLCY/docgen/style"
)

// 该文件定义分页结果与定位后的图元，供布局计算、渲染与调试 JSON 共用。
// 所有坐标以厘米为单位，原点为页面可用区域左上角；线宽以 pt 为单位。

// Result 保存分页后的页面以及目录与索引数据，页码从 1 开始。
type Result struct {
	Pages  []Page           `json:"pages"`
	TOC    []TOCEntry       `json:"toc,omitempty"`
	Index  []IndexEntry     `json:"index,omitempty"`
	Width  float64          `json:"width"`
	Height float64          `json:"height"`
	Meta   doc.Meta         `json:"meta"`
	Paper  style.PaperStyle `json:"paper"`
}

// TOCEntry 目录项。
type TOCEntry struct {
	Key   string `json:"key"`
	Level int    `json:"level"`
	Page  int    `json:"page"`
}

// IndexEntry 字母索引项，Pages 升序且不重复。
type IndexEntry struct {
	Key   string `json:"key"`
	Pages []int  `json:"pages"`
}

// Page 一页内容。Blocks 为放在本页的节点（可能是拆分后的部分），
// 其余字段为 Arrange 生成的可直接绘制的图元。
type Page struct {
	Number   int         `json:"number"`
	Blocks   []doc.Block `json:"-"`
	Rects    []Rect      `json:"rects,omitempty"`
	Polygons []Polygon   `json:"polygons,omitempty"`
	Images   []ImageBox  `json:"images,omitempty"`
	Lines    []Line      `json:"lines,omitempty"`
	Texts    []TextBox   `json:"texts,omitempty"`

	boxes []placedBox
}

// Empty 判断页面是否没有任何节点。
func (p *Page) Empty() bool { return len(p.Blocks) == 0 }

// TextBox 一组定位好的文本行。Angle 非零时绕 (PivotX, PivotY) 逆时针旋转。
type TextBox struct {
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
	Angle  float64    `json:"angle,omitempty"`
	PivotX float64    `json:"pivotX,omitempty"`
	PivotY float64    `json:"pivotY,omitempty"`
	Lines  []TextLine `json:"lines"`
}

// TextLine 一行文本，Y 为行顶，Baseline 为基线位置。
type TextLine struct {
	Y        float64   `json:"y"`
	Baseline float64   `json:"baseline"`
	Width    float64   `json:"width"`
	Height   float64   `json:"height"`
	Runs     []TextRun `json:"runs"`
}

// TextRun 属性一致的一段文字，颜色取自 Font.Color。X 为左边缘，Rise 为相对基线的上移量（上标为正）。
type TextRun struct {
	Text  string          `json:"text"`
	X     float64         `json:"x"`
	Width float64         `json:"width"`
	Font  style.FontStyle `json:"font"`
	Attr  markup.Attr     `json:"attr,omitempty"`
	Href  string          `json:"href,omitempty"`
	Rise  float64         `json:"rise,omitempty"`

	space bool
}

// ImageBox 图片位置，图片按比例缩放后居中放入该区域。
type ImageBox struct {
	Path   string    `json:"path"`
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	Width  float64   `json:"width"`
	Height float64   `json:"height"`
	Crop   *doc.Crop `json:"crop,omitempty"`
}

// Line 线段。
type Line struct {
	X1     float64     `json:"x1"`
	Y1     float64     `json:"y1"`
	X2     float64     `json:"x2"`
	Y2     float64     `json:"y2"`
	Color  style.Color `json:"color"`
	Width  float64     `json:"width"`
	Dashes []float64   `json:"dashes,omitempty"`
}

// Rect 矩形，Stroke 或 Fill 为空表示不描边或不填充。
type Rect struct {
	X           float64      `json:"x"`
	Y           float64      `json:"y"`
	Width       float64      `json:"width"`
	Height      float64      `json:"height"`
	Stroke      *style.Color `json:"stroke,omitempty"`
	StrokeWidth float64      `json:"strokeWidth,omitempty"`
	Fill        *style.Color `json:"fill,omitempty"`
	Dashes      []float64    `json:"dashes,omitempty"`
}

// Polygon 闭合多边形。
type Polygon struct {
	Points      []doc.Point  `json:"points"`
	Stroke      *style.Color `json:"stroke,omitempty"`
	StrokeWidth float64      `json:"strokeWidth,omitempty"`
	Fill        *style.Color `json:"fill,omitempty"`
	Dashes      []float64    `json:"dashes,omitempty"`
}
