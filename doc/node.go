// Package doc 定义抽象文档树及其构建器。
//
// 节点是封闭的类型集合：Block 为文档顶层子节点，CellContent 为单元格子节点，
// Shape 为绘图页中的图形。每种容器的子节点类型在编译期确定。
package doc

import (
	"github.com/ByLCY/docgen/markup"
	"github.com/ByLCY/docgen/style"
)

// Kind 节点种类。
type Kind int

const (
	KindDocument Kind = iota
	KindParagraph
	KindTable
	KindRow
	KindCell
	KindImage
	KindFrame
	KindLine
	KindPolygon
	KindBox
	KindText
	KindPageBreak
	KindTOC
	KindIndex
)

var kindNames = [...]string{
	"document", "paragraph", "table", "row", "cell", "image", "frame",
	"line", "polygon", "box", "text", "pagebreak", "toc", "index",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Node 是所有节点的公共接口。
type Node interface {
	Kind() Kind
}

// Block 可以作为 Document 的直接子节点。
type Block interface {
	Node
	isBlock()
}

// CellContent 可以作为 Cell 的子节点。
type CellContent interface {
	Node
	isCellContent()
}

// Shape 可以作为 Frame 的子节点。
type Shape interface {
	Node
	isShape()
}

// MarkType 索引标记类型。
type MarkType int

const (
	MarkAlphabetical MarkType = iota
	MarkTOC
	MarkLocalLink
	MarkLocalTarget
)

// IndexMark 附加在段落或文本上，用于生成目录与字母索引。
type IndexMark struct {
	Key   string   `json:"key"`
	Type  MarkType `json:"type"`
	Level int      `json:"level"`
}

// NewIndexMark 返回层级为 1 的标记。
func NewIndexMark(key string, typ MarkType) IndexMark {
	return IndexMark{Key: key, Type: typ, Level: 1}
}

// PlacedMark 记录标记在段落纯文本中的字节位置，段落拆分时据此归属。
type PlacedMark struct {
	Mark   IndexMark `json:"mark"`
	Offset int       `json:"offset"`
}

// Meta 文档元信息。
type Meta struct {
	Title    string   `json:"title,omitempty"`
	Author   string   `json:"author,omitempty"`
	Subject  string   `json:"subject,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	Creator  string   `json:"creator,omitempty"`
}

// Document 文档根节点。
type Document struct {
	Meta     Meta              `json:"meta"`
	Paper    style.PaperStyle  `json:"paper"`
	Sheet    *style.StyleSheet `json:"-"`
	Children []Block           `json:"children"`
}

func (*Document) Kind() Kind { return KindDocument }

// Paragraph 段落。Content 不含 Leader；Leader 绘制在首行之前并跳到首行缩进位置。
type Paragraph struct {
	StyleName string               `json:"style"`
	Style     style.ParagraphStyle `json:"-"`
	Leader    string               `json:"leader,omitempty"`
	Content   markup.Text          `json:"content"`
	Marks     []PlacedMark         `json:"marks,omitempty"`
}

func (*Paragraph) Kind() Kind     { return KindParagraph }
func (*Paragraph) isBlock()       {}
func (*Paragraph) isCellContent() {}

// Table 表格；Rows 只能包含 Row。
type Table struct {
	Name      string           `json:"name"`
	StyleName string           `json:"style"`
	Style     style.TableStyle `json:"-"`
	Rows      []*Row           `json:"rows"`
}

func (*Table) Kind() Kind     { return KindTable }
func (*Table) isBlock()       {}
func (*Table) isCellContent() {}

// Row 表格行；Columns 为表格各列宽度百分比的副本。
type Row struct {
	Columns []float64 `json:"columns"`
	Cells   []*Cell   `json:"cells"`
}

func (*Row) Kind() Kind { return KindRow }

// Cell 单元格。Column 为起始逻辑列，Span 为占用列数，Percent 为所占表格宽度百分比。
type Cell struct {
	StyleName string               `json:"style"`
	Style     style.TableCellStyle `json:"-"`
	Span      int                  `json:"span"`
	Column    int                  `json:"column"`
	Percent   float64              `json:"percent"`
	Children  []CellContent        `json:"children"`
}

func (*Cell) Kind() Kind { return KindCell }

// Crop 以百分比 (0-100) 表示的裁剪矩形。
type Crop struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Image 图片，宽高单位为厘米。Align 为 left/right/center/single。
type Image struct {
	Path   string  `json:"path"`
	Align  string  `json:"align"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Crop   *Crop   `json:"crop,omitempty"`
	Alt    string  `json:"alt,omitempty"`
}

func (*Image) Kind() Kind     { return KindImage }
func (*Image) isBlock()       {}
func (*Image) isCellContent() {}

// Frame 绘图页容器，图形坐标相对于框架左上角（厘米）。
type Frame struct {
	Width   float64    `json:"width"`
	Height  float64    `json:"height"`
	Spacing [4]float64 `json:"spacing"` // 左、右、上、下
	Align   string     `json:"align"`
	Shapes  []Shape    `json:"shapes"`
}

func (*Frame) Kind() Kind { return KindFrame }
func (*Frame) isBlock()   {}

// Point 平面坐标（厘米）。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Line 直线。
type Line struct {
	StyleName string              `json:"style"`
	Style     style.GraphicsStyle `json:"-"`
	From      Point               `json:"from"`
	To        Point               `json:"to"`
}

func (*Line) Kind() Kind { return KindLine }
func (*Line) isShape()   {}

// Polygon 闭合多边形。
type Polygon struct {
	StyleName string              `json:"style"`
	Style     style.GraphicsStyle `json:"-"`
	Points    []Point             `json:"points"`
}

func (*Polygon) Kind() Kind { return KindPolygon }
func (*Polygon) isShape()   {}

// Box 矩形框，可带阴影。
type Box struct {
	StyleName string              `json:"style"`
	Style     style.GraphicsStyle `json:"-"`
	X         float64             `json:"x"`
	Y         float64             `json:"y"`
	Width     float64             `json:"width"`
	Height    float64             `json:"height"`
}

func (*Box) Kind() Kind { return KindBox }
func (*Box) isShape()   {}

// VAlign 文本块相对锚点的垂直位置。
type VAlign int

const (
	VAlignTop VAlign = iota
	VAlignCenter
)

// Text 定位文本。锚点 (X, Y) 的水平含义由段落样式对齐方式决定：
// 左对齐为左边缘，居中为中线，右对齐为右边缘。Angle 为逆时针角度。
type Text struct {
	StyleName string               `json:"style"`
	Style     style.ParagraphStyle `json:"-"`
	VAlign    VAlign               `json:"valign"`
	Content   markup.Text          `json:"content"`
	X         float64              `json:"x"`
	Y         float64              `json:"y"`
	Angle     float64              `json:"angle,omitempty"`
	Mark      *IndexMark           `json:"mark,omitempty"`
}

func (*Text) Kind() Kind { return KindText }
func (*Text) isShape()   {}

// PageBreak 强制分页。
type PageBreak struct{}

func (*PageBreak) Kind() Kind { return KindPageBreak }
func (*PageBreak) isBlock()   {}

// TOCMarker 目录占位，在分页后替换为目录页。
type TOCMarker struct{}

func (*TOCMarker) Kind() Kind { return KindTOC }
func (*TOCMarker) isBlock()   {}

// IndexMarker 字母索引占位。
type IndexMarker struct{}

func (*IndexMarker) Kind() Kind { return KindIndex }
func (*IndexMarker) isBlock()   {}

var (
	_ Block       = (*Paragraph)(nil)
	_ CellContent = (*Paragraph)(nil)
	_ Block       = (*Table)(nil)
	_ CellContent = (*Table)(nil)
	_ Block       = (*Image)(nil)
	_ CellContent = (*Image)(nil)
	_ Block       = (*Frame)(nil)
	_ Block       = (*PageBreak)(nil)
	_ Block       = (*TOCMarker)(nil)
	_ Block       = (*IndexMarker)(nil)
	_ Shape       = (*Line)(nil)
	_ Shape       = (*Polygon)(nil)
	_ Shape       = (*Box)(nil)
	_ Shape       = (*Text)(nil)
)
