package doc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ByLCY/docgen/markup"
	"github.com/ByLCY/docgen/style"
)

var (
	// ErrNoOpenElement 在没有可写入的段落或单元格时写入内容。
	ErrNoOpenElement = errors.New("doc: 没有打开的段落或单元格")
	// ErrBadNesting 元素不能出现在当前位置，例如在行外打开单元格。
	ErrBadNesting = errors.New("doc: 元素嵌套不合法")
	// ErrColumnOverflow 单元格跨列超出表格列数。
	ErrColumnOverflow = errors.New("doc: 单元格超出表格列数")
	// ErrBadCrop 裁剪区域不在 0-100 范围内或为空。
	ErrBadCrop = errors.New("doc: 裁剪区域不合法")
	// ErrUnclosed 结束构建时仍有未关闭的元素。
	ErrUnclosed = errors.New("doc: 存在未关闭的元素")
	// ErrInvalidArgument 参数取值不合法。
	ErrInvalidArgument = errors.New("doc: 参数不合法")
)

// NoteFormat 注释文本的排版方式。
type NoteFormat int

const (
	// Flowed 行内空白被压缩，保留换行。
	Flowed NoteFormat = iota
	// Preformatted 原样保留空白。
	Preformatted
)

type openElem struct {
	kind     Kind
	para     *Paragraph
	implicit bool
	table    *Table
	row      *Row
	col      int
	cell     *Cell
	frame    *Frame
}

// Builder 通过 打开/写入/关闭 调用逐步构建文档树。
// 打开元素的栈只存在于构建器中，Finish 之后节点不再保留任何父指针。
type Builder struct {
	sheet *style.StyleSheet
	doc   *Document
	stack []openElem
	spans spanTracker
	pages int
	toc   bool
	index bool
}

// NewBuilder 创建构建器。sheet 为 nil 时使用内置样式表。
func NewBuilder(sheet *style.StyleSheet, paper style.PaperStyle) *Builder {
	if sheet == nil {
		sheet = style.Builtin()
	}
	return &Builder{
		sheet: sheet,
		doc:   &Document{Paper: paper, Sheet: sheet},
	}
}

// StyleSheet 返回构建器使用的样式表。
func (b *Builder) StyleSheet() *style.StyleSheet { return b.sheet }

// Paper 返回纸张设置。
func (b *Builder) Paper() style.PaperStyle { return b.doc.Paper }

// SetMeta 设置文档元信息。
func (b *Builder) SetMeta(m Meta) { b.doc.Meta = m }

// Depth 返回当前打开元素的层数。
func (b *Builder) Depth() int { return len(b.stack) }

func (b *Builder) top() *openElem {
	if len(b.stack) == 0 {
		return nil
	}
	return &b.stack[len(b.stack)-1]
}

func (b *Builder) push(e openElem) { b.stack = append(b.stack, e) }

// pop 弹出栈顶元素，类型不符时视为调用方的编程错误。
func (b *Builder) pop(kind Kind) openElem {
	t := b.top()
	if t == nil || t.kind != kind {
		got := "nothing"
		if t != nil {
			got = t.kind.String()
		}
		panic(fmt.Sprintf("doc: mismatched end of %s (open: %s)", kind, got))
	}
	e := *t
	b.stack = b.stack[:len(b.stack)-1]
	return e
}

// appendBlock 将节点加入文档根或当前单元格。
func (b *Builder) appendBlock(n interface {
	Block
	CellContent
}) error {
	b.closeImplicit()
	t := b.top()
	switch {
	case t == nil:
		b.doc.Children = append(b.doc.Children, n)
	case t.kind == KindCell:
		t.cell.Children = append(t.cell.Children, n)
	default:
		return fmt.Errorf("%w: %s 不能放在 %s 中", ErrBadNesting, n.Kind(), t.kind)
	}
	return nil
}

func (b *Builder) appendRoot(n Block) error {
	if t := b.top(); t != nil {
		return fmt.Errorf("%w: %s 只能出现在文档顶层，当前位于 %s", ErrBadNesting, n.Kind(), t.kind)
	}
	b.doc.Children = append(b.doc.Children, n)
	return nil
}

// StartParagraph 打开段落。leader 为可选的引导文字（如大纲编号）。
func (b *Builder) StartParagraph(styleName, leader string) error {
	ps, err := b.sheet.ParagraphStyle(styleName)
	if err != nil {
		return err
	}
	p := &Paragraph{StyleName: styleName, Style: ps, Leader: leader}
	if err := b.appendBlock(p); err != nil {
		return err
	}
	b.push(openElem{kind: KindParagraph, para: p})
	return nil
}

// EndParagraph 关闭段落并关闭其中未结束的强调。
func (b *Builder) EndParagraph() {
	e := b.pop(KindParagraph)
	b.spans.flush(e.para.Content.Len(), &e.para.Content)
}

// StartTable 打开表格。
func (b *Builder) StartTable(name, styleName string) error {
	ts, err := b.sheet.TableStyle(styleName)
	if err != nil {
		return err
	}
	t := &Table{Name: name, StyleName: styleName, Style: ts}
	if err := b.appendBlock(t); err != nil {
		return err
	}
	b.push(openElem{kind: KindTable, table: t})
	return nil
}

// EndTable 关闭表格。
func (b *Builder) EndTable() { b.pop(KindTable) }

// StartRow 在当前表格中打开一行，行的列宽取自表格样式。
func (b *Builder) StartRow() error {
	t := b.top()
	if t == nil || t.kind != KindTable {
		return fmt.Errorf("%w: 行必须位于表格中", ErrBadNesting)
	}
	r := &Row{Columns: append([]float64(nil), t.table.Style.ColumnWidths...)}
	t.table.Rows = append(t.table.Rows, r)
	b.push(openElem{kind: KindRow, row: r})
	return nil
}

// EndRow 关闭行。
func (b *Builder) EndRow() { b.pop(KindRow) }

// StartCell 在当前行中打开单元格，span 为占用的列数（小于 1 按 1 处理）。
func (b *Builder) StartCell(styleName string, span int) error {
	t := b.top()
	if t == nil || t.kind != KindRow {
		return fmt.Errorf("%w: 单元格必须位于行中", ErrBadNesting)
	}
	cs, err := b.sheet.CellStyle(styleName)
	if err != nil {
		return err
	}
	if span < 1 {
		span = 1
	}
	if t.col+span > len(t.row.Columns) {
		return fmt.Errorf("%w: 第 %d 列起跨 %d 列，表格共 %d 列", ErrColumnOverflow, t.col, span, len(t.row.Columns))
	}
	var percent float64
	for _, w := range t.row.Columns[t.col : t.col+span] {
		percent += w
	}
	c := &Cell{StyleName: styleName, Style: cs, Span: span, Column: t.col, Percent: percent}
	t.row.Cells = append(t.row.Cells, c)
	t.col += span
	b.push(openElem{kind: KindCell, cell: c})
	return nil
}

// EndCell 关闭单元格及其中隐式创建的段落。
func (b *Builder) EndCell() {
	b.closeImplicit()
	b.pop(KindCell)
}

// closeImplicit 关闭为直接写入单元格的文字创建的段落。
func (b *Builder) closeImplicit() {
	if t := b.top(); t != nil && t.kind == KindParagraph && t.implicit {
		b.EndParagraph()
	}
}

// paragraph 返回可写入的段落；在单元格中直接写入时创建 default 样式的隐式段落。
func (b *Builder) paragraph() (*Paragraph, error) {
	t := b.top()
	if t == nil {
		return nil, ErrNoOpenElement
	}
	switch t.kind {
	case KindParagraph:
		return t.para, nil
	case KindCell:
		ps, err := b.sheet.ParagraphStyle(style.DefaultStyleName)
		if err != nil {
			return nil, err
		}
		p := &Paragraph{StyleName: style.DefaultStyleName, Style: ps}
		t.cell.Children = append(t.cell.Children, p)
		b.push(openElem{kind: KindParagraph, para: p, implicit: true})
		return p, nil
	}
	return nil, fmt.Errorf("%w: 当前位于 %s", ErrNoOpenElement, t.kind)
}

func (b *Builder) write(t markup.Text, mark *IndexMark, links bool) error {
	p, err := b.paragraph()
	if err != nil {
		return err
	}
	if links {
		linkify(&t)
	}
	if mark != nil {
		p.Marks = append(p.Marks, PlacedMark{Mark: *mark, Offset: p.Content.Len()})
	}
	p.Content.Append(t)
	return nil
}

// WriteText 写入纯文本。mark 附加索引标记，links 将 URL 转为链接。
func (b *Builder) WriteText(text string, mark *IndexMark, links bool) error {
	return b.write(markup.Plain(text), mark, links)
}

// WriteMarkup 写入带内联标记的文本，标记不合法时返回 markup.ErrSyntax。
func (b *Builder) WriteMarkup(src string, mark *IndexMark, links bool) error {
	t, err := markup.Parse(src)
	if err != nil {
		return err
	}
	return b.write(t, mark, links)
}

// WriteStyledNote 以 styleName 样式写入注释，每个空行分隔的部分成为一个段落。
func (b *Builder) WriteStyledNote(src string, format NoteFormat, styleName string, links bool) error {
	t, err := markup.Parse(src)
	if err != nil {
		return err
	}
	for _, part := range splitParagraphs(t) {
		if format == Flowed {
			part = collapseSpace(part)
		}
		if err := b.StartParagraph(styleName, ""); err != nil {
			return err
		}
		if err := b.write(part, nil, links); err != nil {
			return err
		}
		b.EndParagraph()
	}
	return nil
}

func (b *Builder) startSpan(attr markup.Attr) error {
	p, err := b.paragraph()
	if err != nil {
		return err
	}
	b.spans.start(attr, p.Content.Len())
	return nil
}

func (b *Builder) endSpan(attr markup.Attr, name string) {
	t := b.top()
	if t == nil || t.kind != KindParagraph || !b.spans.end(attr, t.para.Content.Len(), &t.para.Content) {
		panic("doc: mismatched " + name)
	}
}

// StartBold 之后写入的文字为粗体。
func (b *Builder) StartBold() error { return b.startSpan(markup.Bold) }

// EndBold 结束粗体。
func (b *Builder) EndBold() { b.endSpan(markup.Bold, "EndBold") }

// StartSuperscript 之后写入的文字为上标。
func (b *Builder) StartSuperscript() error { return b.startSpan(markup.Superscript) }

// EndSuperscript 结束上标。
func (b *Builder) EndSuperscript() { b.endSpan(markup.Superscript, "EndSuperscript") }

// AddMedia 插入图片；alt 非空时在图片下方追加居中的说明段落。
func (b *Builder) AddMedia(path, align string, width, height float64, alt, styleName string, crop *Crop) error {
	if crop != nil {
		if err := crop.Validate(); err != nil {
			return err
		}
		c := *crop
		crop = &c
	}
	switch align {
	case "", "single":
		align = "single"
	case "left", "right", "center":
	default:
		return fmt.Errorf("%w: 未知图片对齐方式 %q", ErrInvalidArgument, align)
	}
	img := &Image{Path: path, Align: align, Width: width, Height: height, Crop: crop, Alt: alt}
	if err := b.appendBlock(img); err != nil {
		return err
	}
	if alt == "" {
		return nil
	}
	if styleName == "" {
		styleName = style.DefaultStyleName
	}
	ps, err := b.sheet.ParagraphStyle(styleName)
	if err != nil {
		return err
	}
	ps.Align = style.AlignCenter
	if rest := b.doc.Paper.UsableWidth() - width; rest > 0 {
		if align == "right" {
			ps.LeftMargin = rest
		} else {
			ps.RightMargin = rest
		}
	}
	caption := &Paragraph{StyleName: styleName, Style: ps, Content: markup.Plain(alt)}
	return b.appendBlock(caption)
}

// Validate 检查裁剪百分比。
func (c Crop) Validate() error {
	for _, v := range []float64{c.Left, c.Top, c.Right, c.Bottom} {
		if v < 0 || v > 100 {
			return fmt.Errorf("%w: %g 超出 0-100", ErrBadCrop, v)
		}
	}
	if c.Left >= c.Right || c.Top >= c.Bottom {
		return fmt.Errorf("%w: 区域为空", ErrBadCrop)
	}
	return nil
}

// PageBreak 强制分页。
func (b *Builder) PageBreak() error { return b.appendRoot(&PageBreak{}) }

// InsertTOC 在当前位置插入目录占位。每个文档最多一个目录。
func (b *Builder) InsertTOC() error { return b.insertOnce(&b.toc, &TOCMarker{}) }

// InsertIndex 在当前位置插入字母索引占位。每个文档最多一个索引。
func (b *Builder) InsertIndex() error { return b.insertOnce(&b.index, &IndexMarker{}) }

func (b *Builder) insertOnce(done *bool, n Block) error {
	if *done {
		return fmt.Errorf("%w: 重复插入 %s", ErrInvalidArgument, n.Kind())
	}
	if err := b.appendRoot(n); err != nil {
		return err
	}
	*done = true
	return nil
}

// StartPage 开始一个绘图页：图形放在与可用区域同样大小的框架中，
// 除第一个绘图页外，每页之前插入分页。
func (b *Builder) StartPage() error {
	if t := b.top(); t != nil {
		return fmt.Errorf("%w: 绘图页只能出现在文档顶层，当前位于 %s", ErrBadNesting, t.kind)
	}
	if b.pages > 0 {
		b.doc.Children = append(b.doc.Children, &PageBreak{})
	}
	b.pages++
	f := &Frame{
		Width:  b.doc.Paper.UsableWidth(),
		Height: b.doc.Paper.UsableHeight(),
		Align:  "center",
	}
	b.doc.Children = append(b.doc.Children, f)
	b.push(openElem{kind: KindFrame, frame: f})
	return nil
}

// EndPage 结束绘图页。
func (b *Builder) EndPage() { b.pop(KindFrame) }

func (b *Builder) frame() (*Frame, error) {
	t := b.top()
	if t == nil || t.kind != KindFrame {
		return nil, fmt.Errorf("%w: 绘图需要先调用 StartPage", ErrNoOpenElement)
	}
	return t.frame, nil
}

// drawStyles 解析绘图样式及其引用的段落样式。
func (b *Builder) drawStyles(name string) (style.GraphicsStyle, string, style.ParagraphStyle, error) {
	g, err := b.sheet.DrawStyle(name)
	if err != nil {
		return g, "", style.ParagraphStyle{}, err
	}
	pname := g.ParagraphStyle
	if pname == "" {
		pname = style.DefaultStyleName
	}
	ps, err := b.sheet.ParagraphStyle(pname)
	return g, pname, ps, err
}

// DrawLine 画直线，坐标为相对可用区域左上角的厘米数。
func (b *Builder) DrawLine(styleName string, x1, y1, x2, y2 float64) error {
	f, err := b.frame()
	if err != nil {
		return err
	}
	g, err := b.sheet.DrawStyle(styleName)
	if err != nil {
		return err
	}
	f.Shapes = append(f.Shapes, &Line{StyleName: styleName, Style: g, From: Point{x1, y1}, To: Point{x2, y2}})
	return nil
}

// DrawPath 画闭合多边形。
func (b *Builder) DrawPath(styleName string, points []Point) error {
	f, err := b.frame()
	if err != nil {
		return err
	}
	g, err := b.sheet.DrawStyle(styleName)
	if err != nil {
		return err
	}
	f.Shapes = append(f.Shapes, &Polygon{StyleName: styleName, Style: g, Points: append([]Point(nil), points...)})
	return nil
}

// DrawBox 画矩形框；text 左对齐、垂直居中地写在框内，左侧留出阴影间距。
func (b *Builder) DrawBox(styleName, text string, x, y, w, h float64, mark *IndexMark) error {
	f, err := b.frame()
	if err != nil {
		return err
	}
	g, pname, ps, err := b.drawStyles(styleName)
	if err != nil {
		return err
	}
	f.Shapes = append(f.Shapes, &Box{StyleName: styleName, Style: g, X: x, Y: y, Width: w, Height: h})
	if text == "" {
		return nil
	}
	offset := g.ShadowSpace
	if offset == 0 {
		offset = 0.2
	}
	ps.Align = style.AlignLeft
	f.Shapes = append(f.Shapes, &Text{
		StyleName: pname, Style: ps, VAlign: VAlignCenter,
		Content: markup.Plain(text), X: x + offset, Y: y + h/2, Mark: copyMark(mark),
	})
	return nil
}

func (b *Builder) drawText(styleName, text string, x, y, angle float64, align style.Align, valign VAlign, mark *IndexMark) error {
	f, err := b.frame()
	if err != nil {
		return err
	}
	_, pname, ps, err := b.drawStyles(styleName)
	if err != nil {
		return err
	}
	ps.Align = align
	f.Shapes = append(f.Shapes, &Text{
		StyleName: pname, Style: ps, VAlign: valign,
		Content: markup.Plain(text), X: x, Y: y, Angle: angle, Mark: copyMark(mark),
	})
	return nil
}

// DrawText 以 (x, y) 为左上角写文字。
func (b *Builder) DrawText(styleName, text string, x, y float64, mark *IndexMark) error {
	return b.drawText(styleName, text, x, y, 0, style.AlignLeft, VAlignTop, mark)
}

// CenterText 以 x 为中线、y 为顶部写文字。
func (b *Builder) CenterText(styleName, text string, x, y float64, mark *IndexMark) error {
	return b.drawText(styleName, text, x, y, 0, style.AlignCenter, VAlignTop, mark)
}

// RotateText 以 (x, y) 为中心写多行文字并逆时针旋转 angle 度。
func (b *Builder) RotateText(styleName string, lines []string, x, y, angle float64, mark *IndexMark) error {
	return b.drawText(styleName, strings.Join(lines, "\n"), x, y, angle, style.AlignCenter, VAlignCenter, mark)
}

func copyMark(m *IndexMark) *IndexMark {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

// Finish 结束构建并返回文档。仍有未关闭的元素时返回 ErrUnclosed。
func (b *Builder) Finish() (*Document, error) {
	b.closeImplicit()
	if t := b.top(); t != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnclosed, t.kind)
	}
	return b.doc, nil
}
