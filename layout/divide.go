package layout

import (
	"fmt"

	"github.com/ByLCY/docgen/doc"
	"github.com/ByLCY/docgen/style"
)

// 单元格内段落在当前页少于该行数时整段推迟到下一页。
const minCellLines = 4

// box 是节点放在某一页上的部分，已经完成测量，Arrange 据此生成图元。
type box interface {
	height() float64
	node() doc.Node
}

// placedBox 记录页面中顶层 box 的纵向位置。
type placedBox struct {
	y   float64
	box box
}

// flow 描述节点所处的排版环境。
type flow struct {
	inCell   bool
	longList bool
	// fresh 表示节点位于一页的最顶部，此时不再推迟。
	fresh bool
}

type paraBox struct {
	para    *doc.Paragraph
	lines   []*line
	geom    geometry
	width   float64
	spacing float64
	h       float64
	bottom  bool
}

func (b *paraBox) height() float64 { return b.h }
func (b *paraBox) node() doc.Node  { return b.para }

type tableBox struct {
	table *doc.Table
	width float64
	cols  []float64
	rows  []*rowBox
	h     float64
}

func (b *tableBox) height() float64 { return b.h }
func (b *tableBox) node() doc.Node  { return b.table }

type rowBox struct {
	row   *doc.Row
	cells []*cellBox
	h     float64
	// degenerate 的行在拆分后高度为 0，不绘制上、左、右边框。
	degenerate bool
}

type cellBox struct {
	cell     *doc.Cell
	x        float64
	width    float64
	children []placedBox
	h        float64
}

type imageBox struct {
	img *doc.Image
	h   float64
}

func (b *imageBox) height() float64 { return b.h }
func (b *imageBox) node() doc.Node  { return b.img }

type frameBox struct {
	frame *doc.Frame
	h     float64
}

func (b *frameBox) height() float64 { return b.h }
func (b *frameBox) node() doc.Node  { return b.frame }

type markerBox struct {
	block doc.Block
}

func (b *markerBox) height() float64 { return 0 }
func (b *markerBox) node() doc.Node  { return b.block }

// divider 持有一次分页所需的度量。
type divider struct {
	m Metrics
}

// divideBlock 把顶层节点放入 avail 高度。返回放在本页的部分与剩余部分；
// box 为 nil 且 rest 非 nil 表示整体推迟。
func (d *divider) divideBlock(blk doc.Block, width, avail float64, fl flow) (box, doc.Block, error) {
	switch n := blk.(type) {
	case *doc.Paragraph:
		b, rest := d.divideParagraph(n, width, avail, fl)
		if rest == nil {
			return b, nil, nil
		}
		return b, rest, nil
	case *doc.Table:
		b, rest, err := d.divideTable(n, width, avail, fl)
		if err != nil || rest == nil {
			return b, nil, err
		}
		return b, rest, nil
	case *doc.Image:
		b, rest := divideImage(n, avail)
		if rest == nil {
			return b, nil, nil
		}
		return b, rest, nil
	case *doc.Frame:
		b, rest := divideFrame(n, avail)
		if rest == nil {
			return b, nil, nil
		}
		return b, rest, nil
	case *doc.TOCMarker, *doc.IndexMarker:
		return &markerBox{block: blk}, nil, nil
	default:
		return nil, nil, fmt.Errorf("layout: 无法分页的节点 %s", blk.Kind())
	}
}

func (d *divider) divideContent(c doc.CellContent, width, avail float64, fl flow) (box, doc.CellContent, error) {
	switch n := c.(type) {
	case *doc.Paragraph:
		b, rest := d.divideParagraph(n, width, avail, fl)
		if rest == nil {
			return b, nil, nil
		}
		return b, rest, nil
	case *doc.Table:
		b, rest, err := d.divideTable(n, width, avail, fl)
		if err != nil || rest == nil {
			return b, nil, err
		}
		return b, rest, nil
	case *doc.Image:
		b, rest := divideImage(n, avail)
		if rest == nil {
			return b, nil, nil
		}
		return b, rest, nil
	default:
		return nil, nil, fmt.Errorf("layout: 单元格中不支持的节点 %s", c.Kind())
	}
}

// layoutParagraph 对整段断行并计算不含下边距的高度。
func (d *divider) layoutParagraph(p *doc.Paragraph, width float64) (*paraBox, float64) {
	st := p.Style
	lines := breakParagraph(d.m, st, p.Leader, p.Content, width)
	b := &paraBox{
		para:    p,
		lines:   lines,
		geom:    paragraphGeometry(st, width),
		width:   width,
		spacing: lineSpacing(st.Font),
	}
	base := st.TopMargin + 2*st.Padding
	return b, base
}

func (d *divider) divideParagraph(p *doc.Paragraph, width, avail float64, fl flow) (box, *doc.Paragraph) {
	b, base := d.layoutParagraph(p, width)
	total := base + linesHeight(b.lines, b.spacing)
	if total <= avail+eps {
		b.h = total
		if total+p.Style.BottomMargin <= avail+eps {
			b.h += p.Style.BottomMargin
			b.bottom = true
		}
		return b, nil
	}

	k := 0
	used := base
	for k < len(b.lines) {
		next := used + b.lines[k].height + b.spacing
		if next > avail+eps {
			break
		}
		used = next
		k++
	}
	// 拆分点必须落在正文之内，只有引导文字的首行不能单独留下。
	for k > 0 && b.lines[k].start <= 0 {
		used -= b.lines[k-1].height + b.spacing
		k--
	}
	if fl.inCell && k < minCellLines && !fl.longList && !fl.fresh {
		k = 0
	}
	if k == 0 {
		return nil, p
	}

	first, rest := splitParagraph(p, b.lines[k].start)
	b.para = first
	b.lines = b.lines[:k]
	b.h = used
	return b, rest
}

// splitParagraph 在纯文本偏移 off 处拆分段落，标记按位置归属。
func splitParagraph(p *doc.Paragraph, off int) (*doc.Paragraph, *doc.Paragraph) {
	first := &doc.Paragraph{
		StyleName: p.StyleName,
		Style:     p.Style.Clone(),
		Leader:    p.Leader,
		Content:   p.Content.Slice(0, off),
	}
	first.Style.BottomMargin = 0
	first.Style.BottomBorder = false

	rest := &doc.Paragraph{
		StyleName: p.StyleName,
		Style:     p.Style.Clone(),
		Content:   p.Content.Slice(off, p.Content.Len()),
	}
	rest.Style.TopMargin = 0
	rest.Style.TopBorder = false
	rest.Style.FirstIndent = 0

	for _, m := range p.Marks {
		if m.Offset < off {
			first.Marks = append(first.Marks, m)
			continue
		}
		m.Offset -= off
		rest.Marks = append(rest.Marks, m)
	}
	return first, rest
}

// ColumnWidths 返回表格各列的实际宽度（厘米）。表格宽度为 usable × Width%，
// Width 不大于 0 时占满 usable。
func ColumnWidths(ts style.TableStyle, usable float64) []float64 {
	tw := tableWidth(ts, usable)
	out := make([]float64, len(ts.ColumnWidths))
	for i, pct := range ts.ColumnWidths {
		out[i] = tw * pct / 100
	}
	return out
}

func tableWidth(ts style.TableStyle, usable float64) float64 {
	if ts.Width <= 0 {
		return usable
	}
	return usable * ts.Width / 100
}

// spanWidth 返回从 col 开始跨 span 列的宽度与左侧偏移。
func spanWidth(cols []float64, col, span int) (x, w float64) {
	if span < 1 {
		span = 1
	}
	for i := 0; i < col && i < len(cols); i++ {
		x += cols[i]
	}
	for i := col; i < col+span && i < len(cols); i++ {
		w += cols[i]
	}
	return x, w
}

func (d *divider) divideTable(t *doc.Table, width, avail float64, fl flow) (box, *doc.Table, error) {
	b := &tableBox{width: tableWidth(t.Style, width), cols: ColumnWidths(t.Style, width)}
	placed := &doc.Table{Name: t.Name, StyleName: t.StyleName, Style: t.Style.Clone()}
	var rest *doc.Table
	progress := false
	for i, row := range t.Rows {
		rf := fl
		rf.fresh = fl.fresh && i == 0
		rb, remain, err := d.divideRow(row, b.cols, avail-b.h, rf)
		if err != nil {
			return nil, nil, err
		}
		b.rows = append(b.rows, rb)
		placed.Rows = append(placed.Rows, rb.row)
		b.h += rb.h
		if !rb.degenerate {
			progress = true
		}
		if remain == nil {
			continue
		}
		rest = &doc.Table{Name: t.Name, StyleName: t.StyleName, Style: t.Style.Clone()}
		rest.Rows = append([]*doc.Row{remain}, t.Rows[i+1:]...)
		break
	}
	if rest != nil && !progress {
		return nil, t, nil
	}
	b.table = placed
	return b, rest, nil
}

func (d *divider) divideRow(r *doc.Row, cols []float64, avail float64, fl flow) (*rowBox, *doc.Row, error) {
	b := &rowBox{row: &doc.Row{Columns: r.Columns}}
	conts := make([]*doc.Cell, len(r.Cells))
	divided := false
	for i, c := range r.Cells {
		x, w := spanWidth(cols, c.Column, c.Span)
		cb, remain, err := d.divideCell(c, w, avail, fl)
		if err != nil {
			return nil, nil, err
		}
		cb.x = x
		b.cells = append(b.cells, cb)
		b.row.Cells = append(b.row.Cells, cb.cell)
		if cb.h > b.h {
			b.h = cb.h
		}
		if remain != nil {
			divided = true
			conts[i] = remain
			continue
		}
		conts[i] = emptyCell(c)
	}
	if !divided {
		return b, nil, nil
	}
	if b.h <= eps {
		b.h = 0
		b.degenerate = true
	}
	return b, &doc.Row{Columns: r.Columns, Cells: conts}, nil
}

func emptyCell(c *doc.Cell) *doc.Cell {
	return &doc.Cell{
		StyleName: c.StyleName,
		Style:     c.Style,
		Span:      c.Span,
		Column:    c.Column,
		Percent:   c.Percent,
	}
}

func (d *divider) divideCell(c *doc.Cell, width, avail float64, fl flow) (*cellBox, *doc.Cell, error) {
	pad := c.Style.Padding
	inner := width - 2*pad
	room := avail - 2*pad
	placed := emptyCell(c)
	b := &cellBox{cell: placed, width: width}
	var used float64
	for i, child := range c.Children {
		cf := flow{inCell: true, longList: c.Style.LongList, fresh: fl.fresh && len(b.children) == 0}
		cb, remain, err := d.divideContent(child, inner, room-used, cf)
		if err != nil {
			return nil, nil, err
		}
		if cb != nil {
			b.children = append(b.children, placedBox{y: used, box: cb})
			placed.Children = append(placed.Children, cb.node().(doc.CellContent))
			used += cb.height()
		}
		if remain == nil {
			continue
		}
		rest := emptyCell(c)
		rest.Children = append([]doc.CellContent{remain}, c.Children[i+1:]...)
		if len(b.children) > 0 {
			rest.Style.TopBorder = false
		}
		placed.Style.BottomBorder = false
		b.h = cellHeight(used, pad)
		return b, rest, nil
	}
	b.h = cellHeight(used, pad)
	return b, nil, nil
}

func cellHeight(content, pad float64) float64 {
	if content <= eps {
		return 0
	}
	return content + 2*pad
}

func divideImage(img *doc.Image, avail float64) (box, *doc.Image) {
	if img.Height <= avail+eps {
		return &imageBox{img: img, h: img.Height}, nil
	}
	return nil, img
}

// divideFrame：连同上下间距放得下则整体放入；只放得下上间距与本体时占满剩余高度；否则推迟。
func divideFrame(f *doc.Frame, avail float64) (box, *doc.Frame) {
	top, bottom := f.Spacing[2], f.Spacing[3]
	switch {
	case top+f.Height+bottom <= avail+eps:
		return &frameBox{frame: f, h: top + f.Height + bottom}, nil
	case top+f.Height <= avail+eps:
		return &frameBox{frame: f, h: avail}, nil
	default:
		return nil, f
	}
}
