package layout

import (
	"github.com/ByLCY/docgen/doc"
	"github.com/ByLCY/docgen/style"
)

// 段落与单元格边框固定为 1pt 黑线。
const borderWidth = 1.0

// 首行文字相对内容区顶部再下移的行距比例。
const firstLineOffset = 0.75

// Arrange 把页面上已分配的节点转换为可直接绘制的图元，坐标原点为可用区域左上角。
// 只有经过 Paginate 或 Build 的页面才有可排列的内容；opts.Metrics 必须非空。
func Arrange(p *Page, opts Options) {
	a := &arranger{m: opts.Metrics, page: p}
	p.Rects, p.Polygons, p.Images, p.Lines, p.Texts = nil, nil, nil, nil, nil
	for _, pb := range p.boxes {
		a.box(pb.box, 0, pb.y, opts.Width)
	}
}

type arranger struct {
	m    Metrics
	page *Page
}

func (a *arranger) box(b box, x, y, width float64) {
	switch v := b.(type) {
	case *paraBox:
		a.paragraph(v, x, y)
	case *tableBox:
		a.table(v, x, y)
	case *imageBox:
		a.image(v, x, y, width)
	case *frameBox:
		a.frame(v, x, y, width)
	}
}

func (a *arranger) rule(x1, y1, x2, y2 float64) {
	a.page.Lines = append(a.page.Lines, Line{X1: x1, Y1: y1, X2: x2, Y2: y2, Color: style.Black, Width: borderWidth})
}

// borders 按 上/右/下/左 顺序绘制矩形的边。
func (a *arranger) borders(x, y, w, h float64, sides [4]bool) {
	if sides[0] {
		a.rule(x, y, x+w, y)
	}
	if sides[1] {
		a.rule(x+w, y, x+w, y+h)
	}
	if sides[2] {
		a.rule(x, y+h, x+w, y+h)
	}
	if sides[3] {
		a.rule(x, y, x, y+h)
	}
}

func (a *arranger) paragraph(b *paraBox, x, y float64) {
	st := b.para.Style
	bx := x + st.LeftMargin
	by := y + st.TopMargin
	bw := b.width - st.LeftMargin - st.RightMargin
	bh := b.h - st.TopMargin
	if b.bottom {
		bh -= st.BottomMargin
	}
	if st.BgColor != style.White {
		bg := st.BgColor
		a.page.Rects = append(a.page.Rects, Rect{X: bx, Y: by, Width: bw, Height: bh, Fill: &bg})
	}
	a.borders(bx, by, bw, bh, [4]bool{st.TopBorder, st.RightBorder, st.BottomBorder, st.LeftBorder})

	ox := x + b.geom.ox
	tb := TextBox{X: ox, Y: by + st.Padding, Width: b.geom.width, Height: bh - 2*st.Padding}
	ly := by + st.Padding + firstLineOffset*b.spacing
	for _, l := range b.lines {
		tb.Lines = append(tb.Lines, placeLine(l, ox, ly))
		ly += l.height + b.spacing
	}
	a.page.Texts = append(a.page.Texts, tb)
}

func placeLine(l *line, x, y float64) TextLine {
	tl := TextLine{Y: y, Baseline: y + l.ascent, Width: l.width, Height: l.height}
	tl.Runs = make([]TextRun, len(l.runs))
	for i, r := range l.runs {
		r.X += x
		tl.Runs[i] = r
	}
	return tl
}

func (a *arranger) table(b *tableBox, x, y float64) {
	ry := y
	for _, r := range b.rows {
		for _, c := range r.cells {
			cx := x + c.x
			st := c.cell.Style
			if !r.degenerate {
				a.borders(cx, ry, c.width, r.h, st.Borders())
			}
			for _, pc := range c.children {
				a.box(pc.box, cx+st.Padding, ry+st.Padding+pc.y, c.width-2*st.Padding)
			}
		}
		ry += r.h
	}
}

func alignOffset(container, width float64, align string) float64 {
	switch align {
	case "center":
		return (container - width) / 2
	case "right":
		return container - width
	default:
		return 0
	}
}

func (a *arranger) image(b *imageBox, x, y, width float64) {
	img := b.img
	a.page.Images = append(a.page.Images, ImageBox{
		Path:   img.Path,
		X:      x + alignOffset(width, img.Width, img.Align),
		Y:      y,
		Width:  img.Width,
		Height: img.Height,
		Crop:   img.Crop,
	})
}

// dashes 把线型的虚线模式换算为 pt。
func dashes(g style.GraphicsStyle) []float64 {
	pattern := g.LineStyle.Dashes()
	if pattern == nil {
		return nil
	}
	lw := g.LineWidth
	if lw <= 0 {
		lw = 1
	}
	out := make([]float64, len(pattern))
	for i, d := range pattern {
		out[i] = d * lw
	}
	return out
}

func (a *arranger) frame(b *frameBox, x, y, width float64) {
	f := b.frame
	fx := x + f.Spacing[0]
	switch f.Align {
	case "center":
		fx = x + (width-f.Width)/2
	case "right":
		fx = x + width - f.Width - f.Spacing[1]
	}
	fy := y + f.Spacing[2]
	for _, s := range f.Shapes {
		switch v := s.(type) {
		case *doc.Line:
			a.page.Lines = append(a.page.Lines, Line{
				X1: fx + v.From.X, Y1: fy + v.From.Y,
				X2: fx + v.To.X, Y2: fy + v.To.Y,
				Color: v.Style.Color, Width: v.Style.LineWidth, Dashes: dashes(v.Style),
			})
		case *doc.Polygon:
			pts := make([]doc.Point, len(v.Points))
			for i, p := range v.Points {
				pts[i] = doc.Point{X: fx + p.X, Y: fy + p.Y}
			}
			stroke, fill := v.Style.Color, v.Style.Fill
			a.page.Polygons = append(a.page.Polygons, Polygon{
				Points: pts, Stroke: &stroke, StrokeWidth: v.Style.LineWidth, Fill: &fill, Dashes: dashes(v.Style),
			})
		case *doc.Box:
			a.shape(v, fx, fy)
		case *doc.Text:
			a.text(v, fx, fy)
		}
	}
}

func (a *arranger) shape(v *doc.Box, fx, fy float64) {
	g := v.Style
	if g.Shadow {
		shadow := style.Grey
		a.page.Rects = append(a.page.Rects, Rect{
			X: fx + v.X + g.ShadowSpace, Y: fy + v.Y + g.ShadowSpace,
			Width: v.Width, Height: v.Height, Fill: &shadow,
		})
	}
	stroke, fill := g.Color, g.Fill
	a.page.Rects = append(a.page.Rects, Rect{
		X: fx + v.X, Y: fy + v.Y, Width: v.Width, Height: v.Height,
		Stroke: &stroke, StrokeWidth: g.LineWidth, Fill: &fill, Dashes: dashes(g),
	})
}

// text 定位不换行的文本。锚点水平含义取决于对齐方式，垂直方向为顶部或中线；
// 旋转围绕锚点进行。
func (a *arranger) text(t *doc.Text, fx, fy float64) {
	lines := breakFree(a.m, t.Style, t.Content)
	var w, h float64
	for _, l := range lines {
		w = max(w, l.width)
		h += l.height
	}
	ax, ay := fx+t.X, fy+t.Y
	dx := -alignOffset(w, 0, t.Style.Align.String())
	var dy float64
	if t.VAlign == doc.VAlignCenter {
		dy = -h / 2
	}
	tb := TextBox{X: ax + dx, Y: ay + dy, Width: w, Height: h}
	if t.Angle != 0 {
		tb.Angle, tb.PivotX, tb.PivotY = t.Angle, ax, ay
	}
	ly := tb.Y
	for _, l := range lines {
		lx := tb.X + alignOffset(w, l.width, t.Style.Align.String())
		tb.Lines = append(tb.Lines, placeLine(l, lx, ly))
		ly += l.height
	}
	a.page.Texts = append(a.page.Texts, tb)
}
