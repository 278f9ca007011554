// Package rtfrenderer 把文档树输出为 RTF。RTF 由阅读程序自行分页，
// 因此这里直接遍历未分页的文档，所有长度换算为 twips。
package rtfrenderer

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/ByLCY/docgen/doc"
	"github.com/ByLCY/docgen/layout"
	"github.com/ByLCY/docgen/markup"
	"github.com/ByLCY/docgen/media"
	"github.com/ByLCY/docgen/renderer"
	"github.com/ByLCY/docgen/style"
)

var fontTable = [...]string{
	style.Serif:     `{\f0\froman\fcharset0\fprq2 Times New Roman;}`,
	style.SansSerif: `{\f1\fswiss\fcharset0\fprq2 Arial;}`,
	style.Monospace: `{\f2\fmodern\fcharset0\fprq1 Courier New;}`,
}

// 单元格与段落边框宽度，单位 twips。
const borderTwips = 10

// Renderer 输出 RTF。图片重新编码为 JPEG 后内嵌。
type Renderer struct {
	images *media.Loader
	// Quality 为内嵌图片的 JPEG 质量。
	Quality int
}

var _ renderer.TreeRenderer = (*Renderer)(nil)

// NewRenderer 创建 RTF 渲染器，相对图片路径以 baseDir 为根。
func NewRenderer(baseDir string) *Renderer {
	return &Renderer{images: media.NewLoader(baseDir), Quality: media.DefaultQuality}
}

// RenderTree 输出整个文档。
func (r *Renderer) RenderTree(d *doc.Document) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("文档为空")
	}
	paper := d.Paper
	if paper.Width() <= 0 || paper.Height() <= 0 {
		paper = style.DefaultPaper()
	}
	w := &writer{
		r:      r,
		usable: paper.UsableWidth(),
		index:  map[style.Color]int{style.Black: 0},
		colors: []style.Color{style.Black},
	}
	for _, blk := range d.Children {
		if err := w.block(blk); err != nil {
			return nil, err
		}
	}

	var out bytes.Buffer
	out.WriteString("{\\rtf1\\ansi\\ansicpg1252\\deff0\n{\\fonttbl\n")
	for _, f := range fontTable {
		out.WriteString(f)
		out.WriteByte('\n')
	}
	out.WriteString("}\n{\\colortbl\n")
	for _, c := range w.colors {
		fmt.Fprintf(&out, "\\red%d\\green%d\\blue%d;", c.R, c.G, c.B)
	}
	out.WriteString("}\n")
	writeInfo(&out, d.Meta)
	fmt.Fprintf(&out, "\\kerning0\\cf0\\viewkind1\\paperw%d\\paperh%d\\margl%d\\margr%d\\margt%d\\margb%d\\widowctl",
		twips(paper.Width()), twips(paper.Height()),
		twips(paper.LeftMargin), twips(paper.RightMargin),
		twips(paper.TopMargin), twips(paper.BottomMargin))
	if paper.Orientation == style.Landscape {
		out.WriteString("\\landscape")
	}
	out.WriteByte('\n')
	out.Write(w.body.Bytes())
	out.WriteString("}\n")
	return out.Bytes(), nil
}

func twips(cm float64) int { return layout.CmToTwips(cm) }

func writeInfo(out *bytes.Buffer, m doc.Meta) {
	fields := []struct{ tag, value string }{
		{"title", m.Title},
		{"author", m.Author},
		{"subject", m.Subject},
		{"keywords", strings.Join(m.Keywords, " ")},
		{"doccomm", m.Creator},
	}
	var b bytes.Buffer
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		fmt.Fprintf(&b, "{\\%s ", f.tag)
		escape(&b, f.value)
		b.WriteByte('}')
	}
	if b.Len() > 0 {
		out.WriteString("{\\info")
		out.Write(b.Bytes())
		out.WriteString("}\n")
	}
}

type writer struct {
	r      *Renderer
	body   bytes.Buffer
	usable float64
	index  map[style.Color]int
	colors []style.Color
}

// color 返回颜色表下标，首次出现的颜色追加到表尾。
func (w *writer) color(c style.Color) int {
	if i, ok := w.index[c]; ok {
		return i
	}
	w.index[c] = len(w.colors)
	w.colors = append(w.colors, c)
	return w.index[c]
}

func (w *writer) block(blk doc.Block) error {
	switch n := blk.(type) {
	case *doc.Paragraph:
		w.paragraph(n, false, `\par`)
	case *doc.Table:
		return w.table(n)
	case *doc.Image:
		return w.image(n, false, `\par`)
	case *doc.Frame:
		w.frame(n)
	case *doc.PageBreak:
		w.body.WriteString("\\page\n")
	case *doc.TOCMarker:
		w.field(`TOC \\f \\h`)
	case *doc.IndexMarker:
		w.field(`INDEX \\c "2"`)
	default:
		return fmt.Errorf("RTF 不支持的节点 %s", blk.Kind())
	}
	return nil
}

// field 写入一个由阅读程序更新的域，用于目录与索引。
func (w *writer) field(inst string) {
	fmt.Fprintf(&w.body, "\\pard{\\field{\\*\\fldinst { %s }}{\\fldrslt { }}}\\par\n", inst)
}

func (w *writer) fontCodes(f style.FontStyle) string {
	s := fmt.Sprintf("\\f%d\\fs%d\\cf%d", int(f.Face), int(f.Size*2+0.5), w.color(f.Color))
	if f.Bold {
		s += `\b`
	}
	if f.Italic {
		s += `\i`
	}
	if f.Underline {
		s += `\ul`
	}
	return s
}

// paragraphCodes 写入 \pard 及段落格式控制字。
func (w *writer) paragraphCodes(st style.ParagraphStyle, inTable bool) {
	b := &w.body
	b.WriteString(`\pard`)
	if inTable {
		b.WriteString(`\intbl`)
	}
	switch st.Align {
	case style.AlignRight:
		b.WriteString(`\qr`)
	case style.AlignCenter:
		b.WriteString(`\qc`)
	case style.AlignJustify:
		b.WriteString(`\qj`)
	}
	fmt.Fprintf(b, "\\li%d\\ri%d\\fi%d\\sb%d\\sa%d",
		twips(st.LeftMargin), twips(st.RightMargin), twips(st.FirstIndent),
		twips(st.TopMargin), twips(st.BottomMargin+st.Padding/2))
	sides := []struct {
		on  bool
		tag string
	}{
		{st.TopBorder, "t"},
		{st.BottomBorder, "b"},
		{st.LeftBorder, "l"},
		{st.RightBorder, "r"},
	}
	for _, s := range sides {
		if s.on {
			fmt.Fprintf(b, "\\brdr%s\\brdrs\\brdrw%d\\brsp%d", s.tag, borderTwips, twips(st.Padding))
		}
	}
	if st.BgColor != style.White {
		fmt.Fprintf(b, "\\cbpat%d", w.color(st.BgColor))
	}
	for _, t := range st.Tabs {
		fmt.Fprintf(b, "\\tx%d", twips(st.LeftMargin+t))
	}
}

// paragraph 输出一个段落，以 end 结束（\par，或单元格最后一段的 \cell）。
func (w *writer) paragraph(p *doc.Paragraph, inTable bool, end string) {
	st := p.Style
	b := &w.body
	w.paragraphCodes(st, inTable)
	if p.Leader != "" {
		// 前导文字位于首行缩进处，制表到左边距。
		fmt.Fprintf(b, "\\tx%d{%s ", twips(st.LeftMargin), w.fontCodes(st.Font))
		escape(b, p.Leader)
		b.WriteString(`\tab}`)
	}
	for _, r := range p.Content.Runs() {
		w.run(r, st.Font)
	}
	for _, m := range p.Marks {
		w.mark(m.Mark)
	}
	b.WriteString(end)
	b.WriteByte('\n')
}

func (w *writer) mark(m doc.IndexMark) {
	b := &w.body
	switch m.Type {
	case doc.MarkAlphabetical:
		b.WriteString(`{\xe {`)
		escape(b, m.Key)
		b.WriteString(`}}`)
	case doc.MarkTOC:
		fmt.Fprintf(b, "{\\tc\\tcl%d {", max(m.Level, 1))
		escape(b, m.Key)
		b.WriteString(`}}`)
	case doc.MarkLocalTarget:
		b.WriteString(`{\*\bkmkstart `)
		escape(b, m.Key)
		b.WriteString(`}{\*\bkmkend `)
		escape(b, m.Key)
		b.WriteString(`}`)
	}
}

func (w *writer) run(r markup.Run, base style.FontStyle) {
	b := &w.body
	if r.Href != "" {
		b.WriteString(`{\field{\*\fldinst HYPERLINK "`)
		escape(b, r.Href)
		b.WriteString(`"}{\fldrslt `)
	}
	b.WriteByte('{')
	b.WriteString(w.fontCodes(layout.RunFont(base, r)))
	switch {
	case r.Attr&markup.Superscript != 0:
		fmt.Fprintf(b, "\\up%d", int(base.Size*0.7+0.5))
	case r.Attr&markup.Subscript != 0:
		fmt.Fprintf(b, "\\dn%d", int(base.Size*0.3+0.5))
	}
	b.WriteByte(' ')
	escape(b, r.Text)
	b.WriteByte('}')
	if r.Href != "" {
		b.WriteString(`}}`)
	}
}

// cellEdges 返回每个逻辑列右边缘相对表格左侧的位置（twips）。
func (w *writer) cellEdges(t *doc.Table, row *doc.Row) []int {
	ts := t.Style.Clone()
	ts.ColumnWidths = row.Columns
	edges := make([]int, len(row.Columns))
	var x float64
	for i, cw := range layout.ColumnWidths(ts, w.usable) {
		x += cw
		edges[i] = twips(x)
	}
	// 列宽全为 0 时按整行处理
	if n := len(edges); n > 0 && edges[n-1] == 0 {
		edges[n-1] = twips(w.usable)
	}
	return edges
}

func (w *writer) table(t *doc.Table) error {
	b := &w.body
	for _, row := range t.Rows {
		edges := w.cellEdges(t, row)
		b.WriteString("\\trowd\\trgaph0\\trleft0\n")
		for _, c := range row.Cells {
			cs := c.Style
			sides := []struct {
				on  bool
				tag string
			}{
				{cs.TopBorder, "t"},
				{cs.LeftBorder, "l"},
				{cs.BottomBorder, "b"},
				{cs.RightBorder, "r"},
			}
			for _, s := range sides {
				if s.on {
					fmt.Fprintf(b, "\\clbrdr%s\\brdrs\\brdrw%d", s.tag, borderTwips)
				}
			}
			if pad := twips(cs.Padding); pad > 0 {
				fmt.Fprintf(b, "\\clpadl%d\\clpadfl3\\clpadr%d\\clpadfr3\\clpadt%d\\clpadft3\\clpadb%d\\clpadfb3", pad, pad, pad, pad)
			}
			last := min(c.Column+max(c.Span, 1), len(edges)) - 1
			edge := twips(w.usable)
			if last >= 0 {
				edge = edges[last]
			}
			fmt.Fprintf(b, "\\cellx%d\n", edge)
		}
		for _, c := range row.Cells {
			if err := w.cell(c); err != nil {
				return err
			}
		}
		b.WriteString("\\row\n")
	}
	b.WriteString("\\pard\n")
	return nil
}

func (w *writer) cell(c *doc.Cell) error {
	if len(c.Children) == 0 {
		w.body.WriteString("\\pard\\intbl\\cell\n")
		return nil
	}
	for i, child := range c.Children {
		end := `\par`
		if i == len(c.Children)-1 {
			end = `\cell`
		}
		switch n := child.(type) {
		case *doc.Paragraph:
			w.paragraph(n, true, end)
		case *doc.Image:
			if err := w.image(n, true, end); err != nil {
				return err
			}
		case *doc.Table:
			w.nestedTable(n, end)
		}
	}
	return nil
}

// nestedTable 把单元格内的表格按行展开，同行单元格以制表符分隔。
func (w *writer) nestedTable(t *doc.Table, end string) {
	for i, row := range t.Rows {
		var text markup.Text
		base := style.NewParagraphStyle()
		for j, c := range row.Cells {
			if j > 0 {
				text.AppendString("\t")
			}
			for _, child := range c.Children {
				if p, ok := child.(*doc.Paragraph); ok {
					base = p.Style
					text.Append(p.Content)
				}
			}
		}
		rowEnd := `\par`
		if i == len(t.Rows)-1 {
			rowEnd = end
		}
		w.paragraph(&doc.Paragraph{Style: base, Content: text}, true, rowEnd)
	}
}

func (w *writer) image(img *doc.Image, inTable bool, end string) error {
	p, err := w.r.images.Load(img.Path, img.Crop)
	if err != nil {
		return fmt.Errorf("读取图片 %s: %w", img.Path, err)
	}
	width, height := media.FitSize(img.Width, img.Height, p.Width, p.Height)
	data, err := p.JPEG(w.r.Quality)
	if err != nil {
		return fmt.Errorf("编码图片 %s: %w", img.Path, err)
	}
	st := style.NewParagraphStyle()
	switch img.Align {
	case "center", "single":
		st.Align = style.AlignCenter
	case "right":
		st.Align = style.AlignRight
	}
	w.paragraphCodes(st, inTable)
	b := &w.body
	fmt.Fprintf(b, "{\\*\\shppict{\\pict\\jpegblip\\picw%d\\pich%d\\picwgoal%d\\pichgoal%d\n",
		p.Width, p.Height, twips(width), twips(height))
	for i := 0; i < len(data); i += 32 {
		b.WriteString(hex.EncodeToString(data[i:min(i+32, len(data))]))
		b.WriteByte('\n')
	}
	b.WriteString("}}")
	b.WriteString(end)
	b.WriteByte('\n')
	return nil
}

// frame 输出绘图页上的文字，按绘制顺序各成一段；图形本身不输出。
func (w *writer) frame(f *doc.Frame) {
	for _, s := range f.Shapes {
		t, ok := s.(*doc.Text)
		if !ok || t.Content.Len() == 0 {
			continue
		}
		p := &doc.Paragraph{Style: t.Style, Content: t.Content}
		if t.Mark != nil {
			p.Marks = []doc.PlacedMark{{Mark: *t.Mark}}
		}
		w.paragraph(p, false, `\par`)
	}
}

// escape 转义 RTF 特殊字符。Latin-1 以外的字符写作 \uN?，N 为有符号 16 位的 UTF-16 码元。
func escape(b *bytes.Buffer, s string) {
	for _, ch := range s {
		switch {
		case ch == '\\' || ch == '{' || ch == '}':
			b.WriteByte('\\')
			b.WriteRune(ch)
		case ch == '\n':
			b.WriteString(`\line `)
		case ch == '\t':
			b.WriteString(`\tab `)
		case ch < 128:
			b.WriteRune(ch)
		case ch < 256:
			fmt.Fprintf(b, "\\'%02x", ch)
		default:
			units := []uint16{uint16(ch)}
			if ch > 0xffff {
				r1, r2 := utf16.EncodeRune(ch)
				units = []uint16{uint16(r1), uint16(r2)}
			}
			for _, u := range units {
				fmt.Fprintf(b, "\\u%d?", int16(u))
			}
		}
	}
}
