// Package latexrenderer 把文档树输出为 LaTeX 源文件，由 TeX 负责分页。
// 标题层级映射为分节命令，表格使用 longtable，绘图页使用 picture 环境（pict2e）。
package latexrenderer

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/ByLCY/docgen/doc"
	"github.com/ByLCY/docgen/layout"
	"github.com/ByLCY/docgen/markup"
	"github.com/ByLCY/docgen/media"
	"github.com/ByLCY/docgen/renderer"
	"github.com/ByLCY/docgen/style"
)

var packages = []string{
	`\usepackage[T1]{fontenc}`,
	`\usepackage[utf8]{inputenc}`,
	`\usepackage{graphicx}`,
	`\usepackage{xcolor}`,
	`\usepackage{longtable}`,
	`\usepackage{pict2e}`,
	`\usepackage{makeidx}`,
	`\usepackage{hyperref}`,
}

var escaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`{`, `\{`,
	`}`, `\}`,
	`$`, `\$`,
	`&`, `\&`,
	`#`, `\#`,
	`^`, `\textasciicircum{}`,
	`_`, `\_`,
	`%`, `\%`,
	`~`, `\textasciitilde{}`,
	"\n", `\newline `,
	"\t", `\quad `,
)

// makeindex 的特殊字符需要以 " 引用。
var indexEscaper = strings.NewReplacer(`"`, `""`, `@`, `"@`, `!`, `"!`, `|`, `"|`)

var urlEscaper = strings.NewReplacer(`%`, `\%`, `#`, `\#`)

func escape(s string) string { return escaper.Replace(s) }

// Renderer 输出 LaTeX。
type Renderer struct {
	images *media.Loader
}

var _ renderer.TreeRenderer = (*Renderer)(nil)

// NewRenderer 创建 LaTeX 渲染器，裁剪图片时以 baseDir 为根读取图片尺寸。
func NewRenderer(baseDir string) *Renderer {
	return &Renderer{images: media.NewLoader(baseDir)}
}

// RenderTree 输出完整的 LaTeX 文档。
func (r *Renderer) RenderTree(d *doc.Document) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("文档为空")
	}
	paper := d.Paper
	if paper.Width() <= 0 || paper.Height() <= 0 {
		paper = style.DefaultPaper()
	}
	w := &writer{r: r}
	w.preamble(paper, d.Meta)
	w.buf.WriteString("\\begin{document}\n")
	for _, blk := range d.Children {
		if err := w.block(blk, paper.UsableWidth()); err != nil {
			return nil, err
		}
	}
	w.buf.WriteString("\\end{document}\n")
	return w.buf.Bytes(), nil
}

type writer struct {
	r   *Renderer
	buf bytes.Buffer
}

func cm(v float64) string { return fmt.Sprintf("%.2fcm", v) }

func num(v float64) string { return fmt.Sprintf("%.2f", v) }

func htmlColor(c style.Color) string {
	return strings.ToUpper(strings.TrimPrefix(c.Hex(), "#"))
}

func (w *writer) preamble(paper style.PaperStyle, meta doc.Meta) {
	b := &w.buf
	b.WriteString("\\documentclass{article}\n")
	for _, p := range packages {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	fmt.Fprintf(b, "\\usepackage[paperwidth=%s,paperheight=%s,left=%s,right=%s,top=%s,bottom=%s]{geometry}\n",
		cm(paper.Width()), cm(paper.Height()),
		cm(paper.LeftMargin), cm(paper.RightMargin), cm(paper.TopMargin), cm(paper.BottomMargin))
	info := []struct{ key, value string }{
		{"pdftitle", meta.Title},
		{"pdfauthor", meta.Author},
		{"pdfsubject", meta.Subject},
		{"pdfkeywords", strings.Join(meta.Keywords, ", ")},
		{"pdfcreator", meta.Creator},
	}
	var set []string
	for _, kv := range info {
		if kv.value != "" {
			set = append(set, fmt.Sprintf("%s={%s}", kv.key, escape(kv.value)))
		}
	}
	if len(set) > 0 {
		fmt.Fprintf(b, "\\hypersetup{%s}\n", strings.Join(set, ","))
	}
	b.WriteString("\\makeindex\n")
	b.WriteString("\\setcounter{secnumdepth}{0}\n\\setcounter{tocdepth}{5}\n")
	b.WriteString("\\setlength{\\parskip}{0pt}\n\\setlength{\\unitlength}{1cm}\n")
}

func (w *writer) block(blk doc.Block, width float64) error {
	switch n := blk.(type) {
	case *doc.Paragraph:
		w.paragraph(n, false)
	case *doc.Table:
		return w.table(n, width, false)
	case *doc.Image:
		return w.image(n)
	case *doc.Frame:
		w.frame(n)
	case *doc.PageBreak:
		w.buf.WriteString("\\newpage\n")
	case *doc.TOCMarker:
		w.buf.WriteString("\\tableofcontents\n\\clearpage\n")
	case *doc.IndexMarker:
		w.buf.WriteString("\\printindex\n")
	default:
		return fmt.Errorf("LaTeX 不支持的节点 %s", blk.Kind())
	}
	return nil
}

func sectionCommand(level int) string {
	switch level {
	case 1:
		return "section"
	case 2:
		return "subsection"
	case 3:
		return "subsubsection"
	case 4:
		return "paragraph"
	}
	return "subparagraph"
}

func fontCommands(f style.FontStyle) string {
	s := fmt.Sprintf("\\fontsize{%.1f}{%.1f}\\selectfont", f.Size, f.Size*1.2)
	switch f.Face {
	case style.SansSerif:
		s += `\sffamily`
	case style.Monospace:
		s += `\ttfamily`
	}
	if f.Bold {
		s += `\bfseries`
	}
	if f.Italic {
		s += `\itshape`
	}
	if f.Color != style.Black {
		s += `\color[HTML]{` + htmlColor(f.Color) + `}`
	}
	return s
}

var alignCommands = map[style.Align]string{
	style.AlignLeft:   `\raggedright`,
	style.AlignRight:  `\raggedleft`,
	style.AlignCenter: `\centering`,
}

// paragraph 输出段落。顶层的标题段落使用分节命令，单元格内的标题按普通段落处理。
func (w *writer) paragraph(p *doc.Paragraph, inCell bool) {
	st := p.Style
	b := &w.buf
	if st.Level > 0 && !inCell {
		fmt.Fprintf(b, "\\%s{%s}\n", sectionCommand(st.Level), w.runs(p.Content, st.Font))
		b.WriteString(w.marks(p.Marks, true))
		b.WriteByte('\n')
		return
	}
	if st.TopMargin > 0 {
		fmt.Fprintf(b, "\\vspace{%s}\n", cm(st.TopMargin))
	}
	framed := st.HasBorder() || st.BgColor != style.White
	if framed {
		rule := st.BgColor
		if st.HasBorder() {
			rule = style.Black
		}
		fmt.Fprintf(b, "\\noindent\\fcolorbox[HTML]{%s}{%s}{\\parbox{\\dimexpr\\linewidth-2\\fboxsep-2\\fboxrule}{",
			htmlColor(rule), htmlColor(st.BgColor))
	}
	b.WriteByte('{')
	b.WriteString(alignCommands[st.Align])
	if st.LeftMargin > 0 {
		fmt.Fprintf(b, "\\advance\\leftskip by %s", cm(st.LeftMargin))
	}
	if st.RightMargin > 0 {
		fmt.Fprintf(b, "\\advance\\rightskip by %s", cm(st.RightMargin))
	}
	fmt.Fprintf(b, "\\parindent=%s%s ", cm(st.FirstIndent), fontCommands(st.Font))
	if p.Leader != "" {
		if st.FirstIndent < 0 {
			// 前导文字占满悬挂缩进，正文从左边距开始。
			fmt.Fprintf(b, "\\makebox[%s][l]{%s}", cm(-st.FirstIndent), escape(p.Leader))
		} else {
			b.WriteString(escape(p.Leader) + `\ `)
		}
	}
	b.WriteString(w.runs(p.Content, st.Font))
	b.WriteString(w.marks(p.Marks, false))
	b.WriteString("\\par}")
	if framed {
		b.WriteString("}}\\par")
	}
	b.WriteByte('\n')
	if st.BottomMargin > 0 {
		fmt.Fprintf(b, "\\vspace{%s}\n", cm(st.BottomMargin))
	}
}

var runCommands = []struct {
	attr markup.Attr
	cmd  string
}{
	{markup.Bold, `\textbf`},
	{markup.Italic, `\textit`},
	{markup.Mono, `\texttt`},
	{markup.Superscript, `\textsuperscript`},
	{markup.Subscript, `\textsubscript`},
}

func (w *writer) runs(t markup.Text, base style.FontStyle) string {
	var b strings.Builder
	for _, r := range t.Runs() {
		s := escape(r.Text)
		for _, c := range runCommands {
			if r.Attr&c.attr != 0 {
				s = c.cmd + "{" + s + "}"
			}
		}
		if r.Attr&markup.Small != 0 {
			s = `{\small ` + s + `}`
		}
		if r.Attr&markup.Underline != 0 || base.Underline {
			s = `\underline{` + s + `}`
		}
		if r.Color != nil {
			s = `\textcolor[HTML]{` + htmlColor(*r.Color) + `}{` + s + `}`
		}
		if r.Href != "" {
			s = `\href{` + urlEscaper.Replace(r.Href) + `}{` + s + `}`
		}
		b.WriteString(s)
	}
	return b.String()
}

// marks 返回索引与书签命令。分节命令本身会进入目录，因此标题段落不再重复添加目录项。
func (w *writer) marks(marks []doc.PlacedMark, heading bool) string {
	var b strings.Builder
	for _, pm := range marks {
		m := pm.Mark
		switch m.Type {
		case doc.MarkAlphabetical:
			b.WriteString(`\index{` + indexEscaper.Replace(escape(m.Key)) + `}`)
		case doc.MarkTOC:
			if !heading {
				fmt.Fprintf(&b, "\\addcontentsline{toc}{%s}{%s}", sectionCommand(max(m.Level, 1)), escape(m.Key))
			}
		case doc.MarkLocalTarget:
			b.WriteString(`\hypertarget{` + escape(m.Key) + `}{}`)
		}
	}
	return b.String()
}

func cellPadding(t *doc.Table) float64 {
	var pad float64
	for _, row := range t.Rows {
		for _, c := range row.Cells {
			pad = max(pad, c.Style.Padding)
		}
	}
	return pad
}

// spanWidth 返回从 col 起跨 span 列的总宽度。
func spanWidth(cols []float64, col, span int) float64 {
	var w float64
	for i := col; i < col+max(span, 1) && i < len(cols); i++ {
		w += cols[i]
	}
	return w
}

// table 输出表格；每个单元格都写成 \multicolumn，以便逐格设置左右边框与跨列宽度。
// 顶层表格使用可跨页的 longtable，嵌套表格使用 tabular。
func (w *writer) table(t *doc.Table, width float64, nested bool) error {
	b := &w.buf
	env := "longtable"
	if nested {
		env = "tabular"
	}
	pad := cellPadding(t)
	fmt.Fprintf(b, "{\\setlength{\\tabcolsep}{%s}\n\\begin{%s}", cm(pad), env)
	if !nested {
		b.WriteString("[l]")
	}
	b.WriteByte('{')
	for _, cw := range layout.ColumnWidths(t.Style, width) {
		fmt.Fprintf(b, "p{%s}", cm(max(cw-2*pad, 0)))
	}
	b.WriteString("}\n")
	for _, row := range t.Rows {
		ts := t.Style.Clone()
		ts.ColumnWidths = row.Columns
		cols := layout.ColumnWidths(ts, width)
		b.WriteString(rules(row, true))
		for i, c := range row.Cells {
			if i > 0 {
				b.WriteString(" & ")
			}
			inner := max(spanWidth(cols, c.Column, c.Span)-2*pad, 0)
			spec := "p{" + cm(inner) + "}"
			if c.Style.LeftBorder {
				spec = "|" + spec
			}
			if c.Style.RightBorder {
				spec += "|"
			}
			fmt.Fprintf(b, "\\multicolumn{%d}{%s}{", max(c.Span, 1), spec)
			if err := w.cell(c, inner); err != nil {
				return err
			}
			b.WriteByte('}')
		}
		b.WriteString(" \\\\\n")
		b.WriteString(rules(row, false))
	}
	fmt.Fprintf(b, "\\end{%s}}\n", env)
	return nil
}

// rules 为带上（下）边框的单元格生成 \cline。
func rules(row *doc.Row, top bool) string {
	var b strings.Builder
	for _, c := range row.Cells {
		on := c.Style.BottomBorder
		if top {
			on = c.Style.TopBorder
		}
		if on {
			fmt.Fprintf(&b, "\\cline{%d-%d}", c.Column+1, c.Column+max(c.Span, 1))
		}
	}
	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	return b.String()
}

func (w *writer) cell(c *doc.Cell, width float64) error {
	for _, child := range c.Children {
		switch n := child.(type) {
		case *doc.Paragraph:
			w.paragraph(n, true)
		case *doc.Image:
			if err := w.image(n); err != nil {
				return err
			}
		case *doc.Table:
			if err := w.table(n, width, true); err != nil {
				return err
			}
		}
	}
	return nil
}

// image 输出 \includegraphics。裁剪按百分比换算为像素，graphicx 以 bp 计量无分辨率信息的位图。
func (w *writer) image(img *doc.Image) error {
	var opts []string
	if img.Width > 0 {
		opts = append(opts, "width="+cm(img.Width))
	}
	if img.Height > 0 {
		opts = append(opts, "height="+cm(img.Height))
	}
	opts = append(opts, "keepaspectratio")
	if img.Crop != nil {
		px, py, err := media.Size(w.r.images.Resolve(img.Path))
		if err != nil {
			return fmt.Errorf("读取图片 %s: %w", img.Path, err)
		}
		r := media.CropRect(image.Rect(0, 0, px, py), *img.Crop)
		opts = append(opts, fmt.Sprintf("trim=%d %d %d %d", r.Min.X, py-r.Max.Y, px-r.Max.X, r.Min.Y), "clip")
	}
	g := fmt.Sprintf("\\includegraphics[%s]{%s}", strings.Join(opts, ","), img.Path)
	b := &w.buf
	switch img.Align {
	case "center", "single":
		b.WriteString("\\begin{center}\n" + g + "\n\\end{center}\n")
	case "right":
		b.WriteString("{\\raggedleft " + g + "\\par}\n")
	default:
		b.WriteString("\\noindent " + g + "\\par\n")
	}
	return nil
}

// frame 输出绘图页。picture 的原点在左下角，y 坐标需要翻转。
func (w *writer) frame(f *doc.Frame) {
	b := &w.buf
	fmt.Fprintf(b, "\\par\\noindent\n\\begin{picture}(%s,%s)\n", num(f.Width), num(f.Height))
	flip := func(y float64) float64 { return f.Height - y }
	for _, s := range f.Shapes {
		switch n := s.(type) {
		case *doc.Line:
			fmt.Fprintf(b, "{%s\\Line(%s,%s)(%s,%s)}\n", pen(n.Style),
				num(n.From.X), num(flip(n.From.Y)), num(n.To.X), num(flip(n.To.Y)))
		case *doc.Polygon:
			w.polygon(n.Style, n.Points, flip)
		case *doc.Box:
			g := n.Style
			if g.Shadow {
				fmt.Fprintf(b, "{\\color[HTML]{%s}\\put(%s,%s){\\rule{%s}{%s}}}\n", htmlColor(style.Grey),
					num(n.X+g.ShadowSpace), num(flip(n.Y+n.Height+g.ShadowSpace)), cm(n.Width), cm(n.Height))
			}
			w.polygon(g, []doc.Point{
				{X: n.X, Y: n.Y}, {X: n.X + n.Width, Y: n.Y},
				{X: n.X + n.Width, Y: n.Y + n.Height}, {X: n.X, Y: n.Y + n.Height},
			}, flip)
		case *doc.Text:
			w.text(n, flip)
		}
	}
	b.WriteString("\\end{picture}\\par\n")
}

func pen(g style.GraphicsStyle) string {
	return fmt.Sprintf("\\linethickness{%.2fpt}\\color[HTML]{%s}", g.LineWidth, htmlColor(g.Color))
}

func (w *writer) polygon(g style.GraphicsStyle, pts []doc.Point, flip func(float64) float64) {
	var coords strings.Builder
	for _, p := range pts {
		fmt.Fprintf(&coords, "(%s,%s)", num(p.X), num(flip(p.Y)))
	}
	b := &w.buf
	if g.Fill != style.White {
		fmt.Fprintf(b, "{\\color[HTML]{%s}\\polygon*%s}\n", htmlColor(g.Fill), coords.String())
	}
	fmt.Fprintf(b, "{%s\\polygon%s}\n", pen(g), coords.String())
}

// text 输出定位文字：锚点的水平含义随对齐方式变化，VAlignCenter 时纵向居中。
func (w *writer) text(t *doc.Text, flip func(float64) float64) {
	pos := map[style.Align]string{style.AlignLeft: "l", style.AlignRight: "r"}[t.Style.Align]
	stack := "c"
	if pos != "" {
		stack = pos
	}
	if t.VAlign == doc.VAlignTop {
		pos += "t"
	}
	lines := strings.Split(t.Content.Plain, "\n")
	for i, l := range lines {
		lines[i] = escape(l)
	}
	box := fmt.Sprintf("\\makebox(0,0)[%s]{%s\\shortstack[%s]{%s}}", pos, fontCommands(t.Style.Font), stack, strings.Join(lines, `\\`))
	if pos == "" {
		box = fmt.Sprintf("\\makebox(0,0){%s\\shortstack[%s]{%s}}", fontCommands(t.Style.Font), stack, strings.Join(lines, `\\`))
	}
	if t.Angle != 0 {
		box = fmt.Sprintf("\\rotatebox{%g}{%s}", t.Angle, box)
	}
	marks := ""
	if t.Mark != nil {
		marks = w.marks([]doc.PlacedMark{{Mark: *t.Mark}}, false)
	}
	fmt.Fprintf(&w.buf, "\\put(%s,%s){%s%s}\n", num(t.X), num(flip(t.Y)), box, marks)
}
