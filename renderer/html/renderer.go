// Package htmlrenderer 把文档树输出为 HTML5。样式以内联 CSS 表达，
// 绘图页转为内嵌 SVG，目录与索引用锚点链接到正文位置。
package htmlrenderer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/ByLCY/docgen/doc"
	"github.com/ByLCY/docgen/layout"
	"github.com/ByLCY/docgen/markup"
	"github.com/ByLCY/docgen/media"
	"github.com/ByLCY/docgen/renderer"
	"github.com/ByLCY/docgen/style"
)

// Renderer 输出 HTML。
type Renderer struct {
	images *media.Loader
	// Embed 为 true 时所有图片以 data URI 内嵌；带裁剪的图片总是内嵌。
	Embed   bool
	Quality int
	// Language 用于 <html lang> 与索引排序，空值为英语。
	Language   string
	TOCTitle   string
	IndexTitle string
}

var _ renderer.TreeRenderer = (*Renderer)(nil)

// NewRenderer 创建 HTML 渲染器，内嵌图片时以 baseDir 为根读取。
func NewRenderer(baseDir string) *Renderer {
	return &Renderer{
		images:     media.NewLoader(baseDir),
		Quality:    media.DefaultQuality,
		TOCTitle:   "Contents",
		IndexTitle: "Index",
	}
}

func (r *Renderer) language() language.Tag {
	if r.Language == "" {
		return language.English
	}
	tag, err := language.Parse(r.Language)
	if err != nil {
		return language.English
	}
	return tag
}

type tocEntry struct {
	key   string
	level int
	id    string
}

type writer struct {
	r      *Renderer
	sheet  *style.StyleSheet
	nextID int
	toc    []tocEntry
	index  map[string][]string
	// 目录与索引在正文遍历结束后填充。
	tocNodes   []*html.Node
	indexNodes []*html.Node
}

// RenderTree 输出完整的 HTML 文档。
func (r *Renderer) RenderTree(d *doc.Document) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("文档为空")
	}
	paper := d.Paper
	if paper.Width() <= 0 || paper.Height() <= 0 {
		paper = style.DefaultPaper()
	}
	sheet := d.Sheet
	if sheet == nil {
		sheet = style.Builtin()
	}
	w := &writer{r: r, sheet: sheet, index: map[string][]string{}}

	body := el(atom.Body, "style", "max-width:"+cm(paper.UsableWidth())+";margin:0 auto")
	for _, blk := range d.Children {
		n, err := w.block(blk)
		if err != nil {
			return nil, err
		}
		body.AppendChild(n)
	}
	for _, n := range w.tocNodes {
		w.fillTOC(n)
	}
	for _, n := range w.indexNodes {
		w.fillIndex(n)
	}

	root := &html.Node{Type: html.DocumentNode}
	root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	page := el(atom.Html, "lang", r.language().String())
	page.AppendChild(head(d.Meta, paper))
	page.AppendChild(body)
	root.AppendChild(page)

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return nil, fmt.Errorf("输出 HTML 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// el 创建元素节点，值为空的属性被省略。
func el(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
	for i := 0; i+1 < len(attrs); i += 2 {
		if attrs[i+1] != "" {
			n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
		}
	}
	return n
}

// svgEl 创建 SVG 元素，atom 表中没有的名称（如 polygon）以原名输出。
func svgEl(name string, attrs ...string) *html.Node {
	n := el(atom.Lookup([]byte(name)), attrs...)
	n.Data = name
	return n
}

func text(s string) *html.Node { return &html.Node{Type: html.TextNode, Data: s} }

func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}

func cm(v float64) string { return num(v) + "cm" }

func pt(v float64) string { return num(v) + "pt" }

func head(m doc.Meta, paper style.PaperStyle) *html.Node {
	h := el(atom.Head)
	h.AppendChild(el(atom.Meta, "charset", "utf-8"))
	title := el(atom.Title)
	title.AppendChild(text(m.Title))
	h.AppendChild(title)
	for _, kv := range [][2]string{
		{"author", m.Author},
		{"description", m.Subject},
		{"keywords", strings.Join(m.Keywords, ", ")},
		{"generator", m.Creator},
	} {
		if kv[1] != "" {
			h.AppendChild(el(atom.Meta, "name", kv[0], "content", kv[1]))
		}
	}
	css := el(atom.Style)
	css.AppendChild(text(fmt.Sprintf("@page{size:%s %s;margin:%s %s %s %s}",
		cm(paper.Width()), cm(paper.Height()),
		cm(paper.TopMargin), cm(paper.RightMargin), cm(paper.BottomMargin), cm(paper.LeftMargin))))
	h.AppendChild(css)
	return h
}

func (w *writer) block(blk doc.Block) (*html.Node, error) {
	switch n := blk.(type) {
	case *doc.Paragraph:
		return w.paragraph(n), nil
	case *doc.Table:
		return w.table(n)
	case *doc.Image:
		return w.image(n)
	case *doc.Frame:
		return w.frame(n), nil
	case *doc.PageBreak:
		return el(atom.Div, "style", "break-after:page"), nil
	case *doc.TOCMarker:
		nav := el(atom.Nav, "class", "toc")
		w.tocNodes = append(w.tocNodes, nav)
		return nav, nil
	case *doc.IndexMarker:
		sec := el(atom.Section, "class", "index")
		w.indexNodes = append(w.indexNodes, sec)
		return sec, nil
	}
	return nil, fmt.Errorf("HTML 不支持的节点 %s", blk.Kind())
}

func fontCSS(f style.FontStyle) []string {
	decl := []string{"font-family:" + f.Face.String(), "font-size:" + pt(f.Size)}
	if f.Bold {
		decl = append(decl, "font-weight:bold")
	}
	if f.Italic {
		decl = append(decl, "font-style:italic")
	}
	if f.Underline {
		decl = append(decl, "text-decoration:underline")
	}
	if f.Color != style.Black {
		decl = append(decl, "color:"+f.Color.Hex())
	}
	return decl
}

const borderCSS = "1pt solid #000000"

func paragraphCSS(st style.ParagraphStyle) string {
	decl := fontCSS(st.Font)
	if st.Align != style.AlignLeft {
		decl = append(decl, "text-align:"+st.Align.String())
	}
	decl = append(decl, fmt.Sprintf("margin:%s %s %s %s",
		cm(st.TopMargin), cm(st.RightMargin), cm(st.BottomMargin), cm(st.LeftMargin)))
	if st.FirstIndent != 0 {
		decl = append(decl, "text-indent:"+cm(st.FirstIndent))
	}
	if st.Padding > 0 {
		decl = append(decl, "padding:"+cm(st.Padding))
	}
	for _, s := range []struct {
		on   bool
		side string
	}{
		{st.TopBorder, "top"},
		{st.RightBorder, "right"},
		{st.BottomBorder, "bottom"},
		{st.LeftBorder, "left"},
	} {
		if s.on {
			decl = append(decl, "border-"+s.side+":"+borderCSS)
		}
	}
	if st.BgColor != style.White {
		decl = append(decl, "background-color:"+st.BgColor.Hex())
	}
	if st.Font.Face == style.Monospace {
		decl = append(decl, "white-space:pre-wrap")
	}
	return strings.Join(decl, ";")
}

var headings = [...]atom.Atom{atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6}

// paragraph 输出段落；大纲级别大于 0 的段落输出为 h1-h6。
func (w *writer) paragraph(p *doc.Paragraph) *html.Node {
	tag := atom.P
	if lvl := p.Style.Level; lvl > 0 {
		tag = headings[min(lvl, len(headings))-1]
	}
	n := el(tag, "class", p.StyleName, "style", paragraphCSS(p.Style))
	for _, m := range p.Marks {
		w.mark(n, m.Mark)
	}
	if p.Leader != "" {
		lead := el(atom.Span, "class", "leader")
		if p.Style.FirstIndent < 0 {
			lead.Attr = append(lead.Attr, html.Attribute{Key: "style", Val: "display:inline-block;text-indent:0;width:" + cm(-p.Style.FirstIndent)})
		}
		lead.AppendChild(text(p.Leader))
		n.AppendChild(lead)
	}
	inline(n, p.Content)
	return n
}

// mark 在节点内插入锚点，并登记目录或索引项。
func (w *writer) mark(parent *html.Node, m doc.IndexMark) {
	var id string
	switch m.Type {
	case doc.MarkLocalTarget:
		id = m.Key
	case doc.MarkTOC, doc.MarkAlphabetical:
		w.nextID++
		id = "m" + strconv.Itoa(w.nextID)
	default:
		return
	}
	parent.AppendChild(el(atom.A, "id", id))
	switch m.Type {
	case doc.MarkTOC:
		w.toc = append(w.toc, tocEntry{key: m.Key, level: max(m.Level, 1), id: id})
	case doc.MarkAlphabetical:
		w.index[m.Key] = append(w.index[m.Key], id)
	}
}

var inlineAtoms = []struct {
	attr markup.Attr
	tag  atom.Atom
}{
	{markup.Bold, atom.B},
	{markup.Italic, atom.I},
	{markup.Underline, atom.U},
	{markup.Small, atom.Small},
	{markup.Superscript, atom.Sup},
	{markup.Subscript, atom.Sub},
	{markup.Mono, atom.Code},
}

// inline 把带属性的文本转成嵌套的行内元素，换行转为 <br>。
func inline(parent *html.Node, t markup.Text) {
	for _, r := range t.Runs() {
		cur := parent
		push := func(n *html.Node) {
			cur.AppendChild(n)
			cur = n
		}
		if r.Href != "" {
			push(el(atom.A, "href", r.Href))
		}
		if r.Color != nil {
			push(el(atom.Span, "style", "color:"+r.Color.Hex()))
		}
		for _, ia := range inlineAtoms {
			if r.Attr&ia.attr != 0 {
				push(el(ia.tag))
			}
		}
		for i, line := range strings.Split(r.Text, "\n") {
			if i > 0 {
				cur.AppendChild(el(atom.Br))
			}
			if line != "" {
				cur.AppendChild(text(line))
			}
		}
	}
}

func cellCSS(c style.TableCellStyle) string {
	decl := []string{"vertical-align:top"}
	if c.Padding > 0 {
		decl = append(decl, "padding:"+cm(c.Padding))
	}
	sides := [...]string{"top", "right", "bottom", "left"}
	for i, on := range c.Borders() {
		if on {
			decl = append(decl, "border-"+sides[i]+":"+borderCSS)
		}
	}
	return strings.Join(decl, ";")
}

func (w *writer) table(t *doc.Table) (*html.Node, error) {
	width := t.Style.Width
	if width <= 0 {
		width = 100
	}
	tbl := el(atom.Table, "class", t.StyleName, "style", "width:"+num(width)+"%;border-collapse:collapse")
	if len(t.Style.ColumnWidths) > 0 {
		cg := el(atom.Colgroup)
		for _, pct := range t.Style.ColumnWidths {
			cg.AppendChild(el(atom.Col, "style", "width:"+num(pct)+"%"))
		}
		tbl.AppendChild(cg)
	}
	body := el(atom.Tbody)
	tbl.AppendChild(body)
	for _, row := range t.Rows {
		tr := el(atom.Tr)
		for _, c := range row.Cells {
			span := ""
			if c.Span > 1 {
				span = strconv.Itoa(c.Span)
			}
			td := el(atom.Td, "class", c.StyleName, "colspan", span, "style", cellCSS(c.Style))
			for _, child := range c.Children {
				var (
					n   *html.Node
					err error
				)
				switch v := child.(type) {
				case *doc.Paragraph:
					n = w.paragraph(v)
				case *doc.Table:
					n, err = w.table(v)
				case *doc.Image:
					n, err = w.image(v)
				}
				if err != nil {
					return nil, err
				}
				if n != nil {
					td.AppendChild(n)
				}
			}
			tr.AppendChild(td)
		}
		body.AppendChild(tr)
	}
	return tbl, nil
}

func (w *writer) image(img *doc.Image) (*html.Node, error) {
	src := img.Path
	if img.Crop != nil || w.r.Embed {
		p, err := w.r.images.Load(img.Path, img.Crop)
		if err != nil {
			return nil, fmt.Errorf("读取图片 %s: %w", img.Path, err)
		}
		data, err := p.JPEG(w.r.Quality)
		if err != nil {
			return nil, fmt.Errorf("编码图片 %s: %w", img.Path, err)
		}
		src = "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)
	}
	var decl []string
	if img.Width > 0 {
		decl = append(decl, "max-width:"+cm(img.Width))
	}
	if img.Height > 0 {
		decl = append(decl, "max-height:"+cm(img.Height))
	}
	align := img.Align
	if align == "single" {
		align = "center"
	}
	div := el(atom.Div, "class", "image", "style", "text-align:"+align)
	div.AppendChild(el(atom.Img, "src", src, "alt", img.Alt, "style", strings.Join(decl, ";")))
	return div, nil
}

func (w *writer) fillTOC(nav *html.Node) {
	title := el(atom.P, "class", style.TOCTitle, "style", w.styleCSS(style.TOCTitle))
	title.AppendChild(text(w.r.TOCTitle))
	nav.AppendChild(title)
	list := el(atom.Ul, "style", "list-style:none;padding:0")
	for _, e := range w.toc {
		li := el(atom.Li, "style", fmt.Sprintf("margin-left:%sem", num(float64(e.level-1)*1.5)))
		a := el(atom.A, "href", "#"+e.id)
		a.AppendChild(text(e.key))
		li.AppendChild(a)
		list.AppendChild(li)
	}
	nav.AppendChild(list)
}

// fillIndex 按排序规则列出索引项，每处出现对应一个编号链接。
func (w *writer) fillIndex(sec *html.Node) {
	title := el(atom.P, "class", style.IDXTitle, "style", w.styleCSS(style.IDXTitle))
	title.AppendChild(text(w.r.IndexTitle))
	sec.AppendChild(title)
	keys := make([]string, 0, len(w.index))
	for k := range w.index {
		keys = append(keys, k)
	}
	collate.New(w.r.language()).SortStrings(keys)
	list := el(atom.Ul, "style", "list-style:none;padding:0")
	for _, k := range keys {
		li := el(atom.Li, "class", style.IDXEntry)
		li.AppendChild(text(k + " "))
		for i, id := range w.index[k] {
			if i > 0 {
				li.AppendChild(text(", "))
			}
			a := el(atom.A, "href", "#"+id)
			a.AppendChild(text(strconv.Itoa(i + 1)))
			li.AppendChild(a)
		}
		list.AppendChild(li)
	}
	sec.AppendChild(list)
}

func (w *writer) styleCSS(name string) string {
	st, err := w.sheet.ParagraphStyle(name)
	if err != nil {
		return ""
	}
	return paragraphCSS(st)
}

// frame 把绘图页输出为内嵌 SVG，viewBox 以厘米为单位。
func (w *writer) frame(f *doc.Frame) *html.Node {
	svg := svgEl("svg",
		"xmlns", "http://www.w3.org/2000/svg",
		"width", cm(f.Width), "height", cm(f.Height),
		"viewBox", fmt.Sprintf("0 0 %s %s", num(f.Width), num(f.Height)))
	for _, s := range f.Shapes {
		switch n := s.(type) {
		case *doc.Line:
			svg.AppendChild(svgEl("line", append([]string{
				"x1", num(n.From.X), "y1", num(n.From.Y), "x2", num(n.To.X), "y2", num(n.To.Y),
			}, stroke(n.Style)...)...))
		case *doc.Polygon:
			var pts []string
			for _, p := range n.Points {
				pts = append(pts, num(p.X)+","+num(p.Y))
			}
			svg.AppendChild(svgEl("polygon", append([]string{
				"points", strings.Join(pts, " "), "fill", n.Style.Fill.Hex(),
			}, stroke(n.Style)...)...))
		case *doc.Box:
			g := n.Style
			if g.Shadow {
				svg.AppendChild(svgEl("rect",
					"x", num(n.X+g.ShadowSpace), "y", num(n.Y+g.ShadowSpace),
					"width", num(n.Width), "height", num(n.Height), "fill", style.Grey.Hex()))
			}
			svg.AppendChild(svgEl("rect", append([]string{
				"x", num(n.X), "y", num(n.Y), "width", num(n.Width), "height", num(n.Height), "fill", g.Fill.Hex(),
			}, stroke(g)...)...))
		case *doc.Text:
			svg.AppendChild(w.svgText(n))
		}
	}
	return svg
}

func stroke(g style.GraphicsStyle) []string {
	lw := layout.PtToCm(g.LineWidth)
	attrs := []string{"stroke", g.Color.Hex(), "stroke-width", num(lw)}
	if d := g.LineStyle.Dashes(); d != nil {
		parts := make([]string, len(d))
		for i, v := range d {
			parts[i] = num(v * lw)
		}
		attrs = append(attrs, "stroke-dasharray", strings.Join(parts, " "))
	}
	return attrs
}

var textAnchors = map[style.Align]string{
	style.AlignLeft:   "start",
	style.AlignCenter: "middle",
	style.AlignRight:  "end",
}

// svgText 每行输出一个 <text>；逆时针角度对应 SVG 中的负旋转。
func (w *writer) svgText(t *doc.Text) *html.Node {
	f := t.Style.Font
	size := layout.PtToCm(f.Size)
	lh := size * 1.2
	lines := strings.Split(t.Content.Plain, "\n")
	y := t.Y
	if t.VAlign == doc.VAlignCenter {
		y -= lh * float64(len(lines)) / 2
	}
	g := svgEl("g")
	if t.Angle != 0 {
		g.Attr = append(g.Attr, html.Attribute{Key: "transform",
			Val: fmt.Sprintf("rotate(%s %s %s)", num(-t.Angle), num(t.X), num(t.Y))})
	}
	if t.Mark != nil {
		w.mark(g, *t.Mark)
	}
	anchor := textAnchors[t.Style.Align]
	if anchor == "" {
		anchor = "start"
	}
	weight, slant := "", ""
	if f.Bold {
		weight = "bold"
	}
	if f.Italic {
		slant = "italic"
	}
	for i, l := range lines {
		tn := svgEl("text",
			"x", num(t.X), "y", num(y+float64(i)*lh),
			"font-family", f.Face.String(), "font-size", num(size),
			"font-weight", weight, "font-style", slant,
			"fill", f.Color.Hex(), "text-anchor", anchor, "dominant-baseline", "hanging")
		tn.AppendChild(text(l))
		g.AppendChild(tn)
	}
	return g
}
