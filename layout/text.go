package layout

import (
	"math"
	"unicode"
	"unicode/utf8"

	"github.com/ByLCY/docgen/markup"
	"github.com/ByLCY/docgen/style"
)

const (
	eps = 1e-9
	// 行距为字号的 0.2 倍。
	spacingFraction = 0.2
	smallScale      = 0.8
	scriptScale     = 0.7
	noWrap          = 1e12
)

var linkColor = style.Color{R: 0, G: 0, B: 255}

func lineSpacing(f style.FontStyle) float64 { return f.Size * spacingFraction * CmPerPt }

type tokenKind int

const (
	tokWord tokenKind = iota
	tokSpace
	tokTab
	tokNewline
)

// frag 是同一属性下的一段文字；start 为其在段落纯文本中的字节偏移，引导文字为 -1。
type frag struct {
	text  string
	start int
	font  style.FontStyle
	attr  markup.Attr
	href  string
	rise  float64
	width float64
}

type token struct {
	kind  tokenKind
	start int
	frags []frag
}

func (t token) width() float64 {
	var w float64
	for _, f := range t.frags {
		w += f.width
	}
	return w
}

// line 是断行结果中的一行，runs 的 X 相对文本区域原点。
type line struct {
	runs   []TextRun
	start  int
	width  float64
	height float64
	ascent float64
	indent float64
	avail  float64
	hard   bool
}

// geometry 描述段落文本区域：原点 ox 相对段落左边缘，首行与其余行各自的缩进。
// 负的首行缩进让首行向左伸出，其余行保持在左边距处。
type geometry struct {
	ox          float64
	width       float64
	firstIndent float64
	restIndent  float64
}

func paragraphGeometry(st style.ParagraphStyle, width float64) geometry {
	g := geometry{
		ox:    st.LeftMargin + st.Padding,
		width: width - st.LeftMargin - st.RightMargin - 2*st.Padding,
	}
	if fi := st.FirstIndent; fi < 0 {
		g.ox += fi
		g.width -= fi
		g.restIndent = -fi
	} else {
		g.firstIndent = fi
	}
	return g
}

// runStyle 把内联属性叠加到段落字体上。
func runStyle(base style.FontStyle, r markup.Run) (style.FontStyle, float64) {
	f := base
	var rise float64
	if r.Attr&markup.Bold != 0 {
		f.Bold = true
	}
	if r.Attr&markup.Italic != 0 {
		f.Italic = true
	}
	if r.Attr&markup.Underline != 0 {
		f.Underline = true
	}
	if r.Attr&markup.Mono != 0 {
		f.Face = style.Monospace
	}
	if r.Attr&markup.Small != 0 {
		f.Size *= smallScale
	}
	if r.Attr&markup.Superscript != 0 {
		f.Size *= scriptScale
		rise = base.Size * 0.35 * CmPerPt
	}
	if r.Attr&markup.Subscript != 0 {
		f.Size *= scriptScale
		rise = -base.Size * 0.15 * CmPerPt
	}
	if r.Attr&markup.Link != 0 {
		f.Underline = true
		f.Color = linkColor
	}
	if r.Color != nil {
		f.Color = *r.Color
	}
	return f, rise
}

// RunFont 返回内联属性作用后的字体，不分页的后端据此输出与页面一致的字形。
func RunFont(base style.FontStyle, r markup.Run) style.FontStyle {
	f, _ := runStyle(base, r)
	return f
}

func isBreakingSpace(ch rune) bool {
	return ch != '\n' && ch != '\t' && ch != '\u00a0' && unicode.IsSpace(ch)
}

// tokenize 把文本切分为词、空白、制表与换行。一个词可以跨越多个属性段。
func tokenize(runs []markup.Run, base style.FontStyle, m Metrics) []token {
	var (
		toks []token
		word *token
	)
	flush := func() {
		if word != nil {
			toks = append(toks, *word)
			word = nil
		}
	}
	for _, r := range runs {
		font, rise := runStyle(base, r)
		mk := func(text string, start int) frag {
			return frag{text: text, start: start, font: font, attr: r.Attr, href: r.Href, rise: rise, width: m.TextWidth(font, text)}
		}
		for i := 0; i < len(r.Text); {
			ch, size := utf8.DecodeRuneInString(r.Text[i:])
			off := r.Start
			if off >= 0 {
				off += i
			}
			switch {
			case ch == '\n':
				flush()
				toks = append(toks, token{kind: tokNewline, start: off})
				i += size
			case ch == '\t':
				flush()
				toks = append(toks, token{kind: tokTab, start: off})
				i += size
			case isBreakingSpace(ch):
				flush()
				j := i
				for j < len(r.Text) {
					c, n := utf8.DecodeRuneInString(r.Text[j:])
					if !isBreakingSpace(c) {
						break
					}
					j += n
				}
				toks = append(toks, token{kind: tokSpace, start: off, frags: []frag{mk(r.Text[i:j], off)}})
				i = j
			default:
				j := i
				for j < len(r.Text) {
					c, n := utf8.DecodeRuneInString(r.Text[j:])
					if c == '\n' || c == '\t' || isBreakingSpace(c) {
						break
					}
					j += n
				}
				if word == nil {
					word = &token{kind: tokWord, start: off}
				}
				word.frags = append(word.frags, mk(r.Text[i:j], off))
				i = j
			}
		}
	}
	flush()
	return toks
}

type breaker struct {
	m       Metrics
	base    style.FontStyle
	g       geometry
	tabs    []float64
	lines   []*line
	cur     *line
	x       float64
	pending []frag
	content bool
}

func ascentOf(m Metrics, f style.FontStyle) float64 {
	if am, ok := m.(AscentMetrics); ok {
		return am.Ascent(f)
	}
	return 0.8 * m.LineHeight(f)
}

func (b *breaker) newLine(start int) {
	indent := b.g.restIndent
	if len(b.lines) == 0 {
		indent = b.g.firstIndent
	}
	b.cur = &line{start: start, indent: indent, avail: b.g.width - indent}
	b.lines = append(b.lines, b.cur)
	b.x = 0
	b.pending = nil
	b.content = false
}

func (b *breaker) ensure(start int) {
	if b.cur == nil {
		b.newLine(start)
	}
}

func (b *breaker) place(f frag, space bool) {
	b.cur.runs = append(b.cur.runs, TextRun{
		Text: f.text, X: b.cur.indent + b.x, Width: f.width,
		Font: f.font, Attr: f.attr, Href: f.href, Rise: f.rise, space: space,
	})
	b.x += f.width
	if h := b.m.LineHeight(f.font); h > b.cur.height {
		b.cur.height = h
	}
	if a := ascentOf(b.m, f.font); a > b.cur.ascent {
		b.cur.ascent = a
	}
}

func (b *breaker) flushPending() {
	for _, f := range b.pending {
		b.place(f, true)
	}
	b.pending = nil
}

func (b *breaker) pendingWidth() float64 {
	var w float64
	for _, f := range b.pending {
		w += f.width
	}
	return w
}

func (b *breaker) finish(hard bool) {
	l := b.cur
	l.width = b.x
	l.hard = hard
	if len(l.runs) == 0 {
		l.height = b.m.LineHeight(b.base)
		l.ascent = ascentOf(b.m, b.base)
	}
	b.cur = nil
	b.pending = nil
}

func (b *breaker) nextTab(rel float64) float64 {
	for _, t := range b.tabs {
		if t > rel+eps {
			return t
		}
	}
	step := 8 * b.m.TextWidth(b.base, " ")
	if step <= 0 {
		step = 1.27
	}
	return (math.Floor(rel/step+eps) + 1) * step
}

// splitFrags 在 room 宽度内尽量多放字符；force 时至少放一个字符以保证推进。
func (b *breaker) splitFrags(frags []frag, room float64, force bool) (head, tail []frag) {
	var used float64
	for i, f := range frags {
		cut := 0
		for cut < len(f.text) {
			ch, n := utf8.DecodeRuneInString(f.text[cut:])
			w := b.m.TextWidth(f.font, string(ch))
			if used+w > room+eps && !(force && used == 0 && cut == 0 && len(head) == 0) {
				break
			}
			used += w
			cut += n
		}
		if cut == len(f.text) {
			head = append(head, f)
			continue
		}
		if cut > 0 {
			h := f
			h.text = f.text[:cut]
			h.width = b.m.TextWidth(f.font, h.text)
			head = append(head, h)
		}
		t := f
		t.text = f.text[cut:]
		if t.start >= 0 {
			t.start += cut
		}
		t.width = b.m.TextWidth(f.font, t.text)
		tail = append(tail, t)
		tail = append(tail, frags[i+1:]...)
		return head, tail
	}
	return head, nil
}

func (b *breaker) placeWord(frags []frag) {
	for len(frags) > 0 {
		var w float64
		for _, f := range frags {
			w += f.width
		}
		if b.x+w <= b.cur.avail+eps {
			for _, f := range frags {
				b.place(f, false)
			}
			b.content = true
			return
		}
		head, tail := b.splitFrags(frags, b.cur.avail-b.x, !b.content)
		if len(head) == 0 {
			b.finish(false)
			b.newLine(frags[0].start)
			continue
		}
		for _, f := range head {
			b.place(f, false)
		}
		b.content = true
		if len(tail) == 0 {
			return
		}
		b.finish(false)
		b.newLine(tail[0].start)
		frags = tail
	}
}

func (b *breaker) run(toks []token) []*line {
	b.newLine(0)
	for _, tok := range toks {
		switch tok.kind {
		case tokNewline:
			b.ensure(tok.start)
			b.finish(true)
		case tokSpace:
			b.ensure(tok.start)
			b.pending = append(b.pending, tok.frags...)
		case tokTab:
			b.ensure(tok.start)
			b.flushPending()
			stop := b.nextTab(b.cur.indent + b.x)
			b.x = stop - b.cur.indent
			b.content = true
		case tokWord:
			b.ensure(tok.start)
			w := tok.width()
			if b.x+b.pendingWidth()+w <= b.cur.avail+eps {
				b.flushPending()
				b.placeWord(tok.frags)
				continue
			}
			if b.content {
				b.finish(false)
				b.newLine(tok.start)
			} else if b.x+b.pendingWidth() <= b.cur.avail+eps {
				b.flushPending()
			} else {
				b.pending = nil
			}
			b.placeWord(tok.frags)
		}
	}
	if b.cur != nil {
		b.finish(true)
	}
	return b.lines
}

// alignLines 按对齐方式平移各行；两端对齐时把剩余宽度分配到行内词间空白，末行与硬换行前的行除外。
func alignLines(lines []*line, a style.Align) {
	for _, l := range lines {
		extra := l.avail - l.width
		if extra <= eps {
			continue
		}
		switch a {
		case style.AlignRight:
			shiftRuns(l.runs, extra)
		case style.AlignCenter:
			shiftRuns(l.runs, extra/2)
		case style.AlignJustify:
			if l.hard {
				continue
			}
			first := -1
			gaps := 0
			for i, r := range l.runs {
				if !r.space && first < 0 {
					first = i
				}
				if r.space && first >= 0 {
					gaps++
				}
			}
			if gaps == 0 {
				continue
			}
			add := extra / float64(gaps)
			var shift float64
			for i := range l.runs {
				l.runs[i].X += shift
				if l.runs[i].space && first >= 0 && i > first {
					l.runs[i].Width += add
					shift += add
				}
			}
			l.width = l.avail
		}
	}
}

func shiftRuns(runs []TextRun, dx float64) {
	for i := range runs {
		runs[i].X += dx
	}
}

// breakParagraph 对段落内容断行。leader 与一个制表符放在首行最前，制表位为首行缩进的相反数。
func breakParagraph(m Metrics, st style.ParagraphStyle, leader string, content markup.Text, width float64) []*line {
	g := paragraphGeometry(st, width)
	tabs := st.Tabs
	runs := content.Runs()
	if leader != "" {
		tabs = []float64{-st.FirstIndent}
		lead := []markup.Run{{Text: leader + "\t", Start: -1, End: -1}}
		runs = append(lead, runs...)
	}
	b := &breaker{m: m, base: st.Font, g: g, tabs: tabs}
	lines := b.run(tokenize(runs, st.Font, m))
	alignLines(lines, st.Align)
	return lines
}

// breakFree 对定位文本断行：只在换行符处断开，不限制宽度。
func breakFree(m Metrics, st style.ParagraphStyle, content markup.Text) []*line {
	b := &breaker{m: m, base: st.Font, g: geometry{width: noWrap}, tabs: st.Tabs}
	return b.run(tokenize(content.Runs(), st.Font, m))
}

// linesHeight 返回各行高度加行距之和。
func linesHeight(lines []*line, spacing float64) float64 {
	var h float64
	for _, l := range lines {
		h += l.height + spacing
	}
	return h
}
