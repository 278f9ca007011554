// Package markup 解析段落内联标记（<b> <i> <u> <sup> <sub> <small> <tt> <a href> <span foreground>
// 与字符实体），得到纯文本与按字节区间记录的属性跨度。
package markup

import (
	"sort"
	"strings"

	"github.com/ByLCY/docgen/style"
)

// Attr 是可叠加的字符属性位集合。
type Attr uint16

const (
	Bold Attr = 1 << iota
	Italic
	Underline
	Superscript
	Subscript
	Small
	Mono
	Link
)

var attrTags = []struct {
	attr Attr
	tag  string
}{
	{Bold, "b"},
	{Italic, "i"},
	{Underline, "u"},
	{Superscript, "sup"},
	{Subscript, "sub"},
	{Small, "small"},
	{Mono, "tt"},
}

// Span 记录一段文本 [Start, End) 上的属性，偏移量为 Plain 的字节下标。
type Span struct {
	Start int          `json:"start"`
	End   int          `json:"end"`
	Attr  Attr         `json:"attr"`
	Href  string       `json:"href,omitempty"`
	Color *style.Color `json:"color,omitempty"`
}

// Text 纯文本加属性跨度。零值为空文本。
type Text struct {
	Plain string
	Spans []Span
}

// Plain 构造没有任何属性的文本。
func Plain(s string) Text { return Text{Plain: s} }

// Len 返回纯文本字节数。
func (t Text) Len() int { return len(t.Plain) }

// Append 追加另一段文本，跨度整体平移。
func (t *Text) Append(o Text) {
	off := len(t.Plain)
	t.Plain += o.Plain
	for _, s := range o.Spans {
		s.Start += off
		s.End += off
		t.Spans = append(t.Spans, s)
	}
}

// AppendString 追加纯文本。
func (t *Text) AppendString(s string) { t.Plain += s }

// AddSpan 添加属性跨度，空区间被忽略。
func (t *Text) AddSpan(s Span) {
	if s.End <= s.Start {
		return
	}
	t.Spans = append(t.Spans, s)
}

// Slice 返回 [start, end) 子文本，跨度被裁剪并平移。
func (t Text) Slice(start, end int) Text {
	if start < 0 {
		start = 0
	}
	if end > len(t.Plain) {
		end = len(t.Plain)
	}
	if start >= end {
		return Text{}
	}
	out := Text{Plain: t.Plain[start:end]}
	for _, s := range t.Spans {
		lo, hi := max(s.Start, start), min(s.End, end)
		if lo >= hi {
			continue
		}
		s.Start, s.End = lo-start, hi-start
		out.Spans = append(out.Spans, s)
	}
	return out
}

// Run 是属性一致的一段连续文本。
type Run struct {
	Text  string
	Start int
	End   int
	Attr  Attr
	Href  string
	Color *style.Color
}

// Runs 按属性变化切分文本。后添加（更内层）的链接与颜色覆盖先前的。
func (t Text) Runs() []Run {
	if t.Plain == "" {
		return nil
	}
	cuts := map[int]bool{0: true, len(t.Plain): true}
	for _, s := range t.Spans {
		cuts[s.Start] = true
		cuts[s.End] = true
	}
	pts := make([]int, 0, len(cuts))
	for p := range cuts {
		if p >= 0 && p <= len(t.Plain) {
			pts = append(pts, p)
		}
	}
	sort.Ints(pts)
	var runs []Run
	for i := 0; i+1 < len(pts); i++ {
		lo, hi := pts[i], pts[i+1]
		if lo == hi {
			continue
		}
		r := Run{Text: t.Plain[lo:hi], Start: lo, End: hi}
		for _, s := range t.Spans {
			if s.Start <= lo && s.End >= hi {
				r.Attr |= s.Attr
				if s.Href != "" {
					r.Href = s.Href
				}
				if s.Color != nil {
					r.Color = s.Color
				}
			}
		}
		if n := len(runs); n > 0 && runs[n-1].End == lo && sameRun(runs[n-1], r) {
			runs[n-1].Text += r.Text
			runs[n-1].End = hi
			continue
		}
		runs = append(runs, r)
	}
	return runs
}

func sameRun(a, b Run) bool {
	if a.Attr != b.Attr || a.Href != b.Href {
		return false
	}
	if (a.Color == nil) != (b.Color == nil) {
		return false
	}
	return a.Color == nil || *a.Color == *b.Color
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

// Escape 转义标记中的特殊字符。
func Escape(s string) string { return escaper.Replace(s) }

// String 将文本重新序列化为标记字符串，每个 Run 独立包裹标签。
func (t Text) String() string {
	var b strings.Builder
	for _, r := range t.Runs() {
		var closing []string
		if r.Href != "" {
			b.WriteString(`<a href="` + Escape(r.Href) + `">`)
			closing = append(closing, "</a>")
		}
		if r.Color != nil {
			b.WriteString(`<span foreground="` + r.Color.Hex() + `">`)
			closing = append(closing, "</span>")
		}
		for _, at := range attrTags {
			if r.Attr&at.attr != 0 {
				b.WriteString("<" + at.tag + ">")
				closing = append(closing, "</"+at.tag+">")
			}
		}
		b.WriteString(Escape(r.Text))
		for i := len(closing) - 1; i >= 0; i-- {
			b.WriteString(closing[i])
		}
	}
	return b.String()
}

// MarshalText 使文本在调试 JSON 中以标记字符串呈现。
func (t Text) MarshalText() ([]byte, error) { return []byte(t.String()), nil }
