package doc

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/ByLCY/docgen/markup"
)

var urlPattern = regexp.MustCompile(`(?:(?:https?|ftp)://|mailto:|www\.)[^\s<>"]+`)

// linkify 为纯文本中的 URL 添加链接跨度，已有链接的区间保持不变。
func linkify(t *markup.Text) {
	for _, loc := range urlPattern.FindAllStringIndex(t.Plain, -1) {
		start, end := loc[0], loc[1]
		// 句末标点不属于链接
		for end > start && strings.ContainsRune(".,;:!?)", rune(t.Plain[end-1])) {
			end--
		}
		if end <= start || overlapsLink(t.Spans, start, end) {
			continue
		}
		href := t.Plain[start:end]
		if strings.HasPrefix(href, "www.") {
			href = "http://" + href
		}
		t.AddSpan(markup.Span{Start: start, End: end, Attr: markup.Link, Href: href})
	}
}

func overlapsLink(spans []markup.Span, start, end int) bool {
	for _, s := range spans {
		if s.Attr&markup.Link != 0 && s.Start < end && start < s.End {
			return true
		}
	}
	return false
}

// collapseSpace 压缩每行内的连续空白并去掉行首行尾空白，保留换行与属性跨度。
func collapseSpace(t markup.Text) markup.Text {
	var (
		out     markup.Text
		pending bool
		inLine  bool
	)
	for _, r := range t.Runs() {
		var b strings.Builder
		lead := 0
		for _, ch := range r.Text {
			switch {
			case ch == '\n':
				b.WriteByte('\n')
				pending, inLine = false, false
			case unicode.IsSpace(ch):
				pending = inLine
			default:
				if pending {
					if b.Len() == 0 {
						lead = 1
					}
					b.WriteByte(' ')
					pending = false
				}
				b.WriteRune(ch)
				inLine = true
			}
		}
		start := out.Len()
		out.AppendString(b.String())
		if r.Attr != 0 || r.Href != "" || r.Color != nil {
			out.AddSpan(markup.Span{Start: start + lead, End: out.Len(), Attr: r.Attr, Href: r.Href, Color: r.Color})
		}
	}
	return out
}

// splitParagraphs 按空行切分文本，跨度随之切分。
func splitParagraphs(t markup.Text) []markup.Text {
	var parts []markup.Text
	pos := 0
	for {
		i := strings.Index(t.Plain[pos:], "\n\n")
		if i < 0 {
			parts = append(parts, t.Slice(pos, t.Len()))
			return parts
		}
		parts = append(parts, t.Slice(pos, pos+i))
		pos += i + 2
	}
}
