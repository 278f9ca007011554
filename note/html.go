package note

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ByLCY/docgen/doc"
	"github.com/ByLCY/docgen/markup"
)

var inlineTags = map[atom.Atom]string{
	atom.B:      "b",
	atom.Strong: "b",
	atom.I:      "i",
	atom.Em:     "i",
	atom.U:      "u",
	atom.Ins:    "u",
	atom.Sup:    "sup",
	atom.Sub:    "sub",
	atom.Small:  "small",
	atom.Code:   "tt",
	atom.Kbd:    "tt",
	atom.Samp:   "tt",
}

var headingLevels = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

// WriteHTML 解析 HTML 片段或完整文档并写入构建器。
// 块级元素之外的文本合并为正文段落，脚本与样式内容被忽略。
func WriteHTML(b *doc.Builder, r io.Reader, opts Options) error {
	root, err := html.Parse(r)
	if err != nil {
		return fmt.Errorf("解析 HTML 注释失败: %w", err)
	}
	w := &htmlWriter{writer: writer{b: b, opts: opts.withDefaults()}}
	if err := w.node(root); err != nil {
		return err
	}
	return w.flush(w.opts.Style)
}

type htmlWriter struct {
	writer
	pending strings.Builder
	lead    string
	pre     int
}

// flush 把累积的行内内容写成一个段落。
func (w *htmlWriter) flush(styleName string) error {
	src := w.pending.String()
	w.pending.Reset()
	if w.pre == 0 {
		src = strings.TrimSpace(src)
	}
	leader := w.lead
	if src == "" && leader == "" {
		return nil
	}
	w.lead = ""
	return w.paragraph(styleName, leader, src)
}

func (w *htmlWriter) text(s string) {
	if w.pre > 0 {
		w.pending.WriteString(markup.Escape(s))
		return
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" {
			w.pending.WriteByte(' ')
		}
		return
	}
	if s[0] == ' ' || s[0] == '\n' || s[0] == '\t' {
		w.pending.WriteByte(' ')
	}
	w.pending.WriteString(markup.Escape(strings.Join(fields, " ")))
	if last := s[len(s)-1]; last == ' ' || last == '\n' || last == '\t' {
		w.pending.WriteByte(' ')
	}
}

func (w *htmlWriter) children(n *html.Node) error {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := w.node(c); err != nil {
			return err
		}
	}
	return nil
}

func (w *htmlWriter) node(n *html.Node) error {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return nil
	case html.ElementNode:
	case html.DocumentNode:
		return w.children(n)
	default:
		return nil
	}

	if level, ok := headingLevels[n.DataAtom]; ok {
		if err := w.flush(w.opts.Style); err != nil {
			return err
		}
		if err := w.children(n); err != nil {
			return err
		}
		return w.flush(w.opts.HeadingStyle(level))
	}
	if tag, ok := inlineTags[n.DataAtom]; ok {
		return w.inline(n, "<"+tag+">", "</"+tag+">")
	}

	switch n.DataAtom {
	case atom.Head, atom.Script, atom.Style, atom.Title:
		return nil
	case atom.Br:
		w.pending.WriteByte('\n')
		return nil
	case atom.A:
		for _, a := range n.Attr {
			if a.Key == "href" && a.Val != "" {
				return w.inline(n, `<a href="`+markup.Escape(a.Val)+`">`, "</a>")
			}
		}
		return w.children(n)
	case atom.Ul, atom.Ol:
		return w.list(n)
	case atom.Pre:
		if err := w.flush(w.opts.Style); err != nil {
			return err
		}
		w.pre++
		err := w.children(n)
		src := w.pending.String()
		w.pending.Reset()
		w.pre--
		if err != nil {
			return err
		}
		return w.code(src)
	case atom.P, atom.Div, atom.Blockquote, atom.Li, atom.Tr, atom.Section, atom.Article:
		if err := w.flush(w.opts.Style); err != nil {
			return err
		}
		if err := w.children(n); err != nil {
			return err
		}
		return w.flush(w.opts.Style)
	case atom.Td, atom.Th:
		if err := w.children(n); err != nil {
			return err
		}
		w.pending.WriteByte('\t')
		return nil
	}
	return w.children(n)
}

// inline 用 open/end 标记包住元素的行内内容；元素为空时不输出标记。
func (w *htmlWriter) inline(n *html.Node, open, end string) error {
	mark := w.pending.Len()
	w.pending.WriteString(open)
	start := w.pending.Len()
	if err := w.children(n); err != nil {
		return err
	}
	if w.pending.Len() < start {
		// 内部出现了块级元素，已随段落写出。
		return nil
	}
	if w.pending.Len() == start {
		s := w.pending.String()[:mark]
		w.pending.Reset()
		w.pending.WriteString(s)
		return nil
	}
	w.pending.WriteString(end)
	return nil
}

func (w *htmlWriter) list(n *html.Node) error {
	if err := w.flush(w.opts.Style); err != nil {
		return err
	}
	ordered := n.DataAtom == atom.Ol
	i := 1
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom != atom.Li {
			continue
		}
		w.lead = w.leader(ordered, i)
		i++
		if err := w.children(c); err != nil {
			return err
		}
		if err := w.flush(w.opts.Style); err != nil {
			return err
		}
	}
	return nil
}
