package note

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ByLCY/docgen/doc"
	"github.com/ByLCY/docgen/markup"
)

// WriteMarkdown 解析 Markdown 并写入构建器。嵌套列表按出现顺序展开为同级段落，
// 图片只保留替代文字，原始 HTML 被忽略。
func WriteMarkdown(b *doc.Builder, src []byte, opts Options) error {
	w := &mdWriter{writer: writer{b: b, opts: opts.withDefaults()}, src: src}
	root := goldmark.New().Parser().Parse(text.NewReader(src))
	return w.blocks(root)
}

type mdWriter struct {
	writer
	src []byte
}

func (w *mdWriter) blocks(n ast.Node) error {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if err := w.block(c, ""); err != nil {
			return err
		}
	}
	return nil
}

// block 写入一个块级节点；leader 非空时作为列表项首段的引导文字。
func (w *mdWriter) block(n ast.Node, leader string) error {
	switch v := n.(type) {
	case *ast.Heading:
		return w.paragraph(w.opts.HeadingStyle(v.Level), "", w.inline(v))
	case *ast.Paragraph, *ast.TextBlock:
		return w.paragraph(w.opts.Style, leader, w.inline(v))
	case *ast.FencedCodeBlock:
		return w.code(w.lines(v))
	case *ast.CodeBlock:
		return w.code(w.lines(v))
	case *ast.List:
		return w.list(v)
	case *ast.Blockquote:
		return w.blocks(v)
	}
	return nil
}

func (w *mdWriter) list(l *ast.List) error {
	n := l.Start
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		leader := w.leader(l.IsOrdered(), n)
		n++
		first := item.FirstChild()
		if first == nil {
			if err := w.paragraph(w.opts.Style, leader, ""); err != nil {
				return err
			}
			continue
		}
		for c := first; c != nil; c = c.NextSibling() {
			lead := ""
			if c == first {
				lead = leader
			}
			if err := w.block(c, lead); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *mdWriter) lines(n ast.Node) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.WriteString(markup.Escape(string(seg.Value(w.src))))
	}
	return sb.String()
}

func (w *mdWriter) inline(n ast.Node) string {
	var sb strings.Builder
	w.inlineInto(&sb, n)
	return strings.TrimSpace(sb.String())
}

func (w *mdWriter) inlineString(n ast.Node) string {
	var sb strings.Builder
	w.inlineInto(&sb, n)
	return sb.String()
}

func (w *mdWriter) inlineInto(sb *strings.Builder, n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *ast.Text:
			sb.WriteString(markup.Escape(string(v.Segment.Value(w.src))))
			switch {
			case v.HardLineBreak():
				sb.WriteByte('\n')
			case v.SoftLineBreak():
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.WriteString(markup.Escape(string(v.Value)))
		case *ast.CodeSpan:
			sb.WriteString(wrap("tt", w.inlineString(v)))
		case *ast.Emphasis:
			tag := "i"
			if v.Level >= 2 {
				tag = "b"
			}
			sb.WriteString(wrap(tag, w.inlineString(v)))
		case *ast.Link:
			sb.WriteString(link(string(v.Destination), w.inlineString(v)))
		case *ast.AutoLink:
			url := string(v.URL(w.src))
			if v.AutoLinkType == ast.AutoLinkEmail && !strings.HasPrefix(url, "mailto:") {
				url = "mailto:" + url
			}
			sb.WriteString(link(url, markup.Escape(string(v.Label(w.src)))))
		case *ast.RawHTML:
		default:
			w.inlineInto(sb, c)
		}
	}
}
