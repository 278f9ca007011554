// Package note 把 Markdown 与 HTML 格式的注释转换为文档构建器调用，
// 标题、段落、列表与代码块各自成为一个段落，行内强调转换为内联标记。
package note

import (
	"fmt"
	"strings"

	"github.com/ByLCY/docgen/doc"
	"github.com/ByLCY/docgen/markup"
)

// Options 控制注释使用的样式。零值使用内置样式表中的名称。
type Options struct {
	// Style 为正文段落样式，默认 Normal。
	Style string
	// CodeStyle 为代码块样式，默认与 Style 相同，内容总是等宽。
	CodeStyle string
	// HeadingStyle 返回第 level 级标题的样式名，默认 Heading1 至 Heading3，更深的层级按第 3 级处理。
	HeadingStyle func(level int) string
	// Bullet 为无序列表的引导符。
	Bullet string
	// Links 为真时把文本中的网址转换为链接。
	Links bool
}

func (o Options) withDefaults() Options {
	if o.Style == "" {
		o.Style = "Normal"
	}
	if o.CodeStyle == "" {
		o.CodeStyle = o.Style
	}
	if o.HeadingStyle == nil {
		o.HeadingStyle = func(level int) string {
			return fmt.Sprintf("Heading%d", min(max(level, 1), 3))
		}
	}
	if o.Bullet == "" {
		o.Bullet = "•"
	}
	return o
}

type writer struct {
	b    *doc.Builder
	opts Options
}

// paragraph 写入一个段落，src 为内联标记文本。
func (w *writer) paragraph(styleName, leader, src string) error {
	if err := w.b.StartParagraph(styleName, leader); err != nil {
		return err
	}
	if src != "" {
		if err := w.b.WriteMarkup(src, nil, w.opts.Links); err != nil {
			return err
		}
	}
	w.b.EndParagraph()
	return nil
}

// code 以等宽字体写入预排版文本，保留换行与空白。
func (w *writer) code(src string) error {
	src = strings.TrimRight(src, "\n")
	if src == "" {
		return nil
	}
	if err := w.b.StartParagraph(w.opts.CodeStyle, ""); err != nil {
		return err
	}
	if err := w.b.WriteMarkup("<tt>"+src+"</tt>", nil, false); err != nil {
		return err
	}
	w.b.EndParagraph()
	return nil
}

func (w *writer) leader(ordered bool, n int) string {
	if ordered {
		return fmt.Sprintf("%d.", n)
	}
	return w.opts.Bullet
}

func wrap(tag, inner string) string {
	if inner == "" {
		return ""
	}
	return "<" + tag + ">" + inner + "</" + tag + ">"
}

func link(href, inner string) string {
	return `<a href="` + markup.Escape(href) + `">` + inner + "</a>"
}
