package dsl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/ByLCY/docgen/binding"
	"github.com/ByLCY/docgen/doc"
	"github.com/ByLCY/docgen/markup"
	"github.com/ByLCY/docgen/media"
	"github.com/ByLCY/docgen/note"
	"github.com/ByLCY/docgen/style"
)

// Error 是带源位置的脚本错误。
type Error struct {
	Pos lexer.Position
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", e.Pos, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// errorAt 为 err 补充位置；已带位置的错误原样返回。
func errorAt(pos lexer.Position, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Pos: pos, Err: err}
}

// Options 控制脚本编译。
type Options struct {
	// Sheet 为基础样式表，nil 时使用内置样式表。styles 段在其副本上修改。
	Sheet *style.StyleSheet
	// Paper 非空时覆盖脚本中的 paper 段。
	Paper *style.PaperStyle
	// Data 为绑定数据，通常是 JSON 解码的结果。
	Data any
	// BaseDir 用于读取图片尺寸。
	BaseDir string
}

type handler func(st *Statement, sc *binding.Scope) error

type compiler struct {
	b      *doc.Builder
	images *media.Loader
}

// Compile 执行脚本，通过文档构建器生成文档树。
func Compile(d *Document, opts Options) (*doc.Document, error) {
	if d == nil {
		return nil, fmt.Errorf("脚本为空")
	}
	sheet := opts.Sheet
	if sheet == nil {
		sheet = style.Builtin()
	}
	sheet = sheet.Clone()
	sc := binding.NewScope(opts.Data)
	meta := doc.Meta{Title: d.Name}
	paper := style.DefaultPaper()

	for _, s := range d.Sections {
		var err error
		switch {
		case s.Meta != nil:
			err = compileMeta(s.Meta.Block, sc, &meta)
		case s.Paper != nil:
			paper, err = compilePaper(s.Paper, sc)
		case s.Styles != nil:
			err = compileStyles(s.Styles.Block, sc, sheet)
		}
		if err != nil {
			return nil, err
		}
	}
	if opts.Paper != nil {
		paper = *opts.Paper
	}
	if err := paper.Validate(); err != nil {
		return nil, err
	}

	c := &compiler{b: doc.NewBuilder(sheet, paper), images: media.NewLoader(opts.BaseDir)}
	c.b.SetMeta(meta)
	for _, s := range d.Sections {
		switch {
		case s.Flow != nil:
			if err := c.statements(s.Flow.Block, sc, c.flow); err != nil {
				return nil, err
			}
		case s.Page != nil:
			if err := c.b.StartPage(); err != nil {
				return nil, errorAt(s.Page.Pos, err)
			}
			if err := c.statements(s.Page.Block, sc, c.draw); err != nil {
				return nil, err
			}
			c.b.EndPage()
		}
	}
	return c.b.Finish()
}

// statements 依次执行语句；each 与 if 在任何块中都可用，并以同一个 handler 处理其主体。
func (c *compiler) statements(block *Block, sc *binding.Scope, h handler) error {
	if block == nil {
		return nil
	}
	for _, st := range block.Statements {
		var err error
		switch {
		case st.Command != nil && st.Command.Name == "each":
			err = c.each(st.Command, sc, h)
		case st.Command != nil && (st.Command.Name == "if" || st.Command.Name == "unless"):
			err = c.when(st.Command, sc, h)
		default:
			err = h(st, sc)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// each 实现 `each item in path { }` 与 `each i, item in path { }`。
func (c *compiler) each(cmd *Command, sc *binding.Scope, h handler) error {
	a := commandArgs(cmd, sc)
	name, err := a.word()
	if err != nil {
		return err
	}
	index := ""
	if l := a.peek(); l != nil && l.Raw == "," {
		a.i++
		index = name
		if name, err = a.word(); err != nil {
			return err
		}
	}
	if !a.isWord("in") {
		return a.errorf("each 需要 in")
	}
	a.i++
	path := a.rest()
	if path == "" {
		return a.errorf("each 缺少数据路径")
	}
	if cmd.Block == nil {
		return errorAt(cmd.Pos, fmt.Errorf("each 缺少循环体"))
	}
	err = sc.Each(name, path, func(i int, inner *binding.Scope) error {
		if index != "" {
			inner = inner.With(index, float64(i))
		}
		return c.statements(cmd.Block, inner, h)
	})
	return errorAt(cmd.Pos, err)
}

// when 实现 `if path { }` 与 `unless path { }`。
func (c *compiler) when(cmd *Command, sc *binding.Scope, h handler) error {
	a := commandArgs(cmd, sc)
	path := a.rest()
	if path == "" {
		return errorAt(cmd.Pos, fmt.Errorf("%s 缺少条件", cmd.Name))
	}
	if sc.Truthy(path) == (cmd.Name == "unless") {
		return nil
	}
	return c.statements(cmd.Block, sc, h)
}

// flow 处理正文语句。正文中的裸字符串是一个 Normal 段落。
func (c *compiler) flow(st *Statement, sc *binding.Scope) error {
	switch {
	case st.Text != nil:
		if err := c.b.StartParagraph("Normal", ""); err != nil {
			return errorAt(st.Text.Pos, err)
		}
		if err := c.b.WriteMarkup(sc.Expand(string(st.Text.Value), markup.Escape), nil, false); err != nil {
			return errorAt(st.Text.Pos, err)
		}
		c.b.EndParagraph()
		return nil
	case st.Assignment != nil:
		return errorAt(st.Assignment.Pos, fmt.Errorf("正文中不能赋值 %s", st.Assignment.Key))
	}
	cmd := st.Command
	var err error
	switch cmd.Name {
	case "para", "paragraph":
		err = c.paragraph(cmd, sc)
	case "heading":
		err = c.heading(cmd, sc)
	case "note":
		err = c.note(cmd, sc)
	case "table":
		err = c.table(cmd, sc)
	case "image":
		err = c.image(cmd, sc)
	case "toc":
		err = c.marker(cmd, c.b.InsertTOC)
	case "index":
		err = c.marker(cmd, c.b.InsertIndex)
	case "pagebreak":
		err = c.marker(cmd, c.b.PageBreak)
	default:
		err = fmt.Errorf("未知命令 %s", cmd.Name)
	}
	return errorAt(cmd.Pos, err)
}

func (c *compiler) marker(cmd *Command, insert func() error) error {
	if len(cmd.Args) > 0 || cmd.Block != nil {
		return fmt.Errorf("%s 不接受参数", cmd.Name)
	}
	return insert()
}

// inline 写入段落中的文字，mark 只附加在第一段文字上。
type inline struct {
	c     *compiler
	mark  *doc.IndexMark
	links bool
}

func (in *inline) write(src string) error {
	err := in.c.b.WriteMarkup(src, in.mark, in.links)
	in.mark = nil
	return err
}

func (in *inline) handle(st *Statement, sc *binding.Scope) error {
	switch {
	case st.Text != nil:
		return errorAt(st.Text.Pos, in.write(sc.Expand(string(st.Text.Value), markup.Escape)))
	case st.Assignment != nil:
		return errorAt(st.Assignment.Pos, fmt.Errorf("段落中不能赋值 %s", st.Assignment.Key))
	}
	cmd := st.Command
	a := commandArgs(cmd, sc)
	switch cmd.Name {
	case "bold", "sup":
		start, end := in.c.b.StartBold, in.c.b.EndBold
		if cmd.Name == "sup" {
			start, end = in.c.b.StartSuperscript, in.c.b.EndSuperscript
		}
		if err := start(); err != nil {
			return errorAt(cmd.Pos, err)
		}
		if a.isText() {
			s, err := a.text(markup.Escape)
			if err != nil {
				return err
			}
			if err := in.write(s); err != nil {
				return errorAt(cmd.Pos, err)
			}
		}
		if err := in.c.statements(cmd.Block, sc, in.handle); err != nil {
			return err
		}
		end()
		return a.end()
	case "plain":
		s, err := a.text(nil)
		if err != nil {
			return err
		}
		err = in.c.b.WriteText(s, in.mark, in.links)
		in.mark = nil
		return errorAt(cmd.Pos, err)
	}
	return errorAt(cmd.Pos, fmt.Errorf("段落中未知命令 %s", cmd.Name))
}

// markOptions 返回 mark/toc/target 选项，读取到的标记写入 *dst。
func markOptions(a *args, dst **doc.IndexMark, links *bool) map[string]func() error {
	mark := func(typ doc.MarkType) func() error {
		return func() error {
			key, err := a.text(nil)
			if err != nil {
				return err
			}
			m := doc.NewIndexMark(key, typ)
			*dst = &m
			return nil
		}
	}
	return map[string]func() error{
		"mark":   mark(doc.MarkAlphabetical),
		"toc":    mark(doc.MarkTOC),
		"target": mark(doc.MarkLocalTarget),
		"links": func() error {
			*links = true
			return nil
		},
	}
}

// paragraph 实现 `para [Style] [leader "x"] [mark "k"] [links] ["text"] { ... }`。
func (c *compiler) paragraph(cmd *Command, sc *binding.Scope) error {
	a := commandArgs(cmd, sc)
	in := &inline{c: c}
	leader := ""
	opts := markOptions(a, &in.mark, &in.links)
	opts["leader"] = func() error {
		var err error
		leader, err = a.text(nil)
		return err
	}
	styleName := a.name(opts)
	if styleName == "" {
		styleName = "Normal"
	}
	content, err := a.mixed(opts, markup.Escape)
	if err != nil {
		return err
	}
	if err := c.b.StartParagraph(styleName, leader); err != nil {
		return err
	}
	for _, s := range content {
		if err := in.write(s); err != nil {
			return err
		}
	}
	if err := c.statements(cmd.Block, sc, in.handle); err != nil {
		return err
	}
	c.b.EndParagraph()
	return nil
}

// heading 实现 `heading N "text" [style Name]`，标题自动进入目录。
func (c *compiler) heading(cmd *Command, sc *binding.Scope) error {
	a := commandArgs(cmd, sc)
	level, err := a.integer()
	if err != nil {
		return err
	}
	if level < 1 {
		return a.errorf("标题层级必须从 1 开始")
	}
	src, err := a.text(markup.Escape)
	if err != nil {
		return err
	}
	styleName := fmt.Sprintf("Heading%d", level)
	if err := a.options(map[string]func() error{
		"style": func() error {
			styleName, err = a.word()
			return err
		},
	}); err != nil {
		return err
	}
	t, err := markup.Parse(src)
	if err != nil {
		return err
	}
	mark := doc.NewIndexMark(t.Plain, doc.MarkTOC)
	mark.Level = level
	if err := c.b.StartParagraph(styleName, ""); err != nil {
		return err
	}
	if err := c.b.WriteMarkup(src, &mark, false); err != nil {
		return err
	}
	c.b.EndParagraph()
	return nil
}

// note 实现 `note [Style] flowed|preformatted|markdown|html [links] { "..." }`。
func (c *compiler) note(cmd *Command, sc *binding.Scope) error {
	a := commandArgs(cmd, sc)
	formats := map[string]func() error{"flowed": nil, "preformatted": nil, "markdown": nil, "html": nil}
	styleName := a.name(formats)
	if styleName == "" {
		styleName = "Normal"
	}
	format, err := a.word()
	if err != nil {
		return err
	}
	if _, ok := formats[format]; !ok {
		return a.errorf("未知注释格式 %s", format)
	}
	links := false
	if err := a.options(map[string]func() error{
		"links": func() error {
			links = true
			return nil
		},
	}); err != nil {
		return err
	}
	escape := markup.Escape
	if format == "markdown" || format == "html" {
		escape = nil
	}
	var parts []string
	if err := c.statements(cmd.Block, sc, func(st *Statement, sc *binding.Scope) error {
		if st.Text == nil {
			return errorAt(cmd.Pos, fmt.Errorf("注释中只能包含字符串"))
		}
		parts = append(parts, sc.Expand(string(st.Text.Value), escape))
		return nil
	}); err != nil {
		return err
	}
	src := strings.Join(parts, "\n")
	opts := note.Options{Style: styleName, Links: links}
	switch format {
	case "flowed":
		return c.b.WriteStyledNote(src, doc.Flowed, styleName, links)
	case "preformatted":
		return c.b.WriteStyledNote(src, doc.Preformatted, styleName, links)
	case "markdown":
		return note.WriteMarkdown(c.b, []byte(src), opts)
	default:
		return note.WriteHTML(c.b, strings.NewReader(src), opts)
	}
}

// table 实现 `table [Style] [name n] { row { cell ... } }`。
func (c *compiler) table(cmd *Command, sc *binding.Scope) error {
	a := commandArgs(cmd, sc)
	name := ""
	opts := map[string]func() error{
		"name": func() error {
			var err error
			name, err = a.text(nil)
			return err
		},
	}
	styleName := a.name(opts)
	if styleName == "" {
		styleName = "Table"
	}
	if err := a.options(opts); err != nil {
		return err
	}
	if err := c.b.StartTable(name, styleName); err != nil {
		return err
	}
	if err := c.statements(cmd.Block, sc, c.row); err != nil {
		return err
	}
	c.b.EndTable()
	return nil
}

func (c *compiler) row(st *Statement, sc *binding.Scope) error {
	if st.Command == nil || st.Command.Name != "row" {
		return errorAt(statementPos(st), fmt.Errorf("表格中只能包含 row"))
	}
	cmd := st.Command
	if len(cmd.Args) > 0 {
		return commandArgs(cmd, sc).errorf("row 不接受参数")
	}
	if err := c.b.StartRow(); err != nil {
		return errorAt(cmd.Pos, err)
	}
	if err := c.statements(cmd.Block, sc, c.cell); err != nil {
		return err
	}
	c.b.EndRow()
	return nil
}

// cell 实现 `cell [Style] [span n] ["text"] { ... }`。
func (c *compiler) cell(st *Statement, sc *binding.Scope) error {
	if st.Command == nil || st.Command.Name != "cell" {
		return errorAt(statementPos(st), fmt.Errorf("行中只能包含 cell"))
	}
	cmd := st.Command
	a := commandArgs(cmd, sc)
	span := 1
	opts := map[string]func() error{
		"span": func() error {
			var err error
			span, err = a.integer()
			return err
		},
	}
	styleName := a.name(opts)
	if styleName == "" {
		styleName = "Cell"
	}
	content, err := a.mixed(opts, markup.Escape)
	if err != nil {
		return err
	}
	if err := c.b.StartCell(styleName, span); err != nil {
		return errorAt(cmd.Pos, err)
	}
	for _, s := range content {
		if err := c.b.WriteMarkup(s, nil, false); err != nil {
			return errorAt(cmd.Pos, err)
		}
	}
	if err := c.statements(cmd.Block, sc, func(st *Statement, sc *binding.Scope) error {
		if st.Text != nil {
			return errorAt(st.Text.Pos, c.b.WriteMarkup(sc.Expand(string(st.Text.Value), markup.Escape), nil, false))
		}
		return c.flow(st, sc)
	}); err != nil {
		return err
	}
	c.b.EndCell()
	return nil
}

// image 实现 `image "path" [left|right|center|single] [width L] [height L] [alt "x"] [style S] [crop l t r b]`。
// 宽高缺失时按图片像素比例补全，都缺失时以可用区域为上限。
func (c *compiler) image(cmd *Command, sc *binding.Scope) error {
	a := commandArgs(cmd, sc)
	path, err := a.text(nil)
	if err != nil {
		return err
	}
	var (
		align, alt, styleName string
		width, height         float64
		crop                  *doc.Crop
	)
	setAlign := func(v string) func() error {
		return func() error {
			align = v
			return nil
		}
	}
	if err := a.options(map[string]func() error{
		"left":   setAlign("left"),
		"right":  setAlign("right"),
		"center": setAlign("center"),
		"single": setAlign("single"),
		"width": func() error {
			width, err = a.length()
			return err
		},
		"height": func() error {
			height, err = a.length()
			return err
		},
		"alt": func() error {
			alt, err = a.text(nil)
			return err
		},
		"style": func() error {
			styleName, err = a.word()
			return err
		},
		"crop": func() error {
			var v [4]float64
			for i := range v {
				if v[i], err = a.number(); err != nil {
					return err
				}
			}
			crop = &doc.Crop{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}
			return nil
		},
	}); err != nil {
		return err
	}
	if width <= 0 || height <= 0 {
		px, py, err := media.Size(c.images.Resolve(path))
		if err != nil {
			return err
		}
		if width <= 0 && height <= 0 {
			width, height = c.b.Paper().UsableWidth(), c.b.Paper().UsableHeight()
		}
		width, height = media.FitSize(width, height, px, py)
	}
	return c.b.AddMedia(path, align, width, height, alt, styleName, crop)
}

// draw 处理绘图页语句，坐标相对于可用区域左上角。
func (c *compiler) draw(st *Statement, sc *binding.Scope) error {
	if st.Command == nil {
		return errorAt(statementPos(st), fmt.Errorf("绘图页中只能包含绘图命令"))
	}
	cmd := st.Command
	a := commandArgs(cmd, sc)
	styleName, err := a.word()
	if err != nil {
		return err
	}
	var mark *doc.IndexMark
	links := false
	marks := markOptions(a, &mark, &links)
	delete(marks, "links")

	switch cmd.Name {
	case "line":
		v, err := a.lengths(4)
		if err != nil {
			return err
		}
		if err := a.end(); err != nil {
			return err
		}
		return errorAt(cmd.Pos, c.b.DrawLine(styleName, v[0], v[1], v[2], v[3]))
	case "path":
		var pts []doc.Point
		for a.more() {
			v, err := a.lengths(2)
			if err != nil {
				return err
			}
			pts = append(pts, doc.Point{X: v[0], Y: v[1]})
		}
		return errorAt(cmd.Pos, c.b.DrawPath(styleName, pts))
	case "box":
		v, err := a.lengths(4)
		if err != nil {
			return err
		}
		text := ""
		if a.isText() {
			if text, err = a.text(nil); err != nil {
				return err
			}
		}
		if err := a.options(marks); err != nil {
			return err
		}
		return errorAt(cmd.Pos, c.b.DrawBox(styleName, text, v[0], v[1], v[2], v[3], mark))
	case "text", "center":
		v, err := a.lengths(2)
		if err != nil {
			return err
		}
		text, err := a.text(nil)
		if err != nil {
			return err
		}
		if err := a.options(marks); err != nil {
			return err
		}
		if cmd.Name == "center" {
			return errorAt(cmd.Pos, c.b.CenterText(styleName, text, v[0], v[1], mark))
		}
		return errorAt(cmd.Pos, c.b.DrawText(styleName, text, v[0], v[1], mark))
	case "rotate":
		v, err := a.lengths(2)
		if err != nil {
			return err
		}
		angle, err := a.number()
		if err != nil {
			return err
		}
		var lines []string
		for a.isText() {
			s, err := a.text(nil)
			if err != nil {
				return err
			}
			lines = append(lines, s)
		}
		if err := a.options(marks); err != nil {
			return err
		}
		return errorAt(cmd.Pos, c.b.RotateText(styleName, lines, v[0], v[1], angle, mark))
	}
	return errorAt(cmd.Pos, fmt.Errorf("未知绘图命令 %s", cmd.Name))
}

func statementPos(st *Statement) lexer.Position {
	switch {
	case st.Command != nil:
		return st.Command.Pos
	case st.Assignment != nil:
		return st.Assignment.Pos
	case st.Text != nil:
		return st.Text.Pos
	}
	return lexer.Position{}
}
