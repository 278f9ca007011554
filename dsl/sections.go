package dsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/docgen/binding"
	"github.com/ByLCY/docgen/doc"
	"github.com/ByLCY/docgen/layout"
	"github.com/ByLCY/docgen/style"
)

// valueText 求值赋值的右侧。表达式先按数据路径查找，未绑定时按原文处理，
// 这样 `align: center` 与 `title: report.title` 可以使用同一种写法。
func valueText(v *Value, sc *binding.Scope) string {
	switch {
	case v.String != nil:
		return sc.Expand(string(*v.String), nil)
	case v.Number != nil:
		return *v.Number
	case v.Color != nil:
		return *v.Color
	case v.Expr != nil:
		path := v.Expr.Path()
		if val, ok := sc.Lookup(path); ok {
			return binding.Format(val)
		}
		return path
	case v.Array != nil:
		parts := make([]string, 0, len(v.Array.Values))
		for _, item := range v.Array.Values {
			parts = append(parts, valueText(item, sc))
		}
		return strings.Join(parts, " ")
	}
	return ""
}

// valueList 返回数组的每一项；非数组时按逗号或空白拆分。
func valueList(v *Value, sc *binding.Scope) []string {
	if v.Array != nil {
		out := make([]string, 0, len(v.Array.Values))
		for _, item := range v.Array.Values {
			out = append(out, valueText(item, sc))
		}
		return out
	}
	return strings.FieldsFunc(valueText(v, sc), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

func compileMeta(block *Block, sc *binding.Scope, meta *doc.Meta) error {
	for _, st := range block.Statements {
		as := st.Assignment
		if as == nil {
			return errorAt(statementPos(st), fmt.Errorf("meta 中只能赋值"))
		}
		switch as.Key {
		case "title":
			meta.Title = valueText(as.Value, sc)
		case "author":
			meta.Author = valueText(as.Value, sc)
		case "subject":
			meta.Subject = valueText(as.Value, sc)
		case "creator":
			meta.Creator = valueText(as.Value, sc)
		case "keywords":
			meta.Keywords = valueList(as.Value, sc)
		default:
			return errorAt(as.Pos, fmt.Errorf("未知元信息 %s", as.Key))
		}
	}
	return nil
}

// compilePaper 解析 `paper A4 [portrait|landscape] [margin L] [left|right|top|bottom L]`，
// 自定义纸张写作 `paper custom W H ...`。
func compilePaper(p *PaperSection, sc *binding.Scope) (style.PaperStyle, error) {
	a := &args{pos: p.Pos, list: p.Params, sc: sc}
	var size style.PaperSize
	if strings.EqualFold(p.Size, "custom") {
		v, err := a.lengths(2)
		if err != nil {
			return style.PaperStyle{}, err
		}
		size = style.PaperSize{Name: "custom", Width: v[0], Height: v[1]}
	} else {
		var err error
		if size, err = style.PaperByName(p.Size); err != nil {
			return style.PaperStyle{}, errorAt(p.Pos, err)
		}
	}
	paper := style.NewPaperStyle(size, style.Portrait)
	margin := func(dst ...*float64) func() error {
		return func() error {
			v, err := a.length()
			for _, d := range dst {
				*d = v
			}
			return err
		}
	}
	err := a.options(map[string]func() error{
		"portrait": func() error {
			paper.Orientation = style.Portrait
			return nil
		},
		"landscape": func() error {
			paper.Orientation = style.Landscape
			return nil
		},
		"margin": margin(&paper.TopMargin, &paper.BottomMargin, &paper.LeftMargin, &paper.RightMargin),
		"left":   margin(&paper.LeftMargin),
		"right":  margin(&paper.RightMargin),
		"top":    margin(&paper.TopMargin),
		"bottom": margin(&paper.BottomMargin),
	})
	return paper, err
}

// compileStyles 处理 styles 段：
//
//	para Name [from Base] { key: value }
//	cell Name [from Base] { ... }
//	table Name [from Base] { ... }
//	draw Name [from Base] { ... }
//
// 没有 from 时从同名样式（不存在时为默认值）开始修改。
func compileStyles(block *Block, sc *binding.Scope, sheet *style.StyleSheet) error {
	for _, st := range block.Statements {
		cmd := st.Command
		if cmd == nil {
			return errorAt(statementPos(st), fmt.Errorf("styles 中只能定义样式"))
		}
		a := commandArgs(cmd, sc)
		name, err := a.word()
		if err != nil {
			return err
		}
		base := name
		if a.isWord("from") {
			a.i++
			if base, err = a.word(); err != nil {
				return err
			}
		}
		if err := a.end(); err != nil {
			return err
		}
		var entries []*Assignment
		if cmd.Block != nil {
			for _, s := range cmd.Block.Statements {
				if s.Assignment == nil {
					return errorAt(statementPos(s), fmt.Errorf("样式 %s 中只能赋值", name))
				}
				entries = append(entries, s.Assignment)
			}
		}
		switch cmd.Name {
		case "para":
			err = paraStyle(sheet, name, base, entries, sc)
		case "cell":
			err = cellStyle(sheet, name, base, entries, sc)
		case "table":
			err = tableStyle(sheet, name, base, entries, sc)
		case "draw":
			err = drawStyle(sheet, name, base, entries, sc)
		default:
			err = fmt.Errorf("未知样式类别 %s", cmd.Name)
		}
		if err != nil {
			return errorAt(cmd.Pos, err)
		}
	}
	return nil
}

// setter 把赋值文本写入样式字段。
type setter func(s string) error

func apply(entries []*Assignment, sc *binding.Scope, setters map[string]setter) error {
	for _, as := range entries {
		set, ok := setters[as.Key]
		if !ok {
			return errorAt(as.Pos, fmt.Errorf("未知样式属性 %s", as.Key))
		}
		if err := set(valueText(as.Value, sc)); err != nil {
			return errorAt(as.Pos, fmt.Errorf("%s: %w", as.Key, err))
		}
	}
	return nil
}

func setLength(dst *float64) setter {
	return func(s string) error {
		l, err := layout.ParseLength(s)
		if err != nil {
			return err
		}
		*dst = l.CM()
		return nil
	}
}

func setPoints(dst *float64) setter {
	return func(s string) error {
		l, err := layout.ParseLength(s)
		if err != nil {
			return err
		}
		if l.Unit == layout.UnitNone {
			*dst = l.Value
		} else {
			*dst = l.PT()
		}
		return nil
	}
}

func setNumber(dst *float64) setter {
	return func(s string) error {
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

func setBool(dst *bool) setter {
	return func(s string) error {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

func setColor(dst *style.Color) setter {
	return func(s string) error {
		c, err := style.ParseColor(s)
		if err != nil {
			return err
		}
		*dst = c
		return nil
	}
}

// setBorders 接受 all、none 或 top/right/bottom/left 的组合。
func setBorders(top, right, bottom, left *bool) setter {
	return func(s string) error {
		*top, *right, *bottom, *left = false, false, false, false
		for _, side := range strings.Fields(strings.ReplaceAll(s, ",", " ")) {
			switch side {
			case "all":
				*top, *right, *bottom, *left = true, true, true, true
			case "none":
			case "top":
				*top = true
			case "right":
				*right = true
			case "bottom":
				*bottom = true
			case "left":
				*left = true
			default:
				return fmt.Errorf("未知边框 %q", side)
			}
		}
		return nil
	}
}

func paraStyle(sheet *style.StyleSheet, name, base string, entries []*Assignment, sc *binding.Scope) error {
	p := style.NewParagraphStyle()
	if sheet.HasParagraphStyle(base) || base != name {
		var err error
		if p, err = sheet.ParagraphStyle(base); err != nil {
			return err
		}
	}
	err := apply(entries, sc, map[string]setter{
		"face": func(s string) error {
			switch s {
			case "serif":
				p.Font.Face = style.Serif
			case "sans", "sans-serif":
				p.Font.Face = style.SansSerif
			case "mono", "monospace":
				p.Font.Face = style.Monospace
			default:
				return fmt.Errorf("未知字体 %q", s)
			}
			return nil
		},
		"size":      setPoints(&p.Font.Size),
		"bold":      setBool(&p.Font.Bold),
		"italic":    setBool(&p.Font.Italic),
		"underline": setBool(&p.Font.Underline),
		"color":     setColor(&p.Font.Color),
		"align": func(s string) error {
			var err error
			p.Align, err = style.ParseAlign(s)
			return err
		},
		"left":   setLength(&p.LeftMargin),
		"right":  setLength(&p.RightMargin),
		"top":    setLength(&p.TopMargin),
		"bottom": setLength(&p.BottomMargin),
		"indent": setLength(&p.FirstIndent),
		"pad":    setLength(&p.Padding),
		"bg":     setColor(&p.BgColor),
		"level": func(s string) error {
			var err error
			p.Level, err = strconv.Atoi(s)
			return err
		},
		"borders": setBorders(&p.TopBorder, &p.RightBorder, &p.BottomBorder, &p.LeftBorder),
		"tabs": func(s string) error {
			p.Tabs = nil
			for _, f := range strings.Fields(s) {
				var v float64
				if err := setLength(&v)(f); err != nil {
					return err
				}
				p.Tabs = append(p.Tabs, v)
			}
			return nil
		},
		"description": func(s string) error {
			p.Description = s
			return nil
		},
	})
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	sheet.AddParagraphStyle(name, p)
	return nil
}

func cellStyle(sheet *style.StyleSheet, name, base string, entries []*Assignment, sc *binding.Scope) error {
	c := style.NewTableCellStyle()
	if sheet.HasCellStyle(base) || base != name {
		var err error
		if c, err = sheet.CellStyle(base); err != nil {
			return err
		}
	}
	err := apply(entries, sc, map[string]setter{
		"pad":      setLength(&c.Padding),
		"borders":  setBorders(&c.TopBorder, &c.RightBorder, &c.BottomBorder, &c.LeftBorder),
		"longlist": setBool(&c.LongList),
	})
	if err != nil {
		return err
	}
	sheet.AddCellStyle(name, c)
	return nil
}

func tableStyle(sheet *style.StyleSheet, name, base string, entries []*Assignment, sc *binding.Scope) error {
	t := style.NewTableStyle()
	if sheet.HasTableStyle(base) || base != name {
		var err error
		if t, err = sheet.TableStyle(base); err != nil {
			return err
		}
	}
	err := apply(entries, sc, map[string]setter{
		"width": setNumber(&t.Width),
		"columns": func(s string) error {
			fields := strings.Fields(s)
			t.SetColumns(len(fields))
			for i, f := range fields {
				var v float64
				if err := setNumber(&v)(f); err != nil {
					return err
				}
				t.SetColumnWidth(i, v)
			}
			return nil
		},
	})
	if err != nil {
		return err
	}
	sheet.AddTableStyle(name, t)
	return nil
}

func drawStyle(sheet *style.StyleSheet, name, base string, entries []*Assignment, sc *binding.Scope) error {
	g := style.NewGraphicsStyle()
	if _, err := sheet.DrawStyle(base); err == nil {
		g, _ = sheet.DrawStyle(base)
	} else if base != name {
		return err
	}
	err := apply(entries, sc, map[string]setter{
		"width": setPoints(&g.LineWidth),
		"line": func(s string) error {
			var err error
			g.LineStyle, err = style.ParseLineStyle(s)
			return err
		},
		"color":       setColor(&g.Color),
		"fill":        setColor(&g.Fill),
		"shadow":      setBool(&g.Shadow),
		"shadowspace": setLength(&g.ShadowSpace),
		"para": func(s string) error {
			g.ParagraphStyle = s
			return nil
		},
	})
	if err != nil {
		return err
	}
	sheet.AddDrawStyle(name, g)
	return nil
}
