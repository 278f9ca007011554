package style

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// 样式表 XML 格式：
//
//	<stylelist>
//	  <sheet name="...">
//	    <style name="..."><font .../><para .../></style>
//	    <table name="..." width="100" columns="2"><column width="30"/>...</table>
//	    <cell name="..." lborder="1" .../>
//	    <draw name="..." lwidth="0.5" .../>
//	  </sheet>
//	</stylelist>
//
// 缺省的属性保持原值不变（旧文件可能没有 tmargin/bmargin）。

type xmlStyleList struct {
	XMLName xml.Name   `xml:"stylelist"`
	Sheets  []xmlSheet `xml:"sheet"`
}

type xmlSheet struct {
	Name   string     `xml:"name,attr"`
	Styles []xmlStyle `xml:"style"`
	Tables []xmlTable `xml:"table"`
	Cells  []xmlCell  `xml:"cell"`
	Draws  []xmlDraw  `xml:"draw"`
}

type xmlStyle struct {
	Name string   `xml:"name,attr"`
	Font *xmlFont `xml:"font"`
	Para *xmlPara `xml:"para"`
}

type xmlFont struct {
	Face      string `xml:"face,attr,omitempty"`
	Size      string `xml:"size,attr,omitempty"`
	Italic    string `xml:"italic,attr,omitempty"`
	Bold      string `xml:"bold,attr,omitempty"`
	Underline string `xml:"underline,attr,omitempty"`
	Color     string `xml:"color,attr,omitempty"`
}

type xmlPara struct {
	Description string `xml:"description,attr,omitempty"`
	RMargin     string `xml:"rmargin,attr,omitempty"`
	LMargin     string `xml:"lmargin,attr,omitempty"`
	First       string `xml:"first,attr,omitempty"`
	TMargin     string `xml:"tmargin,attr,omitempty"`
	BMargin     string `xml:"bmargin,attr,omitempty"`
	Pad         string `xml:"pad,attr,omitempty"`
	BgColor     string `xml:"bgcolor,attr,omitempty"`
	Level       string `xml:"level,attr,omitempty"`
	Align       string `xml:"align,attr,omitempty"`
	TBorder     string `xml:"tborder,attr,omitempty"`
	LBorder     string `xml:"lborder,attr,omitempty"`
	RBorder     string `xml:"rborder,attr,omitempty"`
	BBorder     string `xml:"bborder,attr,omitempty"`
	Tabs        string `xml:"tabs,attr,omitempty"`
}

type xmlTable struct {
	Name    string      `xml:"name,attr"`
	Width   string      `xml:"width,attr,omitempty"`
	Columns string      `xml:"columns,attr,omitempty"`
	Column  []xmlColumn `xml:"column"`
}

type xmlColumn struct {
	Width string `xml:"width,attr"`
}

type xmlCell struct {
	Name     string `xml:"name,attr"`
	LBorder  string `xml:"lborder,attr,omitempty"`
	RBorder  string `xml:"rborder,attr,omitempty"`
	TBorder  string `xml:"tborder,attr,omitempty"`
	BBorder  string `xml:"bborder,attr,omitempty"`
	Pad      string `xml:"pad,attr,omitempty"`
	LongList string `xml:"longlist,attr,omitempty"`
}

type xmlDraw struct {
	Name        string `xml:"name,attr"`
	LWidth      string `xml:"lwidth,attr,omitempty"`
	LStyle      string `xml:"lstyle,attr,omitempty"`
	Color       string `xml:"color,attr,omitempty"`
	Fill        string `xml:"fill,attr,omitempty"`
	Shadow      string `xml:"shadow,attr,omitempty"`
	ShadowSpace string `xml:"shadowspace,attr,omitempty"`
	Para        string `xml:"para,attr,omitempty"`
}

// 文件中的字体与对齐编码。
var (
	faceCodes  = map[FontFace]string{SansSerif: "0", Serif: "1", Monospace: "2"}
	alignCodes = map[Align]string{AlignCenter: "0", AlignLeft: "1", AlignRight: "2", AlignJustify: "3"}
)

// Decode 读取样式表 XML。每个 sheet 以 base 的副本为起点，文件中给出的属性覆盖之。
// base 为 nil 时使用只含 default 的空样式表。
func Decode(r io.Reader, base *StyleSheet) ([]*StyleSheet, error) {
	var list xmlStyleList
	if err := xml.NewDecoder(r).Decode(&list); err != nil {
		return nil, fmt.Errorf("%w: 解析样式表 XML 失败: %v", ErrInvalidStyle, err)
	}
	out := make([]*StyleSheet, 0, len(list.Sheets))
	for _, xs := range list.Sheets {
		var sheet *StyleSheet
		if base != nil {
			sheet = base.Clone()
		} else {
			sheet = New("")
		}
		sheet.Name = xs.Name
		if err := decodeSheet(sheet, xs); err != nil {
			return nil, fmt.Errorf("样式表 %q: %w", xs.Name, err)
		}
		out = append(out, sheet)
	}
	return out, nil
}

func decodeSheet(sheet *StyleSheet, xs xmlSheet) error {
	for _, st := range xs.Styles {
		p, ok := sheet.para[st.Name]
		if !ok {
			p = NewParagraphStyle()
		}
		d := attrDecoder{}
		if st.Font != nil {
			f := st.Font
			if f.Face != "" {
				p.Font.Face = decodeFace(f.Face)
			}
			d.num(f.Size, &p.Font.Size)
			d.flag(f.Italic, &p.Font.Italic)
			d.flag(f.Bold, &p.Font.Bold)
			d.flag(f.Underline, &p.Font.Underline)
			d.rgb(f.Color, &p.Font.Color)
		}
		if st.Para != nil {
			x := st.Para
			if x.Description != "" {
				p.Description = x.Description
			}
			d.num(x.RMargin, &p.RightMargin)
			d.num(x.LMargin, &p.LeftMargin)
			d.num(x.First, &p.FirstIndent)
			d.num(x.TMargin, &p.TopMargin)
			d.num(x.BMargin, &p.BottomMargin)
			d.num(x.Pad, &p.Padding)
			d.rgb(x.BgColor, &p.BgColor)
			d.integer(x.Level, &p.Level)
			if x.Align != "" {
				p.Align = decodeAlign(x.Align, &d)
			}
			d.flag(x.TBorder, &p.TopBorder)
			d.flag(x.LBorder, &p.LeftBorder)
			d.flag(x.RBorder, &p.RightBorder)
			d.flag(x.BBorder, &p.BottomBorder)
			if x.Tabs != "" {
				p.Tabs = nil
				for _, f := range strings.Fields(x.Tabs) {
					var v float64
					d.num(f, &v)
					p.Tabs = append(p.Tabs, v)
				}
			}
		}
		if d.err != nil {
			return fmt.Errorf("段落样式 %q: %w", st.Name, d.err)
		}
		sheet.para[st.Name] = p
	}
	for _, xt := range xs.Tables {
		t, ok := sheet.table[xt.Name]
		if !ok {
			t = NewTableStyle()
		}
		d := attrDecoder{}
		d.num(xt.Width, &t.Width)
		if xt.Columns != "" {
			var n int
			d.integer(xt.Columns, &n)
			t.SetColumns(n)
		}
		for i, c := range xt.Column {
			var w float64
			d.num(c.Width, &w)
			t.SetColumnWidth(i, w)
		}
		if d.err != nil {
			return fmt.Errorf("表格样式 %q: %w", xt.Name, d.err)
		}
		sheet.table[xt.Name] = t
	}
	for _, xc := range xs.Cells {
		c := sheet.cell[xc.Name]
		d := attrDecoder{}
		d.flag(xc.LBorder, &c.LeftBorder)
		d.flag(xc.RBorder, &c.RightBorder)
		d.flag(xc.TBorder, &c.TopBorder)
		d.flag(xc.BBorder, &c.BottomBorder)
		d.num(xc.Pad, &c.Padding)
		d.flag(xc.LongList, &c.LongList)
		if d.err != nil {
			return fmt.Errorf("单元格样式 %q: %w", xc.Name, d.err)
		}
		sheet.cell[xc.Name] = c
	}
	for _, xd := range xs.Draws {
		g, ok := sheet.draw[xd.Name]
		if !ok {
			g = NewGraphicsStyle()
		}
		d := attrDecoder{}
		d.num(xd.LWidth, &g.LineWidth)
		if xd.LStyle != "" {
			ls, err := ParseLineStyle(xd.LStyle)
			if err != nil && d.err == nil {
				d.err = err
			}
			g.LineStyle = ls
		}
		d.rgb(xd.Color, &g.Color)
		d.rgb(xd.Fill, &g.Fill)
		d.flag(xd.Shadow, &g.Shadow)
		d.num(xd.ShadowSpace, &g.ShadowSpace)
		if xd.Para != "" {
			g.ParagraphStyle = xd.Para
		}
		if d.err != nil {
			return fmt.Errorf("绘图样式 %q: %w", xd.Name, d.err)
		}
		sheet.draw[xd.Name] = g
	}
	return nil
}

func decodeFace(code string) FontFace {
	for f, c := range faceCodes {
		if c == code {
			return f
		}
	}
	switch code {
	case "sans", "sans-serif":
		return SansSerif
	case "mono", "monospace":
		return Monospace
	}
	return Serif
}

func decodeAlign(code string, d *attrDecoder) Align {
	for a, c := range alignCodes {
		if c == code {
			return a
		}
	}
	a, err := ParseAlign(code)
	if err != nil && d.err == nil {
		d.err = err
	}
	return a
}

// attrDecoder 记录第一个解析错误，空字符串表示属性缺省，保持原值。
type attrDecoder struct {
	err error
}

func (d *attrDecoder) num(s string, dst *float64) {
	if s == "" {
		return
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		if d.err == nil {
			d.err = fmt.Errorf("%w: 数值格式错误 %q", ErrInvalidStyle, s)
		}
		return
	}
	*dst = v
}

func (d *attrDecoder) integer(s string, dst *int) {
	if s == "" {
		return
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		if d.err == nil {
			d.err = fmt.Errorf("%w: 整数格式错误 %q", ErrInvalidStyle, s)
		}
		return
	}
	*dst = v
}

func (d *attrDecoder) flag(s string, dst *bool) {
	switch s {
	case "":
	case "1", "true", "True":
		*dst = true
	case "0", "false", "False":
		*dst = false
	default:
		if d.err == nil {
			d.err = fmt.Errorf("%w: 布尔值格式错误 %q", ErrInvalidStyle, s)
		}
	}
}

func (d *attrDecoder) rgb(s string, dst *Color) {
	if s == "" {
		return
	}
	c, err := ParseColor(s)
	if err != nil {
		if d.err == nil {
			d.err = err
		}
		return
	}
	*dst = c
}

func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func fmtBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// Encode 将样式表写为 XML，数值以最短精确形式输出，可无损读回。
func Encode(w io.Writer, sheets ...*StyleSheet) error {
	list := xmlStyleList{}
	for _, s := range sheets {
		list.Sheets = append(list.Sheets, encodeSheet(s))
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(list); err != nil {
		return fmt.Errorf("写入样式表 XML 失败: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func encodeSheet(s *StyleSheet) xmlSheet {
	xs := xmlSheet{Name: s.Name}
	for _, name := range s.ParagraphStyleNames() {
		p := s.para[name]
		tabs := make([]string, len(p.Tabs))
		for i, t := range p.Tabs {
			tabs[i] = fmtFloat(t)
		}
		xs.Styles = append(xs.Styles, xmlStyle{
			Name: name,
			Font: &xmlFont{
				Face:      faceCodes[p.Font.Face],
				Size:      fmtFloat(p.Font.Size),
				Italic:    fmtBool(p.Font.Italic),
				Bold:      fmtBool(p.Font.Bold),
				Underline: fmtBool(p.Font.Underline),
				Color:     p.Font.Color.Hex(),
			},
			Para: &xmlPara{
				Description: p.Description,
				RMargin:     fmtFloat(p.RightMargin),
				LMargin:     fmtFloat(p.LeftMargin),
				First:       fmtFloat(p.FirstIndent),
				TMargin:     fmtFloat(p.TopMargin),
				BMargin:     fmtFloat(p.BottomMargin),
				Pad:         fmtFloat(p.Padding),
				BgColor:     p.BgColor.Hex(),
				Level:       strconv.Itoa(p.Level),
				Align:       alignCodes[p.Align],
				TBorder:     fmtBool(p.TopBorder),
				LBorder:     fmtBool(p.LeftBorder),
				RBorder:     fmtBool(p.RightBorder),
				BBorder:     fmtBool(p.BottomBorder),
				Tabs:        strings.Join(tabs, " "),
			},
		})
	}
	for _, name := range s.TableStyleNames() {
		t := s.table[name]
		xt := xmlTable{Name: name, Width: fmtFloat(t.Width), Columns: strconv.Itoa(t.Columns)}
		for _, w := range t.ColumnWidths {
			xt.Column = append(xt.Column, xmlColumn{Width: fmtFloat(w)})
		}
		xs.Tables = append(xs.Tables, xt)
	}
	for _, name := range s.CellStyleNames() {
		c := s.cell[name]
		xs.Cells = append(xs.Cells, xmlCell{
			Name:     name,
			LBorder:  fmtBool(c.LeftBorder),
			RBorder:  fmtBool(c.RightBorder),
			TBorder:  fmtBool(c.TopBorder),
			BBorder:  fmtBool(c.BottomBorder),
			Pad:      fmtFloat(c.Padding),
			LongList: fmtBool(c.LongList),
		})
	}
	for _, name := range s.DrawStyleNames() {
		g := s.draw[name]
		xs.Draws = append(xs.Draws, xmlDraw{
			Name:        name,
			LWidth:      fmtFloat(g.LineWidth),
			LStyle:      g.LineStyle.String(),
			Color:       g.Color.Hex(),
			Fill:        g.Fill.Hex(),
			Shadow:      fmtBool(g.Shadow),
			ShadowSpace: fmtFloat(g.ShadowSpace),
			Para:        g.ParagraphStyle,
		})
	}
	return xs
}
