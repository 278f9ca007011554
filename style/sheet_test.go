package style

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func sampleSheet() *StyleSheet {
	s := New("report")

	p := NewParagraphStyle()
	p.Font.Face = SansSerif
	p.Font.Size = 10.5
	p.Font.Bold = true
	p.Font.Color = Color{R: 12, G: 34, B: 56}
	p.LeftMargin = 1.25
	p.RightMargin = 0.5
	p.TopMargin = 0.3
	p.BottomMargin = 0.1
	p.FirstIndent = -0.75
	p.Align = AlignJustify
	p.Level = 2
	p.TopBorder = true
	p.RightBorder = true
	p.Padding = 0.05
	p.BgColor = Color{R: 250, G: 240, B: 230}
	p.Tabs = []float64{1, 2.5, 7.125}
	p.Description = "二级标题"
	s.AddParagraphStyle("Heading2", p)

	t := NewTableStyle()
	t.Width = 90
	t.SetColumnWidth(0, 33.3)
	t.SetColumnWidth(1, 66.7)
	s.AddTableStyle("People", t)

	c := NewTableCellStyle()
	c.LeftBorder = true
	c.BottomBorder = true
	c.Padding = 0.1
	c.LongList = true
	s.AddCellStyle("Cell", c)

	g := NewGraphicsStyle()
	g.LineWidth = 1.5
	g.LineStyle = Dotted
	g.Color = Color{R: 1, G: 2, B: 3}
	g.Fill = Color{R: 200, G: 100, B: 50}
	g.Shadow = true
	g.ShadowSpace = 0.3
	g.ParagraphStyle = "Heading2"
	s.AddDrawStyle("Box", g)
	return s
}

func TestStyleCopyIsolation(t *testing.T) {
	s := sampleSheet()

	p, err := s.ParagraphStyle("Heading2")
	if err != nil {
		t.Fatalf("获取段落样式失败: %v", err)
	}
	p.Tabs[0] = 99
	p.LeftMargin = 42
	p.Font.Size = 1
	again, _ := s.ParagraphStyle("Heading2")
	if again.Tabs[0] != 1 || again.LeftMargin != 1.25 || again.Font.Size != 10.5 {
		t.Fatalf("修改副本影响了样式表中的原值: %+v", again)
	}

	tbl, _ := s.TableStyle("People")
	tbl.ColumnWidths[0] = 5
	tbl.SetColumns(5)
	againT, _ := s.TableStyle("People")
	if againT.ColumnWidths[0] != 33.3 || againT.Columns != 2 {
		t.Fatalf("修改表格样式副本影响了原值: %+v", againT)
	}

	orig := NewParagraphStyle()
	orig.Tabs = []float64{1, 2}
	cp := orig.Clone()
	cp.Tabs[1] = 3
	if orig.Tabs[1] != 2 {
		t.Fatalf("Clone 共享了制表位切片")
	}

	clone := s.Clone()
	clone.AddParagraphStyle("Heading2", NewParagraphStyle())
	if p2, _ := s.ParagraphStyle("Heading2"); p2.Level != 2 {
		t.Fatalf("Clone 后修改影响了原样式表")
	}
}

func TestStyleNotFound(t *testing.T) {
	s := New("x")
	if _, err := s.ParagraphStyle(DefaultStyleName); err != nil {
		t.Fatalf("default 段落样式应始终存在: %v", err)
	}
	cases := []func() error{
		func() error { _, err := s.ParagraphStyle("missing"); return err },
		func() error { _, err := s.TableStyle("missing"); return err },
		func() error { _, err := s.CellStyle("missing"); return err },
		func() error { _, err := s.DrawStyle("missing"); return err },
	}
	for i, c := range cases {
		if err := c(); !errors.Is(err, ErrStyleNotFound) {
			t.Fatalf("case %d: 期望 ErrStyleNotFound，得到 %v", i, err)
		}
	}
}

func TestXMLRoundTrip(t *testing.T) {
	s := sampleSheet()
	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		t.Fatalf("Encode 失败: %v", err)
	}
	sheets, err := Decode(&buf, nil)
	if err != nil {
		t.Fatalf("Decode 失败: %v", err)
	}
	if len(sheets) != 1 || sheets[0].Name != "report" {
		t.Fatalf("样式表数量或名称不符: %d", len(sheets))
	}
	got := sheets[0]
	opts := cmp.Options{
		cmpopts.EquateApprox(0, 1e-9),
		cmpopts.EquateEmpty(),
	}
	for _, name := range s.ParagraphStyleNames() {
		want, _ := s.ParagraphStyle(name)
		have, err := got.ParagraphStyle(name)
		if err != nil {
			t.Fatalf("读回后缺少段落样式 %s", name)
		}
		if diff := cmp.Diff(want, have, opts); diff != "" {
			t.Fatalf("段落样式 %s 往返不一致 (-want +got):\n%s", name, diff)
		}
	}
	wantT, _ := s.TableStyle("People")
	haveT, _ := got.TableStyle("People")
	if diff := cmp.Diff(wantT, haveT, opts); diff != "" {
		t.Fatalf("表格样式往返不一致:\n%s", diff)
	}
	wantC, _ := s.CellStyle("Cell")
	haveC, _ := got.CellStyle("Cell")
	if diff := cmp.Diff(wantC, haveC); diff != "" {
		t.Fatalf("单元格样式往返不一致:\n%s", diff)
	}
	wantG, _ := s.DrawStyle("Box")
	haveG, _ := got.DrawStyle("Box")
	if diff := cmp.Diff(wantG, haveG, opts); diff != "" {
		t.Fatalf("绘图样式往返不一致:\n%s", diff)
	}
}

func TestDecodeToleratesMissingMargins(t *testing.T) {
	base := New("base")
	p := NewParagraphStyle()
	p.TopMargin = 0.4
	p.BottomMargin = 0.6
	base.AddParagraphStyle("Body", p)

	const legacy = `<?xml version="1.0"?>
<stylelist>
  <sheet name="old">
    <style name="Body">
      <font face="0" size="11" italic="1" bold="0" underline="0" color="#ff0000"/>
      <para rmargin="0.5" lmargin="1" first="0" pad="0" bgcolor="#ffffff" level="0" align="1"/>
    </style>
  </sheet>
</stylelist>`
	sheets, err := Decode(strings.NewReader(legacy), base)
	if err != nil {
		t.Fatalf("Decode 失败: %v", err)
	}
	got, _ := sheets[0].ParagraphStyle("Body")
	if got.TopMargin != 0.4 || got.BottomMargin != 0.6 {
		t.Fatalf("缺省 tmargin/bmargin 应保留原值，得到 %g/%g", got.TopMargin, got.BottomMargin)
	}
	if got.Font.Face != SansSerif || !got.Font.Italic || got.Font.Color != (Color{R: 255}) {
		t.Fatalf("字体属性解析错误: %+v", got.Font)
	}
	if got.LeftMargin != 1 || got.Align != AlignLeft {
		t.Fatalf("段落属性解析错误: %+v", got)
	}
}

func TestDecodeRejectsBadColor(t *testing.T) {
	const bad = `<stylelist><sheet name="x"><style name="A"><font color="red"/></style></sheet></stylelist>`
	if _, err := Decode(strings.NewReader(bad), nil); !errors.Is(err, ErrInvalidStyle) {
		t.Fatalf("期望 ErrInvalidStyle，得到 %v", err)
	}
}

func TestSheetListLoadOptionalFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "styles.xml")
	if err := os.WriteFile(path, []byte("<stylelist><sheet"), 0o644); err != nil {
		t.Fatal(err)
	}
	list := NewSheetList(Builtin())
	list.LoadOptional(path, nil)
	if diff := cmp.Diff([]string{DefaultSheetName}, list.Names()); diff != "" {
		t.Fatalf("解析失败时应只保留内置样式表:\n%s", diff)
	}
	if err := list.Load(path); !errors.Is(err, ErrInvalidStyle) {
		t.Fatalf("Load 应返回配置错误，得到 %v", err)
	}

	list.SetSheet(sampleSheet())
	if err := list.Save(path); err != nil {
		t.Fatalf("Save 失败: %v", err)
	}
	reloaded := NewSheetList(Builtin())
	reloaded.LoadOptional(path, nil)
	if diff := cmp.Diff([]string{DefaultSheetName, "report"}, reloaded.Names()); diff != "" {
		t.Fatalf("重新加载后的样式表不符:\n%s", diff)
	}
	if err := reloaded.Delete(DefaultSheetName); err == nil {
		t.Fatalf("default 样式表不应允许删除")
	}
}

func TestParagraphValidate(t *testing.T) {
	p := NewParagraphStyle()
	p.FirstIndent = -1
	if err := p.Validate(); err != nil {
		t.Fatalf("负首行缩进应合法: %v", err)
	}
	p.LeftMargin = -0.1
	if err := p.Validate(); !errors.Is(err, ErrInvalidStyle) {
		t.Fatalf("负左边距应被拒绝，得到 %v", err)
	}
	p = NewParagraphStyle()
	p.Align = Align(7)
	if err := p.Validate(); !errors.Is(err, ErrInvalidStyle) {
		t.Fatalf("非法对齐方式应被拒绝")
	}
}

func TestPaperUsableArea(t *testing.T) {
	a4, err := PaperByName("a4")
	if err != nil {
		t.Fatal(err)
	}
	p := NewPaperStyle(a4, Landscape)
	p.SetMargins(2)
	if math.Abs(p.UsableWidth()-25.7) > 1e-9 || math.Abs(p.UsableHeight()-17) > 1e-9 {
		t.Fatalf("横向 A4 可用区域错误: %g x %g", p.UsableWidth(), p.UsableHeight())
	}
	p.SetMargins(11)
	if err := p.Validate(); err == nil {
		t.Fatalf("页边距超出纸张时应报错")
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#0F62FE")
	if err != nil {
		t.Fatal(err)
	}
	if c != (Color{R: 15, G: 98, B: 254}) || c.Hex() != "#0f62fe" {
		t.Fatalf("颜色解析错误: %+v %s", c, c.Hex())
	}
	if c, _ := ParseColor("#abc"); c != (Color{R: 0xaa, G: 0xbb, B: 0xcc}) {
		t.Fatalf("短格式颜色解析错误: %+v", c)
	}
}
