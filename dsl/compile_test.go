package dsl_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ByLCY/docgen/doc"
	"github.com/ByLCY/docgen/dsl"
	"github.com/ByLCY/docgen/style"
)

const sampleData = `{
  "company": "ACME",
  "user": {"name": "Ann & Bob"},
  "items": [{"name": "pen", "price": 2.5}, {"name": "ink", "price": 10}]
}`

func compile(t *testing.T, src string, opts dsl.Options) (*doc.Document, error) {
	t.Helper()
	script, err := dsl.ParseString(src)
	if err != nil {
		t.Fatalf("解析脚本失败: %v", err)
	}
	return dsl.Compile(script, opts)
}

func mustCompile(t *testing.T, src string, opts dsl.Options) *doc.Document {
	t.Helper()
	d, err := compile(t, src, opts)
	if err != nil {
		t.Fatalf("编译失败: %v", err)
	}
	return d
}

func sampleOptions(t *testing.T) dsl.Options {
	t.Helper()
	var data any
	if err := json.Unmarshal([]byte(sampleData), &data); err != nil {
		t.Fatalf("解析数据失败: %v", err)
	}
	return dsl.Options{Data: data}
}

func TestCompileSample(t *testing.T) {
	d := mustCompile(t, sampleDSL, sampleOptions(t))

	want := doc.Meta{Title: "Quarterly ACME", Author: "Ann & Bob", Keywords: []string{"finance", "internal"}}
	if diff := cmp.Diff(want, d.Meta); diff != "" {
		t.Fatalf("元信息错误 (-want +got):\n%s", diff)
	}
	if d.Paper.Size.Name != "A4" || d.Paper.Orientation != style.Landscape || d.Paper.LeftMargin != 2 {
		t.Fatalf("纸张设置错误: %+v", d.Paper)
	}
	if len(d.Children) != 5 {
		t.Fatalf("期望 5 个顶层节点，得到 %d", len(d.Children))
	}
	if _, ok := d.Children[0].(*doc.TOCMarker); !ok {
		t.Fatalf("第一个节点应为目录")
	}

	h := d.Children[1].(*doc.Paragraph)
	if h.StyleName != "Heading1" || len(h.Marks) != 1 || h.Marks[0].Mark != (doc.IndexMark{Key: "Intro", Type: doc.MarkTOC, Level: 1}) {
		t.Fatalf("标题段落错误: %+v", h)
	}
	p := d.Children[2].(*doc.Paragraph)
	if p.Content.Plain != "Hello, Ann & Bob!" {
		t.Fatalf("插值结果错误: %q", p.Content.Plain)
	}
	if len(p.Marks) != 1 || p.Marks[0].Mark.Key != "Smith" || p.Marks[0].Mark.Type != doc.MarkAlphabetical {
		t.Fatalf("索引标记错误: %+v", p.Marks)
	}

	tbl := d.Children[3].(*doc.Table)
	if len(tbl.Rows) != 2 {
		t.Fatalf("each 应生成 2 行，得到 %d", len(tbl.Rows))
	}
	first := tbl.Rows[1].Cells[0].Children[0].(*doc.Paragraph)
	if first.Content.Plain != "ink" || first.StyleName != style.DefaultStyleName {
		t.Fatalf("单元格文字错误: %+v", first)
	}
	price := tbl.Rows[0].Cells[1].Children[0].(*doc.Paragraph)
	if price.StyleName != "Warn" || price.Content.Plain != "2.5" {
		t.Fatalf("单元格段落错误: %+v", price)
	}
	if !price.Style.Font.Bold || price.Style.Font.Color != (style.Color{R: 0xc0}) || price.Style.Font.Size != 14 {
		t.Fatalf("派生样式未生效: %+v", price.Style.Font)
	}

	f := d.Children[4].(*doc.Frame)
	if len(f.Shapes) != 3 {
		t.Fatalf("绘图页应有框、框内文字与直线，得到 %d 个图形", len(f.Shapes))
	}
	box := f.Shapes[0].(*doc.Box)
	if box.X != 1 || box.Width != 4 || !box.Style.Shadow {
		t.Fatalf("图框错误: %+v", box)
	}
	line := f.Shapes[2].(*doc.Line)
	if line.From != (doc.Point{X: 0, Y: 5}) || line.To != (doc.Point{X: 4, Y: 5}) {
		t.Fatalf("直线坐标错误: %+v", line)
	}
}

func TestCompileInlineSpansAndConditions(t *testing.T) {
	src := `doc D v1 {
  flow {
    para Normal leader "1." links {
      "see http://x.org "
      bold "strong"
      sup { "2" }
      plain "<raw>"
    }
    if user.admin { "admin" }
    unless user.admin { "guest" }
    each i, item in items { para { "${i}:${item.name}" } }
    pagebreak
    index
  }
}`
	var data any
	if err := json.Unmarshal([]byte(`{"user": {"admin": false}, "items": [{"name": "a"}, {"name": "b"}]}`), &data); err != nil {
		t.Fatalf("解析数据失败: %v", err)
	}
	d := mustCompile(t, src, dsl.Options{Data: data})
	p := d.Children[0].(*doc.Paragraph)
	if p.Leader != "1." || p.Content.Plain != "see http://x.org strong2<raw>" {
		t.Fatalf("段落内容错误: %+v", p)
	}
	if got := p.Content.String(); got != `see <a href="http://x.org">http://x.org</a> <b>strong</b><sup>2</sup>&lt;raw&gt;` {
		t.Fatalf("内联标记错误: %s", got)
	}
	var texts []string
	for _, c := range d.Children[1:4] {
		texts = append(texts, c.(*doc.Paragraph).Content.Plain)
	}
	if diff := cmp.Diff([]string{"guest", "0:a", "1:b"}, texts); diff != "" {
		t.Fatalf("条件与循环结果错误 (-want +got):\n%s", diff)
	}
	if _, ok := d.Children[4].(*doc.PageBreak); !ok {
		t.Fatalf("缺少分页")
	}
	if _, ok := d.Children[5].(*doc.IndexMarker); !ok {
		t.Fatalf("缺少索引")
	}
}

func TestCompileNotes(t *testing.T) {
	src := "doc D v1 {\n  flow {\n    note Normal markdown { `# Notes\n\nText with *emphasis*.` }\n    note Normal flowed { \"a   b\\n\\nc\" }\n  }\n}"
	d := mustCompile(t, src, dsl.Options{})
	var styles, texts []string
	for _, c := range d.Children {
		p := c.(*doc.Paragraph)
		styles = append(styles, p.StyleName)
		texts = append(texts, p.Content.Plain)
	}
	if diff := cmp.Diff([]string{"Heading1", "Normal", "Normal", "Normal"}, styles); diff != "" {
		t.Fatalf("注释段落样式错误 (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Notes", "Text with emphasis.", "a b", "c"}, texts); diff != "" {
		t.Fatalf("注释段落内容错误 (-want +got):\n%s", diff)
	}
}

func TestCompileImageFitsAspectRatio(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 40, 20))); err != nil {
		t.Fatalf("编码图片失败: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.png"), buf.Bytes(), 0o644); err != nil {
		t.Fatalf("写图片失败: %v", err)
	}
	src := `doc D v1 {
  flow {
    image "a.png" center width 4cm alt "caption" crop 0 0 50 100
    image "a.png" right width 3cm height 3cm
  }
}`
	d := mustCompile(t, src, dsl.Options{BaseDir: dir})
	img := d.Children[0].(*doc.Image)
	if img.Width != 4 || img.Height != 2 || img.Align != "center" {
		t.Fatalf("图片尺寸错误: %+v", img)
	}
	if diff := cmp.Diff(&doc.Crop{Right: 50, Bottom: 100}, img.Crop); diff != "" {
		t.Fatalf("裁剪区域错误 (-want +got):\n%s", diff)
	}
	if caption := d.Children[1].(*doc.Paragraph); caption.Content.Plain != "caption" {
		t.Fatalf("图片说明错误: %+v", caption)
	}
	if fixed := d.Children[2].(*doc.Image); fixed.Width != 3 || fixed.Height != 3 {
		t.Fatalf("同时给出宽高时应原样使用: %+v", fixed)
	}
}

func TestCompileOverridesPaper(t *testing.T) {
	paper := style.DefaultPaper()
	d := mustCompile(t, "doc D v1 {\n  paper A5 landscape\n}", dsl.Options{Paper: &paper})
	if d.Paper.Size.Name != "Letter" {
		t.Fatalf("选项中的纸张应覆盖脚本: %+v", d.Paper)
	}
	d = mustCompile(t, "doc D v1 {\n  paper custom 10cm 20cm margin 1cm\n}", dsl.Options{})
	if d.Paper.UsableWidth() != 8 || d.Paper.UsableHeight() != 18 {
		t.Fatalf("自定义纸张错误: %+v", d.Paper)
	}
}

func TestCompileErrorsCarryPosition(t *testing.T) {
	cases := []struct {
		name string
		src  string
		line int
		is   error
	}{
		{"未知命令", "doc D v1 {\n  flow {\n    bogus 1\n  }\n}", 3, nil},
		{"未知样式", "doc D v1 {\n  flow {\n    para Missing { \"x\" }\n  }\n}", 3, style.ErrStyleNotFound},
		{"跨列超出", "doc D v1 {\n  flow {\n    table {\n      row {\n        cell span 3 \"x\"\n      }\n    }\n  }\n}", 5, doc.ErrColumnOverflow},
		{"绘图参数缺失", "doc D v1 {\n  page {\n    line Line 0 0 1cm\n  }\n}", 3, nil},
		{"非法裁剪", "doc D v1 {\n  flow {\n    image \"a.png\" width 1 height 1 crop 50 0 10 100\n  }\n}", 3, doc.ErrBadCrop},
		{"未知样式属性", "doc D v1 {\n  styles {\n    para X {\n      shiny: true\n    }\n  }\n}", 4, nil},
		{"未知纸张", "doc D v1 {\n  paper Z9\n}", 2, style.ErrInvalidStyle},
	}
	for _, c := range cases {
		_, err := compile(t, c.src, dsl.Options{})
		var de *dsl.Error
		if !errors.As(err, &de) {
			t.Fatalf("%s: 期望 *dsl.Error，得到 %v", c.name, err)
		}
		if de.Pos.Line != c.line {
			t.Fatalf("%s: 错误行号 %d，期望 %d (%v)", c.name, de.Pos.Line, c.line, err)
		}
		if c.is != nil && !errors.Is(err, c.is) {
			t.Fatalf("%s: 错误应包装 %v，得到 %v", c.name, c.is, err)
		}
	}
}

func TestCompileRotatedLines(t *testing.T) {
	src := `doc D v1 {
  page {
    rotate Box 3cm 4cm 90 "${company}" "Inc."
  }
}`
	d := mustCompile(t, src, sampleOptions(t))
	f := d.Children[0].(*doc.Frame)
	if len(f.Shapes) != 1 {
		t.Fatalf("应有一个旋转文字，得到 %d 个图形", len(f.Shapes))
	}
	txt := f.Shapes[0].(*doc.Text)
	if txt.Angle != 90 || txt.X != 3 || txt.Y != 4 || txt.VAlign != doc.VAlignCenter {
		t.Fatalf("旋转文字位置错误: %+v", txt)
	}
	if txt.Content.Plain != "ACME\nInc." {
		t.Fatalf("旋转文字内容错误: %q", txt.Content.Plain)
	}
}
