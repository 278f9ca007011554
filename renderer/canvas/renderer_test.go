package canvasrenderer

import (
	"bytes"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ByLCY/docgen/doc"
	"github.com/ByLCY/docgen/layout"
	"github.com/ByLCY/docgen/markup"
	"github.com/ByLCY/docgen/style"
)

func lineStrings(tb layout.TextBox) []string {
	out := make([]string, len(tb.Lines))
	for i, l := range tb.Lines {
		var b strings.Builder
		for j, r := range l.Runs {
			if j > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(r.Text)
		}
		out[i] = b.String()
	}
	return out
}

func buildParagraph(t *testing.T, r *Renderer, text string, width float64) layout.TextBox {
	t.Helper()
	p := &doc.Paragraph{StyleName: "Normal", Style: style.NewParagraphStyle(), Content: markup.Plain(text)}
	res, err := layout.Build(&doc.Document{Children: []doc.Block{p}}, layout.Options{Metrics: r, Width: width, Height: 20})
	if err != nil {
		t.Fatalf("Build 失败: %v", err)
	}
	return res.Pages[0].Texts[0]
}

func TestTextWidthScalesWithSize(t *testing.T) {
	r := NewRenderer(".")
	f := style.NewFontStyle()
	small := r.TextWidth(f, "hello world")
	f.Size *= 2
	large := r.TextWidth(f, "hello world")
	if small <= 0 || math.Abs(large-2*small) > 1e-6 {
		t.Fatalf("宽度应与字号成正比: %g vs %g", small, large)
	}
	if r.LineHeight(f) <= r.Ascent(f) {
		t.Fatalf("行高应大于上升部")
	}
}

func TestMonospaceFaceIsFixedPitch(t *testing.T) {
	r := NewRenderer(".")
	f := style.NewFontStyle()
	f.Face = style.Monospace
	if a, b := r.TextWidth(f, "iii"), r.TextWidth(f, "MMM"); math.Abs(a-b) > 1e-9 {
		t.Fatalf("等宽字体宽度应一致: %g vs %g", a, b)
	}
	f.Face = style.SansSerif
	if a, b := r.TextWidth(f, "iii"), r.TextWidth(f, "MMM"); a >= b {
		t.Fatalf("比例字体 i 应比 M 窄: %g vs %g", a, b)
	}
}

func TestWrapsWithFaceMetrics(t *testing.T) {
	r := NewRenderer(".")
	tb := buildParagraph(t, r, "hello world again", 1)
	if len(tb.Lines) < 2 {
		t.Fatalf("应折成多行，实际 %d 行", len(tb.Lines))
	}
	for i, l := range tb.Lines {
		if l.Width-1 > 1e-6 {
			t.Fatalf("第 %d 行宽度 %g 超出 1cm", i, l.Width)
		}
	}
}

// 当第一行宽度与容器宽度恰好相等且后面紧跟一个显式换行时，不应产生额外的空行。
func TestNoBlankLineWhenEqualWidthThenNewline(t *testing.T) {
	r := NewRenderer(".")
	first := "SAMPLE-A"
	limit := r.TextWidth(style.NewFontStyle(), first)
	if limit <= 0 {
		t.Fatalf("invalid measured width: %g", limit)
	}
	tb := buildParagraph(t, r, first+"\nSAMPLE-B", limit)
	got := lineStrings(tb)
	if len(got) != 2 || got[0] != first || got[1] != "SAMPLE-B" {
		t.Fatalf("expected 2 lines without blank, got %q", got)
	}
}

func sampleDocument(t *testing.T, imgPath string) *doc.Document {
	t.Helper()
	b := doc.NewBuilder(nil, style.DefaultPaper())
	b.SetMeta(doc.Meta{Title: "Sample", Keywords: []string{"a", "b"}})
	steps := []func() error{
		b.InsertTOC,
		func() error { return b.StartParagraph("Heading1", "") },
		func() error {
			m := doc.NewIndexMark("Intro", doc.MarkTOC)
			return b.WriteText("Intro", &m, false)
		},
		func() error { b.EndParagraph(); return b.StartParagraph("Normal", "") },
		func() error {
			return b.WriteMarkup(`Some <b>bold</b>, <i>italic</i> and <u>underlined</u> text with x<sup>2</sup>.`, nil, false)
		},
		func() error { b.EndParagraph(); return b.StartTable("t", "Table") },
		b.StartRow,
		func() error { return b.StartCell("Cell", 1) },
		func() error { return b.WriteText("key", nil, false) },
		func() error { b.EndCell(); return b.StartCell("Cell", 1) },
		func() error { return b.WriteText("value", nil, false) },
		func() error {
			b.EndCell()
			b.EndRow()
			b.EndTable()
			return b.AddMedia(imgPath, "center", 4, 2, "caption", "Caption", &doc.Crop{Left: 0, Top: 0, Right: 50, Bottom: 100})
		},
		b.StartPage,
		func() error { return b.DrawBox("Box", "boxed", 1, 1, 4, 2, nil) },
		func() error { return b.DrawPath("Line", []doc.Point{{X: 6, Y: 1}, {X: 8, Y: 1}, {X: 7, Y: 3}}) },
		func() error { return b.RotateText("Line", []string{"rotated"}, 5, 8, 45, nil) },
	}
	for i, s := range steps {
		if err := s(); err != nil {
			t.Fatalf("第 %d 步构建失败: %v", i, err)
		}
	}
	b.EndPage()
	d, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish 失败: %v", err)
	}
	return d
}

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "img.png")
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 40, 20))); err != nil {
		t.Fatalf("编码图片失败: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("写图片失败: %v", err)
	}
	return path
}

func TestRenderPDFAndSVG(t *testing.T) {
	imgPath := writeImage(t)
	r := NewRenderer(filepath.Dir(imgPath))
	d := sampleDocument(t, filepath.Base(imgPath))
	res, err := layout.Build(d, layout.PaperOptions(d.Paper, r))
	if err != nil {
		t.Fatalf("Build 失败: %v", err)
	}
	if len(res.Pages) != 3 {
		t.Fatalf("期望目录、正文、绘图三页，实际 %d", len(res.Pages))
	}
	data, err := r.Render(res)
	if err != nil {
		t.Fatalf("渲染 PDF 失败: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("输出不是 PDF")
	}

	sr := NewRendererWithOptions(Options{BaseDir: filepath.Dir(imgPath), Format: SVG})
	out, err := sr.Render(res)
	if err != nil {
		t.Fatalf("渲染 SVG 失败: %v", err)
	}
	if !bytes.Contains(out, []byte("<svg")) {
		t.Fatalf("输出不是 SVG")
	}
}

func TestRenderErrors(t *testing.T) {
	r := NewRenderer(".")
	if _, err := r.Render(nil); err == nil {
		t.Fatalf("空结果应返回错误")
	}
	if _, err := r.Render(&layout.Result{}); err == nil {
		t.Fatalf("没有页面应返回错误")
	}
	res := &layout.Result{Width: 10, Height: 10, Pages: []layout.Page{{Number: 1, Images: []layout.ImageBox{{Path: "missing.png", Width: 1, Height: 1}}}}}
	if _, err := r.Render(res); err == nil {
		t.Fatalf("缺失的图片应返回错误")
	}
}
