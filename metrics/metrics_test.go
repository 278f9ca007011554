package metrics

import (
	"math"
	"testing"

	"github.com/ByLCY/docgen/style"
)

func TestMonospaceWidth(t *testing.T) {
	m := NewMonospace()
	f := style.NewFontStyle()
	// 12pt 下每个字符 7.2pt。
	if got, want := m.TextWidth(f, "abcde"), 5*7.2*2.54/72; math.Abs(got-want) > 1e-9 {
		t.Fatalf("宽度错误: got %g want %g", got, want)
	}
	if got := m.TextWidth(f, "中文"); math.Abs(got-2*m.CharWidth(f)) > 1e-9 {
		t.Fatalf("按字符而非字节计数: %g", got)
	}
	if got, want := m.LineHeight(f), 14.4*2.54/72; math.Abs(got-want) > 1e-9 {
		t.Fatalf("行高错误: got %g want %g", got, want)
	}
}

func TestGoFontMeasures(t *testing.T) {
	g := NewGoFont()
	f := style.NewFontStyle()
	narrow := g.TextWidth(f, "iiii")
	wide := g.TextWidth(f, "MMMM")
	if narrow <= 0 || wide <= narrow {
		t.Fatalf("比例字体宽度异常: iiii=%g MMMM=%g", narrow, wide)
	}
	f.Face = style.Monospace
	if a, b := g.TextWidth(f, "iiii"), g.TextWidth(f, "MMMM"); math.Abs(a-b) > 1e-6 {
		t.Fatalf("等宽字体宽度应相同: %g %g", a, b)
	}
	if h := g.LineHeight(f); h <= g.Ascent(f) {
		t.Fatalf("行高应大于上升高度: %g", h)
	}
	big := f
	big.Size = 24
	if r := g.TextWidth(big, "abc") / g.TextWidth(f, "abc"); math.Abs(r-2) > 1e-6 {
		t.Fatalf("宽度应与字号成正比: %g", r)
	}
}

func TestGoFontSerifDiffersFromSans(t *testing.T) {
	g := NewGoFont()
	serif := style.NewFontStyle()
	sans := serif
	sans.Face = style.SansSerif
	a, b := g.TextWidth(serif, "Genealogy report"), g.TextWidth(sans, "Genealogy report")
	if a <= 0 || math.Abs(a-b) < 1e-6 {
		t.Fatalf("衬线体应按自身字形测量: serif=%g sans=%g", a, b)
	}
	if g.LineHeight(serif) <= 0 {
		t.Fatalf("衬线体行高无效")
	}
}
