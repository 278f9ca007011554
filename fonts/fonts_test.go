package fonts

import (
	"bytes"
	"testing"

	"github.com/ByLCY/docgen/style"
)

func TestVariantsAreDistinct(t *testing.T) {
	seen := map[string]bool{}
	for _, v := range All() {
		data := v.TTF()
		if len(data) < 4 {
			t.Fatalf("%s 字体数据为空", v.Name())
		}
		if seen[v.Name()] {
			t.Fatalf("字体名称重复: %s", v.Name())
		}
		seen[v.Name()] = true
	}
	if len(seen) != 12 {
		t.Fatalf("期望 12 种字形，实际 %d", len(seen))
	}
}

func TestVariantOf(t *testing.T) {
	f := style.NewFontStyle()
	f.Face = style.Monospace
	f.Bold = true
	v := VariantOf(f)
	if v.Face != style.Monospace || !v.Bold || v.Italic {
		t.Fatalf("字形选择错误: %+v", v)
	}
	if v.Name() != "Go Mono Bold" {
		t.Fatalf("名称错误: %s", v.Name())
	}
}

func TestSerifIsNotSans(t *testing.T) {
	f := style.NewFontStyle()
	serif := VariantOf(f)
	f.Face = style.SansSerif
	sans := VariantOf(f)
	if serif.Name() != "Latin Modern Roman" || sans.Name() != "Go" {
		t.Fatalf("字体族名称错误: %s / %s", serif.Name(), sans.Name())
	}
	if bytes.Equal(serif.TTF(), sans.TTF()) {
		t.Fatalf("衬线体与无衬线体不应使用同一字形文件")
	}
}
