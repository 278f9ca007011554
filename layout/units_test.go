package layout

import (
	"math"
	"testing"
)

// TestPtCmRoundTrip 验证 pt↔cm 换算的往返精度（允许极小的浮点误差）。
func TestPtCmRoundTrip(t *testing.T) {
	samples := []float64{0, 0.001, 1, 12, 14.4, 72, 96, 144, 1000}
	for _, pt := range samples {
		back := CmToPt(PtToCm(pt))
		if diff := math.Abs(back - pt); diff > 1e-9 {
			t.Fatalf("pt→cm→pt 往返误差过大: in=%gpt back=%g diff=%g", pt, back, diff)
		}
	}
	if got := PtToCm(72); math.Abs(got-2.54) > 1e-12 {
		t.Fatalf("72pt 应为 2.54cm，实际 %g", got)
	}
}

// TestLengthConversions 覆盖 Length 在常见单位上的转换。
func TestLengthConversions(t *testing.T) {
	cases := []struct {
		in   string
		cm   float64
		unit Unit
	}{
		{"1in", 2.54, UnitIN},
		{"25.4mm", 2.54, UnitMM},
		{" 2.54 CM ", 2.54, UnitCM},
		{"72pt", 2.54, UnitPT},
		{"3", 3, UnitNone},
	}
	for _, c := range cases {
		l, err := ParseLength(c.in)
		if err != nil {
			t.Fatalf("%q 解析失败: %v", c.in, err)
		}
		if l.Unit != c.unit || math.Abs(l.CM()-c.cm) > 1e-9 {
			t.Fatalf("%q 期望 %gcm(%s)，实际 %gcm(%s)", c.in, c.cm, UnitToString(c.unit), l.CM(), UnitToString(l.Unit))
		}
	}
	if _, err := ParseLength("abc"); err == nil {
		t.Fatalf("非法长度应报错")
	}
	if got := (Length{Value: 1, Unit: UnitCM}).PT(); math.Abs(got-PtPerCm) > 1e-9 {
		t.Fatalf("1cm 转 pt 错误: %g", got)
	}
}

// TestTwips 验证 RTF 使用的 twips 取整方式：先取整到 pt 再乘 20。
func TestTwips(t *testing.T) {
	if got := CmToTwips(2.54); got != 1440 {
		t.Fatalf("2.54cm 应为 1440 twips，实际 %d", got)
	}
	if got := CmToTwips(0.1); got != 60 {
		t.Fatalf("0.1cm 应为 60 twips，实际 %d", got)
	}
}
