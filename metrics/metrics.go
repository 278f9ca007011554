// Package metrics 提供排版引擎使用的文本度量实现。
//
// Monospace 只依赖字号，结果可预测，用于纯文本输出与测试；
// GoFont 读取内置字体（衬线体 Latin Modern，其余为 Go 字体）的真实字宽，用于 PDF 与 SVG 输出。
package metrics

import (
	"unicode/utf8"

	"github.com/ByLCY/docgen/style"
)

const cmPerPt = 2.54 / 72

// Monospace 每个字符占 Advance 个 em，行高为 Leading 个 em。
type Monospace struct {
	Advance float64
	Leading float64
}

// NewMonospace 返回 0.6em 字宽、1.2em 行高的等宽度量。
func NewMonospace() Monospace {
	return Monospace{Advance: 0.6, Leading: 1.2}
}

// TextWidth 返回文本宽度（厘米）。
func (m Monospace) TextWidth(font style.FontStyle, text string) float64 {
	return float64(utf8.RuneCountInString(text)) * m.Advance * font.Size * cmPerPt
}

// LineHeight 返回行高（厘米）。
func (m Monospace) LineHeight(font style.FontStyle) float64 {
	return m.Leading * font.Size * cmPerPt
}

// Ascent 返回基线以上高度，取字号本身。
func (m Monospace) Ascent(font style.FontStyle) float64 {
	return font.Size * cmPerPt
}

// CharWidth 返回单个字符宽度（厘米），纯文本后端据此换算列数。
func (m Monospace) CharWidth(font style.FontStyle) float64 {
	return m.Advance * font.Size * cmPerPt
}
