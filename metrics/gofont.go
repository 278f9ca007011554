package metrics

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/ByLCY/docgen/fonts"
	"github.com/ByLCY/docgen/style"
)

// GoFont 按内置字体测量文本，与 PDF 后端使用同一组字形文件。解析后的字体按字形缓存，可并发使用。
type GoFont struct {
	mu    sync.Mutex
	buf   sfnt.Buffer
	faces map[fonts.Variant]*goFace
}

type goFace struct {
	f       *sfnt.Font
	upem    float64
	ascent  float64
	descent float64
	height  float64
}

// NewGoFont 创建度量器，字体在首次使用时解析。
func NewGoFont() *GoFont {
	return &GoFont{faces: map[fonts.Variant]*goFace{}}
}

func (g *GoFont) face(v fonts.Variant) (*goFace, error) {
	if gf, ok := g.faces[v]; ok {
		return gf, nil
	}
	f, err := sfnt.Parse(v.TTF())
	if err != nil {
		return nil, fmt.Errorf("解析字体 %s 失败: %w", v.Name(), err)
	}
	upem := f.UnitsPerEm()
	m, err := f.Metrics(&g.buf, fixed.I(int(upem)), font.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("读取字体 %s 度量失败: %w", v.Name(), err)
	}
	gf := &goFace{
		f:       f,
		upem:    float64(upem),
		ascent:  float64(m.Ascent) / 64,
		descent: float64(m.Descent) / 64,
		height:  float64(m.Height) / 64,
	}
	g.faces[v] = gf
	return gf, nil
}

// TextWidth 返回文本宽度（厘米），包含字距调整。字体无法解析时退回等宽估算。
func (g *GoFont) TextWidth(f style.FontStyle, text string) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	gf, err := g.face(fonts.VariantOf(f))
	if err != nil {
		return NewMonospace().TextWidth(f, text)
	}
	ppem := fixed.I(int(gf.upem))
	var units fixed.Int26_6
	var prev sfnt.GlyphIndex
	for i, r := range text {
		idx, err := gf.f.GlyphIndex(&g.buf, r)
		if err != nil {
			continue
		}
		if i > 0 && prev != 0 {
			if k, err := gf.f.Kern(&g.buf, prev, idx, ppem, font.HintingNone); err == nil {
				units += k
			}
		}
		adv, err := gf.f.GlyphAdvance(&g.buf, idx, ppem, font.HintingNone)
		if err == nil {
			units += adv
		}
		prev = idx
	}
	return float64(units) / 64 / gf.upem * f.Size * cmPerPt
}

// LineHeight 返回字体建议行高（厘米）。
func (g *GoFont) LineHeight(f style.FontStyle) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	gf, err := g.face(fonts.VariantOf(f))
	if err != nil {
		return NewMonospace().LineHeight(f)
	}
	h := gf.height
	if h <= 0 {
		h = gf.ascent + gf.descent
	}
	return h / gf.upem * f.Size * cmPerPt
}

// Ascent 返回基线以上高度（厘米）。
func (g *GoFont) Ascent(f style.FontStyle) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	gf, err := g.face(fonts.VariantOf(f))
	if err != nil {
		return NewMonospace().Ascent(f)
	}
	return gf.ascent / gf.upem * f.Size * cmPerPt
}
