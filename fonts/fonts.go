// Package fonts 提供内置字体：衬线体使用 Latin Modern Roman，无衬线体与等宽体使用 Go 字体族，
// 按字体族与粗斜体组合取得字形文件数据。
package fonts

import (
	"github.com/go-fonts/latin-modern/lmroman10bold"
	"github.com/go-fonts/latin-modern/lmroman10bolditalic"
	"github.com/go-fonts/latin-modern/lmroman10italic"
	"github.com/go-fonts/latin-modern/lmroman10regular"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/ByLCY/docgen/style"
)

// Variant 是一个具体字形文件的标识。
type Variant struct {
	Face   style.FontFace
	Bold   bool
	Italic bool
}

// VariantOf 返回字体样式对应的字形文件。
func VariantOf(f style.FontStyle) Variant {
	return Variant{Face: f.Face, Bold: f.Bold, Italic: f.Italic}
}

// Family 返回字体族名称。
func Family(face style.FontFace) string {
	switch face {
	case style.SansSerif:
		return "Go"
	case style.Monospace:
		return "Go Mono"
	default:
		return "Latin Modern Roman"
	}
}

// Name 返回字体名称，后端以此去重与引用。
func (v Variant) Name() string {
	name := Family(v.Face)
	switch {
	case v.Bold && v.Italic:
		name += " Bold Italic"
	case v.Bold:
		name += " Bold"
	case v.Italic:
		name += " Italic"
	}
	return name
}

// TTF 返回字形文件内容，切片由调用方只读使用。Latin Modern 为 CFF 轮廓的 OpenType 文件。
func (v Variant) TTF() []byte {
	switch v.Face {
	case style.SansSerif:
		return pick(v, goregular.TTF, gobold.TTF, goitalic.TTF, gobolditalic.TTF)
	case style.Monospace:
		return pick(v, gomono.TTF, gomonobold.TTF, gomonoitalic.TTF, gomonobolditalic.TTF)
	default:
		return pick(v, lmroman10regular.TTF, lmroman10bold.TTF, lmroman10italic.TTF, lmroman10bolditalic.TTF)
	}
}

func pick(v Variant, regular, bold, italic, boldItalic []byte) []byte {
	switch {
	case v.Bold && v.Italic:
		return boldItalic
	case v.Bold:
		return bold
	case v.Italic:
		return italic
	default:
		return regular
	}
}

// Faces 返回全部字体族，顺序固定。
func Faces() []style.FontFace {
	return []style.FontFace{style.Serif, style.SansSerif, style.Monospace}
}

// Styles 返回某一字体族的四种字形。
func Styles(face style.FontFace) []Variant {
	var out []Variant
	for _, bold := range []bool{false, true} {
		for _, italic := range []bool{false, true} {
			out = append(out, Variant{Face: face, Bold: bold, Italic: italic})
		}
	}
	return out
}

// All 返回全部十二种字形，顺序固定。
func All() []Variant {
	var out []Variant
	for _, face := range Faces() {
		out = append(out, Styles(face)...)
	}
	return out
}
