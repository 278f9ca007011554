package style

import "fmt"

// FontFace 字体族类别。
type FontFace int

const (
	Serif FontFace = iota
	SansSerif
	Monospace
)

func (f FontFace) String() string {
	switch f {
	case SansSerif:
		return "sans-serif"
	case Monospace:
		return "monospace"
	default:
		return "serif"
	}
}

// FontStyle 描述字体；值类型，赋值即复制。
type FontStyle struct {
	Face      FontFace `json:"face"`
	Size      float64  `json:"size"` // pt
	Bold      bool     `json:"bold,omitempty"`
	Italic    bool     `json:"italic,omitempty"`
	Underline bool     `json:"underline,omitempty"`
	Color     Color    `json:"color"`
}

// NewFontStyle 返回默认字体：serif 12pt 黑色。
func NewFontStyle() FontStyle {
	return FontStyle{Face: Serif, Size: 12, Color: Black}
}

// Align 段落水平对齐方式。
type Align int

const (
	AlignLeft Align = iota
	AlignRight
	AlignCenter
	AlignJustify
)

func (a Align) String() string {
	switch a {
	case AlignRight:
		return "right"
	case AlignCenter:
		return "center"
	case AlignJustify:
		return "justify"
	default:
		return "left"
	}
}

// ParseAlign 接受 left/right/center/justify。
func ParseAlign(s string) (Align, error) {
	switch s {
	case "left", "":
		return AlignLeft, nil
	case "right":
		return AlignRight, nil
	case "center", "centre":
		return AlignCenter, nil
	case "justify":
		return AlignJustify, nil
	}
	return AlignLeft, fmt.Errorf("%w: 未知对齐方式 %q", ErrInvalidStyle, s)
}

// ParagraphStyle 段落样式。边距、缩进与内边距单位均为厘米。
// FirstIndent 允许为负数（悬挂缩进），其余边距不得为负。
type ParagraphStyle struct {
	Font         FontStyle `json:"font"`
	LeftMargin   float64   `json:"lmargin"`
	RightMargin  float64   `json:"rmargin"`
	TopMargin    float64   `json:"tmargin"`
	BottomMargin float64   `json:"bmargin"`
	FirstIndent  float64   `json:"first"`
	Align        Align     `json:"align"`
	Level        int       `json:"level,omitempty"`
	TopBorder    bool      `json:"tborder,omitempty"`
	BottomBorder bool      `json:"bborder,omitempty"`
	LeftBorder   bool      `json:"lborder,omitempty"`
	RightBorder  bool      `json:"rborder,omitempty"`
	Padding      float64   `json:"pad"`
	BgColor      Color     `json:"bgcolor"`
	Tabs         []float64 `json:"tabs,omitempty"`
	Description  string    `json:"description,omitempty"`
}

// NewParagraphStyle 返回默认段落样式：左对齐、白色背景。
func NewParagraphStyle() ParagraphStyle {
	return ParagraphStyle{Font: NewFontStyle(), Align: AlignLeft, BgColor: White}
}

// Clone 深拷贝段落样式，制表位切片不与原值共享。
func (p ParagraphStyle) Clone() ParagraphStyle {
	out := p
	if p.Tabs != nil {
		out.Tabs = append([]float64(nil), p.Tabs...)
	}
	return out
}

// HasBorder 判断是否绘制任意一侧边框。
func (p ParagraphStyle) HasBorder() bool {
	return p.TopBorder || p.BottomBorder || p.LeftBorder || p.RightBorder
}

// Validate 检查边距与内边距非负、对齐方式合法。
func (p ParagraphStyle) Validate() error {
	checks := []struct {
		name string
		v    float64
	}{
		{"lmargin", p.LeftMargin},
		{"rmargin", p.RightMargin},
		{"tmargin", p.TopMargin},
		{"bmargin", p.BottomMargin},
		{"pad", p.Padding},
	}
	for _, c := range checks {
		if c.v < 0 {
			return fmt.Errorf("%w: %s 不能为负数 (%g)", ErrInvalidStyle, c.name, c.v)
		}
	}
	if p.Align < AlignLeft || p.Align > AlignJustify {
		return fmt.Errorf("%w: 对齐方式越界 (%d)", ErrInvalidStyle, p.Align)
	}
	if p.Font.Size <= 0 {
		return fmt.Errorf("%w: 字号必须大于 0 (%g)", ErrInvalidStyle, p.Font.Size)
	}
	for i, t := range p.Tabs {
		if t < 0 || (i > 0 && t < p.Tabs[i-1]) {
			return fmt.Errorf("%w: 制表位须非负且递增 %v", ErrInvalidStyle, p.Tabs)
		}
	}
	return nil
}
