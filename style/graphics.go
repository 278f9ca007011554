package style

import "fmt"

// LineStyle 线型。
type LineStyle int

const (
	Solid LineStyle = iota
	Dashed
	Dotted
)

func (l LineStyle) String() string {
	switch l {
	case Dashed:
		return "dashed"
	case Dotted:
		return "dotted"
	default:
		return "solid"
	}
}

// ParseLineStyle 接受 solid/dashed/dotted 或 0/1/2。
func ParseLineStyle(s string) (LineStyle, error) {
	switch s {
	case "solid", "0", "":
		return Solid, nil
	case "dashed", "1":
		return Dashed, nil
	case "dotted", "2":
		return Dotted, nil
	}
	return Solid, fmt.Errorf("%w: 未知线型 %q", ErrInvalidStyle, s)
}

// Dashes 返回以线宽为单位的虚线模式，实线为 nil。
func (l LineStyle) Dashes() []float64 {
	switch l {
	case Dashed:
		return []float64{2, 4}
	case Dotted:
		return []float64{1, 2}
	default:
		return nil
	}
}

// GraphicsStyle 绘图样式。LineWidth 单位为 pt，ShadowSpace 为厘米。
type GraphicsStyle struct {
	LineWidth      float64   `json:"lwidth"`
	LineStyle      LineStyle `json:"lstyle"`
	Color          Color     `json:"color"`
	Fill           Color     `json:"fill"`
	Shadow         bool      `json:"shadow,omitempty"`
	ShadowSpace    float64   `json:"shadowSpace"`
	ParagraphStyle string    `json:"para,omitempty"`
}

// NewGraphicsStyle 返回默认绘图样式。
func NewGraphicsStyle() GraphicsStyle {
	return GraphicsStyle{
		LineWidth:   0.5,
		LineStyle:   Solid,
		Color:       Black,
		Fill:        White,
		ShadowSpace: 0.2,
	}
}
