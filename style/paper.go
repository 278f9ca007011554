package style

import (
	"fmt"
	"strings"
)

// PaperSize 纸张物理尺寸（纵向，厘米）。
type PaperSize struct {
	Name   string  `json:"name"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Orientation 纸张方向。
type Orientation int

const (
	Portrait Orientation = iota
	Landscape
)

var paperSizes = []PaperSize{
	{"A3", 29.7, 42.0},
	{"A4", 21.0, 29.7},
	{"A5", 14.8, 21.0},
	{"B5", 17.6, 25.0},
	{"Letter", 21.59, 27.94},
	{"Legal", 21.59, 35.56},
	{"Tabloid", 27.94, 43.18},
}

// PaperSizes 返回内置纸张列表的副本。
func PaperSizes() []PaperSize {
	return append([]PaperSize(nil), paperSizes...)
}

// PaperByName 按名称查找纸张（忽略大小写）。
func PaperByName(name string) (PaperSize, error) {
	for _, p := range paperSizes {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return PaperSize{}, fmt.Errorf("%w: 未知纸张 %q", ErrInvalidStyle, name)
}

// PaperStyle 纸张尺寸、方向与四边页边距（厘米）。
type PaperStyle struct {
	Size         PaperSize   `json:"size"`
	Orientation  Orientation `json:"orientation"`
	TopMargin    float64     `json:"tmargin"`
	BottomMargin float64     `json:"bmargin"`
	LeftMargin   float64     `json:"lmargin"`
	RightMargin  float64     `json:"rmargin"`
}

// NewPaperStyle 返回指定纸张、纵向、2.54cm 页边距。
func NewPaperStyle(size PaperSize, o Orientation) PaperStyle {
	return PaperStyle{
		Size:         size,
		Orientation:  o,
		TopMargin:    2.54,
		BottomMargin: 2.54,
		LeftMargin:   2.54,
		RightMargin:  2.54,
	}
}

// DefaultPaper 为 Letter 纵向。
func DefaultPaper() PaperStyle {
	return NewPaperStyle(paperSizes[4], Portrait)
}

// Width 返回考虑方向后的纸张宽度。
func (p PaperStyle) Width() float64 {
	if p.Orientation == Landscape {
		return p.Size.Height
	}
	return p.Size.Width
}

// Height 返回考虑方向后的纸张高度。
func (p PaperStyle) Height() float64 {
	if p.Orientation == Landscape {
		return p.Size.Width
	}
	return p.Size.Height
}

// UsableWidth 纸宽减去左右页边距。
func (p PaperStyle) UsableWidth() float64 {
	return p.Width() - p.LeftMargin - p.RightMargin
}

// UsableHeight 纸高减去上下页边距。
func (p PaperStyle) UsableHeight() float64 {
	return p.Height() - p.TopMargin - p.BottomMargin
}

// SetMargins 统一设置四边页边距。
func (p *PaperStyle) SetMargins(cm float64) {
	p.TopMargin, p.BottomMargin, p.LeftMargin, p.RightMargin = cm, cm, cm, cm
}

// Validate 确保可用区域为正。
func (p PaperStyle) Validate() error {
	if p.UsableWidth() <= 0 || p.UsableHeight() <= 0 {
		return fmt.Errorf("%w: 页边距超出纸张 %s", ErrInvalidStyle, p.Size.Name)
	}
	return nil
}
