package style

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrStyleNotFound 引用了样式表中不存在的样式名。
	ErrStyleNotFound = errors.New("style: 样式不存在")
	// ErrInvalidStyle 样式取值或样式文件格式非法。
	ErrInvalidStyle = errors.New("style: 样式无效")
)

// DefaultStyleName 每个样式表都隐式包含的段落样式。
const DefaultStyleName = "default"

// StyleSheet 按名称保存段落、表格、单元格与绘图样式。
// 存取均复制值，取出的样式被修改不会影响表内原值。
type StyleSheet struct {
	Name  string
	para  map[string]ParagraphStyle
	table map[string]TableStyle
	cell  map[string]TableCellStyle
	draw  map[string]GraphicsStyle
}

// New 创建只含 default 段落样式的样式表。
func New(name string) *StyleSheet {
	s := &StyleSheet{
		Name:  name,
		para:  map[string]ParagraphStyle{},
		table: map[string]TableStyle{},
		cell:  map[string]TableCellStyle{},
		draw:  map[string]GraphicsStyle{},
	}
	s.para[DefaultStyleName] = NewParagraphStyle()
	return s
}

func notFound(kind, name string) error {
	return fmt.Errorf("%w: %s %q", ErrStyleNotFound, kind, name)
}

// AddParagraphStyle 保存段落样式的副本。
func (s *StyleSheet) AddParagraphStyle(name string, p ParagraphStyle) {
	s.para[name] = p.Clone()
}

// AddTableStyle 保存表格样式的副本。
func (s *StyleSheet) AddTableStyle(name string, t TableStyle) {
	s.table[name] = t.Clone()
}

// AddCellStyle 保存单元格样式。
func (s *StyleSheet) AddCellStyle(name string, c TableCellStyle) {
	s.cell[name] = c
}

// AddDrawStyle 保存绘图样式。
func (s *StyleSheet) AddDrawStyle(name string, g GraphicsStyle) {
	s.draw[name] = g
}

// ParagraphStyle 返回段落样式副本。
func (s *StyleSheet) ParagraphStyle(name string) (ParagraphStyle, error) {
	p, ok := s.para[name]
	if !ok {
		return ParagraphStyle{}, notFound("paragraph", name)
	}
	return p.Clone(), nil
}

// TableStyle 返回表格样式副本。
func (s *StyleSheet) TableStyle(name string) (TableStyle, error) {
	t, ok := s.table[name]
	if !ok {
		return TableStyle{}, notFound("table", name)
	}
	return t.Clone(), nil
}

// CellStyle 返回单元格样式副本。
func (s *StyleSheet) CellStyle(name string) (TableCellStyle, error) {
	c, ok := s.cell[name]
	if !ok {
		return TableCellStyle{}, notFound("cell", name)
	}
	return c, nil
}

// DrawStyle 返回绘图样式副本。
func (s *StyleSheet) DrawStyle(name string) (GraphicsStyle, error) {
	g, ok := s.draw[name]
	if !ok {
		return GraphicsStyle{}, notFound("draw", name)
	}
	return g, nil
}

// HasParagraphStyle 判断段落样式是否存在。
func (s *StyleSheet) HasParagraphStyle(name string) bool {
	_, ok := s.para[name]
	return ok
}

func (s *StyleSheet) HasTableStyle(name string) bool {
	_, ok := s.table[name]
	return ok
}

func (s *StyleSheet) HasCellStyle(name string) bool {
	_, ok := s.cell[name]
	return ok
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ParagraphStyleNames 返回排序后的段落样式名。
func (s *StyleSheet) ParagraphStyleNames() []string { return sortedKeys(s.para) }

// TableStyleNames 返回排序后的表格样式名。
func (s *StyleSheet) TableStyleNames() []string { return sortedKeys(s.table) }

// CellStyleNames 返回排序后的单元格样式名。
func (s *StyleSheet) CellStyleNames() []string { return sortedKeys(s.cell) }

// DrawStyleNames 返回排序后的绘图样式名。
func (s *StyleSheet) DrawStyleNames() []string { return sortedKeys(s.draw) }

// Clone 深拷贝整个样式表。
func (s *StyleSheet) Clone() *StyleSheet {
	out := New(s.Name)
	out.Merge(s)
	return out
}

// Merge 将 other 中的所有样式复制到当前样式表，同名覆盖。
func (s *StyleSheet) Merge(other *StyleSheet) {
	if other == nil {
		return
	}
	for k, v := range other.para {
		s.para[k] = v.Clone()
	}
	for k, v := range other.table {
		s.table[k] = v.Clone()
	}
	for k, v := range other.cell {
		s.cell[k] = v
	}
	for k, v := range other.draw {
		s.draw[k] = v
	}
}

// Validate 校验全部段落样式以及绘图样式引用的段落样式。
func (s *StyleSheet) Validate() error {
	for _, name := range s.ParagraphStyleNames() {
		if err := s.para[name].Validate(); err != nil {
			return fmt.Errorf("段落样式 %q: %w", name, err)
		}
	}
	for _, name := range s.DrawStyleNames() {
		g := s.draw[name]
		if g.ParagraphStyle == "" {
			continue
		}
		if _, ok := s.para[g.ParagraphStyle]; !ok {
			return fmt.Errorf("绘图样式 %q: %w", name, notFound("paragraph", g.ParagraphStyle))
		}
	}
	return nil
}
