package style

// TableStyle 表格样式：Width 为占可用宽度的百分比，ColumnWidths 为各列占表格宽度的百分比。
type TableStyle struct {
	Width        float64   `json:"width"`
	Columns      int       `json:"columns"`
	ColumnWidths []float64 `json:"columnWidths"`
}

// NewTableStyle 返回空表格样式。
func NewTableStyle() TableStyle {
	return TableStyle{}
}

// Clone 深拷贝列宽数组。
func (t TableStyle) Clone() TableStyle {
	out := t
	if t.ColumnWidths != nil {
		out.ColumnWidths = append([]float64(nil), t.ColumnWidths...)
	}
	return out
}

// SetColumns 调整列数，保留已有列宽，新列宽为 0。
func (t *TableStyle) SetColumns(n int) {
	if n < 0 {
		n = 0
	}
	widths := make([]float64, n)
	copy(widths, t.ColumnWidths)
	t.Columns = n
	t.ColumnWidths = widths
}

// SetColumnWidth 设置第 i 列宽度，必要时扩充列数。
func (t *TableStyle) SetColumnWidth(i int, percent float64) {
	if i < 0 {
		return
	}
	if i >= t.Columns {
		t.SetColumns(i + 1)
	}
	t.ColumnWidths[i] = percent
}

// ColumnWidth 返回第 i 列宽度，越界时为 0。
func (t TableStyle) ColumnWidth(i int) float64 {
	if i < 0 || i >= len(t.ColumnWidths) {
		return 0
	}
	return t.ColumnWidths[i]
}

// TableCellStyle 单元格样式。
type TableCellStyle struct {
	TopBorder    bool    `json:"tborder,omitempty"`
	BottomBorder bool    `json:"bborder,omitempty"`
	LeftBorder   bool    `json:"lborder,omitempty"`
	RightBorder  bool    `json:"rborder,omitempty"`
	Padding      float64 `json:"pad"`
	LongList     bool    `json:"longlist,omitempty"`
}

// NewTableCellStyle 返回无边框、无内边距的单元格样式。
func NewTableCellStyle() TableCellStyle {
	return TableCellStyle{}
}

// Borders 按 上/右/下/左 顺序返回边框开关。
func (c TableCellStyle) Borders() [4]bool {
	return [4]bool{c.TopBorder, c.RightBorder, c.BottomBorder, c.LeftBorder}
}
