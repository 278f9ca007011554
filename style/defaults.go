package style

import "strconv"

// 目录与索引使用的样式名。
const (
	TOCTitle   = "TOC-Title"
	TOCTable   = "TOC-Table"
	TOCCell    = "TOC-Cell"
	TOCHeading = "TOC-Heading" // 后接层级数字
	IDXTitle   = "IDX-Title"
	IDXTable   = "IDX-Table"
	IDXCell    = "IDX-Cell"
	IDXEntry   = "IDX-Entry"
)

// TOCHeadingStyle 返回第 level 级目录项样式名。
func TOCHeadingStyle(level int) string {
	if level < 1 {
		level = 1
	}
	return TOCHeading + strconv.Itoa(level)
}

// AddTOCIndexStyles 为目录与索引补充缺省样式，已存在的同名样式保持不变。
func AddTOCIndexStyles(s *StyleSheet) {
	title := NewParagraphStyle()
	title.Font.Face = SansSerif
	title.Font.Size = 14
	title.Font.Bold = true
	title.Align = AlignCenter
	title.BottomMargin = 0.5
	title.Description = "目录或索引标题"
	for _, name := range []string{TOCTitle, IDXTitle} {
		if !s.HasParagraphStyle(name) {
			s.AddParagraphStyle(name, title)
		}
	}
	for level := 1; level <= 6; level++ {
		name := TOCHeadingStyle(level)
		if s.HasParagraphStyle(name) {
			continue
		}
		p := NewParagraphStyle()
		p.LeftMargin = 0.5 * float64(level-1)
		p.TopMargin = 0.05
		p.Description = "目录项"
		s.AddParagraphStyle(name, p)
	}
	if !s.HasParagraphStyle(IDXEntry) {
		p := NewParagraphStyle()
		p.FirstIndent = -0.5
		p.LeftMargin = 0.5
		p.Description = "索引项"
		s.AddParagraphStyle(IDXEntry, p)
	}
	if !s.HasTableStyle(TOCTable) {
		t := NewTableStyle()
		t.Width = 100
		t.SetColumnWidth(0, 88)
		t.SetColumnWidth(1, 12)
		s.AddTableStyle(TOCTable, t)
	}
	if !s.HasTableStyle(IDXTable) {
		t := NewTableStyle()
		t.Width = 100
		t.SetColumnWidth(0, 70)
		t.SetColumnWidth(1, 30)
		s.AddTableStyle(IDXTable, t)
	}
	for _, name := range []string{TOCCell, IDXCell} {
		if !s.HasCellStyle(name) {
			s.AddCellStyle(name, NewTableCellStyle())
		}
	}
}

// Builtin 返回报表常用的内置样式表，含标题、正文、表格与绘图样式。
func Builtin() *StyleSheet {
	s := New(DefaultSheetName)

	normal := NewParagraphStyle()
	normal.BottomMargin = 0.2
	normal.Description = "正文"
	s.AddParagraphStyle("Normal", normal)

	title := NewParagraphStyle()
	title.Font.Face = SansSerif
	title.Font.Size = 18
	title.Font.Bold = true
	title.Align = AlignCenter
	title.BottomMargin = 0.4
	title.Description = "报表标题"
	s.AddParagraphStyle("Title", title)

	for level, size := range []float64{16, 14, 12} {
		h := NewParagraphStyle()
		h.Font.Face = SansSerif
		h.Font.Size = size
		h.Font.Bold = true
		h.Level = level + 1
		h.TopMargin = 0.3
		h.BottomMargin = 0.15
		h.Description = "标题"
		s.AddParagraphStyle("Heading"+strconv.Itoa(level+1), h)
	}

	caption := NewParagraphStyle()
	caption.Font.Size = 9
	caption.Font.Italic = true
	caption.Align = AlignCenter
	caption.Description = "图片说明"
	s.AddParagraphStyle("Caption", caption)

	table := NewTableStyle()
	table.Width = 100
	table.SetColumnWidth(0, 30)
	table.SetColumnWidth(1, 70)
	s.AddTableStyle("Table", table)

	cell := NewTableCellStyle()
	cell.Padding = 0.1
	cell.TopBorder, cell.BottomBorder, cell.LeftBorder, cell.RightBorder = true, true, true, true
	s.AddCellStyle("Cell", cell)
	s.AddCellStyle("Plain", NewTableCellStyle())

	boxText := NewParagraphStyle()
	boxText.Font.Face = SansSerif
	boxText.Font.Size = 9
	boxText.Description = "图框文字"
	s.AddParagraphStyle("BoxText", boxText)

	box := NewGraphicsStyle()
	box.Shadow = true
	box.ParagraphStyle = "BoxText"
	s.AddDrawStyle("Box", box)

	line := NewGraphicsStyle()
	line.LineWidth = 1
	line.ParagraphStyle = "BoxText"
	s.AddDrawStyle("Line", line)

	AddTOCIndexStyles(s)
	return s
}
