package layout

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"

	"github.com/ByLCY/docgen/doc"
	"github.com/ByLCY/docgen/style"
)

// Build 分页并解析目录与索引。
//
// 正文先独立分页；目录占位与索引占位各占一页，随后被生成的目录页与索引页整体替换。
// 目录或索引超过一页时，位于其后的页码需要顺延，顺延又可能改变目录自身的页数，
// 因此重复生成直到两者页数不再变化，最多 Options.MaxPasses 轮。
func Build(d *doc.Document, opts Options) (*Result, error) {
	opts, err := prepare(d, opts)
	if err != nil {
		return nil, err
	}
	body, err := paginate(d.Children, opts)
	if err != nil {
		return nil, err
	}

	tocAt, idxAt := markerPages(body)
	heads, alpha := collectMarks(body)
	sheet := d.Sheet
	if sheet == nil {
		sheet = style.Builtin()
	}
	sheet = sheet.Clone()
	style.AddTOCIndexStyles(sheet)
	col := collate.New(opts.languageTag())

	num := numbering{toc: tocAt, index: idxAt, tocPages: 1, indexPages: 1}
	var (
		toc      []TOCEntry
		index    []IndexEntry
		tocBody  []Page
		idxBody  []Page
		resolved bool
	)
	for pass := 1; pass <= opts.MaxPasses; pass++ {
		toc = tocEntries(heads, num)
		index = indexEntries(alpha, num, col)
		if tocAt >= 0 {
			gen, err := tocDocument(sheet, d.Paper, opts.TOCTitle, toc)
			if err != nil {
				return nil, err
			}
			if tocBody, err = paginate(gen.Children, opts); err != nil {
				return nil, err
			}
		}
		if idxAt >= 0 {
			gen, err := indexDocument(sheet, d.Paper, opts.IndexTitle, index)
			if err != nil {
				return nil, err
			}
			if idxBody, err = paginate(gen.Children, opts); err != nil {
				return nil, err
			}
		}
		opts.Logger.Debug("toc pass", "pass", pass, "tocPages", len(tocBody), "indexPages", len(idxBody))
		next := num
		if tocAt >= 0 {
			next.tocPages = len(tocBody)
		}
		if idxAt >= 0 {
			next.indexPages = len(idxBody)
		}
		if next == num {
			resolved = true
			break
		}
		num = next
	}
	if !resolved {
		return nil, fmt.Errorf("%w: %d 轮后目录 %d 页、索引 %d 页", ErrNoFixedPoint, opts.MaxPasses, len(tocBody), len(idxBody))
	}

	pages := make([]Page, 0, len(body)+len(tocBody)+len(idxBody))
	for i := range body {
		switch {
		case i == tocAt:
			pages = append(pages, tocBody...)
		case i == idxAt:
			pages = append(pages, idxBody...)
		default:
			pages = append(pages, body[i])
		}
	}
	for i := range pages {
		pages[i].Number = i + 1
		Arrange(&pages[i], opts)
	}
	return &Result{
		Pages:  pages,
		TOC:    toc,
		Index:  index,
		Width:  opts.Width,
		Height: opts.Height,
		Meta:   d.Meta,
		Paper:  d.Paper,
	}, nil
}

// numbering 把正文页下标（从 0 开始）换算为最终页码（从 1 开始）。
type numbering struct {
	toc        int
	index      int
	tocPages   int
	indexPages int
}

func (n numbering) page(i int) int {
	p := i + 1
	if n.toc >= 0 && n.toc < i {
		p += n.tocPages - 1
	}
	if n.index >= 0 && n.index < i {
		p += n.indexPages - 1
	}
	return p
}

// markerPages 返回第一个目录占位与索引占位所在的页下标，不存在时为 -1。
func markerPages(pages []Page) (toc, index int) {
	toc, index = -1, -1
	for i, p := range pages {
		for _, b := range p.Blocks {
			switch b.(type) {
			case *doc.TOCMarker:
				if toc < 0 {
					toc = i
				}
			case *doc.IndexMarker:
				if index < 0 {
					index = i
				}
			}
		}
	}
	return toc, index
}

type headMark struct {
	mark doc.IndexMark
	page int
}

// collectMarks 收集目录标记（按出现顺序）与字母索引标记（键到页下标集合）。
func collectMarks(pages []Page) ([]headMark, map[string]map[int]bool) {
	var heads []headMark
	alpha := map[string]map[int]bool{}
	for i, p := range pages {
		visit := func(m doc.IndexMark) {
			switch m.Type {
			case doc.MarkTOC:
				heads = append(heads, headMark{mark: m, page: i})
			case doc.MarkAlphabetical:
				if alpha[m.Key] == nil {
					alpha[m.Key] = map[int]bool{}
				}
				alpha[m.Key][i] = true
			}
		}
		for _, b := range p.Blocks {
			walkMarks(b, visit)
		}
	}
	return heads, alpha
}

func walkMarks(n doc.Node, visit func(doc.IndexMark)) {
	switch v := n.(type) {
	case *doc.Paragraph:
		for _, m := range v.Marks {
			visit(m.Mark)
		}
	case *doc.Table:
		for _, r := range v.Rows {
			for _, c := range r.Cells {
				for _, child := range c.Children {
					walkMarks(child, visit)
				}
			}
		}
	case *doc.Frame:
		for _, s := range v.Shapes {
			if t, ok := s.(*doc.Text); ok && t.Mark != nil {
				visit(*t.Mark)
			}
		}
	}
}

func tocEntries(heads []headMark, num numbering) []TOCEntry {
	out := make([]TOCEntry, 0, len(heads))
	for _, h := range heads {
		out = append(out, TOCEntry{Key: h.mark.Key, Level: h.mark.Level, Page: num.page(h.page)})
	}
	return out
}

func indexEntries(alpha map[string]map[int]bool, num numbering, col *collate.Collator) []IndexEntry {
	keys := make([]string, 0, len(alpha))
	for k := range alpha {
		keys = append(keys, k)
	}
	col.SortStrings(keys)
	out := make([]IndexEntry, 0, len(keys))
	for _, k := range keys {
		pages := make([]int, 0, len(alpha[k]))
		for i := range alpha[k] {
			pages = append(pages, num.page(i))
		}
		sort.Ints(pages)
		out = append(out, IndexEntry{Key: k, Pages: pages})
	}
	return out
}

// tableWriter 依次调用构建器，遇到第一个错误后停止。
type tableWriter struct {
	b   *doc.Builder
	err error
}

func (w *tableWriter) paragraph(styleName, text string) {
	if w.err != nil {
		return
	}
	if w.err = w.b.StartParagraph(styleName, ""); w.err != nil {
		return
	}
	w.err = w.b.WriteText(text, nil, false)
	w.b.EndParagraph()
}

func (w *tableWriter) startTable(name, styleName string) {
	if w.err == nil {
		w.err = w.b.StartTable(name, styleName)
	}
}

func (w *tableWriter) endTable() {
	if w.err == nil {
		w.b.EndTable()
	}
}

func (w *tableWriter) row(cellStyle, paraStyle string, texts ...string) {
	if w.err != nil {
		return
	}
	if w.err = w.b.StartRow(); w.err != nil {
		return
	}
	for _, text := range texts {
		if w.err = w.b.StartCell(cellStyle, 1); w.err != nil {
			return
		}
		w.paragraph(paraStyle, text)
		if w.err != nil {
			return
		}
		w.b.EndCell()
	}
	w.b.EndRow()
}

func (w *tableWriter) finish() (*doc.Document, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.b.Finish()
}

// 目录项层级超过内置样式时使用最深一级的样式。
const maxTOCLevel = 6

func tocDocument(sheet *style.StyleSheet, paper style.PaperStyle, title string, entries []TOCEntry) (*doc.Document, error) {
	w := &tableWriter{b: doc.NewBuilder(sheet, paper)}
	w.paragraph(style.TOCTitle, title)
	if len(entries) > 0 {
		w.startTable("toc", style.TOCTable)
		for _, e := range entries {
			name := style.TOCHeadingStyle(min(e.Level, maxTOCLevel))
			w.row(style.TOCCell, name, e.Key, strconv.Itoa(e.Page))
		}
		w.endTable()
	}
	return w.finish()
}

func indexDocument(sheet *style.StyleSheet, paper style.PaperStyle, title string, entries []IndexEntry) (*doc.Document, error) {
	w := &tableWriter{b: doc.NewBuilder(sheet, paper)}
	w.paragraph(style.IDXTitle, title)
	if len(entries) > 0 {
		w.startTable("index", style.IDXTable)
		for _, e := range entries {
			pages := make([]string, len(e.Pages))
			for i, p := range e.Pages {
				pages[i] = strconv.Itoa(p)
			}
			w.row(style.IDXCell, style.IDXEntry, e.Key, strings.Join(pages, ", "))
		}
		w.endTable()
	}
	return w.finish()
}
