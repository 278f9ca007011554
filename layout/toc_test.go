package layout

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ByLCY/docgen/doc"
	"github.com/ByLCY/docgen/style"
)

// chapterDoc 生成目录占位加 n 个各占一页的章节；indexKeys 按章节写入字母索引标记。
func chapterDoc(t *testing.T, n int, indexKeys map[int]string) *doc.Document {
	t.Helper()
	b := doc.NewBuilder(nil, style.DefaultPaper())
	must(t, b.InsertTOC())
	for i := 0; i < n; i++ {
		if i > 0 {
			must(t, b.PageBreak())
		}
		key := fmt.Sprintf("Chapter %02d", i)
		mark := doc.NewIndexMark(key, doc.MarkTOC)
		must(t, b.StartParagraph("Heading1", ""))
		must(t, b.WriteText(key, &mark, false))
		b.EndParagraph()
		must(t, b.StartParagraph("Normal", ""))
		must(t, b.WriteText("body of "+key+" ", nil, false))
		if k, ok := indexKeys[i]; ok {
			m := doc.NewIndexMark(k, doc.MarkAlphabetical)
			must(t, b.WriteText(k, &m, false))
		}
		b.EndParagraph()
	}
	if len(indexKeys) > 0 {
		must(t, b.InsertIndex())
	}
	d, err := b.Finish()
	must(t, err)
	return d
}

func pageHasMark(p Page, key string) bool {
	found := false
	for _, blk := range p.Blocks {
		walkMarks(blk, func(m doc.IndexMark) {
			if m.Key == key {
				found = true
			}
		})
	}
	return found
}

func checkTOCTargets(t *testing.T, res *Result) {
	t.Helper()
	for _, e := range res.TOC {
		if e.Page < 1 || e.Page > len(res.Pages) {
			t.Fatalf("目录项 %q 的页码 %d 越界（共 %d 页）", e.Key, e.Page, len(res.Pages))
		}
		if !pageHasMark(res.Pages[e.Page-1], e.Key) {
			t.Fatalf("目录项 %q 指向第 %d 页，但该页没有对应内容", e.Key, e.Page)
		}
	}
}

func TestTOCSinglePage(t *testing.T) {
	d := chapterDoc(t, 3, nil)
	res, err := Build(d, monoOptions(0, 0))
	if err != nil {
		t.Fatalf("Build 失败: %v", err)
	}
	if len(res.Pages) != 4 {
		t.Fatalf("期望 1 页目录加 3 页正文，实际 %d 页", len(res.Pages))
	}
	if got := blockText(res.Pages[0].Blocks[0]); got != "Contents" {
		t.Fatalf("第一页应为目录标题，实际 %q", got)
	}
	want := []TOCEntry{
		{Key: "Chapter 00", Level: 1, Page: 2},
		{Key: "Chapter 01", Level: 1, Page: 3},
		{Key: "Chapter 02", Level: 1, Page: 4},
	}
	if diff := cmp.Diff(want, res.TOC); diff != "" {
		t.Fatalf("目录项不符 (-want +got):\n%s", diff)
	}
	checkTOCTargets(t, res)
	for i, p := range res.Pages {
		if p.Number != i+1 {
			t.Fatalf("页码应连续，第 %d 页编号为 %d", i+1, p.Number)
		}
	}
}

func TestTOCSpanningSeveralPages(t *testing.T) {
	d := chapterDoc(t, 40, nil)
	res, err := Build(d, monoOptions(15, 6))
	if err != nil {
		t.Fatalf("Build 失败: %v", err)
	}
	tocPages := 0
	for !pageHasMark(res.Pages[tocPages], "Chapter 00") {
		tocPages++
	}
	if tocPages < 2 {
		t.Fatalf("目录应跨多页，实际 %d 页", tocPages)
	}
	if len(res.Pages) != tocPages+40 {
		t.Fatalf("总页数错误: %d", len(res.Pages))
	}
	for i, e := range res.TOC {
		if e.Page != tocPages+1+i {
			t.Fatalf("目录项 %q 页码 %d，期望 %d", e.Key, e.Page, tocPages+1+i)
		}
	}
	checkTOCTargets(t, res)
}

func TestIndexEntriesAreCollated(t *testing.T) {
	keys := map[int]string{0: "cherry", 1: "Banana", 2: "apple", 3: "Banana"}
	d := chapterDoc(t, 4, keys)
	res, err := Build(d, monoOptions(0, 0))
	if err != nil {
		t.Fatalf("Build 失败: %v", err)
	}
	// 目录 1 页，正文 4 页，索引在最后。
	want := []IndexEntry{
		{Key: "apple", Pages: []int{4}},
		{Key: "Banana", Pages: []int{3, 5}},
		{Key: "cherry", Pages: []int{2}},
	}
	if diff := cmp.Diff(want, res.Index); diff != "" {
		t.Fatalf("索引不符 (-want +got):\n%s", diff)
	}
	for _, e := range res.Index {
		for _, p := range e.Pages {
			if !pageHasMark(res.Pages[p-1], e.Key) {
				t.Fatalf("索引项 %q 指向第 %d 页，但该页没有对应内容", e.Key, p)
			}
		}
	}
	last := res.Pages[len(res.Pages)-1]
	if got := blockText(last.Blocks[0]); got != "Index" {
		t.Fatalf("最后一页应为索引，实际 %q", got)
	}
}

func TestNumberingShiftsAfterGeneratedPages(t *testing.T) {
	n := numbering{toc: 0, index: 5, tocPages: 3, indexPages: 2}
	cases := map[int]int{0: 1, 1: 4, 4: 7, 5: 8, 6: 10}
	for idx, want := range cases {
		if got := n.page(idx); got != want {
			t.Fatalf("第 %d 个正文页应编号 %d，实际 %d", idx, want, got)
		}
	}
	none := numbering{toc: -1, index: -1, tocPages: 1, indexPages: 1}
	if got := none.page(3); got != 4 {
		t.Fatalf("没有目录时页码不应顺延: %d", got)
	}
}

func TestBuildReportsNoFixedPoint(t *testing.T) {
	d := chapterDoc(t, 40, nil)
	opts := monoOptions(15, 6)
	opts.MaxPasses = 1
	if _, err := Build(d, opts); !errors.Is(err, ErrNoFixedPoint) {
		t.Fatalf("一轮内无法确定多页目录，应返回 ErrNoFixedPoint，实际 %v", err)
	}
}

func TestPageBreakAfterTOCAddsNoBlankPage(t *testing.T) {
	b := doc.NewBuilder(nil, style.DefaultPaper())
	must(t, b.InsertTOC())
	must(t, b.PageBreak())
	mark := doc.NewIndexMark("Ch1", doc.MarkTOC)
	must(t, b.StartParagraph("Heading1", ""))
	must(t, b.WriteText("Ch1", &mark, false))
	b.EndParagraph()
	d, err := b.Finish()
	must(t, err)

	res, err := Build(d, monoOptions(0, 0))
	if err != nil {
		t.Fatalf("Build 失败: %v", err)
	}
	if len(res.Pages) != 2 {
		t.Fatalf("目录后的分页不应产生空白页，期望 2 页，实际 %d 页", len(res.Pages))
	}
	if diff := cmp.Diff([]TOCEntry{{Key: "Ch1", Level: 1, Page: 2}}, res.TOC); diff != "" {
		t.Fatalf("目录项错误 (-want +got):\n%s", diff)
	}
	checkTOCTargets(t, res)
}
