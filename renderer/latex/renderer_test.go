package latexrenderer

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ByLCY/docgen/doc"
	"github.com/ByLCY/docgen/style"
)

func render(t *testing.T, baseDir string, build func(b *doc.Builder) error) string {
	t.Helper()
	b := doc.NewBuilder(nil, style.DefaultPaper())
	if err := build(b); err != nil {
		t.Fatalf("构建文档失败: %v", err)
	}
	d, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish 失败: %v", err)
	}
	out, err := NewRenderer(baseDir).RenderTree(d)
	if err != nil {
		t.Fatalf("渲染失败: %v", err)
	}
	return string(out)
}

func mustContain(t *testing.T, out string, parts ...string) {
	t.Helper()
	for _, p := range parts {
		if !strings.Contains(out, p) {
			t.Fatalf("输出缺少 %q:\n%s", p, out)
		}
	}
}

func TestEscape(t *testing.T) {
	got := escape(`50% of $x_1 & {a} #2 ~ ^ \`)
	want := `50\% of \$x\_1 \& \{a\} \#2 \textasciitilde{} \textasciicircum{} \textbackslash{}`
	if got != want {
		t.Fatalf("转义错误:\n%s\n期望\n%s", got, want)
	}
}

func TestPreambleAndParagraphs(t *testing.T) {
	out := render(t, ".", func(b *doc.Builder) error {
		b.SetMeta(doc.Meta{Title: "A & B"})
		if err := b.InsertTOC(); err != nil {
			return err
		}
		if err := b.StartParagraph("Heading1", ""); err != nil {
			return err
		}
		m := doc.NewIndexMark("Intro", doc.MarkTOC)
		if err := b.WriteText("Intro", &m, false); err != nil {
			return err
		}
		b.EndParagraph()
		if err := b.StartParagraph("Normal", ""); err != nil {
			return err
		}
		idx := doc.NewIndexMark("Smith", doc.MarkAlphabetical)
		if err := b.WriteMarkup("x_1 <b>50%</b> <a href=\"http://a.org/#top\">link</a>", &idx, false); err != nil {
			return err
		}
		b.EndParagraph()
		return b.InsertIndex()
	})
	if !strings.HasPrefix(out, "\\documentclass{article}\n") || !strings.HasSuffix(out, "\\end{document}\n") {
		t.Fatalf("文档首尾错误:\n%s", out)
	}
	mustContain(t, out,
		`\usepackage[paperwidth=21.59cm,paperheight=27.94cm,left=2.54cm,right=2.54cm,top=2.54cm,bottom=2.54cm]{geometry}`,
		`\hypersetup{pdftitle={A \& B}}`,
		"\\makeindex\n",
		"\\tableofcontents\n\\clearpage\n",
		"\\section{Intro}\n\n",
		`{\raggedright\parindent=0.00cm\fontsize{12.0}{14.4}\selectfont x\_1 \textbf{50\%} \href{http://a.org/\#top}{link}\index{Smith}\par}`,
		"\\vspace{0.20cm}\n",
		"\\printindex\n",
	)
	if strings.Contains(out, `\addcontentsline`) {
		t.Fatalf("标题不应重复添加目录项")
	}
}

func TestTableUsesMulticolumnCells(t *testing.T) {
	out := render(t, ".", func(b *doc.Builder) error {
		if err := b.StartTable("t", "Table"); err != nil {
			return err
		}
		if err := b.StartRow(); err != nil {
			return err
		}
		for _, text := range []string{"key", "value"} {
			if err := b.StartCell("Cell", 1); err != nil {
				return err
			}
			if err := b.WriteText(text, nil, false); err != nil {
				return err
			}
			b.EndCell()
		}
		b.EndRow()
		b.EndTable()
		return nil
	})
	mustContain(t, out,
		"{\\setlength{\\tabcolsep}{0.10cm}\n\\begin{longtable}[l]{p{4.75cm}p{11.36cm}}\n",
		"\\cline{1-1}\\cline{2-2}\n\\multicolumn{1}{|p{4.75cm}|}{",
		"key\\par}\n",
		"} & \\multicolumn{1}{|p{11.36cm}|}{",
		"} \\\\\n\\cline{1-1}\\cline{2-2}\n\\end{longtable}}\n",
	)
}

func TestCroppedImage(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 40, 20))); err != nil {
		t.Fatalf("编码图片失败: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.png"), buf.Bytes(), 0o644); err != nil {
		t.Fatalf("写图片失败: %v", err)
	}
	out := render(t, dir, func(b *doc.Builder) error {
		return b.AddMedia("a.png", "center", 4, 2, "", "", &doc.Crop{Left: 0, Top: 0, Right: 50, Bottom: 100})
	})
	mustContain(t, out, "\\begin{center}\n\\includegraphics[width=4.00cm,height=2.00cm,keepaspectratio,trim=0 0 20 0,clip]{a.png}\n\\end{center}\n")

	d := &doc.Document{Paper: style.DefaultPaper(), Children: []doc.Block{
		&doc.Image{Path: "missing.png", Width: 1, Crop: &doc.Crop{Right: 50, Bottom: 50}},
	}}
	if _, err := NewRenderer(dir).RenderTree(d); err == nil {
		t.Fatalf("裁剪缺失的图片应返回错误")
	}
}

func TestDrawPagePicture(t *testing.T) {
	out := render(t, ".", func(b *doc.Builder) error {
		if err := b.StartPage(); err != nil {
			return err
		}
		if err := b.DrawBox("Box", "boxed", 1, 1, 4, 2, nil); err != nil {
			return err
		}
		if err := b.RotateText("Line", []string{"a", "b"}, 5, 8, 90, nil); err != nil {
			return err
		}
		b.EndPage()
		return nil
	})
	mustContain(t, out,
		"\\begin{picture}(16.51,22.86)\n",
		"{\\color[HTML]{C0C0C0}\\put(1.20,19.66){\\rule{4.00cm}{2.00cm}}}\n",
		"{\\linethickness{0.50pt}\\color[HTML]{000000}\\polygon(1.00,21.86)(5.00,21.86)(5.00,19.86)(1.00,19.86)}\n",
		"\\put(1.20,20.86){\\makebox(0,0)[l]{\\fontsize{9.0}{10.8}\\selectfont\\sffamily\\shortstack[l]{boxed}}}\n",
		"\\put(5.00,14.86){\\rotatebox{90}{\\makebox(0,0){\\fontsize{9.0}{10.8}\\selectfont\\sffamily\\shortstack[c]{a\\\\b}}}}\n",
		"\\end{picture}\\par\n",
	)
}
