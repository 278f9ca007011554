package dsl_test

import (
	"strings"
	"testing"

	"github.com/ByLCY/docgen/dsl"
)

const sampleDSL = `
doc Report v1 {
  meta {
    title: "Quarterly ${company}"
    author: user.name
    keywords: [
      "finance"
      "internal"
    ]
  }

  paper A4 landscape margin 2cm

  styles {
    para Warn from Normal {
      color: #c00000
      bold: true
      size: 14pt
    }
  }

  # 正文
  flow {
    toc
    heading 1 "Intro"
    para Normal mark "Smith" { "Hello, ${user.name}!" }

    table Table {
      each item in items {
        row {
          cell Cell "${item.name}"
          cell Cell { para Warn { "${item.price}" } }
        }
      }
    }
  }

  page {
    box Box 1cm 1cm 4cm 2cm "boxed" // 带阴影
    line Line 0 5cm 4cm 5cm
  }
}
`

func TestParseDocument(t *testing.T) {
	doc, err := dsl.ParseString(sampleDSL)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if doc.Name != "Report" || doc.Version != "v1" {
		t.Fatalf("unexpected header %s %s", doc.Name, doc.Version)
	}
	kinds := make([]string, 0, len(doc.Sections))
	for _, s := range doc.Sections {
		kinds = append(kinds, s.Kind())
	}
	if got := strings.Join(kinds, ","); got != "meta,paper,styles,flow,page" {
		t.Fatalf("unexpected sections: %s", got)
	}

	meta := doc.Sections[0].Meta
	title := meta.Block.Statements[0].Assignment
	if title == nil || title.Key != "title" || string(*title.Value.String) != "Quarterly ${company}" {
		t.Fatalf("expected title assignment, got %+v", meta.Block.Statements[0])
	}
	author := meta.Block.Statements[1].Assignment
	if author == nil || author.Value.Expr == nil || author.Value.Expr.Path() != "user.name" {
		t.Fatalf("author should capture expression, got %+v", meta.Block.Statements[1])
	}
	keywords := meta.Block.Statements[2].Assignment
	if keywords == nil || keywords.Value.Array == nil || len(keywords.Value.Array.Values) != 2 {
		t.Fatalf("expected 2 keywords")
	}

	paper := doc.Sections[1].Paper
	if paper.Size != "A4" || dsl.JoinRaw(paper.Params) != "landscapemargin2cm" {
		t.Fatalf("unexpected paper: %s %+v", paper.Size, paper.Params)
	}

	warn := doc.Sections[2].Styles.Block.Statements[0].Command
	if warn == nil || warn.Name != "para" || len(warn.Args) != 3 || warn.Args[2].Value != "Normal" {
		t.Fatalf("unexpected style command: %+v", warn)
	}
	color := warn.Block.Statements[0].Assignment
	if color == nil || color.Value.Color == nil || *color.Value.Color != "#c00000" {
		t.Fatalf("expected color value, got %+v", warn.Block.Statements[0])
	}
	size := warn.Block.Statements[2].Assignment
	if size == nil || size.Value.Number == nil || *size.Value.Number != "14pt" {
		t.Fatalf("expected number with unit, got %+v", warn.Block.Statements[2])
	}

	flow := doc.Sections[3].Flow.Block.Statements
	if len(flow) != 4 {
		t.Fatalf("expected 4 flow statements, got %d", len(flow))
	}
	if flow[0].Command == nil || flow[0].Command.Name != "toc" || len(flow[0].Command.Args) != 0 {
		t.Fatalf("expected bare toc command, got %+v", flow[0])
	}
	para := flow[2].Command
	if para.Name != "para" || para.Block == nil || para.Block.Statements[0].Text == nil {
		t.Fatalf("para command missing literal content")
	}
	if got := string(para.Block.Statements[0].Text.Value); got != "Hello, ${user.name}!" {
		t.Fatalf("unexpected text literal: %s", got)
	}
	if para.Args[1].Type != "Ident" || para.Args[2].Type != "String" || para.Args[2].Value != "Smith" {
		t.Fatalf("unexpected para args: %+v", para.Args)
	}

	each := flow[3].Command.Block.Statements[0].Command
	if each == nil || each.Name != "each" || dsl.JoinRaw(each.Args) != "iteminitems" {
		t.Fatalf("unexpected each command: %+v", flow[3].Command.Block.Statements[0])
	}
	row := each.Block.Statements[0].Command
	if row == nil || row.Name != "row" || len(row.Block.Statements) != 2 {
		t.Fatalf("row should contain 2 cells")
	}

	page := doc.Sections[4].Page.Block.Statements
	box := page[0].Command
	if box.Name != "box" || len(box.Args) != 6 || box.Args[2].Value != "1cm" || box.Args[5].Value != "boxed" {
		t.Fatalf("unexpected box args: %+v", box.Args)
	}
	if page[1].Command.Pos.Line != 40 {
		t.Fatalf("line command position should be recorded, got %v", page[1].Command.Pos)
	}
}

func TestParseRawStringAndNegativeNumbers(t *testing.T) {
	src := "doc D v1 {\n  flow {\n    note Normal markdown { `# Title\n\nbody \"quoted\"` }\n  }\n  page { line Line -1cm 0 2cm .5 }\n}\n"
	doc, err := dsl.ParseString(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	note := doc.Sections[0].Flow.Block.Statements[0].Command
	if got := string(note.Block.Statements[0].Text.Value); got != "# Title\n\nbody \"quoted\"" {
		t.Fatalf("raw string not preserved: %q", got)
	}
	line := doc.Sections[1].Page.Block.Statements[0].Command
	if got := dsl.JoinRaw(line.Args); got != "Line-1cm02cm.5" {
		t.Fatalf("unexpected tokens: %s", got)
	}
}

func TestParseError(t *testing.T) {
	if _, err := dsl.ParseString("doc D v1 {\n  flow {\n"); err == nil {
		t.Fatalf("unterminated block should fail")
	}
	if _, err := dsl.ParseString("flow { }"); err == nil {
		t.Fatalf("missing doc header should fail")
	}
}
