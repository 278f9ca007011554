package layout

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/ByLCY/docgen/doc"
	"github.com/ByLCY/docgen/markup"
	"github.com/ByLCY/docgen/style"
)

func TestEncodeDebugSummarizesBlocks(t *testing.T) {
	p := &doc.Paragraph{StyleName: "Normal", Style: style.NewParagraphStyle(), Content: markup.Plain("hello")}
	res, err := Build(&doc.Document{Children: []doc.Block{p, &doc.PageBreak{}}}, monoOptions(10, 10))
	if err != nil {
		t.Fatalf("Build 失败: %v", err)
	}
	var buf bytes.Buffer
	if err := EncodeDebug(&buf, res); err != nil {
		t.Fatalf("编码失败: %v", err)
	}
	var out struct {
		Pages []struct {
			Number  int `json:"number"`
			Content []struct {
				Kind string `json:"kind"`
				Text string `json:"text"`
			} `json:"content"`
			Texts []json.RawMessage `json:"texts"`
		} `json:"pages"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("输出不是合法 JSON: %v", err)
	}
	if len(out.Pages) != 1 || out.Pages[0].Number != 1 {
		t.Fatalf("页数或页码错误: %+v", out.Pages)
	}
	content := out.Pages[0].Content
	if len(content) != 2 || content[0].Text != "hello" || content[1].Kind != doc.KindPageBreak.String() {
		t.Fatalf("节点摘要错误: %+v", content)
	}
	if len(out.Pages[0].Texts) != 1 {
		t.Fatalf("应包含排列后的文本框")
	}
}
