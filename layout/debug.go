package layout

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/ByLCY/docgen/doc"
)

// debugBlock 页面上一个节点的摘要。
type debugBlock struct {
	Kind string `json:"kind"`
	Text string `json:"text,omitempty"`
}

type debugPage struct {
	Page
	Content []debugBlock `json:"content"`
}

type debugResult struct {
	*Result
	Pages []debugPage `json:"pages"`
}

// summarize 提取节点的可读文本，表格按单元格用 | 连接。
func summarize(n doc.Node) string {
	switch v := n.(type) {
	case *doc.Paragraph:
		return v.Content.Plain
	case *doc.Table:
		var parts []string
		for _, r := range v.Rows {
			for _, c := range r.Cells {
				for _, child := range c.Children {
					parts = append(parts, summarize(child))
				}
			}
		}
		return strings.Join(parts, "|")
	case *doc.Image:
		return v.Path
	}
	return ""
}

// EncodeDebug 将布局结果编码为带缩进的 JSON，每页附带节点摘要。
func EncodeDebug(w io.Writer, res *Result) error {
	if res == nil {
		return nil
	}
	out := debugResult{Result: res, Pages: make([]debugPage, len(res.Pages))}
	for i, p := range res.Pages {
		dp := debugPage{Page: p, Content: make([]debugBlock, 0, len(p.Blocks))}
		for _, b := range p.Blocks {
			dp.Content = append(dp.Content, debugBlock{Kind: b.Kind().String(), Text: summarize(b)})
		}
		out.Pages[i] = dp
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteDebugJSON 将布局结果输出为 JSON，便于调试或可视化。
func WriteDebugJSON(res *Result, path string) error {
	if res == nil {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeDebug(f, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
