// Package textrenderer 把分页结果输出为纯文本：每页是一个等宽字符网格，
// 页与页之间用换页符分隔。
package textrenderer

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/ByLCY/docgen/layout"
	"github.com/ByLCY/docgen/metrics"
	"github.com/ByLCY/docgen/renderer"
	"github.com/ByLCY/docgen/style"
)

// Renderer 按 12pt 等宽字体的字宽与行高把坐标映射到字符网格。
// 分页时应使用 Metrics 返回的度量，使折行与网格一致。
type Renderer struct {
	mono metrics.Monospace
	cell style.FontStyle
}

var _ renderer.Renderer = (*Renderer)(nil)

// NewRenderer 创建纯文本渲染器。
func NewRenderer() *Renderer {
	cell := style.NewFontStyle()
	cell.Face = style.Monospace
	return &Renderer{mono: metrics.NewMonospace(), cell: cell}
}

// Metrics 返回与网格一致的文本度量。
func (r *Renderer) Metrics() layout.Metrics { return r.mono }

// Render 输出所有页面。
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	cw := r.mono.CharWidth(r.cell)
	// 网格行高包含段落行距，连续的行恰好落在相邻的网格行上。
	rh := r.mono.LineHeight(r.cell) + layout.PtToCm(r.cell.Size*0.2)
	cols := int(math.Ceil(result.Width/cw - 1e-9))
	rows := int(math.Ceil(result.Height/rh - 1e-9))
	var b strings.Builder
	for i, page := range result.Pages {
		if i > 0 {
			b.WriteByte('\f')
		}
		g := newGrid(cols, rows, cw, rh)
		g.page(page)
		g.writeTo(&b)
	}
	return []byte(b.String()), nil
}

type grid struct {
	cells  [][]rune
	cw, rh float64
}

func newGrid(cols, rows int, cw, rh float64) *grid {
	g := &grid{cw: cw, rh: rh}
	g.cells = make([][]rune, max(rows, 1))
	for i := range g.cells {
		g.cells[i] = []rune(strings.Repeat(" ", max(cols, 1)))
	}
	return g
}

func (g *grid) col(x float64) int { return int(math.Round(x / g.cw)) }

func (g *grid) row(y float64) int { return int(math.Round(y / g.rh)) }

// set 写入一个字符，超出网格的部分丢弃，按需加宽。
func (g *grid) set(row, col int, ch rune) {
	if row < 0 || row >= len(g.cells) || col < 0 {
		return
	}
	line := g.cells[row]
	for col >= len(line) {
		line = append(line, ' ')
	}
	line[col] = ch
	g.cells[row] = line
}

func (g *grid) get(row, col int) rune {
	if row < 0 || row >= len(g.cells) || col < 0 || col >= len(g.cells[row]) {
		return ' '
	}
	return g.cells[row][col]
}

func (g *grid) text(row, col int, s string) {
	for _, ch := range s {
		g.set(row, col, ch)
		col++
	}
}

// stroke 写入线条字符，与另一方向的线交叉处写 '+'。
func (g *grid) stroke(row, col int, ch rune) {
	cur := g.get(row, col)
	if cur != ' ' && cur != ch && (cur == '-' || cur == '|' || cur == '+') {
		ch = '+'
	}
	g.set(row, col, ch)
}

func (g *grid) hline(y, x1, x2 float64) {
	r := g.row(y)
	c1, c2 := g.col(math.Min(x1, x2)), g.col(math.Max(x1, x2))
	for c := c1; c <= c2; c++ {
		g.stroke(r, c, '-')
	}
}

func (g *grid) vline(x, y1, y2 float64) {
	c := g.col(x)
	r1, r2 := g.row(math.Min(y1, y2)), g.row(math.Max(y1, y2))
	for r := r1; r <= r2; r++ {
		g.stroke(r, c, '|')
	}
}

// segment 只画水平与竖直线段，斜线按起点写一个点。
func (g *grid) segment(x1, y1, x2, y2 float64) {
	switch {
	case g.row(y1) == g.row(y2):
		g.hline(y1, x1, x2)
	case g.col(x1) == g.col(x2):
		g.vline(x1, y1, y2)
	default:
		g.set(g.row(y1), g.col(x1), '.')
	}
}

func (g *grid) page(p layout.Page) {
	for _, rc := range p.Rects {
		if rc.Stroke == nil {
			continue
		}
		g.hline(rc.Y, rc.X, rc.X+rc.Width)
		g.hline(rc.Y+rc.Height, rc.X, rc.X+rc.Width)
		g.vline(rc.X, rc.Y, rc.Y+rc.Height)
		g.vline(rc.X+rc.Width, rc.Y, rc.Y+rc.Height)
	}
	for _, pg := range p.Polygons {
		for i, a := range pg.Points {
			b := pg.Points[(i+1)%len(pg.Points)]
			g.segment(a.X, a.Y, b.X, b.Y)
		}
	}
	for _, ln := range p.Lines {
		g.segment(ln.X1, ln.Y1, ln.X2, ln.Y2)
	}
	for _, img := range p.Images {
		g.text(g.row(img.Y), g.col(img.X), "[image: "+filepath.Base(img.Path)+"]")
	}
	for _, tb := range p.Texts {
		for _, l := range tb.Lines {
			// 边框线可能与文字重合，文字优先。
			row := g.row(l.Y)
			for _, run := range l.Runs {
				g.text(row, g.col(run.X), run.Text)
			}
		}
	}
}

func (g *grid) writeTo(b *strings.Builder) {
	lines := make([]string, len(g.cells))
	for i, l := range g.cells {
		lines[i] = strings.TrimRight(string(l), " ")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
}
