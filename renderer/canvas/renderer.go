package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/svg"

	"github.com/ByLCY/docgen/fonts"
	"github.com/ByLCY/docgen/layout"
	"github.com/ByLCY/docgen/markup"
	"github.com/ByLCY/docgen/media"
	"github.com/ByLCY/docgen/metrics"
	"github.com/ByLCY/docgen/renderer"
	"github.com/ByLCY/docgen/style"
)

// canvas 以毫米为单位，布局以厘米为单位。
const mmPerCm = 10

// 下划线相对基线的位置与粗细，按字号比例。
const (
	underlineOffset = 0.1
	underlineWidth  = 0.05
)

// Format 选择输出格式。
type Format int

const (
	PDF Format = iota
	// SVG 把所有页面自上而下排在同一张画布上。
	SVG
)

// Renderer draws layout results via github.com/tdewolff/canvas. It also
// measures text with the same faces, so it can drive pagination directly.
type Renderer struct {
	format Format
	images *media.Loader
	logger *slog.Logger

	fontMu   sync.Mutex
	families map[style.FontFace]*canvas.FontFamily
	faces    map[faceKey]*canvas.FontFace
	fallback metrics.Monospace
}

var (
	_ renderer.Renderer    = (*Renderer)(nil)
	_ layout.Metrics       = (*Renderer)(nil)
	_ layout.AscentMetrics = (*Renderer)(nil)
)

type faceKey struct {
	variant fonts.Variant
	size    float64
	color   style.Color
}

// Options configures the canvas renderer.
type Options struct {
	// BaseDir resolves relative image paths.
	BaseDir string
	Format  Format
	// Images overrides the image loader, e.g. to share a cache between renders.
	Images *media.Loader
	Logger *slog.Logger
}

// NewRenderer creates a PDF renderer rooted at baseDir for resolving images.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with the given options.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		format:   opts.Format,
		images:   opts.Images,
		logger:   opts.Logger,
		families: map[style.FontFace]*canvas.FontFamily{},
		faces:    map[faceKey]*canvas.FontFace{},
		fallback: metrics.NewMonospace(),
	}
	if r.images == nil {
		r.images = media.NewLoader(opts.BaseDir)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r
}

// family 加载字体族的四种字形。
func (r *Renderer) family(face style.FontFace) (*canvas.FontFamily, error) {
	if f, ok := r.families[face]; ok {
		return f, nil
	}
	family := canvas.NewFontFamily(fonts.Family(face))
	for _, v := range fonts.Styles(face) {
		if err := family.LoadFont(v.TTF(), 0, fontStyle(v)); err != nil {
			return nil, fmt.Errorf("加载字体 %s 失败: %w", v.Name(), err)
		}
	}
	r.families[face] = family
	return family, nil
}

func fontStyle(v fonts.Variant) canvas.FontStyle {
	s := canvas.FontRegular
	if v.Bold {
		s = canvas.FontBold
	}
	if v.Italic {
		s |= canvas.FontItalic
	}
	return s
}

// fontFace 返回指定样式的字体面，字号单位为 pt。
func (r *Renderer) fontFace(f style.FontStyle) (*canvas.FontFace, error) {
	v := fonts.VariantOf(f)
	key := faceKey{variant: v, size: f.Size, color: f.Color}
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	if face, ok := r.faces[key]; ok {
		return face, nil
	}
	family, err := r.family(v.Face)
	if err != nil {
		return nil, err
	}
	face := family.Face(f.Size, colorOf(f.Color), fontStyle(v), canvas.FontNormal)
	r.faces[key] = face
	return face, nil
}

// TextWidth 实现 layout.Metrics，返回厘米。
func (r *Renderer) TextWidth(f style.FontStyle, text string) float64 {
	face, err := r.fontFace(f)
	if err != nil {
		r.logger.Warn("font unavailable, using monospace metrics", "err", err)
		return r.fallback.TextWidth(f, text)
	}
	return face.TextWidth(text) / mmPerCm
}

// LineHeight 实现 layout.Metrics，返回厘米。
func (r *Renderer) LineHeight(f style.FontStyle) float64 {
	face, err := r.fontFace(f)
	if err != nil {
		return r.fallback.LineHeight(f)
	}
	return face.Metrics().LineHeight / mmPerCm
}

// Ascent 实现 layout.AscentMetrics，返回厘米。
func (r *Renderer) Ascent(f style.FontStyle) float64 {
	face, err := r.fontFace(f)
	if err != nil {
		return r.fallback.Ascent(f)
	}
	return face.Metrics().Ascent / mmPerCm
}

// pageGeometry 返回纸张尺寸与可用区域原点（厘米）。没有纸张信息时以可用区域为整页。
func pageGeometry(res *layout.Result) (w, h, ox, oy float64) {
	p := res.Paper
	if p.Width() <= 0 || p.Height() <= 0 {
		return res.Width, res.Height, 0, 0
	}
	return p.Width(), p.Height(), p.LeftMargin, p.TopMargin
}

// Render renders the result into PDF or SVG bytes.
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if len(result.Pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}
	w, h, ox, oy := pageGeometry(result)
	if r.format == SVG {
		return r.renderSVG(result, w, h, ox, oy)
	}

	var buf bytes.Buffer
	writer := pdf.New(&buf, w*mmPerCm, h*mmPerCm, nil)
	r.applyMeta(writer, result)
	for i, page := range result.Pages {
		if i > 0 {
			writer.NewPage(w*mmPerCm, h*mmPerCm)
		}
		c := canvas.New(w*mmPerCm, h*mmPerCm)
		ctx := canvas.NewContext(c)
		ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点
		if err := r.drawPage(ctx, page, ox, oy); err != nil {
			return nil, fmt.Errorf("第 %d 页: %w", page.Number, err)
		}
		c.RenderTo(writer)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) renderSVG(result *layout.Result, w, h, ox, oy float64) ([]byte, error) {
	n := float64(len(result.Pages))
	c := canvas.New(w*mmPerCm, h*n*mmPerCm)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV)
	for i, page := range result.Pages {
		top := float64(i) * h
		if i > 0 {
			// 页与页之间画一条分隔线。
			ctx.SetStrokeColor(colorOf(style.Grey))
			ctx.SetStrokeWidth(ptToMM(0.5))
			ctx.DrawPath(0, top*mmPerCm, canvas.Line(w*mmPerCm, 0))
		}
		if err := r.drawPage(ctx, page, ox, oy+top); err != nil {
			return nil, fmt.Errorf("第 %d 页: %w", page.Number, err)
		}
	}
	var buf bytes.Buffer
	writer := svg.New(&buf, w*mmPerCm, h*n*mmPerCm, nil)
	c.RenderTo(writer)
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 SVG 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) applyMeta(writer *pdf.PDF, res *layout.Result) {
	m := res.Meta
	writer.SetInfo(m.Title, m.Subject, strings.Join(m.Keywords, ", "), m.Author, m.Creator)
}

// drawPage 依次绘制矩形、多边形、线、图片与文字，(ox, oy) 为可用区域左上角（厘米）。
func (r *Renderer) drawPage(ctx *canvas.Context, page layout.Page, ox, oy float64) error {
	p := pen{ctx: ctx, ox: ox, oy: oy}
	for _, rc := range page.Rects {
		p.rect(rc)
	}
	for _, pg := range page.Polygons {
		p.polygon(pg)
	}
	for _, ln := range page.Lines {
		p.line(ln)
	}
	for _, img := range page.Images {
		if err := r.drawImage(p, img); err != nil {
			return err
		}
	}
	for _, tb := range page.Texts {
		if err := r.drawTextBox(p, tb); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) drawImage(p pen, img layout.ImageBox) error {
	if img.Path == "" || img.Width <= 0 || img.Height <= 0 {
		return nil
	}
	prep, err := r.images.Load(img.Path, img.Crop)
	if err != nil {
		return err
	}
	// 按比例放入图片框并居中。
	wmm, hmm := img.Width*mmPerCm, img.Height*mmPerCm
	scale := min(wmm/float64(prep.Width), hmm/float64(prep.Height))
	dx := (wmm - float64(prep.Width)*scale) / 2
	dy := (hmm - float64(prep.Height)*scale) / 2
	x, y := p.pt(img.X, img.Y)
	p.ctx.DrawImage(x+dx, y+dy, prep.Image, canvas.DPMM(1/scale))
	return nil
}

func (r *Renderer) drawTextBox(p pen, tb layout.TextBox) error {
	if tb.Angle != 0 {
		px, py := p.pt(tb.PivotX, tb.PivotY)
		p.ctx.Push()
		defer p.ctx.Pop()
		// 纵轴向下，逆时针旋转取负角。
		p.ctx.ComposeView(canvas.Identity.RotateAbout(-tb.Angle, px, py))
	}
	for _, line := range tb.Lines {
		for _, run := range line.Runs {
			if run.Text == "" {
				continue
			}
			face, err := r.fontFace(run.Font)
			if err != nil {
				return err
			}
			x, y := p.pt(run.X, line.Baseline-run.Rise)
			p.ctx.DrawText(x, y, canvas.NewTextLine(face, run.Text, canvas.Left))
			if run.Font.Underline || run.Attr&markup.Link != 0 {
				size := ptToMM(run.Font.Size)
				p.ctx.SetStrokeColor(colorOf(run.Font.Color))
				p.ctx.SetStrokeWidth(size * underlineWidth)
				p.ctx.DrawPath(x, y+size*underlineOffset, canvas.Line(run.Width*mmPerCm, 0))
			}
		}
	}
	return nil
}

// pen 把布局坐标换算为画布坐标并绘制简单图形。
type pen struct {
	ctx    *canvas.Context
	ox, oy float64
}

func (p pen) pt(x, y float64) (float64, float64) {
	return (p.ox + x) * mmPerCm, (p.oy + y) * mmPerCm
}

func (p pen) stroke(c *style.Color, widthPt float64, dashes []float64) {
	if c == nil {
		p.ctx.SetStrokeColor(canvas.Transparent)
		return
	}
	if widthPt <= 0 {
		widthPt = 0.5
	}
	p.ctx.SetStrokeColor(colorOf(*c))
	p.ctx.SetStrokeWidth(ptToMM(widthPt))
	mm := make([]float64, len(dashes))
	for i, d := range dashes {
		mm[i] = ptToMM(d)
	}
	p.ctx.SetDashes(0, mm...)
}

func (p pen) fill(c *style.Color) {
	if c == nil {
		p.ctx.SetFillColor(canvas.Transparent)
		return
	}
	p.ctx.SetFillColor(colorOf(*c))
}

func (p pen) rect(rc layout.Rect) {
	p.stroke(rc.Stroke, rc.StrokeWidth, rc.Dashes)
	p.fill(rc.Fill)
	x, y := p.pt(rc.X, rc.Y)
	p.ctx.DrawPath(x, y, canvas.Rectangle(rc.Width*mmPerCm, rc.Height*mmPerCm))
}

func (p pen) polygon(pg layout.Polygon) {
	if len(pg.Points) < 2 {
		return
	}
	p.stroke(pg.Stroke, pg.StrokeWidth, pg.Dashes)
	p.fill(pg.Fill)
	path := &canvas.Path{}
	for i, pt := range pg.Points {
		x, y := p.pt(pt.X, pt.Y)
		if i == 0 {
			path.MoveTo(x, y)
		} else {
			path.LineTo(x, y)
		}
	}
	path.Close()
	p.ctx.DrawPath(0, 0, path)
}

func (p pen) line(ln layout.Line) {
	c := ln.Color
	p.stroke(&c, ln.Width, ln.Dashes)
	x1, y1 := p.pt(ln.X1, ln.Y1)
	x2, y2 := p.pt(ln.X2, ln.Y2)
	path := &canvas.Path{}
	path.MoveTo(0, 0)
	path.LineTo(x2-x1, y2-y1)
	p.ctx.DrawPath(x1, y1, path)
	p.ctx.SetDashes(0)
}

func colorOf(c style.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}

// ptToMM 将点(pt)转换为毫米(mm)。
func ptToMM(pt float64) float64 { return layout.PtToCm(pt) * mmPerCm }
