package layout

import (
	"io"
	"log/slog"

	"golang.org/x/text/language"

	"github.com/ByLCY/docgen/style"
)

// Metrics 提供文本测量能力，返回值单位均为厘米。
// 真实字体度量依赖后端与平台，是排版引擎唯一需要从外部获得的能力。
type Metrics interface {
	TextWidth(font style.FontStyle, text string) float64
	LineHeight(font style.FontStyle) float64
}

// AscentMetrics 可选地提供基线以上的高度；未实现时按行高的 0.8 估算。
type AscentMetrics interface {
	Ascent(font style.FontStyle) float64
}

// Options 配置分页所需的依赖与页面可用区域。
type Options struct {
	Metrics Metrics
	// Width 与 Height 为页面可用区域（去掉页边距），单位厘米。
	Width  float64
	Height float64
	// MaxPasses 为目录与索引重排的最大轮数，0 表示 4。
	MaxPasses int
	// Language 决定索引条目的排序规则，空值为英语。
	Language   string
	TOCTitle   string
	IndexTitle string
	Logger     *slog.Logger
}

// PaperOptions 按纸张可用区域生成选项。
func PaperOptions(p style.PaperStyle, m Metrics) Options {
	return Options{Metrics: m, Width: p.UsableWidth(), Height: p.UsableHeight()}
}

func (o Options) withDefaults() Options {
	if o.MaxPasses <= 0 {
		o.MaxPasses = 4
	}
	if o.TOCTitle == "" {
		o.TOCTitle = "Contents"
	}
	if o.IndexTitle == "" {
		o.IndexTitle = "Index"
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

func (o Options) languageTag() language.Tag {
	if o.Language == "" {
		return language.English
	}
	tag, err := language.Parse(o.Language)
	if err != nil {
		o.Logger.Warn("unknown collation language, using English", "language", o.Language, "err", err)
		return language.English
	}
	return tag
}
