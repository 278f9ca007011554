package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ByLCY/docgen/doc"
	"github.com/ByLCY/docgen/dsl"
	"github.com/ByLCY/docgen/layout"
	"github.com/ByLCY/docgen/renderer"
	canvasrenderer "github.com/ByLCY/docgen/renderer/canvas"
	htmlrenderer "github.com/ByLCY/docgen/renderer/html"
	latexrenderer "github.com/ByLCY/docgen/renderer/latex"
	rtfrenderer "github.com/ByLCY/docgen/renderer/rtf"
	textrenderer "github.com/ByLCY/docgen/renderer/text"
	"github.com/ByLCY/docgen/style"
)

type config struct {
	input     string
	output    string
	format    string
	styles    string
	sheet     string
	paper     string
	landscape bool
	margin    float64
	data      string
	debugJSON string
}

func main() {
	var cfg config
	flag.StringVar(&cfg.input, "in", "", "文档脚本路径（必填）")
	flag.StringVar(&cfg.output, "out", "output/report.pdf", "输出文件路径")
	flag.StringVar(&cfg.format, "format", "", "输出格式 pdf|svg|txt|rtf|tex|html，默认按输出文件扩展名")
	flag.StringVar(&cfg.styles, "styles", "", "样式表 XML 文件")
	flag.StringVar(&cfg.sheet, "sheet", style.DefaultSheetName, "使用的样式表名称")
	flag.StringVar(&cfg.paper, "paper", "", "纸张名称，设置后覆盖脚本中的 paper 段")
	flag.BoolVar(&cfg.landscape, "landscape", false, "横向纸张（与 -paper 一起使用）")
	flag.Float64Var(&cfg.margin, "margin", 2.54, "页边距（厘米，与 -paper 一起使用）")
	flag.StringVar(&cfg.data, "data", "", "绑定到脚本的 JSON 数据；以 @ 开头时从文件读取")
	debug := flag.Bool("debug", false, "输出调试日志")
	flag.StringVar(&cfg.debugJSON, "debug-json", "", "分页结果调试 JSON 输出路径")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(cfg, logger); err != nil {
		logger.Error("生成文档失败", "err", err)
		os.Exit(1)
	}
	logger.Info("已生成文档", "path", cfg.output)
}

// run 串联解析、编译、分页与渲染。
func run(cfg config, logger *slog.Logger) error {
	if cfg.input == "" {
		return errors.New("缺少 -in 脚本路径")
	}
	format, err := outputFormat(cfg)
	if err != nil {
		return err
	}
	data, err := loadData(cfg.data)
	if err != nil {
		return err
	}
	sheet, err := loadSheet(cfg.styles, cfg.sheet)
	if err != nil {
		return err
	}

	file, err := os.Open(cfg.input)
	if err != nil {
		return fmt.Errorf("无法打开脚本 %s: %w", cfg.input, err)
	}
	defer file.Close()
	script, err := dsl.Parse(cfg.input, file)
	if err != nil {
		return fmt.Errorf("解析脚本失败: %w", err)
	}

	opts := dsl.Options{Sheet: sheet, Data: data, BaseDir: filepath.Dir(cfg.input)}
	if cfg.paper != "" {
		size, err := style.PaperByName(cfg.paper)
		if err != nil {
			return err
		}
		orientation := style.Portrait
		if cfg.landscape {
			orientation = style.Landscape
		}
		paper := style.NewPaperStyle(size, orientation)
		paper.SetMargins(cfg.margin)
		opts.Paper = &paper
	}
	d, err := dsl.Compile(script, opts)
	if err != nil {
		return fmt.Errorf("编译脚本失败: %w", err)
	}
	logger.Debug("文档树已生成", "blocks", len(d.Children), "paper", d.Paper.Size.Name)

	out, err := render(d, format, cfg, logger)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.output), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	return renderer.WriteFile(cfg.output, out)
}

func outputFormat(cfg config) (renderer.Format, error) {
	if cfg.format != "" {
		return renderer.ParseFormat(cfg.format)
	}
	return renderer.FormatFromPath(cfg.output)
}

// loadData 解析 -data：内联 JSON 或 @文件。
func loadData(arg string) (any, error) {
	if arg == "" {
		return nil, nil
	}
	raw := []byte(arg)
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		var err error
		if raw, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("读取数据文件失败: %w", err)
		}
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("解析 data JSON 失败: %w", err)
	}
	return data, nil
}

// loadSheet 读取样式表文件并选出指定样式表，缺少的样式由内置样式表补齐。
func loadSheet(path, name string) (*style.StyleSheet, error) {
	list := style.NewSheetList(style.Builtin())
	if path != "" {
		if err := list.Load(path); err != nil {
			return nil, err
		}
	}
	sheet, err := list.Sheet(name)
	if err != nil {
		return nil, err
	}
	merged := style.Builtin()
	merged.Merge(sheet)
	merged.Name = sheet.Name
	return merged, nil
}

func render(d *doc.Document, format renderer.Format, cfg config, logger *slog.Logger) ([]byte, error) {
	baseDir := filepath.Dir(cfg.input)
	switch format {
	case renderer.PDF, renderer.SVG:
		cf := canvasrenderer.PDF
		if format == renderer.SVG {
			cf = canvasrenderer.SVG
		}
		r := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{BaseDir: baseDir, Format: cf, Logger: logger})
		return paginate(d, r, r, cfg.debugJSON, logger)
	case renderer.Text:
		r := textrenderer.NewRenderer()
		return paginate(d, r.Metrics(), r, cfg.debugJSON, logger)
	case renderer.RTF:
		return rtfrenderer.NewRenderer(baseDir).RenderTree(d)
	case renderer.LaTeX:
		return latexrenderer.NewRenderer(baseDir).RenderTree(d)
	case renderer.HTML:
		return htmlrenderer.NewRenderer(baseDir).RenderTree(d)
	}
	return nil, fmt.Errorf("%w: %s", renderer.ErrUnknownFormat, format)
}

// paginate 按 m 的字体度量分页，再交给 r 绘制。
func paginate(d *doc.Document, m layout.Metrics, r renderer.Renderer, debugPath string, logger *slog.Logger) ([]byte, error) {
	opts := layout.PaperOptions(d.Paper, m)
	opts.Logger = logger
	result, err := layout.Build(d, opts)
	if err != nil {
		return nil, fmt.Errorf("布局计算失败: %w", err)
	}
	logger.Debug("分页完成", "pages", len(result.Pages), "toc", len(result.TOC), "index", len(result.Index))
	if debugPath != "" {
		if err := writeDebug(result, debugPath); err != nil {
			return nil, err
		}
	}
	return r.Render(result)
}

func writeDebug(result *layout.Result, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(result, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
