package renderer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ByLCY/docgen/doc"
	"github.com/ByLCY/docgen/layout"
)

// Renderer 将分页结果输出为最终文件，例如 PDF 或纯文本。
// Render 返回生成的二进制数据以及可能的错误。
type Renderer interface {
	Render(result *layout.Result) ([]byte, error)
}

// TreeRenderer 直接输出未分页的文档树，由阅读程序自行分页（RTF、LaTeX、HTML）。
type TreeRenderer interface {
	RenderTree(d *doc.Document) ([]byte, error)
}

// Format 输出格式。
type Format string

const (
	PDF   Format = "pdf"
	SVG   Format = "svg"
	Text  Format = "txt"
	RTF   Format = "rtf"
	LaTeX Format = "tex"
	HTML  Format = "html"
)

// ErrUnknownFormat 无法识别的输出格式。
var ErrUnknownFormat = errors.New("未知的输出格式")

var formatAliases = map[string]Format{
	"pdf":   PDF,
	"svg":   SVG,
	"txt":   Text,
	"text":  Text,
	"rtf":   RTF,
	"tex":   LaTeX,
	"latex": LaTeX,
	"html":  HTML,
	"htm":   HTML,
}

// ParseFormat 解析格式名，忽略大小写并接受常见别名。
func ParseFormat(name string) (Format, error) {
	if f, ok := formatAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// FormatFromPath 按文件扩展名推断格式。
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %s 没有扩展名", ErrUnknownFormat, path)
	}
	return ParseFormat(ext)
}

// Paginated 报告该格式是否需要先分页。
func (f Format) Paginated() bool {
	switch f {
	case PDF, SVG, Text:
		return true
	}
	return false
}

// Ext 返回格式的标准扩展名。
func (f Format) Ext() string { return "." + string(f) }

// IOError 输出文件读写失败。
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string { return fmt.Sprintf("写入 %s 失败: %v", e.Path, e.Err) }

func (e *IOError) Unwrap() error { return e.Err }

// WriteFile 写入输出文件，失败时返回 *IOError。
func WriteFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &IOError{Path: path, Err: err}
	}
	return nil
}
