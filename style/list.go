package style

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// DefaultSheetName 内置样式表名称，不可删除。
const DefaultSheetName = "default"

// SheetList 管理用户可定制的具名样式表，以 XML 文件持久化。
type SheetList struct {
	defaults *StyleSheet
	sheets   map[string]*StyleSheet
}

// NewSheetList 以 defaults 作为内置样式表创建列表；defaults 为 nil 时使用空样式表。
func NewSheetList(defaults *StyleSheet) *SheetList {
	if defaults == nil {
		defaults = New(DefaultSheetName)
	}
	base := defaults.Clone()
	base.Name = DefaultSheetName
	return &SheetList{
		defaults: base,
		sheets:   map[string]*StyleSheet{DefaultSheetName: base.Clone()},
	}
}

// Names 返回排序后的样式表名称。
func (l *SheetList) Names() []string {
	out := make([]string, 0, len(l.sheets))
	for k := range l.sheets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Sheet 返回指定样式表的副本。
func (l *SheetList) Sheet(name string) (*StyleSheet, error) {
	s, ok := l.sheets[name]
	if !ok {
		return nil, fmt.Errorf("%w: sheet %q", ErrStyleNotFound, name)
	}
	return s.Clone(), nil
}

// SetSheet 保存样式表副本，以 sheet.Name 为键。
func (l *SheetList) SetSheet(sheet *StyleSheet) {
	c := sheet.Clone()
	l.sheets[c.Name] = c
}

// Delete 删除样式表；default 不可删除。
func (l *SheetList) Delete(name string) error {
	if name == DefaultSheetName {
		return fmt.Errorf("%w: 不能删除内置样式表", ErrInvalidStyle)
	}
	delete(l.sheets, name)
	return nil
}

// Read 从 r 读取样式表并合并到列表中。文件中的 default 表覆盖内置值。
func (l *SheetList) Read(r io.Reader) error {
	sheets, err := Decode(r, l.defaults)
	if err != nil {
		return err
	}
	for _, s := range sheets {
		if s.Name == "" {
			return fmt.Errorf("%w: sheet 缺少 name 属性", ErrInvalidStyle)
		}
		l.sheets[s.Name] = s
	}
	return nil
}

// Load 读取样式表文件，失败即返回错误。
func (l *SheetList) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("打开样式表文件 %s 失败: %w", path, err)
	}
	defer f.Close()
	if err := l.Read(f); err != nil {
		return fmt.Errorf("读取样式表文件 %s: %w", path, err)
	}
	return nil
}

// LoadOptional 读取用户自定义样式表。文件缺失或格式错误时保留内置样式并记录日志，
// 不返回错误。
func (l *SheetList) LoadOptional(path string, logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Debug("未找到用户样式表，使用内置样式", "path", path, "err", err)
		return
	}
	staged := &SheetList{defaults: l.defaults, sheets: map[string]*StyleSheet{}}
	if err := staged.Read(bytes.NewReader(data)); err != nil {
		logger.Warn("用户样式表解析失败，使用内置样式", "path", path, "err", err)
		return
	}
	for name, s := range staged.sheets {
		l.sheets[name] = s
	}
}

// Write 将全部样式表写为 XML。
func (l *SheetList) Write(w io.Writer) error {
	names := l.Names()
	sheets := make([]*StyleSheet, len(names))
	for i, n := range names {
		sheets[i] = l.sheets[n]
	}
	return Encode(w, sheets...)
}

// Save 写入文件，必要时创建目录。
func (l *SheetList) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建样式表目录失败: %w", err)
	}
	var buf bytes.Buffer
	if err := l.Write(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("写入样式表文件 %s 失败: %w", path, err)
	}
	return nil
}
