package main

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ByLCY/docgen/renderer"
	"github.com/ByLCY/docgen/style"
)

const script = `doc Demo v1 {
  meta { title: "Demo" }
  flow {
    heading 1 "Overview"
    para { "Hello, ${user}!" }
  }
}`

func setup(t *testing.T) (string, config) {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "demo.doc")
	if err := os.WriteFile(in, []byte(script), 0o644); err != nil {
		t.Fatalf("写脚本失败: %v", err)
	}
	data := filepath.Join(dir, "data.json")
	if err := os.WriteFile(data, []byte(`{"user": "Ann"}`), 0o644); err != nil {
		t.Fatalf("写数据失败: %v", err)
	}
	return dir, config{input: in, sheet: style.DefaultSheetName, margin: 2.54, data: "@" + data}
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRunWritesEachFormat(t *testing.T) {
	dir, cfg := setup(t)
	for _, ext := range []string{"txt", "html", "rtf", "tex"} {
		cfg.output = filepath.Join(dir, "out", "demo."+ext)
		if err := run(cfg, quiet()); err != nil {
			t.Fatalf("%s: 生成失败: %v", ext, err)
		}
		got, err := os.ReadFile(cfg.output)
		if err != nil {
			t.Fatalf("%s: 读取输出失败: %v", ext, err)
		}
		if !strings.Contains(string(got), "Overview") || !strings.Contains(string(got), "Ann") {
			t.Fatalf("%s: 输出缺少正文:\n%s", ext, got)
		}
	}
}

func TestRunPaperFlagAndDebugJSON(t *testing.T) {
	dir, cfg := setup(t)
	cfg.output = filepath.Join(dir, "demo.txt")
	cfg.paper = "A5"
	cfg.landscape = true
	cfg.debugJSON = filepath.Join(dir, "debug", "layout.json")
	if err := run(cfg, quiet()); err != nil {
		t.Fatalf("生成失败: %v", err)
	}
	raw, err := os.ReadFile(cfg.debugJSON)
	if err != nil {
		t.Fatalf("缺少调试输出: %v", err)
	}
	if !strings.Contains(string(raw), `"A5"`) {
		t.Fatalf("调试输出应记录命令行纸张: %s", raw)
	}
}

func TestRunErrors(t *testing.T) {
	dir, cfg := setup(t)

	cfg.output = filepath.Join(dir, "demo.docx")
	if err := run(cfg, quiet()); !errors.Is(err, renderer.ErrUnknownFormat) {
		t.Fatalf("未知格式应报错，得到 %v", err)
	}

	cfg.output = filepath.Join(dir, "demo.txt")
	cfg.sheet = "missing"
	if err := run(cfg, quiet()); !errors.Is(err, style.ErrStyleNotFound) {
		t.Fatalf("未知样式表应报错，得到 %v", err)
	}

	cfg.sheet = style.DefaultSheetName
	cfg.data = "{bad"
	if err := run(cfg, quiet()); err == nil {
		t.Fatalf("非法 JSON 应报错")
	}
}
