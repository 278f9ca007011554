package media

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ByLCY/docgen/doc"
)

// writePNG 生成左半红、右半蓝的测试图片。
func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: 255, A: 255}
			if x >= w/2 {
				c = color.NRGBA{B: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("编码 PNG 失败: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("写文件失败: %v", err)
	}
	return path
}

func TestSizeAndOpen(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "a.png", 40, 20)
	w, h, err := Size(path)
	if err != nil || w != 40 || h != 20 {
		t.Fatalf("尺寸错误: %d×%d %v", w, h, err)
	}
	img, format, err := Open(path)
	if err != nil || format != "png" || img.Bounds().Dx() != 40 {
		t.Fatalf("打开图片失败: %v %q", err, format)
	}
	if _, _, err := Open(filepath.Join(dir, "missing.png")); err == nil {
		t.Fatalf("缺失文件应返回错误")
	}
	bad := filepath.Join(dir, "bad.png")
	os.WriteFile(bad, []byte("not an image"), 0o644)
	if _, _, err := Open(bad); err == nil {
		t.Fatalf("无法解码的文件应返回错误")
	}
}

func TestFitSizeKeepsAspect(t *testing.T) {
	cases := []struct {
		maxW, maxH float64
		px, py     int
		w, h       float64
	}{
		{10, 10, 200, 100, 10, 5},
		{10, 2, 200, 100, 4, 2},
		{6, 0, 300, 100, 6, 2},
		{0, 3, 300, 100, 9, 3},
		{5, 5, 0, 0, 5, 5},
	}
	for _, c := range cases {
		w, h := FitSize(c.maxW, c.maxH, c.px, c.py)
		if math.Abs(w-c.w) > 1e-9 || math.Abs(h-c.h) > 1e-9 {
			t.Fatalf("FitSize(%g,%g,%d,%d) = %g,%g，期望 %g,%g", c.maxW, c.maxH, c.px, c.py, w, h, c.w, c.h)
		}
	}
}

func TestCropByPercent(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 100, 50))
	for x := 50; x < 100; x++ {
		for y := 0; y < 50; y++ {
			src.Set(x, y, color.NRGBA{B: 255, A: 255})
		}
	}
	r := CropRect(src.Bounds(), doc.Crop{Left: 10, Top: 20, Right: 60, Bottom: 100})
	if r != image.Rect(10, 10, 60, 50) {
		t.Fatalf("裁剪区域错误: %v", r)
	}
	right := Crop(src, doc.Crop{Left: 50, Top: 0, Right: 100, Bottom: 100})
	if right.Bounds() != image.Rect(0, 0, 50, 50) {
		t.Fatalf("裁剪后尺寸错误: %v", right.Bounds())
	}
	if _, _, b, _ := right.At(0, 0).RGBA(); b == 0 {
		t.Fatalf("右半部分应为蓝色")
	}
}

func TestScaleAndJPEG(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 64, 32))
	small := Scale(src, 16, 8)
	if small.Bounds().Dx() != 16 || small.Bounds().Dy() != 8 {
		t.Fatalf("缩放尺寸错误: %v", small.Bounds())
	}
	var buf bytes.Buffer
	if err := EncodeJPEG(&buf, small, 0); err != nil {
		t.Fatalf("编码失败: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(&buf)
	if err != nil || cfg.Width != 16 || cfg.Height != 8 {
		t.Fatalf("JPEG 输出不正确: %+v %v", cfg, err)
	}
}

func TestLoaderCachesAndLimitsSize(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "big.png", 400, 100)
	l := NewLoader(dir)
	l.MaxPixels = 100
	p, err := l.Load("big.png", nil)
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if p.Width != 100 || p.Height != 25 {
		t.Fatalf("长边应限制为 100 像素: %d×%d", p.Width, p.Height)
	}
	again, _ := l.Load("big.png", nil)
	if again != p {
		t.Fatalf("相同路径应命中缓存")
	}
	cropped, err := l.Load("big.png", &doc.Crop{Left: 0, Top: 0, Right: 50, Bottom: 100})
	if err != nil || cropped == p || cropped.Width != 100 || cropped.Height != 50 {
		t.Fatalf("裁剪应单独缓存: %+v %v", cropped, err)
	}
	data, err := cropped.JPEG(90)
	if err != nil || len(data) == 0 {
		t.Fatalf("JPEG 编码失败: %v", err)
	}
}
