// Package media 负责图片的读取、按百分比裁剪、缩放以及重新编码为 JPEG。
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ByLCY/docgen/doc"
)

// DefaultQuality 为重新编码 JPEG 时的默认质量。
const DefaultQuality = 85

var ErrEmptyImage = errors.New("图片尺寸为 0")

// Decode 解码图片，返回图片与格式名。
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("解码图片失败: %w", err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, "", ErrEmptyImage
	}
	return img, format, nil
}

// Open 从文件读取并解码图片。
func Open(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("读取图片 %s 失败: %w", path, err)
	}
	defer f.Close()
	img, format, err := Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return img, format, nil
}

// Size 只读取图片头，返回像素宽高。
func Size(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("读取图片 %s 失败: %w", path, err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("读取图片 %s 尺寸失败: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}

// FitSize 在 maxW×maxH（厘米）的框内按像素宽高比缩放图片。
// 任一上限不大于 0 时只按另一边计算。
func FitSize(maxW, maxH float64, px, py int) (float64, float64) {
	if px <= 0 || py <= 0 {
		return maxW, maxH
	}
	ratio := float64(px) / float64(py)
	switch {
	case maxW <= 0 && maxH <= 0:
		return 0, 0
	case maxH <= 0:
		return maxW, maxW / ratio
	case maxW <= 0:
		return maxH * ratio, maxH
	}
	if maxW/maxH > ratio {
		return maxH * ratio, maxH
	}
	return maxW, maxW / ratio
}

// CropRect 把百分比裁剪区域换算成像素矩形。
func CropRect(b image.Rectangle, c doc.Crop) image.Rectangle {
	w, h := float64(b.Dx()), float64(b.Dy())
	r := image.Rect(
		b.Min.X+int(math.Round(w*c.Left/100)),
		b.Min.Y+int(math.Round(h*c.Top/100)),
		b.Min.X+int(math.Round(w*c.Right/100)),
		b.Min.Y+int(math.Round(h*c.Bottom/100)),
	)
	if r.Dx() == 0 {
		r.Max.X = r.Min.X + 1
	}
	if r.Dy() == 0 {
		r.Max.Y = r.Min.Y + 1
	}
	return r.Intersect(b)
}

// Crop 返回裁剪后的副本，坐标从 (0,0) 开始。
func Crop(img image.Image, c doc.Crop) image.Image {
	r := CropRect(img.Bounds(), c)
	dst := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

// Scale 用 Catmull-Rom 插值缩放到 w×h 像素。
func Scale(img image.Image, w, h int) image.Image {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	return dst
}

// EncodeJPEG 将图片编码为 JPEG，quality 不大于 0 时使用 DefaultQuality。
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	if quality <= 0 {
		quality = DefaultQuality
	}
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("编码 JPEG 失败: %w", err)
	}
	return nil
}

// Prepared 为输出格式准备好的图片。
type Prepared struct {
	Image  image.Image
	Format string
	Width  int
	Height int
}

// JPEG 返回编码后的 JPEG 字节。
func (p *Prepared) JPEG(quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeJPEG(&buf, p.Image, quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Loader 按路径读取图片并缓存解码结果，可被多个 goroutine 共享。
// 相对路径以 BaseDir 为根。
type Loader struct {
	BaseDir string
	// MaxPixels 限制长边像素数，超过时等比缩小；0 表示不限制。
	MaxPixels int

	mu    sync.Mutex
	cache map[string]*Prepared
}

// NewLoader 创建以 baseDir 为根的加载器。
func NewLoader(baseDir string) *Loader {
	return &Loader{BaseDir: baseDir}
}

// Resolve 返回图片的实际路径。
func (l *Loader) Resolve(path string) string {
	if l == nil || l.BaseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(l.BaseDir, path)
}

// Load 读取图片并按 crop 裁剪，相同路径与裁剪只解码一次。
func (l *Loader) Load(path string, crop *doc.Crop) (*Prepared, error) {
	key := path
	if crop != nil {
		key = fmt.Sprintf("%s#%g,%g,%g,%g", path, crop.Left, crop.Top, crop.Right, crop.Bottom)
	}
	l.mu.Lock()
	if p, ok := l.cache[key]; ok {
		l.mu.Unlock()
		return p, nil
	}
	l.mu.Unlock()

	img, format, err := Open(l.Resolve(path))
	if err != nil {
		return nil, err
	}
	if crop != nil {
		img = Crop(img, *crop)
	}
	if b := img.Bounds(); l.MaxPixels > 0 && max(b.Dx(), b.Dy()) > l.MaxPixels {
		scale := float64(l.MaxPixels) / float64(max(b.Dx(), b.Dy()))
		img = Scale(img, int(float64(b.Dx())*scale), int(float64(b.Dy())*scale))
	}
	p := &Prepared{Image: img, Format: format, Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cache == nil {
		l.cache = map[string]*Prepared{}
	}
	l.cache[key] = p
	return p, nil
}
