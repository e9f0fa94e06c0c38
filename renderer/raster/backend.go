package rasterrenderer

import (
	"fmt"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/sharkbobo/sumatrapdf/fonts"
	"github.com/sharkbobo/sumatrapdf/layout"
)

// dpi 为 72 时 1px = 1pt，排版坐标可以直接当作像素使用。
const dpi = 72

// Font 是 truetype 字体面的句柄，由 FontCache.Close 负责关闭。
type Font struct {
	name  string
	size  float64
	style layout.FontStyle
	ttf   *truetype.Font
	face  font.Face
}

func (f *Font) Name() string            { return f.name }
func (f *Font) Size() float64           { return f.size }
func (f *Font) Style() layout.FontStyle { return f.style }

func (f *Font) Close() error { return f.face.Close() }

// Backend 用 golang/freetype 实现 layout.FontBackend。
type Backend struct {
	parsed map[string]*truetype.Font
}

var _ layout.FontBackend = (*Backend)(nil)

func NewBackend() *Backend {
	return &Backend{parsed: map[string]*truetype.Font{}}
}

func (b *Backend) CreateFont(name string, size float64, style layout.FontStyle) (layout.Font, error) {
	if size <= 0 {
		return nil, fmt.Errorf("字号必须大于 0: %g", size)
	}
	bold, italic := style&layout.FontBold != 0, style&layout.FontItalic != 0
	key := fmt.Sprintf("%s|%t|%t", name, bold, italic)
	ttf, ok := b.parsed[key]
	if !ok {
		data, err := fonts.Load(name, bold, italic)
		if err != nil {
			return nil, err
		}
		ttf, err = truetype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("解析字体 %s 失败: %w", name, err)
		}
		b.parsed[key] = ttf
	}
	face := truetype.NewFace(ttf, &truetype.Options{Size: size, DPI: dpi, Hinting: font.HintingNone})
	return &Font{name: name, size: size, style: style, ttf: ttf, face: face}, nil
}

func (b *Backend) Measure(f layout.Font, text []byte) (float64, float64) {
	rf, ok := f.(*Font)
	if !ok {
		return 0, 0
	}
	w := font.MeasureBytes(rf.face, text)
	return fromFixed(w), fromFixed(rf.face.Metrics().Height)
}

func (b *Backend) LineHeight(f layout.Font) float64 {
	rf, ok := f.(*Font)
	if !ok {
		return 0
	}
	return fromFixed(rf.face.Metrics().Height)
}

func fromFixed(v fixed.Int26_6) float64 { return float64(v) / 64 }

func toFixed(v float64) fixed.Int26_6 { return fixed.Int26_6(v * 64) }
