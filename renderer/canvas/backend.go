package canvasrenderer

import (
	"fmt"
	"image/color"
	"sync"

	"github.com/tdewolff/canvas"

	"github.com/sharkbobo/sumatrapdf/fonts"
	"github.com/sharkbobo/sumatrapdf/layout"
)

// Font 是 canvas 字体面的句柄。
type Font struct {
	name  string
	size  float64
	style layout.FontStyle
	face  *canvas.FontFace
}

func (f *Font) Name() string            { return f.name }
func (f *Font) Size() float64           { return f.size }
func (f *Font) Style() layout.FontStyle { return f.style }

// Face 返回底层的 canvas 字体面。
func (f *Font) Face() *canvas.FontFace { return f.face }

// Backend 用 tdewolff/canvas 实现 layout.FontBackend。
// canvas 的度量单位为 mm，这里统一换算成 pt 交给排版引擎。
type Backend struct {
	color color.Color

	fontMu   sync.Mutex
	families map[string]*familyEntry
}

type familyEntry struct {
	family *canvas.FontFamily
	loaded map[canvas.FontStyle]bool
}

var _ layout.FontBackend = (*Backend)(nil)

// NewBackend 创建字体后端，文本颜色为深灰。
func NewBackend() *Backend {
	return &Backend{
		color:    canvas.Hex("#1e1e1e"),
		families: map[string]*familyEntry{},
	}
}

// CreateFont 从 fonts 包加载字体族并创建字体面。下划线与删除线由渲染器绘制，不影响字形。
func (b *Backend) CreateFont(name string, size float64, style layout.FontStyle) (layout.Font, error) {
	if size <= 0 {
		return nil, fmt.Errorf("字号必须大于 0: %g", size)
	}
	cs := canvasStyle(style)
	family, err := b.ensureFamily(name, cs)
	if err != nil {
		return nil, err
	}
	return &Font{
		name:  name,
		size:  size,
		style: style,
		face:  family.Face(size, b.color, cs, canvas.FontNormal),
	}, nil
}

func (b *Backend) ensureFamily(name string, cs canvas.FontStyle) (*canvas.FontFamily, error) {
	b.fontMu.Lock()
	defer b.fontMu.Unlock()
	entry, ok := b.families[name]
	if !ok {
		entry = &familyEntry{family: canvas.NewFontFamily(name), loaded: map[canvas.FontStyle]bool{}}
		b.families[name] = entry
	}
	if entry.loaded[cs] {
		return entry.family, nil
	}
	data, err := fonts.Load(name, cs&canvas.FontBold != 0, cs&canvas.FontItalic != 0)
	if err != nil {
		return nil, err
	}
	if err := entry.family.LoadFont(data, 0, cs); err != nil {
		return nil, fmt.Errorf("加载字体 %s 失败: %w", name, err)
	}
	entry.loaded[cs] = true
	return entry.family, nil
}

func (b *Backend) Measure(f layout.Font, text []byte) (float64, float64) {
	cf, ok := f.(*Font)
	if !ok {
		return 0, 0
	}
	return toPt(cf.face.TextWidth(string(text))), toPt(cf.face.Metrics().LineHeight)
}

func (b *Backend) LineHeight(f layout.Font) float64 {
	cf, ok := f.(*Font)
	if !ok {
		return 0
	}
	return toPt(cf.face.Metrics().LineHeight)
}

func canvasStyle(style layout.FontStyle) canvas.FontStyle {
	cs := canvas.FontRegular
	if style&layout.FontBold != 0 {
		cs = canvas.FontBold
	}
	if style&layout.FontItalic != 0 {
		cs |= canvas.FontItalic
	}
	return cs
}

func toPt(mm float64) float64 { return mm * layout.MmToPt }

func toMm(pt float64) float64 { return pt * layout.PtToMm }
