package layout

import "strings"

// FontStyle 是文本装饰的位掩码。
type FontStyle int

const (
	FontRegular   FontStyle = 0
	FontBold      FontStyle = 1 << 0
	FontItalic    FontStyle = 1 << 1
	FontUnderline FontStyle = 1 << 2
	FontStrikeout FontStyle = 1 << 3
)

func (s FontStyle) String() string {
	if s == FontRegular {
		return "regular"
	}
	var parts []string
	if s&FontBold != 0 {
		parts = append(parts, "bold")
	}
	if s&FontItalic != 0 {
		parts = append(parts, "italic")
	}
	if s&FontUnderline != 0 {
		parts = append(parts, "underline")
	}
	if s&FontStrikeout != 0 {
		parts = append(parts, "strikeout")
	}
	return strings.Join(parts, "|")
}

// Font 是字体后端创建的字体句柄。
// 若句柄实现了 io.Closer，FontCache.Close 会负责释放。
type Font interface {
	Name() string
	Size() float64
	Style() FontStyle
}

// FontBackend 负责创建字体并测量文本，返回值单位为 pt。
type FontBackend interface {
	CreateFont(name string, size float64, style FontStyle) (Font, error)
	Measure(f Font, text []byte) (width, height float64)
	LineHeight(f Font) float64
}

// ImageDecoder 只需解出图片的像素尺寸，用于计算缩放。
type ImageDecoder interface {
	DecodeSize(data []byte) (width, height float64, err error)
}

// Document 根据 id（src 或 recindex）返回图片数据。
type Document interface {
	ImageData(id string) ([]byte, bool)
}

// PageObserver 按文档顺序接收排好的页面，接收后页面归观察者所有。
type PageObserver interface {
	NewPage(p *Page)
}

// PageObserverFunc 让普通函数实现 PageObserver。
type PageObserverFunc func(p *Page)

func (f PageObserverFunc) NewPage(p *Page) { f(p) }

// LayoutInfo 在一次排版过程中保持不变。
type LayoutInfo struct {
	PageWidth     float64  `json:"pageWidth"`
	PageHeight    float64  `json:"pageHeight"`
	FontName      string   `json:"fontName"`
	FontSize      float64  `json:"fontSize"`
	FallbackFonts []string `json:"fallbackFonts,omitempty"`
	// SpaceDx 为词间距，0 表示使用 FontSize/2.5。
	SpaceDx float64 `json:"spaceDx,omitempty"`
	// Align 为初始对齐方式，零值即两端对齐。
	Align Align `json:"align"`
}

// Options 配置排版阶段所需的外部依赖。
type Options struct {
	// Fonts 由调用方创建并持有，可在多次排版之间复用，但不能并发使用。
	Fonts    *FontCache
	Decoder  ImageDecoder
	Document Document
	Observer PageObserver
}
