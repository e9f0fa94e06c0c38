package canvasrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/sharkbobo/sumatrapdf/layout"
	"github.com/sharkbobo/sumatrapdf/renderer"
)

const lineWidth = 0.2 // mm

// Meta 是写入 PDF 的文档信息。
type Meta struct {
	Title   string
	Subject string
	Author  string
	Creator string
}

// Options 配置 PDF 渲染器。
type Options struct {
	Margin   layout.Margin
	Meta     Meta
	ShowBbox bool
}

// Renderer 通过 github.com/tdewolff/canvas 把页面写成多页 PDF。
// 页面中的字体句柄必须由同一类 Backend 创建。
type Renderer struct {
	opts Options
}

var _ renderer.Renderer = (*Renderer)(nil)

// NewRenderer 创建 PDF 渲染器。
func NewRenderer(opts Options) *Renderer {
	return &Renderer{opts: opts}
}

// Render 渲染所有页面，纸张尺寸为页面尺寸加上页边距。
func (r *Renderer) Render(pages []*layout.Page) ([]byte, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}
	m := r.opts.Margin
	paper := func(p *layout.Page) (float64, float64) {
		return toMm(p.Width + m.Left + m.Right), toMm(p.Height + m.Top + m.Bottom)
	}

	var buf bytes.Buffer
	w, h := paper(pages[0])
	writer := pdf.New(&buf, w, h, nil)
	meta := r.opts.Meta
	writer.SetInfo(meta.Title, meta.Subject, "", meta.Author, meta.Creator)
	for i, page := range pages {
		w, h := paper(page)
		if i > 0 {
			writer.NewPage(w, h)
		}
		c := canvas.New(w, h)
		ctx := canvas.NewContext(c)
		ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与排版保持左上角为原点

		err := renderer.DrawPage(&surface{ctx: ctx}, page, renderer.DrawOptions{
			OffX:     m.Left,
			OffY:     m.Top,
			ShowBbox: r.opts.ShowBbox,
		})
		if err != nil {
			return nil, fmt.Errorf("绘制第 %d 页失败: %w", i+1, err)
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// surface 把 pt 坐标换算为 mm 后画到 canvas 上下文。
type surface struct {
	ctx *canvas.Context
}

func (s *surface) DrawRect(rc layout.Rect, c color.Color) {
	s.ctx.SetFillColor(color.RGBA{0, 0, 0, 0})
	s.ctx.SetStrokeColor(c)
	s.ctx.SetStrokeWidth(lineWidth)
	s.ctx.DrawPath(toMm(rc.X), toMm(rc.Y), canvas.Rectangle(toMm(rc.Dx), toMm(rc.Dy)))
}

func (s *surface) DrawLine(x1, y1, x2, y2 float64, c color.Color) {
	s.ctx.SetStrokeColor(c)
	s.ctx.SetStrokeWidth(lineWidth)
	p := &canvas.Path{}
	p.MoveTo(0, 0)
	p.LineTo(toMm(x2-x1), toMm(y2-y1))
	s.ctx.DrawPath(toMm(x1), toMm(y1), p)
}

func (s *surface) DrawText(f layout.Font, text []byte, x, y float64) error {
	cf, ok := f.(*Font)
	if !ok {
		return fmt.Errorf("字体 %s 不是 canvas 字体", f.Name())
	}
	// 基线位置：文本框顶部加上字体上升部
	baseline := toMm(y) + cf.face.Metrics().Ascent
	s.ctx.DrawText(toMm(x), baseline, canvas.NewTextLine(cf.face, string(text), canvas.Left))
	return nil
}

func (s *surface) DrawImage(data []byte, rc layout.Rect) error {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("解码图片失败: %w", err)
	}
	width := toMm(rc.Dx)
	if width <= 0 || img.Bounds().Dx() <= 0 {
		return nil
	}
	dpmm := float64(img.Bounds().Dx()) / width
	s.ctx.DrawImage(toMm(rc.X), toMm(rc.Y), img, canvas.DPMM(dpmm))
	return nil
}
