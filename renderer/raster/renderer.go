package rasterrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"github.com/golang/freetype"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/sharkbobo/sumatrapdf/layout"
	"github.com/sharkbobo/sumatrapdf/renderer"
)

// Options 配置 PNG 渲染器。
type Options struct {
	Margin   layout.Margin
	ShowBbox bool
	// PageGap 为多页拼接时页与页之间的间隔（px）。
	PageGap    int
	Background color.Color
	Foreground color.Color
}

// Renderer 把页面栅格化为图片。
type Renderer struct {
	opts Options
}

var _ renderer.Renderer = (*Renderer)(nil)

func NewRenderer(opts Options) *Renderer {
	if opts.Background == nil {
		opts.Background = color.White
	}
	if opts.Foreground == nil {
		opts.Foreground = color.RGBA{R: 0x1e, G: 0x1e, B: 0x1e, A: 0xff}
	}
	return &Renderer{opts: opts}
}

// RenderPage 渲染单页，图片尺寸为页面尺寸加页边距。
func (r *Renderer) RenderPage(p *layout.Page) (*image.RGBA, error) {
	m := r.opts.Margin
	w := int(math.Ceil(p.Width + m.Left + m.Right))
	h := int(math.Ceil(p.Height + m.Top + m.Bottom))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("页面尺寸无效 %gx%g", p.Width, p.Height)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(r.opts.Background), image.Point{}, draw.Src)

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetClip(img.Bounds())
	ctx.SetDst(img)
	ctx.SetSrc(image.NewUniform(r.opts.Foreground))
	ctx.SetHinting(font.HintingNone)

	s := &surface{img: img, ctx: ctx}
	err := renderer.DrawPage(s, p, renderer.DrawOptions{
		OffX:      m.Left,
		OffY:      m.Top,
		ShowBbox:  r.opts.ShowBbox,
		TextColor: r.opts.Foreground,
	})
	return img, err
}

// Render 把所有页面自上而下拼成一张 PNG。
func (r *Renderer) Render(pages []*layout.Page) ([]byte, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}
	imgs := make([]*image.RGBA, 0, len(pages))
	width, height := 0, 0
	for i, p := range pages {
		img, err := r.RenderPage(p)
		if err != nil {
			return nil, fmt.Errorf("绘制第 %d 页失败: %w", i+1, err)
		}
		imgs = append(imgs, img)
		width = max(width, img.Bounds().Dx())
		height += img.Bounds().Dy()
	}
	height += r.opts.PageGap * (len(imgs) - 1)

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.Gray{Y: 0xcc}), image.Point{}, draw.Src)
	y := 0
	for _, img := range imgs {
		dst := img.Bounds().Add(image.Pt(0, y))
		draw.Draw(out, dst, img, image.Point{}, draw.Src)
		y += img.Bounds().Dy() + r.opts.PageGap
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("编码 PNG 失败: %w", err)
	}
	return buf.Bytes(), nil
}

type surface struct {
	img *image.RGBA
	ctx *freetype.Context
}

func (s *surface) DrawRect(rc layout.Rect, c color.Color) {
	s.DrawLine(rc.X, rc.Y, rc.Right(), rc.Y, c)
	s.DrawLine(rc.X, rc.Bottom(), rc.Right(), rc.Bottom(), c)
	s.DrawLine(rc.X, rc.Y, rc.X, rc.Bottom(), c)
	s.DrawLine(rc.Right(), rc.Y, rc.Right(), rc.Bottom(), c)
}

// DrawLine 逐像素画 1px 宽的线段。
func (s *surface) DrawLine(x1, y1, x2, y2 float64, c color.Color) {
	steps := int(math.Ceil(math.Max(math.Abs(x2-x1), math.Abs(y2-y1))))
	if steps == 0 {
		s.img.Set(int(x1), int(y1), c)
		return
	}
	dx := (x2 - x1) / float64(steps)
	dy := (y2 - y1) / float64(steps)
	for i := 0; i <= steps; i++ {
		s.img.Set(int(math.Round(x1+dx*float64(i))), int(math.Round(y1+dy*float64(i))), c)
	}
}

func (s *surface) DrawText(f layout.Font, text []byte, x, y float64) error {
	rf, ok := f.(*Font)
	if !ok {
		return fmt.Errorf("字体 %s 不是 truetype 字体", f.Name())
	}
	s.ctx.SetFont(rf.ttf)
	s.ctx.SetFontSize(rf.size)
	baseline := toFixed(y) + rf.face.Metrics().Ascent
	_, err := s.ctx.DrawString(string(text), fixed.Point26_6{X: toFixed(x), Y: baseline})
	return err
}

func (s *surface) DrawImage(data []byte, rc layout.Rect) error {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("解码图片失败: %w", err)
	}
	dst := image.Rect(int(math.Round(rc.X)), int(math.Round(rc.Y)), int(math.Round(rc.Right())), int(math.Round(rc.Bottom())))
	if dst.Empty() {
		return nil
	}
	xdraw.CatmullRom.Scale(s.img, dst, src, src.Bounds(), xdraw.Over, nil)
	return nil
}
