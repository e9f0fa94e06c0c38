package renderer

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/sharkbobo/sumatrapdf/layout"
)

// Renderer 将排好的页面输出为最终文件，例如 PDF 或图像。
// Render 返回生成的二进制数据（例如 PDF 字节切片）以及可能的错误。
type Renderer interface {
	Render(pages []*layout.Page) ([]byte, error)
}

// Surface 是单页的绘制目标，坐标单位为 pt，原点在左上角。
type Surface interface {
	DrawRect(r layout.Rect, c color.Color)
	DrawLine(x1, y1, x2, y2 float64, c color.Color)
	// DrawText 以 (x, y) 为文本框左上角绘制。
	DrawText(f layout.Font, text []byte, x, y float64) error
	DrawImage(data []byte, r layout.Rect) error
}

// DrawOptions 控制 DrawPage 的输出。
type DrawOptions struct {
	// OffX、OffY 为页面原点在 Surface 上的偏移（页边距）。
	OffX, OffY float64
	// ShowBbox 为每条指令绘制包围盒，用于调试。
	ShowBbox  bool
	TextColor color.Color
}

var (
	defaultTextColor = color.RGBA{R: 0x1e, G: 0x1e, B: 0x1e, A: 0xff}
	bboxColor        = color.RGBA{R: 0xff, A: 0xff}
)

// DrawPage 按顺序解释页面指令：SetFont 切换当前字体，TextRun、Rule、Image 画在各自的包围盒中。
// 单条指令失败不会中断绘制，所有错误合并返回。
func DrawPage(s Surface, p *layout.Page, opts DrawOptions) error {
	if p == nil {
		return nil
	}
	fg := opts.TextColor
	if fg == nil {
		fg = defaultTextColor
	}
	var (
		font layout.Font
		errs []error
	)
	for i, instr := range p.Instrs {
		box := instr.Bounds()
		box.X += opts.OffX
		box.Y += opts.OffY
		switch v := instr.(type) {
		case *layout.SetFont:
			font = v.Font
		case *layout.TextRun:
			if font == nil {
				errs = append(errs, fmt.Errorf("第 %d 条指令之前没有设置字体", i))
				continue
			}
			if err := s.DrawText(font, v.Text, box.X, box.Y); err != nil {
				errs = append(errs, err)
			}
			drawDecorations(s, font.Style(), box, fg)
		case *layout.Rule:
			y := box.Y + box.Dy/2
			s.DrawLine(box.X, y, box.Right(), y, fg)
		case *layout.Image:
			if err := s.DrawImage(v.Data, box); err != nil {
				errs = append(errs, fmt.Errorf("绘制图片 %s 失败: %w", v.ID, err))
			}
		}
		if opts.ShowBbox {
			if _, ok := instr.(*layout.SetFont); !ok {
				s.DrawRect(box, bboxColor)
			}
		}
	}
	return errors.Join(errs...)
}

// drawDecorations 绘制下划线与删除线。
func drawDecorations(s Surface, style layout.FontStyle, box layout.Rect, c color.Color) {
	if style&layout.FontUnderline != 0 {
		y := box.Y + box.Dy*0.9
		s.DrawLine(box.X, y, box.Right(), y, c)
	}
	if style&layout.FontStrikeout != 0 {
		y := box.Y + box.Dy*0.55
		s.DrawLine(box.X, y, box.Right(), y, c)
	}
}
