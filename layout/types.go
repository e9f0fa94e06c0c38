package layout

import (
	"encoding/json"
	"fmt"
)

// 该文件定义排版输出的页面与绘制指令，供布局计算、渲染与调试 JSON 共用。
// 所有坐标均为页面局部坐标（单位：pt），原点在左上角，x 向右、y 向下。

// Result 保存一次排版得到的全部页面。
type Result struct {
	Pages []*Page    `json:"pages"`
	Info  LayoutInfo `json:"info"`
}

// Rect 表示一个包围盒。
type Rect struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Dx float64 `json:"dx"`
	Dy float64 `json:"dy"`
}

// Right 返回包围盒右边界。
func (r Rect) Right() float64 { return r.X + r.Dx }

// Bottom 返回包围盒下边界。
func (r Rect) Bottom() float64 { return r.Y + r.Dy }

// DrawInstr 是一条绘制指令，只有 SetFont、TextRun、Rule、Image 四种实现。
type DrawInstr interface {
	// Bounds 返回指令的包围盒；SetFont 没有几何信息，返回零值。
	Bounds() Rect
	drawInstr()
}

// SetFont 切换后续文本使用的字体。
type SetFont struct {
	Font Font
}

// TextRun 是一个单词。Text 引用输入 token 的字节，不做拷贝。
type TextRun struct {
	Text []byte
	Box  Rect
}

// Rule 是一条水平线（<hr>），线画在包围盒的垂直中点。
type Rule struct {
	Box Rect
}

// Image 是一张已按页面尺寸缩放的图片。
type Image struct {
	ID   string
	Data []byte
	Box  Rect
}

func (*SetFont) Bounds() Rect   { return Rect{} }
func (t *TextRun) Bounds() Rect { return t.Box }
func (r *Rule) Bounds() Rect    { return r.Box }
func (i *Image) Bounds() Rect   { return i.Box }

func (*SetFont) drawInstr() {}
func (*TextRun) drawInstr() {}
func (*Rule) drawInstr()    {}
func (*Image) drawInstr()   {}

// Page 是一页的绘制指令序列，只追加、不删除。
// 每页第一条指令总是 SetFont，保证页面可以独立渲染。
type Page struct {
	Width  float64
	Height float64
	Instrs []DrawInstr
}

// Append 在页尾追加一条指令。
func (p *Page) Append(instr DrawInstr) {
	p.Instrs = append(p.Instrs, instr)
}

// Count 返回指令数量。
func (p *Page) Count() int { return len(p.Instrs) }

// HasContent 报告页面是否包含文字、线条或图片。
func (p *Page) HasContent() bool {
	for _, instr := range p.Instrs {
		if _, ok := instr.(*SetFont); !ok {
			return true
		}
	}
	return false
}

// Texts 按顺序返回页面中的全部 TextRun，主要用于测试与调试。
func (p *Page) Texts() []*TextRun {
	var out []*TextRun
	for _, instr := range p.Instrs {
		if t, ok := instr.(*TextRun); ok {
			out = append(out, t)
		}
	}
	return out
}

type fontJSON struct {
	Name  string  `json:"name"`
	Size  float64 `json:"size"`
	Style string  `json:"style"`
}

type instrJSON struct {
	Type  string    `json:"type"`
	Font  *fontJSON `json:"font,omitempty"`
	Text  string    `json:"text,omitempty"`
	ID    string    `json:"id,omitempty"`
	Box   *Rect     `json:"box,omitempty"`
	Bytes int       `json:"bytes,omitempty"`
}

// MarshalJSON 为每条指令输出 type 字段，便于调试或可视化。
func (p *Page) MarshalJSON() ([]byte, error) {
	instrs := make([]instrJSON, 0, len(p.Instrs))
	for _, instr := range p.Instrs {
		switch v := instr.(type) {
		case *SetFont:
			out := instrJSON{Type: "setFont"}
			if v.Font != nil {
				out.Font = &fontJSON{Name: v.Font.Name(), Size: v.Font.Size(), Style: v.Font.Style().String()}
			}
			instrs = append(instrs, out)
		case *TextRun:
			box := v.Box
			instrs = append(instrs, instrJSON{Type: "text", Text: string(v.Text), Box: &box})
		case *Rule:
			box := v.Box
			instrs = append(instrs, instrJSON{Type: "rule", Box: &box})
		case *Image:
			box := v.Box
			instrs = append(instrs, instrJSON{Type: "image", ID: v.ID, Box: &box, Bytes: len(v.Data)})
		default:
			return nil, fmt.Errorf("未知的绘制指令 %T", instr)
		}
	}
	return json.Marshal(struct {
		Width  float64     `json:"width"`
		Height float64     `json:"height"`
		Instrs []instrJSON `json:"instrs"`
	}{p.Width, p.Height, instrs})
}
