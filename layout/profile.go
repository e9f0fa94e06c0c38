package layout

import (
	"fmt"
	"strings"

	"github.com/sharkbobo/sumatrapdf/dsl"
)

// Margin 是渲染时页面内容相对纸张边缘的偏移（pt），不参与排版计算。
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// DefaultInfo 返回未提供配置文件时的默认排版参数。
func DefaultInfo() LayoutInfo {
	size := PagePresets["kindle"]
	return LayoutInfo{
		PageWidth:     size.Width,
		PageHeight:    size.Height,
		FontName:      "Go",
		FontSize:      12,
		FallbackFonts: []string{"Go Mono"},
		Align:         AlignJustify,
	}
}

// InfoFromProfile 把配置文件转换为 LayoutInfo 与页边距，未出现的命令保持默认值。
func InfoFromProfile(p *dsl.Profile) (LayoutInfo, Margin, error) {
	info := DefaultInfo()
	var margin Margin
	if p == nil || p.Block == nil {
		return info, margin, nil
	}
	for _, cmd := range p.Block.Commands {
		if err := applyCommand(&info, &margin, cmd); err != nil {
			return info, margin, fmt.Errorf("第 %d 行 %s: %w", cmd.Pos.Line, cmd.Name, err)
		}
	}
	return info, margin, nil
}

func applyCommand(info *LayoutInfo, margin *Margin, cmd *dsl.Command) error {
	switch strings.ToLower(cmd.Name) {
	case "page":
		return applyPage(info, cmd.Args)
	case "font":
		if len(cmd.Args) == 0 || len(cmd.Args) > 2 {
			return fmt.Errorf("需要字体名与可选字号")
		}
		info.FontName = cmd.Args[0].Value
		if len(cmd.Args) == 2 {
			size, err := positiveLength(cmd.Args[1])
			if err != nil {
				return err
			}
			info.FontSize = size
		}
	case "fallback":
		info.FallbackFonts = info.FallbackFonts[:0:0]
		for _, arg := range cmd.Args {
			info.FallbackFonts = append(info.FallbackFonts, arg.Value)
		}
	case "space":
		if len(cmd.Args) != 1 {
			return fmt.Errorf("需要一个长度")
		}
		dx, err := positiveLength(cmd.Args[0])
		if err != nil {
			return err
		}
		info.SpaceDx = dx
	case "align":
		if len(cmd.Args) != 1 {
			return fmt.Errorf("需要一个对齐方式")
		}
		a, ok := FindAlign(cmd.Args[0].Value)
		if !ok {
			return fmt.Errorf("未知的对齐方式 %q", cmd.Args[0].Value)
		}
		info.Align = a
	case "margin":
		return applyMargin(margin, cmd.Args)
	default:
		return fmt.Errorf("未知命令")
	}
	return nil
}

// applyPage 支持 `page 600pt 800pt` 与 `page A5 [landscape|portrait]`。
func applyPage(info *LayoutInfo, args []*dsl.Lexeme) error {
	if len(args) == 0 {
		return fmt.Errorf("缺少页面尺寸")
	}
	if !args[0].IsNumber() {
		size, ok := LookupPageSize(args[0].Value)
		if !ok {
			return fmt.Errorf("未知的页面尺寸 %q", args[0].Value)
		}
		if len(args) > 2 {
			return fmt.Errorf("参数过多")
		}
		if len(args) == 2 {
			switch strings.ToLower(args[1].Value) {
			case "landscape":
				size = size.Landscape()
			case "portrait":
			default:
				return fmt.Errorf("未知的页面方向 %q", args[1].Value)
			}
		}
		info.PageWidth, info.PageHeight = size.Width, size.Height
		return nil
	}
	if len(args) != 2 {
		return fmt.Errorf("需要宽度和高度")
	}
	w, err := positiveLength(args[0])
	if err != nil {
		return err
	}
	h, err := positiveLength(args[1])
	if err != nil {
		return err
	}
	info.PageWidth, info.PageHeight = w, h
	return nil
}

// applyMargin 与 CSS 相同：1 个值四边相同，2 个值为上下/左右，4 个值为上右下左。
func applyMargin(m *Margin, args []*dsl.Lexeme) error {
	vals := make([]float64, 0, len(args))
	for _, arg := range args {
		l, err := ParseRawLengthStr(arg.Value)
		if err != nil {
			return err
		}
		if l.Value < 0 {
			return fmt.Errorf("页边距不能为负")
		}
		vals = append(vals, l.ToPT())
	}
	switch len(vals) {
	case 1:
		*m = Margin{vals[0], vals[0], vals[0], vals[0]}
	case 2:
		*m = Margin{vals[0], vals[1], vals[0], vals[1]}
	case 4:
		*m = Margin{vals[0], vals[1], vals[2], vals[3]}
	default:
		return fmt.Errorf("需要 1、2 或 4 个长度")
	}
	return nil
}

func positiveLength(arg *dsl.Lexeme) (float64, error) {
	if !arg.IsNumber() {
		return 0, fmt.Errorf("%q 不是长度", arg.Value)
	}
	l, err := ParseRawLengthStr(arg.Value)
	if err != nil {
		return 0, err
	}
	if l.Value <= 0 {
		return 0, fmt.Errorf("长度必须大于 0: %s", arg.Value)
	}
	return l.ToPT(), nil
}
