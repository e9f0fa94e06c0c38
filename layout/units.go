package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// 排版内部统一使用 pt；配置里的长度可以带单位，这里负责换算。

// Unit 表示配置中长度值的原始单位。
type Unit int

const (
	UnitNone Unit = iota // 无单位，按 pt 处理
	UnitMM
	UnitCM
	UnitIN
	UnitPT
	UnitPX // 按 72 DPI，1px = 1pt
)

// pt 与 mm 的换算系数。
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

func (u Unit) String() string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	case UnitPX:
		return "px"
	default:
		return ""
	}
}

// Length 保留数值及其单位。
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// ToPT 换算为 pt。
func (l Length) ToPT() float64 {
	switch l.Unit {
	case UnitMM:
		return l.Value * MmToPt
	case UnitCM:
		return l.Value * 10 * MmToPt
	case UnitIN:
		return l.Value * 72
	default:
		return l.Value
	}
}

// ToMM 换算为 mm。
func (l Length) ToMM() float64 {
	switch l.Unit {
	case UnitMM:
		return l.Value
	case UnitCM:
		return l.Value * 10
	case UnitIN:
		return l.Value * 25.4
	default:
		return l.Value * PtToMm
	}
}

func (l Length) String() string {
	return strconv.FormatFloat(l.Value, 'g', -1, 64) + l.Unit.String()
}

var unitSuffixes = []struct {
	s string
	u Unit
}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}, {"px", UnitPX}}

// ParseRawLengthStr 解析带单位的长度字符串，保留原始单位。
func ParseRawLengthStr(value string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, fmt.Errorf("长度为空")
	}
	unit := UnitNone
	num := v
	for _, suf := range unitSuffixes {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, fmt.Errorf("无法解析长度 %q: %w", value, err)
	}
	return Length{Value: f, Unit: unit}, nil
}

// PageSize 是以 pt 表示的页面尺寸。
type PageSize struct {
	Width  float64
	Height float64
}

// Landscape 交换宽高。
func (s PageSize) Landscape() PageSize {
	return PageSize{Width: s.Height, Height: s.Width}
}

// PagePresets 是常用的页面尺寸，键为小写名称。
var PagePresets = map[string]PageSize{
	"a4":     {Width: 210 * MmToPt, Height: 297 * MmToPt},
	"a5":     {Width: 148 * MmToPt, Height: 210 * MmToPt},
	"a6":     {Width: 105 * MmToPt, Height: 148 * MmToPt},
	"letter": {Width: 612, Height: 792},
	// 早期 Kindle 的 600x800 像素屏
	"kindle": {Width: 600, Height: 800},
}

// LookupPageSize 按名称（大小写不敏感）查找预设尺寸。
func LookupPageSize(name string) (PageSize, bool) {
	s, ok := PagePresets[strings.ToLower(name)]
	return s, ok
}
