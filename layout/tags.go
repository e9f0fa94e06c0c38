package layout

import "strings"

// Tag 是排版引擎识别的标签。
type Tag int

const (
	TagUnknown Tag = iota
	TagP
	TagHr
	TagBr
	TagB
	TagStrong
	TagI
	TagEm
	TagU
	TagStrike
	TagS
	TagDel
	TagPagebreak
	TagMbpPagebreak
	TagImg
	TagStyle
)

var tagNames = map[string]Tag{
	"p":             TagP,
	"hr":            TagHr,
	"br":            TagBr,
	"b":             TagB,
	"strong":        TagStrong,
	"i":             TagI,
	"em":            TagEm,
	"u":             TagU,
	"strike":        TagStrike,
	"s":             TagS,
	"del":           TagDel,
	"pagebreak":     TagPagebreak,
	"mbp:pagebreak": TagMbpPagebreak,
	"img":           TagImg,
	"style":         TagStyle,
}

// FindTag 按名称（大小写不敏感）查找标签。
func FindTag(name string) Tag {
	if tag, ok := tagNames[strings.ToLower(name)]; ok {
		return tag
	}
	return TagUnknown
}

// isVoid 报告标签是否没有闭合标签，这类标签不进入嵌套栈。
func (t Tag) isVoid() bool {
	switch t {
	case TagHr, TagBr, TagImg, TagPagebreak, TagMbpPagebreak:
		return true
	}
	return false
}

// Align 是行的对齐方式。
type Align int

const (
	AlignJustify Align = iota
	AlignLeft
	AlignRight
	AlignCenter
)

func (a Align) String() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignRight:
		return "right"
	case AlignCenter:
		return "center"
	default:
		return "justify"
	}
}

// FindAlign 解析 align 属性值，无法识别时返回 false。
func FindAlign(value string) (Align, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "left", "start":
		return AlignLeft, true
	case "right", "end":
		return AlignRight, true
	case "center", "middle":
		return AlignCenter, true
	case "justify":
		return AlignJustify, true
	}
	return AlignJustify, false
}

// tagStack 记录当前打开的标签，只用于判断是否处于不渲染内容的标签内（如 <style>）。
// 每次排版独立持有一个实例。
type tagStack []Tag

func (s *tagStack) push(t Tag) {
	if t.isVoid() {
		return
	}
	*s = append(*s, t)
}

// pop 弹出到最近一个同名标签（包含），没有匹配时忽略。
func (s *tagStack) pop(t Tag) {
	for i := len(*s) - 1; i >= 0; i-- {
		if (*s)[i] == t {
			*s = (*s)[:i]
			return
		}
	}
}

func (s tagStack) contains(t Tag) bool {
	for _, v := range s {
		if v == t {
			return true
		}
	}
	return false
}
