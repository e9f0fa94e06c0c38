package markup

import "github.com/sharkbobo/sumatrapdf/binding"

type boundSource struct {
	src  Source
	data any
}

// Bind 在文本 token 中替换 ${path} 占位符，标签原样透传。data 为 nil 时直接返回 src。
func Bind(src Source, data any) Source {
	if data == nil {
		return src
	}
	return &boundSource{src: src, data: data}
}

func (b *boundSource) Next() (*Token, error) {
	t, err := b.src.Next()
	if err != nil || t == nil || t.Type != Text {
		return t, err
	}
	out := *t
	out.Text = binding.InterpolateBytes(t.Text, b.data)
	return &out, nil
}
