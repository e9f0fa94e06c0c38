package markup

import (
	"fmt"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// htmlSource 基于 x/net/html 的拉取式分词器，不构建 DOM。
// 实体已解码，标签名为小写，<style> 等原始文本元素的内容作为 Text 返回。
type htmlSource struct {
	z *html.Tokenizer
}

// NewHTML 从 UTF-8 的 HTML/XHTML 创建 token 流。
func NewHTML(r io.Reader) Source {
	return &htmlSource{z: html.NewTokenizer(r)}
}

// NewHTMLCharset 按 contentType（如 "text/html; charset=gbk"）或文档内的 meta 声明转码为 UTF-8。
func NewHTMLCharset(r io.Reader, contentType string) (Source, error) {
	utf8Reader, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("识别字符集失败: %w", err)
	}
	return NewHTML(utf8Reader), nil
}

func (s *htmlSource) Next() (*Token, error) {
	for {
		tt := s.z.Next()
		switch tt {
		case html.ErrorToken:
			return nil, s.z.Err()
		case html.TextToken:
			// Text() 的结果只在下一次 Next 之前有效，这里拷贝一次
			raw := s.z.Text()
			text := make([]byte, len(raw))
			copy(text, raw)
			return &Token{Type: Text, Text: text}, nil
		case html.StartTagToken:
			return s.tag(StartTag), nil
		case html.EndTagToken:
			return s.tag(EndTag), nil
		case html.SelfClosingTagToken:
			return s.tag(SelfClosingTag), nil
		default:
			// 注释与 doctype 不参与排版
		}
	}
}

func (s *htmlSource) tag(typ TokenType) *Token {
	name, hasAttr := s.z.TagName()
	t := &Token{Type: typ, Name: string(name)}
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = s.z.TagAttr()
		t.Attrs = append(t.Attrs, Attr{Key: string(key), Val: string(val)})
	}
	return t
}
