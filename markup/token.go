// Package markup 产生排版引擎消费的 token 流（标签与文本）。
package markup

import (
	"io"
	"strings"
)

// TokenType 区分 token 种类。
type TokenType int

const (
	StartTag TokenType = iota
	EndTag
	SelfClosingTag
	Text
)

func (t TokenType) String() string {
	switch t {
	case StartTag:
		return "start"
	case EndTag:
		return "end"
	case SelfClosingTag:
		return "self-closing"
	default:
		return "text"
	}
}

// Attr 是标签上的一个属性。
type Attr struct {
	Key string
	Val string
}

// Token 是标签或一段文本。Name 统一为小写。
type Token struct {
	Type  TokenType
	Name  string
	Attrs []Attr
	Text  []byte
}

// IsTag 报告 token 是否为标签。
func (t *Token) IsTag() bool { return t.Type != Text }

// IsStartTag 只对 <x> 返回 true，<x/> 不算。
func (t *Token) IsStartTag() bool { return t.Type == StartTag }

// IsEndTag 只对 </x> 返回 true。
func (t *Token) IsEndTag() bool { return t.Type == EndTag }

// Attr 返回第一个同名属性（大小写不敏感）。
func (t *Token) Attr(name string) (string, bool) {
	for _, a := range t.Attrs {
		if strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

// Source 是按需拉取的 token 流。
// 结束时返回 io.EOF；其他错误表示输入格式有误，调用方应停止读取。
type Source interface {
	Next() (*Token, error)
}

// SliceSource 依次返回预先准备好的 token。
type SliceSource struct {
	tokens []*Token
	pos    int
}

// NewSliceSource 用给定 token 创建 Source。
func NewSliceSource(tokens ...*Token) *SliceSource {
	return &SliceSource{tokens: tokens}
}

func (s *SliceSource) Next() (*Token, error) {
	if s.pos >= len(s.tokens) {
		return nil, io.EOF
	}
	t := s.tokens[s.pos]
	s.pos++
	return t, nil
}

// Start 构造开始标签，attrs 依次为键、值。
func Start(name string, attrs ...string) *Token {
	return &Token{Type: StartTag, Name: name, Attrs: pairs(attrs)}
}

// End 构造结束标签。
func End(name string) *Token {
	return &Token{Type: EndTag, Name: name}
}

// SelfClosing 构造自闭合标签，attrs 依次为键、值。
func SelfClosing(name string, attrs ...string) *Token {
	return &Token{Type: SelfClosingTag, Name: name, Attrs: pairs(attrs)}
}

// TextToken 构造文本 token。
func TextToken(s string) *Token {
	return &Token{Type: Text, Text: []byte(s)}
}

func pairs(kv []string) []Attr {
	if len(kv) == 0 {
		return nil
	}
	out := make([]Attr, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, Attr{Key: kv[i], Val: kv[i+1]})
	}
	return out
}
