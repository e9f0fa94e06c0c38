package markup

import (
	"bytes"
	"errors"
	"io"
	"strconv"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// markdownSource 先把 Markdown 转为 token 列表再逐个返回。
// goldmark 需要完整解析文档，因此这里不是真正的流式。
type markdownSource struct {
	tokens []*Token
	pos    int
	err    error
}

// NewMarkdown 把 Markdown 映射为排版引擎认识的标签：
// 段落与标题为 p（标题加 b），强调为 i/b，删除线为 strike，分隔线为 hr，图片为 img。
// 文本直接引用 src，调用方在排版结束前不能修改它。
func NewMarkdown(src []byte) Source {
	md := goldmark.New(goldmark.WithExtensions(extension.Strikethrough, extension.Table))
	doc := md.Parser().Parse(text.NewReader(src))
	b := &mdBuilder{src: src}
	err := ast.Walk(doc, b.walk)
	return &markdownSource{tokens: b.tokens, err: err}
}

func (s *markdownSource) Next() (*Token, error) {
	if s.pos >= len(s.tokens) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	t := s.tokens[s.pos]
	s.pos++
	return t, nil
}

type mdBuilder struct {
	src    []byte
	tokens []*Token
	// open 是最近由 text 生成的 token，紧随其后的文本并入其中
	open *Token
	// owned 表示 open.Text 已是独立副本，可以直接追加
	owned bool
}

func (b *mdBuilder) emit(t ...*Token) {
	b.tokens = append(b.tokens, t...)
}

// text 输出一段文本。goldmark 会在未配对的 _ * [ 等处切开文本，
// 相邻片段必须合并，否则排版时会被当作两个词。
func (b *mdBuilder) text(s []byte) {
	if len(s) == 0 {
		return
	}
	if n := len(b.tokens); n > 0 && b.open != nil && b.tokens[n-1] == b.open {
		if !b.owned {
			b.open.Text = append([]byte(nil), b.open.Text...)
			b.owned = true
		}
		b.open.Text = append(b.open.Text, s...)
		return
	}
	b.open = &Token{Type: Text, Text: s}
	b.owned = false
	b.emit(b.open)
}

// unescape 解码实体与反斜杠转义，与 goldmark 输出 HTML 时一致。
func unescape(s []byte) []byte {
	return util.ResolveEntityNames(util.ResolveNumericReferences(util.UnescapePunctuations(s)))
}

func (b *mdBuilder) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch nd := n.(type) {
	case *ast.Paragraph:
		// 列表项的第一个段落与项目符号同在一个 p 中
		if isFirstInListItem(n) {
			return ast.WalkContinue, nil
		}
		b.enterExit(entering, "p")
	case *ast.Heading:
		if entering {
			b.emit(Start("p"), Start("b"))
		} else {
			b.emit(End("b"), End("p"))
		}
	case *ast.Emphasis:
		if nd.Level >= 2 {
			b.enterExit(entering, "b")
		} else {
			b.enterExit(entering, "i")
		}
	case *extast.Strikethrough:
		b.enterExit(entering, "strike")
	case *ast.ThematicBreak:
		if entering {
			b.emit(SelfClosing("hr"))
		}
	case *ast.Image:
		if entering {
			b.emit(SelfClosing("img", "src", string(nd.Destination)))
		}
		// 替代文本不显示
		return ast.WalkSkipChildren, nil
	case *ast.Text:
		if entering {
			value := nd.Segment.Value(b.src)
			if !nd.IsRaw() {
				value = unescape(value)
			}
			b.text(value)
			if nd.SoftLineBreak() || nd.HardLineBreak() {
				b.text([]byte("\n"))
			}
		}
	case *ast.String:
		if entering {
			b.text(nd.Value)
		}
	case *ast.AutoLink:
		if entering {
			b.text(nd.Label(b.src))
		}
		return ast.WalkSkipChildren, nil
	case *ast.CodeBlock, *ast.FencedCodeBlock:
		if entering {
			b.codeLines(n.Lines())
		}
		return ast.WalkSkipChildren, nil
	case *ast.ListItem:
		if entering {
			b.emit(Start("p"), TextToken(bullet(nd)))
		} else {
			b.emit(End("p"))
		}
	case *ast.RawHTML:
		if entering {
			var raw bytes.Buffer
			for i := 0; i < nd.Segments.Len(); i++ {
				seg := nd.Segments.At(i)
				raw.Write(seg.Value(b.src))
			}
			return ast.WalkContinue, b.html(raw.Bytes())
		}
	case *ast.HTMLBlock:
		if entering {
			var raw bytes.Buffer
			lines := nd.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				raw.Write(seg.Value(b.src))
			}
			if nd.HasClosure() {
				raw.Write(nd.ClosureLine.Value(b.src))
			}
			return ast.WalkSkipChildren, b.html(raw.Bytes())
		}
	case *extast.TableHeader:
		if entering {
			b.emit(Start("p", "align", "left"), Start("b"))
		} else {
			b.emit(End("b"), End("p"))
		}
	case *extast.TableRow:
		if entering {
			b.emit(Start("p", "align", "left"))
		} else {
			b.emit(End("p"))
		}
	}
	return ast.WalkContinue, nil
}

func (b *mdBuilder) enterExit(entering bool, name string) {
	if entering {
		b.emit(Start(name))
	} else {
		b.emit(End(name))
	}
}

// codeLines 每行一个左对齐段落，保留原有换行。
func (b *mdBuilder) codeLines(lines *text.Segments) {
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := bytes.TrimRight(seg.Value(b.src), "\r\n")
		b.emit(Start("p", "align", "left"))
		b.text(line)
		b.emit(End("p"))
	}
}

// html 把内嵌的 HTML 片段交给 HTML 分词器。
func (b *mdBuilder) html(raw []byte) error {
	src := NewHTML(bytes.NewReader(raw))
	for {
		t, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		b.emit(t)
	}
}

func isFirstInListItem(n ast.Node) bool {
	p := n.Parent()
	return p != nil && p.Kind() == ast.KindListItem && n.PreviousSibling() == nil
}

func bullet(item *ast.ListItem) string {
	list, ok := item.Parent().(*ast.List)
	if !ok || !list.IsOrdered() {
		return "•"
	}
	idx := list.Start
	for c := list.FirstChild(); c != nil && c != ast.Node(item); c = c.NextSibling() {
		idx++
	}
	return strconv.Itoa(idx) + string(list.Marker)
}
