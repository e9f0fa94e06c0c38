package dsl

import (
	"fmt"
	"io"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	profileLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `(?:\d+\.\d+|\d+)(?:pt|mm|cm|in|px)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_:-]*`},
		{Name: "Symbol", Pattern: `[;,]`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
	})

	tokenNames       = invertSymbols(profileLexer.Symbols())
	newlineTokenType = mustTokenType("Newline")
	lbraceTokenType  = mustTokenType("LBrace")
	rbraceTokenType  = mustTokenType("RBrace")
	symbolTokenType  = mustTokenType("Symbol")
	stringTokenType  = mustTokenType("String")

	profileParser = participle.MustBuild[Profile](
		participle.Lexer(profileLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
	)
)

// Profile 是排版配置文件的根节点：
//
//	profile Kindle {
//	  page 600pt 800pt
//	  font "Go" 12pt
//	}
type Profile struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"Newline* 'profile' @Ident"`
	Block *Block         `parser:"@@ Newline*"`
}

// Block 是花括号包围的命令列表，命令之间用换行或分号分隔。
type Block struct {
	Commands []*Command `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Command 是一条配置命令，例如 `margin 18pt 12pt`。
type Command struct {
	Pos  lexer.Position `parser:"" json:"-"`
	Name string         `parser:"@Ident"`
	Args []*Lexeme      `parser:"@@*"`
}

// Lexeme 是一个命令参数。
type Lexeme struct {
	Type  string         `json:"type"`
	Value string         `json:"value"`
	Raw   string         `json:"raw"`
	Pos   lexer.Position `json:"-"`
}

// IsNumber 报告参数是否为数值（可带单位）。
func (l *Lexeme) IsNumber() bool { return l.Type == "Number" }

// Parse 实现 participle.Parseable，参数读到换行、分号或花括号为止。
func (l *Lexeme) Parse(lex *lexer.PeekingLexer) error {
	tok := lex.Peek()
	if shouldStopArg(tok) {
		return participle.NextMatch
	}
	tok = lex.Next()
	lexeme, err := newLexeme(*tok)
	if err != nil {
		return err
	}
	*l = lexeme
	return nil
}

// Lookup 返回第一条同名命令。
func (p *Profile) Lookup(name string) *Command {
	if p == nil || p.Block == nil {
		return nil
	}
	for _, cmd := range p.Block.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	return nil
}

// Parse 从 io.Reader 解析配置。
func Parse(r io.Reader) (*Profile, error) {
	return profileParser.Parse("", r)
}

// ParseString 从字符串解析配置。
func ParseString(input string) (*Profile, error) {
	return profileParser.ParseString("", input)
}

func shouldStopArg(tok *lexer.Token) bool {
	if tok == nil || tok.EOF() {
		return true
	}
	switch tok.Type {
	case newlineTokenType, rbraceTokenType, lbraceTokenType:
		return true
	case symbolTokenType:
		return tok.Value == ";"
	default:
		return false
	}
}

func newLexeme(tok lexer.Token) (Lexeme, error) {
	name, ok := tokenNames[tok.Type]
	if !ok {
		name = fmt.Sprintf("#%d", tok.Type)
	}
	val := tok.Value
	if tok.Type == stringTokenType {
		unquoted, err := strconv.Unquote(tok.Value)
		if err != nil {
			return Lexeme{}, fmt.Errorf("%s: 字符串格式错误: %w", tok.Pos, err)
		}
		val = unquoted
	}
	return Lexeme{
		Type:  name,
		Value: val,
		Raw:   tok.Value,
		Pos:   tok.Pos,
	}, nil
}

func invertSymbols(symbols map[string]lexer.TokenType) map[lexer.TokenType]string {
	out := make(map[lexer.TokenType]string, len(symbols))
	for name, tt := range symbols {
		out[tt] = name
	}
	return out
}

func mustTokenType(name string) lexer.TokenType {
	tt, ok := profileLexer.Symbols()[name]
	if !ok {
		panic(fmt.Sprintf("token %s not defined", name))
	}
	return tt
}
