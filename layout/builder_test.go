package layout

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/sharkbobo/sumatrapdf/markup"
)

// stubFont 与 stubBackend 是最小实现，仅用于测试，避免引入 renderer 造成循环依赖。
type stubFont struct {
	name  string
	size  float64
	style FontStyle
}

func (f *stubFont) Name() string     { return f.name }
func (f *stubFont) Size() float64    { return f.size }
func (f *stubFont) Style() FontStyle { return f.style }

// stubBackend 每个字节宽 charDx，行高为字号的 1.2 倍。
type stubBackend struct {
	charDx  float64
	missing map[string]bool
	created int
}

func newStubBackend() *stubBackend {
	return &stubBackend{charDx: 5, missing: map[string]bool{}}
}

func (b *stubBackend) CreateFont(name string, size float64, style FontStyle) (Font, error) {
	if b.missing[name] {
		return nil, fmt.Errorf("字体 %s 不存在", name)
	}
	b.created++
	return &stubFont{name: name, size: size, style: style}, nil
}

func (b *stubBackend) Measure(f Font, text []byte) (float64, float64) {
	return float64(len(text)) * b.charDx, f.Size()
}

func (b *stubBackend) LineHeight(f Font) float64 { return f.Size() * 1.2 }

// stubDecoder 把形如 "img:WxH" 的数据解析为尺寸。
type stubDecoder struct{}

func (stubDecoder) DecodeSize(data []byte) (float64, float64, error) {
	var w, h float64
	if _, err := fmt.Sscanf(string(data), "img:%gx%g", &w, &h); err != nil {
		return 0, 0, err
	}
	return w, h, nil
}

type mapDocument map[string]string

func (d mapDocument) ImageData(id string) ([]byte, bool) {
	s, ok := d[id]
	return []byte(s), ok
}

// 字号 10 时：字宽 5、词间距 4、行高 12。
func testInfo(width, height float64) LayoutInfo {
	return LayoutInfo{PageWidth: width, PageHeight: height, FontName: "Body", FontSize: 10}
}

func testOptions(b *stubBackend) Options {
	return Options{Fonts: NewFontCache(b), Decoder: stubDecoder{}}
}

func layoutTokens(t *testing.T, info LayoutInfo, opts Options, tokens ...*markup.Token) *Result {
	t.Helper()
	res, err := Build(markup.NewSliceSource(tokens...), info, opts)
	if err != nil {
		t.Fatalf("排版失败: %v", err)
	}
	return res
}

func layoutText(t *testing.T, info LayoutInfo, s string) *Result {
	t.Helper()
	return layoutTokens(t, info, testOptions(newStubBackend()), markup.TextToken(s))
}

func eq(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func textsOf(p *Page) []string {
	var out []string
	for _, tr := range p.Texts() {
		out = append(out, string(tr.Text))
	}
	return out
}

func TestSingleTrailingNewlineIgnored(t *testing.T) {
	res := layoutText(t, testInfo(1000, 1000), "foo bar\n")
	if len(res.Pages) != 1 {
		t.Fatalf("期望 1 页，实际 %d", len(res.Pages))
	}
	p := res.Pages[0]
	if p.Count() != 3 {
		t.Fatalf("期望 3 条指令，实际 %d", p.Count())
	}
	if _, ok := p.Instrs[0].(*SetFont); !ok {
		t.Fatalf("首条指令应为 SetFont，实际 %T", p.Instrs[0])
	}
	texts := p.Texts()
	if string(texts[0].Text) != "foo" || string(texts[1].Text) != "bar" {
		t.Fatalf("文本错误: %v", textsOf(p))
	}
	// 段落结束强制左对齐
	if !eq(texts[0].Box.X, 0) || !eq(texts[1].Box.X, 19) {
		t.Fatalf("左对齐位置错误: %g %g", texts[0].Box.X, texts[1].Box.X)
	}
	if texts[0].Box.Y != texts[1].Box.Y {
		t.Fatalf("应在同一行")
	}
}

func TestParagraphCloseUsesLeftAlign(t *testing.T) {
	// 页宽恰好等于三个词加两个词间距
	info := testInfo(3*25+2*4, 1000)
	res := layoutTokens(t, info, testOptions(newStubBackend()),
		markup.Start("p"), markup.TextToken("word1 word2 word3"), markup.End("p"))
	texts := res.Pages[0].Texts()
	if len(texts) != 3 {
		t.Fatalf("期望 3 个词，实际 %v", textsOf(res.Pages[0]))
	}
	for i, tr := range texts {
		if !eq(tr.Box.X, float64(i)*29) || tr.Box.Y != 0 {
			t.Fatalf("第 %d 个词位置错误: %+v", i, tr.Box)
		}
	}
	if !eq(texts[2].Box.Right(), info.PageWidth) {
		t.Fatalf("右边界应等于页宽: %g", texts[2].Box.Right())
	}
}

func TestJustifyBothSpacing(t *testing.T) {
	info := testInfo(100, 1000)
	res := layoutText(t, info, strings.Repeat("aaaa ", 10))
	texts := res.Pages[0].Texts()
	var line []*TextRun
	for _, tr := range texts {
		if tr.Box.Y == 0 {
			line = append(line, tr)
		}
	}
	if len(line) != 4 {
		t.Fatalf("首行期望 4 个词，实际 %d", len(line))
	}
	if !eq(line[len(line)-1].Box.Right(), info.PageWidth) {
		t.Fatalf("两端对齐后右边界应为 %g，实际 %g", info.PageWidth, line[len(line)-1].Box.Right())
	}
	gap := line[1].Box.X - line[0].Box.Right()
	for i := 2; i < len(line); i++ {
		if g := line[i].Box.X - line[i-1].Box.Right(); !eq(g, gap) {
			t.Fatalf("词间距不一致: %g vs %g", g, gap)
		}
	}
	if !eq(gap, 4+8.0/3) {
		t.Fatalf("词间距错误: %g", gap)
	}
}

func TestAlignAttribute(t *testing.T) {
	cases := []struct {
		align string
		wantX float64
	}{
		{"center", 45},
		{"right", 90},
		{"left", 0},
		{"bogus", 0},
	}
	for _, tc := range cases {
		res := layoutTokens(t, testInfo(100, 1000), testOptions(newStubBackend()),
			markup.Start("p", "align", tc.align), markup.TextToken("ab"), markup.End("p"))
		tr := res.Pages[0].Texts()[0]
		if !eq(tr.Box.X, tc.wantX) {
			t.Fatalf("align=%s 期望 x=%g，实际 %g", tc.align, tc.wantX, tr.Box.X)
		}
	}
}

func TestNewlineCounting(t *testing.T) {
	res := layoutText(t, testInfo(1000, 1000), "a\nb")
	texts := res.Pages[0].Texts()
	if texts[0].Box.Y != texts[1].Box.Y {
		t.Fatalf("单个换行不应断行")
	}

	res = layoutText(t, testInfo(1000, 1000), "a\n\nb")
	texts = res.Pages[0].Texts()
	if !eq(texts[1].Box.Y, 24) {
		t.Fatalf("段落结束后应空一行，b 的 y 为 %g", texts[1].Box.Y)
	}

	// 行已经为空时只换一次
	res = layoutTokens(t, testInfo(1000, 1000), testOptions(newStubBackend()),
		markup.Start("p"), markup.TextToken("a"), markup.End("p"), markup.TextToken("\n\nb"))
	texts = res.Pages[0].Texts()
	if !eq(texts[1].Box.Y, 24) {
		t.Fatalf("空行不应重复断开，b 的 y 为 %g", texts[1].Box.Y)
	}

	res = layoutText(t, testInfo(1000, 1000), "a\r\n\r\n\r\nb")
	texts = res.Pages[0].Texts()
	if !eq(texts[1].Box.Y, 24) {
		t.Fatalf("三个换行只算一次段落结束，b 的 y 为 %g", texts[1].Box.Y)
	}

	// 计数在段落结束后归零，四个换行是两次段落结束
	res = layoutText(t, testInfo(1000, 1000), "a\n\n\n\nb")
	texts = res.Pages[0].Texts()
	if !eq(texts[1].Box.Y, 36) {
		t.Fatalf("四个换行应结束两次段落，b 的 y 为 %g", texts[1].Box.Y)
	}
}

func TestPageHeightBound(t *testing.T) {
	info := testInfo(30, 50)
	res := layoutText(t, info, strings.Repeat("abcd ", 20))
	if len(res.Pages) != 5 {
		t.Fatalf("每页 4 行，期望 5 页，实际 %d", len(res.Pages))
	}
	for i, p := range res.Pages {
		if _, ok := p.Instrs[0].(*SetFont); !ok {
			t.Fatalf("第 %d 页首条指令不是 SetFont", i)
		}
		for _, instr := range p.Instrs {
			if b := instr.Bounds(); b.Y+12 > info.PageHeight+1e-9 {
				t.Fatalf("第 %d 页指令越界: %+v", i, b)
			}
		}
	}
}

func TestHrProducesRule(t *testing.T) {
	res := layoutTokens(t, testInfo(100, 1000), testOptions(newStubBackend()),
		markup.TextToken("a"), markup.Start("hr"), markup.TextToken("b"))
	p := res.Pages[0]
	var rules []*Rule
	for _, instr := range p.Instrs {
		if r, ok := instr.(*Rule); ok {
			rules = append(rules, r)
		}
	}
	if len(rules) != 1 {
		t.Fatalf("期望 1 条水平线，实际 %d", len(rules))
	}
	if r := rules[0].Box; !eq(r.X, 0) || !eq(r.Dx, 100) || !eq(r.Y, 12) || !eq(r.Dy, 12) {
		t.Fatalf("水平线位置错误: %+v", r)
	}
	texts := p.Texts()
	if !eq(texts[0].Box.Y, 0) || !eq(texts[1].Box.Y, 24) {
		t.Fatalf("水平线前后应各换一行: %g %g", texts[0].Box.Y, texts[1].Box.Y)
	}
}

func TestPagebreak(t *testing.T) {
	var observed []*Page
	opts := testOptions(newStubBackend())
	opts.Observer = PageObserverFunc(func(p *Page) { observed = append(observed, p) })
	res := layoutTokens(t, testInfo(100, 1000), opts,
		markup.TextToken("a"), markup.SelfClosing("mbp:pagebreak"), markup.TextToken("b"))
	if len(res.Pages) != 2 || len(observed) != 2 {
		t.Fatalf("期望 2 页，实际 %d/%d", len(res.Pages), len(observed))
	}
	if observed[0] != res.Pages[0] {
		t.Fatalf("观察者与结果应收到同一页面")
	}
	if got := textsOf(res.Pages[0]); len(got) != 1 || got[0] != "a" {
		t.Fatalf("第一页内容错误: %v", got)
	}
	b := res.Pages[1].Texts()[0]
	if b.Box.X != 0 || b.Box.Y != 0 {
		t.Fatalf("新页应从 (0,0) 开始: %+v", b.Box)
	}
}

func TestEmptyInputEmitsNoPage(t *testing.T) {
	res := layoutTokens(t, testInfo(100, 100), testOptions(newStubBackend()),
		markup.Start("p"), markup.TextToken("  \n "), markup.End("p"))
	if len(res.Pages) != 0 {
		t.Fatalf("没有内容时不应输出页面，实际 %d", len(res.Pages))
	}
}

func TestTrailingFontSwitchEmitsNoPage(t *testing.T) {
	res := layoutTokens(t, testInfo(100, 1000), testOptions(newStubBackend()),
		markup.TextToken("a"), markup.SelfClosing("pagebreak"), markup.Start("b"), markup.Start("i"))
	if len(res.Pages) != 1 {
		t.Fatalf("只含字体切换的尾页不应输出，实际 %d 页", len(res.Pages))
	}
	if got := textsOf(res.Pages[0]); len(got) != 1 || got[0] != "a" {
		t.Fatalf("第一页内容错误: %v", got)
	}
}

func TestOversizedWordOverflows(t *testing.T) {
	res := layoutText(t, testInfo(20, 1000), "aaaaaaaaaa b")
	texts := res.Pages[0].Texts()
	if !eq(texts[0].Box.Y, 0) || !eq(texts[0].Box.Dx, 50) {
		t.Fatalf("超宽单词应放在首行且不拆分: %+v", texts[0].Box)
	}
	if !eq(texts[1].Box.Y, 12) {
		t.Fatalf("下一个词应换行: %+v", texts[1].Box)
	}
}

func TestStyleChangesEmitSetFont(t *testing.T) {
	res := layoutTokens(t, testInfo(1000, 1000), testOptions(newStubBackend()),
		markup.Start("b"), markup.TextToken("x"), markup.SelfClosing("i"), markup.End("b"),
		markup.TextToken("y"), markup.Start("strong"), markup.SelfClosing("pagebreak"), markup.TextToken("z"))
	first := res.Pages[0].Instrs
	want := []string{"setFont:regular", "setFont:bold", "text:x", "setFont:regular", "text:y", "setFont:bold"}
	if got := describe(first); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("指令序列错误:\n got %v\nwant %v", got, want)
	}
	second := res.Pages[1].Instrs
	if got := describe(second); got[0] != "setFont:bold" {
		t.Fatalf("新页应以当前字体开头: %v", got)
	}
}

func TestFlatStyleBitmask(t *testing.T) {
	res := layoutTokens(t, testInfo(1000, 1000), testOptions(newStubBackend()),
		markup.Start("b"), markup.TextToken("fo"), markup.Start("b"), markup.TextToken("oo"),
		markup.End("b"), markup.TextToken("bar"), markup.End("b"))
	got := describe(res.Pages[0].Instrs)
	want := []string{"setFont:regular", "setFont:bold", "text:fo", "text:oo", "setFont:regular", "text:bar"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("样式掩码行为错误:\n got %v\nwant %v", got, want)
	}
}

func describe(instrs []DrawInstr) []string {
	var out []string
	for _, instr := range instrs {
		switch v := instr.(type) {
		case *SetFont:
			out = append(out, "setFont:"+v.Font.Style().String())
		case *TextRun:
			out = append(out, "text:"+string(v.Text))
		case *Rule:
			out = append(out, "rule")
		case *Image:
			out = append(out, "image:"+v.ID)
		}
	}
	return out
}

func TestStyleContentIgnored(t *testing.T) {
	res := layoutTokens(t, testInfo(1000, 1000), testOptions(newStubBackend()),
		markup.Start("style"), markup.TextToken("p { color: red }"), markup.End("style"),
		markup.TextToken("hello"))
	if got := textsOf(res.Pages[0]); len(got) != 1 || got[0] != "hello" {
		t.Fatalf("<style> 内容应忽略: %v", got)
	}
}

func imageOf(t *testing.T, p *Page) *Image {
	t.Helper()
	for _, instr := range p.Instrs {
		if img, ok := instr.(*Image); ok {
			return img
		}
	}
	t.Fatalf("页面中没有图片")
	return nil
}

func TestImageScaledToFit(t *testing.T) {
	opts := testOptions(newStubBackend())
	opts.Document = mapDocument{"big.png": "img:400x300"}
	res := layoutTokens(t, testInfo(100, 200), opts, markup.Start("img", "src", "big.png"))
	img := imageOf(t, res.Pages[0])
	if img.Box.Dx > 100+1e-9 || img.Box.Dy > 200+1e-9 {
		t.Fatalf("图片未缩放到页面内: %+v", img.Box)
	}
	if !eq(img.Box.Dx/img.Box.Dy, 400.0/300) {
		t.Fatalf("缩放后宽高比改变: %+v", img.Box)
	}
	if !eq(img.Box.Dx, 100) {
		t.Fatalf("应按宽度缩放: %+v", img.Box)
	}
}

func TestImageNotUpscaledAndCentered(t *testing.T) {
	opts := testOptions(newStubBackend())
	opts.Document = mapDocument{"7": "img:20x10"}
	res := layoutTokens(t, testInfo(100, 200), opts,
		markup.TextToken("a"), markup.SelfClosing("img", "recindex", "7"), markup.TextToken("b"))
	p := res.Pages[0]
	img := imageOf(t, p)
	if !eq(img.Box.Dx, 20) || !eq(img.Box.Dy, 10) {
		t.Fatalf("小图片不应放大: %+v", img.Box)
	}
	if !eq(img.Box.X, 40) || !eq(img.Box.Y, 12) {
		t.Fatalf("图片应居中放在新行: %+v", img.Box)
	}
	b := p.Texts()[1]
	if !eq(b.Box.Y, 34) {
		t.Fatalf("图片后文本应另起一行: %+v", b.Box)
	}
}

func TestImageMovesToNewPage(t *testing.T) {
	opts := testOptions(newStubBackend())
	opts.Document = mapDocument{"tall": "img:50x100"}
	// 每个词恰好一行宽，13 行后剩余 200-156=44，不足图片高度的一半
	text := strings.Repeat("aaaaaaaaaaaaaaaaaaaa ", 13)
	res := layoutTokens(t, testInfo(100, 200), opts,
		markup.TextToken(text), markup.Start("img", "src", "tall"))
	if len(res.Pages) != 2 {
		t.Fatalf("期望图片移到第 2 页，实际 %d 页", len(res.Pages))
	}
	img := imageOf(t, res.Pages[1])
	if img.Box.Y != 0 || !eq(img.Box.Dy, 100) {
		t.Fatalf("图片应位于新页顶部且不缩放: %+v", img.Box)
	}
}

func TestImageScaledToRemainingHeight(t *testing.T) {
	opts := testOptions(newStubBackend())
	opts.Document = mapDocument{"tall": "img:50x120"}
	// 第一行之后剩余 100-12=88，超过图片高度的一半，图片留在本页并按高度缩小
	res := layoutTokens(t, testInfo(100, 100), opts,
		markup.TextToken("a"), markup.Start("img", "src", "tall"))
	if len(res.Pages) != 1 {
		t.Fatalf("图片不应移到新页，实际 %d 页", len(res.Pages))
	}
	img := imageOf(t, res.Pages[0])
	if !eq(img.Box.Y, 12) || !eq(img.Box.Dy, 88) {
		t.Fatalf("图片高度应等于剩余高度: %+v", img.Box)
	}
	if !eq(img.Box.Dx/img.Box.Dy, 50.0/120) {
		t.Fatalf("缩放后宽高比改变: %+v", img.Box)
	}
	if !eq(img.Box.X, (100-img.Box.Dx)/2) {
		t.Fatalf("图片应水平居中: %+v", img.Box)
	}
}

func TestImageDecodeFailureIgnored(t *testing.T) {
	opts := testOptions(newStubBackend())
	opts.Document = mapDocument{"bad": "not an image"}
	res := layoutTokens(t, testInfo(100, 200), opts,
		markup.TextToken("a"), markup.Start("img", "src", "bad"), markup.Start("img", "src", "missing"),
		markup.End("img"), markup.TextToken("b"))
	p := res.Pages[0]
	for _, instr := range p.Instrs {
		if _, ok := instr.(*Image); ok {
			t.Fatalf("解码失败不应产生图片")
		}
	}
	texts := p.Texts()
	if texts[0].Box.Y != texts[1].Box.Y {
		t.Fatalf("失败的图片不应强制换行")
	}
}

func TestDeterministicOutput(t *testing.T) {
	tokens := func() []*markup.Token {
		return []*markup.Token{
			markup.Start("p", "align", "center"), markup.TextToken("lorem ipsum dolor sit amet"), markup.End("p"),
			markup.Start("i"), markup.TextToken(strings.Repeat("consectetur adipiscing elit ", 8)), markup.End("i"),
			markup.Start("hr"), markup.TextToken("sed do\n\neiusmod"),
		}
	}
	info := testInfo(120, 80)
	a := layoutTokens(t, info, testOptions(newStubBackend()), tokens()...)
	b := layoutTokens(t, info, testOptions(newStubBackend()), tokens()...)
	ja, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("序列化失败: %v", err)
	}
	jb, _ := json.Marshal(b)
	if string(ja) != string(jb) {
		t.Fatalf("相同输入的排版结果不一致")
	}
}

func TestFontCacheReusedAcrossPasses(t *testing.T) {
	backend := newStubBackend()
	opts := testOptions(backend)
	for i := 0; i < 2; i++ {
		layoutTokens(t, testInfo(100, 100), opts,
			markup.Start("b"), markup.TextToken("x"), markup.End("b"), markup.TextToken("y"))
	}
	if backend.created != 2 || opts.Fonts.Len() != 2 {
		t.Fatalf("字体应只创建一次: created=%d cached=%d", backend.created, opts.Fonts.Len())
	}
}

func TestFontFallback(t *testing.T) {
	backend := newStubBackend()
	backend.missing["Body"] = true
	info := testInfo(100, 100)
	info.FallbackFonts = []string{"Missing", "Fallback"}
	backend.missing["Missing"] = true
	res := layoutTokens(t, info, testOptions(backend), markup.TextToken("x"))
	sf := res.Pages[0].Instrs[0].(*SetFont)
	if sf.Font.Name() != "Fallback" {
		t.Fatalf("应使用备用字体，实际 %s", sf.Font.Name())
	}

	info.FallbackFonts = nil
	_, err := Build(markup.NewSliceSource(markup.TextToken("x")), info, testOptions(backend))
	if err == nil || !strings.Contains(err.Error(), "Body") {
		t.Fatalf("所有字体都失败时应返回错误，实际 %v", err)
	}
}

func TestInvalidConfiguration(t *testing.T) {
	src := markup.NewSliceSource()
	if err := Layout(src, testInfo(100, 100), Options{}); !errors.Is(err, ErrNoFontBackend) {
		t.Fatalf("缺少字体后端应返回 ErrNoFontBackend，实际 %v", err)
	}
	if err := Layout(src, testInfo(0, 100), testOptions(newStubBackend())); err == nil {
		t.Fatalf("页宽为 0 应返回错误")
	}
	info := testInfo(100, 100)
	info.FontSize = 0
	if err := Layout(src, info, testOptions(newStubBackend())); err == nil {
		t.Fatalf("字号为 0 应返回错误")
	}
}

var errBoom = errors.New("boom")

type failingSource struct {
	tokens []*markup.Token
}

func (s *failingSource) Next() (*markup.Token, error) {
	if len(s.tokens) == 0 {
		return nil, errBoom
	}
	t := s.tokens[0]
	s.tokens = s.tokens[1:]
	return t, nil
}

func TestMalformedStreamFlushes(t *testing.T) {
	src := &failingSource{tokens: []*markup.Token{markup.TextToken("a b")}}
	res, err := Build(src, testInfo(100, 100), testOptions(newStubBackend()))
	if !errors.Is(err, errBoom) {
		t.Fatalf("应返回输入错误，实际 %v", err)
	}
	if len(res.Pages) != 1 || len(res.Pages[0].Texts()) != 2 {
		t.Fatalf("出错前的内容应被输出")
	}
}
