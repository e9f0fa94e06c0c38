package layout

import (
	"errors"
	"fmt"
	"io"

	"github.com/sharkbobo/sumatrapdf/markup"
)

var (
	// ErrNoFontBackend 表示没有提供字体缓存或字体后端。
	ErrNoFontBackend = errors.New("layout: 缺少字体后端 FontBackend")
)

// Build 排版整个 token 流并收集所有页面。
// 若 opts.Observer 不为空，每页同样会交给它。
func Build(src markup.Source, info LayoutInfo, opts Options) (*Result, error) {
	res := &Result{Info: info}
	next := opts.Observer
	opts.Observer = PageObserverFunc(func(p *Page) {
		res.Pages = append(res.Pages, p)
		if next != nil {
			next.NewPage(p)
		}
	})
	err := Layout(src, info, opts)
	return res, err
}

// Layout 以单遍流式方式排版：逐个拉取 token，页面排满即交给 opts.Observer。
// 输入格式错误时会先输出已排好的内容，再返回错误。
func Layout(src markup.Source, info LayoutInfo, opts Options) error {
	if src == nil {
		return fmt.Errorf("layout: token 流为空")
	}
	if opts.Fonts == nil || opts.Fonts.Backend() == nil {
		return ErrNoFontBackend
	}
	if info.PageWidth <= 0 || info.PageHeight <= 0 {
		return fmt.Errorf("layout: 页面尺寸无效 %gx%g", info.PageWidth, info.PageHeight)
	}
	if info.FontName == "" || info.FontSize <= 0 {
		return fmt.Errorf("layout: 字体配置无效 %q %gpt", info.FontName, info.FontSize)
	}
	l := &pageLayout{
		info:     info,
		fonts:    opts.Fonts,
		backend:  opts.Fonts.Backend(),
		decoder:  opts.Decoder,
		doc:      opts.Document,
		observer: opts.Observer,
	}
	if l.decoder == nil {
		l.decoder = ConfigDecoder{}
	}
	if err := l.start(); err != nil {
		return err
	}
	return l.process(src)
}

// pageLayout 保存一次排版的全部状态，只在单个 goroutine 中使用。
type pageLayout struct {
	info     LayoutInfo
	fonts    *FontCache
	backend  FontBackend
	decoder  ImageDecoder
	doc      Document
	observer PageObserver

	pageDx      float64
	pageDy      float64
	lineSpacing float64
	spaceDx     float64

	currStyle         FontStyle
	currFont          Font
	currJustification Align
	// 当前页中的光标位置
	x, y float64
	// 连续换行的数量
	newLinesCount int

	currPage   *Page
	tagNesting tagStack
	// 当前（尚未结束的）行在 currPage.Instrs 中的起始下标
	currLineStart int
}

func (l *pageLayout) start() error {
	l.pageDx = l.info.PageWidth
	l.pageDy = l.info.PageHeight
	l.currJustification = l.info.Align
	if err := l.setCurrentFont(FontRegular); err != nil {
		return err
	}
	l.lineSpacing = l.backend.LineHeight(l.currFont)
	if l.lineSpacing <= 0 {
		return fmt.Errorf("layout: 字体 %s 行高无效 %g", l.currFont.Name(), l.lineSpacing)
	}
	l.spaceDx = l.info.SpaceDx
	if l.spaceDx <= 0 {
		// 经验值：比字体自身的空格宽度更接近常见阅读器的效果
		l.spaceDx = l.info.FontSize / 2.5
	}
	l.startNewPage()
	return nil
}

func (l *pageLayout) process(src markup.Source) error {
	var malformed error
	for {
		t, err := src.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				malformed = err
			}
			break
		}
		if t == nil {
			continue
		}
		if t.IsTag() {
			if err := l.handleTag(t); err != nil {
				return err
			}
		} else {
			l.emitText(t)
		}
	}
	// 排出最后一行
	l.startNewLine(true)
	// 最后一页只在有内容时输出，只含字体切换的页不算
	if l.currPage != nil && l.currPage.HasContent() {
		l.emitPage(l.currPage)
	}
	l.currPage = nil
	if malformed != nil {
		return fmt.Errorf("layout: 输入格式错误，已输出此前的内容: %w", malformed)
	}
	return nil
}

// getFont 依次尝试主字体、备用字体，最后复用缓存中最早的字体。
func (l *pageLayout) getFont(style FontStyle) (Font, error) {
	f, err := l.fonts.GetFont(l.info.FontName, l.info.FontSize, style)
	if err == nil {
		return f, nil
	}
	for _, name := range l.info.FallbackFonts {
		if fb, fbErr := l.fonts.GetFont(name, l.info.FontSize, style); fbErr == nil {
			return fb, nil
		}
	}
	if fb := l.fonts.first(); fb != nil {
		return fb, nil
	}
	return nil, err
}

func (l *pageLayout) setCurrentFont(style FontStyle) error {
	f, err := l.getFont(style)
	if err != nil {
		return err
	}
	l.currStyle = style
	l.currFont = f
	return nil
}

// changeFont 添加或移除一个样式位。
// 样式是扁平位掩码，不记录嵌套次数：<b>fo<b>oo</b>bar</b> 中的 "bar" 不再是粗体。
func (l *pageLayout) changeFont(style FontStyle, addStyle bool) error {
	newStyle := l.currStyle
	if addStyle {
		newStyle |= style
	} else {
		newStyle &^= style
	}
	if newStyle == l.currStyle {
		return nil
	}
	if err := l.setCurrentFont(newStyle); err != nil {
		return err
	}
	l.currPage.Append(&SetFont{Font: l.currFont})
	return nil
}

func (l *pageLayout) emitPage(p *Page) {
	if l.observer != nil {
		l.observer.NewPage(p)
	}
}

func (l *pageLayout) startNewPage() {
	if l.currPage != nil {
		l.emitPage(l.currPage)
	}
	l.currPage = &Page{Width: l.pageDx, Height: l.pageDy}
	l.x, l.y = 0, 0
	l.newLinesCount = 0
	// 每页的指令必须自包含，因此要带上当前字体
	l.currPage.Append(&SetFont{Font: l.currFont})
	l.currLineStart = l.currPage.Count()
}

func (l *pageLayout) currentLine() []DrawInstr {
	return l.currPage.Instrs[l.currLineStart:]
}

// isCurrentLineEmpty 报告当前行是否没有文字、线条或图片。
func (l *pageLayout) isCurrentLineEmpty() bool {
	for _, instr := range l.currentLine() {
		if _, ok := instr.(*SetFont); !ok {
			return false
		}
	}
	return true
}

// currentLineDx 返回当前行内容宽度：各词宽度加上 (词数-1) 个词间距。
func (l *pageLayout) currentLineDx() float64 {
	dx := -l.spaceDx
	for _, instr := range l.currentLine() {
		if t, ok := instr.(*TextRun); ok {
			dx += t.Box.Dx + l.spaceDx
		}
	}
	if dx < 0 {
		dx = 0
	}
	return dx
}

func (l *pageLayout) layoutLeftStartingAt(offX float64) {
	l.x = offX
	for _, instr := range l.currentLine() {
		if t, ok := instr.(*TextRun); ok {
			t.Box.X = l.x
			t.Box.Y = l.y
			l.x += t.Box.Dx + l.spaceDx
		}
	}
}

// justifyLineBoth 先左对齐，再把剩余空间平均分到词间，使最后一个词贴住右边界。
func (l *pageLayout) justifyLineBoth() {
	margin := l.pageDx - l.currentLineDx()
	l.layoutLeftStartingAt(0)
	var words []*TextRun
	for _, instr := range l.currentLine() {
		if t, ok := instr.(*TextRun); ok {
			words = append(words, t)
		}
	}
	extraSpaceDx := margin
	if len(words) > 1 {
		extraSpaceDx = margin / float64(len(words)-1)
	}
	for n, t := range words {
		t.Box.X += float64(n) * extraSpaceDx
	}
}

func (l *pageLayout) justifyLine(mode Align) {
	if l.isCurrentLineEmpty() {
		return
	}
	switch mode {
	case AlignLeft:
		l.layoutLeftStartingAt(0)
	case AlignRight:
		l.layoutLeftStartingAt(l.pageDx - l.currentLineDx())
	case AlignCenter:
		l.layoutLeftStartingAt((l.pageDx - l.currentLineDx()) / 2)
	default:
		l.justifyLineBoth()
	}
	l.currLineStart = l.currPage.Count()
}

func (l *pageLayout) startNewLine(isParagraphBreak bool) {
	// 页首不放空行
	if l.y == 0 && l.isCurrentLineEmpty() {
		return
	}
	if isParagraphBreak && l.currJustification == AlignJustify {
		l.justifyLine(AlignLeft)
	} else {
		l.justifyLine(l.currJustification)
	}
	l.x = 0
	l.y += l.lineSpacing
	l.currLineStart = l.currPage.Count()
	if l.y+l.lineSpacing > l.pageDy {
		l.startNewPage()
	}
}

// addHr 添加水平线（<hr>），前后各隐含一次段落结束。
func (l *pageLayout) addHr() {
	l.startNewLine(true)
	l.x = 0
	// 水平线占一个行高，放不下就换页
	if l.y+l.lineSpacing > l.pageDy {
		l.startNewPage()
	}
	l.currPage.Append(&Rule{Box: Rect{X: l.x, Y: l.y, Dx: l.pageDx, Dy: l.lineSpacing}})
	l.startNewLine(true)
}

func (l *pageLayout) addWord(w Word) {
	if w.IsNewline() {
		// 单个换行视为软换行忽略；连续两个换行才是段落结束
		l.newLinesCount++
		if l.newLinesCount == 2 {
			needsTwo := !l.isCurrentLineEmpty()
			l.startNewLine(true)
			if needsTwo {
				l.startNewLine(true)
			}
			l.newLinesCount = 0
		}
		return
	}
	l.newLinesCount = 0

	dx, dy := l.backend.Measure(l.currFont, w.Text)
	// 超宽的单词不拆分，单独占一行并允许溢出
	if l.x+dx > l.pageDx && !l.isCurrentLineEmpty() {
		l.startNewLine(false)
	}
	// x 只是占位，行结束时才确定
	l.currPage.Append(&TextRun{Text: w.Text, Box: Rect{X: l.x, Y: l.y, Dx: dx, Dy: dy}})
	l.x += dx + l.spaceDx
}

// addImage 把图片单独居中放一行，必要时换页或等比缩小。
func (l *pageLayout) addImage(id string, data []byte) {
	imgDx, imgDy, err := l.decoder.DecodeSize(data)
	if err != nil || imgDx <= 0 || imgDy <= 0 {
		return
	}
	l.startNewLine(false)
	if l.y > 0 && l.pageDy-l.y < imgDy/2 {
		// 过大的图片移到新页；已在页首时不再产生空白页
		l.startNewPage()
	}
	if imgDx > l.pageDx || imgDy > l.pageDy-l.y {
		factor := min(l.pageDx/imgDx, (l.pageDy-l.y)/imgDy)
		imgDx *= factor
		imgDy *= factor
	}
	l.x += (l.pageDx - imgDx) / 2
	l.currPage.Append(&Image{ID: id, Data: data, Box: Rect{X: l.x, Y: l.y, Dx: imgDx, Dy: imgDy}})
	l.y += imgDy
	l.startNewLine(false)
}

func (l *pageLayout) handleTag(t *markup.Token) error {
	tag := FindTag(t.Name)
	if tag != TagUnknown {
		if t.IsStartTag() {
			l.tagNesting.push(tag)
		} else if t.IsEndTag() {
			l.tagNesting.pop(tag)
		}
	}

	switch tag {
	case TagP:
		l.startNewLine(true)
		l.currJustification = AlignJustify
		if t.IsStartTag() {
			if v, ok := t.Attr("align"); ok {
				if align, ok := FindAlign(v); ok {
					l.currJustification = align
				}
			}
		}
	case TagHr:
		l.addHr()
	case TagB, TagStrong:
		return l.changeStyle(t, FontBold)
	case TagI, TagEm:
		return l.changeStyle(t, FontItalic)
	case TagU:
		return l.changeStyle(t, FontUnderline)
	case TagStrike, TagS, TagDel:
		return l.changeStyle(t, FontStrikeout)
	case TagPagebreak, TagMbpPagebreak:
		l.justifyLine(l.currJustification)
		l.startNewPage()
	case TagImg:
		// 理论上不该出现 </img>，但实际文档里有
		if t.IsEndTag() || l.doc == nil {
			return nil
		}
		for _, a := range t.Attrs {
			if a.Key != "src" && a.Key != "recindex" {
				continue
			}
			if data, ok := l.doc.ImageData(a.Val); ok {
				l.addImage(a.Val, data)
			}
		}
	}
	return nil
}

func (l *pageLayout) changeStyle(t *markup.Token, style FontStyle) error {
	if !t.IsStartTag() && !t.IsEndTag() {
		return nil
	}
	return l.changeFont(style, t.IsStartTag())
}

func (l *pageLayout) emitText(t *markup.Token) {
	// 忽略 <style> 的内容
	if l.tagNesting.contains(TagStyle) {
		return
	}
	it := NewWordIter(t.Text)
	for {
		w, ok := it.Next()
		if !ok {
			return
		}
		l.addWord(w)
	}
}
