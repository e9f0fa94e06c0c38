package layout

// Word 是输入文本中的一个单词视图，或一个换行标记。
type Word struct {
	Text    []byte
	newline bool
}

// IsNewline 报告该词是否为换行标记。
func (w Word) IsNewline() bool { return w.newline }

// WordIter 把一段文本拆成单词与换行标记，例如 "foo bar\n" 依次得到 "foo"、"bar"、换行。
// "\r"、"\n"、"\r\n" 都视为一个换行；连续换行不会合并，排版需要据此识别段落。
type WordIter struct {
	s    []byte
	curr int
}

// NewWordIter 创建迭代器，返回的 Word 直接引用 s。
func NewWordIter(s []byte) *WordIter {
	return &WordIter{s: s}
}

// Reset 回到文本开头。
func (it *WordIter) Reset() { it.curr = 0 }

// Next 返回下一个词，文本结束时第二个返回值为 false。
func (it *WordIter) Next() (Word, bool) {
	for it.curr < len(it.s) && isBlank(it.s[it.curr]) {
		it.curr++
	}
	if it.curr == len(it.s) {
		return Word{}, false
	}
	if it.skipNewline() {
		return Word{newline: true}, true
	}
	start := it.curr
	for it.curr < len(it.s) && !isSpace(it.s[it.curr]) {
		it.curr++
	}
	return Word{Text: it.s[start:it.curr]}, true
}

// skipNewline 消费一个完整的行结束符（\r、\n 或 \r\n）。
func (it *WordIter) skipNewline() bool {
	start := it.curr
	if it.curr < len(it.s) && it.s[it.curr] == '\r' {
		it.curr++
	}
	if it.curr < len(it.s) && it.s[it.curr] == '\n' {
		it.curr++
	}
	return it.curr != start
}

// isBlank 是除换行外的空白。
func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\f' || c == '\v'
}

func isSpace(c byte) bool {
	return isBlank(c) || c == '\r' || c == '\n'
}
