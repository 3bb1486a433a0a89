// Package imapwire 实现了对内存中 IMAP 响应文本的解码。
//
// 与基于连接的解码器不同，Decoder 直接在字节切片上移动游标，
// 调用方可以用 Mark 和 Reset 回到之前的位置，从而尝试不同的语法分支。
package imapwire

import (
	"fmt"
	"strconv"
	"strings"
)

// SyntaxError 是解码失败时记录的错误。
type SyntaxError struct {
	Offset int    // 出错时游标在输入中的位置
	Msg    string // 错误说明
}

// Error 实现了 error 接口。
func (err *SyntaxError) Error() string {
	return fmt.Sprintf("imapwire: 偏移 %v: %v", err.Offset, err.Msg)
}

// Decoder 从字节切片中读取 IMAP 语法元素。
//
// 以 Expect 开头的方法在失败时记录错误，可通过 Err 获取；
// 其余方法失败时只返回 false，不移动游标。
type Decoder struct {
	buf []byte
	pos int
	err error
}

// NewDecoder 创建一个从 b 开始读取的解码器。
func NewDecoder(b []byte) *Decoder {
	return &Decoder{buf: b}
}

// Err 返回最近一次 Expect 失败的错误。
func (dec *Decoder) Err() error {
	return dec.err
}

// Offset 返回游标位置。
func (dec *Decoder) Offset() int {
	return dec.pos
}

// Mark 返回当前游标位置，供 Reset 使用。
func (dec *Decoder) Mark() int {
	return dec.pos
}

// Reset 把游标移回 mark 并清除错误。
func (dec *Decoder) Reset(mark int) {
	dec.pos = mark
	dec.err = nil
}

// EOF 报告输入是否已读完。
func (dec *Decoder) EOF() bool {
	return dec.pos >= len(dec.buf)
}

// Rest 返回尚未读取的输入。
func (dec *Decoder) Rest() []byte {
	return dec.buf[dec.pos:]
}

func (dec *Decoder) peek() (byte, bool) {
	if dec.pos >= len(dec.buf) {
		return 0, false
	}
	return dec.buf[dec.pos], true
}

func (dec *Decoder) describe() string {
	ch, ok := dec.peek()
	if !ok {
		return "EOF"
	}
	return strconv.QuoteRune(rune(ch))
}

func (dec *Decoder) returnErr(err error) bool {
	if err == nil {
		return true
	}
	if dec.err == nil {
		dec.err = err
	}
	return false
}

func (dec *Decoder) errorf(format string, args ...interface{}) error {
	return &SyntaxError{Offset: dec.pos, Msg: fmt.Sprintf(format, args...)}
}

func (dec *Decoder) expect(ok bool, name string) bool {
	if !ok {
		return dec.returnErr(dec.errorf("期望 %v，实际为 %v", name, dec.describe()))
	}
	return true
}

// PeekSpecial 报告下一个字节是否为 ch，不移动游标。
func (dec *Decoder) PeekSpecial(ch byte) bool {
	next, ok := dec.peek()
	return ok && next == ch
}

// Special 在下一个字节为 ch 时读取它。
func (dec *Decoder) Special(ch byte) bool {
	if !dec.PeekSpecial(ch) {
		return false
	}
	dec.pos++
	return true
}

func (dec *Decoder) ExpectSpecial(ch byte) bool {
	return dec.expect(dec.Special(ch), strconv.QuoteRune(rune(ch)))
}

// SP 读取一个空格。
func (dec *Decoder) SP() bool {
	return dec.Special(' ')
}

func (dec *Decoder) ExpectSP() bool {
	return dec.expect(dec.SP(), "SP")
}

// Keyword 不区分大小写地读取字面文本 s。
func (dec *Decoder) Keyword(s string) bool {
	end := dec.pos + len(s)
	if end > len(dec.buf) || !strings.EqualFold(string(dec.buf[dec.pos:end]), s) {
		return false
	}
	dec.pos = end
	return true
}

func (dec *Decoder) ExpectKeyword(s string) bool {
	return dec.expect(dec.Keyword(s), strconv.Quote(s))
}

// NIL 读取不区分大小写的 NIL。NIL 后面紧跟原子字符时不算 NIL。
func (dec *Decoder) NIL() bool {
	mark := dec.pos
	if !dec.Keyword("NIL") {
		return false
	}
	if ch, ok := dec.peek(); ok && IsAtomChar(ch) {
		dec.pos = mark
		return false
	}
	return true
}

func (dec *Decoder) ExpectNIL() bool {
	return dec.expect(dec.NIL(), "NIL")
}

// Func 读取满足 f 的最长字节序列，至少一个字节。
func (dec *Decoder) Func(ptr *[]byte, f func(ch byte) bool) bool {
	start := dec.pos
	for dec.pos < len(dec.buf) && f(dec.buf[dec.pos]) {
		dec.pos++
	}
	if dec.pos == start {
		return false
	}
	*ptr = dec.buf[start:dec.pos]
	return true
}

// Atom 读取一个原子。
func (dec *Decoder) Atom(ptr *[]byte) bool {
	return dec.Func(ptr, IsAtomChar)
}

func (dec *Decoder) ExpectAtom(ptr *[]byte) bool {
	return dec.expect(dec.Atom(ptr), "atom")
}

// Digits 读取一个或多个十进制数字，保持原始字节。
func (dec *Decoder) Digits(ptr *[]byte) bool {
	return dec.Func(ptr, IsDigit)
}

func (dec *Decoder) ExpectDigits(ptr *[]byte) bool {
	return dec.expect(dec.Digits(ptr), "数字")
}

// Number64 读取一个无符号十进制数。
func (dec *Decoder) Number64(ptr *uint64) bool {
	mark := dec.pos
	var digits []byte
	if !dec.Digits(&digits) {
		return false
	}
	v, err := strconv.ParseUint(string(digits), 10, 64)
	if err != nil {
		dec.pos = mark
		return false
	}
	*ptr = v
	return true
}

func (dec *Decoder) ExpectNumber64(ptr *uint64) bool {
	return dec.expect(dec.Number64(ptr), "数字")
}

// Quoted 读取一个带引号的字符串，处理反斜杠转义。
func (dec *Decoder) Quoted(ptr *[]byte) bool {
	if !dec.PeekSpecial('"') {
		return false
	}
	var (
		s       []byte
		escaped bool
	)
	for i := dec.pos + 1; i < len(dec.buf); i++ {
		ch := dec.buf[i]
		switch {
		case escaped:
			s = append(s, ch)
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == '"':
			out := make([]byte, len(s))
			copy(out, s)
			*ptr = out
			dec.pos = i + 1
			return true
		default:
			s = append(s, ch)
		}
	}
	return dec.returnErr(dec.errorf("带引号的字符串没有结束"))
}

// Literal 读取一个字面量 "{n}\r\n" 加上 n 个字节。
func (dec *Decoder) Literal(ptr *[]byte) bool {
	mark := dec.pos
	var size uint64
	if !dec.Special('{') || !dec.Number64(&size) || !dec.Special('}') || !dec.Keyword("\r\n") {
		dec.pos = mark
		return false
	}
	if size > uint64(len(dec.buf)-dec.pos) {
		err := dec.errorf("字面量长度 %v 超出剩余输入", size)
		dec.pos = mark
		return dec.returnErr(err)
	}
	out := make([]byte, size)
	copy(out, dec.buf[dec.pos:])
	dec.pos += int(size)
	*ptr = out
	return true
}

// String 读取带引号的字符串或字面量。
func (dec *Decoder) String(ptr *[]byte) bool {
	return dec.Quoted(ptr) || dec.Literal(ptr)
}

func (dec *Decoder) ExpectString(ptr *[]byte) bool {
	return dec.expect(dec.String(ptr), "string")
}

// NString 读取 NIL 或字符串。NIL 时 *ptr 被设为 nil。
func (dec *Decoder) NString(ptr *[]byte) bool {
	if dec.NIL() {
		*ptr = nil
		return true
	}
	return dec.String(ptr)
}

func (dec *Decoder) ExpectNString(ptr *[]byte) bool {
	return dec.expect(dec.NString(ptr), "nstring")
}

// List 读取以空格分隔的括号列表，对每个元素调用 f。
// 下一个字节不是 '(' 时返回 isList 为 false。
func (dec *Decoder) List(f func() error) (isList bool, err error) {
	if !dec.Special('(') {
		return false, nil
	}
	if dec.Special(')') {
		return true, nil
	}

	for {
		if err := f(); err != nil {
			return true, err
		}

		if !dec.SP() {
			break
		}
	}

	if !dec.ExpectSpecial(')') {
		return true, dec.Err()
	}

	return true, nil
}

func (dec *Decoder) ExpectList(f func() error) error {
	isList, err := dec.List(f)
	if err != nil {
		return err
	} else if !dec.expect(isList, "(") {
		return dec.Err()
	}
	return nil
}

// ExpectNList 读取 NIL 或括号列表。
func (dec *Decoder) ExpectNList(f func() error) error {
	if dec.NIL() {
		return nil
	}
	return dec.ExpectList(f)
}

// DiscardValue 跳过一个值：NIL、数字、原子、字符串或嵌套列表。
func (dec *Decoder) DiscardValue() bool {
	var s []byte
	if dec.String(&s) {
		return true
	}

	if isList, err := dec.List(func() error {
		if !dec.DiscardValue() {
			return dec.Err()
		}
		return nil
	}); err != nil {
		return false
	} else if isList {
		return true
	}

	if dec.Atom(&s) {
		return true
	}

	return dec.expect(false, "value")
}

// TakeWhile 读取满足 f 的最长字节序列，可以为空。
func (dec *Decoder) TakeWhile(f func(ch byte) bool) []byte {
	var s []byte
	if !dec.Func(&s, f) {
		return dec.buf[dec.pos:dec.pos]
	}
	return s
}

// IsDigit 报告 ch 是否为十进制数字。
func IsDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// IsAtomChar 报告 ch 是否可以出现在原子中。
func IsAtomChar(ch byte) bool {
	switch ch {
	case '(', ')', '{', ' ', '%', '*', '"', '\\', ']':
		return false
	default:
		return ch > 0x1F && ch < 0x7F
	}
}
