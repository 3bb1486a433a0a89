// Package imapextract 从原始 IMAP 响应字节中提取 BODYSTRUCTURE 文本、UID 和单个 FETCH 响应。
//
// 这里不做完整的语法分析：扫描器按字母串切分输入，只识别 BODYSTRUCTURE 和 UID 两个标记，
// 因此可以容忍 FLAGS、INTERNALDATE、字面量等任意的响应内容。
package imapextract

import (
	"bytes"
)

const (
	bodyStructureToken = "BODYSTRUCTURE"
	uidToken           = "UID"
)

// responseTerminator 结束一个带字面量的 FETCH 响应。
var responseTerminator = []byte("\r\n)\r\n")

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// EqualFold 不区分 ASCII 大小写地比较 a 和 b。
func EqualFold(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if toLower(a[i]) != toLower(b[i]) {
			return false
		}
	}
	return true
}

func toLower(ch byte) byte {
	if ch >= 'A' && ch <= 'Z' {
		return ch + 'a' - 'A'
	}
	return ch
}

// findToken 查找第一个等于 token（不区分大小写）的完整字母串，
// 返回紧跟其后的那个非字母字节的位置。字母串必须由非字母字节结束，否则不算找到。
func findToken(buf []byte, token string) int {
	start := -1
	for i, ch := range buf {
		if isAlpha(ch) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 && EqualFold(buf[start:i], []byte(token)) {
			return i
		}
		start = -1
	}
	return -1
}

// ExtractBodyStructure 返回 buf 中第一个 "BODYSTRUCTURE (...)"，包括平衡的括号。
//
// 返回值总是以大写的 "BODYSTRUCTURE" 开头。标记后第一个非空格字节不是 '(' 时只返回标记本身；
// 找不到标记时返回 nil。
func ExtractBodyStructure(buf []byte) []byte {
	text, _ := nextBodyStructure(buf)
	return text
}

// ExtractBodyStructures 按顺序返回 buf 中所有的 "BODYSTRUCTURE (...)"。
func ExtractBodyStructures(buf []byte) [][]byte {
	var l [][]byte
	for {
		text, n := nextBodyStructure(buf)
		if text == nil {
			return l
		}
		l = append(l, text)
		buf = buf[n:]
	}
}

// nextBodyStructure 返回第一个 BODYSTRUCTURE 文本以及已扫描的字节数。
func nextBodyStructure(buf []byte) (text []byte, n int) {
	delim := findToken(buf, bodyStructureToken)
	if delim < 0 {
		return nil, len(buf)
	}

	i := delim
	for i < len(buf) && buf[i] == ' ' {
		i++
	}
	if i >= len(buf) || buf[i] != '(' {
		return []byte(bodyStructureToken), i
	}

	end := balancedEnd(buf, i)
	text = make([]byte, 0, len(bodyStructureToken)+end-delim)
	text = append(text, bodyStructureToken...)
	text = append(text, buf[delim:end]...)
	return text, end
}

// balancedEnd 从 buf[start] == '(' 开始计数括号深度，返回深度回到零的 ')' 之后的位置。
// 带引号的字符串和字面量中的括号不计数。括号不平衡时返回 len(buf)。
func balancedEnd(buf []byte, start int) int {
	depth := 0
	inQuote, escaped := false, false
	for i := start; i < len(buf); i++ {
		ch := buf[i]
		if inQuote {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inQuote = false
			}
			continue
		}

		switch ch {
		case '"':
			inQuote = true
		case '{':
			if next, ok := skipLiteral(buf, i); ok {
				i = next - 1
			}
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(buf)
}

// skipLiteral 在 buf[i] 处识别 "{n}\r\n"，返回字面量内容之后的位置。
func skipLiteral(buf []byte, i int) (next int, ok bool) {
	j := i + 1
	size := 0
	for j < len(buf) && isDigit(buf[j]) {
		size = size*10 + int(buf[j]-'0')
		if size > len(buf) {
			return 0, false
		}
		j++
	}
	if j == i+1 || !bytes.HasPrefix(buf[j:], []byte("}\r\n")) {
		return 0, false
	}
	j += 3
	if size > len(buf)-j {
		return 0, false
	}
	return j + size, true
}

// FindUID 返回响应中第一个 "UID" 标记之后、下一个空格之前的字节。
//
// 这是尽力而为的扫描：它假设 "UID <数字>" 出现在任何包含 UID 字样的值之前。
// 找不到标记或没有空格结束时返回 nil。
func FindUID(buf []byte) []byte {
	delim := findToken(buf, uidToken)
	if delim < 0 {
		return nil
	}
	rest := buf[delim+1:]
	sp := bytes.IndexByte(rest, ' ')
	if sp <= 0 {
		return nil
	}
	return append([]byte(nil), rest[:sp]...)
}

// ResponseText 返回以 '*' 开头的响应在 '*' 之后、"\r\n)\r\n" 之前的全部文本。
func ResponseText(buf []byte) ([]byte, bool) {
	text, _, ok := splitResponse(buf, true)
	return text, ok
}

// ResponsePayload 与 ResponseText 相同，但去掉第一行（"* n FETCH (..." 及其 CRLF）。
func ResponsePayload(buf []byte) ([]byte, bool) {
	text, _, ok := splitResponse(buf, false)
	return text, ok
}

// SplitFetchResponses 把多个连续的 "* n FETCH (...)\r\n)\r\n" 响应切分开。
//
// includeFirstLine 为 true 时每个块是 '*' 之后到结束符之前的全部文本，否则去掉第一行。
// 遇到第一个不匹配的位置时停止，例如结尾的标记状态响应。返回的切片引用 buf。
func SplitFetchResponses(buf []byte, includeFirstLine bool) [][]byte {
	var l [][]byte
	for {
		text, n, ok := splitResponse(buf, includeFirstLine)
		if !ok {
			return l
		}
		l = append(l, text)
		buf = buf[n:]
	}
}

func splitResponse(buf []byte, includeFirstLine bool) (text []byte, n int, ok bool) {
	if len(buf) == 0 || buf[0] != '*' {
		return nil, 0, false
	}

	start := 1
	if !includeFirstLine {
		eol := bytes.Index(buf[start:], []byte("\r\n"))
		if eol < 0 {
			return nil, 0, false
		}
		start += eol + 2
	}

	end := bytes.Index(buf[start:], responseTerminator)
	if end < 0 {
		return nil, 0, false
	}
	end += start
	return buf[start:end], end + len(responseTerminator), true
}
