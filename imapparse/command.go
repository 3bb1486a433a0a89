package imapparse

import (
	"fmt"

	"github.com/luhaoyun888/go-imap-bodystructure"
	"github.com/luhaoyun888/go-imap-bodystructure/internal/imapwire"
)

// readFetchBodyCommand 解析 "<tag> [UID] FETCH <num> BODY[.PEEK]"，停在 '[' 之前。
func readFetchBodyCommand(dec *imapwire.Decoder, fetch *imap.UIDFetch) bool {
	var tag []byte
	if !dec.ExpectAtom(&tag) || !dec.ExpectSP() {
		return false
	}

	fetch.Kind = imap.NumKindSeq
	if dec.Keyword("UID ") {
		fetch.Kind = imap.NumKindUID
	}

	if !dec.ExpectKeyword("FETCH") || !dec.ExpectSP() || !dec.ExpectDigits(&fetch.UID) || !dec.ExpectSP() || !dec.ExpectKeyword("BODY") {
		return false
	}
	fetch.Peek = dec.Keyword(".PEEK")
	return true
}

// ParseUIDFetch 解析获取单个部分的命令行，例如 "a5 UID FETCH 303416 BODY.PEEK[1.1]"。
//
// 关键字不区分大小写，".PEEK" 和 "UID" 都是可选的。部分说明必须是非空的部分编号路径；
// 获取整封邮件的 "BODY[]" 由 IsFetchAllBody 识别。']' 之后的内容被忽略。
func ParseUIDFetch(line []byte) (*imap.UIDFetch, error) {
	dec := imapwire.NewDecoder(line)

	var fetch imap.UIDFetch
	if !readFetchBodyCommand(dec, &fetch) || !dec.ExpectSpecial('[') {
		return nil, fmt.Errorf("imapparse: 无效的 FETCH 命令: %w", dec.Err())
	}

	section := dec.TakeWhile(func(ch byte) bool {
		return imapwire.IsDigit(ch) || ch == '.'
	})
	if !dec.ExpectSpecial(']') {
		return nil, fmt.Errorf("imapparse: 无效的部分说明: %w", dec.Err())
	}

	seq, err := imap.ParseSequence(section)
	if err != nil {
		return nil, err
	}
	fetch.UID = append([]byte(nil), fetch.UID...)
	fetch.Sequence = seq
	return &fetch, nil
}

// IsFetchAllBody 报告 line 是否为获取整封邮件的命令，形如 "<tag> [UID] FETCH <n> BODY[.PEEK][]"。
func IsFetchAllBody(line []byte) bool {
	dec := imapwire.NewDecoder(line)
	var fetch imap.UIDFetch
	return readFetchBodyCommand(dec, &fetch) && dec.Keyword("[]")
}
