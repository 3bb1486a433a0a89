package imap

// UIDFetch 描述一条获取单个部分的 FETCH 命令，例如：
//
//	a5 UID FETCH 303416 BODY.PEEK[1.1]
//
// 调用方用它把随后读取到的字面量数据与 (UID, Sequence) 对应起来，
// 再通过 Body.SetData 写入体结构树。
type UIDFetch struct {
	UID      []byte   // 命令中的消息编号，保持原始数字
	Kind     NumKind  // 使用 "UID FETCH" 时为 NumKindUID，否则为 NumKindSeq
	Peek     bool     // 是否使用 BODY.PEEK
	Sequence Sequence // 部分编号路径
}

// Number 把 UID 字段解析为数字。
func (fetch *UIDFetch) Number() (UID, error) {
	return ParseUID(fetch.UID)
}
