// Package imap 解析 IMAP BODYSTRUCTURE 响应并构建可寻址的体结构树。
//
// BODYSTRUCTURE 在 RFC 3501 第 7.4.2 节中定义。
//
// 本包包含体结构树、部分编号路径和相关的公共类型。BODYSTRUCTURE 文本的提取、
// 语法解析和多响应组装分别位于 imapextract、imapparse 和 imapresponse 子包中。
// 这些包都不执行网络 I/O：它们只处理已经从连接中读取的字节。
package imap

import (
	"fmt"
	"strconv"
)

// NumKind 描述 FETCH 命令中的消息编号是序列号还是 UID。
type NumKind int

const (
	NumKindSeq NumKind = 1 + iota // 消息序列号
	NumKindUID                    // 消息 UID
)

// String 实现 fmt.Stringer 接口。
func (kind NumKind) String() string {
	switch kind {
	case NumKindSeq:
		return "seq"
	case NumKindUID:
		return "uid"
	default:
		panic(fmt.Errorf("imap: 未知的编号类型 %v", int(kind)))
	}
}

// UID 是消息的唯一标识符。
type UID uint32

// ParseUID 把响应中的 UID 数字解析为 UID。
func ParseUID(b []byte) (UID, error) {
	num, err := strconv.ParseUint(string(b), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("imap: 无效的 UID %q: %w", b, err)
	}
	return UID(num), nil
}
