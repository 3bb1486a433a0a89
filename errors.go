package imap

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedSequence 表示部分编号路径无法解析。
	ErrMalformedSequence = errors.New("imap: 部分编号路径格式错误")
	// ErrGrammarMismatch 表示 BODYSTRUCTURE 文本既不是单部分也不是多部分消息体。
	ErrGrammarMismatch = errors.New("imap: BODYSTRUCTURE 语法不匹配")
)

// SequenceError 是 ParseSequence 返回的错误。
type SequenceError struct {
	Text   string // 原始输入
	Reason string // 失败原因
}

var _ error = (*SequenceError)(nil)

// Error 实现了 error 接口。
func (err *SequenceError) Error() string {
	return fmt.Sprintf("imap: 无法解析部分编号路径 %q: %v", err.Text, err.Reason)
}

// Unwrap 使 errors.Is(err, ErrMalformedSequence) 成立。
func (err *SequenceError) Unwrap() error {
	return ErrMalformedSequence
}
