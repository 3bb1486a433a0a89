// Package imapresponse 把一段包含多个 FETCH 响应的缓冲区组装成 UID 到体结构树的映射。
package imapresponse

import (
	"bytes"

	"github.com/luhaoyun888/go-imap-bodystructure"
	"github.com/luhaoyun888/go-imap-bodystructure/imapextract"
	"github.com/luhaoyun888/go-imap-bodystructure/imapparse"
)

// Logger 是一个记录错误信息的工具。
type Logger interface {
	Printf(format string, args ...interface{})
}

// Options 包含组装选项。
//
// nil 选项指针等效于零选项值。
type Options struct {
	// AttachHeaders 为 true 时，响应第一行之后的文本（获取到的头部字面量）
	// 通过 SetHeader 附加到体结构树的根节点。
	AttachHeaders bool
	// Logger 用于报告被跳过的响应。如果为 nil，则不记录。
	Logger Logger
}

func (options *Options) logf(format string, args ...interface{}) {
	if options.Logger != nil {
		options.Logger.Printf(format, args...)
	}
}

// FindAllBodyStructureWithUID 解析 buf 中所有的 FETCH 响应，返回以 UID 数字为键的体结构树。
//
// 没有 UID 或 BODYSTRUCTURE 无法解析的响应会被跳过，不影响其他响应。
func FindAllBodyStructureWithUID(buf []byte, options *Options) map[string]imap.Body {
	if options == nil {
		options = &Options{}
	}

	bodies := make(map[string]imap.Body)
	for _, resp := range imapextract.SplitFetchResponses(buf, true) {
		uid := imapextract.FindUID(resp)
		if len(uid) == 0 {
			options.logf("imapresponse: 响应中没有 UID，跳过")
			continue
		}

		text := imapextract.ExtractBodyStructure(resp)
		body, err := imapparse.ParseBodyStructure(text)
		if err != nil {
			options.logf("imapresponse: 跳过 UID %s: %v", uid, err)
			continue
		}

		if options.AttachHeaders {
			body.SetHeader(deleteFirstLine(resp))
		}
		bodies[string(uid)] = body
	}
	return bodies
}

// IsFetchAllBody 报告命令行是否获取整封邮件，调用方据此选择 PopulateFromMessage 或逐个部分的 SetData。
func IsFetchAllBody(line []byte) bool {
	return imapparse.IsFetchAllBody(line)
}

func deleteFirstLine(b []byte) []byte {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return b[i+1:]
	}
	return b
}
