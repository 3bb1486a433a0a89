package imap

import (
	"bytes"
	"strings"
)

// paramIndent 是参数续行的缩进。
const paramIndent = "        "

// Parameter 是 Content-Type 或 Content-Disposition 的一个参数。
type Parameter struct {
	Attribute []byte
	Value     []byte
}

// Text 返回 attribute="value" 形式的参数文本。
func (param Parameter) Text() []byte {
	b := make([]byte, 0, len(param.Attribute)+len(param.Value)+3)
	b = append(b, param.Attribute...)
	b = append(b, '=', '"')
	b = append(b, param.Value...)
	b = append(b, '"')
	return b
}

// Parameters 是按出现顺序排列的参数列表。重复的属性会被保留。
type Parameters struct {
	List []Parameter
}

// Get 返回第一个属性名（不区分大小写）等于 attr 的参数值。
func (params Parameters) Get(attr string) (value []byte, ok bool) {
	for _, param := range params.List {
		if strings.EqualFold(string(param.Attribute), attr) {
			return param.Value, true
		}
	}
	return nil, false
}

func (params Parameters) writeTo(b *bytes.Buffer) {
	for _, param := range params.List {
		b.WriteString(";\r\n")
		b.WriteString(paramIndent)
		b.Write(param.Text())
	}
}

// ContentTypeTypeAndSubType 是媒体类型和子类型，保留服务器发送的大小写。
type ContentTypeTypeAndSubType struct {
	Type    []byte
	Subtype []byte
}

// Text 返回 "type/subtype"。
func (t ContentTypeTypeAndSubType) Text() []byte {
	b := make([]byte, 0, len(t.Type)+len(t.Subtype)+1)
	b = append(b, t.Type...)
	b = append(b, '/')
	b = append(b, t.Subtype...)
	return b
}

// ContentTypeHeaderField 是 Content-Type 头字段。
type ContentTypeHeaderField struct {
	Type       ContentTypeTypeAndSubType
	Parameters Parameters
}

// Text 返回 Content-Type 头字段，每个参数单独占一行。
func (f ContentTypeHeaderField) Text() []byte {
	var b bytes.Buffer
	b.WriteString("Content-Type: ")
	b.Write(f.Type.Text())
	f.Parameters.writeTo(&b)
	b.WriteString("\r\n")
	return b.Bytes()
}

// ContentIDHeaderField 是 Content-ID 头字段（RFC 2045）。Value 为 nil 表示 NIL。
type ContentIDHeaderField struct {
	Value []byte
}

// Text 返回头字段文本，字段不存在时返回 nil。
func (f ContentIDHeaderField) Text() []byte {
	return optionalField("Content-ID", f.Value)
}

// ContentDescriptionHeaderField 是 Content-Description 头字段。值保持原样，不做 RFC 2047 解码。
type ContentDescriptionHeaderField struct {
	Value []byte
}

// Text 返回头字段文本，字段不存在时返回 nil。
func (f ContentDescriptionHeaderField) Text() []byte {
	return optionalField("Content-Description", f.Value)
}

// ContentTransferEncodingHeaderField 是 Content-Transfer-Encoding 头字段。
type ContentTransferEncodingHeaderField struct {
	Value []byte
}

// Text 返回头字段文本。
func (f ContentTransferEncodingHeaderField) Text() []byte {
	return field("Content-Transfer-Encoding", f.Value)
}

// ContentMD5HeaderField 是 Content-MD5 头字段。
type ContentMD5HeaderField struct {
	Value []byte
}

// Text 返回头字段文本，字段不存在时返回 nil。
func (f ContentMD5HeaderField) Text() []byte {
	return optionalField("Content-MD5", f.Value)
}

// ContentDispositionHeaderField 是 Content-Disposition 头字段。
//
// NIL 被解析为 Value 为 nil 且参数列表为空。
type ContentDispositionHeaderField struct {
	Value      []byte
	Parameters Parameters
}

// Text 返回头字段文本，Value 为 nil 时返回 nil。
func (f ContentDispositionHeaderField) Text() []byte {
	if f.Value == nil {
		return nil
	}
	var b bytes.Buffer
	b.WriteString("Content-Disposition: ")
	b.Write(f.Value)
	f.Parameters.writeTo(&b)
	b.WriteString("\r\n")
	return b.Bytes()
}

// ContentLanguageHeaderField 是 Content-Language 头字段。
// 服务器发送语言列表时，各项以 ", " 连接。
type ContentLanguageHeaderField struct {
	Value []byte
}

// Text 返回头字段文本，字段不存在时返回 nil。
func (f ContentLanguageHeaderField) Text() []byte {
	return optionalField("Content-Language", f.Value)
}

// ContentLocationHeaderField 是 Content-Location 头字段。
type ContentLocationHeaderField struct {
	Value []byte
}

// Text 返回头字段文本，字段不存在时返回 nil。
func (f ContentLocationHeaderField) Text() []byte {
	return optionalField("Content-Location", f.Value)
}

// ContentSize 是 BODYSTRUCTURE 中的大小字段。
//
// 非文本类型只有 Octets；文本类型还带有 Lines。NIL 时两者都为 nil。
type ContentSize struct {
	Octets *uint64 // 字节数
	Lines  *uint64 // 行数，仅文本类型
}

func field(name string, value []byte) []byte {
	b := make([]byte, 0, len(name)+len(value)+4)
	b = append(b, name...)
	b = append(b, ':', ' ')
	b = append(b, value...)
	b = append(b, '\r', '\n')
	return b
}

func optionalField(name string, value []byte) []byte {
	if value == nil {
		return nil
	}
	return field(name, value)
}
