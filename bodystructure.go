package imap

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/emersion/go-message/textproto"
)

// Body 描述消息的体结构树。
//
// Body 值可以是 *SingleBody 或 *MultiBody。树由 BODYSTRUCTURE 解析器创建，
// 之后随着各个部分的数据到达，通过 SetData 和 SetHeader 原地修改。
// Body 不做任何同步，同一棵树只能由一个获取会话修改。
type Body interface {
	// MediaType 返回小写的 MIME 类型，例如 "text/plain"。
	MediaType() string
	// SetData 把 data 写入 seq 指向的叶子。地址超出范围时返回 false，树保持不变。
	SetData(seq *Sequence, data []byte) bool
	// SetHeader 把原始头部字节追加到该节点的 RawHeader。
	SetHeader(header []byte)
	// Text 返回该节点及其子节点的 MIME 文本。
	Text() []byte
	// AllBodiesWithData 报告是否每个叶子都已经有数据。
	AllBodiesWithData() bool
	// Walk 遍历体结构树，对每个部分调用 f，包括 body 本身。部分按 DFS 前序访问。
	Walk(f BodyWalkFunc)

	writeText(b *bytes.Buffer, nested bool)
}

var (
	_ Body = (*SingleBody)(nil)
	_ Body = (*MultiBody)(nil)
)

// BodyWalkFunc 是 Body.Walk 对每个部分调用的函数。
//
// path 参数包含 IMAP 部分路径。
//
// 函数应返回 true 以访问该部分的子项，或 false 以跳过它们。
type BodyWalkFunc func(path []int, part Body) (walkChildren bool)

// SingleBody 是单部分消息体，也就是树的叶子。
type SingleBody struct {
	ContentType             ContentTypeHeaderField
	ContentID               ContentIDHeaderField
	ContentDescription      ContentDescriptionHeaderField
	ContentTransferEncoding ContentTransferEncodingHeaderField
	ContentSize             ContentSize
	ContentMD5              ContentMD5HeaderField
	ContentDisposition      ContentDispositionHeaderField
	ContentLanguage         ContentLanguageHeaderField
	ContentLocation         ContentLocationHeaderField

	Data      []byte // 获取到的部分内容，保持传输编码
	RawHeader []byte // 原样保留的头部字节
}

func (body *SingleBody) MediaType() string {
	return strings.ToLower(string(body.ContentType.Type.Type)) + "/" + strings.ToLower(string(body.ContentType.Type.Subtype))
}

// SetData 总是写入数据并返回 true。
//
// 路径中剩余的编号会被忽略：比叶子更深的地址会落在该叶子上。
func (body *SingleBody) SetData(seq *Sequence, data []byte) bool {
	body.Data = data
	return true
}

func (body *SingleBody) SetHeader(header []byte) {
	body.RawHeader = append(body.RawHeader, header...)
}

func (body *SingleBody) AllBodiesWithData() bool {
	return len(body.Data) > 0
}

func (body *SingleBody) Walk(f BodyWalkFunc) {
	f([]int{1}, body)
}

// Header 解析 RawHeader。
func (body *SingleBody) Header() (textproto.Header, error) {
	return readRawHeader(body.RawHeader)
}

// Filename 返回部分的文件名（如果有的话），不做 RFC 2047 或 RFC 2231 解码。
func (body *SingleBody) Filename() string {
	filename, ok := body.ContentDisposition.Parameters.Get("filename")
	if !ok || len(filename) == 0 {
		// 注意：在 Content-Type 中使用 "name" 是不建议的
		filename, _ = body.ContentType.Parameters.Get("name")
	}
	return string(filename)
}

// MIMEHeader 返回按固定顺序排列的 MIME 头字段，值为 NIL 的字段被省略。
func (body *SingleBody) MIMEHeader() []byte {
	var b bytes.Buffer
	b.Write(body.ContentType.Text())
	b.Write(body.ContentID.Text())
	b.Write(body.ContentDescription.Text())
	b.Write(body.ContentTransferEncoding.Text())
	b.Write(body.ContentMD5.Text())
	b.Write(body.ContentDisposition.Text())
	b.Write(body.ContentLanguage.Text())
	b.Write(body.ContentLocation.Text())
	return b.Bytes()
}

func (body *SingleBody) Text() []byte {
	var b bytes.Buffer
	body.writeText(&b, false)
	return b.Bytes()
}

func (body *SingleBody) writeText(b *bytes.Buffer, nested bool) {
	b.Write(body.RawHeader)
	b.WriteString("\r\n")
	b.Write(body.MIMEHeader())
	b.WriteString("\r\n")
	b.Write(body.Data)
	b.WriteString("\r\n")
}

// MultiBody 是多部分消息体。
type MultiBody struct {
	Parts       []Body
	ContentType []byte // 多部分子类型，例如 "mixed"
	Parameters  Parameters
	RawHeader   []byte
}

func (body *MultiBody) MediaType() string {
	return "multipart/" + strings.ToLower(string(body.ContentType))
}

// SetData 取出 seq 最前面的编号 k 并下降到第 k 个部分。
// seq 为空、k 为 0 或大于部分数量时返回 false。
func (body *MultiBody) SetData(seq *Sequence, data []byte) bool {
	k, ok := seq.PopFront()
	if !ok || k == 0 || uint64(k) > uint64(len(body.Parts)) {
		return false
	}
	return body.Parts[k-1].SetData(seq, data)
}

func (body *MultiBody) SetHeader(header []byte) {
	body.RawHeader = append(body.RawHeader, header...)
}

func (body *MultiBody) AllBodiesWithData() bool {
	for _, part := range body.Parts {
		if !part.AllBodiesWithData() {
			return false
		}
	}
	return true
}

func (body *MultiBody) Walk(f BodyWalkFunc) {
	body.walk(f, nil)
}

func (body *MultiBody) walk(f BodyWalkFunc, path []int) {
	if !f(path, body) {
		return
	}

	pathBuf := make([]int, len(path))
	copy(pathBuf, path)
	for i, part := range body.Parts {
		num := i + 1
		partPath := append(pathBuf, num)

		switch part := part.(type) {
		case *SingleBody:
			f(partPath, part)
		case *MultiBody:
			part.walk(f, partPath)
		default:
			panic(fmt.Errorf("不支持的体结构类型 %T", part))
		}
	}
}

// Boundary 返回 boundary 参数的值，不存在时返回空。
func (body *MultiBody) Boundary() []byte {
	boundary, _ := body.Parameters.Get("boundary")
	return boundary
}

// Header 解析 RawHeader。
func (body *MultiBody) Header() (textproto.Header, error) {
	return readRawHeader(body.RawHeader)
}

func (body *MultiBody) Text() []byte {
	var b bytes.Buffer
	body.writeText(&b, false)
	return b.Bytes()
}

func (body *MultiBody) writeText(b *bytes.Buffer, nested bool) {
	if nested {
		b.WriteString("\r\n")
	}
	b.Write(body.RawHeader)
	b.WriteString("Content-Type: multipart/")
	b.Write(body.ContentType)
	body.Parameters.writeTo(b)
	b.WriteString("\r\n")

	boundary := body.Boundary()
	for _, part := range body.Parts {
		b.WriteString("\r\n--")
		b.Write(boundary)
		part.writeText(b, true)
	}
	b.WriteString("\r\n--")
	b.Write(boundary)
	b.WriteString("\r\n")
}

func readRawHeader(raw []byte) (textproto.Header, error) {
	if !bytes.HasSuffix(raw, []byte("\r\n\r\n")) && !bytes.HasSuffix(raw, []byte("\n\n")) {
		raw = append(append([]byte(nil), raw...), "\r\n\r\n"...)
	}
	br := bufio.NewReader(bytes.NewReader(raw))
	return textproto.ReadHeader(br)
}
