// Package imapparse 解析 BODYSTRUCTURE 文本和单部分 FETCH 命令。
package imapparse

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/luhaoyun888/go-imap-bodystructure"
	"github.com/luhaoyun888/go-imap-bodystructure/internal/imapwire"
)

const bodyStructureToken = "BODYSTRUCTURE"

var defaultEncoding = []byte("7BIT")

// ParseError 是 BODYSTRUCTURE 语法不匹配时返回的错误。
type ParseError struct {
	Offset  int    // 出错的位置
	Context string // 出错时正在解析的语法元素
	Err     error
}

var _ error = (*ParseError)(nil)

// Error 实现了 error 接口。
func (err *ParseError) Error() string {
	return fmt.Sprintf("imapparse: 在 %v（偏移 %v）: %v", err.Context, err.Offset, err.Err)
}

// Unwrap 返回底层错误。
func (err *ParseError) Unwrap() error {
	return err.Err
}

// Is 使 errors.Is(err, imap.ErrGrammarMismatch) 成立。
func (err *ParseError) Is(target error) bool {
	return target == imap.ErrGrammarMismatch
}

// HeadBodyStructure 去掉开头的 "BODYSTRUCTURE" 和其后的一个或多个空格，返回括号中的体结构文本。
func HeadBodyStructure(text []byte) ([]byte, error) {
	dec := imapwire.NewDecoder(text)
	if !dec.ExpectKeyword(bodyStructureToken) || !dec.ExpectSP() {
		return nil, &ParseError{Offset: dec.Offset(), Context: "BODYSTRUCTURE", Err: dec.Err()}
	}
	for dec.SP() {
	}
	return dec.Rest(), nil
}

// ParseBodyStructure 解析以 "BODYSTRUCTURE " 开头的文本，例如 imapextract.ExtractBodyStructure 的结果。
func ParseBodyStructure(text []byte) (imap.Body, error) {
	rest, err := HeadBodyStructure(text)
	if err != nil {
		return nil, err
	}
	return ParseBody(rest)
}

// ParseBody 解析一个括号中的体结构，例如：
//
//	("TEXT" "PLAIN" ("CHARSET" "utf-8") NIL NIL "8BIT" 393 9 NIL NIL NIL)
//
// 体结构之后的剩余输入被忽略。
func ParseBody(text []byte) (imap.Body, error) {
	return ReadBody(imapwire.NewDecoder(text))
}

// ReadBody 从 dec 读取一个体结构。
//
// 先尝试单部分语法；失败时游标回到起点，再尝试多部分语法。
func ReadBody(dec *imapwire.Decoder) (imap.Body, error) {
	mark := dec.Mark()

	single, singleErr := readBodyType1part(dec)
	if singleErr == nil {
		return single, nil
	}

	dec.Reset(mark)
	multi, multiErr := readBodyTypeMpart(dec)
	if multiErr == nil {
		return multi, nil
	}

	// 报告走得更远的那个分支
	if offsetOf(singleErr) > offsetOf(multiErr) {
		return nil, singleErr
	}
	return nil, multiErr
}

func offsetOf(err error) int {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Offset
	}
	return -1
}

func newParseError(dec *imapwire.Decoder, context string, err error) error {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return err
	}
	if err == nil {
		err = dec.Err()
	}
	if err == nil {
		err = imap.ErrGrammarMismatch
	}
	offset := dec.Offset()
	var syntaxErr *imapwire.SyntaxError
	if errors.As(err, &syntaxErr) {
		offset = syntaxErr.Offset
	}
	return &ParseError{Offset: offset, Context: context, Err: err}
}

// readBodyType1part 解析单部分消息体结构。
func readBodyType1part(dec *imapwire.Decoder) (*imap.SingleBody, error) {
	const context = "单部分消息体类型"

	if !dec.ExpectSpecial('(') {
		return nil, newParseError(dec, context, nil)
	}

	var body imap.SingleBody
	if !dec.ExpectString(&body.ContentType.Type.Type) || !dec.ExpectSP() || !dec.ExpectString(&body.ContentType.Type.Subtype) || !dec.ExpectSP() {
		return nil, newParseError(dec, context, nil)
	}

	var err error
	body.ContentType.Parameters, err = readBodyFldParam(dec)
	if err != nil {
		return nil, newParseError(dec, "body-fld-param", err)
	}

	if !dec.ExpectSP() || !dec.ExpectNString(&body.ContentID.Value) ||
		!dec.ExpectSP() || !dec.ExpectNString(&body.ContentDescription.Value) ||
		!dec.ExpectSP() || !dec.ExpectNString(&body.ContentTransferEncoding.Value) ||
		!dec.ExpectSP() {
		return nil, newParseError(dec, context, nil)
	}

	// 默认编码设置为 7BIT，如果为 NIL
	if body.ContentTransferEncoding.Value == nil {
		body.ContentTransferEncoding.Value = append([]byte(nil), defaultEncoding...)
	}

	body.ContentSize, err = readContentSize(dec)
	if err != nil {
		return nil, newParseError(dec, "body-fld-octets", err)
	}

	if isMessageRFC822(&body) {
		// 信封和内嵌体结构不建模，只跳过
		if dec.SP() {
			if !dec.DiscardValue() || !dec.ExpectSP() || !dec.DiscardValue() || !dec.ExpectSP() {
				return nil, newParseError(dec, "message/rfc822", nil)
			}
			var lines uint64
			if !dec.ExpectNumber64(&lines) {
				return nil, newParseError(dec, "message/rfc822", nil)
			}
			body.ContentSize.Lines = &lines
		}
	}

	if err := readBodyExt1part(dec, &body); err != nil {
		return nil, newParseError(dec, "body-ext-1part", err)
	}

	if !dec.ExpectSpecial(')') {
		return nil, newParseError(dec, context, nil)
	}

	return &body, nil
}

func isMessageRFC822(body *imap.SingleBody) bool {
	t := body.ContentType.Type
	return bytes.EqualFold(t.Type, []byte("message")) &&
		(bytes.EqualFold(t.Subtype, []byte("rfc822")) || bytes.EqualFold(t.Subtype, []byte("global")))
}

// readContentSize 解析 "octets [SP lines]" 或 NIL。
func readContentSize(dec *imapwire.Decoder) (imap.ContentSize, error) {
	var size imap.ContentSize
	if dec.NIL() {
		return size, nil
	}

	var octets uint64
	if !dec.ExpectNumber64(&octets) {
		return size, dec.Err()
	}
	size.Octets = &octets

	mark := dec.Mark()
	var lines uint64
	if dec.SP() && dec.Number64(&lines) {
		size.Lines = &lines
	} else {
		dec.Reset(mark)
	}
	return size, nil
}

// readBodyExt1part 解析单部分消息体的扩展字段。所有字段都是可选的。
func readBodyExt1part(dec *imapwire.Decoder, body *imap.SingleBody) error {
	if !dec.SP() {
		return nil
	}
	if !dec.ExpectNString(&body.ContentMD5.Value) {
		return dec.Err()
	}

	if !dec.SP() {
		return nil
	}
	var err error
	body.ContentDisposition, err = readBodyFldDsp(dec)
	if err != nil {
		return fmt.Errorf("在 body-fld-dsp 中: %w", err)
	}

	if !dec.SP() {
		return nil
	}
	body.ContentLanguage.Value, err = readBodyFldLang(dec)
	if err != nil {
		return fmt.Errorf("在 body-fld-lang 中: %w", err)
	}

	if !dec.SP() {
		return nil
	}
	if !dec.ExpectNString(&body.ContentLocation.Value) {
		return dec.Err()
	}

	return discardBodyExtension(dec)
}

// discardBodyExtension 跳过 location 之后的扩展数据。
func discardBodyExtension(dec *imapwire.Decoder) error {
	for dec.SP() {
		if !dec.DiscardValue() {
			return dec.Err()
		}
	}
	return nil
}

// readBodyTypeMpart 解析多部分消息体结构。
func readBodyTypeMpart(dec *imapwire.Decoder) (*imap.MultiBody, error) {
	const context = "多部分消息体类型"

	if !dec.ExpectSpecial('(') {
		return nil, newParseError(dec, context, nil)
	}

	var body imap.MultiBody
	for {
		// 读取单个体结构
		child, err := ReadBody(dec)
		if err != nil {
			return nil, err
		}
		body.Parts = append(body.Parts, child)

		// 部分之间可以没有空格
		hasSP := dec.SP()
		if dec.PeekSpecial('(') {
			continue
		}
		if !hasSP {
			dec.ExpectSP()
			return nil, newParseError(dec, context, nil)
		}
		break
	}

	if !dec.ExpectString(&body.ContentType) {
		return nil, newParseError(dec, context, nil)
	}

	if err := readBodyExtMpart(dec, &body); err != nil {
		return nil, newParseError(dec, "body-ext-mpart", err)
	}

	if !dec.ExpectSpecial(')') {
		return nil, newParseError(dec, context, nil)
	}

	return &body, nil
}

// readBodyExtMpart 解析多部分消息体的扩展字段。
// 只保留参数；disposition、language 和 location 被解析后丢弃。
func readBodyExtMpart(dec *imapwire.Decoder, body *imap.MultiBody) error {
	if !dec.SP() {
		return nil
	}
	var err error
	body.Parameters, err = readBodyFldParam(dec)
	if err != nil {
		return fmt.Errorf("在 body-fld-param 中: %w", err)
	}

	if !dec.SP() {
		return nil
	}
	if _, err := readBodyFldDsp(dec); err != nil {
		return fmt.Errorf("在 body-fld-dsp 中: %w", err)
	}

	if !dec.SP() {
		return nil
	}
	if _, err := readBodyFldLang(dec); err != nil {
		return fmt.Errorf("在 body-fld-lang 中: %w", err)
	}

	if !dec.SP() {
		return nil
	}
	var location []byte
	if !dec.ExpectNString(&location) {
		return dec.Err()
	}

	return discardBodyExtension(dec)
}

// readBodyFldDsp 解析 "(" string SP body-fld-param ")" 或 NIL。
func readBodyFldDsp(dec *imapwire.Decoder) (imap.ContentDispositionHeaderField, error) {
	var disp imap.ContentDispositionHeaderField
	if !dec.Special('(') {
		if !dec.ExpectNIL() {
			return disp, dec.Err()
		}
		return disp, nil
	}

	if !dec.ExpectString(&disp.Value) || !dec.ExpectSP() {
		return disp, dec.Err()
	}

	var err error
	disp.Parameters, err = readBodyFldParam(dec)
	if err != nil {
		return disp, err
	}
	if !dec.ExpectSpecial(')') {
		return disp, dec.Err()
	}
	return disp, nil
}

// readBodyFldParam 解析参数列表或 NIL。
func readBodyFldParam(dec *imapwire.Decoder) (imap.Parameters, error) {
	var (
		params imap.Parameters
		k      []byte
		hasKey bool
	)
	err := dec.ExpectNList(func() error {
		var s []byte
		if !dec.ExpectString(&s) {
			return dec.Err()
		}

		if !hasKey {
			k, hasKey = s, true
		} else {
			params.List = append(params.List, imap.Parameter{Attribute: k, Value: s})
			k, hasKey = nil, false
		}
		return nil
	})
	if err != nil {
		return params, err
	} else if hasKey {
		return params, fmt.Errorf("参数 %q 有键但无值", k)
	}
	return params, nil
}

// readBodyFldLang 解析语言字段：NIL、字符串或字符串列表。列表各项以 ", " 连接。
func readBodyFldLang(dec *imapwire.Decoder) ([]byte, error) {
	var l [][]byte
	isList, err := dec.List(func() error {
		var s []byte
		if !dec.ExpectString(&s) {
			return dec.Err()
		}
		l = append(l, s)
		return nil
	})
	if err != nil {
		return nil, err
	} else if isList {
		if len(l) == 0 {
			return nil, nil
		}
		return bytes.Join(l, []byte(", ")), nil
	}

	var s []byte
	if !dec.ExpectNString(&s) {
		return nil, dec.Err()
	}
	return s, nil
}
