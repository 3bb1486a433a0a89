package imapresponse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	gomessage "github.com/emersion/go-message"
	"github.com/emersion/go-message/textproto"

	"github.com/luhaoyun888/go-imap-bodystructure"
)

// PopulateFromMessage 用整封邮件（BODY[] 的内容）填充体结构树的每个叶子。
//
// 各部分按体结构中的顺序与邮件中的 MIME 部分对应，数据保持原始的传输编码。
// 邮件中多出的部分被忽略；缺少的部分保持为空，可以用 Body.AllBodiesWithData 检查。
func PopulateFromMessage(body imap.Body, r io.Reader) error {
	br := bufio.NewReader(r)
	header, err := textproto.ReadHeader(br)
	if err != nil {
		return fmt.Errorf("imapresponse: 读取邮件头失败: %w", err)
	}
	return populatePart(body, body, header, br, nil)
}

func populatePart(root, part imap.Body, header textproto.Header, r io.Reader, path []uint32) error {
	switch part := part.(type) {
	case *imap.SingleBody:
		data, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("imapresponse: 读取部分 %v 失败: %w", formatPath(path), err)
		}
		if len(path) == 0 {
			root.SetData(nil, data)
			return nil
		}
		seq := imap.NewSequence(path[0], path[1:]...)
		if !root.SetData(&seq, data) {
			return fmt.Errorf("imapresponse: 部分 %v 不在体结构中", formatPath(path))
		}
		return nil
	case *imap.MultiBody:
		boundary := string(part.Boundary())
		msgHeader := gomessage.Header{Header: header}
		if mediaType, params, err := msgHeader.ContentType(); err == nil && strings.HasPrefix(mediaType, "multipart/") && params["boundary"] != "" {
			boundary = params["boundary"]
		}
		if boundary == "" {
			return fmt.Errorf("imapresponse: 部分 %v 没有 boundary", formatPath(path))
		}

		mr := textproto.NewMultipartReader(r, boundary)
		for i := range part.Parts {
			p, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				return nil
			} else if err != nil {
				return fmt.Errorf("imapresponse: 读取部分 %v 失败: %w", formatPath(append(path, uint32(i+1))), err)
			}

			partPath := make([]uint32, len(path), len(path)+1)
			copy(partPath, path)
			partPath = append(partPath, uint32(i+1))
			if err := populatePart(root, part.Parts[i], p.Header, p, partPath); err != nil {
				return err
			}
		}
		return nil
	default:
		panic(fmt.Errorf("不支持的体结构类型 %T", part))
	}
}

func formatPath(path []uint32) string {
	if len(path) == 0 {
		return "TEXT"
	}
	seq := imap.NewSequence(path[0], path[1:]...)
	return seq.String()
}
