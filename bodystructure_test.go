package imap_test

import (
	"bufio"
	"bytes"
	"reflect"
	"testing"

	gomessage "github.com/emersion/go-message"
	"github.com/emersion/go-message/textproto"

	"github.com/luhaoyun888/go-imap-bodystructure"
)

func newTextPart(subtype string) *imap.SingleBody {
	return &imap.SingleBody{
		ContentType: imap.ContentTypeHeaderField{
			Type: imap.ContentTypeTypeAndSubType{Type: []byte("TEXT"), Subtype: []byte(subtype)},
			Parameters: imap.Parameters{List: []imap.Parameter{
				{Attribute: []byte("charset"), Value: []byte("utf-8")},
			}},
		},
		ContentTransferEncoding: imap.ContentTransferEncodingHeaderField{Value: []byte("base64")},
	}
}

func newMultipart(subtype, boundary string, parts ...imap.Body) *imap.MultiBody {
	return &imap.MultiBody{
		Parts:       parts,
		ContentType: []byte(subtype),
		Parameters: imap.Parameters{List: []imap.Parameter{
			{Attribute: []byte("boundary"), Value: []byte(boundary)},
		}},
	}
}

// newNestedTree 返回 mixed -> related -> text/html 的三层树。
func newNestedTree() (*imap.MultiBody, *imap.SingleBody) {
	html := newTextPart("HTML")
	return newMultipart("MIXED", "outer", newMultipart("RELATED", "inner", html)), html
}

func mustParseSequence(t *testing.T, s string) *imap.Sequence {
	t.Helper()
	seq, err := imap.ParseSequence([]byte(s))
	if err != nil {
		t.Fatalf("ParseSequence(%q) = %v", s, err)
	}
	return &seq
}

func TestBody_SetData(t *testing.T) {
	tests := []struct {
		name string
		seq  string
		ok   bool
	}{
		{"叶子", "1.1", true},
		{"第二层越界", "1.3", false},
		{"第一层越界", "2", false},
		{"零编号", "0", false},
		{"路径在多部分节点结束", "1", false},
		{"比叶子更深", "1.1.5", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			root, html := newNestedTree()
			data := []byte("PGh0bWw+")
			if ok := root.SetData(mustParseSequence(t, tc.seq), data); ok != tc.ok {
				t.Fatalf("SetData(%v) = %v, want %v", tc.seq, ok, tc.ok)
			}
			if tc.ok && !bytes.Equal(html.Data, data) {
				t.Errorf("Data = %q, want %q", html.Data, data)
			}
			if !tc.ok && html.Data != nil {
				t.Errorf("SetData 失败后树被修改: Data = %q", html.Data)
			}
		})
	}
}

func TestSingleBody_SetData(t *testing.T) {
	body := newTextPart("PLAIN")
	if !body.SetData(nil, []byte("a")) {
		t.Fatalf("SetData(nil) = false")
	}
	if !body.SetData(mustParseSequence(t, "7.3"), []byte("b")) {
		t.Fatalf("SetData(7.3) = false")
	}
	if string(body.Data) != "b" {
		t.Errorf("Data = %q, want %q", body.Data, "b")
	}
}

func TestBody_AllBodiesWithData(t *testing.T) {
	plain, html := newTextPart("PLAIN"), newTextPart("HTML")
	root := newMultipart("ALTERNATIVE", "b", plain, html)

	if root.AllBodiesWithData() {
		t.Fatalf("空树的 AllBodiesWithData() = true")
	}
	root.SetData(mustParseSequence(t, "1"), []byte("x"))
	if root.AllBodiesWithData() {
		t.Fatalf("只填充了一个部分，AllBodiesWithData() = true")
	}
	root.SetData(mustParseSequence(t, "2"), []byte("y"))
	for i := 0; i < 2; i++ {
		if !root.AllBodiesWithData() {
			t.Fatalf("第 %v 次调用 AllBodiesWithData() = false", i+1)
		}
	}

	// 空数据不算已填充
	root.SetData(mustParseSequence(t, "2"), []byte{})
	if root.AllBodiesWithData() {
		t.Errorf("空数据 AllBodiesWithData() = true")
	}
}

func TestSingleBody_Text(t *testing.T) {
	body := newTextPart("HTML")
	body.ContentSize = imap.ContentSize{}
	body.SetData(nil, []byte("PGh0bWw+"))

	want := "\r\n" +
		"Content-Type: TEXT/HTML;\r\n" +
		"        charset=\"utf-8\"\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		"PGh0bWw+" +
		"\r\n"
	if got := string(body.Text()); got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}

	body.SetHeader([]byte("Subject: hi\r\n"))
	if got := string(body.Text()); got != "Subject: hi\r\n"+want {
		t.Errorf("Text() = %q, want %q", got, "Subject: hi\r\n"+want)
	}
}

func TestSingleBody_MIMEHeader(t *testing.T) {
	body := &imap.SingleBody{
		ContentType: imap.ContentTypeHeaderField{
			Type: imap.ContentTypeTypeAndSubType{Type: []byte("application"), Subtype: []byte("pdf")},
		},
		ContentID:               imap.ContentIDHeaderField{Value: []byte("<a@b>")},
		ContentDescription:      imap.ContentDescriptionHeaderField{Value: []byte("report")},
		ContentTransferEncoding: imap.ContentTransferEncodingHeaderField{Value: []byte("base64")},
		ContentMD5:              imap.ContentMD5HeaderField{Value: []byte("abc")},
		ContentDisposition: imap.ContentDispositionHeaderField{
			Value: []byte("attachment"),
			Parameters: imap.Parameters{List: []imap.Parameter{
				{Attribute: []byte("filename"), Value: []byte("report.pdf")},
				{Attribute: []byte("size"), Value: []byte("10")},
			}},
		},
		ContentLanguage: imap.ContentLanguageHeaderField{Value: []byte("en, fr")},
		ContentLocation: imap.ContentLocationHeaderField{Value: []byte("http://example.org/r.pdf")},
	}

	want := "Content-Type: application/pdf\r\n" +
		"Content-ID: <a@b>\r\n" +
		"Content-Description: report\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"Content-MD5: abc\r\n" +
		"Content-Disposition: attachment;\r\n" +
		"        filename=\"report.pdf\";\r\n" +
		"        size=\"10\"\r\n" +
		"Content-Language: en, fr\r\n" +
		"Content-Location: http://example.org/r.pdf\r\n"
	if got := string(body.MIMEHeader()); got != want {
		t.Errorf("MIMEHeader() = %q, want %q", got, want)
	}
	if got := body.Filename(); got != "report.pdf" {
		t.Errorf("Filename() = %q, want %q", got, "report.pdf")
	}
	if got := body.MediaType(); got != "application/pdf" {
		t.Errorf("MediaType() = %q", got)
	}

	// MIMEHeader 可以被 go-message 读回
	br := bufio.NewReader(bytes.NewReader(append(body.MIMEHeader(), "\r\n"...)))
	h, err := textproto.ReadHeader(br)
	if err != nil {
		t.Fatalf("ReadHeader() = %v", err)
	}
	msgHeader := gomessage.Header{Header: h}
	disp, params, err := msgHeader.ContentDisposition()
	if err != nil {
		t.Fatalf("ContentDisposition() = %v", err)
	}
	if disp != "attachment" || params["filename"] != "report.pdf" || params["size"] != "10" {
		t.Errorf("ContentDisposition() = %v, %v", disp, params)
	}
}

func TestSingleBody_Filename(t *testing.T) {
	body := &imap.SingleBody{
		ContentType: imap.ContentTypeHeaderField{
			Type: imap.ContentTypeTypeAndSubType{Type: []byte("image"), Subtype: []byte("png")},
			Parameters: imap.Parameters{List: []imap.Parameter{
				{Attribute: []byte("NAME"), Value: []byte("logo.png")},
			}},
		},
	}
	if got := body.Filename(); got != "logo.png" {
		t.Errorf("Filename() = %q, want %q", got, "logo.png")
	}
}

func TestMultiBody_Text(t *testing.T) {
	part := newTextPart("HTML")
	part.SetData(nil, []byte("PGh0bWw+"))
	root := newMultipart("mixed", "===X==", part)

	single := "\r\n" +
		"Content-Type: TEXT/HTML;\r\n" +
		"        charset=\"utf-8\"\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		"PGh0bWw+\r\n"
	want := "Content-Type: multipart/mixed;\r\n" +
		"        boundary=\"===X==\"\r\n" +
		"\r\n--===X==" + single +
		"\r\n--===X==\r\n"
	if got := string(root.Text()); got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}

	br := bufio.NewReader(bytes.NewReader(root.Text()))
	h, err := textproto.ReadHeader(br)
	if err != nil {
		t.Fatalf("ReadHeader() = %v", err)
	}
	msgHeader := gomessage.Header{Header: h}
	mediaType, params, err := msgHeader.ContentType()
	if err != nil {
		t.Fatalf("ContentType() = %v", err)
	}
	if mediaType != "multipart/mixed" || params["boundary"] != "===X==" {
		t.Errorf("ContentType() = %v, %v", mediaType, params)
	}
}

func TestMultiBody_Text_nested(t *testing.T) {
	root, _ := newNestedTree()
	root.SetData(mustParseSequence(t, "1.1"), []byte("x"))

	want := "Content-Type: multipart/MIXED;\r\n" +
		"        boundary=\"outer\"\r\n" +
		"\r\n--outer" +
		"\r\n" +
		"Content-Type: multipart/RELATED;\r\n" +
		"        boundary=\"inner\"\r\n" +
		"\r\n--inner" +
		"\r\n" +
		"Content-Type: TEXT/HTML;\r\n" +
		"        charset=\"utf-8\"\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		"x\r\n" +
		"\r\n--inner\r\n" +
		"\r\n--outer\r\n"
	if got := string(root.Text()); got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

func TestMultiBody_Header(t *testing.T) {
	root, _ := newNestedTree()
	root.SetHeader([]byte("Subject: hello\r\n"))
	root.SetHeader([]byte("From: a@example.org\r\n"))

	h, err := root.Header()
	if err != nil {
		t.Fatalf("Header() = %v", err)
	}
	if got := h.Get("Subject"); got != "hello" {
		t.Errorf("Subject = %q", got)
	}
	if got := h.Get("From"); got != "a@example.org" {
		t.Errorf("From = %q", got)
	}
	if got := root.MediaType(); got != "multipart/mixed" {
		t.Errorf("MediaType() = %q", got)
	}
}

func TestBody_Walk(t *testing.T) {
	plain, png := newTextPart("PLAIN"), newTextPart("PNG")
	alt := newMultipart("ALTERNATIVE", "b1", plain, newTextPart("HTML"))
	root := newMultipart("MIXED", "b0", alt, png)

	var paths [][]int
	var types []string
	root.Walk(func(path []int, part imap.Body) bool {
		paths = append(paths, path)
		types = append(types, part.MediaType())
		return true
	})
	wantPaths := [][]int{nil, {1}, {1, 1}, {1, 2}, {2}}
	wantTypes := []string{"multipart/mixed", "multipart/alternative", "text/plain", "text/html", "text/png"}
	if !reflect.DeepEqual(paths, wantPaths) {
		t.Errorf("Walk() 路径 = %v, want %v", paths, wantPaths)
	}
	if !reflect.DeepEqual(types, wantTypes) {
		t.Errorf("Walk() 类型 = %v, want %v", types, wantTypes)
	}

	// 返回 false 跳过子项
	paths = nil
	root.Walk(func(path []int, part imap.Body) bool {
		paths = append(paths, path)
		return len(path) == 0
	})
	if wantPaths := [][]int{nil, {1}, {2}}; !reflect.DeepEqual(paths, wantPaths) {
		t.Errorf("Walk() 路径 = %v, want %v", paths, wantPaths)
	}

	paths = nil
	plain.Walk(func(path []int, part imap.Body) bool {
		paths = append(paths, path)
		return true
	})
	if wantPaths := [][]int{{1}}; !reflect.DeepEqual(paths, wantPaths) {
		t.Errorf("SingleBody.Walk() 路径 = %v, want %v", paths, wantPaths)
	}
}
