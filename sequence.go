package imap

import (
	"strconv"
	"strings"
)

// Sequence 是 IMAP 的部分编号路径，例如 "1.2.10"。
//
// 编号从 1 开始。沿着体结构树向下查找时，每下降一层就从前面取出一个编号。
// Sequence 的零值是空路径，只有 ParseSequence 和 NewSequence 能构造出非空路径。
type Sequence struct {
	nums []uint32 // 完整路径，构造后不再修改
	pos  int      // 下一个要取出的编号的位置
}

// NewSequence 使用给定的编号创建路径。
func NewSequence(first uint32, rest ...uint32) Sequence {
	nums := make([]uint32, 0, 1+len(rest))
	nums = append(nums, first)
	nums = append(nums, rest...)
	return Sequence{nums: nums}
}

// ParseSequence 解析以点分隔的十进制部分编号，例如 "1.1"。
//
// 任何一段不是无符号十进制数，或者输入为空时，返回 *SequenceError。
func ParseSequence(b []byte) (Sequence, error) {
	if len(b) == 0 {
		return Sequence{}, &SequenceError{Text: string(b), Reason: "路径为空"}
	}

	segments := strings.Split(string(b), ".")
	nums := make([]uint32, 0, len(segments))
	for _, seg := range segments {
		if seg == "" || !isDigits(seg) {
			return Sequence{}, &SequenceError{Text: string(b), Reason: strconv.Quote(seg) + " 不是数字"}
		}
		num, err := strconv.ParseUint(seg, 10, 32)
		if err != nil {
			return Sequence{}, &SequenceError{Text: string(b), Reason: err.Error()}
		}
		nums = append(nums, uint32(num))
	}
	return Sequence{nums: nums}, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// PopFront 取出路径最前面的编号。路径为空时 ok 为 false。
func (seq *Sequence) PopFront() (num uint32, ok bool) {
	if seq == nil || seq.pos >= len(seq.nums) {
		return 0, false
	}
	num = seq.nums[seq.pos]
	seq.pos++
	return num, true
}

// IsEmpty 报告路径中是否还有剩余的编号。
func (seq *Sequence) IsEmpty() bool {
	return seq.Len() == 0
}

// Len 返回剩余编号的数量。
func (seq *Sequence) Len() int {
	if seq == nil {
		return 0
	}
	return len(seq.nums) - seq.pos
}

// Part 以 []int 形式返回剩余的编号，与 BODY[] 部分说明的表示方式相同。
func (seq *Sequence) Part() []int {
	if seq.IsEmpty() {
		return nil
	}
	part := make([]int, 0, seq.Len())
	for _, num := range seq.nums[seq.pos:] {
		part = append(part, int(num))
	}
	return part
}

// String 返回剩余路径的 IMAP 表示，例如 "1.2"。
func (seq Sequence) String() string {
	var sb strings.Builder
	for i, num := range seq.nums[seq.pos:] {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(strconv.FormatUint(uint64(num), 10))
	}
	return sb.String()
}
