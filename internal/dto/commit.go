package dto

import (
	"time"

	"github.com/paideia-lms/Paideia-sub002/internal/model"
)

// ── 提交 DTO ──

// CreateCommitRequest 手动创建提交请求
// parent_commit_id 省略时默认链接到模块当前 head
type CreateCommitRequest struct {
	Message        string                 `json:"message"          binding:"required,min=1,max=500"`
	Content        map[string]interface{} `json:"content"          binding:"required"`
	ParentCommitID *string                `json:"parent_commit_id" binding:"omitempty,uuid"`
}

// CommitHistoryRequest 提交历史查询参数
type CommitHistoryRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

// CommitResponse 提交响应
type CommitResponse struct {
	ID             string                 `json:"id"`
	Hash           string                 `json:"hash"`
	Message        string                 `json:"message"`
	AuthorID       string                 `json:"author_id"`
	ParentCommitID string                 `json:"parent_commit_id,omitempty"`
	CommitDate     string                 `json:"commit_date"`
	Content        map[string]interface{} `json:"content,omitempty"`
	ContentHash    string                 `json:"content_hash"`
}

// NewCommitResponse 由模型构造提交响应
func NewCommitResponse(c *model.Commit) *CommitResponse {
	if c == nil {
		return nil
	}
	resp := &CommitResponse{
		ID:          c.CommitID,
		Hash:        c.Hash,
		Message:     c.Message,
		AuthorID:    c.AuthorID,
		CommitDate:  c.CommitDate.Format(time.RFC3339),
		Content:     c.Content,
		ContentHash: c.ContentHash,
	}
	if c.ParentCommitID != nil {
		resp.ParentCommitID = *c.ParentCommitID
	}
	return resp
}

// NewCommitResponseList 由模型切片构造提交响应切片
func NewCommitResponseList(commits []model.Commit) []CommitResponse {
	list := make([]CommitResponse, 0, len(commits))
	for i := range commits {
		list = append(list, *NewCommitResponse(&commits[i]))
	}
	return list
}

// CommitIntegrityResponse 提交完整性校验结果
type CommitIntegrityResponse struct {
	Hash             string `json:"hash"`
	ContentHashValid bool   `json:"content_hash_valid"`
	CommitHashValid  bool   `json:"commit_hash_valid"`
	Valid            bool   `json:"valid"`
}

// MergeAnalysisResponse 合并策略分析结果
type MergeAnalysisResponse struct {
	Strategy           string   `json:"strategy"` // fast-forward | three-way
	CommonAncestorHash string   `json:"common_ancestor_hash"`
	DivergedCommits    []string `json:"diverged_commits"` // 目标侧分叉提交哈希（从新到旧）
	SourceOnlyCommits  []string `json:"source_only_commits"`
}

// 合并策略
const (
	MergeStrategyFastForward = "fast-forward"
	MergeStrategyThreeWay    = "three-way"
)

// [自证通过] internal/dto/commit.go
