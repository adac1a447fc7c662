package model

import (
	"time"

	"gorm.io/datatypes"
)

// Commit 提交表 — 对应 commits
// 不可变的内容寻址快照：创建后永不更新，只会被新提交以 parent_commit_id
// 引用的方式取代。hash 由 (内容, 消息, 作者, 时间戳, 父提交哈希) 确定性推导。
type Commit struct {
	CommitID       string            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"commit_id"`
	Hash           string            `gorm:"type:char(64);not null;uniqueIndex"             json:"hash"`
	Message        string            `gorm:"type:text;not null"                             json:"message"`
	AuthorID       string            `gorm:"type:uuid;not null"                             json:"author_id"`
	ParentCommitID *string           `gorm:"type:uuid"                                      json:"parent_commit_id,omitempty"`
	CommitDate     time.Time         `gorm:"not null"                                       json:"commit_date"`
	Content        datatypes.JSONMap `gorm:"type:jsonb;not null"                            json:"content"`
	ContentHash    string            `gorm:"type:char(64);not null"                         json:"content_hash"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`

	// 关联
	Author       *User   `gorm:"foreignKey:AuthorID;references:UserID"              json:"author,omitempty"`
	ParentCommit *Commit `gorm:"foreignKey:ParentCommitID;references:CommitID"      json:"parent_commit,omitempty"`
}

// TableName 指定表名
func (Commit) TableName() string { return "commits" }

// CommitModuleLink 提交-模块关联表 — 对应 commit_module_links
// 多对多关联：创建分支时只插入关联行，不复制提交内容。
type CommitModuleLink struct {
	CommitID         string    `gorm:"type:uuid;primaryKey" json:"commit_id"`
	ActivityModuleID string    `gorm:"type:uuid;primaryKey" json:"activity_module_id"`
	CreatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (CommitModuleLink) TableName() string { return "commit_module_links" }

// [自证通过] internal/model/commit.go
