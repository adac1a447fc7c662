package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/paideia-lms/Paideia-sub002/internal/dto"
	"github.com/paideia-lms/Paideia-sub002/internal/service"
	"github.com/paideia-lms/Paideia-sub002/pkg/response"
)

// MergeRequestHandler 合并请求 HTTP 处理器
type MergeRequestHandler struct {
	mrSvc     service.MergeRequestService
	commitSvc service.CommitService
}

// NewMergeRequestHandler 创建 MergeRequestHandler
func NewMergeRequestHandler(mrSvc service.MergeRequestService, commitSvc service.CommitService) *MergeRequestHandler {
	return &MergeRequestHandler{mrSvc: mrSvc, commitSvc: commitSvc}
}

// CreateMergeRequest 发起合并请求
// POST /api/v1/merge-requests
func (h *MergeRequestHandler) CreateMergeRequest(c *gin.Context) {
	var req dto.CreateMergeRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	mr, err := h.mrSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleMergeRequestError(c, err)
		return
	}

	response.Created(c, mr)
}

// GetMergeRequest 获取合并请求详情
// GET /api/v1/merge-requests/:id
func (h *MergeRequestHandler) GetMergeRequest(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "合并请求ID不能为空")
		return
	}

	mr, err := h.mrSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleMergeRequestError(c, err)
		return
	}

	response.OK(c, mr)
}

// ListMergeRequests 分页查询模块相关的合并请求
// GET /api/v1/merge-requests?module_id=xxx[&status=open]
func (h *MergeRequestHandler) ListMergeRequests(c *gin.Context) {
	var req dto.MergeRequestListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.mrSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleMergeRequestError(c, err)
		return
	}

	response.OKPage(c, list, total, req.Page, req.PageSize)
}

// AnalyzeMerge 预览合并策略（不执行合并）
// GET /api/v1/merge-requests/:id/analysis
func (h *MergeRequestHandler) AnalyzeMerge(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "合并请求ID不能为空")
		return
	}

	mr, err := h.mrSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleMergeRequestError(c, err)
		return
	}

	analysis, err := h.commitSvc.AnalyzeMergeStrategy(c.Request.Context(), mr.FromModuleID, mr.ToModuleID)
	if err != nil {
		h.handleMergeRequestError(c, err)
		return
	}

	response.OK(c, analysis)
}

// AcceptMergeRequest 接受合并请求并执行合并
// POST /api/v1/merge-requests/:id/accept
func (h *MergeRequestHandler) AcceptMergeRequest(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "合并请求ID不能为空")
		return
	}

	var req dto.AcceptMergeRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.mrSvc.Accept(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleMergeRequestError(c, err)
		return
	}

	response.OK(c, result)
}

// RejectMergeRequest 拒绝合并请求
// POST /api/v1/merge-requests/:id/reject
func (h *MergeRequestHandler) RejectMergeRequest(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "合并请求ID不能为空")
		return
	}

	var req dto.RejectMergeRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	mr, err := h.mrSvc.Reject(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleMergeRequestError(c, err)
		return
	}

	response.OK(c, mr)
}

// CloseMergeRequest 关闭合并请求
// POST /api/v1/merge-requests/:id/close
func (h *MergeRequestHandler) CloseMergeRequest(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "合并请求ID不能为空")
		return
	}

	var req dto.CloseMergeRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	mr, err := h.mrSvc.Close(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleMergeRequestError(c, err)
		return
	}

	response.OK(c, mr)
}

// CreateComment 发表评论
// POST /api/v1/merge-requests/:id/comments
func (h *MergeRequestHandler) CreateComment(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "合并请求ID不能为空")
		return
	}

	var req dto.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	comment, err := h.mrSvc.CreateComment(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleMergeRequestError(c, err)
		return
	}

	response.Created(c, comment)
}

// ListComments 获取评论列表
// GET /api/v1/merge-requests/:id/comments
func (h *MergeRequestHandler) ListComments(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "合并请求ID不能为空")
		return
	}

	comments, err := h.mrSvc.ListComments(c.Request.Context(), id)
	if err != nil {
		h.handleMergeRequestError(c, err)
		return
	}

	response.OK(c, gin.H{"list": comments})
}

// handleMergeRequestError 统一处理合并请求业务错误
func (h *MergeRequestHandler) handleMergeRequestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMergeRequestNotFound):
		response.NotFound(c, 24001, "合并请求不存在")
	case errors.Is(err, service.ErrMergeSameModule):
		response.BadRequest(c, 24002, "源模块与目标模块不能相同")
	case errors.Is(err, service.ErrOpenMergeRequestExists):
		response.Conflict(c, 24003, "该分支组合上已存在未处理的合并请求")
	case errors.Is(err, service.ErrMergeRequestNotOpen):
		response.Conflict(c, 24004, "合并请求已非 open 状态")
	case errors.Is(err, service.ErrResolvedContentRequired):
		response.BadRequest(c, 24005, "三路合并必须提供解决冲突后的内容")
	case errors.Is(err, service.ErrRejectReasonRequired):
		response.BadRequest(c, 24006, "拒绝合并请求必须说明理由")
	case errors.Is(err, service.ErrCommentsDisabled):
		response.Forbidden(c, 24007, "该合并请求已关闭评论")
	case errors.Is(err, service.ErrNoCommonAncestor):
		response.BadRequest(c, 24008, "两个分支不存在共同祖先")
	case errors.Is(err, service.ErrDifferentOrigins):
		response.BadRequest(c, 21006, "两个模块不属于同一谱系")
	case errors.Is(err, service.ErrActivityModuleNotFound):
		response.NotFound(c, 21001, "活动模块不存在")
	case errors.Is(err, service.ErrModuleHasNoCommits):
		response.BadRequest(c, 22003, "模块尚无任何提交")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/merge_request_handler.go
