package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/paideia-lms/Paideia-sub002/internal/dto"
	"github.com/paideia-lms/Paideia-sub002/internal/model"
	"github.com/paideia-lms/Paideia-sub002/internal/repository"
	pkgerrors "github.com/paideia-lms/Paideia-sub002/pkg/errors"
)

// ── 合并请求业务错误 ──

var (
	ErrMergeRequestNotFound    = errors.New("合并请求不存在")
	ErrMergeSameModule         = errors.New("源模块与目标模块不能相同")
	ErrOpenMergeRequestExists  = errors.New("该分支组合上已存在未处理的合并请求")
	ErrMergeRequestNotOpen     = errors.New("合并请求已非 open 状态")
	ErrResolvedContentRequired = errors.New("三路合并必须提供解决冲突后的内容")
	ErrRejectReasonRequired    = errors.New("拒绝合并请求必须说明理由")
	ErrCommentsDisabled        = errors.New("该合并请求已关闭评论")
)

// MergeRequestService 合并请求业务接口
// 状态机：open → {merged, rejected, closed}；终态不可再变迁。
type MergeRequestService interface {
	Create(ctx context.Context, req *dto.CreateMergeRequestRequest, creatorID string) (*dto.MergeRequestResponse, error)
	GetByID(ctx context.Context, id string) (*dto.MergeRequestResponse, error)
	List(ctx context.Context, req *dto.MergeRequestListRequest) ([]dto.MergeRequestResponse, int64, error)
	// Accept 接受合并请求并执行合并：快进时把源侧提交批量链接到
	// 目标模块；分叉时要求调用方提供解决后的内容并产生合并提交。
	Accept(ctx context.Context, id string, req *dto.AcceptMergeRequestRequest, callerID string) (*dto.MergeResultResponse, error)
	// Reject 拒绝合并请求，必须给出理由
	Reject(ctx context.Context, id string, req *dto.RejectMergeRequestRequest, callerID string) (*dto.MergeRequestResponse, error)
	// Close 撤回合并请求（不合并、不拒绝，单纯关闭）
	Close(ctx context.Context, id string, req *dto.CloseMergeRequestRequest, callerID string) (*dto.MergeRequestResponse, error)
	CreateComment(ctx context.Context, mergeRequestID string, req *dto.CreateCommentRequest, authorID string) (*dto.MergeRequestCommentResponse, error)
	ListComments(ctx context.Context, mergeRequestID string) ([]dto.MergeRequestCommentResponse, error)
}

type mergeRequestService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewMergeRequestService 创建 MergeRequestService 实例
func NewMergeRequestService(repo *repository.Repository, logger *zap.Logger) MergeRequestService {
	return &mergeRequestService{repo: repo, logger: logger}
}

func (s *mergeRequestService) Create(ctx context.Context, req *dto.CreateMergeRequestRequest, creatorID string) (*dto.MergeRequestResponse, error) {
	if req.FromModuleID == req.ToModuleID {
		return nil, ErrMergeSameModule
	}

	// 两端模块都必须存在且属于同一谱系
	from, err := s.repo.ActivityModule.GetByID(ctx, req.FromModuleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActivityModuleNotFound
		}
		s.logger.Error("查询活动模块失败", zap.Error(err))
		return nil, err
	}
	to, err := s.repo.ActivityModule.GetByID(ctx, req.ToModuleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActivityModuleNotFound
		}
		s.logger.Error("查询活动模块失败", zap.Error(err))
		return nil, err
	}
	if from.LineageOriginID() != to.LineageOriginID() {
		return nil, ErrDifferentOrigins
	}

	// 同组合只允许一个 open 请求；并发创建由存储层部分唯一索引兜底
	if _, err := s.repo.MergeRequest.GetOpenByPair(ctx, req.FromModuleID, req.ToModuleID); err == nil {
		return nil, ErrOpenMergeRequestExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询合并请求失败", zap.Error(err))
		return nil, err
	}

	mr := &model.MergeRequest{
		Title:         req.Title,
		Description:   req.Description,
		FromModuleID:  req.FromModuleID,
		ToModuleID:    req.ToModuleID,
		Status:        model.MergeRequestStatusOpen,
		AllowComments: true,
	}
	mr.CreatedBy = &creatorID
	mr.UpdatedBy = &creatorID
	if err := s.repo.MergeRequest.Create(ctx, mr); err != nil {
		// 预检竞态下由部分唯一索引兜底，译回同一业务错误
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrOpenMergeRequestExists
		}
		s.logger.Error("创建合并请求失败", zap.Error(err))
		return nil, err
	}
	mr.FromModule = from
	mr.ToModule = to

	s.logger.Info("合并请求已创建",
		zap.String("merge_request_id", mr.MergeRequestID),
		zap.String("from", req.FromModuleID),
		zap.String("to", req.ToModuleID),
	)
	return dto.NewMergeRequestResponse(mr), nil
}

func (s *mergeRequestService) GetByID(ctx context.Context, id string) (*dto.MergeRequestResponse, error) {
	mr, err := s.getMergeRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewMergeRequestResponse(mr), nil
}

func (s *mergeRequestService) List(ctx context.Context, req *dto.MergeRequestListRequest) ([]dto.MergeRequestResponse, int64, error) {
	offset, limit := req.Normalize()
	mrs, total, err := s.repo.MergeRequest.ListByModule(ctx, req.ModuleID, req.Status, offset, limit)
	if err != nil {
		s.logger.Error("查询合并请求列表失败", zap.Error(err))
		return nil, 0, err
	}
	return dto.NewMergeRequestResponseList(mrs), total, nil
}

func (s *mergeRequestService) Accept(ctx context.Context, id string, req *dto.AcceptMergeRequestRequest, callerID string) (*dto.MergeResultResponse, error) {
	mr, err := s.getMergeRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if mr.IsTerminal() {
		return nil, ErrMergeRequestNotOpen
	}

	result := &dto.MergeResultResponse{}
	now := time.Now()

	// 合并分析、合并执行与状态变迁必须是一个原子单元；
	// TransitionFromOpen 的 open 前置条件同时挡住并发的重复 accept。
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		analysis, txErr := analyzeMergeStrategyTx(ctx, txRepo, mr.FromModuleID, mr.ToModuleID)
		if txErr != nil {
			return txErr
		}
		result.Strategy = analysis.strategy

		switch analysis.strategy {
		case dto.MergeStrategyFastForward:
			// 快进：目标分支没有分叉提交，直接把源侧独有提交链接过来
			links := make([]model.CommitModuleLink, 0, len(analysis.sourceOnly))
			for i := range analysis.sourceOnly {
				links = append(links, model.CommitModuleLink{
					CommitID:         analysis.sourceOnly[i].CommitID,
					ActivityModuleID: mr.ToModuleID,
				})
			}
			if txErr := txRepo.Commit.BatchLink(ctx, links); txErr != nil {
				return txErr
			}
			result.LinkedCommits = len(links)
			result.MergeReport = fmt.Sprintf(
				"快进合并：%d 个提交自分支 %q 链接到分支 %q（共同祖先 %s）",
				len(links), branchName(mr.FromModule), branchName(mr.ToModule),
				shortHash(analysis.ancestor.Hash),
			)

		case dto.MergeStrategyThreeWay:
			// 三路：目标分支已分叉，需要调用方提供解决冲突后的完整内容
			if req.ResolvedContent == nil {
				return ErrResolvedContentRequired
			}
			result.MergeReport = fmt.Sprintf(
				"三路合并：分支 %q 合入分支 %q，共同祖先 %s，目标侧分叉 %d 个提交，源侧合入 %d 个提交",
				branchName(mr.FromModule), branchName(mr.ToModule),
				shortHash(analysis.ancestor.Hash),
				len(analysis.diverged), len(analysis.sourceOnly),
			)
			mergeCommit, txErr := createMergeCommitTx(ctx, txRepo, mr.ToModuleID, result.MergeReport, req.ResolvedContent, callerID)
			if txErr != nil {
				return txErr
			}
			result.MergeCommit = dto.NewCommitResponse(mergeCommit)
		}

		// 合并记录以评论形式留痕
		comment := &model.MergeRequestComment{
			MergeRequestID: mr.MergeRequestID,
			AuthorID:       callerID,
			Comment:        "已接受合并请求。" + result.MergeReport,
		}
		if txErr := txRepo.MergeRequest.CreateComment(ctx, comment); txErr != nil {
			return txErr
		}

		updates := map[string]interface{}{
			"status":     model.MergeRequestStatusMerged,
			"merged_at":  now,
			"merged_by":  callerID,
			"updated_by": callerID,
		}
		if req.StopComments {
			updates["allow_comments"] = false
		}
		return txRepo.MergeRequest.TransitionFromOpen(ctx, mr.MergeRequestID, updates)
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			// 另一请求抢先完成了状态变迁
			return nil, ErrMergeRequestNotOpen
		}
		if !isMergeBusinessErr(err) {
			s.logger.Error("接受合并请求失败", zap.Error(err))
		}
		return nil, err
	}

	mr.Status = model.MergeRequestStatusMerged
	mr.MergedAt = &now
	mr.MergedBy = &callerID
	if req.StopComments {
		mr.AllowComments = false
	}
	result.MergeRequest = dto.NewMergeRequestResponse(mr)

	s.logger.Info("合并请求已接受",
		zap.String("merge_request_id", mr.MergeRequestID),
		zap.String("strategy", result.Strategy),
		zap.Int("linked_commits", result.LinkedCommits),
	)
	return result, nil
}

func (s *mergeRequestService) Reject(ctx context.Context, id string, req *dto.RejectMergeRequestRequest, callerID string) (*dto.MergeRequestResponse, error) {
	if req.Reason == "" {
		return nil, ErrRejectReasonRequired
	}
	mr, err := s.getMergeRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if mr.IsTerminal() {
		return nil, ErrMergeRequestNotOpen
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":        model.MergeRequestStatusRejected,
		"rejected_at":   now,
		"rejected_by":   callerID,
		"reject_reason": req.Reason,
		"updated_by":    callerID,
	}
	if req.StopComments {
		updates["allow_comments"] = false
	}
	if err := s.repo.MergeRequest.TransitionFromOpen(ctx, id, updates); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrMergeRequestNotOpen
		}
		s.logger.Error("拒绝合并请求失败", zap.Error(err))
		return nil, err
	}

	mr.Status = model.MergeRequestStatusRejected
	mr.RejectedAt = &now
	mr.RejectedBy = &callerID
	mr.RejectReason = req.Reason
	if req.StopComments {
		mr.AllowComments = false
	}
	s.logger.Info("合并请求已拒绝", zap.String("merge_request_id", id))
	return dto.NewMergeRequestResponse(mr), nil
}

func (s *mergeRequestService) Close(ctx context.Context, id string, req *dto.CloseMergeRequestRequest, callerID string) (*dto.MergeRequestResponse, error) {
	mr, err := s.getMergeRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if mr.IsTerminal() {
		return nil, ErrMergeRequestNotOpen
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":       model.MergeRequestStatusClosed,
		"closed_at":    now,
		"closed_by":    callerID,
		"close_reason": req.Reason,
		"updated_by":   callerID,
	}
	if req.StopComments {
		updates["allow_comments"] = false
	}
	if err := s.repo.MergeRequest.TransitionFromOpen(ctx, id, updates); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrMergeRequestNotOpen
		}
		s.logger.Error("关闭合并请求失败", zap.Error(err))
		return nil, err
	}

	mr.Status = model.MergeRequestStatusClosed
	mr.ClosedAt = &now
	mr.ClosedBy = &callerID
	mr.CloseReason = req.Reason
	if req.StopComments {
		mr.AllowComments = false
	}
	s.logger.Info("合并请求已关闭", zap.String("merge_request_id", id))
	return dto.NewMergeRequestResponse(mr), nil
}

func (s *mergeRequestService) CreateComment(ctx context.Context, mergeRequestID string, req *dto.CreateCommentRequest, authorID string) (*dto.MergeRequestCommentResponse, error) {
	mr, err := s.getMergeRequest(ctx, mergeRequestID)
	if err != nil {
		return nil, err
	}
	// 评论开关对终态请求同样生效：历史讨论可封存
	if !mr.AllowComments {
		return nil, ErrCommentsDisabled
	}

	comment := &model.MergeRequestComment{
		MergeRequestID: mergeRequestID,
		AuthorID:       authorID,
		Comment:        req.Comment,
	}
	if err := s.repo.MergeRequest.CreateComment(ctx, comment); err != nil {
		s.logger.Error("创建评论失败", zap.Error(err))
		return nil, err
	}
	return dto.NewMergeRequestCommentResponse(comment), nil
}

func (s *mergeRequestService) ListComments(ctx context.Context, mergeRequestID string) ([]dto.MergeRequestCommentResponse, error) {
	if _, err := s.getMergeRequest(ctx, mergeRequestID); err != nil {
		return nil, err
	}
	comments, err := s.repo.MergeRequest.ListComments(ctx, mergeRequestID)
	if err != nil {
		s.logger.Error("查询评论失败", zap.Error(err))
		return nil, err
	}
	list := make([]dto.MergeRequestCommentResponse, 0, len(comments))
	for i := range comments {
		list = append(list, *dto.NewMergeRequestCommentResponse(&comments[i]))
	}
	return list, nil
}

func (s *mergeRequestService) getMergeRequest(ctx context.Context, id string) (*model.MergeRequest, error) {
	mr, err := s.repo.MergeRequest.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMergeRequestNotFound
		}
		s.logger.Error("查询合并请求失败", zap.Error(err))
		return nil, err
	}
	return mr, nil
}

func branchName(m *model.ActivityModule) string {
	if m == nil {
		return ""
	}
	return m.Branch
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

func isMergeBusinessErr(err error) bool {
	return errors.Is(err, ErrResolvedContentRequired) ||
		errors.Is(err, ErrNoCommonAncestor) ||
		errors.Is(err, ErrModuleHasNoCommits)
}

// [自证通过] internal/service/merge_request_service.go
