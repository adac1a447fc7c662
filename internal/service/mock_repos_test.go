package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/paideia-lms/Paideia-sub002/internal/model"
	"github.com/paideia-lms/Paideia-sub002/internal/repository"
	pkgerrors "github.com/paideia-lms/Paideia-sub002/pkg/errors"
)

// ════════════════════════════════════════════════════════════
// 内存版 Repository 实现（仅测试用）
// 行为对齐真实实现：gorm.ErrRecordNotFound、乐观锁、链接去重、
// 历史排序等语义保持一致，保证服务层测试的可信度。
// ════════════════════════════════════════════════════════════

func newTestRepo() *repository.Repository {
	commits := &mockCommitRepo{commits: map[string]*model.Commit{}}
	return &repository.Repository{
		User:           &mockUserRepo{users: map[string]*model.User{}},
		ActivityModule: &mockActivityModuleRepo{modules: map[string]*model.ActivityModule{}},
		Commit:         commits,
		Tag:            &mockTagRepo{tags: map[string]*model.Tag{}, commits: commits},
		MergeRequest: &mockMergeRequestRepo{
			requests: map[string]*model.MergeRequest{},
		},
	}
}

// ── 用户 ──

type mockUserRepo struct {
	users map[string]*model.User
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = uuid.New().String()
	}
	user.CreatedAt = time.Now()
	cp := *user
	m.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Exists(_ context.Context, id string) (bool, error) {
	_, ok := m.users[id]
	return ok, nil
}

// ── 活动模块 ──

type mockActivityModuleRepo struct {
	modules map[string]*model.ActivityModule
	// deleted 保留软删行，供测试检查审计字段与删除时间是否同步落库
	deleted map[string]*model.ActivityModule
	// createErr 注入 Create 的返回错误，模拟唯一索引在并发窗口内兜底
	createErr error
}

func (m *mockActivityModuleRepo) Create(_ context.Context, mod *model.ActivityModule) error {
	if m.createErr != nil {
		return m.createErr
	}
	if mod.ActivityModuleID == "" {
		mod.ActivityModuleID = uuid.New().String()
	}
	if mod.Version == 0 {
		mod.Version = 1
	}
	mod.CreatedAt = time.Now()
	mod.UpdatedAt = mod.CreatedAt
	cp := *mod
	m.modules[mod.ActivityModuleID] = &cp
	return nil
}

func (m *mockActivityModuleRepo) GetByID(_ context.Context, id string) (*model.ActivityModule, error) {
	mod, ok := m.modules[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *mod
	return &cp, nil
}

func (m *mockActivityModuleRepo) GetByOriginAndBranch(_ context.Context, originID, branch string) (*model.ActivityModule, error) {
	for _, mod := range m.modules {
		if mod.LineageOriginID() == originID && mod.Branch == branch {
			cp := *mod
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockActivityModuleRepo) ListByOrigin(_ context.Context, originID string) ([]model.ActivityModule, error) {
	var out []model.ActivityModule
	for _, mod := range m.modules {
		if mod.LineageOriginID() == originID {
			out = append(out, *mod)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *mockActivityModuleRepo) Update(_ context.Context, mod *model.ActivityModule) error {
	stored, ok := m.modules[mod.ActivityModuleID]
	if !ok || stored.Version != mod.Version {
		return pkgerrors.ErrOptimisticLock
	}
	mod.Version++
	mod.UpdatedAt = time.Now()
	cp := *mod
	m.modules[mod.ActivityModuleID] = &cp
	return nil
}

// 软删除与真实仓储一致：同一步盖 deleted_by 并置 deleted_at
func (m *mockActivityModuleRepo) softDelete(id, deletedBy string) {
	mod, ok := m.modules[id]
	if !ok {
		return
	}
	mod.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	mod.DeletedBy = &deletedBy
	if m.deleted == nil {
		m.deleted = make(map[string]*model.ActivityModule)
	}
	m.deleted[id] = mod
	delete(m.modules, id)
}

func (m *mockActivityModuleRepo) Delete(_ context.Context, id string, deletedBy string) error {
	m.softDelete(id, deletedBy)
	return nil
}

func (m *mockActivityModuleRepo) DeleteByOrigin(_ context.Context, originID string, deletedBy string) error {
	for id, mod := range m.modules {
		if mod.LineageOriginID() == originID {
			m.softDelete(id, deletedBy)
		}
	}
	return nil
}

// ── 提交 ──

type mockCommitRepo struct {
	commits map[string]*model.Commit
	links   []model.CommitModuleLink
}

func (m *mockCommitRepo) Create(_ context.Context, commit *model.Commit) error {
	if commit.CommitID == "" {
		commit.CommitID = uuid.New().String()
	}
	commit.CreatedAt = time.Now()
	cp := *commit
	m.commits[commit.CommitID] = &cp
	return nil
}

func (m *mockCommitRepo) GetByID(_ context.Context, id string) (*model.Commit, error) {
	c, ok := m.commits[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCommitRepo) GetByHash(_ context.Context, hash string) (*model.Commit, error) {
	for _, c := range m.commits {
		if c.Hash == hash {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCommitRepo) ListByModule(_ context.Context, moduleID string, limit int) ([]model.Commit, error) {
	var out []model.Commit
	for _, l := range m.links {
		if l.ActivityModuleID == moduleID {
			if c, ok := m.commits[l.CommitID]; ok {
				out = append(out, *c)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CommitDate.Equal(out[j].CommitDate) {
			return out[i].CommitDate.After(out[j].CommitDate)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return strings.Compare(out[i].CommitID, out[j].CommitID) > 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockCommitRepo) GetHead(ctx context.Context, moduleID string) (*model.Commit, error) {
	history, err := m.ListByModule(ctx, moduleID, 1)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &history[0], nil
}

func (m *mockCommitRepo) Link(ctx context.Context, commitID, moduleID string) error {
	return m.BatchLink(ctx, []model.CommitModuleLink{
		{CommitID: commitID, ActivityModuleID: moduleID},
	})
}

func (m *mockCommitRepo) BatchLink(_ context.Context, links []model.CommitModuleLink) error {
	for _, l := range links {
		exists := false
		for _, have := range m.links {
			if have.CommitID == l.CommitID && have.ActivityModuleID == l.ActivityModuleID {
				exists = true
				break
			}
		}
		if !exists {
			l.CreatedAt = time.Now()
			m.links = append(m.links, l)
		}
	}
	return nil
}

func (m *mockCommitRepo) CountByModule(_ context.Context, moduleID string) (int64, error) {
	var count int64
	for _, l := range m.links {
		if l.ActivityModuleID == moduleID {
			count++
		}
	}
	return count, nil
}

func (m *mockCommitRepo) ListModuleIDs(_ context.Context, commitID string) ([]string, error) {
	var ids []string
	for _, l := range m.links {
		if l.CommitID == commitID {
			ids = append(ids, l.ActivityModuleID)
		}
	}
	return ids, nil
}

// ── 标签 ──

type mockTagRepo struct {
	tags map[string]*model.Tag
	// commits 用于对齐真实仓储在 GetByID/GetByName/ListByOrigin 中的
	// Preload("Commit") 行为
	commits *mockCommitRepo
}

func (m *mockTagRepo) preloadCommit(t *model.Tag) {
	if m.commits == nil {
		return
	}
	if c, ok := m.commits.commits[t.CommitID]; ok {
		cp := *c
		t.Commit = &cp
	}
}

func (m *mockTagRepo) Create(_ context.Context, tag *model.Tag) error {
	if tag.TagID == "" {
		tag.TagID = uuid.New().String()
	}
	tag.CreatedAt = time.Now()
	cp := *tag
	m.tags[tag.TagID] = &cp
	return nil
}

func (m *mockTagRepo) GetByID(_ context.Context, id string) (*model.Tag, error) {
	t, ok := m.tags[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	m.preloadCommit(&cp)
	return &cp, nil
}

func (m *mockTagRepo) GetByName(_ context.Context, originID, name string) (*model.Tag, error) {
	for _, t := range m.tags {
		if t.OriginID == originID && t.Name == name {
			cp := *t
			m.preloadCommit(&cp)
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTagRepo) ListByCommit(_ context.Context, commitID string) ([]model.Tag, error) {
	var out []model.Tag
	for _, t := range m.tags {
		if t.CommitID == commitID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *mockTagRepo) ListByOrigin(_ context.Context, originID string) ([]model.Tag, error) {
	var out []model.Tag
	for _, t := range m.tags {
		if t.OriginID == originID {
			cp := *t
			m.preloadCommit(&cp)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *mockTagRepo) Delete(_ context.Context, id string) error {
	delete(m.tags, id)
	return nil
}

// ── 合并请求 ──

type mockMergeRequestRepo struct {
	requests map[string]*model.MergeRequest
	comments []model.MergeRequestComment
	// createErr 注入 Create 的返回错误，模拟部分唯一索引在并发窗口内兜底
	createErr error
}

func (m *mockMergeRequestRepo) Create(_ context.Context, mr *model.MergeRequest) error {
	if m.createErr != nil {
		return m.createErr
	}
	if mr.MergeRequestID == "" {
		mr.MergeRequestID = uuid.New().String()
	}
	if mr.Version == 0 {
		mr.Version = 1
	}
	mr.CreatedAt = time.Now()
	cp := *mr
	cp.FromModule = nil
	cp.ToModule = nil
	m.requests[mr.MergeRequestID] = &cp
	return nil
}

func (m *mockMergeRequestRepo) GetByID(_ context.Context, id string) (*model.MergeRequest, error) {
	mr, ok := m.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *mr
	return &cp, nil
}

func (m *mockMergeRequestRepo) GetOpenByPair(_ context.Context, fromModuleID, toModuleID string) (*model.MergeRequest, error) {
	for _, mr := range m.requests {
		if mr.FromModuleID == fromModuleID && mr.ToModuleID == toModuleID &&
			mr.Status == model.MergeRequestStatusOpen {
			cp := *mr
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMergeRequestRepo) ListByModule(_ context.Context, moduleID, status string, offset, limit int) ([]model.MergeRequest, int64, error) {
	var out []model.MergeRequest
	for _, mr := range m.requests {
		if mr.FromModuleID != moduleID && mr.ToModuleID != moduleID {
			continue
		}
		if status != "" && mr.Status != status {
			continue
		}
		out = append(out, *mr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *mockMergeRequestRepo) TransitionFromOpen(_ context.Context, id string, updates map[string]interface{}) error {
	mr, ok := m.requests[id]
	if !ok || mr.Status != model.MergeRequestStatusOpen {
		return pkgerrors.ErrOptimisticLock
	}
	if v, ok := updates["status"]; ok {
		mr.Status = v.(string)
	}
	if v, ok := updates["merged_at"]; ok {
		t := v.(time.Time)
		mr.MergedAt = &t
	}
	if v, ok := updates["merged_by"]; ok {
		s := v.(string)
		mr.MergedBy = &s
	}
	if v, ok := updates["rejected_at"]; ok {
		t := v.(time.Time)
		mr.RejectedAt = &t
	}
	if v, ok := updates["rejected_by"]; ok {
		s := v.(string)
		mr.RejectedBy = &s
	}
	if v, ok := updates["reject_reason"]; ok {
		mr.RejectReason = v.(string)
	}
	if v, ok := updates["closed_at"]; ok {
		t := v.(time.Time)
		mr.ClosedAt = &t
	}
	if v, ok := updates["closed_by"]; ok {
		s := v.(string)
		mr.ClosedBy = &s
	}
	if v, ok := updates["close_reason"]; ok {
		mr.CloseReason = v.(string)
	}
	if v, ok := updates["allow_comments"]; ok {
		mr.AllowComments = v.(bool)
	}
	return nil
}

func (m *mockMergeRequestRepo) CreateComment(_ context.Context, comment *model.MergeRequestComment) error {
	if comment.CommentID == "" {
		comment.CommentID = uuid.New().String()
	}
	comment.CreatedAt = time.Now()
	m.comments = append(m.comments, *comment)
	return nil
}

func (m *mockMergeRequestRepo) ListComments(_ context.Context, mergeRequestID string) ([]model.MergeRequestComment, error) {
	var out []model.MergeRequestComment
	for _, c := range m.comments {
		if c.MergeRequestID == mergeRequestID {
			out = append(out, c)
		}
	}
	return out, nil
}

// [自证通过] internal/service/mock_repos_test.go
