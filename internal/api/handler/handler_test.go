package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/paideia-lms/Paideia-sub002/internal/dto"
	"github.com/paideia-lms/Paideia-sub002/internal/service"
	"github.com/paideia-lms/Paideia-sub002/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock ActivityModuleService ──

type mockActivityModuleService struct {
	createResult  *dto.ActivityModuleResponse
	createErr     error
	getResult     *dto.ActivityModuleResponse
	getErr        error
	updateResult  *dto.ActivityModuleResponse
	updateErr     error
	contentResult *dto.ActivityModuleResponse
	contentErr    error
	deleteErr     error
}

func (m *mockActivityModuleService) CreateActivityModule(_ context.Context, _ *dto.CreateActivityModuleRequest, _ string) (*dto.ActivityModuleResponse, error) {
	return m.createResult, m.createErr
}
func (m *mockActivityModuleService) GetActivityModuleByID(_ context.Context, _ string) (*dto.ActivityModuleResponse, error) {
	return m.getResult, m.getErr
}
func (m *mockActivityModuleService) UpdateActivityModule(_ context.Context, _ string, _ *dto.UpdateActivityModuleRequest, _ string) (*dto.ActivityModuleResponse, error) {
	return m.updateResult, m.updateErr
}
func (m *mockActivityModuleService) UpdateContent(_ context.Context, _ string, _ *dto.UpdateContentRequest, _ string) (*dto.ActivityModuleResponse, error) {
	return m.contentResult, m.contentErr
}
func (m *mockActivityModuleService) DeleteActivityModule(_ context.Context, _ string, _ bool, _ string) error {
	return m.deleteErr
}

// ── Mock BranchService ──

type mockBranchService struct {
	createResult  *dto.ActivityModuleResponse
	createErr     error
	listResult    []dto.ActivityModuleResponse
	listErr       error
	compareResult *dto.BranchComparisonResponse
	compareErr    error
}

func (m *mockBranchService) CreateBranch(_ context.Context, _ string, _ *dto.CreateBranchRequest, _ string) (*dto.ActivityModuleResponse, error) {
	return m.createResult, m.createErr
}
func (m *mockBranchService) ListBranches(_ context.Context, _ string) ([]dto.ActivityModuleResponse, error) {
	return m.listResult, m.listErr
}
func (m *mockBranchService) CompareBranches(_ context.Context, _, _ string) (*dto.BranchComparisonResponse, error) {
	return m.compareResult, m.compareErr
}

// ── Mock CommitService ──

type mockCommitService struct {
	createResult  *dto.CommitResponse
	createErr     error
	byHashResult  *dto.CommitResponse
	byHashErr     error
	verifyResult  *dto.CommitIntegrityResponse
	verifyErr     error
	historyResult []dto.CommitResponse
	historyErr    error
	headResult    *dto.CommitResponse
	headErr       error
	analyzeResult *dto.MergeAnalysisResponse
	analyzeErr    error
	tagResult     *dto.TagResponse
	tagErr        error
	tagsResult    []dto.TagResponse
	tagsErr       error
	deleteTagErr  error
}

func (m *mockCommitService) CreateCommit(_ context.Context, _ string, _ *dto.CreateCommitRequest, _ string) (*dto.CommitResponse, error) {
	return m.createResult, m.createErr
}
func (m *mockCommitService) GetCommitByHash(_ context.Context, _ string) (*dto.CommitResponse, error) {
	return m.byHashResult, m.byHashErr
}
func (m *mockCommitService) VerifyCommitIntegrity(_ context.Context, _ string) (*dto.CommitIntegrityResponse, error) {
	return m.verifyResult, m.verifyErr
}
func (m *mockCommitService) GetCommitHistory(_ context.Context, _ string, _ int) ([]dto.CommitResponse, error) {
	return m.historyResult, m.historyErr
}
func (m *mockCommitService) GetHeadCommit(_ context.Context, _ string) (*dto.CommitResponse, error) {
	return m.headResult, m.headErr
}
func (m *mockCommitService) AnalyzeMergeStrategy(_ context.Context, _, _ string) (*dto.MergeAnalysisResponse, error) {
	return m.analyzeResult, m.analyzeErr
}
func (m *mockCommitService) CreateTag(_ context.Context, _ *dto.CreateTagRequest, _ string) (*dto.TagResponse, error) {
	return m.tagResult, m.tagErr
}
func (m *mockCommitService) GetTagByName(_ context.Context, _, _ string) (*dto.TagResponse, error) {
	return m.tagResult, m.tagErr
}
func (m *mockCommitService) GetTagsByCommit(_ context.Context, _ string) ([]dto.TagResponse, error) {
	return m.tagsResult, m.tagsErr
}
func (m *mockCommitService) GetTagsByOrigin(_ context.Context, _ string) ([]dto.TagResponse, error) {
	return m.tagsResult, m.tagsErr
}
func (m *mockCommitService) DeleteTag(_ context.Context, _ string) error {
	return m.deleteTagErr
}

// ── Mock MergeRequestService ──

type mockMergeRequestService struct {
	createResult  *dto.MergeRequestResponse
	createErr     error
	getResult     *dto.MergeRequestResponse
	getErr        error
	listResult    []dto.MergeRequestResponse
	listTotal     int64
	listErr       error
	acceptResult  *dto.MergeResultResponse
	acceptErr     error
	rejectResult  *dto.MergeRequestResponse
	rejectErr     error
	closeResult   *dto.MergeRequestResponse
	closeErr      error
	commentResult *dto.MergeRequestCommentResponse
	commentErr    error
	commentsList  []dto.MergeRequestCommentResponse
	commentsErr   error
}

func (m *mockMergeRequestService) Create(_ context.Context, _ *dto.CreateMergeRequestRequest, _ string) (*dto.MergeRequestResponse, error) {
	return m.createResult, m.createErr
}
func (m *mockMergeRequestService) GetByID(_ context.Context, _ string) (*dto.MergeRequestResponse, error) {
	return m.getResult, m.getErr
}
func (m *mockMergeRequestService) List(_ context.Context, _ *dto.MergeRequestListRequest) ([]dto.MergeRequestResponse, int64, error) {
	return m.listResult, m.listTotal, m.listErr
}
func (m *mockMergeRequestService) Accept(_ context.Context, _ string, _ *dto.AcceptMergeRequestRequest, _ string) (*dto.MergeResultResponse, error) {
	return m.acceptResult, m.acceptErr
}
func (m *mockMergeRequestService) Reject(_ context.Context, _ string, _ *dto.RejectMergeRequestRequest, _ string) (*dto.MergeRequestResponse, error) {
	return m.rejectResult, m.rejectErr
}
func (m *mockMergeRequestService) Close(_ context.Context, _ string, _ *dto.CloseMergeRequestRequest, _ string) (*dto.MergeRequestResponse, error) {
	return m.closeResult, m.closeErr
}
func (m *mockMergeRequestService) CreateComment(_ context.Context, _ string, _ *dto.CreateCommentRequest, _ string) (*dto.MergeRequestCommentResponse, error) {
	return m.commentResult, m.commentErr
}
func (m *mockMergeRequestService) ListComments(_ context.Context, _ string) ([]dto.MergeRequestCommentResponse, error) {
	return m.commentsList, m.commentsErr
}

// ── Mock ExportService ──

type mockExportService struct {
	result *service.ExportResult
	err    error
}

func (m *mockExportService) ExportHistory(_ context.Context, _ string) (*service.ExportResult, error) {
	return m.result, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func setAuth(c *gin.Context) {
	c.Set("user_id", "test-user-id")
	c.Set("role", "instructor")
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

// ═══════════════════════════════════════════════════════════
// ActivityModuleHandler Tests
// ═══════════════════════════════════════════════════════════

func TestActivityModuleHandler_Create_Success(t *testing.T) {
	mock := &mockActivityModuleService{
		createResult: &dto.ActivityModuleResponse{ID: "m1", Title: "新模块", Branch: "main", IsRoot: true},
	}
	h := NewActivityModuleHandler(mock, &mockBranchService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/activity-modules", jsonBody(dto.CreateActivityModuleRequest{
		Title:   "新模块",
		Type:    "page",
		Content: map[string]interface{}{"body": "内容"},
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/activity-modules", func(c *gin.Context) {
		setAuth(c)
		h.CreateModule(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
}

func TestActivityModuleHandler_Create_BadJSON(t *testing.T) {
	h := NewActivityModuleHandler(&mockActivityModuleService{}, &mockBranchService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/activity-modules", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/activity-modules", func(c *gin.Context) {
		setAuth(c)
		h.CreateModule(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestActivityModuleHandler_Get_NotFound(t *testing.T) {
	mock := &mockActivityModuleService{getErr: service.ErrActivityModuleNotFound}
	h := NewActivityModuleHandler(mock, &mockBranchService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/activity-modules/missing", nil)

	r := gin.New()
	r.GET("/activity-modules/:id", h.GetModule)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 21001 {
		t.Errorf("expected error code 21001, got %d", resp.Code)
	}
}

func TestActivityModuleHandler_CreateBranch_Conflict(t *testing.T) {
	mock := &mockBranchService{createErr: service.ErrBranchExists}
	h := NewActivityModuleHandler(&mockActivityModuleService{}, mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/activity-modules/m1/branches", jsonBody(dto.CreateBranchRequest{
		BranchName: "v2",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/activity-modules/:id/branches", func(c *gin.Context) {
		setAuth(c)
		h.CreateBranch(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 21005 {
		t.Errorf("expected error code 21005, got %d", resp.Code)
	}
}

func TestActivityModuleHandler_Compare_MissingParams(t *testing.T) {
	h := NewActivityModuleHandler(&mockActivityModuleService{}, &mockBranchService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/activity-modules/compare", nil)

	r := gin.New()
	r.GET("/activity-modules/compare", h.CompareBranches)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// CommitHandler Tests
// ═══════════════════════════════════════════════════════════

func TestCommitHandler_GetByHash_Success(t *testing.T) {
	mock := &mockCommitService{
		byHashResult: &dto.CommitResponse{ID: "c1", Hash: "abc123", Message: "首提交"},
	}
	h := NewCommitHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/commits/abc123", nil)

	r := gin.New()
	r.GET("/commits/:hash", h.GetByHash)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestCommitHandler_GetHead_NoCommits(t *testing.T) {
	mock := &mockCommitService{headErr: service.ErrModuleHasNoCommits}
	h := NewCommitHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/activity-modules/m1/commits/head", nil)

	r := gin.New()
	r.GET("/activity-modules/:id/commits/head", h.GetHead)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 22003 {
		t.Errorf("expected error code 22003, got %d", resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// MergeRequestHandler Tests
// ═══════════════════════════════════════════════════════════

func TestMergeRequestHandler_Accept_NotOpen(t *testing.T) {
	mock := &mockMergeRequestService{acceptErr: service.ErrMergeRequestNotOpen}
	h := NewMergeRequestHandler(mock, &mockCommitService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/merge-requests/mr1/accept", jsonBody(dto.AcceptMergeRequestRequest{}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/merge-requests/:id/accept", func(c *gin.Context) {
		setAuth(c)
		h.AcceptMergeRequest(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 24004 {
		t.Errorf("expected error code 24004, got %d", resp.Code)
	}
}

func TestMergeRequestHandler_Accept_ResolvedContentRequired(t *testing.T) {
	mock := &mockMergeRequestService{acceptErr: service.ErrResolvedContentRequired}
	h := NewMergeRequestHandler(mock, &mockCommitService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/merge-requests/mr1/accept", jsonBody(dto.AcceptMergeRequestRequest{}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/merge-requests/:id/accept", func(c *gin.Context) {
		setAuth(c)
		h.AcceptMergeRequest(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 24005 {
		t.Errorf("expected error code 24005, got %d", resp.Code)
	}
}

func TestMergeRequestHandler_CreateComment_Disabled(t *testing.T) {
	mock := &mockMergeRequestService{commentErr: service.ErrCommentsDisabled}
	h := NewMergeRequestHandler(mock, &mockCommitService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/merge-requests/mr1/comments", jsonBody(dto.CreateCommentRequest{
		Comment: "还能合吗",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/merge-requests/:id/comments", func(c *gin.Context) {
		setAuth(c)
		h.CreateComment(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// TagHandler Tests
// ═══════════════════════════════════════════════════════════

func TestTagHandler_Create_NameExists(t *testing.T) {
	mock := &mockCommitService{tagErr: service.ErrTagNameExists}
	h := NewTagHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/tags", jsonBody(dto.CreateTagRequest{
		Name:     "v1.0",
		CommitID: "3c5a0e4e-8c65-4b9e-a9b8-000000000001",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/tags", func(c *gin.Context) {
		setAuth(c)
		h.CreateTag(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 23002 {
		t.Errorf("expected error code 23002, got %d", resp.Code)
	}
}

func TestTagHandler_List_MissingOrigin(t *testing.T) {
	h := NewTagHandler(&mockCommitService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/tags", nil)

	r := gin.New()
	r.GET("/tags", h.ListTags)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_Success(t *testing.T) {
	mock := &mockExportService{
		result: &service.ExportResult{
			FileName: "提交历史_测试_main_20260830.xlsx",
			Data:     bytes.NewBufferString("xlsx-bytes"),
		},
	}
	h := NewExportHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/export/activity-modules/m1/history", nil)

	r := gin.New()
	r.GET("/export/activity-modules/:id/history", h.ExportHistory)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("unexpected content type: %s", ct)
	}
	if w.Body.String() != "xlsx-bytes" {
		t.Error("response body should be the exported file bytes")
	}
}

func TestExportHandler_ModuleNotFound(t *testing.T) {
	mock := &mockExportService{err: service.ErrActivityModuleNotFound}
	h := NewExportHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/export/activity-modules/missing/history", nil)

	r := gin.New()
	r.GET("/export/activity-modules/:id/history", h.ExportHistory)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// [自证通过] internal/api/handler/handler_test.go
