package handler

import (
	"fmt"
	"net/http"
	"time"

	"mm-schedule-backend/pkg/config"
	"mm-schedule-backend/pkg/database"
	"mm-schedule-backend/pkg/handlers"
	customMiddleware "mm-schedule-backend/pkg/middleware"
	"mm-schedule-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler 是Vercel函数的入口点
// 这个函数实现了"单体路由模式"，将所有API端点集中在一个Chi路由器中管理
func Handler(w http.ResponseWriter, r *http.Request) {
	// 加载配置
	cfg := config.GetCached()

	// 验证配置
	if err := cfg.Validate(); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Configuration error: "+err.Error())
		return
	}

	// 获取优化的数据库连接（自动适配Vercel环境）
	db := database.GetOptimizedDatabase(database.DatabaseConfig{
		PostgresDSN:  cfg.PostgresDSN,
		SupabaseURL:  cfg.SupabaseURL,
		SupabaseKey:  cfg.SupabaseKey,
		LocalDataDir: cfg.LocalDataDir,
		Debug:        cfg.Debug,
	})
	// 注意：连接由优化器管理，无需手动关闭

	// 创建Chi路由器
	router := chi.NewRouter()

	// 设置全局中间件
	setupMiddleware(router, cfg)

	// 设置路由
	setupRoutes(router, cfg, db)

	// 将请求传递给Chi路由器处理
	router.ServeHTTP(w, r)
}

// setupMiddleware 设置全局中间件
func setupMiddleware(router *chi.Mux, cfg *config.Config) {
	// 基础中间件
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	// Normalize path and restore scheme/host before logging and routing
	router.Use(customMiddleware.Normalize())
	router.Use(customMiddleware.Logger(cfg))
	router.Use(customMiddleware.Recovery(cfg))

	// CORS中间件
	router.Use(customMiddleware.CORS(cfg))

	// 超时中间件（Vercel函数有时间限制）
	router.Use(middleware.Timeout(25 * time.Second)) // 留5秒缓冲

	// 压缩中间件
	router.Use(middleware.Compress(5))

	// 请求体限制与Content-Type校验
	router.Use(customMiddleware.MaxBodySize(2 << 20)) // 2MB
	router.Use(customMiddleware.ContentTypeJSON)

	// 开发环境额外中间件
	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

// setupRoutes 设置所有API路由
func setupRoutes(router *chi.Mux, cfg *config.Config, db database.DatabaseInterface) {
	// 创建处理器
	authHandler := handlers.NewAuthHandler(cfg, db)
	projectsHandler := handlers.NewProjectsHandler(cfg, db)
	sharingHandler := handlers.NewSharingHandler(cfg, db)
	shareHandler := handlers.NewShareHandler(cfg, db)

	// 健康检查端点
	router.Get("/", authHandler.HealthCheck)

	// 数据库连接池状态端点（调试用）
	if cfg.IsDevelopment() {
		router.Get("/debug/db-pool", func(w http.ResponseWriter, r *http.Request) {
			stats := database.GetConnectionStats()
			stats["optimizer_type"] = "standard"
			if database.IsVercelEnvironment() {
				stats = database.GetVercelOptimizer().GetStats()
				stats["optimizer_type"] = "vercel"
			}
			utils.WriteSuccessResponse(w, stats)
		})

		// 环境变量检查端点
		router.Get("/debug/env-check", func(w http.ResponseWriter, r *http.Request) {
			utils.WriteSuccessResponse(w, map[string]interface{}{
				"jwt_secret":   cfg.JWTSecret != "",
				"has_postgres": cfg.PostgresDSN != "",
				"has_supabase": cfg.SupabaseURL != "",
				"app_url":      cfg.AppURL,
			})
		})
	}

	// API路由组
	router.Route("/api", func(r chi.Router) {
		// 公开路由（不需要认证）
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.RefreshToken)
		})

		// 分享链接访问（匿名只读）
		r.Route("/share", func(r chi.Router) {
			r.Use(customMiddleware.OptionalAuthMiddleware(cfg))
			r.Get("/{token}", shareHandler.GetSharedProject)
		})

		// 需要认证的路由
		r.Group(func(r chi.Router) {
			// 应用认证中间件
			r.Use(customMiddleware.AuthMiddleware(cfg))

			r.Get("/me", authHandler.Me)

			// 项目与日程
			r.Route("/projects", func(r chi.Router) {
				r.Get("/", projectsHandler.ListProjects)
				r.Post("/", projectsHandler.CreateProject)
				r.Get("/{id}", projectsHandler.GetProject)
				r.Put("/{id}", projectsHandler.UpdateProject)
				r.Delete("/{id}", projectsHandler.DeleteProject)
				r.Put("/{id}/schedule", projectsHandler.SaveSchedule)

				// 分享与邀请（仅项目所有者）
				r.Post("/{id}/share-link", sharingHandler.EnableShareLink)
				r.Delete("/{id}/share-link", sharingHandler.DisableShareLink)
				r.Post("/{id}/invites", sharingHandler.SendInvite)
				r.Get("/{id}/invites", sharingHandler.ListInvites)
				r.Get("/{id}/collaborators", sharingHandler.ListCollaborators)
			})
		})
	})

	// 404处理
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	// 405处理
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), "")
	})
}
