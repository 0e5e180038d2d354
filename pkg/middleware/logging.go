package middleware

import (
	"fmt"
	"net/http"
	"time"

	"mm-schedule-backend/pkg/config"

	"github.com/go-chi/chi/v5/middleware"
)

// Logger 创建日志中间件
func Logger(cfg *config.Config) func(http.Handler) http.Handler {
	if cfg.IsProduction() {
		return RequestLogger(cfg)
	}
	// 开发环境使用Chi的默认日志中间件
	return middleware.Logger
}

// RequestLogger 结构化请求日志中间件
func RequestLogger(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// 包装响应写入器以捕获状态码
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)

			// 获取用户信息（如果有）
			userInfo := "anonymous"
			if user, ok := GetUserFromContext(r.Context()); ok && user != nil {
				userInfo = user.Email
			}

			fmt.Printf(`{"time":"%s","method":"%s","path":"%s","status":%d,"duration":"%s","user":"%s","ip":"%s","user_agent":"%s"}`+"\n",
				time.Now().Format(time.RFC3339),
				r.Method,
				r.URL.Path,
				ww.Status(),
				duration,
				userInfo,
				getClientIP(r),
				r.UserAgent(),
			)
		})
	}
}

// getClientIP 获取客户端真实IP
func getClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
