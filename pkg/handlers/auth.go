package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"mm-schedule-backend/pkg/config"
	"mm-schedule-backend/pkg/database"
	"mm-schedule-backend/pkg/middleware"
	"mm-schedule-backend/pkg/models"
	"mm-schedule-backend/pkg/utils"

	"golang.org/x/crypto/bcrypt"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	config *config.Config
	db     database.DatabaseInterface
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config, db database.DatabaseInterface) *AuthHandler {
	return &AuthHandler{
		config: cfg,
		db:     db,
	}
}

// Register 用户注册
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.UserRegisterRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		utils.WriteValidationErrorResponse(w, "A valid email is required", "")
		return
	}
	if len(req.Password) < 8 {
		utils.WriteValidationErrorResponse(w, "Password must be at least 8 characters", "")
		return
	}

	// 检查邮箱是否已注册
	if _, err := h.db.GetUserByEmail(req.Email); err == nil {
		utils.WriteErrorResponseWithCode(w, http.StatusConflict, "EMAIL_TAKEN",
			"Email is already registered", "")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to hash password")
		return
	}

	user := &models.User{
		Email:    req.Email,
		Password: string(hash),
		Name:     strings.TrimSpace(req.Name),
	}
	if err := h.db.CreateUser(user); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create user: "+err.Error())
		return
	}

	h.writeLoginResponse(w, user)
}

// Login 用户登录
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.UserLoginRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	user, err := h.db.GetUserByEmail(strings.TrimSpace(req.Email))
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid email or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid email or password")
		return
	}

	h.writeLoginResponse(w, user)
}

// writeLoginResponse 签发令牌并返回登录响应
func (h *AuthHandler) writeLoginResponse(w http.ResponseWriter, user *models.User) {
	jwtService := utils.NewJWTService(h.config.JWTSecret)
	accessToken, refreshToken, expiresIn, err := jwtService.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to generate tokens: "+err.Error())
		return
	}

	utils.WriteSuccessResponse(w, models.UserLoginResponse{
		User:         *user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	})
}

// RefreshToken 刷新令牌
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshTokenRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		utils.WriteBadRequestResponse(w, "refresh_token is required")
		return
	}

	jwtService := utils.NewJWTService(h.config.JWTSecret)
	accessToken, expiresIn, err := jwtService.RefreshAccessToken(req.RefreshToken)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid or expired refresh token: "+err.Error())
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"access_token": accessToken,
		"expires_in":   expiresIn,
	})
}

// Me 返回当前登录用户
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	// token中只有ID和邮箱，补全用户资料
	full, err := h.db.GetUserByID(user.ID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "User not found")
		return
	}

	utils.WriteSuccessResponse(w, full)
}

// HealthCheck 健康检查
func (h *AuthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	dbStatus := "connected"

	if err := h.db.HealthCheck(); err != nil {
		status = "degraded"
		dbStatus = fmt.Sprintf("error: %v", err)
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"status":      status,
		"database":    dbStatus,
		"environment": h.config.Environment,
	})
}
