package database

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mm-schedule-backend/pkg/models"
)

// SupabaseDatabase Supabase数据库实现
type SupabaseDatabase struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewSupabaseDatabase 创建Supabase数据库实例
func NewSupabaseDatabase(rawURL, key string) DatabaseInterface {
	// 确保URL格式正确
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "https://" + rawURL
	}

	return &SupabaseDatabase{
		baseURL: rawURL,
		apiKey:  key,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// makeRequest 发送HTTP请求到Supabase
func (db *SupabaseDatabase) makeRequest(method, endpoint string, body interface{}) ([]byte, error) {
	var reqBody io.Reader

	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	reqURL := db.baseURL + "/rest/v1" + endpoint
	req, err := http.NewRequest(method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// 设置请求头
	req.Header.Set("apikey", db.apiKey)
	req.Header.Set("Authorization", "Bearer "+db.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := db.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// supabaseUser users表行结构（PostgREST）
type supabaseUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"password_hash"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r supabaseUser) toModel() *models.User {
	return &models.User{
		ID:        r.ID,
		Email:     r.Email,
		Password:  r.Password,
		Name:      r.Name,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// CreateUser 创建用户
func (db *SupabaseDatabase) CreateUser(user *models.User) error {
	payload := map[string]interface{}{
		"email":         user.Email,
		"password_hash": user.Password,
		"name":          user.Name,
	}
	data, err := db.makeRequest("POST", "/users", payload)
	if err != nil { return fmt.Errorf("failed to create user: %w", err) }
	var rows []supabaseUser
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return fmt.Errorf("failed to parse created user")
	}
	user.ID = rows[0].ID
	user.CreatedAt = rows[0].CreatedAt
	user.UpdatedAt = rows[0].UpdatedAt
	return nil
}

// GetUserByEmail 根据邮箱获取用户
func (db *SupabaseDatabase) GetUserByEmail(email string) (*models.User, error) {
	data, err := db.makeRequest("GET", "/users?email=eq."+url.QueryEscape(email)+"&select=*", nil)
	if err != nil { return nil, err }
	var rows []supabaseUser
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return nil, fmt.Errorf("user not found")
	}
	return rows[0].toModel(), nil
}

// GetUserByID 根据ID获取用户
func (db *SupabaseDatabase) GetUserByID(id string) (*models.User, error) {
	data, err := db.makeRequest("GET", "/users?id=eq."+id+"&select=*", nil)
	if err != nil { return nil, err }
	var rows []supabaseUser
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return nil, fmt.Errorf("user not found")
	}
	return rows[0].toModel(), nil
}

// supabaseProject projects表行结构（PostgREST）
type supabaseProject struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Schedule    json.RawMessage `json:"schedule"`
	ShareToken  *string         `json:"share_token"`
	ShareRole   *string         `json:"share_role"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (r supabaseProject) toModel() *models.Project {
	p := &models.Project{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Title:       r.Title,
		Description: r.Description,
		Schedule:    r.Schedule,
		ShareToken:  r.ShareToken,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.ShareRole != nil {
		role := models.CoerceShareRole(*r.ShareRole)
		p.ShareRole = &role
	}
	return p
}

// CreateProject 创建项目
func (db *SupabaseDatabase) CreateProject(project *models.Project) error {
	if len(project.Schedule) == 0 {
		raw, err := json.Marshal(models.DefaultSchedule())
		if err != nil { return fmt.Errorf("failed to marshal default schedule: %w", err) }
		project.Schedule = raw
	}
	payload := map[string]interface{}{
		"owner_id":    project.OwnerID,
		"title":       project.Title,
		"description": project.Description,
		"schedule":    json.RawMessage(project.Schedule),
	}
	data, err := db.makeRequest("POST", "/projects", payload)
	if err != nil { return fmt.Errorf("failed to create project: %w", err) }
	var rows []supabaseProject
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return fmt.Errorf("failed to parse created project")
	}
	project.ID = rows[0].ID
	project.CreatedAt = rows[0].CreatedAt
	project.UpdatedAt = rows[0].UpdatedAt
	return nil
}

// GetProject 根据ID获取项目
func (db *SupabaseDatabase) GetProject(id string) (*models.Project, error) {
	data, err := db.makeRequest("GET", "/projects?id=eq."+id+"&select=*", nil)
	if err != nil { return nil, err }
	var rows []supabaseProject
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return nil, fmt.Errorf("project not found")
	}
	return rows[0].toModel(), nil
}

// GetProjectByShareToken 根据分享令牌获取项目
func (db *SupabaseDatabase) GetProjectByShareToken(token string) (*models.Project, error) {
	data, err := db.makeRequest("GET", "/projects?share_token=eq."+url.QueryEscape(token)+"&select=*", nil)
	if err != nil { return nil, err }
	var rows []supabaseProject
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return nil, fmt.Errorf("project not found")
	}
	return rows[0].toModel(), nil
}

// ListProjectsByOwner 列出用户拥有的项目
func (db *SupabaseDatabase) ListProjectsByOwner(ownerID string) ([]models.Project, error) {
	data, err := db.makeRequest("GET", "/projects?owner_id=eq."+ownerID+"&select=*&order=updated_at.desc", nil)
	if err != nil { return nil, err }
	var rows []supabaseProject
	if err := json.Unmarshal(data, &rows); err != nil { return nil, err }
	projects := make([]models.Project, 0, len(rows))
	for _, r := range rows {
		projects = append(projects, *r.toModel())
	}
	return projects, nil
}

// UpdateProjectMeta 更新项目标题与描述
func (db *SupabaseDatabase) UpdateProjectMeta(project *models.Project) error {
	_, err := db.makeRequest("PATCH", "/projects?id=eq."+project.ID, map[string]interface{}{
		"title":       project.Title,
		"description": project.Description,
		"updated_at":  time.Now().UTC(),
	})
	return err
}

// DeleteProject 删除项目
func (db *SupabaseDatabase) DeleteProject(id string) error {
	_, err := db.makeRequest("DELETE", "/projects?id=eq."+id, nil)
	return err
}

// SaveProjectSchedule 整体保存日程快照
func (db *SupabaseDatabase) SaveProjectSchedule(projectID string, schedule models.ProjectSchedule) error {
	raw, err := json.Marshal(schedule)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}
	_, err = db.makeRequest("PATCH", "/projects?id=eq."+projectID, map[string]interface{}{
		"schedule":   json.RawMessage(raw),
		"updated_at": time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}
	return nil
}

// SetShareLink 设置分享令牌与角色
func (db *SupabaseDatabase) SetShareLink(projectID, token string, role models.ShareRole) error {
	_, err := db.makeRequest("PATCH", "/projects?id=eq."+projectID, map[string]interface{}{
		"share_token": token,
		"share_role":  string(role),
		"updated_at":  time.Now().UTC(),
	})
	return err
}

// ClearShareLink 清除分享令牌与角色
func (db *SupabaseDatabase) ClearShareLink(projectID string) error {
	_, err := db.makeRequest("PATCH", "/projects?id=eq."+projectID, map[string]interface{}{
		"share_token": nil,
		"share_role":  nil,
		"updated_at":  time.Now().UTC(),
	})
	return err
}

// supabaseCollaborator project_collaborators表行结构
type supabaseCollaborator struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (r supabaseCollaborator) toModel() models.ProjectCollaborator {
	return models.ProjectCollaborator{
		ID:        r.ID,
		ProjectID: r.ProjectID,
		UserID:    r.UserID,
		Role:      models.CoerceShareRole(r.Role),
		CreatedAt: r.CreatedAt,
	}
}

// AddCollaborator 添加协作者
func (db *SupabaseDatabase) AddCollaborator(c *models.ProjectCollaborator) error {
	// upsert-like: first try patch, if none matched then insert
	data, err := db.makeRequest("PATCH", "/project_collaborators?project_id=eq."+c.ProjectID+"&user_id=eq."+c.UserID,
		map[string]interface{}{"role": string(c.Role)})
	if err == nil {
		var rows []supabaseCollaborator
		if json.Unmarshal(data, &rows) == nil && len(rows) > 0 {
			c.ID = rows[0].ID
			c.CreatedAt = rows[0].CreatedAt
			return nil
		}
	}
	data, err = db.makeRequest("POST", "/project_collaborators", map[string]interface{}{
		"project_id": c.ProjectID,
		"user_id":    c.UserID,
		"role":       string(c.Role),
	})
	if err != nil { return fmt.Errorf("failed to add collaborator: %w", err) }
	var rows []supabaseCollaborator
	if json.Unmarshal(data, &rows) == nil && len(rows) > 0 {
		c.ID = rows[0].ID
		c.CreatedAt = rows[0].CreatedAt
	}
	return nil
}

// GetCollaborator 获取指定用户在项目中的协作记录
func (db *SupabaseDatabase) GetCollaborator(projectID, userID string) (*models.ProjectCollaborator, error) {
	data, err := db.makeRequest("GET", "/project_collaborators?project_id=eq."+projectID+"&user_id=eq."+userID+"&select=*", nil)
	if err != nil { return nil, err }
	var rows []supabaseCollaborator
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return nil, fmt.Errorf("collaborator not found")
	}
	c := rows[0].toModel()
	return &c, nil
}

// ListCollaborators 列出项目协作者
func (db *SupabaseDatabase) ListCollaborators(projectID string) ([]models.ProjectCollaborator, error) {
	data, err := db.makeRequest("GET", "/project_collaborators?project_id=eq."+projectID+"&select=*&order=created_at.asc", nil)
	if err != nil { return nil, err }
	var rows []supabaseCollaborator
	if err := json.Unmarshal(data, &rows); err != nil { return nil, err }
	collaborators := make([]models.ProjectCollaborator, 0, len(rows))
	for _, r := range rows {
		collaborators = append(collaborators, r.toModel())
	}
	return collaborators, nil
}

// supabaseInvite project_invites表行结构
type supabaseInvite struct {
	ID         string     `json:"id"`
	ProjectID  string     `json:"project_id"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	Token      string     `json:"token"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// CreateInvite 创建邀请
func (db *SupabaseDatabase) CreateInvite(inv *models.ProjectInvite) error {
	payload := map[string]interface{}{
		"project_id": inv.ProjectID,
		"email":      inv.Email,
		"role":       string(inv.Role),
		"token":      inv.Token,
		"expires_at": inv.ExpiresAt,
	}
	data, err := db.makeRequest("POST", "/project_invites", payload)
	if err != nil { return fmt.Errorf("failed to create invite: %w", err) }
	var rows []supabaseInvite
	if json.Unmarshal(data, &rows) == nil && len(rows) > 0 {
		inv.ID = rows[0].ID
		inv.CreatedAt = rows[0].CreatedAt
	}
	return nil
}

// ListInvitesByProject 列出项目邀请
func (db *SupabaseDatabase) ListInvitesByProject(projectID string) ([]models.ProjectInvite, error) {
	data, err := db.makeRequest("GET", "/project_invites?project_id=eq."+projectID+"&select=*&order=created_at.desc", nil)
	if err != nil { return nil, err }
	var rows []supabaseInvite
	if err := json.Unmarshal(data, &rows); err != nil { return nil, err }
	invites := make([]models.ProjectInvite, 0, len(rows))
	for _, r := range rows {
		invites = append(invites, models.ProjectInvite{
			ID:         r.ID,
			ProjectID:  r.ProjectID,
			Email:      r.Email,
			Role:       models.CoerceShareRole(r.Role),
			Token:      r.Token,
			ExpiresAt:  r.ExpiresAt,
			AcceptedAt: r.AcceptedAt,
			CreatedAt:  r.CreatedAt,
		})
	}
	return invites, nil
}

// HealthCheck 健康检查
func (db *SupabaseDatabase) HealthCheck() error {
	_, err := db.makeRequest("GET", "/users?select=id&limit=1", nil)
	return err
}

// Close 关闭连接（HTTP客户端无需显式关闭）
func (db *SupabaseDatabase) Close() error {
	return nil
}
