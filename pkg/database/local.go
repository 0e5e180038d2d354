package database

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"mm-schedule-backend/pkg/models"

	"github.com/google/uuid"
)

// LocalDatabase 本地文件数据库实现
type LocalDatabase struct {
	dataDir string
	mu      sync.Mutex
}

// NewLocalDatabase 创建本地数据库实例
func NewLocalDatabase(dataDir string) DatabaseInterface {
	if dataDir == "" {
		dataDir = "./data"
	}

	// 尝试创建数据目录，如果失败则使用临时目录
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		fmt.Printf("Warning: Failed to create data directory: %v\n", err)
		dataDir = "/tmp/mm-schedule-data"
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			fmt.Printf("Warning: Failed to create temp data directory: %v\n", err)
			dataDir = "."
		}
	}

	return &LocalDatabase{
		dataDir: dataDir,
	}
}

// CreateUser 创建用户
func (db *LocalDatabase) CreateUser(user *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	users, err := db.loadUsers()
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.Email == user.Email {
			return fmt.Errorf("user already exists")
		}
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	users = append(users, *user)
	return db.saveUsers(users)
}

// GetUserByEmail 根据邮箱获取用户
func (db *LocalDatabase) GetUserByEmail(email string) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	users, err := db.loadUsers()
	if err != nil {
		return nil, err
	}
	for _, user := range users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user not found")
}

// GetUserByID 根据ID获取用户
func (db *LocalDatabase) GetUserByID(id string) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	users, err := db.loadUsers()
	if err != nil {
		return nil, err
	}
	for _, user := range users {
		if user.ID == id {
			u := user
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user not found")
}

// CreateProject 创建项目
func (db *LocalDatabase) CreateProject(project *models.Project) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	if len(project.Schedule) == 0 {
		raw, err := json.Marshal(models.DefaultSchedule())
		if err != nil {
			return err
		}
		project.Schedule = raw
	}
	project.CreatedAt = time.Now()
	project.UpdatedAt = time.Now()

	projects, err := db.loadProjects()
	if err != nil {
		return err
	}
	projects = append(projects, *project)
	return db.saveProjects(projects)
}

// GetProject 根据ID获取项目
func (db *LocalDatabase) GetProject(id string) (*models.Project, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	projects, err := db.loadProjects()
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		if p.ID == id {
			project := p
			return &project, nil
		}
	}
	return nil, fmt.Errorf("project not found")
}

// GetProjectByShareToken 根据分享令牌获取项目
func (db *LocalDatabase) GetProjectByShareToken(token string) (*models.Project, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	projects, err := db.loadProjects()
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		if p.ShareToken != nil && *p.ShareToken == token {
			project := p
			return &project, nil
		}
	}
	return nil, fmt.Errorf("project not found")
}

// ListProjectsByOwner 列出用户拥有的项目
func (db *LocalDatabase) ListProjectsByOwner(ownerID string) ([]models.Project, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	projects, err := db.loadProjects()
	if err != nil {
		return nil, err
	}
	var owned []models.Project
	for _, p := range projects {
		if p.OwnerID == ownerID {
			owned = append(owned, p)
		}
	}
	// 与 Postgres 实现保持一致：最近更新的在前
	sort.Slice(owned, func(i, j int) bool {
		return owned[i].UpdatedAt.After(owned[j].UpdatedAt)
	})
	return owned, nil
}

// UpdateProjectMeta 更新项目标题与描述
func (db *LocalDatabase) UpdateProjectMeta(project *models.Project) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.mutateProject(project.ID, func(p *models.Project) {
		p.Title = project.Title
		p.Description = project.Description
		project.UpdatedAt = p.UpdatedAt
	})
}

// DeleteProject 删除项目
func (db *LocalDatabase) DeleteProject(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	projects, err := db.loadProjects()
	if err != nil {
		return err
	}
	var kept []models.Project
	found := false
	for _, p := range projects {
		if p.ID == id {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		return fmt.Errorf("project not found")
	}
	return db.saveProjects(kept)
}

// SaveProjectSchedule 整体保存日程快照
func (db *LocalDatabase) SaveProjectSchedule(projectID string, schedule models.ProjectSchedule) error {
	raw, err := json.Marshal(schedule)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	return db.mutateProject(projectID, func(p *models.Project) {
		p.Schedule = raw
	})
}

// SetShareLink 设置分享令牌与角色
func (db *LocalDatabase) SetShareLink(projectID, token string, role models.ShareRole) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.mutateProject(projectID, func(p *models.Project) {
		p.ShareToken = &token
		r := role
		p.ShareRole = &r
	})
}

// ClearShareLink 清除分享令牌与角色
func (db *LocalDatabase) ClearShareLink(projectID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.mutateProject(projectID, func(p *models.Project) {
		p.ShareToken = nil
		p.ShareRole = nil
	})
}

// AddCollaborator 添加协作者（重复添加时更新角色）
func (db *LocalDatabase) AddCollaborator(c *models.ProjectCollaborator) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	collaborators, err := db.loadCollaborators()
	if err != nil {
		return err
	}
	for i, existing := range collaborators {
		if existing.ProjectID == c.ProjectID && existing.UserID == c.UserID {
			collaborators[i].Role = c.Role
			c.ID = existing.ID
			c.CreatedAt = existing.CreatedAt
			return db.saveCollaborators(collaborators)
		}
	}

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now()
	collaborators = append(collaborators, *c)
	return db.saveCollaborators(collaborators)
}

// GetCollaborator 获取指定用户在项目中的协作记录
func (db *LocalDatabase) GetCollaborator(projectID, userID string) (*models.ProjectCollaborator, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	collaborators, err := db.loadCollaborators()
	if err != nil {
		return nil, err
	}
	for _, c := range collaborators {
		if c.ProjectID == projectID && c.UserID == userID {
			out := c
			return &out, nil
		}
	}
	return nil, fmt.Errorf("collaborator not found")
}

// ListCollaborators 列出项目协作者
func (db *LocalDatabase) ListCollaborators(projectID string) ([]models.ProjectCollaborator, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	collaborators, err := db.loadCollaborators()
	if err != nil {
		return nil, err
	}
	var result []models.ProjectCollaborator
	for _, c := range collaborators {
		if c.ProjectID == projectID {
			result = append(result, c)
		}
	}
	return result, nil
}

// CreateInvite 创建邀请（允许同邮箱重复邀请）
func (db *LocalDatabase) CreateInvite(inv *models.ProjectInvite) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	inv.CreatedAt = time.Now()

	invites, err := db.loadInvites()
	if err != nil {
		return err
	}
	invites = append(invites, *inv)
	return db.saveInvites(invites)
}

// ListInvitesByProject 列出项目邀请
func (db *LocalDatabase) ListInvitesByProject(projectID string) ([]models.ProjectInvite, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	invites, err := db.loadInvites()
	if err != nil {
		return nil, err
	}
	var result []models.ProjectInvite
	for _, inv := range invites {
		if inv.ProjectID == projectID {
			result = append(result, inv)
		}
	}
	return result, nil
}

// HealthCheck 健康检查
func (db *LocalDatabase) HealthCheck() error {
	if _, err := os.Stat(db.dataDir); os.IsNotExist(err) {
		return fmt.Errorf("data directory does not exist: %s", db.dataDir)
	}
	return nil
}

// Close 关闭连接（本地数据库无需关闭）
func (db *LocalDatabase) Close() error {
	return nil
}

// 私有辅助方法

// mutateProject 调用方需持有锁
func (db *LocalDatabase) mutateProject(id string, fn func(*models.Project)) error {
	projects, err := db.loadProjects()
	if err != nil {
		return err
	}
	for i := range projects {
		if projects[i].ID == id {
			fn(&projects[i])
			projects[i].UpdatedAt = time.Now()
			return db.saveProjects(projects)
		}
	}
	return fmt.Errorf("project not found")
}

func (db *LocalDatabase) loadUsers() ([]models.User, error) {
	var users []models.User
	if err := db.loadJSON("users.json", &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (db *LocalDatabase) saveUsers(users []models.User) error {
	return db.saveJSON("users.json", users)
}

func (db *LocalDatabase) loadProjects() ([]models.Project, error) {
	var projects []models.Project
	if err := db.loadJSON("projects.json", &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (db *LocalDatabase) saveProjects(projects []models.Project) error {
	return db.saveJSON("projects.json", projects)
}

func (db *LocalDatabase) loadCollaborators() ([]models.ProjectCollaborator, error) {
	var collaborators []models.ProjectCollaborator
	if err := db.loadJSON("collaborators.json", &collaborators); err != nil {
		return nil, err
	}
	return collaborators, nil
}

func (db *LocalDatabase) saveCollaborators(collaborators []models.ProjectCollaborator) error {
	return db.saveJSON("collaborators.json", collaborators)
}

func (db *LocalDatabase) loadInvites() ([]models.ProjectInvite, error) {
	var invites []models.ProjectInvite
	if err := db.loadJSON("invites.json", &invites); err != nil {
		return nil, err
	}
	return invites, nil
}

func (db *LocalDatabase) saveInvites(invites []models.ProjectInvite) error {
	return db.saveJSON("invites.json", invites)
}

func (db *LocalDatabase) loadJSON(name string, out interface{}) error {
	data, err := os.ReadFile(filepath.Join(db.dataDir, name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (db *LocalDatabase) saveJSON(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(db.dataDir, name), data, 0644)
}
