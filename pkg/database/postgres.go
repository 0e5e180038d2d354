package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mm-schedule-backend/pkg/models"

	_ "github.com/lib/pq"
)

// PostgresDatabase PostgreSQL数据库实现
type PostgresDatabase struct {
	db *sql.DB
}

// NewPostgresDatabase 创建PostgreSQL数据库实例
func NewPostgresDatabase(dsn string) DatabaseInterface {
	// 尝试多种连接策略来解决Vercel Lambda的IPv6问题
	// Sanitize DSN to avoid stray CR/LF from env values
	dsn = strings.TrimSpace(dsn)
	strategies := []string{
		addConnectionParams(dsn, "prefer_simple_protocol=true"),
		addConnectionParams(dsn, "prefer_simple_protocol=true&connect_timeout=10"),
		addConnectionParams(dsn, "sslmode=require&prefer_simple_protocol=true"),
		dsn, // 最后尝试原始DSN
	}

	var db *sql.DB
	var err error

	for i, strategy := range strategies {
		fmt.Printf("🔄 Trying connection strategy %d...\n", i+1)

		db, err = sql.Open("postgres", strategy)
		if err != nil {
			fmt.Printf("❌ Strategy %d failed to open: %v\n", i+1, err)
			continue
		}

		// 设置连接池参数，适合无服务器环境
		db.SetMaxOpenConns(5)                  // 限制最大连接数
		db.SetMaxIdleConns(2)                  // 限制空闲连接数
		db.SetConnMaxLifetime(5 * time.Minute) // 连接最大生命周期

		// 测试连接
		if err = db.Ping(); err != nil {
			fmt.Printf("❌ Strategy %d failed to ping: %v\n", i+1, err)
			db.Close()
			continue
		}

		fmt.Printf("✅ PostgreSQL connection established successfully with strategy %d\n", i+1)
		return &PostgresDatabase{db: db}
	}

	// 所有策略都失败了
	panic(fmt.Sprintf("Failed to connect to PostgreSQL with all strategies. Last error: %v", err))
}

// addConnectionParams 添加连接参数到DSN
func addConnectionParams(dsn, params string) string {
	if params == "" {
		return dsn
	}

	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}

	return dsn + separator + params
}

// CreateUser 创建用户
func (db *PostgresDatabase) CreateUser(user *models.User) error {
	query := `
		INSERT INTO public.users (email, password_hash, name, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	var createdAt, updatedAt time.Time
	err := db.db.QueryRow(query, user.Email, user.Password, user.Name).
		Scan(&user.ID, &createdAt, &updatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.CreatedAt = createdAt
	user.UpdatedAt = updatedAt
	return nil
}

// GetUserByEmail 根据邮箱获取用户
func (db *PostgresDatabase) GetUserByEmail(email string) (*models.User, error) {
	query := `
		SELECT id, email, COALESCE(password_hash,''), COALESCE(name,''), created_at, updated_at
		FROM public.users
		WHERE email = $1
	`
	var u models.User
	err := db.db.QueryRow(query, email).Scan(
		&u.ID, &u.Email, &u.Password, &u.Name, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &u, nil
}

// GetUserByID 根据ID获取用户
func (db *PostgresDatabase) GetUserByID(id string) (*models.User, error) {
	query := `
		SELECT id, email, COALESCE(name,''), created_at, updated_at
		FROM public.users
		WHERE id = $1
	`
	var u models.User
	err := db.db.QueryRow(query, id).Scan(
		&u.ID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// CreateProject 创建项目（初始日程使用默认空结构）
func (db *PostgresDatabase) CreateProject(project *models.Project) error {
	if len(project.Schedule) == 0 {
		raw, err := json.Marshal(models.DefaultSchedule())
		if err != nil {
			return fmt.Errorf("failed to marshal default schedule: %w", err)
		}
		project.Schedule = raw
	}
	query := `
		INSERT INTO public.projects (owner_id, title, description, schedule, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := db.db.QueryRow(query, project.OwnerID, project.Title, project.Description, []byte(project.Schedule)).
		Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetProject 根据ID获取项目
func (db *PostgresDatabase) GetProject(id string) (*models.Project, error) {
	query := `
		SELECT id, owner_id, title, COALESCE(description,''), schedule, share_token, share_role, created_at, updated_at
		FROM public.projects
		WHERE id = $1
	`
	return db.scanProject(db.db.QueryRow(query, id))
}

// GetProjectByShareToken 根据分享令牌获取项目
func (db *PostgresDatabase) GetProjectByShareToken(token string) (*models.Project, error) {
	query := `
		SELECT id, owner_id, title, COALESCE(description,''), schedule, share_token, share_role, created_at, updated_at
		FROM public.projects
		WHERE share_token = $1
	`
	return db.scanProject(db.db.QueryRow(query, token))
}

// scanProject 扫描单行项目记录
func (db *PostgresDatabase) scanProject(row *sql.Row) (*models.Project, error) {
	var p models.Project
	var schedule []byte
	var shareToken, shareRole sql.NullString
	err := row.Scan(
		&p.ID, &p.OwnerID, &p.Title, &p.Description, &schedule,
		&shareToken, &shareRole, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("project not found")
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	p.Schedule = json.RawMessage(schedule)
	if shareToken.Valid {
		p.ShareToken = &shareToken.String
	}
	if shareRole.Valid {
		role := models.CoerceShareRole(shareRole.String)
		p.ShareRole = &role
	}
	return &p, nil
}

// ListProjectsByOwner 列出用户拥有的项目
func (db *PostgresDatabase) ListProjectsByOwner(ownerID string) ([]models.Project, error) {
	query := `
		SELECT id, owner_id, title, COALESCE(description,''), schedule, share_token, share_role, created_at, updated_at
		FROM public.projects
		WHERE owner_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := db.db.Query(query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		var schedule []byte
		var shareToken, shareRole sql.NullString
		err := rows.Scan(
			&p.ID, &p.OwnerID, &p.Title, &p.Description, &schedule,
			&shareToken, &shareRole, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		p.Schedule = json.RawMessage(schedule)
		if shareToken.Valid {
			p.ShareToken = &shareToken.String
		}
		if shareRole.Valid {
			role := models.CoerceShareRole(shareRole.String)
			p.ShareRole = &role
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// UpdateProjectMeta 更新项目标题与描述
func (db *PostgresDatabase) UpdateProjectMeta(project *models.Project) error {
	if project.ID == "" {
		return fmt.Errorf("project ID is required for update")
	}
	query := `
		UPDATE public.projects
		SET title = $1,
		    description = $2,
		    updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at
	`
	err := db.db.QueryRow(query, project.Title, project.Description, project.ID).Scan(&project.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("project not found")
		}
		return fmt.Errorf("failed to update project: %w", err)
	}
	return nil
}

// DeleteProject 删除项目（协作者与邀请级联删除）
func (db *PostgresDatabase) DeleteProject(id string) error {
	result, err := db.db.Exec("DELETE FROM public.projects WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("project not found")
	}
	return nil
}

// SaveProjectSchedule 整体保存日程快照
func (db *PostgresDatabase) SaveProjectSchedule(projectID string, schedule models.ProjectSchedule) error {
	raw, err := json.Marshal(schedule)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}
	query := `
		UPDATE public.projects
		SET schedule = $1,
		    updated_at = NOW()
		WHERE id = $2
	`
	result, err := db.db.Exec(query, raw, projectID)
	if err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("project not found")
	}
	return nil
}

// SetShareLink 设置分享令牌与角色（覆盖旧值）
func (db *PostgresDatabase) SetShareLink(projectID, token string, role models.ShareRole) error {
	query := `
		UPDATE public.projects
		SET share_token = $1,
		    share_role = $2,
		    updated_at = NOW()
		WHERE id = $3
	`
	result, err := db.db.Exec(query, token, string(role), projectID)
	if err != nil {
		return fmt.Errorf("failed to set share link: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("project not found")
	}
	return nil
}

// ClearShareLink 清除分享令牌与角色
func (db *PostgresDatabase) ClearShareLink(projectID string) error {
	query := `
		UPDATE public.projects
		SET share_token = NULL,
		    share_role = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`
	result, err := db.db.Exec(query, projectID)
	if err != nil {
		return fmt.Errorf("failed to clear share link: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("project not found")
	}
	return nil
}

// AddCollaborator 添加协作者（同一用户重复添加时更新角色）
func (db *PostgresDatabase) AddCollaborator(c *models.ProjectCollaborator) error {
	query := `
		INSERT INTO public.project_collaborators (project_id, user_id, role, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (project_id, user_id)
		DO UPDATE SET role = EXCLUDED.role
		RETURNING id, created_at
	`
	err := db.db.QueryRow(query, c.ProjectID, c.UserID, string(c.Role)).
		Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add collaborator: %w", err)
	}
	return nil
}

// GetCollaborator 获取指定用户在项目中的协作记录
func (db *PostgresDatabase) GetCollaborator(projectID, userID string) (*models.ProjectCollaborator, error) {
	query := `
		SELECT id, project_id, user_id, role, created_at
		FROM public.project_collaborators
		WHERE project_id = $1 AND user_id = $2
	`
	var c models.ProjectCollaborator
	var role string
	err := db.db.QueryRow(query, projectID, userID).Scan(
		&c.ID, &c.ProjectID, &c.UserID, &role, &c.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("collaborator not found")
		}
		return nil, fmt.Errorf("failed to get collaborator: %w", err)
	}
	c.Role = models.CoerceShareRole(role)
	return &c, nil
}

// ListCollaborators 列出项目协作者
func (db *PostgresDatabase) ListCollaborators(projectID string) ([]models.ProjectCollaborator, error) {
	query := `
		SELECT id, project_id, user_id, role, created_at
		FROM public.project_collaborators
		WHERE project_id = $1
		ORDER BY created_at ASC
	`
	rows, err := db.db.Query(query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query collaborators: %w", err)
	}
	defer rows.Close()

	var collaborators []models.ProjectCollaborator
	for rows.Next() {
		var c models.ProjectCollaborator
		var role string
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.UserID, &role, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan collaborator: %w", err)
		}
		c.Role = models.CoerceShareRole(role)
		collaborators = append(collaborators, c)
	}
	return collaborators, nil
}

// CreateInvite 创建邀请（允许同邮箱重复邀请）
func (db *PostgresDatabase) CreateInvite(inv *models.ProjectInvite) error {
	query := `
		INSERT INTO public.project_invites (project_id, email, role, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`
	err := db.db.QueryRow(query, inv.ProjectID, inv.Email, string(inv.Role), inv.Token, inv.ExpiresAt).
		Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create invite: %w", err)
	}
	return nil
}

// ListInvitesByProject 列出项目邀请
func (db *PostgresDatabase) ListInvitesByProject(projectID string) ([]models.ProjectInvite, error) {
	query := `
		SELECT id, project_id, email, role, token, expires_at, accepted_at, created_at
		FROM public.project_invites
		WHERE project_id = $1
		ORDER BY created_at DESC
	`
	rows, err := db.db.Query(query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invites: %w", err)
	}
	defer rows.Close()

	var invites []models.ProjectInvite
	for rows.Next() {
		var inv models.ProjectInvite
		var role string
		var acceptedAt sql.NullTime
		err := rows.Scan(
			&inv.ID, &inv.ProjectID, &inv.Email, &role, &inv.Token,
			&inv.ExpiresAt, &acceptedAt, &inv.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invite: %w", err)
		}
		inv.Role = models.CoerceShareRole(role)
		if acceptedAt.Valid {
			t := acceptedAt.Time
			inv.AcceptedAt = &t
		}
		invites = append(invites, inv)
	}
	return invites, nil
}

// HealthCheck 健康检查
func (db *PostgresDatabase) HealthCheck() error {
	return db.db.Ping()
}

// Close 关闭数据库连接
func (db *PostgresDatabase) Close() error {
	return db.db.Close()
}
