package database

import (
	"fmt"
	"os"

	"mm-schedule-backend/pkg/models"
)

// DatabaseInterface 定义数据库访问接口
type DatabaseInterface interface {
	// 用户管理
	CreateUser(user *models.User) error
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)

	// 项目管理
	CreateProject(project *models.Project) error
	GetProject(id string) (*models.Project, error)
	GetProjectByShareToken(token string) (*models.Project, error)
	ListProjectsByOwner(ownerID string) ([]models.Project, error)
	UpdateProjectMeta(project *models.Project) error
	DeleteProject(id string) error

	// 日程快照（整体保存，不做局部更新）
	SaveProjectSchedule(projectID string, schedule models.ProjectSchedule) error

	// 分享链接
	SetShareLink(projectID, token string, role models.ShareRole) error
	ClearShareLink(projectID string) error

	// 协作者
	AddCollaborator(c *models.ProjectCollaborator) error
	GetCollaborator(projectID, userID string) (*models.ProjectCollaborator, error)
	ListCollaborators(projectID string) ([]models.ProjectCollaborator, error)

	// 邀请
	CreateInvite(inv *models.ProjectInvite) error
	ListInvitesByProject(projectID string) ([]models.ProjectInvite, error)

	// 健康检查
	HealthCheck() error

	// 关闭连接
	Close() error
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	PostgresDSN  string
	SupabaseURL  string
	SupabaseKey  string
	LocalDataDir string
	Debug        bool
}

// NewDatabase 根据环境与配置选择数据库实现
func NewDatabase(config DatabaseConfig) DatabaseInterface {
	// 是否在 Vercel 生产环境
	isVercelProduction := isVercelEnvironment()

	if isVercelProduction {
		fmt.Printf("🧭 Detected Vercel production environment\n")

		// Vercel 优先使用 Supabase（避免 IPv6）
		if config.SupabaseURL != "" && config.SupabaseKey != "" {
			fmt.Printf("🚀  Using Supabase REST API (Vercel optimized)\n")
			return NewSupabaseDatabase(config.SupabaseURL, config.SupabaseKey)
		}

		// 次选 PostgreSQL
		if config.PostgresDSN != "" {
			fmt.Printf("🌐  Using PostgreSQL in Vercel (may have IPv6 issues)\n")
			return NewPostgresDatabase(config.PostgresDSN)
		}

		// 未配置受支持的数据库，直接失败
		panic("No valid database configured for Vercel environment. Please set SUPABASE_URL+SUPABASE_SERVICE_KEY or POSTGRES_DSN")
	}

	// 非 Vercel 环境：PostgreSQL > Supabase > 本地文件
	if config.PostgresDSN != "" {
		fmt.Printf("🗄️  Using PostgreSQL database\n")
		return NewPostgresDatabase(config.PostgresDSN)
	}

	if config.SupabaseURL != "" && config.SupabaseKey != "" {
		fmt.Printf("🧰  Using Supabase REST API\n")
		return NewSupabaseDatabase(config.SupabaseURL, config.SupabaseKey)
	}

	// 本地开发兜底：JSON 文件数据库
	dir := config.LocalDataDir
	if dir == "" {
		dir = "./data"
	}
	fmt.Printf("📁  Using local file database at %s\n", dir)
	return NewLocalDatabase(dir)
}

// isVercelEnvironment 内部检查 Vercel 环境
func isVercelEnvironment() bool {
	vercelEnv := os.Getenv("VERCEL_ENV")
	vercelURL := os.Getenv("VERCEL_URL")
	awsLambda := os.Getenv("AWS_LAMBDA_FUNCTION_NAME")
	return vercelEnv != "" || vercelURL != "" || awsLambda != ""
}
