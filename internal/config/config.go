package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// DefaultUserID 是单用户部署时使用的占位用户。
const DefaultUserID = "00000000-0000-0000-0000-000000000001"

// DevSessionSecret 是 SESSION_SECRET 的开发默认值，公开可见，不能用于需要登录的部署。
const DevSessionSecret = "lifeos-dev-secret"

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr string `env:"LISTEN_ADDR" env-default:":8080"`
	GinMode    string `env:"GIN_MODE" env-default:"release"`
	LogLevel   string `env:"LOG_LEVEL" env-default:"warn"`

	DatabaseDriver string `env:"DB_DRIVER" env-default:"sqlite"`
	DatabasePath   string `env:"DATABASE_PATH" env-default:"lifeos.db"`
	DatabaseURL    string `env:"DATABASE_URL"`

	SessionSecret string        `env:"SESSION_SECRET" env-default:"lifeos-dev-secret"`
	JWTSecret     string        `env:"JWT_SECRET"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" env-default:"720h"`

	DefaultUserID    string `env:"TODO_USER_ID" env-default:"00000000-0000-0000-0000-000000000001"`
	AllowDefaultUser bool   `env:"ALLOW_DEFAULT_USER" env-default:"true"`

	Timezone     string `env:"TIMEZONE" env-default:"Asia/Kuwait"`
	BrainEnabled bool   `env:"BRAIN_ENABLED" env-default:"true"`
	BrainRunAt   string `env:"BRAIN_RUN_AT" env-default:"06:00"`

	UploadDir     string `env:"UPLOAD_DIR" env-default:"web/static/uploads"`
	UploadURLPath string `env:"UPLOAD_URL_PATH" env-default:"/static/uploads"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`

	SuperRootUserName string `env:"SUPER_ROOT_USER_NAME"`
	SuperRootPassword string `env:"SUPER_ROOT_PASSWORD"`
}

// Load 先加载 .env.local/.env（若存在），再从环境变量读取应用配置并补齐默认值。
func Load() (AppConfig, error) {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Printf("[config] skip %s: %v", file, err)
		}
	}

	var cfg AppConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("read env: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if cfg.usesDevSecret() {
		log.Printf("[config] warning: SESSION_SECRET/JWT_SECRET use the public development default; set them before exposing the server")
	}
	return cfg, nil
}

func (c *AppConfig) normalize() {
	c.DatabaseDriver = strings.ToLower(strings.TrimSpace(c.DatabaseDriver))
	c.DefaultUserID = strings.TrimSpace(c.DefaultUserID)
	c.Timezone = strings.TrimSpace(c.Timezone)
	c.BrainRunAt = strings.TrimSpace(c.BrainRunAt)
	c.UploadURLPath = "/" + strings.Trim(strings.TrimSpace(c.UploadURLPath), "/")

	origins := make([]string, 0, len(c.CORSAllowedOrigins))
	for _, origin := range c.CORSAllowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	c.CORSAllowedOrigins = origins

	// JWT 未单独配置时沿用会话密钥
	if strings.TrimSpace(c.JWTSecret) == "" {
		c.JWTSecret = c.SessionSecret
	}
}

// Validate 检查组合配置是否可用。
func (c AppConfig) Validate() error {
	if c.DatabaseDriver == "postgres" && strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
	}
	if c.AllowDefaultUser && c.DefaultUserID == "" {
		return errors.New("TODO_USER_ID must not be empty when ALLOW_DEFAULT_USER is set")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	// 关闭默认用户后身份只来自会话与令牌，公开密钥等于允许伪造任意用户
	if !c.AllowDefaultUser && c.usesDevSecret() {
		return errors.New("SESSION_SECRET and JWT_SECRET must be set when ALLOW_DEFAULT_USER is false")
	}
	return nil
}

func (c AppConfig) usesDevSecret() bool {
	session := strings.TrimSpace(c.SessionSecret)
	jwt := strings.TrimSpace(c.JWTSecret)
	return session == "" || session == DevSessionSecret || jwt == "" || jwt == DevSessionSecret
}

// Location 返回配置时区，解析失败时回退到本地时区。
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
