package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultDatabasePath = "lifeos.db"
)

// DB 是一个全局的数据库连接实例
var DB *gorm.DB

// Options 描述打开数据库所需的参数。
type Options struct {
	Driver   string
	Path     string // sqlite 文件路径
	DSN      string // postgres 连接串
	LogLevel string
}

// Init 打开数据库连接并执行自动迁移，成功后写入全局 DB。
func Init(opts Options) (*gorm.DB, error) {
	gdb, err := Open(opts)
	if err != nil {
		return nil, err
	}

	if err := Migrate(gdb); err != nil {
		return nil, err
	}

	DB = gdb
	return gdb, nil
}

// Open 根据驱动类型建立连接，不做迁移。
func Open(opts Options) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(ParseLogLevel(opts.LogLevel))}

	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverSQLite:
		path := strings.TrimSpace(opts.Path)
		if path == "" {
			path = defaultDatabasePath
		}
		if err := ensureParentDir(path); err != nil {
			return nil, err
		}
		return gorm.Open(sqlite.Open(path), cfg)
	case DriverPostgres:
		dsn := strings.TrimSpace(opts.DSN)
		if dsn == "" {
			return nil, errors.New("postgres driver requires DATABASE_URL")
		}
		return gorm.Open(postgres.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

// Migrate 为核心模型创建或更新表结构。
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(Models()...)
}

// Models 返回需要迁移的全部模型，测试中也复用这份列表。
func Models() []any {
	return []any{
		&User{},
		&Task{},
		&TaskDayStatus{},
		&GuardianCheckin{},
		&GuardianDailyRun{},
		&MediaItem{},
	}
}

// ParseLogLevel 将配置中的字符串映射到 gorm 日志级别，未知值按 warn 处理。
func ParseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info", "debug":
		return logger.Info
	default:
		return logger.Warn
	}
}

func ensureParentDir(path string) error {
	if strings.HasPrefix(path, "file:") {
		return nil
	}

	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
