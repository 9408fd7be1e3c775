package handler

import (
	"strings"
	"time"

	"github.com/lifeos/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db       *gorm.DB
	tasks    *service.TaskService
	guardian *service.GuardianService
	media    *service.MediaService

	loc              *time.Location
	now              func() time.Time
	defaultUserID    string
	allowDefaultUser bool
	tokenSecret      []byte
	tokenTTL         time.Duration
	uploadDir        string
	uploadURL        string
}

// Options 汇总构造 API 所需的运行参数。
type Options struct {
	Location         *time.Location
	DefaultUserID    string
	AllowDefaultUser bool
	TokenSecret      string
	TokenTTL         time.Duration
	UploadDir        string
	UploadURL        string
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, opts Options) *API {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}

	tasks := service.NewTaskService(gdb)
	return &API{
		db:               gdb,
		tasks:            tasks,
		guardian:         service.NewGuardianService(gdb, tasks, loc),
		media:            service.NewMediaService(gdb),
		loc:              loc,
		now:              time.Now,
		defaultUserID:    strings.TrimSpace(opts.DefaultUserID),
		allowDefaultUser: opts.AllowDefaultUser,
		tokenSecret:      []byte(opts.TokenSecret),
		tokenTTL:         ttl,
		uploadDir:        opts.UploadDir,
		uploadURL:        "/" + strings.Trim(opts.UploadURL, "/"),
	}
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}

// Guardian 暴露 brain 服务，供调度器复用同一实例。
func (a *API) Guardian() *service.GuardianService {
	return a.guardian
}

// today 返回配置时区下的当前日期。
func (a *API) today() string {
	return service.DateIn(a.now(), a.loc)
}
