package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// SchedulerService 封装 cron 定时任务，目前只承载每日 brain 运行。
type SchedulerService struct {
	cron *cron.Cron
}

// NewSchedulerService 按配置时区创建调度器，loc 为 nil 时使用本地时区。
// 表达式带秒字段，与 buildDailySpec 生成的格式一致。
func NewSchedulerService(loc *time.Location) *SchedulerService {
	if loc == nil {
		loc = time.Local
	}
	return &SchedulerService{
		cron: cron.New(cron.WithLocation(loc), cron.WithSeconds()),
	}
}

// ScheduleDaily 在每天 HH:MM（调度器时区）执行 job，时间格式非法时返回错误且不注册。
func (s *SchedulerService) ScheduleDaily(timeStr string, job func()) (cron.EntryID, error) {
	spec, err := buildDailySpec(timeStr)
	if err != nil {
		return 0, err
	}
	return s.cron.AddFunc(spec, job)
}

// Entries 返回已注册的任务，便于启动日志与测试检查。
func (s *SchedulerService) Entries() []cron.Entry {
	return s.cron.Entries()
}

// Start 在后台启动调度，不阻塞调用方。
func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop 停止调度并等待正在执行的任务结束。
func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// buildDailySpec 将 "HH:MM" 转为带秒字段的每日 cron 表达式。
func buildDailySpec(timeStr string) (string, error) {
	parts := strings.Split(strings.TrimSpace(timeStr), ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", timeStr)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", timeStr)
	}
	// 秒 分 时 日 月 周
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}
