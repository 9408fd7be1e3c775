package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Task 定义了待办任务模型
// Category 固定为 life/work/distraction，创建后基本不变
// 同分类重名（去空格+小写后相同）由服务层检测，数据库不做唯一约束
// DueDate 使用 YYYY-MM-DD 字符串，便于与按日状态直接比较
// Repeat 目前只作为标签，每日重置当日状态
type Task struct {
	ID        string  `gorm:"primaryKey;size:36"`
	UserID    string  `gorm:"size:36;not null;index:idx_tasks_owner_category,priority:1"`
	Category  string  `gorm:"size:16;not null;index:idx_tasks_owner_category,priority:2"`
	Title     string  `gorm:"not null"`
	Note      *string `gorm:"type:text"`
	Priority  int     `gorm:"not null;default:2"`
	Pinned    bool    `gorm:"not null;default:false"`
	DueDate   *string `gorm:"size:10"`
	Repeat    string  `gorm:"size:16;not null;default:none"`
	CreatedAt time.Time
	UpdatedAt time.Time

	// StatusByDate 由读取时的状态记录填充，不落库
	StatusByDate map[string]string `gorm:"-"`
}

// BeforeCreate 为新任务分配 uuid。
func (t *Task) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// TaskDayStatus 记录任务在某一天的结果
// (task_id, date) 作为联合主键，重复写入即覆盖
// 删除任务时不级联，孤立记录在读取时被忽略
type TaskDayStatus struct {
	TaskID    string `gorm:"primaryKey;size:36"`
	Date      string `gorm:"primaryKey;size:10"`
	Status    string `gorm:"size:16;not null"`
	UpdatedAt time.Time
}

// TableName 与原有数据表保持一致
func (TaskDayStatus) TableName() string {
	return "task_day_status"
}
