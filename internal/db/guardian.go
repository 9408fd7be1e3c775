package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GuardianCheckin 是每日 brain 任务生成的问答记录。
// (user_id, checkin_date, type) 唯一，重复运行不会产生新行。
type GuardianCheckin struct {
	ID          string          `gorm:"primaryKey;size:36"`
	UserID      string          `gorm:"size:36;not null;uniqueIndex:idx_guardian_checkin_day,priority:1"`
	CheckinDate string          `gorm:"size:10;not null;uniqueIndex:idx_guardian_checkin_day,priority:2"`
	Type        string          `gorm:"size:16;not null;uniqueIndex:idx_guardian_checkin_day,priority:3"`
	Status      string          `gorm:"size:16;not null;default:pending"`
	Question    string          `gorm:"type:text"`
	Answer      json.RawMessage `gorm:"column:answer_json;type:text;serializer:json"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (c *GuardianCheckin) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// GuardianDailyRun 记录一次 brain 运行及其备注。
type GuardianDailyRun struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"size:36;index"`
	RunDate   string    `gorm:"size:10;not null;index"`
	RanAt     time.Time `gorm:"not null"`
	Notes     []string  `gorm:"type:text;serializer:json"`
	CreatedAt time.Time
}

func (r *GuardianDailyRun) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
