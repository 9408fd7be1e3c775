package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/lifeos/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	CheckinWater = "water"
	CheckinStudy = "study"
	CheckinWalk  = "walk"

	CheckinPending  = "pending"
	CheckinAnswered = "answered"
	CheckinSkipped  = "skipped"

	maxRunHistory = 30
)

// checkinQuestions 定义每日生成的问题，顺序即写入顺序
var checkinQuestions = []struct {
	Type     string
	Question string
}{
	{Type: CheckinWater, Question: "How many glasses of water did you drink today?"},
	{Type: CheckinStudy, Question: "Did you study today? What did you focus on?"},
	{Type: CheckinWalk, Question: "Did you go for a walk today? For how long?"},
}

// GuardianService 负责每日 brain 运行与打卡问答
type GuardianService struct {
	db    *gorm.DB
	tasks *TaskService
	loc   *time.Location
	now   func() time.Time
}

// BrainRunResult 是一次 brain 运行的返回
type BrainRunResult struct {
	OK         bool
	RanAt      time.Time
	TargetDate string
	Notes      []string
}

// CheckinAnswer 定义回答打卡的输入；Answer 为 nil 时保留原答案
type CheckinAnswer struct {
	ID     string
	Status string
	Answer json.RawMessage
}

// NewGuardianService 构造 GuardianService，loc 决定“今天”的日期边界
func NewGuardianService(gdb *gorm.DB, tasks *TaskService, loc *time.Location) *GuardianService {
	if loc == nil {
		loc = time.Local
	}
	return &GuardianService{db: gdb, tasks: tasks, loc: loc, now: time.Now}
}

// Today 返回配置时区下的当前日期
func (s *GuardianService) Today() string {
	return DateIn(s.now(), s.loc)
}

// RunDaily 为指定日期生成打卡问题、汇总当天任务焦点，并记录一次运行。
// 重复运行是幂等的：已存在的打卡不会被覆盖。
func (s *GuardianService) RunDaily(ctx context.Context, userID, date string) (*BrainRunResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	date = strings.TrimSpace(date)
	if date == "" {
		date = s.Today()
	}
	if !IsValidDate(date) {
		return nil, validationError("invalid date %q", date)
	}

	ranAt := s.now()
	notes := make([]string, 0, len(Categories)+2)
	notes = append(notes, fmt.Sprintf("Brain run for %s", date))

	seeded, err := s.seedCheckins(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	notes = append(notes, fmt.Sprintf("Check-ins: %d new, %d total", seeded, len(checkinQuestions)))

	if s.tasks != nil {
		notes = append(notes, s.slotNotes(ctx, userID, date)...)
	}

	run := db.GuardianDailyRun{UserID: userID, RunDate: date, RanAt: ranAt, Notes: notes}
	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		return nil, storeError("record brain run", err)
	}

	log.Printf("[brain] user=%s date=%s seeded=%d", userID, date, seeded)
	return &BrainRunResult{OK: true, RanAt: ranAt, TargetDate: date, Notes: notes}, nil
}

// DailyJob 返回供调度器调用的任务函数，失败只记录日志。
func (s *GuardianService) DailyJob(userID string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if _, err := s.RunDaily(ctx, userID, ""); err != nil {
			log.Printf("[brain] scheduled run failed: %v", err)
		}
	}
}

// History 返回最近的运行记录，按日期与运行时间倒序，最多 30 条。
func (s *GuardianService) History(ctx context.Context, userID string, limit int) ([]db.GuardianDailyRun, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxRunHistory {
		limit = maxRunHistory
	}

	var runs []db.GuardianDailyRun
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("run_date DESC").
		Order("ran_at DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, storeError("list brain runs", err)
	}
	return runs, nil
}

// Checkins 返回指定日期（为空时取今天）的打卡，按类型排序。
func (s *GuardianService) Checkins(ctx context.Context, userID, date string) (string, []db.GuardianCheckin, error) {
	if err := requireUser(userID); err != nil {
		return "", nil, err
	}

	date = strings.TrimSpace(date)
	if date == "" {
		date = s.Today()
	}
	if !IsValidDate(date) {
		return "", nil, validationError("invalid date %q", date)
	}

	var checkins []db.GuardianCheckin
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND checkin_date = ?", userID, date).
		Order("type ASC").
		Find(&checkins).Error; err != nil {
		return date, nil, storeError("list checkins", err)
	}
	return date, checkins, nil
}

// Answer 更新单条打卡的状态与答案。
func (s *GuardianService) Answer(ctx context.Context, userID string, input CheckinAnswer) (*db.GuardianCheckin, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	input.ID = strings.TrimSpace(input.ID)
	input.Status = strings.ToLower(strings.TrimSpace(input.Status))
	if input.ID == "" || input.Status == "" {
		return nil, validationError("missing id or status")
	}
	if input.Status != CheckinAnswered && input.Status != CheckinSkipped {
		return nil, validationError("invalid status %q, must be %q or %q", input.Status, CheckinAnswered, CheckinSkipped)
	}
	if input.Answer != nil && !json.Valid(input.Answer) {
		return nil, validationError("answer must be valid JSON")
	}

	var checkin db.GuardianCheckin
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", input.ID, userID).First(&checkin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCheckinNotFound
		}
		return nil, storeError("get checkin", err)
	}

	checkin.Status = input.Status
	if input.Answer != nil {
		checkin.Answer = input.Answer
	}
	checkin.UpdatedAt = s.now()

	if err := s.db.WithContext(ctx).Save(&checkin).Error; err != nil {
		return nil, storeError("answer checkin", err)
	}
	return &checkin, nil
}

func (s *GuardianService) seedCheckins(ctx context.Context, userID, date string) (int, error) {
	seeded := 0
	for _, item := range checkinQuestions {
		checkin := db.GuardianCheckin{
			UserID:      userID,
			CheckinDate: date,
			Type:        item.Type,
			Status:      CheckinPending,
			Question:    item.Question,
		}
		result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "checkin_date"}, {Name: "type"}},
			DoNothing: true,
		}).Create(&checkin)
		if result.Error != nil {
			return seeded, storeError("seed checkin", result.Error)
		}
		seeded += int(result.RowsAffected)
	}
	return seeded, nil
}

// slotNotes 把当天各分类的焦点任务写进运行备注，读取失败只记一条备注不终止运行。
func (s *GuardianService) slotNotes(ctx context.Context, userID, date string) []string {
	view, err := s.tasks.Today(ctx, userID, date)
	if err != nil {
		log.Printf("[brain] resolve slots for %s: %v", date, err)
		return []string{fmt.Sprintf("Tasks unavailable: %v", err)}
	}

	notes := make([]string, 0, len(Categories))
	for _, category := range Categories {
		slot := view.Slots[category]
		if slot.Task == nil {
			notes = append(notes, fmt.Sprintf("%s: %s", category, slot.State))
			continue
		}
		notes = append(notes, fmt.Sprintf("%s: %s %q", category, slot.State, slot.Task.Title))
	}
	return notes
}
