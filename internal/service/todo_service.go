package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/lifeos/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultPriority = 2

// Repeats 列出支持的重复标签，目前仅影响“当天状态每日重置”。
var Repeats = []string{RepeatNone, "daily", "weekly", "monthly"}

// TaskService 负责任务与按日状态的读写
// 所有操作都显式接收 userID，服务内部不假设默认用户
type TaskService struct {
	db *gorm.DB
}

// TaskInput 定义创建任务时可配置字段
type TaskInput struct {
	Category string
	Title    string
	Note     *string
	Priority *int
	Pinned   bool
	DueDate  *string
	Repeat   string
}

// TaskPatch 定义部分更新，nil 字段保持原值；Note/DueDate 传空字符串表示清空
type TaskPatch struct {
	Category *string
	Title    *string
	Note     *string
	Priority *int
	Pinned   *bool
	DueDate  *string
	Repeat   *string
}

// DayStatusInput 描述一次按日状态写入
type DayStatusInput struct {
	TaskID string
	Date   string
	Status string
}

// TaskSnapshot 是一次读取得到的去重任务及其状态记录
type TaskSnapshot struct {
	Tasks    []db.Task
	Statuses []db.TaskDayStatus
}

// TodayView 汇总看板当天所需数据
type TodayView struct {
	Date  string
	Slots DailySlots
	Tasks []db.Task
}

// NewTaskService 构造 TaskService
func NewTaskService(gdb *gorm.DB) *TaskService {
	return &TaskService{db: gdb}
}

// Snapshot 返回用户去重后的任务（按创建时间升序）以及这些任务的状态记录。
func (s *TaskService) Snapshot(ctx context.Context, userID string) (*TaskSnapshot, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	var tasks []db.Task
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&tasks).Error; err != nil {
		return nil, storeError("list tasks", err)
	}

	tasks = DedupeTasks(tasks)
	snapshot := &TaskSnapshot{Tasks: tasks, Statuses: []db.TaskDayStatus{}}
	if len(tasks) == 0 {
		return snapshot, nil
	}

	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}

	if err := s.db.WithContext(ctx).
		Where("task_id IN ?", ids).
		Order("date ASC").
		Find(&snapshot.Statuses).Error; err != nil {
		return nil, storeError("list task statuses", err)
	}

	attachStatuses(snapshot.Tasks, snapshot.Statuses)
	return snapshot, nil
}

// Today 读取快照并解析每个分类当天的焦点任务。
func (s *TaskService) Today(ctx context.Context, userID, today string) (*TodayView, error) {
	if !IsValidDate(today) {
		return nil, validationError("invalid date %q", today)
	}

	snapshot, err := s.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	slots, err := ResolveSlots(today, snapshot.Tasks)
	if err != nil {
		return nil, err
	}

	return &TodayView{Date: today, Slots: slots, Tasks: snapshot.Tasks}, nil
}

// Create 新建任务；同分类已有同名任务时返回既有记录并标记 duplicate。
func (s *TaskService) Create(ctx context.Context, userID string, input TaskInput) (*db.Task, bool, error) {
	if err := requireUser(userID); err != nil {
		return nil, false, err
	}

	task, err := buildTask(userID, input)
	if err != nil {
		return nil, false, err
	}

	siblings, err := s.listCategory(ctx, userID, task.Category)
	if err != nil {
		return nil, false, err
	}
	if existing := findDuplicate(siblings, task.Category, task.Title, ""); existing != nil {
		return existing, true, nil
	}

	if err := s.db.WithContext(ctx).Create(&task).Error; err != nil {
		return nil, false, storeError("create task", err)
	}
	return &task, false, nil
}

// QuickAdd 从看板快速添加，任务默认排期在 today。
func (s *TaskService) QuickAdd(ctx context.Context, userID, category, title, today string) (*db.Task, bool, error) {
	if !IsValidDate(today) {
		return nil, false, validationError("invalid date %q", today)
	}
	return s.Create(ctx, userID, TaskInput{Category: category, Title: title, DueDate: &today})
}

// Update 应用部分更新；改名或换分类后与其他任务冲突时返回 *DuplicateError，存储保持不变。
func (s *TaskService) Update(ctx context.Context, userID, id string, patch TaskPatch) (*db.Task, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, validationError("id is required")
	}

	current, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	updated := *current
	if err := applyPatch(&updated, patch); err != nil {
		return nil, err
	}

	if updated.Category != current.Category || NormalizeTitle(updated.Title) != NormalizeTitle(current.Title) {
		siblings, err := s.listCategory(ctx, userID, updated.Category)
		if err != nil {
			return nil, err
		}
		if existing := findDuplicate(siblings, updated.Category, updated.Title, id); existing != nil {
			return nil, &DuplicateError{Existing: *existing}
		}
	}

	updated.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&updated).Error; err != nil {
		return nil, storeError("update task", err)
	}
	return &updated, nil
}

// Delete 删除任务，状态记录保留但读取时忽略。
func (s *TaskService) Delete(ctx context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return validationError("id is required")
	}

	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&db.Task{})
	if result.Error != nil {
		return storeError("delete task", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// UpsertDayStatus 校验归属后写入 (task_id, date) 的状态，已有记录直接覆盖。
func (s *TaskService) UpsertDayStatus(ctx context.Context, userID string, input DayStatusInput) (*db.TaskDayStatus, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	input.TaskID = strings.TrimSpace(input.TaskID)
	input.Date = strings.TrimSpace(input.Date)
	input.Status = strings.ToLower(strings.TrimSpace(input.Status))
	if input.TaskID == "" || input.Date == "" || input.Status == "" {
		return nil, validationError("task_id, date and status are required")
	}
	if !IsValidDate(input.Date) {
		return nil, validationError("invalid date %q", input.Date)
	}
	if !isDayStatus(input.Status) {
		return nil, validationError("unsupported status %q", input.Status)
	}

	if _, err := s.get(ctx, userID, input.TaskID); err != nil {
		return nil, err
	}

	record := db.TaskDayStatus{TaskID: input.TaskID, Date: input.Date, Status: input.Status}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "task_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(&record).Error; err != nil {
		return nil, storeError("upsert task status", err)
	}

	return &record, nil
}

// ClearDayStatus 撤销某天的状态记录，记录不存在时视为成功。
func (s *TaskService) ClearDayStatus(ctx context.Context, userID, taskID, date string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if strings.TrimSpace(taskID) == "" || !IsValidDate(date) {
		return validationError("task_id and a valid date are required")
	}

	if _, err := s.get(ctx, userID, taskID); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).
		Where("task_id = ? AND date = ?", taskID, date).
		Delete(&db.TaskDayStatus{}).Error; err != nil {
		return storeError("clear task status", err)
	}
	return nil
}

func (s *TaskService) get(ctx context.Context, userID, id string) (*db.Task, error) {
	var task db.Task
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, storeError("get task", err)
	}
	return &task, nil
}

func (s *TaskService) listCategory(ctx context.Context, userID, category string) ([]db.Task, error) {
	var tasks []db.Task
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND category = ?", userID, category).
		Order("created_at ASC").
		Order("id ASC").
		Find(&tasks).Error; err != nil {
		return nil, storeError("list category tasks", err)
	}
	return tasks, nil
}

func buildTask(userID string, input TaskInput) (db.Task, error) {
	task := db.Task{
		UserID:   userID,
		Category: strings.ToLower(strings.TrimSpace(input.Category)),
		Title:    strings.TrimSpace(input.Title),
		Note:     normalizeOptional(input.Note),
		Priority: defaultPriority,
		Pinned:   input.Pinned,
		DueDate:  normalizeOptional(input.DueDate),
		Repeat:   strings.ToLower(strings.TrimSpace(input.Repeat)),
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	if task.Repeat == "" {
		task.Repeat = RepeatNone
	}

	if err := validateTask(task); err != nil {
		return db.Task{}, err
	}
	return task, nil
}

func applyPatch(task *db.Task, patch TaskPatch) error {
	if patch.Category != nil {
		task.Category = strings.ToLower(strings.TrimSpace(*patch.Category))
	}
	if patch.Title != nil {
		task.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Note != nil {
		task.Note = normalizeOptional(patch.Note)
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.Pinned != nil {
		task.Pinned = *patch.Pinned
	}
	if patch.DueDate != nil {
		task.DueDate = normalizeOptional(patch.DueDate)
	}
	if patch.Repeat != nil {
		task.Repeat = strings.ToLower(strings.TrimSpace(*patch.Repeat))
		if task.Repeat == "" {
			task.Repeat = RepeatNone
		}
	}
	return validateTask(*task)
}

func validateTask(task db.Task) error {
	if task.Category == "" {
		return validationError("category is required")
	}
	if !IsValidCategory(task.Category) {
		return validationError("unsupported category %q", task.Category)
	}
	if task.Title == "" {
		return validationError("title is required")
	}
	if task.Priority < 1 || task.Priority > 3 {
		return validationError("priority must be between 1 and 3")
	}
	if task.DueDate != nil && !IsValidDate(*task.DueDate) {
		return validationError("invalid due_date %q", *task.DueDate)
	}
	if !slices.Contains(Repeats, task.Repeat) {
		return validationError("unsupported repeat %q", task.Repeat)
	}
	return nil
}

func attachStatuses(tasks []db.Task, statuses []db.TaskDayStatus) {
	index := make(map[string]int, len(tasks))
	for idx := range tasks {
		tasks[idx].StatusByDate = map[string]string{}
		index[tasks[idx].ID] = idx
	}
	for _, status := range statuses {
		if idx, ok := index[status.TaskID]; ok {
			tasks[idx].StatusByDate[status.Date] = status.Status
		}
	}
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return validationError("user id is required")
	}
	return nil
}
