package service

import (
	"cmp"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/lifeos/internal/db"
)

const (
	CategoryLife        = "life"
	CategoryWork        = "work"
	CategoryDistraction = "distraction"

	DayStatusDone    = "done"
	DayStatusSkipped = "skipped"

	SlotPending = "pending"
	SlotDone    = "done"
	SlotSkipped = "skipped"
	SlotEmpty   = "empty"

	RepeatNone = "none"

	DateLayout       = "2006-01-02"
	unscheduledLabel = "Unscheduled"
)

// Categories 按看板展示顺序列出全部分类。
var Categories = []string{CategoryLife, CategoryWork, CategoryDistraction}

// StatusResolution 是单个任务在完整列表中的展示状态。
type StatusResolution struct {
	State     string `json:"state"`
	Label     string `json:"label"`
	DateLabel string `json:"date_label"`
}

// Slot 描述某分类当天唯一的焦点任务。
type Slot struct {
	State          string
	Task           *db.Task
	CompletedTitle string
	Date           string
}

// DailySlots 以分类为键，三个分类总是齐全。
type DailySlots map[string]Slot

// ResolveStatus 取最新日期的状态记录决定任务状态；无有效记录时为 pending。
func ResolveStatus(task db.Task) StatusResolution {
	date, status, ok := latestStatus(task)
	if !ok {
		label := unscheduledLabel
		if task.DueDate != nil && IsValidDate(*task.DueDate) {
			label = *task.DueDate
		}
		return StatusResolution{State: SlotPending, Label: "Pending", DateLabel: label}
	}

	if status == DayStatusDone {
		return StatusResolution{State: SlotDone, Label: "Done", DateLabel: date}
	}
	return StatusResolution{State: SlotSkipped, Label: "Skipped", DateLabel: date}
}

// ResolveSlots 为每个分类挑选 today 的焦点任务并计算其展示状态。
// 选择顺序：置顶（优先级数字小者）> 今天到期 > 已逾期（最早到期）> 未排期（最早创建）。
func ResolveSlots(today string, tasks []db.Task) (DailySlots, error) {
	if !IsValidDate(today) {
		return nil, validationError("invalid date %q", today)
	}

	grouped := make(map[string][]candidate, len(Categories))
	for idx, task := range tasks {
		view := todayView(task, today)
		if !view.eligible {
			continue
		}
		tier, due := slotTier(task, today)
		if tier == tierNone {
			continue
		}
		grouped[task.Category] = append(grouped[task.Category], candidate{
			task:  &tasks[idx],
			view:  view,
			tier:  tier,
			due:   due,
			index: idx,
		})
	}

	slots := make(DailySlots, len(Categories))
	for _, category := range Categories {
		candidates := grouped[category]
		if len(candidates) == 0 {
			slots[category] = Slot{State: SlotEmpty}
			continue
		}

		slices.SortStableFunc(candidates, compareCandidates)
		picked := candidates[0]

		slot := Slot{State: picked.view.state, Task: picked.task, Date: picked.view.date}
		if slot.State == SlotDone {
			slot.CompletedTitle = picked.task.Title
		}
		slots[category] = slot
	}

	return slots, nil
}

// IsValidDate 判断字符串是否为零填充的 YYYY-MM-DD 日期。
func IsValidDate(value string) bool {
	if len(value) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, value)
	return err == nil
}

// IsValidCategory 判断分类是否属于固定枚举。
func IsValidCategory(category string) bool {
	return slices.Contains(Categories, category)
}

// DateIn 返回 t 在 loc 时区下的日期字符串。
func DateIn(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}

type dayView struct {
	eligible bool
	state    string
	date     string
}

const (
	tierPinned = iota
	tierDueToday
	tierOverdue
	tierUnscheduled
	tierNone
)

type candidate struct {
	task  *db.Task
	view  dayView
	tier  int
	due   string
	index int
}

// todayView 计算任务在 today 的状态。
// 重复任务只认 today 当天的记录。非重复任务最新记录早于 today 时：done 视为已结束，不参与选择；
// skipped 不算完成，任务回到 pending 继续参与选择。
func todayView(task db.Task, today string) dayView {
	if isRepeating(task) {
		if status, ok := task.StatusByDate[today]; ok && isDayStatus(status) {
			return dayView{eligible: true, state: status, date: today}
		}
		return dayView{eligible: true, state: SlotPending}
	}

	date, status, ok := latestStatus(task)
	if !ok {
		return dayView{eligible: true, state: SlotPending}
	}
	if date < today {
		if status == DayStatusSkipped {
			return dayView{eligible: true, state: SlotPending}
		}
		return dayView{}
	}
	return dayView{eligible: true, state: status, date: date}
}

func slotTier(task db.Task, today string) (int, string) {
	due := ""
	if task.DueDate != nil {
		if IsValidDate(*task.DueDate) {
			due = *task.DueDate
		} else {
			log.Printf("[todo] task %s: ignore malformed due_date %q", task.ID, *task.DueDate)
		}
	}

	switch {
	case task.Pinned:
		return tierPinned, due
	case due == today:
		return tierDueToday, due
	case due != "" && due < today:
		return tierOverdue, due
	case due == "":
		return tierUnscheduled, due
	default:
		return tierNone, due
	}
}

func compareCandidates(a, b candidate) int {
	if diff := cmp.Compare(a.tier, b.tier); diff != 0 {
		return diff
	}

	switch a.tier {
	case tierPinned:
		if diff := cmp.Compare(effectivePriority(*a.task), effectivePriority(*b.task)); diff != 0 {
			return diff
		}
		if diff := compareDue(a.due, b.due); diff != 0 {
			return diff
		}
	case tierDueToday:
		if diff := cmp.Compare(effectivePriority(*a.task), effectivePriority(*b.task)); diff != 0 {
			return diff
		}
	case tierOverdue:
		if diff := compareDue(a.due, b.due); diff != 0 {
			return diff
		}
		if diff := cmp.Compare(effectivePriority(*a.task), effectivePriority(*b.task)); diff != 0 {
			return diff
		}
	}

	if diff := a.task.CreatedAt.Compare(b.task.CreatedAt); diff != 0 {
		return diff
	}
	return cmp.Compare(a.index, b.index)
}

// compareDue 将未排期排在最后。
func compareDue(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	default:
		return cmp.Compare(a, b)
	}
}

// latestStatus 返回键最大的有效记录；零填充日期的字典序即时间序。
func latestStatus(task db.Task) (string, string, bool) {
	var latestDate, latest string
	for date, status := range task.StatusByDate {
		if !IsValidDate(date) || !isDayStatus(status) {
			log.Printf("[todo] task %s: ignore malformed status %q=%q", task.ID, date, status)
			continue
		}
		if date > latestDate {
			latestDate, latest = date, status
		}
	}
	return latestDate, latest, latestDate != ""
}

func isRepeating(task db.Task) bool {
	repeat := strings.ToLower(strings.TrimSpace(task.Repeat))
	return repeat != "" && repeat != RepeatNone
}

func isDayStatus(status string) bool {
	return status == DayStatusDone || status == DayStatusSkipped
}

func effectivePriority(task db.Task) int {
	if task.Priority < 1 || task.Priority > 3 {
		return defaultPriority
	}
	return task.Priority
}
