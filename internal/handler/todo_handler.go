package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lifeos/internal/db"
	"github.com/lifeos/internal/service"
)

type taskRequest struct {
	Category string  `json:"category"`
	Title    string  `json:"title"`
	Note     *string `json:"note"`
	Priority *int    `json:"priority"`
	Pinned   bool    `json:"pinned"`
	DueDate  *string `json:"due_date"`
	Repeat   string  `json:"repeat"`
}

type quickAddRequest struct {
	Category string `json:"category"`
	Title    string `json:"title"`
	Date     string `json:"date"`
}

type dayStatusRequest struct {
	TaskID string `json:"task_id"`
	Date   string `json:"date"`
	Status string `json:"status"`
}

// GetTodos 返回去重后的任务及其按日状态
func (a *API) GetTodos(c *gin.Context) {
	snapshot, err := a.tasks.Snapshot(c.Request.Context(), principal(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	tasks := make([]gin.H, 0, len(snapshot.Tasks))
	for _, task := range snapshot.Tasks {
		tasks = append(tasks, taskToPayload(task))
	}

	statuses := make([]gin.H, 0, len(snapshot.Statuses))
	for _, status := range snapshot.Statuses {
		statuses = append(statuses, statusToPayload(status))
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "statuses": statuses})
}

// GetTodayTodos 返回每个分类当天的焦点任务
func (a *API) GetTodayTodos(c *gin.Context) {
	date := strings.TrimSpace(c.Query("date"))
	if date == "" {
		date = a.today()
	}

	view, err := a.tasks.Today(c.Request.Context(), principal(c), date)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	slots := gin.H{}
	for _, category := range service.Categories {
		slots[category] = slotToPayload(view.Slots[category])
	}

	c.JSON(http.StatusOK, gin.H{
		"date":     view.Date,
		"timezone": a.loc.String(),
		"slots":    slots,
	})
}

// CreateTodo 创建任务，重名时返回既有任务并标记 duplicate
func (a *API) CreateTodo(c *gin.Context) {
	var req taskRequest
	if !bindJSON(c, &req, "invalid task payload") {
		return
	}

	task, duplicate, err := a.tasks.Create(c.Request.Context(), principal(c), service.TaskInput{
		Category: req.Category,
		Title:    req.Title,
		Note:     req.Note,
		Priority: req.Priority,
		Pinned:   req.Pinned,
		DueDate:  req.DueDate,
		Repeat:   req.Repeat,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondTaskWrite(c, *task, duplicate)
}

// QuickAddTodo 看板快速添加，默认排期为今天
func (a *API) QuickAddTodo(c *gin.Context) {
	var req quickAddRequest
	if !bindJSON(c, &req, "invalid quick add payload") {
		return
	}

	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = a.today()
	}

	task, duplicate, err := a.tasks.QuickAdd(c.Request.Context(), principal(c), req.Category, req.Title, date)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondTaskWrite(c, *task, duplicate)
}

// UpdateTodo 部分更新任务；改名冲突返回 409 并附带冲突任务
func (a *API) UpdateTodo(c *gin.Context) {
	id := idFromRequest(c)
	if id == "" {
		respondError(c, http.StatusBadRequest, codeValidation, "Missing id")
		return
	}

	var raw map[string]json.RawMessage
	if !bindJSON(c, &raw, "invalid task patch") {
		return
	}

	patch, err := parseTaskPatch(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	task, err := a.tasks.Update(c.Request.Context(), principal(c), id, patch)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": taskToPayload(*task)})
}

// DeleteTodo 删除任务
func (a *API) DeleteTodo(c *gin.Context) {
	id := idFromRequest(c)
	if id == "" {
		respondError(c, http.StatusBadRequest, codeValidation, "Missing id")
		return
	}

	if err := a.tasks.Delete(c.Request.Context(), principal(c), id); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// UpsertTodoStatus 写入任务某天的 done/skipped 状态
func (a *API) UpsertTodoStatus(c *gin.Context) {
	var req dayStatusRequest
	if !bindJSON(c, &req, "Missing fields") {
		return
	}

	status, err := a.tasks.UpsertDayStatus(c.Request.Context(), principal(c), service.DayStatusInput{
		TaskID: req.TaskID,
		Date:   req.Date,
		Status: req.Status,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "status": statusToPayload(*status)})
}

// ClearTodoStatus 撤销任务某天的状态
func (a *API) ClearTodoStatus(c *gin.Context) {
	taskID := strings.TrimSpace(c.Query("task_id"))
	date := strings.TrimSpace(c.Query("date"))
	if taskID == "" || date == "" {
		respondError(c, http.StatusBadRequest, codeValidation, "Missing fields")
		return
	}

	if err := a.tasks.ClearDayStatus(c.Request.Context(), principal(c), taskID, date); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func respondTaskWrite(c *gin.Context, task db.Task, duplicate bool) {
	payload := gin.H{"task": taskToPayload(task)}
	if duplicate {
		payload["duplicate"] = true
	}
	c.JSON(http.StatusOK, payload)
}

// parseTaskPatch 区分“字段缺失”和“显式 null”：note/due_date 为 null 时清空。
func parseTaskPatch(raw map[string]json.RawMessage) (service.TaskPatch, error) {
	var patch service.TaskPatch
	empty := ""

	for key, value := range raw {
		isNull := bytes.Equal(bytes.TrimSpace(value), []byte("null"))

		switch key {
		case "category":
			patch.Category = new(string)
			if err := json.Unmarshal(value, patch.Category); err != nil {
				return patch, fmt.Errorf("invalid category")
			}
		case "title":
			patch.Title = new(string)
			if err := json.Unmarshal(value, patch.Title); err != nil {
				return patch, fmt.Errorf("invalid title")
			}
		case "note":
			if isNull {
				patch.Note = &empty
				continue
			}
			patch.Note = new(string)
			if err := json.Unmarshal(value, patch.Note); err != nil {
				return patch, fmt.Errorf("invalid note")
			}
		case "priority":
			patch.Priority = new(int)
			if err := json.Unmarshal(value, patch.Priority); err != nil {
				return patch, fmt.Errorf("invalid priority")
			}
		case "pinned":
			patch.Pinned = new(bool)
			if err := json.Unmarshal(value, patch.Pinned); err != nil {
				return patch, fmt.Errorf("invalid pinned")
			}
		case "due_date":
			if isNull {
				patch.DueDate = &empty
				continue
			}
			patch.DueDate = new(string)
			if err := json.Unmarshal(value, patch.DueDate); err != nil {
				return patch, fmt.Errorf("invalid due_date")
			}
		case "repeat":
			patch.Repeat = new(string)
			if err := json.Unmarshal(value, patch.Repeat); err != nil {
				return patch, fmt.Errorf("invalid repeat")
			}
		}
	}

	return patch, nil
}

func taskToPayload(task db.Task) gin.H {
	statusByDate := task.StatusByDate
	if statusByDate == nil {
		statusByDate = map[string]string{}
	}

	item := gin.H{
		"id":             task.ID,
		"user_id":        task.UserID,
		"category":       task.Category,
		"title":          task.Title,
		"note":           task.Note,
		"priority":       task.Priority,
		"pinned":         task.Pinned,
		"due_date":       task.DueDate,
		"repeat":         task.Repeat,
		"status_by_date": statusByDate,
		"resolution":     service.ResolveStatus(task),
		"created_at":     task.CreatedAt.Format(time.RFC3339),
		"updated_at":     task.UpdatedAt.Format(time.RFC3339),
	}

	if task.Note != nil {
		item["note_html"] = renderMarkdown(*task.Note)
	}

	return item
}

func statusToPayload(status db.TaskDayStatus) gin.H {
	return gin.H{
		"task_id": status.TaskID,
		"date":    status.Date,
		"status":  status.Status,
	}
}

func slotToPayload(slot service.Slot) gin.H {
	payload := gin.H{"state": slot.State}
	if slot.Task != nil {
		payload["task"] = taskToPayload(*slot.Task)
	}
	if slot.CompletedTitle != "" {
		payload["completed_title"] = slot.CompletedTitle
	}
	if slot.Date != "" {
		payload["date"] = slot.Date
	}
	return payload
}
