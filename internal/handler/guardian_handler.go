package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lifeos/internal/db"
	"github.com/lifeos/internal/service"
)

type brainRunRequest struct {
	Date string `json:"date"`
}

type checkinAnswerRequest struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Answer json.RawMessage `json:"answer"`
}

// RunBrain 手动触发 brain：GET 使用今天，POST 可在 body 中指定日期
func (a *API) RunBrain(c *gin.Context) {
	date := a.today()

	if c.Request.Method == http.MethodPost {
		var req brainRunRequest
		// body 解析失败时按今天运行
		if err := c.ShouldBindJSON(&req); err == nil {
			if parsed, ok := a.parseRunDate(req.Date); ok {
				date = parsed
			}
		}
	}

	result, err := a.guardian.RunDaily(c.Request.Context(), principal(c), date)
	if err != nil {
		a.respondBrainError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":         result.OK,
		"ranAt":      result.RanAt.Format(time.RFC3339),
		"targetDate": result.TargetDate,
		"notes":      result.Notes,
	})
}

// BrainHistory 返回最近的 brain 运行记录
func (a *API) BrainHistory(c *gin.Context) {
	runs, err := a.guardian.History(c.Request.Context(), principal(c), 0)
	if err != nil {
		a.respondBrainError(c, err, gin.H{"runs": []gin.H{}})
		return
	}

	items := make([]gin.H, 0, len(runs))
	for _, run := range runs {
		items = append(items, runToPayload(run))
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "runs": items})
}

// BrainCheckins 返回某天的打卡列表，默认今天
func (a *API) BrainCheckins(c *gin.Context) {
	date := strings.TrimSpace(c.Query("date"))
	if date == "" {
		date = a.today()
	}

	date, checkins, err := a.guardian.Checkins(c.Request.Context(), principal(c), date)
	if err != nil {
		extra := gin.H{"checkins": []gin.H{}, "date": nil}
		if date != "" {
			extra["date"] = date
		}
		a.respondBrainError(c, err, extra)
		return
	}

	items := make([]gin.H, 0, len(checkins))
	for _, checkin := range checkins {
		items = append(items, checkinToPayload(checkin))
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "date": date, "checkins": items})
}

// AnswerCheckin 更新单条打卡的状态与答案
func (a *API) AnswerCheckin(c *gin.Context) {
	var req checkinAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Missing id or status in request body.", "code": codeValidation})
		return
	}

	checkin, err := a.guardian.Answer(c.Request.Context(), principal(c), service.CheckinAnswer{
		ID:     req.ID,
		Status: req.Status,
		Answer: req.Answer,
	})
	if err != nil {
		a.respondBrainError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "checkin": checkinToPayload(*checkin)})
}

// parseRunDate 接受 YYYY-MM-DD 或 RFC3339 时间戳，后者按配置时区取日期
func (a *API) parseRunDate(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	if service.IsValidDate(value) {
		return value, true
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return service.DateIn(t, a.loc), true
	}
	return "", false
}

func (a *API) respondBrainError(c *gin.Context, err error, extra gin.H) {
	status, code, message := classifyError(err)
	if status >= http.StatusInternalServerError {
		c.Error(err)
	}

	payload := gin.H{"ok": false, "error": message, "code": code}
	for key, value := range extra {
		payload[key] = value
	}
	c.JSON(status, payload)
}

func runToPayload(run db.GuardianDailyRun) gin.H {
	notes := run.Notes
	if notes == nil {
		notes = []string{}
	}
	return gin.H{
		"id":         run.ID,
		"user_id":    run.UserID,
		"run_date":   run.RunDate,
		"ran_at":     run.RanAt.Format(time.RFC3339),
		"notes":      notes,
		"created_at": run.CreatedAt.Format(time.RFC3339),
	}
}

func checkinToPayload(checkin db.GuardianCheckin) gin.H {
	answer := checkin.Answer
	if len(answer) == 0 {
		answer = json.RawMessage("null")
	}
	return gin.H{
		"id":           checkin.ID,
		"user_id":      checkin.UserID,
		"checkin_date": checkin.CheckinDate,
		"type":         checkin.Type,
		"status":       checkin.Status,
		"question":     checkin.Question,
		"answer_json":  answer,
		"created_at":   checkin.CreatedAt.Format(time.RFC3339),
		"updated_at":   checkin.UpdatedAt.Format(time.RFC3339),
	}
}
