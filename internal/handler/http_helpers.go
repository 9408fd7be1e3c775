package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lifeos/internal/service"
)

// 稳定的错误码，前端据此分支处理
const (
	codeValidation   = "validation"
	codeNotFound     = "not_found"
	codeConflict     = "conflict"
	codeStore        = "store"
	codeUnauthorized = "unauthorized"
	codeInternal     = "internal"
)

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": message, "code": code})
}

// classifyError 将服务层错误映射为 HTTP 状态、错误码与消息。
func classifyError(err error) (int, string, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, codeValidation, err.Error()
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrCheckinNotFound),
		errors.Is(err, service.ErrMediaNotFound):
		return http.StatusNotFound, codeNotFound, "Not found"
	case errors.Is(err, service.ErrTaskDuplicate):
		return http.StatusConflict, codeConflict, "Duplicate task title in this category"
	case errors.Is(err, service.ErrStore):
		return http.StatusInternalServerError, codeStore, err.Error()
	default:
		return http.StatusInternalServerError, codeInternal, "操作失败"
	}
}

func respondServiceError(c *gin.Context, err error) {
	status, code, message := classifyError(err)
	if status >= http.StatusInternalServerError {
		c.Error(err)
	}

	payload := gin.H{"error": message, "code": code}
	var dup *service.DuplicateError
	if errors.As(err, &dup) {
		payload["task"] = taskToPayload(dup.Existing)
	}
	c.JSON(status, payload)
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

// idFromRequest 兼容 /:id 路径参数与 ?id= 查询参数两种写法。
func idFromRequest(c *gin.Context) string {
	if id := strings.TrimSpace(c.Param("id")); id != "" {
		return id
	}
	return strings.TrimSpace(c.Query("id"))
}

func queryValues(values []string) []string {
	out := make([]string, 0, len(values))
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
