package service

import (
	"errors"
	"fmt"

	"github.com/lifeos/internal/db"
)

var (
	// ErrValidation 表示必填字段缺失或取值非法
	ErrValidation = errors.New("validation failed")
	// ErrStore 包装底层存储失败，消息保留存储层原文
	ErrStore = errors.New("store failure")

	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskDuplicate 表示同分类下已存在同名任务
	ErrTaskDuplicate = errors.New("duplicate task title in this category")

	ErrCheckinNotFound = errors.New("checkin not found")
	ErrMediaNotFound   = errors.New("media item not found")
)

// DuplicateError 携带冲突的既有任务，便于调用方回显。
type DuplicateError struct {
	Existing db.Task
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s: %q", ErrTaskDuplicate.Error(), e.Existing.Title)
}

func (e *DuplicateError) Unwrap() error {
	return ErrTaskDuplicate
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}
