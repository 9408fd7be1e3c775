package service

import (
	"strings"

	"github.com/lifeos/internal/db"
)

// NormalizeTitle 仅用于重名比较：去首尾空白并转小写，展示仍用原标题。
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

func dedupeKey(category, title string) string {
	return category + "|" + NormalizeTitle(title)
}

// DedupeTasks 按 (分类, 规范化标题) 去重，保留首次出现的任务并维持原顺序。
// 调用方需按创建时间升序传入，才能保证最早创建的记录胜出。
func DedupeTasks(tasks []db.Task) []db.Task {
	seen := make(map[string]struct{}, len(tasks))
	deduped := make([]db.Task, 0, len(tasks))
	for _, task := range tasks {
		key := dedupeKey(task.Category, task.Title)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, task)
	}
	return deduped
}

// findDuplicate 在 tasks 中查找与 (category, title) 冲突的任务，excludeID 用于改名时跳过自身。
func findDuplicate(tasks []db.Task, category, title, excludeID string) *db.Task {
	key := NormalizeTitle(title)
	for idx := range tasks {
		task := &tasks[idx]
		if task.ID == excludeID || task.Category != category {
			continue
		}
		if NormalizeTitle(task.Title) == key {
			return task
		}
	}
	return nil
}
