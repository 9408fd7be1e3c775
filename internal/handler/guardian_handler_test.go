package handler

import (
	"net/http"
	"testing"
)

func TestRunBrainAndListCheckins(t *testing.T) {
	api := setupTestAPI(t)

	c, w := newJSONContext(http.MethodPost, "/api/brain/run", map[string]any{"date": "2027-01-09T23:30:00Z"})
	api.RunBrain(c)
	expectStatus(t, w, http.StatusOK)

	resp := decodeBody(t, w)
	if resp["ok"] != true || resp["targetDate"] != "2027-01-09" {
		t.Fatalf("unexpected run response: %v", resp)
	}
	if notes, _ := resp["notes"].([]any); len(notes) == 0 {
		t.Fatalf("expected notes, got %v", resp["notes"])
	}

	// 非法 body 回退到今天
	c, w = newJSONContext(http.MethodPost, "/api/brain/run", "{not json")
	api.RunBrain(c)
	expectStatus(t, w, http.StatusOK)
	if resp := decodeBody(t, w); resp["targetDate"] != "2027-01-10" {
		t.Fatalf("expected fallback to today, got %v", resp["targetDate"])
	}

	c, w = newJSONContext(http.MethodGet, "/api/brain/checkins?date=2027-01-09", nil)
	api.BrainCheckins(c)
	expectStatus(t, w, http.StatusOK)

	resp = decodeBody(t, w)
	checkins := resp["checkins"].([]any)
	if resp["date"] != "2027-01-09" || len(checkins) != 3 {
		t.Fatalf("unexpected check-ins: %v", resp)
	}

	c, w = newJSONContext(http.MethodGet, "/api/brain/history", nil)
	api.BrainHistory(c)
	expectStatus(t, w, http.StatusOK)
	if runs := decodeBody(t, w)["runs"].([]any); len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
}

func TestBrainCheckinsInvalidDate(t *testing.T) {
	api := setupTestAPI(t)

	c, w := newJSONContext(http.MethodGet, "/api/brain/checkins?date=yesterday", nil)
	api.BrainCheckins(c)
	expectStatus(t, w, http.StatusBadRequest)

	resp := decodeBody(t, w)
	if resp["ok"] != false || resp["code"] != codeValidation {
		t.Fatalf("unexpected error body: %v", resp)
	}
	if checkins, ok := resp["checkins"].([]any); !ok || len(checkins) != 0 {
		t.Fatalf("expected empty check-in list, got %v", resp["checkins"])
	}
}

func TestAnswerCheckin(t *testing.T) {
	api := setupTestAPI(t)

	c, w := newJSONContext(http.MethodGet, "/api/brain/run", nil)
	api.RunBrain(c)
	expectStatus(t, w, http.StatusOK)

	c, w = newJSONContext(http.MethodGet, "/api/brain/checkins", nil)
	api.BrainCheckins(c)
	expectStatus(t, w, http.StatusOK)
	first := decodeBody(t, w)["checkins"].([]any)[0].(map[string]any)

	c, w = newJSONContext(http.MethodPost, "/api/brain/checkins/answer", map[string]any{"id": first["id"]})
	api.AnswerCheckin(c)
	expectStatus(t, w, http.StatusBadRequest)

	c, w = newJSONContext(http.MethodPost, "/api/brain/checkins/answer", map[string]any{"id": "missing", "status": "answered"})
	api.AnswerCheckin(c)
	expectStatus(t, w, http.StatusNotFound)

	c, w = newJSONContext(http.MethodPost, "/api/brain/checkins/answer", map[string]any{
		"id":     first["id"],
		"status": "answered",
		"answer": map[string]any{"minutes": 30},
	})
	api.AnswerCheckin(c)
	expectStatus(t, w, http.StatusOK)

	checkin := decodeBody(t, w)["checkin"].(map[string]any)
	answer, ok := checkin["answer_json"].(map[string]any)
	if checkin["status"] != "answered" || !ok || answer["minutes"] != float64(30) {
		t.Fatalf("unexpected answered check-in: %v", checkin)
	}
}
