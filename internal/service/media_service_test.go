package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
)

func seedMedia(t *testing.T, svc *MediaService, inputs ...MediaInput) []uint {
	t.Helper()
	ids := make([]uint, 0, len(inputs))
	for _, input := range inputs {
		item, err := svc.Create(context.Background(), testUserID, input)
		if err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
		ids = append(ids, item.ID)
	}
	return ids
}

func TestMediaServiceListFiltersAndSorts(t *testing.T) {
	gdb := setupTestDB(t)
	svc := NewMediaService(gdb)
	ctx := context.Background()

	ids := seedMedia(t, svc,
		MediaInput{Title: "Beach", URL: "/static/uploads/a.png", Tags: []string{"travel", "summer"}},
		MediaInput{Title: "Mountain", URL: "/static/uploads/b.png", Tags: []string{"travel"}},
		MediaInput{Title: "Desk", URL: "/static/uploads/c.png", Tags: []string{"work", " work "}},
	)

	result, err := svc.List(ctx, testUserID, MediaFilter{Tags: []string{"travel", "summer"}})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if result.Total != 1 || result.Items[0].Title != "Beach" {
		t.Fatalf("expected only Beach to match both tags, got %+v", result.Items)
	}

	for i := 0; i < 2; i++ {
		if _, err := svc.RecordView(ctx, testUserID, ids[1]); err != nil {
			t.Fatalf("RecordView returned error: %v", err)
		}
	}
	if _, err := svc.RecordView(ctx, testUserID, ids[2]); err != nil {
		t.Fatalf("RecordView returned error: %v", err)
	}
	if _, err := svc.SetFavorite(ctx, testUserID, ids[2], true); err != nil {
		t.Fatalf("SetFavorite returned error: %v", err)
	}

	result, err = svc.List(ctx, testUserID, MediaFilter{Sort: MediaSortMostViewed})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if result.Items[0].Title != "Mountain" || result.Items[0].ViewCount != 2 {
		t.Fatalf("expected Mountain first by views, got %+v", result.Items[0])
	}

	result, err = svc.List(ctx, testUserID, MediaFilter{Sort: MediaSortMostLoved})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if result.Items[0].Title != "Desk" || !result.Items[0].IsFavorite {
		t.Fatalf("expected favorite Desk first, got %+v", result.Items[0])
	}

	result, err = svc.List(ctx, testUserID, MediaFilter{Page: 2, PerPage: 2})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if result.TotalPages != 2 || len(result.Items) != 1 || result.Items[0].Title != "Beach" {
		t.Fatalf("unexpected second page: pages=%d items=%+v", result.TotalPages, result.Items)
	}

	result, err = svc.List(ctx, testUserID, MediaFilter{Search: "desk"})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("expected search to match Desk, got %d items", result.Total)
	}

	tags, err := svc.Tags(ctx, testUserID)
	if err != nil {
		t.Fatalf("Tags returned error: %v", err)
	}
	want := []string{"summer", "travel", "work"}
	if len(tags) != len(want) {
		t.Fatalf("expected tags %v, got %v", want, tags)
	}
	for idx := range want {
		if tags[idx] != want[idx] {
			t.Fatalf("expected tags %v, got %v", want, tags)
		}
	}
}

func TestMediaServiceOwnership(t *testing.T) {
	gdb := setupTestDB(t)
	svc := NewMediaService(gdb)
	ctx := context.Background()

	ids := seedMedia(t, svc, MediaInput{Title: "Private", URL: "https://example.com/p.jpg", Source: "remote"})

	if _, err := svc.Get(ctx, "user-2", ids[0]); !errors.Is(err, ErrMediaNotFound) {
		t.Fatalf("expected not found for another user, got %v", err)
	}
	if _, err := svc.RecordView(ctx, "user-2", ids[0]); !errors.Is(err, ErrMediaNotFound) {
		t.Fatalf("expected not found on foreign view, got %v", err)
	}
	if err := svc.Delete(ctx, "user-2", ids[0]); !errors.Is(err, ErrMediaNotFound) {
		t.Fatalf("expected not found on foreign delete, got %v", err)
	}

	item, err := svc.Get(ctx, testUserID, ids[0])
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if item.Source != MediaSourceRemote || item.Kind != MediaKindImage {
		t.Fatalf("unexpected normalized fields: %+v", item)
	}

	if err := svc.Delete(ctx, testUserID, ids[0]); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := svc.Get(ctx, testUserID, ids[0]); !errors.Is(err, ErrMediaNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestMediaServiceCreateValidation(t *testing.T) {
	gdb := setupTestDB(t)
	svc := NewMediaService(gdb)

	invalid := []MediaInput{
		{Title: "no url"},
		{URL: "/x.gif", Kind: "audio"},
		{URL: "/x.gif", Width: -1},
	}
	for _, input := range invalid {
		if _, err := svc.Create(context.Background(), testUserID, input); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", input, err)
		}
	}
}

func TestProbeImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 12, 7))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	width, height, format, err := ProbeImage(&buf)
	if err != nil {
		t.Fatalf("ProbeImage returned error: %v", err)
	}
	if width != 12 || height != 7 || format != "png" {
		t.Fatalf("unexpected probe result: %dx%d %s", width, height, format)
	}

	if _, _, _, err := ProbeImage(bytes.NewReader([]byte("not an image"))); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMediaServiceListHugePagination(t *testing.T) {
	gdb := setupTestDB(t)
	svc := NewMediaService(gdb)
	ctx := context.Background()

	seedMedia(t, svc,
		MediaInput{Title: "One", URL: "/static/uploads/1.png"},
		MediaInput{Title: "Two", URL: "/static/uploads/2.png"},
		MediaInput{Title: "Three", URL: "/static/uploads/3.png"},
	)

	tests := []struct {
		name        string
		filter      MediaFilter
		wantItems   int
		wantPerPage int
	}{
		{name: "per page capped", filter: MediaFilter{Page: 1, PerPage: math.MaxInt}, wantItems: 3, wantPerPage: maxMediaPerPage},
		{name: "second page of huge per page", filter: MediaFilter{Page: 2, PerPage: math.MaxInt}, wantItems: 0, wantPerPage: maxMediaPerPage},
		{name: "huge page", filter: MediaFilter{Page: math.MaxInt, PerPage: 24}, wantItems: 0, wantPerPage: 24},
		{name: "page just past the end", filter: MediaFilter{Page: 2, PerPage: 3}, wantItems: 0, wantPerPage: 3},
		{name: "partial last page", filter: MediaFilter{Page: 2, PerPage: 2}, wantItems: 1, wantPerPage: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.List(ctx, testUserID, tt.filter)
			if err != nil {
				t.Fatalf("List returned error: %v", err)
			}
			if len(result.Items) != tt.wantItems {
				t.Fatalf("expected %d items, got %d", tt.wantItems, len(result.Items))
			}
			if result.PerPage != tt.wantPerPage {
				t.Fatalf("expected per_page %d, got %d", tt.wantPerPage, result.PerPage)
			}
			if result.Total != 3 {
				t.Fatalf("expected total 3, got %d", result.Total)
			}
		})
	}
}
