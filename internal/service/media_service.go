package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"slices"
	"strings"

	"github.com/lifeos/internal/db"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"gorm.io/gorm"
)

const (
	MediaKindImage = "image"
	MediaKindVideo = "video"

	MediaSortRecent     = "recent"
	MediaSortMostViewed = "most_viewed"
	MediaSortMostLoved  = "most_loved"

	MediaSourceLocal  = "local"
	MediaSourceRemote = "remote"

	maxMediaPerPage = 100
)

// MediaService handles the media catalog behind the gallery viewer.
type MediaService struct {
	db *gorm.DB
}

// MediaFilter describes filters for listing media items.
// Every tag in Tags must be present on an item for it to match.
type MediaFilter struct {
	Search  string
	Tags    []string
	Sort    string
	Page    int
	PerPage int
}

// MediaListResult aggregates paginated media results.
type MediaListResult struct {
	Items      []db.MediaItem
	Total      int64
	TotalPages int
	Page       int
	PerPage    int
}

// MediaInput represents fields accepted when creating a media item.
type MediaInput struct {
	Title       string
	Description string
	URL         string
	Kind        string
	Width       int
	Height      int
	Tags        []string
	Source      string
}

// NewMediaService creates a MediaService instance.
func NewMediaService(gdb *gorm.DB) *MediaService {
	return &MediaService{db: gdb}
}

// List returns media items matching the filter, sorted and paginated.
func (s *MediaService) List(ctx context.Context, userID string, filter MediaFilter) (MediaListResult, error) {
	result := MediaListResult{
		Page:    normalizePage(filter.Page),
		PerPage: normalizePerPage(filter.PerPage, 24),
	}
	if err := requireUser(userID); err != nil {
		return result, err
	}

	query := s.db.WithContext(ctx).Model(&db.MediaItem{}).Where("user_id = ?", userID)
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("title LIKE ? OR description LIKE ?", like, like)
	}

	var items []db.MediaItem
	if err := query.Order("created_at desc").Order("id desc").Find(&items).Error; err != nil {
		return result, storeError("list media", err)
	}

	items = filterByTags(items, normalizeTags(filter.Tags))
	sortMedia(items, filter.Sort)

	result.Total = int64(len(items))
	result.TotalPages = calculateTotalPages(result.Total, result.PerPage)

	result.Items = pageSlice(items, result.Page, result.PerPage)

	return result, nil
}

// Tags returns every distinct tag used by the user's media, sorted.
func (s *MediaService) Tags(ctx context.Context, userID string) ([]string, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	var items []db.MediaItem
	if err := s.db.WithContext(ctx).Select("tags").Where("user_id = ?", userID).Find(&items).Error; err != nil {
		return nil, storeError("list media tags", err)
	}

	set := make(map[string]struct{})
	for _, item := range items {
		for _, tag := range item.Tags {
			set[tag] = struct{}{}
		}
	}

	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags, nil
}

// Get fetches a media item by id.
func (s *MediaService) Get(ctx context.Context, userID string, id uint) (*db.MediaItem, error) {
	var item db.MediaItem
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, storeError("get media", err)
	}
	return &item, nil
}

// Create inserts a new media item.
func (s *MediaService) Create(ctx context.Context, userID string, input MediaInput) (*db.MediaItem, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := validateMediaInput(input); err != nil {
		return nil, err
	}

	item := db.MediaItem{
		UserID:      userID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		URL:         strings.TrimSpace(input.URL),
		Kind:        normalizeMediaKind(input.Kind),
		Width:       input.Width,
		Height:      input.Height,
		Tags:        normalizeTags(input.Tags),
		Source:      normalizeMediaSource(input.Source),
	}

	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, storeError("create media", err)
	}
	return &item, nil
}

// Delete removes a media item.
func (s *MediaService) Delete(ctx context.Context, userID string, id uint) error {
	item, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(item).Error; err != nil {
		return storeError("delete media", err)
	}
	return nil
}

// RecordView increments the view counter and returns the updated item.
func (s *MediaService) RecordView(ctx context.Context, userID string, id uint) (*db.MediaItem, error) {
	result := s.db.WithContext(ctx).Model(&db.MediaItem{}).
		Where("id = ? AND user_id = ?", id, userID).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	if result.Error != nil {
		return nil, storeError("record media view", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrMediaNotFound
	}
	return s.Get(ctx, userID, id)
}

// SetFavorite marks or unmarks a media item as favorite.
func (s *MediaService) SetFavorite(ctx context.Context, userID string, id uint, favorite bool) (*db.MediaItem, error) {
	item, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(item).Update("is_favorite", favorite).Error; err != nil {
		return nil, storeError("update media favorite", err)
	}
	item.IsFavorite = favorite
	return item, nil
}

// ProbeImage reads only the image header and returns its dimensions and format.
func ProbeImage(r io.Reader) (int, int, string, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, "", fmt.Errorf("%w: unsupported image: %v", ErrValidation, err)
	}
	return cfg.Width, cfg.Height, format, nil
}

func validateMediaInput(input MediaInput) error {
	if strings.TrimSpace(input.URL) == "" {
		return validationError("url is required")
	}
	kind := normalizeMediaKind(input.Kind)
	if kind != MediaKindImage && kind != MediaKindVideo {
		return validationError("unsupported media kind %q", input.Kind)
	}
	if input.Width < 0 || input.Height < 0 {
		return validationError("dimensions must not be negative")
	}
	return nil
}

func normalizeMediaKind(kind string) string {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		return MediaKindImage
	}
	return kind
}

func normalizeMediaSource(source string) string {
	if strings.ToLower(strings.TrimSpace(source)) == MediaSourceRemote {
		return MediaSourceRemote
	}
	return MediaSourceLocal
}

func normalizeTags(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || slices.Contains(normalized, tag) {
			continue
		}
		normalized = append(normalized, tag)
	}
	return normalized
}

func filterByTags(items []db.MediaItem, tags []string) []db.MediaItem {
	if len(tags) == 0 {
		return items
	}
	filtered := make([]db.MediaItem, 0, len(items))
	for _, item := range items {
		matched := true
		for _, tag := range tags {
			if !slices.Contains(item.Tags, tag) {
				matched = false
				break
			}
		}
		if matched {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// sortMedia assumes items arrive newest first, so stable sorts keep recency as the final tie-break.
func sortMedia(items []db.MediaItem, mode string) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case MediaSortMostViewed:
		slices.SortStableFunc(items, func(a, b db.MediaItem) int {
			return cmp.Compare(b.ViewCount, a.ViewCount)
		})
	case MediaSortMostLoved:
		slices.SortStableFunc(items, func(a, b db.MediaItem) int {
			if a.IsFavorite != b.IsFavorite {
				if a.IsFavorite {
					return -1
				}
				return 1
			}
			return cmp.Compare(b.ViewCount, a.ViewCount)
		})
	}
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func normalizePerPage(perPage, fallback int) int {
	if perPage <= 0 {
		return fallback
	}
	return min(perPage, maxMediaPerPage)
}

// pageSlice 截取第 page 页；页码超出范围时返回空切片，不做乘法以免溢出
func pageSlice(items []db.MediaItem, page, perPage int) []db.MediaItem {
	if page-1 > len(items)/perPage {
		return items[:0]
	}
	start := (page - 1) * perPage
	if start >= len(items) {
		return items[:0]
	}
	end := start + min(perPage, len(items)-start)
	return items[start:end]
}

func calculateTotalPages(total int64, perPage int) int {
	if perPage <= 0 {
		return 1
	}
	if total == 0 {
		return 1
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}
