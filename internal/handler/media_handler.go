package handler

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lifeos/internal/db"
	"github.com/lifeos/internal/service"
)

type mediaRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Kind        string   `json:"kind"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	Tags        []string `json:"tags"`
	Source      string   `json:"source"`
}

type favoriteRequest struct {
	Favorite *bool `json:"favorite" binding:"required"`
}

// ListMedia 按标签/排序/分页返回媒体列表
func (a *API) ListMedia(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	perPage, _ := strconv.Atoi(c.Query("per_page"))

	result, err := a.media.List(c.Request.Context(), principal(c), service.MediaFilter{
		Search:  c.Query("search"),
		Tags:    queryValues(c.QueryArray("tag")),
		Sort:    c.DefaultQuery("sort", service.MediaSortRecent),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	items := make([]gin.H, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, mediaToPayload(item))
	}

	c.JSON(http.StatusOK, gin.H{
		"items":       items,
		"total":       result.Total,
		"total_pages": result.TotalPages,
		"page":        result.Page,
		"per_page":    result.PerPage,
	})
}

// ListMediaTags 返回全部媒体标签
func (a *API) ListMediaTags(c *gin.Context) {
	tags, err := a.media.Tags(c.Request.Context(), principal(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

// GetMedia 返回单个媒体
func (a *API) GetMedia(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, "invalid media id")
		return
	}

	item, err := a.media.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": mediaToPayload(*item)})
}

// CreateMedia 登记一个已有地址的媒体
func (a *API) CreateMedia(c *gin.Context) {
	var req mediaRequest
	if !bindJSON(c, &req, "invalid media payload") {
		return
	}

	item, err := a.media.Create(c.Request.Context(), principal(c), service.MediaInput{
		Title:       req.Title,
		Description: req.Description,
		URL:         req.URL,
		Kind:        req.Kind,
		Width:       req.Width,
		Height:      req.Height,
		Tags:        req.Tags,
		Source:      req.Source,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": mediaToPayload(*item)})
}

// DeleteMedia 删除媒体
func (a *API) DeleteMedia(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, "invalid media id")
		return
	}

	if err := a.media.Delete(c.Request.Context(), principal(c), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// RecordMediaView 浏览计数 +1
func (a *API) RecordMediaView(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, "invalid media id")
		return
	}

	item, err := a.media.RecordView(c.Request.Context(), principal(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": mediaToPayload(*item)})
}

// SetMediaFavorite 标记或取消收藏
func (a *API) SetMediaFavorite(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, "invalid media id")
		return
	}

	var req favoriteRequest
	if !bindJSON(c, &req, "favorite is required") {
		return
	}

	item, err := a.media.SetFavorite(c.Request.Context(), principal(c), id, *req.Favorite)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": mediaToPayload(*item)})
}

// UploadMedia 保存上传的图片并读取尺寸后登记
func (a *API) UploadMedia(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, "missing upload file")
		return
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		respondError(c, http.StatusBadRequest, codeValidation, "only image uploads are allowed")
		return
	}

	src, err := file.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, "failed to read upload")
		return
	}
	width, height, _, err := service.ProbeImage(src)
	src.Close()
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if err := os.MkdirAll(a.uploadDir, 0o755); err != nil {
		respondError(c, http.StatusInternalServerError, codeInternal, "failed to create upload dir")
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	filename := fmt.Sprintf("%s-%s%s", time.Now().Format("20060102"), uuid.NewString(), ext)
	if err := c.SaveUploadedFile(file, filepath.Join(a.uploadDir, filename)); err != nil {
		respondError(c, http.StatusInternalServerError, codeInternal, "failed to save upload")
		return
	}

	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(file.Filename), filepath.Ext(file.Filename))
	}

	item, err := a.media.Create(c.Request.Context(), principal(c), service.MediaInput{
		Title:       title,
		Description: c.PostForm("description"),
		URL:         strings.TrimRight(a.uploadURL, "/") + "/" + filename,
		Kind:        service.MediaKindImage,
		Width:       width,
		Height:      height,
		Tags:        queryValues([]string{c.PostForm("tags")}),
		Source:      service.MediaSourceLocal,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": mediaToPayload(*item)})
}

func mediaToPayload(item db.MediaItem) gin.H {
	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}
	return gin.H{
		"id":          item.ID,
		"title":       item.Title,
		"description": item.Description,
		"url":         item.URL,
		"kind":        item.Kind,
		"width":       item.Width,
		"height":      item.Height,
		"tags":        tags,
		"view_count":  item.ViewCount,
		"is_favorite": item.IsFavorite,
		"source":      item.Source,
		"created_at":  item.CreatedAt.Format(time.RFC3339),
	}
}
