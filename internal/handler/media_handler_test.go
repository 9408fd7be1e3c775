package handler

import (
	"bytes"
	"image"
	"image/png"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newUploadContext(t *testing.T, filename, contentType string, content []byte, fields map[string]string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/media/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set(principalContextKey, testUserID)
	return c, w
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, width, height))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestUploadMediaStoresFileWithDimensions(t *testing.T) {
	api := setupTestAPI(t)

	c, w := newUploadContext(t, "sunset.png", "image/png", encodePNG(t, 40, 30), map[string]string{"tags": "travel, summer"})
	api.UploadMedia(c)
	expectStatus(t, w, http.StatusOK)

	item := decodeBody(t, w)["item"].(map[string]any)
	if item["width"] != float64(40) || item["height"] != float64(30) {
		t.Fatalf("unexpected dimensions: %v", item)
	}
	if item["title"] != "sunset" || item["source"] != "local" {
		t.Fatalf("unexpected title/source: %v", item)
	}
	if tags := item["tags"].([]any); len(tags) != 2 || tags[0] != "travel" {
		t.Fatalf("unexpected tags: %v", tags)
	}

	url := item["url"].(string)
	if !strings.HasPrefix(url, "/static/uploads/") || !strings.HasSuffix(url, ".png") {
		t.Fatalf("unexpected url: %s", url)
	}
	if _, err := os.Stat(filepath.Join(api.uploadDir, filepath.Base(url))); err != nil {
		t.Fatalf("expected uploaded file on disk: %v", err)
	}
}

func TestUploadMediaRejectsNonImages(t *testing.T) {
	api := setupTestAPI(t)

	c, w := newUploadContext(t, "notes.txt", "text/plain", []byte("hello"), nil)
	api.UploadMedia(c)
	expectStatus(t, w, http.StatusBadRequest)

	c, w = newUploadContext(t, "fake.png", "image/png", []byte("not really a png"), nil)
	api.UploadMedia(c)
	expectStatus(t, w, http.StatusBadRequest)
}

func TestMediaFavoriteAndView(t *testing.T) {
	api := setupTestAPI(t)

	c, w := newJSONContext(http.MethodPost, "/api/media", map[string]any{"url": "https://example.com/a.jpg", "title": "Remote", "source": "remote"})
	api.CreateMedia(c)
	expectStatus(t, w, http.StatusOK)
	id := strconv.Itoa(int(decodeBody(t, w)["item"].(map[string]any)["id"].(float64)))

	c, w = newJSONContext(http.MethodPut, "/api/media/"+id+"/favorite", map[string]any{})
	c.Params = gin.Params{{Key: "id", Value: id}}
	api.SetMediaFavorite(c)
	expectStatus(t, w, http.StatusBadRequest)

	c, w = newJSONContext(http.MethodPut, "/api/media/"+id+"/favorite", map[string]any{"favorite": true})
	c.Params = gin.Params{{Key: "id", Value: id}}
	api.SetMediaFavorite(c)
	expectStatus(t, w, http.StatusOK)
	if item := decodeBody(t, w)["item"].(map[string]any); item["is_favorite"] != true {
		t.Fatalf("expected favorite, got %v", item)
	}

	c, w = newJSONContext(http.MethodPost, "/api/media/"+id+"/view", nil)
	c.Params = gin.Params{{Key: "id", Value: id}}
	api.RecordMediaView(c)
	expectStatus(t, w, http.StatusOK)
	if item := decodeBody(t, w)["item"].(map[string]any); item["view_count"] != float64(1) {
		t.Fatalf("expected one view, got %v", item)
	}

	c, w = newJSONContext(http.MethodGet, "/api/media/abc", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	api.GetMedia(c)
	expectStatus(t, w, http.StatusBadRequest)

	c, w = newJSONContext(http.MethodDelete, "/api/media/999", nil)
	c.Params = gin.Params{{Key: "id", Value: "999"}}
	api.DeleteMedia(c)
	expectStatus(t, w, http.StatusNotFound)
}

func TestListMediaHugePagination(t *testing.T) {
	api := setupTestAPI(t)

	c, w := newJSONContext(http.MethodPost, "/api/media", map[string]any{"url": "https://example.com/a.jpg"})
	api.CreateMedia(c)
	expectStatus(t, w, http.StatusOK)

	targets := []string{
		"/api/media?page=2&per_page=" + strconv.Itoa(math.MaxInt),
		"/api/media?page=" + strconv.Itoa(math.MaxInt) + "&per_page=24",
	}
	for _, target := range targets {
		c, w = newJSONContext(http.MethodGet, target, nil)
		api.ListMedia(c)
		expectStatus(t, w, http.StatusOK)

		resp := decodeBody(t, w)
		if items := resp["items"].([]any); len(items) != 0 {
			t.Fatalf("%s: expected empty page, got %d items", target, len(items))
		}
		if resp["total"] != float64(1) {
			t.Fatalf("%s: expected total 1, got %v", target, resp["total"])
		}
	}
}
