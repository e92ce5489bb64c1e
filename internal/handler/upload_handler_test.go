package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gemini-chat-server/internal/model"
)

func newUploadRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/upload", NewUploadHandler().HandleUpload)
	return router
}

// postMultipart 构造包含若干 files 字段的 multipart 请求
func postMultipart(t *testing.T, router *gin.Engine, filenames map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, content := range filenames {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleUpload(t *testing.T) {
	router := newUploadRouter()

	w := postMultipart(t, router, map[string]string{"notes.txt": "hello world"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Files []model.FileAttachment `json:"files"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Files, 1)
	assert.NotEmpty(t, resp.Files[0].ID)
	assert.Equal(t, "notes.txt", resp.Files[0].Name)
	assert.Equal(t, int64(len("hello world")), resp.Files[0].Size)
	assert.Equal(t, "/uploads/notes.txt", resp.Files[0].URL)
}

func TestHandleUploadMultipleFiles(t *testing.T) {
	router := newUploadRouter()

	w := postMultipart(t, router, map[string]string{
		"a.txt": "aaa",
		"b.txt": "bbb",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Files []model.FileAttachment `json:"files"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Files, 2)
}

func TestHandleUploadNoFiles(t *testing.T) {
	router := newUploadRouter()

	// multipart 表单存在但 files 字段为空
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("other", "value"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"No files provided"}`, w.Body.String())
}

func TestHandleUploadNotMultipart(t *testing.T) {
	router := newUploadRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", bytes.NewBufferString("plain body"))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Upload failed"}`, w.Body.String())
}
