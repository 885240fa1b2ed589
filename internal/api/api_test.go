package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youruser/bannermaker/internal/export"
	imagepkg "github.com/youruser/bannermaker/internal/image"
	"github.com/youruser/bannermaker/internal/project"
	"github.com/youruser/bannermaker/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	h      *Handler
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	store, err := project.Open(context.Background(), filepath.Join(dir, "banner.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	files, err := storage.NewLocal(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(store, files, export.NewService(store, files, log), log, 1<<20)
	h.now = func() time.Time { return time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC) }

	r := gin.New()
	r.Use(RequestLogger(log))
	h.RegisterRoutes(r)
	return &testServer{h: h, router: r}
}

func (s *testServer) do(t *testing.T, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) doJSON(t *testing.T, method, target string, v any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if v != nil {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	return s.do(t, method, target, body, "application/json")
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func pngData(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type uploadResp struct {
	Images  []project.Image `json:"images"`
	Message string          `json:"message"`
}

type projectResp struct {
	ID             string                  `json:"id"`
	Name           string                  `json:"name"`
	Images         []project.Image         `json:"images"`
	GridSize       imagepkg.GridSpec       `json:"grid_size"`
	TextOverlays   []imagepkg.TextOverlay  `json:"text_overlays"`
	ExportSettings imagepkg.ExportSettings `json:"export_settings"`
}

func (s *testServer) uploadBase64(t *testing.T, data []byte) project.Image {
	t.Helper()
	items := []base64Upload{{
		Name:        "red.png",
		Size:        int64(len(data)),
		ContentType: "image/png",
		Data:        "data:image/png;base64," + base64.StdEncoding.EncodeToString(data),
	}}
	raw, err := json.Marshal(items)
	require.NoError(t, err)
	form := url.Values{"images_data": {string(raw)}}
	w := s.do(t, http.MethodPost, "/api/images/upload", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[uploadResp](t, w)
	require.Len(t, resp.Images, 1)
	return resp.Images[0]
}

func TestRootAndHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Banner Maker API is running")

	w = s.do(t, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestProjectCRUD(t *testing.T) {
	s := newTestServer(t)

	w := s.doJSON(t, http.MethodPost, "/api/projects", map[string]any{"name": "Launch"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decode[projectResp](t, w)
	assert.Equal(t, imagepkg.GridSpec{Rows: 2, Cols: 2}, created.GridSize)
	assert.Empty(t, created.Images)

	w = s.doJSON(t, http.MethodPost, "/api/projects", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.doJSON(t, http.MethodPut, "/api/projects/"+created.ID, map[string]any{
		"grid_size":     map[string]int{"rows": 1, "cols": 3},
		"text_overlays": []map[string]any{{"text": "Hello"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[projectResp](t, w)
	assert.Equal(t, imagepkg.GridSpec{Rows: 1, Cols: 3}, updated.GridSize)
	require.Len(t, updated.TextOverlays, 1)
	assert.NotEmpty(t, updated.TextOverlays[0].ID)
	assert.Equal(t, 24, updated.TextOverlays[0].Style.FontSize)

	w = s.doJSON(t, http.MethodPut, "/api/projects/"+created.ID, map[string]any{
		"grid_size": map[string]int{"rows": 7, "cols": 1},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.doJSON(t, http.MethodPost, "/api/projects/"+created.ID+"/duplicate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	dup := decode[projectResp](t, w)
	assert.Equal(t, "Launch (Copy)", dup.Name)
	assert.Equal(t, updated.GridSize, dup.GridSize)

	w = s.do(t, http.MethodGet, "/api/projects", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]projectResp](t, w), 2)

	w = s.doJSON(t, http.MethodDelete, "/api/projects/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/api/projects/"+created.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"error"`)
}

func TestProjectsAreScopedBySession(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/projects", strings.NewReader(`{"name":"mine"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(sessionHeader, "alice")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/projects", nil, "")
	assert.Empty(t, decode[[]projectResp](t, w))

	req = httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.Header.Set(sessionHeader, "alice")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Len(t, decode[[]projectResp](t, w), 1)
}

func TestImageUploadAndServe(t *testing.T) {
	s := newTestServer(t)
	data := pngData(t, color.RGBA{255, 0, 0, 255})

	img := s.uploadBase64(t, data)
	assert.Equal(t, "red.png", img.Name)
	assert.Equal(t, int64(len(data)), img.Size)
	assert.True(t, strings.HasPrefix(img.URL, "/api/files/"))

	w := s.do(t, http.MethodGet, img.URL, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, data, w.Body.Bytes())

	w = s.do(t, http.MethodHead, img.URL, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, strconv.Itoa(len(data)), w.Header().Get("Content-Length"))
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("Last-Modified"))
	assert.Empty(t, w.Body.Bytes())

	w = s.do(t, http.MethodHead, "/api/files/missing.png", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/images/"+img.ID+"/download", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="red.png"`)

	w = s.do(t, http.MethodGet, "/api/images/"+img.ID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, img.ID, decode[project.Image](t, w).ID)

	w = s.do(t, http.MethodDelete, "/api/images/"+img.ID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, img.URL, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodDelete, "/api/images/"+img.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImageUploadRejections(t *testing.T) {
	s := newTestServer(t)

	post := func(items string) *httptest.ResponseRecorder {
		form := url.Values{"images_data": {items}}
		return s.do(t, http.MethodPost, "/api/images/upload", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	}
	assert.Equal(t, http.StatusBadRequest, post(`not json`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`[{"name":"x.svg","content_type":"image/svg+xml","data":"PHN2Zz4="}]`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`[{"name":"x.png","content_type":"image/png","data":"%%%"}]`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`[{"name":"x.png"}]`).Code)

	// a 1x1 PNG whose header claims 20000x20000 pixels
	huge := pngData(t, color.RGBA{255, 0, 0, 255})
	binary.BigEndian.PutUint32(huge[16:], 20000)
	binary.BigEndian.PutUint32(huge[20:], 20000)
	binary.BigEndian.PutUint32(huge[29:], crc32.ChecksumIEEE(huge[12:29]))
	w := post(`[{"name":"huge.png","content_type":"image/png","data":"` + base64.StdEncoding.EncodeToString(huge) + `"}]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "too large")

	notImage := base64.StdEncoding.EncodeToString([]byte("plain text pretending to be a png"))
	assert.Equal(t, http.StatusBadRequest, post(`[{"name":"x.png","content_type":"image/png","data":"`+notImage+`"}]`).Code)

	big := base64.StdEncoding.EncodeToString(make([]byte, 2<<20))
	assert.Equal(t, http.StatusBadRequest, post(`[{"name":"big.png","content_type":"image/png","data":"`+big+`"}]`).Code)

	w = s.do(t, http.MethodGet, "/api/files/..%2Fbanner.db", nil, "")
	assert.NotEqual(t, http.StatusOK, w.Code)
}

func TestUploadFiles(t *testing.T) {
	s := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, name := range []string{"a.png", "b.png"} {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write(pngData(t, color.RGBA{0, 0, 255, 255}))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	w := s.do(t, http.MethodPost, "/api/images/upload-files", &body, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[uploadResp](t, w)
	require.Len(t, resp.Images, 2)
	assert.Equal(t, "image/png", resp.Images[0].ContentType, "sniffed from octet-stream part")
	assert.Equal(t, "Successfully uploaded 2 files", resp.Message)
}

func TestImportRejectsPrivateURL(t *testing.T) {
	s := newTestServer(t)
	w := s.doJSON(t, http.MethodPost, "/api/images/import", map[string]string{"url": "http://127.0.0.1/x.png"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportFlow(t *testing.T) {
	s := newTestServer(t)
	img := s.uploadBase64(t, pngData(t, color.RGBA{255, 0, 0, 255}))

	w := s.doJSON(t, http.MethodPost, "/api/projects", map[string]any{"name": "Export me"})
	require.Equal(t, http.StatusOK, w.Code)
	p := decode[projectResp](t, w)

	w = s.doJSON(t, http.MethodPut, "/api/projects/"+p.ID, map[string]any{
		"images":          []string{img.ID, "missing"},
		"export_settings": map[string]any{"format": "jpg", "quality": 70, "resolution": "1080p"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[projectResp](t, w).Images, 1, "unknown ids are not expanded")

	w = s.doJSON(t, http.MethodPost, "/api/export/"+p.ID+"/generate", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	exp := decode[export.Export](t, w)
	assert.Equal(t, "jpg", exp.Format)
	assert.Equal(t, "1080p", exp.Resolution)
	assert.Equal(t, 1, exp.Report.Skipped())

	w = s.do(t, http.MethodGet, exp.URL, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 1920, cfg.Width)

	w = s.do(t, http.MethodGet, "/api/export/"+p.ID+"/download", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Export_me_20261018_080000.jpg")
	assert.Equal(t, "1", w.Header().Get("X-Render-Skipped"))

	w = s.do(t, http.MethodGet, "/api/export/"+p.ID+"/qr?size=128", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	qr, err := png.DecodeConfig(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 128, qr.Width)
}

func TestExportErrors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	w := s.doJSON(t, http.MethodPost, "/api/export/missing/generate", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	bad := project.New("bad grid", nil, project.DefaultSession, time.Now())
	bad.GridSize = imagepkg.GridSpec{Rows: 0, Cols: 3}
	require.NoError(t, s.h.projects.CreateProject(ctx, bad))

	w = s.doJSON(t, http.MethodPost, "/api/export/"+bad.ID+"/generate", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode[map[string]string](t, w)
	assert.Equal(t, "invalid_grid", body["kind"])
	assert.NotEmpty(t, body["error"])
}
