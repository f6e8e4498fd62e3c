package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/catalogflat/internal/artifact"
	"github.com/JonMunkholm/catalogflat/internal/catalog"
	"github.com/JonMunkholm/catalogflat/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopFeed = `<?xml version="1.0" encoding="UTF-8"?>
<yml_catalog>
<shop>
  <categories><category id="1">Chairs</category></categories>
  <offers>
    <offer id="7" available="true">
      <name>Oak chair</name>
      <price>49</price>
      <categoryId>1</categoryId>
      <picture>http://img/1.jpg</picture>
      <description>Solid oak</description>
    </offer>
  </offers>
</shop>
</yml_catalog>`

func testConfig() *config.Config {
	return &config.Config{
		Server:     config.ServerConfig{Port: 8080, RequestTimeout: 5 * time.Second},
		Upload:     config.UploadConfig{MaxFileSize: 1 << 20},
		Processing: config.ProcessingConfig{ChunkSize: 10, MaxConcurrent: 2, MaxWaitTime: time.Second, Timeout: 10 * time.Second},
		Rate:       config.RateLimitConfig{Enabled: false},
		Security:   config.SecurityConfig{EnableCSP: true, AllowedOrigins: "*"},
		Logging:    config.LoggingConfig{Level: "info", Format: "text"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	cfg.Output.Dir = t.TempDir()

	store, err := artifact.New(cfg.Output.Dir)
	require.NoError(t, err)

	limiter := catalog.NewRunLimiter(cfg.Processing.MaxConcurrent, cfg.Processing.MaxWaitTime)
	processor := catalog.NewProcessor(store, limiter, catalog.Options{ChunkSize: cfg.Processing.ChunkSize})

	s := NewServer(cfg, processor, store, limiter)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func uploadRequest(t *testing.T, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mpw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mpw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mpw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mpw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/process", &body)
	req.Header.Set("Content-Type", mpw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestProcessAndDownload(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := serve(s, uploadRequest(t, "my shop.xml", shopFeed, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ProcessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, "my_shop.csv", resp.FileName)
	assert.Equal(t, "/download/data_files/my_shop.csv", resp.FileURL)
	assert.Equal(t, "offer", resp.Dialect)
	assert.Equal(t, 1, resp.Records)
	assert.NotEmpty(t, resp.RunID)

	for _, path := range []string{resp.FileURL, "/download/my_shop.csv"} {
		dl := serve(s, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, dl.Code, path)
		assert.Equal(t, `attachment; filename="my_shop.csv"`, dl.Header().Get("Content-Disposition"))
		assert.Equal(t, "*", dl.Header().Get("Access-Control-Allow-Origin"))

		body := dl.Body.String()
		assert.True(t, strings.HasPrefix(body, "\ufeff"), "table starts with a BOM")
		assert.Contains(t, body, "Oak chair")
	}
}

func TestProcessDialectHint(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := serve(s, uploadRequest(t, "feed.xml", shopFeed, map[string]string{"dialect": "xls"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FEED004", decodeError(t, rec).Code)

	rec = serve(s, uploadRequest(t, "feed.xml", shopFeed, map[string]string{"dialect": "offer"}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProcessErrors(t *testing.T) {
	tests := []struct {
		name     string
		req      func(t *testing.T) *http.Request
		wantCode int
		wantErr  string
	}{
		{
			name:     "no file",
			req:      func(t *testing.T) *http.Request { return uploadRequest(t, "", "", map[string]string{"dialect": "auto"}) },
			wantCode: http.StatusBadRequest,
			wantErr:  "FILE004",
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/process", strings.NewReader("<offers/>"))
			},
			wantCode: http.StatusBadRequest,
			wantErr:  "FILE004",
		},
		{
			name:     "empty file",
			req:      func(t *testing.T) *http.Request { return uploadRequest(t, "feed.xml", "", nil) },
			wantCode: http.StatusBadRequest,
			wantErr:  "FILE005",
		},
		{
			name: "html page",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "feed.xml", "<!DOCTYPE html><html><body>hi</body></html>", nil)
			},
			wantCode: http.StatusBadRequest,
			wantErr:  "FEED001",
		},
		{
			name:     "unsupported root",
			req:      func(t *testing.T) *http.Request { return uploadRequest(t, "feed.xml", "<catalog><item/></catalog>", nil) },
			wantCode: http.StatusBadRequest,
		},
		{
			name: "too large",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "feed.xml", "<offers>"+strings.Repeat(" ", 3<<19)+"</offers>", nil)
			},
			wantCode: http.StatusRequestEntityTooLarge,
			wantErr:  "FILE001",
		},
	}

	s := newTestServer(t, testConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, tt.req(t))
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			resp := decodeError(t, rec)
			assert.NotEmpty(t, resp.Message)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, resp.Code)
			}
		})
	}
}

func TestDownloadErrors(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/download/missing.csv", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "FILE006", decodeError(t, rec).Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/download/..secret.csv", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FILE007", decodeError(t, rec).Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Runs.MaxConcurrent)
	assert.Equal(t, 2, resp.Runs.Available)
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'none'")
}

func TestProcessRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, ProcessLimit: 1}
	s := newTestServer(t, cfg)

	rec := serve(s, uploadRequest(t, "feed.xml", shopFeed, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(s, uploadRequest(t, "feed.xml", shopFeed, nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decodeError(t, rec).Code)

	// Only the processing route has the stricter limit.
	rec = serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusTooManyRequests, statusFor(catalog.ErrTooManyRuns))
	assert.Equal(t, http.StatusBadRequest, statusFor(&catalog.MalformedDocumentError{Line: 2}))
	assert.Equal(t, http.StatusBadRequest, statusFor(artifact.ErrInvalidName))
	assert.Equal(t, http.StatusNotFound, statusFor(artifact.ErrNotFound))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
