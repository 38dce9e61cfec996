package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"postcraft/pkg/ai"
	"postcraft/pkg/domain"
	"postcraft/pkg/store"
	"postcraft/services/content/internal/app"
	"postcraft/services/content/internal/provider"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

type fakeProvider struct {
	calls  int
	images int
	err    error
}

func (f *fakeProvider) Generate(_ context.Context, req provider.Request) (domain.GeneratedContent, error) {
	f.calls++
	f.images = len(req.Images)
	if f.err != nil {
		return domain.GeneratedContent{}, &provider.Error{Op: provider.OpGenerate, Err: f.err}
	}
	content := "Fresh coffee every morning"
	return domain.GeneratedContent{
		Title:    "Morning Brew",
		Content:  content,
		Hashtags: []string{"#coffee"},
		Metadata: domain.NormalizeMetadata(content, domain.Metadata{}),
	}, nil
}

func (f *fakeProvider) AnalyzeImage(context.Context, ai.Image) (string, error) {
	f.calls++
	if f.err != nil {
		return "", &provider.Error{Op: provider.OpAnalyze, Err: f.err}
	}
	return "a cup of coffee", nil
}

func (f *fakeProvider) Optimize(_ context.Context, content, _, to string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", &provider.Error{Op: provider.OpOptimize, Err: f.err}
	}
	return content + " for " + to, nil
}

func newTestServer(t *testing.T, p *fakeProvider, mutate func(*Config)) http.Handler {
	t.Helper()
	a, err := app.New(app.Config{Store: store.NewMemoryStore(), Provider: p, SeedTemplates: true})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	cfg := Config{App: a, OwnerID: 1}
	if mutate != nil {
		mutate(&cfg)
	}
	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })
	return srv.Router()
}

type filePart struct {
	field, name, contentType string
	data                     []byte
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files ...filePart) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		if f.contentType != "" {
			h.Set("Content-Type", f.contentType)
		}
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		_, _ = part.Write(f.data)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body.Error
}

var generateFields = map[string]string{"platform": "instagram", "contentType": "post", "brief": "promote our new coffee blend"}

func TestGenerateEndpoint(t *testing.T) {
	p := &fakeProvider{}
	h := newTestServer(t, p, nil)

	rec := serve(h, multipartRequest(t, "/api/content/generate", generateFields,
		filePart{field: "images", name: "a.png", contentType: "image/png", data: pngBytes},
		filePart{field: "images", name: "b.bin", data: pngBytes},
	))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var res app.GenerateResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.ID != 1 || res.Title != "Morning Brew" || res.Metadata.WordCount != 4 || res.Metadata.CharacterCount != 26 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if p.images != 2 {
		t.Fatalf("images forwarded = %d, want 2", p.images)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("missing request id header")
	}

	list := serve(h, httptest.NewRequest(http.MethodGet, "/api/content", nil))
	var records []domain.ContentRecord
	if err := json.Unmarshal(list.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(records) != 1 || len(records[0].Images) != 0 || records[0].Description != generateFields["brief"] {
		t.Fatalf("unexpected stored records: %+v", records)
	}
}

func TestGenerateRejectsBadInput(t *testing.T) {
	tooMany := make([]filePart, 6)
	for i := range tooMany {
		tooMany[i] = filePart{field: "images", name: "x.png", contentType: "image/png", data: pngBytes}
	}
	tests := []struct {
		name   string
		fields map[string]string
		files  []filePart
	}{
		{name: "missing brief", fields: map[string]string{"platform": "instagram", "contentType": "post"}},
		{name: "too many images", fields: generateFields, files: tooMany},
		{name: "not an image", fields: generateFields, files: []filePart{{field: "images", name: "a.txt", contentType: "text/plain", data: []byte("hello")}}},
		{name: "oversized image", fields: generateFields, files: []filePart{{field: "images", name: "big.png", contentType: "image/png", data: bytes.Repeat([]byte{1}, 128)}}},
		{name: "bad template id", fields: map[string]string{"platform": "x", "contentType": "post", "brief": "b", "templateId": "abc"}},
		{name: "unknown template id", fields: map[string]string{"platform": "x", "contentType": "post", "brief": "b", "templateId": "999"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := &fakeProvider{}
			h := newTestServer(t, p, func(c *Config) { c.MaxImageBytes = 64 })
			rec := serve(h, multipartRequest(t, "/api/content/generate", tc.fields, tc.files...))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 body=%s", rec.Code, rec.Body.String())
			}
			if p.calls != 0 {
				t.Fatalf("provider calls = %d, want 0", p.calls)
			}
		})
	}
}

func TestGenerateRequiresMultipart(t *testing.T) {
	h := newTestServer(t, &fakeProvider{}, nil)
	rec := serve(h, jsonRequest(http.MethodPost, "/api/content/generate", `{"brief":"b"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGenerateProviderFailure(t *testing.T) {
	h := newTestServer(t, &fakeProvider{err: errors.New("upstream timeout")}, nil)
	rec := serve(h, multipartRequest(t, "/api/content/generate", generateFields))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if got := errorMessage(t, rec); got != "Failed to generate content: upstream timeout" {
		t.Fatalf("error = %q", got)
	}
	stats := serve(h, httptest.NewRequest(http.MethodGet, "/api/analytics/stats", nil))
	var s domain.ContentStats
	_ = json.Unmarshal(stats.Body.Bytes(), &s)
	if s.TotalContent != 0 {
		t.Fatalf("totalContent = %d after failed generation", s.TotalContent)
	}
}

func TestContentCRUD(t *testing.T) {
	h := newTestServer(t, &fakeProvider{}, nil)

	rec := serve(h, jsonRequest(http.MethodPost, "/api/content", `{"title":"Hello","platform":"linkedin","contentType":"post","generatedContent":"hi all"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body.String())
	}
	var created domain.ContentRecord
	_ = json.Unmarshal(rec.Body.Bytes(), &created)
	if created.ID != 1 || created.Metadata.WordCount != 2 {
		t.Fatalf("unexpected created record: %+v", created)
	}

	rec = serve(h, jsonRequest(http.MethodPost, "/api/content", `{"title":""}`))
	if rec.Code != http.StatusBadRequest || errorMessage(t, rec) != "Invalid content data" {
		t.Fatalf("invalid create: %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/content/1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = serve(h, jsonRequest(http.MethodPut, "/api/content/1", `{"title":"Updated","id":99}`))
	var updated domain.ContentRecord
	_ = json.Unmarshal(rec.Body.Bytes(), &updated)
	if rec.Code != http.StatusOK || updated.Title != "Updated" || updated.ID != 1 {
		t.Fatalf("update: %d %+v", rec.Code, updated)
	}

	rec = serve(h, jsonRequest(http.MethodPut, "/api/content/42", `{"title":"x"}`))
	if rec.Code != http.StatusNotFound || errorMessage(t, rec) != "Content not found" {
		t.Fatalf("update miss: %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(h, httptest.NewRequest(http.MethodDelete, "/api/content/1", nil))
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Fatalf("delete: %d %q", rec.Code, rec.Body.String())
	}
	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec = serve(h, httptest.NewRequest(method, "/api/content/1", nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s after delete = %d, want 404", method, rec.Code)
		}
	}

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/content/abc", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("non-numeric id = %d, want 404", rec.Code)
	}
	rec = serve(h, httptest.NewRequest(http.MethodPatch, "/api/content", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("patch = %d, want 405", rec.Code)
	}
}

func TestTemplatesAndStats(t *testing.T) {
	h := newTestServer(t, &fakeProvider{}, nil)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/templates?platform=linkedin", nil))
	var tpls []domain.Template
	if err := json.Unmarshal(rec.Body.Bytes(), &tpls); err != nil {
		t.Fatalf("decode templates: %v", err)
	}
	if len(tpls) == 0 {
		t.Fatal("expected linkedin templates")
	}
	for _, tpl := range tpls {
		if tpl.Platform != "linkedin" {
			t.Fatalf("unexpected template %+v", tpl)
		}
	}

	for i := 0; i < 2; i++ {
		serve(h, multipartRequest(t, "/api/content/generate", generateFields))
	}
	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/analytics/stats", nil))
	var stats domain.ContentStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalContent != 2 || stats.AIGenerated != 2 || stats.Platforms != 1 || stats.ByPlatform["instagram"] != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestOptimizeEndpoint(t *testing.T) {
	h := newTestServer(t, &fakeProvider{}, nil)
	rec := serve(h, jsonRequest(http.MethodPost, "/api/content/optimize", `{"content":"Big news","fromPlatform":"linkedin","toPlatform":"twitter"}`))
	var body map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if rec.Code != http.StatusOK || body["optimizedContent"] != "Big news for twitter" {
		t.Fatalf("optimize: %d %v", rec.Code, body)
	}

	rec = serve(h, jsonRequest(http.MethodPost, "/api/content/optimize", `{"content":"Big news"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing fields = %d, want 400", rec.Code)
	}

	h = newTestServer(t, &fakeProvider{err: errors.New("quota exceeded")}, nil)
	rec = serve(h, jsonRequest(http.MethodPost, "/api/content/optimize", `{"content":"c","fromPlatform":"a","toPlatform":"b"}`))
	if rec.Code != http.StatusInternalServerError || errorMessage(t, rec) != "Failed to optimize content: quota exceeded" {
		t.Fatalf("failure: %d %s", rec.Code, rec.Body.String())
	}
}

func TestAnalyzeImageEndpoint(t *testing.T) {
	h := newTestServer(t, &fakeProvider{}, nil)
	rec := serve(h, multipartRequest(t, "/api/images/analyze", nil, filePart{field: "image", name: "a.png", contentType: "image/png", data: pngBytes}))
	var body map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if rec.Code != http.StatusOK || body["analysis"] != "a cup of coffee" {
		t.Fatalf("analyze: %d %v", rec.Code, body)
	}

	rec = serve(h, multipartRequest(t, "/api/images/analyze", map[string]string{"note": "no file"}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing image = %d, want 400", rec.Code)
	}

	h = newTestServer(t, &fakeProvider{err: errors.New("bad gateway")}, nil)
	rec = serve(h, multipartRequest(t, "/api/images/analyze", nil, filePart{field: "image", name: "a.png", contentType: "image/png", data: pngBytes}))
	if rec.Code != http.StatusInternalServerError || errorMessage(t, rec) != "Failed to analyze image: bad gateway" {
		t.Fatalf("failure: %d %s", rec.Code, rec.Body.String())
	}
}

func TestGenerateRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	p := &fakeProvider{}
	h := newTestServer(t, p, func(c *Config) {
		c.RedisAddr = mr.Addr()
		c.GenerateRateLimitPerMinute = 2
	})
	for i := 1; i <= 2; i++ {
		if rec := serve(h, multipartRequest(t, "/api/content/generate", generateFields)); rec.Code != http.StatusOK {
			t.Fatalf("request %d = %d", i, rec.Code)
		}
	}
	rec := serve(h, multipartRequest(t, "/api/content/generate", generateFields))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", rec.Code)
	}
	if p.calls != 2 {
		t.Fatalf("provider calls = %d, want 2", p.calls)
	}
	if rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/content", nil)); rec.Code != http.StatusOK {
		t.Fatalf("unlimited route = %d", rec.Code)
	}
}

func TestAmbientRoutes(t *testing.T) {
	h := newTestServer(t, &fakeProvider{}, nil)
	for _, path := range []string{"/healthz", "/metrics"} {
		rec := serve(h, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s = %d", path, rec.Code)
		}
	}
	rec := serve(h, httptest.NewRequest(http.MethodOptions, "/api/content", nil))
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Fatalf("preflight = %d", rec.Code)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(Config{OwnerID: 1}); err == nil {
		t.Fatal("expected error without app")
	}
	a, _ := app.New(app.Config{Store: store.NewMemoryStore(), Provider: &fakeProvider{}})
	if _, err := New(Config{App: a}); err == nil {
		t.Fatal("expected error without owner")
	}
	if _, err := New(Config{App: a, OwnerID: 1, GenerateRateLimitPerMinute: 5}); err == nil {
		t.Fatal("expected error when limiter has no redis addr")
	}
}
