package api

import (
	"bytes"
	"encoding/json"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"

	"github.com/youruser/certapp/internal/batch"
	"github.com/youruser/certapp/internal/config"
	imagepkg "github.com/youruser/certapp/internal/image"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.DefaultConfig()
	cfg.Upload.MaxNames = 10
	fonts, err := imagepkg.NewFontRegistry()
	if err != nil {
		t.Fatal(err)
	}
	renderer := imagepkg.NewRenderer(fonts, imagepkg.Config{}, nil)
	orch := batch.New(renderer, batch.Config{MaxNames: cfg.Upload.MaxNames}, nil)
	s := NewServer(NewEngine(cfg, zap.NewNop()), NewRegistry(renderer, time.Hour, nil), orch, cfg, nil)
	s.RegisterRoutes()
	return s
}

func backgroundPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, imaging.New(w, h, color.White)); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func do(s *Server, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func doJSON(s *Server, method, path string, v any) *httptest.ResponseRecorder {
	var body io.Reader
	if v != nil {
		b, _ := json.Marshal(v)
		body = bytes.NewReader(b)
	}
	return do(s, method, path, body, "application/json")
}

func multipartBody(t *testing.T, files map[string][]byte, fields map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		fw, err := mw.CreateFormFile(name, name+".bin")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(data)
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

type idResponse struct {
	ID     string `json:"id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// readyWorkspace creates a workspace with a background and one placeholder.
func readyWorkspace(t *testing.T, s *Server) string {
	t.Helper()
	w := doJSON(s, http.MethodPost, "/api/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body)
	}
	id := decode[idResponse](t, w).ID

	body, ct := multipartBody(t, map[string][]byte{"file": backgroundPNG(t, 400, 250)}, nil)
	w = do(s, http.MethodPut, "/api/sessions/"+id+"/background", body, ct)
	if w.Code != http.StatusOK {
		t.Fatalf("background: %d %s", w.Code, w.Body)
	}
	if got := decode[idResponse](t, w); got.Width != 400 || got.Height != 250 {
		t.Fatalf("background size %dx%d", got.Width, got.Height)
	}

	w = doJSON(s, http.MethodPost, "/api/sessions/"+id+"/fields", map[string]any{"font_size": 32, "font_color": "#123456"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add field: %d %s", w.Code, w.Body)
	}
	return id
}

func zipNames(t *testing.T, data []byte) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("not a zip: %v", err)
	}
	var out []string
	for _, f := range zr.File {
		out = append(out, f.Name)
	}
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	doJSON(s, http.MethodPost, "/api/sessions", nil)
	w := doJSON(s, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health: %d %s", w.Code, w.Body)
	}
	got := decode[struct {
		Status   string   `json:"status"`
		Sessions int      `json:"sessions"`
		Fonts    []string `json:"fonts"`
	}](t, w)
	if got.Status != "ok" || got.Sessions != 1 {
		t.Fatalf("health = %+v", got)
	}
	if diff := cmp.Diff([]string{"Go Regular"}, got.Fonts); diff != "" {
		t.Fatalf("fonts (-want +got):\n%s", diff)
	}
}

func TestCreateSessionStartsBlank(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(s, http.MethodPost, "/api/sessions", nil)
	got := decode[idResponse](t, w)
	if got.ID == "" || got.Width != 800 || got.Height != 500 {
		t.Fatalf("create = %+v", got)
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatal("missing request id header")
	}
}

func TestGenerateJSONReturnsZip(t *testing.T) {
	s := newTestServer(t)
	id := readyWorkspace(t, s)

	w := doJSON(s, http.MethodPost, "/api/sessions/"+id+"/generate", map[string]any{
		"names": []string{"Jane Smith", " ", "Bob"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("generate: %d %s", w.Code, w.Body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("content type %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "certificates.zip") {
		t.Fatalf("content disposition %q", cd)
	}
	if got := w.Header().Get(HeaderFailedNames); got != "0" {
		t.Fatalf("%s = %q", HeaderFailedNames, got)
	}
	want := []string{"Jane_Smith_certificate.png", "Bob_certificate.png"}
	if diff := cmp.Diff(want, zipNames(t, w.Body.Bytes())); diff != "" {
		t.Fatalf("zip entries (-want +got):\n%s", diff)
	}

	st := decode[batch.Status](t, doJSON(s, http.MethodGet, "/api/sessions/"+id+"/status", nil))
	if st.Busy || st.Total != 2 || st.Done != 2 || st.Failed != 0 {
		t.Fatalf("status = %+v", st)
	}
}

func TestGenerateMultipartNamesAndCSV(t *testing.T) {
	s := newTestServer(t)
	id := readyWorkspace(t, s)

	csv := []byte("name,email\nCarol,c@example.com\nDan,d@example.com\n")
	body, ct := multipartBody(t, map[string][]byte{"names_file": csv}, map[string]string{"names": "Alice\n\nBob\n"})
	w := do(s, http.MethodPost, "/api/sessions/"+id+"/generate", body, ct)
	if w.Code != http.StatusOK {
		t.Fatalf("generate: %d %s", w.Code, w.Body)
	}
	want := []string{"Alice_certificate.png", "Bob_certificate.png", "Carol_certificate.png", "Dan_certificate.png"}
	if diff := cmp.Diff(want, zipNames(t, w.Body.Bytes())); diff != "" {
		t.Fatalf("zip entries (-want +got):\n%s", diff)
	}
}

func TestGenerateErrors(t *testing.T) {
	s := newTestServer(t)
	ready := readyWorkspace(t, s)
	blank := decode[idResponse](t, doJSON(s, http.MethodPost, "/api/sessions", nil)).ID

	tests := []struct {
		name string
		id   string
		body map[string]any
		code int
	}{
		{"empty names", ready, map[string]any{"names": []string{"", "  "}}, http.StatusBadRequest},
		{"too many names", ready, map[string]any{"names": strings.Split("a b c d e f g h i j k", " ")}, http.StatusBadRequest},
		{"bad multiplier", ready, map[string]any{"names": []string{"A"}, "multiplier": 99}, http.StatusBadRequest},
		{"no background", blank, map[string]any{"names": []string{"A"}}, http.StatusBadRequest},
		{"unknown session", "nope", map[string]any{"names": []string{"A"}}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(s, http.MethodPost, "/api/sessions/"+tt.id+"/generate", tt.body)
			if w.Code != tt.code {
				t.Fatalf("code = %d, want %d (%s)", w.Code, tt.code, w.Body)
			}
			if !strings.Contains(w.Body.String(), `"error"`) {
				t.Fatalf("body %s has no error", w.Body)
			}
		})
	}
}

func TestEditsRejectedWhileGenerating(t *testing.T) {
	s := newTestServer(t)
	id := readyWorkspace(t, s)
	ws, _ := s.registry.Get(id)
	release, err := ws.Canvas.Freeze()
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	w := doJSON(s, http.MethodPost, "/api/sessions/"+id+"/fields", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("add field while frozen: %d", w.Code)
	}
	w = doJSON(s, http.MethodPost, "/api/sessions/"+id+"/generate", map[string]any{"names": []string{"A"}})
	if w.Code != http.StatusConflict {
		t.Fatalf("second generate: %d", w.Code)
	}
}

func TestBackgroundDecodeError(t *testing.T) {
	s := newTestServer(t)
	id := decode[idResponse](t, doJSON(s, http.MethodPost, "/api/sessions", nil)).ID
	body, ct := multipartBody(t, map[string][]byte{"file": []byte("not an image")}, nil)
	w := do(s, http.MethodPut, "/api/sessions/"+id+"/background", body, ct)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("code = %d (%s)", w.Code, w.Body)
	}
}

func TestFieldEditingFlow(t *testing.T) {
	s := newTestServer(t)
	id := readyWorkspace(t, s)
	base := "/api/sessions/" + id

	// A click on the field's centre selects it; a corner click hits the background.
	sel := decode[idResponse](t, doJSON(s, http.MethodPost, base+"/select", map[string]any{"x": 200, "y": 125}))
	if sel.ID == "" {
		t.Fatal("click on the field selected nothing")
	}
	if got := decode[idResponse](t, doJSON(s, http.MethodPost, base+"/select", map[string]any{"x": 1, "y": 1})); got.ID != "" {
		t.Fatalf("background click selected %q", got.ID)
	}

	w := doJSON(s, http.MethodPatch, base+"/fields/"+sel.ID, map[string]any{"x": 150, "scale": 2})
	if w.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", w.Code, w.Body)
	}
	var desc struct {
		Placeholders []struct {
			ID       string `json:"id"`
			FontSize int    `json:"font_size"`
			Position struct {
				X float64 `json:"x"`
				Y float64 `json:"y"`
			} `json:"position"`
		} `json:"placeholders"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &desc); err != nil {
		t.Fatal(err)
	}
	p := desc.Placeholders[0]
	if p.Position.X != 150 || p.Position.Y != 125 || p.FontSize != 64 {
		t.Fatalf("placeholder after patch = %+v", p)
	}

	if w := doJSON(s, http.MethodPatch, base+"/fields/"+sel.ID, map[string]any{"font_color": "red"}); w.Code != http.StatusBadRequest {
		t.Fatalf("bad colour: %d", w.Code)
	}
	if w := doJSON(s, http.MethodPatch, base+"/fields/zz", map[string]any{"x": 1}); w.Code != http.StatusNotFound {
		t.Fatalf("unknown field: %d", w.Code)
	}

	w = doJSON(s, http.MethodGet, base+"/preview", nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("preview: %d %q", w.Code, w.Header().Get("Content-Type"))
	}

	if w := doJSON(s, http.MethodDelete, base+"/fields/"+sel.ID, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete field: %d", w.Code)
	}
	w = doJSON(s, http.MethodPost, base+"/generate", map[string]any{"names": []string{"A"}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("generate without placeholders: %d", w.Code)
	}
}

func TestStampAppearsInTemplate(t *testing.T) {
	s := newTestServer(t)
	id := readyWorkspace(t, s)
	w := doJSON(s, http.MethodPost, "/api/sessions/"+id+"/stamps", map[string]any{"size": 64, "content": "https://example.com/verify?n={name}"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add stamp: %d %s", w.Code, w.Body)
	}
	if w := doJSON(s, http.MethodPost, "/api/sessions/"+id+"/stamps", map[string]any{"size": 8, "content": "x"}); w.Code != http.StatusBadRequest {
		t.Fatalf("tiny stamp: %d", w.Code)
	}
	w = doJSON(s, http.MethodPost, "/api/sessions/"+id+"/generate", map[string]any{"names": []string{"Eve"}})
	if w.Code != http.StatusOK {
		t.Fatalf("generate: %d %s", w.Code, w.Body)
	}
}

func TestTemplateExportImport(t *testing.T) {
	s := newTestServer(t)
	src := readyWorkspace(t, s)
	exported := doJSON(s, http.MethodGet, "/api/sessions/"+src+"/template", nil)
	if exported.Code != http.StatusOK {
		t.Fatalf("export: %d", exported.Code)
	}

	dst := decode[idResponse](t, doJSON(s, http.MethodPost, "/api/sessions", nil)).ID
	w := do(s, http.MethodPut, "/api/sessions/"+dst+"/template", bytes.NewReader(exported.Body.Bytes()), "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("import: %d %s", w.Code, w.Body)
	}
	w = doJSON(s, http.MethodPost, "/api/sessions/"+dst+"/generate", map[string]any{"names": []string{"Zoe"}})
	if w.Code != http.StatusOK {
		t.Fatalf("generate on imported template: %d %s", w.Code, w.Body)
	}
}

func TestDeleteSession(t *testing.T) {
	s := newTestServer(t)
	id := decode[idResponse](t, doJSON(s, http.MethodPost, "/api/sessions", nil)).ID
	if w := doJSON(s, http.MethodDelete, "/api/sessions/"+id, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", w.Code)
	}
	if w := doJSON(s, http.MethodGet, "/api/sessions/"+id, nil); w.Code != http.StatusNotFound {
		t.Fatalf("get after delete: %d", w.Code)
	}
}

type fieldView struct {
	ID        string `json:"id"`
	FontSize  int    `json:"font_size"`
	FontColor string `json:"font_color"`
	Position  struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"position"`
}

type sessionView struct {
	Style struct {
		FontSize  int    `json:"font_size"`
		FontColor string `json:"font_color"`
	} `json:"style"`
	Template struct {
		Placeholders []fieldView `json:"placeholders"`
	} `json:"template"`
}

func TestRejectedPatchLeavesFieldUntouched(t *testing.T) {
	s := newTestServer(t)
	id := readyWorkspace(t, s)
	base := "/api/sessions/" + id
	before := decode[sessionView](t, doJSON(s, http.MethodGet, base, nil))
	fieldID := before.Template.Placeholders[0].ID

	tests := []struct {
		name string
		body map[string]any
		code int
	}{
		{"bad colour", map[string]any{"x": 10, "y": 10, "font_size": 100, "font_color": "nothex"}, http.StatusBadRequest},
		{"font size out of range", map[string]any{"x": 10, "scale": 2, "font_size": 500}, http.StatusBadRequest},
		{"zero scale", map[string]any{"x": 10, "y": 10, "scale": 0}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(s, http.MethodPatch, base+"/fields/"+fieldID, tt.body)
			if w.Code != tt.code {
				t.Fatalf("code = %d, want %d (%s)", w.Code, tt.code, w.Body)
			}
			after := decode[sessionView](t, doJSON(s, http.MethodGet, base, nil))
			if diff := cmp.Diff(before, after); diff != "" {
				t.Fatalf("rejected patch changed the workspace (-before +after):\n%s", diff)
			}
		})
	}
}

func TestRejectedAddFieldKeepsStyle(t *testing.T) {
	s := newTestServer(t)
	id := decode[idResponse](t, doJSON(s, http.MethodPost, "/api/sessions", nil)).ID
	base := "/api/sessions/" + id

	w := doJSON(s, http.MethodPost, base+"/fields", map[string]any{"font_size": 150, "font_color": "#ff0000"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("add field without background: %d %s", w.Code, w.Body)
	}
	got := decode[sessionView](t, doJSON(s, http.MethodGet, base, nil))
	if got.Style.FontSize != 48 || got.Style.FontColor != "#000000" {
		t.Fatalf("style after rejected add = %+v", got.Style)
	}

	w = doJSON(s, http.MethodPost, base+"/fields", map[string]any{"font_size": 7})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("tiny font: %d", w.Code)
	}
}
