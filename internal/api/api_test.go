package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/pastename/internal/apperr"
	"github.com/starford/pastename/internal/models"
	"github.com/starford/pastename/internal/testutil"
)

var pngData = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// testEnv sets up a temp vault, journal, services and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*testutil.Env, http.Handler) {
	t.Helper()
	return testEnvWithSSE(t, authToken != "", authToken, nil)
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string, sseHandler http.Handler) (*testutil.Env, http.Handler) {
	t.Helper()
	env := testutil.NewEnv(t)
	router := NewRouter(Deps{
		Settings:  env.Settings,
		Workspace: env.Workspace,
		Renamer:   env.Renamer,
		Journal:   env.Journal,
		Paste:     env.Paste,
	}, authEnabled, token, sseHandler)
	return env, router
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func focus(t *testing.T, router http.Handler, path string, line int) {
	t.Helper()
	w := do(t, router, http.MethodPut, "/session", map[string]any{
		"path":   path,
		"cursor": map[string]int{"line": line, "ch": 0},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("set session = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestSettings_GetAndUpdate(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/settings", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get settings = %d", w.Code)
	}
	var got map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got["template"] != "{{DATE:YYYY.MM.DD-hhmmss}}" {
		t.Errorf("default template = %q", got["template"])
	}

	w = do(t, router, http.MethodPut, "/settings", UpdateSettingsRequest{Template: "{{fileName}}-{{DATE:HHmm}}"})
	if w.Code != http.StatusOK {
		t.Fatalf("update settings = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/settings", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got["template"] != "{{fileName}}-{{DATE:HHmm}}" {
		t.Errorf("template after update = %q", got["template"])
	}
}

func TestUpdateSettings_Invalid(t *testing.T) {
	_, router := testEnv(t, "")

	for _, tmpl := range []string{"", "a/{{fileName}}"} {
		w := do(t, router, http.MethodPut, "/settings", UpdateSettingsRequest{Template: tmpl})
		if w.Code != http.StatusBadRequest {
			t.Errorf("template %q = %d, want 400", tmpl, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPut, "/settings", strings.NewReader("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad JSON = %d, want 400", w.Code)
	}
}

func TestSession_Lifecycle(t *testing.T) {
	env, router := testEnv(t, "")
	env.Write(t, "Daily.md", "---\nimageNameKey: trip\n---\nbody\n")

	if w := do(t, router, http.MethodGet, "/session", nil); w.Code != http.StatusConflict {
		t.Errorf("no session = %d, want 409", w.Code)
	}

	focus(t, router, "Daily.md", 3)

	w := do(t, router, http.MethodGet, "/session", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get session = %d", w.Code)
	}
	var resp SessionResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Document == nil || resp.Document.BaseName != "Daily" || resp.Document.ImageNameKey != "trip" {
		t.Errorf("document = %+v", resp.Document)
	}
	if resp.Document.Cursor == nil || resp.Document.Cursor.Line != 3 {
		t.Errorf("cursor = %+v", resp.Document.Cursor)
	}

	if w := do(t, router, http.MethodDelete, "/session", nil); w.Code != http.StatusNoContent {
		t.Errorf("clear session = %d, want 204", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/session", nil); w.Code != http.StatusConflict {
		t.Errorf("after clear = %d, want 409", w.Code)
	}
}

func TestSetSession_Errors(t *testing.T) {
	env, router := testEnv(t, "")
	env.Write(t, "image.png", "x")

	if w := do(t, router, http.MethodPut, "/session", map[string]any{"path": "ghost.md"}); w.Code != http.StatusNotFound {
		t.Errorf("missing note = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodPut, "/session", map[string]any{"path": "image.png"}); w.Code != http.StatusBadRequest {
		t.Errorf("non-markdown = %d, want 400", w.Code)
	}
}

func TestPreview(t *testing.T) {
	env, router := testEnv(t, "")
	env.Write(t, "Trip.md", "x\n")

	if w := do(t, router, http.MethodPost, "/preview", PreviewRequest{Ext: "png"}); w.Code != http.StatusConflict {
		t.Errorf("preview without session = %d, want 409", w.Code)
	}

	focus(t, router, "Trip.md", 0)

	w := do(t, router, http.MethodPost, "/preview", PreviewRequest{Ext: "png"})
	if w.Code != http.StatusOK {
		t.Fatalf("preview = %d, body = %s", w.Code, w.Body.String())
	}
	var resp PreviewResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Name != "2022.10.26-052752.png" {
		t.Errorf("name = %q", resp.Name)
	}

	w = do(t, router, http.MethodPost, "/preview", PreviewRequest{Ext: "jpg", Template: "{{fileName}} {{DATE:YYYY}}"})
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Name != "Trip 2022.jpg" {
		t.Errorf("name with template = %q", resp.Name)
	}

	if w := do(t, router, http.MethodPost, "/preview", PreviewRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("preview without ext = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/preview", PreviewRequest{Ext: "png", Template: "x/y"}); w.Code != http.StatusBadRequest {
		t.Errorf("preview bad template = %d, want 400", w.Code)
	}
}

func TestRename_EndToEnd(t *testing.T) {
	env, router := testEnv(t, "")
	env.Write(t, "Today.md", "# Today\nLook: ![[attachments/Pasted image 1.png]]\n")
	env.Write(t, "attachments/Pasted image 1.png", "png")
	focus(t, router, "Today.md", 1)

	w := do(t, router, http.MethodPost, "/rename", RenameRequest{Path: "attachments/Pasted image 1.png"})
	if w.Code != http.StatusOK {
		t.Fatalf("rename = %d, body = %s", w.Code, w.Body.String())
	}
	var res RenameResult
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.NewPath != "attachments/2022.10.26-052752.png" || !res.LineChanged {
		t.Errorf("result = %+v", res)
	}
	if got := env.Read(t, "Today.md"); got != "# Today\nLook: ![[attachments/2022.10.26-052752.png]]\n" {
		t.Errorf("note = %q", got)
	}

	w = do(t, router, http.MethodGet, "/activity?limit=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("activity = %d", w.Code)
	}
	var act ActivityResponse
	_ = json.Unmarshal(w.Body.Bytes(), &act)
	if len(act.Notices) != 1 || act.Notices[0].Level != models.NoticeInfo {
		t.Fatalf("notices = %+v", act.Notices)
	}
	if act.Notices[0].Message != "Renamed Pasted image 1.png to 2022.10.26-052752.png" {
		t.Errorf("message = %q", act.Notices[0].Message)
	}
}

func TestRename_Errors(t *testing.T) {
	env, router := testEnv(t, "")
	env.Write(t, "Note.md", "x\n")
	env.Write(t, "shot.png", "png")
	env.Write(t, "2022.10.26-052752.png", "taken")

	if w := do(t, router, http.MethodPost, "/rename", RenameRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("empty path = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/rename", RenameRequest{Path: "ghost.png"}); w.Code != http.StatusNotFound {
		t.Errorf("missing file = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/rename", RenameRequest{Path: "Note.md"}); w.Code != http.StatusBadRequest {
		t.Errorf("markdown file = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/rename", RenameRequest{Path: "shot.png"}); w.Code != http.StatusConflict {
		t.Errorf("no active document = %d, want 409", w.Code)
	}

	focus(t, router, "Note.md", 0)
	if w := do(t, router, http.MethodPost, "/rename", RenameRequest{Path: "shot.png"}); w.Code != http.StatusConflict {
		t.Errorf("destination taken = %d, want 409", w.Code)
	}
	if got := env.Read(t, "2022.10.26-052752.png"); got != "taken" {
		t.Errorf("existing file overwritten: %q", got)
	}
}

func TestWriteError_StatusAndCause(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		body string
	}{
		{"rename failed", fmt.Errorf("%w: x.png: %w", apperr.ErrRenameFailed, errors.New("permission denied")), http.StatusUnprocessableEntity, "permission denied"},
		{"rename onto existing", fmt.Errorf("%w: %w", apperr.ErrRenameFailed, apperr.ErrAlreadyExists), http.StatusConflict, "already exists"},
		{"bad render", fmt.Errorf("%w: empty name", apperr.ErrInvalidTemplate), http.StatusBadRequest, "empty name"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeError(w, "rename", tt.err)
			if w.Code != tt.code {
				t.Errorf("status = %d, want %d", w.Code, tt.code)
			}
			if !strings.Contains(w.Body.String(), tt.body) {
				t.Errorf("body = %s, want %q", w.Body.String(), tt.body)
			}
		})
	}
}

func TestRename_RenderedPathRejected(t *testing.T) {
	env, router := testEnv(t, "")
	env.Write(t, "Note.md", "---\nimageNameKey: ../out\n---\n![[shot.png]]\n")
	env.Write(t, "shot.png", "png")
	if _, err := env.Settings.SetTemplate("{{imageNameKey}}"); err != nil {
		t.Fatal(err)
	}
	focus(t, router, "Note.md", 3)

	w := do(t, router, http.MethodPost, "/rename", RenameRequest{Path: "shot.png"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("rename = %d, want 400, body = %s", w.Code, w.Body.String())
	}
	if got := env.Read(t, "shot.png"); got != "png" {
		t.Errorf("file moved: %q", got)
	}
}

func TestActivity_EmptyAndFiltered(t *testing.T) {
	env, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/activity", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("activity = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"notices":[]`) {
		t.Errorf("empty activity body = %s", w.Body.String())
	}

	ctx := context.Background()
	_, _ = env.Journal.Record(ctx, models.Notice{Level: models.NoticeInfo, Message: "ok"})
	_, _ = env.Journal.Record(ctx, models.Notice{Level: models.NoticeError, Message: "bad"})

	w = do(t, router, http.MethodGet, "/activity?level=error", nil)
	var act ActivityResponse
	_ = json.Unmarshal(w.Body.Bytes(), &act)
	if len(act.Notices) != 1 || act.Notices[0].Message != "bad" {
		t.Errorf("filtered = %+v", act.Notices)
	}
}

// Auth middleware tests.

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/settings", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret")

	w := do(t, router, http.MethodGet, "/settings", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/settings", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
	if got := w.Header().Get("WWW-Authenticate"); !strings.HasPrefix(got, "Bearer") {
		t.Errorf("WWW-Authenticate = %q", got)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/settings", nil)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

// blockingSSE writes headers and blocks until the request context is done.
var blockingSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "secret", blockingSSE)

	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "tok", blockingSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
}

func TestSSEEvents_NotMountedWithoutHandler(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusNotFound && w.Code != http.StatusMethodNotAllowed {
		t.Errorf("events without handler = %d", w.Code)
	}
}

// Attachment tests.

func uploadFile(t *testing.T, router http.Handler, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(part, bytes.NewReader(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/attachments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadAttachment_UsesPastedImageName(t *testing.T) {
	env, router := testEnv(t, "")

	w := uploadFile(t, router, "clipboard.png", pngData)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	var resp AttachmentUploadResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !strings.HasPrefix(resp.Path, "attachments/Pasted image ") || !strings.HasSuffix(resp.Path, ".png") {
		t.Errorf("path = %q", resp.Path)
	}
	if resp.Size != int64(len(pngData)) {
		t.Errorf("size = %d", resp.Size)
	}
	if got := env.Read(t, resp.Path); got != string(pngData) {
		t.Errorf("content mismatch")
	}
}

func TestUploadAttachment_EmbedsInActiveNote(t *testing.T) {
	env, router := testEnv(t, "")
	env.Write(t, "Board.md", "Sketch: \n")
	focus(t, router, "Board.md", 0)

	w := uploadFile(t, router, "x.png", pngData)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	var resp AttachmentUploadResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Document != "Board.md" || resp.Link != "![["+resp.Path+"]]" {
		t.Errorf("resp = %+v", resp)
	}
	if got := env.Read(t, "Board.md"); got != resp.Link+"Sketch: \n" {
		t.Errorf("note = %q", got)
	}
}

func TestUploadAttachment_ContentMismatch(t *testing.T) {
	_, router := testEnv(t, "")
	w := uploadFile(t, router, "fake.png", []byte("not an image"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("mismatched content = %d, want 400", w.Code)
	}
}

func TestUploadAttachment_TraversalNameIgnored(t *testing.T) {
	_, router := testEnv(t, "")
	w := uploadFile(t, router, "../../escape.png", pngData)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	var resp AttachmentUploadResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !strings.HasPrefix(resp.Path, "attachments/") {
		t.Errorf("path = %q escaped the attachments dir", resp.Path)
	}
}

func TestUploadAttachment_AuthProtected(t *testing.T) {
	_, router := testEnv(t, "secret")

	w := uploadFile(t, router, "x.png", pngData)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("upload no auth = %d, want 401", w.Code)
	}
}

func TestUploadAttachment_MissingFileField(t *testing.T) {
	_, router := testEnv(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("wrong", "data")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/attachments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing field = %d, want 400", w.Code)
	}
}
