package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/gotodo/internal/auth"
	"github.com/yourusername/gotodo/internal/todo"
)

type stubAuthService struct {
	user *todo.User
	err  error
}

func (s *stubAuthService) Register(ctx context.Context, username, plaintext string) (*todo.User, error) {
	return s.user, s.err
}

func (s *stubAuthService) Login(ctx context.Context, username, plaintext string) (*todo.User, error) {
	return s.user, s.err
}

type stubSessionManager struct {
	token string
	err   error
}

func (s *stubSessionManager) EstablishSession(c *gin.Context, user *todo.User) (string, error) {
	return s.token, s.err
}

func (s *stubSessionManager) ClearSession(c *gin.Context) error {
	return s.err
}

type stubTodoService struct {
	item  *todo.Todo
	items []todo.Todo
	err   error
}

func (s *stubTodoService) Create(ctx context.Context, ownerID uint, content string) (*todo.Todo, error) {
	return s.item, s.err
}

func (s *stubTodoService) ListByOwner(ctx context.Context, ownerID uint) ([]todo.Todo, error) {
	return s.items, s.err
}

func (s *stubTodoService) ToggleCompleted(ctx context.Context, todoID, requesterID uint) (*todo.Todo, error) {
	return s.item, s.err
}

func (s *stubTodoService) Delete(ctx context.Context, todoID, requesterID uint) error {
	return s.err
}

// asUser はテスト用にログイン済みユーザーIDをコンテキストへ載せるミドルウェアです。
func asUser(id uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.ContextUserIDKey, id)
		c.Next()
	}
}

func doJSON(router *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	var body *bytes.Buffer
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewBuffer(data)
	} else {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response %q: %v", rec.Body.String(), err)
	}
	return payload["code"]
}

func TestRegisterHandlerSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubAuthService{user: &todo.User{ID: 7, Username: "alice"}}

	router := gin.New()
	router.POST("/api/auth/register", RegisterHandler(svc))

	rec := doJSON(router, http.MethodPost, "/api/auth/register",
		map[string]string{"username": "alice", "password": "secret1"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	var payload struct {
		ID       uint   `json:"id"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if payload.ID != 7 || payload.Username != "alice" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestRegisterHandlerDuplicate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubAuthService{err: todo.ErrDuplicateUsername}

	router := gin.New()
	router.POST("/api/auth/register", RegisterHandler(svc))

	rec := doJSON(router, http.MethodPost, "/api/auth/register",
		map[string]string{"username": "alice", "password": "secret1"})

	if rec.Code != http.StatusConflict {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "DUPLICATE_USERNAME" {
		t.Fatalf("unexpected code: %s", code)
	}
}

func TestRegisterHandlerMissingFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/auth/register", RegisterHandler(&stubAuthService{}))

	rec := doJSON(router, http.MethodPost, "/api/auth/register",
		map[string]string{"username": "alice"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "INVALID_INPUT" {
		t.Fatalf("unexpected code: %s", code)
	}
}

func TestLoginHandlerSetsCSRFHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubAuthService{user: &todo.User{ID: 7, Username: "alice"}}
	sessions := &stubSessionManager{token: "test-token"}

	router := gin.New()
	router.POST("/api/auth/login", LoginHandler(svc, sessions))

	rec := doJSON(router, http.MethodPost, "/api/auth/login",
		map[string]string{"username": "alice", "password": "secret1"})

	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-CSRF-Token") != "test-token" {
		t.Fatalf("expected CSRF token header, got %q", rec.Header().Get("X-CSRF-Token"))
	}
}

func TestLoginHandlerInvalidCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubAuthService{err: todo.ErrInvalidCredentials}

	router := gin.New()
	router.POST("/api/auth/login", LoginHandler(svc, &stubSessionManager{}))

	rec := doJSON(router, http.MethodPost, "/api/auth/login",
		map[string]string{"username": "alice", "password": "wrong"})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "INVALID_CREDENTIALS" {
		t.Fatalf("unexpected code: %s", code)
	}
}

func TestListTodosHandlerReturnsEmptyArray(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/todos", asUser(1), ListTodosHandler(&stubTodoService{}))

	rec := doJSON(router, http.MethodGet, "/api/todos", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if body := rec.Body.String(); !bytes.Contains([]byte(body), []byte(`"todos":[]`)) {
		t.Fatalf("expected empty array, got %s", body)
	}
}

func TestListTodosHandlerRequiresIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	// ミドルウェアなし: コンテキストにユーザーIDが載っていない
	router.GET("/api/todos", ListTodosHandler(&stubTodoService{}))

	rec := doJSON(router, http.MethodGet, "/api/todos", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestCreateTodoHandlerSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubTodoService{item: &todo.Todo{ID: 3, Content: "牛乳を買う", OwnerID: 1}}

	router := gin.New()
	router.POST("/api/todos", asUser(1), CreateTodoHandler(svc))

	rec := doJSON(router, http.MethodPost, "/api/todos",
		map[string]string{"content": "牛乳を買う"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	var item todo.Todo
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if item.ID != 3 || item.Completed {
		t.Fatalf("unexpected item: %+v", item)
	}
}

func TestCreateTodoHandlerInvalidInput(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubTodoService{err: todo.ErrInvalidInput}

	router := gin.New()
	router.POST("/api/todos", asUser(1), CreateTodoHandler(svc))

	rec := doJSON(router, http.MethodPost, "/api/todos",
		map[string]string{"content": "   "})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "INVALID_INPUT" {
		t.Fatalf("unexpected code: %s", code)
	}
}

func TestToggleTodoHandlerForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubTodoService{err: todo.ErrForbidden}

	router := gin.New()
	router.POST("/api/todos/:id/toggle", asUser(2), ToggleTodoHandler(svc))

	rec := doJSON(router, http.MethodPost, "/api/todos/1/toggle", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "FORBIDDEN" {
		t.Fatalf("unexpected code: %s", code)
	}
}

func TestDeleteTodoHandlerNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubTodoService{err: todo.ErrNotFound}

	router := gin.New()
	router.DELETE("/api/todos/:id", asUser(1), DeleteTodoHandler(svc))

	rec := doJSON(router, http.MethodDelete, "/api/todos/999", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestDeleteTodoHandlerRejectsMalformedID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.DELETE("/api/todos/:id", asUser(1), DeleteTodoHandler(&stubTodoService{}))

	rec := doJSON(router, http.MethodDelete, "/api/todos/abc", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}
