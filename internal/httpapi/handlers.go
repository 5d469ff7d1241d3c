// Package httpapi はセッション認証付きのJSON APIハンドラーを提供します。
package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/gotodo/internal/auth"
	"github.com/yourusername/gotodo/internal/todo"
)

const csrfHeader = "X-CSRF-Token"

// AuthService は資格情報の登録と検証を提供します。
type AuthService interface {
	Register(ctx context.Context, username, plaintext string) (*todo.User, error)
	Login(ctx context.Context, username, plaintext string) (*todo.User, error)
}

// SessionManager はログイン状態の確立と破棄を提供します。
type SessionManager interface {
	EstablishSession(c *gin.Context, user *todo.User) (string, error)
	ClearSession(c *gin.Context) error
}

// TodoService はToDoのCRUD操作を提供します。
type TodoService interface {
	Create(ctx context.Context, ownerID uint, content string) (*todo.Todo, error)
	ListByOwner(ctx context.Context, ownerID uint) ([]todo.Todo, error)
	ToggleCompleted(ctx context.Context, todoID, requesterID uint) (*todo.Todo, error)
	Delete(ctx context.Context, todoID, requesterID uint) error
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type createTodoRequest struct {
	Content string `json:"content" binding:"required"`
}

// RegisterHandler は POST /api/auth/register のハンドラーを返します。
func RegisterHandler(svc AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "username と password を JSON で送ってください",
			})
			return
		}

		user, err := svc.Register(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"id":       user.ID,
			"username": user.Username,
		})
	}
}

// LoginHandler は POST /api/auth/login のハンドラーを返します。
// 成功時はセッションを確立し、CSRFトークンをレスポンスヘッダーで返します。
func LoginHandler(svc AuthService, sessions SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "username と password を JSON で送ってください",
			})
			return
		}

		user, err := svc.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			respondWithError(c, err)
			return
		}

		token, err := sessions.EstablishSession(c, user)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "SESSION_SAVE_FAILED",
				"message": "セッションの保存に失敗しました",
			})
			return
		}

		c.Header(csrfHeader, token)
		c.Status(http.StatusNoContent)
	}
}

// LogoutHandler は POST /api/auth/logout のハンドラーを返します。
func LogoutHandler(sessions SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := sessions.ClearSession(c); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "SESSION_SAVE_FAILED",
				"message": "セッションの削除に失敗しました",
			})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// ListTodosHandler は GET /api/todos のハンドラーを返します。
func ListTodosHandler(svc TodoService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			respondUnauthorized(c)
			return
		}

		items, err := svc.ListByOwner(c.Request.Context(), userID)
		if err != nil {
			respondWithError(c, err)
			return
		}
		if items == nil {
			items = []todo.Todo{}
		}
		c.JSON(http.StatusOK, gin.H{"todos": items})
	}
}

// CreateTodoHandler は POST /api/todos のハンドラーを返します。
func CreateTodoHandler(svc TodoService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			respondUnauthorized(c)
			return
		}

		var req createTodoRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "content を JSON で送ってください",
			})
			return
		}

		item, err := svc.Create(c.Request.Context(), userID, req.Content)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, item)
	}
}

// ToggleTodoHandler は POST /api/todos/:id/toggle のハンドラーを返します。
func ToggleTodoHandler(svc TodoService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			respondUnauthorized(c)
			return
		}

		todoID, err := parseID(c.Param("id"))
		if err != nil {
			respondWithError(c, err)
			return
		}

		item, err := svc.ToggleCompleted(c.Request.Context(), todoID, userID)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

// DeleteTodoHandler は DELETE /api/todos/:id のハンドラーを返します。
func DeleteTodoHandler(svc TodoService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			respondUnauthorized(c)
			return
		}

		todoID, err := parseID(c.Param("id"))
		if err != nil {
			respondWithError(c, err)
			return
		}

		if err := svc.Delete(c.Request.Context(), todoID, userID); err != nil {
			respondWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func currentUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get(auth.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

func respondUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"code":    "UNAUTHORIZED",
		"message": "ログインが必要です",
	})
}

// respondWithError は業務エラーをステータスコードに変換します。
// 想定外のエラーは内容をログへ残し、レスポンスには出しません。
func respondWithError(c *gin.Context, err error) {
	var appErr *todo.Error
	switch {
	case errors.As(err, &appErr):
		c.JSON(statusForCode(appErr.Code), gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		})
	case errors.Is(err, context.Canceled):
		c.JSON(http.StatusRequestTimeout, gin.H{
			"code":    "REQUEST_CANCELED",
			"message": "リクエストがキャンセルされました。",
		})
	default:
		log.Printf("httpapi: internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "サーバー内部でエラーが発生しました。",
		})
	}
}

func statusForCode(code string) int {
	switch code {
	case todo.ErrInvalidCredentials.Code:
		return http.StatusUnauthorized
	case todo.ErrDuplicateUsername.Code:
		return http.StatusConflict
	case todo.ErrNotFound.Code:
		return http.StatusNotFound
	case todo.ErrForbidden.Code:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, todo.ErrNotFound
	}
	return uint(id), nil
}
