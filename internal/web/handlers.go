// Package web はサーバーサイドレンダリングの画面とフォーム処理を提供します。
package web

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/gotodo/internal/auth"
	"github.com/yourusername/gotodo/internal/flash"
	"github.com/yourusername/gotodo/internal/todo"
)

// Handler は画面系ルートのハンドラー群です。
type Handler struct {
	auth   *auth.Manager
	todos  *todo.TodoStore
	logger *log.Logger
}

// NewHandler は Handler を作成します。
func NewHandler(authManager *auth.Manager, todos *todo.TodoStore, logger *log.Logger) *Handler {
	return &Handler{
		auth:   authManager,
		todos:  todos,
		logger: logger,
	}
}

// Index は GET / のハンドラーです。ログイン済みならダッシュボードへ転送します。
func (h *Handler) Index(c *gin.Context) {
	if _, ok := h.auth.UserID(c); ok {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	h.render(c, http.StatusOK, "index.html", nil)
}

// ShowRegister は GET /register のハンドラーです。
func (h *Handler) ShowRegister(c *gin.Context) {
	h.render(c, http.StatusOK, "register.html", gin.H{"Username": ""})
}

// SubmitRegister は POST /register のハンドラーです。
// 形式エラーと重複ユーザー名はフォームを再表示し、成功時はログイン画面へ転送します。
func (h *Handler) SubmitRegister(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	plaintext := c.PostForm("password")
	confirm := c.PostForm("confirm_password")

	if plaintext != confirm {
		flash.Add(c, flash.CategoryDanger, "パスワードが確認用の入力と一致しません。")
		h.render(c, http.StatusOK, "register.html", gin.H{"Username": username})
		return
	}

	_, err := h.auth.Register(c.Request.Context(), username, plaintext)
	if err != nil {
		if errors.Is(err, todo.ErrInvalidInput) || errors.Is(err, todo.ErrDuplicateUsername) {
			flash.Add(c, flash.CategoryDanger, err.Error())
			h.render(c, http.StatusOK, "register.html", gin.H{"Username": username})
			return
		}
		h.renderError(c, err)
		return
	}

	flash.Add(c, flash.CategorySuccess, "アカウントを作成しました。ログインできます。")
	c.Redirect(http.StatusFound, "/login")
}

// ShowLogin は GET /login のハンドラーです。ログイン済みならダッシュボードへ転送します。
func (h *Handler) ShowLogin(c *gin.Context) {
	if _, ok := h.auth.UserID(c); ok {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	h.render(c, http.StatusOK, "login.html", gin.H{"Username": "", "Next": c.Query("next")})
}

// SubmitLogin は POST /login のハンドラーです。
// 成功時は next で指定された遷移先（安全なパスのみ）またはダッシュボードへ転送します。
func (h *Handler) SubmitLogin(c *gin.Context) {
	if _, ok := h.auth.UserID(c); ok {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}

	username := strings.TrimSpace(c.PostForm("username"))
	plaintext := c.PostForm("password")
	next := c.PostForm("next")

	if username == "" || plaintext == "" {
		flash.Add(c, flash.CategoryDanger, "ユーザー名とパスワードを入力してください。")
		h.render(c, http.StatusOK, "login.html", gin.H{"Username": username, "Next": next})
		return
	}

	user, err := h.auth.Login(c.Request.Context(), username, plaintext)
	if err != nil {
		if errors.Is(err, todo.ErrInvalidCredentials) {
			flash.Add(c, flash.CategoryDanger, err.Error())
			h.render(c, http.StatusOK, "login.html", gin.H{"Username": username, "Next": next})
			return
		}
		h.renderError(c, err)
		return
	}

	if _, err := h.auth.EstablishSession(c, user); err != nil {
		h.renderError(c, err)
		return
	}

	flash.Add(c, flash.CategorySuccess, "ログインしました。")
	c.Redirect(http.StatusFound, safeNext(next))
}

// Logout は GET /logout のハンドラーです。
func (h *Handler) Logout(c *gin.Context) {
	if err := h.auth.ClearSession(c); err != nil {
		h.renderError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// Dashboard は GET /dashboard のハンドラーです。自分のToDo一覧を表示します。
func (h *Handler) Dashboard(c *gin.Context) {
	user, err := h.auth.CurrentUser(c)
	if err != nil {
		h.renderError(c, err)
		return
	}

	items, err := h.todos.ListByOwner(c.Request.Context(), user.ID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	h.render(c, http.StatusOK, "dashboard.html", gin.H{
		"Username": user.Username,
		"Todos":    items,
	})
}

// CreateTodo は POST /dashboard のハンドラーです。
func (h *Handler) CreateTodo(c *gin.Context) {
	userID, ok := h.auth.UserID(c)
	if !ok {
		c.Redirect(http.StatusFound, auth.LoginPath)
		return
	}

	_, err := h.todos.Create(c.Request.Context(), userID, c.PostForm("content"))
	if err != nil {
		if errors.Is(err, todo.ErrInvalidInput) {
			flash.Add(c, flash.CategoryDanger, err.Error())
			c.Redirect(http.StatusFound, "/dashboard")
			return
		}
		h.renderError(c, err)
		return
	}

	flash.Add(c, flash.CategorySuccess, "新しいToDoを追加しました。")
	c.Redirect(http.StatusFound, "/dashboard")
}

// UpdateTodo は POST /todo/update/:id のハンドラーです。完了フラグを反転します。
func (h *Handler) UpdateTodo(c *gin.Context) {
	userID, ok := h.auth.UserID(c)
	if !ok {
		c.Redirect(http.StatusFound, auth.LoginPath)
		return
	}

	todoID, err := parseID(c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	if _, err := h.todos.ToggleCompleted(c.Request.Context(), todoID, userID); err != nil {
		h.renderError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/dashboard")
}

// DeleteTodo は POST /todo/delete/:id のハンドラーです。
func (h *Handler) DeleteTodo(c *gin.Context) {
	userID, ok := h.auth.UserID(c)
	if !ok {
		c.Redirect(http.StatusFound, auth.LoginPath)
		return
	}

	todoID, err := parseID(c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	if err := h.todos.Delete(c.Request.Context(), todoID, userID); err != nil {
		h.renderError(c, err)
		return
	}

	flash.Add(c, flash.CategorySuccess, "ToDoを削除しました。")
	c.Redirect(http.StatusFound, "/dashboard")
}

func (h *Handler) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Flashes"] = flash.Take(c)
	data["CSRFToken"] = h.auth.CSRFToken(c)
	c.HTML(status, name, data)
}

// renderError は業務エラーをステータスコード付きのエラーページに変換します。
// 想定外のエラーは内容をログに残し、画面には汎用メッセージだけを出します。
func (h *Handler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, todo.ErrNotFound):
		h.render(c, http.StatusNotFound, "error.html", gin.H{
			"Status":  http.StatusNotFound,
			"Message": todo.ErrNotFound.Message,
		})
	case errors.Is(err, todo.ErrForbidden):
		h.render(c, http.StatusForbidden, "error.html", gin.H{
			"Status":  http.StatusForbidden,
			"Message": todo.ErrForbidden.Message,
		})
	default:
		h.logger.Printf("internal error: %v", err)
		h.render(c, http.StatusInternalServerError, "error.html", gin.H{
			"Status":  http.StatusInternalServerError,
			"Message": "サーバー内部でエラーが発生しました。",
		})
	}
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, todo.ErrNotFound
	}
	return uint(id), nil
}

// safeNext はログイン後の遷移先を検証します。
// サイト内の相対パスのみ許可し、それ以外はダッシュボードへ送ります。
func safeNext(next string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && !strings.Contains(next, "\\") {
		return next
	}
	return "/dashboard"
}
