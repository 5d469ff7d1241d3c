// Package auth はセッションによる認証と本人確認ミドルウェアを提供します。
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/gotodo/internal/flash"
	"github.com/yourusername/gotodo/internal/password"
	"github.com/yourusername/gotodo/internal/todo"
)

const (
	SessionCookieName    = "todo_session"
	sessionKeyUserID     = "auth_user_id"
	sessionKeyIssuedAt   = "issued_at"
	sessionKeyLastActive = "last_activity"
	sessionKeyCSRF       = "csrf_token"

	csrfHeader    = "X-CSRF-Token"
	csrfFormField = "csrf_token"

	// LoginPath は未ログイン時のリダイレクト先です。
	LoginPath = "/login"
)

var (
	maxSessionLifetime = 12 * time.Hour
	idleTimeout        = 30 * time.Minute
)

// SessionMaxAgeSeconds はクッキーの MaxAge に利用する秒数を返します。
func SessionMaxAgeSeconds() int {
	return int(maxSessionLifetime.Seconds())
}

// ContextUserIDKey は、ハンドラー間でログイン済みユーザーIDを共有するためのキーです。
const ContextUserIDKey = "auth.user_id"

// Manager は認証処理をまとめた構造体です。
// 資格情報は UserStore に保存された複数ユーザーを対象とします。
type Manager struct {
	users  *todo.UserStore
	hasher *password.Hasher
}

// NewManager は認証マネージャーを作成します。
func NewManager(users *todo.UserStore, hasher *password.Hasher) *Manager {
	return &Manager{
		users:  users,
		hasher: hasher,
	}
}

// Register は形式検証 → ハッシュ化 → 保存の順で新規ユーザーを登録します。
// 重複ユーザー名は todo.ErrDuplicateUsername になります。
func (m *Manager) Register(ctx context.Context, username, plaintext string) (*todo.User, error) {
	if err := todo.ValidateCredentials(username, plaintext); err != nil {
		return nil, err
	}
	digest, err := m.hasher.Hash(plaintext)
	if err != nil {
		return nil, err
	}
	return m.users.Register(ctx, username, digest)
}

// Login は資格情報を検証し、成功時にユーザーを返します。
// ユーザー不存在とパスワード不一致はどちらも todo.ErrInvalidCredentials で、
// メッセージを区別しません（ユーザー名の存在を推測させないため）。
func (m *Manager) Login(ctx context.Context, username, plaintext string) (*todo.User, error) {
	user, err := m.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, todo.ErrNotFound) {
			return nil, todo.ErrInvalidCredentials
		}
		return nil, err
	}
	if !m.hasher.Verify(plaintext, user.PasswordHash) {
		return nil, todo.ErrInvalidCredentials
	}
	return user, nil
}

// EstablishSession はログイン成功後のセッションを確立し、CSRFトークンを返します。
func (m *Manager) EstablishSession(c *gin.Context, user *todo.User) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}

	session := sessions.Default(c)
	now := time.Now()
	session.Set(sessionKeyUserID, int64(user.ID))
	session.Set(sessionKeyIssuedAt, now.Unix())
	session.Set(sessionKeyLastActive, now.Unix())
	session.Set(sessionKeyCSRF, token)
	if err := session.Save(); err != nil {
		return "", err
	}
	return token, nil
}

// ClearSession はセッションを無条件に破棄します。未ログインでも失敗しません。
func (m *Manager) ClearSession(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	return session.Save()
}

// UserID は現在のリクエストのログイン済みユーザーIDを返します。
// ミドルウェアを通らない公開ページでも利用できます。
func (m *Manager) UserID(c *gin.Context) (uint, bool) {
	if v, exists := c.Get(ContextUserIDKey); exists {
		if id, ok := v.(uint); ok {
			return id, true
		}
	}
	id, state := resolveSession(sessions.Default(c))
	if state != stateAuthenticated {
		return 0, false
	}
	return id, true
}

// CurrentUser はセッションのユーザーIDからユーザーを解決します。
func (m *Manager) CurrentUser(c *gin.Context) (*todo.User, error) {
	id, ok := m.UserID(c)
	if !ok {
		return nil, todo.ErrInvalidCredentials
	}
	return m.users.FindByID(c.Request.Context(), id)
}

// CSRFToken は現在のセッションのCSRFトークンを返します。フォーム埋め込み用です。
func (m *Manager) CSRFToken(c *gin.Context) string {
	token, _ := sessions.Default(c).Get(sessionKeyCSRF).(string)
	return token
}

type sessionState int

const (
	stateAnonymous sessionState = iota
	stateAuthenticated
	stateExpired
	stateIdle
)

// resolveSession はセッションからユーザーIDと状態を読み取ります。
// 書き込みは行いません。
func resolveSession(session sessions.Session) (uint, sessionState) {
	id := readUserID(session.Get(sessionKeyUserID))
	if id == 0 {
		return 0, stateAnonymous
	}

	now := time.Now()
	issuedAt := readUnix(session.Get(sessionKeyIssuedAt))
	lastActive := readUnix(session.Get(sessionKeyLastActive))

	if issuedAt.IsZero() || now.Sub(issuedAt) > maxSessionLifetime {
		return 0, stateExpired
	}
	if lastActive.IsZero() || now.Sub(lastActive) > idleTimeout {
		return 0, stateIdle
	}
	return id, stateAuthenticated
}

// RequireLogin は画面向けのログイン必須ミドルウェアを返します。
// 未ログイン時は元のURLを next に載せてログイン画面へリダイレクトします。
func (m *Manager) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		id, state := resolveSession(session)
		switch state {
		case stateAuthenticated:
		case stateAnonymous:
			flash.Add(c, flash.CategoryInfo, "このページを表示するにはログインしてください。")
			redirectToLogin(c)
			return
		default:
			session.Clear()
			_ = session.Save()
			flash.Add(c, flash.CategoryInfo, "セッションの有効期限が切れました。再度ログインしてください。")
			redirectToLogin(c)
			return
		}

		session.Set(sessionKeyLastActive, time.Now().Unix())
		_ = session.Save()
		c.Set(ContextUserIDKey, id)
		c.Next()
	}
}

// RequireLoginAPI はJSON API向けのログイン必須ミドルウェアを返します。
func (m *Manager) RequireLoginAPI() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		id, state := resolveSession(session)
		switch state {
		case stateAuthenticated:
		case stateAnonymous:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "UNAUTHORIZED",
				"message": "ログインが必要です",
			})
			return
		case stateExpired:
			session.Clear()
			_ = session.Save()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "SESSION_EXPIRED",
				"message": "セッションの有効期限が切れました",
			})
			return
		case stateIdle:
			session.Clear()
			_ = session.Save()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "SESSION_IDLE_TIMEOUT",
				"message": "しばらく操作がなかったため再ログインしてください",
			})
			return
		}

		session.Set(sessionKeyLastActive, time.Now().Unix())
		_ = session.Save()
		c.Set(ContextUserIDKey, id)
		c.Next()
	}
}

// VerifyCSRF はCSRFトークンを検証するミドルウェアです。
// APIは X-CSRF-Token ヘッダー、HTMLフォームは csrf_token フィールドで送信します。
func (m *Manager) VerifyCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		session := sessions.Default(c)
		expected, ok := session.Get(sessionKeyCSRF).(string)
		if !ok || expected == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    "CSRF_MISSING",
				"message": "CSRF トークンが設定されていません",
			})
			return
		}

		received := c.GetHeader(csrfHeader)
		if received == "" {
			received = c.PostForm(csrfFormField)
		}
		if subtle.ConstantTimeCompare([]byte(expected), []byte(received)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    "CSRF_INVALID",
				"message": "CSRF トークンが一致しません",
			})
			return
		}

		c.Next()
	}
}

func redirectToLogin(c *gin.Context) {
	next := c.Request.URL.RequestURI()
	c.Redirect(http.StatusFound, LoginPath+"?next="+url.QueryEscape(next))
	c.Abort()
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func readUserID(v interface{}) uint {
	switch id := v.(type) {
	case int64:
		if id > 0 {
			return uint(id)
		}
	case int:
		if id > 0 {
			return uint(id)
		}
	case uint:
		return id
	}
	return 0
}

func readUnix(v interface{}) time.Time {
	switch t := v.(type) {
	case int64:
		return time.Unix(t, 0)
	case int:
		return time.Unix(int64(t), 0)
	case float64:
		return time.Unix(int64(t), 0)
	default:
		return time.Time{}
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
