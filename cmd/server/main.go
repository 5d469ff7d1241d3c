// Package main はWebサーバーのエントリーポイントです。
package main

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/gotodo/internal/auth"
	"github.com/yourusername/gotodo/internal/config"
	"github.com/yourusername/gotodo/internal/httpapi"
	"github.com/yourusername/gotodo/internal/password"
	"github.com/yourusername/gotodo/internal/todo"
	"github.com/yourusername/gotodo/internal/web"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	// データベースを開く（スキーマはここで作成される）
	db, err := todo.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()
	router.Use(requestID())

	// セッションストアの設定（クッキー署名鍵は必須）
	secret := cfg.SessionSecret
	if secret == "" {
		// 開発時のみ: プロセスごとの乱数鍵で代替する。再起動で全セッションが無効になる。
		secret = randomSecret()
		log.Println("SESSION_SECRET is not set; using a random per-process key")
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   auth.SessionMaxAgeSeconds(),
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions(auth.SessionCookieName, store))

	// CORSミドルウェアの設定（JSON APIをブラウザ以外のオリジンから使う場合）
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		"X-CSRF-Token", // CSRF保護用ヘッダー
	}
	// クライアントがレスポンスヘッダーから CSRF トークンを読み取れるように公開
	corsConfig.ExposeHeaders = []string{"X-CSRF-Token"}
	router.Use(cors.New(corsConfig))

	// 画面テンプレートの読み込み
	router.LoadHTMLGlob("web/templates/*.html")

	// 依存の組み立て
	users := todo.NewUserStore(db)
	todos := todo.NewTodoStore(db)
	hasher := password.NewHasher(cfg.BcryptCost)
	authManager := auth.NewManager(users, hasher)
	logger := log.New(os.Stdout, "[gotodo] ", log.LstdFlags)
	webHandler := web.NewHandler(authManager, todos, logger)

	// ルーティングの設定
	setupRoutes(router, authManager, webHandler, todos)

	// サーバーの起動
	addr := ":" + cfg.Port
	log.Printf("Starting server on %s (mode: %s)", addr, cfg.GinMode)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "gotodo",
		"version": "0.1.0",
	})
}

// setupRoutes は画面・APIのルートと認証周りの配線を行います。
func setupRoutes(router *gin.Engine, m *auth.Manager, h *web.Handler, todos *todo.TodoStore) {
	// まずは誰でも叩けるヘルスチェックを登録
	router.GET("/health", handleHealth)

	// 画面（認証不要）
	router.GET("/", h.Index)
	router.GET("/register", h.ShowRegister)
	router.POST("/register", h.SubmitRegister)
	router.GET("/login", h.ShowLogin)
	router.POST("/login", h.SubmitLogin)
	router.GET("/logout", h.Logout)

	// 画面（要ログイン。状態変更フォームはCSRFトークンを必須とする）
	pages := router.Group("", m.RequireLogin(), m.VerifyCSRF())
	{
		pages.GET("/dashboard", h.Dashboard)
		pages.POST("/dashboard", h.CreateTodo)
		pages.POST("/todo/update/:id", h.UpdateTodo)
		pages.POST("/todo/delete/:id", h.DeleteTodo)
	}

	api := router.Group("/api")
	{
		authRoutes := api.Group("/auth")
		{
			// ログイン前はセッション未生成なので CSRF 検証は不要
			authRoutes.POST("/register", httpapi.RegisterHandler(m))
			authRoutes.POST("/login", httpapi.LoginHandler(m, m))
			authRoutes.POST("/logout",
				m.RequireLoginAPI(),
				m.VerifyCSRF(),
				httpapi.LogoutHandler(m),
			)
		}

		protected := api.Group("/todos", m.RequireLoginAPI(), m.VerifyCSRF())
		{
			protected.GET("", httpapi.ListTodosHandler(todos))
			protected.POST("", httpapi.CreateTodoHandler(todos))
			protected.POST("/:id/toggle", httpapi.ToggleTodoHandler(todos))
			protected.DELETE("/:id", httpapi.DeleteTodoHandler(todos))
		}
	}
}

// requestID は X-Request-Id が無いリクエストに採番するミドルウェアです。
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalf("Failed to generate session secret: %v", err)
	}
	return hex.EncodeToString(buf)
}
