package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/chatman/internal/middleware"
)

// Pinger はヘルスチェックに必要なデータベース接続インターフェース。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// チャット
	MessageRouter  MessageRouterInterface
	HistoryService HistoryServiceInterface
	UserService    UserServiceInterface

	// WebSocketトランスポート
	WSHandler http.Handler

	// 運用系
	DB             Pinger
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → CORS → SessionMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// 認証ルート（/api/auth/*）と運用系ルート（/health, /metrics）は
// セッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	chatHandler := NewChatHandler(deps.MessageRouter, deps.HistoryService)
	userHandler := NewUserHandler(deps.UserService)

	// --- 認証不要のルート ---

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// 運用系
	r.Get("/health", healthHandler(deps.DB))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/chat", func(r chi.Router) {
			r.Get("/users", userHandler.ListUsers)
			r.Get("/history/{userId}/{recipientId}", chatHandler.GetHistory)

			// POST /api/chat/message - 送信専用レート制限を追加
			r.With(deps.RateLimiter.MessageSendMiddleware()).Post("/message", chatHandler.PostMessage)
		})

		// WebSocket接続（アップグレード前にセッション検証を通す）
		if deps.WSHandler != nil {
			r.Method(http.MethodGet, "/ws", deps.WSHandler)
		}
	})

	return r
}

// healthHandler はデータベース接続を確認し、稼働状態を返す。
func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
