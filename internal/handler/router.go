package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/unifeed/internal/metrics"
	"github.com/hitoshi/unifeed/internal/middleware"
)

// HealthChecker はヘルスチェックで使用するDB疎通確認のインターフェース。
// *sql.DB がこれを満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionValidator  middleware.SessionValidator
	SessionConfig     middleware.SessionConfig
	CSRFConfig        middleware.CSRFConfig
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// フィード
	FeedService FeedServiceInterface

	// ユーザー
	UserService UserServiceInterface

	// 運用系
	HealthChecker HealthChecker
	Gatherer      prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → SessionMiddleware → CSRF → RateLimit(GeneralMiddleware)
//
// 認証ルート（/auth/*）、ヘルスチェック、メトリクス、デモフィードは
// セッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	feedHandler := NewFeedHandler(deps.FeedService)
	userHandler := NewUserHandler(deps.UserService)

	// --- 認証不要のルート ---

	// ヘルスチェック
	r.Get("/health", newHealthHandler(deps.HealthChecker))

	// Prometheusメトリクス
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/{provider}/login", authHandler.Login)
		r.Get("/{provider}/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// 未ログイン向けデモフィード
	r.Get("/feeds/sample", feedHandler.SampleFeed)

	// CSRFトークン取得
	r.Handle("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionValidator, deps.SessionConfig))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// フィード取得
		r.Route("/api/feeds", func(r chi.Router) {
			r.Get("/", feedHandler.UnifiedFeed)
			r.Get("/{provider}", feedHandler.PlatformFeed)
		})

		// ユーザー管理
		r.Route("/api/users/me", func(r chi.Router) {
			r.Get("/", userHandler.Me)
			r.Get("/settings", userHandler.GetSettings)
			r.Post("/disconnect/{provider}", userHandler.Disconnect)
		})
	})

	return r
}

// newHealthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()

			if err := checker.PingContext(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
				return
			}
		}

		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
