package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/launchlog/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger   *slog.Logger
	Renderer PageRenderer

	// ミドルウェア依存
	Sessions     middleware.SessionVerifier
	HTTPRecorder middleware.HTTPRecorder
	CSRFConfig   middleware.CSRFConfig

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 記事
	PostService PostServiceInterface

	// 運用
	DB             Pinger
	MetricsHandler http.Handler
}

// loginPath はログインページのパス。未ログインで著者専用ページにアクセスした場合の遷移先。
const loginPath = "/auth/login"

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → SecurityHeaders → Metrics → Session → Logging
//
// ページと認証ルートにはさらにCSRF、/composeにはRequireAuthorを重ねる。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()
	p := pages{renderer: deps.Renderer}

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware(p.writeStatus))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewMetricsMiddleware(deps.HTTPRecorder))
	r.Use(middleware.NewSessionMiddleware(deps.Sessions))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	r.NotFound(p.notFound)
	r.MethodNotAllowed(p.methodNotAllowed)

	postHandler := NewPostHandler(deps.PostService, deps.Renderer)
	feedHandler := NewFeedHandler(deps.PostService, deps.Renderer)
	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, deps.Renderer)
	healthHandler := NewHealthHandler(deps.DB)

	// --- 運用エンドポイント ---
	r.Get("/health", healthHandler.Health)
	r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	r.Get("/feed", feedHandler.Feed)

	// --- ページ ---
	csrfConfig := deps.CSRFConfig
	if csrfConfig.OnFailure == nil {
		csrfConfig.OnFailure = p.writeStatus
	}
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(csrfConfig))

		r.Get("/", postHandler.Home)
		r.Get("/archive", postHandler.Archive)
		r.Get("/entry", postHandler.Entry)

		r.Get("/auth/login", authHandler.Login)
		r.Get("/auth/logout", authHandler.Logout)

		// 著者専用
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewRequireAuthorMiddleware(loginPath))
			r.Get("/compose", postHandler.ComposeForm)
			r.Post("/compose", postHandler.ComposeSubmit)
		})
	})

	return r
}
