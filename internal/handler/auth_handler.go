package handler

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/launchlog/internal/middleware"
	"github.com/hitoshi/launchlog/internal/model"
)

const (
	oauthStateCookie = "oauth_state"
	oauthNextCookie  = "oauth_next"
	oauthCookieTTL   = 600 // 10分
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(state string) string
	HandleCallback(ctx context.Context, code string) (*model.Session, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はOAuthログインとログアウトのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
	pages   pages
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig, renderer PageRenderer) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
		pages:   pages{renderer: renderer},
	}
}

// Login はGoogle OAuthフローの開始とコールバックの両方を処理する。
// codeもerrorも無ければフローを開始し、あればIdPからの戻りとして処理する。
// GET /auth/login[?next=...]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("code") == "" && q.Get("error") == "" {
		h.beginLogin(w, r)
		return
	}
	h.completeLogin(w, r)
}

// beginLogin はstateと遷移先をCookieに保存し、IdPの認証画面へリダイレクトする。
func (h *AuthHandler) beginLogin(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		h.pages.handleServiceError(w, r, fmt.Errorf("failed to generate oauth state: %w", err))
		return
	}

	// stateをCookieに保存（CSRF対策）
	h.setShortLivedCookie(w, oauthStateCookie, state)
	h.setShortLivedCookie(w, oauthNextCookie, url.QueryEscape(safeNext(r.URL.Query().Get("next"))))

	http.Redirect(w, r, h.service.GetLoginURL(state), http.StatusFound)
}

// completeLogin はIdPからのコールバックを処理する。
// state不一致・IdPのエラー・コード交換失敗は認証エラー（500）とする。
// 別の著者が既に存在する場合はセッションを発行せずにトップへリダイレクトする。
func (h *AuthHandler) completeLogin(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	stateCookie, cookieErr := r.Cookie(oauthStateCookie)
	h.clearCookie(w, oauthStateCookie, "")
	next := h.consumeNext(w, r)

	if idpErr := q.Get("error"); idpErr != "" {
		h.pages.handleServiceError(w, r, model.NewAuthenticationError(fmt.Errorf("identity provider returned error %q", idpErr)))
		return
	}

	state := q.Get("state")
	if cookieErr != nil || state == "" || subtle.ConstantTimeCompare([]byte(stateCookie.Value), []byte(state)) != 1 {
		slog.Warn("oauth state mismatch", slog.String("query_state", state))
		h.pages.handleServiceError(w, r, model.NewAuthenticationError(errors.New("oauth state mismatch")))
		return
	}

	session, err := h.service.HandleCallback(r.Context(), q.Get("code"))
	if err != nil {
		h.pages.handleServiceError(w, r, err)
		return
	}
	if session == nil {
		// 著者は1人まで。2人目のログインは拒否してトップへ戻す
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	// セッションCookieを設定（HTTP Only）
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, next, http.StatusFound)
}

// Logout はログイン状態にかかわらずセッションCookieを削除し、nextまたはトップへリダイレクトする。
// GET /auth/logout[?next=...]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, middleware.SessionCookieName, h.config.CookieDomain)
	http.Redirect(w, r, safeNext(r.URL.Query().Get("next")), http.StatusFound)
}

// consumeNext はログイン開始時に保存した遷移先を取り出してCookieを削除する。
func (h *AuthHandler) consumeNext(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(oauthNextCookie)
	if err != nil {
		return safeNext(r.URL.Query().Get("next"))
	}
	h.clearCookie(w, oauthNextCookie, "")

	next, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return "/"
	}
	return safeNext(next)
}

func (h *AuthHandler) setShortLivedCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   oauthCookieTTL,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name, domain string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// safeNext はサイト内のパスのみを遷移先として許可する。
// スキーム付きURLやプロトコル相対URL（//host）は"/"に置き換える。
func safeNext(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/"
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	return raw
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
