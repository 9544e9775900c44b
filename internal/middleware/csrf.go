package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"
)

const (
	// CSRFCookieName はXSRFトークンを保持するCookieの名前。
	CSRFCookieName = "_xsrf"

	// CSRFFormField はフォームでXSRFトークンを送信する際のフィールド名。
	CSRFFormField = "_xsrf"

	// csrfHeaderNames はリクエストヘッダーからトークンを読み取る際のヘッダー名。
	csrfHeaderName    = "X-XSRFToken"
	csrfAltHeaderName = "X-CSRF-Token"

	csrfCookieMaxAge = 86400 // 24時間
)

var csrfTokenContextKey = contextKey("csrf_token")

// CSRFConfig はCSRFミドルウェアの設定。
type CSRFConfig struct {
	CookieSecure bool
	CookieDomain string

	// OnFailure はトークン検証失敗時の403レスポンスを書き込む。nilの場合はtext/plain。
	OnFailure ErrorWriter
}

// NewCSRFMiddleware はダブルサブミットCookie方式のXSRF対策ミドルウェアを返す。
// 安全なメソッド（GET, HEAD, OPTIONS）はトークン検証をスキップし、
// トークンCookieが無ければ発行する。
// 状態変更メソッドはCookieのトークンと、フォームフィールド_xsrfまたは
// X-XSRFToken/X-CSRF-Tokenヘッダーのトークンの一致を必須とする。
// どちらの場合もトークンをコンテキストに格納し、テンプレートから参照できるようにする。
func NewCSRFMiddleware(config CSRFConfig) func(next http.Handler) http.Handler {
	onFailure := errorWriterOrDefault(config.OnFailure)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				token, err := ensureCSRFCookie(w, r, config)
				if err != nil {
					slog.Error("failed to generate CSRF token", slog.String("error", err.Error()))
					onFailure(w, r, http.StatusInternalServerError)
					return
				}
				next.ServeHTTP(w, r.WithContext(contextWithCSRFToken(r.Context(), token)))
				return
			}

			cookie, err := r.Cookie(CSRFCookieName)
			if err != nil || cookie.Value == "" {
				rejectCSRF(w, r, onFailure, "missing cookie token")
				return
			}

			submitted := submittedCSRFToken(r)
			if submitted == "" {
				rejectCSRF(w, r, onFailure, "missing submitted token")
				return
			}

			if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(submitted)) != 1 {
				rejectCSRF(w, r, onFailure, "token mismatch")
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithCSRFToken(r.Context(), cookie.Value)))
		})
	}
}

// CSRFTokenFromContext はコンテキストに格納されたXSRFトークンを返す。
func CSRFTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(csrfTokenContextKey).(string)
	return token
}

func contextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfTokenContextKey, token)
}

func rejectCSRF(w http.ResponseWriter, r *http.Request, onFailure ErrorWriter, reason string) {
	slog.Warn("CSRF validation failed: "+reason,
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
	onFailure(w, r, http.StatusForbidden)
}

// submittedCSRFToken はヘッダー、フォームの順にトークンを探す。
func submittedCSRFToken(r *http.Request) string {
	if token := r.Header.Get(csrfHeaderName); token != "" {
		return token
	}
	if token := r.Header.Get(csrfAltHeaderName); token != "" {
		return token
	}
	return r.PostFormValue(CSRFFormField)
}

// isSafeMethod はHTTPメソッドが安全（読み取り専用）かどうかを判定する。
func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// ensureCSRFCookie は既存のトークンを返し、未設定の場合は新規発行してCookieに設定する。
func ensureCSRFCookie(w http.ResponseWriter, r *http.Request, config CSRFConfig) (string, error) {
	if cookie, err := r.Cookie(CSRFCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	token, err := generateCSRFToken()
	if err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   csrfCookieMaxAge,
		HttpOnly: false, // X-XSRFTokenヘッダーで送るクライアントが読み取れるようにする
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

// generateCSRFToken は暗号的に安全なCSRFトークンを生成する。
func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
