// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"net/http"
	"net/url"
)

// SessionCookieName は著者セッショントークンを保持するCookieの名前。
const SessionCookieName = "blogdemo_user"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// authorIDContextKey はリクエストコンテキストに著者IDを格納するためのキー。
var authorIDContextKey = contextKey("author_id")

// SessionVerifier はセッショントークンの検証に必要なインターフェース。
// auth.Serviceが満たす。
type SessionVerifier interface {
	CurrentAuthorID(token string) (int64, bool)
}

// NewSessionMiddleware はCookieからセッショントークンを読み取り、
// 有効であれば著者IDをリクエストコンテキストに注入するミドルウェアを返す。
// トークンが無い・不正・期限切れのリクエストは匿名として通過させる。
func NewSessionMiddleware(verifier SessionVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			authorID, ok := verifier.CurrentAuthorID(cookie.Value)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithAuthorID(r.Context(), authorID)))
		})
	}
}

// NewRequireAuthorMiddleware は著者としてログインしていないリクエストを
// ログインページへリダイレクトするミドルウェアを返す。
// 元のリクエストURIはnextパラメータとして引き継ぐ。
func NewRequireAuthorMiddleware(loginPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := AuthorIDFromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}
			target := loginPath + "?" + url.Values{"next": {r.URL.RequestURI()}}.Encode()
			http.Redirect(w, r, target, http.StatusFound)
		})
	}
}

// AuthorIDFromContext はリクエストコンテキストから著者IDを取得する。
// セッションミドルウェアで検証済みの場合のみtrueを返す。
func AuthorIDFromContext(ctx context.Context) (int64, bool) {
	authorID, ok := ctx.Value(authorIDContextKey).(int64)
	if !ok || authorID <= 0 {
		return 0, false
	}
	return authorID, true
}

// ContextWithAuthorID はコンテキストに著者IDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithAuthorID(ctx context.Context, authorID int64) context.Context {
	return context.WithValue(ctx, authorIDContextKey, authorID)
}
