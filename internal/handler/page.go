// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/launchlog/internal/middleware"
	"github.com/hitoshi/launchlog/internal/model"
	"github.com/hitoshi/launchlog/internal/view"
)

// PageRenderer はハンドラーが必要とする描画インターフェース。
// view.Rendererが満たす。
type PageRenderer interface {
	Home(w http.ResponseWriter, v view.Viewer, posts []*model.Post) error
	Archive(w http.ResponseWriter, v view.Viewer, posts []*model.Post) error
	Entry(w http.ResponseWriter, v view.Viewer, post *model.Post) error
	Compose(w http.ResponseWriter, v view.Viewer, post *model.Post) error
	Error(w http.ResponseWriter, v view.Viewer, statusCode int, apiErr *model.APIError) error
	Feed(w io.Writer, posts []*model.Post) error
}

// viewerFromRequest はミドルウェアがコンテキストに格納した値から閲覧者情報を組み立てる。
func viewerFromRequest(r *http.Request) view.Viewer {
	authorID, _ := middleware.AuthorIDFromContext(r.Context())
	return view.Viewer{
		AuthorID:   authorID,
		XSRFToken:  middleware.CSRFTokenFromContext(r.Context()),
		RequestURI: r.URL.RequestURI(),
	}
}

// pages はページ描画とエラーページの書き込みをまとめる。
type pages struct {
	renderer PageRenderer
}

// render はページ描画関数を実行し、失敗した場合は500を返す。
func (p pages) render(w http.ResponseWriter, r *http.Request, fn func() error) {
	if err := fn(); err != nil {
		slog.Error("failed to render page",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		p.writeError(w, r, http.StatusInternalServerError, model.NewInternalError())
	}
}

// writeError はエラーページを書き込む。テンプレート描画にも失敗した場合はtext/plainで返す。
func (p pages) writeError(w http.ResponseWriter, r *http.Request, statusCode int, apiErr *model.APIError) {
	if err := p.renderer.Error(w, viewerFromRequest(r), statusCode, apiErr); err != nil {
		slog.Error("failed to render error page", slog.String("error", err.Error()))
		http.Error(w, http.StatusText(statusCode), statusCode)
	}
}

// writeStatus はステータスコードのみのエラーページを書き込む。
// middleware.ErrorWriterとして使う。
func (p pages) writeStatus(w http.ResponseWriter, r *http.Request, statusCode int) {
	p.writeError(w, r, statusCode, nil)
}

func (p pages) notFound(w http.ResponseWriter, r *http.Request) {
	p.writeStatus(w, r, http.StatusNotFound)
}

func (p pages) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	p.writeStatus(w, r, http.StatusMethodNotAllowed)
}

// handleServiceError はサービス層のエラーを適切なステータスのエラーページに変換する。
// APIError以外の内部エラーは詳細をログのみに記録する。
func (p pages) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		status := statusForCode(apiErr.Code)
		if status >= http.StatusInternalServerError {
			slog.Error("request failed",
				slog.String("code", apiErr.Code),
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			)
		}
		p.writeError(w, r, status, apiErr)
		return
	}

	slog.Error("internal error",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	p.writeError(w, r, http.StatusInternalServerError, model.NewInternalError())
}

// statusForCode はエラーコードをHTTPステータスに対応付ける。
func statusForCode(code string) int {
	switch code {
	case model.ErrCodePostNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
