package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/hitoshi/launchlog/internal/model"
	"github.com/hitoshi/launchlog/internal/post"
)

// PostServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	List(ctx context.Context) ([]*model.Post, error)
	Get(ctx context.Context, id int64) (*model.Post, error)
	Create(ctx context.Context, location string) (*model.Post, error)
	Update(ctx context.Context, id int64, location string) (*model.Post, error)
}

// PostHandler は記事の閲覧と作成・編集のHTTPハンドラー。
type PostHandler struct {
	service PostServiceInterface
	pages   pages
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface, renderer PageRenderer) *PostHandler {
	return &PostHandler{
		service: service,
		pages:   pages{renderer: renderer},
	}
}

// Home は記事一覧を表示する。記事が1件もない場合は作成フォームへリダイレクトする。
// GET /
func (h *PostHandler) Home(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.List(r.Context())
	if err != nil {
		h.pages.handleServiceError(w, r, err)
		return
	}
	if len(posts) == 0 {
		http.Redirect(w, r, "/compose", http.StatusFound)
		return
	}

	h.pages.render(w, r, func() error {
		return h.pages.renderer.Home(w, viewerFromRequest(r), posts)
	})
}

// Archive は全記事の一覧を表示する。記事がなくてもリダイレクトしない。
// GET /archive
func (h *PostHandler) Archive(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.List(r.Context())
	if err != nil {
		h.pages.handleServiceError(w, r, err)
		return
	}

	h.pages.render(w, r, func() error {
		return h.pages.renderer.Archive(w, viewerFromRequest(r), posts)
	})
}

// Entry は1件の記事を表示する。IDが無い・不正・存在しない場合は404。
// GET /entry?id=N
func (h *PostHandler) Entry(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("id")
	id, ok := post.ParseID(raw)
	if !ok {
		h.pages.handleServiceError(w, r, model.NewPostNotFoundError(raw))
		return
	}

	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.pages.handleServiceError(w, r, err)
		return
	}

	h.pages.render(w, r, func() error {
		return h.pages.renderer.Entry(w, viewerFromRequest(r), p)
	})
}

// ComposeForm は作成フォーム、またはidで指定した記事の編集フォームを表示する。
// 指定したidの記事が存在しない場合は404。
// GET /compose[?id=N]
func (h *PostHandler) ComposeForm(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("id"))
	if raw == "" {
		h.pages.render(w, r, func() error {
			return h.pages.renderer.Compose(w, viewerFromRequest(r), nil)
		})
		return
	}

	id, ok := post.ParseID(raw)
	if !ok {
		h.pages.handleServiceError(w, r, model.NewPostNotFoundError(raw))
		return
	}

	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.pages.handleServiceError(w, r, err)
		return
	}

	h.pages.render(w, r, func() error {
		return h.pages.renderer.Compose(w, viewerFromRequest(r), p)
	})
}

// ComposeSubmit はフォームの内容で記事を作成または更新し、記事ページへリダイレクトする。
// idがあれば既存記事のlocationを更新し、なければ新規作成する。
// POST /compose
func (h *PostHandler) ComposeSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.handleServiceError(w, r, model.NewInvalidFormError())
		return
	}

	// ボディとクエリの両方を参照する（同名の場合はボディを優先）
	location := r.FormValue("location")
	raw := strings.TrimSpace(r.FormValue("id"))

	var (
		p   *model.Post
		err error
	)
	if raw != "" {
		id, ok := post.ParseID(raw)
		if !ok {
			h.pages.handleServiceError(w, r, model.NewPostNotFoundError(raw))
			return
		}
		p, err = h.service.Update(r.Context(), id, location)
	} else {
		p, err = h.service.Create(r.Context(), location)
	}
	if err != nil {
		h.pages.handleServiceError(w, r, err)
		return
	}

	http.Redirect(w, r, "/entry?id="+strconv.FormatInt(p.ID, 10), http.StatusSeeOther)
}
