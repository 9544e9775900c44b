// Package view はHTMLページとAtomフィードの描画を提供する。
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/launchlog/internal/model"
)

//go:embed templates
var templateFS embed.FS

// ページテンプレート名
const (
	pageHome    = "home"
	pageArchive = "archive"
	pageEntry   = "entry"
	pageCompose = "compose"
	pageError   = "error"
)

var pageNames = []string{pageHome, pageArchive, pageEntry, pageCompose, pageError}

const htmlContentType = "text/html; charset=utf-8"

// Sanitizer はフィードに埋め込むHTMLをサニタイズする。
// security.ContentSanitizerが満たす。
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

// Options はRendererの設定。
type Options struct {
	BlogTitle string
	// BaseURL はフィード内の絶対URLの組み立てに使う（末尾スラッシュなし）。
	BaseURL   string
	Sanitizer Sanitizer
}

// Viewer はページを閲覧しているリクエストの状態を表す。
type Viewer struct {
	AuthorID   int64
	XSRFToken  string
	RequestURI string
}

// LoggedIn は著者としてログインしているかを返す。
func (v Viewer) LoggedIn() bool {
	return v.AuthorID > 0
}

// entryView はエントリ部品に渡す記事の表示用データ。
type entryView struct {
	ID        int64
	Location  string
	Date      time.Time
	Permalink string
	EditURL   string
}

type errorView struct {
	Status     int
	StatusText string
	Message    string
	Action     string
}

type pageData struct {
	BlogTitle string
	Title     string
	Viewer    Viewer
	Entries   []entryView
	Entry     *entryView
	Error     errorView
}

// Renderer はテンプレートを保持し、ページを描画する。
// 生成後は読み取り専用で、複数のgoroutineから同時に使える。
type Renderer struct {
	blogTitle   string
	baseURL     string
	sanitizer   Sanitizer
	pages       map[string]*template.Template
	entryModule *template.Template
	now         func() time.Time
}

// New は埋め込みテンプレートを解析してRendererを生成する。
func New(opts Options) (*Renderer, error) {
	if opts.Sanitizer == nil {
		return nil, fmt.Errorf("view: sanitizer is required")
	}

	funcs := template.FuncMap{
		"formatDate": formatDate,
		"isoDate":    isoDate,
	}

	base, err := template.New("base").Funcs(funcs).ParseFS(templateFS,
		"templates/layout.html",
		"templates/modules/*.html",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base templates: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to clone base templates: %w", err)
		}
		page, err := clone.ParseFS(templateFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		pages[name] = page
	}

	entryModule, err := base.Clone()
	if err != nil {
		return nil, fmt.Errorf("failed to clone entry module: %w", err)
	}

	return &Renderer{
		blogTitle:   opts.BlogTitle,
		baseURL:     opts.BaseURL,
		sanitizer:   opts.Sanitizer,
		pages:       pages,
		entryModule: entryModule,
		now:         time.Now,
	}, nil
}

// Home はトップページを描画する。
func (r *Renderer) Home(w http.ResponseWriter, v Viewer, posts []*model.Post) error {
	return r.renderPage(w, http.StatusOK, pageHome, pageData{
		Viewer:  v,
		Entries: r.entryViews(v, posts),
	})
}

// Archive はアーカイブページを描画する。
func (r *Renderer) Archive(w http.ResponseWriter, v Viewer, posts []*model.Post) error {
	return r.renderPage(w, http.StatusOK, pageArchive, pageData{
		Title:   "Archive",
		Viewer:  v,
		Entries: r.entryViews(v, posts),
	})
}

// Entry は記事ページを描画する。
func (r *Renderer) Entry(w http.ResponseWriter, v Viewer, post *model.Post) error {
	entry := r.entryView(v, post, "")
	return r.renderPage(w, http.StatusOK, pageEntry, pageData{
		Title:  post.Location,
		Viewer: v,
		Entry:  &entry,
	})
}

// Compose は記事の作成・編集フォームを描画する。postがnilの場合は空のフォームになる。
func (r *Renderer) Compose(w http.ResponseWriter, v Viewer, post *model.Post) error {
	data := pageData{Title: "New post", Viewer: v}
	if post != nil {
		entry := r.entryView(v, post, "")
		data.Title = "Edit post"
		data.Entry = &entry
	}
	return r.renderPage(w, http.StatusOK, pageCompose, data)
}

// Error はエラーページを指定ステータスで描画する。
// apiErrがnilの場合はステータスコードの文言のみを表示する。
func (r *Renderer) Error(w http.ResponseWriter, v Viewer, statusCode int, apiErr *model.APIError) error {
	ev := errorView{
		Status:     statusCode,
		StatusText: http.StatusText(statusCode),
	}
	if apiErr != nil {
		ev.Message = apiErr.Message
		ev.Action = apiErr.Action
	}
	return r.renderPage(w, statusCode, pageError, pageData{
		Title:  ev.StatusText,
		Viewer: v,
		Error:  ev,
	})
}

// renderPage はバッファに描画してからレスポンスを書き込む。
// 描画に失敗した場合は何も書き込まずにエラーを返す。
func (r *Renderer) renderPage(w http.ResponseWriter, statusCode int, name string, data pageData) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page template %q", name)
	}

	data.BlogTitle = r.blogTitle

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("failed to render %s page: %w", name, err)
	}

	w.Header().Set("Content-Type", htmlContentType)
	w.WriteHeader(statusCode)
	_, err := buf.WriteTo(w)
	return err
}

// renderEntryModule はエントリ部品のみをHTML断片として描画する。
func (r *Renderer) renderEntryModule(entry entryView) (string, error) {
	var buf bytes.Buffer
	if err := r.entryModule.ExecuteTemplate(&buf, "entry", entry); err != nil {
		return "", fmt.Errorf("failed to render entry module: %w", err)
	}
	return buf.String(), nil
}

func (r *Renderer) entryViews(v Viewer, posts []*model.Post) []entryView {
	views := make([]entryView, 0, len(posts))
	for _, p := range posts {
		views = append(views, r.entryView(v, p, ""))
	}
	return views
}

// entryView は記事を表示用データに変換する。
// prefixが空の場合はサイト内の相対URLを使う。編集リンクはログイン中のみ付与する。
func (r *Renderer) entryView(v Viewer, post *model.Post, prefix string) entryView {
	id := strconv.FormatInt(post.ID, 10)
	ev := entryView{
		ID:        post.ID,
		Location:  post.Location,
		Date:      post.Date,
		Permalink: prefix + "/entry?id=" + id,
	}
	if v.LoggedIn() {
		ev.EditURL = prefix + "/compose?id=" + id
	}
	return ev
}

func formatDate(t time.Time) string {
	return t.UTC().Format("January 2, 2006")
}

func isoDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
