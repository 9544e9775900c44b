package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/launchlog/internal/middleware"
	"github.com/hitoshi/launchlog/internal/model"
	"github.com/hitoshi/launchlog/internal/post"
	"github.com/hitoshi/launchlog/internal/security"
	"github.com/hitoshi/launchlog/internal/view"
)

const (
	testAuthorToken = "valid-author-token"
	testXSRFToken   = "test-xsrf-token"
)

// --- モック定義 ---

// memoryPostRepo はテスト用のインメモリPostRepository。
type memoryPostRepo struct {
	mu     sync.Mutex
	posts  map[int64]*model.Post
	nextID int64
	err    error
}

func newMemoryPostRepo() *memoryPostRepo {
	return &memoryPostRepo{posts: make(map[int64]*model.Post), nextID: 1}
}

func (m *memoryPostRepo) List(_ context.Context) ([]*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*model.Post, 0, len(m.posts))
	for _, p := range m.posts {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memoryPostRepo) FindByID(_ context.Context, id int64) (*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memoryPostRepo) Create(_ context.Context, p *model.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	p.ID = m.nextID
	m.nextID++
	cp := *p
	m.posts[p.ID] = &cp
	return nil
}

func (m *memoryPostRepo) UpdateLocation(_ context.Context, id int64, location string) (*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.posts[id]
	if !ok {
		return nil, nil
	}
	p.Location = location
	cp := *p
	return &cp, nil
}

func (m *memoryPostRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.posts)
}

func (m *memoryPostRepo) seed(location string, date time.Time) *model.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &model.Post{ID: m.nextID, Location: location, Date: date}
	m.nextID++
	m.posts[p.ID] = p
	cp := *p
	return &cp
}

type mockSessionVerifier struct{}

func (mockSessionVerifier) CurrentAuthorID(token string) (int64, bool) {
	if token == testAuthorToken {
		return 1, true
	}
	return 0, false
}

type mockAuthService struct {
	getLoginURLFn    func(state string) string
	handleCallbackFn func(ctx context.Context, code string) (*model.Session, error)
}

func (m *mockAuthService) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return "https://accounts.google.com/o/oauth2/auth?state=" + url.QueryEscape(state)
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code)
	}
	return nil, errors.New("not configured")
}

type mockPinger struct {
	err error
}

func (m mockPinger) PingContext(_ context.Context) error {
	return m.err
}

type nopHTTPRecorder struct{}

func (nopHTTPRecorder) RecordHTTPRequest(string, string, int, time.Duration) {}

// --- テスト用ルーター ---

type testApp struct {
	repo    *memoryPostRepo
	auth    *mockAuthService
	pinger  mockPinger
	handler http.Handler
}

func newTestRenderer(t *testing.T) *view.Renderer {
	t.Helper()
	r, err := view.New(view.Options{
		BlogTitle: "Launch Log",
		BaseURL:   "http://blog.test",
		Sanitizer: security.NewContentSanitizer(),
	})
	if err != nil {
		t.Fatalf("view.New() error = %v", err)
	}
	return r
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	app := &testApp{
		repo: newMemoryPostRepo(),
		auth: &mockAuthService{},
	}
	app.build(t)
	return app
}

func (a *testApp) build(t *testing.T) {
	t.Helper()
	a.handler = NewRouter(&RouterDeps{
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Renderer:     newTestRenderer(t),
		Sessions:     mockSessionVerifier{},
		HTTPRecorder: nopHTTPRecorder{},
		AuthService:  a.auth,
		AuthConfig:   AuthHandlerConfig{SessionMaxAge: 3600},
		PostService:  post.NewService(a.repo, nil),
		DB:           a.pinger,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("# metrics"))
		}),
	})
}

func (a *testApp) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func asAuthor(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: testAuthorToken})
	return req
}

// composePost はXSRFトークン付きのPOST /composeリクエストを組み立てる。
func composePost(form url.Values) *http.Request {
	form.Set(middleware.CSRFFormField, testXSRFToken)
	req := httptest.NewRequest(http.MethodPost, "/compose", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: testXSRFToken})
	return req
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
