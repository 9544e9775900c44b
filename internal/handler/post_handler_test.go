package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestHome_Empty_RedirectsToCompose(t *testing.T) {
	app := newTestApp(t)

	w := app.serve(httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}
	if loc := w.Header().Get("Location"); loc != "/compose" {
		t.Errorf("Location = %q, want /compose", loc)
	}
}

func TestHome_WithPosts_RendersList(t *testing.T) {
	app := newTestApp(t)
	app.repo.seed("Cape Canaveral", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	app.repo.seed("Baikonur", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	w := app.serve(httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Cape Canaveral") || !strings.Contains(body, "Baikonur") {
		t.Errorf("home should list every post, got:\n%s", body)
	}
	if strings.Index(body, "Baikonur") > strings.Index(body, "Cape Canaveral") {
		t.Error("posts should be listed newest first")
	}
}

func TestArchive_Empty_DoesNotRedirect(t *testing.T) {
	app := newTestApp(t)

	w := app.serve(httptest.NewRequest(http.MethodGet, "/archive", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestEntry_NotFoundCases(t *testing.T) {
	app := newTestApp(t)
	app.repo.seed("Cape Canaveral", time.Now())

	for _, target := range []string{
		"/entry?id=999999",
		"/entry",
		"/entry?id=abc",
		"/entry?id=-1",
		"/entry?id=0",
	} {
		t.Run(target, func(t *testing.T) {
			w := app.serve(httptest.NewRequest(http.MethodGet, target, nil))
			if w.Code != http.StatusNotFound {
				t.Errorf("GET %s status = %d, want %d", target, w.Code, http.StatusNotFound)
			}
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("404 page Content-Type = %q, want text/html", ct)
			}
		})
	}
}

func TestEntry_ServiceFailure_Returns500WithoutLeakingDetails(t *testing.T) {
	app := newTestApp(t)
	app.repo.err = errors.New("pq: password authentication failed for user rocketui")

	w := app.serve(httptest.NewRequest(http.MethodGet, "/entry?id=1", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Error("error page must not leak internal error details")
	}
}

func TestCompose_Anonymous_RedirectsToLogin(t *testing.T) {
	app := newTestApp(t)

	w := app.serve(httptest.NewRequest(http.MethodGet, "/compose", nil))

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}
	loc, _ := url.Parse(w.Header().Get("Location"))
	if loc.Path != "/auth/login" {
		t.Errorf("redirect path = %q, want /auth/login", loc.Path)
	}
	if loc.Query().Get("next") != "/compose" {
		t.Errorf("next = %q, want /compose", loc.Query().Get("next"))
	}
}

func TestCompose_AnonymousPOST_DoesNotWrite(t *testing.T) {
	app := newTestApp(t)

	w := app.serve(composePost(url.Values{"location": {"Cape Canaveral"}}))

	if w.Code != http.StatusFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusFound)
	}
	if app.repo.count() != 0 {
		t.Error("anonymous POST must not create a post")
	}
}

func TestCompose_GET_BlankAndPrefilled(t *testing.T) {
	app := newTestApp(t)
	p := app.repo.seed("Kourou", time.Now())

	blank := app.serve(asAuthor(httptest.NewRequest(http.MethodGet, "/compose", nil)))
	if blank.Code != http.StatusOK {
		t.Fatalf("blank form status = %d, want 200", blank.Code)
	}
	if strings.Contains(blank.Body.String(), `name="id"`) {
		t.Error("blank form should not include id field")
	}
	// GETでXSRF Cookieが発行され、フォームにも同じ値が入る
	xsrf := findCookie(blank.Result(), "_xsrf")
	if xsrf == nil {
		t.Fatal("expected _xsrf cookie on compose form")
	}
	if !strings.Contains(blank.Body.String(), `value="`+xsrf.Value+`"`) {
		t.Error("compose form should embed the xsrf token")
	}

	edit := app.serve(asAuthor(httptest.NewRequest(http.MethodGet, "/compose?id=1", nil)))
	if edit.Code != http.StatusOK {
		t.Fatalf("edit form status = %d, want 200", edit.Code)
	}
	if !strings.Contains(edit.Body.String(), `value="`+p.Location+`"`) {
		t.Errorf("edit form should be prefilled with location, got:\n%s", edit.Body.String())
	}
}

func TestCompose_GET_UnknownID_Returns404(t *testing.T) {
	app := newTestApp(t)

	for _, target := range []string{"/compose?id=42", "/compose?id=abc"} {
		w := app.serve(asAuthor(httptest.NewRequest(http.MethodGet, target, nil)))
		if w.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want %d", target, w.Code, http.StatusNotFound)
		}
	}
}

// TestCompose_CreateThenView は作成後のリダイレクト先で同じlocationが表示されることを検証する。
func TestCompose_CreateThenView(t *testing.T) {
	app := newTestApp(t)
	before := time.Now().UTC().Add(-time.Second)

	w := app.serve(asAuthor(composePost(url.Values{"location": {"Cape Canaveral"}})))

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if loc := w.Header().Get("Location"); loc != "/entry?id=1" {
		t.Fatalf("Location = %q, want /entry?id=1", loc)
	}

	stored, _ := app.repo.FindByID(t.Context(), 1)
	if stored == nil || stored.Location != "Cape Canaveral" {
		t.Fatalf("stored post = %+v", stored)
	}
	if stored.Date.Before(before) {
		t.Errorf("date %v should not be earlier than the request time %v", stored.Date, before)
	}

	entry := app.serve(httptest.NewRequest(http.MethodGet, "/entry?id=1", nil))
	if entry.Code != http.StatusOK {
		t.Fatalf("entry status = %d, want 200", entry.Code)
	}
	if !strings.Contains(entry.Body.String(), "Cape Canaveral") {
		t.Error("entry page should show the new location")
	}
}

// TestCompose_UpdatePreservesIDAndDate は更新でlocationのみが変わることを検証する。
func TestCompose_UpdatePreservesIDAndDate(t *testing.T) {
	app := newTestApp(t)
	original := app.repo.seed("Cape Canaveral", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	w := app.serve(asAuthor(composePost(url.Values{"id": {"1"}, "location": {"Vandenberg"}})))

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if loc := w.Header().Get("Location"); loc != "/entry?id=1" {
		t.Errorf("Location = %q, want /entry?id=1", loc)
	}

	stored, _ := app.repo.FindByID(t.Context(), 1)
	if stored.Location != "Vandenberg" {
		t.Errorf("location = %q, want Vandenberg", stored.Location)
	}
	if stored.ID != original.ID || !stored.Date.Equal(original.Date) {
		t.Errorf("id/date changed: got (%d, %v), want (%d, %v)", stored.ID, stored.Date, original.ID, original.Date)
	}
	if app.repo.count() != 1 {
		t.Errorf("post count = %d, want 1", app.repo.count())
	}

	entry := app.serve(httptest.NewRequest(http.MethodGet, "/entry?id=1", nil))
	if !strings.Contains(entry.Body.String(), "Vandenberg") {
		t.Error("entry page should reflect the new location")
	}
}

// TestCompose_UpdateWithIDInQuery はクエリ文字列のidでも既存記事の更新になることを検証する。
func TestCompose_UpdateWithIDInQuery(t *testing.T) {
	app := newTestApp(t)
	original := app.repo.seed("Baikonur", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	req := composePost(url.Values{"location": {"Kourou"}})
	req.URL.RawQuery = "id=1"
	w := app.serve(asAuthor(req))

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if loc := w.Header().Get("Location"); loc != "/entry?id=1" {
		t.Errorf("Location = %q, want /entry?id=1", loc)
	}
	if app.repo.count() != 1 {
		t.Errorf("post count = %d, want 1", app.repo.count())
	}

	stored, _ := app.repo.FindByID(t.Context(), 1)
	if stored.Location != "Kourou" {
		t.Errorf("location = %q, want Kourou", stored.Location)
	}
	if !stored.Date.Equal(original.Date) {
		t.Errorf("date = %v, want %v", stored.Date, original.Date)
	}
}

// TestCompose_BodyIDTakesPrecedenceOverQuery はボディとクエリの両方にidがある場合にボディが使われることを検証する。
func TestCompose_BodyIDTakesPrecedenceOverQuery(t *testing.T) {
	app := newTestApp(t)
	app.repo.seed("Baikonur", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	app.repo.seed("Tanegashima", time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	req := composePost(url.Values{"id": {"2"}, "location": {"Kourou"}})
	req.URL.RawQuery = "id=1"
	w := app.serve(asAuthor(req))

	if loc := w.Header().Get("Location"); loc != "/entry?id=2" {
		t.Errorf("Location = %q, want /entry?id=2", loc)
	}
	first, _ := app.repo.FindByID(t.Context(), 1)
	second, _ := app.repo.FindByID(t.Context(), 2)
	if first.Location != "Baikonur" || second.Location != "Kourou" {
		t.Errorf("locations = (%q, %q), want (Baikonur, Kourou)", first.Location, second.Location)
	}
}

func TestCompose_UpdateUnknownID_Returns404(t *testing.T) {
	app := newTestApp(t)

	w := app.serve(asAuthor(composePost(url.Values{"id": {"77"}, "location": {"Vandenberg"}})))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if app.repo.count() != 0 {
		t.Error("update of unknown id must not create a post")
	}
}

func TestCompose_BlankLocation_Returns400(t *testing.T) {
	app := newTestApp(t)

	for _, location := range []string{"", "   "} {
		w := app.serve(asAuthor(composePost(url.Values{"location": {location}})))
		if w.Code != http.StatusBadRequest {
			t.Errorf("location %q status = %d, want %d", location, w.Code, http.StatusBadRequest)
		}
	}
	if app.repo.count() != 0 {
		t.Error("invalid submissions must not create posts")
	}
}

func TestCompose_MissingXSRF_Returns403(t *testing.T) {
	app := newTestApp(t)

	form := url.Values{"location": {"Cape Canaveral"}}
	req := httptest.NewRequest(http.MethodPost, "/compose", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := app.serve(asAuthor(req))

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
	if app.repo.count() != 0 {
		t.Error("request without xsrf token must not create a post")
	}
}
