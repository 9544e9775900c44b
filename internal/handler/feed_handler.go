package handler

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/hitoshi/launchlog/internal/view"
)

// FeedHandler はAtomフィードのHTTPハンドラー。
type FeedHandler struct {
	service PostServiceInterface
	pages   pages
}

// NewFeedHandler はFeedHandlerを生成する。
func NewFeedHandler(service PostServiceInterface, renderer PageRenderer) *FeedHandler {
	return &FeedHandler{
		service: service,
		pages:   pages{renderer: renderer},
	}
}

// Feed は全記事をAtomフィードとして返す。
// GET /feed
func (h *FeedHandler) Feed(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.List(r.Context())
	if err != nil {
		h.pages.handleServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := h.pages.renderer.Feed(&buf, posts); err != nil {
		h.pages.handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", view.FeedContentType)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("failed to write feed", slog.String("error", err.Error()))
	}
}
