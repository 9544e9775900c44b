// Package post は記事の一覧・取得・作成・更新のビジネスロジックを提供する。
package post

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/launchlog/internal/model"
	"github.com/hitoshi/launchlog/internal/repository"
)

// Recorder は記事の書き込みを記録するメトリクスのインターフェース。
type Recorder interface {
	RecordPostCreated()
	RecordPostUpdated()
}

// Service は記事に関するビジネスロジックを提供する。
type Service struct {
	repo     repository.PostRepository
	recorder Recorder
	now      func() time.Time
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(repo repository.PostRepository, recorder Recorder) *Service {
	return &Service{
		repo:     repo,
		recorder: recorder,
		now:      time.Now,
	}
}

// List は全記事を新しい順に返す。記事がない場合は空スライスを返す。
func (s *Service) List(ctx context.Context) ([]*model.Post, error) {
	posts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// Get は指定IDの記事を返す。存在しない場合はPOST_NOT_FOUNDエラーを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.Post, error) {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(strconv.FormatInt(id, 10))
	}
	return post, nil
}

// Create は新しい記事を作成する。dateには現在時刻を設定する。
func (s *Service) Create(ctx context.Context, location string) (*model.Post, error) {
	location, err := normalizeLocation(location)
	if err != nil {
		return nil, err
	}

	post := &model.Post{
		Location: location,
		Date:     storedTime(s.now()),
	}
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	if s.recorder != nil {
		s.recorder.RecordPostCreated()
	}
	slog.Info("post created", slog.Int64("post_id", post.ID))
	return post, nil
}

// Update は既存記事のlocationを置き換える。IDとdateは変わらない。
// 存在しない場合はPOST_NOT_FOUNDエラーを返す。
func (s *Service) Update(ctx context.Context, id int64, location string) (*model.Post, error) {
	location, err := normalizeLocation(location)
	if err != nil {
		return nil, err
	}

	post, err := s.repo.UpdateLocation(ctx, id, location)
	if err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(strconv.FormatInt(id, 10))
	}

	if s.recorder != nil {
		s.recorder.RecordPostUpdated()
	}
	slog.Info("post updated", slog.Int64("post_id", post.ID))
	return post, nil
}

// storedTime はPostgreSQLのTIMESTAMPTZ（マイクロ秒精度）で表せる時刻に切り上げる。
// 保存後に読み直しても値が変わらず、呼び出し時刻より前にもならない。
func storedTime(t time.Time) time.Time {
	t = t.UTC()
	truncated := t.Truncate(time.Microsecond)
	if truncated.Before(t) {
		truncated = truncated.Add(time.Microsecond)
	}
	return truncated
}

// ParseID はクエリパラメータやフォーム値の記事IDを解釈する。
// 正の整数でない場合はfalseを返す。
func ParseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// normalizeLocation は前後の空白を除去し、空の場合はバリデーションエラーを返す。
func normalizeLocation(location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", model.NewLocationRequiredError()
	}
	return location, nil
}
