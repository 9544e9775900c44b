// Package auth はOAuthログインフロー、単一著者ポリシー、署名付きセッションを提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/launchlog/internal/model"
)

// ログイン結果（メトリクスのラベル）
const (
	LoginOutcomeSuccess  = "success"
	LoginOutcomeRejected = "rejected"
	LoginOutcomeFailed   = "failed"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Provider       string // "google" 等
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// AuthorRegistry は著者を最大1人に制限する登録簿のインターフェース。
// repository.AuthorRepositoryの部分集合として定義する。
type AuthorRegistry interface {
	// ResolveSole はメールアドレスの著者を返し、著者がいなければ作成する。
	// 別の著者が既に存在する場合はnilを返す。
	ResolveSole(ctx context.Context, email, name string) (*model.Author, error)
}

// LoginRecorder はログイン結果を記録するメトリクスのインターフェース。
type LoginRecorder interface {
	RecordLogin(outcome string)
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth    OAuthProvider
	authors  AuthorRegistry
	signer   *SessionSigner
	recorder LoginRecorder
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(
	oauth OAuthProvider,
	authors AuthorRegistry,
	signer *SessionSigner,
	recorder LoginRecorder,
) *Service {
	return &Service{
		oauth:    oauth,
		authors:  authors,
		signer:   signer,
		recorder: recorder,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
//
// 著者の解決規則:
//   - 同じメールアドレスの著者がいればその著者でログインする
//   - 著者が1人もいなければ、IdPの情報から著者を作成してログインする
//   - 別の著者が既にいる場合はセッションを発行せず、nilセッションとnilエラーを返す
//
// IdPとのやり取りに失敗した場合はAUTHENTICATION_FAILEDのAPIErrorを返す。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		s.record(LoginOutcomeFailed)
		return nil, model.NewAuthenticationError(fmt.Errorf("failed to exchange oauth code: %w", err))
	}
	if userInfo == nil || userInfo.Email == "" {
		s.record(LoginOutcomeFailed)
		return nil, model.NewAuthenticationError(fmt.Errorf("identity provider returned no email"))
	}

	author, err := s.authors.ResolveSole(ctx, userInfo.Email, userInfo.Name)
	if err != nil {
		s.record(LoginOutcomeFailed)
		return nil, fmt.Errorf("failed to resolve author: %w", err)
	}
	if author == nil {
		s.record(LoginOutcomeRejected)
		slog.Warn("login rejected: blog already has an author",
			slog.String("email", userInfo.Email),
			slog.String("provider", userInfo.Provider),
		)
		return nil, nil
	}

	session, err := s.signer.Issue(author.ID)
	if err != nil {
		s.record(LoginOutcomeFailed)
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.record(LoginOutcomeSuccess)
	slog.Info("author logged in",
		slog.Int64("author_id", author.ID),
		slog.String("provider", userInfo.Provider),
	)
	return session, nil
}

// CurrentAuthorID はセッショントークンから著者IDを取り出す。
// トークンが空・不正・期限切れの場合はfalseを返す。
// 著者レコードの存在は再確認しない（トークンは短命かつ署名済みのため）。
func (s *Service) CurrentAuthorID(token string) (int64, bool) {
	if token == "" {
		return 0, false
	}
	authorID, err := s.signer.Verify(token)
	if err != nil {
		slog.Debug("session token rejected", slog.String("error", err.Error()))
		return 0, false
	}
	return authorID, true
}

func (s *Service) record(outcome string) {
	if s.recorder != nil {
		s.recorder.RecordLogin(outcome)
	}
}
