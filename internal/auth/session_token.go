package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/launchlog/internal/model"
)

const (
	sessionIssuer = "launchlog"
	sessionLeeway = 30 * time.Second
)

// SessionSigner は著者IDを埋め込んだHS256署名付きセッショントークンを発行・検証する。
// サーバー側にセッションを保存しないため、署名と有効期限のみで信頼性を担保する。
type SessionSigner struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewSessionSigner はSessionSignerを生成する。
func NewSessionSigner(secret string, maxAge time.Duration) *SessionSigner {
	return &SessionSigner{
		secret: []byte(secret),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Issue は著者IDのセッショントークンを発行する。
func (s *SessionSigner) Issue(authorID int64) (*model.Session, error) {
	now := s.now().UTC()
	expiresAt := now.Add(s.maxAge)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(authorID, 10),
		Issuer:    sessionIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &model.Session{
		AuthorID:  authorID,
		Token:     signed,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify はトークンの署名・発行者・有効期限を検証し、著者IDを返す。
func (s *SessionSigner) Verify(token string) (int64, error) {
	if token == "" {
		return 0, errors.New("empty session token")
	}

	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(sessionLeeway),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, fmt.Errorf("invalid session token: %w", err)
	}
	if !parsed.Valid {
		return 0, errors.New("invalid session token")
	}

	authorID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || authorID <= 0 {
		return 0, fmt.Errorf("invalid session subject %q", claims.Subject)
	}

	return authorID, nil
}
