package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, post, system
	Action   string // ユーザー向け対処方法
	Cause    error  // 原因となった内部エラー。ログ専用でユーザーには表示しない
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は原因エラーを返す。
func (e *APIError) Unwrap() error {
	return e.Cause
}

// 定義済みエラーコード
const (
	ErrCodePostNotFound         = "POST_NOT_FOUND"
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	ErrCodeInternal             = "INTERNAL_ERROR"
)

// NewPostNotFoundError は記事未検出エラーを生成する。
func NewPostNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodePostNotFound,
		Message:  fmt.Sprintf("The requested post was not found: %s", id),
		Category: "post",
		Action:   "Check the post ID or return to the archive.",
	}
}

// NewLocationRequiredError はlocation未入力エラーを生成する。
func NewLocationRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "A location is required.",
		Category: "validation",
		Action:   "Enter a launch location and submit again.",
	}
}

// NewInvalidFormError はフォームの解析失敗エラーを生成する。
func NewInvalidFormError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "The submitted form could not be read.",
		Category: "validation",
		Action:   "Reload the page and submit again.",
	}
}

// NewAuthenticationError は外部IdPでの認証失敗エラーを生成する。
// causeはログ用で、ユーザーには表示しない。
func NewAuthenticationError(cause error) *APIError {
	return &APIError{
		Cause:    cause,
		Code:     ErrCodeAuthenticationFailed,
		Message:  "Sign-in with the identity provider failed.",
		Category: "auth",
		Action:   "Try signing in again.",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "An internal error occurred.",
		Category: "system",
		Action:   "Please wait a moment and try again.",
	}
}
