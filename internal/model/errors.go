// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, waitlist, content, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeEmailRequired     = "EMAIL_REQUIRED"
	ErrCodeEmailFormat       = "EMAIL_FORMAT"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeAlreadySubscribed = "ALREADY_SUBSCRIBED"
	ErrCodeStorageFailure    = "STORAGE_FAILURE"
	ErrCodeUpstreamFetch     = "UPSTREAM_FETCH_FAILED"
	ErrCodePostNotFound      = "POST_NOT_FOUND"
)

// ErrDuplicateEmail はwaitlistテーブルのunique制約違反を表す番兵エラー。
// リポジトリ層がpqのunique_violationをこのエラーに変換し、
// サービス層がAlreadySubscribedの判定に使用する。
var ErrDuplicateEmail = errors.New("email already registered")

// NewEmailRequiredError はメールアドレス未指定エラーを生成する。
func NewEmailRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailRequired,
		Message:  "Email is required",
		Category: "validation",
		Action:   "Enter an email address and try again.",
	}
}

// NewEmailFormatError はメールアドレス形式エラーを生成する。
func NewEmailFormatError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailFormat,
		Message:  "Invalid email format",
		Category: "validation",
		Action:   "Enter a valid email address such as name@example.com.",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Too many requests. Please try again later.",
		Category: "system",
		Action:   "Wait a minute before submitting again.",
	}
}

// NewAlreadySubscribedError は登録済みメールアドレスの再登録エラーを生成する。
// 想定内の正常系コンフリクトであり、障害としては扱わない。
func NewAlreadySubscribedError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadySubscribed,
		Message:  "This email is already on the waitlist",
		Category: "waitlist",
		Action:   "You are already registered. No further action is needed.",
	}
}

// NewStorageFailureError は永続化層の障害エラーを生成する。
func NewStorageFailureError() *APIError {
	return &APIError{
		Code:     ErrCodeStorageFailure,
		Message:  "Failed to add email to waitlist",
		Category: "system",
		Action:   "Please try again later.",
	}
}

// NewUpstreamFetchError はCMS取得失敗エラーを生成する。
func NewUpstreamFetchError() *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamFetch,
		Message:  "Failed to fetch content from CMS",
		Category: "content",
		Action:   "Please try again later.",
	}
}

// NewPostNotFoundError は記事未検出エラーを生成する。
func NewPostNotFoundError(slug string) *APIError {
	return &APIError{
		Code:     ErrCodePostNotFound,
		Message:  fmt.Sprintf("Post not found: %s", slug),
		Category: "content",
		Action:   "Check the post slug.",
	}
}
