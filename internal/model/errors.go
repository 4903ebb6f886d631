// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// エラー種別。各コア操作はこのいずれかでラップしたエラーを返す。
var (
	// ErrInvalidRequest は呼び出し側の誤り（I/O実行前に検出）。
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUpstreamFailure はIDプロバイダーの拒否または到達不能。
	ErrUpstreamFailure = errors.New("upstream failure")
	// ErrStorageFailure はユーザーディレクトリの読み書き失敗。
	ErrStorageFailure = errors.New("storage failure")
	// ErrTokenMissing はAuthorizationヘッダーがない、またはBearer形式でない。
	ErrTokenMissing = errors.New("token missing")
	// ErrTokenInvalid は署名不正、クレーム不正、または期限切れ。
	ErrTokenInvalid = errors.New("token invalid")
	// ErrUserNotFound はユーザーレコードが存在しない。
	ErrUserNotFound = errors.New("user not found")
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, upstream, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeUpstreamFailure  = "UPSTREAM_FAILURE"
	ErrCodeStorageFailure   = "STORAGE_FAILURE"
	ErrCodeTokenMissing     = "TOKEN_MISSING"
	ErrCodeTokenInvalid     = "TOKEN_INVALID"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
	ErrCodeNoFieldsToUpdate = "NO_FIELDS_TO_UPDATE"
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeRateLimited      = "RATE_LIMIT_EXCEEDED"
)

// NewInvalidRequestError はリクエスト不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  reason,
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewUpstreamFailureError はIDプロバイダー連携の失敗エラーを生成する。
func NewUpstreamFailureError() *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamFailure,
		Message:  "Error fetching openid",
		Category: "upstream",
		Action:   "新しい認可コードを取得して再度ログインしてください。",
	}
}

// NewStorageFailureError はユーザーディレクトリの失敗エラーを生成する。
func NewStorageFailureError() *APIError {
	return &APIError{
		Code:     ErrCodeStorageFailure,
		Message:  "Error logging in",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewTokenMissingError はトークン未指定エラーを生成する。
func NewTokenMissingError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenMissing,
		Message:  "Access denied",
		Category: "auth",
		Action:   "Authorization: Bearer <token> ヘッダーを付与してください。",
	}
}

// NewTokenInvalidError はトークン無効エラーを生成する。
func NewTokenInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenInvalid,
		Message:  "Invalid token",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewNoFieldsToUpdateError は更新対象フィールドがない場合のエラーを生成する。
func NewNoFieldsToUpdateError() *APIError {
	return &APIError{
		Code:     ErrCodeNoFieldsToUpdate,
		Message:  "No fields to update",
		Category: "validation",
		Action:   "avatar_url、nickname、phone、shop_info のいずれかを指定してください。",
	}
}

// NewInternalError は内部エラーを生成する。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Too many requests. Please try again later.",
		Category: "system",
		Action:   "Retry-Afterの秒数だけ待ってから再度お試しください。",
	}
}
