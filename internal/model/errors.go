// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, account, feed, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidSession      = "INVALID_SESSION"
	ErrCodeNoLinkedAccount     = "NO_LINKED_ACCOUNT"
	ErrCodeProviderError       = "PROVIDER_ERROR"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeAccountNotConnected = "ACCOUNT_NOT_CONNECTED"
	ErrCodeUnknownProvider     = "UNKNOWN_PROVIDER"
	ErrCodeCSRFValidation      = "CSRF_VALIDATION_FAILED"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// ProviderError はプロバイダー呼び出しの上流障害を表す。
// 認可失敗・クォータ超過・ネットワーク障害のいずれもこの型で伝播し、
// アダプター層ではリトライしない（リトライ方針は呼び出し側の責務）。
type ProviderError struct {
	Provider Platform
	Err      error
}

// Error はerrorインターフェースを実装する。
func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

// Unwrap は原因エラーを返す。
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewInvalidSessionError はセッション無効エラーを生成する。
// 期限切れと未知のトークンを区別しない（どちらも再ログインが必要）。
func NewInvalidSessionError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSession,
		Message:  "セッションが無効または期限切れです。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewNoLinkedAccountError は未連携プロバイダーへのフィード要求エラーを生成する。
func NewNoLinkedAccountError(provider Platform) *APIError {
	return &APIError{
		Code:     ErrCodeNoLinkedAccount,
		Message:  fmt.Sprintf("%s のアカウントが連携されていません。", provider),
		Category: "account",
		Action:   "設定画面からアカウントを連携してください。",
	}
}

// NewNoLinkedAccountsError は連携アカウントが一つも存在しないユーザーの
// 統合フィード要求エラーを生成する。
func NewNoLinkedAccountsError() *APIError {
	return &APIError{
		Code:     ErrCodeNoLinkedAccount,
		Message:  "連携済みのアカウントがありません。",
		Category: "account",
		Action:   "設定画面からアカウントを連携してください。",
	}
}

// NewProviderUnavailableError はフィード取得失敗エラーを生成する。
// 自動リトライは行わず、購読→人気のフォールバック以外の代替もない。
func NewProviderUnavailableError(provider Platform) *APIError {
	return &APIError{
		Code:     ErrCodeProviderError,
		Message:  fmt.Sprintf("%s からフィードを取得できませんでした。", provider),
		Category: "feed",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %s", userID),
		Category: "account",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewAccountNotConnectedError はユーザーは存在するが指定プロバイダーの
// 連携が存在しない場合のエラーを生成する。
// ユーザー自体の不在（USER_NOT_FOUND）とは区別される。
func NewAccountNotConnectedError(provider Platform) *APIError {
	return &APIError{
		Code:     ErrCodeAccountNotConnected,
		Message:  fmt.Sprintf("このユーザーに %s アカウントの連携がありません。", provider),
		Category: "account",
		Action:   "連携状況を設定画面で確認してください。",
	}
}

// NewCSRFValidationError はCSRFトークン検証失敗のエラーを生成する。
// Cookieとヘッダーのどちらかが欠けている場合も不一致の場合も区別しない。
func NewCSRFValidationError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFValidation,
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}

// NewInternalError は詳細を伏せた内部エラーを生成する。
// 原因はログにのみ記録し、ユーザーには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUnknownProviderError はサポート外プロバイダー指定のエラーを生成する。
func NewUnknownProviderError(provider string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownProvider,
		Message:  fmt.Sprintf("サポートされていないプロバイダーです: %s", provider),
		Category: "validation",
		Action:   "プロバイダー名を確認してください。",
	}
}
