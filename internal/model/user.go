// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// 初回のプロバイダー認証成功時に作成され、このコアから削除されることはない。
type User struct {
	ID          string
	Email       string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Credential は外部コンテンツプロバイダーのOAuth2トークンを表す。
// (user_id, provider) および (provider, provider_account_id) ごとに一意。
// リフレッシュ時はトークンフィールドのみが上書きされ、履歴は保持しない。
type Credential struct {
	ID                string
	UserID            string
	Provider          Platform
	ProviderAccountID string
	AccessToken       string
	RefreshToken      string
	ExpiresAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Session はユーザーのログインセッションを表す。
// コアからは読み取り専用で、期限切れは観測のみ（ストレージは変更しない）。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
