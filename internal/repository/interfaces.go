// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/unifeed/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error
}

// CredentialRepository はプラットフォーム連携クレデンシャルの永続化インターフェース。
type CredentialRepository interface {
	// FindByUserAndProvider はユーザーIDとプラットフォームでクレデンシャルを検索する。
	// 見つからない場合はnilを返す。
	FindByUserAndProvider(ctx context.Context, userID string, provider model.Platform) (*model.Credential, error)

	// FindByProviderAccount はプラットフォームと外部アカウントIDでクレデンシャルを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAccount(ctx context.Context, provider model.Platform, providerAccountID string) (*model.Credential, error)

	// ListByUserID はユーザーの全クレデンシャルを返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Credential, error)

	// Create はクレデンシャルを作成する。
	Create(ctx context.Context, credential *model.Credential) error

	// UpdateTokens はトークンを部分更新する。
	// refreshTokenが空文字列の場合、expiresAtがnilの場合は既存の値を維持する。
	// 更新された行数を返す。クレデンシャルが既に削除されていた場合は0を返す。
	UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt *time.Time) (int64, error)

	// DeleteByUserAndProvider はユーザーIDとプラットフォームでクレデンシャルを削除する。
	// 削除された行数を返す。
	DeleteByUserAndProvider(ctx context.Context, userID string, provider model.Platform) (int64, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
}
