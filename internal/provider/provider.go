// Package provider は外部コンテンツプロバイダーの共通インターフェースを定義する。
package provider

import (
	"context"
	"time"

	"github.com/hitoshi/unifeed/internal/model"
)

// RefreshFunc はトークンリフレッシュ結果を同期的に永続化するコールバック。
// 永続化が失敗した場合はエラーを返し、呼び出し元のフェッチ全体を失敗させる。
type RefreshFunc func(ctx context.Context, credentialID, accessToken, refreshToken string, expiresAt *time.Time) error

// Provider は単一プラットフォームのフィード取得インターフェース。
// 全メソッドはクレデンシャルのアクセストークンを使用し、期限切れの場合は
// 透過的にリフレッシュして続行する。上流障害は*model.ProviderErrorで返す。
type Provider interface {
	// Name はプラットフォーム識別子を返す。
	Name() model.Platform

	// Profile はプロバイダー上のユーザープロフィールを取得する。
	Profile(ctx context.Context, cred *model.Credential) (*model.ProfileSummary, error)

	// Subscriptions はユーザーの購読チャンネル一覧を取得する。
	Subscriptions(ctx context.Context, cred *model.Credential) ([]model.ChannelRef, error)

	// RecentItems は指定チャンネル群の最新アイテムを取得する。
	RecentItems(ctx context.Context, cred *model.Credential, channels []model.ChannelRef) ([]model.FeedItem, error)

	// Trending はプラットフォームの人気コンテンツを取得する。
	// 購読が空の場合のフォールバックとして使用される。
	Trending(ctx context.Context, cred *model.Credential) ([]model.FeedItem, error)
}
