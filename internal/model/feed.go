// Package model はドメインモデルを定義する。
package model

import "time"

// Platform は外部コンテンツプロバイダーの識別子を表す。
type Platform string

const (
	// PlatformYouTube はYouTubeプロバイダー。
	PlatformYouTube Platform = "youtube"
)

// FeedItem は全プラットフォーム共通の正規化済みフィードアイテム。
// 永続化されない一時データ。Timestampは常に比較可能なインスタントに
// 解決される（公開日時が欠落している場合はUnixエポックゼロ）。
type FeedItem struct {
	ID           string            `json:"id"`
	Platform     Platform          `json:"platform"`
	Type         string            `json:"type"`
	Title        string            `json:"title"`
	Description  string            `json:"description,omitempty"`
	URL          string            `json:"url"`
	Thumbnail    string            `json:"thumbnail,omitempty"`
	ChannelID    string            `json:"channelId,omitempty"`
	ChannelTitle string            `json:"channelTitle,omitempty"`
	PublishedAt  string            `json:"publishedAt,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
	Attributes   map[string]string `json:"attributes,omitempty"`
}

// ChannelRef は購読先チャンネルへの参照を表す。
type ChannelRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ProfileSummary はプロバイダー上のユーザープロフィール表示情報。
// 取得はベストエフォートで、欠落フィールドはプロバイダー名で補われる。
type ProfileSummary struct {
	Platform    Platform `json:"platform"`
	ChannelID   string   `json:"channelId,omitempty"`
	Title       string   `json:"title"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
	Subscribers string   `json:"subscribers,omitempty"`
}

// FeedSource はプラットフォームフィードの取得元を表す。
type FeedSource string

const (
	// FeedSourceSubscriptions は購読チャンネルの最新アイテムから構成されたことを示す。
	FeedSourceSubscriptions FeedSource = "subscriptions"
	// FeedSourceTrending はフォールバックとして人気コンテンツが使われたことを示す。
	FeedSourceTrending FeedSource = "trending"
)

// PlatformFeed は単一プラットフォームのフィードを表す。
type PlatformFeed struct {
	Profile *ProfileSummary `json:"profile,omitempty"`
	Source  FeedSource      `json:"source"`
	Items   []FeedItem      `json:"items"`
}

// UserSummary は集約フィードに付与するユーザー表示情報。
type UserSummary struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// AggregatedFeed は全プラットフォームを統合したフィードを表す。
// Itemsはタイムスタンプ降順（新しい順）で安定ソートされる。
type AggregatedFeed struct {
	User        *UserSummary               `json:"user,omitempty"`
	PerPlatform map[Platform]*PlatformFeed `json:"platforms"`
	Items       []FeedItem                 `json:"items"`
}

// ResolveTimestamp はプロバイダー由来の公開日時文字列を比較可能なインスタントに
// 正規化する。パース不能または空の場合はUnixエポックゼロを返し、
// 全順序が常に定義されることを保証する（欠落アイテムは最古としてソートされる）。
func ResolveTimestamp(publishedAt string) time.Time {
	if publishedAt == "" {
		return time.Unix(0, 0).UTC()
	}
	t, err := time.Parse(time.RFC3339, publishedAt)
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return t.UTC()
}
