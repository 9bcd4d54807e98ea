package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/unifeed/internal/model"
	"github.com/hitoshi/unifeed/internal/provider"
)

const (
	// maxSubscriptions は購読一覧取得の最大件数（先頭ページのみ）。
	maxSubscriptions = 50
	// maxChannelsPerFetch はクォータ保護のため最新アイテムを取得する購読チャンネル数の上限。
	maxChannelsPerFetch = 10
	// maxItemsPerChannel はチャンネルごとに取得する最新動画数。
	maxItemsPerChannel = 5
	// trendingMaxResults はフォールバック時に取得する人気動画数。
	trendingMaxResults = 20
)

// Config はYouTubeアダプターの設定。
type Config struct {
	ClientID     string
	ClientSecret string
	Region       string // 人気動画のリージョンコード（例: "US"）

	// テスト用にオーバーライド可能なURL
	TokenURL string
	BaseURL  string
}

// Adapter はYouTube Data API v3によるProvider実装。
// アクセストークンが期限切れの場合は透過的にリフレッシュし、
// 新しいトークンをAPI呼び出し前に同期永続化する。
type Adapter struct {
	config  Config
	refresh provider.RefreshFunc
	logger  *slog.Logger
}

// NewAdapter はAdapterを生成する。
func NewAdapter(config Config, refresh provider.RefreshFunc, logger *slog.Logger) *Adapter {
	if config.TokenURL == "" {
		config.TokenURL = "https://oauth2.googleapis.com/token"
	}
	if config.Region == "" {
		config.Region = "US"
	}
	return &Adapter{
		config:  config,
		refresh: refresh,
		logger:  logger,
	}
}

// Name はプラットフォーム識別子を返す。
func (a *Adapter) Name() model.Platform {
	return model.PlatformYouTube
}

// client はクレデンシャルに紐付く認可済みAPIクライアントを生成する。
func (a *Adapter) client(ctx context.Context, cred *model.Credential) *apiClient {
	conf := &oauth2.Config{
		ClientID:     a.config.ClientID,
		ClientSecret: a.config.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL: a.config.TokenURL,
		},
	}

	stored := &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		TokenType:    "Bearer",
	}
	if cred.ExpiresAt != nil {
		stored.Expiry = *cred.ExpiresAt
	}

	ts := newPersistingTokenSource(ctx, conf.TokenSource(ctx, stored), cred, a.refresh, a.logger)
	httpClient := oauth2.NewClient(ctx, ts)
	return newAPIClient(httpClient, a.logger, a.config.BaseURL)
}

// Profile は認証ユーザーのYouTubeチャンネル情報を取得する。
// チャンネルを持たないアカウントの場合はプラットフォーム名のみのサマリーを返す。
func (a *Adapter) Profile(ctx context.Context, cred *model.Credential) (*model.ProfileSummary, error) {
	ch, err := a.client(ctx, cred).myChannel(ctx)
	if err != nil {
		return nil, a.wrap(err)
	}
	if ch == nil {
		return &model.ProfileSummary{
			Platform: model.PlatformYouTube,
			Title:    "YouTube",
		}, nil
	}
	return &model.ProfileSummary{
		Platform:    model.PlatformYouTube,
		ChannelID:   ch.ID,
		Title:       ch.Snippet.Title,
		Thumbnail:   ch.Snippet.Thumbnails.bestURL(),
		Subscribers: ch.Statistics.SubscriberCount,
	}, nil
}

// Subscriptions は認証ユーザーの購読チャンネル一覧を取得する。
func (a *Adapter) Subscriptions(ctx context.Context, cred *model.Credential) ([]model.ChannelRef, error) {
	items, err := a.client(ctx, cred).listSubscriptions(ctx, maxSubscriptions)
	if err != nil {
		return nil, a.wrap(err)
	}

	channels := make([]model.ChannelRef, 0, len(items))
	for _, item := range items {
		if item.Snippet.ResourceID.ChannelID == "" {
			continue
		}
		channels = append(channels, model.ChannelRef{
			ID:    item.Snippet.ResourceID.ChannelID,
			Title: item.Snippet.Title,
		})
	}
	return channels, nil
}

// RecentItems は購読チャンネル群の最新動画を並行取得する。
// クォータ保護のため先頭maxChannelsPerFetchチャンネルに制限する。
// いずれかのチャンネルで取得が失敗した場合は全体を失敗させる。
func (a *Adapter) RecentItems(ctx context.Context, cred *model.Credential, channels []model.ChannelRef) ([]model.FeedItem, error) {
	if len(channels) > maxChannelsPerFetch {
		channels = channels[:maxChannelsPerFetch]
	}
	if len(channels) == 0 {
		return []model.FeedItem{}, nil
	}

	client := a.client(ctx, cred)

	// チャンネル順を保ったまま並行取得する
	perChannel := make([][]model.FeedItem, len(channels))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, ch := range channels {
		i, ch := i, ch
		g.Go(func() error {
			results, err := client.searchChannelVideos(gctx, ch.ID, maxItemsPerChannel)
			if err != nil {
				return err
			}

			items := make([]model.FeedItem, 0, len(results))
			for _, r := range results {
				if r.ID.VideoID == "" {
					continue
				}
				items = append(items, searchItemToFeedItem(r))
			}

			mu.Lock()
			perChannel[i] = items
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, a.wrap(err)
	}

	var all []model.FeedItem
	for _, items := range perChannel {
		all = append(all, items...)
	}
	if all == nil {
		all = []model.FeedItem{}
	}
	return all, nil
}

// Trending は指定リージョンの人気動画を取得する。
func (a *Adapter) Trending(ctx context.Context, cred *model.Credential) ([]model.FeedItem, error) {
	videos, err := a.client(ctx, cred).listMostPopular(ctx, a.config.Region, trendingMaxResults)
	if err != nil {
		return nil, a.wrap(err)
	}

	items := make([]model.FeedItem, 0, len(videos))
	for _, v := range videos {
		items = append(items, videoItemToFeedItem(v))
	}
	return items, nil
}

// wrap は上流エラーをProviderErrorに包む。
func (a *Adapter) wrap(err error) error {
	return &model.ProviderError{Provider: model.PlatformYouTube, Err: err}
}

func searchItemToFeedItem(r searchItem) model.FeedItem {
	return model.FeedItem{
		ID:           r.ID.VideoID,
		Platform:     model.PlatformYouTube,
		Type:         "video",
		Title:        r.Snippet.Title,
		Description:  r.Snippet.Description,
		URL:          watchURL(r.ID.VideoID),
		Thumbnail:    r.Snippet.Thumbnails.bestURL(),
		ChannelID:    r.Snippet.ChannelID,
		ChannelTitle: r.Snippet.ChannelTitle,
		PublishedAt:  r.Snippet.PublishedAt,
		Timestamp:    model.ResolveTimestamp(r.Snippet.PublishedAt),
	}
}

func videoItemToFeedItem(v videoItem) model.FeedItem {
	item := model.FeedItem{
		ID:           v.ID,
		Platform:     model.PlatformYouTube,
		Type:         "video",
		Title:        v.Snippet.Title,
		Description:  v.Snippet.Description,
		URL:          watchURL(v.ID),
		Thumbnail:    v.Snippet.Thumbnails.bestURL(),
		ChannelID:    v.Snippet.ChannelID,
		ChannelTitle: v.Snippet.ChannelTitle,
		PublishedAt:  v.Snippet.PublishedAt,
		Timestamp:    model.ResolveTimestamp(v.Snippet.PublishedAt),
	}

	attrs := make(map[string]string)
	if v.Statistics.ViewCount != "" {
		attrs["viewCount"] = v.Statistics.ViewCount
	}
	if v.Statistics.LikeCount != "" {
		attrs["likeCount"] = v.Statistics.LikeCount
	}
	if v.ContentDetails.Duration != "" {
		attrs["duration"] = v.ContentDetails.Duration
	}
	if len(attrs) > 0 {
		item.Attributes = attrs
	}
	return item
}

func watchURL(videoID string) string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
}

// compile-time interface check
var _ provider.Provider = (*Adapter)(nil)
