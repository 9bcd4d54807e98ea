// Package youtube はYouTube Data API v3によるフィード取得を提供する。
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// defaultBaseURL はYouTube Data API v3のベースURL。
const defaultBaseURL = "https://www.googleapis.com/youtube/v3"

// apiClient はYouTube Data API v3の薄いクライアント。
// 認可済みの*http.Clientを受け取り、JSONレスポンスをパースして返す。
type apiClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string // テスト用にベースURLを差し替え可能
}

func newAPIClient(httpClient *http.Client, logger *slog.Logger, baseURL string) *apiClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &apiClient{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
	}
}

// thumbnails はサムネイルのサイズバリエーション。
type thumbnails struct {
	Default thumbnail `json:"default"`
	Medium  thumbnail `json:"medium"`
	High    thumbnail `json:"high"`
}

type thumbnail struct {
	URL string `json:"url"`
}

// bestURL は高解像度を優先してサムネイルURLを選択する。
func (t thumbnails) bestURL() string {
	if t.High.URL != "" {
		return t.High.URL
	}
	if t.Medium.URL != "" {
		return t.Medium.URL
	}
	return t.Default.URL
}

// subscriptionItem はsubscriptions.listのレスポンスアイテム。
type subscriptionItem struct {
	Snippet struct {
		Title      string     `json:"title"`
		Thumbnails thumbnails `json:"thumbnails"`
		ResourceID struct {
			ChannelID string `json:"channelId"`
		} `json:"resourceId"`
	} `json:"snippet"`
}

// searchItem はsearch.listのレスポンスアイテム。
type searchItem struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		PublishedAt  string     `json:"publishedAt"`
		ChannelID    string     `json:"channelId"`
		ChannelTitle string     `json:"channelTitle"`
		Title        string     `json:"title"`
		Description  string     `json:"description"`
		Thumbnails   thumbnails `json:"thumbnails"`
	} `json:"snippet"`
}

// videoItem はvideos.listのレスポンスアイテム。
type videoItem struct {
	ID      string `json:"id"`
	Snippet struct {
		PublishedAt  string     `json:"publishedAt"`
		ChannelID    string     `json:"channelId"`
		ChannelTitle string     `json:"channelTitle"`
		Title        string     `json:"title"`
		Description  string     `json:"description"`
		Thumbnails   thumbnails `json:"thumbnails"`
	} `json:"snippet"`
	Statistics struct {
		ViewCount string `json:"viewCount"`
		LikeCount string `json:"likeCount"`
	} `json:"statistics"`
	ContentDetails struct {
		Duration string `json:"duration"`
	} `json:"contentDetails"`
}

// channelItem はchannels.listのレスポンスアイテム。
type channelItem struct {
	ID      string `json:"id"`
	Snippet struct {
		Title      string     `json:"title"`
		Thumbnails thumbnails `json:"thumbnails"`
	} `json:"snippet"`
	Statistics struct {
		SubscriberCount string `json:"subscriberCount"`
	} `json:"statistics"`
}

// listSubscriptions は認証ユーザーの購読チャンネルを取得する（先頭ページのみ）。
func (c *apiClient) listSubscriptions(ctx context.Context, maxResults int) ([]subscriptionItem, error) {
	params := url.Values{
		"part":       {"snippet"},
		"mine":       {"true"},
		"maxResults": {fmt.Sprintf("%d", maxResults)},
	}
	var result struct {
		Items []subscriptionItem `json:"items"`
	}
	if err := c.get(ctx, "/subscriptions", params, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// searchChannelVideos は指定チャンネルの最新動画を公開日時降順で取得する。
func (c *apiClient) searchChannelVideos(ctx context.Context, channelID string, maxResults int) ([]searchItem, error) {
	params := url.Values{
		"part":       {"snippet"},
		"channelId":  {channelID},
		"order":      {"date"},
		"type":       {"video"},
		"maxResults": {fmt.Sprintf("%d", maxResults)},
	}
	var result struct {
		Items []searchItem `json:"items"`
	}
	if err := c.get(ctx, "/search", params, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// listMostPopular は指定リージョンの人気動画を取得する。
func (c *apiClient) listMostPopular(ctx context.Context, regionCode string, maxResults int) ([]videoItem, error) {
	params := url.Values{
		"part":       {"snippet,statistics,contentDetails"},
		"chart":      {"mostPopular"},
		"regionCode": {regionCode},
		"maxResults": {fmt.Sprintf("%d", maxResults)},
	}
	var result struct {
		Items []videoItem `json:"items"`
	}
	if err := c.get(ctx, "/videos", params, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// myChannel は認証ユーザー自身のチャンネルを取得する。
// チャンネルを持たないアカウントの場合はnilを返す。
func (c *apiClient) myChannel(ctx context.Context) (*channelItem, error) {
	params := url.Values{
		"part": {"snippet,statistics"},
		"mine": {"true"},
	}
	var result struct {
		Items []channelItem `json:"items"`
	}
	if err := c.get(ctx, "/channels", params, &result); err != nil {
		return nil, err
	}
	if len(result.Items) == 0 {
		return nil, nil
	}
	return &result.Items[0], nil
}

// get はGETリクエストを実行しJSONレスポンスをデコードする。
func (c *apiClient) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("YouTube APIの呼び出しに失敗しました",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("YouTube APIがエラーステータスを返しました",
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
		)
		return fmt.Errorf("YouTube APIがステータス %d を返しました: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	return nil
}
