package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/unifeed/internal/middleware"
	"github.com/hitoshi/unifeed/internal/model"
)

// FeedServiceInterface はフィードハンドラーが必要とするサービスインターフェース。
type FeedServiceInterface interface {
	// UnifiedFeed は連携済み全プラットフォームの統合フィードを取得する。
	UnifiedFeed(ctx context.Context, user *model.User) (*model.AggregatedFeed, error)
	// PlatformFeed は単一プラットフォームのフィードを取得する。
	PlatformFeed(ctx context.Context, user *model.User, platform model.Platform) (*model.PlatformFeed, error)
}

// FeedHandler はフィード取得のHTTPハンドラー。
type FeedHandler struct {
	service FeedServiceInterface
}

// NewFeedHandler はFeedHandlerを生成する。
func NewFeedHandler(service FeedServiceInterface) *FeedHandler {
	return &FeedHandler{
		service: service,
	}
}

// UnifiedFeed は統合フィードを返す。
// GET /api/feeds
func (h *FeedHandler) UnifiedFeed(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewInvalidSessionError())
		return
	}

	feed, err := h.service.UnifiedFeed(r.Context(), user)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(feed)
}

// PlatformFeed は単一プラットフォームのフィードを返す。
// GET /api/feeds/{provider}
func (h *FeedHandler) PlatformFeed(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewInvalidSessionError())
		return
	}

	platform := model.Platform(chi.URLParam(r, "provider"))

	feed, err := h.service.PlatformFeed(r.Context(), user, platform)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(feed)
}

// SampleFeed は認証不要のデモ用フィードを返す。
// GET /feeds/sample
func (h *FeedHandler) SampleFeed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sampleFeed())
}

// sampleFeed は未ログイン状態のフロントエンドに表示するモックフィードを生成する。
func sampleFeed() *model.AggregatedFeed {
	now := time.Now().UTC().Truncate(time.Hour)
	items := []model.FeedItem{
		{
			ID:           "sample-1",
			Platform:     model.PlatformYouTube,
			Type:         "video",
			Title:        "unifeedへようこそ",
			Description:  "connect an account to see your own feed",
			URL:          "https://www.youtube.com/watch?v=sample-1",
			ChannelTitle: "unifeed",
			PublishedAt:  now.Format(time.RFC3339),
			Timestamp:    now,
		},
		{
			ID:           "sample-2",
			Platform:     model.PlatformYouTube,
			Type:         "video",
			Title:        "アカウント連携のやり方",
			URL:          "https://www.youtube.com/watch?v=sample-2",
			ChannelTitle: "unifeed",
			PublishedAt:  now.Add(-24 * time.Hour).Format(time.RFC3339),
			Timestamp:    now.Add(-24 * time.Hour),
		},
	}

	return &model.AggregatedFeed{
		PerPlatform: map[model.Platform]*model.PlatformFeed{
			model.PlatformYouTube: {
				Profile: &model.ProfileSummary{
					Platform: model.PlatformYouTube,
					Title:    "YouTube",
				},
				Source: model.FeedSourceTrending,
				Items:  items,
			},
		},
		Items: items,
	}
}

// --- ヘルパー関数 ---

// handleServiceError はサービス層から返されたエラーを統一エラーフォーマットで書き込む。
// ステータスコードはエラーコードから導出する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}
