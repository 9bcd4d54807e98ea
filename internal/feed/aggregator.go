// Package feed はプラットフォーム横断のフィード集約を提供する。
// プロバイダーごとのフィードを正規化し、タイムスタンプ降順の統合ストリームに
// マージする。フィードは永続化されず、リクエストごとに取得される。
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/unifeed/internal/metrics"
	"github.com/hitoshi/unifeed/internal/model"
	"github.com/hitoshi/unifeed/internal/provider"
	"github.com/hitoshi/unifeed/internal/repository"
)

// AggregatorConfig はフィード集約の設定。
type AggregatorConfig struct {
	ProviderTimeout time.Duration // プロバイダー呼び出し全体のタイムアウト
}

// Aggregator は連携済みプラットフォームのフィードを取得・正規化・統合する。
type Aggregator struct {
	providers map[model.Platform]provider.Provider
	credRepo  repository.CredentialRepository
	metrics   metrics.MetricsCollector
	config    AggregatorConfig
	logger    *slog.Logger
}

// NewAggregator はAggregatorを生成する。
func NewAggregator(
	providers map[model.Platform]provider.Provider,
	credRepo repository.CredentialRepository,
	collector metrics.MetricsCollector,
	config AggregatorConfig,
	logger *slog.Logger,
) *Aggregator {
	if config.ProviderTimeout <= 0 {
		config.ProviderTimeout = 15 * time.Second
	}
	return &Aggregator{
		providers: providers,
		credRepo:  credRepo,
		metrics:   collector,
		config:    config,
		logger:    logger,
	}
}

// PlatformFeed は単一プラットフォームのフィードを取得する。
// 未連携の場合はNO_LINKED_ACCOUNT、未知のプラットフォームはUNKNOWN_PROVIDERとなる。
func (a *Aggregator) PlatformFeed(ctx context.Context, user *model.User, platform model.Platform) (*model.PlatformFeed, error) {
	prov, ok := a.providers[platform]
	if !ok {
		return nil, model.NewUnknownProviderError(string(platform))
	}

	cred, err := a.credRepo.FindByUserAndProvider(ctx, user.ID, platform)
	if err != nil {
		return nil, fmt.Errorf("failed to find credential: %w", err)
	}
	if cred == nil {
		return nil, model.NewNoLinkedAccountError(platform)
	}

	return a.fetchPlatform(ctx, cred, prov)
}

// UnifiedFeed は連携済み全プラットフォームのフィードを並行取得し、
// タイムスタンプ降順の単一ストリームに統合する。
// 未連携のプラットフォームはスキップされ、連携が一つもない場合は
// NO_LINKED_ACCOUNTとなる。連携済みプラットフォームの取得失敗は
// リクエスト全体を失敗させる。
func (a *Aggregator) UnifiedFeed(ctx context.Context, user *model.User) (*model.AggregatedFeed, error) {
	creds, err := a.credRepo.ListByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}

	// 連携済みかつプロバイダー実装が存在するものだけを対象にする
	var linked []*model.Credential
	for _, cred := range creds {
		if _, ok := a.providers[cred.Provider]; ok {
			linked = append(linked, cred)
		}
	}
	if len(linked) == 0 {
		return nil, model.NewNoLinkedAccountsError()
	}

	perPlatform := make(map[model.Platform]*model.PlatformFeed, len(linked))
	results := make([]*model.PlatformFeed, len(linked))

	g, gctx := errgroup.WithContext(ctx)
	for i, cred := range linked {
		i, cred := i, cred
		g.Go(func() error {
			pf, err := a.fetchPlatform(gctx, cred, a.providers[cred.Provider])
			if err != nil {
				return err
			}
			results[i] = pf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []model.FeedItem
	for i, cred := range linked {
		perPlatform[cred.Provider] = results[i]
		merged = append(merged, results[i].Items...)
	}
	sortByTimestampDesc(merged)
	if merged == nil {
		merged = []model.FeedItem{}
	}

	return &model.AggregatedFeed{
		User: &model.UserSummary{
			ID:          user.ID,
			Email:       user.Email,
			DisplayName: user.DisplayName,
		},
		PerPlatform: perPlatform,
		Items:       merged,
	}, nil
}

// fetchPlatform は単一プラットフォームのフィードを構成する。
// 購読一覧→最新アイテムの順に取得し、結果が空の場合は人気コンテンツに
// フォールバックする。プロフィール取得はベストエフォートで、失敗しても
// フィード全体は失敗しない。
func (a *Aggregator) fetchPlatform(ctx context.Context, cred *model.Credential, prov provider.Provider) (*model.PlatformFeed, error) {
	platform := prov.Name()

	ctx, cancel := context.WithTimeout(ctx, a.config.ProviderTimeout)
	defer cancel()

	start := time.Now()

	items, source, err := a.fetchItems(ctx, cred, prov)
	if err != nil {
		a.metrics.RecordProviderFetchFailure(string(platform))
		a.logger.Error("プロバイダーフィードの取得に失敗",
			slog.String("provider", string(platform)),
			slog.String("user_id", cred.UserID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewProviderUnavailableError(platform)
	}

	a.metrics.RecordProviderFetchSuccess(string(platform))
	a.metrics.RecordProviderFetchLatency(string(platform), time.Since(start))
	if source == model.FeedSourceTrending {
		a.metrics.RecordFallbackServed(string(platform))
	}

	sortByTimestampDesc(items)

	return &model.PlatformFeed{
		Profile: a.fetchProfile(ctx, cred, prov),
		Source:  source,
		Items:   items,
	}, nil
}

// fetchItems は購読ベースのアイテムを取得し、空ならば人気コンテンツに
// フォールバックする。
func (a *Aggregator) fetchItems(ctx context.Context, cred *model.Credential, prov provider.Provider) ([]model.FeedItem, model.FeedSource, error) {
	channels, err := prov.Subscriptions(ctx, cred)
	if err != nil {
		return nil, "", err
	}

	if len(channels) > 0 {
		items, err := prov.RecentItems(ctx, cred, channels)
		if err != nil {
			return nil, "", err
		}
		if len(items) > 0 {
			return items, model.FeedSourceSubscriptions, nil
		}
	}

	// 購読が空、または購読から一件も得られなかった場合のフォールバック
	items, err := prov.Trending(ctx, cred)
	if err != nil {
		return nil, "", err
	}
	if items == nil {
		items = []model.FeedItem{}
	}
	return items, model.FeedSourceTrending, nil
}

// fetchProfile はプロフィールをベストエフォートで取得する。
// 失敗した場合はプラットフォーム名だけのサマリーを返す。
func (a *Aggregator) fetchProfile(ctx context.Context, cred *model.Credential, prov provider.Provider) *model.ProfileSummary {
	platform := prov.Name()

	profile, err := prov.Profile(ctx, cred)
	if err != nil {
		a.logger.Warn("プロフィール取得に失敗（フィードは継続）",
			slog.String("provider", string(platform)),
			slog.String("user_id", cred.UserID),
			slog.String("error", err.Error()),
		)
		return &model.ProfileSummary{
			Platform: platform,
			Title:    string(platform),
		}
	}
	return profile
}

// sortByTimestampDesc はアイテムをタイムスタンプ降順（新しい順）に安定ソートする。
// 同時刻のアイテムは入力順を維持する。
func sortByTimestampDesc(items []model.FeedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
}
