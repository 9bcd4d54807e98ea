// Package user はユーザー設定のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/unifeed/internal/model"
	"github.com/hitoshi/unifeed/internal/repository"
)

// CredentialRemover はプラットフォーム連携の解除インターフェース。
type CredentialRemover interface {
	Remove(ctx context.Context, userID string, provider model.Platform) error
}

// ConnectedAccount は設定画面に表示する連携アカウント情報。
// 外部アカウントIDとトークン期限は含むが、トークン本体は含まない。
type ConnectedAccount struct {
	Provider          model.Platform `json:"provider"`
	ProviderAccountID string         `json:"providerAccountId"`
	ConnectedAt       time.Time      `json:"connectedAt"`
	ExpiresAt         *time.Time     `json:"expiresAt,omitempty"`
}

// Settings はユーザー設定のレスポンス。
type Settings struct {
	User              *model.UserSummary `json:"user"`
	ConnectedAccounts []ConnectedAccount `json:"connectedAccounts"`
}

// Service はユーザー設定のサービス層。
type Service struct {
	userRepo repository.UserRepository
	credRepo repository.CredentialRepository
	remover  CredentialRemover
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	credRepo repository.CredentialRepository,
	remover CredentialRemover,
) *Service {
	return &Service{
		userRepo: userRepo,
		credRepo: credRepo,
		remover:  remover,
	}
}

// GetSettings はユーザー情報と連携アカウント一覧を返す。
func (s *Service) GetSettings(ctx context.Context, userID string) (*Settings, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(userID)
	}

	creds, err := s.credRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("連携アカウントの取得に失敗しました: %w", err)
	}

	accounts := make([]ConnectedAccount, 0, len(creds))
	for _, cred := range creds {
		accounts = append(accounts, ConnectedAccount{
			Provider:          cred.Provider,
			ProviderAccountID: cred.ProviderAccountID,
			ConnectedAt:       cred.CreatedAt,
			ExpiresAt:         cred.ExpiresAt,
		})
	}

	return &Settings{
		User: &model.UserSummary{
			ID:          user.ID,
			Email:       user.Email,
			DisplayName: user.DisplayName,
		},
		ConnectedAccounts: accounts,
	}, nil
}

// Disconnect は指定プラットフォームの連携を解除する。
// ユーザー不在はUSER_NOT_FOUND、連携不在はACCOUNT_NOT_CONNECTEDとなる。
func (s *Service) Disconnect(ctx context.Context, userID string, provider model.Platform) error {
	return s.remover.Remove(ctx, userID, provider)
}
