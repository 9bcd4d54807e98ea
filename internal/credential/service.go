// Package credential はプラットフォーム連携クレデンシャルのライフサイクル管理を提供する。
package credential

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/unifeed/internal/model"
	"github.com/hitoshi/unifeed/internal/repository"
)

// LinkInput はOAuth連携完了時に保存するアカウント情報を表す。
type LinkInput struct {
	Provider          model.Platform
	ProviderAccountID string
	Email             string
	DisplayName       string
	AccessToken       string
	RefreshToken      string
	ExpiresAt         *time.Time
}

// Service はクレデンシャルに関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	credRepo repository.CredentialRepository
	logger   *slog.Logger
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, credRepo repository.CredentialRepository, logger *slog.Logger) *Service {
	return &Service{
		userRepo: userRepo,
		credRepo: credRepo,
		logger:   logger,
	}
}

// Get は指定ユーザー・プラットフォームのクレデンシャルを取得する。
// 連携されていない場合はnilを返す。
func (s *Service) Get(ctx context.Context, userID string, provider model.Platform) (*model.Credential, error) {
	cred, err := s.credRepo.FindByUserAndProvider(ctx, userID, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return cred, nil
}

// Upsert はOAuth連携結果を永続化し、連携先ユーザーを返す。
// 既に同一の外部アカウントが連携済みの場合はトークンを更新する。
// 未連携の場合はメールアドレスで既存ユーザーに統合し、
// 該当ユーザーが存在しなければ新規作成する。
func (s *Service) Upsert(ctx context.Context, input LinkInput) (*model.User, *model.Credential, error) {
	// 1. 外部アカウントIDで既存連携を検索
	existing, err := s.credRepo.FindByProviderAccount(ctx, input.Provider, input.ProviderAccountID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find credential: %w", err)
	}

	if existing != nil {
		// 既存連携: トークンを更新し、紐付くユーザーを返す
		if _, err := s.credRepo.UpdateTokens(ctx, existing.ID, input.AccessToken, input.RefreshToken, input.ExpiresAt); err != nil {
			return nil, nil, fmt.Errorf("failed to update credential tokens: %w", err)
		}
		existing.AccessToken = input.AccessToken
		if input.RefreshToken != "" {
			existing.RefreshToken = input.RefreshToken
		}
		if input.ExpiresAt != nil {
			existing.ExpiresAt = input.ExpiresAt
		}

		user, err := s.userRepo.FindByID(ctx, existing.UserID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to find user: %w", err)
		}
		if user == nil {
			return nil, nil, fmt.Errorf("credential owner not found: %s", existing.UserID)
		}

		s.logger.Info("既存連携のトークンを更新",
			slog.String("user_id", user.ID),
			slog.String("provider", string(input.Provider)),
		)
		return user, existing, nil
	}

	// 2. メールアドレスで既存ユーザーに統合
	user, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	now := time.Now()
	if user == nil {
		user = &model.User{
			ID:          uuid.New().String(),
			Email:       input.Email,
			DisplayName: input.DisplayName,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, nil, fmt.Errorf("failed to create user: %w", err)
		}
		s.logger.Info("新規ユーザーを作成",
			slog.String("user_id", user.ID),
			slog.String("provider", string(input.Provider)),
		)
	}

	// 3. 同一ユーザー・同一プラットフォームの古い連携があれば差し替える
	prior, err := s.credRepo.FindByUserAndProvider(ctx, user.ID, input.Provider)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find prior credential: %w", err)
	}
	if prior != nil {
		if _, err := s.credRepo.DeleteByUserAndProvider(ctx, user.ID, input.Provider); err != nil {
			return nil, nil, fmt.Errorf("failed to replace prior credential: %w", err)
		}
		s.logger.Info("別アカウントへの再連携のため旧クレデンシャルを削除",
			slog.String("user_id", user.ID),
			slog.String("provider", string(input.Provider)),
		)
	}

	cred := &model.Credential{
		ID:                uuid.New().String(),
		UserID:            user.ID,
		Provider:          input.Provider,
		ProviderAccountID: input.ProviderAccountID,
		AccessToken:       input.AccessToken,
		RefreshToken:      input.RefreshToken,
		ExpiresAt:         input.ExpiresAt,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.credRepo.Create(ctx, cred); err != nil {
		return nil, nil, fmt.Errorf("failed to create credential: %w", err)
	}

	s.logger.Info("プラットフォーム連携を作成",
		slog.String("user_id", user.ID),
		slog.String("provider", string(input.Provider)),
	)
	return user, cred, nil
}

// ApplyRefresh はトークンリフレッシュ結果を同期的に永続化する。
// refreshTokenが空の場合、expiresAtがnilの場合は既存の値を維持する。
// 対象クレデンシャルが既に削除されている場合（連携解除との競合）は何もしない。
func (s *Service) ApplyRefresh(ctx context.Context, credentialID, accessToken, refreshToken string, expiresAt *time.Time) error {
	rows, err := s.credRepo.UpdateTokens(ctx, credentialID, accessToken, refreshToken, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}
	if rows == 0 {
		// 連携解除が先行した場合は解除を優先し、更新を破棄する
		s.logger.Warn("リフレッシュ対象のクレデンシャルが存在しない",
			slog.String("credential_id", credentialID),
		)
		return nil
	}

	s.logger.Debug("リフレッシュ済みトークンを永続化",
		slog.String("credential_id", credentialID),
	)
	return nil
}

// Remove は指定ユーザー・プラットフォームの連携を解除する。
func (s *Service) Remove(ctx context.Context, userID string, provider model.Platform) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError(userID)
	}

	rows, err := s.credRepo.DeleteByUserAndProvider(ctx, userID, provider)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	if rows == 0 {
		return model.NewAccountNotConnectedError(provider)
	}

	s.logger.Info("プラットフォーム連携を解除",
		slog.String("user_id", userID),
		slog.String("provider", string(provider)),
	)
	return nil
}
