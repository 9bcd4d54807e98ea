// Package auth はOAuth連携フロー、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/unifeed/internal/credential"
	"github.com/hitoshi/unifeed/internal/model"
	"github.com/hitoshi/unifeed/internal/repository"
)

// OAuthResult はOAuthプロバイダーから取得した連携アカウント情報を表す。
type OAuthResult struct {
	ProviderAccountID string
	Email             string
	Name              string
	AccessToken       string
	RefreshToken      string
	ExpiresAt         *time.Time
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// プラットフォームごと（YouTube等）に実装を持つ。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、連携アカウント情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthResult, error)
}

// CredentialUpserter は連携結果の永続化インターフェース。
type CredentialUpserter interface {
	Upsert(ctx context.Context, input credential.LinkInput) (*model.User, *model.Credential, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	providers   map[model.Platform]OAuthProvider
	creds       CredentialUpserter
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
	logger      *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	providers map[model.Platform]OAuthProvider,
	creds CredentialUpserter,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		providers:   providers,
		creds:       creds,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		config:      config,
		logger:      logger,
	}
}

// GetLoginURL は指定プラットフォームのOAuth認証URLを生成する。
func (s *Service) GetLoginURL(provider model.Platform, state string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", model.NewUnknownProviderError(string(provider))
	}
	return p.GetLoginURL(state), nil
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// 取得したトークンはクレデンシャルとして永続化され、
// 同一メールアドレスの既存ユーザーがいればそのユーザーに統合される。
func (s *Service) HandleCallback(ctx context.Context, provider model.Platform, code string) (*model.Session, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, model.NewUnknownProviderError(string(provider))
	}

	result, err := p.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	user, _, err := s.creds.Upsert(ctx, credential.LinkInput{
		Provider:          provider,
		ProviderAccountID: result.ProviderAccountID,
		Email:             result.Email,
		DisplayName:       result.Name,
		AccessToken:       result.AccessToken,
		RefreshToken:      result.RefreshToken,
		ExpiresAt:         result.ExpiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert credential: %w", err)
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("アカウント連携が完了",
		slog.String("user_id", user.ID),
		slog.String("provider", string(provider)),
	)
	return session, nil
}

// Validate はセッショントークンを検証し、対応するユーザーを返す。
// 期限切れまたは未知のトークンは区別せずINVALID_SESSIONエラーとなる。
func (s *Service) Validate(ctx context.Context, sessionToken string) (*model.User, error) {
	if sessionToken == "" {
		return nil, model.NewInvalidSessionError()
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionToken)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, model.NewInvalidSessionError()
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewInvalidSessionError()
	}

	return user, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.logger.Info("ログアウト", slog.String("session_id", sessionID))
	return nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
