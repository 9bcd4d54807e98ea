package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

const (
	defaultGoogleAuthURL     = "https://accounts.google.com/o/oauth2/auth"
	defaultGoogleTokenURL    = "https://oauth2.googleapis.com/token"
	defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

// youtubeScopes はYouTube連携に必要なスコープ。
// フィード取得（読み取り専用）とアカウント統合用のメールアドレス取得を含む。
var youtubeScopes = []string{
	"https://www.googleapis.com/auth/youtube.readonly",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// YouTubeOAuthConfig はYouTube (Google) OAuthプロバイダーの設定。
type YouTubeOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なURL
	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// YouTubeOAuthProvider はGoogle OAuth 2.0によるYouTubeアカウント連携を提供する。
type YouTubeOAuthProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

// NewYouTubeOAuthProvider はYouTubeOAuthProviderを生成する。
func NewYouTubeOAuthProvider(config YouTubeOAuthConfig) *YouTubeOAuthProvider {
	if config.AuthURL == "" {
		config.AuthURL = defaultGoogleAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultGoogleTokenURL
	}
	if config.UserInfoURL == "" {
		config.UserInfoURL = defaultGoogleUserInfoURL
	}
	return &YouTubeOAuthProvider{
		config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       youtubeScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  config.AuthURL,
				TokenURL: config.TokenURL,
			},
		},
		userInfoURL: config.UserInfoURL,
	}
}

// GetLoginURL はGoogle OAuthの認証URLを生成する。
// access_type=offlineとprompt=consentを指定し、リフレッシュトークンの発行を保証する。
func (p *YouTubeOAuthProvider) GetLoginURL(state string) string {
	return p.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// googleUserInfo はGoogleのユーザー情報エンドポイントのレスポンス。
type googleUserInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// ExchangeCode は認可コードをトークンに交換し、連携アカウント情報を取得する。
func (p *YouTubeOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthResult, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}

	userInfo, err := p.fetchUserInfo(ctx, token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	result := &OAuthResult{
		ProviderAccountID: userInfo.Sub,
		Email:             userInfo.Email,
		Name:              userInfo.Name,
		AccessToken:       token.AccessToken,
		RefreshToken:      token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		result.ExpiresAt = &expiry
	}

	return result, nil
}

// fetchUserInfo はアクセストークンでGoogleのユーザー情報を取得する。
func (p *YouTubeOAuthProvider) fetchUserInfo(ctx context.Context, accessToken string) (*googleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read user info response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var userInfo googleUserInfo
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return nil, fmt.Errorf("failed to parse user info response: %w", err)
	}

	if userInfo.Sub == "" {
		return nil, fmt.Errorf("empty sub in user info response")
	}

	return &userInfo, nil
}

// compile-time interface check
var _ OAuthProvider = (*YouTubeOAuthProvider)(nil)
