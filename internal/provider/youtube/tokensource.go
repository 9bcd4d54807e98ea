package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/hitoshi/unifeed/internal/model"
	"github.com/hitoshi/unifeed/internal/provider"
)

// persistingTokenSource はリフレッシュされたトークンを返却前に同期永続化する
// oauth2.TokenSourceラッパー。永続化が完了するまでトークンを呼び出し元に
// 渡さないため、プロセスが直後にクラッシュしても新しいリフレッシュトークンが
// 失われることはない。
//
// 永続化後はメモリ上のクレデンシャルにも新しいトークンを反映する。
// 同一リクエスト内の後続API呼び出しが同じクレデンシャルから次のクライアントを
// 構築するため、反映を怠るとローテーション済みの古いリフレッシュトークンを
// 再送してしまう。
type persistingTokenSource struct {
	ctx     context.Context
	src     oauth2.TokenSource
	cred    *model.Credential
	persist provider.RefreshFunc
	logger  *slog.Logger

	mu sync.Mutex
}

func newPersistingTokenSource(
	ctx context.Context,
	src oauth2.TokenSource,
	cred *model.Credential,
	persist provider.RefreshFunc,
	logger *slog.Logger,
) *persistingTokenSource {
	return &persistingTokenSource{
		ctx:     ctx,
		src:     src,
		cred:    cred,
		persist: persist,
		logger:  logger,
	}
}

// Token は有効なアクセストークンを返す。
// 内部ソースがリフレッシュを行った場合、新しいトークンを永続化し、
// クレデンシャルに反映してから返す。
// 永続化に失敗した場合はトークンを返さずエラーとする。
func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.src.Token()
	if err != nil {
		return nil, err
	}

	if token.AccessToken == s.cred.AccessToken {
		return token, nil
	}

	// リフレッシュが発生した。返却前に同期的に永続化する。
	// リフレッシュトークンがローテーションしていない場合は空文字列で渡し、
	// 永続化層に既存値を維持させる。
	refreshToken := ""
	if token.RefreshToken != s.cred.RefreshToken {
		refreshToken = token.RefreshToken
	}
	expiresAt := tokenExpiry(token)

	if err := s.persist(s.ctx, s.cred.ID, token.AccessToken, refreshToken, expiresAt); err != nil {
		return nil, fmt.Errorf("リフレッシュ済みトークンの永続化に失敗しました: %w", err)
	}

	// 永続化層と同じ維持規則: 空のリフレッシュトークンとnilの期限は上書きしない
	s.cred.AccessToken = token.AccessToken
	if refreshToken != "" {
		s.cred.RefreshToken = refreshToken
	}
	if expiresAt != nil {
		s.cred.ExpiresAt = expiresAt
	}

	s.logger.Info("アクセストークンをリフレッシュ",
		slog.String("credential_id", s.cred.ID),
	)
	return token, nil
}

func tokenExpiry(token *oauth2.Token) *time.Time {
	if token.Expiry.IsZero() {
		return nil
	}
	expiry := token.Expiry
	return &expiry
}

// compile-time interface check
var _ oauth2.TokenSource = (*persistingTokenSource)(nil)
