// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/unifeed/internal/model"
)

const sessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
var userContextKey = contextKey("user")

// SessionValidator はセッショントークンの検証インターフェース。
// auth.Serviceの部分集合として定義する。
type SessionValidator interface {
	Validate(ctx context.Context, sessionToken string) (*model.User, error)
}

// SessionConfig はセッションミドルウェアのCookie設定。
type SessionConfig struct {
	CookieSecure bool
	CookieDomain string
}

// NewSessionMiddleware はHTTP Only Cookieからセッショントークンを読み取り、
// 有効性を検証するミドルウェアを返す。
// 認証済みユーザーをリクエストコンテキストに注入する。
// 無効なセッションには401とINVALID_SESSIONを返し、Cookieを破棄する。
func NewSessionMiddleware(validator SessionValidator, config SessionConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Cookieからセッショントークンを取得
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				rejectSession(w, config)
				return
			}

			// 2. セッションの有効性を検証
			user, err := validator.Validate(r.Context(), cookie.Value)
			if err != nil {
				if apiErr, ok := err.(*model.APIError); ok && apiErr.Code == model.ErrCodeInvalidSession {
					rejectSession(w, config)
					return
				}
				slog.Error("failed to validate session",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}

			// 3. 認証済みユーザーをコンテキストに注入
			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// rejectSession は401レスポンスを書き込み、セッションCookieを破棄する。
// 期限切れと未知のトークンは区別しない。
func rejectSession(w http.ResponseWriter, config SessionConfig) {
	ClearSessionCookie(w, config)
	WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidSessionError())
}

// ClearSessionCookie はセッションCookieを破棄する。
func ClearSessionCookie(w http.ResponseWriter, config SessionConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetSessionCookie はセッションCookieを設定する。
func SetSessionCookie(w http.ResponseWriter, config SessionConfig, sessionID string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionCookieValue はリクエストからセッショントークンを取得する。
// 存在しない場合は空文字列を返す。
func SessionCookieValue(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserFromContext(ctx context.Context) (*model.User, error) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	if !ok || user == nil {
		return nil, fmt.Errorf("user not found in context")
	}
	return user, nil
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	user, err := UserFromContext(ctx)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// ContextWithUser はコンテキストに認証済みユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
