package middleware

import "net/http"

// このAPIが公開するメソッドはGETと（連携解除・ログアウトの）POSTのみ。
// 連携解除POSTはCSRFトークンヘッダーを伴うため、許可ヘッダーに含める。
const (
	corsAllowedMethods = "GET, POST, OPTIONS"
	corsAllowedHeaders = "Content-Type, " + csrfHeaderName
	corsMaxAge         = "86400"
)

// NewCORSMiddleware はフロントエンドのオリジンに対するCORSミドルウェアを返す。
// セッションCookieを伴うリクエストを許可するため、オリジンは単一指定で
// ワイルドカード(*)は使用しない。OPTIONSプリフライトには204で応答する。
func NewCORSMiddleware(allowedOrigin string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allowedOrigin)
			h.Set("Access-Control-Allow-Methods", corsAllowedMethods)
			h.Set("Access-Control-Allow-Headers", corsAllowedHeaders)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Max-Age", corsMaxAge)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
