package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/unifeed/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// HTTPStatusForAPIError はAPIErrorコードからHTTPステータスコードを導出する。
// ハンドラーとミドルウェアの双方がこのマッピングを共有する。
func HTTPStatusForAPIError(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidSession:
		return http.StatusUnauthorized
	case model.ErrCodeCSRFValidation:
		return http.StatusForbidden
	case model.ErrCodeUnknownProvider:
		return http.StatusBadRequest
	case model.ErrCodeNoLinkedAccount, model.ErrCodeUserNotFound, model.ErrCodeAccountNotConnected:
		return http.StatusNotFound
	case model.ErrCodeProviderError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteAPIError はエラーコードからステータスコードを導出して書き込む。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	WriteErrorResponse(w, HTTPStatusForAPIError(apiErr), apiErr)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}
