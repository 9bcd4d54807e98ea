package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/unifeed/internal/middleware"
	"github.com/hitoshi/unifeed/internal/model"
	"github.com/hitoshi/unifeed/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// GetSettings はユーザー情報と連携アカウント一覧を取得する。
	GetSettings(ctx context.Context, userID string) (*user.Settings, error)
	// Disconnect は指定プラットフォームの連携を解除する。
	Disconnect(ctx context.Context, userID string, provider model.Platform) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// Me は現在のユーザーのプロフィールを返す。
// GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewInvalidSessionError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&model.UserSummary{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
	})
}

// GetSettings はユーザー設定（連携アカウント一覧を含む）を返す。
// GET /api/users/me/settings
func (h *UserHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewInvalidSessionError())
		return
	}

	settings, err := h.service.GetSettings(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settings)
}

// Disconnect はプラットフォーム連携を解除し、更新後の設定を返す。
// POST /api/users/me/disconnect/{provider}
func (h *UserHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewInvalidSessionError())
		return
	}

	provider := model.Platform(chi.URLParam(r, "provider"))

	if err := h.service.Disconnect(r.Context(), userID, provider); err != nil {
		handleServiceError(w, err)
		return
	}

	// 解除後の最新設定を返す
	settings, err := h.service.GetSettings(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settings)
}
