package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/minishop/internal/middleware"
	"github.com/hitoshi/minishop/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	GetProfile(ctx context.Context, userID int64) (*model.User, error)
	UpdateProfile(ctx context.Context, userID int64, update model.ProfileUpdate) (*model.User, error)
	// Withdraw はユーザーを削除する。発行済みトークンは期限まで失効しない。
	Withdraw(ctx context.Context, userID int64) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
// 対象ユーザーは常にトークンのIDで決まり、クライアント指定のopenidは使わない。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

type userResponse struct {
	ID        int64     `json:"id"`
	OpenID    string    `json:"openid"`
	AvatarURL string    `json:"avatar_url"`
	Nickname  string    `json:"nickname"`
	Phone     string    `json:"phone"`
	ShopInfo  string    `json:"shop_info"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		OpenID:    u.OpenID,
		AvatarURL: u.AvatarURL,
		Nickname:  u.Nickname,
		Phone:     u.Phone,
		ShopInfo:  u.ShopInfo,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// updateProfileRequest は省略されたフィールドを更新しない。
type updateProfileRequest struct {
	AvatarURL *string `json:"avatar_url"`
	Nickname  *string `json:"nickname"`
	Phone     *string `json:"phone"`
	ShopInfo  *string `json:"shop_info"`
}

// GetProfile は現在のユーザー情報を返す。
// GET /users/me
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAuth(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetProfile(r.Context(), authCtx.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// UpdateProfile はプロフィールを部分更新する。
// PUT /users/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAuth(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("Invalid request body"))
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), authCtx.ID, model.ProfileUpdate{
		AvatarURL: req.AvatarURL,
		Nickname:  req.Nickname,
		Phone:     req.Phone,
		ShopInfo:  req.ShopInfo,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Withdraw はユーザーの退会処理を実行する。
// DELETE /users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAuth(w, r)
	if !ok {
		return
	}

	if err := h.service.Withdraw(r.Context(), authCtx.ID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
