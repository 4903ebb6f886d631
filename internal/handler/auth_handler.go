// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/minishop/internal/auth"
	"github.com/hitoshi/minishop/internal/middleware"
	"github.com/hitoshi/minishop/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, code string) (*auth.LoginResult, error)
}

// AuthHandler はログインと認証確認のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

type loginRequest struct {
	Code string `json:"code"`
}

type loginResponse struct {
	Token  string `json:"token"`
	OpenID string `json:"openid"`
	ID     int64  `json:"id"`
}

type meResponse struct {
	ID     int64  `json:"id"`
	OpenID string `json:"openid"`
}

// Login はログインコードを受け取り、セッショントークンを発行する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("Invalid request body"))
		return
	}

	result, err := h.service.Login(r.Context(), req.Code)
	if err != nil {
		writeLoginError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:  result.Token,
		OpenID: result.OpenID,
		ID:     result.ID,
	})
}

// Me はトークンに含まれる認証情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAuth(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, meResponse{ID: authCtx.ID, OpenID: authCtx.OpenID})
}

// writeLoginError はログイン失敗の種別に応じたレスポンスを書き込む。
func writeLoginError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidRequest):
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("Code is required"))
	case errors.Is(err, model.ErrUpstreamFailure):
		middleware.WriteErrorResponse(w, http.StatusBadGateway, model.NewUpstreamFailureError())
	case errors.Is(err, model.ErrStorageFailure):
		middleware.WriteErrorResponse(w, http.StatusInternalServerError, model.NewStorageFailureError())
	default:
		slog.Error("unexpected login error", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
	}
}
