// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/minishop/internal/metrics"
	"github.com/hitoshi/minishop/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// authContextKey はリクエストコンテキストに認証情報を格納するためのキー。
var authContextKey = contextKey("auth")

// Authenticator はリクエストのトークンを検証するインターフェース。
// token.Verifierが実装する。
type Authenticator interface {
	Authenticate(r *http.Request) (*model.AuthContext, error)
}

// NewTokenMiddleware はAuthorizationヘッダーのBearerトークンを検証し、
// 認証情報をリクエストコンテキストに注入するミドルウェアを返す。
// ヘッダーがない場合は401、トークンが無効な場合は403を返し、後続のハンドラーは呼ばない。
func NewTokenMiddleware(authenticator Authenticator, collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	record := func(result string) {
		if collector != nil {
			collector.RecordTokenVerification(result)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth, err := authenticator.Authenticate(r)
			switch {
			case err == nil:
			case errors.Is(err, model.ErrTokenMissing):
				record(metrics.VerifyMissing)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenMissingError())
				return
			default:
				record(metrics.VerifyInvalid)
				slog.Debug("token rejected",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusForbidden, model.NewTokenInvalidError())
				return
			}

			record(metrics.VerifyAccepted)
			next.ServeHTTP(w, r.WithContext(ContextWithAuth(r.Context(), auth)))
		})
	}
}

// AuthFromContext はリクエストコンテキストから認証情報を取得する。
// トークンミドルウェアを通過したリクエストでのみ有効。
func AuthFromContext(ctx context.Context) (*model.AuthContext, error) {
	auth, ok := ctx.Value(authContextKey).(*model.AuthContext)
	if !ok || auth == nil {
		return nil, errors.New("auth context not found")
	}
	return auth, nil
}

// ContextWithAuth はコンテキストに認証情報を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithAuth(ctx context.Context, auth *model.AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, auth)
}
