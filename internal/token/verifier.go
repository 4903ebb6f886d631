package token

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/minishop/internal/model"
)

const bearerScheme = "bearer"

// Verifier はセッショントークンを検証する。
// 検証は読み取り専用で、ユーザーディレクトリには触れない。
type Verifier struct {
	config Config
	parser *jwt.Parser
}

// NewVerifier はVerifierを生成する。
func NewVerifier(cfg Config) (*Verifier, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(cfg.now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &Verifier{config: cfg, parser: jwt.NewParser(opts...)}, nil
}

// Verify は署名・有効期限・クレームを検証し、認証情報を返す。
// 失敗した場合はmodel.ErrTokenInvalidをラップしたエラーを返す。
func (v *Verifier) Verify(raw string) (*model.AuthContext, error) {
	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.config.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrTokenInvalid, err)
	}

	if claims.OpenID == "" || claims.UserID <= 0 {
		return nil, fmt.Errorf("%w: malformed claims", model.ErrTokenInvalid)
	}

	return &model.AuthContext{ID: claims.UserID, OpenID: claims.OpenID}, nil
}

// Authenticate はリクエストのAuthorizationヘッダーを検証する。
// ヘッダーがない、またはBearer形式でない場合はmodel.ErrTokenMissing、
// トークンが無効な場合はmodel.ErrTokenInvalidを返す。
func (v *Verifier) Authenticate(r *http.Request) (*model.AuthContext, error) {
	raw, err := ParseBearer(r.Header.Get("Authorization"))
	if err != nil {
		return nil, err
	}
	return v.Verify(raw)
}

// ParseBearer は "Bearer <token>" 形式のヘッダー値からトークンを取り出す。
// スキーム名の大文字小文字は区別しない。
func ParseBearer(header string) (string, error) {
	scheme, raw, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return "", model.ErrTokenMissing
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", model.ErrTokenMissing
	}
	return raw, nil
}
