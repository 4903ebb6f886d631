// Package token はセッショントークン（HS256 JWT）の発行と検証を提供する。
// トークンはサーバー側に保存せず、有効期限のみで失効する。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLength はHS256署名鍵として受け入れる最小バイト数。
const MinSecretLength = 32

// ErrMisconfigured は署名鍵やTTLが不正な場合のエラー。起動時に致命的エラーとして扱う。
var ErrMisconfigured = errors.New("token signer misconfigured")

// Config はトークンの発行・検証に共通する設定。
type Config struct {
	Secret []byte
	TTL    time.Duration
	Issuer string

	// Now はテスト用に差し替え可能な現在時刻関数。nilの場合はtime.Now。
	Now func() time.Time
}

func (c Config) validate() error {
	if len(c.Secret) < MinSecretLength {
		return fmt.Errorf("%w: secret must be at least %d bytes", ErrMisconfigured, MinSecretLength)
	}
	if c.TTL <= 0 {
		return fmt.Errorf("%w: ttl must be positive", ErrMisconfigured)
	}
	return nil
}

func (c Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Claims はセッショントークンのクレーム。
type Claims struct {
	OpenID string `json:"openid"`
	UserID int64  `json:"id"`
	jwt.RegisteredClaims
}

// Token は発行済みのセッショントークン。
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issuer はセッショントークンを発行する。
type Issuer struct {
	config Config
}

// NewIssuer はIssuerを生成する。
func NewIssuer(cfg Config) (*Issuer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Issuer{config: cfg}, nil
}

// Issue はopenidとユーザーIDを束ねた署名付きトークンを発行する。
func (i *Issuer) Issue(openID string, userID int64) (*Token, error) {
	now := i.config.now()
	expiresAt := now.Add(i.config.TTL)

	claims := Claims{
		OpenID: openID,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.config.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Token{
		Value:     signed,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
