package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// minJWTSecretLength はHS256署名鍵として受け入れる最小バイト数。
const minJWTSecretLength = 32

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// WeChat
	WeChatAppID     string        `env:"WECHAT_APP_ID,required,notEmpty"`
	WeChatAppSecret string        `env:"WECHAT_APP_SECRET,required,notEmpty"`
	WeChatEndpoint  string        `env:"WECHAT_ENDPOINT" envDefault:"https://api.weixin.qq.com/sns/jscode2session"`
	WeChatTimeout   time.Duration `env:"WECHAT_TIMEOUT" envDefault:"5s"`

	// Token
	JWTSecret string        `env:"JWT_SECRET,required,notEmpty"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"minishop"`

	// User
	DefaultNickname string `env:"DEFAULT_NICKNAME" envDefault:"微信用户"`

	// Rate Limit（req/min/user）
	RateLimitGeneral int `env:"RATE_LIMIT_GENERAL" envDefault:"120"`
	RateLimitProfile int `env:"RATE_LIMIT_PROFILE" envDefault:"10"`

	// Server
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`

	// CORS
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN" envDefault:"http://localhost:3000"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合、または署名鍵が短すぎる場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretLength)
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive: %s", c.JWTTTL)
	}
	if c.WeChatTimeout <= 0 {
		return fmt.Errorf("WECHAT_TIMEOUT must be positive: %s", c.WeChatTimeout)
	}
	if c.RateLimitGeneral <= 0 || c.RateLimitProfile <= 0 {
		return fmt.Errorf("rate limits must be positive: general=%d profile=%d", c.RateLimitGeneral, c.RateLimitProfile)
	}
	return nil
}
