package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/minishop/internal/model"
)

const (
	defaultWeChatEndpoint = "https://api.weixin.qq.com/sns/jscode2session"
	defaultWeChatTimeout  = 5 * time.Second

	// maxResponseBytes はプロバイダー応答として読み込む上限。
	maxResponseBytes = 64 << 10
)

var (
	// ErrProviderRejected はプロバイダーがコードを拒否した場合のエラー。
	ErrProviderRejected = errors.New("identity provider rejected code")
	// ErrTransportFailure はプロバイダーに到達できない、または応答が読めない場合のエラー。
	ErrTransportFailure = errors.New("identity provider unreachable")
)

// ExternalIdentity はIDプロバイダーが返すユーザー識別情報。
// SessionKeyは呼び出し元に返さない。
type ExternalIdentity struct {
	OpenID     string
	SessionKey string
	UnionID    string
}

// IdentityProvider はログインコードを外部IDに交換するプロバイダーのインターフェース。
type IdentityProvider interface {
	ExchangeCode(ctx context.Context, code string) (*ExternalIdentity, error)
}

// ProviderError はプロバイダーが返したエラー応答。
type ProviderError struct {
	Code    int
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// Unwrap はErrProviderRejectedを返す。
func (e *ProviderError) Unwrap() error {
	return ErrProviderRejected
}

// WeChatConfig はWeChatミニプログラムのcode2Session呼び出し設定。
type WeChatConfig struct {
	AppID     string
	AppSecret string

	// テスト用にオーバーライド可能
	Endpoint string
	Timeout  time.Duration
}

// WeChatClient はjscode2sessionによるopenid取得を提供する。
type WeChatClient struct {
	config     WeChatConfig
	httpClient *http.Client
}

// NewWeChatClient はWeChatClientを生成する。
func NewWeChatClient(config WeChatConfig) *WeChatClient {
	if config.Endpoint == "" {
		config.Endpoint = defaultWeChatEndpoint
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultWeChatTimeout
	}
	return &WeChatClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// code2SessionResponse はjscode2sessionのレスポンス。
// 成功時はerrcodeが省略されるか0になる。
type code2SessionResponse struct {
	OpenID     string `json:"openid"`
	SessionKey string `json:"session_key"`
	UnionID    string `json:"unionid"`
	ErrCode    int    `json:"errcode"`
	ErrMsg     string `json:"errmsg"`
}

// ExchangeCode はログインコードをopenidに交換する。
// 空のコードはネットワーク呼び出しを行わずにmodel.ErrInvalidRequestを返す。
func (c *WeChatClient) ExchangeCode(ctx context.Context, code string) (*ExternalIdentity, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: code is required", model.ErrInvalidRequest)
	}

	params := url.Values{
		"appid":      {c.config.AppID},
		"secret":     {c.config.AppSecret},
		"js_code":    {code},
		"grant_type": {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create code2session request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Errorはクエリ（secretを含む）をそのまま保持するため、元のエラーのみ残す
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("%w: %w", ErrTransportFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrTransportFailure, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: status %d", ErrTransportFailure, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &ProviderError{Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	var parsed code2SessionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %w", ErrTransportFailure, err)
	}

	if parsed.ErrCode != 0 {
		return nil, &ProviderError{Code: parsed.ErrCode, Message: parsed.ErrMsg}
	}
	if parsed.OpenID == "" {
		return nil, &ProviderError{Message: "openid missing in response"}
	}

	return &ExternalIdentity{
		OpenID:     parsed.OpenID,
		SessionKey: parsed.SessionKey,
		UnionID:    parsed.UnionID,
	}, nil
}

// compile-time interface check
var _ IdentityProvider = (*WeChatClient)(nil)
