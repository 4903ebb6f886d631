// Package auth はWeChatログインコードによる認証フローとセッショントークン発行を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/minishop/internal/metrics"
	"github.com/hitoshi/minishop/internal/model"
	"github.com/hitoshi/minishop/internal/repository"
	"github.com/hitoshi/minishop/internal/token"
)

// LoginStage はログインフローの進行段階。
type LoginStage string

const (
	StageAwaitingCode       LoginStage = "awaiting_code"
	StageExchangingIdentity LoginStage = "exchanging_identity"
	StageResolvingUser      LoginStage = "resolving_user"
	StageIssuingToken       LoginStage = "issuing_token"
	StageComplete           LoginStage = "complete"
)

// LoginError はログイン失敗を表す。Kindはmodelのエラー種別のいずれか。
// errors.IsはKindと原因の両方に対して機能する。
type LoginError struct {
	Stage LoginStage
	Kind  error
	Err   error
}

// Error はerrorインターフェースを実装する。
func (e *LoginError) Error() string {
	return fmt.Sprintf("login failed at %s: %v: %v", e.Stage, e.Kind, e.Err)
}

// Unwrap はKindと原因を返す。
func (e *LoginError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// TokenIssuer はセッショントークンの発行者。
type TokenIssuer interface {
	Issue(openID string, userID int64) (*token.Token, error)
}

// LoginResult はログイン成功時の結果。
type LoginResult struct {
	Token     string
	OpenID    string
	ID        int64
	ExpiresAt time.Time
	Created   bool
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	DefaultNickname string // 初回ログイン時のニックネーム
}

// Service はログインフローを順に実行する。リトライは行わない。
type Service struct {
	provider IdentityProvider
	userRepo repository.UserRepository
	issuer   TokenIssuer
	metrics  metrics.MetricsCollector
	config   ServiceConfig
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(
	provider IdentityProvider,
	userRepo repository.UserRepository,
	issuer TokenIssuer,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	return &Service{
		provider: provider,
		userRepo: userRepo,
		issuer:   issuer,
		metrics:  collector,
		config:   config,
	}
}

// Login はログインコードをopenidに交換し、ユーザーを解決または作成して、トークンを発行する。
// 失敗時は*LoginErrorを返す。
func (s *Service) Login(ctx context.Context, code string) (*LoginResult, error) {
	if code == "" {
		return nil, s.fail(StageAwaitingCode, model.ErrInvalidRequest, errors.New("code is required"))
	}

	started := time.Now()
	ident, err := s.provider.ExchangeCode(ctx, code)
	if s.metrics != nil {
		s.metrics.RecordProviderLatency(time.Since(started))
	}
	if err != nil {
		kind := model.ErrUpstreamFailure
		if errors.Is(err, model.ErrInvalidRequest) {
			kind = model.ErrInvalidRequest
		}
		return nil, s.fail(StageExchangingIdentity, kind, err)
	}

	user, created, err := s.userRepo.ResolveOrCreate(ctx, ident.OpenID, model.Profile{
		Nickname: s.config.DefaultNickname,
	})
	if err != nil {
		return nil, s.fail(StageResolvingUser, model.ErrStorageFailure, err)
	}
	if created && s.metrics != nil {
		s.metrics.RecordUserCreated()
	}

	tok, err := s.issuer.Issue(user.OpenID, user.ID)
	if err != nil {
		return nil, s.fail(StageIssuingToken, model.ErrStorageFailure, err)
	}

	if created {
		slog.Info("new user created", slog.Int64("user_id", user.ID))
	}
	slog.Info("user logged in",
		slog.Int64("user_id", user.ID),
		slog.Bool("created", created),
	)
	s.record(StageComplete, metrics.OutcomeSuccess)

	return &LoginResult{
		Token:     tok.Value,
		OpenID:    user.OpenID,
		ID:        user.ID,
		ExpiresAt: tok.ExpiresAt,
		Created:   created,
	}, nil
}

// fail は失敗を記録し、LoginErrorを生成する。
func (s *Service) fail(stage LoginStage, kind, err error) *LoginError {
	level := slog.LevelWarn
	if errors.Is(kind, model.ErrStorageFailure) {
		level = slog.LevelError
	}
	slog.Log(context.Background(), level, "login failed",
		slog.String("stage", string(stage)),
		slog.String("kind", kind.Error()),
		slog.String("error", err.Error()),
	)
	s.record(stage, metrics.OutcomeFailure)

	return &LoginError{Stage: stage, Kind: kind, Err: err}
}

func (s *Service) record(stage LoginStage, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordLogin(string(stage), outcome)
	}
}
