// Package user はユーザープロフィール管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/minishop/internal/model"
	"github.com/hitoshi/minishop/internal/repository"
	"github.com/hitoshi/minishop/internal/security"
)

// Service はユーザー管理のサービス層。
// 対象ユーザーは常にトークンから得たIDで特定する。
type Service struct {
	userRepo  repository.UserRepository
	sanitizer security.ProfileSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, sanitizer security.ProfileSanitizer) *Service {
	return &Service{
		userRepo:  userRepo,
		sanitizer: sanitizer,
	}
}

// GetProfile は現在のユーザーを取得する。
func (s *Service) GetProfile(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// UpdateProfile はプロフィールを部分更新する。
// 更新対象のフィールドがない場合はNO_FIELDS_TO_UPDATEエラーを返す。
func (s *Service) UpdateProfile(ctx context.Context, userID int64, update model.ProfileUpdate) (*model.User, error) {
	if update.IsEmpty() {
		return nil, model.NewNoFieldsToUpdateError()
	}

	clean, err := s.sanitize(update)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.UpdateProfile(ctx, userID, clean)
	if errors.Is(err, model.ErrUserNotFound) {
		return nil, model.NewUserNotFoundError()
	}
	if err != nil {
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}

	slog.Info("プロフィールを更新しました", slog.Int64("user_id", userID))
	return user, nil
}

// Withdraw はユーザーの退会処理を実行する。
// 発行済みトークンは失効させず、有効期限まで検証を通過する。
func (s *Service) Withdraw(ctx context.Context, userID int64) error {
	err := s.userRepo.DeleteByID(ctx, userID)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.NewUserNotFoundError()
	}
	if err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました", slog.Int64("user_id", userID))
	return nil
}

// sanitize はテキスト項目からタグを除去し、アバターURLを検証する。
func (s *Service) sanitize(update model.ProfileUpdate) (model.ProfileUpdate, error) {
	var clean model.ProfileUpdate

	if update.AvatarURL != nil {
		v, err := s.sanitizer.SanitizeAvatarURL(*update.AvatarURL)
		if err != nil {
			return clean, model.NewInvalidRequestError("avatar_url must be an http(s) URL")
		}
		clean.AvatarURL = &v
	}
	for _, f := range []struct {
		src *string
		dst **string
	}{
		{update.Nickname, &clean.Nickname},
		{update.Phone, &clean.Phone},
		{update.ShopInfo, &clean.ShopInfo},
	} {
		if f.src != nil {
			v := s.sanitizer.SanitizeText(*f.src)
			*f.dst = &v
		}
	}

	return clean, nil
}
